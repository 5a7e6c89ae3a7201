package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	dotel "github.com/revisant/dictum/internal/adapter/otel"
	"github.com/revisant/dictum/internal/domain"
	"github.com/revisant/dictum/internal/domain/defense"
	"github.com/revisant/dictum/internal/domain/deliberation"
	"github.com/revisant/dictum/internal/domain/project"
	"github.com/revisant/dictum/internal/domain/score"
	"github.com/revisant/dictum/internal/port/database"
	"github.com/revisant/dictum/internal/port/ledger"
)

// DefenseService compiles the immutable audit snapshot of a finished review.
// Compilation is pure over (project, ledger): the file embeds the entire
// deliberation history, the derived score, and every document reference.
type DefenseService struct {
	store  database.Store
	ledger ledger.Store
}

// NewDefenseService creates a DefenseService.
func NewDefenseService(store database.Store, ledgerStore ledger.Store) *DefenseService {
	return &DefenseService{store: store, ledger: ledgerStore}
}

// Compile builds and persists a defense file for a terminal project. Each
// compilation of the same project gets the next version number; earlier
// versions are never touched.
func (s *DefenseService) Compile(ctx context.Context, p *project.Project) (*defense.File, error) {
	ctx, span := dotel.StartDefenseCompileSpan(ctx, p.ID)
	defer span.End()

	if !p.Status.Terminal() {
		return nil, fmt.Errorf("compile defense for %s: project not terminal: %w", p.ID, domain.ErrInvalidState)
	}

	entries, err := s.ledger.ListByProject(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	prior, err := s.store.ListDefenseFiles(ctx, p.ID)
	if err != nil {
		return nil, fmt.Errorf("list defense versions: %w", err)
	}

	f := buildFile(p, entries)
	f.ID = uuid.NewString()
	f.Version = len(prior) + 1
	f.CompiledAt = time.Now().UTC()

	if err := s.store.CreateDefenseFile(ctx, f); err != nil {
		return nil, fmt.Errorf("persist defense file: %w", err)
	}

	slog.Info("defense file compiled",
		"project_id", p.ID, "defense_id", f.ID, "version", f.Version,
		"deliberations", len(f.Deliberations))
	return f, nil
}

// GetLatest returns the most recent defense file version for a project.
func (s *DefenseService) GetLatest(ctx context.Context, projectID string) (*defense.File, error) {
	return s.store.GetDefenseFile(ctx, projectID)
}

// ListVersions returns every compiled version for a project, oldest first.
func (s *DefenseService) ListVersions(ctx context.Context, projectID string) ([]defense.File, error) {
	return s.store.ListDefenseFiles(ctx, projectID)
}

// buildFile assembles the defense file content from the project and its full
// ordered ledger. It performs no I/O.
func buildFile(p *project.Project, entries []deliberation.Deliberation) *defense.File {
	final := deliberation.DecisionReject
	if p.Status == project.StatusApproved {
		final = deliberation.DecisionApprove
	}

	var refs []string
	seen := make(map[string]struct{})
	for _, d := range entries {
		for _, ref := range d.DocumentRefs {
			if _, ok := seen[ref]; ok {
				continue
			}
			seen[ref] = struct{}{}
			refs = append(refs, ref)
		}
	}

	return &defense.File{
		ProjectID:     p.ID,
		CompanyID:     p.CompanyID,
		FinalDecision: final,
		Score:         score.Compute(entries),
		Deliberations: entries,
		DocumentRefs:  refs,
	}
}
