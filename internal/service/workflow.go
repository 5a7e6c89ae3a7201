// Package service implements the review workflow orchestration on top of
// the domain types and ports.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	dotel "github.com/revisant/dictum/internal/adapter/otel"
	"github.com/revisant/dictum/internal/domain"
	"github.com/revisant/dictum/internal/domain/gate"
	"github.com/revisant/dictum/internal/domain/project"
	"github.com/revisant/dictum/internal/domain/score"
	"github.com/revisant/dictum/internal/domain/stage"
	"github.com/revisant/dictum/internal/middleware"
	"github.com/revisant/dictum/internal/port/database"
	"github.com/revisant/dictum/internal/port/ledger"
	"github.com/revisant/dictum/internal/port/messagequeue"
)

// WorkflowService owns the project lifecycle state machine. It is the only
// component that mutates projects; every mutation runs under the per-project
// lock.
type WorkflowService struct {
	store   database.Store
	ledger  ledger.Store
	roster  *stage.Roster
	gates   *gate.Evaluator
	scores  *ScoreService
	defense *DefenseService
	queue   messagequeue.Queue
	metrics *dotel.Metrics
	locks   *projectLocks
}

// NewWorkflowService creates a WorkflowService with all dependencies.
// queue and metrics may be nil; events and instruments are then skipped.
func NewWorkflowService(
	store database.Store,
	ledgerStore ledger.Store,
	roster *stage.Roster,
	gates *gate.Evaluator,
	scores *ScoreService,
	defense *DefenseService,
	queue messagequeue.Queue,
	metrics *dotel.Metrics,
) *WorkflowService {
	return &WorkflowService{
		store:   store,
		ledger:  ledgerStore,
		roster:  roster,
		gates:   gates,
		scores:  scores,
		defense: defense,
		queue:   queue,
		metrics: metrics,
		locks:   newProjectLocks(),
	}
}

// Roster returns the stage roster the workflow runs on.
func (s *WorkflowService) Roster() *stage.Roster { return s.roster }

// Submit creates a new project at the initial stage.
func (s *WorkflowService) Submit(ctx context.Context, req project.SubmitRequest) (*project.Project, error) {
	if err := project.ValidateSubmitRequest(req); err != nil {
		return nil, err
	}

	first, err := s.roster.At(0)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &project.Project{
		ID:             uuid.NewString(),
		CompanyID:      middleware.CompanyIDFromContext(ctx),
		Name:           req.Name,
		SponsorID:      req.SponsorID,
		BudgetEstimate: req.BudgetEstimate,
		Description:    req.Description,
		StageIndex:     0,
		Stage:          first.Name,
		Status:         project.StatusInReview,
		Pass:           1,
		ParentID:       req.ParentID,
		Version:        1,
		Evidence:       map[string]string{},
		CreatedAt:      now,
		SubmittedAt:    now,
		UpdatedAt:      now,
	}

	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("submit project: %w", err)
	}

	s.publish(ctx, messagequeue.SubjectProjectSubmitted, messagequeue.StageChangedPayload{
		ProjectID: p.ID,
		CompanyID: p.CompanyID,
		ToStage:   p.Stage,
		Pass:      p.Pass,
	})

	slog.Info("project submitted", "project_id", p.ID, "sponsor", p.SponsorID)
	return p, nil
}

// Resubmit opens a new stage-pass after a request_adjustment or escalation,
// optionally resetting to an earlier stage. With NewVersion set it creates a
// child project chained to this one instead.
func (s *WorkflowService) Resubmit(ctx context.Context, id string, req project.ResubmitRequest) (*project.Project, error) {
	unlock := s.locks.acquire(id)
	defer unlock()

	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.NewVersion {
		// Parent-folio chaining: the old project (and its defense file, if
		// terminal) stays untouched.
		return s.Submit(ctx, project.SubmitRequest{
			Name:           p.Name,
			SponsorID:      p.SponsorID,
			BudgetEstimate: p.BudgetEstimate,
			Description:    firstNonEmpty(req.Description, p.Description),
			ParentID:       p.ID,
		})
	}

	if p.Status.Terminal() {
		return nil, fmt.Errorf("resubmit %s: project is terminal: %w", id, domain.ErrInvalidState)
	}
	if p.Status != project.StatusAwaitingResubmission && p.Status != project.StatusEscalated {
		return nil, fmt.Errorf("resubmit %s: nothing to resubmit: %w", id, domain.ErrInvalidState)
	}

	if req.ResetToStage != "" {
		target, err := s.roster.ByName(req.ResetToStage)
		if err != nil {
			return nil, err
		}
		// Stage index never decreases except through this explicit reset.
		if target.Index > p.StageIndex {
			return nil, fmt.Errorf("resubmit may only reset to an earlier stage: %w", domain.ErrValidation)
		}
		p.StageIndex = target.Index
		p.Stage = target.Name
	}

	p.Pass++
	p.Status = project.StatusInReview
	if req.Description != "" {
		p.Description = req.Description
	}

	if err := s.store.UpdateProject(ctx, p); err != nil {
		return nil, err
	}

	s.publish(ctx, messagequeue.SubjectProjectResubmitted, messagequeue.StageChangedPayload{
		ProjectID: p.ID,
		CompanyID: p.CompanyID,
		ToStage:   p.Stage,
		Pass:      p.Pass,
	})

	slog.Info("project resubmitted", "project_id", p.ID, "stage", p.Stage, "pass", p.Pass)
	return p, nil
}

// AttachEvidence merges named evidence items into the project. Evidence is
// the only input that can flip a failing gate.
func (s *WorkflowService) AttachEvidence(ctx context.Context, id string, items map[string]string) (*project.Project, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("no evidence items: %w", domain.ErrValidation)
	}

	unlock := s.locks.acquire(id)
	defer unlock()

	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status.Terminal() {
		return nil, fmt.Errorf("attach evidence to %s: project is terminal: %w", id, domain.ErrInvalidState)
	}

	if err := s.store.AttachEvidence(ctx, id, items); err != nil {
		return nil, err
	}
	return s.store.GetProject(ctx, id)
}

// Status is the workflow view returned to callers: the project, its derived
// score, and a speculative gate check for the current stage.
type Status struct {
	Project *project.Project `json:"project"`
	Stage   stage.Stage      `json:"stage"`
	Score   score.Result     `json:"score"`
	Gate    gate.Result      `json:"gate"`
}

// GetStatus returns the current workflow status for a project. The gate
// preview is side-effect-free and may be called speculatively.
func (s *WorkflowService) GetStatus(ctx context.Context, id string) (*Status, error) {
	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}

	st, err := s.roster.At(p.StageIndex)
	if err != nil {
		return nil, err
	}

	sc, err := s.scores.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	return &Status{
		Project: p,
		Stage:   st,
		Score:   sc,
		Gate:    s.gates.Evaluate(st, p),
	}, nil
}

// ListProjects returns the company's non-archived projects.
func (s *WorkflowService) ListProjects(ctx context.Context) ([]project.Project, error) {
	return s.store.ListProjects(ctx)
}

// Archive soft-archives a project. The ledger and defense files remain; the
// score memo is dropped because nothing will read it again before it expires.
func (s *WorkflowService) Archive(ctx context.Context, id string) error {
	unlock := s.locks.acquire(id)
	defer unlock()
	if err := s.store.ArchiveProject(ctx, id); err != nil {
		return err
	}
	s.scores.Invalidate(ctx, id)
	return nil
}

// publish sends a payload to the message queue, logging instead of failing:
// event delivery is not part of the mutation's correctness.
func (s *WorkflowService) publish(ctx context.Context, subject string, payload any) {
	if s.queue == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal queue payload", "subject", subject, "error", err)
		return
	}
	if err := s.queue.Publish(ctx, subject, data); err != nil {
		slog.Error("publish event", "subject", subject, "error", err)
	}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
