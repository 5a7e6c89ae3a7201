package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/revisant/dictum/internal/domain"
	"github.com/revisant/dictum/internal/domain/project"
)

// Store implements database.Store using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const projectColumns = `id, company_id, name, sponsor_id, budget_estimate, description,
	stage_index, stage, status, pass, COALESCE(parent_id::text, ''), version, evidence,
	created_at, submitted_at, updated_at, archived_at`

// scanProject scans a row into a Project.
func scanProject(scanner interface{ Scan(dest ...any) error }) (project.Project, error) {
	var p project.Project
	err := scanner.Scan(
		&p.ID, &p.CompanyID, &p.Name, &p.SponsorID, &p.BudgetEstimate, &p.Description,
		&p.StageIndex, &p.Stage, &p.Status, &p.Pass, &p.ParentID, &p.Version, &p.Evidence,
		&p.CreatedAt, &p.SubmittedAt, &p.UpdatedAt, &p.ArchivedAt,
	)
	return p, err
}

// CreateProject persists a newly submitted project.
func (s *Store) CreateProject(ctx context.Context, p *project.Project) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO projects (id, company_id, name, sponsor_id, budget_estimate, description,
		   stage_index, stage, status, pass, parent_id, version, evidence, created_at, submitted_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		p.ID, p.CompanyID, p.Name, p.SponsorID, p.BudgetEstimate, p.Description,
		p.StageIndex, p.Stage, string(p.Status), p.Pass, nullIfEmpty(p.ParentID),
		p.Version, p.Evidence, p.CreatedAt, p.SubmittedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

// GetProject returns a project by id, scoped to the company in ctx.
func (s *Store) GetProject(ctx context.Context, id string) (*project.Project, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM projects WHERE id = $1 AND company_id = $2`, projectColumns),
		id, companyFromCtx(ctx))
	p, err := scanProject(row)
	if err != nil {
		return nil, notFoundWrap(err, "get project %s", id)
	}
	return &p, nil
}

// UpdateProject persists workflow-driven changes using optimistic locking on
// the version column. A stale version surfaces as a conflicting-state error
// because it means another verdict advanced the project first.
func (s *Store) UpdateProject(ctx context.Context, p *project.Project) error {
	if err := updateProjectRow(ctx, s.pool, p, companyFromCtx(ctx)); err != nil {
		return err
	}
	p.Version++
	return nil
}

// updateProjectRow runs the optimistic-locked project update against db,
// which is either the pool or an open transaction. It does not bump
// p.Version; callers do that once the write is committed.
func updateProjectRow(ctx context.Context, db execer, p *project.Project, companyID string) error {
	tag, err := db.Exec(ctx,
		`UPDATE projects SET stage_index=$2, stage=$3, status=$4, pass=$5, description=$6,
		   evidence=$7, version=version+1, updated_at=$8
		 WHERE id=$1 AND company_id=$9 AND version=$10 AND archived_at IS NULL`,
		p.ID, p.StageIndex, p.Stage, string(p.Status), p.Pass, p.Description,
		p.Evidence, time.Now().UTC(), companyID, p.Version,
	)
	if err != nil {
		return fmt.Errorf("update project %s: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update project %s: %w", p.ID, domain.ErrConflictingState)
	}
	return nil
}

// ListProjects returns the company's non-archived projects.
func (s *Store) ListProjects(ctx context.Context) ([]project.Project, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM projects WHERE company_id = $1 AND archived_at IS NULL
		 ORDER BY created_at DESC`, projectColumns),
		companyFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	var projects []project.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// ArchiveProject soft-archives a project. Projects are never deleted.
func (s *Store) ArchiveProject(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE projects SET archived_at = now() WHERE id = $1 AND company_id = $2 AND archived_at IS NULL`,
		id, companyFromCtx(ctx))
	if err != nil {
		return fmt.Errorf("archive project %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("archive project %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// AttachEvidence merges named evidence items into the project's evidence map.
func (s *Store) AttachEvidence(ctx context.Context, projectID string, items map[string]string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE projects SET evidence = evidence || $2::jsonb, updated_at = now()
		 WHERE id = $1 AND company_id = $3 AND archived_at IS NULL`,
		projectID, items, companyFromCtx(ctx))
	if err != nil {
		return fmt.Errorf("attach evidence to %s: %w", projectID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("attach evidence to %s: %w", projectID, domain.ErrNotFound)
	}
	return nil
}
