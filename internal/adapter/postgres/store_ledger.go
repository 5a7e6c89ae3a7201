package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/revisant/dictum/internal/domain"
	"github.com/revisant/dictum/internal/domain/deliberation"
	"github.com/revisant/dictum/internal/domain/project"
)

// LedgerStore implements ledger.Store using PostgreSQL (append-only).
type LedgerStore struct {
	pool *pgxpool.Pool
}

// NewLedgerStore creates a new LedgerStore backed by the given connection pool.
func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{pool: pool}
}

const deliberationColumns = `id, project_id, company_id, agent_id, stage, stage_index, pass,
	decision, analysis, risk, adjustments, document_refs, escalated, created_at`

// scanDeliberation scans a row into a Deliberation.
func scanDeliberation(scanner interface{ Scan(dest ...any) error }, d *deliberation.Deliberation) error {
	return scanner.Scan(
		&d.ID, &d.ProjectID, &d.CompanyID, &d.AgentID, &d.Stage, &d.StageIndex, &d.Pass,
		&d.Decision, &d.Analysis, &d.Risk, &d.Adjustments, &d.DocumentRefs, &d.Escalated, &d.CreatedAt,
	)
}

// Append inserts a new deliberation and the project state it produces in one
// transaction. The unique index on (project_id, stage, agent_id, pass)
// rejects a second verdict for the same stage-pass, which surfaces as a
// conflicting-state error; any failure rolls both writes back, so the ledger
// and the project row never disagree.
func (s *LedgerStore) Append(ctx context.Context, d *deliberation.Deliberation, p *project.Project) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("append deliberation: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx,
		`INSERT INTO deliberations (id, project_id, company_id, agent_id, stage, stage_index, pass,
		   decision, analysis, risk, adjustments, document_refs, escalated, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		d.ID, d.ProjectID, d.CompanyID, d.AgentID, d.Stage, d.StageIndex, d.Pass,
		string(d.Decision), d.Analysis, d.Risk, d.Adjustments, pgTextArray(d.DocumentRefs),
		d.Escalated, d.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", fmt.Errorf("append deliberation for %s/%s: %w", d.ProjectID, d.Stage, domain.ErrConflictingState)
		}
		return "", fmt.Errorf("append deliberation: %w", err)
	}

	if err := updateProjectRow(ctx, tx, p, companyFromCtx(ctx)); err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("append deliberation: commit: %w", err)
	}
	p.Version++
	return d.ID, nil
}

// ListByProject returns the full ledger for a project ordered by timestamp
// ascending. The id tiebreak keeps the order total when timestamps collide.
func (s *LedgerStore) ListByProject(ctx context.Context, projectID string) ([]deliberation.Deliberation, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM deliberations WHERE project_id = $1 AND company_id = $2
		 ORDER BY created_at ASC, id ASC`, deliberationColumns),
		projectID, companyFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list deliberations for %s: %w", projectID, err)
	}
	defer rows.Close()

	var out []deliberation.Deliberation
	for rows.Next() {
		var d deliberation.Deliberation
		if err := scanDeliberation(rows, &d); err != nil {
			return nil, fmt.Errorf("scan deliberation: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountByProject returns the ledger length for a project.
func (s *LedgerStore) CountByProject(ctx context.Context, projectID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM deliberations WHERE project_id = $1 AND company_id = $2`,
		projectID, companyFromCtx(ctx)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count deliberations for %s: %w", projectID, err)
	}
	return n, nil
}

// ListIncidences returns all non-approve deliberations across the company's
// projects, newest first.
func (s *LedgerStore) ListIncidences(ctx context.Context, companyID string) ([]deliberation.Deliberation, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM deliberations WHERE company_id = $1 AND decision <> $2
		 ORDER BY created_at DESC, id DESC`, deliberationColumns),
		companyID, string(deliberation.DecisionApprove))
	if err != nil {
		return nil, fmt.Errorf("list incidences: %w", err)
	}
	defer rows.Close()

	var out []deliberation.Deliberation
	for rows.Next() {
		var d deliberation.Deliberation
		if err := scanDeliberation(rows, &d); err != nil {
			return nil, fmt.Errorf("scan incidence: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
