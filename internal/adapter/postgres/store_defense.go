package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/revisant/dictum/internal/domain"
	"github.com/revisant/dictum/internal/domain/defense"
	"github.com/revisant/dictum/internal/domain/deliberation"
)

// CreateDefenseFile persists a compiled defense file. The unique constraint
// on (project_id, version) makes the write idempotent per version: a
// concurrent duplicate surfaces as a conflicting-state error.
func (s *Store) CreateDefenseFile(ctx context.Context, f *defense.File) error {
	history, err := json.Marshal(f.Deliberations)
	if err != nil {
		return fmt.Errorf("marshal defense history: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO defense_files (id, project_id, company_id, version, final_decision, score,
		   has_pending_adjustments, adjusting_agents, deliberations, document_refs, compiled_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		f.ID, f.ProjectID, f.CompanyID, f.Version, string(f.FinalDecision), f.Score.Score,
		f.Score.HasPendingAdjustments, pgTextArray(f.Score.AdjustingAgents), history,
		pgTextArray(f.DocumentRefs), f.CompiledAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("defense file v%d for %s: %w", f.Version, f.ProjectID, domain.ErrConflictingState)
		}
		return fmt.Errorf("create defense file: %w", err)
	}
	return nil
}

const defenseColumns = `id, project_id, company_id, version, final_decision, score,
	has_pending_adjustments, adjusting_agents, deliberations, document_refs, compiled_at`

// scanDefenseFile scans a row into a defense.File, unmarshalling the
// snapshotted deliberation history.
func scanDefenseFile(scanner interface{ Scan(dest ...any) error }) (defense.File, error) {
	var f defense.File
	var history []byte
	err := scanner.Scan(
		&f.ID, &f.ProjectID, &f.CompanyID, &f.Version, &f.FinalDecision, &f.Score.Score,
		&f.Score.HasPendingAdjustments, &f.Score.AdjustingAgents, &history, &f.DocumentRefs, &f.CompiledAt,
	)
	if err != nil {
		return f, err
	}
	if err := json.Unmarshal(history, &f.Deliberations); err != nil {
		return f, fmt.Errorf("unmarshal defense history: %w", err)
	}
	if f.Deliberations == nil {
		f.Deliberations = []deliberation.Deliberation{}
	}
	return f, nil
}

// GetDefenseFile returns the latest defense file version for a project.
func (s *Store) GetDefenseFile(ctx context.Context, projectID string) (*defense.File, error) {
	row := s.pool.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM defense_files WHERE project_id = $1 AND company_id = $2
		 ORDER BY version DESC LIMIT 1`, defenseColumns),
		projectID, companyFromCtx(ctx))
	f, err := scanDefenseFile(row)
	if err != nil {
		return nil, notFoundWrap(err, "get defense file for %s", projectID)
	}
	return &f, nil
}

// ListDefenseFiles returns all defense file versions for a project, oldest first.
func (s *Store) ListDefenseFiles(ctx context.Context, projectID string) ([]defense.File, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT %s FROM defense_files WHERE project_id = $1 AND company_id = $2
		 ORDER BY version ASC`, defenseColumns),
		projectID, companyFromCtx(ctx))
	if err != nil {
		return nil, fmt.Errorf("list defense files for %s: %w", projectID, err)
	}
	defer rows.Close()

	var out []defense.File
	for rows.Next() {
		f, err := scanDefenseFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan defense file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
