// Package ledger defines the port interface for the append-only
// deliberation store.
package ledger

import (
	"context"

	"github.com/revisant/dictum/internal/domain/deliberation"
	"github.com/revisant/dictum/internal/domain/project"
)

// Store is the single source of truth for recorded verdicts. There is no
// update or delete: corrections happen by appending a superseding
// deliberation tied to a new stage-pass.
type Store interface {
	// Append persists a new deliberation together with the project state it
	// produces, in a single unit of work: either both land or neither does,
	// so a half-applied verdict can never strand a project. It fails with
	// domain.ErrConflictingState when an unresolved deliberation already
	// exists for the same (project, stage, agent) pass, and returns the
	// deliberation id on success.
	Append(ctx context.Context, d *deliberation.Deliberation, p *project.Project) (string, error)

	// ListByProject returns the full ledger for a project ordered by
	// timestamp ascending.
	ListByProject(ctx context.Context, projectID string) ([]deliberation.Deliberation, error)

	// CountByProject returns the ledger length for a project. Used to key
	// the score memo cache.
	CountByProject(ctx context.Context, projectID string) (int, error)

	// ListIncidences returns all non-approve deliberations across the
	// company's projects, ordered by timestamp descending.
	ListIncidences(ctx context.Context, companyID string) ([]deliberation.Deliberation, error)
}
