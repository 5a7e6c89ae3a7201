// Package database defines the port interface for persistent storage.
package database

import (
	"context"

	"github.com/revisant/dictum/internal/domain/defense"
	"github.com/revisant/dictum/internal/domain/project"
)

// Store is the port interface for project and defense file persistence.
// The deliberation ledger has its own port (ledger.Store) because it is
// append-only and consumed as the single source of truth by every
// aggregation.
type Store interface {
	// CreateProject persists a newly submitted project.
	CreateProject(ctx context.Context, p *project.Project) error

	// GetProject returns a project by id, scoped to the company in ctx.
	GetProject(ctx context.Context, id string) (*project.Project, error)

	// UpdateProject persists workflow-driven changes (stage, status, pass).
	// It uses optimistic locking on Version and returns domain.ErrConflict
	// semantics via domain.ErrConflictingState when the row moved.
	UpdateProject(ctx context.Context, p *project.Project) error

	// ListProjects returns the company's non-archived projects.
	ListProjects(ctx context.Context) ([]project.Project, error)

	// ArchiveProject soft-archives a project. Projects are never deleted.
	ArchiveProject(ctx context.Context, id string) error

	// AttachEvidence upserts named evidence items on a project.
	AttachEvidence(ctx context.Context, projectID string, items map[string]string) error

	// CreateDefenseFile persists a compiled defense file. Files are
	// write-once.
	CreateDefenseFile(ctx context.Context, f *defense.File) error

	// GetDefenseFile returns the latest defense file version for a project.
	GetDefenseFile(ctx context.Context, projectID string) (*defense.File, error)

	// ListDefenseFiles returns all defense file versions for a project,
	// oldest first.
	ListDefenseFiles(ctx context.Context, projectID string) ([]defense.File, error)
}
