package service

import (
	"context"

	"github.com/revisant/dictum/internal/domain/deliberation"
	"github.com/revisant/dictum/internal/middleware"
	"github.com/revisant/dictum/internal/port/ledger"
)

// DeliberationService exposes read access to the append-only ledger.
type DeliberationService struct {
	ledger ledger.Store
}

// NewDeliberationService creates a DeliberationService.
func NewDeliberationService(ledgerStore ledger.Store) *DeliberationService {
	return &DeliberationService{ledger: ledgerStore}
}

// ListForProject returns a project's full ledger, oldest first.
func (s *DeliberationService) ListForProject(ctx context.Context, projectID string) ([]deliberation.Deliberation, error) {
	return s.ledger.ListByProject(ctx, projectID)
}

// Incidences returns every non-approve deliberation across the company's
// projects, most recent first. This is the auditor's cross-project worklist.
func (s *DeliberationService) Incidences(ctx context.Context) ([]deliberation.Deliberation, error) {
	return s.ledger.ListIncidences(ctx, middleware.CompanyIDFromContext(ctx))
}
