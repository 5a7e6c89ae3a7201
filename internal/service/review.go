package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	dotel "github.com/revisant/dictum/internal/adapter/otel"
	"github.com/revisant/dictum/internal/domain"
	"github.com/revisant/dictum/internal/domain/deliberation"
	"github.com/revisant/dictum/internal/domain/project"
	"github.com/revisant/dictum/internal/port/collaborator"
	"github.com/revisant/dictum/internal/port/docgen"
)

// ReviewService drives stage reviews through the external collaborator
// panel. It shares the workflow's per-project locks, so an in-flight review
// blocks any competing verdict for the same project until it resolves.
type ReviewService struct {
	workflow *WorkflowService
	panel    collaborator.Invoker
	docs     docgen.Generator
	sem      *semaphore.Weighted
}

// NewReviewService creates a ReviewService. docs may be nil; deliberations
// are then recorded without generated document references.
func NewReviewService(workflow *WorkflowService, panel collaborator.Invoker, docs docgen.Generator, maxConcurrent int) *ReviewService {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &ReviewService{
		workflow: workflow,
		panel:    panel,
		docs:     docs,
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// ReviewStage invokes the owning agent for the project's current stage and
// records the verdict. The project lock is held across the invocation: a
// stage has at most one pending verdict at a time. A collaborator timeout is
// recorded as an abstain escalation, never a silent approval.
func (s *ReviewService) ReviewStage(ctx context.Context, projectID string) (*RecordResult, error) {
	unlock := s.workflow.locks.acquire(projectID)
	defer unlock()

	p, st, err := s.workflow.loadForVerdict(ctx, projectID)
	if err != nil {
		return nil, err
	}

	ctx, span := dotel.StartStageReviewSpan(ctx, p.ID, st.Name, st.AgentID)
	defer span.End()

	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquire review slot: %w", err)
	}
	defer s.sem.Release(1)

	v, err := s.invoke(ctx, st.AgentID, p.Snapshot())
	if err != nil {
		if !errors.Is(err, domain.ErrCollaboratorTimeout) {
			return nil, fmt.Errorf("invoke agent %s: %w", st.AgentID, err)
		}
		slog.Warn("collaborator timed out, recording abstain escalation",
			"project_id", p.ID, "stage", st.Name, "agent_id", st.AgentID)
		v = &collaborator.Verdict{
			Decision: deliberation.DecisionAbstain,
			Analysis: fmt.Sprintf("agent %s did not respond within the review deadline", st.AgentID),
		}
	}

	d := &deliberation.Deliberation{
		ID:           uuid.NewString(),
		ProjectID:    p.ID,
		CompanyID:    p.CompanyID,
		AgentID:      st.AgentID,
		Stage:        st.Name,
		StageIndex:   st.Index,
		Pass:         p.Pass,
		Decision:     v.Decision,
		Analysis:     v.Analysis,
		Risk:         v.Risk,
		Adjustments:  v.Adjustments,
		DocumentRefs: v.DocumentRefs,
		CreatedAt:    time.Now().UTC(),
	}

	if s.docs != nil && len(d.DocumentRefs) == 0 {
		refs, err := s.docs.Generate(ctx, d)
		if err != nil {
			// Best-effort: the verdict is recorded without the reference.
			slog.Warn("generate documents", "project_id", p.ID, "stage", st.Name, "error", err)
		} else {
			d.DocumentRefs = refs
		}
	}

	return s.workflow.recordLocked(ctx, p, st, d)
}

// invoke calls the panel under its own span so collaborator latency shows up
// separately from the surrounding stage review.
func (s *ReviewService) invoke(ctx context.Context, agentID string, snap project.Snapshot) (*collaborator.Verdict, error) {
	ctx, span := dotel.StartCollaboratorSpan(ctx, agentID)
	defer span.End()
	return s.panel.Invoke(ctx, agentID, snap)
}
