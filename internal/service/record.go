package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/revisant/dictum/internal/domain"
	"github.com/revisant/dictum/internal/domain/deliberation"
	"github.com/revisant/dictum/internal/domain/gate"
	"github.com/revisant/dictum/internal/domain/project"
	"github.com/revisant/dictum/internal/domain/score"
	"github.com/revisant/dictum/internal/domain/stage"
	"github.com/revisant/dictum/internal/port/messagequeue"
)

// RecordRequest carries an agent's verdict for the project's current stage.
// Decision is a loose string normalized at this boundary.
type RecordRequest struct {
	AgentID      string   `json:"agent_id"`
	Decision     string   `json:"decision"`
	Analysis     string   `json:"analysis"`
	Risk         string   `json:"risk,omitempty"`
	Adjustments  string   `json:"adjustments,omitempty"`
	DocumentRefs []string `json:"document_refs,omitempty"`
}

// RecordResult is the outcome of recording a verdict. When an approve hits
// an unsatisfied gate the deliberation is still recorded, Gate carries the
// missing predicate names, and the accompanying error is a *domain.GateError.
type RecordResult struct {
	Deliberation *deliberation.Deliberation `json:"deliberation"`
	Project      *project.Project           `json:"project"`
	Score        score.Result               `json:"score"`
	Advanced     bool                       `json:"advanced"`
	Terminal     bool                       `json:"terminal"`
	Gate         *gate.Result               `json:"gate,omitempty"`
}

// RecordDeliberation appends a verdict for the project's current stage and
// applies the state machine transition. The whole operation runs under the
// per-project lock.
func (s *WorkflowService) RecordDeliberation(ctx context.Context, projectID string, req RecordRequest) (*RecordResult, error) {
	decision, err := deliberation.ParseDecision(req.Decision)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err, domain.ErrValidation)
	}

	unlock := s.locks.acquire(projectID)
	defer unlock()

	p, st, err := s.loadForVerdict(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if req.AgentID != st.AgentID {
		return nil, fmt.Errorf("agent %q does not own stage %q: %w", req.AgentID, st.Name, domain.ErrValidation)
	}

	d := &deliberation.Deliberation{
		ID:           uuid.NewString(),
		ProjectID:    p.ID,
		CompanyID:    p.CompanyID,
		AgentID:      req.AgentID,
		Stage:        st.Name,
		StageIndex:   st.Index,
		Pass:         p.Pass,
		Decision:     decision,
		Analysis:     req.Analysis,
		Risk:         req.Risk,
		Adjustments:  req.Adjustments,
		DocumentRefs: req.DocumentRefs,
		CreatedAt:    time.Now().UTC(),
	}

	return s.recordLocked(ctx, p, st, d)
}

// loadForVerdict fetches the project and its current stage, rejecting
// verdicts that cannot legally arrive in the project's state.
func (s *WorkflowService) loadForVerdict(ctx context.Context, projectID string) (*project.Project, stage.Stage, error) {
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, stage.Stage{}, err
	}
	if p.Status.Terminal() {
		return nil, stage.Stage{}, fmt.Errorf("project %s is terminal: %w", projectID, domain.ErrInvalidState)
	}
	// No silent progression: an open adjustment or escalation must be
	// resolved by resubmission before the stage is re-evaluated.
	if p.Status == project.StatusAwaitingResubmission || p.Status == project.StatusEscalated {
		return nil, stage.Stage{}, fmt.Errorf("project %s awaits resubmission: %w", projectID, domain.ErrConflictingState)
	}

	st, err := s.roster.At(p.StageIndex)
	if err != nil {
		return nil, stage.Stage{}, err
	}
	return p, st, nil
}

// recordLocked applies the state machine transition and persists the verdict
// together with the resulting project state in one unit of work. The caller
// must hold the project lock. If the write fails, nothing is durable and the
// caller may simply retry the verdict.
func (s *WorkflowService) recordLocked(ctx context.Context, p *project.Project, st stage.Stage, d *deliberation.Deliberation) (*RecordResult, error) {
	// Decide the transition before the write so escalation flags land on
	// the stored record.
	decide := st.Capability != stage.CapabilityAdvise

	var gateRes *gate.Result
	switch d.Decision {
	case deliberation.DecisionAbstain:
		d.Escalated = true
	case deliberation.DecisionReject:
		// Advisory rejections escalate instead of terminating: only a
		// deciding agent can kill a project.
		if !decide {
			d.Escalated = true
		}
	case deliberation.DecisionApprove:
		if st.IsGate {
			r := s.gates.Evaluate(st, p)
			gateRes = &r
		}
	}

	res := &RecordResult{Deliberation: d, Project: p, Gate: gateRes}
	stageEnteredAt := p.UpdatedAt

	var gateErr error
	switch {
	case d.Decision == deliberation.DecisionReject && decide:
		// Rejection at any stage is final and short-circuits the rest.
		p.Status = project.StatusRejected
		res.Terminal = true

	case d.Decision == deliberation.DecisionReject, d.Decision == deliberation.DecisionAbstain:
		p.Status = project.StatusEscalated

	case d.Decision == deliberation.DecisionRequestAdjustment:
		p.Status = project.StatusAwaitingResubmission

	case gateRes != nil && !gateRes.OK:
		// The verdict stands in the ledger but the transition is refused.
		// The failed attempt closes this stage-pass.
		p.Pass++
		gateErr = &domain.GateError{Stage: st.Name, Missing: gateRes.Missing}

	case s.roster.IsFinal(p.StageIndex):
		p.Status = project.StatusApproved
		res.Terminal = true
		res.Advanced = true

	default:
		next, err := s.roster.At(p.StageIndex + 1)
		if err != nil {
			return nil, err
		}
		p.StageIndex = next.Index
		p.Stage = next.Name
		p.Pass = 1
		p.Status = project.StatusInReview
		res.Advanced = true
	}

	// Single durable write: the deliberation and the project transition
	// commit or roll back together.
	if _, err := s.ledger.Append(ctx, d, p); err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.DeliberationsRecorded.Add(ctx, 1)
		if gateErr != nil {
			s.metrics.GateFailures.Add(ctx, 1)
		}
	}

	sc, err := s.scores.Get(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	res.Score = sc

	s.afterRecord(ctx, p, st, d, res, stageEnteredAt)

	if gateErr != nil {
		return res, gateErr
	}
	return res, nil
}

// afterRecord emits events and metrics for a recorded verdict. Everything
// goes through the queue; the WebSocket fan-out subscribes there, so every
// instance sees its peers' events. Delivery is best-effort and never affects
// the mutation's outcome.
func (s *WorkflowService) afterRecord(ctx context.Context, p *project.Project, st stage.Stage, d *deliberation.Deliberation, res *RecordResult, stageEnteredAt time.Time) {
	s.publish(ctx, messagequeue.SubjectDeliberationAdded, messagequeue.DeliberationPayload{
		DeliberationID: d.ID,
		ProjectID:      p.ID,
		CompanyID:      p.CompanyID,
		AgentID:        d.AgentID,
		Stage:          st.Name,
		Decision:       string(d.Decision),
		Escalated:      d.Escalated,
		Score:          res.Score.Score,
	})

	if d.Escalated {
		if s.metrics != nil {
			s.metrics.Escalations.Add(ctx, 1)
		}
		s.publish(ctx, messagequeue.SubjectEscalationRaised, messagequeue.DeliberationPayload{
			DeliberationID: d.ID,
			ProjectID:      p.ID,
			CompanyID:      p.CompanyID,
			AgentID:        d.AgentID,
			Stage:          st.Name,
			Decision:       string(d.Decision),
			Escalated:      true,
		})
	}

	if res.Advanced && !res.Terminal {
		if s.metrics != nil {
			s.metrics.StageDuration.Record(ctx, time.Since(stageEnteredAt).Seconds())
		}
		s.publish(ctx, messagequeue.SubjectStageChanged, messagequeue.StageChangedPayload{
			ProjectID: p.ID,
			CompanyID: p.CompanyID,
			FromStage: st.Name,
			ToStage:   p.Stage,
			Pass:      p.Pass,
		})
	}

	if res.Terminal {
		s.finalize(ctx, p, res)
	}
}

// finalize compiles the defense file and emits terminal events once a
// project reaches APPROVED or REJECTED.
func (s *WorkflowService) finalize(ctx context.Context, p *project.Project, res *RecordResult) {
	f, err := s.defense.Compile(ctx, p)
	if err != nil {
		// The terminal transition is already durable; compilation can be
		// retried through the defense service.
		slog.Error("compile defense file", "project_id", p.ID, "error", err)
	}

	final := deliberation.DecisionReject
	subject := messagequeue.SubjectProjectRejected
	if p.Status == project.StatusApproved {
		final = deliberation.DecisionApprove
		subject = messagequeue.SubjectProjectApproved
		if s.metrics != nil {
			s.metrics.ProjectsApproved.Add(ctx, 1)
		}
	} else if s.metrics != nil {
		s.metrics.ProjectsRejected.Add(ctx, 1)
	}

	payload := messagequeue.TerminalPayload{
		ProjectID:     p.ID,
		CompanyID:     p.CompanyID,
		FinalDecision: string(final),
		Score:         res.Score.Score,
	}
	if f != nil {
		payload.DefenseFileID = f.ID
		s.publish(ctx, messagequeue.SubjectDefenseFileCompiled, payload)
	}
	s.publish(ctx, subject, payload)

	slog.Info("project reached terminal state",
		"project_id", p.ID, "status", p.Status, "score", res.Score.Score)
}
