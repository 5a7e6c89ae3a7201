package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/revisant/dictum/internal/adapter/ws"
	"github.com/revisant/dictum/internal/port/broadcast"
	"github.com/revisant/dictum/internal/port/messagequeue"
)

// EventRelay fans review events from the message queue out to connected
// WebSocket clients. Keeping the hub behind the queue means every instance
// forwards events produced by its peers, not only its own.
type EventRelay struct {
	queue messagequeue.Queue
	hub   broadcast.Broadcaster
}

// NewEventRelay creates an EventRelay between the queue and the hub.
func NewEventRelay(queue messagequeue.Queue, hub broadcast.Broadcaster) *EventRelay {
	return &EventRelay{queue: queue, hub: hub}
}

// Start subscribes to every review subject. The returned function cancels
// the subscription.
func (r *EventRelay) Start(ctx context.Context) (func(), error) {
	return r.queue.Subscribe(ctx, "reviews.>", r.handle)
}

// handle translates one queue message into its client-facing event. An
// unmarshal failure is returned so the queue redelivers the message.
func (r *EventRelay) handle(ctx context.Context, subject string, data []byte) error {
	switch subject {
	case messagequeue.SubjectStageChanged:
		var p messagequeue.StageChangedPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("relay %s: %w", subject, err)
		}
		r.hub.BroadcastEvent(ctx, ws.EventStageChanged, ws.StageChangedEvent{
			ProjectID: p.ProjectID,
			CompanyID: p.CompanyID,
			FromStage: p.FromStage,
			ToStage:   p.ToStage,
			Pass:      p.Pass,
		})

	case messagequeue.SubjectDeliberationAdded:
		var p messagequeue.DeliberationPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("relay %s: %w", subject, err)
		}
		r.hub.BroadcastEvent(ctx, ws.EventDeliberation, ws.DeliberationEvent{
			ProjectID: p.ProjectID,
			CompanyID: p.CompanyID,
			AgentID:   p.AgentID,
			Stage:     p.Stage,
			Decision:  p.Decision,
			Score:     p.Score,
		})

	case messagequeue.SubjectEscalationRaised:
		var p messagequeue.DeliberationPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("relay %s: %w", subject, err)
		}
		r.hub.BroadcastEvent(ctx, ws.EventEscalation, ws.EscalationEvent{
			ProjectID: p.ProjectID,
			CompanyID: p.CompanyID,
			Stage:     p.Stage,
			AgentID:   p.AgentID,
			Reason:    p.Decision,
		})

	case messagequeue.SubjectProjectApproved, messagequeue.SubjectProjectRejected:
		var p messagequeue.TerminalPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("relay %s: %w", subject, err)
		}
		r.hub.BroadcastEvent(ctx, ws.EventTerminal, ws.TerminalEvent{
			ProjectID:     p.ProjectID,
			CompanyID:     p.CompanyID,
			FinalDecision: p.FinalDecision,
			Score:         p.Score,
		})

	default:
		// Submission and defense-compiled subjects have no client-facing
		// event; ack and move on.
	}
	return nil
}
