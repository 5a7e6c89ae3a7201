package ws

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Event type constants for WebSocket messages.
const (
	EventStageChanged = "project.stage"
	EventDeliberation = "project.deliberation"
	EventEscalation   = "project.escalation"
	EventTerminal     = "project.terminal"
)

// scoped is implemented by event payloads that carry a delivery scope. The
// hub uses it to route each event to matching subscribers only.
type scoped interface {
	scope() (companyID, projectID string)
}

// StageChangedEvent is broadcast when a project advances to a new stage.
type StageChangedEvent struct {
	ProjectID string `json:"project_id"`
	CompanyID string `json:"company_id"`
	FromStage string `json:"from_stage"`
	ToStage   string `json:"to_stage"`
	Pass      int    `json:"pass"`
}

func (e StageChangedEvent) scope() (string, string) { return e.CompanyID, e.ProjectID }

// DeliberationEvent is broadcast when an agent's verdict is recorded.
type DeliberationEvent struct {
	ProjectID string `json:"project_id"`
	CompanyID string `json:"company_id"`
	AgentID   string `json:"agent_id"`
	Stage     string `json:"stage"`
	Decision  string `json:"decision"`
	Score     int    `json:"score"`
}

func (e DeliberationEvent) scope() (string, string) { return e.CompanyID, e.ProjectID }

// EscalationEvent is broadcast when a stage is flagged for human review.
type EscalationEvent struct {
	ProjectID string `json:"project_id"`
	CompanyID string `json:"company_id"`
	Stage     string `json:"stage"`
	AgentID   string `json:"agent_id"`
	Reason    string `json:"reason"`
}

func (e EscalationEvent) scope() (string, string) { return e.CompanyID, e.ProjectID }

// TerminalEvent is broadcast when a project reaches APPROVED or REJECTED.
type TerminalEvent struct {
	ProjectID     string `json:"project_id"`
	CompanyID     string `json:"company_id"`
	FinalDecision string `json:"final_decision"`
	Score         int    `json:"score"`
}

func (e TerminalEvent) scope() (string, string) { return e.CompanyID, e.ProjectID }

// BroadcastEvent marshals a typed event and routes it to the subscribers
// whose scope matches the payload's company and project.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	var companyID, projectID string
	if sc, ok := payload.(scoped); ok {
		companyID, projectID = sc.scope()
	}

	h.send(ctx, companyID, projectID, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
