// Package deliberation defines the immutable verdict record appended by
// reviewer agents and the closed decision enumeration.
package deliberation

import (
	"fmt"
	"strings"
	"time"
)

// Decision is the closed set of verdicts an agent may return.
type Decision string

const (
	DecisionApprove           Decision = "approve"
	DecisionReject            Decision = "reject"
	DecisionRequestAdjustment Decision = "request_adjustment"
	DecisionAbstain           Decision = "abstain"
)

// ParseDecision normalizes a loosely-typed decision string into the closed
// enumeration. Upstream collaborators emit variants like "approved" or
// "request-adjustment"; raw strings never cross this boundary.
func ParseDecision(s string) (Decision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "approve", "approved", "aprobar", "aprobado":
		return DecisionApprove, nil
	case "reject", "rejected", "rechazar", "rechazado":
		return DecisionReject, nil
	case "request_adjustment", "request-adjustment", "adjust", "adjustment", "ajuste":
		return DecisionRequestAdjustment, nil
	case "abstain", "abstained", "abstencion", "abstención":
		return DecisionAbstain, nil
	default:
		return "", fmt.Errorf("unrecognized decision %q", s)
	}
}

// Valid reports whether d is a member of the closed enumeration.
func (d Decision) Valid() bool {
	switch d {
	case DecisionApprove, DecisionReject, DecisionRequestAdjustment, DecisionAbstain:
		return true
	}
	return false
}

// Deliberation is one agent's recorded verdict for one stage-pass of a
// project. Records are append-only: corrections happen by appending a new,
// superseding deliberation on a later pass, never by mutation.
type Deliberation struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	CompanyID    string    `json:"company_id"`
	AgentID      string    `json:"agent_id"`
	Stage        string    `json:"stage"`
	StageIndex   int       `json:"stage_index"`
	Pass         int       `json:"pass"`
	Decision     Decision  `json:"decision"`
	Analysis     string    `json:"analysis"`
	Risk         string    `json:"risk,omitempty"`
	Adjustments  string    `json:"adjustments,omitempty"`
	DocumentRefs []string  `json:"document_refs,omitempty"`
	Escalated    bool      `json:"escalated,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Key identifies the (agent, stage) slot a deliberation occupies for
// aggregation purposes.
func (d *Deliberation) Key() string {
	return d.AgentID + "/" + d.Stage
}

// Blocking reports whether this verdict prevents stage advancement.
func (d *Deliberation) Blocking() bool {
	return d.Decision != DecisionApprove
}
