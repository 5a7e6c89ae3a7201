// Package project defines the Project domain entity under compliance review.
package project

import "time"

// Status represents the lifecycle state of a project in the review workflow.
type Status string

const (
	StatusInReview             Status = "in_review"
	StatusAwaitingResubmission Status = "awaiting_resubmission"
	StatusEscalated            Status = "escalated"
	StatusApproved             Status = "approved"
	StatusRejected             Status = "rejected"
)

// Terminal reports whether the status admits no further stage advancement.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Project represents a business project routed through the multi-stage
// compliance review. Only the workflow service mutates it; projects are
// never deleted, only soft-archived.
type Project struct {
	ID             string     `json:"id"`
	CompanyID      string     `json:"company_id"`
	Name           string     `json:"name"`
	SponsorID      string     `json:"sponsor_id"`
	BudgetEstimate float64    `json:"budget_estimate"`
	Description    string     `json:"description"`
	StageIndex     int        `json:"stage_index"`
	Stage          string     `json:"stage"`
	Status         Status     `json:"status"`
	// Pass counts stage-passes opened for the current stage. It starts at 1
	// and increments on each resubmission.
	Pass     int               `json:"pass"`
	ParentID string            `json:"parent_id,omitempty"`
	Version  int               `json:"version"`
	Evidence map[string]string `json:"evidence,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	SubmittedAt time.Time  `json:"submitted_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ArchivedAt  *time.Time `json:"archived_at,omitempty"`
}

// SubmitRequest holds the fields needed to submit a new project for review.
type SubmitRequest struct {
	Name           string  `json:"name"`
	SponsorID      string  `json:"sponsor_id"`
	BudgetEstimate float64 `json:"budget_estimate"`
	Description    string  `json:"description"`
	// ParentID links a resubmitted project version to its predecessor
	// (parent-folio chaining).
	ParentID string `json:"parent_id,omitempty"`
}

// ResubmitRequest reopens review after a request_adjustment verdict.
type ResubmitRequest struct {
	// ResetToStage optionally moves the project back to an earlier stage by
	// name. Empty keeps the current stage.
	ResetToStage string `json:"reset_to_stage,omitempty"`
	// NewVersion creates a child project chained to this one instead of
	// reopening the current pass.
	NewVersion  bool   `json:"new_version,omitempty"`
	Description string `json:"description,omitempty"`
}

// Snapshot returns the read-only view of the project handed to external
// reviewer agents.
func (p *Project) Snapshot() Snapshot {
	return Snapshot{
		ProjectID:      p.ID,
		Name:           p.Name,
		Description:    p.Description,
		BudgetEstimate: p.BudgetEstimate,
		Stage:          p.Stage,
		Pass:           p.Pass,
		Evidence:       p.Evidence,
	}
}

// Snapshot is the read-only view handed to external reviewer agents.
type Snapshot struct {
	ProjectID      string            `json:"project_id"`
	Name           string            `json:"name"`
	Description    string            `json:"description"`
	BudgetEstimate float64           `json:"budget_estimate"`
	Stage          string            `json:"stage"`
	Pass           int               `json:"pass"`
	Evidence       map[string]string `json:"evidence,omitempty"`
}
