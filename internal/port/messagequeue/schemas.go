package messagequeue

// StageChangedPayload is the schema for reviews.stage.changed messages.
type StageChangedPayload struct {
	ProjectID string `json:"project_id"`
	CompanyID string `json:"company_id"`
	FromStage string `json:"from_stage"`
	ToStage   string `json:"to_stage"`
	Pass      int    `json:"pass"`
}

// DeliberationPayload is the schema for reviews.deliberation.recorded and
// reviews.escalation.raised messages.
type DeliberationPayload struct {
	DeliberationID string `json:"deliberation_id"`
	ProjectID      string `json:"project_id"`
	CompanyID      string `json:"company_id"`
	AgentID        string `json:"agent_id"`
	Stage          string `json:"stage"`
	Decision       string `json:"decision"`
	Escalated      bool   `json:"escalated,omitempty"`
	Score          int    `json:"score,omitempty"`
}

// TerminalPayload is the schema for reviews.project.approved and
// reviews.project.rejected messages.
type TerminalPayload struct {
	ProjectID     string `json:"project_id"`
	CompanyID     string `json:"company_id"`
	FinalDecision string `json:"final_decision"`
	Score         int    `json:"score"`
	DefenseFileID string `json:"defense_file_id,omitempty"`
}
