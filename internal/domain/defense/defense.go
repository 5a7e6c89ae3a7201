// Package defense defines the immutable terminal audit snapshot of a
// project's full review history.
package defense

import (
	"time"

	"github.com/revisant/dictum/internal/domain/deliberation"
	"github.com/revisant/dictum/internal/domain/score"
)

// File is the defense record compiled once a project reaches a terminal
// state. Once created it is never mutated; a resubmitted project version
// produces a new File with a higher Version, the old one is retained for
// audit continuity.
type File struct {
	ID            string                      `json:"id"`
	ProjectID     string                      `json:"project_id"`
	CompanyID     string                      `json:"company_id"`
	Version       int                         `json:"version"`
	FinalDecision deliberation.Decision       `json:"final_decision"`
	Score         score.Result                `json:"score"`
	Deliberations []deliberation.Deliberation `json:"deliberations"`
	DocumentRefs  []string                    `json:"document_refs,omitempty"`
	CompiledAt    time.Time                   `json:"compiled_at"`
}
