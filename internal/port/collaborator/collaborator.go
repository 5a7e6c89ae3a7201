// Package collaborator defines the port for invoking external reviewer
// agents. The agent is an opaque collaborator: it may be slow, must be
// cancellable, and must return a decision from the closed enumeration.
package collaborator

import (
	"context"

	"github.com/revisant/dictum/internal/domain/deliberation"
	"github.com/revisant/dictum/internal/domain/project"
)

// Verdict is the structured result an agent returns for a stage review.
// The decision is normalized at the adapter boundary before it reaches the
// core.
type Verdict struct {
	Decision     deliberation.Decision `json:"decision"`
	Analysis     string                `json:"analysis"`
	Risk         string                `json:"risk,omitempty"`
	Adjustments  string                `json:"adjustments,omitempty"`
	DocumentRefs []string              `json:"document_refs,omitempty"`
}

// Invoker calls an external reviewer agent with a project snapshot and
// blocks until the verdict arrives, the context is cancelled, or the
// adapter's deadline expires.
type Invoker interface {
	Invoke(ctx context.Context, agentID string, snapshot project.Snapshot) (*Verdict, error)
}
