// Package docgen defines the port for the document generation collaborator.
package docgen

import (
	"context"

	"github.com/revisant/dictum/internal/domain/deliberation"
)

// Generator produces supporting document references for a recorded
// deliberation. Generation is best-effort: a failure must not block verdict
// recording, only the attachment of the reference.
type Generator interface {
	Generate(ctx context.Context, d *deliberation.Deliberation) ([]string, error)
}
