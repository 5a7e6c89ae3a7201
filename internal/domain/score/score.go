// Package score computes the compliance score as a pure projection over a
// project's deliberation ledger. No stored score is ever authoritative.
package score

import (
	"math"
	"sort"

	"github.com/revisant/dictum/internal/domain/deliberation"
)

// Result is the aggregate produced from a project's deliberation history.
type Result struct {
	// Score is in [0, 100]: round(100 * approved / considered) over the
	// most-recent deliberation per distinct (agent, stage) pair.
	Score int `json:"score"`
	// HasPendingAdjustments is true iff any most-recent deliberation asks
	// for an adjustment.
	HasPendingAdjustments bool `json:"has_pending_adjustments"`
	// AdjustingAgents lists the agents whose most-recent verdict is a
	// request_adjustment, sorted for determinism.
	AdjustingAgents []string `json:"adjusting_agents,omitempty"`
}

// Compute derives the compliance score from the full ordered ledger.
// Older deliberations superseded by a resubmission at the same (agent, stage)
// slot are excluded, so corrected history is not penalized twice.
// Zero deliberations is not an error: the result is the zero score.
func Compute(ledger []deliberation.Deliberation) Result {
	if len(ledger) == 0 {
		return Result{}
	}

	// The ledger is ordered by timestamp ascending, so the last write per
	// slot wins.
	latest := make(map[string]deliberation.Deliberation)
	for _, d := range ledger {
		latest[d.Key()] = d
	}

	var approved int
	var adjusting []string
	for _, d := range latest {
		if d.Decision == deliberation.DecisionApprove {
			approved++
		}
		if d.Decision == deliberation.DecisionRequestAdjustment {
			adjusting = append(adjusting, d.AgentID)
		}
	}
	sort.Strings(adjusting)

	return Result{
		Score:                 int(math.Round(100 * float64(approved) / float64(len(latest)))),
		HasPendingAdjustments: len(adjusting) > 0,
		AdjustingAgents:       adjusting,
	}
}
