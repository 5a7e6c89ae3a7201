package score_test

import (
	"reflect"
	"testing"
	"time"

	"github.com/revisant/dictum/internal/domain/deliberation"
	"github.com/revisant/dictum/internal/domain/score"
)

func entry(agent, stage string, d deliberation.Decision, at time.Time) deliberation.Deliberation {
	return deliberation.Deliberation{
		AgentID:   agent,
		Stage:     stage,
		Decision:  d,
		CreatedAt: at,
	}
}

func TestComputeEmptyLedger(t *testing.T) {
	got := score.Compute(nil)
	if got.Score != 0 || got.HasPendingAdjustments || got.AdjustingAgents != nil {
		t.Errorf("empty ledger: got %+v, want zero result", got)
	}
}

func TestComputeAllApproved(t *testing.T) {
	t0 := time.Now()
	ledger := []deliberation.Deliberation{
		entry("registrar", "intake", deliberation.DecisionApprove, t0),
		entry("budget_auditor", "budget", deliberation.DecisionApprove, t0.Add(time.Minute)),
	}

	got := score.Compute(ledger)
	if got.Score != 100 {
		t.Errorf("score = %d, want 100", got.Score)
	}
	if got.HasPendingAdjustments {
		t.Error("HasPendingAdjustments = true, want false")
	}
}

func TestComputeRounding(t *testing.T) {
	t0 := time.Now()
	// 2 of 3 approved: 66.67 rounds to 67.
	ledger := []deliberation.Deliberation{
		entry("registrar", "intake", deliberation.DecisionApprove, t0),
		entry("purpose_analyst", "business_purpose", deliberation.DecisionApprove, t0),
		entry("budget_auditor", "budget", deliberation.DecisionReject, t0),
	}

	if got := score.Compute(ledger).Score; got != 67 {
		t.Errorf("score = %d, want 67", got)
	}
}

func TestComputeSupersession(t *testing.T) {
	t0 := time.Now()
	// The auditor first asks for an adjustment, then approves on the next
	// pass. Only the latest verdict per (agent, stage) slot counts.
	ledger := []deliberation.Deliberation{
		entry("registrar", "intake", deliberation.DecisionApprove, t0),
		entry("budget_auditor", "budget", deliberation.DecisionRequestAdjustment, t0.Add(time.Minute)),
		entry("budget_auditor", "budget", deliberation.DecisionApprove, t0.Add(2*time.Minute)),
	}

	got := score.Compute(ledger)
	if got.Score != 100 {
		t.Errorf("score = %d, want 100 after supersession", got.Score)
	}
	if got.HasPendingAdjustments {
		t.Error("superseded adjustment still reported pending")
	}
}

func TestComputeAdjustingAgentsSorted(t *testing.T) {
	t0 := time.Now()
	ledger := []deliberation.Deliberation{
		entry("zeta", "risk", deliberation.DecisionRequestAdjustment, t0),
		entry("alpha", "legal", deliberation.DecisionRequestAdjustment, t0),
		entry("registrar", "intake", deliberation.DecisionApprove, t0),
	}

	got := score.Compute(ledger)
	if !got.HasPendingAdjustments {
		t.Fatal("HasPendingAdjustments = false, want true")
	}
	want := []string{"alpha", "zeta"}
	if !reflect.DeepEqual(got.AdjustingAgents, want) {
		t.Errorf("AdjustingAgents = %v, want %v", got.AdjustingAgents, want)
	}
}

func TestComputeDeterministic(t *testing.T) {
	t0 := time.Now()
	ledger := []deliberation.Deliberation{
		entry("a", "intake", deliberation.DecisionApprove, t0),
		entry("b", "budget", deliberation.DecisionReject, t0),
		entry("c", "risk", deliberation.DecisionRequestAdjustment, t0),
		entry("d", "legal", deliberation.DecisionAbstain, t0),
	}

	first := score.Compute(ledger)
	for i := 0; i < 50; i++ {
		if got := score.Compute(ledger); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d: got %+v, want %+v", i, got, first)
		}
	}
}

func TestComputeAbstainNotApproved(t *testing.T) {
	t0 := time.Now()
	ledger := []deliberation.Deliberation{
		entry("a", "intake", deliberation.DecisionAbstain, t0),
	}

	got := score.Compute(ledger)
	if got.Score != 0 {
		t.Errorf("score = %d, want 0: abstain is considered but not approved", got.Score)
	}
}
