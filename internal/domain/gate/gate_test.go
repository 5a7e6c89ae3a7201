package gate_test

import (
	"reflect"
	"testing"

	"github.com/revisant/dictum/internal/domain/gate"
	"github.com/revisant/dictum/internal/domain/project"
	"github.com/revisant/dictum/internal/domain/stage"
)

func gateStage(reqs ...string) stage.Stage {
	return stage.Stage{Name: "budget", AgentID: "budget_auditor", IsGate: true, Requirements: reqs}
}

func TestEvaluateNonGateAlwaysPasses(t *testing.T) {
	e := gate.NewEvaluator(50000)
	st := stage.Stage{Name: "intake", AgentID: "registrar"}
	p := &project.Project{}

	if got := e.Evaluate(st, p); !got.OK {
		t.Errorf("non-gate stage failed: %+v", got)
	}
}

func TestEvaluateBudgetConfirmed(t *testing.T) {
	e := gate.NewEvaluator(50000)
	st := gateStage(stage.ReqBudgetConfirmed)

	cases := []struct {
		name     string
		evidence map[string]string
		wantOK   bool
	}{
		{"missing", nil, false},
		{"empty value", map[string]string{"budget_confirmed": ""}, false},
		{"false value", map[string]string{"budget_confirmed": "false"}, false},
		{"zero value", map[string]string{"budget_confirmed": "0"}, false},
		{"true value", map[string]string{"budget_confirmed": "true"}, true},
		{"arbitrary truthy", map[string]string{"budget_confirmed": "signed-off"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := &project.Project{Evidence: tc.evidence}
			got := e.Evaluate(st, p)
			if got.OK != tc.wantOK {
				t.Errorf("OK = %v, want %v (missing %v)", got.OK, tc.wantOK, got.Missing)
			}
		})
	}
}

func TestEvaluateMateriality(t *testing.T) {
	e := gate.NewEvaluator(50000)
	st := gateStage(stage.ReqMaterialityThreshold)

	// Budget estimate is the fallback amount.
	p := &project.Project{BudgetEstimate: 75000}
	if got := e.Evaluate(st, p); !got.OK {
		t.Errorf("budget above threshold failed: %+v", got)
	}

	p = &project.Project{BudgetEstimate: 10000}
	if got := e.Evaluate(st, p); got.OK {
		t.Error("budget below threshold passed")
	}

	// Explicit evidence amount overrides the estimate.
	p = &project.Project{
		BudgetEstimate: 10000,
		Evidence:       map[string]string{"materiality_amount": "60000"},
	}
	if got := e.Evaluate(st, p); !got.OK {
		t.Errorf("evidence amount above threshold failed: %+v", got)
	}

	p = &project.Project{
		BudgetEstimate: 90000,
		Evidence:       map[string]string{"materiality_amount": "not-a-number"},
	}
	if got := e.Evaluate(st, p); got.OK {
		t.Error("unparseable evidence amount passed")
	}
}

func TestEvaluateThreeWayMatch(t *testing.T) {
	e := gate.NewEvaluator(0)
	st := stage.Stage{Name: "three_way_match", AgentID: "matching_auditor", IsGate: true,
		Requirements: []string{stage.ReqThreeWayMatch}}

	p := &project.Project{Evidence: map[string]string{
		"contract_total": "1200.50",
		"invoice_total":  "1200.50",
		"payment_total":  "1200.50",
	}}
	if got := e.Evaluate(st, p); !got.OK {
		t.Errorf("matching totals failed: %+v", got)
	}

	p.Evidence["payment_total"] = "1100.00"
	if got := e.Evaluate(st, p); got.OK {
		t.Error("mismatched totals passed")
	}

	delete(p.Evidence, "invoice_total")
	if got := e.Evaluate(st, p); got.OK {
		t.Error("incomplete totals passed")
	}
}

func TestEvaluateMissingSortedAndComplete(t *testing.T) {
	e := gate.NewEvaluator(50000)
	st := gateStage(stage.ReqThreeWayMatch, stage.ReqBudgetConfirmed)
	p := &project.Project{}

	got := e.Evaluate(st, p)
	if got.OK {
		t.Fatal("gate with no evidence passed")
	}
	want := []string{stage.ReqBudgetConfirmed, stage.ReqThreeWayMatch}
	if !reflect.DeepEqual(got.Missing, want) {
		t.Errorf("Missing = %v, want %v", got.Missing, want)
	}
}

func TestEvaluateUnknownRequirementFallsBackToEvidence(t *testing.T) {
	e := gate.NewEvaluator(0)
	st := gateStage("board_approval")

	p := &project.Project{}
	if got := e.Evaluate(st, p); got.OK {
		t.Error("unknown requirement with no evidence passed")
	}

	p.Evidence = map[string]string{"board_approval": "yes"}
	if got := e.Evaluate(st, p); !got.OK {
		t.Errorf("unknown requirement with evidence failed: %+v", got)
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	e := gate.NewEvaluator(50000)
	st := gateStage(stage.ReqBudgetConfirmed)
	p := &project.Project{Evidence: map[string]string{"budget_confirmed": "true"}}

	first := e.Evaluate(st, p)
	for i := 0; i < 10; i++ {
		if got := e.Evaluate(st, p); !reflect.DeepEqual(got, first) {
			t.Fatalf("evaluation %d differed: %+v vs %+v", i, got, first)
		}
	}
}

func TestRegisterCustomPredicate(t *testing.T) {
	e := gate.NewEvaluator(0)
	e.Register("sponsor_cleared", func(p *project.Project) bool {
		return p.SponsorID != ""
	})
	st := gateStage("sponsor_cleared")

	if got := e.Evaluate(st, &project.Project{}); got.OK {
		t.Error("custom predicate passed without sponsor")
	}
	if got := e.Evaluate(st, &project.Project{SponsorID: "u-1"}); !got.OK {
		t.Errorf("custom predicate failed with sponsor: %+v", got)
	}
}
