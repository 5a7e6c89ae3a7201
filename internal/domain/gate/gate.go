// Package gate evaluates the hard-gate requirement predicates that block
// stage advancement. Evaluation is side-effect-free and idempotent: it may
// be called speculatively without altering state.
package gate

import (
	"sort"
	"strconv"
	"strings"

	"github.com/revisant/dictum/internal/domain/project"
	"github.com/revisant/dictum/internal/domain/stage"
)

// Result reports whether a gate passed and, when it did not, the specific
// requirement names that are unmet. Gates are binary: any missing predicate
// fails the whole gate.
type Result struct {
	OK      bool     `json:"ok"`
	Missing []string `json:"missing,omitempty"`
}

// Predicate checks one named requirement against a project and its attached
// evidence.
type Predicate func(p *project.Project) bool

// Evaluator resolves requirement names to predicates. Unknown names fall
// back to a truthy-evidence check under the same key, which keeps the
// roster data-driven: new requirements work without code changes.
type Evaluator struct {
	// MaterialityThreshold is the minimum amount the materiality predicate
	// accepts. Zero disables the floor.
	MaterialityThreshold float64

	custom map[string]Predicate
}

// NewEvaluator builds an evaluator with the built-in predicate set.
func NewEvaluator(materialityThreshold float64) *Evaluator {
	e := &Evaluator{
		MaterialityThreshold: materialityThreshold,
		custom:               make(map[string]Predicate),
	}
	e.custom[stage.ReqBudgetConfirmed] = truthyEvidence(stage.ReqBudgetConfirmed)
	e.custom[stage.ReqMaterialityThreshold] = e.materiality
	e.custom[stage.ReqThreeWayMatch] = threeWayMatch
	return e
}

// Register installs or replaces a named predicate.
func (e *Evaluator) Register(name string, p Predicate) {
	e.custom[name] = p
}

// Evaluate checks every requirement of the target stage. Non-gate stages
// always pass. Missing predicate names are sorted so failures are stable.
func (e *Evaluator) Evaluate(s stage.Stage, p *project.Project) Result {
	if !s.IsGate || len(s.Requirements) == 0 {
		return Result{OK: true}
	}

	var missing []string
	for _, name := range s.Requirements {
		pred, ok := e.custom[name]
		if !ok {
			pred = truthyEvidence(name)
		}
		if !pred(p) {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return Result{OK: len(missing) == 0, Missing: missing}
}

// truthyEvidence passes when the named evidence item exists and is not a
// recognizable "false" value.
func truthyEvidence(key string) Predicate {
	return func(p *project.Project) bool {
		v, ok := p.Evidence[key]
		if !ok {
			return false
		}
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "0", "false", "no":
			return false
		}
		return true
	}
}

// materiality passes when the materiality amount meets the configured floor.
// The explicit evidence amount wins; the project budget estimate is the
// fallback.
func (e *Evaluator) materiality(p *project.Project) bool {
	amount := p.BudgetEstimate
	if v, ok := p.Evidence["materiality_amount"]; ok {
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return false
		}
		amount = parsed
	}
	return amount >= e.MaterialityThreshold
}

// threeWayMatch passes when contract, invoice, and payment totals are all
// present and equal.
func threeWayMatch(p *project.Project) bool {
	contract, ok1 := amount(p, "contract_total")
	invoice, ok2 := amount(p, "invoice_total")
	payment, ok3 := amount(p, "payment_total")
	if !ok1 || !ok2 || !ok3 {
		return false
	}
	return contract == invoice && invoice == payment
}

func amount(p *project.Project, key string) (float64, bool) {
	v, ok := p.Evidence[key]
	if !ok {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}
