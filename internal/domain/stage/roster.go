package stage

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Requirement predicate names referenced by the default roster. The gate
// package registers evaluators under these names.
const (
	ReqBudgetConfirmed      = "budget_confirmed"
	ReqMaterialityThreshold = "materiality_threshold"
	ReqThreeWayMatch        = "three_way_match"
)

// DefaultRoster returns the built-in ten-stage review sequence with its
// three hard gates.
func DefaultRoster() *Roster {
	r, err := NewRoster([]Stage{
		{Name: "intake", AgentID: "registrar"},
		{Name: "business_purpose", AgentID: "purpose_analyst"},
		{Name: "budget", AgentID: "budget_auditor", IsGate: true, Requirements: []string{ReqBudgetConfirmed}},
		{Name: "materiality", AgentID: "materiality_assessor", IsGate: true, Requirements: []string{ReqMaterialityThreshold}},
		{Name: "substance", AgentID: "substance_reviewer"},
		{Name: "documentation", AgentID: "documentation_clerk", Capability: CapabilityAdvise},
		{Name: "three_way_match", AgentID: "matching_auditor", IsGate: true, Requirements: []string{ReqThreeWayMatch}},
		{Name: "risk", AgentID: "risk_officer"},
		{Name: "legal", AgentID: "legal_counsel"},
		{Name: "final_verdict", AgentID: "chief_reviewer"},
	})
	if err != nil {
		// The built-in table is validated by tests; a failure here is a
		// programming error.
		panic(err)
	}
	return r
}

// rosterFile is the YAML document shape for a roster override file.
type rosterFile struct {
	Stages []Stage `yaml:"stages"`
}

// LoadRoster reads a roster override from a YAML file. A missing file is not
// an error: the default roster is returned.
func LoadRoster(path string) (*Roster, error) {
	if path == "" {
		return DefaultRoster(), nil
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from operator config
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return DefaultRoster(), nil
		}
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}

	var f rosterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse roster %s: %w", path, err)
	}
	return NewRoster(f.Stages)
}
