// Package stage defines the ordered review stage catalog and the agent
// roster. The roster is data, not code: personas are rows in a table keyed
// by stage, loadable from YAML with a compiled-in default.
package stage

import (
	"fmt"

	"github.com/revisant/dictum/internal/domain"
)

// Capability describes what an agent's verdict can do at its stage.
type Capability string

const (
	// CapabilityDecide means the agent's verdict drives the state machine.
	CapabilityDecide Capability = "decide"
	// CapabilityAdvise means the agent's verdict cannot terminate the
	// project: an advisory approve advances the stage, but an advisory
	// reject escalates for human attention instead of rejecting outright.
	CapabilityAdvise Capability = "advise"
)

// Stage is one phase of the review workflow.
type Stage struct {
	Index        int        `yaml:"index" json:"index"`
	Name         string     `yaml:"name" json:"name"`
	AgentID      string     `yaml:"agent" json:"agent"`
	Capability   Capability `yaml:"capability" json:"capability"`
	IsGate       bool       `yaml:"gate" json:"gate"`
	Requirements []string   `yaml:"requirements,omitempty" json:"requirements,omitempty"`
}

// Roster is the ordered, finite stage sequence for a review workflow.
// Stage order is a total order; indexes are contiguous from zero.
type Roster struct {
	stages []Stage
	byName map[string]int
}

// NewRoster builds a roster from an ordered stage list, assigning indexes
// and validating uniqueness.
func NewRoster(stages []Stage) (*Roster, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("roster: %w: empty stage list", domain.ErrValidation)
	}
	byName := make(map[string]int, len(stages))
	out := make([]Stage, len(stages))
	for i, s := range stages {
		if s.Name == "" {
			return nil, fmt.Errorf("roster: %w: stage %d has no name", domain.ErrValidation, i)
		}
		if s.AgentID == "" {
			return nil, fmt.Errorf("roster: %w: stage %q has no agent", domain.ErrValidation, s.Name)
		}
		if _, dup := byName[s.Name]; dup {
			return nil, fmt.Errorf("roster: %w: duplicate stage %q", domain.ErrValidation, s.Name)
		}
		if s.Capability == "" {
			s.Capability = CapabilityDecide
		}
		s.Index = i
		byName[s.Name] = i
		out[i] = s
	}
	return &Roster{stages: out, byName: byName}, nil
}

// Len returns the number of stages.
func (r *Roster) Len() int { return len(r.stages) }

// Stages returns a copy of the ordered stage list.
func (r *Roster) Stages() []Stage {
	out := make([]Stage, len(r.stages))
	copy(out, r.stages)
	return out
}

// At returns the stage at the given index.
func (r *Roster) At(index int) (Stage, error) {
	if index < 0 || index >= len(r.stages) {
		return Stage{}, fmt.Errorf("stage index %d: %w", index, domain.ErrUnknownStage)
	}
	return r.stages[index], nil
}

// ByName returns the stage with the given name.
func (r *Roster) ByName(name string) (Stage, error) {
	i, ok := r.byName[name]
	if !ok {
		return Stage{}, fmt.Errorf("stage %q: %w", name, domain.ErrUnknownStage)
	}
	return r.stages[i], nil
}

// IsFinal reports whether index is the last stage before the terminal state.
func (r *Roster) IsFinal(index int) bool {
	return index == len(r.stages)-1
}

// AgentFor returns the identifier of the agent owning the stage at index.
func (r *Roster) AgentFor(index int) (string, error) {
	s, err := r.At(index)
	if err != nil {
		return "", err
	}
	return s.AgentID, nil
}
