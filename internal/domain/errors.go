// Package domain provides shared domain-level sentinel errors.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates a request failed domain validation.
var ErrValidation = errors.New("validation failed")

// ErrConflictingState indicates a second verdict was submitted for a
// (project, stage) pass that already has one awaiting resolution.
var ErrConflictingState = errors.New("conflicting state: verdict already recorded for this stage pass")

// ErrInvalidTransition indicates a stage advance was attempted without the
// gate requirements being satisfied.
var ErrInvalidTransition = errors.New("invalid transition")

// ErrInvalidState indicates an operation that requires a terminal project was
// invoked on a non-terminal one.
var ErrInvalidState = errors.New("invalid state")

// ErrUnknownStage indicates a stage name or index outside the roster.
var ErrUnknownStage = errors.New("unknown stage")

// ErrCollaboratorTimeout indicates the external reviewer did not respond
// within the configured window. The caller records an abstain escalation
// instead of blocking.
var ErrCollaboratorTimeout = errors.New("collaborator timeout")

// GateError reports the specific requirement predicates that blocked an
// advance. It wraps ErrInvalidTransition so callers can match either the
// sentinel or the typed failure.
type GateError struct {
	Stage   string
	Missing []string
}

func (e *GateError) Error() string {
	return fmt.Sprintf("gate %q not satisfied: missing [%s]", e.Stage, strings.Join(e.Missing, ", "))
}

func (e *GateError) Unwrap() error { return ErrInvalidTransition }
