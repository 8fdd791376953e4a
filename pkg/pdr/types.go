// Package pdr implements the property-directed reachability (PDR/IC3) model
// checker: the solver pool, reachability prover, induction frame and
// obligation scheduler, the engine itself, and the trace builder. Exported
// fields are used in place of private ones, errors are returned explicitly
// rather than through exceptions, and context.Context is threaded through
// every call that may block on an SMT Check.
package pdr

import (
	"errors"

	"github.com/ic3lab/pdrcheck/internal/term"
)

// StateType names the current-, next-, and input-state variables of a
// transition system. Vars[i] and NextVars[i] are the same logical state
// variable in its unprimed and primed form. InputVars holds any variables
// the transition relation may reference but that are not themselves part of
// the state vector (no corresponding NextVars entry): choices an
// environment or scheduler makes at each step rather than state the system
// carries forward. InputVars may be empty for purely autonomous systems.
type StateType struct {
	Vars      []term.Ref
	NextVars  []term.Ref
	InputVars []term.Ref
}

// CurrentToNext returns the substitution map taking a current-state formula
// to its next-state form.
func (t *StateType) CurrentToNext() map[term.Ref]term.Ref {
	m := make(map[term.Ref]term.Ref, len(t.Vars))
	for i, v := range t.Vars {
		m[v] = t.NextVars[i]
	}
	return m
}

// NextToCurrent is the inverse of CurrentToNext.
func (t *StateType) NextToCurrent() map[term.Ref]term.Ref {
	m := make(map[term.Ref]term.Ref, len(t.Vars))
	for i, v := range t.NextVars {
		m[v] = t.Vars[i]
	}
	return m
}

// TransitionSystem is the input to a query: an initial-states formula and a
// transition formula, both over Type's current/next variables.
type TransitionSystem struct {
	Type  *StateType
	Init  term.Ref
	Trans term.Ref
}

// Result is the outcome of a Query.
type Result int

const (
	Valid Result = iota
	Invalid
	Unknown
	Interrupted
)

func (r Result) String() string {
	switch r {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	case Interrupted:
		return "interrupted"
	default:
		return "unknown"
	}
}

// ErrSMTUnknown is wrapped into a query's error when the backing solver
// returns Unknown on a check the engine cannot proceed without.
var ErrSMTUnknown = errors.New("pdr: smt solver returned unknown")

// ErrUnsupportedFeature is wrapped when the engine's configuration requires
// a solver Feature the configured backend does not Support.
var ErrUnsupportedFeature = errors.New("pdr: solver backend lacks a required feature")

// ErrInvalidInput is returned for malformed transition systems or
// properties (mismatched state types, empty property set, and so on).
var ErrInvalidInput = errors.New("pdr: invalid input")
