// Package smt defines the external SMT driver interface: the abstract
// surface every PDR component programs against, independent of which
// decision procedure backs it.
package smt

import (
	"context"
	"fmt"

	"github.com/ic3lab/pdrcheck/internal/term"
)

// FormulaClass tags an asserted formula with the role it plays in the
// induction query the solver is being used to discharge: A-formulas
// describe the current frame, T the transition relation, B the negated
// property (or its primed form). The SMT driver does not interpret the
// class itself; it exists so that Interpolate can be asked for an
// interpolant of the A-part against the rest.
type FormulaClass int

const (
	ClassA FormulaClass = iota
	ClassT
	ClassB
)

// CheckResult is the outcome of a Check call.
type CheckResult int

const (
	Sat CheckResult = iota
	Unsat
	Unknown
)

func (r CheckResult) String() string {
	switch r {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	default:
		return "unknown"
	}
}

// Feature identifies an optional solver capability. Components that need one
// must call Supports before relying on it and fall back to a sound default
// if it is absent.
type Feature int

const (
	FeatureInterpolation Feature = iota
	FeatureUnsatCore
	FeatureModelGeneralization
)

// Model is a satisfying assignment returned by a Sat Check.
type Model interface {
	// IsTrue reports whether the boolean-sorted term t is true in the model.
	IsTrue(t term.Ref) bool
	// IsFalse reports whether the boolean-sorted term t is false in the model.
	IsFalse(t term.Ref) bool
	// ValueOf returns the numeric value of t in the model.
	ValueOf(t term.Ref) (term.Rational, bool)
}

// Solver is the incremental interface every PDR collaborator (solver pool,
// reachability prover) drives. A Solver carries its own assertion stack;
// Push/Pop bracket a scope.
type Solver interface {
	// Assert adds f, tagged with its formula class, to the current scope.
	Assert(ctx context.Context, f term.Ref, class FormulaClass) error
	// Push opens a new assertion scope.
	Push(ctx context.Context) error
	// Pop closes the most recently opened scope, discarding its assertions.
	Pop(ctx context.Context) error
	// Check decides satisfiability of the conjunction of all asserted
	// formulas. It is the only blocking operation in the interface and the
	// only point at which a caller should expect to suspend.
	Check(ctx context.Context) (CheckResult, error)
	// GetModel returns a model for the last Sat Check. It is an error to
	// call GetModel after any other Check result.
	GetModel(ctx context.Context) (Model, error)
	// Generalize drops literals from the model of the last Sat Check that
	// are not needed to keep proj (the term set to generalize over) true,
	// producing a smaller formula implied by the model. Used to shrink a
	// counterexample-to-induction into a reusable blocking clause.
	Generalize(ctx context.Context, proj []term.Ref) (term.Ref, error)
	// Interpolate returns a Craig interpolant of the ClassA-tagged
	// assertions against the rest, valid only after an Unsat Check. Callers
	// must check Supports(FeatureInterpolation) first.
	Interpolate(ctx context.Context) (term.Ref, error)
	// UnsatCore returns a subset of the asserted formulas sufficient to
	// keep the last Check unsat. Callers must check
	// Supports(FeatureUnsatCore) first.
	UnsatCore(ctx context.Context) ([]term.Ref, error)
	// Supports reports whether this Solver implementation provides an
	// optional Feature.
	Supports(f Feature) bool
}

// ErrUnsupportedFeature is returned (or usable with errors.Is) when a caller
// invokes a Feature-gated method a Solver does not Support.
var ErrUnsupportedFeature = fmt.Errorf("smt: unsupported feature")

// ErrNoModel is returned by GetModel when the last Check was not Sat.
var ErrNoModel = fmt.Errorf("smt: no model available")
