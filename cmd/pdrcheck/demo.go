package main

// Built-in demonstration scenarios, each named after what it shows rather
// than a numbered label: a saturating counter safe by construction, a plain
// incrementing counter that eventually violates a fixed bound, a one-bit
// toggle proved safe two different ways, an integer counter checked against
// both a bound it violates and one it respects, a toy two-process mutual
// exclusion protocol, and a pair of counters whose safety only k-induction
// can establish.

import (
	"github.com/ic3lab/pdrcheck/internal/term"
	"github.com/ic3lab/pdrcheck/pkg/pdr"
)

type demoScenario struct {
	name  string
	build func(mgr *term.Manager) (*pdr.TransitionSystem, term.Ref)
	cfg   pdr.Config
}

var demoScenarios = map[string]demoScenario{
	"saturating-counter": {
		name:  "saturating-counter",
		build: buildSaturatingCounter,
		cfg:   pdr.DefaultConfig(),
	},
	"unbounded-counter": {
		name:  "unbounded-counter",
		build: buildUnboundedCounter,
		cfg:   pdr.DefaultConfig(),
	},
	"one-bit-toggle-safe": {
		name:  "one-bit-toggle-safe",
		build: pdr.OneBitTogglePlainSafety,
		cfg:   pdr.DefaultConfig(),
	},
	"one-bit-toggle-tautology": {
		name:  "one-bit-toggle-tautology",
		build: pdr.OneBitToggleTautology,
		cfg:   pdr.DefaultConfig(),
	},
	"counter-unsafe": {
		name:  "counter-unsafe",
		build: pdr.IntegerCounterUnsafe,
		cfg:   pdr.DefaultConfig(),
	},
	"counter-safe": {
		name:  "counter-safe",
		build: pdr.IntegerCounterSafe,
		cfg:   pdr.DefaultConfig(),
	},
	"peterson-mutex": {
		name:  "peterson-mutex",
		build: pdr.PetersonMutex,
		cfg:   pdr.DefaultConfig(),
	},
	"k-induction": {
		name:  "k-induction",
		build: pdr.FibonacciPairInduction,
		cfg:   func() pdr.Config { c := pdr.DefaultConfig(); c.InductionBudget = 3; return c }(),
	},
}

func demoScenarioNames() []string {
	names := make([]string, 0, len(demoScenarios))
	for n := range demoScenarios {
		names = append(names, n)
	}
	return names
}

// buildSaturatingCounter models a counter that stops incrementing once it
// reaches 5; the property n <= 5 is a genuine inductive invariant, so the
// engine should report Valid without ever needing a counterexample search.
func buildSaturatingCounter(mgr *term.Manager) (*pdr.TransitionSystem, term.Ref) {
	n := mgr.MkVariable("n", term.Integer)
	nNext := mgr.MkVariable("n!", term.Integer)
	st := &pdr.StateType{Vars: []term.Ref{n}, NextVars: []term.Ref{nNext}}

	zero := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(0))
	five := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(5))
	one := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(1))

	init := mgr.MkTerm(term.OpEq, n, zero)
	nPlus1 := mgr.MkTerm(term.OpAdd, n, one)
	lt5 := mgr.MkTerm(term.OpLt, n, five)
	trans := mgr.MkTerm(term.OpEq, nNext, mgr.MkTerm(term.OpIte, lt5, nPlus1, n))

	ts := &pdr.TransitionSystem{Type: st, Init: init, Trans: trans}
	property := mgr.MkTerm(term.OpLeq, n, five)
	return ts, property
}

// buildUnboundedCounter models a counter that increments forever; the
// property n <= 3 is violated after 4 steps, so the engine should report
// Invalid with a 5-state counterexample trace.
func buildUnboundedCounter(mgr *term.Manager) (*pdr.TransitionSystem, term.Ref) {
	n := mgr.MkVariable("n", term.Integer)
	nNext := mgr.MkVariable("n!", term.Integer)
	st := &pdr.StateType{Vars: []term.Ref{n}, NextVars: []term.Ref{nNext}}

	zero := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(0))
	one := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(1))
	three := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(3))

	init := mgr.MkTerm(term.OpEq, n, zero)
	trans := mgr.MkTerm(term.OpEq, nNext, mgr.MkTerm(term.OpAdd, n, one))

	ts := &pdr.TransitionSystem{Type: st, Init: init, Trans: trans}
	property := mgr.MkTerm(term.OpLeq, n, three)
	return ts, property
}
