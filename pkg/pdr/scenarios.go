package pdr

// Built-in transition systems shared by the engine's own acceptance tests
// and the pdrcheck CLI's demo subcommand: a one-bit toggle proved safe two
// different ways, an ever-incrementing counter checked against both a bound
// it violates and one it respects, a toy two-process mutual-exclusion
// protocol, and a pair of counters whose safety is provable only by
// induction deeper than one step.

import "github.com/ic3lab/pdrcheck/internal/term"

func oneBitToggle(mgr *term.Manager) *TransitionSystem {
	x := mgr.MkVariable("x", term.Bool)
	xNext := mgr.MkVariable("x!", term.Bool)
	st := &StateType{Vars: []term.Ref{x}, NextVars: []term.Ref{xNext}}
	init := mgr.MkTerm(term.OpNot, x)
	trans := mgr.MkTerm(term.OpEq, xNext, mgr.MkTerm(term.OpNot, x))
	return &TransitionSystem{Type: st, Init: init, Trans: trans}
}

// OneBitTogglePlainSafety checks the one-bit toggle x' = !x against the
// constant property true: Valid within a single frame, since no state can
// violate a property that holds unconditionally.
func OneBitTogglePlainSafety(mgr *term.Manager) (*TransitionSystem, term.Ref) {
	return oneBitToggle(mgr), mgr.MkBoolConstant(true)
}

// OneBitToggleTautology checks the same toggle against a tautology that
// actually mentions the state variable (x = false or x = true) rather than
// the bare constant true, still Valid but exercising the solver on a
// property with real state-variable references.
func OneBitToggleTautology(mgr *term.Manager) (*TransitionSystem, term.Ref) {
	ts := oneBitToggle(mgr)
	x := ts.Type.Vars[0]
	isFalse := mgr.MkTerm(term.OpEq, x, mgr.MkBoolConstant(false))
	isTrue := mgr.MkTerm(term.OpEq, x, mgr.MkBoolConstant(true))
	return ts, mgr.MkTerm(term.OpOr, isFalse, isTrue)
}

func integerCounter(mgr *term.Manager) *TransitionSystem {
	n := mgr.MkVariable("n", term.Integer)
	nNext := mgr.MkVariable("n!", term.Integer)
	st := &StateType{Vars: []term.Ref{n}, NextVars: []term.Ref{nNext}}
	zero := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(0))
	one := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(1))
	init := mgr.MkTerm(term.OpEq, n, zero)
	trans := mgr.MkTerm(term.OpEq, nNext, mgr.MkTerm(term.OpAdd, n, one))
	return &TransitionSystem{Type: st, Init: init, Trans: trans}
}

// IntegerCounterUnsafe checks an ever-incrementing counter against n <= 2:
// Invalid, with a four-state counterexample trace (n = 0, 1, 2, 3).
func IntegerCounterUnsafe(mgr *term.Manager) (*TransitionSystem, term.Ref) {
	ts := integerCounter(mgr)
	n := ts.Type.Vars[0]
	two := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(2))
	return ts, mgr.MkTerm(term.OpLeq, n, two)
}

// IntegerCounterSafe checks the same counter against n >= 0: Valid, with a
// discovered invariant implying n >= 0.
func IntegerCounterSafe(mgr *term.Manager) (*TransitionSystem, term.Ref) {
	ts := integerCounter(mgr)
	n := ts.Type.Vars[0]
	zero := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(0))
	return ts, mgr.MkTerm(term.OpGeq, n, zero)
}

// PetersonMutex models a toy two-process Peterson-style mutual exclusion
// protocol: pc1, pc2 each range over {idle=0, try=1, crit=2}, turn ranges
// over {1, 2}, and a boolean input variable picks which of the two
// processes is scheduled to move on a given step. Property: the two
// processes are never both in their critical section at once.
func PetersonMutex(mgr *term.Manager) (*TransitionSystem, term.Ref) {
	pc1 := mgr.MkVariable("pc1", term.Integer)
	pc2 := mgr.MkVariable("pc2", term.Integer)
	turn := mgr.MkVariable("turn", term.Integer)
	pc1Next := mgr.MkVariable("pc1!", term.Integer)
	pc2Next := mgr.MkVariable("pc2!", term.Integer)
	turnNext := mgr.MkVariable("turn!", term.Integer)
	sched := mgr.MkVariable("sched", term.Bool)

	st := &StateType{
		Vars:      []term.Ref{pc1, pc2, turn},
		NextVars:  []term.Ref{pc1Next, pc2Next, turnNext},
		InputVars: []term.Ref{sched},
	}

	zero := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(0))
	one := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(1))
	two := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(2))

	eq := func(a, b term.Ref) term.Ref { return mgr.MkTerm(term.OpEq, a, b) }
	and := func(args ...term.Ref) term.Ref { return mgr.MkTerm(term.OpAnd, args...) }
	or := func(a, b term.Ref) term.Ref { return mgr.MkTerm(term.OpOr, a, b) }
	not := func(a term.Ref) term.Ref { return mgr.MkTerm(term.OpNot, a) }
	ite := func(c, a, b term.Ref) term.Ref { return mgr.MkTerm(term.OpIte, c, a, b) }

	init := and(eq(pc1, zero), eq(pc2, zero), eq(turn, one))

	// Each process's next pc: idle moves to try; try moves to crit when the
	// other process isn't also trying or it's this process's turn,
	// otherwise stays at try; crit always exits back to idle.
	idle1, try1 := eq(pc1, zero), eq(pc1, one)
	guard1 := or(not(eq(pc2, one)), eq(turn, one))
	step1PC := ite(idle1, one, ite(try1, ite(guard1, two, one), zero))
	step1Turn := ite(idle1, two, turn)

	idle2, try2 := eq(pc2, zero), eq(pc2, one)
	guard2 := or(not(eq(pc1, one)), eq(turn, two))
	step2PC := ite(idle2, one, ite(try2, ite(guard2, two, one), zero))
	step2Turn := ite(idle2, one, turn)

	trans := and(
		eq(pc1Next, ite(sched, step1PC, pc1)),
		eq(pc2Next, ite(sched, pc2, step2PC)),
		eq(turnNext, ite(sched, step1Turn, step2Turn)),
	)

	ts := &TransitionSystem{Type: st, Init: init, Trans: trans}
	property := not(and(eq(pc1, two), eq(pc2, two)))
	return ts, property
}

// FibonacciPairInduction returns a Fibonacci-style pair a' = b, b' = a + b
// starting from (1, 1), checked against a <= b: a property a single
// induction step cannot establish on its own (a raw, unreachable
// predecessor with a negative a breaks the one-step argument), but that
// k-induction at depth 2 or more proves, since two consecutive states along
// any such chain force both values non-negative.
func FibonacciPairInduction(mgr *term.Manager) (*TransitionSystem, term.Ref) {
	a := mgr.MkVariable("a", term.Integer)
	b := mgr.MkVariable("b", term.Integer)
	aNext := mgr.MkVariable("a!", term.Integer)
	bNext := mgr.MkVariable("b!", term.Integer)
	st := &StateType{Vars: []term.Ref{a, b}, NextVars: []term.Ref{aNext, bNext}}

	one := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(1))
	init := mgr.MkTerm(term.OpAnd, mgr.MkTerm(term.OpEq, a, one), mgr.MkTerm(term.OpEq, b, one))
	trans := mgr.MkTerm(term.OpAnd,
		mgr.MkTerm(term.OpEq, aNext, b),
		mgr.MkTerm(term.OpEq, bNext, mgr.MkTerm(term.OpAdd, a, b)))

	ts := &TransitionSystem{Type: st, Init: init, Trans: trans}
	property := mgr.MkTerm(term.OpLeq, a, b)
	return ts, property
}
