package pdr

import (
	"context"
	"testing"

	"github.com/ic3lab/pdrcheck/internal/smt"
	"github.com/ic3lab/pdrcheck/internal/smt/refsolver"
	"github.com/ic3lab/pdrcheck/internal/term"
)

func refFactory(mgr *term.Manager) smt.Solver {
	return refsolver.New(mgr)
}

func saturatingCounterSystem(mgr *term.Manager) (*TransitionSystem, term.Ref, term.Ref) {
	n := mgr.MkVariable("n", term.Integer)
	nNext := mgr.MkVariable("n!", term.Integer)
	st := &StateType{Vars: []term.Ref{n}, NextVars: []term.Ref{nNext}}

	zero := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(0))
	five := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(5))
	one := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(1))

	init := mgr.MkTerm(term.OpEq, n, zero)
	nPlus1 := mgr.MkTerm(term.OpAdd, n, one)
	lt5 := mgr.MkTerm(term.OpLt, n, five)
	ite := mgr.MkTerm(term.OpIte, lt5, nPlus1, n)
	trans := mgr.MkTerm(term.OpEq, nNext, ite)

	ts := &TransitionSystem{Type: st, Init: init, Trans: trans}
	property := mgr.MkTerm(term.OpLeq, n, five)
	return ts, property, n
}

func unboundedCounterSystem(mgr *term.Manager, bound int64) (*TransitionSystem, term.Ref) {
	n := mgr.MkVariable("n", term.Integer)
	nNext := mgr.MkVariable("n!", term.Integer)
	st := &StateType{Vars: []term.Ref{n}, NextVars: []term.Ref{nNext}}

	zero := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(0))
	one := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(1))
	boundConst := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(bound))

	init := mgr.MkTerm(term.OpEq, n, zero)
	nPlus1 := mgr.MkTerm(term.OpAdd, n, one)
	trans := mgr.MkTerm(term.OpEq, nNext, nPlus1)

	ts := &TransitionSystem{Type: st, Init: init, Trans: trans}
	property := mgr.MkTerm(term.OpLeq, n, boundConst)
	return ts, property
}

func TestQueryValidSaturatingCounter(t *testing.T) {
	mgr := term.NewManager()
	ts, property, _ := saturatingCounterSystem(mgr)
	e := NewEngine(mgr, ts, DefaultConfig(), refFactory)
	e.AddProperty(property)

	res, trace, err := e.Query(context.Background())
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if res != Valid {
		t.Fatalf("expected Valid, got %v (trace=%v)", res, trace)
	}
}

func TestQueryInvalidUnboundedCounter(t *testing.T) {
	mgr := term.NewManager()
	ts, property := unboundedCounterSystem(mgr, 3)
	cfg := DefaultConfig()
	cfg.MaxFrame = 10
	e := NewEngine(mgr, ts, cfg, refFactory)
	e.AddProperty(property)

	res, trace, err := e.Query(context.Background())
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if res != Invalid {
		t.Fatalf("expected Invalid, got %v", res)
	}
	if trace == nil || len(trace.States) == 0 {
		t.Fatal("expected a non-empty counterexample trace")
	}
	formatted := trace.Format(mgr)
	if formatted == "" {
		t.Fatal("expected a non-empty formatted trace")
	}
}

func TestQueryRequiresAtLeastOneProperty(t *testing.T) {
	mgr := term.NewManager()
	ts, _, _ := saturatingCounterSystem(mgr)
	e := NewEngine(mgr, ts, DefaultConfig(), refFactory)

	_, _, err := e.Query(context.Background())
	if err == nil {
		t.Fatal("expected an error when no property was added")
	}
}

func TestAddPropertySplitsConjunction(t *testing.T) {
	mgr := term.NewManager()
	ts, property, n := saturatingCounterSystem(mgr)
	three := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(3))
	neq3 := mgr.MkTerm(term.OpNot, mgr.MkTerm(term.OpEq, n, three))
	conj := mgr.MkTerm(term.OpAnd, property, neq3)

	e := NewEngine(mgr, ts, DefaultConfig(), refFactory)
	e.AddProperty(conj)
	if len(e.properties) != 2 {
		t.Fatalf("expected AddProperty to split a top-level And into 2 conjuncts, got %d", len(e.properties))
	}
}

func TestQueryInitiallyViolatingPropertyIsImmediatelyInvalid(t *testing.T) {
	mgr := term.NewManager()
	ts, _ := unboundedCounterSystem(mgr, -1)
	e := NewEngine(mgr, ts, DefaultConfig(), refFactory)
	// n <= -1 is already false at n == 0.
	negOne := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(-1))
	n := ts.Type.Vars[0]
	e.AddProperty(mgr.MkTerm(term.OpLeq, n, negOne))

	res, trace, err := e.Query(context.Background())
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if res != Invalid {
		t.Fatalf("expected Invalid, got %v", res)
	}
	if trace == nil || len(trace.States) != 1 {
		t.Fatalf("expected a single-state trace for an immediately-violated property, got %v", trace)
	}
}

func TestQueryOneBitTogglePlainSafetyIsValid(t *testing.T) {
	mgr := term.NewManager()
	ts, property := OneBitTogglePlainSafety(mgr)
	e := NewEngine(mgr, ts, DefaultConfig(), refFactory)
	e.AddProperty(property)

	res, trace, err := e.Query(context.Background())
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if res != Valid {
		t.Fatalf("expected Valid, got %v (trace=%v)", res, trace)
	}
}

func TestQueryOneBitToggleTautologyIsValid(t *testing.T) {
	mgr := term.NewManager()
	ts, property := OneBitToggleTautology(mgr)
	e := NewEngine(mgr, ts, DefaultConfig(), refFactory)
	e.AddProperty(property)

	res, trace, err := e.Query(context.Background())
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if res != Valid {
		t.Fatalf("expected Valid, got %v (trace=%v)", res, trace)
	}
}

func TestQueryIntegerCounterUnsafeIsInvalid(t *testing.T) {
	mgr := term.NewManager()
	ts, property := IntegerCounterUnsafe(mgr)
	cfg := DefaultConfig()
	cfg.MaxFrame = 10
	e := NewEngine(mgr, ts, cfg, refFactory)
	e.AddProperty(property)

	res, trace, err := e.Query(context.Background())
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if res != Invalid {
		t.Fatalf("expected Invalid, got %v", res)
	}
	if trace == nil || len(trace.States) != 4 {
		t.Fatalf("expected a four-state counterexample trace, got %v", trace)
	}
	n := ts.Type.Vars[0]
	for i, want := range []int64{0, 1, 2, 3} {
		rv, ok := trace.States[i].Model.ValueOf(n)
		if !ok {
			t.Fatalf("state %d: no value recorded for n", i)
		}
		if wantRv := term.RationalFromInt64(want); rv.Cmp(wantRv) != 0 {
			t.Fatalf("state %d: expected n = %d, got %s", i, want, rv.String())
		}
	}
}

func TestQueryIntegerCounterSafeIsValid(t *testing.T) {
	mgr := term.NewManager()
	ts, property := IntegerCounterSafe(mgr)
	e := NewEngine(mgr, ts, DefaultConfig(), refFactory)
	e.AddProperty(property)

	res, trace, err := e.Query(context.Background())
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if res != Valid {
		t.Fatalf("expected Valid, got %v (trace=%v)", res, trace)
	}
	if _, ok := e.Invariant(); !ok {
		t.Fatal("expected a recorded invariant on Valid")
	}
}

func TestQueryPetersonMutexIsValid(t *testing.T) {
	mgr := term.NewManager()
	ts, property := PetersonMutex(mgr)
	cfg := DefaultConfig()
	cfg.MaxFrame = 20
	e := NewEngine(mgr, ts, cfg, refFactory)
	e.AddProperty(property)

	res, trace, err := e.Query(context.Background())
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if res != Valid {
		t.Fatalf("expected Valid, got %v (trace=%v)", res, trace)
	}
}

func TestQueryKInductionRequiresDepthBeyondOne(t *testing.T) {
	mgr := term.NewManager()
	ts, property := FibonacciPairInduction(mgr)
	cfg := DefaultConfig()
	cfg.InductionBudget = 3
	cfg.MaxFrame = 6
	e := NewEngine(mgr, ts, cfg, refFactory)
	e.AddProperty(property)

	res, trace, err := e.Query(context.Background())
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if res != Valid {
		t.Fatalf("expected Valid once induction depth beyond one is available, got %v (trace=%v)", res, trace)
	}
}

func TestQueryKInductionBudgetOneInterruptsWithTightFrameLimit(t *testing.T) {
	mgr := term.NewManager()
	ts, property := FibonacciPairInduction(mgr)
	cfg := DefaultConfig()
	cfg.InductionBudget = 1
	cfg.MaxFrame = 1
	e := NewEngine(mgr, ts, cfg, refFactory)
	e.AddProperty(property)

	res, _, err := e.Query(context.Background())
	if err != nil {
		t.Fatalf("Query returned error: %v", err)
	}
	if res != Interrupted {
		t.Fatalf("expected Interrupted when induction depth is capped below what's needed and frames can't make up the difference, got %v", res)
	}
}

func TestResetClearsLearntFrames(t *testing.T) {
	mgr := term.NewManager()
	ts, property, _ := saturatingCounterSystem(mgr)
	e := NewEngine(mgr, ts, DefaultConfig(), refFactory)
	e.AddProperty(property)
	if _, _, err := e.Query(context.Background()); err != nil {
		t.Fatal(err)
	}
	e.Reset()
	if len(e.frames) != 1 {
		t.Fatalf("expected Reset to leave exactly frame 0, got %d frames", len(e.frames))
	}
	if e.queue.Len() != 0 {
		t.Fatal("expected Reset to empty the obligation queue")
	}
}
