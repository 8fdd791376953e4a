package pdr

import (
	"context"
	"testing"

	"github.com/ic3lab/pdrcheck/internal/smt"
	"github.com/ic3lab/pdrcheck/internal/term"
)

func TestQueryInitReachable(t *testing.T) {
	mgr := term.NewManager()
	ts, _, n := saturatingCounterSystem(mgr)
	pool := NewSolverPool(mgr, ts, refFactory)

	zero := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(0))
	atZero := mgr.MkTerm(term.OpEq, n, zero)
	res, model, err := pool.QueryInitReachable(context.Background(), atZero)
	if err != nil {
		t.Fatalf("QueryInitReachable returned error: %v", err)
	}
	if res != smt.Sat || model == nil {
		t.Fatalf("expected Sat with a model for n == 0 against Init, got %v", res)
	}

	one := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(1))
	atOne := mgr.MkTerm(term.OpEq, n, one)
	res, _, err = pool.QueryInitReachable(context.Background(), atOne)
	if err != nil {
		t.Fatalf("QueryInitReachable returned error: %v", err)
	}
	if res != smt.Unsat {
		t.Fatalf("expected Unsat for n == 1 against Init (n == 0), got %v", res)
	}
}

func TestFrameImpliesDetectsSubsumption(t *testing.T) {
	mgr := term.NewManager()
	ts, _, n := saturatingCounterSystem(mgr)
	pool := NewSolverPool(mgr, ts, refFactory)

	frame := NewFrame()
	five := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(5))
	ten := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(10))
	frame.Add(mgr.MkTerm(term.OpLeq, n, five))

	implied, err := pool.FrameImplies(context.Background(), 1, frame, mgr.MkTerm(term.OpLeq, n, ten))
	if err != nil {
		t.Fatalf("FrameImplies returned error: %v", err)
	}
	if !implied {
		t.Fatal("expected n <= 5 to imply n <= 10")
	}

	implied, err = pool.FrameImplies(context.Background(), 1, frame, mgr.MkTerm(term.OpLeq, n, mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(1))))
	if err != nil {
		t.Fatalf("FrameImplies returned error: %v", err)
	}
	if implied {
		t.Fatal("did not expect n <= 5 to imply n <= 1")
	}
}

func TestGeneralizePredecessorShrinksTheCube(t *testing.T) {
	mgr := term.NewManager()
	ts, _, n := saturatingCounterSystem(mgr)
	pool := NewSolverPool(mgr, ts, refFactory)

	frame := NewFrame()
	bad := mgr.MkTerm(term.OpEq, n, mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(4)))

	res, _, err := pool.QueryPredecessor(context.Background(), 1, frame, bad)
	if err != nil {
		t.Fatalf("QueryPredecessor returned error: %v", err)
	}
	if res != smt.Sat {
		t.Fatalf("expected a predecessor of n == 4 to exist at an empty frame, got %v", res)
	}

	cube, err := pool.GeneralizePredecessor(context.Background(), 1, frame, []term.Ref{n})
	if err != nil {
		t.Fatalf("GeneralizePredecessor returned error: %v", err)
	}
	if cube.IsNull() {
		t.Fatal("expected a non-null generalized cube")
	}
}
