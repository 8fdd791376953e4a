package refsolver

import (
	"context"
	"testing"

	"github.com/ic3lab/pdrcheck/internal/smt"
	"github.com/ic3lab/pdrcheck/internal/term"
)

func TestCheckSimpleBooleanSat(t *testing.T) {
	mgr := term.NewManager()
	s := New(mgr)
	ctx := context.Background()

	x := mgr.MkVariable("x", term.Bool)
	y := mgr.MkVariable("y", term.Bool)
	f := mgr.MkTerm(term.OpOr, x, y)

	if err := s.Assert(ctx, f, smt.ClassT); err != nil {
		t.Fatal(err)
	}
	res, err := s.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res != smt.Sat {
		t.Fatalf("expected sat, got %v", res)
	}
}

func TestCheckSimpleBooleanUnsat(t *testing.T) {
	mgr := term.NewManager()
	s := New(mgr)
	ctx := context.Background()

	x := mgr.MkVariable("x", term.Bool)
	notX := mgr.MkTerm(term.OpNot, x)
	f := mgr.MkTerm(term.OpAnd, x, notX)

	if err := s.Assert(ctx, f, smt.ClassT); err != nil {
		t.Fatal(err)
	}
	res, err := s.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res != smt.Unsat {
		t.Fatalf("expected unsat, got %v", res)
	}
}

func TestCheckLinearArithmetic(t *testing.T) {
	mgr := term.NewManager()
	s := New(mgr)
	ctx := context.Background()

	n := mgr.MkVariable("n", term.Integer)
	zero := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(0))
	five := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(5))

	geq0 := mgr.MkTerm(term.OpGeq, n, zero)
	lt5 := mgr.MkTerm(term.OpLt, n, five)

	if err := s.Assert(ctx, geq0, smt.ClassA); err != nil {
		t.Fatal(err)
	}
	if err := s.Assert(ctx, lt5, smt.ClassA); err != nil {
		t.Fatal(err)
	}
	res, err := s.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res != smt.Sat {
		t.Fatalf("expected sat, got %v", res)
	}
}

func TestCheckLinearArithmeticUnsat(t *testing.T) {
	mgr := term.NewManager()
	s := New(mgr)
	ctx := context.Background()

	n := mgr.MkVariable("n", term.Integer)
	ten := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(10))
	five := mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(5))

	geq10 := mgr.MkTerm(term.OpGeq, n, ten)
	lt5 := mgr.MkTerm(term.OpLt, n, five)

	if err := s.Assert(ctx, geq10, smt.ClassA); err != nil {
		t.Fatal(err)
	}
	if err := s.Assert(ctx, lt5, smt.ClassA); err != nil {
		t.Fatal(err)
	}
	res, err := s.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if res != smt.Unsat {
		t.Fatalf("expected unsat, got %v", res)
	}
}

func TestPushPopRestoresSatisfiability(t *testing.T) {
	mgr := term.NewManager()
	s := New(mgr)
	ctx := context.Background()

	x := mgr.MkVariable("x", term.Bool)
	if err := s.Assert(ctx, x, smt.ClassT); err != nil {
		t.Fatal(err)
	}
	if err := s.Push(ctx); err != nil {
		t.Fatal(err)
	}
	notX := mgr.MkTerm(term.OpNot, x)
	if err := s.Assert(ctx, notX, smt.ClassT); err != nil {
		t.Fatal(err)
	}
	res, _ := s.Check(ctx)
	if res != smt.Unsat {
		t.Fatalf("expected unsat under x && !x, got %v", res)
	}
	if err := s.Pop(ctx); err != nil {
		t.Fatal(err)
	}
	res, _ = s.Check(ctx)
	if res != smt.Sat {
		t.Fatalf("expected sat after Pop, got %v", res)
	}
}

func TestSupports(t *testing.T) {
	mgr := term.NewManager()
	s := New(mgr)
	if s.Supports(smt.FeatureInterpolation) {
		t.Error("refsolver should not claim interpolation support")
	}
	if !s.Supports(smt.FeatureUnsatCore) {
		t.Error("refsolver should support unsat cores")
	}
}

func TestGeneralizeDropsUnneededLiterals(t *testing.T) {
	mgr := term.NewManager()
	s := New(mgr)
	ctx := context.Background()

	x := mgr.MkVariable("x", term.Bool)
	y := mgr.MkVariable("y", term.Bool)
	f := mgr.MkTerm(term.OpOr, x, y)
	if err := s.Assert(ctx, f, smt.ClassT); err != nil {
		t.Fatal(err)
	}
	if res, _ := s.Check(ctx); res != smt.Sat {
		t.Fatal("expected sat")
	}
	g, err := s.Generalize(ctx, []term.Ref{x, y})
	if err != nil {
		t.Fatal(err)
	}
	if g.IsNull() {
		t.Fatal("Generalize returned a null term")
	}
}
