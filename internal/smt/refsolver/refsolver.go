// Package refsolver is a reference SMT backend: a small decision procedure
// for booleans and linear integer/rational arithmetic, good enough to
// discharge the scenarios PDR exercises in this repository. It is not a
// production SMT engine — it exists so pkg/pdr can be driven and tested
// end-to-end without a real external solver dependency.
package refsolver

import (
	"context"
	"fmt"
	"sort"

	"github.com/ic3lab/pdrcheck/internal/smt"
	"github.com/ic3lab/pdrcheck/internal/term"
)

// Solver is a reference smt.Solver implementation over booleans and linear
// arithmetic.
type Solver struct {
	mgr *term.Manager

	// scopes[i] holds the formulas asserted since the i-th Push (scopes[0]
	// is the base scope, always present).
	scopes [][]scopedFormula

	lastResult   smt.CheckResult
	lastModel    *refModel
	lastUnsatSet []term.Ref
}

type scopedFormula struct {
	ref   term.Ref
	class smt.FormulaClass
}

// New creates a Solver over the given term manager.
func New(mgr *term.Manager) *Solver {
	return &Solver{mgr: mgr, scopes: [][]scopedFormula{{}}}
}

func (s *Solver) Assert(ctx context.Context, f term.Ref, class smt.FormulaClass) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	top := len(s.scopes) - 1
	s.scopes[top] = append(s.scopes[top], scopedFormula{ref: f, class: class})
	return nil
}

func (s *Solver) Push(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.scopes = append(s.scopes, nil)
	return nil
}

func (s *Solver) Pop(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(s.scopes) <= 1 {
		return fmt.Errorf("refsolver: Pop with no open scope")
	}
	s.scopes = s.scopes[:len(s.scopes)-1]
	return nil
}

func (s *Solver) allAssertions() []term.Ref {
	var out []term.Ref
	for _, scope := range s.scopes {
		for _, sf := range scope {
			out = append(out, sf.ref)
		}
	}
	return out
}

func (s *Solver) classAAssertions() []term.Ref {
	var out []term.Ref
	for _, scope := range s.scopes {
		for _, sf := range scope {
			if sf.class == smt.ClassA {
				out = append(out, sf.ref)
			}
		}
	}
	return out
}

// Check implements smt.Solver. It extracts the boolean/arithmetic atoms of
// the current assertion set, searches over boolean case splits, and checks
// each candidate assignment's arithmetic atoms for joint feasibility via
// Fourier-Motzkin elimination (linear.go).
func (s *Solver) Check(ctx context.Context) (smt.CheckResult, error) {
	if err := ctx.Err(); err != nil {
		return smt.Unknown, err
	}
	assertions := s.allAssertions()

	atoms := map[term.Ref]bool{}
	for _, a := range assertions {
		collectAtoms(s.mgr, a, atoms)
	}
	atomList := make([]term.Ref, 0, len(atoms))
	for a := range atoms {
		atomList = append(atomList, a)
	}
	sort.Slice(atomList, func(i, j int) bool { return atomList[i].Less(atomList[j]) })

	assignment := make(map[term.Ref]bool, len(atomList))
	model, ok := search(ctx, s.mgr, assertions, atomList, 0, assignment)
	if err := ctx.Err(); err != nil {
		return smt.Unknown, err
	}
	if !ok {
		s.lastResult = smt.Unsat
		s.lastModel = nil
		s.lastUnsatSet = assertions
		return smt.Unsat, nil
	}
	s.lastResult = smt.Sat
	s.lastModel = model
	return smt.Sat, nil
}

// search performs the boolean case split: it recursively assigns each
// remaining atom true/false, and at a leaf where
// every assertion is satisfied by the skeleton it checks the arithmetic
// atoms for joint feasibility.
func search(ctx context.Context, mgr *term.Manager, assertions []term.Ref, atoms []term.Ref, idx int, assignment map[term.Ref]bool) (*refModel, bool) {
	if err := ctx.Err(); err != nil {
		return nil, false
	}
	if idx == len(atoms) {
		for _, a := range assertions {
			v, ok := evaluate(mgr, a, assignment)
			if !ok || !v {
				return nil, false
			}
		}
		cs := arithmeticConstraints(mgr, atoms, assignment)
		ok, witness := feasible(cs)
		if !ok {
			return nil, false
		}
		return &refModel{mgr: mgr, atoms: cloneBoolMap(assignment), values: witness}, true
	}

	a := atoms[idx]
	for _, v := range []bool{true, false} {
		assignment[a] = v
		if partialConsistent(mgr, assertions, assignment) {
			if m, ok := search(ctx, mgr, assertions, atoms, idx+1, assignment); ok {
				return m, true
			}
		}
	}
	delete(assignment, a)
	return nil, false
}

// partialConsistent prunes assignments that already make some assertion
// false under three-valued evaluation (unassigned atoms treated as unknown).
func partialConsistent(mgr *term.Manager, assertions []term.Ref, assignment map[term.Ref]bool) bool {
	for _, a := range assertions {
		if v, ok := evaluate(mgr, a, assignment); ok && !v {
			return false
		}
	}
	return true
}

func arithmeticConstraints(mgr *term.Manager, atoms []term.Ref, assignment map[term.Ref]bool) []constraint {
	var cs []constraint
	for _, a := range atoms {
		c, ok := normalizeAtom(mgr, a)
		if !ok {
			continue
		}
		truth := assignment[a]
		if !truth {
			c = c.negated()
		}
		cs = append(cs, c)
	}
	return cs
}

func cloneBoolMap(m map[term.Ref]bool) map[term.Ref]bool {
	cp := make(map[term.Ref]bool, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}

// collectAtoms walks t, collecting every maximal boolean-valued leaf: plain
// boolean variables and arithmetic comparisons. Boolean connectives
// (And/Or/Not/Implies/Xor) are descended through; Ite and boolean Eq are
// treated as connectives too, so only their condition/operands are atoms
// when those are themselves atomic.
func collectAtoms(mgr *term.Manager, t term.Ref, out map[term.Ref]bool) {
	switch mgr.OpOf(t) {
	case term.OpAnd, term.OpOr, term.OpNot, term.OpImplies, term.OpXor:
		for _, c := range mgr.ChildrenOf(t) {
			collectAtoms(mgr, c, out)
		}
	case term.OpIte:
		kids := mgr.ChildrenOf(t)
		for _, c := range kids {
			collectAtoms(mgr, c, out)
		}
	case term.OpEq:
		if mgr.TypeOf(t).Kind == term.KindBool {
			for _, c := range mgr.ChildrenOf(t) {
				collectAtoms(mgr, c, out)
			}
			return
		}
		out[t] = true
	case term.OpLeq, term.OpLt, term.OpGeq, term.OpGt:
		out[t] = true
	case term.OpVariable:
		if mgr.TypeOf(t).Kind == term.KindBool {
			out[t] = true
		}
	case term.OpConstant:
		// true/false constants fold away during evaluation; not an atom.
	}
}

// evaluate computes the three-valued truth of t under assignment: ok is
// false if evaluation depends on an atom not yet in assignment.
func evaluate(mgr *term.Manager, t term.Ref, assignment map[term.Ref]bool) (bool, bool) {
	switch mgr.OpOf(t) {
	case term.OpConstant:
		if v, ok := mgr.BoolValue(t); ok {
			return v, true
		}
		return false, false
	case term.OpVariable:
		if mgr.TypeOf(t).Kind != term.KindBool {
			return false, false
		}
		v, ok := assignment[t]
		return v, ok
	case term.OpNot:
		kids := mgr.ChildrenOf(t)
		v, ok := evaluate(mgr, kids[0], assignment)
		return !v, ok
	case term.OpAnd:
		allKnown := true
		for _, c := range mgr.ChildrenOf(t) {
			v, ok := evaluate(mgr, c, assignment)
			if ok && !v {
				return false, true
			}
			if !ok {
				allKnown = false
			}
		}
		return true, allKnown
	case term.OpOr:
		allKnown := true
		for _, c := range mgr.ChildrenOf(t) {
			v, ok := evaluate(mgr, c, assignment)
			if ok && v {
				return true, true
			}
			if !ok {
				allKnown = false
			}
		}
		return false, allKnown
	case term.OpImplies:
		kids := mgr.ChildrenOf(t)
		lv, lok := evaluate(mgr, kids[0], assignment)
		if lok && !lv {
			return true, true
		}
		rv, rok := evaluate(mgr, kids[1], assignment)
		if rok && rv {
			return true, true
		}
		if lok && rok {
			return !lv || rv, true
		}
		return false, false
	case term.OpXor:
		kids := mgr.ChildrenOf(t)
		lv, lok := evaluate(mgr, kids[0], assignment)
		rv, rok := evaluate(mgr, kids[1], assignment)
		if !lok || !rok {
			return false, false
		}
		return lv != rv, true
	case term.OpIte:
		kids := mgr.ChildrenOf(t)
		cv, cok := evaluate(mgr, kids[0], assignment)
		if !cok {
			return false, false
		}
		if cv {
			return evaluate(mgr, kids[1], assignment)
		}
		return evaluate(mgr, kids[2], assignment)
	case term.OpEq:
		if mgr.TypeOf(t).Kind == term.KindBool {
			kids := mgr.ChildrenOf(t)
			lv, lok := evaluate(mgr, kids[0], assignment)
			rv, rok := evaluate(mgr, kids[1], assignment)
			if !lok || !rok {
				return false, false
			}
			return lv == rv, true
		}
		v, ok := assignment[t]
		return v, ok
	case term.OpLeq, term.OpLt, term.OpGeq, term.OpGt:
		v, ok := assignment[t]
		return v, ok
	default:
		return false, false
	}
}

func (s *Solver) GetModel(ctx context.Context) (smt.Model, error) {
	if s.lastResult != smt.Sat || s.lastModel == nil {
		return nil, smt.ErrNoModel
	}
	return s.lastModel, nil
}

// Generalize drops literals from the projection of the last model that are
// not needed to keep the cube satisfiable together with the current
// assertions.
func (s *Solver) Generalize(ctx context.Context, proj []term.Ref) (term.Ref, error) {
	if s.lastResult != smt.Sat || s.lastModel == nil {
		return term.Ref{}, smt.ErrNoModel
	}
	lits := make([]term.Ref, 0, len(proj))
	for _, v := range proj {
		lits = append(lits, literalFor(s.mgr, v, s.lastModel))
	}

	kept := append([]term.Ref(nil), lits...)
	assertions := s.allAssertions()
	for i := 0; i < len(kept); i++ {
		if err := ctx.Err(); err != nil {
			return term.Ref{}, err
		}
		candidate := append(append([]term.Ref(nil), kept[:i]...), kept[i+1:]...)
		if stillSat(s.mgr, assertions, candidate) {
			kept = candidate
			i--
		}
	}
	if len(kept) == 0 {
		return s.mgr.MkBoolConstant(true), nil
	}
	return s.mgr.MkTerm(term.OpAnd, kept...), nil
}

func literalFor(mgr *term.Manager, v term.Ref, model *refModel) term.Ref {
	switch mgr.OpOf(v) {
	case term.OpLeq, term.OpLt, term.OpGeq, term.OpGt, term.OpEq:
		if model.IsTrue(v) {
			return v
		}
		return mgr.MkTerm(term.OpNot, v)
	case term.OpVariable:
		if mgr.TypeOf(v).Kind == term.KindBool {
			if model.IsTrue(v) {
				return v
			}
			return mgr.MkTerm(term.OpNot, v)
		}
		if rv, ok := model.ValueOf(v); ok {
			c := mgr.MkRationalConstant(mgr.TypeOf(v), rv)
			return mgr.MkTerm(term.OpEq, v, c)
		}
	}
	return mgr.MkBoolConstant(true)
}

// stillSat re-checks feasibility of assertions conjoined with cube, reusing
// the same search machinery as Check but over a fresh, scoped solver so it
// does not disturb s's own state.
func stillSat(mgr *term.Manager, assertions []term.Ref, cube []term.Ref) bool {
	all := append(append([]term.Ref(nil), assertions...), cube...)
	atoms := map[term.Ref]bool{}
	for _, a := range all {
		collectAtoms(mgr, a, atoms)
	}
	atomList := make([]term.Ref, 0, len(atoms))
	for a := range atoms {
		atomList = append(atomList, a)
	}
	sort.Slice(atomList, func(i, j int) bool { return atomList[i].Less(atomList[j]) })
	ctx := context.Background()
	_, ok := search(ctx, mgr, all, atomList, 0, map[term.Ref]bool{})
	return ok
}

// Interpolate is unsupported by refsolver; Supports(FeatureInterpolation)
// reports false so callers take the documented fallback path instead of
// calling this.
func (s *Solver) Interpolate(ctx context.Context) (term.Ref, error) {
	return term.Ref{}, smt.ErrUnsupportedFeature
}

// UnsatCore returns the full asserted set; refsolver does not minimize it.
func (s *Solver) UnsatCore(ctx context.Context) ([]term.Ref, error) {
	if s.lastResult != smt.Unsat {
		return nil, fmt.Errorf("refsolver: UnsatCore called without a preceding Unsat Check")
	}
	return append([]term.Ref(nil), s.lastUnsatSet...), nil
}

func (s *Solver) Supports(f smt.Feature) bool {
	switch f {
	case smt.FeatureUnsatCore:
		return true
	case smt.FeatureModelGeneralization:
		return true
	case smt.FeatureInterpolation:
		return false
	default:
		return false
	}
}
