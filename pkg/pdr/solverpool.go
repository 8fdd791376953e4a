package pdr

// Architecture overview
//
// A SolverPool owns the incremental smt.Solver instances the engine drives
// while it works one frame at a time. It runs in single-solver-per-frame
// mode: frame i gets its own persistent solver with Frame[i]'s conjunction
// and the transition relation asserted once, so that repeatedly checking
// different candidate "bad" cubes against that frame only costs a
// Push/Assert/Check/Pop, not a full re-assertion. A second, separate solver
// answers the cheaper question "is this cube consistent with the initial
// states" without paying for the transition relation at all.
//
// Frame solvers are invalidated (and lazily rebuilt) whenever the frame
// they track gains a new formula: stale solver state is discarded rather
// than patched.

import (
	"context"
	"fmt"

	"github.com/ic3lab/pdrcheck/internal/smt"
	"github.com/ic3lab/pdrcheck/internal/term"
)

// SolverFactory builds a fresh, empty smt.Solver over mgr. The engine calls
// it once per frame (and once for the initial-state solver); swapping the
// factory swaps the SMT backend without touching any other pdr type.
type SolverFactory func(mgr *term.Manager) smt.Solver

// SolverPool is the engine's solver pool.
type SolverPool struct {
	mgr     *term.Manager
	ts      *TransitionSystem
	factory SolverFactory

	initSolver   smt.Solver
	frameSolvers map[int]smt.Solver
	frameDirty   map[int]bool
}

// NewSolverPool creates a pool over ts using factory to build backend
// solvers.
func NewSolverPool(mgr *term.Manager, ts *TransitionSystem, factory SolverFactory) *SolverPool {
	return &SolverPool{
		mgr:          mgr,
		ts:           ts,
		factory:      factory,
		frameSolvers: make(map[int]smt.Solver),
		frameDirty:   make(map[int]bool),
	}
}

// InvalidateFrame marks frame i's solver stale; the next query against it
// rebuilds from the current frame contents. Call this whenever a formula is
// added to frame i.
func (p *SolverPool) InvalidateFrame(i int) {
	p.frameDirty[i] = true
}

func (p *SolverPool) initSolverOrBuild(ctx context.Context) (smt.Solver, error) {
	if p.initSolver != nil {
		return p.initSolver, nil
	}
	s := p.factory(p.mgr)
	if err := s.Assert(ctx, p.ts.Init, smt.ClassA); err != nil {
		return nil, fmt.Errorf("pdr: asserting init: %w", err)
	}
	p.initSolver = s
	return s, nil
}

func (p *SolverPool) frameSolver(ctx context.Context, i int, frame *Frame) (smt.Solver, error) {
	if s, ok := p.frameSolvers[i]; ok && !p.frameDirty[i] {
		return s, nil
	}
	s := p.factory(p.mgr)
	if err := s.Assert(ctx, frame.Conjunction(p.mgr), smt.ClassA); err != nil {
		return nil, fmt.Errorf("pdr: asserting frame %d: %w", i, err)
	}
	if err := s.Assert(ctx, p.ts.Trans, smt.ClassT); err != nil {
		return nil, fmt.Errorf("pdr: asserting transition relation: %w", err)
	}
	p.frameSolvers[i] = s
	p.frameDirty[i] = false
	return s, nil
}

// QueryInitReachable checks SAT(Init /\ bad): is bad consistent with the
// initial states.
func (p *SolverPool) QueryInitReachable(ctx context.Context, bad term.Ref) (smt.CheckResult, smt.Model, error) {
	s, err := p.initSolverOrBuild(ctx)
	if err != nil {
		return smt.Unknown, nil, err
	}
	if err := s.Push(ctx); err != nil {
		return smt.Unknown, nil, err
	}
	defer s.Pop(ctx)
	if err := s.Assert(ctx, bad, smt.ClassB); err != nil {
		return smt.Unknown, nil, err
	}
	res, err := s.Check(ctx)
	if err != nil {
		return smt.Unknown, nil, err
	}
	if res != smt.Sat {
		return res, nil, nil
	}
	m, err := s.GetModel(ctx)
	return res, m, err
}

// QueryPredecessor checks SAT(Frame[i] /\ T /\ bad'): is there a state in
// frame i that transitions via T into bad. A Sat result's model describes a
// predecessor state (a CTI) for the caller to generalize into a new cube to
// block at frame i.
func (p *SolverPool) QueryPredecessor(ctx context.Context, i int, frame *Frame, bad term.Ref) (smt.CheckResult, smt.Model, error) {
	s, err := p.frameSolver(ctx, i, frame)
	if err != nil {
		return smt.Unknown, nil, err
	}
	badNext := p.mgr.Substitute(bad, p.ts.Type.CurrentToNext())
	if err := s.Push(ctx); err != nil {
		return smt.Unknown, nil, err
	}
	defer s.Pop(ctx)
	if err := s.Assert(ctx, badNext, smt.ClassB); err != nil {
		return smt.Unknown, nil, err
	}
	res, err := s.Check(ctx)
	if err != nil {
		return smt.Unknown, nil, err
	}
	if res != smt.Sat {
		return res, nil, nil
	}
	m, err := s.GetModel(ctx)
	return res, m, err
}

// QueryPropertyViolated checks SAT(Frame[i] /\ not(property)): does frame i
// admit a state violating the property. A Sat model is a fresh bad cube to
// block.
func (p *SolverPool) QueryPropertyViolated(ctx context.Context, i int, frame *Frame, property term.Ref) (smt.CheckResult, smt.Model, error) {
	s, err := p.frameSolver(ctx, i, frame)
	if err != nil {
		return smt.Unknown, nil, err
	}
	notProp := p.mgr.MkTerm(term.OpNot, property)
	if err := s.Push(ctx); err != nil {
		return smt.Unknown, nil, err
	}
	defer s.Pop(ctx)
	if err := s.Assert(ctx, notProp, smt.ClassB); err != nil {
		return smt.Unknown, nil, err
	}
	res, err := s.Check(ctx)
	if err != nil {
		return smt.Unknown, nil, err
	}
	if res != smt.Sat {
		return res, nil, nil
	}
	m, err := s.GetModel(ctx)
	return res, m, err
}

// FrameImplies checks whether Frame[i] logically implies formula (i.e.
// SAT(Frame[i] /\ not(formula)) is Unsat), used to test whether a
// strengthening clause already holds at a frame. The engine's frame
// convergence test does not use it; that test is syntactic.
func (p *SolverPool) FrameImplies(ctx context.Context, i int, frame *Frame, formula term.Ref) (bool, error) {
	s, err := p.frameSolver(ctx, i, frame)
	if err != nil {
		return false, err
	}
	notF := p.mgr.MkTerm(term.OpNot, formula)
	if err := s.Push(ctx); err != nil {
		return false, err
	}
	defer s.Pop(ctx)
	if err := s.Assert(ctx, notF, smt.ClassB); err != nil {
		return false, err
	}
	res, err := s.Check(ctx)
	if err != nil {
		return false, err
	}
	return res == smt.Unsat, nil
}

// Generalize shrinks a cube (a conjunction of literals satisfied by model)
// to a smaller formula still implied by the model, restricted to the state
// variables in vars. It uses the backing solver's own Generalize when
// available and returns smt.ErrUnsupportedFeature when the solver does not
// support it, leaving any fallback cube to the caller.
func (p *SolverPool) Generalize(ctx context.Context, s smt.Solver, vars []term.Ref) (term.Ref, error) {
	if !s.Supports(smt.FeatureModelGeneralization) {
		return term.Ref{}, smt.ErrUnsupportedFeature
	}
	return s.Generalize(ctx, vars)
}

// GeneralizePredecessor shrinks the predecessor model found by the most
// recent QueryPredecessor(i, frame, ...) call into a smaller cube over vars,
// using frame i's own persistent solver. Returns smt.ErrUnsupportedFeature
// when the backend cannot generalize, so callers fall back to a raw
// model-projection cube.
func (p *SolverPool) GeneralizePredecessor(ctx context.Context, i int, frame *Frame, vars []term.Ref) (term.Ref, error) {
	s, err := p.frameSolver(ctx, i, frame)
	if err != nil {
		return term.Ref{}, err
	}
	return p.Generalize(ctx, s, vars)
}

// Reset discards every frame solver. Called after the induction frame is
// rebuilt (e.g. on a restart) so stale assertions are never reused.
func (p *SolverPool) Reset() {
	p.frameSolvers = make(map[int]smt.Solver)
	p.frameDirty = make(map[int]bool)
	p.initSolver = nil
}
