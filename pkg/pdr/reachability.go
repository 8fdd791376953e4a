package pdr

// The reachability prover answers a narrower, more expensive question than
// the solver pool's one-step queries: is a given "bad" cube reachable from
// the initial states in *exactly* k steps, for a caller that already
// suspects it might be (typically because pushIfInductive failed to block
// it at frame 0). It keeps its own incrementally extended bounded unrolling
// of the transition relation, growing it step by step and caching each
// depth's state-variable copies and transition assertion so that repeated
// queries at different depths reuse prior work — the same "persistent
// solver, extend don't rebuild" philosophy the solver pool applies per
// frame. A LIFO stack of depth indices still needing their transition
// relation asserted drives that extension; Budget caps how many steps this
// prover will ever unroll to, so a pathological query cannot force
// unbounded work.

import (
	"context"
	"fmt"

	"github.com/ic3lab/pdrcheck/internal/smt"
	"github.com/ic3lab/pdrcheck/internal/term"
)

// Witness is one step of a concrete counterexample path: the model found at
// that step, together with the depth-specific copies of the state and input
// variables it should be read against. InputVars is nil at the final step
// of a witness path, since there is no transition out of it to have chosen
// an input for.
type Witness struct {
	Vars      []term.Ref
	InputVars []term.Ref
	Model     smt.Model
}

// Reachability is the reachability prover.
type Reachability struct {
	mgr     *term.Manager
	ts      *TransitionSystem
	factory SolverFactory
	budget  int

	solver      smt.Solver
	stepVars    [][]term.Ref // stepVars[d][i] is variable i's copy at depth d
	stepInputs  [][]term.Ref // stepInputs[d][i] is input i's copy at the step out of depth d
	extendedTo  int          // highest depth whose transition has been asserted
	pending     []int        // LIFO stack of depths whose transition still needs asserting

	lastCex []Witness
}

// NewReachability creates a reachability prover over ts, bounding unrolling
// to budget steps.
func NewReachability(mgr *term.Manager, ts *TransitionSystem, factory SolverFactory, budget int) *Reachability {
	r := &Reachability{mgr: mgr, ts: ts, factory: factory, budget: budget}
	r.init()
	return r
}

func (r *Reachability) init() {
	r.solver = r.factory(r.mgr)
	r.stepVars = nil
	r.stepInputs = nil
	r.extendedTo = -1
	r.pending = nil
	r.lastCex = nil
	r.allocateStep(0)
	_ = r.solver.Assert(context.Background(), r.substituteStep(r.ts.Init, 0), smt.ClassA)
	r.extendedTo = 0
}

// Clear discards all cached unrolling state.
func (r *Reachability) Clear() {
	r.init()
}

// AddToFrame records that formula f is known to hold (i.e. its negation is
// unreachable) at depth k, asserting it into the cached unrolling so future
// queries at depth k or beyond benefit from the fact without re-deriving it.
func (r *Reachability) AddToFrame(ctx context.Context, k int, f term.Ref) error {
	if k > r.extendedTo {
		if err := r.extendTo(ctx, k); err != nil {
			return err
		}
	}
	return r.solver.Assert(ctx, r.substituteStep(f, k), smt.ClassA)
}

// allocateStep returns depth's copy of the state variables, creating it on
// first use. Depth 0 reuses the transition system's own variables directly
// (no renaming) so that a depth-0 witness reads back against e.ts.Type.Vars
// exactly like every other model the engine collects; only depth >= 1 needs
// a fresh "name!depth" copy to keep each unrolling step distinct.
func (r *Reachability) allocateStep(depth int) []term.Ref {
	for len(r.stepVars) <= depth {
		d := len(r.stepVars)
		if d == 0 {
			r.stepVars = append(r.stepVars, r.ts.Type.Vars)
			continue
		}
		vars := make([]term.Ref, len(r.ts.Type.Vars))
		for i, v := range r.ts.Type.Vars {
			name := fmt.Sprintf("%s!%d", r.mgr.NameOf(v), d)
			vars[i] = r.mgr.MkVariable(name, r.mgr.TypeOf(v))
		}
		r.stepVars = append(r.stepVars, vars)
	}
	return r.stepVars[depth]
}

// allocateInputStep returns the input-variable copies associated with the
// transition step leaving depth (i.e. the step from depth to depth+1),
// creating them on first use. Empty when the system has no input variables.
func (r *Reachability) allocateInputStep(depth int) []term.Ref {
	for len(r.stepInputs) <= depth {
		d := len(r.stepInputs)
		vars := make([]term.Ref, len(r.ts.Type.InputVars))
		for i, v := range r.ts.Type.InputVars {
			name := fmt.Sprintf("%s!%d", r.mgr.NameOf(v), d)
			vars[i] = r.mgr.MkVariable(name, r.mgr.TypeOf(v))
		}
		r.stepInputs = append(r.stepInputs, vars)
	}
	return r.stepInputs[depth]
}

func (r *Reachability) inputStepMap(depth int) map[term.Ref]term.Ref {
	dst := r.allocateInputStep(depth)
	m := make(map[term.Ref]term.Ref, len(dst))
	for i, v := range r.ts.Type.InputVars {
		m[v] = dst[i]
	}
	return m
}

func (r *Reachability) stepMap(depth int, fromNext bool) map[term.Ref]term.Ref {
	src := r.ts.Type.Vars
	if fromNext {
		src = r.ts.Type.NextVars
	}
	dst := r.allocateStep(depth)
	m := make(map[term.Ref]term.Ref, len(src))
	for i, v := range src {
		m[v] = dst[i]
	}
	return m
}

// substituteStep rewrites a current-state formula to be about depth's state
// variables.
func (r *Reachability) substituteStep(f term.Ref, depth int) term.Ref {
	return r.mgr.Substitute(f, r.stepMap(depth, false))
}

// extendTo grows the cached unrolling so that depth k's state variables
// exist and every transition up to k has been asserted.
func (r *Reachability) extendTo(ctx context.Context, k int) error {
	if k > r.budget {
		return fmt.Errorf("pdr: reachability unrolling depth %d exceeds budget %d", k, r.budget)
	}
	for d := r.extendedTo + 1; d <= k; d++ {
		r.pending = append(r.pending, d)
	}
	for len(r.pending) > 0 {
		d := r.pending[len(r.pending)-1]
		r.pending = r.pending[:len(r.pending)-1]

		r.allocateStep(d)
		r.allocateStep(d - 1)
		sub := r.combinedStepMap(d-1, d)
		for k, v := range r.inputStepMap(d - 1) {
			sub[k] = v
		}
		transAtStep := r.mgr.Substitute(r.ts.Trans, sub)
		if err := r.solver.Assert(ctx, transAtStep, smt.ClassT); err != nil {
			return fmt.Errorf("pdr: extending reachability unrolling to depth %d: %w", d, err)
		}
		if d > r.extendedTo {
			r.extendedTo = d
		}
	}
	return nil
}

func (r *Reachability) combinedStepMap(from, to int) map[term.Ref]term.Ref {
	m := r.stepMap(from, false)
	for k, v := range r.stepMap(to, true) {
		m[k] = v
	}
	return m
}

// CheckReachable decides whether bad (a current-state formula) is reachable
// from the initial states in exactly k steps. On a Sat result it records the
// witness path retrievable with GetCex.
func (r *Reachability) CheckReachable(ctx context.Context, k int, bad term.Ref) (bool, error) {
	if k > r.budget {
		return false, fmt.Errorf("pdr: reachability query at depth %d exceeds budget %d", k, r.budget)
	}
	if k > r.extendedTo {
		if err := r.extendTo(ctx, k); err != nil {
			return false, err
		}
	}
	badAtK := r.substituteStep(bad, k)

	if err := r.solver.Push(ctx); err != nil {
		return false, err
	}
	defer r.solver.Pop(ctx)
	if err := r.solver.Assert(ctx, badAtK, smt.ClassB); err != nil {
		return false, err
	}
	res, err := r.solver.Check(ctx)
	if err != nil {
		return false, err
	}
	if res == smt.Unknown {
		return false, fmt.Errorf("pdr: reachability check at depth %d: %w", k, ErrSMTUnknown)
	}
	if res == smt.Unsat {
		r.lastCex = nil
		return false, nil
	}
	model, err := r.solver.GetModel(ctx)
	if err != nil {
		return false, err
	}
	cex := make([]Witness, k+1)
	for d := 0; d <= k; d++ {
		var inputVars []term.Ref
		if d < k {
			inputVars = r.allocateInputStep(d)
		}
		cex[d] = Witness{Vars: r.allocateStep(d), InputVars: inputVars, Model: model}
	}
	r.lastCex = cex
	return true, nil
}

// GetCex returns the witness path found by the most recent successful
// CheckReachable call.
func (r *Reachability) GetCex() []Witness {
	return r.lastCex
}

// GCCollect implements term.GCParticipant: every per-depth state variable
// copy still within the current unrolling is rooted.
func (r *Reachability) GCCollect(rl *term.Relocator) {
	for _, vars := range r.stepVars {
		for _, v := range vars {
			rl.Root(v)
		}
	}
	for _, vars := range r.stepInputs {
		for _, v := range vars {
			rl.Root(v)
		}
	}
}
