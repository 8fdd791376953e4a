package pdr

// InductionChecker implements the step case of k-induction: given a
// property p, decide whether p holding on k consecutive states chained by
// the transition relation forces p to hold on the (k+1)th state too. Paired
// with a base case (p holds on every state reachable in fewer than k steps,
// checked separately via the reachability prover against the negated
// property) a true step-case result at some k proves p invariant outright,
// independent of how far the frame sequence itself has been pushed.
//
// It keeps its own persistent, incrementally extended solver over k+1
// chained copies of the state variables — the same "extend, don't rebuild"
// discipline the reachability prover and solver pool both apply — so
// repeated calls at growing depths reuse the transition assertions already
// built for shallower ones.

import (
	"context"
	"fmt"

	"github.com/ic3lab/pdrcheck/internal/smt"
	"github.com/ic3lab/pdrcheck/internal/term"
)

// InductionChecker is the step-case prover for k-induction.
type InductionChecker struct {
	mgr     *term.Manager
	ts      *TransitionSystem
	factory SolverFactory

	solver     smt.Solver
	stepVars   [][]term.Ref // stepVars[d][i] is variable i's copy at depth d
	extendedTo int          // highest depth whose transition has been asserted
}

// NewInductionChecker creates a step-case prover over ts.
func NewInductionChecker(mgr *term.Manager, ts *TransitionSystem, factory SolverFactory) *InductionChecker {
	c := &InductionChecker{mgr: mgr, ts: ts, factory: factory}
	c.reset()
	return c
}

func (c *InductionChecker) reset() {
	c.solver = c.factory(c.mgr)
	c.stepVars = nil
	c.extendedTo = -1
	c.allocateStep(0)
}

// Reset discards the cached unrolling, e.g. after a restart rebuilds the
// frame sequence from scratch.
func (c *InductionChecker) Reset() {
	c.reset()
}

// allocateStep returns depth's copy of the state variables, creating it on
// first use. Uses a distinct naming scheme from the reachability prover's
// own per-depth copies so the two provers' variables never collide even
// though they unroll the same transition system.
func (c *InductionChecker) allocateStep(depth int) []term.Ref {
	for len(c.stepVars) <= depth {
		d := len(c.stepVars)
		vars := make([]term.Ref, len(c.ts.Type.Vars))
		for i, v := range c.ts.Type.Vars {
			name := fmt.Sprintf("%s~%d", c.mgr.NameOf(v), d)
			vars[i] = c.mgr.MkVariable(name, c.mgr.TypeOf(v))
		}
		c.stepVars = append(c.stepVars, vars)
	}
	return c.stepVars[depth]
}

func (c *InductionChecker) stepMap(depth int, fromNext bool) map[term.Ref]term.Ref {
	src := c.ts.Type.Vars
	if fromNext {
		src = c.ts.Type.NextVars
	}
	dst := c.allocateStep(depth)
	m := make(map[term.Ref]term.Ref, len(src))
	for i, v := range src {
		m[v] = dst[i]
	}
	return m
}

func (c *InductionChecker) substituteStep(f term.Ref, depth int) term.Ref {
	return c.mgr.Substitute(f, c.stepMap(depth, false))
}

func (c *InductionChecker) combinedStepMap(from, to int) map[term.Ref]term.Ref {
	m := c.stepMap(from, false)
	for k, v := range c.stepMap(to, true) {
		m[k] = v
	}
	return m
}

// extendTo grows the cached chain so every transition from step d-1 to step
// d, for d up to k, has been asserted. Each step's transition gets its own
// fresh copy of the input variables, left otherwise unconstrained: the step
// case must hold for every choice of input at every step, which a plain SAT
// query over those free copies already expresses.
func (c *InductionChecker) extendTo(ctx context.Context, k int) error {
	for d := c.extendedTo + 1; d <= k; d++ {
		if d == 0 {
			continue
		}
		sub := c.combinedStepMap(d-1, d)
		for _, v := range c.ts.Type.InputVars {
			sub[v] = c.mgr.MkVariable(fmt.Sprintf("%s~%d", c.mgr.NameOf(v), d-1), c.mgr.TypeOf(v))
		}
		transAtStep := c.mgr.Substitute(c.ts.Trans, sub)
		if err := c.solver.Assert(ctx, transAtStep, smt.ClassT); err != nil {
			return fmt.Errorf("pdr: extending induction chain to depth %d: %w", d, err)
		}
	}
	if k > c.extendedTo {
		c.extendedTo = k
	}
	return nil
}

// CheckInductive decides the step case at depth k: do k consecutive states
// satisfying property, chained by the transition relation, force the
// (k+1)th state to satisfy it too. The check is scoped to a single
// Push/Assert/Check/Pop so the permanently-asserted transition chain is
// reused by every depth without re-building it.
func (c *InductionChecker) CheckInductive(ctx context.Context, property term.Ref, k int) (bool, error) {
	if k < 1 {
		return false, fmt.Errorf("pdr: induction depth must be at least 1, got %d", k)
	}
	if err := c.extendTo(ctx, k); err != nil {
		return false, err
	}
	if err := c.solver.Push(ctx); err != nil {
		return false, err
	}
	defer c.solver.Pop(ctx)
	for d := 0; d < k; d++ {
		if err := c.solver.Assert(ctx, c.substituteStep(property, d), smt.ClassA); err != nil {
			return false, err
		}
	}
	notPropAtK := c.mgr.MkTerm(term.OpNot, c.substituteStep(property, k))
	if err := c.solver.Assert(ctx, notPropAtK, smt.ClassB); err != nil {
		return false, err
	}
	res, err := c.solver.Check(ctx)
	if err != nil {
		return false, err
	}
	if res == smt.Unknown {
		return false, fmt.Errorf("pdr: induction check at depth %d: %w", k, ErrSMTUnknown)
	}
	return res == smt.Unsat, nil
}

// GCCollect implements term.GCParticipant: every per-depth state variable
// copy in the cached chain is rooted.
func (c *InductionChecker) GCCollect(rl *term.Relocator) {
	for _, vars := range c.stepVars {
		for _, v := range vars {
			rl.Root(v)
		}
	}
}
