package pdr

// Query is the entry point; search is its outer per-frame loop;
// pushCurrentFrame drains the induction obligation queue at one frame,
// calling pushIfInductive on each obligation; extendInductionFailure walks a
// falsified obligation's parent chain back out to a concrete counterexample
// trace. Each frame advance also gets one attempt at k-induction, via
// tryKInduction, which can prove the property Valid outright independent of
// how far the frame sequence itself has converged. Errors are returned
// explicitly rather than through exceptions, and a context.Context is
// threaded through every call that can block on an SMT Check.

import (
	"context"
	"fmt"
	"strings"

	"github.com/ic3lab/pdrcheck/internal/smt"
	"github.com/ic3lab/pdrcheck/internal/term"
)

// Config holds the engine's tunables, bound to CLI flags by internal/config.
type Config struct {
	MaxFrame         int  // ic3-max: 0 means unbounded
	InductionBudget  int  // ic3-induction-max: maximum k-induction depth to attempt; 0 = unlimited
	ShowInvariant    bool // ic3-show-invariant
	EnableRestarts   bool // ic3-enable-restarts
	NoInitialState   bool // ic3-no-initial-state
	DumpDependencies bool // ic3-dump-dependencies
	ReachabilityMax  int  // bound passed to the reachability prover
}

// DefaultConfig returns the engine's default tunables.
func DefaultConfig() Config {
	return Config{MaxFrame: 0, InductionBudget: 0, ReachabilityMax: 1000}
}

// Engine is the top-level PDR engine.
type Engine struct {
	mgr *term.Manager
	ts  *TransitionSystem
	cfg Config

	pool  *SolverPool
	reach *Reachability
	ind   *InductionChecker

	indCheckedTo int // highest k-induction depth already ruled out this search

	frames []*Frame
	deps   *dependencyGraph
	queue  *ObligationQueue

	properties      []term.Ref
	propertyInvalid map[term.Ref]bool

	witness map[term.Ref]smt.Model

	invariant    term.Ref
	hasInvariant bool

	dependencyDump []string
}

// NewEngine constructs an engine over ts using factory to build backend SMT
// solvers. Call AddProperty at least once before Query.
func NewEngine(mgr *term.Manager, ts *TransitionSystem, cfg Config, factory SolverFactory) *Engine {
	e := &Engine{
		mgr:             mgr,
		ts:              ts,
		cfg:             cfg,
		pool:            NewSolverPool(mgr, ts, factory),
		deps:            newDependencyGraph(),
		queue:           NewObligationQueue(),
		propertyInvalid: make(map[term.Ref]bool),
		witness:         make(map[term.Ref]smt.Model),
	}
	reachBudget := cfg.ReachabilityMax
	if reachBudget <= 0 {
		reachBudget = 1000
	}
	e.reach = NewReachability(mgr, ts, factory, reachBudget)
	mgr.RegisterGCParticipant(e.reach)
	e.ind = NewInductionChecker(mgr, ts, factory)
	mgr.RegisterGCParticipant(e.ind)
	mgr.RegisterGCParticipant(e)
	e.frames = []*Frame{NewFrame()}
	e.frames[0].Add(ts.Init)
	return e
}

// GCCollect implements term.GCParticipant: every formula the engine still
// needs across a collection pass — the transition system itself, the added
// properties, every learnt frame formula, every still-queued obligation,
// the witness models' keys, and any recorded invariant — is rooted here, so
// a Collect call between Query invocations (per GC's doc comment) can't
// delete state the engine will dereference on its next search.
func (e *Engine) GCCollect(rl *term.Relocator) {
	rl.Root(e.ts.Init)
	rl.Root(e.ts.Trans)
	for _, v := range e.ts.Type.Vars {
		rl.Root(v)
	}
	for _, v := range e.ts.Type.NextVars {
		rl.Root(v)
	}
	for _, v := range e.ts.Type.InputVars {
		rl.Root(v)
	}
	for _, p := range e.properties {
		rl.Root(p)
	}
	for _, fr := range e.frames {
		for _, f := range fr.Formulas() {
			rl.Root(f)
		}
	}
	for _, f := range e.queue.Formulas() {
		rl.Root(f)
	}
	for f := range e.witness {
		rl.Root(f)
	}
	if e.hasInvariant {
		rl.Root(e.invariant)
	}
}

// AddProperty adds a safety property to check, recursively splitting a
// top-level conjunction into independent conjuncts, so a failure on one
// conjunct doesn't block progress on the others.
func (e *Engine) AddProperty(p term.Ref) {
	if e.mgr.OpOf(p) == term.OpAnd {
		for _, c := range e.mgr.ChildrenOf(p) {
			e.AddProperty(c)
		}
		return
	}
	e.properties = append(e.properties, p)
}

// Reset clears all learnt state, restarting the search from frame 0 = Init.
// Used both for an explicit restart (ic3-enable-restarts) and before a fresh
// Query on a reused Engine.
func (e *Engine) Reset() {
	e.frames = []*Frame{NewFrame()}
	e.frames[0].Add(e.ts.Init)
	e.deps = newDependencyGraph()
	e.queue = NewObligationQueue()
	e.propertyInvalid = make(map[term.Ref]bool)
	e.witness = make(map[term.Ref]smt.Model)
	e.indCheckedTo = 0
	e.invariant = term.Ref{}
	e.hasInvariant = false
	e.dependencyDump = nil
	e.pool.Reset()
	e.reach.Clear()
	e.ind.Reset()
}

// GC runs a garbage collection pass on the engine's term manager. Safe to
// call only when the engine is idle between SMT checks.
func (e *Engine) GC() {
	e.mgr.Collect()
}

// Invariant returns the inductive invariant discovered by the most recent
// Valid Query, and whether one was recorded.
func (e *Engine) Invariant() (term.Ref, bool) {
	return e.invariant, e.hasInvariant
}

// DependencyDumps returns one DOT-graph snapshot of the parent/refutes
// dependency graph per frame advance made during the most recent Query,
// recorded only when Config.DumpDependencies is set.
func (e *Engine) DependencyDumps() []string {
	return e.dependencyDump
}

// checkInitReachable decides whether bad holds in some initial state. It
// tries the solver pool's lighter init-only solver first: a negative answer
// there settles the question without paying for the reachability prover's
// persistent unrolling machinery, since "is bad consistent with Init" is
// the exact same question as CheckReachable at depth 0. Only a positive
// answer falls through to the heavier call, to recover a witness model via
// GetCex for trace building.
func (e *Engine) checkInitReachable(ctx context.Context, bad term.Ref) (bool, error) {
	sat, _, err := e.pool.QueryInitReachable(ctx, bad)
	if err != nil {
		return false, err
	}
	if sat == smt.Unknown {
		return false, fmt.Errorf("%w", ErrSMTUnknown)
	}
	if sat == smt.Unsat {
		return false, nil
	}
	return e.reach.CheckReachable(ctx, 0, bad)
}

// Query is the top-level entry point: it decides whether every added
// property holds on every state reachable from Init, returning Valid,
// Invalid (with a Trace), Unknown, or Interrupted.
func (e *Engine) Query(ctx context.Context) (Result, *Trace, error) {
	if len(e.properties) == 0 {
		return Unknown, nil, fmt.Errorf("%w: no property to check", ErrInvalidInput)
	}
	property := e.mgr.MkBoolConstant(true)
	if len(e.properties) == 1 {
		property = e.properties[0]
	} else {
		property = e.mgr.MkTerm(term.OpAnd, e.properties...)
	}

	if !e.cfg.NoInitialState {
		reachable, err := e.checkInitReachable(ctx, e.mgr.MkTerm(term.OpNot, property))
		if err != nil {
			return Unknown, nil, err
		}
		if reachable {
			cex := e.reach.GetCex()
			return Invalid, &Trace{States: []State{{Model: cex[0].Model, Vars: cex[0].Vars}}}, nil
		}
	}

	return e.search(ctx, property)
}

func (e *Engine) search(ctx context.Context, property term.Ref) (Result, *Trace, error) {
	for k := 1; ; k++ {
		if err := ctx.Err(); err != nil {
			return Interrupted, nil, nil
		}
		if e.cfg.MaxFrame > 0 && k > e.cfg.MaxFrame {
			return Interrupted, nil, nil
		}
		for len(e.frames) <= k {
			e.frames = append(e.frames, NewFrame())
		}

		indCap := k
		if e.cfg.InductionBudget > 0 && e.cfg.InductionBudget < indCap {
			indCap = e.cfg.InductionBudget
		}
		if indCap > e.indCheckedTo {
			valid, err := e.tryKInduction(ctx, property, indCap)
			if err != nil {
				return Unknown, nil, err
			}
			if valid {
				return Valid, nil, nil
			}
		}

		for {
			sat, model, err := e.pool.QueryPropertyViolated(ctx, k, e.frames[k], property)
			if err != nil {
				return Unknown, nil, err
			}
			if sat == smt.Unknown {
				return Unknown, nil, fmt.Errorf("%w", ErrSMTUnknown)
			}
			if sat == smt.Unsat {
				break
			}
			notProp := e.mgr.MkTerm(term.OpNot, property)
			cube := e.cubeFromModel(notProp, model)
			e.witness[cube] = model
			seed := &Obligation{Formula: cube, Frame: k, Budget: e.defaultBudget(k)}
			e.queue.Enqueue(seed)

			invalid, trace, err := e.pushCurrentFrame(ctx)
			if err != nil {
				return Unknown, nil, err
			}
			if trace != nil {
				return Invalid, trace, nil
			}
			if invalid {
				return Invalid, nil, nil
			}
		}

		if err := e.propagate(ctx, k); err != nil {
			return Unknown, nil, err
		}
		if e.cfg.DumpDependencies {
			e.dependencyDump = append(e.dependencyDump, e.dependencyDOT())
		}
		for i := 1; i <= k; i++ {
			if e.framesConverged(i) {
				e.invariant = e.frames[i].Conjunction(e.mgr)
				e.hasInvariant = true
				return Valid, nil, nil
			}
		}

		if e.cfg.EnableRestarts && k > 1 && k%8 == 0 {
			e.Reset()
			return Unknown, nil, nil
		}
	}
}

// tryKInduction attempts to prove property invariant by k-induction,
// growing the attempted depth from whatever has already been ruled out up
// to cap (cap itself grows with the outer frame index, so induction depth
// keeps pace with frame advance). A true result proves the property Valid
// outright, independent of the frame sequence's own convergence; a false
// result leaves standard frame-based search to keep making progress in the
// meantime.
func (e *Engine) tryKInduction(ctx context.Context, property term.Ref, cap int) (bool, error) {
	for d := e.indCheckedTo + 1; d <= cap; d++ {
		holds, err := e.baseCaseHolds(ctx, property, d)
		if err != nil {
			return false, err
		}
		if !holds {
			e.indCheckedTo = d
			continue
		}
		inductive, err := e.ind.CheckInductive(ctx, property, d)
		if err != nil {
			return false, err
		}
		e.indCheckedTo = d
		if inductive {
			e.invariant = property
			e.hasInvariant = true
			return true, nil
		}
	}
	return false, nil
}

// baseCaseHolds checks property on every state reachable in fewer than d
// steps, via the exact reachability prover.
func (e *Engine) baseCaseHolds(ctx context.Context, property term.Ref, d int) (bool, error) {
	notProperty := e.mgr.MkTerm(term.OpNot, property)
	for j := 0; j < d; j++ {
		reachable, err := e.reach.CheckReachable(ctx, j, notProperty)
		if err != nil {
			return false, err
		}
		if reachable {
			return false, nil
		}
	}
	return true, nil
}

// pushCurrentFrame drains the obligation queue, returning (true, trace) when
// an obligation is found to be genuinely reachable from the initial states
// (a real counterexample), or (false, nil) once the queue empties cleanly.
func (e *Engine) pushCurrentFrame(ctx context.Context) (bool, *Trace, error) {
	for e.queue.Len() > 0 {
		ob := e.queue.Pop()
		result, err := e.pushIfInductive(ctx, ob)
		if err != nil {
			return false, nil, err
		}
		switch result {
		case inductionSuccess:
			continue
		case inductionRetry:
			continue
		case inductionFail:
			trace := e.extendInductionFailure(ob)
			return true, trace, nil
		case inductionInconclusive:
			return false, nil, fmt.Errorf("%w", ErrSMTUnknown)
		case inductionGiveUp:
			// ob's own retry budget ran out without frame[ob.Frame] ever being
			// strengthened against it: that frame still contains the exact
			// cube QueryPropertyViolated will find again, so returning here
			// (rather than treating this like an ordinary retry) keeps search
			// from spinning on a query whose answer can't change. Reported
			// the same way a genuine solver Unknown would be, since from the
			// caller's perspective both mean "could not settle this branch".
			return false, nil, fmt.Errorf("%w: obligation retry budget exhausted at frame %d", ErrSMTUnknown, ob.Frame)
		}
	}
	return false, nil, nil
}

type inductionResult int

const (
	inductionSuccess inductionResult = iota
	inductionFail
	inductionInconclusive
	inductionRetry
	inductionGiveUp
)

// pushIfInductive tries to show ob.Formula can never be reached one step
// from frame ob.Frame-1 (or, when ob.Frame is 0, that it is disjoint from
// Init outright). On success it strengthens frame ob.Frame with the learnt
// blocking formula; on failure it generalizes the predecessor state into a
// new, higher-priority obligation at ob.Frame-1. If ob still has retry
// budget left it is re-enqueued (its score decayed first, via Bump, so
// repeated retries don't crowd out fresher obligations at the same frame);
// once its budget is exhausted it is dropped, its formula marked invalid so
// propagate never pushes it (or anything derived from it) forward, and the
// caller is told to give up rather than silently letting frame[ob.Frame]
// stay unblocked against it.
func (e *Engine) pushIfInductive(ctx context.Context, ob *Obligation) (inductionResult, error) {
	if ob.Frame == 0 {
		reachable, err := e.checkInitReachable(ctx, ob.Formula)
		if err != nil {
			return inductionInconclusive, err
		}
		if !reachable {
			return inductionSuccess, nil
		}
		if cex := e.reach.GetCex(); len(cex) > 0 {
			e.witness[ob.Formula] = cex[0].Model
		}
		return inductionFail, nil
	}

	i := ob.Frame - 1
	sat, model, err := e.pool.QueryPredecessor(ctx, i, e.frames[i], ob.Formula)
	if err != nil {
		return inductionInconclusive, err
	}
	switch sat {
	case smt.Unsat:
		learned := e.mgr.MkTerm(term.OpNot, ob.Formula)
		if err := e.addLearnedFormula(ctx, ob.Frame, learned); err != nil {
			return inductionInconclusive, err
		}
		return inductionSuccess, nil
	case smt.Sat:
		predCube, err := e.pool.GeneralizePredecessor(ctx, i, e.frames[i], e.ts.Type.Vars)
		if err != nil {
			predCube = e.cubeFromModel(ob.Formula, model)
		}
		e.deps.setParent(predCube, ob.Formula)
		e.deps.setRefutes(predCube, ob.Formula)
		e.witness[predCube] = model
		e.queue.Enqueue(&Obligation{Formula: predCube, Frame: i, Budget: e.defaultBudget(i)})

		if ob.Budget > 0 {
			ob.Budget--
			e.queue.Bump(ob)
			e.queue.Enqueue(ob)
			return inductionRetry, nil
		}
		e.deps.setInvalid(ob.Formula, ob.Frame)
		return inductionGiveUp, nil
	default:
		return inductionInconclusive, nil
	}
}

// addLearnedFormula strengthens frame k with f, unless k's frame already
// semantically implies f (checked via FrameImplies), in which case adding it
// would only grow the frame's solver for no gain.
func (e *Engine) addLearnedFormula(ctx context.Context, k int, f term.Ref) error {
	if e.frames[k].Contains(f) {
		return nil
	}
	implied, err := e.pool.FrameImplies(ctx, k, e.frames[k], f)
	if err != nil {
		return err
	}
	if implied {
		return nil
	}
	if e.frames[k].Add(f) {
		e.pool.InvalidateFrame(k)
		if err := e.reach.AddToFrame(ctx, k, f); err != nil {
			return err
		}
	}
	return nil
}

// defaultBudget is a fresh obligation's retry budget: how many times
// pushIfInductive may fail to block it before giving up and marking it
// invalid. Independent of ic3-induction-max, which bounds a wholly separate
// thing (k-induction's search depth); a deeper frame simply gets a larger
// retry allowance, since a CTI found deep in the frame sequence has more
// legitimate predecessor chains to work through.
func (e *Engine) defaultBudget(frame int) int {
	return frame + 1
}

// cubeFromModel builds a conjunction of literals over the state variables
// mentioned in hint, each fixed to its value in model — a minimal-effort
// cube extraction used as the fallback when the backing solver cannot
// Generalize.
func (e *Engine) cubeFromModel(hint term.Ref, model smt.Model) term.Ref {
	var lits []term.Ref
	for _, v := range e.ts.Type.Vars {
		if e.mgr.TypeOf(v).Kind == term.KindBool {
			if model.IsTrue(v) {
				lits = append(lits, v)
			} else if model.IsFalse(v) {
				lits = append(lits, e.mgr.MkTerm(term.OpNot, v))
			}
			continue
		}
		if rv, ok := model.ValueOf(v); ok {
			c := e.mgr.MkRationalConstant(e.mgr.TypeOf(v), rv)
			lits = append(lits, e.mgr.MkTerm(term.OpEq, v, c))
		}
	}
	if len(lits) == 0 {
		return e.mgr.MkBoolConstant(true)
	}
	if len(lits) == 1 {
		return lits[0]
	}
	return e.mgr.MkTerm(term.OpAnd, lits...)
}

// propagate tries to push every formula already in frames[1..k] one frame
// forward: if Frame[i] /\ T implies f' for an f not yet in Frame[i+1], f is
// added there too. A formula already known invalid (or derived from one) is
// skipped outright rather than pushed, per the invariant that an invalid
// formula and its descendants are never pushed further. Repeated invocation
// is how the frame sequence converges.
func (e *Engine) propagate(ctx context.Context, k int) error {
	for len(e.frames) <= k+1 {
		e.frames = append(e.frames, NewFrame())
	}
	for i := 1; i <= k; i++ {
		for _, f := range e.frames[i].Formulas() {
			if e.deps.formulaOrParentIsInvalid(f, i) {
				continue
			}
			if e.frames[i+1].Contains(f) {
				continue
			}
			notF := e.mgr.MkTerm(term.OpNot, f)
			sat, _, err := e.pool.QueryPredecessor(ctx, i, e.frames[i], notF)
			if err != nil {
				return err
			}
			if sat == smt.Unsat {
				if err := e.addLearnedFormula(ctx, i+1, f); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// framesConverged reports whether Frame[i] and Frame[i+1] hold exactly the
// same learnt formulas, the syntactic fixpoint test used to declare the
// property Valid.
func (e *Engine) framesConverged(i int) bool {
	if i+1 >= len(e.frames) {
		return false
	}
	a, b := e.frames[i], e.frames[i+1]
	if a.Len() != b.Len() {
		return false
	}
	for _, f := range a.Formulas() {
		if !b.Contains(f) {
			return false
		}
	}
	return true
}

// dependencyDOT renders the current parent/refutes dependency graph over
// every learnt formula as a Graphviz DOT digraph: one edge per formula to
// the parent it was derived from strengthening.
func (e *Engine) dependencyDOT() string {
	var b strings.Builder
	b.WriteString("digraph dependencies {\n")
	for _, fr := range e.frames {
		for _, f := range fr.Formulas() {
			label := FormatFormula(e.mgr, f)
			if parent, ok := e.deps.getParent(f); ok {
				fmt.Fprintf(&b, "  %q -> %q;\n", FormatFormula(e.mgr, parent), label)
			} else {
				fmt.Fprintf(&b, "  %q;\n", label)
			}
		}
	}
	b.WriteString("}\n")
	return b.String()
}

// extendInductionFailure walks ob's parent chain (set by pushIfInductive
// each time a predecessor obligation was spawned) from the Init-reaching
// cube back out to the original property violation, assembling the
// concrete states recorded in e.witness along the way into a Trace. Each
// step's input variables, if the system has any, are read out of the same
// witness model that established the transition into the next state: a
// single QueryPredecessor call asserts the transition relation and the
// target cube together, so its model already assigns the input variables a
// value consistent with that step.
func (e *Engine) extendInductionFailure(ob *Obligation) *Trace {
	var chain []term.Ref
	cur := ob.Formula
	for {
		chain = append(chain, cur)
		parent, ok := e.deps.getParent(cur)
		if !ok {
			break
		}
		cur = parent
	}
	// chain is ordered from the Init-reaching cube outward to the original
	// violation, which is already forward-time order.
	states := make([]State, 0, len(chain))
	for _, f := range chain {
		if m, ok := e.witness[f]; ok {
			states = append(states, State{Model: m, Vars: e.ts.Type.Vars})
		}
	}
	var inputs []State
	if len(e.ts.Type.InputVars) > 0 && len(states) > 1 {
		inputs = make([]State, len(states)-1)
		for i := range inputs {
			inputs[i] = State{Model: states[i].Model, Vars: e.ts.Type.InputVars}
		}
	}
	return &Trace{States: states, Inputs: inputs}
}
