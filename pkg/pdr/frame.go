package pdr

import "github.com/ic3lab/pdrcheck/internal/term"

// Frame is one F_i in the induction frame sequence: an over-approximation
// of the states reachable in at most i steps, represented as the set of
// learnt formulas it is known to satisfy.
type Frame struct {
	set   map[term.Ref]bool
	order []term.Ref
}

// NewFrame returns an empty frame.
func NewFrame() *Frame {
	return &Frame{set: make(map[term.Ref]bool)}
}

// Add inserts f into the frame, reporting whether it was newly added; a
// duplicate add is a no-op.
func (fr *Frame) Add(f term.Ref) bool {
	if fr.set[f] {
		return false
	}
	fr.set[f] = true
	fr.order = append(fr.order, f)
	return true
}

// Contains reports whether f is already a member of the frame.
func (fr *Frame) Contains(f term.Ref) bool {
	return fr.set[f]
}

// Formulas returns the frame's members in insertion order.
func (fr *Frame) Formulas() []term.Ref {
	out := make([]term.Ref, len(fr.order))
	copy(out, fr.order)
	return out
}

// Len reports the number of formulas in the frame.
func (fr *Frame) Len() int {
	return len(fr.order)
}

// Conjunction returns the And of every formula in the frame, or the
// constant true if the frame is empty.
func (fr *Frame) Conjunction(mgr *term.Manager) term.Ref {
	if len(fr.order) == 0 {
		return mgr.MkBoolConstant(true)
	}
	if len(fr.order) == 1 {
		return fr.order[0]
	}
	return mgr.MkTerm(term.OpAnd, fr.order...)
}

// formulaInfo is per-learnt-formula bookkeeping: which obligation this
// formula was learnt to refute, which formula (if any) it was derived from
// by strengthening, and whether it (or an ancestor) has since been found
// invalid.
type formulaInfo struct {
	hasParent bool
	parent    term.Ref
	hasRefute bool
	refutes   term.Ref

	invalid      bool
	invalidDepth int
}

// dependencyGraph is the parent/refutes graph over learnt formulas: an
// index-indirected map (formula -> info) rather than an explicit graph
// structure, since the only operations needed are point lookups and
// invalid-propagation walks along the parent chain. Acyclic by
// construction: a formula's parent is always learnt strictly before it.
type dependencyGraph struct {
	info map[term.Ref]*formulaInfo
}

func newDependencyGraph() *dependencyGraph {
	return &dependencyGraph{info: make(map[term.Ref]*formulaInfo)}
}

func (g *dependencyGraph) entry(f term.Ref) *formulaInfo {
	fi, ok := g.info[f]
	if !ok {
		fi = &formulaInfo{}
		g.info[f] = fi
	}
	return fi
}

func (g *dependencyGraph) setParent(f, parent term.Ref) {
	e := g.entry(f)
	e.hasParent = true
	e.parent = parent
}

func (g *dependencyGraph) getParent(f term.Ref) (term.Ref, bool) {
	e, ok := g.info[f]
	if !ok || !e.hasParent {
		return term.Ref{}, false
	}
	return e.parent, true
}

func (g *dependencyGraph) setRefutes(f, cti term.Ref) {
	e := g.entry(f)
	e.hasRefute = true
	e.refutes = cti
}

func (g *dependencyGraph) getRefutes(f term.Ref) (term.Ref, bool) {
	e, ok := g.info[f]
	if !ok || !e.hasRefute {
		return term.Ref{}, false
	}
	return e.refutes, true
}

// setInvalid marks f invalid at the given frame depth. formulaOrParentIsInvalid
// walks the parent chain, so marking f is enough to make every formula
// derived from f report invalid too.
func (g *dependencyGraph) setInvalid(f term.Ref, depth int) {
	e := g.entry(f)
	e.invalid = true
	e.invalidDepth = depth
}

// formulaOrParentIsInvalid reports whether f, or any formula in its parent
// chain, has been marked invalid at a depth less than or equal to the
// current frame index.
func (g *dependencyGraph) formulaOrParentIsInvalid(f term.Ref, frameIndex int) bool {
	cur := f
	for {
		e, ok := g.info[cur]
		if ok && e.invalid && e.invalidDepth <= frameIndex {
			return true
		}
		if !ok || !e.hasParent {
			return false
		}
		cur = e.parent
	}
}
