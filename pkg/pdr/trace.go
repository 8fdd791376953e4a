package pdr

// Trace is a concrete counterexample path from an initial state to a
// property violation, one State per step plus the Inputs chosen between
// consecutive states.

import (
	"fmt"
	"strings"

	"github.com/ic3lab/pdrcheck/internal/smt"
	"github.com/ic3lab/pdrcheck/internal/term"
)

// State is one step of a Trace: the model found at that step and the
// current-state variables it should be read against.
type State struct {
	Vars  []term.Ref
	Model smt.Model
}

// Trace is an ordered sequence of States, from the initial state to the
// state that violates the property, together with the input choice made at
// each transition. When the system has input variables, Inputs has one
// fewer entry than States: the input recorded at Inputs[i] is the one that
// was in effect moving from States[i] to States[i+1]. When it has none,
// Inputs is empty.
type Trace struct {
	States []State
	Inputs []State
}

// Format renders the trace as a "(trace ...)" s-expression: a (state N ...)
// block for each recorded state, interleaved with a (input N ...) block for
// each recorded input, in step order.
func (t *Trace) Format(mgr *term.Manager) string {
	var b strings.Builder
	b.WriteString("(trace")
	for i, st := range t.States {
		b.WriteString(formatBlock(mgr, "state", i, st))
		if i < len(t.Inputs) {
			b.WriteString(formatBlock(mgr, "input", i, t.Inputs[i]))
		}
	}
	b.WriteString(")")
	return b.String()
}

func formatBlock(mgr *term.Manager, kind string, index int, st State) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(" (%s %d", kind, index))
	for _, v := range st.Vars {
		b.WriteString(" (= ")
		b.WriteString(mgr.NameOf(v))
		b.WriteString(" ")
		b.WriteString(formatValue(mgr, v, st.Model))
		b.WriteString(")")
	}
	b.WriteString(")")
	return b.String()
}

func formatValue(mgr *term.Manager, v term.Ref, model smt.Model) string {
	if mgr.TypeOf(v).Kind == term.KindBool {
		if model.IsTrue(v) {
			return "true"
		}
		if model.IsFalse(v) {
			return "false"
		}
		return "?"
	}
	if rv, ok := model.ValueOf(v); ok {
		return rv.String()
	}
	return "?"
}

// FormatFormula renders a term as a minimal prefix s-expression, the same
// surface syntax pdrcheck's own fixture parser accepts, used to print the
// discovered invariant and to label nodes when dumping the dependency
// graph.
func FormatFormula(mgr *term.Manager, r term.Ref) string {
	switch mgr.OpOf(r) {
	case term.OpVariable:
		return mgr.NameOf(r)
	case term.OpConstant:
		if mgr.TypeOf(r).Kind == term.KindBool {
			if v, ok := mgr.BoolValue(r); ok {
				if v {
					return "true"
				}
				return "false"
			}
		}
		if rv, ok := mgr.RationalValue(r); ok {
			return rv.String()
		}
		return "?"
	default:
		children := mgr.ChildrenOf(r)
		parts := make([]string, len(children))
		for i, c := range children {
			parts[i] = FormatFormula(mgr, c)
		}
		return "(" + mgr.OpOf(r).String() + " " + strings.Join(parts, " ") + ")"
	}
}
