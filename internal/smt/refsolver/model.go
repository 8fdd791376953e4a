package refsolver

import "github.com/ic3lab/pdrcheck/internal/term"

// refModel is the smt.Model returned by a Sat Check: a boolean-atom
// assignment plus a rational witness value for every arithmetic variable
// that appeared in the checked formula.
type refModel struct {
	mgr    *term.Manager
	atoms  map[term.Ref]bool
	values map[term.Ref]term.Rational
}

func (m *refModel) IsTrue(t term.Ref) bool {
	v, ok := evaluate(m.mgr, t, m.atoms)
	return ok && v
}

func (m *refModel) IsFalse(t term.Ref) bool {
	v, ok := evaluate(m.mgr, t, m.atoms)
	return ok && !v
}

func (m *refModel) ValueOf(t term.Ref) (term.Rational, bool) {
	if rv, ok := m.mgr.RationalValue(t); ok {
		return rv, true
	}
	v, ok := m.values[t]
	return v, ok
}
