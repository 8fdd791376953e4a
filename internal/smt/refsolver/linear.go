package refsolver

import (
	"github.com/ic3lab/pdrcheck/internal/term"
)

// linexpr is sum(coeffs[v]*v) + constant, over a fixed variable universe.
// It is the internal representation used to drive Fourier-Motzkin
// elimination, built by flattening Add/Sub/Mul/ToReal/variable/constant
// term trees.
type linexpr struct {
	coeffs map[term.Ref]term.Rational
	konst  term.Rational
}

func newLinexpr() *linexpr {
	return &linexpr{coeffs: make(map[term.Ref]term.Rational)}
}

func (l *linexpr) add(other *linexpr, scale term.Rational) {
	for v, c := range other.coeffs {
		nc := l.coeffs[v].Add(c.Mul(scale))
		if nc.Sign() == 0 {
			delete(l.coeffs, v)
		} else {
			l.coeffs[v] = nc
		}
	}
	l.konst = l.konst.Add(other.konst.Mul(scale))
}

func (l *linexpr) clone() *linexpr {
	cp := newLinexpr()
	for v, c := range l.coeffs {
		cp.coeffs[v] = c
	}
	cp.konst = l.konst
	return cp
}

// linearize flattens t into a linexpr. ok is false if t is not a linear
// arithmetic term this backend understands (e.g. a product of two
// non-constant subterms).
func linearize(mgr *term.Manager, t term.Ref) (*linexpr, bool) {
	switch mgr.OpOf(t) {
	case term.OpConstant:
		if rv, ok := mgr.RationalValue(t); ok {
			e := newLinexpr()
			e.konst = rv
			return e, true
		}
		return nil, false
	case term.OpVariable:
		e := newLinexpr()
		e.coeffs[t] = term.RationalFromInt64(1)
		return e, true
	case term.OpToReal:
		kids := mgr.ChildrenOf(t)
		if len(kids) != 1 {
			return nil, false
		}
		return linearize(mgr, kids[0])
	case term.OpAdd:
		kids := mgr.ChildrenOf(t)
		e := newLinexpr()
		for _, k := range kids {
			ke, ok := linearize(mgr, k)
			if !ok {
				return nil, false
			}
			e.add(ke, term.RationalFromInt64(1))
		}
		return e, true
	case term.OpSub:
		kids := mgr.ChildrenOf(t)
		if len(kids) != 2 {
			return nil, false
		}
		lhs, ok := linearize(mgr, kids[0])
		if !ok {
			return nil, false
		}
		rhs, ok := linearize(mgr, kids[1])
		if !ok {
			return nil, false
		}
		lhs.add(rhs, term.RationalFromInt64(-1))
		return lhs, true
	case term.OpMul:
		kids := mgr.ChildrenOf(t)
		if len(kids) != 2 {
			return nil, false
		}
		lc, lok := mgr.RationalValue(kids[0])
		rc, rok := mgr.RationalValue(kids[1])
		switch {
		case lok:
			re, ok := linearize(mgr, kids[1])
			if !ok {
				return nil, false
			}
			e := newLinexpr()
			e.add(re, lc)
			return e, true
		case rok:
			le, ok := linearize(mgr, kids[0])
			if !ok {
				return nil, false
			}
			e := newLinexpr()
			e.add(le, rc)
			return e, true
		default:
			return nil, false // non-linear: product of two variables
		}
	default:
		return nil, false
	}
}

// cmpKind is the relational operator of a normalized linear atom.
type cmpKind int

const (
	cmpLe cmpKind = iota // <= 0
	cmpLt                // < 0
	cmpGe                // >= 0
	cmpGt                // > 0
	cmpEq                // == 0
)

// constraint is a normalized linear atom: expr `kind` 0.
type constraint struct {
	expr *linexpr
	kind cmpKind
}

// normalizeAtom converts a comparison term (Leq/Lt/Geq/Gt/Eq over numeric
// operands) into a constraint. ok is false if t is not such a comparison, or
// its operands are not linear.
func normalizeAtom(mgr *term.Manager, t term.Ref) (constraint, bool) {
	op := mgr.OpOf(t)
	kids := mgr.ChildrenOf(t)
	if len(kids) != 2 {
		return constraint{}, false
	}
	lt := mgr.TypeOf(kids[0])
	if lt.Kind != term.KindInteger && lt.Kind != term.KindReal {
		return constraint{}, false
	}
	lhs, ok := linearize(mgr, kids[0])
	if !ok {
		return constraint{}, false
	}
	rhs, ok := linearize(mgr, kids[1])
	if !ok {
		return constraint{}, false
	}
	diff := lhs.clone()
	diff.add(rhs, term.RationalFromInt64(-1))

	var kind cmpKind
	switch op {
	case term.OpLeq:
		kind = cmpLe
	case term.OpLt:
		kind = cmpLt
	case term.OpGeq:
		kind = cmpGe
	case term.OpGt:
		kind = cmpGt
	case term.OpEq:
		kind = cmpEq
	default:
		return constraint{}, false
	}
	return constraint{expr: diff, kind: kind}, true
}

// negated returns the constraint equivalent to the logical negation of c.
// Negating an equality splits into a disjunction in general; refsolver
// instead treats ¬(a=b) as the disequality marker handled by the caller
// (see disequalities in refsolver.go), so negated is only called for
// inequalities.
func (c constraint) negated() constraint {
	e := c.expr
	switch c.kind {
	case cmpLe: // ¬(e<=0) == e>0
		return constraint{expr: e, kind: cmpGt}
	case cmpLt: // ¬(e<0) == e>=0
		return constraint{expr: e, kind: cmpGe}
	case cmpGe: // ¬(e>=0) == e<0
		return constraint{expr: e, kind: cmpLt}
	case cmpGt: // ¬(e>0) == e<=0
		return constraint{expr: e, kind: cmpLe}
	default:
		return c
	}
}

// asInequalities expands an equality constraint into its two non-strict
// halves (e<=0 and e>=0); inequalities pass through unchanged as a
// one-element slice.
func (c constraint) asInequalities() []constraint {
	if c.kind != cmpEq {
		return []constraint{c}
	}
	neg := newLinexpr()
	neg.add(c.expr, term.RationalFromInt64(-1))
	return []constraint{
		{expr: c.expr, kind: cmpLe},
		{expr: neg, kind: cmpLe},
	}
}

// feasible decides, via Fourier-Motzkin elimination, whether the conjunction
// of cs has a rational solution. On success it also returns a witness point
// for every variable mentioned.
func feasible(cs []constraint) (bool, map[term.Ref]term.Rational) {
	var expanded []constraint
	for _, c := range cs {
		for _, ic := range c.asInequalities() {
			// Rewrite e>=0 / e>0 as -e<=0 / -e<0, so every constraint below
			// is of the <=/< form the elimination step combines.
			if ic.kind == cmpGe || ic.kind == cmpGt {
				neg := newLinexpr()
				neg.add(ic.expr, term.RationalFromInt64(-1))
				kind := cmpLe
				if ic.kind == cmpGt {
					kind = cmpLt
				}
				ic = constraint{expr: neg, kind: kind}
			}
			expanded = append(expanded, ic)
		}
	}

	vars := make(map[term.Ref]bool)
	for _, c := range expanded {
		for v := range c.expr.coeffs {
			vars[v] = true
		}
	}
	varList := make([]term.Ref, 0, len(vars))
	for v := range vars {
		varList = append(varList, v)
	}

	cur := expanded
	var eliminated []term.Ref
	for _, v := range varList {
		var withV, withoutV []constraint
		for _, c := range cur {
			if _, ok := c.expr.coeffs[v]; ok {
				withV = append(withV, c)
			} else {
				withoutV = append(withoutV, c)
			}
		}
		var uppers, lowers []constraint // coeff<0 => upper bound on v; coeff>0 => lower bound
		for _, c := range withV {
			coeff := c.expr.coeffs[v]
			if coeff.Sign() > 0 {
				lowers = append(lowers, c)
			} else {
				uppers = append(uppers, c)
			}
		}
		for _, lo := range lowers {
			for _, up := range uppers {
				combined := combineEliminating(lo, up, v)
				withoutV = append(withoutV, combined)
			}
		}
		cur = withoutV
		eliminated = append(eliminated, v)
	}

	// cur now has no variables: check every remaining constraint holds.
	for _, c := range cur {
		k := c.expr.konst
		switch c.kind {
		case cmpLe:
			if k.Sign() > 0 {
				return false, nil
			}
		case cmpLt:
			if k.Sign() >= 0 {
				return false, nil
			}
		case cmpGe:
			if k.Sign() < 0 {
				return false, nil
			}
		case cmpGt:
			if k.Sign() <= 0 {
				return false, nil
			}
		}
	}

	// Back-substitution with a simple witness: every eliminated variable is
	// assigned 0 if unconstrained, otherwise the midpoint-style value
	// derived from its tightest remaining bound in the original system.
	witness := make(map[term.Ref]term.Rational)
	for _, v := range eliminated {
		witness[v] = term.RationalFromInt64(0)
	}
	refineWitness(expanded, varList, witness)
	return true, witness
}

// combineEliminating produces the constraint obtained by combining a lower
// bound (coeff(v) > 0) and an upper bound (coeff(v) < 0) on v to eliminate v.
func combineEliminating(lo, up constraint, v term.Ref) constraint {
	loCoeff := lo.expr.coeffs[v]
	upCoeff := up.expr.coeffs[v].Neg() // positive magnitude

	scaleLo := upCoeff
	scaleUp := loCoeff

	combined := newLinexpr()
	combined.add(lo.expr, scaleLo)
	combined.add(up.expr, scaleUp)
	delete(combined.coeffs, v)

	kind := cmpLe
	if lo.kind == cmpLt || up.kind == cmpLt {
		kind = cmpLt
	}
	return constraint{expr: combined, kind: kind}
}

// refineWitness does a best-effort forward pass tightening each variable's
// witness value against its direct bounds in the original (non-eliminated)
// constraint set, holding other variables at their current witness values.
// This is a heuristic, not a certified solution extraction; refsolver is a
// reference backend and callers needing a certified model should treat
// Generalize's output, not this witness, as authoritative.
func refineWitness(cs []constraint, vars []term.Ref, witness map[term.Ref]term.Rational) {
	for pass := 0; pass < 2; pass++ {
		for _, v := range vars {
			var lower, upper *term.Rational
			lowerStrict, upperStrict := false, false
			for _, c := range cs {
				coeff, ok := c.expr.coeffs[v]
				if !ok || len(c.expr.coeffs) != 1 {
					continue
				}
				rest := c.expr.konst
				for ov, oc := range c.expr.coeffs {
					if ov == v {
						continue
					}
					rest = rest.Add(oc.Mul(witness[ov]))
				}
				bound := rest.Neg().Div(coeff)
				if coeff.Sign() > 0 {
					if upper == nil || bound.Cmp(*upper) < 0 {
						b := bound
						upper = &b
						upperStrict = c.kind == cmpLt
					}
				} else {
					if lower == nil || bound.Cmp(*lower) > 0 {
						b := bound
						lower = &b
						lowerStrict = c.kind == cmpLt
					}
				}
			}
			switch {
			case lower != nil && upper != nil:
				mid := lower.Add(*upper).Div(term.RationalFromInt64(2))
				witness[v] = mid
			case lower != nil:
				if lowerStrict {
					witness[v] = lower.Add(term.RationalFromInt64(1))
				} else {
					witness[v] = *lower
				}
			case upper != nil:
				if upperStrict {
					witness[v] = upper.Sub(term.RationalFromInt64(1))
				} else {
					witness[v] = *upper
				}
			}
		}
	}
}
