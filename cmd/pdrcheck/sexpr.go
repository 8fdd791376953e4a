package main

// parseSystem reads the minimal s-expression fixture format pdrcheck's
// verify command accepts:
//
//	(system
//	  (vars (n int) (ok bool) (sched bool input))
//	  (init (= n 0))
//	  (trans (= n! (+ n 1)))
//	  (property (<= n 10)))
//
// Declaring a variable also declares its primed next-state counterpart
// (name with a trailing "!"), so trans formulas can refer to it directly.
// A third "input" token instead declares an input variable: one the
// transition relation may reference but that carries no state forward of
// its own, so it gets no primed counterpart. This is deliberately minimal
// reference tooling for driving pdrcheck from the command line, not a
// general surface language.

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ic3lab/pdrcheck/internal/term"
	"github.com/ic3lab/pdrcheck/pkg/pdr"
)

type sexpr struct {
	atom     string
	children []sexpr
}

func tokenize(src string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range src {
		switch r {
		case '(', ')':
			flush()
			tokens = append(tokens, string(r))
		case ' ', '\t', '\n', '\r':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func parseSexpr(tokens []string, pos int) (sexpr, int, error) {
	if pos >= len(tokens) {
		return sexpr{}, pos, fmt.Errorf("unexpected end of input")
	}
	if tokens[pos] != "(" {
		return sexpr{atom: tokens[pos]}, pos + 1, nil
	}
	pos++
	var e sexpr
	for pos < len(tokens) && tokens[pos] != ")" {
		child, next, err := parseSexpr(tokens, pos)
		if err != nil {
			return sexpr{}, pos, err
		}
		e.children = append(e.children, child)
		pos = next
	}
	if pos >= len(tokens) {
		return sexpr{}, pos, fmt.Errorf("unbalanced parentheses")
	}
	return e, pos + 1, nil
}

func parseAll(src string) (sexpr, error) {
	tokens := tokenize(src)
	e, pos, err := parseSexpr(tokens, 0)
	if err != nil {
		return sexpr{}, err
	}
	if pos != len(tokens) {
		return sexpr{}, fmt.Errorf("trailing input after top-level expression")
	}
	return e, nil
}

type systemDef struct {
	ts       *pdr.TransitionSystem
	property term.Ref
}

func parseSystem(mgr *term.Manager, src string) (*systemDef, error) {
	root, err := parseAll(src)
	if err != nil {
		return nil, err
	}
	if root.atom != "" || len(root.children) == 0 || root.children[0].atom != "system" {
		return nil, fmt.Errorf("expected a top-level (system ...) form")
	}

	vars := make(map[string]term.Ref)
	nextVars := make(map[string]term.Ref)
	var varOrder []string
	var inputOrder []string

	var initForm, transForm, propForm sexpr
	for _, section := range root.children[1:] {
		if len(section.children) == 0 {
			continue
		}
		switch section.children[0].atom {
		case "vars":
			for _, decl := range section.children[1:] {
				if len(decl.children) != 2 && len(decl.children) != 3 {
					return nil, fmt.Errorf("malformed variable declaration: %v", decl)
				}
				name := decl.children[0].atom
				typ, err := parseType(decl.children[1].atom)
				if err != nil {
					return nil, err
				}
				if len(decl.children) == 3 {
					if decl.children[2].atom != "input" {
						return nil, fmt.Errorf("unknown variable qualifier %q", decl.children[2].atom)
					}
					vars[name] = mgr.MkVariable(name, typ)
					inputOrder = append(inputOrder, name)
					continue
				}
				vars[name] = mgr.MkVariable(name, typ)
				nextVars[name] = mgr.MkVariable(name+"!", typ)
				varOrder = append(varOrder, name)
			}
		case "init":
			initForm = section.children[1]
		case "trans":
			transForm = section.children[1]
		case "property":
			propForm = section.children[1]
		}
	}

	env := func(name string) (term.Ref, bool) {
		if strings.HasSuffix(name, "!") {
			base := strings.TrimSuffix(name, "!")
			if v, ok := nextVars[base]; ok {
				return v, true
			}
			return term.Ref{}, false
		}
		v, ok := vars[name]
		return v, ok
	}

	init, err := buildTerm(mgr, initForm, env)
	if err != nil {
		return nil, fmt.Errorf("parsing init: %w", err)
	}
	trans, err := buildTerm(mgr, transForm, env)
	if err != nil {
		return nil, fmt.Errorf("parsing trans: %w", err)
	}
	property, err := buildTerm(mgr, propForm, env)
	if err != nil {
		return nil, fmt.Errorf("parsing property: %w", err)
	}

	st := &pdr.StateType{}
	for _, name := range varOrder {
		st.Vars = append(st.Vars, vars[name])
		st.NextVars = append(st.NextVars, nextVars[name])
	}
	for _, name := range inputOrder {
		st.InputVars = append(st.InputVars, vars[name])
	}

	return &systemDef{
		ts:       &pdr.TransitionSystem{Type: st, Init: init, Trans: trans},
		property: property,
	}, nil
}

func parseType(name string) (term.Type, error) {
	switch name {
	case "int":
		return term.Integer, nil
	case "real":
		return term.Real, nil
	case "bool":
		return term.Bool, nil
	default:
		return term.Type{}, fmt.Errorf("unknown type %q", name)
	}
}

var opNames = map[string]term.Op{
	"and": term.OpAnd, "or": term.OpOr, "not": term.OpNot, "=>": term.OpImplies,
	"xor": term.OpXor, "=": term.OpEq, "ite": term.OpIte,
	"<=": term.OpLeq, "<": term.OpLt, ">=": term.OpGeq, ">": term.OpGt,
	"+": term.OpAdd, "-": term.OpSub, "*": term.OpMul, "/": term.OpDiv,
}

func buildTerm(mgr *term.Manager, e sexpr, env func(string) (term.Ref, bool)) (term.Ref, error) {
	if e.atom != "" {
		switch e.atom {
		case "true":
			return mgr.MkBoolConstant(true), nil
		case "false":
			return mgr.MkBoolConstant(false), nil
		}
		if v, ok := env(e.atom); ok {
			return v, nil
		}
		if n, err := strconv.ParseInt(e.atom, 10, 64); err == nil {
			return mgr.MkRationalConstant(term.Integer, term.RationalFromInt64(n)), nil
		}
		return term.Ref{}, fmt.Errorf("unbound identifier %q", e.atom)
	}
	if len(e.children) == 0 {
		return term.Ref{}, fmt.Errorf("empty expression")
	}
	head := e.children[0].atom
	op, ok := opNames[head]
	if !ok {
		return term.Ref{}, fmt.Errorf("unknown operator %q", head)
	}
	args := make([]term.Ref, 0, len(e.children)-1)
	for _, c := range e.children[1:] {
		a, err := buildTerm(mgr, c, env)
		if err != nil {
			return term.Ref{}, err
		}
		args = append(args, a)
	}
	return mgr.MkTerm(op, args...), nil
}
