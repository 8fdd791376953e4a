package term

import (
	"fmt"
	"math/big"
	"sync"
)

// node is one entry in a Manager's term arena. Children are stored as Refs
// into the same Manager, giving structural sharing for free: two terms with
// identical op and children always resolve to the same node via the hash-cons
// table.
type node struct {
	op       Op
	typ      Type
	children []Ref
	// payload for leaves
	name string   // OpVariable
	rat  Rational // OpConstant, arithmetic sorts
	bits *big.Int // OpConstant, bit-vector sort
	flag bool     // OpConstant, bool sort

	refCount int    // number of Root() calls outstanding on this node
	live     bool   // cleared by Collect when unreachable
	gen      uint32 // Manager.generation at the time the node was interned
}

type key struct {
	op   Op
	name string
	rat  string
	bits string
	flag bool
	kids string
}

// Manager owns a term DAG: hash-consed nodes reachable from a set of rooted
// references. The PDR engine and the SMT driver both address terms
// exclusively through the Refs a Manager hands out.
type Manager struct {
	mu         sync.Mutex
	nodes      map[uint64]*node
	byKey      map[key]uint64
	nextID     uint64
	generation uint32

	participants []GCParticipant
}

// NewManager creates an empty term manager.
func NewManager() *Manager {
	return &Manager{
		nodes:  make(map[uint64]*node),
		byKey:  make(map[key]uint64),
		nextID: 1,
	}
}

func (m *Manager) intern(k key, build func() *node) Ref {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byKey[k]; ok {
		return Ref{id: id, gen: m.nodes[id].gen}
	}
	n := build()
	n.live = true
	n.gen = m.generation
	id := m.nextID
	m.nextID++
	m.nodes[id] = n
	m.byKey[k] = id
	return Ref{id: id, gen: n.gen}
}

func keyOf(op Op, name, rat, bits string, flag bool, kids []Ref) key {
	s := ""
	for _, k := range kids {
		s += fmt.Sprintf("%d,", k.id)
	}
	return key{op: op, name: name, rat: rat, bits: bits, flag: flag, kids: s}
}

// MkVariable returns (interning) the variable of the given name and type.
func (m *Manager) MkVariable(name string, typ Type) Ref {
	k := keyOf(OpVariable, name, typ.String(), "", false, nil)
	return m.intern(k, func() *node {
		return &node{op: OpVariable, typ: typ, name: name}
	})
}

// MkBoolConstant returns the boolean constant true or false.
func (m *Manager) MkBoolConstant(v bool) Ref {
	k := keyOf(OpConstant, "", "", "", v, nil)
	return m.intern(k, func() *node {
		return &node{op: OpConstant, typ: Bool, flag: v}
	})
}

// MkRationalConstant returns a constant of the given numeric type carrying
// value r. typ must be Integer or Real.
func (m *Manager) MkRationalConstant(typ Type, r Rational) Ref {
	k := keyOf(OpConstant, "", r.String()+typ.String(), "", false, nil)
	return m.intern(k, func() *node {
		return &node{op: OpConstant, typ: typ, rat: r}
	})
}

// MkBitVectorConstant returns a bit-vector constant of the given width.
func (m *Manager) MkBitVectorConstant(width int, v *big.Int) Ref {
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(width)), big.NewInt(1))
	bits := new(big.Int).And(v, mask)
	k := keyOf(OpConstant, "", "", fmt.Sprintf("%d:%s", width, bits.String()), false, nil)
	return m.intern(k, func() *node {
		return &node{op: OpConstant, typ: BitVector(width), bits: bits}
	})
}

// MkTerm builds (interning) the application of op to the given children,
// inferring the result type from op and the children's types.
func (m *Manager) MkTerm(op Op, children ...Ref) Ref {
	typ := m.resultType(op, children)
	k := keyOf(op, "", "", "", false, children)
	return m.intern(k, func() *node {
		cp := make([]Ref, len(children))
		copy(cp, children)
		return &node{op: op, typ: typ, children: cp}
	})
}

func (m *Manager) resultType(op Op, children []Ref) Type {
	switch op {
	case OpAnd, OpOr, OpNot, OpImplies, OpXor, OpEq, OpLeq, OpLt, OpGeq, OpGt:
		return Bool
	case OpIte:
		if len(children) == 3 {
			return m.TypeOf(children[1])
		}
		return Bool
	case OpToReal:
		return Real
	case OpAdd, OpSub, OpMul, OpDiv:
		if len(children) > 0 {
			return m.TypeOf(children[0])
		}
		return Integer
	case OpBvAnd, OpBvOr, OpBvNot, OpBvAdd, OpBvSub, OpBvMul:
		if len(children) > 0 {
			return m.TypeOf(children[0])
		}
	}
	return Bool
}

// TypeOf returns the sort of r.
func (m *Manager) TypeOf(r Ref) Type {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.nodes[r.id]
	if n == nil {
		return Bool
	}
	return n.typ
}

// OpOf returns the operator of r.
func (m *Manager) OpOf(r Ref) Op {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.nodes[r.id]
	if n == nil {
		return OpInvalid
	}
	return n.op
}

// ChildrenOf returns the operands of r. The returned slice is a copy.
func (m *Manager) ChildrenOf(r Ref) []Ref {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.nodes[r.id]
	if n == nil {
		return nil
	}
	cp := make([]Ref, len(n.children))
	copy(cp, n.children)
	return cp
}

// NameOf returns the variable name of r, or "" if r is not a variable.
func (m *Manager) NameOf(r Ref) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.nodes[r.id]
	if n == nil {
		return ""
	}
	return n.name
}

// BoolValue returns the boolean payload of a constant, and whether r is a
// boolean constant at all.
func (m *Manager) BoolValue(r Ref) (bool, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.nodes[r.id]
	if n == nil || n.op != OpConstant || n.typ.Kind != KindBool {
		return false, false
	}
	return n.flag, true
}

// RationalValue returns the rational payload of a constant, and whether r is
// a numeric constant at all.
func (m *Manager) RationalValue(r Ref) (Rational, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.nodes[r.id]
	if n == nil || n.op != OpConstant || (n.typ.Kind != KindInteger && n.typ.Kind != KindReal) {
		return Rational{}, false
	}
	return n.rat, true
}

// BitVectorValue returns the bit-vector payload of a constant, and whether r
// is a bit-vector constant at all.
func (m *Manager) BitVectorValue(r Ref) (*big.Int, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := m.nodes[r.id]
	if n == nil || n.op != OpConstant || n.typ.Kind != KindBitVector {
		return nil, false
	}
	return new(big.Int).Set(n.bits), true
}

// Substitute rewrites t by replacing each occurrence of a key of sub with
// its mapped value, bottom-up, reusing MkTerm so the result is itself
// hash-consed and shares structure with both t and the replacement terms.
func (m *Manager) Substitute(t Ref, sub map[Ref]Ref) Ref {
	memo := make(map[Ref]Ref)
	return m.substitute(t, sub, memo)
}

func (m *Manager) substitute(t Ref, sub map[Ref]Ref, memo map[Ref]Ref) Ref {
	if v, ok := memo[t]; ok {
		return v
	}
	if v, ok := sub[t]; ok {
		memo[t] = v
		return v
	}
	op := m.OpOf(t)
	switch op {
	case OpVariable, OpConstant, OpInvalid:
		memo[t] = t
		return t
	}
	children := m.ChildrenOf(t)
	newChildren := make([]Ref, len(children))
	changed := false
	for i, c := range children {
		nc := m.substitute(c, sub, memo)
		newChildren[i] = nc
		if nc != c {
			changed = true
		}
	}
	var result Ref
	if !changed {
		result = t
	} else {
		result = m.MkTerm(op, newChildren...)
	}
	memo[t] = result
	return result
}
