package term

import "testing"

func TestMkTermHashConses(t *testing.T) {
	m := NewManager()
	x := m.MkVariable("x", Integer)
	y := m.MkVariable("y", Integer)
	a := m.MkTerm(OpAdd, x, y)
	b := m.MkTerm(OpAdd, x, y)
	if a != b {
		t.Error("identical term applications should intern to the same Ref")
	}
}

func TestMkVariableSameNameSameType(t *testing.T) {
	m := NewManager()
	a := m.MkVariable("x", Bool)
	b := m.MkVariable("x", Bool)
	if a != b {
		t.Error("same variable name and type should intern to the same Ref")
	}
	c := m.MkVariable("x", Integer)
	if a == c {
		t.Error("same variable name but different type should not collide")
	}
}

func TestSubstitute(t *testing.T) {
	m := NewManager()
	x := m.MkVariable("x", Integer)
	y := m.MkVariable("y", Integer)
	z := m.MkVariable("z", Integer)
	term := m.MkTerm(OpAdd, x, y)

	sub := map[Ref]Ref{x: z}
	got := m.Substitute(term, sub)
	want := m.MkTerm(OpAdd, z, y)
	if got != want {
		t.Errorf("Substitute did not rewrite x -> z correctly")
	}
}

func TestSubstituteNoOpReturnsSameRef(t *testing.T) {
	m := NewManager()
	x := m.MkVariable("x", Integer)
	y := m.MkVariable("y", Integer)
	term := m.MkTerm(OpAdd, x, y)

	got := m.Substitute(term, map[Ref]Ref{})
	if got != term {
		t.Error("Substitute with an empty map should return the same Ref unchanged")
	}
}

func TestConstants(t *testing.T) {
	m := NewManager()
	tru := m.MkBoolConstant(true)
	tru2 := m.MkBoolConstant(true)
	if tru != tru2 {
		t.Error("boolean constants should intern")
	}
	if v, ok := m.BoolValue(tru); !ok || !v {
		t.Error("BoolValue should report true")
	}

	five := m.MkRationalConstant(Integer, RationalFromInt64(5))
	if rv, ok := m.RationalValue(five); !ok || rv.Cmp(RationalFromInt64(5)) != 0 {
		t.Error("RationalValue should report 5")
	}
}

func TestGCCollectsUnrooted(t *testing.T) {
	m := NewManager()
	x := m.MkVariable("x", Integer)
	m.Root(x)
	y := m.MkVariable("y", Integer)

	m.Collect()

	// x should still resolve since it was rooted.
	if got := m.MkVariable("x", Integer); got != x {
		t.Error("rooted variable should survive collection and re-intern to the same id")
	}
	// y was never rooted, so its node is gone.
	if m.OpOf(y) != OpInvalid {
		t.Error("unrooted variable should be dropped by collection")
	}
}
