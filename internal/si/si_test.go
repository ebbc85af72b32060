package si

import "testing"

func TestAddMemberAndFind(t *testing.T) {
	root := New()
	root.AddMember("a").SetInt(1)
	root.AddMember("b").SetString("hi")

	if root.Category() != Object {
		t.Fatalf("category = %v, want Object", root.Category())
	}
	m, err := root.Member("b")
	if err != nil {
		t.Fatalf("Member(b): %v", err)
	}
	if s, _ := m.AsString(); s != "hi" {
		t.Fatalf("b = %q, want hi", s)
	}
	if _, err := root.Member("missing"); err == nil {
		t.Fatalf("expected ErrMemberNotFound")
	}
}

func TestDuplicateMemberNamesPreserveOrder(t *testing.T) {
	root := New()
	root.AddMember("x").SetInt(1)
	root.AddMember("x").SetInt(2)
	if root.Len() != 2 {
		t.Fatalf("len = %d, want 2 (duplicates permitted)", root.Len())
	}
	first := root.FindMember("x")
	v, _ := first.AsInt64()
	if v != 1 {
		t.Fatalf("FindMember returns first match, got %d", v)
	}
}

func TestIsNullInvariant(t *testing.T) {
	v := New()
	if !v.IsNull() {
		t.Fatalf("fresh Void node should be null")
	}
	v.SetInt(0)
	if v.IsNull() {
		t.Fatalf("node with a set scalar (even zero) should not be null")
	}
}

func TestSetTypeNamePromotesVoid(t *testing.T) {
	n := New()
	n.SetTypeName("TestObject")
	if n.Category() != Object {
		t.Fatalf("SetTypeName should promote Void to Object, got %v", n.Category())
	}
	a := New()
	a.SetArray()
	a.SetTypeName("array")
	if a.Category() != Array {
		t.Fatalf("SetTypeName must not demote an existing Array category")
	}
}

func TestSwapIsFieldwise(t *testing.T) {
	a := New()
	a.SetString("left")
	b := New()
	b.SetInt(42)
	a.Swap(b)
	if s, _ := b.AsString(); s != "left" {
		t.Fatalf("after swap b should hold 'left', got %q", s)
	}
	if n, _ := a.AsInt64(); n != 42 {
		t.Fatalf("after swap a should hold 42, got %d", n)
	}
}

func TestDeepCopyIndependence(t *testing.T) {
	root := New()
	child := root.AddMember("c")
	child.SetInt(7)
	cp := root.DeepCopy()
	child.SetInt(99)
	v, _ := cp.FindMember("c").AsInt64()
	if v != 7 {
		t.Fatalf("deep copy should be independent, got %d after mutating original", v)
	}
	if !root.Equal(root.DeepCopy()) {
		t.Fatalf("a node must equal its own deep copy")
	}
}

func TestConversionRoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 9223372036854775807, -9223372036854775808}
	for _, c := range cases {
		n := New()
		n.SetInt(c)
		s, err := n.AsString()
		if err != nil {
			t.Fatalf("AsString: %v", err)
		}
		roundTrip := New()
		roundTrip.SetString(s)
		got, err := roundTrip.AsInt64()
		if err != nil {
			t.Fatalf("AsInt64(%q): %v", s, err)
		}
		if got != c {
			t.Fatalf("round trip int64: got %d want %d", got, c)
		}
	}
}

func TestBoolFromStringFirstChar(t *testing.T) {
	cases := map[string]bool{
		"1":     true,
		"true":  true,
		"Yes":   true,
		"yes":   true,
		"T":     true,
		"0":     false,
		"false": false,
		"no":    false,
		"":      false,
	}
	for in, want := range cases {
		n := New()
		n.SetString(in)
		got, err := n.AsBool()
		if err != nil {
			t.Fatalf("AsBool(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("AsBool(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestFloatSpecialStrings(t *testing.T) {
	cases := []string{"nan", "NaN", "inf", "Infinity", "-inf", "-infinity"}
	for _, c := range cases {
		n := New()
		n.SetString(c)
		if _, err := n.AsFloat64(); err != nil {
			t.Fatalf("AsFloat64(%q): %v", c, err)
		}
	}
}

func TestOverflowConversionError(t *testing.T) {
	n := New()
	n.SetUint(1<<64 - 1)
	if _, err := n.AsInt64(); err == nil {
		t.Fatalf("expected overflow ConversionError")
	}
}

func TestPathLookup(t *testing.T) {
	root := New()
	a := root.AddMember("a")
	b := a.AddMember("b")
	arr := b.AddMember("arr")
	arr.SetArray()
	arr.AddElement().SetInt(10)
	arr.AddElement().SetInt(20)
	elemNode, _, err := root.Path(".a.b.arr[1]")
	if err != nil {
		t.Fatalf("Path: %v", err)
	}
	v, _ := elemNode.AsInt64()
	if v != 20 {
		t.Fatalf("path result = %d, want 20", v)
	}
	_, sizeStr, err := root.Path(".a.b.arr::size")
	if err != nil {
		t.Fatalf("Path size: %v", err)
	}
	if sizeStr != "2" {
		t.Fatalf("::size = %s, want 2", sizeStr)
	}
}

type point struct {
	X int    `si:"x"`
	Y int    `si:"y"`
	N string `si:"name"`
}

func TestStructSerializeRoundTrip(t *testing.T) {
	p := point{X: 1, Y: 2, N: "origin"}
	root := New()
	if err := Serialize(root, p); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	var out point
	if err := Deserialize(root, &out); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if out != p {
		t.Fatalf("round trip = %+v, want %+v", out, p)
	}
}

func TestSliceSerializeRoundTrip(t *testing.T) {
	in := []int{1, 2, 3}
	root := New()
	if err := Serialize(root, in); err != nil {
		t.Fatalf("Serialize: %v", err)
	}
	if root.Category() != Array {
		t.Fatalf("category = %v, want Array", root.Category())
	}
	var out []int
	if err := Deserialize(root, &out); err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if len(out) != 3 || out[0] != 1 || out[2] != 3 {
		t.Fatalf("round trip slice = %v", out)
	}
}
