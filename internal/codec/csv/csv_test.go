package csv

import "testing"

func TestDecodeEncodeRoundTrip(t *testing.T) {
	raw := []byte("name,age\nalice,30\nbob,25\n")
	root, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if root.Len() != 2 {
		t.Fatalf("rows = %d, want 2", root.Len())
	}
	first := root.Children()[0]
	name, _ := first.Member("name")
	s, _ := name.AsString()
	if s != "alice" {
		t.Fatalf("name = %q", s)
	}

	out, err := Encode(root)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	root2, err := Decode(out)
	if err != nil {
		t.Fatalf("Decode(Encode(...)): %v", err)
	}
	if !root.Equal(root2) {
		t.Fatalf("round trip mismatch")
	}
}
