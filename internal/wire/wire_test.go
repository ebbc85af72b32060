package wire

import (
	"bytes"
	"math"
	"testing"

	"github.com/synnergy-rpc/synnergy-rpc/internal/si"
)

func roundTripValue(t *testing.T, n *si.Info) *si.Info {
	t.Helper()
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	if err := enc.EncodeValue(n); err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}
	if err := enc.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	dec := NewDecoder(&buf)
	got, err := dec.DecodeValue()
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	return got
}

func TestScalarRoundTrip(t *testing.T) {
	cases := []func() *si.Info{
		func() *si.Info { n := si.New(); n.SetInt(0); return n },
		func() *si.Info { n := si.New(); n.SetInt(-1); return n },
		func() *si.Info { n := si.New(); n.SetInt(127); return n },
		func() *si.Info { n := si.New(); n.SetInt(128); return n },
		func() *si.Info { n := si.New(); n.SetInt(math.MinInt64); return n },
		func() *si.Info { n := si.New(); n.SetUint(math.MaxUint64); return n },
		func() *si.Info { n := si.New(); n.SetBool(true); return n },
		func() *si.Info { n := si.New(); n.SetBool(false); return n },
		func() *si.Info { n := si.New(); n.SetString("hello, world"); return n },
		func() *si.Info { n := si.New(); n.SetString(""); return n },
		func() *si.Info { n := si.New(); n.SetChar('Q'); return n },
		func() *si.Info { n := si.New(); n.SetFloat(3.5); return n },
		func() *si.Info { n := si.New(); n.SetDouble(3.14159265358979); return n },
		func() *si.Info { n := si.New(); n.SetDouble(0); return n },
		func() *si.Info { n := si.New(); n.SetDouble(math.NaN()); return n },
		func() *si.Info { n := si.New(); n.SetDouble(math.Inf(1)); return n },
		func() *si.Info { n := si.New(); n.SetDouble(math.Inf(-1)); return n },
		func() *si.Info { n := si.New(); return n }, // Void
	}
	for _, mk := range cases {
		want := mk()
		got := roundTripValue(t, want)
		if want.ValueKind() == si.KindDouble && math.IsNaN(want.RawFloat()) {
			if got.ValueKind() != si.KindDouble || !math.IsNaN(got.RawFloat()) {
				t.Fatalf("NaN round trip failed: got %+v", got)
			}
			continue
		}
		if !want.Equal(got) {
			t.Fatalf("round trip mismatch: want category=%v kind=%v, got category=%v kind=%v",
				want.Category(), want.ValueKind(), got.Category(), got.ValueKind())
		}
	}
}

func TestDoubleEnvelopeSelection(t *testing.T) {
	// Exactly representable in 4 mantissa bits -> ShortFloat.
	short := 1.5
	_, special, exp, mant := splitDouble(short)
	if tag := chooseDoubleEnvelope(special, exp, mant); tag != tShortFloat {
		t.Fatalf("1.5 should choose ShortFloat, got tag %d", tag)
	}

	// math.Pi needs the full mantissa -> LongFloat.
	_, special, exp, mant = splitDouble(math.Pi)
	if tag := chooseDoubleEnvelope(special, exp, mant); tag != tLongFloat {
		t.Fatalf("Pi should choose LongFloat, got tag %d", tag)
	}
}

func TestObjectRoundTrip(t *testing.T) {
	root := si.New()
	root.SetTypeName("Point")
	root.AddMember("x").SetInt(10)
	root.AddMember("y").SetInt(20)

	got := roundTripValue(t, root)
	if !root.Equal(got) {
		t.Fatalf("object round trip mismatch:\nwant %#v\ngot  %#v", root, got)
	}
}

func TestArrayRoundTrip(t *testing.T) {
	root := si.New()
	root.SetArray()
	for _, v := range []int64{1, 2, 3, 4} {
		root.AddElement().SetInt(v)
	}
	got := roundTripValue(t, root)
	if !root.Equal(got) {
		t.Fatalf("array round trip mismatch")
	}
}

func TestNameDictionaryCompression(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	root := si.New()
	root.SetArray()
	for i := 0; i < 3; i++ {
		elem := root.AddElement()
		elem.SetTypeName("Point")
		elem.AddMember("x").SetInt(int64(i))
		elem.AddMember("y").SetInt(int64(i * 2))
	}
	if err := enc.EncodeValue(root); err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}
	enc.Flush()

	dec := NewDecoder(&buf)
	got, err := dec.DecodeValue()
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	if !root.Equal(got) {
		t.Fatalf("dictionary-compressed round trip mismatch")
	}
}

func TestBCDDecimalLiteralRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	enc.PreferBCDForDecimalStrings = true

	n := si.New()
	n.SetString("-123.450")
	if err := enc.EncodeValue(n); err != nil {
		t.Fatalf("EncodeValue: %v", err)
	}
	enc.Flush()

	dec := NewDecoder(&buf)
	got, err := dec.DecodeValue()
	if err != nil {
		t.Fatalf("DecodeValue: %v", err)
	}
	s, err := got.AsString()
	if err != nil {
		t.Fatalf("AsString: %v", err)
	}
	if s != "-123.450" {
		t.Fatalf("bcd round trip = %q, want -123.450", s)
	}
}

func TestRequestReplyFraming(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	a := si.New()
	a.SetInt(2)
	b := si.New()
	b.SetInt(3)
	if err := enc.EncodeRequest("", "multiply", []*si.Info{a, b}); err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}

	dec := NewDecoder(&buf)
	domain, method, args, err := dec.DecodeRequest()
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if domain != "" || method != "multiply" || len(args) != 2 {
		t.Fatalf("decoded request = domain=%q method=%q args=%d", domain, method, len(args))
	}
	x, _ := args[0].AsInt64()
	y, _ := args[1].AsInt64()
	if x != 2 || y != 3 {
		t.Fatalf("decoded args = %d, %d", x, y)
	}

	buf.Reset()
	result := si.New()
	result.SetInt(x * y)
	if err := enc.EncodeReplyOK(result); err != nil {
		t.Fatalf("EncodeReplyOK: %v", err)
	}
	dec2 := NewDecoder(&buf)
	reply, err := dec2.DecodeReply()
	if err != nil {
		t.Fatalf("DecodeReply: %v", err)
	}
	got, _ := reply.AsInt64()
	if got != 6 {
		t.Fatalf("reply = %d, want 6", got)
	}
}

func TestDomainScopedRequest(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	if err := enc.EncodeRequest("math", "add", nil); err != nil {
		t.Fatalf("EncodeRequest: %v", err)
	}
	dec := NewDecoder(&buf)
	domain, method, args, err := dec.DecodeRequest()
	if err != nil {
		t.Fatalf("DecodeRequest: %v", err)
	}
	if domain != "math" || method != "add" || len(args) != 0 {
		t.Fatalf("decoded = domain=%q method=%q args=%d", domain, method, len(args))
	}
}

func TestErrorReply(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	if err := enc.EncodeReplyError(404, "unknown method"); err != nil {
		t.Fatalf("EncodeReplyError: %v", err)
	}
	dec := NewDecoder(&buf)
	_, err := dec.DecodeReply()
	if err == nil {
		t.Fatalf("expected error reply to surface an error")
	}
	re, ok := err.(*RemoteError)
	if !ok {
		t.Fatalf("expected *RemoteError, got %T", err)
	}
	if re.Code != 404 || re.Message != "unknown method" {
		t.Fatalf("got %+v", re)
	}
}
