package vm

import (
	"math"
	"testing"
)

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

func TestFloatEncoding(t *testing.T) {
	v := FromFloat64(1.5)
	if !v.IsFloat() || v.IsSmallInt() {
		t.Fatalf("FromFloat64(1.5) should be a float")
	}
	if got := v.Float64(); got != 1.5 {
		t.Errorf("Float64() = %v, want 1.5", got)
	}

	if !FromFloat64(math.NaN()).IsFloat() {
		t.Errorf("NaN should be a float")
	}
	if !FromFloat64(math.Inf(-1)).IsFloat() {
		t.Errorf("-Inf should be a float")
	}
}

func TestNaNPayloadsAreCanonical(t *testing.T) {
	payloads := []uint64{
		0x7FF8000000000001,
		0x7FFC000000000007, // quiet NaN carrying string tag bits
		0x7FF9000000000002, // quiet NaN carrying object tag bits
		0xFFFB000000000001, // negative NaN carrying special tag bits
		0x7FF0000000000001, // signaling NaN
	}
	for _, bits := range payloads {
		v := FromFloat64(math.Float64frombits(bits))
		if v != FromFloat64(math.NaN()) {
			t.Errorf("FromFloat64(%#x) = %#x, want canonical NaN", bits, uint64(v))
		}
		if !v.IsFloat() || v.IsString() || v.IsObject() || v.IsSmallInt() {
			t.Errorf("FromFloat64(%#x) decodes as a tagged value", bits)
		}
		if !math.IsNaN(v.Float64()) {
			t.Errorf("FromFloat64(%#x).Float64() = %v, want NaN", bits, v.Float64())
		}
	}
}

func TestIntegralFloatsBecomeSmallInts(t *testing.T) {
	v := FromFloat64(3)
	if !v.IsSmallInt() {
		t.Fatalf("FromFloat64(3) should be a small int")
	}
	if v != FromSmallInt(3) {
		t.Errorf("FromFloat64(3) = %#v, want %#v", v, FromSmallInt(3))
	}

	negZero := FromFloat64(math.Copysign(0, -1))
	if !negZero.IsFloat() {
		t.Errorf("-0 should stay a float")
	}
}

func TestSmallIntRoundTrip(t *testing.T) {
	for _, n := range []int64{0, 1, -1, 42, MaxSmallInt, MinSmallInt} {
		if got := FromSmallInt(n).SmallInt(); got != n {
			t.Errorf("SmallInt(%d) = %d", n, got)
		}
	}
}

func TestSpecials(t *testing.T) {
	for _, v := range []Value{Undefined, Null, True, False} {
		if v.IsFloat() || v.IsObject() || v.IsString() || v.IsSmallInt() {
			t.Errorf("%#v misclassified", v)
		}
	}
	if !Undefined.IsUndefined() || !Null.IsNull() || !True.IsBool() {
		t.Errorf("special predicates failed")
	}
	if FromBool(true) != True || FromBool(false).Bool() {
		t.Errorf("bool round trip failed")
	}
}

func TestStringAndHandleTags(t *testing.T) {
	s := FromName(7)
	if !s.IsString() || s.Name() != 7 {
		t.Errorf("FromName(7) = %#v", s)
	}
	h := fromHandle(3)
	if !h.IsObject() || h.handle() != 3 {
		t.Errorf("fromHandle(3) = %#v", h)
	}
}

// ---------------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------------

func TestSameValue(t *testing.T) {
	tests := []struct {
		a, b Value
		want bool
	}{
		{FromInt(1), FromInt(1), true},
		{FromInt(1), FromInt(2), false},
		{FromFloat64(math.NaN()), FromFloat64(math.NaN()), true},
		{FromFloat64(0), FromFloat64(math.Copysign(0, -1)), false},
		{Undefined, Null, false},
		{FromName(3), FromName(3), true},
	}
	for _, tt := range tests {
		if got := SameValue(tt.a, tt.b); got != tt.want {
			t.Errorf("SameValue(%#v, %#v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestArrayLength(t *testing.T) {
	tests := []struct {
		v    Value
		want uint32
		ok   bool
	}{
		{FromInt(0), 0, true},
		{FromInt(10), 10, true},
		{FromFloat64(4294967295), 4294967295, true},
		{FromFloat64(4294967296), 0, false},
		{FromInt(-1), 0, false},
		{FromFloat64(1.5), 0, false},
		{Undefined, 0, false},
	}
	for _, tt := range tests {
		got, ok := tt.v.ArrayLength()
		if got != tt.want || ok != tt.ok {
			t.Errorf("ArrayLength(%#v) = %d, %v; want %d, %v", tt.v, got, ok, tt.want, tt.ok)
		}
	}
}
