package vm

import (
	"math"
	"strconv"
)

// Value represents a morph value using NaN-boxing.
//
// All values are represented as 64-bit IEEE 754 doubles. Non-float values
// are encoded in the NaN (Not-a-Number) space using the quiet NaN prefix
// and tag bits to distinguish types.
//
// Encoding scheme:
//   - Float: Native IEEE 754 double (if not a NaN, it's a float)
//   - SmallInt: Quiet NaN + tagInt + 48-bit signed payload
//   - Object: Quiet NaN + tagObject + heap handle
//   - String: Quiet NaN + tagString + interned name ID
//   - Special: Quiet NaN + tagSpecial + special value ID (undefined/null/true/false/empty)
//
// Objects are referenced by heap handle rather than by pointer so that the
// Go collector keeps seeing every live *Object through the engine's heap.
type Value uint64

// NaN-boxing constants
const (
	// Quiet NaN prefix: exponent all 1s, quiet bit set, sign bit 0
	// 0x7FF8_0000_0000_0000
	nanBits uint64 = 0x7FF8000000000000

	// Tag mask: 3 bits within the NaN mantissa space
	// 0x0007_0000_0000_0000
	tagMask uint64 = 0x0007000000000000

	// Payload mask: 48 bits for handle/int/id
	// 0x0000_FFFF_FFFF_FFFF
	payloadMask uint64 = 0x0000FFFFFFFFFFFF

	tagObject  uint64 = 0x0001000000000000 // Heap handle
	tagInt     uint64 = 0x0002000000000000 // 48-bit signed integer
	tagSpecial uint64 = 0x0003000000000000 // undefined, null, true, false, empty
	tagString  uint64 = 0x0004000000000000 // Interned string (Name)

	// Sign bit for 48-bit integer sign extension
	intSignBit uint64 = 0x0000800000000000

	// Mask for sign extension
	intSignExtend uint64 = 0xFFFF000000000000
)

// Special value payloads
const (
	specialUndefined uint64 = 0
	specialNull      uint64 = 1
	specialTrue      uint64 = 2
	specialFalse     uint64 = 3
	specialEmpty     uint64 = 4
)

// Pre-defined special values
const (
	Undefined Value = Value(nanBits | tagSpecial | specialUndefined)
	Null      Value = Value(nanBits | tagSpecial | specialNull)
	True      Value = Value(nanBits | tagSpecial | specialTrue)
	False     Value = Value(nanBits | tagSpecial | specialFalse)

	// empty marks a hole in dense array storage. It never leaves this package.
	empty Value = Value(nanBits | tagSpecial | specialEmpty)
)

// SmallInt range (48-bit signed)
const (
	MaxSmallInt int64 = (1 << 47) - 1
	MinSmallInt int64 = -(1 << 47)
)

// ---------------------------------------------------------------------------
// Type checking
// ---------------------------------------------------------------------------

// IsFloat returns true if v represents a float64 value.
// Infinities and untagged NaNs count as floats.
func (v Value) IsFloat() bool {
	bits := uint64(v)
	if (bits & 0x7FF0000000000000) != 0x7FF0000000000000 {
		return true
	}
	if bits&0x000FFFFFFFFFFFFF == 0 {
		return true // +Inf / -Inf
	}
	if (bits & nanBits) != nanBits {
		return true // signaling NaN
	}
	return bits&tagMask == 0
}

// IsSmallInt returns true if v represents a small integer.
func (v Value) IsSmallInt() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagInt)
}

// IsNumber returns true for both representations of numbers.
func (v Value) IsNumber() bool {
	return v.IsSmallInt() || v.IsFloat()
}

// IsObject returns true if v holds an object handle.
func (v Value) IsObject() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagObject)
}

// IsString returns true if v holds an interned string.
func (v Value) IsString() bool {
	return (uint64(v) & (nanBits | tagMask)) == (nanBits | tagString)
}

func (v Value) IsUndefined() bool { return v == Undefined }
func (v Value) IsNull() bool      { return v == Null }
func (v Value) IsBool() bool      { return v == True || v == False }

func (v Value) isEmpty() bool { return v == empty }

// ---------------------------------------------------------------------------
// Constructors and accessors
// ---------------------------------------------------------------------------

// FromFloat64 creates a Value from a float64. Integral values that fit the
// small-int range are stored as small ints so SameValue stays bitwise.
// Every NaN is stored as the canonical quiet NaN so its payload can never
// alias a tagged value.
func FromFloat64(f float64) Value {
	if f != f {
		return Value(nanBits)
	}
	if f == math.Trunc(f) && f >= float64(MinSmallInt) && f <= float64(MaxSmallInt) {
		if f != 0 || !math.Signbit(f) {
			return FromSmallInt(int64(f))
		}
	}
	return Value(math.Float64bits(f))
}

// Float64 returns v as a float64, converting small ints.
// Panics if v is not a number.
func (v Value) Float64() float64 {
	if v.IsSmallInt() {
		return float64(v.SmallInt())
	}
	if !v.IsFloat() {
		panic("Value.Float64: not a number")
	}
	return math.Float64frombits(uint64(v))
}

// FromSmallInt creates a Value from an int64.
// Panics if n is outside the SmallInt range.
func FromSmallInt(n int64) Value {
	if n > MaxSmallInt || n < MinSmallInt {
		panic("FromSmallInt: value out of range")
	}
	return Value(nanBits | tagInt | (uint64(n) & payloadMask))
}

// FromInt is a convenience wrapper that falls back to a float outside the
// small-int range.
func FromInt(n int) Value {
	if int64(n) > MaxSmallInt || int64(n) < MinSmallInt {
		return Value(math.Float64bits(float64(n)))
	}
	return FromSmallInt(int64(n))
}

// SmallInt returns v as an int64.
// Panics if v is not a small integer.
func (v Value) SmallInt() int64 {
	if !v.IsSmallInt() {
		panic("Value.SmallInt: not a small integer")
	}
	payload := uint64(v) & payloadMask
	if (payload & intSignBit) != 0 {
		payload |= intSignExtend
	}
	return int64(payload)
}

// FromBool creates a Value from a bool.
func FromBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Bool returns v as a bool.
// Panics if v is not true or false.
func (v Value) Bool() bool {
	switch v {
	case True:
		return true
	case False:
		return false
	default:
		panic("Value.Bool: not a boolean")
	}
}

// FromName creates a string Value from an interned name.
func FromName(n Name) Value {
	return Value(nanBits | tagString | uint64(n))
}

// Name returns the interned name of a string value.
// Panics if v is not a string.
func (v Value) Name() Name {
	if !v.IsString() {
		panic("Value.Name: not a string")
	}
	return Name(uint64(v) & payloadMask)
}

func fromHandle(h uint32) Value {
	return Value(nanBits | tagObject | uint64(h))
}

func (v Value) handle() uint32 {
	return uint32(uint64(v) & payloadMask)
}

// ---------------------------------------------------------------------------
// Comparison
// ---------------------------------------------------------------------------

// SameValue implements the SameValue algorithm over the boxed
// representation: NaN equals NaN, +0 and -0 differ.
func SameValue(a, b Value) bool {
	if a == b {
		return true
	}
	if a.IsFloat() && b.IsFloat() {
		fa, fb := a.Float64(), b.Float64()
		return math.IsNaN(fa) && math.IsNaN(fb)
	}
	return false
}

// ArrayLength converts v to an array length, reporting false when v is not
// an integral number in [0, 2^32-1].
func (v Value) ArrayLength() (uint32, bool) {
	if v.IsSmallInt() {
		n := v.SmallInt()
		if n < 0 || n > math.MaxUint32 {
			return 0, false
		}
		return uint32(n), true
	}
	if v.IsFloat() {
		f := v.Float64()
		if f < 0 || f > math.MaxUint32 || f != math.Trunc(f) {
			return 0, false
		}
		return uint32(f), true
	}
	return 0, false
}

// GoString renders a value without needing the engine; strings and objects
// show their ids.
func (v Value) GoString() string {
	switch {
	case v == Undefined:
		return "undefined"
	case v == Null:
		return "null"
	case v == True:
		return "true"
	case v == False:
		return "false"
	case v == empty:
		return "<empty>"
	case v.IsSmallInt():
		return strconv.FormatInt(v.SmallInt(), 10)
	case v.IsString():
		return "string#" + strconv.FormatUint(uint64(v.Name()), 10)
	case v.IsObject():
		return "object#" + strconv.FormatUint(uint64(v.handle()), 10)
	default:
		return strconv.FormatFloat(v.Float64(), 'g', -1, 64)
	}
}
