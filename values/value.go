package values

import "time"

// Ptr is an arena byte offset, or -1 for a null reference (spec §9:
// "model these as arena indices rather than raw pointers").
type Ptr int64

const NullPtr Ptr = -1

// Value is the tagged variant carried on the scope stack and passed
// through the evaluator: payload for reference-kinds is an arena Ptr,
// payload for value-kinds is held in-line in one of the typed fields.
type Value struct {
	Time time.Time // DateTime
	Str  string    // host-side scratch only; on-stack strings live in the heap as a Ptr
	Span time.Duration
	I    int64 // signed integer-ish kinds (Int, Long, Short, Sbyte, IntPtr)
	U    uint64 // unsigned integer-ish kinds (Uint, Ulong, UShort, Byte)
	F    float64 // Float, Double
	Dec  Decimal128
	Ptr  Ptr  // reference-kinds
	Ch   rune // Char
	B    bool // Bool
	Kind Kind
}

// Decimal128 is a minimal fixed-point decimal representation: mantissa
// scaled by 10^-scale, matching the precision semantics of a 96-bit
// decimal without pulling in an external bignum dependency.
type Decimal128 struct {
	Mantissa int64
	Scale    uint8
}

func IntValue(v int32) Value    { return Value{Kind: Int, I: int64(v)} }
func UintValue(v uint32) Value  { return Value{Kind: Uint, U: uint64(v)} }
func LongValue(v int64) Value   { return Value{Kind: Long, I: v} }
func UlongValue(v uint64) Value { return Value{Kind: Ulong, U: v} }
func ShortValue(v int16) Value  { return Value{Kind: Short, I: int64(v)} }
func UShortValue(v uint16) Value { return Value{Kind: UShort, U: uint64(v)} }
func ByteValue(v uint8) Value   { return Value{Kind: Byte, U: uint64(v)} }
func SbyteValue(v int8) Value   { return Value{Kind: Sbyte, I: int64(v)} }
func FloatValue(v float32) Value { return Value{Kind: Float, F: float64(v)} }
func DoubleValue(v float64) Value { return Value{Kind: Double, F: v} }
func BoolValue(v bool) Value    { return Value{Kind: Bool, B: v} }
func CharValue(v rune) Value    { return Value{Kind: Char, Ch: v} }
func IntPtrValue(v int32) Value { return Value{Kind: IntPtr, I: int64(v)} }
func DateTimeValue(t time.Time) Value { return Value{Kind: DateTime, Time: t} }
func TimeSpanValue(d time.Duration) Value { return Value{Kind: TimeSpan, Span: d} }

// RefValue builds a reference-kind value pointing at a heap block.
func RefValue(kind Kind, p Ptr) Value {
	return Value{Kind: kind, Ptr: p}
}

// IsNull reports whether a reference-kind value carries the null pointer.
func (v Value) IsNull() bool {
	return IsReferenceKind(v.Kind) && v.Ptr == NullPtr
}

// AsInt64 extracts a signed 64-bit view of any integral value-kind.
func (v Value) AsInt64() int64 {
	switch v.Kind {
	case Int, Long, Short, Sbyte, IntPtr:
		return v.I
	case Uint, Ulong, UShort, Byte:
		return int64(v.U)
	default:
		return 0
	}
}

// AsUint64 extracts an unsigned 64-bit view of any integral value-kind.
func (v Value) AsUint64() uint64 {
	switch v.Kind {
	case Uint, Ulong, UShort, Byte:
		return v.U
	case Int, Long, Short, Sbyte, IntPtr:
		return uint64(v.I)
	default:
		return 0
	}
}

// AsFloat64 extracts a floating view of Float/Double, widening integers.
func (v Value) AsFloat64() float64 {
	switch v.Kind {
	case Float, Double:
		return v.F
	default:
		if IsUnsignedKind(v.Kind) {
			return float64(v.AsUint64())
		}
		return float64(v.AsInt64())
	}
}
