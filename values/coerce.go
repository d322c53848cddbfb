package values

import (
	"math"
	"strconv"
	"strings"
	"time"

	sberrors "github.com/kestrel-run/kestrel/errors"
)

// InferKind reports the natural Kind of a host-side literal (spec §4.4).
// A Go rune is an int32, so it reports Int, not Char.
func InferKind(v any) Kind {
	switch v.(type) {
	case bool:
		return Bool
	case int32:
		return Int
	case uint32:
		return Uint
	case int64:
		return Long
	case uint64:
		return Ulong
	case float32:
		return Float
	case float64:
		return Double
	case string:
		return String
	default:
		return Object
	}
}

// Match reports whether v's runtime kind already satisfies kind without
// any conversion: exact match, or an Object target, which every value
// satisfies.
func Match(v Value, kind Kind) bool {
	if v.Kind == kind {
		return true
	}
	if kind == Object {
		return true
	}
	return false
}

// Cast converts v to kind, implementing the widening/narrowing table of
// spec §4.4. Numeric narrowing is checked: overflow raises Overflow.
// Textual <-> numeric/temporal conversions are culture-invariant
// (decimal point only, no grouping separators, no locale dependence).
func Cast(v Value, kind Kind) (Value, error) {
	if v.Kind == kind {
		return v, nil
	}

	if kind == Nullable {
		return castToNullablePack(v)
	}

	switch {
	case v.Kind == String:
		return castFromString(v, kind)
	case kind == String:
		return Value{Kind: String, Str: Stringify(v)}, nil
	case IsNumericKind(v.Kind) && IsNumericKind(kind):
		return castNumeric(v, kind)
	case v.Kind == Bool && kind == Bool:
		return v, nil
	case v.Kind == Char && IsIntegerKind(kind):
		return castNumeric(Value{Kind: Int, I: int64(v.Ch)}, kind)
	case IsIntegerKind(v.Kind) && kind == Char:
		return Value{Kind: Char, Ch: rune(v.AsInt64())}, nil
	case kind == Object:
		return Value{Kind: Object, Ptr: v.Ptr, I: v.I, U: v.U, F: v.F, B: v.B, Ch: v.Ch, Str: v.Str, Time: v.Time, Span: v.Span}, nil
	}

	return Value{}, sberrors.TypeMismatch(sberrors.PhaseValue, nil, "cannot cast %s to %s", v.Kind, kind)
}

func castToNullablePack(v Value) (Value, error) {
	if v.Kind == Nullable {
		return v, nil
	}
	// A concrete cast-to-Nullable is performed by the heap composite
	// service (it must allocate a block); here v is returned unchanged.
	return v, nil
}

func castFromString(v Value, kind Kind) (Value, error) {
	s := strings.TrimSpace(v.Str)
	switch kind {
	case Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, sberrors.TypeMismatch(sberrors.PhaseValue, nil, "cannot parse %q as Bool", s)
		}
		return Value{Kind: Bool, B: b}, nil
	case Int, Long, Short, Sbyte, IntPtr:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return Value{}, sberrors.TypeMismatch(sberrors.PhaseValue, nil, "cannot parse %q as %s", s, kind)
		}
		return checkedNarrowSigned(n, kind)
	case Uint, Ulong, UShort, Byte:
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return Value{}, sberrors.TypeMismatch(sberrors.PhaseValue, nil, "cannot parse %q as %s", s, kind)
		}
		return checkedNarrowUnsigned(n, kind)
	case Float:
		f, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return Value{}, sberrors.TypeMismatch(sberrors.PhaseValue, nil, "cannot parse %q as Float", s)
		}
		return Value{Kind: Float, F: f}, nil
	case Double:
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, sberrors.TypeMismatch(sberrors.PhaseValue, nil, "cannot parse %q as Double", s)
		}
		return Value{Kind: Double, F: f}, nil
	case DateTime:
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return Value{}, sberrors.TypeMismatch(sberrors.PhaseValue, nil, "cannot parse %q as DateTime", s)
		}
		return Value{Kind: DateTime, Time: t}, nil
	case Char:
		r := []rune(s)
		if len(r) != 1 {
			return Value{}, sberrors.TypeMismatch(sberrors.PhaseValue, nil, "cannot parse %q as Char", s)
		}
		return Value{Kind: Char, Ch: r[0]}, nil
	}
	return Value{}, sberrors.TypeMismatch(sberrors.PhaseValue, nil, "cannot cast String to %s", kind)
}

// Stringify renders v's in-line value-kind as culture-invariant text.
// Reference-kinds, String included, render as the empty string here;
// their text is read from the block payload by the heap service.
func Stringify(v Value) string {
	switch v.Kind {
	case Bool:
		return strconv.FormatBool(v.B)
	case Char:
		return string(v.Ch)
	case Float:
		return strconv.FormatFloat(v.F, 'g', -1, 32)
	case Double:
		return strconv.FormatFloat(v.F, 'g', -1, 64)
	case DateTime:
		return v.Time.Format(time.RFC3339)
	case TimeSpan:
		return v.Span.String()
	default:
		if IsUnsignedKind(v.Kind) {
			return strconv.FormatUint(v.AsUint64(), 10)
		}
		if IsIntegerKind(v.Kind) {
			return strconv.FormatInt(v.AsInt64(), 10)
		}
		return ""
	}
}

func castNumeric(v Value, kind Kind) (Value, error) {
	if kind == Float || kind == Double {
		f := v.AsFloat64()
		if kind == Float {
			return Value{Kind: Float, F: float64(float32(f))}, nil
		}
		return Value{Kind: Double, F: f}, nil
	}
	if v.Kind == Float || v.Kind == Double {
		f := v.F
		if IsUnsignedKind(kind) {
			if f < 0 || math.Trunc(f) != f {
				return Value{}, sberrors.Overflow(sberrors.PhaseValue, nil, v, kind.String())
			}
			return checkedNarrowUnsigned(uint64(f), kind)
		}
		if math.Trunc(f) != f {
			return Value{}, sberrors.Overflow(sberrors.PhaseValue, nil, v, kind.String())
		}
		return checkedNarrowSigned(int64(f), kind)
	}
	if IsUnsignedKind(kind) {
		return checkedNarrowUnsigned(v.AsUint64(), kind)
	}
	return checkedNarrowSigned(v.AsInt64(), kind)
}

func checkedNarrowSigned(n int64, kind Kind) (Value, error) {
	var lo, hi int64
	switch kind {
	case Sbyte:
		lo, hi = math.MinInt8, math.MaxInt8
	case Short:
		lo, hi = math.MinInt16, math.MaxInt16
	case Int, IntPtr:
		lo, hi = math.MinInt32, math.MaxInt32
	case Long:
		lo, hi = math.MinInt64, math.MaxInt64
	default:
		lo, hi = math.MinInt64, math.MaxInt64
	}
	if n < lo || n > hi {
		return Value{}, sberrors.Overflow(sberrors.PhaseValue, nil, n, kind.String())
	}
	return Value{Kind: kind, I: n}, nil
}

func checkedNarrowUnsigned(n uint64, kind Kind) (Value, error) {
	var hi uint64
	switch kind {
	case Byte:
		hi = math.MaxUint8
	case UShort:
		hi = math.MaxUint16
	case Uint:
		hi = math.MaxUint32
	case Ulong:
		hi = math.MaxUint64
	default:
		hi = math.MaxUint64
	}
	if n > hi {
		return Value{}, sberrors.Overflow(sberrors.PhaseValue, nil, n, kind.String())
	}
	return Value{Kind: kind, U: n}, nil
}
