package heap

import (
	"math"
	"time"

	"github.com/kestrel-run/kestrel/values"
)

// readInline decodes an in-line value-kind payload (or a 4-byte
// pointer for reference-kinds) at absolute byte offset off.
func (m *Manager) readInline(kind values.Kind, off int) values.Value {
	buf := m.Arena.Bytes()
	if values.IsReferenceKind(kind) {
		return values.RefValue(kind, values.Ptr(int32(readPtr32(buf, off))))
	}
	switch kind {
	case Byte:
		return values.ByteValue(buf[off])
	case Sbyte:
		return values.SbyteValue(int8(buf[off]))
	case Bool:
		return values.BoolValue(buf[off] != 0)
	case Short:
		return values.ShortValue(int16(uint16(buf[off]) | uint16(buf[off+1])<<8))
	case UShort:
		return values.UShortValue(uint16(buf[off]) | uint16(buf[off+1])<<8)
	case Char:
		return values.CharValue(rune(uint16(buf[off]) | uint16(buf[off+1])<<8))
	case Int:
		return values.IntValue(int32(readPtr32(buf, off)))
	case Uint:
		return values.UintValue(readPtr32(buf, off))
	case IntPtr:
		return values.IntPtrValue(int32(readPtr32(buf, off)))
	case Float:
		bits := readPtr32(buf, off)
		return values.FloatValue(math.Float32frombits(bits))
	case Long:
		return values.LongValue(int64(readU64(buf, off)))
	case Ulong:
		return values.UlongValue(readU64(buf, off))
	case Double:
		bits := readU64(buf, off)
		return values.DoubleValue(math.Float64frombits(bits))
	case DateTime:
		bits := readU64(buf, off)
		return values.DateTimeValue(time.Unix(0, int64(bits)).UTC())
	case TimeSpan:
		bits := readU64(buf, off)
		return values.TimeSpanValue(time.Duration(int64(bits)))
	default:
		return values.Value{Kind: kind}
	}
}

// writeInline encodes v's in-line payload (or 4-byte pointer) at
// absolute byte offset off.
func (m *Manager) writeInline(kind values.Kind, off int, v values.Value) {
	buf := m.Arena.Bytes()
	if values.IsReferenceKind(kind) {
		writePtr32(buf, off, uint32(int32(v.Ptr)))
		return
	}
	switch kind {
	case Byte, Sbyte, Bool:
		if kind == Bool {
			if v.B {
				buf[off] = 1
			} else {
				buf[off] = 0
			}
			return
		}
		buf[off] = byte(v.AsInt64())
	case Short, UShort, Char:
		var n uint16
		if kind == Char {
			n = uint16(v.Ch)
		} else {
			n = uint16(v.AsInt64())
		}
		buf[off] = byte(n)
		buf[off+1] = byte(n >> 8)
	case Int, IntPtr:
		writePtr32(buf, off, uint32(v.AsInt64()))
	case Uint:
		writePtr32(buf, off, uint32(v.AsUint64()))
	case Float:
		writePtr32(buf, off, math.Float32bits(float32(v.F)))
	case Long:
		writeU64(buf, off, uint64(v.AsInt64()))
	case Ulong:
		writeU64(buf, off, v.AsUint64())
	case Double:
		writeU64(buf, off, math.Float64bits(v.F))
	case DateTime:
		writeU64(buf, off, uint64(v.Time.UnixNano()))
	case TimeSpan:
		writeU64(buf, off, uint64(int64(v.Span)))
	}
}

func readU64(buf []byte, off int) uint64 {
	var n uint64
	for i := 0; i < 8; i++ {
		n |= uint64(buf[off+i]) << (8 * i)
	}
	return n
}

func writeU64(buf []byte, off int, n uint64) {
	for i := 0; i < 8; i++ {
		buf[off+i] = byte(n >> (8 * i))
	}
}

// valueEqual implements the value-kind/byte-equality rules used by
// IndexOf/Distinct/dictionary key comparison (spec §4.7 "Dictionaries").
func (m *Manager) valueEqual(a, b values.Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	if a.Kind == String {
		return m.ReadString(uint32(a.Ptr)) == m.ReadString(uint32(b.Ptr))
	}
	if values.IsReferenceKind(a.Kind) {
		return a.Ptr == b.Ptr // reference keys of other kinds compare by pointer identity
	}
	switch a.Kind {
	case Bool:
		return a.B == b.B
	case Char:
		return a.Ch == b.Ch
	case Float, Double:
		return a.F == b.F
	default:
		if values.IsUnsignedKind(a.Kind) {
			return a.AsUint64() == b.AsUint64()
		}
		return a.AsInt64() == b.AsInt64()
	}
}

func (m *Manager) valueLess(a, b values.Value) bool {
	if a.Kind == String {
		return m.ReadString(uint32(a.Ptr)) < m.ReadString(uint32(b.Ptr))
	}
	if values.IsNumericKind(a.Kind) {
		return a.AsFloat64() < b.AsFloat64()
	}
	return false
}

// Kind aliases for readability within this package's files.
const (
	Byte     = values.Byte
	Sbyte    = values.Sbyte
	Bool     = values.Bool
	Short    = values.Short
	UShort   = values.UShort
	Char     = values.Char
	Int      = values.Int
	Uint     = values.Uint
	IntPtr   = values.IntPtr
	Float    = values.Float
	Long     = values.Long
	Ulong    = values.Ulong
	Double   = values.Double
	DateTime = values.DateTime
	TimeSpan = values.TimeSpan
	String   = values.String
)
