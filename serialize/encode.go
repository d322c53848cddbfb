package serialize

import (
	"strconv"
	"strings"

	sberrors "github.com/kestrel-run/kestrel/errors"
	"github.com/kestrel-run/kestrel/heap"
	"github.com/kestrel-run/kestrel/values"
)

const (
	maxDepth        = 32
	maxOutputBytes  = 256 * 1024
	maxStringBytes  = 64 * 1024
	maxArrayLength  = 16384
	maxStructFields = 1024
)

// Serialize renders v as JSON-like text and stores it as a new heap
// String block, enforcing the depth and size caps of spec §4.7.
func Serialize(h *heap.Manager, v values.Value) (uint32, error) {
	var b strings.Builder
	if err := encode(h, &b, v, 0); err != nil {
		return 0, err
	}
	if b.Len() > maxOutputBytes {
		return 0, sberrors.ResourceExhausted(sberrors.PhaseSerial, "serialized output bytes", maxOutputBytes)
	}
	return h.NewString(b.String())
}

func encode(h *heap.Manager, b *strings.Builder, v values.Value, depth int) error {
	if depth > maxDepth {
		return sberrors.ResourceExhausted(sberrors.PhaseSerial, "serialization depth", maxDepth)
	}

	switch v.Kind {
	case values.Nullable:
		inner, ok := h.ReadNullable(uint32(v.Ptr))
		if !ok {
			b.WriteString("null")
			return nil
		}
		return encode(h, b, inner, depth+1)
	case values.String:
		s := h.ReadString(uint32(v.Ptr))
		if len(s) > maxStringBytes {
			return sberrors.ResourceExhausted(sberrors.PhaseSerial, "string bytes", maxStringBytes)
		}
		encodeString(b, s)
		return nil
	case values.Bool:
		b.WriteString(strconv.FormatBool(v.B))
		return nil
	case values.Array:
		return encodeArray(h, b, v, depth)
	case values.Tuple:
		return encodeTuple(h, b, v, depth)
	case values.Struct, values.Class:
		return encodeStruct(h, b, v, depth)
	case values.Dictionary:
		return encodeDict(h, b, v, depth)
	default:
		if v.IsNull() {
			b.WriteString("null")
			return nil
		}
		if values.IsNumericKind(v.Kind) {
			encodeNumber(b, v)
			return nil
		}
		b.WriteByte('"')
		b.WriteString(values.Stringify(v))
		b.WriteByte('"')
		return nil
	}
}

func encodeNumber(b *strings.Builder, v values.Value) {
	switch v.Kind {
	case values.Float, values.Double:
		b.WriteString(strconv.FormatFloat(v.AsFloat64(), 'g', -1, 64))
	case values.Decimal:
		scale := 1.0
		for i := uint8(0); i < v.Dec.Scale; i++ {
			scale *= 10
		}
		b.WriteString(strconv.FormatFloat(float64(v.Dec.Mantissa)/scale, 'f', -1, 64))
	default:
		if values.IsUnsignedKind(v.Kind) {
			b.WriteString(strconv.FormatUint(v.AsUint64(), 10))
		} else {
			b.WriteString(strconv.FormatInt(v.AsInt64(), 10))
		}
	}
}

func encodeString(b *strings.Builder, s string) {
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 {
				b.WriteString("\\u")
				hex := strconv.FormatInt(int64(r), 16)
				for len(hex) < 4 {
					hex = "0" + hex
				}
				b.WriteString(hex)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
}

func encodeArray(h *heap.Manager, b *strings.Builder, v values.Value, depth int) error {
	length := h.ArrayLen(uint32(v.Ptr))
	if length > maxArrayLength {
		return sberrors.ResourceExhausted(sberrors.PhaseSerial, "array length", maxArrayLength)
	}
	b.WriteByte('[')
	for i := 0; i < length; i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		elem, err := h.ArrayGet(uint32(v.Ptr), i)
		if err != nil {
			return err
		}
		if err := encode(h, b, elem, depth+1); err != nil {
			return err
		}
	}
	b.WriteByte(']')
	return nil
}

func encodeTuple(h *heap.Manager, b *strings.Builder, v values.Value, depth int) error {
	items := h.ReadTuple(uint32(v.Ptr))
	named := false
	for _, it := range items {
		if it.Name != "" {
			named = true
			break
		}
	}
	if !named {
		b.WriteByte('[')
		for i, it := range items {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := encode(h, b, it.Value, depth+1); err != nil {
				return err
			}
		}
		b.WriteByte(']')
		return nil
	}

	b.WriteString(`{"$tuple":[`)
	for i, it := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		if err := encode(h, b, it.Value, depth+1); err != nil {
			return err
		}
	}
	b.WriteString(`],"$names":[`)
	for i, it := range items {
		if i > 0 {
			b.WriteByte(',')
		}
		encodeString(b, it.Name)
	}
	b.WriteString("]}")
	return nil
}

func encodeStruct(h *heap.Manager, b *strings.Builder, v values.Value, depth int) error {
	names := h.FieldNames(uint32(v.Ptr))
	if len(names) > maxStructFields {
		return sberrors.ResourceExhausted(sberrors.PhaseSerial, "struct field count", maxStructFields)
	}
	b.WriteByte('{')
	for i, name := range names {
		if i > 0 {
			b.WriteByte(',')
		}
		encodeString(b, name)
		b.WriteByte(':')
		fv, err := h.ReadField(uint32(v.Ptr), name)
		if err != nil {
			return err
		}
		if err := encode(h, b, fv, depth+1); err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return nil
}

func encodeDict(h *heap.Manager, b *strings.Builder, v values.Value, depth int) error {
	count := h.DictCount(uint32(v.Ptr))
	if count > maxStructFields {
		return sberrors.ResourceExhausted(sberrors.PhaseSerial, "dictionary entry count", maxStructFields)
	}
	b.WriteByte('{')
	first := true
	var encErr error
	h.EachDictEntry(uint32(v.Ptr), func(k, val values.Value) bool {
		if !first {
			b.WriteByte(',')
		}
		first = false
		key := k
		if key.Kind == values.String {
			encodeString(b, h.ReadString(uint32(key.Ptr)))
		} else {
			encodeString(b, values.Stringify(key))
		}
		b.WriteByte(':')
		if err := encode(h, b, val, depth+1); err != nil {
			encErr = err
			return false
		}
		return true
	})
	if encErr != nil {
		return encErr
	}
	b.WriteByte('}')
	return nil
}
