package serialize

import (
	"strconv"
	"strings"
	"unicode/utf16"

	sberrors "github.com/kestrel-run/kestrel/errors"
	"github.com/kestrel-run/kestrel/heap"
	"github.com/kestrel-run/kestrel/values"
)

// Deserialize parses the JSON-like text stored in the String block at
// stringPtr back into a heap value, inferring array element kinds and
// representing a plain object (one without the reserved "$tuple" /
// "$names" keys) as a String-keyed Dictionary since no struct
// signature is known at parse time (spec §4.7 "Deserialization").
func Deserialize(h *heap.Manager, stringPtr uint32) (values.Value, error) {
	s := h.ReadString(stringPtr)
	d := &decoder{h: h, src: s}
	d.skipSpace()
	v, err := d.parseValue(0)
	if err != nil {
		return values.Value{}, err
	}
	d.skipSpace()
	if d.pos != len(d.src) {
		return values.Value{}, sberrors.ParseFailed("trailing data after JSON value", nil)
	}
	return v, nil
}

type decoder struct {
	h   *heap.Manager
	src string
	pos int
}

func (d *decoder) skipSpace() {
	for d.pos < len(d.src) {
		switch d.src[d.pos] {
		case ' ', '\t', '\n', '\r':
			d.pos++
		default:
			return
		}
	}
}

func (d *decoder) peek() (byte, bool) {
	if d.pos >= len(d.src) {
		return 0, false
	}
	return d.src[d.pos], true
}

func (d *decoder) parseValue(depth int) (values.Value, error) {
	if depth > maxDepth {
		return values.Value{}, sberrors.ResourceExhausted(sberrors.PhaseSerial, "deserialization depth", maxDepth)
	}
	d.skipSpace()
	c, ok := d.peek()
	if !ok {
		return values.Value{}, sberrors.ParseFailed("unexpected end of input", nil)
	}
	switch {
	case c == '"':
		s, err := d.parseString()
		if err != nil {
			return values.Value{}, err
		}
		ptr, err := d.h.NewString(s)
		if err != nil {
			return values.Value{}, err
		}
		return values.RefValue(values.String, values.Ptr(ptr)), nil
	case c == '{':
		return d.parseObject(depth)
	case c == '[':
		return d.parseArray(depth)
	case c == 't':
		return d.parseLiteral("true", values.BoolValue(true))
	case c == 'f':
		return d.parseLiteral("false", values.BoolValue(false))
	case c == 'n':
		return d.parseLiteralPtr("null", values.RefValue(values.Nullable, values.NullPtr))
	default:
		return d.parseNumber()
	}
}

func (d *decoder) parseLiteral(lit string, v values.Value) (values.Value, error) {
	if !strings.HasPrefix(d.src[d.pos:], lit) {
		return values.Value{}, sberrors.ParseFailed("invalid literal", nil)
	}
	d.pos += len(lit)
	return v, nil
}

func (d *decoder) parseLiteralPtr(lit string, v values.Value) (values.Value, error) {
	return d.parseLiteral(lit, v)
}

func (d *decoder) parseString() (string, error) {
	if b, _ := d.peek(); b != '"' {
		return "", sberrors.ParseFailed("expected string", nil)
	}
	d.pos++
	var b strings.Builder
	for d.pos < len(d.src) {
		c := d.src[d.pos]
		if c == '"' {
			d.pos++
			if b.Len() > maxStringBytes {
				return "", sberrors.ResourceExhausted(sberrors.PhaseSerial, "string bytes", maxStringBytes)
			}
			return b.String(), nil
		}
		if c == '\\' {
			d.pos++
			if d.pos >= len(d.src) {
				return "", sberrors.ParseFailed("unterminated escape", nil)
			}
			esc := d.src[d.pos]
			switch esc {
			case '"':
				b.WriteByte('"')
			case '\\':
				b.WriteByte('\\')
			case '/':
				b.WriteByte('/')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'u':
				if d.pos+4 >= len(d.src) {
					return "", sberrors.ParseFailed("invalid \\u escape", nil)
				}
				hex := d.src[d.pos+1 : d.pos+5]
				n, err := strconv.ParseUint(hex, 16, 32)
				if err != nil {
					return "", sberrors.ParseFailed("invalid \\u escape", err)
				}
				r := rune(n)
				d.pos += 4
				if utf16.IsSurrogate(r) && d.pos+6 < len(d.src) && d.src[d.pos+1] == '\\' && d.src[d.pos+2] == 'u' {
					hex2 := d.src[d.pos+3 : d.pos+7]
					n2, err := strconv.ParseUint(hex2, 16, 32)
					if err == nil {
						combined := utf16.DecodeRune(r, rune(n2))
						if combined != 0xFFFD {
							b.WriteRune(combined)
							d.pos += 6
							d.pos++
							continue
						}
					}
				}
				b.WriteRune(r)
			default:
				return "", sberrors.ParseFailed("unknown escape", nil)
			}
			d.pos++
			continue
		}
		b.WriteByte(c)
		d.pos++
	}
	return "", sberrors.ParseFailed("unterminated string", nil)
}

func (d *decoder) parseNumber() (values.Value, error) {
	start := d.pos
	isFloat := false
	if c, ok := d.peek(); ok && c == '-' {
		d.pos++
	}
	for d.pos < len(d.src) {
		c := d.src[d.pos]
		if c >= '0' && c <= '9' {
			d.pos++
			continue
		}
		if c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-' {
			isFloat = true
			d.pos++
			continue
		}
		break
	}
	lit := d.src[start:d.pos]
	if lit == "" {
		return values.Value{}, sberrors.ParseFailed("expected number", nil)
	}
	if isFloat {
		f, err := strconv.ParseFloat(lit, 64)
		if err != nil {
			return values.Value{}, sberrors.ParseFailed("invalid number", err)
		}
		return values.DoubleValue(f), nil
	}
	n, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return values.Value{}, sberrors.ParseFailed("invalid number", err)
	}
	return values.LongValue(n), nil
}

func (d *decoder) parseArray(depth int) (values.Value, error) {
	d.pos++ // '['
	var elems []values.Value
	d.skipSpace()
	if c, ok := d.peek(); ok && c == ']' {
		d.pos++
	} else {
		for {
			v, err := d.parseValue(depth + 1)
			if err != nil {
				return values.Value{}, err
			}
			elems = append(elems, v)
			if len(elems) > maxArrayLength {
				return values.Value{}, sberrors.ResourceExhausted(sberrors.PhaseSerial, "array length", maxArrayLength)
			}
			d.skipSpace()
			c, ok := d.peek()
			if !ok {
				return values.Value{}, sberrors.ParseFailed("unterminated array", nil)
			}
			if c == ',' {
				d.pos++
				continue
			}
			if c == ']' {
				d.pos++
				break
			}
			return values.Value{}, sberrors.ParseFailed("expected ',' or ']'", nil)
		}
	}

	elemKind := commonElemKind(elems)
	ptr, err := d.h.NewArray(elemKind, len(elems))
	if err != nil {
		return values.Value{}, err
	}
	for i, v := range elems {
		casted := v
		if v.Kind != elemKind {
			if c, err := values.Cast(v, elemKind); err == nil {
				casted = c
			} else {
				casted = values.Value{Kind: values.Object, Ptr: v.Ptr, I: v.I, U: v.U, F: v.F, B: v.B, Ch: v.Ch, Str: v.Str, Time: v.Time, Span: v.Span}
			}
		}
		if err := d.h.ArraySet(ptr, i, casted); err != nil {
			return values.Value{}, err
		}
	}
	return values.RefValue(values.Array, values.Ptr(ptr)), nil
}

// commonElemKind infers the homogeneous array element kind, widening
// to Object only when the elements are not all the same or mutually
// numeric kind (spec §4.7 "inferring homogeneous array element-kind").
func commonElemKind(elems []values.Value) values.Kind {
	if len(elems) == 0 {
		return values.Object
	}
	first := elems[0].Kind
	allSame, allNumeric := true, true
	for _, v := range elems {
		if v.Kind != first {
			allSame = false
		}
		if !values.IsNumericKind(v.Kind) {
			allNumeric = false
		}
	}
	if allSame {
		return first
	}
	if allNumeric {
		return values.Double
	}
	return values.Object
}

func (d *decoder) parseObject(depth int) (values.Value, error) {
	d.pos++ // '{'
	var keys []string
	var vals []values.Value
	d.skipSpace()
	if c, ok := d.peek(); ok && c == '}' {
		d.pos++
	} else {
		for {
			d.skipSpace()
			key, err := d.parseString()
			if err != nil {
				return values.Value{}, err
			}
			d.skipSpace()
			if c, ok := d.peek(); !ok || c != ':' {
				return values.Value{}, sberrors.ParseFailed("expected ':'", nil)
			}
			d.pos++
			v, err := d.parseValue(depth + 1)
			if err != nil {
				return values.Value{}, err
			}
			keys = append(keys, key)
			vals = append(vals, v)
			if len(keys) > maxStructFields {
				return values.Value{}, sberrors.ResourceExhausted(sberrors.PhaseSerial, "object field count", maxStructFields)
			}
			d.skipSpace()
			c, ok := d.peek()
			if !ok {
				return values.Value{}, sberrors.ParseFailed("unterminated object", nil)
			}
			if c == ',' {
				d.pos++
				continue
			}
			if c == '}' {
				d.pos++
				break
			}
			return values.Value{}, sberrors.ParseFailed("expected ',' or '}'", nil)
		}
	}

	if tupleIdx, namesIdx := indexOf(keys, "$tuple"), indexOf(keys, "$names"); tupleIdx >= 0 && namesIdx >= 0 {
		return d.buildNamedTuple(vals[tupleIdx], vals[namesIdx])
	}

	valKind := commonElemKind(vals)
	entries := make([]heap.DictEntry, len(keys))
	for i, k := range keys {
		kPtr, err := d.h.NewString(k)
		if err != nil {
			return values.Value{}, err
		}
		val := vals[i]
		if val.Kind != valKind {
			if c, err := values.Cast(val, valKind); err == nil {
				val = c
			}
		}
		entries[i] = heap.DictEntry{
			Key:   values.RefValue(values.String, values.Ptr(kPtr)),
			Value: val,
		}
	}
	ptr, err := d.h.AllocateDict(values.String, valKind, entries)
	if err != nil {
		return values.Value{}, err
	}
	return values.RefValue(values.Dictionary, values.Ptr(ptr)), nil
}

func indexOf(keys []string, name string) int {
	for i, k := range keys {
		if k == name {
			return i
		}
	}
	return -1
}

func (d *decoder) buildNamedTuple(tupleArr, namesArr values.Value) (values.Value, error) {
	n := d.h.ArrayLen(uint32(tupleArr.Ptr))
	items := make([]heap.TupleItem, n)
	for i := 0; i < n; i++ {
		v, err := d.h.ArrayGet(uint32(tupleArr.Ptr), i)
		if err != nil {
			return values.Value{}, err
		}
		name := ""
		if nv, err := d.h.ArrayGet(uint32(namesArr.Ptr), i); err == nil && nv.Kind == values.String {
			name = d.h.ReadString(uint32(nv.Ptr))
		}
		items[i] = heap.TupleItem{Name: name, Value: v}
	}
	ptr, err := d.h.AllocateTuple(items)
	if err != nil {
		return values.Value{}, err
	}
	return values.RefValue(values.Tuple, values.Ptr(ptr)), nil
}
