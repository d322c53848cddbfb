package heap

import (
	"github.com/kestrel-run/kestrel/arena"
	sberrors "github.com/kestrel-run/kestrel/errors"
	"github.com/kestrel-run/kestrel/values"
)

// FieldDecl is one field of a struct declaration, used to build the
// signature block once per struct type (spec §3 "Structs").
type FieldDecl struct {
	Default    *values.Value // nil when the field has no initializer
	Name       string
	Kind       values.Kind
	HasDefault bool
}

// AllocateSignature packs a struct's field declarations into a
// signature block (kind=Byte): for each field,
// kind(1) | name-len(1) | name-bytes | has-init(1) | default-payload?.
func (m *Manager) AllocateSignature(fields []FieldDecl) (uint32, error) {
	var payloadLen uint32
	for _, f := range fields {
		payloadLen += 1 + 1 + uint32(len(f.Name)) + 1
		if f.HasDefault {
			payloadLen += values.Size(f.Kind)
		}
	}
	ptr, err := m.Alloc.Malloc(payloadLen, uint8(values.Byte), false)
	if err != nil {
		return 0, err
	}
	buf := m.Arena.Bytes()
	off := int(ptr)
	for _, f := range fields {
		buf[off] = uint8(f.Kind)
		off++
		buf[off] = byte(len(f.Name))
		off++
		copy(buf[off:off+len(f.Name)], f.Name)
		off += len(f.Name)
		if f.HasDefault {
			buf[off] = 1
			off++
			m.writeInline(f.Kind, off, *f.Default)
			off += int(values.Size(f.Kind))
		} else {
			buf[off] = 0
			off++
		}
	}
	return ptr, nil
}

// sigField is a decoded signature entry with its default value (if
// any), used by NewStruct/field lookup.
type sigField struct {
	Default  values.Value
	Name     string
	Kind     values.Kind
	HasInit  bool
}

func (m *Manager) readSignature(sigPtr uint32) []sigField {
	headerAddr := arena.HeaderAddr(sigPtr)
	buf := m.Arena.Bytes()
	total := arena.ReadLength(buf, headerAddr)
	end := int(sigPtr) + int(total) - arena.HeaderSize

	var fields []sigField
	off := int(sigPtr)
	for off < end {
		kind := values.Kind(buf[off])
		off++
		nameLen := int(buf[off])
		off++
		name := string(buf[off : off+nameLen])
		off += nameLen
		hasInit := buf[off] != 0
		off++
		var def values.Value
		if hasInit {
			def = m.readInline(kind, off)
			off += int(values.Size(kind))
		}
		fields = append(fields, sigField{Name: name, Kind: kind, HasInit: hasInit, Default: def})
	}
	return fields
}

// instFieldWidth mirrors the struct instance layout: actual-kind(1) + payload.
func instFieldWidth(kind values.Kind) uint32 { return 1 + values.Size(kind) }

// NewStruct allocates an instance block for the struct described by
// sigPtr: payload [sig-ptr(4) | for each field: actual-kind(1) | payload].
// Fields default from the signature's initializer, else zero
// (value-kinds) or the null pointer (reference-kinds).
func (m *Manager) NewStruct(sigPtr uint32) (uint32, error) {
	fields := m.readSignature(sigPtr)
	var payloadLen uint32 = 4
	for _, f := range fields {
		payloadLen += instFieldWidth(f.Kind)
	}

	ptr, err := m.Alloc.Malloc(payloadLen, uint8(values.Struct), false)
	if err != nil {
		return 0, err
	}
	buf := m.Arena.Bytes()
	writePtr32(buf, int(ptr), sigPtr)

	off := int(ptr) + 4
	for _, f := range fields {
		buf[off] = uint8(f.Kind)
		off++
		if f.HasInit {
			m.writeInline(f.Kind, off, f.Default)
		} else if values.IsReferenceKind(f.Kind) {
			writePtr32(buf, off, 0xFFFFFFFF)
		}
		off += int(values.Size(f.Kind))
	}
	return ptr, nil
}

// GetFieldOffset returns the absolute payload offset and actual kind of
// field name within the instance at instPtr.
func (m *Manager) GetFieldOffset(instPtr uint32, name string) (int, values.Kind, error) {
	buf := m.Arena.Bytes()
	sigPtr := readPtr32(buf, int(instPtr))
	fields := m.readSignature(sigPtr)

	off := int(instPtr) + 4
	for _, f := range fields {
		actualKind := values.Kind(buf[off])
		fieldOff := off + 1
		if f.Name == name {
			return fieldOff, actualKind, nil
		}
		off = fieldOff + int(values.Size(actualKind))
	}
	return 0, 0, sberrors.NameError(sberrors.PhaseHeap, name, "no such struct field")
}

// WriteField writes v into field name of the instance at instPtr.
func (m *Manager) WriteField(instPtr uint32, name string, v values.Value) error {
	off, kind, err := m.GetFieldOffset(instPtr, name)
	if err != nil {
		return err
	}
	if kind != v.Kind && kind != values.Object {
		return sberrors.TypeMismatch(sberrors.PhaseHeap, []string{name}, "field %q expects %s, got %s", name, kind, v.Kind)
	}
	m.writeInline(kind, off, v)
	return nil
}

// ReadField reads field name of the instance at instPtr.
func (m *Manager) ReadField(instPtr uint32, name string) (values.Value, error) {
	off, kind, err := m.GetFieldOffset(instPtr, name)
	if err != nil {
		return values.Value{}, err
	}
	return m.readInline(kind, off), nil
}

// FieldNames returns the struct's field names in signature declaration
// order, used by serialization to preserve field order (spec §8
// scenario 5).
func (m *Manager) FieldNames(instPtr uint32) []string {
	buf := m.Arena.Bytes()
	sigPtr := readPtr32(buf, int(instPtr))
	fields := m.readSignature(sigPtr)
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}
