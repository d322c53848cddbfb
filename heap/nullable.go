package heap

import (
	"github.com/kestrel-run/kestrel/values"
)

// PackNullable allocates a Nullable block with payload
// [base-kind(1) | in-line value]. A nil v packs an empty payload and
// the null pointer sentinel is used by callers instead of allocating
// (spec §3 "Nullables": "A null nullable is the pointer -1").
func (m *Manager) PackNullable(v values.Value) (uint32, error) {
	payloadLen := 1 + values.Size(v.Kind)
	ptr, err := m.Alloc.Malloc(payloadLen, uint8(values.Nullable), false)
	if err != nil {
		return 0, err
	}
	buf := m.Arena.Bytes()
	buf[ptr] = uint8(v.Kind)
	m.writeInline(v.Kind, int(ptr)+1, v)
	return ptr, nil
}

// ReadNullable returns (value, true) if ptr is non-null, else
// (zero-value, false) for a null nullable.
func (m *Manager) ReadNullable(ptr uint32) (values.Value, bool) {
	if int32(ptr) <= 0 {
		return values.Value{}, false
	}
	buf := m.Arena.Bytes()
	kind := values.Kind(buf[ptr])
	return m.readInline(kind, int(ptr)+1), true
}

// CastToNullable implements cast(v, Nullable): a null reference-kind input
// yields the null-handle Nullable value; any other value is packed
// into a fresh Nullable block (spec §4.4).
func (m *Manager) CastToNullable(v values.Value) (values.Value, error) {
	if v.Kind == values.Nullable {
		return v, nil
	}
	if values.IsReferenceKind(v.Kind) && v.IsNull() {
		return values.RefValue(values.Nullable, values.NullPtr), nil
	}
	ptr, err := m.PackNullable(v)
	if err != nil {
		return values.Value{}, err
	}
	return values.RefValue(values.Nullable, values.Ptr(ptr)), nil
}

// SetNullable assigns a new value to an existing nullable of the same
// base-kind, writing in place (spec §4.7 "Nullables").
func (m *Manager) SetNullable(ptr uint32, v values.Value) error {
	buf := m.Arena.Bytes()
	buf[ptr] = uint8(v.Kind)
	m.writeInline(v.Kind, int(ptr)+1, v)
	return nil
}
