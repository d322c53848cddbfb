package heap

import (
	"github.com/kestrel-run/kestrel/arena"
	"github.com/kestrel-run/kestrel/values"
)

// TupleItem is one position of a tuple: an optional name (for named
// tuples) and its value.
type TupleItem struct {
	Name  string // "" for positional entries
	Value values.Value
}

const tupleEntryOverhead = 1 + 4 // kind byte + name-ptr

func tupleEntryWidth(kind values.Kind) uint32 {
	return tupleEntryOverhead + values.Size(kind)
}

// AllocateTuple packs items into a new Tuple block: each entry is
// (kind, name-ptr, payload) per spec §3 "Tuples". String names are
// interned as their own String blocks; "" means positional (name-ptr
// = -1).
func (m *Manager) AllocateTuple(items []TupleItem) (uint32, error) {
	var payloadLen uint32
	for _, it := range items {
		payloadLen += tupleEntryWidth(it.Value.Kind)
	}

	ptr, err := m.Alloc.Malloc(payloadLen, uint8(values.Tuple), false)
	if err != nil {
		return 0, err
	}

	buf := m.Arena.Bytes()
	off := int(ptr)
	for _, it := range items {
		buf[off] = uint8(it.Value.Kind)
		off++

		namePtr := uint32(0xFFFFFFFF)
		if it.Name != "" {
			np, err := m.NewString(it.Name)
			if err != nil {
				return 0, err
			}
			namePtr = np
		}
		writePtr32(buf, off, namePtr)
		off += 4

		m.writeInline(it.Value.Kind, off, it.Value)
		off += int(values.Size(it.Value.Kind))
	}
	return ptr, nil
}

// ReadTuple unpacks the Tuple block at ptr back into items.
func (m *Manager) ReadTuple(ptr uint32) []TupleItem {
	headerAddr := arena.HeaderAddr(ptr)
	buf := m.Arena.Bytes()
	total := arena.ReadLength(buf, headerAddr)
	end := int(ptr) + int(total) - 4

	var items []TupleItem
	off := int(ptr)
	for off < end {
		kind := values.Kind(buf[off])
		off++
		namePtr := readPtr32(buf, off)
		off += 4
		val := m.readInline(kind, off)
		off += int(values.Size(kind))

		name := ""
		if int32(namePtr) > 0 {
			name = m.ReadString(namePtr)
		}
		items = append(items, TupleItem{Name: name, Value: val})
	}
	return items
}

// DeconstructAssign binds rhs's positional tuple entries to names,
// accepting "_" as discard. Declaring a new variable is the caller's
// responsibility (via the scope stack) when the name is fresh — this
// function only reports the values to bind, in order.
func (m *Manager) DeconstructAssign(rhsTuplePtr uint32) []values.Value {
	items := m.ReadTuple(rhsTuplePtr)
	out := make([]values.Value, len(items))
	for i, it := range items {
		out[i] = it.Value
	}
	return out
}
