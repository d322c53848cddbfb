package heap

import (
	"github.com/kestrel-run/kestrel/arena"
	"github.com/kestrel-run/kestrel/values"
)

// DictEntry is one key/value pair of a dictionary.
type DictEntry struct {
	Key   values.Value
	Value values.Value
}

const dictHeaderBytes = 2 // key-kind byte + value-kind byte

func dictEntryWidth(kt, vt values.Kind) uint32 {
	return values.Size(kt) + values.Size(vt)
}

// AllocateDict packs entries into a new Dictionary block: payload
// [key-kind(1) | value-kind(1) | entries...] (spec §3 "Dictionaries").
func (m *Manager) AllocateDict(kt, vt values.Kind, entries []DictEntry) (uint32, error) {
	entryWidth := dictEntryWidth(kt, vt)
	payloadLen := dictHeaderBytes + entryWidth*uint32(len(entries))

	ptr, err := m.Alloc.Malloc(payloadLen, uint8(values.Dictionary), false)
	if err != nil {
		return 0, err
	}
	buf := m.Arena.Bytes()
	buf[ptr] = uint8(kt)
	buf[ptr+1] = uint8(vt)

	off := int(ptr) + dictHeaderBytes
	for _, e := range entries {
		m.writeInline(kt, off, e.Key)
		m.writeInline(vt, off+int(values.Size(kt)), e.Value)
		off += int(entryWidth)
	}
	return ptr, nil
}

func (m *Manager) dictKinds(ptr uint32) (kt, vt values.Kind) {
	buf := m.Arena.Bytes()
	return values.Kind(buf[ptr]), values.Kind(buf[ptr+1])
}

func (m *Manager) dictCount(ptr uint32) int {
	headerAddr := arena.HeaderAddr(ptr)
	buf := m.Arena.Bytes()
	total := arena.ReadLength(buf, headerAddr)
	kt, vt := m.dictKinds(ptr)
	width := dictEntryWidth(kt, vt)
	if width == 0 {
		return 0
	}
	return int((total - arena.HeaderSize - dictHeaderBytes) / width)
}

// DictGet looks up key, returning (value, true) if present.
func (m *Manager) DictGet(ptr uint32, key values.Value) (values.Value, bool) {
	kt, vt := m.dictKinds(ptr)
	n := m.dictCount(ptr)
	width := dictEntryWidth(kt, vt)
	off := int(ptr) + dictHeaderBytes
	for i := 0; i < n; i++ {
		k := m.readInline(kt, off)
		if m.valueEqual(k, key) {
			v := m.readInline(vt, off+int(values.Size(kt)))
			return v, true
		}
		off += int(width)
	}
	return values.Value{}, false
}

// DictSet updates key in place if present, else grows the dictionary
// by one entry and returns the (possibly relocated) pointer.
func (m *Manager) DictSet(ptr uint32, key, val values.Value) (uint32, error) {
	kt, vt := m.dictKinds(ptr)
	n := m.dictCount(ptr)
	width := dictEntryWidth(kt, vt)
	off := int(ptr) + dictHeaderBytes
	for i := 0; i < n; i++ {
		k := m.readInline(kt, off)
		if m.valueEqual(k, key) {
			m.writeInline(vt, off+int(values.Size(kt)), val)
			return ptr, nil
		}
		off += int(width)
	}

	newPayloadLen := dictHeaderBytes + width*uint32(n+1)
	newPtr, err := m.Alloc.Realloc(ptr, newPayloadLen, uint8(values.Dictionary), false)
	if err != nil {
		return 0, err
	}
	// Realloc preserved old bytes including the 2-byte kind header and
	// existing entries; append the new entry at the tail.
	tailOff := int(newPtr) + dictHeaderBytes + int(width)*n
	m.writeInline(kt, tailOff, key)
	m.writeInline(vt, tailOff+int(values.Size(kt)), val)
	return newPtr, nil
}

func (m *Manager) dictEntries(ptr uint32) []DictEntry {
	kt, vt := m.dictKinds(ptr)
	n := m.dictCount(ptr)
	width := dictEntryWidth(kt, vt)
	off := int(ptr) + dictHeaderBytes
	out := make([]DictEntry, 0, n)
	for i := 0; i < n; i++ {
		k := m.readInline(kt, off)
		v := m.readInline(vt, off+int(values.Size(kt)))
		out = append(out, DictEntry{Key: k, Value: v})
		off += int(width)
	}
	return out
}

// ContainsKey reports whether key is present.
func (m *Manager) ContainsKey(ptr uint32, key values.Value) bool {
	_, ok := m.DictGet(ptr, key)
	return ok
}

// ContainsValue reports whether val appears among the dictionary's values.
func (m *Manager) ContainsValue(ptr uint32, val values.Value) bool {
	for _, e := range m.dictEntries(ptr) {
		if m.valueEqual(e.Value, val) {
			return true
		}
	}
	return false
}

// DictRemove deletes key if present, compacting the backing block.
func (m *Manager) DictRemove(ptr uint32, key values.Value) (uint32, bool, error) {
	entries := m.dictEntries(ptr)
	kt, vt := m.dictKinds(ptr)
	idx := -1
	for i, e := range entries {
		if m.valueEqual(e.Key, key) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ptr, false, nil
	}
	entries = append(entries[:idx], entries[idx+1:]...)
	newPtr, err := m.AllocateDict(kt, vt, entries)
	if err != nil {
		return 0, false, err
	}
	if err := m.Alloc.Free(ptr); err != nil {
		return 0, false, err
	}
	return newPtr, true, nil
}

// DictCount returns the number of entries.
func (m *Manager) DictCount(ptr uint32) int { return m.dictCount(ptr) }

// EachDictEntry visits every key/value pair in ptr's dictionary in
// storage order, stopping early if fn returns false.
func (m *Manager) EachDictEntry(ptr uint32, fn func(key, value values.Value) bool) {
	for _, e := range m.dictEntries(ptr) {
		if !fn(e.Key, e.Value) {
			return
		}
	}
}
