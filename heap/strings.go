package heap

import (
	"github.com/kestrel-run/kestrel/arena"
	"github.com/kestrel-run/kestrel/values"
)

// NewString allocates a fresh String block containing s's UTF-8 bytes.
func (m *Manager) NewString(s string) (uint32, error) {
	b := []byte(s)
	ptr, err := m.Alloc.Malloc(uint32(len(b)), uint8(values.String), false)
	if err != nil {
		return 0, err
	}
	copy(m.Arena.Bytes()[ptr:ptr+uint32(len(b))], b)
	return ptr, nil
}

// StoreString grows or reuses the block at ptr in place to hold s,
// allocating a new block on growth and freeing the old one (spec §4.7
// "store-string"). ptr may be 0 (arena.NullPtr sentinel) for a fresh
// declaration.
func (m *Manager) StoreString(ptr uint32, s string) (uint32, error) {
	b := []byte(s)
	if ptr == 0 {
		return m.NewString(s)
	}

	headerAddr := arena.HeaderAddr(ptr)
	buf := m.Arena.Bytes()
	total := arena.ReadLength(buf, headerAddr)
	capacity := total - arena.HeaderSize

	if uint32(len(b)) <= capacity {
		copy(buf[ptr:ptr+uint32(len(b))], b)
		for i := uint32(len(b)); i < capacity; i++ {
			buf[ptr+i] = 0x00
		}
		return ptr, nil
	}

	newPtr, err := m.Alloc.Realloc(ptr, uint32(len(b)), uint8(values.String), false)
	if err != nil {
		return 0, err
	}
	copy(m.Arena.Bytes()[newPtr:newPtr+uint32(len(b))], b)
	return newPtr, nil
}

// ReadString decodes the UTF-8 bytes of the String block at ptr,
// trimming trailing 0x00/0xFF padding left by in-place shrink (spec
// §3 "Strings").
func (m *Manager) ReadString(ptr uint32) string {
	if int32(ptr) <= 0 {
		return ""
	}
	headerAddr := arena.HeaderAddr(ptr)
	buf := m.Arena.Bytes()
	total := arena.ReadLength(buf, headerAddr)
	payloadLen := total - arena.HeaderSize

	end := payloadLen
	for end > 0 && (buf[ptr+end-1] == 0x00 || buf[ptr+end-1] == 0xFF) {
		end--
	}
	return string(buf[ptr : ptr+end])
}
