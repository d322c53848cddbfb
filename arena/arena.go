// Package arena implements the runtime's single fixed-size byte buffer:
// a stack region at low addresses and a heap region above it, plus the
// 4-byte block header codec shared by the allocator, GC, and composite
// data services (spec §3 "Arena", §4.1 "Arena & Header Encoding").
package arena

import (
	"encoding/binary"

	sberrors "github.com/kestrel-run/kestrel/errors"
)

// HeaderSize is the fixed size in bytes of a heap block header.
const HeaderSize = 4

// MaxBlockLength is the largest total block length the 24-bit length
// field can encode (header + payload).
const MaxBlockLength = 0xFFFFFF

const (
	usedBitMask    = 1 << 31
	isArrayBitMask = 1 << 30
	kindMask       = 0x3F
	kindShift      = 24
	lengthMask     = 0xFFFFFF
)

// Arena is the sandboxed memory substrate: byte buffer, stack size, and
// the current heap-end offset (the frontier of allocated heap space).
type Arena struct {
	buf       []byte
	stackSize uint32
	heapEnd   uint32 // offset from the start of the heap region
	heapCap   uint32
}

// New allocates an arena of stackBytes + heapBytes total capacity.
func New(stackBytes, heapBytes uint32) *Arena {
	return &Arena{
		buf:       make([]byte, stackBytes+heapBytes),
		stackSize: stackBytes,
		heapCap:   heapBytes,
	}
}

// StackSize returns the configured stack region size.
func (a *Arena) StackSize() uint32 { return a.stackSize }

// HeapCap returns the configured heap region capacity.
func (a *Arena) HeapCap() uint32 { return a.heapCap }

// HeapEnd returns the current frontier of the heap region, relative to
// the start of the heap (i.e. absolute address is StackSize()+HeapEnd()).
func (a *Arena) HeapEnd() uint32 { return a.heapEnd }

// SetHeapEnd adjusts the heap frontier; used by the allocator when
// growing or by defragment when truncating a trailing free run.
func (a *Arena) SetHeapEnd(end uint32) { a.heapEnd = end }

// Bytes exposes the raw backing buffer for bulk reads/writes by the
// composite data services.
func (a *Arena) Bytes() []byte { return a.buf }

// Validate enforces that [addr, addr+size) lies entirely within the
// stack region or within the used heap region (spec §4.1).
func (a *Arena) Validate(addr, size uint32) error {
	end := addr + size
	if end < addr {
		return sberrors.SandboxViolation(sberrors.PhaseArena, "address range overflows: addr=%d size=%d", addr, size)
	}
	if addr < a.stackSize {
		if end > a.stackSize {
			return sberrors.SandboxViolation(sberrors.PhaseArena, "stack access crosses into heap region: addr=%d size=%d", addr, size)
		}
		return nil
	}
	heapLo := a.stackSize
	heapHi := a.stackSize + a.heapEnd
	if addr < heapLo || end > heapHi {
		return sberrors.SandboxViolation(sberrors.PhaseArena, "heap access out of bounds: addr=%d size=%d heap=[%d,%d)", addr, size, heapLo, heapHi)
	}
	return nil
}

// WriteHeader encodes a block header at pos (an absolute arena address,
// the header address, i.e. payload address - HeaderSize).
func WriteHeader(buf []byte, pos uint32, totalLen uint32, kind uint8, used bool, isArray bool) error {
	if totalLen > MaxBlockLength {
		return sberrors.OutOfMemory(sberrors.PhaseArena, totalLen, MaxBlockLength)
	}
	word := totalLen & lengthMask
	word |= uint32(kind&kindMask) << kindShift
	if isArray {
		word |= isArrayBitMask
	}
	if used {
		word |= usedBitMask
	}
	binary.BigEndian.PutUint32(buf[pos:pos+4], word)
	return nil
}

func readWord(buf []byte, pos uint32) uint32 {
	return binary.BigEndian.Uint32(buf[pos : pos+4])
}

// ReadLength returns the total block length (header + payload) for the
// header at pos.
func ReadLength(buf []byte, pos uint32) uint32 {
	return readWord(buf, pos) & lengthMask
}

// ReadKind returns the 6-bit kind tag for the header at pos.
func ReadKind(buf []byte, pos uint32) uint8 {
	return uint8((readWord(buf, pos) >> kindShift) & kindMask)
}

// IsUsed reports the used bit for the header at pos.
func IsUsed(buf []byte, pos uint32) bool {
	return readWord(buf, pos)&usedBitMask != 0
}

// IsArray reports the is-array bit for the header at pos.
func IsArray(buf []byte, pos uint32) bool {
	return readWord(buf, pos)&isArrayBitMask != 0
}

// SetUsed flips the used bit in place without touching other fields.
func SetUsed(buf []byte, pos uint32, used bool) {
	word := readWord(buf, pos)
	if used {
		word |= usedBitMask
	} else {
		word &^= usedBitMask
	}
	binary.BigEndian.PutUint32(buf[pos:pos+4], word)
}

// SetLength rewrites only the 24-bit length field in place.
func SetLength(buf []byte, pos uint32, totalLen uint32) error {
	if totalLen > MaxBlockLength {
		return sberrors.OutOfMemory(sberrors.PhaseArena, totalLen, MaxBlockLength)
	}
	word := readWord(buf, pos)
	word = (word &^ lengthMask) | (totalLen & lengthMask)
	binary.BigEndian.PutUint32(buf[pos:pos+4], word)
	return nil
}

// HeaderAddr converts a payload pointer to its header address.
func HeaderAddr(ptr uint32) uint32 { return ptr - HeaderSize }

// PayloadAddr converts a header address to its payload pointer.
func PayloadAddr(headerAddr uint32) uint32 { return headerAddr + HeaderSize }
