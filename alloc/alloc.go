// Package alloc implements malloc/free/realloc/defragment over an
// arena's heap region: first-fit search, coalescing defragmentation,
// and tail-split (spec §4.2 "Allocator").
package alloc

import (
	"github.com/kestrel-run/kestrel/arena"
	sberrors "github.com/kestrel-run/kestrel/errors"
)

// Relocator is notified whenever realloc moves a block, so that every
// root holding the old pointer (scope variables, pin set, reachable
// heap fields) can be updated in place. The allocator itself has no
// knowledge of scopes or heap layouts; it only knows byte offsets.
type Relocator interface {
	RelocatePointer(oldPtr, newPtr uint32)
}

// Allocator owns first-fit allocation over an Arena's heap region.
type Allocator struct {
	a   *arena.Arena
	rel Relocator
}

// New builds an Allocator over a, notifying rel of every block move.
func New(a *arena.Arena, rel Relocator) *Allocator {
	return &Allocator{a: a, rel: rel}
}

// Malloc returns the payload address of a new block of exactly
// payloadLen bytes, tagged with kind and isArray.
func (al *Allocator) Malloc(payloadLen uint32, kind uint8, isArray bool) (uint32, error) {
	need := payloadLen + arena.HeaderSize
	if need > arena.MaxBlockLength {
		return 0, sberrors.OutOfMemory(sberrors.PhaseAlloc, need, arena.MaxBlockLength)
	}

	if ptr, ok := al.firstFit(need, kind, isArray); ok {
		return ptr, nil
	}

	al.Defragment()

	if ptr, ok := al.firstFit(need, kind, isArray); ok {
		return ptr, nil
	}

	heapEnd := al.a.HeapEnd()
	if heapEnd+need <= al.a.HeapCap() {
		buf := al.a.Bytes()
		headerAddr := al.a.StackSize() + heapEnd
		if err := arena.WriteHeader(buf, headerAddr, need, kind, true, isArray); err != nil {
			return 0, err
		}
		al.a.SetHeapEnd(heapEnd + need)
		return arena.PayloadAddr(headerAddr), nil
	}

	return 0, sberrors.OutOfMemory(sberrors.PhaseAlloc, need, al.a.HeapCap()-heapEnd)
}

// firstFit scans the heap left to right for the first free block with
// total length >= need, splitting off a free tail when the remainder
// is large enough to host its own header.
func (al *Allocator) firstFit(need uint32, kind uint8, isArray bool) (uint32, bool) {
	buf := al.a.Bytes()
	base := al.a.StackSize()
	heapEnd := al.a.HeapEnd()

	var off uint32
	for off < heapEnd {
		headerAddr := base + off
		total := arena.ReadLength(buf, headerAddr)
		if total == 0 {
			break
		}
		used := arena.IsUsed(buf, headerAddr)
		if !used && total >= need {
			remainder := total - need
			if remainder >= arena.HeaderSize {
				arena.WriteHeader(buf, headerAddr, need, kind, true, isArray)
				tailAddr := headerAddr + need
				arena.WriteHeader(buf, tailAddr, remainder, 0, false, false)
			} else {
				arena.WriteHeader(buf, headerAddr, total, kind, true, isArray)
			}
			return arena.PayloadAddr(headerAddr), true
		}
		off += total
	}
	return 0, false
}

// Free clears the used bit; double-free raises InvalidPointer.
func (al *Allocator) Free(ptr uint32) error {
	headerAddr := arena.HeaderAddr(ptr)
	buf := al.a.Bytes()
	if !arena.IsUsed(buf, headerAddr) {
		return sberrors.InvalidPointer(sberrors.PhaseAlloc, "double free at %d", ptr)
	}
	arena.SetUsed(buf, headerAddr, false)
	return nil
}

// Realloc resizes the block at ptr to newPayloadLen, preserving kind
// and isArray. Equal-length is a no-op; growing allocates a fresh
// block, copies the payload, notifies the Relocator of every pointer
// that must be updated, then frees the old block. Shrinking splits the
// existing block in place.
func (al *Allocator) Realloc(ptr uint32, newPayloadLen uint32, kind uint8, isArray bool) (uint32, error) {
	buf := al.a.Bytes()
	headerAddr := arena.HeaderAddr(ptr)
	oldTotal := arena.ReadLength(buf, headerAddr)
	oldPayload := oldTotal - arena.HeaderSize
	newTotal := newPayloadLen + arena.HeaderSize

	if newPayloadLen == oldPayload {
		return ptr, nil
	}

	if newPayloadLen < oldPayload {
		remainder := oldTotal - newTotal
		if remainder >= arena.HeaderSize {
			arena.WriteHeader(buf, headerAddr, newTotal, kind, true, isArray)
			tailAddr := headerAddr + newTotal
			arena.WriteHeader(buf, tailAddr, remainder, 0, false, false)
		}
		return ptr, nil
	}

	newPtr, err := al.Malloc(newPayloadLen, kind, isArray)
	if err != nil {
		return 0, err
	}
	copy(al.a.Bytes()[newPtr:newPtr+oldPayload], buf[ptr:ptr+oldPayload])

	if al.rel != nil {
		al.rel.RelocatePointer(ptr, newPtr)
	}
	if err := al.Free(ptr); err != nil {
		return 0, err
	}
	return newPtr, nil
}

// Defragment coalesces adjacent free blocks left to right, then
// truncates a trailing free run by lowering heap-end.
func (al *Allocator) Defragment() {
	buf := al.a.Bytes()
	base := al.a.StackSize()
	heapEnd := al.a.HeapEnd()

	var off uint32
	for off < heapEnd {
		headerAddr := base + off
		total := arena.ReadLength(buf, headerAddr)
		if total == 0 {
			break
		}
		if arena.IsUsed(buf, headerAddr) {
			off += total
			continue
		}

		mergeEnd := off + total
		for mergeEnd < heapEnd {
			nextAddr := base + mergeEnd
			nextTotal := arena.ReadLength(buf, nextAddr)
			if nextTotal == 0 || arena.IsUsed(buf, nextAddr) {
				break
			}
			mergeEnd += nextTotal
		}
		arena.WriteHeader(buf, headerAddr, mergeEnd-off, 0, false, false)
		off = mergeEnd
	}

	// Truncate a trailing free block.
	off = 0
	lastFreeStart := heapEnd
	for off < heapEnd {
		headerAddr := base + off
		total := arena.ReadLength(buf, headerAddr)
		if total == 0 {
			break
		}
		if !arena.IsUsed(buf, headerAddr) && off+total == heapEnd {
			lastFreeStart = off
		}
		off += total
	}
	if lastFreeStart < heapEnd {
		al.a.SetHeapEnd(lastFreeStart)
	}
}
