package alloc

import (
	"testing"

	"github.com/kestrel-run/kestrel/arena"
)

type noopRelocator struct{ moved int }

func (r *noopRelocator) RelocatePointer(oldPtr, newPtr uint32) { r.moved++ }

func newTestAllocator(t *testing.T, heapBytes uint32) (*Allocator, *arena.Arena, *noopRelocator) {
	t.Helper()
	a := arena.New(0, heapBytes)
	rel := &noopRelocator{}
	return New(a, rel), a, rel
}

func TestMallocGrowsHeapEnd(t *testing.T) {
	al, a, _ := newTestAllocator(t, 256)
	ptr, err := al.Malloc(16, 5, false)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	if ptr != arena.PayloadAddr(arena.HeaderAddr(ptr)) {
		t.Fatalf("ptr not consistent with header math: %d", ptr)
	}
	if got := a.HeapEnd(); got != 16+arena.HeaderSize {
		t.Fatalf("HeapEnd = %d, want %d", got, 16+arena.HeaderSize)
	}
}

func TestFreeThenDoubleFreeFails(t *testing.T) {
	al, _, _ := newTestAllocator(t, 256)
	ptr, err := al.Malloc(16, 1, false)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	if err := al.Free(ptr); err != nil {
		t.Fatalf("Free: %v", err)
	}
	if err := al.Free(ptr); err == nil {
		t.Fatal("expected double free to error")
	}
}

func TestMallocReusesFreedBlockBeforeGrowingHeap(t *testing.T) {
	al, a, _ := newTestAllocator(t, 256)
	first, err := al.Malloc(16, 1, false)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	if err := al.Free(first); err != nil {
		t.Fatalf("Free: %v", err)
	}
	endBeforeReuse := a.HeapEnd()

	second, err := al.Malloc(16, 2, false)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	if second != first {
		t.Fatalf("expected first-fit reuse at %d, got %d", first, second)
	}
	if a.HeapEnd() != endBeforeReuse {
		t.Fatalf("HeapEnd grew on a reuse: before=%d after=%d", endBeforeReuse, a.HeapEnd())
	}
}

func TestReallocGrowRelocatesAndFreesOld(t *testing.T) {
	al, _, rel := newTestAllocator(t, 256)
	ptr, err := al.Malloc(8, 3, false)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	copy(al.a.Bytes()[ptr:ptr+8], []byte("ABCDEFGH"))

	newPtr, err := al.Realloc(ptr, 32, 3, false)
	if err != nil {
		t.Fatalf("Realloc: %v", err)
	}
	if newPtr == ptr {
		t.Fatal("expected growth to move the block")
	}
	if string(al.a.Bytes()[newPtr:newPtr+8]) != "ABCDEFGH" {
		t.Fatal("expected payload to survive the move")
	}
	if rel.moved != 1 {
		t.Fatalf("expected Relocator notified once, got %d", rel.moved)
	}
	if err := al.Free(ptr); err == nil {
		t.Fatal("expected the old block to already be freed by Realloc")
	}
}

func TestReallocShrinkInPlace(t *testing.T) {
	al, _, _ := newTestAllocator(t, 256)
	ptr, err := al.Malloc(64, 3, false)
	if err != nil {
		t.Fatalf("Malloc: %v", err)
	}
	newPtr, err := al.Realloc(ptr, 8, 3, false)
	if err != nil {
		t.Fatalf("Realloc: %v", err)
	}
	if newPtr != ptr {
		t.Fatalf("expected shrink to stay in place, got new ptr %d vs %d", newPtr, ptr)
	}
}

func TestDefragmentCoalescesAdjacentFreeBlocks(t *testing.T) {
	al, a, _ := newTestAllocator(t, 256)
	p1, _ := al.Malloc(16, 1, false)
	p2, _ := al.Malloc(16, 1, false)
	al.Free(p1)
	al.Free(p2)

	endBefore := a.HeapEnd()
	al.Defragment()
	if a.HeapEnd() >= endBefore {
		t.Fatalf("expected Defragment to truncate a trailing free run: before=%d after=%d", endBefore, a.HeapEnd())
	}
}

func TestMallocOutOfMemory(t *testing.T) {
	al, _, _ := newTestAllocator(t, 16)
	if _, err := al.Malloc(64, 1, false); err == nil {
		t.Fatal("expected out-of-memory error")
	}
}
