package gc

import (
	"testing"

	"github.com/kestrel-run/kestrel/arena"
)

// fakeRoots reports a fixed set of root addresses whose 4-byte payload
// holds a pointer into the arena (mirroring scope.Stack.EachRoot).
type fakeRoots []uint32

func (r fakeRoots) EachRoot(fn func(addr uint32)) {
	for _, addr := range r {
		fn(addr)
	}
}

// fakeTracer treats every block as an array of 4-byte pointers, enough
// to exercise reachability chains in these tests.
type fakeTracer struct{}

func (fakeTracer) TraceRefs(kind uint8, isArray bool, payload []byte, emit func(ptr uint32)) {
	if !isArray {
		return
	}
	for off := 0; off+4 <= len(payload); off += 4 {
		p := uint32(payload[off]) | uint32(payload[off+1])<<8 | uint32(payload[off+2])<<16 | uint32(payload[off+3])<<24
		if int32(p) > 0 {
			emit(p)
		}
	}
}

func writePtr(buf []byte, addr uint32, ptr uint32) {
	buf[addr] = byte(ptr)
	buf[addr+1] = byte(ptr >> 8)
	buf[addr+2] = byte(ptr >> 16)
	buf[addr+3] = byte(ptr >> 24)
}

// allocBlock writes a used block header directly (bypassing alloc's
// free-list bookkeeping, which gc deliberately knows nothing about) and
// returns its payload address.
func allocBlock(buf []byte, headerAddr uint32, payloadLen uint32, isArray bool) uint32 {
	arena.WriteHeader(buf, headerAddr, payloadLen+arena.HeaderSize, 1, true, isArray)
	return arena.PayloadAddr(headerAddr)
}

func TestCollectSweepsUnreachableBlock(t *testing.T) {
	a := arena.New(16, 256)
	a.SetHeapEnd(8)
	buf := a.Bytes()
	base := a.StackSize()

	allocBlock(buf, base+0, 4, false) // no roots point here

	c := New(a)
	c.Collect(fakeRoots(nil), fakeTracer{})

	if arena.IsUsed(buf, base+0) {
		t.Fatal("expected the unreachable block to be swept")
	}
}

func TestCollectKeepsRootReachableBlock(t *testing.T) {
	a := arena.New(16, 256)
	a.SetHeapEnd(8)
	buf := a.Bytes()
	base := a.StackSize()

	ptr := allocBlock(buf, base+0, 4, false)
	writePtr(buf, 0, ptr) // scope slot at stack address 0 points at it

	c := New(a)
	c.Collect(fakeRoots{0}, fakeTracer{})

	if !arena.IsUsed(buf, base+0) {
		t.Fatal("expected the root-reachable block to survive")
	}
}

func TestCollectTracesTransitiveReferences(t *testing.T) {
	a := arena.New(16, 256)
	a.SetHeapEnd(16)
	buf := a.Bytes()
	base := a.StackSize()

	child := allocBlock(buf, base+0, 4, false)
	parentPayload := allocBlock(buf, base+8, 4, true)
	writePtr(buf, parentPayload, child)
	writePtr(buf, 0, parentPayload)

	c := New(a)
	c.Collect(fakeRoots{0}, fakeTracer{})

	if !arena.IsUsed(buf, base+0) {
		t.Fatal("expected the transitively reachable child to survive")
	}
	if !arena.IsUsed(buf, base+8) {
		t.Fatal("expected the directly rooted parent to survive")
	}
}

func TestPinSurvivesWithoutAnyRoot(t *testing.T) {
	a := arena.New(16, 256)
	a.SetHeapEnd(8)
	buf := a.Bytes()
	base := a.StackSize()

	ptr := allocBlock(buf, base+0, 4, false)

	c := New(a)
	key := c.Pin(ptr)
	c.Collect(fakeRoots(nil), fakeTracer{})

	if !arena.IsUsed(buf, base+0) {
		t.Fatal("expected a pinned block to survive with no roots")
	}
	c.Unpin(key)
	c.Collect(fakeRoots(nil), fakeTracer{})
	if arena.IsUsed(buf, base+0) {
		t.Fatal("expected the block to be swept once unpinned")
	}
}

func TestPinNestsByRefcount(t *testing.T) {
	a := arena.New(0, 256)
	c := New(a)
	ptr := uint32(100)
	k1 := c.Pin(ptr)
	k2 := c.Pin(ptr)
	if k1 != k2 {
		t.Fatalf("expected the same pin key for the same pointer, got %d and %d", k1, k2)
	}
	c.Unpin(k1)
	if _, ok := c.pins[ptr]; !ok {
		t.Fatal("expected the pointer to remain pinned after a single unpin of a double pin")
	}
	c.Unpin(k2)
	if _, ok := c.pins[ptr]; ok {
		t.Fatal("expected the pointer to be unpinned after matching unpins")
	}
}
