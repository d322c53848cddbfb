// Package gc implements the runtime's precise mark-and-sweep collector:
// roots are the pin set and every reference-kind (or IntPtr/Array)
// variable in every live scope; tracing follows each heap block's
// layout exactly, per kind. GC never relocates blocks (spec §4.3
// "Garbage Collector").
package gc

import (
	"github.com/kestrel-run/kestrel/arena"
)

// Roots is satisfied by the scope stack: enumerates the stack address
// of every reference-kind (or IntPtr/Array) variable currently live.
type Roots interface {
	EachRoot(fn func(addr uint32))
}

// Tracer is supplied by the heap package: given a block's kind tag and
// raw payload bytes, it reports every outgoing reference-kind pointer
// reachable from that block (arrays of refs, tuple ref slots and
// name-ptrs, nullable inner-ref, struct fields via signature,
// dictionary entries via the leading two kind bytes).
type Tracer interface {
	TraceRefs(kind uint8, isArray bool, payload []byte, emit func(ptr uint32))
}

// Collector owns the pin set and drives mark-and-sweep over an Arena.
type Collector struct {
	a       *arena.Arena
	pins    map[uint32]int // ptr -> refcount, so nested pin/unpin nests correctly
	freed   int
	swept   int
}

// New builds a Collector over a.
func New(a *arena.Arena) *Collector {
	return &Collector{a: a, pins: make(map[uint32]int)}
}

// Pin registers ptr as an always-live root and returns the pin key
// (the pointer itself, per spec §4.3). Pinning nests: the same pointer
// may be pinned more than once and is only released once unpinned the
// same number of times.
func (c *Collector) Pin(ptr uint32) uint32 {
	c.pins[ptr]++
	return ptr
}

// Unpin releases one pin registration for key.
func (c *Collector) Unpin(key uint32) {
	if n, ok := c.pins[key]; ok {
		if n <= 1 {
			delete(c.pins, key)
		} else {
			c.pins[key] = n - 1
		}
	}
}

// Stats reports, across this collector's lifetime, how many used blocks
// the sweep has examined (swept) and how many of those it freed.
func (c *Collector) Stats() (swept, freed int) { return c.swept, c.freed }

// Collect runs a full mark-and-sweep pass: mark from roots + pins,
// trace transitively via tracer, sweep every unmarked used block.
func (c *Collector) Collect(roots Roots, tracer Tracer) {
	buf := c.a.Bytes()
	base := c.a.StackSize()
	heapEnd := c.a.HeapEnd()

	marked := make(map[uint32]bool, 64)
	var worklist []uint32

	mark := func(ptr uint32) {
		if ptr == 0 { // treated elsewhere as null sentinel for unsigned fields
			return
		}
		if !marked[ptr] {
			marked[ptr] = true
			worklist = append(worklist, ptr)
		}
	}

	for ptr := range c.pins {
		mark(ptr)
	}
	roots.EachRoot(func(addr uint32) {
		ptr := readPtr(buf, addr)
		if int32(ptr) > 0 {
			mark(ptr)
		}
	})

	for len(worklist) > 0 {
		ptr := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		headerAddr := arena.HeaderAddr(ptr)
		if headerAddr < base || headerAddr >= base+heapEnd {
			continue
		}
		total := arena.ReadLength(buf, headerAddr)
		if total < arena.HeaderSize || !arena.IsUsed(buf, headerAddr) {
			continue
		}
		kind := arena.ReadKind(buf, headerAddr)
		isArray := arena.IsArray(buf, headerAddr)
		payload := buf[ptr : headerAddr+total]

		tracer.TraceRefs(kind, isArray, payload, func(child uint32) {
			if int32(child) > 0 {
				mark(child)
			}
		})
	}

	// Sweep: walk the heap linearly, free any used-but-unmarked block.
	var off uint32
	swept, freed := 0, 0
	for off < heapEnd {
		headerAddr := base + off
		total := arena.ReadLength(buf, headerAddr)
		if total == 0 {
			break
		}
		if arena.IsUsed(buf, headerAddr) {
			ptr := arena.PayloadAddr(headerAddr)
			swept++
			if !marked[ptr] {
				arena.SetUsed(buf, headerAddr, false)
				freed++
			}
		}
		off += total
	}
	c.swept += swept
	c.freed += freed
}

func readPtr(buf []byte, addr uint32) uint32 {
	return uint32(buf[addr]) | uint32(buf[addr+1])<<8 | uint32(buf[addr+2])<<16 | uint32(buf[addr+3])<<24
}
