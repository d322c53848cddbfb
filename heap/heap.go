// Package heap implements the composite data services that sit above
// the arena and allocator: strings, arrays, tuples, dictionaries,
// structs, and nullables, plus the GC tracer that knows how to walk
// each block kind's layout (spec §3, §4.7 "Composite Data Services").
package heap

import (
	"github.com/kestrel-run/kestrel/alloc"
	"github.com/kestrel-run/kestrel/arena"
	"github.com/kestrel-run/kestrel/gc"
	"github.com/kestrel-run/kestrel/scope"
	"github.com/kestrel-run/kestrel/values"
)

// Manager wires the arena, allocator, GC, and scope stack together and
// exposes the composite operations of spec §4.7. It also implements
// alloc.Relocator and gc.Tracer so the allocator and collector can
// cooperate with it without those packages knowing about value layout.
type Manager struct {
	Arena *arena.Arena
	Alloc *alloc.Allocator
	GC    *gc.Collector
	Scope *scope.Stack

	pinKeys []uint32 // LIFO of currently outstanding pin keys, for diagnostics
}

// NewManager builds a fully wired composite-data Manager over a fresh
// arena of the given stack/heap sizes, using the scope stack's default
// scope-count and variable-count caps.
func NewManager(stackBytes, heapBytes uint32) *Manager {
	return NewManagerWithLimits(stackBytes, heapBytes, 0, 0)
}

// NewManagerWithLimits builds a Manager with host-supplied scope caps,
// letting an embedder tighten or loosen the defaults via runtime.Config.
// A zero maxScopes/maxVariables falls back to the scope package's
// built-in default.
func NewManagerWithLimits(stackBytes, heapBytes uint32, maxScopes, maxVariables int) *Manager {
	a := arena.New(stackBytes, heapBytes)
	s := scope.NewWithLimits(a, maxScopes, maxVariables)
	m := &Manager{Arena: a, Scope: s}
	m.Alloc = alloc.New(a, m)
	m.GC = gc.New(a)
	return m
}

// CollectScope runs a full mark-and-sweep pass rooted at the current
// scope stack and pin set — called on every scope Exit (spec §4.5).
func (m *Manager) CollectScope() {
	m.GC.Collect(m.Scope, m)
	m.Scope.BumpVersion()
}

// ReadVariableValue decodes the value stored at absolute arena address
// addr for a scope variable of the given kind (spec §4.5 "Scope stack
// cells hold a Kind-tagged in-line value or a 4-byte pointer").
func (m *Manager) ReadVariableValue(addr uint32, kind values.Kind) values.Value {
	return m.readInline(kind, int(addr))
}

// WriteVariableValue encodes v into the scope stack cell at addr.
func (m *Manager) WriteVariableValue(addr uint32, kind values.Kind, v values.Value) {
	m.writeInline(kind, int(addr), v)
}

// Pin registers ptr as an always-live root, typically wrapping a
// function's return value so it survives the callee's scope exit
// (spec §4.3 "Pin set").
func (m *Manager) Pin(ptr uint32) uint32 { return m.GC.Pin(ptr) }

// Unpin releases a previously pinned key.
func (m *Manager) Unpin(key uint32) { m.GC.Unpin(key) }

// RelocatePointer satisfies alloc.Relocator: when realloc moves a
// block, every scope variable and every reachable heap field that held
// the old pointer must be updated to the new one.
func (m *Manager) RelocatePointer(oldPtr, newPtr uint32) {
	m.Scope.RelocatePointer(oldPtr, newPtr)
	m.relocateInHeap(oldPtr, newPtr)
}

func readPtr32(buf []byte, off int) uint32 {
	return uint32(buf[off]) | uint32(buf[off+1])<<8 | uint32(buf[off+2])<<16 | uint32(buf[off+3])<<24
}

func writePtr32(buf []byte, off int, ptr uint32) {
	buf[off] = byte(ptr)
	buf[off+1] = byte(ptr >> 8)
	buf[off+2] = byte(ptr >> 16)
	buf[off+3] = byte(ptr >> 24)
}

// relocateInHeap walks every live block and rewrites any reference
// field equal to oldPtr, mirroring TraceRefs but as a rewrite pass.
func (m *Manager) relocateInHeap(oldPtr, newPtr uint32) {
	buf := m.Arena.Bytes()
	base := m.Arena.StackSize()
	heapEnd := m.Arena.HeapEnd()

	var off uint32
	for off < heapEnd {
		headerAddr := base + off
		total := arena.ReadLength(buf, headerAddr)
		if total == 0 {
			break
		}
		if arena.IsUsed(buf, headerAddr) {
			kind := arena.ReadKind(buf, headerAddr)
			isArray := arena.IsArray(buf, headerAddr)
			payload := buf[arena.PayloadAddr(headerAddr) : headerAddr+total]
			m.rewriteRefs(values.Kind(kind), isArray, payload, oldPtr, newPtr)
		}
		off += total
	}
}
