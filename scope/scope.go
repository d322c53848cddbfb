// Package scope implements the scope stack and variable table: a LIFO
// sequence of name-to-variable maps, each owning a slice of the arena's
// stack region, with a monotonically increasing version used to
// invalidate per-node name caches (spec §3 "Scope", §4.5 "Scope Stack").
package scope

import (
	"github.com/kestrel-run/kestrel/arena"
	sberrors "github.com/kestrel-run/kestrel/errors"
	"github.com/kestrel-run/kestrel/values"
)

const (
	maxNameBytes  = 200
	maxVariables  = 2048
	maxScopes     = 1024
)

// Variable is a name's binding: the value's kind, its stack address,
// and its in-line storage size (spec §3 "Variable").
type Variable struct {
	Name    string
	Kind    values.Kind
	Address uint32
	Size    uint32
}

type frame struct {
	vars      map[string]*Variable
	stackTop  uint32 // saved allocation pointer on entry
}

// Stack is the interpreter's scope stack: it owns the arena's stack
// allocation pointer and the nested name->variable bindings.
type Stack struct {
	a            *arena.Arena
	frames       []frame
	stackTop     uint32 // current allocation pointer
	version      uint64
	totalVars    int
	maxScopes    int
	maxVariables int
}

// New builds a Stack over a, with an empty root frame not yet entered,
// using the default scope-count and variable-count caps.
func New(a *arena.Arena) *Stack {
	return NewWithLimits(a, maxScopes, maxVariables)
}

// NewWithLimits builds a Stack with host-supplied caps, letting an
// embedder tighten or loosen the defaults via runtime.Config.
func NewWithLimits(a *arena.Arena, maxScopeCount, maxVariableCount int) *Stack {
	if maxScopeCount == 0 {
		maxScopeCount = maxScopes
	}
	if maxVariableCount == 0 {
		maxVariableCount = maxVariables
	}
	return &Stack{a: a, maxScopes: maxScopeCount, maxVariables: maxVariableCount}
}

// Version returns the monotonically increasing scope version, bumped
// on every Enter, Exit, and GC sweep.
func (s *Stack) Version() uint64 { return s.version }

// Depth returns the number of scopes currently on the stack.
func (s *Stack) Depth() int { return len(s.frames) }

// CheckCaps re-validates the scope-count and variable-count caps
// against their current totals, used for the periodic recheck in
// Meter.Check (spec §4.6 "every 1024 operations re-checks scope and
// variable caps").
func (s *Stack) CheckCaps() error {
	if len(s.frames) > s.maxScopes {
		return sberrors.ResourceExhausted(sberrors.PhaseScope, "scope count", s.maxScopes)
	}
	if s.totalVars > s.maxVariables {
		return sberrors.ResourceExhausted(sberrors.PhaseScope, "variable count", s.maxVariables)
	}
	return nil
}

// Enter pushes a new empty scope, saving the current stack allocation
// pointer for restoration on Exit.
func (s *Stack) Enter() error {
	if len(s.frames) >= s.maxScopes {
		return sberrors.ResourceExhausted(sberrors.PhaseScope, "scope count", s.maxScopes)
	}
	s.frames = append(s.frames, frame{
		vars:     make(map[string]*Variable),
		stackTop: s.stackTop,
	})
	s.version++
	return nil
}

// Exit pops the current scope, restoring the stack allocation pointer.
// The caller is responsible for running GC after Exit (spec §4.5: exit
// "restor[es] the pointer and trigger[s] GC").
func (s *Stack) Exit() {
	if len(s.frames) == 0 {
		return
	}
	top := s.frames[len(s.frames)-1]
	s.totalVars -= len(top.vars)
	s.stackTop = top.stackTop
	s.frames = s.frames[:len(s.frames)-1]
	s.version++
}

// StackAlloc advances the stack allocation pointer by sizeof(kind) and
// returns the address of the reserved slot.
func (s *Stack) StackAlloc(kind values.Kind) (uint32, error) {
	size := values.Size(kind)
	newTop := s.stackTop + size
	if newTop > s.a.StackSize() {
		return 0, sberrors.StackOverflow(sberrors.PhaseScope, "stack exhausted: need %d more bytes, %d available", size, s.a.StackSize()-s.stackTop)
	}
	addr := s.stackTop
	s.stackTop = newTop
	return addr, nil
}

// Declare binds name to a new variable in the current (innermost)
// scope. Shadowing within the same scope is forbidden; caps on name
// length and live variable count are enforced here (the scope-count cap
// is enforced by Enter).
func (s *Stack) Declare(name string, kind values.Kind, addr uint32, size uint32) error {
	if len(s.frames) == 0 {
		return sberrors.New(sberrors.PhaseScope, sberrors.KindNameError).Detail("declare outside any scope").Build()
	}
	if len(name) > maxNameBytes {
		return sberrors.ResourceExhausted(sberrors.PhaseScope, "variable name length", maxNameBytes)
	}
	if s.totalVars >= s.maxVariables {
		return sberrors.ResourceExhausted(sberrors.PhaseScope, "variable count", s.maxVariables)
	}

	top := &s.frames[len(s.frames)-1]
	if _, exists := top.vars[name]; exists {
		return sberrors.NameError(sberrors.PhaseScope, name, "already declared in this scope")
	}

	top.vars[name] = &Variable{Name: name, Kind: kind, Address: addr, Size: size}
	s.totalVars++
	return nil
}

// Lookup searches from the innermost scope outward for name.
func (s *Stack) Lookup(name string) (*Variable, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i].vars[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Each visits every live variable across all live scopes — the GC root
// set (spec §4.3 "Roots"). Iteration order is unspecified.
func (s *Stack) Each(fn func(*Variable)) {
	for _, f := range s.frames {
		for _, v := range f.vars {
			fn(v)
		}
	}
}

// EachRoot visits the stack address of every reference-kind (or
// IntPtr/Array) variable across all live scopes, satisfying
// gc.Roots for mark-and-sweep (spec §4.3 "Roots").
func (s *Stack) EachRoot(fn func(addr uint32)) {
	s.Each(func(v *Variable) {
		if values.IsReferenceKind(v.Kind) || v.Kind == values.IntPtr {
			fn(v.Address)
		}
	})
}

// RelocatePointer rewrites every scope variable whose in-line pointer
// payload equals oldPtr, satisfying alloc.Relocator so realloc can
// update live roots when it moves a block.
func (s *Stack) RelocatePointer(oldPtr, newPtr uint32) {
	buf := s.a.Bytes()
	s.Each(func(v *Variable) {
		if !values.IsReferenceKind(v.Kind) && v.Kind != values.IntPtr {
			return
		}
		cur := readPtr(buf, v.Address)
		if cur == oldPtr {
			writePtr(buf, v.Address, newPtr)
		}
	})
}

func readPtr(buf []byte, addr uint32) uint32 {
	return uint32(buf[addr]) | uint32(buf[addr+1])<<8 | uint32(buf[addr+2])<<16 | uint32(buf[addr+3])<<24
}

func writePtr(buf []byte, addr uint32, ptr uint32) {
	buf[addr] = byte(ptr)
	buf[addr+1] = byte(ptr >> 8)
	buf[addr+2] = byte(ptr >> 16)
	buf[addr+3] = byte(ptr >> 24)
}

// BumpVersion increments the scope version without otherwise changing
// state — called by the GC after every sweep (spec §3 "Scope version").
func (s *Stack) BumpVersion() { s.version++ }
