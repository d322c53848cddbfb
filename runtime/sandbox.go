// Package runtime assembles the arena, allocator, GC, scope stack,
// evaluator, and dispatcher behind a small embedding API: a host
// builds a Sandbox, registers native callbacks and initial globals,
// then submits an already-parsed AST tree for interpretation.
package runtime

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/kestrel-run/kestrel/ast"
	"github.com/kestrel-run/kestrel/dispatch"
	sberrors "github.com/kestrel-run/kestrel/errors"
	"github.com/kestrel-run/kestrel/eval"
	"github.com/kestrel-run/kestrel/handle"
	"github.com/kestrel-run/kestrel/heap"
	"github.com/kestrel-run/kestrel/values"
)

// Default resource caps, used when the corresponding Config field is
// left at its zero value.
const (
	DefaultHeapBytes     = 1 << 20
	DefaultStackBytes    = 1 << 16
	DefaultMaxCallDepth  = 512
	DefaultMaxOperations = 100_000_000
	DefaultMaxScopes     = 1024
	DefaultMaxVariables  = 2048
	DefaultMaxHandles    = handle.DefaultCapacity
)

// Config configures a Sandbox's resource limits. A zero value for any
// field falls back to the corresponding Default constant.
type Config struct {
	HeapBytes     uint32
	StackBytes    uint32
	MaxCallDepth  int
	MaxOperations uint64
	MaxScopes     int
	MaxVariables  int
	MaxHandles    int
}

func (c Config) withDefaults() Config {
	if c.HeapBytes == 0 {
		c.HeapBytes = DefaultHeapBytes
	}
	if c.StackBytes == 0 {
		c.StackBytes = DefaultStackBytes
	}
	if c.MaxCallDepth == 0 {
		c.MaxCallDepth = DefaultMaxCallDepth
	}
	if c.MaxOperations == 0 {
		c.MaxOperations = DefaultMaxOperations
	}
	if c.MaxScopes == 0 {
		c.MaxScopes = DefaultMaxScopes
	}
	if c.MaxVariables == 0 {
		c.MaxVariables = DefaultMaxVariables
	}
	if c.MaxHandles == 0 {
		c.MaxHandles = DefaultMaxHandles
	}
	return c
}

// Sandbox is the embedding surface over the interpreter core: one
// Sandbox owns one arena and one root (global) scope, and may
// Interpret any number of trees against that shared state.
type Sandbox struct {
	cfg     Config
	heap    *heap.Manager
	reg     *dispatch.Registry
	ev      *eval.Evaluator
	handles *handle.UnifiedTable
	closed  bool
}

// New builds a Sandbox with its arena, scope stack, dispatch registry,
// and evaluator wired together, and opens the root (global) scope that
// Declare and every Interpret call share for the Sandbox's lifetime.
func New(cfg Config) (*Sandbox, error) {
	cfg = cfg.withDefaults()

	h := heap.NewManagerWithLimits(cfg.StackBytes, cfg.HeapBytes, cfg.MaxScopes, cfg.MaxVariables)
	if err := h.Scope.Enter(); err != nil {
		return nil, err
	}

	reg := dispatch.NewRegistry()
	m := eval.NewMeterWithLimits(context.Background(), cfg.MaxOperations, cfg.MaxCallDepth)
	m.SetCapsChecker(h.Scope.CheckCaps)
	ev := eval.New(h, reg, m)

	handles := handle.NewTableWithCapacity(cfg.MaxHandles)

	return &Sandbox{cfg: cfg, heap: h, reg: reg, ev: ev, handles: handles}, nil
}

// Handles returns the Sandbox's handle table, used to hand Object-kind
// values a reference to a host object that lives outside the arena
// (spec §3 "Handles").
func (s *Sandbox) Handles() *handle.UnifiedTable { return s.handles }

// RegisterNative adds a host callback to the dispatch registry under
// name, joining whatever overload set already exists there (spec §4.9
// "Native adapter").
func (s *Sandbox) RegisterNative(name string, params []dispatch.Param, returnKind values.Kind, fn dispatch.NativeFunc) {
	s.reg.Define("", &dispatch.Candidate{
		Name:        name,
		Params:      params,
		ReturnKind:  returnKind,
		ParamsIndex: -1,
		Native:      fn,
	})
}

// RegisterNativeVariadic is RegisterNative for a callback whose final
// parameter collects any extra positional arguments into an array
// (spec §4.9 "Params tail"). paramsIndex names which entry in params
// is the variadic tail.
func (s *Sandbox) RegisterNativeVariadic(name string, params []dispatch.Param, paramsIndex int, returnKind values.Kind, fn dispatch.NativeFunc) {
	s.reg.Define("", &dispatch.Candidate{
		Name:        name,
		Params:      params,
		ReturnKind:  returnKind,
		ParamsIndex: paramsIndex,
		Native:      fn,
	})
}

// RegisterNativeWithAttributes is RegisterNative for a callback that
// also carries `[Name(args...)]`-style attributes, making it a
// candidate for InvokeByAttribute (spec §4.9 "Attribute invocation").
func (s *Sandbox) RegisterNativeWithAttributes(name string, params []dispatch.Param, returnKind values.Kind, attrs []ast.Attribute, fn dispatch.NativeFunc) {
	s.reg.Define("", &dispatch.Candidate{
		Name:        name,
		Params:      params,
		ReturnKind:  returnKind,
		ParamsIndex: -1,
		Attributes:  attrs,
		Native:      fn,
	})
}

// InvokeByAttribute finds and calls the first registered candidate
// tagged with an attribute matching (attrName, attrArgs) and whose
// signature accepts args, returning the native callback's result
// (spec §4.9 "Attribute invocation").
func (s *Sandbox) InvokeByAttribute(attrName string, attrArgs []string, args []values.Value) (values.Value, bool, error) {
	callArgs := make([]dispatch.Arg, len(args))
	for i, v := range args {
		callArgs[i] = dispatch.Arg{Value: v}
	}
	cand, _ := s.reg.InvokeByAttribute(attrName, attrArgs, callArgs)
	if cand == nil {
		return values.Value{}, false, nil
	}
	if !cand.IsNative() {
		return values.Value{}, false, sberrors.New(sberrors.PhaseHost, sberrors.KindDomainError).
			Detail("attribute %q resolved to a declared function, not a native callback", attrName).Build()
	}
	v, err := cand.Native(args)
	return v, true, err
}

// Declare binds name to initial in the Sandbox's root scope, available
// to every subsequent Interpret call as a pre-seeded global (spec §6
// "host submits ... initial globals").
func (s *Sandbox) Declare(name string, kind values.Kind, initial values.Value) error {
	addr, err := s.heap.Scope.StackAlloc(kind)
	if err != nil {
		return err
	}
	if err := s.heap.Scope.Declare(name, kind, addr, values.Size(kind)); err != nil {
		return err
	}
	s.heap.WriteVariableValue(addr, kind, initial)
	return nil
}

// Result is what Interpret reports back to the host: the tree's final
// expression value, any captured Console-style output, and the
// evaluator's terminal execution state (spec §4.10).
type Result struct {
	Value  values.Value
	Output string
	State  eval.State
}

// Interpret evaluates an already-parsed tree against the Sandbox's
// shared heap, scope, and dispatch registry (spec §6 "interpret").
// Passing ctx lets the host cancel a long-running program; Sandbox
// rebuilds its Meter with the configured caps on every call so a
// Sandbox can be reused across many short-lived submissions.
func (s *Sandbox) Interpret(ctx context.Context, tree *ast.Node) (Result, error) {
	if s.closed {
		return Result{}, sberrors.New(sberrors.PhaseRuntime, sberrors.KindSandboxViolation).
			Detail("Interpret called on a closed Sandbox").Build()
	}
	if tree == nil {
		return Result{}, sberrors.New(sberrors.PhaseRuntime, sberrors.KindDomainError).
			Detail("Interpret called with a nil tree").Build()
	}

	s.ev.Meter = eval.NewMeterWithLimits(ctx, s.cfg.MaxOperations, s.cfg.MaxCallDepth)
	s.ev.Meter.SetCapsChecker(s.heap.Scope.CheckCaps)

	v, sig, err := s.ev.Eval(tree)
	res := Result{Value: v, Output: s.ev.Output(), State: s.ev.State()}
	if err != nil {
		Logger().Warn("interpret failed", zap.Error(err))
		return res, err
	}
	if sig.Kind == eval.SigReturn {
		res.Value = sig.Value
	}
	return res, nil
}

// Heap exposes the Sandbox's composite-data Manager so a native
// binding package (e.g. stdlib) can allocate strings/arrays/dicts for
// its own arguments and return values.
func (s *Sandbox) Heap() *heap.Manager { return s.heap }

// Config returns the Sandbox's resolved resource limits (after
// withDefaults), so a native binding package can report the active cap
// in an error message without hardcoding a default.
func (s *Sandbox) Config() Config { return s.cfg }

// Print appends to the Sandbox's captured output buffer, the same
// buffer a native `Console.WriteLine`-style binding writes through
// (spec §6 "interpret ... returns captured output").
func (s *Sandbox) Print(text string) { s.ev.Print(text) }

// UsedHeapBytes reports the heap's current frontier and total capacity
// (spec §8 scenario 3 "GetMemoryUsage").
func (s *Sandbox) UsedHeapBytes() (used, capacity uint32) {
	return s.heap.Arena.HeapEnd(), s.heap.Arena.HeapCap()
}

// Close tears down the Sandbox's root scope and runs a final
// mark-and-sweep pass. Safe to call more than once.
func (s *Sandbox) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var errs error
	func() {
		defer func() {
			if r := recover(); r != nil {
				errs = multierr.Append(errs, sberrors.New(sberrors.PhaseRuntime, sberrors.KindSandboxViolation).
					Detail("panic during teardown: %v", r).Build())
			}
		}()
		s.heap.Scope.Exit()
		s.heap.CollectScope()
	}()

	if err := s.handles.Close(); err != nil {
		errs = multierr.Append(errs, err)
	}

	Logger().Debug("sandbox closed", zap.Uint32("heap_used", s.heap.Arena.HeapEnd()))
	return errs
}
