// Package errors provides the structured error taxonomy used throughout
// the sandbox runtime.
//
// Errors are categorized by Phase (which component raised it) and Kind
// (the abstract error class from the runtime's error taxonomy). The Error
// type carries rich context: a field/name path, the kinds involved, and a
// cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEval, errors.KindTypeMismatch).
//		Path("x", "field").
//		Detail("cannot cast %s to %s", "String", "Int").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.OutOfBounds(errors.PhaseHeap, path, 10, 5)
//	err := errors.ResourceExhausted(errors.PhaseScope, "scope count", 1024)
//
// All errors implement the standard error interface and support
// errors.Is/As via Unwrap.
package errors

import (
	"fmt"
	"strings"
)

// Phase indicates which runtime component raised the error.
type Phase string

const (
	PhaseArena    Phase = "arena"    // header encode/decode, bounds validation
	PhaseAlloc    Phase = "alloc"    // malloc/free/realloc/defragment
	PhaseGC       Phase = "gc"       // mark-and-sweep
	PhaseValue    Phase = "value"    // kind inference, cast, coercion
	PhaseHeap     Phase = "heap"     // composite data services
	PhaseScope    Phase = "scope"    // scope stack, variable declarations
	PhaseEval     Phase = "eval"     // tree-walking evaluator
	PhaseDispatch Phase = "dispatch" // function registry, overload resolution
	PhaseSerial   Phase = "serial"   // JSON-like serializer/deserializer
	PhaseParse    Phase = "parse"    // the (out-of-core) parser collaborator
	PhaseHost     Phase = "host"     // native callback registration/adapter
	PhaseRuntime  Phase = "runtime"  // sandbox lifecycle
)

// Kind categorizes the error using the abstract taxonomy from the runtime
// specification (§7). Each Kind maps 1:1 to a named failure mode.
type Kind string

const (
	KindSandboxViolation Kind = "sandbox_violation"
	KindOutOfMemory      Kind = "out_of_memory"
	KindStackOverflow    Kind = "stack_overflow"
	KindResourceExhaust  Kind = "resource_exhausted"
	KindCancelled        Kind = "cancelled"
	KindTypeMismatch     Kind = "type_mismatch"
	KindOverflow         Kind = "overflow"
	KindInvalidPointer   Kind = "invalid_pointer"
	KindNameError        Kind = "name_error"
	KindNoMatch          Kind = "no_match"
	KindDomainError      Kind = "domain_error"
	KindParseError       Kind = "parse_error"
	KindNativeFailure    Kind = "native_failure"
)

// fatalKinds are never catchable by an interpreted try/catch construct;
// they always unwind out of Interpret (spec §7 "Propagation").
var fatalKinds = map[Kind]bool{
	KindCancelled:     true,
	KindOutOfMemory:   true,
	KindStackOverflow: true,
}

// Error is the structured error type used throughout the runtime.
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Detail string
	Path   []string
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error's (Phase, Kind) pair.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind && (t.Phase == "" || e.Phase == t.Phase)
	}
	return false
}

// Fatal reports whether this error is one of the three kinds that must
// always propagate out of interpretation, never caught by a program-level
// try/catch (spec §7).
func (e *Error) Fatal() bool {
	return fatalKinds[e.Kind]
}

// Builder provides structured error construction.
type Builder struct {
	err Error
}

// New creates a new error builder for the given phase and kind.
func New(phase Phase, kind Kind) *Builder {
	return &Builder{err: Error{Phase: phase, Kind: kind}}
}

// Path sets the name/field path where the error occurred.
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// Value sets the offending value.
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error.
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message.
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error.
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the taxonomy in spec §7.

func SandboxViolation(phase Phase, detail string, args ...any) *Error {
	return New(phase, KindSandboxViolation).Detail(detail, args...).Build()
}

func OutOfMemory(phase Phase, needed, available uint32) *Error {
	return New(phase, KindOutOfMemory).
		Detail("need %d bytes, %d available after defragmentation", needed, available).
		Build()
}

func StackOverflow(phase Phase, detail string, args ...any) *Error {
	return New(phase, KindStackOverflow).Detail(detail, args...).Build()
}

func ResourceExhausted(phase Phase, resource string, limit int) *Error {
	return New(phase, KindResourceExhaust).
		Detail("%s limit of %d exceeded", resource, limit).
		Build()
}

func Cancelled(phase Phase) *Error {
	return New(phase, KindCancelled).Detail("execution cancelled").Build()
}

func TypeMismatch(phase Phase, path []string, detail string, args ...any) *Error {
	return New(phase, KindTypeMismatch).Path(path...).Detail(detail, args...).Build()
}

func Overflow(phase Phase, path []string, value any, targetKind string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOverflow,
		Path:   path,
		Value:  value,
		Detail: fmt.Sprintf("value %v overflows %s", value, targetKind),
	}
}

func InvalidPointer(phase Phase, detail string, args ...any) *Error {
	return New(phase, KindInvalidPointer).Detail(detail, args...).Build()
}

func NameError(phase Phase, name string, detail string) *Error {
	return New(phase, KindNameError).Path(name).Detail("%s", detail).Build()
}

func NoMatch(phase Phase, detail string, args ...any) *Error {
	return New(phase, KindNoMatch).Detail(detail, args...).Build()
}

func DomainError(phase Phase, detail string, args ...any) *Error {
	return New(phase, KindDomainError).Detail(detail, args...).Build()
}

func ParseFailed(detail string, cause error) *Error {
	return New(PhaseParse, KindParseError).Detail("%s", detail).Cause(cause).Build()
}

// NativeFailure wraps a panic or error surfaced from inside a host callback,
// carrying a short frame excerpt (spec §7).
func NativeFailure(name string, cause error, frames []string) *Error {
	detail := fmt.Sprintf("native callback %q failed", name)
	if len(frames) > 0 {
		detail += ": " + strings.Join(frames, " <- ")
	}
	return New(PhaseHost, KindNativeFailure).Cause(cause).Detail("%s", detail).Build()
}

func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindSandboxViolation,
		Path:   path,
		Value:  index,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
	}
}

// Wrap wraps an existing error with additional phase/kind/detail context.
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{Phase: phase, Kind: kind, Detail: detail, Cause: cause}
}
