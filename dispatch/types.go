package dispatch

import (
	"github.com/kestrel-run/kestrel/ast"
	"github.com/kestrel-run/kestrel/values"
)

// NativeFunc is the adapted form of a host callback after reflection
// has bound its Go signature: it receives already-coerced interpreter
// values and returns a single result value (spec §4.9 "Native adapter").
type NativeFunc func(args []values.Value) (values.Value, error)

// Param describes one formal parameter for overload scoring (spec
// §4.9 "Overload resolution").
type Param struct {
	Name       string
	Kind       values.Kind
	HasDefault bool
	Default    values.Value
}

// Candidate is a single overload: either a declared (interpreted)
// function or a native callback, sharing one registry entry under a
// name (spec §3 "Function": "multiple callbacks under one name form an
// overload set").
type Candidate struct {
	Name        string
	Params      []Param
	ReturnKind  values.Kind
	ParamsIndex int // -1 if no variadic tail
	Generics    []ast.GenericParam
	Attributes  []ast.Attribute

	Declared *ast.FunctionDecl // set when this candidate is an interpreted function
	Native   NativeFunc        // set when this candidate is a native callback
}

// IsNative reports whether this candidate dispatches to a host callback.
func (c *Candidate) IsNative() bool { return c.Native != nil }
