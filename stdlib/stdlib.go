// Package stdlib is a minimal reference native-binding set demonstrating
// the dispatcher's overload resolution, attribute invocation, and the
// composite-data/serializer services a host can exercise through
// runtime.Sandbox.RegisterNative. It is a demonstration collaborator, not
// part of the sandboxed interpreter core.
package stdlib

import (
	"github.com/kestrel-run/kestrel/ast"
	"github.com/kestrel-run/kestrel/dispatch"
	sberrors "github.com/kestrel-run/kestrel/errors"
	"github.com/kestrel-run/kestrel/handle"
	"github.com/kestrel-run/kestrel/runtime"
	"github.com/kestrel-run/kestrel/serialize"
	"github.com/kestrel-run/kestrel/values"
)

// Register wires every binding in this package into sb under its
// conventional dotted name (Console.WriteLine, Json.Serialize, ...).
func Register(sb *runtime.Sandbox) {
	registerConsole(sb)
	registerJson(sb)
	registerAdd(sb)
	registerDiagnostics(sb)
	registerResource(sb)
}

// registerConsole supplies Console.WriteLine(message): writes the
// stringified argument to the Sandbox's captured output buffer.
func registerConsole(sb *runtime.Sandbox) {
	sb.RegisterNative("Console.WriteLine",
		[]dispatch.Param{{Name: "message", Kind: values.Object}},
		values.Object,
		func(args []values.Value) (values.Value, error) {
			text := values.Stringify(args[0])
			if args[0].Kind == values.String {
				text = sb.Heap().ReadString(uint32(args[0].Ptr))
			}
			sb.Print(text + "\n")
			return values.Value{}, nil
		},
	)
}

// registerJson supplies Json.Serialize and Json.Deserialize, wiring
// the serialize package's JSON-subset codec into the registry.
func registerJson(sb *runtime.Sandbox) {
	sb.RegisterNative("Json.Serialize",
		[]dispatch.Param{{Name: "value", Kind: values.Object}},
		values.String,
		func(args []values.Value) (values.Value, error) {
			ptr, err := serialize.Serialize(sb.Heap(), args[0])
			if err != nil {
				return values.Value{}, err
			}
			return values.RefValue(values.String, values.Ptr(ptr)), nil
		},
	)

	sb.RegisterNative("Json.Deserialize",
		[]dispatch.Param{{Name: "text", Kind: values.String}},
		values.Object,
		func(args []values.Value) (values.Value, error) {
			if args[0].IsNull() {
				return values.Value{}, sberrors.New(sberrors.PhaseHost, sberrors.KindDomainError).
					Detail("Json.Deserialize requires a non-null string").Build()
			}
			return serialize.Deserialize(sb.Heap(), uint32(args[0].Ptr))
		},
	)
}

// registerAdd supplies a two-overload Add set (Long+Long, Double+Double)
// demonstrating exact-match overload resolution (spec §4.9 "Overload
// resolution"): calling Add(1, 2) picks the Long overload, Add(1.5, 2.5)
// the Double one.
func registerAdd(sb *runtime.Sandbox) {
	sb.RegisterNative("Add",
		[]dispatch.Param{{Name: "a", Kind: values.Long}, {Name: "b", Kind: values.Long}},
		values.Long,
		func(args []values.Value) (values.Value, error) {
			return values.LongValue(args[0].AsInt64() + args[1].AsInt64()), nil
		},
	)
	sb.RegisterNative("Add",
		[]dispatch.Param{{Name: "a", Kind: values.Double}, {Name: "b", Kind: values.Double}},
		values.Double,
		func(args []values.Value) (values.Value, error) {
			return values.DoubleValue(args[0].AsFloat64() + args[1].AsFloat64()), nil
		},
	)
}

// registerResource supplies a minimal host-object handle demo over the
// Sandbox's handle table (spec §3 "Handles"): Resource.Open stores a
// labeled host object outside the arena and returns its handle as a
// Long, Resource.Label reads the label back by handle, and
// Resource.Close releases the slot.
func registerResource(sb *runtime.Sandbox) {
	sb.RegisterNative("Resource.Open",
		[]dispatch.Param{{Name: "label", Kind: values.String}},
		values.Long,
		func(args []values.Value) (values.Value, error) {
			label := sb.Heap().ReadString(uint32(args[0].Ptr))
			h := sb.Handles().Insert(label)
			if h == 0 {
				return values.Value{}, sberrors.ResourceExhausted(sberrors.PhaseHost, "handle count", sb.Config().MaxHandles)
			}
			return values.LongValue(int64(h)), nil
		},
	)

	sb.RegisterNative("Resource.Label",
		[]dispatch.Param{{Name: "handle", Kind: values.Long}},
		values.String,
		func(args []values.Value) (values.Value, error) {
			v, ok := sb.Handles().Get(handle.Handle(args[0].AsInt64()))
			if !ok {
				return values.Value{}, sberrors.New(sberrors.PhaseHost, sberrors.KindDomainError).
					Detail("Resource.Label: no such handle").Build()
			}
			ptr, err := sb.Heap().NewString(v.(string))
			if err != nil {
				return values.Value{}, err
			}
			return values.RefValue(values.String, values.Ptr(ptr)), nil
		},
	)

	sb.RegisterNative("Resource.Close",
		[]dispatch.Param{{Name: "handle", Kind: values.Long}},
		values.Bool,
		func(args []values.Value) (values.Value, error) {
			_, ok := sb.Handles().Release(handle.Handle(args[0].AsInt64()))
			return values.BoolValue(ok), nil
		},
	)
}

// registerDiagnostics supplies a [Hook("ready")]-tagged native,
// reachable only via Sandbox.InvokeByAttribute rather than by a normal
// call expression (spec §4.9 "Attribute invocation").
func registerDiagnostics(sb *runtime.Sandbox) {
	sb.RegisterNativeWithAttributes("Diagnostics.OnReady",
		[]dispatch.Param{{Name: "message", Kind: values.String}},
		values.Object,
		[]ast.Attribute{{Name: "Hook", Args: []any{"ready"}}},
		func(args []values.Value) (values.Value, error) {
			sb.Print("[ready] " + values.Stringify(args[0]) + "\n")
			return values.Value{}, nil
		},
	)
}
