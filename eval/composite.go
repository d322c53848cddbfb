package eval

import (
	"github.com/kestrel-run/kestrel/ast"
	sberrors "github.com/kestrel-run/kestrel/errors"
	"github.com/kestrel-run/kestrel/heap"
	"github.com/kestrel-run/kestrel/values"
)

func (e *Evaluator) evalArrayIndex(n *ast.Node) (values.Value, Signal, error) {
	arr, _, err := e.Eval(n.Children[0])
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	idx, _, err := e.Eval(n.Children[1])
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	if arr.IsNull() {
		return values.Value{}, Signal{}, sberrors.SandboxViolation(sberrors.PhaseEval, "index into a null array")
	}
	v, err := e.Heap.ArrayGet(uint32(arr.Ptr), int(idx.AsInt64()))
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	return v, Signal{}, nil
}

func (e *Evaluator) evalArrayLiteral(n *ast.Node) (values.Value, Signal, error) {
	elems := make([]values.Value, len(n.Children))
	for i, c := range n.Children {
		v, _, err := e.Eval(c)
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		elems[i] = v
	}
	elemKind := n.TargetKind
	if elemKind == 0 && len(elems) > 0 {
		elemKind = elems[0].Kind
	}
	ptr, err := e.Heap.NewArray(elemKind, len(elems))
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	for i, v := range elems {
		if err := e.Heap.ArraySet(ptr, i, v); err != nil {
			return values.Value{}, Signal{}, err
		}
	}
	return values.RefValue(values.Array, values.Ptr(ptr)), Signal{}, nil
}

func (e *Evaluator) evalTupleLiteral(n *ast.Node) (values.Value, Signal, error) {
	items := make([]heap.TupleItem, len(n.Children))
	for i, c := range n.Children {
		v, _, err := e.Eval(c)
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		name := ""
		if i < len(n.Names) {
			name = n.Names[i]
		}
		items[i] = heap.TupleItem{Name: name, Value: v}
	}
	ptr, err := e.Heap.AllocateTuple(items)
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	return values.RefValue(values.Tuple, values.Ptr(ptr)), Signal{}, nil
}

func (e *Evaluator) evalNewArray(n *ast.Node) (values.Value, Signal, error) {
	length, _, err := e.Eval(n.Children[0])
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	ptr, err := e.Heap.NewArray(n.TargetKind, int(length.AsInt64()))
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	return values.RefValue(values.Array, values.Ptr(ptr)), Signal{}, nil
}

func (e *Evaluator) evalNewDictionary(n *ast.Node) (values.Value, Signal, error) {
	entries := make([]heap.DictEntry, len(n.DictKeys))
	for i := range n.DictKeys {
		k, _, err := e.Eval(n.DictKeys[i])
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		v, _, err := e.Eval(n.DictValues[i])
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		entries[i] = heap.DictEntry{Key: k, Value: v}
	}
	ptr, err := e.Heap.AllocateDict(n.KeyKind, n.TargetKind, entries)
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	return values.RefValue(values.Dictionary, values.Ptr(ptr)), Signal{}, nil
}

func (e *Evaluator) evalCast(n *ast.Node) (values.Value, Signal, error) {
	v, _, err := e.Eval(n.Children[0])
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	if n.TargetKind == values.Nullable {
		if v.IsNull() {
			return values.RefValue(values.Nullable, values.NullPtr), Signal{}, nil
		}
		cast, err := e.Heap.CastToNullable(v)
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		ptr, err := e.Heap.PackNullable(cast)
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		return values.RefValue(values.Nullable, values.Ptr(ptr)), Signal{}, nil
	}
	if v.Kind != values.String && n.TargetKind == values.String {
		return values.Cast(v, values.String)
	}
	if v.Kind == values.String && n.TargetKind != values.String {
		s := e.Heap.ReadString(uint32(v.Ptr))
		return values.Cast(values.Value{Kind: values.String, Str: s}, n.TargetKind)
	}
	out, err := values.Cast(v, n.TargetKind)
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	return out, Signal{}, nil
}

// evalAs mirrors Cast but reports a null result (rather than an error)
// when the conversion fails — the safe-cast operator for reference
// kinds (spec §4.8 "As").
func (e *Evaluator) evalAs(n *ast.Node) (values.Value, Signal, error) {
	v, sig, err := e.evalCast(n)
	if err != nil {
		return values.RefValue(n.TargetKind, values.NullPtr), sig, nil
	}
	return v, sig, nil
}

func (e *Evaluator) evalFieldAccess(n *ast.Node) (values.Value, Signal, error) {
	obj, _, err := e.Eval(n.Children[0])
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	if obj.IsNull() {
		return values.Value{}, Signal{}, sberrors.SandboxViolation(sberrors.PhaseEval, "field access on a null reference")
	}
	v, err := e.Heap.ReadField(uint32(obj.Ptr), n.Name)
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	return v, Signal{}, nil
}

func (e *Evaluator) evalNewStruct(n *ast.Node) (values.Value, Signal, error) {
	sigPtr, ok := e.types[n.Name]
	if !ok {
		return values.Value{}, Signal{}, sberrors.NameError(sberrors.PhaseEval, n.Name, "undeclared struct or class type")
	}
	ptr, err := e.Heap.NewStruct(sigPtr)
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	fieldNames := e.structFields[n.Name]
	for i, arg := range n.Args {
		if i >= len(fieldNames) {
			break
		}
		v, _, err := e.Eval(arg)
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		if err := e.Heap.WriteField(ptr, fieldNames[i], v); err != nil {
			return values.Value{}, Signal{}, err
		}
	}
	targetKind := values.Struct
	if n.TargetKind == values.Class {
		targetKind = values.Class
	}
	return values.RefValue(targetKind, values.Ptr(ptr)), Signal{}, nil
}
