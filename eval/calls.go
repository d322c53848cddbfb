package eval

import (
	"github.com/kestrel-run/kestrel/ast"
	"github.com/kestrel-run/kestrel/dispatch"
	"github.com/kestrel-run/kestrel/values"
)

// evalFunctionDecl registers a declared function under the current
// ambient namespace as a dispatch Candidate, evaluating any parameter
// default-value expressions once at declaration time (spec §4.9
// "Name resolution", "Overload resolution").
func (e *Evaluator) evalFunctionDecl(n *ast.Node) (values.Value, Signal, error) {
	fd := n.Func
	params := make([]dispatch.Param, len(fd.ParamNames))
	for i, name := range fd.ParamNames {
		p := dispatch.Param{Name: name, Kind: fd.ParamKinds[i]}
		if i < len(fd.DefaultValues) && fd.DefaultValues[i] != nil {
			v, _, err := e.Eval(fd.DefaultValues[i])
			if err != nil {
				return values.Value{}, Signal{}, err
			}
			p.HasDefault = true
			p.Default = v
		}
		params[i] = p
	}
	c := &dispatch.Candidate{
		Name:        fd.Name,
		Params:      params,
		ReturnKind:  fd.ReturnKind,
		ParamsIndex: fd.ParamsIndex,
		Generics:    fd.GenericParams,
		Attributes:  fd.Attributes,
		Declared:    fd,
	}
	e.Registry.Define(e.Registry.AmbientPath(), c)
	return values.Value{}, Signal{}, nil
}

// evalCall resolves a call's overload set, builds any params-tail
// array, and dispatches to either a native callback or a declared
// function body (spec §4.9 "Function lifecycle").
func (e *Evaluator) evalCall(n *ast.Node) (values.Value, Signal, error) {
	args := make([]dispatch.Arg, 0, len(n.Args)+len(n.NamedArgs))
	for _, a := range n.Args {
		v, _, err := e.Eval(a)
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		args = append(args, dispatch.Arg{Value: v})
	}
	for name, a := range n.NamedArgs {
		v, _, err := e.Eval(a)
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		args = append(args, dispatch.Arg{Name: name, Value: v})
	}

	// A call target that names a local variable holding a lambda
	// invokes the stored closure directly, bypassing the namespace
	// registry entirely (spec §4.8 "Lambda").
	if lv, ok := e.Heap.Scope.Lookup(n.Name); ok && lv.Kind == values.Object {
		closureVal := e.Heap.ReadVariableValue(lv.Address, values.Object)
		argVals := make([]values.Value, len(args))
		for i, a := range args {
			argVals[i] = a.Value
		}
		v, err := e.invokeClosure(int64(closureVal.Ptr), argVals)
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		return v, Signal{}, nil
	}

	b, err := e.Registry.LookupBinding(n.Name)
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	cand, bound, err := dispatch.Resolve(b.Candidates, args)
	if err != nil {
		return values.Value{}, Signal{}, err
	}

	if cand.ParamsIndex >= 0 {
		tailVal, err := e.buildParamsTail(cand, args)
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		bound[cand.ParamsIndex] = tailVal
	}

	if cand.IsNative() {
		v, err := cand.Native(bound)
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		return v, Signal{}, nil
	}

	v, pinKey, hasPin, err := e.invokeDeclared(cand, bound)
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	if hasPin {
		e.Heap.Unpin(pinKey)
	}
	return v, Signal{}, nil
}

// buildParamsTail re-derives the variadic tail's raw argument values
// (Resolve's scoring pass only kept their count) and
// heap-allocates the backing array, since dispatch intentionally does
// not import heap (spec §4.9 "Params tail"). When the caller passes
// exactly one residual positional argument and it is itself an array,
// it is forwarded verbatim rather than wrapped in a new array-of-array.
func (e *Evaluator) buildParamsTail(cand *dispatch.Candidate, args []dispatch.Arg) (values.Value, error) {
	fixed := len(cand.Params) - 1
	var positional []values.Value
	for _, a := range args {
		if a.Name == "" {
			positional = append(positional, a.Value)
		}
	}
	var tail []values.Value
	if len(positional) > fixed {
		tail = positional[fixed:]
	}

	if len(tail) == 1 && tail[0].Kind == values.Array && !tail[0].IsNull() {
		return tail[0], nil
	}

	elemKind := values.Object
	if len(tail) > 0 {
		elemKind = tail[0].Kind
		for _, v := range tail[1:] {
			if v.Kind != elemKind {
				elemKind = values.Object
				break
			}
		}
	}
	ptr, err := e.Heap.NewArray(elemKind, len(tail))
	if err != nil {
		return values.Value{}, err
	}
	for i, v := range tail {
		if err := e.Heap.ArraySet(ptr, i, v); err != nil {
			return values.Value{}, err
		}
	}
	return values.RefValue(values.Array, values.Ptr(ptr)), nil
}

// invokeDeclared runs a declared function body in a fresh scope and
// call-depth frame: parameters are declared as local variables, the
// body's SigReturn is consumed, and a pinned reference-kind result is
// reported back so the caller can release the pin once it has safely
// taken ownership of the value (spec §4.9 "Function lifecycle").
func (e *Evaluator) invokeDeclared(cand *dispatch.Candidate, bound []values.Value) (values.Value, uint32, bool, error) {
	if err := e.Meter.EnterCall(); err != nil {
		return values.Value{}, 0, false, err
	}
	defer e.Meter.ExitCall()

	if err := e.Heap.Scope.Enter(); err != nil {
		return values.Value{}, 0, false, err
	}
	defer func() {
		e.Heap.Scope.Exit()
		e.Heap.CollectScope()
	}()

	fd := cand.Declared
	for i, name := range fd.ParamNames {
		if i >= len(bound) {
			break
		}
		v := bound[i]
		addr, err := e.Heap.Scope.StackAlloc(v.Kind)
		if err != nil {
			return values.Value{}, 0, false, err
		}
		if err := e.Heap.Scope.Declare(name, v.Kind, addr, values.Size(v.Kind)); err != nil {
			return values.Value{}, 0, false, err
		}
		e.Heap.WriteVariableValue(addr, v.Kind, v)
	}

	v, sig, err := e.Eval(fd.Body)
	if err != nil {
		return values.Value{}, 0, false, err
	}
	if sig.Kind == SigReturn {
		return sig.Value, sig.PinKey, sig.HasPin, nil
	}
	return v, 0, false, nil
}
