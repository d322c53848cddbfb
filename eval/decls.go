package eval

import (
	"github.com/kestrel-run/kestrel/ast"
	"github.com/kestrel-run/kestrel/heap"
	"github.com/kestrel-run/kestrel/values"
)

// evalLabel evaluates a labeled statement in place; goto handling that
// jumps directly to a label lives in the enclosing block's dispatch
// loop (see findLabel in eval.go).
func (e *Evaluator) evalLabel(n *ast.Node) (values.Value, Signal, error) {
	if len(n.Children) == 0 {
		return values.Value{}, Signal{}, nil
	}
	return e.Eval(n.Children[0])
}

// evalLambda stores the closure's body and parameter names out of
// band, since the tagged Value has no slot for a Go-side AST pointer,
// and returns an Object-kind handle to it (spec §4.8 "Lambda").
func (e *Evaluator) evalLambda(n *ast.Node) (values.Value, Signal, error) {
	key := e.nextClosure
	e.nextClosure++
	e.closures[key] = &closure{body: n.Func.Body, paramNames: n.Func.ParamNames}
	return values.RefValue(values.Object, values.Ptr(key)), Signal{}, nil
}

// invokeClosure evaluates a lambda's body in a fresh scope with its
// parameters bound, consuming any SigReturn it raises.
func (e *Evaluator) invokeClosure(key int64, args []values.Value) (values.Value, error) {
	cl, ok := e.closures[key]
	if !ok {
		return values.Value{}, nil
	}
	if err := e.Meter.EnterCall(); err != nil {
		return values.Value{}, err
	}
	defer e.Meter.ExitCall()

	if err := e.Heap.Scope.Enter(); err != nil {
		return values.Value{}, err
	}
	defer func() {
		e.Heap.Scope.Exit()
		e.Heap.CollectScope()
	}()

	for i, name := range cl.paramNames {
		if i >= len(args) {
			break
		}
		v := args[i]
		addr, err := e.Heap.Scope.StackAlloc(v.Kind)
		if err != nil {
			return values.Value{}, err
		}
		if err := e.Heap.Scope.Declare(name, v.Kind, addr, values.Size(v.Kind)); err != nil {
			return values.Value{}, err
		}
		e.Heap.WriteVariableValue(addr, v.Kind, v)
	}

	v, sig, err := e.Eval(cl.body)
	if err != nil {
		return values.Value{}, err
	}
	if sig.Kind == SigReturn {
		return sig.Value, nil
	}
	return v, nil
}

// evalEnumDecl registers an enum type's member-name -> ordinal-value
// map (spec §3 "Enums"). Each child is a Literal node named after the
// member, carrying its explicit or sequential ordinal.
func (e *Evaluator) evalEnumDecl(n *ast.Node) (values.Value, Signal, error) {
	members := make(map[string]values.Value, len(n.Children))
	var next int64
	for _, c := range n.Children {
		if c.LitValue != nil {
			v, _, err := e.Eval(c)
			if err != nil {
				return values.Value{}, Signal{}, err
			}
			members[c.Name] = v
			next = v.AsInt64() + 1
			continue
		}
		members[c.Name] = values.LongValue(next)
		next++
	}
	e.enums[n.Name] = members
	return values.Value{}, Signal{}, nil
}

// evalStructOrClassDecl registers a struct/class type's field layout
// as a signature block (spec §3 "Structs"/"Classes"). Each child is a
// VariableDecl node carrying the field's name, kind, and optional
// default-value expression.
func (e *Evaluator) evalStructOrClassDecl(n *ast.Node) (values.Value, Signal, error) {
	fields := make([]heap.FieldDecl, len(n.Children))
	names := make([]string, len(n.Children))
	for i, c := range n.Children {
		fd := heap.FieldDecl{Name: c.Name, Kind: c.DeclKind}
		if len(c.Children) > 0 {
			v, _, err := e.Eval(c.Children[0])
			if err != nil {
				return values.Value{}, Signal{}, err
			}
			fd.Default = &v
			fd.HasDefault = true
		}
		fields[i] = fd
		names[i] = c.Name
	}
	sigPtr, err := e.Heap.AllocateSignature(fields)
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	e.types[n.Name] = sigPtr
	e.structFields[n.Name] = names
	return values.Value{}, Signal{}, nil
}
