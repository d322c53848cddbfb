package eval

import (
	"github.com/kestrel-run/kestrel/ast"
	sberrors "github.com/kestrel-run/kestrel/errors"
	"github.com/kestrel-run/kestrel/values"
)

func (e *Evaluator) evalAssign(n *ast.Node) (values.Value, Signal, error) {
	v, _, err := e.Eval(n.Children[1])
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	if err := e.assignTo(n.Children[0], v); err != nil {
		return values.Value{}, Signal{}, err
	}
	return v, Signal{}, nil
}

func (e *Evaluator) evalCompoundAssign(n *ast.Node) (values.Value, Signal, error) {
	cur, _, err := e.Eval(n.Children[0])
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	rhs, _, err := e.Eval(n.Children[1])
	if err != nil {
		return values.Value{}, Signal{}, err
	}

	var result values.Value
	switch n.Op {
	case "+=":
		if cur.Kind == values.String || rhs.Kind == values.String {
			result, _, err = e.concatString(cur, rhs)
		} else {
			result, _, err = e.arith("+", cur, rhs)
		}
	case "-=":
		result, _, err = e.arith("-", cur, rhs)
	case "*=":
		result, _, err = e.arith("*", cur, rhs)
	case "/=":
		result, _, err = e.arith("/", cur, rhs)
	case "%=":
		result, _, err = e.arith("%", cur, rhs)
	case "&=":
		result, _, err = e.bitwise("&", cur, rhs)
	case "|=":
		result, _, err = e.bitwise("|", cur, rhs)
	case "^=":
		result, _, err = e.bitwise("^", cur, rhs)
	case "<<=":
		result, _, err = e.bitwise("<<", cur, rhs)
	case ">>=":
		result, _, err = e.bitwise(">>", cur, rhs)
	default:
		return values.Value{}, Signal{}, sberrors.DomainError(sberrors.PhaseEval, "unknown compound-assign operator %q", n.Op)
	}
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	if err := e.assignTo(n.Children[0], result); err != nil {
		return values.Value{}, Signal{}, err
	}
	return result, Signal{}, nil
}

// assignTo writes v to the lvalue described by target: a variable
// reference, an array element, or a struct/class field.
func (e *Evaluator) assignTo(target *ast.Node, v values.Value) error {
	switch target.Kind {
	case ast.VariableRef:
		vr, ok := e.Heap.Scope.Lookup(target.Name)
		if !ok {
			return sberrors.NameError(sberrors.PhaseEval, target.Name, "undeclared variable")
		}
		e.Heap.WriteVariableValue(vr.Address, vr.Kind, v)
		return nil
	case ast.ArrayIndex:
		arr, _, err := e.Eval(target.Children[0])
		if err != nil {
			return err
		}
		idx, _, err := e.Eval(target.Children[1])
		if err != nil {
			return err
		}
		if arr.IsNull() {
			return sberrors.SandboxViolation(sberrors.PhaseEval, "index assignment into a null array")
		}
		return e.Heap.ArraySet(uint32(arr.Ptr), int(idx.AsInt64()), v)
	case ast.FieldAccess:
		obj, _, err := e.Eval(target.Children[0])
		if err != nil {
			return err
		}
		if obj.IsNull() {
			return sberrors.SandboxViolation(sberrors.PhaseEval, "field assignment on a null reference")
		}
		return e.Heap.WriteField(uint32(obj.Ptr), target.Name, v)
	default:
		return sberrors.DomainError(sberrors.PhaseEval, "not an assignable expression")
	}
}
