package eval

import (
	"github.com/kestrel-run/kestrel/ast"
	"github.com/kestrel-run/kestrel/values"
)

// matchPattern implements the closed pattern-matching kinds of spec
// §4.8 "Pattern matching": constant/type/declaration/relational/null
// tests plus the not/and/or/when combinators. A successful
// PatternDeclaration binds its name into the current (innermost)
// scope as a side effect, mirroring a switch arm's variable pattern.
func (e *Evaluator) matchPattern(v values.Value, p *ast.Pattern) (bool, error) {
	switch p.PatKind {
	case ast.PatternAny:
		return true, nil
	case ast.PatternNull:
		return v.IsNull(), nil
	case ast.PatternConstant:
		cv, _, err := e.Eval(p.ConstNode)
		if err != nil {
			return false, err
		}
		return e.valuesEqual(v, cv), nil
	case ast.PatternType:
		return v.Kind == p.TypeKind, nil
	case ast.PatternDeclaration:
		if p.TypeKind != 0 && v.Kind != p.TypeKind {
			return false, nil
		}
		if p.BindName != "" {
			addr, err := e.Heap.Scope.StackAlloc(v.Kind)
			if err != nil {
				return false, err
			}
			if err := e.Heap.Scope.Declare(p.BindName, v.Kind, addr, values.Size(v.Kind)); err != nil {
				return false, err
			}
			e.Heap.WriteVariableValue(addr, v.Kind, v)
		}
		return true, nil
	case ast.PatternRelational:
		rv, _, err := e.Eval(p.RelValue)
		if err != nil {
			return false, err
		}
		res, _, err := e.compareOp(p.RelOp, v, rv)
		if err != nil {
			return false, err
		}
		return res.B, nil
	case ast.PatternNot:
		inner, err := e.matchPattern(v, p.Inner)
		if err != nil {
			return false, err
		}
		return !inner, nil
	case ast.PatternAnd:
		l, err := e.matchPattern(v, p.Left)
		if err != nil || !l {
			return false, err
		}
		return e.matchPattern(v, p.Right)
	case ast.PatternOr:
		l, err := e.matchPattern(v, p.Left)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return e.matchPattern(v, p.Right)
	case ast.PatternWhen:
		inner, err := e.matchPattern(v, p.Inner)
		if err != nil || !inner {
			return false, err
		}
		guard, _, err := e.Eval(p.Guard)
		if err != nil {
			return false, err
		}
		return guard.B, nil
	default:
		return false, nil
	}
}

func (e *Evaluator) evalPatternMatchExpr(n *ast.Node) (values.Value, Signal, error) {
	v, _, err := e.Eval(n.Children[0])
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	ok, err := e.matchPattern(v, n.Pattern)
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	return values.BoolValue(ok), Signal{}, nil
}
