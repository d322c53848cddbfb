package eval

import (
	"github.com/kestrel-run/kestrel/ast"
	sberrors "github.com/kestrel-run/kestrel/errors"
	"github.com/kestrel-run/kestrel/values"
)

func (e *Evaluator) evalUnaryOp(n *ast.Node) (values.Value, Signal, error) {
	v, _, err := e.Eval(n.Children[0])
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	switch n.Op {
	case "-":
		if values.IsUnsignedKind(v.Kind) {
			return values.Value{Kind: v.Kind, I: -v.AsInt64()}, Signal{}, nil
		}
		if v.Kind == values.Float || v.Kind == values.Double {
			return values.Value{Kind: v.Kind, F: -v.F}, Signal{}, nil
		}
		return values.Value{Kind: v.Kind, I: -v.AsInt64()}, Signal{}, nil
	case "+":
		return v, Signal{}, nil
	case "!":
		return values.BoolValue(!v.B), Signal{}, nil
	case "~":
		return values.Value{Kind: v.Kind, I: ^v.AsInt64()}, Signal{}, nil
	default:
		return values.Value{}, Signal{}, sberrors.DomainError(sberrors.PhaseEval, "unknown unary operator %q", n.Op)
	}
}

// promote implements the binary-operand promotion ladder (spec §4.8
// "Binary operators"): Decimal dominates, then Double, then Float,
// otherwise the operands widen to a common signed/unsigned 64-bit lane
// before the result narrows back to the left operand's kind.
func promote(l, r values.Value) values.Kind {
	if l.Kind == values.Decimal || r.Kind == values.Decimal {
		return values.Decimal
	}
	if l.Kind == values.Double || r.Kind == values.Double {
		return values.Double
	}
	if l.Kind == values.Float || r.Kind == values.Float {
		return values.Float
	}
	if values.IsUnsignedKind(l.Kind) || values.IsUnsignedKind(r.Kind) {
		return values.Ulong
	}
	return values.Long
}

func (e *Evaluator) evalBinOp(n *ast.Node) (values.Value, Signal, error) {
	l, _, err := e.Eval(n.Children[0])
	if err != nil {
		return values.Value{}, Signal{}, err
	}

	// Short-circuit logical operators never evaluate the right side
	// unless needed.
	switch n.Op {
	case "&&":
		if !l.B {
			return values.BoolValue(false), Signal{}, nil
		}
		r, _, err := e.Eval(n.Children[1])
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		return values.BoolValue(r.B), Signal{}, nil
	case "||":
		if l.B {
			return values.BoolValue(true), Signal{}, nil
		}
		r, _, err := e.Eval(n.Children[1])
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		return values.BoolValue(r.B), Signal{}, nil
	case "??":
		if !l.IsNull() {
			return l, Signal{}, nil
		}
		return e.Eval(n.Children[1])
	}

	r, _, err := e.Eval(n.Children[1])
	if err != nil {
		return values.Value{}, Signal{}, err
	}

	switch n.Op {
	case "==":
		return values.BoolValue(e.valuesEqual(l, r)), Signal{}, nil
	case "!=":
		return values.BoolValue(!e.valuesEqual(l, r)), Signal{}, nil
	case "<", "<=", ">", ">=":
		return e.compareOp(n.Op, l, r)
	case "+":
		if l.Kind == values.String || r.Kind == values.String {
			return e.concatString(l, r)
		}
		return e.arith(n.Op, l, r)
	case "-", "*", "/", "%":
		return e.arith(n.Op, l, r)
	case "&", "|", "^", "<<", ">>":
		return e.bitwise(n.Op, l, r)
	default:
		return values.Value{}, Signal{}, sberrors.DomainError(sberrors.PhaseEval, "unknown binary operator %q", n.Op)
	}
}

func (e *Evaluator) valuesEqual(l, r values.Value) bool {
	if l.Kind == values.String && r.Kind == values.String {
		return e.Heap.ReadString(uint32(l.Ptr)) == e.Heap.ReadString(uint32(r.Ptr))
	}
	if values.IsNumericKind(l.Kind) && values.IsNumericKind(r.Kind) {
		return l.AsFloat64() == r.AsFloat64()
	}
	if l.Kind == values.Bool && r.Kind == values.Bool {
		return l.B == r.B
	}
	if l.Kind == values.Char && r.Kind == values.Char {
		return l.Ch == r.Ch
	}
	if values.IsReferenceKind(l.Kind) && values.IsReferenceKind(r.Kind) {
		return l.Ptr == r.Ptr
	}
	return false
}

func (e *Evaluator) compareOp(op string, l, r values.Value) (values.Value, Signal, error) {
	var cmp int
	switch {
	case l.Kind == values.String && r.Kind == values.String:
		ls, rs := e.Heap.ReadString(uint32(l.Ptr)), e.Heap.ReadString(uint32(r.Ptr))
		switch {
		case ls < rs:
			cmp = -1
		case ls > rs:
			cmp = 1
		}
	case l.Kind == values.DateTime && r.Kind == values.DateTime:
		switch {
		case l.Time.Before(r.Time):
			cmp = -1
		case l.Time.After(r.Time):
			cmp = 1
		}
	default:
		lf, rf := l.AsFloat64(), r.AsFloat64()
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		}
	}
	var result bool
	switch op {
	case "<":
		result = cmp < 0
	case "<=":
		result = cmp <= 0
	case ">":
		result = cmp > 0
	case ">=":
		result = cmp >= 0
	}
	return values.BoolValue(result), Signal{}, nil
}

func (e *Evaluator) concatString(l, r values.Value) (values.Value, Signal, error) {
	ls := stringOf(e, l)
	rs := stringOf(e, r)
	ptr, err := e.Heap.NewString(ls + rs)
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	return values.RefValue(values.String, values.Ptr(ptr)), Signal{}, nil
}

func stringOf(e *Evaluator, v values.Value) string {
	if v.Kind == values.String {
		return e.Heap.ReadString(uint32(v.Ptr))
	}
	return values.Stringify(v)
}

func (e *Evaluator) arith(op string, l, r values.Value) (values.Value, Signal, error) {
	target := promote(l, r)
	switch target {
	case values.Double, values.Float:
		lf, rf := l.AsFloat64(), r.AsFloat64()
		var res float64
		switch op {
		case "+":
			res = lf + rf
		case "-":
			res = lf - rf
		case "*":
			res = lf * rf
		case "/":
			res = lf / rf
		case "%":
			res = float64(int64(lf) % int64(rf))
		}
		out := values.Value{Kind: target, F: res}
		return values.Cast(out, l.Kind)
	case values.Decimal:
		// Decimal arithmetic is not yet carried to full fixed-point
		// precision; fall back through float64 for the four basic
		// operators, matching the magnitude but not the exact rounding
		// mode of a 96-bit decimal.
		lf, rf := decimalToFloat(l), decimalToFloat(r)
		var res float64
		switch op {
		case "+":
			res = lf + rf
		case "-":
			res = lf - rf
		case "*":
			res = lf * rf
		case "/":
			res = lf / rf
		}
		return floatToDecimal(res), Signal{}, nil
	case values.Ulong:
		lu, ru := l.AsUint64(), r.AsUint64()
		var res uint64
		switch op {
		case "+":
			res = lu + ru
		case "-":
			res = lu - ru
		case "*":
			res = lu * ru
		case "/":
			if ru == 0 {
				return values.Value{}, Signal{}, sberrors.DomainError(sberrors.PhaseEval, "division by zero")
			}
			res = lu / ru
		case "%":
			if ru == 0 {
				return values.Value{}, Signal{}, sberrors.DomainError(sberrors.PhaseEval, "division by zero")
			}
			res = lu % ru
		}
		out := values.Value{Kind: values.Ulong, U: res}
		return values.Cast(out, l.Kind)
	default:
		li, ri := l.AsInt64(), r.AsInt64()
		var res int64
		switch op {
		case "+":
			res = li + ri
		case "-":
			res = li - ri
		case "*":
			res = li * ri
		case "/":
			if ri == 0 {
				return values.Value{}, Signal{}, sberrors.DomainError(sberrors.PhaseEval, "division by zero")
			}
			res = li / ri
		case "%":
			if ri == 0 {
				return values.Value{}, Signal{}, sberrors.DomainError(sberrors.PhaseEval, "division by zero")
			}
			res = li % ri
		}
		out := values.Value{Kind: values.Long, I: res}
		return values.Cast(out, l.Kind)
	}
}

func (e *Evaluator) bitwise(op string, l, r values.Value) (values.Value, Signal, error) {
	li, ri := l.AsInt64(), r.AsInt64()
	var res int64
	switch op {
	case "&":
		res = li & ri
	case "|":
		res = li | ri
	case "^":
		res = li ^ ri
	case "<<":
		res = li << uint(ri)
	case ">>":
		res = li >> uint(ri)
	}
	out := values.Value{Kind: values.Long, I: res}
	return values.Cast(out, l.Kind)
}

func decimalToFloat(v values.Value) float64 {
	if v.Kind != values.Decimal {
		return v.AsFloat64()
	}
	scale := 1.0
	for i := uint8(0); i < v.Dec.Scale; i++ {
		scale *= 10
	}
	return float64(v.Dec.Mantissa) / scale
}

func floatToDecimal(f float64) values.Value {
	const scale = 8
	mult := 1.0
	for i := 0; i < scale; i++ {
		mult *= 10
	}
	return values.Value{Kind: values.Decimal, Dec: values.Decimal128{Mantissa: int64(f * mult), Scale: scale}}
}
