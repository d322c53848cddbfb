package eval

import (
	"bytes"

	"github.com/kestrel-run/kestrel/ast"
	"github.com/kestrel-run/kestrel/dispatch"
	sberrors "github.com/kestrel-run/kestrel/errors"
	"github.com/kestrel-run/kestrel/heap"
	"github.com/kestrel-run/kestrel/values"
)

const maxOutputBytes = 4000

// Evaluator walks an AST tree against a heap Manager and a dispatch
// Registry, threading a Meter through every step and accumulating the
// program's captured output (spec §4.8, §6 "interpret").
type Evaluator struct {
	Heap     *heap.Manager
	Registry *dispatch.Registry
	Meter    *Meter

	output bytes.Buffer
	state  State

	types        map[string]uint32   // struct/class name -> signature block pointer
	structFields map[string][]string // struct/class name -> declared field order
	enums        map[string]map[string]values.Value
	closures     map[int64]*closure
	nextClosure  int64
}

// closure is a Lambda's captured body plus parameter names; stored
// out-of-band and referenced from a Value via a synthetic Object
// pointer, since the tagged Value has no slot for a Go-side body.
type closure struct {
	body       *ast.Node
	paramNames []string
}

// State is the evaluator's externally observable execution state (spec
// §4.10 "State Machine of Execution").
type State uint8

const (
	StateRunning State = iota
	StateSignaling
	StateFailed
	StateCompleted
)

// New builds an Evaluator over an already-wired heap Manager and
// dispatch Registry.
func New(h *heap.Manager, r *dispatch.Registry, m *Meter) *Evaluator {
	return &Evaluator{
		Heap:         h,
		Registry:     r,
		Meter:        m,
		types:        make(map[string]uint32),
		structFields: make(map[string][]string),
		enums:        make(map[string]map[string]values.Value),
		closures:     make(map[int64]*closure),
	}
}

// Output returns the captured program output, truncated to 4000 bytes
// (spec §6 "interpret ... returns captured output (capped at 4 000
// bytes)").
func (e *Evaluator) Output() string {
	s := e.output.String()
	if len(s) > maxOutputBytes {
		return s[:maxOutputBytes]
	}
	return s
}

// Print appends to the captured output buffer, silently dropping bytes
// past the cap rather than growing it unbounded.
func (e *Evaluator) Print(s string) {
	if e.output.Len() >= maxOutputBytes {
		return
	}
	e.output.WriteString(s)
}

// State reports the evaluator's current three-state execution phase.
func (e *Evaluator) State() State { return e.state }

// Eval dispatches on n.Kind over the closed node set (spec §4.8).
func (e *Evaluator) Eval(n *ast.Node) (values.Value, Signal, error) {
	if err := e.Meter.Check(); err != nil {
		e.state = StateFailed
		return values.Value{}, Signal{}, err
	}

	switch n.Kind {
	case ast.Literal:
		return e.evalLiteral(n)
	case ast.VariableRef:
		return e.evalVariableRef(n)
	case ast.VariableDecl:
		return e.evalVariableDecl(n)
	case ast.UnaryOp:
		return e.evalUnaryOp(n)
	case ast.BinOp:
		return e.evalBinOp(n)
	case ast.Conditional:
		return e.evalConditional(n)
	case ast.ArrayIndex:
		return e.evalArrayIndex(n)
	case ast.ArrayLiteral, ast.CollectionExpr:
		return e.evalArrayLiteral(n)
	case ast.TupleLiteral:
		return e.evalTupleLiteral(n)
	case ast.NewArray:
		return e.evalNewArray(n)
	case ast.NewDictionary:
		return e.evalNewDictionary(n)
	case ast.NewStruct:
		return e.evalNewStruct(n)
	case ast.FieldAccess:
		return e.evalFieldAccess(n)
	case ast.PatternMatch:
		return e.evalPatternMatchExpr(n)
	case ast.Lambda:
		return e.evalLambda(n)
	case ast.EnumDecl:
		return e.evalEnumDecl(n)
	case ast.StructDecl, ast.ClassDecl:
		return e.evalStructOrClassDecl(n)
	case ast.InterfaceDecl:
		return values.Value{}, Signal{}, nil // purely structural, no runtime layout
	case ast.Goto:
		return values.Value{}, Signal{Kind: SigGoto, Label: n.Label}, nil
	case ast.Label:
		return e.evalLabel(n)
	case ast.Cast:
		return e.evalCast(n)
	case ast.As:
		return e.evalAs(n)
	case ast.Assign:
		return e.evalAssign(n)
	case ast.CompoundAssign:
		return e.evalCompoundAssign(n)
	case ast.If:
		return e.evalIf(n)
	case ast.While:
		return e.evalWhile(n)
	case ast.DoWhile:
		return e.evalDoWhile(n)
	case ast.For:
		return e.evalFor(n)
	case ast.Foreach:
		return e.evalForeach(n)
	case ast.Switch:
		return e.evalSwitch(n)
	case ast.SwitchExpr:
		return e.evalSwitchExpr(n)
	case ast.TryCatchFinally:
		return e.evalTry(n)
	case ast.Throw:
		return e.evalThrow(n)
	case ast.Return:
		return e.evalReturn(n)
	case ast.Break:
		return values.Value{}, Signal{Kind: SigBreak}, nil
	case ast.Continue:
		return values.Value{}, Signal{Kind: SigContinue}, nil
	case ast.GotoCase:
		return e.evalGotoCase(n)
	case ast.Block, ast.StatementList:
		return e.evalBlock(n)
	case ast.FunctionDecl:
		return e.evalFunctionDecl(n)
	case ast.Call:
		return e.evalCall(n)
	case ast.NamespaceDecl:
		return e.evalNamespace(n)
	case ast.Using:
		return e.evalUsing(n)
	default:
		return values.Value{}, Signal{}, sberrors.New(sberrors.PhaseEval, sberrors.KindNameError).
			Detail("unsupported node kind %d", n.Kind).Build()
	}
}

func (e *Evaluator) evalLiteral(n *ast.Node) (values.Value, Signal, error) {
	switch lit := n.LitValue.(type) {
	case int32:
		return values.IntValue(lit), Signal{}, nil
	case int64:
		return values.LongValue(lit), Signal{}, nil
	case float64:
		return values.DoubleValue(lit), Signal{}, nil
	case bool:
		return values.BoolValue(lit), Signal{}, nil
	case string:
		ptr, err := e.Heap.NewString(lit)
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		return values.RefValue(values.String, values.Ptr(ptr)), Signal{}, nil
	case rune:
		return values.CharValue(lit), Signal{}, nil
	default:
		return values.Value{Kind: n.LitKind}, Signal{}, nil
	}
}

func (e *Evaluator) evalVariableRef(n *ast.Node) (values.Value, Signal, error) {
	v, ok := e.Heap.Scope.Lookup(n.Name)
	if !ok {
		return values.Value{}, Signal{}, sberrors.NameError(sberrors.PhaseEval, n.Name, "undeclared variable")
	}
	return e.Heap.ReadVariableValue(v.Address, v.Kind), Signal{}, nil
}

func (e *Evaluator) evalVariableDecl(n *ast.Node) (values.Value, Signal, error) {
	var val values.Value
	var err error
	if len(n.Children) > 0 {
		val, _, err = e.Eval(n.Children[0])
		if err != nil {
			return values.Value{}, Signal{}, err
		}
	} else {
		val = zeroValue(n.DeclKind)
	}

	addr, err := e.Heap.Scope.StackAlloc(n.DeclKind)
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	if err := e.Heap.Scope.Declare(n.Name, n.DeclKind, addr, values.Size(n.DeclKind)); err != nil {
		return values.Value{}, Signal{}, err
	}
	e.Heap.WriteVariableValue(addr, n.DeclKind, val)
	return val, Signal{}, nil
}

func zeroValue(k values.Kind) values.Value {
	if values.IsReferenceKind(k) {
		return values.RefValue(k, values.NullPtr)
	}
	return values.Value{Kind: k}
}

func (e *Evaluator) evalBlock(n *ast.Node) (values.Value, Signal, error) {
	if err := e.Heap.Scope.Enter(); err != nil {
		return values.Value{}, Signal{}, err
	}
	defer func() {
		e.Heap.Scope.Exit()
		e.Heap.CollectScope()
	}()

	// Hoisting: declarations run before other statements (spec §4.8
	// "Hoisting").
	var decls, rest []*ast.Node
	for _, child := range n.Children {
		if child.Kind == ast.FunctionDecl || child.Kind == ast.EnumDecl ||
			child.Kind == ast.StructDecl || child.Kind == ast.InterfaceDecl || child.Kind == ast.ClassDecl {
			decls = append(decls, child)
		} else {
			rest = append(rest, child)
		}
	}

	for _, d := range decls {
		if _, _, err := e.Eval(d); err != nil {
			return values.Value{}, Signal{}, err
		}
	}
	var last values.Value
	i := 0
	for i < len(rest) {
		v, sig, err := e.Eval(rest[i])
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		if sig.Kind == SigGoto {
			if target := findLabel(rest, sig.Label); target >= 0 {
				i = target
				continue
			}
			return v, sig, nil // unresolved here, propagate to an enclosing block
		}
		if sig.Kind != SigNone {
			return v, sig, nil
		}
		last = v
		i++
	}
	return last, Signal{}, nil
}

func findLabel(stmts []*ast.Node, label string) int {
	for i, s := range stmts {
		if s.Kind == ast.Label && s.Label == label {
			return i
		}
	}
	return -1
}

func (e *Evaluator) evalConditional(n *ast.Node) (values.Value, Signal, error) {
	cond, _, err := e.Eval(n.Children[0])
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	if cond.B {
		return e.Eval(n.Children[1])
	}
	return e.Eval(n.Children[2])
}

func (e *Evaluator) evalIf(n *ast.Node) (values.Value, Signal, error) {
	cond, _, err := e.Eval(n.Children[0])
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	if cond.B {
		return e.Eval(n.Children[1])
	}
	if len(n.Children) > 2 {
		return e.Eval(n.Children[2])
	}
	return values.Value{}, Signal{}, nil
}

func (e *Evaluator) evalWhile(n *ast.Node) (values.Value, Signal, error) {
	for {
		if err := e.Meter.Check(); err != nil {
			return values.Value{}, Signal{}, err
		}
		cond, _, err := e.Eval(n.Children[0])
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		if !cond.B {
			return values.Value{}, Signal{}, nil
		}
		_, sig, err := e.Eval(n.Children[1])
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		if sig.Kind == SigBreak {
			return values.Value{}, Signal{}, nil
		}
		if sig.Kind == SigReturn {
			return values.Value{}, sig, nil
		}
	}
}

func (e *Evaluator) evalDoWhile(n *ast.Node) (values.Value, Signal, error) {
	for {
		if err := e.Meter.Check(); err != nil {
			return values.Value{}, Signal{}, err
		}
		_, sig, err := e.Eval(n.Children[1])
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		if sig.Kind == SigBreak {
			return values.Value{}, Signal{}, nil
		}
		if sig.Kind == SigReturn {
			return values.Value{}, sig, nil
		}
		cond, _, err := e.Eval(n.Children[0])
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		if !cond.B {
			return values.Value{}, Signal{}, nil
		}
	}
}

func (e *Evaluator) evalFor(n *ast.Node) (values.Value, Signal, error) {
	// Children: init, cond, post, body
	if err := e.Heap.Scope.Enter(); err != nil {
		return values.Value{}, Signal{}, err
	}
	defer func() {
		e.Heap.Scope.Exit()
		e.Heap.CollectScope()
	}()

	if n.Children[0] != nil {
		if _, _, err := e.Eval(n.Children[0]); err != nil {
			return values.Value{}, Signal{}, err
		}
	}
	for {
		if err := e.Meter.Check(); err != nil {
			return values.Value{}, Signal{}, err
		}
		if n.Children[1] != nil {
			cond, _, err := e.Eval(n.Children[1])
			if err != nil {
				return values.Value{}, Signal{}, err
			}
			if !cond.B {
				break
			}
		}
		_, sig, err := e.Eval(n.Children[3])
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		if sig.Kind == SigBreak {
			break
		}
		if sig.Kind == SigReturn {
			return values.Value{}, sig, nil
		}
		if n.Children[2] != nil {
			if _, _, err := e.Eval(n.Children[2]); err != nil {
				return values.Value{}, Signal{}, err
			}
		}
	}
	return values.Value{}, Signal{}, nil
}

func (e *Evaluator) evalForeach(n *ast.Node) (values.Value, Signal, error) {
	coll, _, err := e.Eval(n.Children[0])
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	if coll.Kind != values.Array {
		return values.Value{}, Signal{}, sberrors.TypeMismatch(sberrors.PhaseEval, nil, "foreach requires an array, got %s", coll.Kind)
	}
	length := e.Heap.ArrayLen(uint32(coll.Ptr))

	for i := 0; i < length; i++ {
		if err := e.Meter.Check(); err != nil {
			return values.Value{}, Signal{}, err
		}
		item, err := e.Heap.ArrayGet(uint32(coll.Ptr), i)
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		if err := e.Heap.Scope.Enter(); err != nil {
			return values.Value{}, Signal{}, err
		}
		addr, err := e.Heap.Scope.StackAlloc(item.Kind)
		if err == nil {
			e.Heap.Scope.Declare(n.Name, item.Kind, addr, values.Size(item.Kind))
			e.Heap.WriteVariableValue(addr, item.Kind, item)
		}
		_, sig, evalErr := e.Eval(n.Children[1])
		e.Heap.Scope.Exit()
		e.Heap.CollectScope()
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		if evalErr != nil {
			return values.Value{}, Signal{}, evalErr
		}
		if sig.Kind == SigBreak {
			break
		}
		if sig.Kind == SigReturn {
			return values.Value{}, sig, nil
		}
	}
	return values.Value{}, Signal{}, nil
}

func (e *Evaluator) evalReturn(n *ast.Node) (values.Value, Signal, error) {
	var v values.Value
	if len(n.Children) > 0 {
		var err error
		v, _, err = e.Eval(n.Children[0])
		if err != nil {
			return values.Value{}, Signal{}, err
		}
	}
	sig := Signal{Kind: SigReturn, Value: v}
	if values.IsReferenceKind(v.Kind) && int32(v.Ptr) > 0 {
		sig.PinKey = e.Heap.Pin(uint32(v.Ptr))
		sig.HasPin = true
	}
	return v, sig, nil
}

func (e *Evaluator) evalThrow(n *ast.Node) (values.Value, Signal, error) {
	v, _, err := e.Eval(n.Children[0])
	if err != nil {
		return values.Value{}, Signal{}, err
	}
	return values.Value{}, Signal{}, sberrors.New(sberrors.PhaseEval, sberrors.KindDomainError).
		Value(v).Detail("user-thrown exception").Build()
}

func (e *Evaluator) evalTry(n *ast.Node) (values.Value, Signal, error) {
	// Children: try-block, [catch-block ...optional], finally-block(optional, may be nil marker)
	v, sig, err := e.Eval(n.Children[0])
	if err != nil {
		if se, ok := err.(*sberrors.Error); ok && se.Fatal() {
			return values.Value{}, Signal{}, err // fatal kinds always propagate (spec §7)
		}
		if len(n.Children) > 1 && n.Children[1] != nil {
			v, sig, err = e.Eval(n.Children[1])
		}
	}
	if len(n.Children) > 2 && n.Children[2] != nil {
		if _, _, ferr := e.Eval(n.Children[2]); ferr != nil {
			return values.Value{}, Signal{}, ferr
		}
	}
	return v, sig, err
}

func (e *Evaluator) evalGotoCase(n *ast.Node) (values.Value, Signal, error) {
	return values.Value{}, Signal{Kind: SigGotoCase, Label: n.Label}, nil
}

func (e *Evaluator) evalNamespace(n *ast.Node) (values.Value, Signal, error) {
	e.Registry.PushAmbient(n.Name)
	defer e.Registry.PopAmbient()
	return e.evalBlock(n)
}

func (e *Evaluator) evalUsing(n *ast.Node) (values.Value, Signal, error) {
	if n.Name != "" && len(n.Children) == 0 {
		// `using Namespace;` import form.
		e.Registry.AddImport(n.Name)
		return values.Value{}, Signal{}, nil
	}

	// Scoped acquisition form: using (var x = expr) { body }. The
	// acquisition's VariableDecl child binds the resource; disposal of
	// a native handle bound to it is the host callback's own
	// responsibility (the sandbox has no visibility into what a
	// host-returned Object wraps).
	if _, _, err := e.Eval(n.Children[0]); err != nil {
		return values.Value{}, Signal{}, err
	}
	return e.Eval(n.Children[1])
}
