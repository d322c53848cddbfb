package runtime

import (
	"context"
	"testing"

	"github.com/kestrel-run/kestrel/ast"
	"github.com/kestrel-run/kestrel/dispatch"
	"github.com/kestrel-run/kestrel/values"
)

func lit(v int64) *ast.Node { return &ast.Node{Kind: ast.Literal, LitValue: v} }

func TestInterpretEvaluatesLiteralExpression(t *testing.T) {
	sb, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sb.Close()

	tree := &ast.Node{Kind: ast.Block, Children: []*ast.Node{
		{Kind: ast.BinOp, Op: "+", Children: []*ast.Node{lit(2), lit(3)}},
	}}

	res, err := sb.Interpret(context.Background(), tree)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if res.Value.AsInt64() != 5 {
		t.Fatalf("result = %d, want 5", res.Value.AsInt64())
	}
}

func TestDeclareGlobalVisibleAcrossInterpretCalls(t *testing.T) {
	sb, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sb.Close()

	if err := sb.Declare("counter", values.Long, values.LongValue(41)); err != nil {
		t.Fatalf("Declare: %v", err)
	}

	tree := &ast.Node{Kind: ast.Block, Children: []*ast.Node{
		{Kind: ast.BinOp, Op: "+", Children: []*ast.Node{
			{Kind: ast.VariableRef, Name: "counter"},
			lit(1),
		}},
	}}

	res, err := sb.Interpret(context.Background(), tree)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if res.Value.AsInt64() != 42 {
		t.Fatalf("result = %d, want 42", res.Value.AsInt64())
	}
}

func TestRegisterNativeIsCallableFromInterpret(t *testing.T) {
	sb, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sb.Close()

	sb.RegisterNative("double", []dispatch.Param{{Name: "x", Kind: values.Long}}, values.Long,
		func(args []values.Value) (values.Value, error) {
			return values.LongValue(args[0].AsInt64() * 2), nil
		})

	tree := &ast.Node{Kind: ast.Block, Children: []*ast.Node{
		{Kind: ast.Call, Name: "double", Args: []*ast.Node{lit(21)}},
	}}

	res, err := sb.Interpret(context.Background(), tree)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if res.Value.AsInt64() != 42 {
		t.Fatalf("result = %d, want 42", res.Value.AsInt64())
	}
}

func TestUsedHeapBytesGrowsAfterStringAllocation(t *testing.T) {
	sb, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sb.Close()

	before, cap1 := sb.UsedHeapBytes()

	tree := &ast.Node{Kind: ast.Block, Children: []*ast.Node{
		{Kind: ast.Literal, LitValue: "hello"},
	}}
	if _, err := sb.Interpret(context.Background(), tree); err != nil {
		t.Fatalf("Interpret: %v", err)
	}

	after, cap2 := sb.UsedHeapBytes()
	if cap1 != cap2 {
		t.Fatalf("capacity changed: %d -> %d", cap1, cap2)
	}
	if after <= before {
		t.Fatalf("expected heap usage to grow after a string allocation: before=%d after=%d", before, after)
	}
}

func TestInterpretOnClosedSandboxErrors(t *testing.T) {
	sb, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sb.Close()

	if _, err := sb.Interpret(context.Background(), lit(1)); err == nil {
		t.Fatal("expected an error interpreting against a closed sandbox")
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	sb, err := New(Config{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := sb.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := sb.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
