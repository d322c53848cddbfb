package stdlib

import (
	"context"
	"testing"

	"github.com/kestrel-run/kestrel/ast"
	"github.com/kestrel-run/kestrel/runtime"
	"github.com/kestrel-run/kestrel/values"
)

func newSandbox(t *testing.T) *runtime.Sandbox {
	t.Helper()
	sb, err := runtime.New(runtime.Config{})
	if err != nil {
		t.Fatalf("runtime.New: %v", err)
	}
	t.Cleanup(func() { sb.Close() })
	Register(sb)
	return sb
}

func TestConsoleWriteLineCapturesOutput(t *testing.T) {
	sb := newSandbox(t)

	tree := &ast.Node{Kind: ast.Block, Children: []*ast.Node{
		{Kind: ast.Call, Name: "Console.WriteLine", Args: []*ast.Node{
			{Kind: ast.Literal, LitValue: "hello"},
		}},
	}}

	res, err := sb.Interpret(context.Background(), tree)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if res.Output != "hello\n" {
		t.Fatalf("output = %q, want %q", res.Output, "hello\n")
	}
}

func TestJsonSerializeRoundTripsThroughDeserialize(t *testing.T) {
	sb := newSandbox(t)

	tree := &ast.Node{Kind: ast.Block, Children: []*ast.Node{
		{Kind: ast.Call, Name: "Json.Deserialize", Args: []*ast.Node{
			{Kind: ast.Call, Name: "Json.Serialize", Args: []*ast.Node{
				{Kind: ast.Literal, LitValue: int64(42)},
			}},
		}},
	}}

	res, err := sb.Interpret(context.Background(), tree)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if res.Value.AsInt64() != 42 {
		t.Fatalf("round-tripped value = %d, want 42", res.Value.AsInt64())
	}
}

func TestAddResolvesLongOverload(t *testing.T) {
	sb := newSandbox(t)

	tree := &ast.Node{Kind: ast.Block, Children: []*ast.Node{
		{Kind: ast.Call, Name: "Add", Args: []*ast.Node{
			{Kind: ast.Literal, LitValue: int64(2)},
			{Kind: ast.Literal, LitValue: int64(3)},
		}},
	}}

	res, err := sb.Interpret(context.Background(), tree)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if res.Value.Kind != values.Long || res.Value.AsInt64() != 5 {
		t.Fatalf("result = %+v, want Long 5", res.Value)
	}
}

func TestAddResolvesDoubleOverload(t *testing.T) {
	sb := newSandbox(t)

	tree := &ast.Node{Kind: ast.Block, Children: []*ast.Node{
		{Kind: ast.Call, Name: "Add", Args: []*ast.Node{
			{Kind: ast.Literal, LitValue: 1.5},
			{Kind: ast.Literal, LitValue: 2.5},
		}},
	}}

	res, err := sb.Interpret(context.Background(), tree)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if res.Value.Kind != values.Double || res.Value.AsFloat64() != 4.0 {
		t.Fatalf("result = %+v, want Double 4.0", res.Value)
	}
}

func TestResourceOpenLabelCloseRoundTrips(t *testing.T) {
	sb := newSandbox(t)

	// A variable declared inside one tree goes out of scope when that
	// Interpret call ends, so the handle is carried across calls as a
	// Sandbox global.
	openTree := &ast.Node{Kind: ast.Block, Children: []*ast.Node{
		{Kind: ast.Call, Name: "Resource.Open", Args: []*ast.Node{
			{Kind: ast.Literal, LitValue: "a log file"},
		}},
	}}
	res, err := sb.Interpret(context.Background(), openTree)
	if err != nil {
		t.Fatalf("Interpret(open): %v", err)
	}
	if err := sb.Declare("h", values.Long, res.Value); err != nil {
		t.Fatalf("Declare: %v", err)
	}

	tree := &ast.Node{Kind: ast.Block, Children: []*ast.Node{
		{Kind: ast.Call, Name: "Resource.Label", Args: []*ast.Node{
			{Kind: ast.VariableRef, Name: "h"},
		}},
	}}

	res, err = sb.Interpret(context.Background(), tree)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if got := sb.Heap().ReadString(uint32(res.Value.Ptr)); got != "a log file" {
		t.Fatalf("Resource.Label = %q, want %q", got, "a log file")
	}

	closeTree := &ast.Node{Kind: ast.Block, Children: []*ast.Node{
		{Kind: ast.Call, Name: "Resource.Close", Args: []*ast.Node{
			{Kind: ast.VariableRef, Name: "h"},
		}},
	}}
	res, err = sb.Interpret(context.Background(), closeTree)
	if err != nil {
		t.Fatalf("Interpret(close): %v", err)
	}
	if !res.Value.B {
		t.Fatal("expected Resource.Close to report true for a live handle")
	}

	relookupTree := &ast.Node{Kind: ast.Block, Children: []*ast.Node{
		{Kind: ast.Call, Name: "Resource.Label", Args: []*ast.Node{
			{Kind: ast.VariableRef, Name: "h"},
		}},
	}}
	if _, err := sb.Interpret(context.Background(), relookupTree); err == nil {
		t.Fatal("expected Resource.Label to error after the handle was released")
	}
}

func TestInvokeByAttributeCallsTaggedDiagnosticsHook(t *testing.T) {
	sb := newSandbox(t)

	v, ok, err := sb.InvokeByAttribute("Hook", []string{"ready"}, []values.Value{
		values.RefValue(values.String, values.NullPtr),
	})
	if err != nil {
		t.Fatalf("InvokeByAttribute: %v", err)
	}
	if !ok {
		t.Fatal("expected a registered candidate tagged Hook(\"ready\")")
	}
	_ = v
}

func TestInvokeByAttributeNoMatchReturnsFalse(t *testing.T) {
	sb := newSandbox(t)

	_, ok, err := sb.InvokeByAttribute("Hook", []string{"nonexistent"}, nil)
	if err != nil {
		t.Fatalf("InvokeByAttribute: %v", err)
	}
	if ok {
		t.Fatal("expected no match for an unregistered attribute")
	}
}
