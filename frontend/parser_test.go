package frontend

import (
	"context"
	"testing"

	"github.com/kestrel-run/kestrel/runtime"
)

func TestParseAndInterpretArithmeticExpression(t *testing.T) {
	tree, err := Parse("2 + 3 * 4;")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	sb, err := runtime.New(runtime.Config{})
	if err != nil {
		t.Fatalf("runtime.New: %v", err)
	}
	defer sb.Close()

	res, err := sb.Interpret(context.Background(), tree)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if res.Value.AsInt64() != 14 {
		t.Fatalf("result = %d, want 14", res.Value.AsInt64())
	}
}

func TestParseVarDeclAndWhileLoop(t *testing.T) {
	src := `
		var long total = 0;
		var long i = 0;
		while (i < 5) {
			total = total + i;
			i = i + 1;
		}
		total;
	`
	tree, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	sb, err := runtime.New(runtime.Config{})
	if err != nil {
		t.Fatalf("runtime.New: %v", err)
	}
	defer sb.Close()

	res, err := sb.Interpret(context.Background(), tree)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if res.Value.AsInt64() != 10 {
		t.Fatalf("result = %d, want 10", res.Value.AsInt64())
	}
}

func TestParseFunctionDeclarationAndCall(t *testing.T) {
	src := `
		func long square(long x) {
			return x * x;
		}
		square(6);
	`
	tree, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	sb, err := runtime.New(runtime.Config{})
	if err != nil {
		t.Fatalf("runtime.New: %v", err)
	}
	defer sb.Close()

	res, err := sb.Interpret(context.Background(), tree)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if res.Value.AsInt64() != 36 {
		t.Fatalf("result = %d, want 36", res.Value.AsInt64())
	}
}

func TestParseIfElseBranchesCorrectly(t *testing.T) {
	src := `
		var long x = 7;
		var long result = 0;
		if (x > 5) {
			result = 1;
		} else {
			result = 2;
		}
		result;
	`
	tree, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	sb, err := runtime.New(runtime.Config{})
	if err != nil {
		t.Fatalf("runtime.New: %v", err)
	}
	defer sb.Close()

	res, err := sb.Interpret(context.Background(), tree)
	if err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	if res.Value.AsInt64() != 1 {
		t.Fatalf("result = %d, want 1", res.Value.AsInt64())
	}
}

func TestParseRejectsUnterminatedStringLiteral(t *testing.T) {
	if _, err := Parse(`var string s = "unterminated;`); err == nil {
		t.Fatal("expected a lexer error for an unterminated string literal")
	}
}

func TestParseRejectsMissingSemicolon(t *testing.T) {
	if _, err := Parse(`var long x = 1`); err == nil {
		t.Fatal("expected a parse error for a missing semicolon")
	}
}
