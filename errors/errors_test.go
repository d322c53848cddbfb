package errors

import (
	"errors"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseEval,
				Kind:   KindTypeMismatch,
				Path:   []string{"user", "address", "zip"},
				Detail: "cannot convert",
			},
			contains: []string{"[eval]", "type_mismatch", "user.address.zip", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseHeap,
				Kind:  KindSandboxViolation,
			},
			contains: []string{"[heap]", "sandbox_violation"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseRuntime,
				Kind:   KindOutOfMemory,
				Detail: "heap full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[runtime]", "out_of_memory", "heap full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !containsSubstring(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseEval,
		Kind:  KindDomainError,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseEval,
		Kind:  KindTypeMismatch,
		Path:  []string{"foo"},
	}

	if !err.Is(&Error{Phase: PhaseEval, Kind: KindTypeMismatch}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseHeap, Kind: KindTypeMismatch}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseEval, Kind: KindNoMatch}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseEval, Kind: KindTypeMismatch}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestError_Fatal(t *testing.T) {
	fatal := []Kind{KindCancelled, KindOutOfMemory, KindStackOverflow}
	for _, k := range fatal {
		if !(&Error{Kind: k}).Fatal() {
			t.Errorf("%s should be fatal", k)
		}
	}

	notFatal := []Kind{KindTypeMismatch, KindDomainError, KindNoMatch, KindNameError}
	for _, k := range notFatal {
		if (&Error{Kind: k}).Fatal() {
			t.Errorf("%s should not be fatal", k)
		}
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseEval, KindTypeMismatch).
		Path("user", "name").
		Value(42).
		Cause(cause).
		Detail("expected %s, got %s", "String", "Int").
		Build()

	if err.Phase != PhaseEval {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseEval)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "user" || err.Path[1] != "name" {
		t.Errorf("Path = %v, want [user name]", err.Path)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected String, got Int" {
		t.Errorf("Detail = %v, want 'expected String, got Int'", err.Detail)
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(PhaseEval, []string{"field"}, "cannot convert %s to %s", "Int", "String")
		if err.Kind != KindTypeMismatch {
			t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
		}
	})

	t.Run("ResourceExhausted", func(t *testing.T) {
		err := ResourceExhausted(PhaseScope, "scope count", 1024)
		if err.Kind != KindResourceExhaust {
			t.Errorf("Kind = %v, want %v", err.Kind, KindResourceExhaust)
		}
		if !containsSubstring(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain limit", err.Detail)
		}
	})

	t.Run("OutOfMemory", func(t *testing.T) {
		err := OutOfMemory(PhaseAlloc, 1024, 8)
		if err.Kind != KindOutOfMemory {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOutOfMemory)
		}
		if !containsSubstring(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseHeap, []string{"list"}, 10, 5)
		if err.Kind != KindSandboxViolation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindSandboxViolation)
		}
		if err.Value != 10 {
			t.Errorf("Value = %v, want 10", err.Value)
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseValue, []string{"val"}, 300, "Byte")
		if err.Kind != KindOverflow {
			t.Errorf("Kind = %v, want %v", err.Kind, KindOverflow)
		}
		if err.Value != 300 {
			t.Errorf("Value = %v, want 300", err.Value)
		}
	})

	t.Run("NameError", func(t *testing.T) {
		err := NameError(PhaseScope, "x", "undeclared variable")
		if err.Kind != KindNameError {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNameError)
		}
	})

	t.Run("NativeFailure", func(t *testing.T) {
		cause := errors.New("panic: boom")
		err := NativeFailure("Console.WriteLine", cause, []string{"frame1", "frame2"})
		if err.Kind != KindNativeFailure {
			t.Errorf("Kind = %v, want %v", err.Kind, KindNativeFailure)
		}
		if !containsSubstring(err.Detail, "frame1") {
			t.Errorf("Detail = %v, should contain frame excerpt", err.Detail)
		}
	})
}

func containsSubstring(s, substr string) bool {
	if substr == "" {
		return true
	}
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
