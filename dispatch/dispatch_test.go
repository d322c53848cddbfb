package dispatch

import (
	"testing"

	"github.com/kestrel-run/kestrel/ast"
	"github.com/kestrel-run/kestrel/values"
)

func nativeCandidate(name string, params ...Param) *Candidate {
	return &Candidate{
		Name:        name,
		Params:      params,
		ReturnKind:  values.Object,
		ParamsIndex: -1,
		Native: func(args []values.Value) (values.Value, error) {
			return values.Value{}, nil
		},
	}
}

func TestResolveExactMatchBeatsConvertible(t *testing.T) {
	exact := nativeCandidate("f", Param{Name: "x", Kind: values.Long})
	convertible := nativeCandidate("f", Param{Name: "x", Kind: values.Double})

	got, _, err := Resolve([]*Candidate{convertible, exact}, []Arg{{Value: values.LongValue(3)}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != exact {
		t.Fatal("expected the exact-Long overload to win over the Double-convertible one")
	}
}

func TestResolveRejectsMissingRequiredArgument(t *testing.T) {
	c := nativeCandidate("f", Param{Name: "x", Kind: values.Long}, Param{Name: "y", Kind: values.Long})
	_, _, err := Resolve([]*Candidate{c}, []Arg{{Value: values.LongValue(1)}})
	if err == nil {
		t.Fatal("expected an error when a required parameter has no argument")
	}
}

func TestResolveUsesDefaultForOmittedParam(t *testing.T) {
	c := nativeCandidate("f",
		Param{Name: "x", Kind: values.Long},
		Param{Name: "y", Kind: values.Long, HasDefault: true, Default: values.LongValue(42)},
	)
	_, bound, err := Resolve([]*Candidate{c}, []Arg{{Value: values.LongValue(1)}})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if bound[1].AsInt64() != 42 {
		t.Fatalf("expected default 42 for omitted y, got %d", bound[1].AsInt64())
	}
}

func TestResolveNamedArgumentBindsByName(t *testing.T) {
	c := nativeCandidate("f", Param{Name: "x", Kind: values.Long}, Param{Name: "y", Kind: values.Long})
	_, bound, err := Resolve([]*Candidate{c}, []Arg{
		{Name: "y", Value: values.LongValue(2)},
		{Name: "x", Value: values.LongValue(1)},
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if bound[0].AsInt64() != 1 || bound[1].AsInt64() != 2 {
		t.Fatalf("bound = %v, %v; want 1, 2", bound[0].AsInt64(), bound[1].AsInt64())
	}
}

func TestResolveTieBreaksOnFewerObjectParams(t *testing.T) {
	// Both candidates score 3 overall (one exact match vs. three
	// Object-target matches), so the tie-break must fall to nObj.
	exactSingle := nativeCandidate("f", Param{Name: "x", Kind: values.Long})
	threeObjects := nativeCandidate("f",
		Param{Name: "a", Kind: values.Object},
		Param{Name: "b", Kind: values.Object},
		Param{Name: "c", Kind: values.Object},
	)

	args := []Arg{{Value: values.LongValue(1)}, {Value: values.LongValue(2)}, {Value: values.LongValue(3)}}
	got, _, err := Resolve([]*Candidate{threeObjects, exactSingle}, args)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != exactSingle {
		t.Fatal("expected the overload with fewer Object parameters to win the tie")
	}
}

func TestResolveNoViableOverloadErrors(t *testing.T) {
	c := nativeCandidate("f", Param{Name: "x", Kind: values.Long}, Param{Name: "y", Kind: values.Long})
	_, _, err := Resolve([]*Candidate{c}, []Arg{
		{Name: "z", Value: values.LongValue(1)},
	})
	if err == nil {
		t.Fatal("expected an error for an unknown named argument")
	}
}

func TestRegistryDefineAndLookupBindingAtRoot(t *testing.T) {
	r := NewRegistry()
	c := nativeCandidate("greet")
	r.Define("", c)

	b, err := r.LookupBinding("greet")
	if err != nil {
		t.Fatalf("LookupBinding: %v", err)
	}
	if len(b.Candidates) != 1 || b.Candidates[0] != c {
		t.Fatalf("unexpected binding: %+v", b)
	}
}

func TestRegistryLookupBindingUndeclaredErrors(t *testing.T) {
	r := NewRegistry()
	if _, err := r.LookupBinding("nope"); err == nil {
		t.Fatal("expected an error looking up an undeclared name")
	}
}

func TestRegistryAmbientNamespaceResolvesUpward(t *testing.T) {
	r := NewRegistry()
	c := nativeCandidate("helper")
	r.Define("app", c)

	r.PushAmbient("app")
	r.PushAmbient("math")
	defer func() { r.PopAmbient(); r.PopAmbient() }()

	b, err := r.LookupBinding("helper")
	if err != nil {
		t.Fatalf("LookupBinding: %v", err)
	}
	if b.Candidates[0] != c {
		t.Fatal("expected ambient-ancestor lookup to find app.helper from within app.math")
	}
}

func TestRegistryImportResolvesFunction(t *testing.T) {
	r := NewRegistry()
	c := nativeCandidate("helper")
	r.Define("lib.util", c)
	r.AddImport("lib.util")

	b, err := r.LookupBinding("helper")
	if err != nil {
		t.Fatalf("LookupBinding: %v", err)
	}
	if b.Candidates[0] != c {
		t.Fatal("expected the imported namespace to resolve helper")
	}
}

func TestRegistryInvokeByAttributeMatchesArgsAndSignature(t *testing.T) {
	r := NewRegistry()
	c := &Candidate{
		Name:        "onStartup",
		Params:      []Param{{Name: "x", Kind: values.Long}},
		ParamsIndex: -1,
		Attributes:  []ast.Attribute{{Name: "Hook", Args: []any{"startup"}}},
		Native: func(args []values.Value) (values.Value, error) {
			return values.Value{}, nil
		},
	}
	r.Define("", c)

	found, attrArgs := r.InvokeByAttribute("Hook", []string{"startup"}, []Arg{{Value: values.LongValue(1)}})
	if found != c {
		t.Fatal("expected InvokeByAttribute to find the tagged candidate")
	}
	if len(attrArgs) != 1 || attrArgs[0] != "startup" {
		t.Fatalf("unexpected attribute args: %v", attrArgs)
	}
}

func TestRegistryInvokeByAttributeNoMatchReturnsNil(t *testing.T) {
	r := NewRegistry()
	found, _ := r.InvokeByAttribute("Hook", []string{"startup"}, nil)
	if found != nil {
		t.Fatal("expected no match when nothing is registered")
	}
}

func TestNamespaceInstanceCreatesAndReusesChild(t *testing.T) {
	root := NewNamespace()
	child := root.Instance("collections")
	c := nativeCandidate("size")
	child.Define(c)

	again := root.Instance("collections")
	if again != child {
		t.Fatal("expected Instance to return the same child on repeated calls")
	}
	b := again.Func("size")
	if b == nil || b.Candidates[0] != c {
		t.Fatal("expected size to resolve within the reused child namespace")
	}
	if got := child.FullPath(); got != "collections" {
		t.Fatalf("FullPath() = %q, want %q", got, "collections")
	}
}

func TestNamespaceChildReturnsNilWhenAbsent(t *testing.T) {
	root := NewNamespace()
	if root.Child("missing") != nil {
		t.Fatal("expected Child to return nil for an undefined child")
	}
}
