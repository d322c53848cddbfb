package scope

import (
	"testing"

	"github.com/kestrel-run/kestrel/arena"
	"github.com/kestrel-run/kestrel/values"
)

func newTestStack(t *testing.T) *Stack {
	t.Helper()
	a := arena.New(1024, 4096)
	return New(a)
}

func TestDeclareOutsideScopeFails(t *testing.T) {
	s := newTestStack(t)
	if err := s.Declare("x", values.Long, 0, values.Size(values.Long)); err == nil {
		t.Fatal("expected Declare before any Enter to fail")
	}
}

func TestDeclareAndLookup(t *testing.T) {
	s := newTestStack(t)
	if err := s.Enter(); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	addr, err := s.StackAlloc(values.Long)
	if err != nil {
		t.Fatalf("StackAlloc: %v", err)
	}
	if err := s.Declare("x", values.Long, addr, values.Size(values.Long)); err != nil {
		t.Fatalf("Declare: %v", err)
	}
	v, ok := s.Lookup("x")
	if !ok {
		t.Fatal("expected to find x")
	}
	if v.Address != addr || v.Kind != values.Long {
		t.Fatalf("unexpected variable: %+v", v)
	}
}

func TestShadowingWithinSameScopeRejected(t *testing.T) {
	s := newTestStack(t)
	s.Enter()
	addr, _ := s.StackAlloc(values.Long)
	if err := s.Declare("x", values.Long, addr, values.Size(values.Long)); err != nil {
		t.Fatalf("Declare: %v", err)
	}
	if err := s.Declare("x", values.Long, addr, values.Size(values.Long)); err == nil {
		t.Fatal("expected redeclaration in the same scope to fail")
	}
}

func TestExitRemovesInnerScopeBindings(t *testing.T) {
	s := newTestStack(t)
	s.Enter()
	outerAddr, _ := s.StackAlloc(values.Long)
	s.Declare("outer", values.Long, outerAddr, values.Size(values.Long))

	s.Enter()
	innerAddr, _ := s.StackAlloc(values.Long)
	s.Declare("inner", values.Long, innerAddr, values.Size(values.Long))
	if _, ok := s.Lookup("inner"); !ok {
		t.Fatal("expected inner to resolve before Exit")
	}
	s.Exit()

	if _, ok := s.Lookup("inner"); ok {
		t.Fatal("expected inner to be gone after Exit")
	}
	if _, ok := s.Lookup("outer"); !ok {
		t.Fatal("expected outer to still resolve after exiting the inner scope")
	}
}

func TestLookupFindsInnermostShadow(t *testing.T) {
	s := newTestStack(t)
	s.Enter()
	outerAddr, _ := s.StackAlloc(values.Long)
	s.Declare("x", values.Long, outerAddr, values.Size(values.Long))

	s.Enter()
	innerAddr, _ := s.StackAlloc(values.Long)
	s.Declare("x", values.Long, innerAddr, values.Size(values.Long))

	v, ok := s.Lookup("x")
	if !ok || v.Address != innerAddr {
		t.Fatalf("expected innermost x at %d, got %+v ok=%v", innerAddr, v, ok)
	}
}

func TestVersionBumpsOnEnterAndExit(t *testing.T) {
	s := newTestStack(t)
	v0 := s.Version()
	s.Enter()
	v1 := s.Version()
	if v1 == v0 {
		t.Fatal("expected Enter to bump the version")
	}
	s.Exit()
	v2 := s.Version()
	if v2 == v1 {
		t.Fatal("expected Exit to bump the version")
	}
}

func TestStackAllocExhaustion(t *testing.T) {
	a := arena.New(8, 256)
	s := New(a)
	s.Enter()
	if _, err := s.StackAlloc(values.Long); err != nil {
		t.Fatalf("first alloc should fit: %v", err)
	}
	if _, err := s.StackAlloc(values.Long); err == nil {
		t.Fatal("expected stack exhaustion on second 8-byte alloc within an 8-byte stack")
	}
}

func TestCheckCapsRejectsScopeCountOverLimit(t *testing.T) {
	a := arena.New(1024, 4096)
	s := NewWithLimits(a, 1, 0)
	if err := s.Enter(); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	if err := s.CheckCaps(); err != nil {
		t.Fatalf("CheckCaps within the cap: %v", err)
	}
	// Force a second frame past the Enter-time check to exercise the
	// periodic recheck path independently of Enter's own guard.
	s.frames = append(s.frames, frame{})
	if err := s.CheckCaps(); err == nil {
		t.Fatal("expected CheckCaps to reject a scope count above maxScopes")
	}
}

func TestEachRootOnlyVisitsReferenceLikeKinds(t *testing.T) {
	s := newTestStack(t)
	s.Enter()
	longAddr, _ := s.StackAlloc(values.Long)
	s.Declare("n", values.Long, longAddr, values.Size(values.Long))
	strAddr, _ := s.StackAlloc(values.String)
	s.Declare("s", values.String, strAddr, values.Size(values.String))

	var roots []uint32
	s.EachRoot(func(addr uint32) { roots = append(roots, addr) })
	if len(roots) != 1 || roots[0] != strAddr {
		t.Fatalf("expected only the String variable as a root, got %v", roots)
	}
}
