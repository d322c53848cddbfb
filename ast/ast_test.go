package ast

import "testing"

func TestCachedLookupMissesBeforeAnyStore(t *testing.T) {
	n := &Node{Kind: VariableRef, Name: "x"}
	if _, ok := n.CachedLookup(1); ok {
		t.Fatal("expected a miss before StoreCache is ever called")
	}
}

func TestCachedLookupHitsAtSameVersion(t *testing.T) {
	n := &Node{Kind: VariableRef, Name: "x"}
	n.StoreCache(5, "resolved-binding")
	hit, ok := n.CachedLookup(5)
	if !ok || hit != "resolved-binding" {
		t.Fatalf("CachedLookup = %v, %v; want %q, true", hit, ok, "resolved-binding")
	}
}

func TestCachedLookupMissesAfterVersionBump(t *testing.T) {
	n := &Node{Kind: VariableRef, Name: "x"}
	n.StoreCache(5, "resolved-binding")
	if _, ok := n.CachedLookup(6); ok {
		t.Fatal("expected a miss once the scope version has advanced")
	}
}

func TestInvalidateCacheForcesMiss(t *testing.T) {
	n := &Node{Kind: VariableRef, Name: "x"}
	n.StoreCache(5, "resolved-binding")
	n.InvalidateCache()
	if _, ok := n.CachedLookup(5); ok {
		t.Fatal("expected a miss after explicit InvalidateCache even at the same version")
	}
}

func TestStoreCacheOverwritesPreviousEntry(t *testing.T) {
	n := &Node{Kind: VariableRef, Name: "x"}
	n.StoreCache(1, "first")
	n.StoreCache(2, "second")
	if _, ok := n.CachedLookup(1); ok {
		t.Fatal("expected the stale version to miss after a newer StoreCache")
	}
	hit, ok := n.CachedLookup(2)
	if !ok || hit != "second" {
		t.Fatalf("CachedLookup = %v, %v; want %q, true", hit, ok, "second")
	}
}
