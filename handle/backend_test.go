package handle

import (
	"sync"
	"testing"
)

func TestLocalBackend_Basic(t *testing.T) {
	b := newLocalBackend(64)

	h, err := b.Create("test value")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := b.Get(h)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test value" {
		t.Fatalf("Expected 'test value', got %v", val)
	}

	val, ok = b.Release(h)
	if !ok {
		t.Fatal("Release failed")
	}
	if val != "test value" {
		t.Fatalf("Expected 'test value', got %v", val)
	}

	if _, ok := b.Get(h); ok {
		t.Fatal("Expected Get to fail after Release")
	}
}

func TestLocalBackend_HandleReuse(t *testing.T) {
	b := newLocalBackend(64)

	h1, _ := b.Create(1)
	h2, _ := b.Create(2)
	h3, _ := b.Create(3)

	b.Release(h2)
	b.Release(h1)

	h4, _ := b.Create(4)
	h5, _ := b.Create(5)

	if h4 != h1 && h4 != h2 {
		t.Log("handle not reused, but that's ok")
	}

	if _, ok := b.Get(h3); !ok {
		t.Fatal("h3 should still be valid")
	}
	if _, ok := b.Get(h4); !ok {
		t.Fatal("h4 should be valid")
	}
	if _, ok := b.Get(h5); !ok {
		t.Fatal("h5 should be valid")
	}
}

func TestLocalBackend_Close(t *testing.T) {
	b := newLocalBackend(64)

	b.Create(1)
	b.Create(2)

	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := b.Create("test"); err == nil {
		t.Fatal("Expected error from Create after Close")
	}
}

func TestLocalBackend_CloseCallsDispose(t *testing.T) {
	b := newLocalBackend(64)
	d := &disposeCounter{}

	b.Create(d)
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if d.count != 1 {
		t.Fatalf("expected Dispose called once, got %d", d.count)
	}

	// Close is idempotent.
	if err := b.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if d.count != 1 {
		t.Fatalf("Dispose should not be called again on repeat Close, got %d", d.count)
	}
}

func TestLocalBackend_Concurrent(t *testing.T) {
	b := newLocalBackend(64)
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			h, err := b.Create(id)
			if err != nil {
				return
			}
			b.Get(h)
			b.Release(h)
		}(i)
	}

	wg.Wait()
}

func TestLocalBackend_Len(t *testing.T) {
	b := newLocalBackend(64)

	if b.Len() != 0 {
		t.Fatal("Expected Len() == 0 initially")
	}

	h1, _ := b.Create("a")
	h2, _ := b.Create("b")
	b.Create("c")

	if b.Len() != 3 {
		t.Fatalf("Expected Len() == 3, got %d", b.Len())
	}

	b.Release(h1)
	if b.Len() != 2 {
		t.Fatalf("Expected Len() == 2, got %d", b.Len())
	}

	b.Release(h2)
	if b.Len() != 1 {
		t.Fatalf("Expected Len() == 1, got %d", b.Len())
	}
}

func TestLocalBackend_Each(t *testing.T) {
	b := newLocalBackend(64)

	b.Create("a")
	b.Create("b")
	b.Create("c")

	count := 0
	b.Each(func(h Handle, value any) bool {
		count++
		return true
	})
	if count != 3 {
		t.Fatalf("Expected to iterate over 3 items, got %d", count)
	}

	count = 0
	b.Each(func(h Handle, value any) bool {
		count++
		return false
	})
	if count != 1 {
		t.Fatalf("Expected to iterate over 1 item (early term), got %d", count)
	}
}

func TestLocalBackend_InvalidHandle(t *testing.T) {
	b := newLocalBackend(64)

	if _, ok := b.Get(0); ok {
		t.Fatal("Handle 0 should be invalid")
	}
	if _, ok := b.Release(0); ok {
		t.Fatal("Handle 0 should fail Release")
	}
	if _, ok := b.Get(999); ok {
		t.Fatal("Non-existent handle should be invalid")
	}
}

func TestLocalBackend_CreateRejectsOnceCapacityReached(t *testing.T) {
	b := newLocalBackend(2)

	if _, err := b.Create("a"); err != nil {
		t.Fatalf("Create 1: %v", err)
	}
	h2, err := b.Create("b")
	if err != nil {
		t.Fatalf("Create 2: %v", err)
	}

	if _, err := b.Create("c"); err == nil {
		t.Fatal("expected Create to reject a third entry past capacity 2")
	}

	if _, ok := b.Release(h2); !ok {
		t.Fatal("Release of h2 failed")
	}
	if _, err := b.Create("d"); err != nil {
		t.Fatalf("Create after Release should reuse the freed slot: %v", err)
	}
}
