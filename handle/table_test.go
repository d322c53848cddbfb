package handle

import (
	"testing"
)

type testObserver struct {
	events []Event
}

func (o *testObserver) OnHandleEvent(e Event) {
	o.events = append(o.events, e)
}

func TestUnifiedTable_Basic(t *testing.T) {
	table := NewTable()

	h := table.Insert("test")
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := table.Get(h)
	if !ok {
		t.Fatal("Get failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	val, ok = table.Release(h)
	if !ok {
		t.Fatal("Release failed")
	}
	if val != "test" {
		t.Fatalf("Expected 'test', got %v", val)
	}

	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Release")
	}
}

func TestUnifiedTable_FreeListReuse(t *testing.T) {
	table := NewTable()

	h1 := table.Insert("a")
	table.Release(h1)
	h2 := table.Insert("b")

	if h2 != h1 {
		t.Fatalf("Expected freed slot %d to be reused, got %d", h1, h2)
	}
}

func TestUnifiedTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	h := table.Insert("test")
	if len(obs.events) != 1 {
		t.Fatalf("Expected 1 event, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventInserted {
		t.Fatal("Expected EventInserted")
	}
	if obs.events[0].Handle != h {
		t.Fatal("Wrong handle in event")
	}

	table.Release(h)
	if len(obs.events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(obs.events))
	}
	if obs.events[1].Type != EventReleased {
		t.Fatal("Expected EventReleased")
	}

	table.Unsubscribe(obs)
	table.Insert("test2")
	if len(obs.events) != 2 {
		t.Fatal("Should not receive events after Unsubscribe")
	}
}

func TestUnifiedTable_Clear(t *testing.T) {
	table := NewTable()

	table.Insert("a")
	table.Insert("b")
	table.Insert("c")

	if table.Len() != 3 {
		t.Fatal("Expected Len() == 3")
	}

	table.Clear()

	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Clear")
	}
}

func TestUnifiedTable_Close(t *testing.T) {
	table := NewTable()

	table.Insert("a")
	table.Insert("b")

	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	h := table.Insert("c")
	if h != 0 {
		t.Fatal("Expected Insert to fail after Close")
	}
}

type disposeCounter struct {
	count int
}

func (d *disposeCounter) Dispose() {
	d.count++
}

func TestUnifiedTable_DisposeOnClose(t *testing.T) {
	table := NewTable()
	d := &disposeCounter{}

	table.Insert(d)
	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if d.count != 1 {
		t.Fatalf("Expected Dispose() to be called once on Close, called %d times", d.count)
	}
}

func TestUnifiedTable_InsertReturnsZeroAtCapacity(t *testing.T) {
	table := NewTableWithCapacity(1)

	h1 := table.Insert("a")
	if h1 == 0 {
		t.Fatal("expected the first Insert to succeed")
	}
	if h2 := table.Insert("b"); h2 != 0 {
		t.Fatalf("expected Insert to return 0 once capacity 1 is exhausted, got %d", h2)
	}

	table.Release(h1)
	if h3 := table.Insert("c"); h3 == 0 {
		t.Fatal("expected Insert to succeed again after the slot was released")
	}
}
