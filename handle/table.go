package handle

import (
	"sync"
)

// UnifiedTable implements Table using a localBackend for storage.
type UnifiedTable struct {
	backend   *localBackend
	observers []Observer
	obsMu     sync.RWMutex
	closed    bool
	closeMu   sync.RWMutex
}

// DefaultCapacity is the slot count used when NewTable is called
// without an explicit capacity.
const DefaultCapacity = 4096

// NewTable creates a new handle table with room for DefaultCapacity
// live handles.
func NewTable() *UnifiedTable {
	return NewTableWithCapacity(DefaultCapacity)
}

// NewTableWithCapacity creates a handle table whose slot array never
// grows past capacity live entries (spec §3 "a fixed-capacity slot
// array of opaque host objects"); Insert returns the invalid handle 0
// once it is full and no released slot is available for reuse.
func NewTableWithCapacity(capacity int) *UnifiedTable {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &UnifiedTable{backend: newLocalBackend(capacity)}
}

// Insert adds a value and returns its handle.
func (t *UnifiedTable) Insert(value any) Handle {
	t.closeMu.RLock()
	if t.closed {
		t.closeMu.RUnlock()
		return 0
	}
	t.closeMu.RUnlock()

	h, err := t.backend.Create(value)
	if err != nil {
		return 0
	}

	t.notify(Event{Type: EventInserted, Handle: h, Value: value})
	return h
}

// Get retrieves a value by handle.
func (t *UnifiedTable) Get(h Handle) (any, bool) {
	return t.backend.Get(h)
}

// Release drops a handle and returns (value, true) if found. If the value
// implements Disposer, Dispose is NOT called here — a caller that wants
// the value disposed calls Dispose itself on the returned value. Only
// Close calls Dispose, on the values still held at that point.
func (t *UnifiedTable) Release(h Handle) (any, bool) {
	value, ok := t.backend.Release(h)
	if !ok {
		return nil, false
	}
	t.notify(Event{Type: EventReleased, Handle: h, Value: value})
	return value, true
}

// Subscribe adds an observer for lifecycle events.
func (t *UnifiedTable) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Unsubscribe removes an observer.
func (t *UnifiedTable) Unsubscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	for i, obs := range t.observers {
		if obs == o {
			t.observers = append(t.observers[:i], t.observers[i+1:]...)
			return
		}
	}
}

// Len returns the number of active handles.
func (t *UnifiedTable) Len() int {
	return t.backend.Len()
}

// Clear releases all handles.
func (t *UnifiedTable) Clear() {
	var handles []Handle
	t.backend.Each(func(h Handle, value any) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		t.Release(h)
	}
}

// Close releases all handles and stops accepting operations.
func (t *UnifiedTable) Close() error {
	t.closeMu.Lock()
	t.closed = true
	t.closeMu.Unlock()

	return t.backend.Close()
}

func (t *UnifiedTable) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnHandleEvent(e)
	}
}
