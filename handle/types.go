package handle

// Handle is an opaque reference to a host object held in a Table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// EventType categorizes a handle lifecycle notification.
type EventType uint8

const (
	EventInserted EventType = iota
	EventReleased
)

// Event represents a handle lifecycle event.
type Event struct {
	Value  any
	Handle Handle
	Type   EventType
}

// Observer receives notifications about handle lifecycle events.
type Observer interface {
	OnHandleEvent(Event)
}

// Backend provides the underlying storage mechanism for handles.
type Backend interface {
	// Create stores a value and returns a handle.
	Create(value any) (Handle, error)

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// Release removes a value and returns (value, true) if found.
	Release(handle Handle) (any, bool)

	// Close releases all values held by the backend.
	Close() error
}

// Table manages host objects keyed by Handle, with observer support.
// This is the runtime's "handle table" from spec §3.
type Table interface {
	// Insert adds a value and returns its handle.
	Insert(value any) Handle

	// Get retrieves a value by handle.
	Get(handle Handle) (any, bool)

	// Release drops a handle and returns (value, true) if found. The slot
	// is returned to the free stack for reuse by a later Insert.
	Release(handle Handle) (any, bool)

	// Subscribe adds an observer for lifecycle events.
	Subscribe(Observer)

	// Unsubscribe removes an observer.
	Unsubscribe(Observer)

	// Len returns the number of active handles.
	Len() int

	// Clear releases all handles.
	Clear()

	// Close releases all handles and stops accepting operations.
	Close() error
}

// Disposer is optionally implemented by values that need cleanup. The
// table's Close calls Dispose on every value it still holds; Release
// does not call it, and neither does the evaluator's `using` construct.
type Disposer interface {
	Dispose()
}
