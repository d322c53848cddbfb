// Package handle implements the runtime's handle table: a fixed-capacity
// slot array mapping integer handles to opaque host objects that live
// outside the byte arena (spec §3 "Handles").
//
// An Object-kind variable stores either a heap block whose 4-byte payload
// is the handle, or the handle directly in a dictionary/array slot, per
// call site documented by the caller. This package only owns the
// handle <-> value mapping; it knows nothing about the arena.
//
// # Handle Table
//
//	table := handle.NewTable()
//
//	// Insert a value, get a handle
//	h := table.Insert(myHostObject)
//
//	// Retrieve value by handle
//	value, ok := table.Get(h)
//
//	// Release returns the slot to the free stack
//	value, ok := table.Release(h)
//
// Handle 0 is reserved and always invalid. Releasing a handle pushes its
// slot onto a free stack so the next Insert reuses it (spec §3: "Releasing
// a handle returns its slot to a free stack").
//
// # Observers
//
// Hosts that need to react to object lifecycle can subscribe an
// Observer:
//
//	table.Subscribe(&releaseLogger{})
//
//	func (l *releaseLogger) OnHandleEvent(e handle.Event) {
//	    if e.Type == handle.EventReleased {
//	        log.Printf("handle %d released", e.Handle)
//	    }
//	}
package handle
