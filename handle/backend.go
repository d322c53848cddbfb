package handle

import (
	"sync"

	sberrors "github.com/kestrel-run/kestrel/errors"
)

// localBackend is an in-memory handle backend: a fixed-capacity slot
// array plus a free stack of reclaimed indices (spec §3: "Handles" is a
// fixed-capacity slot array of opaque host objects; "Releasing a handle
// returns its slot to a free stack").
type localBackend struct {
	entries  []entry
	freeList []Handle
	capacity int
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value any
	valid bool
}

func newLocalBackend(capacity int) *localBackend {
	initCap := capacity
	if initCap > 64 {
		initCap = 64
	}
	return &localBackend{
		entries:  make([]entry, 0, initCap),
		freeList: make([]Handle, 0, 16),
		capacity: capacity,
	}
}

func (b *localBackend) Create(value any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, sberrors.New(sberrors.PhaseHost, sberrors.KindInvalidPointer).
			Detail("handle table is closed").Build()
	}

	e := entry{value: value, valid: true}

	if n := len(b.freeList); n > 0 {
		h := b.freeList[n-1]
		b.freeList = b.freeList[:n-1]
		b.entries[h-1] = e
		return h, nil
	}

	if len(b.entries) >= b.capacity {
		return 0, sberrors.ResourceExhausted(sberrors.PhaseHost, "handle count", b.capacity)
	}

	b.entries = append(b.entries, e)
	return Handle(len(b.entries)), nil
}

func (b *localBackend) Get(h Handle) (any, bool) {
	if h == 0 {
		return nil, false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	idx := h - 1
	if int(idx) >= len(b.entries) {
		return nil, false
	}
	e := b.entries[idx]
	if !e.valid {
		return nil, false
	}
	return e.value, true
}

func (b *localBackend) Release(h Handle) (any, bool) {
	if h == 0 {
		return nil, false
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	idx := h - 1
	if int(idx) >= len(b.entries) {
		return nil, false
	}
	e := &b.entries[idx]
	if !e.valid {
		return nil, false
	}

	value := e.value
	e.valid = false
	e.value = nil
	b.freeList = append(b.freeList, h)
	return value, true
}

func (b *localBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	for i := range b.entries {
		if b.entries[i].valid {
			if d, ok := b.entries[i].value.(Disposer); ok {
				d.Dispose()
			}
			b.entries[i].valid = false
			b.entries[i].value = nil
		}
	}

	b.entries = nil
	b.freeList = nil
	return nil
}

func (b *localBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	count := 0
	for _, e := range b.entries {
		if e.valid {
			count++
		}
	}
	return count
}

func (b *localBackend) Each(fn func(Handle, any) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(Handle(i+1), e.value) {
				break
			}
		}
	}
}
