// Package activity provides the bounded most-recent-first event buffer
// backing the live activity view.
package activity

import (
	"sync"

	"github.com/arbdeck/console/internal/event"
)

// DefaultCapacity is the buffer size used when none is configured.
const DefaultCapacity = 100

// Buffer is a fixed-capacity, insertion-ordered store of decoded events.
// The newest event is always at index 0; appending at capacity evicts the
// oldest entry. Safe for concurrent use.
type Buffer struct {
	mu       sync.RWMutex
	events   []event.Event
	capacity int
}

// NewBuffer creates a Buffer holding at most capacity events.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		events:   make([]event.Event, 0, capacity),
		capacity: capacity,
	}
}

// Append inserts ev at the front, evicting from the tail if over capacity.
func (b *Buffer) Append(ev event.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.events = append(b.events, nil)
	copy(b.events[1:], b.events)
	b.events[0] = ev

	if len(b.events) > b.capacity {
		b.events = b.events[:b.capacity]
	}
}

// Snapshot returns a copy of the current contents, newest first. The copy is
// isolated from later appends, so iterating it never observes a torn read.
func (b *Buffer) Snapshot() []event.Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]event.Event, len(b.events))
	copy(out, b.events)
	return out
}

// Len reports the current number of buffered events.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.events)
}

// Capacity reports the maximum number of buffered events.
func (b *Buffer) Capacity() int {
	return b.capacity
}
