// Package history holds a bounded append-only collection of readings.
package history

import (
	"sync"
)

// Buffer keeps the most recent entries up to a fixed capacity.
// Appends come from a single writer; reads take a snapshot copy and
// never block the writer for unbounded time.
type Buffer[T any] struct {
	mu    sync.RWMutex
	limit int
	items []T
}

const defaultLimit = 4096

// New returns a buffer keeping at most limit entries. A non-positive
// limit selects the default.
func New[T any](limit int) *Buffer[T] {
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Buffer[T]{limit: limit}
}

// Append adds one entry, evicting the oldest when full.
func (b *Buffer[T]) Append(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.items) == b.limit {
		copy(b.items, b.items[1:])
		b.items[len(b.items)-1] = v
		return
	}
	b.items = append(b.items, v)
}

// Snapshot returns a copy of the current contents, oldest first.
func (b *Buffer[T]) Snapshot() []T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// Last returns the most recent entry.
func (b *Buffer[T]) Last() (T, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.items) == 0 {
		var zero T
		return zero, false
	}
	return b.items[len(b.items)-1], true
}

// Len returns the number of stored entries.
func (b *Buffer[T]) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.items)
}
