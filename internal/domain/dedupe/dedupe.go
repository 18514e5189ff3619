// Package dedupe tracks keys that have already been acted on.
//
// The attendance ledger keys it by identity and day; the HTTP layer keys it
// by client request id so retried frame submissions are not processed twice.
package dedupe

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen keys to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and records it if not.
	// Returns true if key was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key string) bool

	// Seen reports whether key is recorded without recording it.
	Seen(ctx context.Context, key string) bool

	// Unrecord removes a key so it can be recorded again.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// inMemoryDeduper implements Deduper with a map.
// Bounded mode (maxSize > 0) evicts the oldest key once full.
// Unbounded mode (maxSize <= 0) never forgets a key until it is unrecorded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List // front = newest; nil in unbounded mode
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]*list.Element)
	if d.maxSize > 0 {
		d.order = list.New()
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}

	if d.order == nil {
		d.seen[key] = nil
		d.size.Add(1)
		return false
	}

	if len(d.seen) >= d.maxSize {
		d.evictOldest()
	}
	d.seen[key] = d.order.PushFront(key)
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Seen(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, exists := d.seen[key]
	return exists
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	el, exists := d.seen[key]
	if !exists {
		return
	}
	delete(d.seen, key)
	if d.order != nil && el != nil {
		d.order.Remove(el)
	}
	d.size.Add(-1)
}

// evictOldest drops the least recently added key. Caller holds d.mu.
func (d *inMemoryDeduper) evictOldest() {
	tail := d.order.Back()
	if tail == nil {
		return
	}
	d.order.Remove(tail)
	delete(d.seen, tail.Value.(string))
	d.size.Add(-1)
}

// Size returns the current number of recorded keys.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
