// Package lifecycle gives every component that hands out a scoped
// resource (a coordinator waiter slot, a body-store handle, a buffered
// request body) a single, composable release primitive. Ingress collects
// these into a per-request Bag and releases it unconditionally on every
// exit path (spec §5 "Resource lifetimes").
package lifecycle

import "sync"

// Disposable releases whatever resource it closed over. Implementations
// must be safe to call more than once; only the first call has an effect.
type Disposable func()

// Once wraps fn so only the first call executes it.
func Once(fn func()) Disposable {
	var once sync.Once
	return func() { once.Do(fn) }
}

// Noop is a Disposable with nothing to release.
func Noop() {}

// Bag accumulates Disposables for a single request and releases them all,
// most-recently-added first, exactly once.
type Bag struct {
	mu       sync.Mutex
	items    []Disposable
	released bool
}

// Add appends d to the bag. If the bag was already released, d runs
// immediately (defensive: callers must not add after Release, but a late
// add must not leak the resource).
func (b *Bag) Add(d Disposable) {
	if d == nil {
		return
	}
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		d()
		return
	}
	b.items = append(b.items, d)
	b.mu.Unlock()
}

// Release runs every accumulated Disposable in reverse registration order.
// Safe to call more than once; only the first call has an effect.
func (b *Bag) Release() {
	b.mu.Lock()
	if b.released {
		b.mu.Unlock()
		return
	}
	b.released = true
	items := b.items
	b.items = nil
	b.mu.Unlock()

	for i := len(items) - 1; i >= 0; i-- {
		items[i]()
	}
}
