// Package debounce coalesces bursts of calls per key into a single trailing call.
package debounce

import (
	"sync"
	"time"
)

// Debouncer owns one pending timer per key. Scheduling a key cancels and
// replaces only that key's pending call; other keys are unaffected.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]*entry
	stopped bool
}

type entry struct {
	timer *time.Timer
	fn    func()
}

func New() *Debouncer {
	return &Debouncer{pending: make(map[string]*entry)}
}

// Schedule runs fn after delay unless Schedule is called again for the same key
// first, in which case the earlier fn is dropped. It is a no-op after Stop.
func (d *Debouncer) Schedule(key string, fn func(), delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if old, ok := d.pending[key]; ok {
		old.timer.Stop()
	}
	e := &entry{fn: fn}
	e.timer = time.AfterFunc(delay, func() { d.fire(key, e) })
	d.pending[key] = e
}

func (d *Debouncer) fire(key string, e *entry) {
	d.mu.Lock()
	// A timer that already fired but was replaced or flushed must not run.
	if d.pending[key] != e {
		d.mu.Unlock()
		return
	}
	delete(d.pending, key)
	d.mu.Unlock()

	e.fn()
}

// Cancel drops the pending call for key. It reports whether one was pending.
func (d *Debouncer) Cancel(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	e, ok := d.pending[key]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(d.pending, key)
	return true
}

// Flush runs every pending call immediately, in the caller's goroutine.
func (d *Debouncer) Flush() int {
	d.mu.Lock()
	fns := make([]func(), 0, len(d.pending))
	for key, e := range d.pending {
		e.timer.Stop()
		fns = append(fns, e.fn)
		delete(d.pending, key)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Pending returns the number of keys with a scheduled call.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop flushes pending calls and rejects further scheduling.
func (d *Debouncer) Stop() int {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
	return d.Flush()
}
