// Package debounce collapses bursts of changes into a single trailing
// action and tags requests so late responses can be recognised as stale.
package debounce

import (
	"sync"
	"sync/atomic"
	"time"
)

// DefaultWindow is the quiet period used by the search row.
const DefaultWindow = 300 * time.Millisecond

// Debouncer delivers the last value passed to Trigger once no new value
// has arrived for the window. It is safe for concurrent use.
type Debouncer[T any] struct {
	mu      sync.Mutex
	window  time.Duration
	fn      func(T)
	timer   *time.Timer
	pending T
	gen     uint64
	armed   bool
	stopped bool
}

// New returns a Debouncer calling fn on its own goroutine.
func New[T any](window time.Duration, fn func(T)) *Debouncer[T] {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer[T]{window: window, fn: fn}
}

// Trigger replaces the pending value and restarts the quiet window.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = v
	d.armed = true
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() { d.fire(gen) })
}

// fire delivers the pending value if gen is still the newest trigger.
// A timer that lost the race with a later Trigger finds a newer gen and
// does nothing.
func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if !d.armed || d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	v := d.pending
	d.armed = false
	var zero T
	d.pending = zero
	d.mu.Unlock()
	d.fn(v)
}

// Flush runs the pending action immediately, if any.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	gen := d.gen
	d.mu.Unlock()
	d.fire(gen)
}

// Pending reports whether an action is waiting for the window to elapse.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.armed
}

// Stop cancels the pending action; later Triggers are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.armed = false
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Sequencer hands out increasing request tokens.
type Sequencer struct {
	latest atomic.Uint64
}

// Next returns a token newer than every token issued before.
func (s *Sequencer) Next() uint64 {
	return s.latest.Add(1)
}

// IsLatest reports whether token is the most recently issued one.
func (s *Sequencer) IsLatest(token uint64) bool {
	return s.latest.Load() == token
}
