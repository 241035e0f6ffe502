// Package debounce defers a call until its input has stopped changing for a
// fixed delay.
package debounce

import (
	"sync"
	"time"

	"fintrack/internal/clock"
)

// DefaultDelay is the pause after the last change before the call runs.
const DefaultDelay = time.Second

// Invoker owns a single pending call to fn. Each Schedule supersedes the
// previous one. A timer callback whose generation is no longer current does
// nothing, so a superseded or cancelled call can never run late.
type Invoker[T any] struct {
	clock clock.Clock
	delay time.Duration
	fn    func(T)

	mu      sync.Mutex
	timer   clock.Timer
	gen     uint64
	pending bool
	value   T
	closed  bool
}

// New creates an Invoker that calls fn delay after the last Schedule.
func New[T any](c clock.Clock, delay time.Duration, fn func(T)) *Invoker[T] {
	if c == nil {
		c = clock.Real{}
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Invoker[T]{clock: c, delay: delay, fn: fn}
}

// Schedule replaces any pending call with fn(v) after the delay.
func (i *Invoker[T]) Schedule(v T) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return
	}
	i.stopLocked()
	i.gen++
	gen := i.gen
	i.value = v
	i.pending = true
	i.timer = i.clock.AfterFunc(i.delay, func() { i.fire(gen) })
}

// Cancel drops the pending call, if any.
func (i *Invoker[T]) Cancel() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.stopLocked()
}

// Flush runs the pending call immediately. It reports whether there was one.
func (i *Invoker[T]) Flush() bool {
	i.mu.Lock()
	if !i.pending || i.closed {
		i.mu.Unlock()
		return false
	}
	v := i.value
	i.stopLocked()
	i.mu.Unlock()

	i.fn(v)
	return true
}

// Close cancels the pending call and turns later Schedule calls into no-ops.
func (i *Invoker[T]) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	i.stopLocked()
}

// Pending reports whether a call is scheduled.
func (i *Invoker[T]) Pending() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.pending
}

func (i *Invoker[T]) fire(gen uint64) {
	i.mu.Lock()
	if i.closed || !i.pending || gen != i.gen {
		i.mu.Unlock()
		return
	}
	v := i.value
	i.pending = false
	i.timer = nil
	i.mu.Unlock()

	i.fn(v)
}

// stopLocked invalidates the current generation. Callers hold mu.
func (i *Invoker[T]) stopLocked() {
	if i.timer != nil {
		i.timer.Stop()
		i.timer = nil
	}
	i.gen++
	i.pending = false
	var zero T
	i.value = zero
}
