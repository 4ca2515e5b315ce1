// Package executor provides a minimal goroutine-backed Executor for tests.
// The core only consumes an Executor abstraction; it ships no scheduler
// implementation of its own. It is built on a clockz.Clock so tests can
// drive it with clockz.FakeClock deterministically.
package executor

import (
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// Executor mirrors the flux.Executor interface structurally (Request
// cancellation, delayed/periodic submission, disposal) without importing
// the root package.
type Executor struct {
	clock clockz.Clock

	mu       sync.Mutex
	disposed bool
	pending  map[*handle]struct{}
}

// New returns an Executor driven by clock. Pass clockz.RealClock outside
// tests, clockz.NewFakeClock() inside them.
func New(clock clockz.Clock) *Executor {
	return &Executor{clock: clock, pending: make(map[*handle]struct{})}
}

type handle struct {
	mu        sync.Mutex
	cancelled bool
	stop      func()
}

func (h *handle) Cancel() {
	h.mu.Lock()
	if h.cancelled {
		h.mu.Unlock()
		return
	}
	h.cancelled = true
	stop := h.stop
	h.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (e *Executor) track(h *handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending[h] = struct{}{}
}

func (e *Executor) untrack(h *handle) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.pending, h)
}

// Schedule runs task on its own goroutine as soon as possible.
func (e *Executor) Schedule(task func()) *handle {
	return e.ScheduleDelayed(task, 0)
}

// ScheduleDelayed runs task once, after delay.
func (e *Executor) ScheduleDelayed(task func(), delay time.Duration) *handle {
	h := &handle{}
	if e.isDisposed() {
		return h
	}
	e.track(h)
	timer := e.clock.NewTimer(delay)
	h.stop = func() { timer.Stop() }
	go func() {
		defer e.untrack(h)
		select {
		case <-timer.C():
			h.mu.Lock()
			cancelled := h.cancelled
			h.mu.Unlock()
			if !cancelled {
				task()
			}
		}
	}()
	return h
}

// SchedulePeriodically runs task after initialDelay, then every period,
// until Cancel is called on the returned handle.
func (e *Executor) SchedulePeriodically(task func(), initialDelay, period time.Duration) *handle {
	h := &handle{}
	if e.isDisposed() {
		return h
	}
	e.track(h)
	stopCh := make(chan struct{})
	h.stop = func() { close(stopCh) }
	go func() {
		defer e.untrack(h)
		timer := e.clock.NewTimer(initialDelay)
		for {
			select {
			case <-stopCh:
				timer.Stop()
				return
			case <-timer.C():
				h.mu.Lock()
				cancelled := h.cancelled
				h.mu.Unlock()
				if cancelled {
					return
				}
				task()
				timer = e.clock.NewTimer(period)
			}
		}
	}()
	return h
}

// Now returns the executor's clock's current time.
func (e *Executor) Now() time.Time { return e.clock.Now() }

// Dispose releases the executor, cancelling every still-pending task.
func (e *Executor) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	pending := make([]*handle, 0, len(e.pending))
	for h := range e.pending {
		pending = append(pending, h)
	}
	e.mu.Unlock()
	for _, h := range pending {
		h.Cancel()
	}
}

func (e *Executor) isDisposed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disposed
}

// IsDisposed reports whether Dispose has been called.
func (e *Executor) IsDisposed() bool { return e.isDisposed() }
