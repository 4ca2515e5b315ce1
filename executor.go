package flux

import (
	"time"

	"github.com/zoobzio/clockz"
)

// Executor is the scheduler/threadpool abstraction §6 names as consumed,
// not produced, by the core: "submit work, delayed submit, cancel". The
// core contains no scheduler implementation of its own (§1 Out of scope);
// interval and timeout only ever operate through this interface, and
// tests substitute a deterministic implementation built on
// clockz.FakeClock (internal/executor).
type Executor interface {
	// Schedule submits task to run as soon as possible, returning a
	// Cancellable that prevents it from running if it hasn't started yet.
	Schedule(task func()) Cancellable
	// ScheduleDelayed submits task to run after delay.
	ScheduleDelayed(task func(), delay time.Duration) Cancellable
	// SchedulePeriodically submits task to run after initialDelay, then
	// every period thereafter, until cancelled.
	SchedulePeriodically(task func(), initialDelay, period time.Duration) Cancellable
	// Now returns the executor's current time, per its Clock.
	Now() time.Time
	// Dispose releases the executor. IsDisposed reports whether it has
	// been disposed already.
	Dispose()
	IsDisposed() bool
}

// Cancellable is the cancel-handle Schedule/ScheduleDelayed/
// SchedulePeriodically return (§6).
type Cancellable interface {
	Cancel()
}

// ErrExecutorDisposed is the RejectedExecutionException-equivalent §6
// names: "raised when scheduling on a disposed executor; the caller
// operator surfaces it as downstream onError".
var ErrExecutorDisposed = protocolError("executor is disposed")

// Clock is the time-source abstraction §1 places out of scope as an
// implementation concern ("time sources and virtual clocks") but in scope
// as a consumed collaborator. It is clockz.Clock verbatim — re-exported
// here so callers that only need the clock (not the full Executor) don't
// have to import clockz themselves.
type Clock = clockz.Clock

// RealClock is the wall-clock Clock every Executor defaults to outside of
// tests.
var RealClock = clockz.RealClock

// FakeClock is clockz.FakeClock verbatim: a deterministic Clock with
// Advance/BlockUntilReady for tests — the same substitution zoobzio/flux
// uses for debounce timers, applied here to interval/timeout tests (seed
// scenario 6, §8).
type FakeClock = clockz.FakeClock

// NewFakeClock returns a deterministic Clock for tests.
func NewFakeClock() FakeClock {
	return clockz.NewFakeClock()
}
