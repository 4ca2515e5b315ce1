package flux

import (
	"sync/atomic"
	"time"
)

// Interval emits a strictly increasing tick counter, starting at 0, every
// period, scheduled on exec (§4.E "interval"; §1/§6: the core never
// schedules time-based work itself). A tick that finds no outstanding
// demand terminates the sequence with ErrOverflow, matching
// Flux.interval's MissingBackpressureException (§7 "Overflow errors").
func Interval(period time.Duration, exec Executor) Flux[int64] {
	return IntervalDelayed(period, period, exec)
}

// IntervalDelayed is Interval with an explicit, independently configurable
// initialDelay before the first tick.
func IntervalDelayed(initialDelay, period time.Duration, exec Executor) Flux[int64] {
	return FromPublisher[int64](&intervalOp{initialDelay: initialDelay, period: period, exec: exec})
}

type intervalOp struct {
	initialDelay, period time.Duration
	exec                 Executor
}

func (i *intervalOp) Subscribe(s Subscriber[int64]) {
	i.SubscribeCtx(asCoreSubscriber(s, EmptyContext()))
}
func (i *intervalOp) SubscribeCtx(actual CoreSubscriber[int64]) {
	sub := &intervalSubscription{actual: actual, ctx: actual.Context()}
	actual.OnSubscribe(sub)
	sub.handle = i.exec.ScheduleDelayed(sub.armPeriodic(i.exec, i.period), i.initialDelay)
}

// armPeriodic returns a one-shot task that fires the first tick and then
// switches the subscription's cancel handle over to a periodic schedule,
// so IntervalDelayed's initialDelay and period can differ.
func (s *intervalSubscription) armPeriodic(exec Executor, period time.Duration) func() {
	return func() {
		s.tick()
		if s.cancelled.Load() {
			return
		}
		s.handle = exec.SchedulePeriodically(s.tick, period, period)
	}
}

type intervalSubscription struct {
	actual    Subscriber[int64]
	ctx       Context
	counter   atomic.Int64
	requested atomic.Int64
	cancelled atomic.Bool
	handle    Cancellable
}

func (s *intervalSubscription) Request(n int64) {
	if !ValidateRequest[int64](n, s.actual) {
		return
	}
	for {
		cur := s.requested.Load()
		next := AddCap(cur, n)
		if s.requested.CompareAndSwap(cur, next) {
			return
		}
	}
}

func (s *intervalSubscription) Cancel() {
	if s.cancelled.CompareAndSwap(false, true) {
		if s.handle != nil {
			s.handle.Cancel()
		}
	}
}

func (s *intervalSubscription) tick() {
	if s.cancelled.Load() {
		return
	}
	for {
		r := s.requested.Load()
		if r <= 0 {
			s.actual.OnError(overflowError("could not emit tick, no demand available"))
			s.Cancel()
			return
		}
		if r == MaxDemand || s.requested.CompareAndSwap(r, r-1) {
			break
		}
	}
	v := s.counter.Add(1) - 1
	s.actual.OnNext(v)
}
