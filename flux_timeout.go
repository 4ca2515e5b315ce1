package flux

import (
	"sync"
	"time"
)

// ErrTimeout is delivered (or triggers the fallback, for TimeoutFallback)
// when no signal arrives within the configured window (§4.I "timeout").
var ErrTimeout = protocolError("timeout: no signal within the configured window")

// Timeout errors with ErrTimeout if no signal (including the initial
// OnSubscribe-to-first-value gap) arrives within duration of the
// previous one.
func (f Flux[T]) Timeout(duration time.Duration, exec Executor) Flux[T] {
	return FromPublisher[T](&timeoutOp[T]{source: f.Publisher(), duration: duration, exec: exec})
}

// TimeoutFallback is Timeout's fallback variant: once the window lapses,
// upstream is cancelled and fallback is subscribed in its place instead
// of erroring.
func (f Flux[T]) TimeoutFallback(duration time.Duration, exec Executor, fallback Flux[T]) Flux[T] {
	return FromPublisher[T](&timeoutOp[T]{source: f.Publisher(), duration: duration, exec: exec, fallback: &fallback})
}

type timeoutOp[T any] struct {
	source   Publisher[T]
	duration time.Duration
	exec     Executor
	fallback *Flux[T]
}

func (t *timeoutOp[T]) Subscribe(s Subscriber[T]) { t.SubscribeCtx(asCoreSubscriber(s, EmptyContext())) }
func (t *timeoutOp[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	main := &timeoutMain[T]{actual: actual, duration: t.duration, exec: t.exec, fallback: t.fallback}
	actual.OnSubscribe(main)
	SubscribeCtx[T](t.source, main, actual.Context())
	main.arm()
}

type timeoutMain[T any] struct {
	actual   CoreSubscriber[T]
	duration time.Duration
	exec     Executor
	fallback *Flux[T]

	mu          sync.Mutex
	upstream    Subscription
	fallbackSub Subscription
	timer       Cancellable
	generation  int64
	requested   int64
	done        bool
	usingFallback bool
}

func (m *timeoutMain[T]) OnSubscribe(sub Subscription) {
	m.mu.Lock()
	m.upstream = sub
	requested := m.requested
	m.mu.Unlock()
	if requested > 0 {
		sub.Request(requested)
	}
}

func (m *timeoutMain[T]) arm() {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	m.generation++
	gen := m.generation
	m.mu.Unlock()
	handle := m.exec.ScheduleDelayed(func() { m.onTimeout(gen) }, m.duration)
	m.mu.Lock()
	m.timer = handle
	m.mu.Unlock()
}

func (m *timeoutMain[T]) OnNext(v T) {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		onDiscard(m.actual.Context(), v)
		return
	}
	m.mu.Unlock()
	m.actual.OnNext(v)
	m.arm()
}

func (m *timeoutMain[T]) OnError(err error) {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		onErrorDropped(m.actual.Context(), err)
		return
	}
	m.done = true
	timer := m.timer
	m.mu.Unlock()
	if timer != nil {
		timer.Cancel()
	}
	m.actual.OnError(err)
}

func (m *timeoutMain[T]) OnComplete() {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	m.done = true
	timer := m.timer
	m.mu.Unlock()
	if timer != nil {
		timer.Cancel()
	}
	m.actual.OnComplete()
}

func (m *timeoutMain[T]) onTimeout(gen int64) {
	m.mu.Lock()
	if m.done || gen != m.generation {
		m.mu.Unlock()
		return
	}
	m.done = true
	upstream := m.upstream
	fallback := m.fallback
	m.mu.Unlock()
	if upstream != nil {
		upstream.Cancel()
	}
	if fallback == nil {
		m.actual.OnError(ErrTimeout)
		return
	}
	m.mu.Lock()
	m.done = false
	m.usingFallback = true
	m.mu.Unlock()
	SubscribeCtx[T](fallback.Publisher(), &timeoutFallbackSubscriber[T]{main: m}, m.actual.Context())
}

func (m *timeoutMain[T]) Request(n int64) {
	if !ValidateRequest[T](n, m.actual) {
		return
	}
	m.mu.Lock()
	m.requested = AddCap(m.requested, n)
	upstream, fallbackSub, usingFallback := m.upstream, m.fallbackSub, m.usingFallback
	m.mu.Unlock()
	if usingFallback && fallbackSub != nil {
		fallbackSub.Request(n)
	} else if upstream != nil {
		upstream.Request(n)
	}
}

func (m *timeoutMain[T]) Cancel() {
	m.mu.Lock()
	m.done = true
	upstream, fallbackSub, timer := m.upstream, m.fallbackSub, m.timer
	m.mu.Unlock()
	if timer != nil {
		timer.Cancel()
	}
	if upstream != nil {
		upstream.Cancel()
	}
	if fallbackSub != nil {
		fallbackSub.Cancel()
	}
}

type timeoutFallbackSubscriber[T any] struct{ main *timeoutMain[T] }

func (s *timeoutFallbackSubscriber[T]) OnSubscribe(sub Subscription) {
	s.main.mu.Lock()
	s.main.fallbackSub = sub
	requested := s.main.requested
	s.main.mu.Unlock()
	if requested > 0 {
		sub.Request(requested)
	}
}
func (s *timeoutFallbackSubscriber[T]) OnNext(v T)        { s.main.actual.OnNext(v) }
func (s *timeoutFallbackSubscriber[T]) OnError(err error) { s.main.actual.OnError(err) }
func (s *timeoutFallbackSubscriber[T]) OnComplete()       { s.main.actual.OnComplete() }
