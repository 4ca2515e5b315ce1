package flux

import (
	"sync"
	"sync/atomic"

	"github.com/streamwell/flux/internal/subscriptions"
)

// EmitResult is the outcome of a TryEmit call on a Sink (§9 "SUPPLEMENTED
// FEATURES": Sinks, modelled on reactor-core's sinks.Many/sinks.One).
type EmitResult int

const (
	EmitOK EmitResult = iota
	EmitFailOverflow
	EmitFailTerminated
	EmitFailCancelled
)

func (r EmitResult) String() string {
	switch r {
	case EmitOK:
		return "OK"
	case EmitFailOverflow:
		return "FAIL_OVERFLOW"
	case EmitFailTerminated:
		return "FAIL_TERMINATED"
	case EmitFailCancelled:
		return "FAIL_CANCELLED"
	default:
		return "UNKNOWN"
	}
}

// Sink is the manual-emission handle reactor-core calls sinks.Many: a
// hot, multicast Publisher[T] that a caller drives directly via
// TryEmitNext/TryEmitComplete/TryEmitError rather than by attaching an
// upstream. Every currently-subscribed downstream must have outstanding
// demand for TryEmitNext to succeed; otherwise it fails atomically for
// every downstream rather than delivering to some and not others.
type Sink[T any] struct {
	mu         sync.Mutex
	subs       []*sinkInner[T]
	terminated bool
	err        error
	onEmpty    func()
}

// NewSink creates an empty, not-yet-terminated Sink.
func NewSink[T any]() *Sink[T] {
	return &Sink[T]{}
}

// AsFlux exposes the Sink as a Flux, the usual way callers hand it to
// consumers without exposing the TryEmit* surface.
func (s *Sink[T]) AsFlux() Flux[T] { return FromPublisher[T](s) }

func (s *Sink[T]) Subscribe(sub Subscriber[T]) { s.SubscribeCtx(asCoreSubscriber(sub, EmptyContext())) }

func (s *Sink[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	s.mu.Lock()
	if s.terminated {
		err := s.err
		s.mu.Unlock()
		if err != nil {
			ErrorSubscriber[T](actual, err)
		} else {
			CompleteSubscriber[T](actual)
		}
		return
	}
	inner := &sinkInner[T]{sink: s, actual: actual}
	inner.hs = subscriptions.NewHalfSerializer[T](actual)
	s.subs = append(s.subs, inner)
	s.mu.Unlock()
	actual.OnSubscribe(inner)
}

// TryEmitNext delivers v to every current subscriber, or fails without
// delivering to anyone if at least one lacks demand (§9).
func (s *Sink[T]) TryEmitNext(v T) EmitResult {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return EmitFailTerminated
	}
	for _, inner := range s.subs {
		if inner.requested.Load() <= 0 {
			s.mu.Unlock()
			return EmitFailOverflow
		}
	}
	subs := append([]*sinkInner[T]{}, s.subs...)
	s.mu.Unlock()
	for _, inner := range subs {
		inner.deliverNext(v)
	}
	return EmitOK
}

// EmitNext retries TryEmitNext until it succeeds or retry returns false.
func (s *Sink[T]) EmitNext(v T, retry func(EmitResult) bool) {
	for {
		r := s.TryEmitNext(v)
		if r == EmitOK {
			return
		}
		if retry == nil || !retry(r) {
			return
		}
	}
}

// TryEmitComplete terminates the Sink successfully.
func (s *Sink[T]) TryEmitComplete() EmitResult {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return EmitFailTerminated
	}
	s.terminated = true
	subs := append([]*sinkInner[T]{}, s.subs...)
	s.subs = nil
	s.mu.Unlock()
	for _, inner := range subs {
		inner.deliverComplete()
	}
	return EmitOK
}

// TryEmitError terminates the Sink with err.
func (s *Sink[T]) TryEmitError(err error) EmitResult {
	s.mu.Lock()
	if s.terminated {
		s.mu.Unlock()
		return EmitFailTerminated
	}
	s.terminated = true
	s.err = err
	subs := append([]*sinkInner[T]{}, s.subs...)
	s.subs = nil
	s.mu.Unlock()
	for _, inner := range subs {
		inner.deliverError(err)
	}
	return EmitOK
}

// CurrentSubscriberCount reports how many downstreams are currently
// attached, useful for a user deciding whether to keep emitting.
func (s *Sink[T]) CurrentSubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Sink[T]) remove(inner *sinkInner[T]) {
	s.mu.Lock()
	var empty bool
	var onEmpty func()
	for i, x := range s.subs {
		if x == inner {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			empty = len(s.subs) == 0 && !s.terminated
			onEmpty = s.onEmpty
			break
		}
	}
	s.mu.Unlock()
	if empty && onEmpty != nil {
		onEmpty()
	}
}

type sinkInner[T any] struct {
	sink      *Sink[T]
	actual    CoreSubscriber[T]
	// hs serializes this subscriber's deliveries against concurrent
	// TryEmit* calls (§4.C "multicast sinks"): a Sink is designed to be
	// driven from any number of caller goroutines at once, and its
	// mutex is released before fanning out to each subscriber.
	hs        *subscriptions.HalfSerializer[T]
	requested atomic.Int64
	cancelled atomic.Bool
}

func (i *sinkInner[T]) Request(n int64) {
	if n <= 0 {
		i.actual.OnError(protocolError("request must be positive"))
		return
	}
	for {
		cur := i.requested.Load()
		next := AddCap(cur, n)
		if i.requested.CompareAndSwap(cur, next) {
			return
		}
	}
}

func (i *sinkInner[T]) Cancel() {
	if i.cancelled.CompareAndSwap(false, true) {
		i.sink.remove(i)
	}
}

func (i *sinkInner[T]) deliverNext(v T) {
	if i.cancelled.Load() {
		onDiscard(i.actual.Context(), v)
		return
	}
	for {
		cur := i.requested.Load()
		if cur == MaxDemand {
			break
		}
		if i.requested.CompareAndSwap(cur, SubOrZero(cur, 1)) {
			break
		}
	}
	i.emit(v)
}

// emit mirrors combineLatestMain.emit: route through the half-serializer,
// spinning past a momentary EmitFailNonSerialized.
func (i *sinkInner[T]) emit(v T) {
	for {
		switch i.hs.OnNext(v) {
		case subscriptions.EmitOK, subscriptions.EmitFailTerminated:
			return
		case subscriptions.EmitFailNonSerialized:
			continue
		}
	}
}

func (i *sinkInner[T]) deliverComplete() {
	if !i.cancelled.Load() {
		i.hs.OnComplete()
	}
}

func (i *sinkInner[T]) deliverError(err error) {
	if !i.cancelled.Load() {
		i.hs.OnError(err)
	}
}
