package flux

import "sync"

// SwitchOnFirst is the representative multi-source coordinator of §4.H:
// it consumes exactly one signal from f (the first signal, which may be
// an OnNext, OnError, or an empty OnComplete), hands that Signal plus a
// re-exposed Flux of everything *after* it to transform, and forwards
// whatever Publisher[R] transform returns as the outbound sequence.
//
// The re-exposed inner Flux may be subscribed at most once; a second
// subscribe attempt fails with a protocol error. cancelSourceOnComplete
// is accepted and stored but has no effect: the outbound Publisher is
// subscribed by the downstream directly, so its completion or
// cancellation is not observed here, and the source subscription is not
// cancelled when the outbound side ends without the inner Flux having
// been subscribed.
func SwitchOnFirst[T, R any](f Flux[T], transform func(Signal[T], Flux[T]) Publisher[R], cancelSourceOnComplete bool) Flux[R] {
	return FromPublisher[R](&switchOnFirstOp[T, R]{
		source:                 f.Publisher(),
		transform:              transform,
		cancelSourceOnComplete: cancelSourceOnComplete,
	})
}

type switchOnFirstOp[T, R any] struct {
	source                 Publisher[T]
	transform              func(Signal[T], Flux[T]) Publisher[R]
	cancelSourceOnComplete bool
}

func (op *switchOnFirstOp[T, R]) Subscribe(s Subscriber[R]) {
	op.SubscribeCtx(asCoreSubscriber(s, EmptyContext()))
}

func (op *switchOnFirstOp[T, R]) SubscribeCtx(actual CoreSubscriber[R]) {
	main := &switchOnFirstMain[T, R]{
		actual:                 actual,
		transform:              op.transform,
		cancelSourceOnComplete: op.cancelSourceOnComplete,
	}
	SubscribeCtx[T](op.source, main, actual.Context())
}

// switchOnFirstMain plays both roles §4.H names: Subscriber[T] to the
// upstream source, and Publisher[T] for the re-exposed inner Flux the
// transformer subscribes to. The nine named state bits are folded into
// plain booleans under a single mutex rather than nine CAS'd bits of one
// atomic integer — same state machine, a more ordinary Go shape for it.
type switchOnFirstMain[T, R any] struct {
	actual                 CoreSubscriber[R]
	transform              func(Signal[T], Flux[T]) Publisher[R]
	cancelSourceOnComplete bool

	mu                    sync.Mutex
	sourceSub             Subscription
	firstReceived         bool
	firstSignal           Signal[T]
	inboundSubscribedOnce bool
	inner                 *switchOnFirstInner[T]
	pendingTerminal       *Signal[T]
	inboundCancelled      bool
	inboundTerminated     bool
	outboundCancelled     bool
	outboundTerminated    bool
}

func (m *switchOnFirstMain[T, R]) OnSubscribe(sub Subscription) {
	m.mu.Lock()
	m.sourceSub = sub
	m.mu.Unlock()
	sub.Request(1)
}

func (m *switchOnFirstMain[T, R]) OnNext(v T) {
	m.mu.Lock()
	if !m.firstReceived {
		m.firstReceived = true
		m.firstSignal = NextSignal(v)
		m.mu.Unlock()
		m.dispatchFirst()
		return
	}
	inner := m.inner
	terminated := m.inboundTerminated
	m.mu.Unlock()
	if terminated || inner == nil {
		onNextDropped(m.actual.Context(), v)
		return
	}
	inner.deliverNext(v)
}

func (m *switchOnFirstMain[T, R]) OnError(err error) {
	m.mu.Lock()
	if !m.firstReceived {
		m.firstReceived = true
		m.firstSignal = ErrorSignal[T](err)
		m.mu.Unlock()
		m.dispatchFirst()
		return
	}
	m.mu.Unlock()
	m.terminateInbound(ErrorSignal[T](err))
}

func (m *switchOnFirstMain[T, R]) OnComplete() {
	m.mu.Lock()
	if !m.firstReceived {
		m.firstReceived = true
		m.firstSignal = CompleteSignal[T]()
		m.mu.Unlock()
		m.dispatchFirst()
		return
	}
	m.mu.Unlock()
	m.terminateInbound(CompleteSignal[T]())
}

func (m *switchOnFirstMain[T, R]) terminateInbound(sig Signal[T]) {
	m.mu.Lock()
	if m.inboundTerminated {
		m.mu.Unlock()
		return
	}
	m.inboundTerminated = true
	inner := m.inner
	if inner == nil {
		m.pendingTerminal = &sig
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	inner.deliverTerminal(sig)
}

// dispatchFirst builds the outbound publisher from the first Signal and
// subscribes the original downstream to it (§4.H: "the user function ...
// returns an outbound Publisher").
func (m *switchOnFirstMain[T, R]) dispatchFirst() {
	inner := Flux[T]{pub: &switchOnFirstInnerPublisher[T, R]{main: m}}
	defer func() {
		if r := recover(); r != nil {
			ErrorSubscriber[R](m.actual, RecoverOperatorError(r))
		}
	}()
	m.mu.Lock()
	sig := m.firstSignal
	m.mu.Unlock()
	outbound := m.transform(sig, inner)
	SubscribeCtx[R](outbound, m.actual, m.actual.Context())
}

// subscribeInner implements the re-exposed inner Flux's Subscribe,
// enforced to run at most once (§4.H "second subscribe gets
// IllegalStateException").
func (m *switchOnFirstMain[T, R]) subscribeInner(actual CoreSubscriber[T]) {
	m.mu.Lock()
	if m.inboundSubscribedOnce {
		m.mu.Unlock()
		ErrorSubscriber[T](actual, protocolError("switchOnFirst inner Flux subscribed more than once"))
		return
	}
	m.inboundSubscribedOnce = true
	inner := &switchOnFirstInner[T]{
		actual:    actual,
		requestFn: m.onInnerRequest,
		cancelFn:  m.onInnerCancel,
	}
	m.inner = inner
	pending := m.pendingTerminal
	m.mu.Unlock()

	actual.OnSubscribe(inner)
	if pending != nil {
		inner.deliverTerminal(*pending)
	}
}

func (m *switchOnFirstMain[T, R]) onInnerRequest(n int64) {
	m.mu.Lock()
	sub := m.sourceSub
	m.mu.Unlock()
	if sub != nil {
		sub.Request(n)
	}
}

func (m *switchOnFirstMain[T, R]) onInnerCancel() {
	m.mu.Lock()
	m.inboundCancelled = true
	sub := m.sourceSub
	m.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}

// switchOnFirstInnerPublisher adapts switchOnFirstMain's subscribeInner
// into the Publisher[T] contract the re-exposed Flux needs.
type switchOnFirstInnerPublisher[T, R any] struct {
	main *switchOnFirstMain[T, R]
}

func (p *switchOnFirstInnerPublisher[T, R]) Subscribe(s Subscriber[T]) {
	p.SubscribeCtx(asCoreSubscriber(s, EmptyContext()))
}
func (p *switchOnFirstInnerPublisher[T, R]) SubscribeCtx(actual CoreSubscriber[T]) {
	p.main.subscribeInner(actual)
}

// switchOnFirstInner is the Subscription the re-exposed inner Flux hands
// its (single) subscriber; Request/Cancel fold back into the main
// coordinator.
type switchOnFirstInner[T any] struct {
	actual    CoreSubscriber[T]
	requestFn func(int64)
	cancelFn  func()

	mu   sync.Mutex
	done bool
}

func (i *switchOnFirstInner[T]) deliverNext(v T) {
	i.mu.Lock()
	done := i.done
	i.mu.Unlock()
	if done {
		onNextDropped(i.actual.Context(), v)
		return
	}
	i.actual.OnNext(v)
}

func (i *switchOnFirstInner[T]) deliverTerminal(sig Signal[T]) {
	i.mu.Lock()
	if i.done {
		i.mu.Unlock()
		return
	}
	i.done = true
	i.mu.Unlock()
	sig.sendTo(i.actual)
}

func (i *switchOnFirstInner[T]) Request(n int64) {
	if !ValidateRequest[T](n, i.actual) {
		return
	}
	i.requestFn(n)
}

func (i *switchOnFirstInner[T]) Cancel() {
	i.mu.Lock()
	i.done = true
	i.mu.Unlock()
	i.cancelFn()
}
