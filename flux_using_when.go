package flux

import "sync"

// UsingWhen acquires a resource via resourceSupplier, builds the main
// sequence from it via closure, and runs exactly one of asyncComplete,
// asyncError or asyncCancel — chosen by how the main sequence actually
// ends — before the corresponding terminal signal (or, for cancel, before
// the cancellation is considered finished) reaches downstream. A cleanup
// sequence's own error is combined with the main sequence's error via
// CombineErrors rather than replacing it (§4.I "usingWhen").
func UsingWhen[D, T any](
	resourceSupplier Mono[D],
	closure func(D) Publisher[T],
	asyncComplete func(D) Publisher[any],
	asyncError func(D, error) Publisher[any],
	asyncCancel func(D) Publisher[any],
) Flux[T] {
	return FromPublisher[T](&usingWhenOp[D, T]{
		resource:      resourceSupplier.Publisher(),
		closure:       closure,
		asyncComplete: asyncComplete,
		asyncError:    asyncError,
		asyncCancel:   asyncCancel,
	})
}

type usingWhenOp[D, T any] struct {
	resource      Publisher[D]
	closure       func(D) Publisher[T]
	asyncComplete func(D) Publisher[any]
	asyncError    func(D, error) Publisher[any]
	asyncCancel   func(D) Publisher[any]
}

func (u *usingWhenOp[D, T]) Subscribe(s Subscriber[T]) {
	u.SubscribeCtx(asCoreSubscriber(s, EmptyContext()))
}
func (u *usingWhenOp[D, T]) SubscribeCtx(actual CoreSubscriber[T]) {
	main := &usingWhenMain[D, T]{actual: actual, op: u}
	SubscribeCtx[D](u.resource, &usingWhenResourceSubscriber[D, T]{main: main}, actual.Context())
}

type usingWhenMain[D, T any] struct {
	actual CoreSubscriber[T]
	op     *usingWhenOp[D, T]

	mu        sync.Mutex
	resource  D
	hasResource bool
	mainSub   Subscription
	cleaning  bool
	done      bool
}

func (m *usingWhenMain[D, T]) onResource(d D) {
	m.mu.Lock()
	m.resource = d
	m.hasResource = true
	m.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			m.finishError(RecoverOperatorError(r), nil)
		}
	}()
	pub := m.op.closure(d)
	SubscribeCtx[T](pub, &usingWhenInner[D, T]{main: m}, m.actual.Context())
}

func (m *usingWhenMain[D, T]) onResourceError(err error) {
	m.actual.OnSubscribe(noopSubscription{})
	m.actual.OnError(err)
}

func (m *usingWhenMain[D, T]) setMainSub(sub Subscription) {
	m.mu.Lock()
	m.mainSub = sub
	m.mu.Unlock()
	m.actual.OnSubscribe(&usingWhenSubscription[D, T]{main: m})
}

func (m *usingWhenMain[D, T]) onMainNext(v T) { m.actual.OnNext(v) }

func (m *usingWhenMain[D, T]) onMainComplete() {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	m.done = true
	d, has := m.resource, m.hasResource
	m.mu.Unlock()
	if !has || m.op.asyncComplete == nil {
		m.actual.OnComplete()
		return
	}
	m.runCleanup(m.op.asyncComplete(d), nil, func() { m.actual.OnComplete() })
}

func (m *usingWhenMain[D, T]) onMainError(err error) {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	m.done = true
	d, has := m.resource, m.hasResource
	m.mu.Unlock()
	if !has || m.op.asyncError == nil {
		m.actual.OnError(err)
		return
	}
	m.runCleanup(m.op.asyncError(d, err), err, func() { m.actual.OnError(err) })
}

func (m *usingWhenMain[D, T]) finishError(err error, cleanupErr error) {
	m.actual.OnError(CombineErrors(err, cleanupErr))
}

func (m *usingWhenMain[D, T]) runCleanup(cleanup Publisher[any], mainErr error, onDone func()) {
	SubscribeCtx[any](cleanup, &usingWhenCleanupSubscriber[D, T]{main: m, mainErr: mainErr, onDone: onDone}, m.actual.Context())
}

func (m *usingWhenMain[D, T]) cancel() {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	m.done = true
	d, has := m.resource, m.hasResource
	mainSub := m.mainSub
	m.mu.Unlock()
	if mainSub != nil {
		mainSub.Cancel()
	}
	if has && m.op.asyncCancel != nil {
		SubscribeCtx[any](m.op.asyncCancel(d), discardSubscriber[any]{}, m.actual.Context())
	}
}

type usingWhenResourceSubscriber[D, T any] struct{ main *usingWhenMain[D, T] }

func (s *usingWhenResourceSubscriber[D, T]) OnSubscribe(sub Subscription) { sub.Request(1) }
func (s *usingWhenResourceSubscriber[D, T]) OnNext(d D)                  { s.main.onResource(d) }
func (s *usingWhenResourceSubscriber[D, T]) OnError(err error)           { s.main.onResourceError(err) }
func (s *usingWhenResourceSubscriber[D, T]) OnComplete()                 {}

type usingWhenInner[D, T any] struct{ main *usingWhenMain[D, T] }

func (i *usingWhenInner[D, T]) OnSubscribe(sub Subscription) { i.main.setMainSub(sub) }
func (i *usingWhenInner[D, T]) OnNext(v T)                  { i.main.onMainNext(v) }
func (i *usingWhenInner[D, T]) OnError(err error)           { i.main.onMainError(err) }
func (i *usingWhenInner[D, T]) OnComplete()                 { i.main.onMainComplete() }

type usingWhenCleanupSubscriber[D, T any] struct {
	main    *usingWhenMain[D, T]
	mainErr error
	onDone  func()
}

func (s *usingWhenCleanupSubscriber[D, T]) OnSubscribe(sub Subscription) { sub.Request(MaxDemand) }
func (s *usingWhenCleanupSubscriber[D, T]) OnNext(any)                  {}
func (s *usingWhenCleanupSubscriber[D, T]) OnError(err error) {
	s.main.finishError(s.mainErr, err)
}
func (s *usingWhenCleanupSubscriber[D, T]) OnComplete() { s.onDone() }

// usingWhenSubscription is the Subscription downstream sees while the
// main sequence is active; Cancel triggers asyncCancel instead of
// asyncComplete/asyncError.
type usingWhenSubscription[D, T any] struct{ main *usingWhenMain[D, T] }

func (s *usingWhenSubscription[D, T]) Request(n int64) {
	s.main.mu.Lock()
	sub := s.main.mainSub
	s.main.mu.Unlock()
	if sub != nil {
		sub.Request(n)
	}
}
func (s *usingWhenSubscription[D, T]) Cancel() { s.main.cancel() }

// discardSubscriber subscribes with unbounded demand and does nothing
// with any of the signals; used for cleanup publishers usingWhen does not
// need to wait on (asyncCancel's fire-and-forget contract).
type discardSubscriber[T any] struct{}

func (discardSubscriber[T]) OnSubscribe(sub Subscription) { sub.Request(MaxDemand) }
func (discardSubscriber[T]) OnNext(T)                    {}
func (discardSubscriber[T]) OnError(error)               {}
func (discardSubscriber[T]) OnComplete()                 {}
