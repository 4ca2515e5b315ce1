package flux

// Materialize turns each onNext/onError/onComplete signal into a Signal
// value delivered through OnNext, followed by a plain OnComplete — the
// Signal stream never itself terminates with OnError (§3, §9 "SUPPLEMENTED
// FEATURES": materialize/dematerialize).
func (f Flux[T]) Materialize() Flux[Signal[T]] {
	return FromPublisher[Signal[T]](&materializeOp[T]{source: f.Publisher()})
}

type materializeOp[T any] struct {
	source Publisher[T]
}

func (m *materializeOp[T]) Subscribe(s Subscriber[Signal[T]]) {
	m.SubscribeCtx(asCoreSubscriber(s, EmptyContext()))
}
func (m *materializeOp[T]) SubscribeCtx(actual CoreSubscriber[Signal[T]]) {
	SubscribeCtx[T](m.source, &materializeSubscriber[T]{actual: actual}, actual.Context())
}

type materializeSubscriber[T any] struct {
	actual       CoreSubscriber[Signal[T]]
	subscription Subscription
	done         bool
}

func (s *materializeSubscriber[T]) OnSubscribe(sub Subscription) {
	if !ValidateSubscription(s.subscription, sub) {
		return
	}
	s.subscription = sub
	s.actual.OnSubscribe(s)
}

func (s *materializeSubscriber[T]) OnNext(v T) {
	if s.done {
		onNextDropped(s.actual.Context(), v)
		return
	}
	s.actual.OnNext(NextSignal(v))
}

func (s *materializeSubscriber[T]) OnError(err error) {
	if s.done {
		onErrorDropped(s.actual.Context(), err)
		return
	}
	s.done = true
	s.actual.OnNext(ErrorSignal[T](err))
	s.actual.OnComplete()
}

func (s *materializeSubscriber[T]) OnComplete() {
	if s.done {
		return
	}
	s.done = true
	s.actual.OnNext(CompleteSignal[T]())
	s.actual.OnComplete()
}

func (s *materializeSubscriber[T]) Request(n int64) { s.subscription.Request(n) }
func (s *materializeSubscriber[T]) Cancel()         { s.subscription.Cancel() }

// Dematerialize is the inverse of Materialize: it replays each Signal as a
// real onNext/onError/onComplete call, terminating as soon as the first
// terminal Signal arrives regardless of whatever the source Flux still has
// queued. It is a free function because its input type (Flux[Signal[T]])
// is not expressible as a Go method receiver parameterized only on T.
func Dematerialize[T any](f Flux[Signal[T]]) Flux[T] {
	return FromPublisher[T](&dematerializeOp[T]{source: f.Publisher()})
}

type dematerializeOp[T any] struct {
	source Publisher[Signal[T]]
}

func (d *dematerializeOp[T]) Subscribe(s Subscriber[T]) {
	d.SubscribeCtx(asCoreSubscriber(s, EmptyContext()))
}
func (d *dematerializeOp[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	SubscribeCtx[Signal[T]](d.source, &dematerializeSubscriber[T]{actual: actual}, actual.Context())
}

type dematerializeSubscriber[T any] struct {
	actual       CoreSubscriber[T]
	subscription Subscription
	done         bool
}

func (s *dematerializeSubscriber[T]) OnSubscribe(sub Subscription) {
	if !ValidateSubscription(s.subscription, sub) {
		return
	}
	s.subscription = sub
	s.actual.OnSubscribe(s)
}

func (s *dematerializeSubscriber[T]) OnNext(sig Signal[T]) {
	if s.done {
		onNextDropped(s.actual.Context(), sig)
		return
	}
	switch sig.Kind {
	case SignalNext:
		s.actual.OnNext(sig.Value)
	case SignalError:
		s.done = true
		s.subscription.Cancel()
		s.actual.OnError(sig.Err)
	case SignalComplete:
		s.done = true
		s.subscription.Cancel()
		s.actual.OnComplete()
	}
}

func (s *dematerializeSubscriber[T]) OnError(err error) {
	if s.done {
		onErrorDropped(s.actual.Context(), err)
		return
	}
	s.done = true
	s.actual.OnError(err)
}

func (s *dematerializeSubscriber[T]) OnComplete() {
	if s.done {
		return
	}
	s.done = true
	s.actual.OnComplete()
}

func (s *dematerializeSubscriber[T]) Request(n int64) { s.subscription.Request(n) }
func (s *dematerializeSubscriber[T]) Cancel()         { s.subscription.Cancel() }
