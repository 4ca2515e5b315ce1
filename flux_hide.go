package flux

// Hide strips any Scannable/fuseable capability an upstream node exposes,
// forcing classical onNext-driven delivery (§4.J: a downstream that
// negotiates fusion must not see through a hide() boundary). Used when an
// operator introduces a thread boundary or other invariant that SYNC/ASYNC
// fusion would violate.
func (f Flux[T]) Hide() Flux[T] {
	return FromPublisher[T](&hideOp[T]{source: f.Publisher()})
}

func (m Mono[T]) Hide() Mono[T] {
	return MonoFromPublisher[T](&hideOp[T]{source: m.Publisher()})
}

type hideOp[T any] struct {
	source Publisher[T]
}

func (h *hideOp[T]) Subscribe(s Subscriber[T]) { h.SubscribeCtx(asCoreSubscriber(s, EmptyContext())) }
func (h *hideOp[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	SubscribeCtx[T](h.source, &hideSubscriber[T]{actual: actual}, actual.Context())
}

type hideSubscriber[T any] struct {
	actual       CoreSubscriber[T]
	subscription Subscription
}

func (s *hideSubscriber[T]) OnSubscribe(sub Subscription) {
	if !ValidateSubscription(s.subscription, sub) {
		return
	}
	s.subscription = sub
	s.actual.OnSubscribe(s)
}
func (s *hideSubscriber[T]) OnNext(v T)    { s.actual.OnNext(v) }
func (s *hideSubscriber[T]) OnError(e error) { s.actual.OnError(e) }
func (s *hideSubscriber[T]) OnComplete()   { s.actual.OnComplete() }
func (s *hideSubscriber[T]) Request(n int64) { s.subscription.Request(n) }
func (s *hideSubscriber[T]) Cancel()         { s.subscription.Cancel() }
