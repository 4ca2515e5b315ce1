package flux

// IgnoreElements drops every value, requesting MaxDemand upstream and
// surfacing only the terminal signal, as an at-most-one-signal Mono (§4.F
// "ignoreElements" / §9 "SUPPLEMENTED FEATURES": Flux/Mono conversions).
func (f Flux[T]) IgnoreElements() Mono[T] {
	return MonoFromPublisher[T](&ignoreElementsOp[T]{source: f.Publisher()})
}

type ignoreElementsOp[T any] struct {
	source Publisher[T]
}

func (i *ignoreElementsOp[T]) Subscribe(s Subscriber[T]) {
	i.SubscribeCtx(asCoreSubscriber(s, EmptyContext()))
}
func (i *ignoreElementsOp[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	SubscribeCtx[T](i.source, &ignoreElementsSubscriber[T]{actual: actual}, actual.Context())
}

type ignoreElementsSubscriber[T any] struct {
	actual       CoreSubscriber[T]
	subscription Subscription
	done         bool
}

func (s *ignoreElementsSubscriber[T]) OnSubscribe(sub Subscription) {
	if !ValidateSubscription(s.subscription, sub) {
		return
	}
	s.subscription = sub
	s.actual.OnSubscribe(s)
	sub.Request(MaxDemand)
}

func (s *ignoreElementsSubscriber[T]) OnNext(v T) { onDiscard(s.actual.Context(), v) }

func (s *ignoreElementsSubscriber[T]) OnError(err error) {
	if s.done {
		onErrorDropped(s.actual.Context(), err)
		return
	}
	s.done = true
	s.actual.OnError(err)
}

func (s *ignoreElementsSubscriber[T]) OnComplete() {
	if s.done {
		return
	}
	s.done = true
	s.actual.OnComplete()
}

func (s *ignoreElementsSubscriber[T]) Request(n int64) {} // already requested MaxDemand
func (s *ignoreElementsSubscriber[T]) Cancel()          { s.subscription.Cancel() }
