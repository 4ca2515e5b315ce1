package flux

// Peek installs l's hooks on the chain without altering signals (§4.F
// "peek" = reactor's doOnNext/doOnSubscribe/doOnComplete/doOnError/
// doOnCancel/doOnRequest family, unified behind the Listener of §6).
func (f Flux[T]) Peek(l *Listener[T]) Flux[T] {
	return FromPublisher[T](&peekOp[T]{source: f.Publisher(), listener: l})
}

// Peek is the Mono counterpart.
func (m Mono[T]) Peek(l *Listener[T]) Mono[T] {
	return MonoFromPublisher[T](&peekOp[T]{source: m.Publisher(), listener: l})
}

type peekOp[T any] struct {
	source   Publisher[T]
	listener *Listener[T]
}

func (p *peekOp[T]) Subscribe(s Subscriber[T]) { p.SubscribeCtx(asCoreSubscriber(s, EmptyContext())) }
func (p *peekOp[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	p.listener.callFirst()
	ctx := actual.Context()
	if p.listener != nil {
		ctx = WithListener[T](ctx, p.listener)
	}
	SubscribeCtx[T](p.source, &peekSubscriber[T]{actual: actual, listener: p.listener}, ctx)
}

type peekSubscriber[T any] struct {
	actual       CoreSubscriber[T]
	listener     *Listener[T]
	subscription Subscription
	done         bool
}

func (s *peekSubscriber[T]) OnSubscribe(sub Subscription) {
	if !ValidateSubscription(s.subscription, sub) {
		return
	}
	s.subscription = sub
	s.listener.callOnSubscribe(sub)
	s.actual.OnSubscribe(s)
}

func (s *peekSubscriber[T]) OnNext(v T) {
	if s.done {
		onNextDropped(s.actual.Context(), v)
		return
	}
	s.listener.callOnNext(v)
	s.actual.OnNext(v)
}

func (s *peekSubscriber[T]) OnError(err error) {
	if s.done {
		onErrorDropped(s.actual.Context(), err)
		return
	}
	s.done = true
	s.listener.callOnError(err)
	s.actual.OnError(err)
	s.listener.callFinally(SignalError)
}

func (s *peekSubscriber[T]) OnComplete() {
	if s.done {
		return
	}
	s.done = true
	s.listener.callOnComplete()
	s.actual.OnComplete()
	s.listener.callFinally(SignalComplete)
}

func (s *peekSubscriber[T]) Request(n int64) {
	s.listener.callOnRequest(n)
	s.subscription.Request(n)
}

func (s *peekSubscriber[T]) Cancel() {
	s.listener.callOnCancel()
	s.subscription.Cancel()
}
