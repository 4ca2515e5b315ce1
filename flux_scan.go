package flux

// Scan folds accumulator over the sequence, emitting the running result
// after every element (§4.G). The Mono counterpart, Reduce, emits only the
// final accumulation.
func Scan[T, A any](f Flux[T], seed A, accumulator func(A, T) (A, error)) Flux[A] {
	return FromPublisher[A](&scanOp[T, A]{source: f.Publisher(), seed: seed, acc: accumulator})
}

type scanOp[T, A any] struct {
	source Publisher[T]
	seed   A
	acc    func(A, T) (A, error)
}

func (sc *scanOp[T, A]) Subscribe(s Subscriber[A]) { sc.SubscribeCtx(asCoreSubscriber(s, EmptyContext())) }
func (sc *scanOp[T, A]) SubscribeCtx(actual CoreSubscriber[A]) {
	SubscribeCtx[T](sc.source, &scanSubscriber[T, A]{actual: actual, value: sc.seed, acc: sc.acc}, actual.Context())
}

type scanSubscriber[T, A any] struct {
	actual       CoreSubscriber[A]
	value        A
	acc          func(A, T) (A, error)
	subscription Subscription
	done         bool
}

func (s *scanSubscriber[T, A]) OnSubscribe(sub Subscription) {
	if !ValidateSubscription(s.subscription, sub) {
		return
	}
	s.subscription = sub
	s.actual.OnSubscribe(s)
}

func (s *scanSubscriber[T, A]) OnNext(v T) {
	if s.done {
		onNextDropped(s.actual.Context(), v)
		return
	}
	next, err := s.apply(v)
	if err != nil {
		wrapped := onOperatorError(s.actual.Context(), s.subscription, err, true, v)
		s.OnError(wrapped)
		return
	}
	s.value = next
	s.actual.OnNext(s.value)
}

func (s *scanSubscriber[T, A]) apply(v T) (a A, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = RecoverOperatorError(r)
		}
	}()
	return s.acc(s.value, v)
}

func (s *scanSubscriber[T, A]) OnError(err error) {
	if s.done {
		onErrorDropped(s.actual.Context(), err)
		return
	}
	s.done = true
	s.actual.OnError(err)
}

func (s *scanSubscriber[T, A]) OnComplete() {
	if s.done {
		return
	}
	s.done = true
	s.actual.OnComplete()
}

func (s *scanSubscriber[T, A]) Request(n int64) { s.subscription.Request(n) }
func (s *scanSubscriber[T, A]) Cancel()         { s.subscription.Cancel() }

// Reduce is Scan's Mono-producing sibling: it only ever emits the final
// accumulation, as the source completes (§9 supplemented Mono surface).
func Reduce[T, A any](f Flux[T], seed A, accumulator func(A, T) (A, error)) Mono[A] {
	return MonoFromPublisher[A](&reduceOp[T, A]{source: f.Publisher(), seed: seed, acc: accumulator})
}

type reduceOp[T, A any] struct {
	source Publisher[T]
	seed   A
	acc    func(A, T) (A, error)
}

func (r *reduceOp[T, A]) Subscribe(s Subscriber[A]) { r.SubscribeCtx(asCoreSubscriber(s, EmptyContext())) }
func (r *reduceOp[T, A]) SubscribeCtx(actual CoreSubscriber[A]) {
	SubscribeCtx[T](r.source, &reduceSubscriber[T, A]{actual: actual, value: r.seed, acc: r.acc}, actual.Context())
}

type reduceSubscriber[T, A any] struct {
	actual       CoreSubscriber[A]
	value        A
	acc          func(A, T) (A, error)
	subscription Subscription
	done         bool
}

func (s *reduceSubscriber[T, A]) OnSubscribe(sub Subscription) {
	if !ValidateSubscription(s.subscription, sub) {
		return
	}
	s.subscription = sub
	s.actual.OnSubscribe(s)
	sub.Request(MaxDemand)
}

func (s *reduceSubscriber[T, A]) OnNext(v T) {
	if s.done {
		onNextDropped(s.actual.Context(), v)
		return
	}
	next, err := s.apply(v)
	if err != nil {
		wrapped := onOperatorError(s.actual.Context(), s.subscription, err, true, v)
		s.OnError(wrapped)
		return
	}
	s.value = next
}

func (s *reduceSubscriber[T, A]) apply(v T) (a A, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = RecoverOperatorError(r)
		}
	}()
	return s.acc(s.value, v)
}

func (s *reduceSubscriber[T, A]) OnError(err error) {
	if s.done {
		onErrorDropped(s.actual.Context(), err)
		return
	}
	s.done = true
	s.actual.OnError(err)
}

func (s *reduceSubscriber[T, A]) OnComplete() {
	if s.done {
		return
	}
	s.done = true
	s.actual.OnNext(s.value)
	s.actual.OnComplete()
}

func (s *reduceSubscriber[T, A]) Request(n int64) {}
func (s *reduceSubscriber[T, A]) Cancel()         { s.subscription.Cancel() }
