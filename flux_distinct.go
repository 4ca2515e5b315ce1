package flux

// Distinct suppresses a value whose keySelector result has already been
// seen (§4.G "distinct"). Comparable, not any, because the dedup set is a
// plain Go map keyed on K.
func Distinct[T any, K comparable](f Flux[T], keySelector func(T) K) Flux[T] {
	return FromPublisher[T](&distinctOp[T, K]{source: f.Publisher(), key: keySelector})
}

type distinctOp[T any, K comparable] struct {
	source Publisher[T]
	key    func(T) K
}

func (d *distinctOp[T, K]) Subscribe(s Subscriber[T]) {
	d.SubscribeCtx(asCoreSubscriber(s, EmptyContext()))
}
func (d *distinctOp[T, K]) SubscribeCtx(actual CoreSubscriber[T]) {
	SubscribeCtx[T](d.source, &distinctSubscriber[T, K]{actual: actual, key: d.key, seen: make(map[K]struct{})}, actual.Context())
}

type distinctSubscriber[T any, K comparable] struct {
	actual       CoreSubscriber[T]
	key          func(T) K
	seen         map[K]struct{}
	subscription Subscription
	done         bool
}

func (s *distinctSubscriber[T, K]) OnSubscribe(sub Subscription) {
	if !ValidateSubscription(s.subscription, sub) {
		return
	}
	s.subscription = sub
	s.actual.OnSubscribe(s)
}

func (s *distinctSubscriber[T, K]) OnNext(v T) {
	if s.done {
		onNextDropped(s.actual.Context(), v)
		return
	}
	k, err := s.computeKey(v)
	if err != nil {
		wrapped := onOperatorError(s.actual.Context(), s.subscription, err, true, v)
		s.OnError(wrapped)
		return
	}
	if _, dup := s.seen[k]; dup {
		onDiscard(s.actual.Context(), v)
		s.subscription.Request(1)
		return
	}
	s.seen[k] = struct{}{}
	s.actual.OnNext(v)
}

func (s *distinctSubscriber[T, K]) computeKey(v T) (k K, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = RecoverOperatorError(r)
		}
	}()
	return s.key(v), nil
}

func (s *distinctSubscriber[T, K]) OnError(err error) {
	if s.done {
		onErrorDropped(s.actual.Context(), err)
		return
	}
	s.done = true
	s.actual.OnError(err)
}

func (s *distinctSubscriber[T, K]) OnComplete() {
	if s.done {
		return
	}
	s.done = true
	s.actual.OnComplete()
}

func (s *distinctSubscriber[T, K]) Request(n int64) { s.subscription.Request(n) }
func (s *distinctSubscriber[T, K]) Cancel()         { s.subscription.Cancel() }
