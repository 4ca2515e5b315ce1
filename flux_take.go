package flux

import "sync/atomic"

// Take emits at most the first n elements then cancels upstream and
// completes downstream (§4.F "take"). n <= 0 yields an empty Flux.
func (f Flux[T]) Take(n int64) Flux[T] {
	if n <= 0 {
		return Empty[T]()
	}
	return FromPublisher[T](&takeOp[T]{source: f.Publisher(), n: n})
}

type takeOp[T any] struct {
	source Publisher[T]
	n      int64
}

func (t *takeOp[T]) Subscribe(s Subscriber[T]) { t.SubscribeCtx(asCoreSubscriber(s, EmptyContext())) }
func (t *takeOp[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	SubscribeCtx[T](t.source, &takeSubscriber[T]{actual: actual, remaining: t.n}, actual.Context())
}

type takeSubscriber[T any] struct {
	actual       CoreSubscriber[T]
	remaining    int64
	seen         atomic.Int64
	subscription Subscription
	done         bool
}

func (s *takeSubscriber[T]) OnSubscribe(sub Subscription) {
	if !ValidateSubscription(s.subscription, sub) {
		return
	}
	s.subscription = sub
	s.actual.OnSubscribe(s)
}

func (s *takeSubscriber[T]) OnNext(v T) {
	if s.done {
		onNextDropped(s.actual.Context(), v)
		return
	}
	c := s.seen.Add(1)
	if c > s.remaining {
		onDiscard(s.actual.Context(), v)
		return
	}
	s.actual.OnNext(v)
	if c == s.remaining {
		s.done = true
		s.subscription.Cancel()
		s.actual.OnComplete()
	}
}

func (s *takeSubscriber[T]) OnError(err error) {
	if s.done {
		onErrorDropped(s.actual.Context(), err)
		return
	}
	s.done = true
	s.actual.OnError(err)
}

func (s *takeSubscriber[T]) OnComplete() {
	if s.done {
		return
	}
	s.done = true
	s.actual.OnComplete()
}

func (s *takeSubscriber[T]) Request(n int64) {
	if n <= 0 {
		s.subscription.Request(n)
		return
	}
	cap := SubOrZero(s.remaining, s.seen.Load())
	if cap == 0 {
		return
	}
	if n > cap {
		n = cap
	}
	s.subscription.Request(n)
}

func (s *takeSubscriber[T]) Cancel() { s.subscription.Cancel() }

// Skip forwards every element after the first n (§4.F "skip").
func (f Flux[T]) Skip(n int64) Flux[T] {
	if n <= 0 {
		return f
	}
	return FromPublisher[T](&skipOp[T]{source: f.Publisher(), n: n})
}

type skipOp[T any] struct {
	source Publisher[T]
	n      int64
}

func (sk *skipOp[T]) Subscribe(s Subscriber[T]) { sk.SubscribeCtx(asCoreSubscriber(s, EmptyContext())) }
func (sk *skipOp[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	SubscribeCtx[T](sk.source, &skipSubscriber[T]{actual: actual, remaining: sk.n}, actual.Context())
}

type skipSubscriber[T any] struct {
	actual       CoreSubscriber[T]
	remaining    int64
	subscription Subscription
	done         bool
}

func (s *skipSubscriber[T]) OnSubscribe(sub Subscription) {
	if !ValidateSubscription(s.subscription, sub) {
		return
	}
	s.subscription = sub
	s.actual.OnSubscribe(s)
}

func (s *skipSubscriber[T]) OnNext(v T) {
	if s.done {
		onNextDropped(s.actual.Context(), v)
		return
	}
	if s.remaining > 0 {
		s.remaining--
		onDiscard(s.actual.Context(), v)
		s.subscription.Request(1)
		return
	}
	s.actual.OnNext(v)
}

func (s *skipSubscriber[T]) OnError(err error) {
	if s.done {
		onErrorDropped(s.actual.Context(), err)
		return
	}
	s.done = true
	s.actual.OnError(err)
}

func (s *skipSubscriber[T]) OnComplete() {
	if s.done {
		return
	}
	s.done = true
	s.actual.OnComplete()
}

func (s *skipSubscriber[T]) Request(n int64) { s.subscription.Request(n) }
func (s *skipSubscriber[T]) Cancel()         { s.subscription.Cancel() }
