package flux

import "time"

// FlatMapMono subscribes to fn(v) once m produces its single value,
// forwarding whatever that derived Mono[R] emits; type-changing, so a
// free function rather than a Mono[T] method (§9).
func FlatMapMono[T, R any](m Mono[T], fn func(T) Mono[R]) Mono[R] {
	return MonoFromPublisher[R](&monoFlatMapOp[T, R]{source: m.Publisher(), fn: fn})
}

type monoFlatMapOp[T, R any] struct {
	source Publisher[T]
	fn     func(T) Mono[R]
}

func (o *monoFlatMapOp[T, R]) Subscribe(s Subscriber[R]) {
	o.SubscribeCtx(asCoreSubscriber(s, EmptyContext()))
}
func (o *monoFlatMapOp[T, R]) SubscribeCtx(actual CoreSubscriber[R]) {
	SubscribeCtx[T](o.source, &monoFlatMapSubscriber[T, R]{actual: actual, fn: o.fn}, actual.Context())
}

type monoFlatMapSubscriber[T, R any] struct {
	actual CoreSubscriber[R]
	fn     func(T) Mono[R]
	sub    Subscription
}

func (s *monoFlatMapSubscriber[T, R]) OnSubscribe(sub Subscription) {
	s.sub = sub
	sub.Request(1)
}
func (s *monoFlatMapSubscriber[T, R]) OnNext(v T) {
	defer func() {
		if r := recover(); r != nil {
			s.actual.OnSubscribe(noopSubscription{})
			s.actual.OnError(RecoverOperatorError(r))
		}
	}()
	inner := s.fn(v)
	SubscribeCtx[R](inner.Publisher(), s.actual, s.actual.Context())
}
func (s *monoFlatMapSubscriber[T, R]) OnError(err error) {
	s.actual.OnSubscribe(noopSubscription{})
	s.actual.OnError(err)
}
func (s *monoFlatMapSubscriber[T, R]) OnComplete() {}

// Retry resubscribes to m whenever it errors and shouldRetry(attempt, err)
// reports true, mirroring Flux.Retry for the at-most-one-value shape.
func (m Mono[T]) Retry(shouldRetry func(attempt int64, err error) bool) Mono[T] {
	return MonoFromPublisher[T](&retryOp[T]{source: m.Publisher(), shouldRetry: shouldRetry})
}

// Timeout errors with ErrTimeout if m produces neither a value nor a
// terminal signal within duration of being subscribed.
func (m Mono[T]) Timeout(duration time.Duration, exec Executor) Mono[T] {
	return MonoFromPublisher[T](&timeoutOp[T]{source: m.Publisher(), duration: duration, exec: exec})
}

// TimeoutFallback is Timeout's fallback variant for Mono.
func (m Mono[T]) TimeoutFallback(duration time.Duration, exec Executor, fallback Mono[T]) Mono[T] {
	asFlux := FromPublisher[T](fallback.Publisher())
	return MonoFromPublisher[T](&timeoutOp[T]{source: m.Publisher(), duration: duration, exec: exec, fallback: &asFlux})
}

// OnErrorResume is Mono's counterpart of Flux.OnErrorResume.
func (m Mono[T]) OnErrorResume(fn func(err error) Publisher[T]) Mono[T] {
	return MonoFromPublisher[T](&onErrorResumeOp[T]{source: m.Publisher(), fn: fn})
}
