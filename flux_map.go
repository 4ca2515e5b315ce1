package flux

// Map is a type-changing operator, so it is a free generic function rather
// than a Flux[T] method — a Go method cannot introduce a new type
// parameter R (§9 "type-changing operators as free functions"). fn may
// return an error, which is routed through onOperatorError (§4.A,
// §4.F "map").
func Map[T, R any](f Flux[T], fn func(T) (R, error)) Flux[R] {
	return FromPublisher[R](&mapOp[T, R]{source: f.Publisher(), fn: fn})
}

// MapMono is the Mono counterpart of Map.
func MapMono[T, R any](m Mono[T], fn func(T) (R, error)) Mono[R] {
	return MonoFromPublisher[R](&mapOp[T, R]{source: m.Publisher(), fn: fn})
}

type mapOp[T, R any] struct {
	source Publisher[T]
	fn     func(T) (R, error)
}

func (m *mapOp[T, R]) Subscribe(s Subscriber[R]) { m.SubscribeCtx(asCoreSubscriber(s, EmptyContext())) }
func (m *mapOp[T, R]) SubscribeCtx(actual CoreSubscriber[R]) {
	SubscribeCtx[T](m.source, &mapSubscriber[T, R]{actual: actual, fn: m.fn}, actual.Context())
}

type mapSubscriber[T, R any] struct {
	actual       CoreSubscriber[R]
	fn           func(T) (R, error)
	subscription Subscription
	qs           QueueSubscription[T]
	fused        int32
	done         bool
}

func (s *mapSubscriber[T, R]) OnSubscribe(sub Subscription) {
	if !ValidateSubscription(s.subscription, sub) {
		return
	}
	s.subscription = sub
	if qs, ok := sub.(QueueSubscription[T]); ok {
		s.qs = qs
	}
	s.actual.OnSubscribe(s)
}

func (s *mapSubscriber[T, R]) OnNext(v T) {
	if s.done {
		onNextDropped(s.actual.Context(), v)
		return
	}
	r, err := s.applyFn(v)
	if err != nil {
		wrapped := onOperatorError(s.actual.Context(), s.subscription, err, true, v)
		if wrapped == nil {
			s.subscription.Request(1)
			return
		}
		s.OnError(wrapped)
		return
	}
	s.actual.OnNext(r)
}

func (s *mapSubscriber[T, R]) applyFn(v T) (r R, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = RecoverOperatorError(rec)
		}
	}()
	return s.fn(v)
}

func (s *mapSubscriber[T, R]) OnError(err error) {
	if s.done {
		onErrorDropped(s.actual.Context(), err)
		return
	}
	s.done = true
	s.actual.OnError(err)
}

func (s *mapSubscriber[T, R]) OnComplete() {
	if s.done {
		return
	}
	s.done = true
	s.actual.OnComplete()
}

// Request/Cancel implement Subscription, letting mapSubscriber stand in
// for the upstream Subscription that reaches the downstream — request/
// cancel pass straight through unchanged, since map never buffers.
func (s *mapSubscriber[T, R]) Request(n int64) { s.subscription.Request(n) }
func (s *mapSubscriber[T, R]) Cancel()         { s.subscription.Cancel() }

// RequestFusion negotiates SYNC fusion through to the upstream
// QueueSubscription when one is present, transforming each polled value
// with fn on the way out (§4.F, §4.J).
func (s *mapSubscriber[T, R]) RequestFusion(mode int) int {
	if s.qs == nil {
		return FusionNone
	}
	granted := s.qs.RequestFusion(mode)
	s.fused = int32(granted)
	return granted
}

func (s *mapSubscriber[T, R]) Poll() (R, bool) {
	if s.qs == nil {
		var zero R
		return zero, false
	}
	for {
		v, ok := s.qs.Poll()
		if !ok {
			var zero R
			return zero, false
		}
		r, err := s.applyFn(v)
		if err != nil {
			_ = onOperatorError(s.actual.Context(), s.subscription, err, true, v)
			continue
		}
		return r, true
	}
}

func (s *mapSubscriber[T, R]) IsEmpty() bool {
	if s.qs == nil {
		return true
	}
	return s.qs.IsEmpty()
}

func (s *mapSubscriber[T, R]) Clear() {
	if s.qs != nil {
		s.qs.Clear()
	}
}

func (s *mapSubscriber[T, R]) Size() int {
	if s.qs == nil {
		return 0
	}
	return s.qs.Size()
}
