package flux

// Filter is a same-type operator, so it stays a Flux[T] method (§9). A
// value for which pred returns false does not count against downstream
// demand when the downstream is a ConditionalSubscriber (§3, §4.F
// "filter"); otherwise filter re-requests one item upstream per rejection
// to keep demand balanced.
func (f Flux[T]) Filter(pred func(T) bool) Flux[T] {
	return FromPublisher[T](&filterOp[T]{source: f.Publisher(), pred: pred})
}

// Filter on a Mono is the Mono counterpart of Flux.Filter.
func (m Mono[T]) Filter(pred func(T) bool) Mono[T] {
	return MonoFromPublisher[T](&filterOp[T]{source: m.Publisher(), pred: pred})
}

type filterOp[T any] struct {
	source Publisher[T]
	pred   func(T) bool
}

func (f *filterOp[T]) Subscribe(s Subscriber[T]) { f.SubscribeCtx(asCoreSubscriber(s, EmptyContext())) }
func (f *filterOp[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	if cond, ok := actual.(ConditionalSubscriber[T]); ok {
		SubscribeCtx[T](f.source, &filterConditionalSubscriber[T]{actual: actual, cond: cond, pred: f.pred}, actual.Context())
		return
	}
	SubscribeCtx[T](f.source, &filterSubscriber[T]{actual: actual, pred: f.pred}, actual.Context())
}

type filterSubscriber[T any] struct {
	actual       CoreSubscriber[T]
	pred         func(T) bool
	subscription Subscription
	qs           QueueSubscription[T]
	done         bool
}

func (s *filterSubscriber[T]) OnSubscribe(sub Subscription) {
	if !ValidateSubscription(s.subscription, sub) {
		return
	}
	s.subscription = sub
	if qs, ok := sub.(QueueSubscription[T]); ok {
		s.qs = qs
	}
	s.actual.OnSubscribe(s)
}

func (s *filterSubscriber[T]) OnNext(v T) {
	if s.done {
		onNextDropped(s.actual.Context(), v)
		return
	}
	keep, err := s.testPred(v)
	if err != nil {
		wrapped := onOperatorError(s.actual.Context(), s.subscription, err, true, v)
		if wrapped == nil {
			s.subscription.Request(1)
			return
		}
		s.OnError(wrapped)
		return
	}
	if !keep {
		onDiscard(s.actual.Context(), v)
		s.subscription.Request(1)
		return
	}
	s.actual.OnNext(v)
}

func (s *filterSubscriber[T]) testPred(v T) (keep bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = RecoverOperatorError(r)
		}
	}()
	return s.pred(v), nil
}

func (s *filterSubscriber[T]) OnError(err error) {
	if s.done {
		onErrorDropped(s.actual.Context(), err)
		return
	}
	s.done = true
	s.actual.OnError(err)
}

func (s *filterSubscriber[T]) OnComplete() {
	if s.done {
		return
	}
	s.done = true
	s.actual.OnComplete()
}

func (s *filterSubscriber[T]) Request(n int64) { s.subscription.Request(n) }
func (s *filterSubscriber[T]) Cancel()         { s.subscription.Cancel() }

func (s *filterSubscriber[T]) RequestFusion(mode int) int {
	if s.qs == nil {
		return FusionNone
	}
	return s.qs.RequestFusion(mode)
}

func (s *filterSubscriber[T]) Poll() (T, bool) {
	if s.qs == nil {
		var zero T
		return zero, false
	}
	for {
		v, ok := s.qs.Poll()
		if !ok {
			var zero T
			return zero, false
		}
		keep, err := s.testPred(v)
		if err != nil {
			_ = onOperatorError(s.actual.Context(), s.subscription, err, true, v)
			continue
		}
		if !keep {
			onDiscard(s.actual.Context(), v)
			continue
		}
		return v, true
	}
}

func (s *filterSubscriber[T]) IsEmpty() bool {
	if s.qs == nil {
		return true
	}
	return s.qs.IsEmpty()
}
func (s *filterSubscriber[T]) Clear() {
	if s.qs != nil {
		s.qs.Clear()
	}
}
func (s *filterSubscriber[T]) Size() int {
	if s.qs == nil {
		return 0
	}
	return s.qs.Size()
}

// filterConditionalSubscriber is installed when the downstream itself
// accepts TryOnNext, letting a rejected value skip re-requesting entirely
// (§3 "ConditionalSubscriber"): the rejection is reported back to
// upstream as "not consumed" rather than as a fresh demand unit.
type filterConditionalSubscriber[T any] struct {
	actual       CoreSubscriber[T]
	cond         ConditionalSubscriber[T]
	pred         func(T) bool
	subscription Subscription
	qs           QueueSubscription[T]
	done         bool
}

func (s *filterConditionalSubscriber[T]) OnSubscribe(sub Subscription) {
	if !ValidateSubscription(s.subscription, sub) {
		return
	}
	s.subscription = sub
	if qs, ok := sub.(QueueSubscription[T]); ok {
		s.qs = qs
	}
	s.actual.OnSubscribe(s)
}

func (s *filterConditionalSubscriber[T]) OnNext(v T) { s.TryOnNext(v) }

func (s *filterConditionalSubscriber[T]) TryOnNext(v T) bool {
	if s.done {
		onNextDropped(s.actual.Context(), v)
		return false
	}
	keep, err := s.testPred(v)
	if err != nil {
		wrapped := onOperatorError(s.actual.Context(), s.subscription, err, true, v)
		if wrapped == nil {
			return false
		}
		s.OnError(wrapped)
		return false
	}
	if !keep {
		onDiscard(s.actual.Context(), v)
		return false
	}
	return s.cond.TryOnNext(v)
}

func (s *filterConditionalSubscriber[T]) testPred(v T) (keep bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = RecoverOperatorError(r)
		}
	}()
	return s.pred(v), nil
}

func (s *filterConditionalSubscriber[T]) OnError(err error) {
	if s.done {
		onErrorDropped(s.actual.Context(), err)
		return
	}
	s.done = true
	s.actual.OnError(err)
}

func (s *filterConditionalSubscriber[T]) OnComplete() {
	if s.done {
		return
	}
	s.done = true
	s.actual.OnComplete()
}

func (s *filterConditionalSubscriber[T]) Request(n int64) { s.subscription.Request(n) }
func (s *filterConditionalSubscriber[T]) Cancel()         { s.subscription.Cancel() }

func (s *filterConditionalSubscriber[T]) RequestFusion(mode int) int {
	if s.qs == nil {
		return FusionNone
	}
	return s.qs.RequestFusion(mode)
}

func (s *filterConditionalSubscriber[T]) Poll() (T, bool) {
	if s.qs == nil {
		var zero T
		return zero, false
	}
	for {
		v, ok := s.qs.Poll()
		if !ok {
			var zero T
			return zero, false
		}
		keep, err := s.testPred(v)
		if err != nil {
			_ = onOperatorError(s.actual.Context(), s.subscription, err, true, v)
			continue
		}
		if !keep {
			onDiscard(s.actual.Context(), v)
			continue
		}
		return v, true
	}
}

func (s *filterConditionalSubscriber[T]) IsEmpty() bool {
	if s.qs == nil {
		return true
	}
	return s.qs.IsEmpty()
}
func (s *filterConditionalSubscriber[T]) Clear() {
	if s.qs != nil {
		s.qs.Clear()
	}
}
func (s *filterConditionalSubscriber[T]) Size() int {
	if s.qs == nil {
		return 0
	}
	return s.qs.Size()
}
