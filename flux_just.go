package flux

import "sync/atomic"

// Just wraps a single value into a Flux that emits it and completes, fused
// SYNC (§4.E "Just/Empty/Error ... fusion mode SYNC").
func Just[T any](v T) Flux[T] {
	return FromPublisher[T](&justOp[T]{value: v})
}

// Empty never emits a value and completes immediately.
func Empty[T any]() Flux[T] {
	return FromPublisher[T](emptyPublisher[T]{})
}

// Error always terminates with err, with no OnNext.
func Error[T any](err error) Flux[T] {
	return FromPublisher[T](&errorOp[T]{err: func() error { return err }})
}

// justOp is the scalar source both Flux.Just and Mono.Just build on.
type justOp[T any] struct {
	value T
}

func (j *justOp[T]) Subscribe(s Subscriber[T]) { j.SubscribeCtx(asCoreSubscriber(s, EmptyContext())) }
func (j *justOp[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	actual.OnSubscribe(&scalarSubscription[T]{actual: actual, value: j.value, ctx: actual.Context()})
}

func (j *justOp[T]) ScanAttr(a Attr) (any, bool) {
	if a == AttrName {
		return "just", true
	}
	return nil, false
}

// errorOp is the always-fails source both Flux.Error and Mono.Error build
// on. err is a supplier, not a bare value, so MonoError(err) and
// Error(err) can each close over the same error value while still
// allowing operators such as retry to rebuild a fresh errorOp per
// attempt.
type errorOp[T any] struct {
	err func() error
}

func (e *errorOp[T]) Subscribe(s Subscriber[T]) { e.SubscribeCtx(asCoreSubscriber(s, EmptyContext())) }
func (e *errorOp[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	actual.OnSubscribe(noopSubscription{})
	actual.OnError(e.err())
}

// scalarSubscription is the fuseable Subscription backing a one-value
// source (§4.E, §4.J). state transitions 0 (not yet delivered) -> 1
// (delivered or cancelled), exactly once, via CAS.
type scalarSubscription[T any] struct {
	actual Subscriber[T]
	value  T
	ctx    Context
	state  atomic.Int32
	fused  int32
}

func (s *scalarSubscription[T]) Request(n int64) {
	if s.fused != FusionNone {
		return
	}
	if !ValidateRequest[T](n, s.actual) {
		return
	}
	if s.state.CompareAndSwap(0, 1) {
		s.actual.OnNext(s.value)
		s.actual.OnComplete()
	}
}

func (s *scalarSubscription[T]) Cancel() {
	if s.state.CompareAndSwap(0, 1) {
		onDiscard(s.ctx, s.value)
	}
}

func (s *scalarSubscription[T]) RequestFusion(mode int) int {
	if mode&FusionSync != 0 {
		s.fused = FusionSync
		return FusionSync
	}
	return FusionNone
}

func (s *scalarSubscription[T]) Poll() (T, bool) {
	if s.state.CompareAndSwap(0, 1) {
		return s.value, true
	}
	var zero T
	return zero, false
}

func (s *scalarSubscription[T]) IsEmpty() bool { return s.state.Load() != 0 }

func (s *scalarSubscription[T]) Clear() {
	if s.state.CompareAndSwap(0, 1) {
		onDiscard(s.ctx, s.value)
	}
}

func (s *scalarSubscription[T]) Size() int {
	if s.state.Load() == 0 {
		return 1
	}
	return 0
}
