package flux

import "sync/atomic"

// Iterator is the pull-based cursor FromIterable drives (§4.E
// "fromIterable"); Next is only called after HasNext has reported true,
// HasNext may be called several times in a row (the fused IsEmpty/Poll
// path does so), and calls come from at most one goroutine at a time.
type Iterator[T any] interface {
	HasNext() bool
	Next() T
}

// FromIterable builds a Flux from a fresh Iterator per subscription; it
// grants SYNC fusion whenever the downstream asks for it.
func FromIterable[T any](newIterator func() Iterator[T]) Flux[T] {
	return FromPublisher[T](&fromIterableOp[T]{newIterator: newIterator})
}

type fromIterableOp[T any] struct {
	newIterator func() Iterator[T]
}

func (f *fromIterableOp[T]) Subscribe(s Subscriber[T]) {
	f.SubscribeCtx(asCoreSubscriber(s, EmptyContext()))
}
func (f *fromIterableOp[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	defer func() {
		if r := recover(); r != nil {
			ErrorSubscriber[T](actual, RecoverOperatorError(r))
		}
	}()
	it := f.newIterator()
	actual.OnSubscribe(&iterableSubscription[T]{actual: actual, it: it, ctx: actual.Context()})
}

type iterableSubscription[T any] struct {
	actual    Subscriber[T]
	it        Iterator[T]
	ctx       Context
	requested atomic.Int64
	wip       atomic.Int32
	cancelled atomic.Bool
	done      bool
	fused     int32
}

func (s *iterableSubscription[T]) Request(n int64) {
	if s.fused == FusionSync {
		return
	}
	if !ValidateRequest[T](n, s.actual) {
		return
	}
	for {
		cur := s.requested.Load()
		next := AddCap(cur, n)
		if s.requested.CompareAndSwap(cur, next) {
			break
		}
	}
	s.drain()
}

func (s *iterableSubscription[T]) Cancel() { s.cancelled.Store(true) }

func (s *iterableSubscription[T]) drain() {
	if s.wip.Add(1) != 1 {
		return
	}
	for {
		if s.done {
			s.wip.Store(0)
			return
		}
		r := s.requested.Load()
		var emitted int64
		for (emitted < r || r == MaxDemand) && !s.done {
			if s.cancelled.Load() {
				s.wip.Store(0)
				return
			}
			if !s.it.HasNext() {
				s.done = true
				break
			}
			v := s.it.Next()
			s.actual.OnNext(v)
			emitted++
		}
		if s.cancelled.Load() {
			s.wip.Store(0)
			return
		}
		if s.done {
			s.actual.OnComplete()
			s.wip.Store(0)
			return
		}
		if emitted != 0 && r != MaxDemand {
			s.requested.Add(-emitted)
		}
		if s.wip.Add(-1) == 0 {
			return
		}
	}
}

func (s *iterableSubscription[T]) RequestFusion(mode int) int {
	if mode&FusionSync != 0 {
		s.fused = FusionSync
		return FusionSync
	}
	return FusionNone
}

func (s *iterableSubscription[T]) Poll() (T, bool) {
	if s.done || !s.it.HasNext() {
		s.done = true
		var zero T
		return zero, false
	}
	return s.it.Next(), true
}

func (s *iterableSubscription[T]) IsEmpty() bool {
	if s.done {
		return true
	}
	return !s.it.HasNext()
}

func (s *iterableSubscription[T]) Clear() { s.done = true }

func (s *iterableSubscription[T]) Size() int { return -1 }

// SliceIterator adapts a plain slice to Iterator[T], for callers that want
// FromIterable semantics (e.g. a fresh copy per subscription) without
// writing their own cursor.
func SliceIterator[T any](values []T) func() Iterator[T] {
	return func() Iterator[T] {
		cp := make([]T, len(values))
		copy(cp, values)
		return &sliceIterator[T]{values: cp}
	}
}

type sliceIterator[T any] struct {
	values []T
	index  int
}

func (it *sliceIterator[T]) HasNext() bool { return it.index < len(it.values) }
func (it *sliceIterator[T]) Next() T {
	v := it.values[it.index]
	it.index++
	return v
}
