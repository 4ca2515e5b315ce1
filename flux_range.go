package flux

import "sync/atomic"

// Range emits count consecutive ints starting at start then completes,
// fused SYNC (§4.E "range"). A count <= 0 yields an empty Flux.
func Range(start, count int) Flux[int] {
	if count <= 0 {
		return Empty[int]()
	}
	return FromPublisher[int](&rangeOp{start: start, count: count})
}

type rangeOp struct {
	start, count int
}

func (r *rangeOp) Subscribe(s Subscriber[int]) { r.SubscribeCtx(asCoreSubscriber(s, EmptyContext())) }
func (r *rangeOp) SubscribeCtx(actual CoreSubscriber[int]) {
	actual.OnSubscribe(&rangeSubscription{actual: actual, current: r.start, end: r.start + r.count})
}

type rangeSubscription struct {
	actual    Subscriber[int]
	end       int
	current   int
	requested atomic.Int64
	wip       atomic.Int32
	cancelled atomic.Bool
	fused     int32
}

func (s *rangeSubscription) Request(n int64) {
	if s.fused == FusionSync {
		return
	}
	if !ValidateRequest[int](n, s.actual) {
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

func (s *rangeSubscription) Cancel() { s.cancelled.Store(true) }

func (s *rangeSubscription) drain() {
	if s.wip.Add(1) != 1 {
		return
	}
	for {
		r := s.requested.Load()
		var emitted int64
		for (emitted < r || r == MaxDemand) && s.current < s.end {
			if s.cancelled.Load() {
				s.wip.Store(0)
				return
			}
			v := s.current
			s.current++
			s.actual.OnNext(v)
			emitted++
		}
		if s.cancelled.Load() {
			s.wip.Store(0)
			return
		}
		if s.current >= s.end {
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

func (s *rangeSubscription) RequestFusion(mode int) int {
	if mode&FusionSync != 0 {
		s.fused = FusionSync
		return FusionSync
	}
	return FusionNone
}

func (s *rangeSubscription) Poll() (int, bool) {
	if s.current >= s.end {
		return 0, false
	}
	v := s.current
	s.current++
	return v, true
}

func (s *rangeSubscription) IsEmpty() bool {
	return s.current >= s.end
}

func (s *rangeSubscription) Clear() { s.current = s.end }

func (s *rangeSubscription) Size() int {
	if s.current >= s.end {
		return 0
	}
	return s.end - s.current
}
