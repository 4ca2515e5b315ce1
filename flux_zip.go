package flux

import (
	"sync"
	"sync/atomic"

	"github.com/streamwell/flux/internal/queue"
)

const zipPrefetch = 128

// ZipSlice zips N homogeneous sources, emitting combiner(current head of
// every source) only once every source has a head available, then
// requesting another zipPrefetch values from each source every time
// zipPrefetch of its values have been consumed since the last refill
// (§4.H' "zip(N): ... fair request refill").
func ZipSlice[T, R any](sources []Flux[T], combiner func([]T) R) Flux[R] {
	return FromPublisher[R](&zipOp[T, R]{sources: sources, combiner: combiner})
}

// Zip2 is the common two-source case, spelled without slices.
func Zip2[A, B, R any](a Flux[A], b Flux[B], combiner func(A, B) R) Flux[R] {
	return Zip2Publishers[A, B, R](a.Publisher(), b.Publisher(), combiner)
}

type zipOp[T, R any] struct {
	sources  []Flux[T]
	combiner func([]T) R
}

func (z *zipOp[T, R]) Subscribe(s Subscriber[R]) { z.SubscribeCtx(asCoreSubscriber(s, EmptyContext())) }
func (z *zipOp[T, R]) SubscribeCtx(actual CoreSubscriber[R]) {
	if len(z.sources) == 0 {
		CompleteSubscriber[R](actual)
		return
	}
	main := &zipMain[T, R]{actual: actual, combiner: z.combiner, queues: make([]*queue.Bounded[T], len(z.sources))}
	for i := range main.queues {
		main.queues[i] = queue.NewBounded[T](zipPrefetch)
	}
	main.emitted = make([]int64, len(z.sources))
	actual.OnSubscribe(main)
	for i, src := range z.sources {
		idx := i
		SubscribeCtx[T](src.Publisher(), &zipInner[T, R]{main: main, index: idx}, actual.Context())
	}
}

type zipMain[T, R any] struct {
	actual   CoreSubscriber[R]
	combiner func([]T) R

	mu        sync.Mutex
	queues    []*queue.Bounded[T]
	subs      []Subscription
	emitted   []int64
	requested int64
	done      bool
	cancelled bool
	wip       atomic.Int32
}

func (m *zipMain[T, R]) Request(n int64) {
	if !ValidateRequest[R](n, m.actual) {
		return
	}
	m.mu.Lock()
	m.requested = AddCap(m.requested, n)
	m.mu.Unlock()
	m.drain()
}

func (m *zipMain[T, R]) Cancel() {
	m.mu.Lock()
	if m.cancelled {
		m.mu.Unlock()
		return
	}
	m.cancelled = true
	subs := append([]Subscription{}, m.subs...)
	m.mu.Unlock()
	for _, s := range subs {
		if s != nil {
			s.Cancel()
		}
	}
}

func (m *zipMain[T, R]) setSub(i int, sub Subscription) {
	m.mu.Lock()
	for len(m.subs) <= i {
		m.subs = append(m.subs, nil)
	}
	m.subs[i] = sub
	m.mu.Unlock()
	sub.Request(int64(zipPrefetch))
}

func (m *zipMain[T, R]) onInnerError(err error) {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		onErrorDropped(m.actual.Context(), err)
		return
	}
	m.done = true
	subs := append([]Subscription{}, m.subs...)
	m.mu.Unlock()
	for _, s := range subs {
		if s != nil {
			s.Cancel()
		}
	}
	m.actual.OnError(err)
}

func (m *zipMain[T, R]) onInnerComplete(index int) {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	empty := m.queues[index].IsEmpty()
	m.mu.Unlock()
	if empty {
		m.finish()
	}
}

func (m *zipMain[T, R]) finish() {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	m.done = true
	subs := append([]Subscription{}, m.subs...)
	m.mu.Unlock()
	for _, s := range subs {
		if s != nil {
			s.Cancel()
		}
	}
	m.actual.OnComplete()
}

func (m *zipMain[T, R]) drain() {
	if m.wip.Add(1) != 1 {
		return
	}
	for {
		m.mu.Lock()
		if m.done {
			m.mu.Unlock()
			return
		}
		for m.requested > 0 || m.requested == MaxDemand {
			ready := true
			for _, q := range m.queues {
				if q.IsEmpty() {
					ready = false
					break
				}
			}
			if !ready {
				break
			}
			row := make([]T, len(m.queues))
			for i, q := range m.queues {
				row[i], _ = q.Poll()
			}
			for i := range m.queues {
				m.emitted[i]++
				if m.emitted[i] >= zipPrefetch {
					m.emitted[i] = 0
					if i < len(m.subs) && m.subs[i] != nil {
						m.subs[i].Request(zipPrefetch)
					}
				}
			}
			if m.requested != MaxDemand {
				m.requested--
			}
			combiner := m.combiner
			m.mu.Unlock()
			m.actual.OnNext(combiner(row))
			m.mu.Lock()
		}
		m.mu.Unlock()
		if m.wip.Add(-1) == 0 {
			return
		}
	}
}

type zipInner[T, R any] struct {
	main  *zipMain[T, R]
	index int
}

func (i *zipInner[T, R]) OnSubscribe(sub Subscription) { i.main.setSub(i.index, sub) }
func (i *zipInner[T, R]) OnNext(v T) {
	if !i.main.queues[i.index].Offer(v) {
		i.main.onInnerError(overflowError("zip inner queue full"))
		return
	}
	i.main.drain()
}
func (i *zipInner[T, R]) OnError(err error) { i.main.onInnerError(err) }
func (i *zipInner[T, R]) OnComplete()       { i.main.onInnerComplete(i.index) }

// Zip2Publishers is Zip2's own tiny coordinator: same shape as zipMain but
// with two concretely-typed queues instead of a slice, so callers don't
// have to box A and B into a common type.
func Zip2Publishers[A, B, R any](a Publisher[A], b Publisher[B], combiner func(A, B) R) Flux[R] {
	return FromPublisher[R](&zip2Main0[A, B, R]{a: a, b: b, combiner: combiner})
}

type zip2Main0[A, B, R any] struct {
	a        Publisher[A]
	b        Publisher[B]
	combiner func(A, B) R
}

func (z *zip2Main0[A, B, R]) Subscribe(s Subscriber[R]) {
	z.SubscribeCtx(asCoreSubscriber(s, EmptyContext()))
}
func (z *zip2Main0[A, B, R]) SubscribeCtx(actual CoreSubscriber[R]) {
	main := &zip2Main[A, B, R]{actual: actual, combiner: z.combiner, qa: queue.NewBounded[A](zipPrefetch), qb: queue.NewBounded[B](zipPrefetch)}
	actual.OnSubscribe(main)
	SubscribeCtx[A](z.a, &zip2InnerA[A, B, R]{main: main}, actual.Context())
	SubscribeCtx[B](z.b, &zip2InnerB[A, B, R]{main: main}, actual.Context())
}

type zip2Main[A, B, R any] struct {
	actual   CoreSubscriber[R]
	combiner func(A, B) R

	mu        sync.Mutex
	qa        *queue.Bounded[A]
	qb        *queue.Bounded[B]
	subA, subB Subscription
	requested int64
	emitted   int64
	doneA     bool
	doneB     bool
	done      bool
	wip       atomic.Int32
}

func (m *zip2Main[A, B, R]) Request(n int64) {
	if !ValidateRequest[R](n, m.actual) {
		return
	}
	m.mu.Lock()
	m.requested = AddCap(m.requested, n)
	m.mu.Unlock()
	m.drain()
}

func (m *zip2Main[A, B, R]) Cancel() {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	m.done = true
	a, b := m.subA, m.subB
	m.mu.Unlock()
	if a != nil {
		a.Cancel()
	}
	if b != nil {
		b.Cancel()
	}
}

func (m *zip2Main[A, B, R]) onErr(err error) {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		onErrorDropped(m.actual.Context(), err)
		return
	}
	m.done = true
	a, b := m.subA, m.subB
	m.mu.Unlock()
	if a != nil {
		a.Cancel()
	}
	if b != nil {
		b.Cancel()
	}
	m.actual.OnError(err)
}

func (m *zip2Main[A, B, R]) onComplete(sideA bool) {
	m.mu.Lock()
	if sideA {
		m.doneA = true
	} else {
		m.doneB = true
	}
	m.mu.Unlock()
	m.drain()
}

func (m *zip2Main[A, B, R]) finish() {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	m.done = true
	a, b := m.subA, m.subB
	m.mu.Unlock()
	if a != nil {
		a.Cancel()
	}
	if b != nil {
		b.Cancel()
	}
	m.actual.OnComplete()
}

func (m *zip2Main[A, B, R]) drain() {
	if m.wip.Add(1) != 1 {
		return
	}
	for {
		m.mu.Lock()
		for !m.done && (m.requested > 0 || m.requested == MaxDemand) {
			if m.qa.IsEmpty() || m.qb.IsEmpty() {
				break
			}
			va, _ := m.qa.Poll()
			vb, _ := m.qb.Poll()
			if m.requested != MaxDemand {
				m.requested--
			}
			m.emitted++
			if m.emitted >= zipPrefetch {
				m.emitted = 0
				m.subA.Request(zipPrefetch)
				m.subB.Request(zipPrefetch)
			}
			combiner := m.combiner
			m.mu.Unlock()
			m.actual.OnNext(combiner(va, vb))
			m.mu.Lock()
		}
		finished := (m.doneA && m.qa.IsEmpty()) || (m.doneB && m.qb.IsEmpty())
		m.mu.Unlock()
		if finished {
			m.finish()
		}
		if m.wip.Add(-1) == 0 {
			return
		}
	}
}

type zip2InnerA[A, B, R any] struct{ main *zip2Main[A, B, R] }

func (i *zip2InnerA[A, B, R]) OnSubscribe(sub Subscription) {
	i.main.mu.Lock()
	i.main.subA = sub
	i.main.mu.Unlock()
	sub.Request(zipPrefetch)
}
func (i *zip2InnerA[A, B, R]) OnNext(v A) {
	if !i.main.qa.Offer(v) {
		i.main.onErr(overflowError("zip inner queue full"))
		return
	}
	i.main.drain()
}
func (i *zip2InnerA[A, B, R]) OnError(err error) { i.main.onErr(err) }
func (i *zip2InnerA[A, B, R]) OnComplete()       { i.main.onComplete(true) }

type zip2InnerB[A, B, R any] struct{ main *zip2Main[A, B, R] }

func (i *zip2InnerB[A, B, R]) OnSubscribe(sub Subscription) {
	i.main.mu.Lock()
	i.main.subB = sub
	i.main.mu.Unlock()
	sub.Request(zipPrefetch)
}
func (i *zip2InnerB[A, B, R]) OnNext(v B) {
	if !i.main.qb.Offer(v) {
		i.main.onErr(overflowError("zip inner queue full"))
		return
	}
	i.main.drain()
}
func (i *zip2InnerB[A, B, R]) OnError(err error) { i.main.onErr(err) }
func (i *zip2InnerB[A, B, R]) OnComplete()       { i.main.onComplete(false) }
