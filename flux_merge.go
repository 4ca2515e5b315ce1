package flux

import (
	"sync"
	"sync/atomic"

	"github.com/streamwell/flux/internal/queue"
)

// mergePrefetch is the per-inner queue capacity merge uses to decouple an
// inner's own demand from the drain loop's pace (§4.H' "shared bounded
// queue per inner").
const mergePrefetch = 128

// Merge subscribes to up to concurrency sources at once (the remainder
// queued and subscribed as earlier ones complete), draining every inner's
// bounded queue round-robin as downstream demand allows (§4.H' "merge(N)").
// The first error from any source stops everything immediately
// (fail-fast); MergeDelayError gathers every source's error instead and
// reports the combination at the end.
func Merge[T any](concurrency int, sources ...Flux[T]) Flux[T] {
	return FromPublisher[T](&mergeOp[T]{sources: sources, concurrency: concurrency})
}

// MergeDelayError is Merge's delayError variant: every source runs to
// completion or error; the combined error (via multierr) is delivered
// only once no source has anything left to contribute.
func MergeDelayError[T any](concurrency int, sources ...Flux[T]) Flux[T] {
	return FromPublisher[T](&mergeOp[T]{sources: sources, concurrency: concurrency, delayError: true})
}

type mergeOp[T any] struct {
	sources     []Flux[T]
	concurrency int
	delayError  bool
}

func (m *mergeOp[T]) Subscribe(s Subscriber[T]) { m.SubscribeCtx(asCoreSubscriber(s, EmptyContext())) }
func (m *mergeOp[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	if len(m.sources) == 0 {
		CompleteSubscriber[T](actual)
		return
	}
	concurrency := m.concurrency
	if concurrency <= 0 || concurrency > len(m.sources) {
		concurrency = len(m.sources)
	}
	main := &mergeMain[T]{actual: actual, sources: m.sources, delayError: m.delayError}
	actual.OnSubscribe(main)
	for i := 0; i < concurrency; i++ {
		main.subscribeNext()
	}
}

type mergeMain[T any] struct {
	actual     CoreSubscriber[T]
	delayError bool

	mu         sync.Mutex
	sources    []Flux[T]
	nextIndex  int
	inners     []*mergeInner[T]
	active     int
	cancelled  bool
	errored    bool
	errs       []error
	requested  int64
	wip        atomic.Int32
}

func (m *mergeMain[T]) Request(n int64) {
	if !ValidateRequest[T](n, m.actual) {
		return
	}
	m.mu.Lock()
	m.requested = AddCap(m.requested, n)
	m.mu.Unlock()
	m.drain()
}

func (m *mergeMain[T]) Cancel() {
	m.mu.Lock()
	if m.cancelled {
		m.mu.Unlock()
		return
	}
	m.cancelled = true
	inners := append([]*mergeInner[T]{}, m.inners...)
	m.mu.Unlock()
	for _, in := range inners {
		in.cancelUpstream()
	}
}

func (m *mergeMain[T]) subscribeNext() {
	m.mu.Lock()
	if m.cancelled || m.nextIndex >= len(m.sources) {
		m.mu.Unlock()
		return
	}
	src := m.sources[m.nextIndex]
	m.nextIndex++
	in := &mergeInner[T]{main: m, q: queue.NewBounded[T](mergePrefetch)}
	m.inners = append(m.inners, in)
	m.active++
	m.mu.Unlock()
	SubscribeCtx[T](src.Publisher(), in, m.actual.Context())
}

func (m *mergeMain[T]) onInnerError(err error) {
	if !m.delayError {
		m.mu.Lock()
		if m.errored {
			m.mu.Unlock()
			onErrorDropped(m.actual.Context(), err)
			return
		}
		m.errored = true
		inners := append([]*mergeInner[T]{}, m.inners...)
		m.mu.Unlock()
		for _, in := range inners {
			in.cancelUpstream()
			in.q.Clear()
		}
		m.actual.OnError(err)
		return
	}
	m.mu.Lock()
	m.errs = append(m.errs, err)
	m.mu.Unlock()
	m.onInnerDone()
}

func (m *mergeMain[T]) onInnerDone() {
	m.mu.Lock()
	m.active--
	remaining := m.active
	more := m.nextIndex < len(m.sources)
	m.mu.Unlock()
	if remaining == 0 && !more {
		m.drainFinal()
		return
	}
	m.subscribeNext()
	m.drain()
}

func (m *mergeMain[T]) drainFinal() {
	m.drain()
	m.mu.Lock()
	errs := m.errs
	errored := m.errored
	m.mu.Unlock()
	if errored {
		return
	}
	if len(errs) > 0 {
		m.actual.OnError(CombineErrors(errs...))
		return
	}
	m.mu.Lock()
	empty := true
	for _, in := range m.inners {
		if !in.q.IsEmpty() {
			empty = false
			break
		}
	}
	m.mu.Unlock()
	if empty {
		m.actual.OnComplete()
	}
}

// drain is the round-robin WIP-guarded loop merge drains its inner queues
// with (§5 "drain loop").
func (m *mergeMain[T]) drain() {
	if m.wip.Add(1) != 1 {
		return
	}
	for {
		m.mu.Lock()
		r := m.requested
		inners := append([]*mergeInner[T]{}, m.inners...)
		m.mu.Unlock()

		for _, in := range inners {
			if r <= 0 && r != MaxDemand {
				break
			}
			v, ok := in.q.Poll()
			if !ok {
				continue
			}
			m.actual.OnNext(v)
			if r != MaxDemand {
				r--
			}
			in.requestMore(1)
		}
		m.mu.Lock()
		m.requested = r
		m.mu.Unlock()

		if m.wip.Add(-1) == 0 {
			return
		}
	}
}

type mergeInner[T any] struct {
	main *mergeMain[T]
	q    *queue.Bounded[T]
	sub  Subscription
}

func (i *mergeInner[T]) OnSubscribe(sub Subscription) {
	i.sub = sub
	sub.Request(int64(mergePrefetch))
}
func (i *mergeInner[T]) OnNext(v T) {
	if !i.q.Offer(v) {
		wrapped := onOperatorError(i.main.actual.Context(), i.sub, overflowError("merge inner queue full"), true, v)
		i.main.onInnerError(wrapped)
		return
	}
	i.main.drain()
}
func (i *mergeInner[T]) OnError(err error) { i.main.onInnerError(err) }
func (i *mergeInner[T]) OnComplete()       { i.main.onInnerDone() }

func (i *mergeInner[T]) requestMore(n int64) {
	if i.sub != nil {
		i.sub.Request(n)
	}
}
func (i *mergeInner[T]) cancelUpstream() {
	if i.sub != nil {
		i.sub.Cancel()
	}
}
