package flux

import (
	"sync"
	"sync/atomic"

	"github.com/streamwell/flux/internal/subscriptions"
)

// CombineLatest2 emits combiner(latestA, latestB) every time either source
// emits, once both sources have emitted at least once (§4.H'
// "combineLatest(N)").
func CombineLatest2[A, B, R any](a Flux[A], b Flux[B], combiner func(A, B) R) Flux[R] {
	return FromPublisher[R](&combineLatest2Op[A, B, R]{a: a.Publisher(), b: b.Publisher(), combiner: combiner})
}

// CombineLatestSlice is the homogeneous N-ary form: combiner receives a
// slice holding every source's latest value, in source order.
func CombineLatestSlice[T, R any](sources []Flux[T], combiner func([]T) R) Flux[R] {
	return FromPublisher[R](&combineLatestOp[T, R]{sources: sources, combiner: combiner})
}

type combineLatestOp[T, R any] struct {
	sources  []Flux[T]
	combiner func([]T) R
}

func (c *combineLatestOp[T, R]) Subscribe(s Subscriber[R]) {
	c.SubscribeCtx(asCoreSubscriber(s, EmptyContext()))
}
func (c *combineLatestOp[T, R]) SubscribeCtx(actual CoreSubscriber[R]) {
	if len(c.sources) == 0 {
		CompleteSubscriber[R](actual)
		return
	}
	main := &combineLatestMain[T, R]{
		actual:   actual,
		combiner: c.combiner,
		latest:   make([]T, len(c.sources)),
		has:      make([]bool, len(c.sources)),
		subs:     make([]Subscription, len(c.sources)),
		active:   int32(len(c.sources)),
	}
	main.hs = subscriptions.NewHalfSerializer[R](actual)
	actual.OnSubscribe(main)
	for i, src := range c.sources {
		idx := i
		SubscribeCtx[T](src.Publisher(), &combineLatestInner[T, R]{main: main, index: idx}, actual.Context())
	}
}

type combineLatestMain[T, R any] struct {
	actual   CoreSubscriber[R]
	combiner func([]T) R
	// hs routes every terminal OnNext/OnError/OnComplete call that reaches
	// actual through a half-serializer (§4.C), since combineLatest's
	// sources may each be driven by a different producer thread and the
	// mutex below is released before the downstream call is made.
	hs *subscriptions.HalfSerializer[R]

	mu        sync.Mutex
	latest    []T
	has       []bool
	subs      []Subscription
	requested int64
	pending   bool
	done      bool
	active    int32
}

func (m *combineLatestMain[T, R]) Request(n int64) {
	if !ValidateRequest[R](n, m.actual) {
		return
	}
	m.mu.Lock()
	m.requested = AddCap(m.requested, n)
	m.mu.Unlock()
	m.drain()
}

func (m *combineLatestMain[T, R]) Cancel() {
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
}

func (m *combineLatestMain[T, R]) setSub(i int, sub Subscription) {
	m.mu.Lock()
	m.subs[i] = sub
	m.mu.Unlock()
	sub.Request(MaxDemand)
}

func (m *combineLatestMain[T, R]) onNext(index int, v T) {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		onDiscard(m.actual.Context(), v)
		return
	}
	m.latest[index] = v
	m.has[index] = true
	ready := true
	for _, h := range m.has {
		if !h {
			ready = false
			break
		}
	}
	m.mu.Unlock()
	if ready {
		m.drainOne()
	}
}

func (m *combineLatestMain[T, R]) drainOne() {
	m.mu.Lock()
	if m.done || !(m.requested > 0 || m.requested == MaxDemand) {
		m.pending = !m.done
		m.mu.Unlock()
		return
	}
	m.pending = false
	row := append([]T{}, m.latest...)
	if m.requested != MaxDemand {
		m.requested--
	}
	combiner := m.combiner
	m.mu.Unlock()
	m.emit(combiner(row))
}

// emit delivers v through the half-serializer, spinning past a momentary
// EmitFailNonSerialized (another source thread is mid-delivery) rather
// than dropping a value this call has already reserved demand for.
func (m *combineLatestMain[T, R]) emit(v R) {
	for {
		switch m.hs.OnNext(v) {
		case subscriptions.EmitOK, subscriptions.EmitFailTerminated:
			return
		case subscriptions.EmitFailNonSerialized:
			continue
		}
	}
}

// drain flushes any combination that became available while demand was
// exhausted, once Request grants more.
func (m *combineLatestMain[T, R]) drain() {
	m.mu.Lock()
	pending := m.pending
	m.mu.Unlock()
	if pending {
		m.drainOne()
	}
}

func (m *combineLatestMain[T, R]) onError(err error) {
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
	m.hs.OnError(err)
}

func (m *combineLatestMain[T, R]) onComplete() {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	remaining := atomic.AddInt32(&m.active, -1)
	if remaining > 0 {
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
	m.hs.OnComplete()
}

type combineLatestInner[T, R any] struct {
	main  *combineLatestMain[T, R]
	index int
}

func (i *combineLatestInner[T, R]) OnSubscribe(sub Subscription) { i.main.setSub(i.index, sub) }
func (i *combineLatestInner[T, R]) OnNext(v T)                  { i.main.onNext(i.index, v) }
func (i *combineLatestInner[T, R]) OnError(err error)           { i.main.onError(err) }
func (i *combineLatestInner[T, R]) OnComplete()                 { i.main.onComplete() }

// combineLatest2Op is the two-source convenience form, avoiding boxing A
// and B into a shared slice element type.
type combineLatest2Op[A, B, R any] struct {
	a        Publisher[A]
	b        Publisher[B]
	combiner func(A, B) R
}

func (c *combineLatest2Op[A, B, R]) Subscribe(s Subscriber[R]) {
	c.SubscribeCtx(asCoreSubscriber(s, EmptyContext()))
}
func (c *combineLatest2Op[A, B, R]) SubscribeCtx(actual CoreSubscriber[R]) {
	main := &combineLatest2Main[A, B, R]{actual: actual, combiner: c.combiner, active: 2}
	main.hs = subscriptions.NewHalfSerializer[R](actual)
	actual.OnSubscribe(main)
	SubscribeCtx[A](c.a, &combineLatest2InnerA[A, B, R]{main: main}, actual.Context())
	SubscribeCtx[B](c.b, &combineLatest2InnerB[A, B, R]{main: main}, actual.Context())
}

type combineLatest2Main[A, B, R any] struct {
	actual   CoreSubscriber[R]
	combiner func(A, B) R
	hs       *subscriptions.HalfSerializer[R]

	mu         sync.Mutex
	latestA    A
	latestB    B
	hasA, hasB bool
	subA, subB Subscription
	requested  int64
	done       bool
	active     int32
}

func (m *combineLatest2Main[A, B, R]) Request(n int64) {
	if !ValidateRequest[R](n, m.actual) {
		return
	}
	m.mu.Lock()
	m.requested = AddCap(m.requested, n)
	m.mu.Unlock()
}

func (m *combineLatest2Main[A, B, R]) Cancel() {
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

func (m *combineLatest2Main[A, B, R]) onA(v A) {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		onDiscard(m.actual.Context(), v)
		return
	}
	m.latestA = v
	m.hasA = true
	ready := m.hasA && m.hasB
	if !ready || !(m.requested > 0 || m.requested == MaxDemand) {
		m.mu.Unlock()
		return
	}
	if m.requested != MaxDemand {
		m.requested--
	}
	a, b, combiner := m.latestA, m.latestB, m.combiner
	m.mu.Unlock()
	m.emit(combiner(a, b))
}

// emit mirrors combineLatestMain.emit: route through the half-serializer,
// spinning past a momentary EmitFailNonSerialized.
func (m *combineLatest2Main[A, B, R]) emit(v R) {
	for {
		switch m.hs.OnNext(v) {
		case subscriptions.EmitOK, subscriptions.EmitFailTerminated:
			return
		case subscriptions.EmitFailNonSerialized:
			continue
		}
	}
}

func (m *combineLatest2Main[A, B, R]) onB(v B) {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		onDiscard(m.actual.Context(), v)
		return
	}
	m.latestB = v
	m.hasB = true
	ready := m.hasA && m.hasB
	if !ready || !(m.requested > 0 || m.requested == MaxDemand) {
		m.mu.Unlock()
		return
	}
	if m.requested != MaxDemand {
		m.requested--
	}
	a, b, combiner := m.latestA, m.latestB, m.combiner
	m.mu.Unlock()
	m.emit(combiner(a, b))
}

func (m *combineLatest2Main[A, B, R]) onError(err error) {
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
	m.hs.OnError(err)
}

func (m *combineLatest2Main[A, B, R]) onComplete() {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	remaining := atomic.AddInt32(&m.active, -1)
	if remaining > 0 {
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
	m.hs.OnComplete()
}

type combineLatest2InnerA[A, B, R any] struct{ main *combineLatest2Main[A, B, R] }

func (i *combineLatest2InnerA[A, B, R]) OnSubscribe(sub Subscription) {
	i.main.mu.Lock()
	i.main.subA = sub
	i.main.mu.Unlock()
	sub.Request(MaxDemand)
}
func (i *combineLatest2InnerA[A, B, R]) OnNext(v A)        { i.main.onA(v) }
func (i *combineLatest2InnerA[A, B, R]) OnError(err error) { i.main.onError(err) }
func (i *combineLatest2InnerA[A, B, R]) OnComplete()       { i.main.onComplete() }

type combineLatest2InnerB[A, B, R any] struct{ main *combineLatest2Main[A, B, R] }

func (i *combineLatest2InnerB[A, B, R]) OnSubscribe(sub Subscription) {
	i.main.mu.Lock()
	i.main.subB = sub
	i.main.mu.Unlock()
	sub.Request(MaxDemand)
}
func (i *combineLatest2InnerB[A, B, R]) OnNext(v B)        { i.main.onB(v) }
func (i *combineLatest2InnerB[A, B, R]) OnError(err error) { i.main.onError(err) }
func (i *combineLatest2InnerB[A, B, R]) OnComplete()       { i.main.onComplete() }
