package flux

import "sync"

// Amb subscribes to every source at once; whichever delivers the first
// signal (OnNext, OnError, or OnComplete) wins the race, and every other
// source is cancelled immediately (§4.H' "amb/firstWithSignal").
func Amb[T any](sources ...Flux[T]) Flux[T] {
	return FromPublisher[T](&ambOp[T]{sources: sources})
}

type ambOp[T any] struct {
	sources []Flux[T]
}

func (a *ambOp[T]) Subscribe(s Subscriber[T]) { a.SubscribeCtx(asCoreSubscriber(s, EmptyContext())) }
func (a *ambOp[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	if len(a.sources) == 0 {
		CompleteSubscriber[T](actual)
		return
	}
	if len(a.sources) == 1 {
		SubscribeCtx[T](a.sources[0].Publisher(), actual, actual.Context())
		return
	}
	main := &ambMain[T]{actual: actual, subs: make([]Subscription, len(a.sources))}
	actual.OnSubscribe(main)
	for i, src := range a.sources {
		idx := i
		SubscribeCtx[T](src.Publisher(), &ambInner[T]{main: main, index: idx}, actual.Context())
	}
}

type ambMain[T any] struct {
	actual CoreSubscriber[T]

	mu        sync.Mutex
	subs      []Subscription
	winner    int
	decided   bool
	cancelled bool
	requested int64
}

func (m *ambMain[T]) Request(n int64) {
	if !ValidateRequest[T](n, m.actual) {
		return
	}
	m.mu.Lock()
	m.requested = AddCap(m.requested, n)
	decided := m.decided
	winner := m.winner
	subs := append([]Subscription{}, m.subs...)
	m.mu.Unlock()
	if !decided {
		for _, s := range subs {
			if s != nil {
				s.Request(n)
			}
		}
	} else if winner < len(subs) && subs[winner] != nil {
		subs[winner].Request(n)
	}
}

func (m *ambMain[T]) Cancel() {
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

func (m *ambMain[T]) setSub(i int, sub Subscription) {
	m.mu.Lock()
	if m.cancelled {
		m.mu.Unlock()
		sub.Cancel()
		return
	}
	if m.decided && m.winner != i {
		m.mu.Unlock()
		sub.Cancel()
		return
	}
	m.subs[i] = sub
	requested := m.requested
	m.mu.Unlock()
	if requested > 0 {
		sub.Request(requested)
	}
}

// tryWin decides the race in favor of index i the first time any source
// signals; every other source is cancelled right away.
func (m *ambMain[T]) tryWin(i int) bool {
	m.mu.Lock()
	if m.decided {
		won := m.winner == i
		m.mu.Unlock()
		return won
	}
	m.decided = true
	m.winner = i
	losers := make([]Subscription, 0, len(m.subs))
	for idx, s := range m.subs {
		if idx != i && s != nil {
			losers = append(losers, s)
		}
	}
	m.mu.Unlock()
	for _, s := range losers {
		s.Cancel()
	}
	return true
}

type ambInner[T any] struct {
	main  *ambMain[T]
	index int
}

func (i *ambInner[T]) OnSubscribe(sub Subscription) { i.main.setSub(i.index, sub) }
func (i *ambInner[T]) OnNext(v T) {
	if !i.main.tryWin(i.index) {
		onDiscard(i.main.actual.Context(), v)
		return
	}
	i.main.actual.OnNext(v)
}
func (i *ambInner[T]) OnError(err error) {
	if !i.main.tryWin(i.index) {
		onErrorDropped(i.main.actual.Context(), err)
		return
	}
	i.main.actual.OnError(err)
}
func (i *ambInner[T]) OnComplete() {
	if !i.main.tryWin(i.index) {
		return
	}
	i.main.actual.OnComplete()
}
