package flux

import (
	"sync"

	"github.com/streamwell/flux/internal/subscriptions"
)

// BufferByBoundary is the single-source stateful operator this module
// treats as representative of the whole family (§4.G): main emits T,
// boundary emits U, and every boundary onNext atomically swaps the
// accumulating buffer out and emits it downstream. factory is called once
// at construction and again after every emitted buffer.
func BufferByBoundary[T, U any](main Flux[T], boundary Flux[U], factory func() []T) Flux[[]T] {
	return FromPublisher[[]T](&bufferBoundaryOp[T, U]{main: main.Publisher(), boundary: boundary.Publisher(), factory: factory})
}

type bufferBoundaryOp[T, U any] struct {
	main     Publisher[T]
	boundary Publisher[U]
	factory  func() []T
}

func (b *bufferBoundaryOp[T, U]) Subscribe(s Subscriber[[]T]) {
	b.SubscribeCtx(asCoreSubscriber(s, EmptyContext()))
}

func (b *bufferBoundaryOp[T, U]) SubscribeCtx(actual CoreSubscriber[[]T]) {
	main := &bufferBoundaryMain[T, U]{actual: actual, factory: b.factory}
	main.current = main.factory()
	main.hs = subscriptions.NewHalfSerializer[[]T](actual)
	actual.OnSubscribe(main)
	SubscribeCtx[T](b.main, &bufferBoundaryMainSubscriber[T, U]{main: main}, actual.Context())
	SubscribeCtx[U](b.boundary, &bufferBoundaryOtherSubscriber[T, U]{main: main}, actual.Context())
}

// bufferBoundaryMain is the operator-local critical section §4.G names:
// every mutation of current happens while mu is held. It implements
// Subscription so it can hand itself to the downstream as the composite
// cancel/request point for both upstream legs.
type bufferBoundaryMain[T, U any] struct {
	actual CoreSubscriber[[]T]
	// hs serializes buffer emission against main/boundary terminal
	// signals (§4.C), since main and boundary are each free to run on
	// their own producer goroutine.
	hs *subscriptions.HalfSerializer[[]T]

	mu         sync.Mutex
	current    []T
	closed     bool
	factory    func() []T
	requested  int64
	mainSub    Subscription
	otherSub   Subscription
	terminated bool
}

func (m *bufferBoundaryMain[T, U]) Request(n int64) {
	if n <= 0 {
		m.actual.OnError(protocolError("request must be positive"))
		return
	}
	m.mu.Lock()
	m.requested = AddCap(m.requested, n)
	m.mu.Unlock()
}

func (m *bufferBoundaryMain[T, U]) Cancel() {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		return
	}
	m.terminated = true
	buf := m.current
	m.current = nil
	main, other := m.mainSub, m.otherSub
	m.mu.Unlock()
	if main != nil {
		main.Cancel()
	}
	if other != nil {
		other.Cancel()
	}
	for _, v := range buf {
		onDiscard(m.actual.Context(), v)
	}
}

func (m *bufferBoundaryMain[T, U]) onMainSubscribe(sub Subscription) {
	m.mu.Lock()
	m.mainSub = sub
	m.mu.Unlock()
	sub.Request(MaxDemand)
}

func (m *bufferBoundaryMain[T, U]) onOtherSubscribe(sub Subscription) {
	m.mu.Lock()
	m.otherSub = sub
	m.mu.Unlock()
	sub.Request(MaxDemand)
}

func (m *bufferBoundaryMain[T, U]) onMainNext(v T) {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		onDiscard(m.actual.Context(), v)
		return
	}
	m.current = append(m.current, v)
	m.mu.Unlock()
}

func (m *bufferBoundaryMain[T, U]) onBoundaryNext() {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		return
	}
	old := m.current
	if len(old) == 0 {
		m.mu.Unlock()
		return
	}
	if m.requested < 1 {
		m.terminated = true
		m.current = nil
		main, other := m.mainSub, m.otherSub
		m.mu.Unlock()
		if main != nil {
			main.Cancel()
		}
		if other != nil {
			other.Cancel()
		}
		for _, v := range old {
			onDiscard(m.actual.Context(), v)
		}
		m.hs.OnError(overflowError("buffer boundary fired with no downstream demand"))
		return
	}
	m.current = m.factory()
	m.requested = SubOrZero(m.requested, 1)
	m.mu.Unlock()
	m.emit(old)
}

// emit mirrors combineLatestMain.emit: route through the half-serializer,
// spinning past a momentary EmitFailNonSerialized.
func (m *bufferBoundaryMain[T, U]) emit(v []T) {
	for {
		switch m.hs.OnNext(v) {
		case subscriptions.EmitOK, subscriptions.EmitFailTerminated:
			return
		case subscriptions.EmitFailNonSerialized:
			continue
		}
	}
}

func (m *bufferBoundaryMain[T, U]) onMainError(err error) { m.terminate(err) }
func (m *bufferBoundaryMain[T, U]) onOtherError(err error) { m.terminate(err) }

func (m *bufferBoundaryMain[T, U]) terminate(err error) {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		onErrorDropped(m.actual.Context(), err)
		return
	}
	m.terminated = true
	buf := m.current
	m.current = nil
	main, other := m.mainSub, m.otherSub
	m.mu.Unlock()
	if main != nil {
		main.Cancel()
	}
	if other != nil {
		other.Cancel()
	}
	for _, v := range buf {
		onDiscard(m.actual.Context(), v)
	}
	m.hs.OnError(err)
}

func (m *bufferBoundaryMain[T, U]) onMainComplete() {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		return
	}
	m.terminated = true
	final := m.current
	m.current = nil
	canEmit := m.requested >= 1
	other := m.otherSub
	m.mu.Unlock()
	if other != nil {
		other.Cancel()
	}
	if len(final) > 0 {
		if canEmit {
			m.emit(final)
		} else {
			for _, v := range final {
				onDiscard(m.actual.Context(), v)
			}
		}
	}
	m.hs.OnComplete()
}

type bufferBoundaryMainSubscriber[T, U any] struct {
	main *bufferBoundaryMain[T, U]
}

func (s *bufferBoundaryMainSubscriber[T, U]) OnSubscribe(sub Subscription) { s.main.onMainSubscribe(sub) }
func (s *bufferBoundaryMainSubscriber[T, U]) OnNext(v T)                  { s.main.onMainNext(v) }
func (s *bufferBoundaryMainSubscriber[T, U]) OnError(err error)           { s.main.onMainError(err) }
func (s *bufferBoundaryMainSubscriber[T, U]) OnComplete()                 { s.main.onMainComplete() }

type bufferBoundaryOtherSubscriber[T, U any] struct {
	main *bufferBoundaryMain[T, U]
}

func (s *bufferBoundaryOtherSubscriber[T, U]) OnSubscribe(sub Subscription) {
	s.main.onOtherSubscribe(sub)
}
func (s *bufferBoundaryOtherSubscriber[T, U]) OnNext(U)          { s.main.onBoundaryNext() }
func (s *bufferBoundaryOtherSubscriber[T, U]) OnError(err error) { s.main.onOtherError(err) }
func (s *bufferBoundaryOtherSubscriber[T, U]) OnComplete()       {}
