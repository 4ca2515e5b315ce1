package flux

import (
	"sync"

	"github.com/streamwell/flux/internal/subscriptions"
)

// WindowByBoundary is Window's boundary-driven form, the streaming
// sibling of BufferByBoundary (§4.G "window ... boundary"): instead of
// collecting each segment into a slice before emitting, each segment is
// emitted immediately as its own live Flux[T] (backed by a Sink), and
// upstream values are pushed into whichever window is currently open as
// they arrive.
func WindowByBoundary[T, U any](main Flux[T], boundary Flux[U]) Flux[Flux[T]] {
	return FromPublisher[Flux[T]](&windowBoundaryOp[T, U]{main: main.Publisher(), boundary: boundary.Publisher()})
}

type windowBoundaryOp[T, U any] struct {
	main     Publisher[T]
	boundary Publisher[U]
}

func (w *windowBoundaryOp[T, U]) Subscribe(s Subscriber[Flux[T]]) {
	w.SubscribeCtx(asCoreSubscriber(s, EmptyContext()))
}

func (w *windowBoundaryOp[T, U]) SubscribeCtx(actual CoreSubscriber[Flux[T]]) {
	main := &windowBoundaryMain[T, U]{actual: actual}
	main.hs = subscriptions.NewHalfSerializer[Flux[T]](actual)
	actual.OnSubscribe(main)
	SubscribeCtx[T](w.main, &windowBoundaryMainSubscriber[T, U]{main: main}, actual.Context())
	SubscribeCtx[U](w.boundary, &windowBoundaryOtherSubscriber[T, U]{main: main}, actual.Context())
}

type windowBoundaryMain[T, U any] struct {
	actual CoreSubscriber[Flux[T]]
	// hs serializes window emission against the main/boundary terminal
	// signals (§4.C), since the main source and the boundary pulses are
	// each free to run on their own producer goroutine.
	hs *subscriptions.HalfSerializer[Flux[T]]

	mu         sync.Mutex
	current    *Sink[T]
	requested  int64
	opened     bool
	terminated bool
	mainSub    Subscription
	otherSub   Subscription
}

func (m *windowBoundaryMain[T, U]) Request(n int64) {
	if n <= 0 {
		m.actual.OnError(protocolError("request must be positive"))
		return
	}
	m.mu.Lock()
	m.requested = AddCap(m.requested, n)
	needOpen := !m.opened && !m.terminated
	m.mu.Unlock()
	if needOpen {
		m.openWindow()
	}
}

func (m *windowBoundaryMain[T, U]) Cancel() {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		return
	}
	m.terminated = true
	cur := m.current
	main, other := m.mainSub, m.otherSub
	m.mu.Unlock()
	if main != nil {
		main.Cancel()
	}
	if other != nil {
		other.Cancel()
	}
	if cur != nil {
		cur.TryEmitComplete()
	}
}

func (m *windowBoundaryMain[T, U]) openWindow() {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		return
	}
	if m.requested < 1 {
		m.mu.Unlock()
		return
	}
	m.requested = SubOrZero(m.requested, 1)
	m.opened = true
	next := NewSink[T]()
	m.current = next
	m.mu.Unlock()
	m.emit(next.AsFlux())
}

// emit delivers w through the half-serializer, spinning past a momentary
// EmitFailNonSerialized rather than dropping a window this call has
// already reserved demand for.
func (m *windowBoundaryMain[T, U]) emit(w Flux[T]) {
	for {
		switch m.hs.OnNext(w) {
		case subscriptions.EmitOK, subscriptions.EmitFailTerminated:
			return
		case subscriptions.EmitFailNonSerialized:
			continue
		}
	}
}

func (m *windowBoundaryMain[T, U]) onMainSubscribe(sub Subscription) {
	m.mu.Lock()
	m.mainSub = sub
	m.mu.Unlock()
	sub.Request(MaxDemand)
}

func (m *windowBoundaryMain[T, U]) onOtherSubscribe(sub Subscription) {
	m.mu.Lock()
	m.otherSub = sub
	m.mu.Unlock()
	sub.Request(MaxDemand)
}

func (m *windowBoundaryMain[T, U]) onMainNext(v T) {
	m.mu.Lock()
	cur := m.current
	m.mu.Unlock()
	if cur == nil {
		onDiscard(m.actual.Context(), v)
		return
	}
	if r := cur.TryEmitNext(v); r != EmitOK {
		onDiscard(m.actual.Context(), v)
	}
}

func (m *windowBoundaryMain[T, U]) onBoundaryNext() {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		return
	}
	cur := m.current
	m.opened = false
	m.mu.Unlock()
	if cur != nil {
		cur.TryEmitComplete()
	}
	m.openWindow()
}

func (m *windowBoundaryMain[T, U]) terminate(err error) {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		if err != nil {
			onErrorDropped(m.actual.Context(), err)
		}
		return
	}
	m.terminated = true
	cur := m.current
	main, other := m.mainSub, m.otherSub
	m.mu.Unlock()
	if main != nil {
		main.Cancel()
	}
	if other != nil {
		other.Cancel()
	}
	if cur != nil {
		if err != nil {
			cur.TryEmitError(err)
		} else {
			cur.TryEmitComplete()
		}
	}
	if err != nil {
		m.hs.OnError(err)
	} else {
		m.hs.OnComplete()
	}
}

func (m *windowBoundaryMain[T, U]) onMainError(err error)    { m.terminate(err) }
func (m *windowBoundaryMain[T, U]) onMainComplete()          { m.terminate(nil) }
func (m *windowBoundaryMain[T, U]) onOtherError(err error)   { m.terminate(err) }

type windowBoundaryMainSubscriber[T, U any] struct {
	main *windowBoundaryMain[T, U]
}

func (s *windowBoundaryMainSubscriber[T, U]) OnSubscribe(sub Subscription) { s.main.onMainSubscribe(sub) }
func (s *windowBoundaryMainSubscriber[T, U]) OnNext(v T)                  { s.main.onMainNext(v) }
func (s *windowBoundaryMainSubscriber[T, U]) OnError(err error)           { s.main.onMainError(err) }
func (s *windowBoundaryMainSubscriber[T, U]) OnComplete()                 { s.main.onMainComplete() }

type windowBoundaryOtherSubscriber[T, U any] struct {
	main *windowBoundaryMain[T, U]
}

func (s *windowBoundaryOtherSubscriber[T, U]) OnSubscribe(sub Subscription) {
	s.main.onOtherSubscribe(sub)
}
func (s *windowBoundaryOtherSubscriber[T, U]) OnNext(U)          { s.main.onBoundaryNext() }
func (s *windowBoundaryOtherSubscriber[T, U]) OnError(err error) { s.main.onOtherError(err) }
func (s *windowBoundaryOtherSubscriber[T, U]) OnComplete()       {}
