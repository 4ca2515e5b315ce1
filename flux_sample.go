package flux

import (
	"sync"

	"github.com/streamwell/flux/internal/subscriptions"
)

// Sample emits the most recent main value whenever sampler ticks,
// discarding any value sampler never got a chance to pick up (§4.G
// "sample").
func Sample[T, U any](main Flux[T], sampler Flux[U]) Flux[T] {
	return FromPublisher[T](&sampleOp[T, U]{main: main.Publisher(), sampler: sampler.Publisher()})
}

type sampleOp[T, U any] struct {
	main    Publisher[T]
	sampler Publisher[U]
}

func (s *sampleOp[T, U]) Subscribe(sub Subscriber[T]) {
	s.SubscribeCtx(asCoreSubscriber(sub, EmptyContext()))
}
func (s *sampleOp[T, U]) SubscribeCtx(actual CoreSubscriber[T]) {
	main := &sampleMain[T, U]{actual: actual}
	main.hs = subscriptions.NewHalfSerializer[T](actual)
	actual.OnSubscribe(main)
	SubscribeCtx[T](s.main, &sampleMainSubscriber[T, U]{main: main}, actual.Context())
	SubscribeCtx[U](s.sampler, &sampleOtherSubscriber[T, U]{main: main}, actual.Context())
}

type sampleMain[T, U any] struct {
	actual CoreSubscriber[T]
	// hs serializes sampled emissions against main/sampler terminal
	// signals (§4.C), since main and sampler are each free to run on
	// their own producer goroutine.
	hs *subscriptions.HalfSerializer[T]

	mu         sync.Mutex
	has        bool
	latest     T
	terminated bool
	mainSub    Subscription
	otherSub   Subscription
}

func (m *sampleMain[T, U]) Request(n int64) {
	m.mu.Lock()
	main := m.mainSub
	m.mu.Unlock()
	if main != nil {
		main.Request(MaxDemand)
	}
}

func (m *sampleMain[T, U]) Cancel() {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		return
	}
	m.terminated = true
	main, other := m.mainSub, m.otherSub
	has, v := m.has, m.latest
	m.has = false
	m.mu.Unlock()
	if main != nil {
		main.Cancel()
	}
	if other != nil {
		other.Cancel()
	}
	if has {
		onDiscard(m.actual.Context(), v)
	}
}

func (m *sampleMain[T, U]) onMainSubscribe(sub Subscription) {
	m.mu.Lock()
	m.mainSub = sub
	m.mu.Unlock()
	sub.Request(MaxDemand)
}

func (m *sampleMain[T, U]) onOtherSubscribe(sub Subscription) {
	m.mu.Lock()
	m.otherSub = sub
	m.mu.Unlock()
	sub.Request(MaxDemand)
}

func (m *sampleMain[T, U]) onMainNext(v T) {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		onDiscard(m.actual.Context(), v)
		return
	}
	if m.has {
		onDiscard(m.actual.Context(), m.latest)
	}
	m.has = true
	m.latest = v
	m.mu.Unlock()
}

func (m *sampleMain[T, U]) onTick() {
	m.mu.Lock()
	if m.terminated || !m.has {
		m.mu.Unlock()
		return
	}
	v := m.latest
	m.has = false
	m.mu.Unlock()
	m.emit(v)
}

// emit mirrors combineLatestMain.emit: route through the half-serializer,
// spinning past a momentary EmitFailNonSerialized.
func (m *sampleMain[T, U]) emit(v T) {
	for {
		switch m.hs.OnNext(v) {
		case subscriptions.EmitOK, subscriptions.EmitFailTerminated:
			return
		case subscriptions.EmitFailNonSerialized:
			continue
		}
	}
}

func (m *sampleMain[T, U]) terminate(err error) {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		if err != nil {
			onErrorDropped(m.actual.Context(), err)
		}
		return
	}
	m.terminated = true
	main, other := m.mainSub, m.otherSub
	has, v := m.has, m.latest
	m.has = false
	m.mu.Unlock()
	if main != nil {
		main.Cancel()
	}
	if other != nil {
		other.Cancel()
	}
	if has {
		onDiscard(m.actual.Context(), v)
	}
	if err != nil {
		m.hs.OnError(err)
	} else {
		m.hs.OnComplete()
	}
}

type sampleMainSubscriber[T, U any] struct{ main *sampleMain[T, U] }

func (s *sampleMainSubscriber[T, U]) OnSubscribe(sub Subscription) { s.main.onMainSubscribe(sub) }
func (s *sampleMainSubscriber[T, U]) OnNext(v T)                  { s.main.onMainNext(v) }
func (s *sampleMainSubscriber[T, U]) OnError(err error)           { s.main.terminate(err) }
func (s *sampleMainSubscriber[T, U]) OnComplete()                 { s.main.terminate(nil) }

type sampleOtherSubscriber[T, U any] struct{ main *sampleMain[T, U] }

func (s *sampleOtherSubscriber[T, U]) OnSubscribe(sub Subscription) { s.main.onOtherSubscribe(sub) }
func (s *sampleOtherSubscriber[T, U]) OnNext(U)                    { s.main.onTick() }
func (s *sampleOtherSubscriber[T, U]) OnError(error)               {}
func (s *sampleOtherSubscriber[T, U]) OnComplete()                 {}
