package flux

import (
	"sync"

	"github.com/streamwell/flux/internal/subscriptions"
)

// SwitchMap subscribes to the Publisher[R] fn derives from each upstream
// value, cancelling whatever inner sequence was still active the moment a
// new upstream value arrives — only the latest inner's signals ever reach
// downstream (§4.H' "switchMap: ... cancel previous inner on new value").
func SwitchMap[T, R any](f Flux[T], fn func(T) Publisher[R]) Flux[R] {
	return FromPublisher[R](&switchMapOp[T, R]{source: f.Publisher(), fn: fn})
}

type switchMapOp[T, R any] struct {
	source Publisher[T]
	fn     func(T) Publisher[R]
}

func (s *switchMapOp[T, R]) Subscribe(sub Subscriber[R]) {
	s.SubscribeCtx(asCoreSubscriber(sub, EmptyContext()))
}
func (s *switchMapOp[T, R]) SubscribeCtx(actual CoreSubscriber[R]) {
	main := &switchMapMain[T, R]{actual: actual, fn: s.fn}
	main.hs = subscriptions.NewHalfSerializer[R](actual)
	SubscribeCtx[T](s.source, main, actual.Context())
}

type switchMapMain[T, R any] struct {
	actual CoreSubscriber[R]
	fn     func(T) Publisher[R]
	// hs serializes the active inner's emissions against the outer
	// source's own terminal signals (§4.C), since the outer source and
	// whichever inner is currently live may each run on their own
	// producer goroutine.
	hs *subscriptions.HalfSerializer[R]

	mu         sync.Mutex
	sourceSub  Subscription
	inner      *switchMapInner[T, R]
	generation int64
	requested  int64
	sourceDone bool
	innerDone  bool
	terminated bool
}

func (m *switchMapMain[T, R]) OnSubscribe(sub Subscription) {
	m.mu.Lock()
	m.sourceSub = sub
	m.mu.Unlock()
	actualSub := &switchMapSubscription[T, R]{main: m}
	m.actual.OnSubscribe(actualSub)
	sub.Request(MaxDemand)
}

func (m *switchMapMain[T, R]) OnNext(v T) {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		onDiscard(m.actual.Context(), v)
		return
	}
	m.generation++
	gen := m.generation
	prev := m.inner
	m.inner = nil
	m.innerDone = false
	requested := m.requested
	m.mu.Unlock()
	if prev != nil {
		prev.cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			m.terminate(RecoverOperatorError(r))
		}
	}()
	pub := m.fn(v)
	inner := &switchMapInner[T, R]{main: m, generation: gen}
	m.mu.Lock()
	m.inner = inner
	m.mu.Unlock()
	SubscribeCtx[R](pub, inner, m.actual.Context())
	if requested > 0 || requested == MaxDemand {
		inner.request(requested)
	}
}

func (m *switchMapMain[T, R]) OnError(err error) { m.terminate(err) }

func (m *switchMapMain[T, R]) OnComplete() {
	m.mu.Lock()
	m.sourceDone = true
	innerActive := m.inner != nil && !m.innerDone
	m.mu.Unlock()
	if !innerActive {
		m.finish()
	}
}

func (m *switchMapMain[T, R]) request(n int64) {
	m.mu.Lock()
	m.requested = AddCap(m.requested, n)
	inner := m.inner
	sourceSub := m.sourceSub
	m.mu.Unlock()
	if inner != nil {
		inner.request(n)
	}
	if sourceSub != nil {
		sourceSub.Request(1)
	}
}

func (m *switchMapMain[T, R]) cancel() {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		return
	}
	m.terminated = true
	sourceSub, inner := m.sourceSub, m.inner
	m.mu.Unlock()
	if sourceSub != nil {
		sourceSub.Cancel()
	}
	if inner != nil {
		inner.cancel()
	}
}

func (m *switchMapMain[T, R]) onInnerNext(gen int64, v R) {
	m.mu.Lock()
	if m.generation != gen || m.terminated {
		m.mu.Unlock()
		onDiscard(m.actual.Context(), v)
		return
	}
	m.mu.Unlock()
	m.emit(v)
}

// emit mirrors combineLatestMain.emit: route through the half-serializer,
// spinning past a momentary EmitFailNonSerialized.
func (m *switchMapMain[T, R]) emit(v R) {
	for {
		switch m.hs.OnNext(v) {
		case subscriptions.EmitOK, subscriptions.EmitFailTerminated:
			return
		case subscriptions.EmitFailNonSerialized:
			continue
		}
	}
}

func (m *switchMapMain[T, R]) onInnerError(gen int64, err error) {
	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.terminate(err)
}

func (m *switchMapMain[T, R]) onInnerComplete(gen int64) {
	m.mu.Lock()
	if m.generation != gen {
		m.mu.Unlock()
		return
	}
	m.innerDone = true
	sourceDone := m.sourceDone
	sourceSub := m.sourceSub
	m.mu.Unlock()
	if sourceDone {
		m.finish()
	} else if sourceSub != nil {
		sourceSub.Request(1)
	}
}

func (m *switchMapMain[T, R]) terminate(err error) {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		onErrorDropped(m.actual.Context(), err)
		return
	}
	m.terminated = true
	sourceSub, inner := m.sourceSub, m.inner
	m.mu.Unlock()
	if sourceSub != nil {
		sourceSub.Cancel()
	}
	if inner != nil {
		inner.cancel()
	}
	m.hs.OnError(err)
}

func (m *switchMapMain[T, R]) finish() {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		return
	}
	m.terminated = true
	m.mu.Unlock()
	m.hs.OnComplete()
}

// switchMapSubscription is the Subscription handed to the outer
// downstream; it fans Request/Cancel back into the coordinator.
type switchMapSubscription[T, R any] struct{ main *switchMapMain[T, R] }

func (s *switchMapSubscription[T, R]) Request(n int64) {
	if !ValidateRequest[R](n, s.main.actual) {
		return
	}
	s.main.request(n)
}
func (s *switchMapSubscription[T, R]) Cancel() { s.main.cancel() }

type switchMapInner[T, R any] struct {
	main       *switchMapMain[T, R]
	generation int64
	sub        Subscription
}

func (i *switchMapInner[T, R]) OnSubscribe(sub Subscription) {
	i.sub = sub
	i.main.mu.Lock()
	requested := i.main.requested
	i.main.mu.Unlock()
	if requested > 0 || requested == MaxDemand {
		sub.Request(requested)
	}
}
func (i *switchMapInner[T, R]) OnNext(v R)        { i.main.onInnerNext(i.generation, v) }
func (i *switchMapInner[T, R]) OnError(err error) { i.main.onInnerError(i.generation, err) }
func (i *switchMapInner[T, R]) OnComplete()       { i.main.onInnerComplete(i.generation) }

func (i *switchMapInner[T, R]) request(n int64) {
	if i.sub != nil {
		i.sub.Request(n)
	}
}
func (i *switchMapInner[T, R]) cancel() {
	if i.sub != nil {
		i.sub.Cancel()
	}
}
