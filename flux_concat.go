package flux

import (
	"sync"

	"github.com/streamwell/flux/internal/subscriptions"
)

// Concat subscribes to each source in turn, only once the previous one
// has completed, forwarding every value and the first error encountered
// (§4.H' "concat(N): sequential, uses MultiSubscriptionSubscriber; on
// upstream complete, subscribe next").
func Concat[T any](sources ...Flux[T]) Flux[T] {
	return FromPublisher[T](&concatOp[T]{sources: sources})
}

type concatOp[T any] struct {
	sources []Flux[T]
}

func (c *concatOp[T]) Subscribe(s Subscriber[T]) { c.SubscribeCtx(asCoreSubscriber(s, EmptyContext())) }
func (c *concatOp[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	if len(c.sources) == 0 {
		CompleteSubscriber[T](actual)
		return
	}
	main := &concatMain[T]{actual: actual, sources: c.sources}
	actual.OnSubscribe(&main.multi)
	main.subscribeNext()
}

type concatMain[T any] struct {
	actual  CoreSubscriber[T]
	sources []Flux[T]
	index   int
	multi   subscriptions.Multi

	mu sync.Mutex
}

func (m *concatMain[T]) subscribeNext() {
	m.mu.Lock()
	if m.multi.IsCancelled() {
		m.mu.Unlock()
		return
	}
	if m.index >= len(m.sources) {
		m.mu.Unlock()
		m.actual.OnComplete()
		return
	}
	next := m.sources[m.index]
	m.index++
	m.mu.Unlock()
	SubscribeCtx[T](next.Publisher(), &concatInner[T]{main: m}, m.actual.Context())
}

type concatInner[T any] struct {
	main *concatMain[T]
}

func (i *concatInner[T]) OnSubscribe(sub Subscription) { i.main.multi.Set(sub) }
func (i *concatInner[T]) OnNext(v T) {
	i.main.multi.Produced(1)
	i.main.actual.OnNext(v)
}
func (i *concatInner[T]) OnError(err error) { i.main.actual.OnError(err) }
func (i *concatInner[T]) OnComplete()       { i.main.subscribeNext() }
