package flux

import "sync"

// Publish subscribes to f exactly once, multiplexing its signals to
// whatever derived Publisher[R] selector builds from the resulting hot
// Flux[T]; upstream is cancelled once the selector's output has no
// subscriber left (§4.H' "publish(selector)").
func Publish[T, R any](f Flux[T], selector func(Flux[T]) Publisher[R]) Flux[R] {
	return FromPublisher[R](&publishOp[T, R]{source: f.Publisher(), selector: selector})
}

type publishOp[T, R any] struct {
	source   Publisher[T]
	selector func(Flux[T]) Publisher[R]
}

func (p *publishOp[T, R]) Subscribe(s Subscriber[R]) {
	p.SubscribeCtx(asCoreSubscriber(s, EmptyContext()))
}

func (p *publishOp[T, R]) SubscribeCtx(actual CoreSubscriber[R]) {
	conn := &publishConnection[T]{sink: NewSink[T]()}
	conn.sink.onEmpty = conn.cancelUpstream
	derived := p.selector(conn.sink.AsFlux())

	// derived must be subscribed before upstream is connected: a
	// synchronous source would otherwise emit into a sink with no
	// subscriber yet and every value would be lost.
	SubscribeCtx[R](derived, actual, actual.Context())
	conn.once.Do(func() {
		SubscribeCtx[T](p.source, conn, actual.Context())
	})
}

// publishConnection is the single upstream Subscriber[T] the connected
// Sink forwards into; it is shared across every subscriber the selector's
// derived publisher creates.
type publishConnection[T any] struct {
	sink *Sink[T]
	once sync.Once

	mu  sync.Mutex
	sub Subscription
}

func (c *publishConnection[T]) OnSubscribe(sub Subscription) {
	c.mu.Lock()
	c.sub = sub
	c.mu.Unlock()
	sub.Request(MaxDemand)
}

func (c *publishConnection[T]) OnNext(v T) {
	c.sink.EmitNext(v, func(r EmitResult) bool { return r == EmitFailOverflow })
}

func (c *publishConnection[T]) OnError(err error) { c.sink.TryEmitError(err) }
func (c *publishConnection[T]) OnComplete()       { c.sink.TryEmitComplete() }

func (c *publishConnection[T]) cancelUpstream() {
	c.mu.Lock()
	sub := c.sub
	c.mu.Unlock()
	if sub != nil {
		sub.Cancel()
	}
}
