package flux

import (
	"sync"

	"github.com/streamwell/flux/internal/subscriptions"
)

// Retry resubscribes to f whenever it errors and shouldRetry(attempt, err)
// reports true, up to whatever shouldRetry itself decides to cap at; a
// false verdict forwards the triggering error downstream instead (§4.I
// "retry(predicate): MultiSubscriptionSubscriber-based resubscribe").
func (f Flux[T]) Retry(shouldRetry func(attempt int64, err error) bool) Flux[T] {
	return FromPublisher[T](&retryOp[T]{source: f.Publisher(), shouldRetry: shouldRetry})
}

type retryOp[T any] struct {
	source      Publisher[T]
	shouldRetry func(attempt int64, err error) bool
}

func (r *retryOp[T]) Subscribe(s Subscriber[T]) { r.SubscribeCtx(asCoreSubscriber(s, EmptyContext())) }
func (r *retryOp[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	main := &retryMain[T]{actual: actual, source: r.source, shouldRetry: r.shouldRetry}
	actual.OnSubscribe(&main.multi)
	main.resubscribe()
}

type retryMain[T any] struct {
	actual      CoreSubscriber[T]
	source      Publisher[T]
	shouldRetry func(attempt int64, err error) bool

	multi   subscriptions.Multi
	mu      sync.Mutex
	attempt int64
}

func (m *retryMain[T]) resubscribe() {
	SubscribeCtx[T](m.source, &retryInner[T]{main: m}, m.actual.Context())
}

func (m *retryMain[T]) onInnerError(err error) {
	m.mu.Lock()
	m.attempt++
	attempt := m.attempt
	m.mu.Unlock()
	if m.multi.IsCancelled() {
		return
	}
	if m.shouldRetry != nil && m.shouldRetry(attempt, err) {
		m.resubscribe()
		return
	}
	m.actual.OnError(err)
}

type retryInner[T any] struct{ main *retryMain[T] }

func (i *retryInner[T]) OnSubscribe(sub Subscription) { i.main.multi.Set(sub) }
func (i *retryInner[T]) OnNext(v T) {
	i.main.multi.Produced(1)
	i.main.actual.OnNext(v)
}
func (i *retryInner[T]) OnError(err error) { i.main.onInnerError(err) }
func (i *retryInner[T]) OnComplete()       { i.main.actual.OnComplete() }

// Repeat resubscribes to f whenever it completes and shouldRepeat(attempt)
// reports true; a false verdict completes downstream instead (§4.I
// "repeat(predicate)", the OnComplete-triggered mirror of Retry).
func (f Flux[T]) Repeat(shouldRepeat func(attempt int64) bool) Flux[T] {
	return FromPublisher[T](&repeatOp[T]{source: f.Publisher(), shouldRepeat: shouldRepeat})
}

type repeatOp[T any] struct {
	source       Publisher[T]
	shouldRepeat func(attempt int64) bool
}

func (r *repeatOp[T]) Subscribe(s Subscriber[T]) { r.SubscribeCtx(asCoreSubscriber(s, EmptyContext())) }
func (r *repeatOp[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	main := &repeatMain[T]{actual: actual, source: r.source, shouldRepeat: r.shouldRepeat}
	actual.OnSubscribe(&main.multi)
	main.resubscribe()
}

type repeatMain[T any] struct {
	actual       CoreSubscriber[T]
	source       Publisher[T]
	shouldRepeat func(attempt int64) bool

	multi   subscriptions.Multi
	mu      sync.Mutex
	attempt int64
}

func (m *repeatMain[T]) resubscribe() {
	SubscribeCtx[T](m.source, &repeatInner[T]{main: m}, m.actual.Context())
}

func (m *repeatMain[T]) onInnerComplete() {
	m.mu.Lock()
	m.attempt++
	attempt := m.attempt
	m.mu.Unlock()
	if m.multi.IsCancelled() {
		return
	}
	if m.shouldRepeat != nil && m.shouldRepeat(attempt) {
		m.resubscribe()
		return
	}
	m.actual.OnComplete()
}

type repeatInner[T any] struct{ main *repeatMain[T] }

func (i *repeatInner[T]) OnSubscribe(sub Subscription) { i.main.multi.Set(sub) }
func (i *repeatInner[T]) OnNext(v T) {
	i.main.multi.Produced(1)
	i.main.actual.OnNext(v)
}
func (i *repeatInner[T]) OnError(err error) { i.main.actual.OnError(err) }
func (i *repeatInner[T]) OnComplete()       { i.main.onInnerComplete() }
