package flux

import "github.com/streamwell/flux/internal/subscriptions"

// OnErrorContinue installs handler as this sequence's per-element error
// hook: a cooperating operator upstream of the subscriber (map, filter)
// that fails processing a single element calls handler with the failing
// error and the offending value instead of terminating the sequence, and
// simply asks upstream for one more (§4.I "onErrorContinue").
//
// Only cooperating operators consult the hook; an error that escapes
// OnError outright (a source itself failing, rather than an operator
// processing one of its values) still terminates the sequence.
func (f Flux[T]) OnErrorContinue(handler func(err error, value any)) Flux[T] {
	return FromPublisher[T](&onErrorContinueOp[T]{source: f.Publisher(), handler: handler})
}

type onErrorContinueOp[T any] struct {
	source  Publisher[T]
	handler func(err error, value any)
}

func (o *onErrorContinueOp[T]) Subscribe(s Subscriber[T]) {
	o.SubscribeCtx(asCoreSubscriber(s, EmptyContext()))
}
func (o *onErrorContinueOp[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	ctx := WithOnErrorContinue(actual.Context(), o.handler)
	SubscribeCtx[T](o.source, &forwardingSubscriber[T]{actual: actual}, ctx)
}

// forwardingSubscriber relays every signal to actual unchanged; used
// whenever an operator needs to install a different Context than actual
// already carries, since passing actual straight to SubscribeCtx would
// skip the wrapping that applies the new Context (it already satisfies
// CoreSubscriber).
type forwardingSubscriber[T any] struct{ actual CoreSubscriber[T] }

func (f *forwardingSubscriber[T]) OnSubscribe(sub Subscription) { f.actual.OnSubscribe(sub) }
func (f *forwardingSubscriber[T]) OnNext(v T)                  { f.actual.OnNext(v) }
func (f *forwardingSubscriber[T]) OnError(err error)           { f.actual.OnError(err) }
func (f *forwardingSubscriber[T]) OnComplete()                 { f.actual.OnComplete() }

// OnErrorResume subscribes to fn(err) in place of terminating the
// sequence with err, letting the caller substitute a fallback sequence
// chosen from the actual error (§4.I "onErrorResume").
func (f Flux[T]) OnErrorResume(fn func(err error) Publisher[T]) Flux[T] {
	return FromPublisher[T](&onErrorResumeOp[T]{source: f.Publisher(), fn: fn})
}

type onErrorResumeOp[T any] struct {
	source Publisher[T]
	fn     func(error) Publisher[T]
}

func (o *onErrorResumeOp[T]) Subscribe(s Subscriber[T]) {
	o.SubscribeCtx(asCoreSubscriber(s, EmptyContext()))
}
func (o *onErrorResumeOp[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	main := &onErrorResumeMain[T]{actual: actual, fn: o.fn}
	actual.OnSubscribe(&main.multi)
	SubscribeCtx[T](o.source, &onErrorResumeInner[T]{main: main}, actual.Context())
}

type onErrorResumeMain[T any] struct {
	actual CoreSubscriber[T]
	fn     func(error) Publisher[T]
	multi  subscriptions.Multi
}

func (m *onErrorResumeMain[T]) onInnerError(err error) {
	if m.multi.IsCancelled() {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			m.actual.OnError(RecoverOperatorError(r))
		}
	}()
	fallback := m.fn(err)
	SubscribeCtx[T](fallback, &onErrorResumeFallback[T]{main: m}, m.actual.Context())
}

type onErrorResumeInner[T any] struct{ main *onErrorResumeMain[T] }

func (i *onErrorResumeInner[T]) OnSubscribe(sub Subscription) { i.main.multi.Set(sub) }
func (i *onErrorResumeInner[T]) OnNext(v T) {
	i.main.multi.Produced(1)
	i.main.actual.OnNext(v)
}
func (i *onErrorResumeInner[T]) OnError(err error) { i.main.onInnerError(err) }
func (i *onErrorResumeInner[T]) OnComplete()       { i.main.actual.OnComplete() }

type onErrorResumeFallback[T any] struct{ main *onErrorResumeMain[T] }

func (i *onErrorResumeFallback[T]) OnSubscribe(sub Subscription) { i.main.multi.Set(sub) }
func (i *onErrorResumeFallback[T]) OnNext(v T) {
	i.main.multi.Produced(1)
	i.main.actual.OnNext(v)
}
func (i *onErrorResumeFallback[T]) OnError(err error) { i.main.actual.OnError(err) }
func (i *onErrorResumeFallback[T]) OnComplete()       { i.main.actual.OnComplete() }
