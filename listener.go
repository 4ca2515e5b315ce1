package flux

import (
	"context"

	"github.com/zoobzio/capitan"
)

// Listener is the Observation Listener of §6: a set of per-subscription
// lifecycle hooks with a defined call order. doFirst runs before
// subscription is even attempted; the terminal handler (doOnComplete or
// doOnError) runs before doFinally; doFinally always runs exactly once,
// regardless of how the subscription ended. A Listener's own callbacks
// must never be allowed to prevent doFinally from running — any panic or
// error raised from inside a hook is captured by handleListenerError and
// swallowed rather than propagated.
type Listener[T any] struct {
	DoFirst       func()
	DoOnSubscribe func(s Subscription)
	DoOnNext      func(v T)
	DoOnError     func(err error)
	DoOnComplete  func()
	DoOnCancel    func()
	DoOnRequest   func(n int64)
	DoFinally     func(SignalKind)

	// OnListenerError is handleListenerError: invoked if any of the hooks
	// above panics or the caller wants diagnostics surfaced. Defaults to a
	// capitan emission (see emitListenerError) when nil.
	OnListenerError func(err error)
}

func (l *Listener[T]) callFirst() {
	if l == nil || l.DoFirst == nil {
		return
	}
	l.guard(func() { l.DoFirst() })
}

func (l *Listener[T]) callOnSubscribe(s Subscription) {
	if l == nil || l.DoOnSubscribe == nil {
		return
	}
	l.guard(func() { l.DoOnSubscribe(s) })
}

func (l *Listener[T]) callOnNext(v T) {
	if l == nil || l.DoOnNext == nil {
		return
	}
	l.guard(func() { l.DoOnNext(v) })
}

func (l *Listener[T]) callOnError(err error) {
	if l == nil || l.DoOnError == nil {
		return
	}
	l.guard(func() { l.DoOnError(err) })
}

func (l *Listener[T]) callOnComplete() {
	if l == nil || l.DoOnComplete == nil {
		return
	}
	l.guard(func() { l.DoOnComplete() })
}

func (l *Listener[T]) callOnCancel() {
	if l == nil || l.DoOnCancel == nil {
		return
	}
	l.guard(func() { l.DoOnCancel() })
}

func (l *Listener[T]) callOnRequest(n int64) {
	if l == nil || l.DoOnRequest == nil {
		return
	}
	l.guard(func() { l.DoOnRequest(n) })
}

func (l *Listener[T]) callFinally(kind SignalKind) {
	if l == nil || l.DoFinally == nil {
		return
	}
	l.guard(func() { l.DoFinally(kind) })
}

// guard runs fn, routing any panic to handleListenerError instead of
// letting it unwind into the producer's call stack (§6: "Listener errors
// captured via handleListenerError ... never prevent doFinally").
func (l *Listener[T]) guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.handleListenerError(RecoverOperatorError(r))
		}
	}()
	fn()
}

func (l *Listener[T]) handleListenerError(err error) {
	if l.OnListenerError != nil {
		l.OnListenerError(err)
		return
	}
	emitListenerError(err)
}

// Listener events, typed keys and signals for the capitan-backed
// diagnostics surface. Mirrors the vocabulary zoobzio/flux defines in
// fields.go/signals.go for its own event-driven lifecycle: a fixed set
// of named capitan.Signal values plus typed capitan.Key field accessors.
var (
	sigListenerError  = capitan.NewSignal("flux.listener.error", "a Listener hook panicked or failed")
	sigNextDropped    = capitan.NewSignal("flux.hook.next_dropped", "a value could not be delivered and was dropped")
	sigErrorDropped   = capitan.NewSignal("flux.hook.error_dropped", "an error arrived after termination and was dropped")
	sigValueDiscarded = capitan.NewSignal("flux.hook.discarded", "a produced value was discarded without being delivered")
	sigOperatorError  = capitan.NewSignal("flux.hook.operator_error", "a user callback raised an error inside an operator")

	keyError = capitan.NewStringKey("error")
	keyValue = capitan.NewStringKey("value")
)

func emitListenerError(err error) {
	capitan.Emit(context.Background(), sigListenerError, keyError.Field(err.Error()))
}
