package flux

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/capitan"
)

// Design Note §9 "Global mutable state": hooks are looked up context-first,
// falling back to a process-wide table when the Context carries no
// override. The global table exists mainly so library-wide diagnostics
// (logging every dropped value during development, say) don't require
// threading a Context override through every subscribe call; production
// code is expected to prefer the Context-scoped hooks.

var (
	globalOnNextDropped  atomic.Value // func(any)
	globalOnErrorDropped atomic.Value // func(error)
	globalOnDiscard      atomic.Value // func(any)
	globalMu             sync.Mutex
)

// SetGlobalOnNextDropped installs the process-wide fallback for
// onNextDropped. Pass nil to reset to the capitan-emitting default.
func SetGlobalOnNextDropped(fn func(v any)) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if fn == nil {
		globalOnNextDropped.Store((func(any))(nil))
		return
	}
	globalOnNextDropped.Store(fn)
}

// SetGlobalOnErrorDropped installs the process-wide fallback for
// onErrorDropped. Pass nil to reset to the capitan-emitting default.
func SetGlobalOnErrorDropped(fn func(err error)) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if fn == nil {
		globalOnErrorDropped.Store((func(error))(nil))
		return
	}
	globalOnErrorDropped.Store(fn)
}

// SetGlobalOnDiscard installs the process-wide fallback for onDiscard.
// Pass nil to reset to the capitan-emitting default.
func SetGlobalOnDiscard(fn func(v any)) {
	globalMu.Lock()
	defer globalMu.Unlock()
	if fn == nil {
		globalOnDiscard.Store((func(any))(nil))
		return
	}
	globalOnDiscard.Store(fn)
}

// ResetGlobalHooks restores every global hook to its capitan-emitting
// default. Exposed for tests that install a custom hook and must not leak
// it into later tests (§9 "explicit reset entry points").
func ResetGlobalHooks() {
	SetGlobalOnNextDropped(nil)
	SetGlobalOnErrorDropped(nil)
	SetGlobalOnDiscard(nil)
}

// onNextDropped looks up the Context's onNextDropped hook (§4.A), falling
// back to the global table, falling back to a best-effort capitan
// emission. It never throws or panics.
func onNextDropped(ctx Context, v any) {
	if raw, ok := ctx.Get(onNextDroppedKey{}); ok {
		if fn, ok := raw.(func(any)); ok && fn != nil {
			safeCall(func() { fn(v) })
			return
		}
	}
	if fn, _ := globalOnNextDropped.Load().(func(any)); fn != nil {
		safeCall(func() { fn(v) })
		return
	}
	capitan.Emit(context.Background(), sigNextDropped, keyValue.Field(fmt.Sprint(v)))
}

// onErrorDropped looks up the Context's onErrorDropped hook (§4.A),
// falling back the same way onNextDropped does. An error reaching this
// function must never be silently swallowed (§3 invariant 5) nor
// double-dispatched.
func onErrorDropped(ctx Context, err error) {
	if err == nil {
		return
	}
	if raw, ok := ctx.Get(onErrorDroppedKey{}); ok {
		if fn, ok := raw.(func(error)); ok && fn != nil {
			safeCall(func() { fn(err) })
			return
		}
	}
	if fn, _ := globalOnErrorDropped.Load().(func(error)); fn != nil {
		safeCall(func() { fn(err) })
		return
	}
	capitan.Emit(context.Background(), sigErrorDropped, keyError.Field(err.Error()))
}

// onDiscard routes a produced-but-undelivered value to the Context's
// discard hook (§3 invariant 4), falling back the same way.
func onDiscard(ctx Context, v any) {
	if raw, ok := ctx.Get(onDiscardKey{}); ok {
		if fn, ok := raw.(func(any)); ok && fn != nil {
			safeCall(func() { fn(v) })
			return
		}
	}
	if fn, _ := globalOnDiscard.Load().(func(any)); fn != nil {
		safeCall(func() { fn(v) })
		return
	}
	capitan.Emit(context.Background(), sigValueDiscarded, keyValue.Field(fmt.Sprint(v)))
}

func safeCall(fn func()) {
	defer func() { _ = recover() }()
	fn()
}

// onOperatorError classifies err (fatal vs composable), cancels
// subscription if non-nil, discards value through onDiscard, and returns
// the (possibly wrapped) error to deliver through OnError (§4.A).
// Fatal errors are rethrown by panicking again rather than returned.
// hasValue distinguishes "no in-flight value" from a legitimate zero
// value, since T's zero value boxed into an any is never itself nil.
func onOperatorError(ctx Context, subscription Subscription, err error, hasValue bool, value any) error {
	if IsFatal(err) {
		panic(err)
	}
	if hasValue {
		if fn, ok := getOnErrorContinue(ctx); ok && fn != nil {
			safeCall(func() { fn(err, value) })
			onDiscard(ctx, value)
			return nil
		}
	}
	if subscription != nil {
		subscription.Cancel()
	}
	if hasValue {
		onDiscard(ctx, value)
	}
	capitan.Emit(context.Background(), sigOperatorError, keyError.Field(err.Error()))
	return err
}
