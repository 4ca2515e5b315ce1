package flux

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"go.uber.org/multierr"
)

// ErrProtocol covers request/subscribe protocol violations (§7):
// non-positive request, double onSubscribe on a receiver with no
// subscriber yet, a null element in a mandatory slot.
type ErrProtocol struct {
	Msg string
}

func (e *ErrProtocol) Error() string { return e.Msg }

func protocolError(msg string) error { return &ErrProtocol{Msg: msg} }

// ErrOverflow is delivered when demand cannot be honoured by a bounded
// buffering operator (§4.G, §7 "Overflow errors").
type ErrOverflow struct {
	Msg string
}

func (e *ErrOverflow) Error() string { return e.Msg }

func overflowError(msg string) error { return &ErrOverflow{Msg: msg} }

// ErrFatal wraps the fixed set of conditions §4.A calls out as fatal:
// these must be rethrown up the call stack, never routed through OnError.
type ErrFatal struct {
	Cause error
}

func (e *ErrFatal) Error() string { return "fatal error: " + e.Cause.Error() }
func (e *ErrFatal) Unwrap() error { return e.Cause }

// IsFatal classifies err per §4.A / §7. Go has no VM/linkage/OOM error
// hierarchy to mirror 1:1; the translation is: a panic recovered while
// running user code is fatal only if it was itself produced by the Go
// runtime (out-of-memory, stack overflow) rather than an ordinary
// application panic value, which callers instead wrap with
// RecoverOperatorError below.
func IsFatal(err error) bool {
	var f *ErrFatal
	return errors.As(err, &f)
}

// RecoverOperatorError turns a recovered panic into a composable error for
// OnOperatorError, unless the panic value is itself an *ErrFatal (produced
// by RecoverFatal) in which case it is rethrown by the caller instead.
func RecoverOperatorError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return fmt.Errorf("panic in operator: %v", r)
}

// RecoverFatal inspects a recovered panic and, for the handful of
// runtime-fatal conditions Go exposes as recoverable panics (stack
// overflow shows up as a runtime.Error whose message contains "stack
// overflow"; out-of-memory shows up as runtime.Error "out of memory"),
// rethrows immediately, matching §4.A "fatal exceptions ... rethrown up
// the stack rather than delivered through onError". Any other panic value
// is returned as a composable error instead.
func RecoverFatal(r any) error {
	if err, ok := r.(error); ok {
		msg := err.Error()
		if isFatalRuntimeMessage(msg) {
			debug.PrintStack()
			panic(&ErrFatal{Cause: err})
		}
		return err
	}
	return fmt.Errorf("panic in operator: %v", r)
}

func isFatalRuntimeMessage(msg string) bool {
	lower := strings.ToLower(msg)
	for _, s := range []string{"out of memory", "stack overflow", "all goroutines are asleep"} {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// CombineErrors merges zero or more errors into one using multierr (§7
// "Multiple errors during composite termination ... combined via a
// suppressed-exception chain"). A nil is returned only if every argument
// is nil.
func CombineErrors(errs ...error) error {
	return multierr.Combine(errs...)
}
