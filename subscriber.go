package flux

// Subscription is the link created per Publisher.Subscribe call (§3). It
// lets a Subscriber pull demand from, and walk away from, its upstream.
//
// Request must tolerate n <= 0 by delivering a protocol error rather than
// panicking (§4.A Validate, §8 "Boundary behaviors"). Cancel is idempotent
// and must be safe to call from any thread, any number of times, including
// concurrently with Request.
type Subscription interface {
	Request(n int64)
	Cancel()
}

// Subscriber is a consumer capability with the four Reactive Streams
// callbacks (§3). The producer side must call them serially per Rule 1.3:
// OnSubscribe exactly once, before anything else; then any number of
// OnNext; then at most one of OnComplete/OnError.
type Subscriber[T any] interface {
	OnSubscribe(s Subscription)
	OnNext(v T)
	OnError(err error)
	OnComplete()
}

// ConditionalSubscriber additionally exposes TryOnNext, used by filter,
// distinct and similar operators to let a downstream refuse a value
// without it counting against demand (§3).
type ConditionalSubscriber[T any] interface {
	Subscriber[T]
	TryOnNext(v T) bool
}

// CoreSubscriber is a Subscriber[T] that also carries the Context that was
// installed at (or below) it when the chain was assembled. Every
// downstream subscriber an operator constructs must implement this so the
// Context threads all the way upstream to the source.
type CoreSubscriber[T any] interface {
	Subscriber[T]
	Context() Context
}

// Publisher is a provider of a potentially unbounded number of sequenced
// elements, publishing them according to the demand it receives from its
// Subscriber (§3). A Publisher is immutable and freely re-subscribable.
type Publisher[T any] interface {
	Subscribe(s Subscriber[T])
}

// ContextualPublisher is implemented by operator nodes that need the
// Context available at assembly time (almost all of them). It mirrors the
// Java core's internal subscribeOrReturn hook (§4.D): the base dispatch in
// Subscribe wraps a bare Subscriber into a CoreSubscriber and always calls
// SubscribeCtx when a Publisher supports it, falling back to Subscribe
// otherwise.
type ContextualPublisher[T any] interface {
	Publisher[T]
	SubscribeCtx(actual CoreSubscriber[T])
}

// Subscribe installs sub against pub, synthesizing a Context for sub if it
// doesn't already carry one. This is the single place every call site in
// this module routes through; it is the Go shape of the abstract
// Flux/Mono base class's subscribe() entrypoint (§4.D).
func Subscribe[T any](pub Publisher[T], sub Subscriber[T]) {
	actual := asCoreSubscriber(sub, EmptyContext())
	if cp, ok := pub.(ContextualPublisher[T]); ok {
		cp.SubscribeCtx(actual)
		return
	}
	pub.Subscribe(actual)
}

// SubscribeCtx is like Subscribe but seeds the propagated Context
// explicitly, e.g. from a downstream operator forwarding its own Context
// upstream.
func SubscribeCtx[T any](pub Publisher[T], sub Subscriber[T], ctx Context) {
	actual := asCoreSubscriber(sub, ctx)
	if cp, ok := pub.(ContextualPublisher[T]); ok {
		cp.SubscribeCtx(actual)
		return
	}
	pub.Subscribe(actual)
}

func asCoreSubscriber[T any](sub Subscriber[T], ctx Context) CoreSubscriber[T] {
	if cs, ok := sub.(CoreSubscriber[T]); ok {
		return cs
	}
	return &contextualSubscriber[T]{Subscriber: sub, ctx: ctx}
}

type contextualSubscriber[T any] struct {
	Subscriber[T]
	ctx Context
}

func (c *contextualSubscriber[T]) Context() Context { return c.ctx }

// SignalKind tags the variant held by a Signal (§3).
type SignalKind int

const (
	// SignalSubscribe carries a Subscription delivered via OnSubscribe.
	SignalSubscribe SignalKind = iota
	// SignalNext carries a value delivered via OnNext.
	SignalNext
	// SignalError carries the Throwable delivered via OnError.
	SignalError
	// SignalComplete marks an OnComplete with no payload.
	SignalComplete
)

// Signal is the tagged {NextOf(T), Error(Throwable), Complete,
// Subscribe(Subscription)} variant of §3, first-class in switchOnFirst and
// materialize/dematerialize.
type Signal[T any] struct {
	Kind         SignalKind
	Value        T
	Err          error
	Subscription Subscription
}

// NextSignal builds a SignalNext.
func NextSignal[T any](v T) Signal[T] { return Signal[T]{Kind: SignalNext, Value: v} }

// ErrorSignal builds a SignalError.
func ErrorSignal[T any](err error) Signal[T] { return Signal[T]{Kind: SignalError, Err: err} }

// CompleteSignal builds a SignalComplete.
func CompleteSignal[T any]() Signal[T] { return Signal[T]{Kind: SignalComplete} }

// SubscribeSignal builds a SignalSubscribe.
func SubscribeSignal[T any](s Subscription) Signal[T] {
	return Signal[T]{Kind: SignalSubscribe, Subscription: s}
}

// IsOnNext reports whether the Signal carries a value.
func (s Signal[T]) IsOnNext() bool { return s.Kind == SignalNext }

// IsOnError reports whether the Signal carries an error.
func (s Signal[T]) IsOnError() bool { return s.Kind == SignalError }

// IsOnComplete reports whether the Signal is a completion.
func (s Signal[T]) IsOnComplete() bool { return s.Kind == SignalComplete }

// IsTerminal reports whether the Signal is OnError or OnComplete.
func (s Signal[T]) IsTerminal() bool { return s.Kind == SignalError || s.Kind == SignalComplete }

// sendTo replays the Signal's callback on sub, skipping the Subscribe case
// (which has no natural replay target on a plain Subscriber).
func (s Signal[T]) sendTo(sub Subscriber[T]) {
	switch s.Kind {
	case SignalNext:
		sub.OnNext(s.Value)
	case SignalError:
		sub.OnError(s.Err)
	case SignalComplete:
		sub.OnComplete()
	}
}
