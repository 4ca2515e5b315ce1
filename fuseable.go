package flux

// Fusion modes (§3 "Fuseable Subscription", §4.J). A downstream that
// implements QueueSubscription negotiates a mode via RequestFusion; the
// granted mode changes how values move across the operator boundary.
const (
	// FusionNone means classical onNext-driven delivery.
	FusionNone = 0
	// FusionSync means the downstream polls Poll() directly; the upstream
	// never calls OnNext. Values must already be available (or
	// deterministically computable) when Poll is called.
	FusionSync = 1
	// FusionAsync means the upstream calls OnNext with the zero value as a
	// wake-up; the downstream drains via Poll on its own schedule.
	FusionAsync = 2
	// FusionAny is the union downstream operators request when they can
	// accept either synchronous or asynchronous fusion.
	FusionAny = FusionSync | FusionAsync
	// FusionThreadBarrier is set by a downstream to forbid fusion across an
	// executor boundary it is about to introduce (e.g. observeOn).
	FusionThreadBarrier = 4
)

// QueueSubscription is a Fuseable Subscription: a Subscription that also
// behaves like a single-consumer queue (§3, §4.J). Poll returns
// (zero, false) when nothing is currently available; for a SYNC-fused
// producer that has terminated with no error, IsEmpty() additionally
// reports true once Poll has drained everything, which the consumer
// interprets as "terminate with OnComplete" without ever seeing an
// explicit terminal signal.
type QueueSubscription[T any] interface {
	Subscription

	// RequestFusion negotiates a fusion mode. The producer returns
	// FusionNone or a subset of mode; callers must not assume any mode is
	// granted.
	RequestFusion(mode int) int

	// Poll returns the next queued value, or (zero, false) if none is
	// currently available.
	Poll() (T, bool)

	// IsEmpty reports whether the fused queue currently has nothing to
	// poll.
	IsEmpty() bool

	// Clear discards every queued-but-undelivered value, routing each
	// through the discard hook.
	Clear()

	// Size returns the number of currently queued elements, or -1 if
	// unknown.
	Size() int
}

// QueueSubscriber is implemented by a downstream subscriber capable of
// fusion negotiation; it is the Go shape of requestFusion as seen from the
// consuming side.
type QueueSubscriber[T any] interface {
	Subscriber[T]
	RequestFusion(mode int) int
}
