package flux

// Defer builds a fresh Flux from supplier on every subscription, rather
// than sharing one assembled at call time (§4.E). The Mono counterpart is
// MonoDefer in mono.go.
func Defer[T any](supplier func() Flux[T]) Flux[T] {
	return FromPublisher[T](&deferOp[T]{supplier: supplier})
}

type deferOp[T any] struct {
	supplier func() Flux[T]
}

func (d *deferOp[T]) Subscribe(s Subscriber[T]) { d.SubscribeCtx(asCoreSubscriber(s, EmptyContext())) }
func (d *deferOp[T]) SubscribeCtx(actual CoreSubscriber[T]) {
	defer func() {
		if r := recover(); r != nil {
			ErrorSubscriber[T](actual, RecoverOperatorError(r))
		}
	}()
	f := d.supplier()
	SubscribeCtx[T](f.Publisher(), actual, actual.Context())
}
