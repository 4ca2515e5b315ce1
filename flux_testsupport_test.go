package flux

import "sync"

// collector is the recording Subscriber every test in this package uses:
// unbounded demand by default, recording every signal in arrival order.
type collector[T any] struct {
	mu         sync.Mutex
	values     []T
	err        error
	completed  bool
	subscription Subscription
}

func newCollector[T any]() *collector[T] { return &collector[T]{} }

func (c *collector[T]) OnSubscribe(sub Subscription) {
	c.mu.Lock()
	c.subscription = sub
	c.mu.Unlock()
	sub.Request(MaxDemand)
}
func (c *collector[T]) OnNext(v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values = append(c.values, v)
}
func (c *collector[T]) OnError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}
func (c *collector[T]) OnComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completed = true
}

func (c *collector[T]) Values() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]T{}, c.values...)
}
func (c *collector[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
func (c *collector[T]) Completed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completed
}
