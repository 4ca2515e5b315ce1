package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryResubscribesUntilPredicateRefuses(t *testing.T) {
	var subscribeCount int
	boom := protocolError("transient")
	source := FromPublisher[int](publisherFunc[int](func(sub Subscriber[int]) {
		subscribeCount++
		if subscribeCount < 3 {
			ErrorSubscriber[int](sub, boom)
			return
		}
		FromSlice([]int{1, 2}).Subscribe(sub)
	}))

	c := newCollector[int]()
	source.Retry(func(attempt int64, err error) bool { return attempt < 3 }).Subscribe(c)

	assert.Equal(t, []int{1, 2}, c.Values())
	assert.True(t, c.Completed())
	assert.Equal(t, 3, subscribeCount)
}

func TestRetryGivesUpAndPropagatesError(t *testing.T) {
	boom := protocolError("permanent")
	source := Error[int](boom)
	c := newCollector[int]()
	source.Retry(func(attempt int64, err error) bool { return false }).Subscribe(c)

	assert.Equal(t, boom, c.Err())
}

func TestRepeatResubscribesOnCompleteUntilPredicateRefuses(t *testing.T) {
	var subscribeCount int
	source := FromPublisher[int](publisherFunc[int](func(sub Subscriber[int]) {
		subscribeCount++
		FromSlice([]int{subscribeCount}).Subscribe(sub)
	}))

	c := newCollector[int]()
	source.Repeat(func(attempt int64) bool { return attempt < 3 }).Subscribe(c)

	assert.Equal(t, []int{1, 2, 3}, c.Values())
	assert.True(t, c.Completed())
}

type publisherFunc[T any] func(Subscriber[T])

func (f publisherFunc[T]) Subscribe(sub Subscriber[T]) { f(sub) }
