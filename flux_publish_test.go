package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishMulticastsFromSingleUpstreamSubscription(t *testing.T) {
	var subscribeCount int
	source := &countingSource{inner: FromSlice([]int{1, 2, 3}), count: &subscribeCount}

	c := newCollector[int]()
	Publish[int, int](FromPublisher[int](source), func(hot Flux[int]) Publisher[int] {
		return hot.Publisher()
	}).Subscribe(c)

	assert.Equal(t, []int{1, 2, 3}, c.Values())
	assert.True(t, c.Completed())
	assert.Equal(t, 1, subscribeCount)
}

func TestPublishCancelsUpstreamOnceSelectorOutputIsAbandoned(t *testing.T) {
	rec := &recordingCancelSource{}
	c := newCollector[int]()
	Publish[int, int](FromPublisher[int](rec), func(hot Flux[int]) Publisher[int] {
		return hot.Publisher()
	}).Subscribe(c)

	c.mu.Lock()
	sub := c.subscription
	c.mu.Unlock()
	sub.Cancel()

	assert.True(t, rec.cancelled)
}

type countingSource struct {
	inner Flux[int]
	count *int
}

func (s *countingSource) Subscribe(sub Subscriber[int]) {
	*s.count++
	s.inner.Subscribe(sub)
}

type recordingCancelSource struct {
	sub       Subscription
	cancelled bool
}

func (s *recordingCancelSource) Subscribe(sub Subscriber[int]) {
	s.sub = &recordingCancelSubscription{source: s}
	sub.OnSubscribe(s.sub)
}

type recordingCancelSubscription struct {
	source *recordingCancelSource
}

func (s *recordingCancelSubscription) Request(int64) {}
func (s *recordingCancelSubscription) Cancel()       { s.source.cancelled = true }
