package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSinkDeliversToEverySubscriberInArrivalOrder(t *testing.T) {
	s := NewSink[int]()
	c1 := newCollector[int]()
	c2 := newCollector[int]()
	s.AsFlux().Subscribe(c1)
	s.AsFlux().Subscribe(c2)

	assert.Equal(t, EmitOK, s.TryEmitNext(1))
	assert.Equal(t, EmitOK, s.TryEmitNext(2))
	assert.Equal(t, EmitOK, s.TryEmitComplete())

	assert.Equal(t, []int{1, 2}, c1.Values())
	assert.Equal(t, []int{1, 2}, c2.Values())
	assert.True(t, c1.Completed())
	assert.True(t, c2.Completed())
}

func TestSinkTryEmitNextFailsAllOrNothingWhenOneSubscriberLacksDemand(t *testing.T) {
	s := NewSink[int]()
	starved := &demandLimitedSubscriber[int]{limit: 0}
	fed := newCollector[int]()
	s.AsFlux().Subscribe(starved)
	s.AsFlux().Subscribe(fed)

	result := s.TryEmitNext(1)

	assert.Equal(t, EmitFailOverflow, result)
	assert.Empty(t, fed.Values())
}

func TestSinkTryEmitNextAfterTerminationFails(t *testing.T) {
	s := NewSink[int]()
	s.AsFlux().Subscribe(newCollector[int]())
	s.TryEmitComplete()

	assert.Equal(t, EmitFailTerminated, s.TryEmitNext(1))
	assert.Equal(t, EmitFailTerminated, s.TryEmitComplete())
	assert.Equal(t, EmitFailTerminated, s.TryEmitError(protocolError("boom")))
}

func TestSinkCurrentSubscriberCountTracksAddAndRemove(t *testing.T) {
	s := NewSink[int]()
	assert.Equal(t, 0, s.CurrentSubscriberCount())

	c := newCollector[int]()
	s.AsFlux().Subscribe(c)
	assert.Equal(t, 1, s.CurrentSubscriberCount())

	c.subscription.Cancel()
	assert.Equal(t, 0, s.CurrentSubscriberCount())
}

func TestSinkEmitNextRetriesUntilPolicyGivesUp(t *testing.T) {
	s := NewSink[int]()
	starved := &demandLimitedSubscriber[int]{limit: 0}
	s.AsFlux().Subscribe(starved)

	attempts := 0
	s.EmitNext(1, func(r EmitResult) bool {
		attempts++
		return attempts < 3
	})

	assert.Equal(t, 3, attempts)
}

// demandLimitedSubscriber requests exactly limit items then never again,
// used to force TryEmitNext's overflow path deterministically.
type demandLimitedSubscriber[T any] struct {
	limit int64
}

func (d *demandLimitedSubscriber[T]) OnSubscribe(sub Subscription) {
	if d.limit > 0 {
		sub.Request(d.limit)
	}
}
func (d *demandLimitedSubscriber[T]) OnNext(T)        {}
func (d *demandLimitedSubscriber[T]) OnError(error)   {}
func (d *demandLimitedSubscriber[T]) OnComplete()     {}
