package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapTransformsEveryValue(t *testing.T) {
	c := newCollector[int]()
	Map[int, int](FromSlice([]int{1, 2, 3}), func(v int) (int, error) { return v * 2, nil }).Subscribe(c)

	assert.Equal(t, []int{2, 4, 6}, c.Values())
	assert.True(t, c.Completed())
}

func TestMapPropagatesFunctionErrorAndCancelsUpstream(t *testing.T) {
	boom := protocolError("boom")
	c := newCollector[int]()
	Map[int, int](FromSlice([]int{1, 2, 3}), func(v int) (int, error) {
		if v == 2 {
			return 0, boom
		}
		return v, nil
	}).Subscribe(c)

	assert.Equal(t, []int{1}, c.Values())
	assert.Equal(t, boom, c.Err())
}

func TestMapMonoTransformsTheSingleValue(t *testing.T) {
	m := MapMono[string, int](MonoFromPublisher[string](&justOp[string]{value: "hi"}), func(v string) (int, error) {
		return len(v), nil
	})
	c := newCollector[int]()
	m.Subscribe(c)

	assert.Equal(t, []int{2}, c.Values())
}

func TestFilterKeepsOnlyMatchingValues(t *testing.T) {
	c := newCollector[int]()
	FromSlice([]int{1, 2, 3, 4, 5}).Filter(func(v int) bool { return v%2 == 0 }).Subscribe(c)

	assert.Equal(t, []int{2, 4}, c.Values())
	assert.True(t, c.Completed())
}

func TestMonoFilterKeepsMatchingValueOrCompletesEmpty(t *testing.T) {
	kept := MonoFromPublisher[int](&justOp[int]{value: 4}).Filter(func(v int) bool { return v%2 == 0 })
	c1 := newCollector[int]()
	kept.Subscribe(c1)
	assert.Equal(t, []int{4}, c1.Values())

	dropped := MonoFromPublisher[int](&justOp[int]{value: 3}).Filter(func(v int) bool { return v%2 == 0 })
	c2 := newCollector[int]()
	dropped.Subscribe(c2)
	assert.Empty(t, c2.Values())
	assert.True(t, c2.Completed())
}

func TestPeekCallsEveryHookInOrder(t *testing.T) {
	var events []string
	l := &Listener[int]{
		DoFirst:      func() { events = append(events, "first") },
		DoOnNext:     func(v int) { events = append(events, "next") },
		DoOnComplete: func() { events = append(events, "complete") },
		DoFinally:    func(SignalKind) { events = append(events, "finally") },
	}

	c := newCollector[int]()
	FromSlice([]int{1, 2}).Peek(l).Subscribe(c)

	assert.Equal(t, []int{1, 2}, c.Values())
	assert.Equal(t, []string{"first", "next", "next", "complete", "finally"}, events)
}

func TestTakeLimitsToFirstN(t *testing.T) {
	c := newCollector[int]()
	FromSlice([]int{1, 2, 3, 4, 5}).Take(3).Subscribe(c)

	assert.Equal(t, []int{1, 2, 3}, c.Values())
	assert.True(t, c.Completed())
}

func TestTakeZeroCompletesWithoutSubscribingDownstreamValues(t *testing.T) {
	c := newCollector[int]()
	FromSlice([]int{1, 2, 3}).Take(0).Subscribe(c)

	assert.Empty(t, c.Values())
	assert.True(t, c.Completed())
}

func TestSkipDropsFirstN(t *testing.T) {
	c := newCollector[int]()
	FromSlice([]int{1, 2, 3, 4, 5}).Skip(2).Subscribe(c)

	assert.Equal(t, []int{3, 4, 5}, c.Values())
	assert.True(t, c.Completed())
}

func TestHidePreservesValuesButByPassesFusion(t *testing.T) {
	c := newCollector[int]()
	FromSlice([]int{1, 2, 3}).Hide().Subscribe(c)

	assert.Equal(t, []int{1, 2, 3}, c.Values())
	assert.True(t, c.Completed())
	if _, ok := c.subscription.(QueueSubscription[int]); ok {
		t.Fatalf("Hide must not expose a fusable QueueSubscription")
	}
}

func TestIgnoreElementsDropsValuesButPropagatesCompletion(t *testing.T) {
	c := newCollector[int]()
	FromSlice([]int{1, 2, 3}).IgnoreElements().Subscribe(c)

	assert.Empty(t, c.Values())
	assert.True(t, c.Completed())
}

func TestMaterializeWrapsEverySignal(t *testing.T) {
	c := newCollector[Signal[int]]()
	FromSlice([]int{1, 2}).Materialize().Subscribe(c)

	vals := c.Values()
	assert.Len(t, vals, 3)
	assert.Equal(t, SignalNext, vals[0].Kind)
	assert.Equal(t, 1, vals[0].Value)
	assert.Equal(t, SignalNext, vals[1].Kind)
	assert.Equal(t, 2, vals[1].Value)
	assert.Equal(t, SignalComplete, vals[2].Kind)
}

func TestDematerializeUnwrapsSignalsBackIntoValues(t *testing.T) {
	sigs := FromSlice([]Signal[int]{NextSignal(1), NextSignal(2), CompleteSignal[int]()})
	c := newCollector[int]()
	Dematerialize[int](sigs).Subscribe(c)

	assert.Equal(t, []int{1, 2}, c.Values())
	assert.True(t, c.Completed())
}

func TestDematerializeErrorSignalTerminatesWithError(t *testing.T) {
	boom := protocolError("boom")
	sigs := FromSlice([]Signal[int]{NextSignal(1), ErrorSignal[int](boom)})
	c := newCollector[int]()
	Dematerialize[int](sigs).Subscribe(c)

	assert.Equal(t, []int{1}, c.Values())
	assert.Equal(t, boom, c.Err())
}

func TestScanEmitsRunningAccumulation(t *testing.T) {
	c := newCollector[int]()
	Scan[int, int](FromSlice([]int{1, 2, 3, 4}), 0, func(acc, v int) (int, error) { return acc + v, nil }).Subscribe(c)

	assert.Equal(t, []int{1, 3, 6, 10}, c.Values())
	assert.True(t, c.Completed())
}

func TestReduceEmitsOnlyFinalAccumulation(t *testing.T) {
	m := Reduce[int, int](FromSlice([]int{1, 2, 3, 4}), 0, func(acc, v int) (int, error) { return acc + v, nil })
	c := newCollector[int]()
	m.Subscribe(c)

	assert.Equal(t, []int{10}, c.Values())
	assert.True(t, c.Completed())
}

func TestDistinctSuppressesRepeatedKeys(t *testing.T) {
	c := newCollector[int]()
	Distinct[int, int](FromSlice([]int{1, 1, 2, 2, 3, 1}), func(v int) int { return v }).Subscribe(c)

	assert.Equal(t, []int{1, 2, 3}, c.Values())
	assert.True(t, c.Completed())
}

func TestTransformAppliesFunctionToWholeSequence(t *testing.T) {
	c := newCollector[int]()
	Transform[int, int](FromSlice([]int{1, 2, 3}), func(f Flux[int]) Flux[int] {
		return f.Filter(func(v int) bool { return v > 1 })
	}).Subscribe(c)

	assert.Equal(t, []int{2, 3}, c.Values())
}

func TestTransformDeferredInvokesFunctionOncePerSubscription(t *testing.T) {
	calls := 0
	seq := TransformDeferred[int, int](FromSlice([]int{1, 2}), func(f Flux[int]) Flux[int] {
		calls++
		return f
	})

	c1 := newCollector[int]()
	seq.Subscribe(c1)
	c2 := newCollector[int]()
	seq.Subscribe(c2)

	assert.Equal(t, 2, calls)
}
