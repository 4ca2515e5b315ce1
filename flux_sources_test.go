package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJustEmitsSingleValueThenCompletes(t *testing.T) {
	c := newCollector[int]()
	Just(42).Subscribe(c)

	assert.Equal(t, []int{42}, c.Values())
	assert.True(t, c.Completed())
}

func TestEmptyCompletesWithNoValues(t *testing.T) {
	c := newCollector[int]()
	Empty[int]().Subscribe(c)

	assert.Empty(t, c.Values())
	assert.True(t, c.Completed())
}

func TestErrorDeliversErrUnwrapped(t *testing.T) {
	boom := protocolError("boom")
	c := newCollector[int]()
	Error[int](boom).Subscribe(c)

	assert.Empty(t, c.Values())
	assert.Equal(t, boom, c.Err())
}

func TestFromSliceEmitsEveryElementInOrder(t *testing.T) {
	c := newCollector[string]()
	FromSlice([]string{"a", "b", "c"}).Subscribe(c)

	assert.Equal(t, []string{"a", "b", "c"}, c.Values())
	assert.True(t, c.Completed())
}

func TestFromSliceOfEmptySliceCompletesImmediately(t *testing.T) {
	c := newCollector[int]()
	FromSlice([]int(nil)).Subscribe(c)

	assert.Empty(t, c.Values())
	assert.True(t, c.Completed())
}

func TestRangeEmitsCountValuesFromStart(t *testing.T) {
	c := newCollector[int]()
	Range(5, 3).Subscribe(c)

	assert.Equal(t, []int{5, 6, 7}, c.Values())
	assert.True(t, c.Completed())
}

func TestRangeOfZeroCountCompletesImmediately(t *testing.T) {
	c := newCollector[int]()
	Range(0, 0).Subscribe(c)

	assert.Empty(t, c.Values())
	assert.True(t, c.Completed())
}

func TestDeferCallsSupplierOncePerSubscription(t *testing.T) {
	calls := 0
	d := Defer[int](func() Flux[int] {
		calls++
		return Just(calls)
	})

	c1 := newCollector[int]()
	d.Subscribe(c1)
	c2 := newCollector[int]()
	d.Subscribe(c2)

	assert.Equal(t, []int{1}, c1.Values())
	assert.Equal(t, []int{2}, c2.Values())
	assert.Equal(t, 2, calls)
}

func TestFromCallableEmitsReturnedValue(t *testing.T) {
	c := newCollector[int]()
	FromCallable[int](func() (int, error) { return 99, nil }).Subscribe(c)

	assert.Equal(t, []int{99}, c.Values())
	assert.True(t, c.Completed())
}

func TestFromCallableErrorsOnCallableFailure(t *testing.T) {
	boom := protocolError("boom")
	c := newCollector[int]()
	FromCallable[int](func() (int, error) { return 0, boom }).Subscribe(c)

	assert.Empty(t, c.Values())
	assert.Equal(t, boom, c.Err())
}
