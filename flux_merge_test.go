package flux

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeInterleavesAllSourcesAndCompletes(t *testing.T) {
	a := FromSlice([]int{1, 2, 3})
	b := FromSlice([]int{4, 5, 6})

	c := newCollector[int]()
	Merge[int](2, a, b).Subscribe(c)

	got := append([]int{}, c.Values()...)
	sort.Ints(got)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, got)
	assert.True(t, c.Completed())
}

func TestMergeFailsFastOnFirstError(t *testing.T) {
	boom := protocolError("boom")
	a := FromSlice([]int{1, 2})
	b := Error[int](boom)

	c := newCollector[int]()
	Merge[int](2, a, b).Subscribe(c)

	assert.Equal(t, boom, c.Err())
}

func TestMergeDelayErrorCombinesErrorsAfterAllSourcesFinish(t *testing.T) {
	errA := protocolError("a failed")
	errB := protocolError("b failed")

	c := newCollector[int]()
	MergeDelayError[int](2, Error[int](errA), Error[int](errB)).Subscribe(c)

	assert.ErrorIs(t, c.Err(), errA)
	assert.ErrorIs(t, c.Err(), errB)
}

func TestMergeRespectsConcurrencyLimit(t *testing.T) {
	a := FromSlice([]int{1})
	b := FromSlice([]int{2})
	c := FromSlice([]int{3})

	col := newCollector[int]()
	Merge[int](1, a, b, c).Subscribe(col)

	got := append([]int{}, col.Values()...)
	sort.Ints(got)
	assert.Equal(t, []int{1, 2, 3}, got)
	assert.True(t, col.Completed())
}
