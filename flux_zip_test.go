package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestZip2EmitsPairsInLockstep(t *testing.T) {
	a := FromSlice([]int{1, 2, 3})
	b := FromSlice([]string{"a", "b", "c"})
	c := newCollector[string]()
	Zip2(a, b, func(x int, y string) string { return y + string(rune('0'+x)) }).Subscribe(c)

	assert.Equal(t, []string{"a1", "b2", "c3"}, c.Values())
	assert.True(t, c.Completed())
	assert.Nil(t, c.Err())
}

func TestZip2StopsAtShorterSource(t *testing.T) {
	a := FromSlice([]int{1, 2, 3, 4})
	b := FromSlice([]int{10, 20})
	c := newCollector[int]()
	Zip2(a, b, func(x, y int) int { return x + y }).Subscribe(c)

	assert.Equal(t, []int{11, 22}, c.Values())
	assert.True(t, c.Completed())
}

func TestZipSliceCombinesEveryQueueHead(t *testing.T) {
	sources := []Flux[int]{FromSlice([]int{1, 2}), FromSlice([]int{10, 20}), FromSlice([]int{100, 200})}
	c := newCollector[int]()
	ZipSlice(sources, func(row []int) int {
		sum := 0
		for _, v := range row {
			sum += v
		}
		return sum
	}).Subscribe(c)

	assert.Equal(t, []int{111, 222}, c.Values())
	assert.True(t, c.Completed())
}

func TestZipSliceEmptySourcesCompletesImmediately(t *testing.T) {
	c := newCollector[int]()
	ZipSlice[int, int](nil, func(row []int) int { return 0 }).Subscribe(c)

	assert.Empty(t, c.Values())
	assert.True(t, c.Completed())
}
