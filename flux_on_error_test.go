package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOnErrorContinueSkipsFailingElementAndKeepsGoing(t *testing.T) {
	var seen []any
	source := FromSlice([]int{1, 2, 0, 4})
	mapped := Map[int, int](source, func(v int) (int, error) {
		if v == 0 {
			return 0, protocolError("div by zero")
		}
		return 10 / v, nil
	})

	c := newCollector[int]()
	mapped.OnErrorContinue(func(err error, value any) {
		seen = append(seen, value)
	}).Subscribe(c)

	assert.Equal(t, []int{10, 5, 2}, c.Values())
	assert.True(t, c.Completed())
	assert.Equal(t, []any{0}, seen)
}

func TestOnErrorResumeSwitchesToFallbackSequence(t *testing.T) {
	boom := protocolError("boom")
	source := Error[int](boom)
	c := newCollector[int]()

	source.OnErrorResume(func(err error) Publisher[int] {
		assert.Equal(t, boom, err)
		return FromSlice([]int{7, 8}).Publisher()
	}).Subscribe(c)

	assert.Equal(t, []int{7, 8}, c.Values())
	assert.True(t, c.Completed())
	assert.Nil(t, c.Err())
}
