package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsingWhenRunsCompleteCleanupOnSuccess(t *testing.T) {
	var acquired, completed, errored, cancelled bool

	resource := MonoFromPublisher[string](&justOp[string]{value: "conn"})
	seq := UsingWhen[string, int](
		resource,
		func(d string) Publisher[int] {
			acquired = d == "conn"
			return FromSlice([]int{1, 2}).Publisher()
		},
		func(d string) Publisher[any] { completed = true; return Empty[any]().Publisher() },
		func(d string, err error) Publisher[any] { errored = true; return Empty[any]().Publisher() },
		func(d string) Publisher[any] { cancelled = true; return Empty[any]().Publisher() },
	)

	c := newCollector[int]()
	seq.Subscribe(c)

	assert.True(t, acquired)
	assert.Equal(t, []int{1, 2}, c.Values())
	assert.True(t, c.Completed())
	assert.True(t, completed)
	assert.False(t, errored)
	assert.False(t, cancelled)
}

func TestUsingWhenCombinesMainAndCleanupErrors(t *testing.T) {
	mainErr := protocolError("main failed")
	cleanupErr := protocolError("cleanup failed")

	resource := MonoFromPublisher[string](&justOp[string]{value: "conn"})
	seq := UsingWhen[string, int](
		resource,
		func(d string) Publisher[int] { return Error[int](mainErr).Publisher() },
		func(d string) Publisher[any] { return Empty[any]().Publisher() },
		func(d string, err error) Publisher[any] { return Error[any](cleanupErr).Publisher() },
		func(d string) Publisher[any] { return Empty[any]().Publisher() },
	)

	c := newCollector[int]()
	seq.Subscribe(c)

	assert.ErrorIs(t, c.Err(), mainErr)
	assert.ErrorIs(t, c.Err(), cleanupErr)
}
