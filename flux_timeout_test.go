package flux

import (
	"testing"
	"time"

	executorimpl "github.com/streamwell/flux/internal/executor"
	"github.com/stretchr/testify/assert"
)

func TestTimeoutErrorsAfterSilenceWindow(t *testing.T) {
	clock := NewFakeClock()
	exec := executorimpl.New(clock)

	sink := NewSink[int]()
	c := newCollector[int]()
	sink.AsFlux().Timeout(10*time.Millisecond, exec).Subscribe(c)

	clock.Advance(10 * time.Millisecond)
	clock.BlockUntilReady()

	assert.Equal(t, ErrTimeout, c.Err())
}

func TestTimeoutResetsOnEveryValue(t *testing.T) {
	clock := NewFakeClock()
	exec := executorimpl.New(clock)

	sink := NewSink[int]()
	c := newCollector[int]()
	sink.AsFlux().Timeout(10*time.Millisecond, exec).Subscribe(c)

	clock.Advance(6 * time.Millisecond)
	clock.BlockUntilReady()
	sink.TryEmitNext(1)

	clock.Advance(6 * time.Millisecond)
	clock.BlockUntilReady()

	assert.Nil(t, c.Err())
	assert.Equal(t, []int{1}, c.Values())
}

func TestTimeoutFallsBackInsteadOfErroring(t *testing.T) {
	clock := NewFakeClock()
	exec := executorimpl.New(clock)

	sink := NewSink[int]()
	c := newCollector[int]()
	sink.AsFlux().TimeoutFallback(10*time.Millisecond, exec, FromSlice([]int{9, 8})).Subscribe(c)

	clock.Advance(10 * time.Millisecond)
	clock.BlockUntilReady()

	assert.Equal(t, []int{9, 8}, c.Values())
	assert.True(t, c.Completed())
}
