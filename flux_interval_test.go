package flux

import (
	"testing"
	"time"

	executorimpl "github.com/streamwell/flux/internal/executor"
	"github.com/stretchr/testify/assert"
)

func TestIntervalEmitsIncrementingTicksOnEveryPeriod(t *testing.T) {
	clock := NewFakeClock()
	exec := executorimpl.New(clock)

	c := newCollector[int64]()
	Interval(10*time.Millisecond, exec).Subscribe(c)

	clock.Advance(10 * time.Millisecond)
	clock.BlockUntilReady()
	clock.Advance(10 * time.Millisecond)
	clock.BlockUntilReady()
	clock.Advance(10 * time.Millisecond)
	clock.BlockUntilReady()

	assert.Equal(t, []int64{0, 1, 2}, c.Values())
}

func TestIntervalDelayedWaitsInitialDelayBeforeFirstTick(t *testing.T) {
	clock := NewFakeClock()
	exec := executorimpl.New(clock)

	c := newCollector[int64]()
	IntervalDelayed(5*time.Millisecond, 10*time.Millisecond, exec).Subscribe(c)

	clock.Advance(5 * time.Millisecond)
	clock.BlockUntilReady()
	assert.Equal(t, []int64{0}, c.Values())

	clock.Advance(10 * time.Millisecond)
	clock.BlockUntilReady()
	assert.Equal(t, []int64{0, 1}, c.Values())
}

func TestIntervalStopsTickingAfterCancel(t *testing.T) {
	clock := NewFakeClock()
	exec := executorimpl.New(clock)

	c := newCollector[int64]()
	Interval(10*time.Millisecond, exec).Subscribe(c)

	clock.Advance(10 * time.Millisecond)
	clock.BlockUntilReady()
	c.subscription.Cancel()

	clock.Advance(10 * time.Millisecond)
	clock.BlockUntilReady()

	assert.Equal(t, []int64{0}, c.Values())
}
