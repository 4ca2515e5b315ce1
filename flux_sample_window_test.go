package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleEmitsLatestMainValueOnEveryTick(t *testing.T) {
	main := NewSink[int]()
	ticks := NewSink[struct{}]()

	c := newCollector[int]()
	Sample[int, struct{}](main.AsFlux(), ticks.AsFlux()).Subscribe(c)

	main.TryEmitNext(1)
	main.TryEmitNext(2)
	ticks.TryEmitNext(struct{}{})
	main.TryEmitNext(3)
	ticks.TryEmitNext(struct{}{})
	ticks.TryEmitNext(struct{}{})
	main.TryEmitComplete()

	assert.Equal(t, []int{2, 3}, c.Values())
	assert.True(t, c.Completed())
}

func TestWindowByBoundaryOpensNewWindowOnEveryPulse(t *testing.T) {
	main := NewSink[int]()
	boundary := NewSink[struct{}]()

	var collectors []*collector[int]
	var outerCompleted bool
	sub := &eagerWindowSubscriber{
		onWindow: func(w Flux[int]) {
			wc := newCollector[int]()
			w.Subscribe(wc)
			collectors = append(collectors, wc)
		},
		onComplete: func() { outerCompleted = true },
	}
	WindowByBoundary[int, struct{}](main.AsFlux(), boundary.AsFlux()).Subscribe(sub)

	main.TryEmitNext(1)
	main.TryEmitNext(2)
	boundary.TryEmitNext(struct{}{})
	main.TryEmitNext(3)
	main.TryEmitComplete()

	var windows [][]int
	for _, wc := range collectors {
		windows = append(windows, wc.Values())
	}
	assert.Equal(t, [][]int{{1, 2}, {3}}, windows)
	assert.True(t, outerCompleted)
}

// eagerWindowSubscriber subscribes to each window Flux as soon as it
// arrives, since a window's backing Sink never replays past values to a
// subscriber that joins after the window has already completed.
type eagerWindowSubscriber struct {
	onWindow   func(Flux[int])
	onComplete func()
}

func (s *eagerWindowSubscriber) OnSubscribe(sub Subscription) { sub.Request(MaxDemand) }
func (s *eagerWindowSubscriber) OnNext(w Flux[int])            { s.onWindow(w) }
func (s *eagerWindowSubscriber) OnError(error)                 {}
func (s *eagerWindowSubscriber) OnComplete()                   { s.onComplete() }
