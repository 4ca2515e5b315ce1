package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// upstream [1,2,3,4,5] and boundary pulses after elements 2 and 4 emits
// [1,2], [3,4], [5] then onComplete.
func TestBufferByBoundaryPulsesAfterElements2And4(t *testing.T) {
	main := NewSink[int]()
	boundary := NewSink[struct{}]()

	c := newCollector[[]int]()
	BufferByBoundary[int, struct{}](main.AsFlux(), boundary.AsFlux(), func() []int { return nil }).Subscribe(c)

	main.TryEmitNext(1)
	main.TryEmitNext(2)
	boundary.TryEmitNext(struct{}{})
	main.TryEmitNext(3)
	main.TryEmitNext(4)
	boundary.TryEmitNext(struct{}{})
	main.TryEmitNext(5)
	main.TryEmitComplete()

	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, c.Values())
	assert.True(t, c.Completed())
}
