package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombineLatest2WaitsForBothThenEmitsOnEither(t *testing.T) {
	aSink := NewSink[int]()
	bSink := NewSink[string]()
	c := newCollector[string]()
	CombineLatest2(aSink.AsFlux(), bSink.AsFlux(), func(a int, b string) string {
		return b
	}).Subscribe(c)

	assert.Equal(t, EmitOK, aSink.TryEmitNext(1))
	assert.Empty(t, c.Values(), "no emission until both sides have a value")

	assert.Equal(t, EmitOK, bSink.TryEmitNext("x"))
	assert.Equal(t, []string{"x"}, c.Values())

	assert.Equal(t, EmitOK, aSink.TryEmitNext(2))
	assert.Equal(t, []string{"x", "x"}, c.Values())

	aSink.TryEmitComplete()
	bSink.TryEmitComplete()
	assert.True(t, c.Completed())
}

func TestCombineLatestSliceRequiresEverySource(t *testing.T) {
	sources := []Flux[int]{Just(1), Just(2), Just(3)}
	c := newCollector[int]()
	CombineLatestSlice(sources, func(row []int) int {
		sum := 0
		for _, v := range row {
			sum += v
		}
		return sum
	}).Subscribe(c)

	assert.Equal(t, []int{6}, c.Values())
	assert.True(t, c.Completed())
}
