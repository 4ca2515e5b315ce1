package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmbPicksFirstToSignalAndCancelsRest(t *testing.T) {
	a := NewSink[int]()
	b := NewSink[int]()
	c := newCollector[int]()

	Amb(a.AsFlux(), b.AsFlux()).Subscribe(c)

	assert.Equal(t, EmitOK, b.TryEmitNext(42))
	assert.Equal(t, 0, a.CurrentSubscriberCount(), "losing source must be cancelled")
	assert.Equal(t, []int{42}, c.Values())

	a.TryEmitNext(999) // no subscriber left; must not reach downstream
	b.TryEmitComplete()
	assert.Equal(t, []int{42}, c.Values())
	assert.True(t, c.Completed())
}

func TestAmbSingleSourcePassesThroughDirectly(t *testing.T) {
	c := newCollector[int]()
	Amb(FromSlice([]int{1, 2, 3})).Subscribe(c)
	assert.Equal(t, []int{1, 2, 3}, c.Values())
	assert.True(t, c.Completed())
}
