package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSwitchMapSwitchesToLatestInner(t *testing.T) {
	outer := NewSink[int]()
	inners := map[int]*Sink[string]{1: NewSink[string](), 2: NewSink[string]()}
	c := newCollector[string]()

	SwitchMap[int, string](outer.AsFlux(), func(v int) Publisher[string] {
		return inners[v].AsFlux().Publisher()
	}).Subscribe(c)

	assert.Equal(t, EmitOK, outer.TryEmitNext(1))
	assert.Equal(t, EmitOK, inners[1].TryEmitNext("a"))
	assert.Equal(t, []string{"a"}, c.Values())

	assert.Equal(t, EmitOK, outer.TryEmitNext(2))
	// the first inner is now switched away from: further emissions on it
	// must not reach downstream.
	inners[1].TryEmitNext("stale")
	assert.Equal(t, EmitOK, inners[2].TryEmitNext("b"))
	assert.Equal(t, []string{"a", "b"}, c.Values())

	outer.TryEmitComplete()
	inners[2].TryEmitComplete()
	assert.True(t, c.Completed())
}

func TestSwitchMapPropagatesInnerError(t *testing.T) {
	outer := NewSink[int]()
	inner := NewSink[string]()
	c := newCollector[string]()

	SwitchMap[int, string](outer.AsFlux(), func(v int) Publisher[string] {
		return inner.AsFlux().Publisher()
	}).Subscribe(c)

	outer.TryEmitNext(1)
	boom := protocolError("boom")
	inner.TryEmitError(boom)

	assert.Equal(t, boom, c.Err())
}
