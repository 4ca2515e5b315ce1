package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextPutAndGetRoundTrip(t *testing.T) {
	type key struct{}
	ctx := EmptyContext().Put(key{}, 42)

	v, ok := ctx.Get(key{})
	assert.True(t, ok)
	assert.Equal(t, 42, v)
}

func TestContextGetOnUnboundKeyFails(t *testing.T) {
	type key struct{}
	_, ok := EmptyContext().Get(key{})
	assert.False(t, ok)
}

func TestContextPutShadowsEarlierBindingOfSameKey(t *testing.T) {
	type key struct{}
	ctx := EmptyContext().Put(key{}, 1).Put(key{}, 2)

	v, _ := ctx.Get(key{})
	assert.Equal(t, 2, v)
}

func TestContextGetOrFallsBackWhenUnbound(t *testing.T) {
	type key struct{}
	assert.Equal(t, "fallback", EmptyContext().GetOr(key{}, "fallback"))
}

func TestContextPutAllLayersOtherOnTop(t *testing.T) {
	type keyA struct{}
	type keyB struct{}
	base := EmptyContext().Put(keyA{}, "base")
	other := EmptyContext().Put(keyA{}, "override").Put(keyB{}, "extra")

	merged := base.PutAll(other)

	va, _ := merged.Get(keyA{})
	vb, _ := merged.Get(keyB{})
	assert.Equal(t, "override", va)
	assert.Equal(t, "extra", vb)
}

func TestWithListenerRoundTripsThroughGetListener(t *testing.T) {
	l := &Listener[int]{}
	ctx := WithListener[int](EmptyContext(), l)

	got, ok := GetListener[int](ctx)
	assert.True(t, ok)
	assert.Same(t, l, got)
}

func TestWithOnErrorContinueRoundTripsThroughGetOnErrorContinue(t *testing.T) {
	var seen error
	fn := func(err error, value any) { seen = err }
	ctx := WithOnErrorContinue(EmptyContext(), fn)

	got, ok := getOnErrorContinue(ctx)
	assert.True(t, ok)

	boom := protocolError("boom")
	got(boom, 7)
	assert.Equal(t, boom, seen)
}
