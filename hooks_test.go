package flux

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOnNextDroppedPrefersContextHookOverGlobal(t *testing.T) {
	var fromCtx, fromGlobal any
	SetGlobalOnNextDropped(func(v any) { fromGlobal = v })
	defer ResetGlobalHooks()

	ctx := WithOnNextDropped(EmptyContext(), func(v any) { fromCtx = v })
	onNextDropped(ctx, 7)

	assert.Equal(t, 7, fromCtx)
	assert.Nil(t, fromGlobal)
}

func TestOnNextDroppedFallsBackToGlobalWhenNoContextHook(t *testing.T) {
	var fromGlobal any
	SetGlobalOnNextDropped(func(v any) { fromGlobal = v })
	defer ResetGlobalHooks()

	onNextDropped(EmptyContext(), 9)

	assert.Equal(t, 9, fromGlobal)
}

func TestOnErrorDroppedIgnoresNilError(t *testing.T) {
	called := false
	SetGlobalOnErrorDropped(func(err error) { called = true })
	defer ResetGlobalHooks()

	onErrorDropped(EmptyContext(), nil)

	assert.False(t, called)
}

func TestOnDiscardRoutesToContextHook(t *testing.T) {
	var got any
	ctx := WithOnDiscard(EmptyContext(), func(v any) { got = v })
	onDiscard(ctx, "discarded")

	assert.Equal(t, "discarded", got)
}

func TestOnOperatorErrorCancelsSubscriptionAndDiscardsValue(t *testing.T) {
	boom := protocolError("boom")
	sub := &hookTestSubscription{}
	var discarded any
	ctx := WithOnDiscard(EmptyContext(), func(v any) { discarded = v })

	err := onOperatorError(ctx, sub, boom, true, 5)

	assert.Equal(t, boom, err)
	assert.True(t, sub.cancelled)
	assert.Equal(t, 5, discarded)
}

func TestOnOperatorErrorWithContinueHookSwallowsErrorAndLeavesSubscriptionAlone(t *testing.T) {
	boom := protocolError("boom")
	sub := &hookTestSubscription{}
	var handledErr error
	var handledVal any
	ctx := WithOnErrorContinue(EmptyContext(), func(err error, value any) {
		handledErr = err
		handledVal = value
	})

	result := onOperatorError(ctx, sub, boom, true, 11)

	assert.Nil(t, result)
	assert.False(t, sub.cancelled)
	assert.Equal(t, boom, handledErr)
	assert.Equal(t, 11, handledVal)
}

type hookTestSubscription struct{ cancelled bool }

func (s *hookTestSubscription) Request(int64) {}
func (s *hookTestSubscription) Cancel()       { s.cancelled = true }
