package subscriptions

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSub struct {
	mu        sync.Mutex
	requested []int64
	cancelled bool
}

func (r *recordingSub) Request(n int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requested = append(r.requested, n)
}
func (r *recordingSub) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cancelled = true
}

func TestDeferredAccumulatesBeforeSet(t *testing.T) {
	d := &Deferred{}
	d.Request(3)
	d.Request(4)

	up := &recordingSub{}
	require.True(t, d.Set(up))
	assert.Equal(t, []int64{7}, up.requested)

	d.Request(2)
	assert.Equal(t, []int64{7, 2}, up.requested)
}

func TestDeferredCancelBeforeSetCancelsLateUpstream(t *testing.T) {
	d := &Deferred{}
	d.Cancel()

	up := &recordingSub{}
	assert.False(t, d.Set(up))
	assert.True(t, up.cancelled)
}

func TestDeferredCancelIsIdempotent(t *testing.T) {
	d := &Deferred{}
	up := &recordingSub{}
	d.Set(up)
	d.Cancel()
	d.Cancel()
	assert.True(t, up.cancelled)
}

func TestMultiCarriesOverDemandMinusProduced(t *testing.T) {
	m := &Multi{}
	m.Request(10)

	first := &recordingSub{}
	m.Set(first)
	assert.Equal(t, []int64{10}, first.requested)

	m.Produced(4)

	second := &recordingSub{}
	m.Set(second)
	assert.Equal(t, []int64{6}, second.requested)
}

func TestMultiCarriesOverCorrectlyAcrossThreeUpstreams(t *testing.T) {
	m := &Multi{}
	m.Request(10)

	first := &recordingSub{}
	m.Set(first)
	assert.Equal(t, []int64{10}, first.requested)
	m.Produced(3)

	second := &recordingSub{}
	m.Set(second)
	assert.Equal(t, []int64{7}, second.requested)
	m.Produced(4)

	third := &recordingSub{}
	m.Set(third)
	assert.Equal(t, []int64{3}, third.requested)
}

func TestMultiRequestForwardsToCurrentUpstream(t *testing.T) {
	m := &Multi{}
	first := &recordingSub{}
	m.Set(first)

	m.Request(5)
	assert.Equal(t, []int64{5}, first.requested)
}

func TestMultiCancelPropagatesAndBlocksFutureSet(t *testing.T) {
	m := &Multi{}
	first := &recordingSub{}
	m.Set(first)
	m.Cancel()
	assert.True(t, first.cancelled)

	second := &recordingSub{}
	m.Set(second)
	assert.True(t, second.cancelled, "upstream arriving after cancel must itself be cancelled")
}

type recordingEmittable struct {
	mu       sync.Mutex
	nexts    []int
	err      error
	complete bool
}

func (r *recordingEmittable) OnNext(v int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nexts = append(r.nexts, v)
}
func (r *recordingEmittable) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}
func (r *recordingEmittable) OnComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete = true
}

func TestHalfSerializerDeliversInOrderWhenUncontended(t *testing.T) {
	rec := &recordingEmittable{}
	hs := NewHalfSerializer[int](rec)

	assert.Equal(t, EmitOK, hs.OnNext(1))
	assert.Equal(t, EmitOK, hs.OnNext(2))
	assert.Equal(t, EmitOK, hs.OnComplete())

	assert.Equal(t, []int{1, 2}, rec.nexts)
	assert.True(t, rec.complete)
}

func TestHalfSerializerRejectsEmissionAfterTerminal(t *testing.T) {
	rec := &recordingEmittable{}
	hs := NewHalfSerializer[int](rec)

	require.Equal(t, EmitOK, hs.OnComplete())
	assert.Equal(t, EmitFailTerminated, hs.OnNext(1))
	assert.Equal(t, EmitFailTerminated, hs.OnError(assertErr))
	assert.Empty(t, rec.nexts)
}

func TestHalfSerializerNonSerializedWhenContended(t *testing.T) {
	rec := &blockingEmittable{entered: make(chan struct{}), unblock: make(chan struct{})}
	hs := NewHalfSerializer[int](rec)

	go func() {
		hs.OnNext(1)
	}()
	<-rec.entered

	assert.Equal(t, EmitFailNonSerialized, hs.OnNext(2))
	close(rec.unblock)
}

type blockingEmittable struct {
	entered chan struct{}
	unblock chan struct{}
	once    sync.Once
}

func (b *blockingEmittable) OnNext(int) {
	b.once.Do(func() { close(b.entered) })
	<-b.unblock
}
func (b *blockingEmittable) OnError(error) {}
func (b *blockingEmittable) OnComplete()   {}

var assertErr = &testError{"boom"}

type testError struct{ msg string }

func (e *testError) Error() string { return e.msg }
