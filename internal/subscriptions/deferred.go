package subscriptions

import "sync"

// cancelledSentinel is installed in place of the real upstream once
// Cancel has run, so a late-arriving Set is cancelled immediately instead
// of being stored (§4.G "cancel: set subscription to a cancelled
// sentinel").
type cancelledSentinel struct{}

func (cancelledSentinel) Request(int64) {}
func (cancelledSentinel) Cancel()       {}

// Deferred holds a pending demand and a yet-to-arrive upstream
// Subscription (§4.C). Request either forwards to the upstream if one has
// already been Set, or accumulates into the pending counter with
// saturation; Set, once called, atomically drains whatever had
// accumulated into the newly-arrived upstream's Request. Cancel is
// idempotent and safe to call before Set ever runs.
type Deferred struct {
	mu        sync.Mutex
	upstream  Subscription
	requested int64
	cancelled bool
}

// Request implements Subscription.Request.
func (d *Deferred) Request(n int64) {
	if n < 1 {
		return
	}
	d.mu.Lock()
	if d.cancelled {
		d.mu.Unlock()
		return
	}
	if d.upstream != nil {
		up := d.upstream
		d.mu.Unlock()
		up.Request(n)
		return
	}
	d.requested = addCap(d.requested, n)
	d.mu.Unlock()
}

// Cancel implements Subscription.Cancel. Idempotent.
func (d *Deferred) Cancel() {
	d.mu.Lock()
	if d.cancelled {
		d.mu.Unlock()
		return
	}
	d.cancelled = true
	up := d.upstream
	d.upstream = cancelledSentinel{}
	d.mu.Unlock()
	if up != nil {
		up.Cancel()
	}
}

// Set installs the upstream Subscription once it arrives, draining any
// pending demand into it. Returns false if Set was already called or the
// Deferred was cancelled first (the caller should then Cancel the
// just-arrived Subscription itself — that is what ValidateSubscription's
// contract elsewhere in this module expects of callers).
func (d *Deferred) Set(s Subscription) bool {
	d.mu.Lock()
	if d.cancelled {
		d.mu.Unlock()
		s.Cancel()
		return false
	}
	if d.upstream != nil {
		d.mu.Unlock()
		return false
	}
	pending := d.requested
	d.requested = 0
	d.upstream = s
	d.mu.Unlock()
	if pending > 0 {
		s.Request(pending)
	}
	return true
}

// IsCancelled reports whether Cancel has run.
func (d *Deferred) IsCancelled() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelled
}
