package observability

import "sync/atomic"

// Readiness tracks whether the service has completed at least one
// successful batch and is fit to serve traffic.
type Readiness struct {
	ready atomic.Bool
}

func (r *Readiness) SetReady() {
	r.ready.Store(true)
}

// SetNotReady flips the flag back, used when shutdown starts.
func (r *Readiness) SetNotReady() {
	r.ready.Store(false)
}

func (r *Readiness) Ready() bool {
	return r.ready.Load()
}
