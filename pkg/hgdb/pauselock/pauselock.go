// Package pauselock implements the one-shot binary semaphore (C8) used to
// park the simulator thread on each breakpoint hit until the client resumes
// (spec.md 5). Wait blocks until a matching Ready; Ready on a non-waiting
// lock arms it for the next Wait. Unlike a counting semaphore, multiple
// Readys before a Wait do not accumulate - it is binary, not a counter.
package pauselock

// Lock is the pause lock. Use New to construct one; the zero value is not
// usable (its channel is nil).
type Lock struct {
	ch chan struct{}
}

// New returns a ready-to-use, initially disarmed lock.
func New() *Lock {
	return &Lock{ch: make(chan struct{}, 1)}
}

// Wait blocks until a matching Ready call. Only the simulator thread should
// call this (spec.md 5: "this is the only place the core may block the
// simulator thread").
func (l *Lock) Wait() {
	<-l.ch
}

// Ready releases exactly one Wait. If nothing is currently waiting, it arms
// the lock so that the next Wait returns immediately. A Ready on an
// already-armed lock is a no-op, preserving the "binary" (not counting)
// semantics spec.md 5 describes.
func (l *Lock) Ready() {
	select {
	case l.ch <- struct{}{}:
	default:
	}
}
