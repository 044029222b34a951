// Package shutdown provides the one-shot latch the control goroutine blocks on
// until the audio host, a signal handler or the pipeline watcher asks the
// process to stop.
package shutdown

import "sync"

// Latch is a guarded boolean paired with a condition variable. Once tripped it
// stays tripped. The first cause passed to Signal is kept; a nil cause means an
// orderly stop.
//
// The latch has its own mutex and shares nothing with the real-time path.
type Latch struct {
	mu      sync.Mutex
	cond    *sync.Cond
	tripped bool
	cause   error
}

// New returns an untripped latch.
func New() *Latch {
	l := &Latch{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Signal trips the latch and wakes every waiter. It reports whether this call
// tripped it; later calls change nothing.
func (l *Latch) Signal(cause error) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.tripped {
		return false
	}
	l.tripped = true
	l.cause = cause
	l.cond.Broadcast()
	return true
}

// Wait blocks until the latch is tripped and returns the recorded cause.
func (l *Latch) Wait() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for !l.tripped {
		l.cond.Wait()
	}
	return l.cause
}

// Tripped reports whether Signal has been called.
func (l *Latch) Tripped() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tripped
}
