// Package pool provides pooled timers for the short-lived waits the
// connection layer performs on every task start, avoiding a timer
// allocation per wait.
package pool

import (
	"sync"
	"time"
)

var timerPool sync.Pool

// GetTimer returns a timer set to fire after d, reusing a pooled one when
// available. Give it back with PutTimer once the wait is over.
func GetTimer(d time.Duration) *time.Timer {
	if v := timerPool.Get(); v != nil {
		t, _ := v.(*time.Timer) // pool only ever holds *time.Timer
		if t.Reset(d) {
			// The timer was still active; drain a pending fire so the caller
			// cannot observe a stale tick.
			select {
			case <-t.C:
			default:
			}
		}

		return t
	}

	return time.NewTimer(d)
}

// PutTimer stops t and returns it to the pool. The caller must not touch t
// afterwards.
func PutTimer(t *time.Timer) {
	if !t.Stop() {
		// Drain the fire the caller may not have consumed.
		select {
		case <-t.C:
		default:
		}
	}

	timerPool.Put(t)
}
