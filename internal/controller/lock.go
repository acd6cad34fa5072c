package controller

import "sync/atomic"

// buildLock provides non-blocking lock semantics using atomic operations.
// It is the sole mutual-exclusion mechanism for index builds: a second
// caller during an in-flight build is rejected, never queued.
type buildLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking.
// Returns true if the lock was successfully acquired, false otherwise.
func (l *buildLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock.
// Must only be called by the goroutine that successfully acquired the lock.
func (l *buildLock) Release() {
	l.state.Store(0)
}

// Held reports whether the lock is currently taken
func (l *buildLock) Held() bool {
	return l.state.Load() == 1
}
