package compact

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
)

// CoarseLock is a mutex that tracks whether a goroutine is currently
// waiting on it, standing in for the kernel's spin_is_contended() query on
// a spinlock (spec.md 4.A). The teacher kernel has no equivalent — biscuit
// runs with its own cooperative scheduler rather than goroutines — so this
// is new code grounded purely on the contract spec.md 4.A names.
type CoarseLock struct {
	mu        sync.Mutex
	contended int32
}

// NewCoarseLock returns an unlocked CoarseLock.
func NewCoarseLock() *CoarseLock {
	return &CoarseLock{}
}

// Lock acquires the lock, marking it contended for the duration of any
// wait so a concurrent holder's arbitration check can observe the
// contention.
func (l *CoarseLock) Lock() {
	if l.mu.TryLock() {
		return
	}
	atomic.AddInt32(&l.contended, 1)
	l.mu.Lock()
	atomic.AddInt32(&l.contended, -1)
}

// Unlock releases the lock.
func (l *CoarseLock) Unlock() {
	l.mu.Unlock()
}

// TryLock attempts to acquire the lock without blocking.
func (l *CoarseLock) TryLock() bool {
	return l.mu.TryLock()
}

// Contended reports whether another goroutine is currently blocked waiting
// to acquire this lock.
func (l *CoarseLock) Contended() bool {
	return atomic.LoadInt32(&l.contended) > 0
}

// LockMode selects the arbitration policy of spec.md 4.A: Async aborts on
// contention, Sync yields and keeps going.
type LockMode int

const (
	Async LockMode = iota
	Sync
)

// Guard implements the lock arbitration helper of spec.md 4.A
// (compact_checklock_irqsave in the original source). It is the only place
// in the engine that re-acquires a coarse lock mid-scan, so contention
// policy stays uniform across callers.
type Guard struct {
	lock *CoarseLock
	held bool
}

// NewGuard wraps lock, starting in the unlocked state.
func NewGuard(lock *CoarseLock) *Guard {
	return &Guard{lock: lock}
}

// Held reports whether the guard currently holds its lock.
func (g *Guard) Held() bool { return g.held }

// Acquire unconditionally takes the lock, for call sites that enter a scan
// already expecting to hold it.
func (g *Guard) Acquire() {
	if !g.held {
		g.lock.Lock()
		g.held = true
	}
}

// Release drops the lock if held.
func (g *Guard) Release() {
	if g.held {
		g.lock.Unlock()
		g.held = false
	}
}

// Check is the per-iteration arbitration point. mode selects Async/Sync
// policy; contended, if non-nil, is set to true on an async abort so the
// caller's control block can report it outward (spec.md 3:
// Control.Contended). Check returns whether the lock is held on return;
// false means "abort the current scan".
func (g *Guard) Check(ctx context.Context, mode LockMode, contended *bool) bool {
	// Contention is queried unconditionally, not gated on g.held: a caller
	// entering via TryAcquire has held == false and must still abort (async)
	// or yield (sync) on a contended lock rather than blocking on it.
	if g.lock.Contended() {
		g.Release()

		if mode == Async {
			if contended != nil {
				*contended = true
			}
			return false
		}

		runtime.Gosched()
		if ctx.Err() != nil {
			return false
		}
	}

	g.Acquire()
	return true
}

// TryAcquire is the trylock arbitration entry point used by call sites that
// enter with the lock not held (spec.md 4.A's compact_trylock_irqsave):
// Check run from the unlocked state.
func (g *Guard) TryAcquire(ctx context.Context, mode LockMode, contended *bool) bool {
	g.held = false
	return g.Check(ctx, mode, contended)
}
