// Package limits provides an atomically updated budget, adapted from the
// teacher kernel's Sysatomic_t (biscuit/src/limits) give/take primitive,
// used here to enforce the too-many-isolated backpressure ceiling of
// spec.md 4.C rather than a per-process resource limit.
package limits

import "sync/atomic"

// Budget is a non-negative counter that callers take from and give back to.
// Taken reports whether the budget had enough headroom; Given always
// succeeds.
type Budget struct {
	remaining int64
}

// NewBudget returns a Budget initialised with n units of headroom.
func NewBudget(n int64) *Budget {
	return &Budget{remaining: n}
}

// Given increases the budget by n.
func (b *Budget) Given(n int64) {
	if n < 0 {
		panic("limits: negative give")
	}
	atomic.AddInt64(&b.remaining, n)
}

// Taken tries to remove n units from the budget, restoring them and
// reporting false if that would drive the budget negative.
func (b *Budget) Taken(n int64) bool {
	if n < 0 {
		panic("limits: negative take")
	}
	if atomic.AddInt64(&b.remaining, -n) >= 0 {
		return true
	}
	atomic.AddInt64(&b.remaining, n)
	return false
}

// Remaining returns the current headroom.
func (b *Budget) Remaining() int64 {
	return atomic.LoadInt64(&b.remaining)
}

// Reset sets the budget to exactly n, discarding any outstanding takes.
// Used at the start of each too-many-isolated check, since the ceiling is
// recomputed from live LRU counts on every call rather than accumulated.
func (b *Budget) Reset(n int64) {
	atomic.StoreInt64(&b.remaining, n)
}
