// Package accnt tracks how a single zone compaction run spends its time,
// adapted from the teacher kernel's per-process Accnt_t
// (biscuit/src/accnt/accnt.go), which accumulates user/system nanoseconds
// under a mutex so a consistent snapshot can be read back. Here the two
// buckets are time spent scanning (isolating sources and destinations) and
// time spent inside the external migration engine.
package accnt

import (
	"sync"
	"sync/atomic"
	"time"
)

// RunAccnt accumulates per-run timing. The embedded mutex lets Fetch take a
// consistent snapshot while ScanNs/MigrateNs may be updated concurrently by
// timers in the same run.
type RunAccnt struct {
	// Nanoseconds spent isolating migrate sources and free destinations.
	ScanNs int64
	// Nanoseconds spent inside the external migration engine.
	MigrateNs int64
	sync.Mutex
}

// Snapshot is a point-in-time copy of a RunAccnt's counters.
type Snapshot struct {
	ScanNs    int64
	MigrateNs int64
}

// AddScan adds delta nanoseconds to the scan-time counter.
func (a *RunAccnt) AddScan(delta time.Duration) {
	atomic.AddInt64(&a.ScanNs, int64(delta))
}

// AddMigrate adds delta nanoseconds to the migrate-time counter.
func (a *RunAccnt) AddMigrate(delta time.Duration) {
	atomic.AddInt64(&a.MigrateNs, int64(delta))
}

// Timer returns a function that, when called, adds the elapsed time since
// Timer was invoked to add.
func Timer(add func(time.Duration)) func() {
	start := time.Now()
	return func() { add(time.Since(start)) }
}

// Fetch returns a consistent snapshot of the accounting data.
func (a *RunAccnt) Fetch() Snapshot {
	a.Lock()
	defer a.Unlock()
	return Snapshot{
		ScanNs:    atomic.LoadInt64(&a.ScanNs),
		MigrateNs: atomic.LoadInt64(&a.MigrateNs),
	}
}

// Add merges another run's accounting into this one.
func (a *RunAccnt) Add(n *RunAccnt) {
	s := n.Fetch()
	a.Lock()
	a.ScanNs += s.ScanNs
	a.MigrateNs += s.MigrateNs
	a.Unlock()
}
