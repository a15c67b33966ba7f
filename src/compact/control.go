// Package compact implements the two-pointer buddy-system compaction
// algorithm: the migration-source isolator, the free-page isolator, the
// per-zone compaction driver, the opportunistic page-capture path, and the
// cross-zone try-loop, grounded on original_source/mm/compaction.c and
// fitted to the teacher kernel's locking and logging idiom.
package compact

import (
	"accnt"
	"stats"

	"pfn"

	log "github.com/sirupsen/logrus"
)

// Status is the outcome of a compaction attempt.
type Status int

// Numeric order matches the original source's COMPACT_SKIPPED/CONTINUE/
// PARTIAL/COMPLETE constants exactly, since entry.go folds per-zone results
// with max(status, rc) and relies on this ordering.
const (
	// Skipped means compaction was not attempted, or not worthwhile.
	Skipped Status = iota
	// Continue is an internal-only outcome: the termination predicate
	// wants another iteration of the main loop. It is never returned to a
	// caller outside this package.
	Continue
	// Partial means the run ended without cursors meeting, but may still
	// have produced a usable page.
	Partial
	// Complete means the cursors met.
	Complete
)

func (s Status) String() string {
	switch s {
	case Continue:
		return "CONTINUE"
	case Skipped:
		return "SKIPPED"
	case Partial:
		return "PARTIAL"
	case Complete:
		return "COMPLETE"
	default:
		return "UNKNOWN"
	}
}

// Tunables carries the build-time constants the original source hardcodes,
// loaded from compactor.toml by cmd/compactctl rather than fixed at compile
// time (SPEC_FULL.md 6).
type Tunables struct {
	SwapClusterMax     int64
	CompactClusterMax  int
	FragThreshold      int
	PageblockOrder     pfn.Order
	CompactDeferLimit  uint
	CompactDeferShift  uint
}

// DefaultTunables matches the values spec.md and the original source name.
func DefaultTunables() Tunables {
	return Tunables{
		SwapClusterMax:    32,
		CompactClusterMax: 32,
		FragThreshold:     500,
		PageblockOrder:    pfn.PageblockOrder,
		CompactDeferLimit: 64,
		CompactDeferShift: 6,
	}
}

// Control is the per-invocation, zone-scoped working state of spec.md 3:
// the "compaction control block". It is created by an entry point, lives
// for one zone run, and must be drained on every exit path.
type Control struct {
	Order       pfn.Order
	MigrateType pfn.MigrateType
	Sync        bool

	MigratePFN pfn.PFN
	FreePFN    pfn.PFN

	FreePages    []pfn.PFN
	MigratePages []pfn.PFN

	Contended   bool
	CaptureSlot *pfn.PFN

	Tunables Tunables
	Events   stats.Events
	Accnt    accnt.RunAccnt

	log *log.Entry
}

// NewControl builds a fresh control block for one zone run.
func NewControl(order pfn.Order, mtype pfn.MigrateType, sync bool, tunables Tunables, zoneName string) *Control {
	return &Control{
		Order:       order,
		MigrateType: mtype,
		Sync:        sync,
		Tunables:    tunables,
		log: log.WithFields(log.Fields{
			"zone":  zoneName,
			"order": int(order),
			"sync":  sync,
		}),
	}
}

func (c *Control) lockMode() LockMode {
	if c.Sync {
		return Sync
	}
	return Async
}

// nrFreepages and nrMigratepages are the cached list sizes spec.md 3 names;
// this implementation recomputes them from the slice length rather than
// maintaining a separate counter, since Go slices already carry it.
func (c *Control) nrFreepages() int    { return len(c.FreePages) }
func (c *Control) nrMigratepages() int { return len(c.MigratePages) }

// drain enforces invariant 5 of spec.md 3 on every exit path: residual free
// pages go back to the buddy allocator, residual migrate-source pages go
// back to the LRU.
func (c *Control) drain(z Zone) {
	if len(c.FreePages) > 0 {
		released := z.ReleaseFreePages(c.FreePages)
		if released != len(c.FreePages) {
			c.log.WithFields(log.Fields{
				"isolated": len(c.FreePages),
				"released": released,
			}).Warn("compact: short release of residual freepages")
		}
		c.FreePages = nil
	}
	if len(c.MigratePages) > 0 {
		z.Putback(c.MigratePages)
		c.MigratePages = nil
	}
}
