package compact

import (
	"context"
	"time"

	"limits"
	"pfn"

	log "github.com/sirupsen/logrus"
)

// congestionWait is the short timer sync-mode backpressure waits on,
// standing in for the original's wait_iff_congested.
const congestionWait = 2 * time.Millisecond

// tooManyIsolated implements the backpressure check of spec.md 4.C: while
// the zone's isolated count exceeds half the live LRU population, async
// bails immediately and sync waits and rechecks. Returns false on abort.
// The ceiling is expressed as a limits.Budget re-armed from the zone's live
// LRU population on every check, rather than a bare comparison, so the
// policy reads the same way the rest of this codebase expresses headroom.
func tooManyIsolated(ctx context.Context, z Zone, mode LockMode) bool {
	budget := limits.NewBudget(0)
	for {
		active, inactive := z.ActiveInactiveCount()
		anon, file := z.IsolatedCount()
		budget.Reset((active + inactive) / 2)
		if budget.Taken(anon + file) {
			return true
		}
		if mode == Async {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(congestionWait):
		}
	}
}

// isolateMigrateRange implements spec.md 4.C. It returns the PFN to resume
// scanning from, or 0 to signal abort (matching the original source's use
// of 0 as a sentinel; a scan that does not abort always resumes past
// lowPFN, so its resume PFN is never 0).
func isolateMigrateRange(ctx context.Context, z Zone, c *Control, lowPFN, endPFN pfn.PFN) pfn.PFN {
	mode := c.lockMode()

	if !tooManyIsolated(ctx, z, mode) {
		c.log.Debug("compact: too many isolated pages, backing off")
		return 0
	}

	g := NewGuard(z.LRULock())
	g.Acquire()

	var (
		isolatedAnon, isolatedFile int64
		inBlock                    pfn.PFN
		blockSkippable             bool
		haveBlock                  bool
		resume                     pfn.PFN = endPFN
		aborted                    bool
	)

	p := lowPFN
scan:
	for ; p < endPFN; p++ {
		if p%pfn.PFN(c.Tunables.SwapClusterMax) == 0 && p != lowPFN {
			g.Release()
		}

		if !g.Check(ctx, mode, &c.Contended) {
			resume = 0
			aborted = true
			break
		}

		if !z.PageValid(p) {
			if p%pfn.PFN(1<<uint(pfn.MaxOrder)) == 0 {
				p += pfn.PFN(1<<uint(pfn.MaxOrder)) - 1
			}
			continue
		}
		if !z.ZoneContains(p) {
			continue
		}
		if z.IsBuddy(p) {
			continue
		}

		block := pfn.BlockOf(p)
		if !haveBlock || block != inBlock {
			inBlock = block
			haveBlock = true
			blockSkippable = !mode.isAsyncSuitable(z, p)
		}
		if blockSkippable {
			blockStart := pfn.BlockOf(p) * pfn.PageblockPages()
			p = blockStart + pfn.PageblockPages() - 1
			continue
		}

		if !z.OnLRU(p) {
			continue
		}
		if z.IsTransparentHuge(p) {
			order := z.CompoundOrder(p)
			p += pfn.PFN(1<<uint(order)) - 1
			continue
		}

		if !z.TryIsolate(p, mode == Async) {
			continue
		}

		z.DetachFromLRU(p)
		c.MigratePages = append(c.MigratePages, p)
		if z.Backing(p) == pfn.Anon {
			isolatedAnon++
		} else {
			isolatedFile++
		}

		if c.nrMigratepages() >= c.Tunables.CompactClusterMax {
			resume = p + 1
			break scan
		}
	}
	if !aborted && p >= endPFN {
		resume = p
	}

	z.AcctIsolated(isolatedAnon, isolatedFile, true)
	g.Release()

	c.log.WithFields(log.Fields{
		"isolated_anon": isolatedAnon,
		"isolated_file": isolatedFile,
		"resume":        uint64(resume),
	}).Debug("compact: migrate range scanned")

	return resume
}

// isAsyncSuitable is the async pageblock filter of spec.md 4.C step 6,
// written as a method on LockMode so the call site above reads as a single
// predicate.
func (m LockMode) isAsyncSuitable(z Zone, p pfn.PFN) bool {
	if m != Async {
		return true
	}
	return z.PageblockMigrateType(p).AsyncSuitable()
}
