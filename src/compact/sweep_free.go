package compact

import (
	"context"

	"pfn"
	"util"

	log "github.com/sirupsen/logrus"
)

// freeSweepSuitable is the suitability test of spec.md 4.D step 2: reject
// ISOLATE/RESERVE pageblocks; accept a block holding a buddy page of
// pageblock order or larger, or a block whose type is async-suitable
// (MOVABLE/CMA).
func freeSweepSuitable(z Buddy, p pfn.PFN) bool {
	mt := z.PageblockMigrateType(p)
	if mt == pfn.Isolate || mt == pfn.Reserve {
		return false
	}
	if z.IsBuddy(p) && z.BuddyOrder(p) >= pfn.PageblockOrder {
		return true
	}
	return mt.AsyncSuitable()
}

// sweepFreePages implements spec.md 4.D: walk pageblocks downward from
// c.FreePFN, isolating destinations into c.FreePages until enough exist or
// the cursor would cross c.MigratePFN.
func sweepFreePages(ctx context.Context, z Zone, c *Control) {
	highPFN := pfn.PFN(0)
	stride := pfn.PageblockPages()
	zoneEnd := z.StartPFN() + z.SpannedPages()
	p := c.FreePFN

	for c.nrMigratepages() > c.nrFreepages() && p > c.MigratePFN {
		if !z.PageValid(p) || !z.ZoneContains(p) || !freeSweepSuitable(z, p) {
			if p < stride {
				break
			}
			p -= stride
			continue
		}

		g := NewGuard(z.Lock())
		if !g.TryAcquire(ctx, c.lockMode(), &c.Contended) {
			c.log.Debug("compact: free sweep stopped on lock contention")
			break
		}

		if freeSweepSuitable(z, p) {
			end := util.Min(p+stride, zoneEnd)
			before := len(c.FreePages)
			n, next := isolateFreeBlock(z, p, end, c.FreePages, false)
			c.FreePages = next
			if n > 0 {
				z.PrepareFreePages(c.FreePages[before:])
				if p > highPFN {
					highPFN = p
				}
			}
		}
		g.Release()

		if p < stride {
			break
		}
		p -= stride
	}

	if highPFN != 0 {
		c.FreePFN = highPFN
	} else {
		c.FreePFN = p
	}

	c.log.WithFields(log.Fields{
		"free_pfn": uint64(c.FreePFN),
		"isolated": len(c.FreePages),
	}).Debug("compact: free sweep done")
}
