package compact

import (
	"context"
	"errors"

	"accnt"
	"migrate"
	"pfn"

	log "github.com/sirupsen/logrus"
)

// compactFinished is compact_finished from the original source: the
// termination predicate of spec.md 4.G step 5. It resolves the open
// question noted in spec.md 9 by indexing zone.free_area by the loop
// variable rather than the constant cc.order.
func compactFinished(ctx context.Context, z Zone, c *Control) Status {
	if ctx.Err() != nil {
		return Partial
	}
	if c.FreePFN <= c.MigratePFN {
		return Complete
	}
	if c.Order == pfn.Greedy {
		return Continue
	}

	if !z.WatermarkOK(c.Order, pfn.PFN(1)<<uint(c.Order)) {
		return Continue
	}

	if c.CaptureSlot != nil {
		if *c.CaptureSlot != 0 {
			return Partial
		}
		return Continue
	}

	for order := c.Order; order < pfn.MaxOrder; order++ {
		if !z.FreeListEmpty(order, c.MigrateType) {
			return Partial
		}
		if c.Order >= pfn.PageblockOrder && z.FreeAreaAnyFree(order) {
			return Partial
		}
	}

	return Continue
}

// compactionSuitable is compaction_suitable from the original source:
// spec.md 4.G step 1's suitability gate.
func compactionSuitable(z Zone, order pfn.Order, fragThreshold int) Status {
	if order == pfn.Greedy {
		return Continue
	}

	extra := pfn.PFN(2) << uint(order)
	if !z.WatermarkOK(0, extra) {
		return Skipped
	}

	fragindex := z.FragmentationIndex(order)
	if fragindex >= 0 && fragindex <= fragThreshold {
		return Skipped
	}
	if fragindex == -1000 && z.WatermarkOK(order, extra) {
		return Partial
	}

	return Continue
}

func migrateModeFor(c *Control) migrate.Mode {
	if c.Sync {
		return migrate.SyncLight
	}
	return migrate.Async
}

// allocCallback is the pull interface spec.md 6 and design note 3 (9)
// describe: a closure over the control block that invokes the free-page
// sweep lazily, only when the migration engine actually asks for a
// destination.
func allocCallback(ctx context.Context, z Zone, c *Control) migrate.AllocFunc {
	return func() (pfn.PFN, bool) {
		if len(c.FreePages) == 0 {
			sweepFreePages(ctx, z, c)
		}
		if len(c.FreePages) == 0 {
			return 0, false
		}
		p := c.FreePages[0]
		c.FreePages = c.FreePages[1:]
		return p, true
	}
}

// CompactZone implements spec.md 4.G: the per-zone compaction driver.
func CompactZone(ctx context.Context, z Zone, c *Control, engine migrate.Engine) Status {
	ret := compactionSuitable(z, c.Order, c.Tunables.FragThreshold)
	if ret == Partial || ret == Skipped {
		return ret
	}

	c.MigratePFN = z.StartPFN()
	c.FreePFN = pfn.AlignDown(z.StartPFN() + z.SpannedPages())
	z.DrainLocal()

loop:
	for {
		ret = compactFinished(ctx, z, c)
		if ret != Continue {
			break
		}

		scanDone := accnt.Timer(c.Accnt.AddScan)
		outcome := sweepMigratePages(ctx, z, c)
		scanDone()

		switch outcome {
		case MigrateAbort:
			ret = Partial
			break loop
		case MigrateNone:
			continue loop
		case MigrateSuccess:
		}

		nrMigrate := c.nrMigratepages()
		migrateDone := accnt.Timer(c.Accnt.AddMigrate)
		remaining, result, err := engine.Migrate(ctx, c.MigratePages, allocCallback(ctx, z, c), migrateModeFor(c))
		migrateDone()
		c.MigratePages = nil

		c.Events.Blocks.Inc()
		c.Events.Pages.Add(int64(result.Moved))
		if len(remaining) > 0 {
			c.Events.PagesFailed.Add(int64(len(remaining)))
			z.Putback(remaining)
		}

		c.log.WithFields(log.Fields{
			"attempted": nrMigrate,
			"moved":     result.Moved,
			"remaining": len(remaining),
		}).Debug("compact: migration batch done")

		if err != nil {
			if errors.Is(err, migrate.ErrNoMemory) {
				ret = Partial
				break loop
			}
		}

		capturePage(ctx, z, c)
	}

	c.drain(z)
	return ret
}
