package compact

import (
	"context"

	"pfn"
)

// MigrateOutcome is the three-way result of one sweepMigratePages call
// (spec.md 4.E).
type MigrateOutcome int

const (
	MigrateAbort MigrateOutcome = iota
	MigrateNone
	MigrateSuccess
)

// sweepMigratePages implements spec.md 4.E: starting at the migrate cursor
// (clamped to the zone start), invoke isolateMigrateRange up to the first
// pageblock boundary at least one pageblock beyond the cursor. From an
// aligned cursor that is exactly one pageblock; from an unaligned one it
// is the rest of the current block plus the whole next one.
func sweepMigratePages(ctx context.Context, z Zone, c *Control) MigrateOutcome {
	stride := pfn.PageblockPages()

	lowPFN := c.MigratePFN
	if z.StartPFN() > lowPFN {
		lowPFN = z.StartPFN()
	}
	endPFN := pfn.AlignUp(lowPFN + stride)

	if endPFN > c.FreePFN || !z.PageValid(lowPFN) {
		c.MigratePFN = endPFN
		return MigrateNone
	}

	resume := isolateMigrateRange(ctx, z, c, lowPFN, endPFN)
	if resume == 0 {
		return MigrateAbort
	}

	c.MigratePFN = resume
	return MigrateSuccess
}
