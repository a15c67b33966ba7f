package compact

import (
	"context"

	"migrate"
	"pfn"
	"stats"

	log "github.com/sirupsen/logrus"
)

// AllocContext replaces the raw GFP flags of spec.md 4.H with an explicit
// struct, since this module has no page-allocator GFP namespace to reuse.
// AllowFS/AllowIO mirror __GFP_FS/__GFP_IO: compaction that might need to
// enter the filesystem or block on I/O to make progress is refused when
// either is false.
type AllocContext struct {
	Order       pfn.Order
	MigrateType pfn.MigrateType
	AllowFS     bool
	AllowIO     bool
	Sync        bool
	Contended   *bool
	CaptureSlot *pfn.PFN
	Tunables    Tunables
}

// TryToCompactPages implements spec.md 4.H: the zone-list entry point. It
// runs CompactZone once per zone in zones (already filtered by the caller
// to the appropriate high zone index and nodemask, since zonelist
// iteration itself is out of scope per spec.md 1), folding results by max
// and stopping early once a zone's low watermark is already satisfied for
// the requested order.
func TryToCompactPages(ctx context.Context, zones []Zone, ac AllocContext, engine migrate.Engine, events *stats.Events) Status {
	if ac.Order == 0 || !ac.AllowFS || !ac.AllowIO {
		return Skipped
	}

	if events != nil {
		events.Stall.Inc()
	}

	rc := Skipped
	for _, z := range zones {
		c := NewControl(ac.Order, ac.MigrateType, ac.Sync, ac.Tunables, z.Name())
		c.CaptureSlot = ac.CaptureSlot

		status := CompactZone(ctx, z, c, engine)
		if ac.Contended != nil && c.Contended {
			*ac.Contended = true
		}
		if events != nil {
			events.Blocks.Add(c.Events.Blocks.Get())
			events.Pages.Add(c.Events.Pages.Get())
			events.PagesFailed.Add(c.Events.PagesFailed.Get())
		}

		if status > rc {
			rc = status
		}

		log.WithFields(log.Fields{
			"zone":   z.Name(),
			"status": status.String(),
		}).Debug("compact: zone attempt done")

		if z.WatermarkOK(ac.Order, 0) {
			break
		}
	}

	return rc
}
