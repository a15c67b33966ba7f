package compact

import (
	"context"

	"pfn"

	log "github.com/sirupsen/logrus"
)

// capturePage implements spec.md 4.F. It is a no-op unless the caller
// supplied a capture slot (c.CaptureSlot), the slot is still empty, and a
// concrete order was requested (greedy runs have no single order to
// capture for).
func capturePage(ctx context.Context, z Zone, c *Control) {
	if c.CaptureSlot == nil || *c.CaptureSlot != 0 || c.Order == pfn.Greedy {
		return
	}

	startType, endType := c.MigrateType, c.MigrateType+1
	if c.MigrateType == pfn.Movable {
		startType, endType = 0, pfn.MigrateType(pfn.NumMigrateTypes)
	}

	for mt := startType; mt < endType; mt++ {
		for order := c.Order; order < pfn.MaxOrder; order++ {
			if z.FreeListEmpty(order, mt) {
				continue
			}

			g := NewGuard(z.Lock())
			if !g.TryAcquire(ctx, c.lockMode(), &c.Contended) {
				return
			}

			if !z.FreeListEmpty(order, mt) {
				if p, ok := z.CapturePage(order, mt); ok {
					*c.CaptureSlot = p
					g.Release()
					c.log.WithFields(log.Fields{
						"page":  uint64(p),
						"order": int(c.Order),
						"type":  mt.String(),
					}).Debug("compact: captured page")
					return
				}
			}
			g.Release()
		}
	}
}
