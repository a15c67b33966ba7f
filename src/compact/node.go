package compact

import (
	"context"

	"migrate"
	"pfn"
	"registry"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Node groups the zones belonging to one NUMA node, the unit
// CompactPgdat/CompactNode operate over (spec.md 4.I).
type Node struct {
	Name  string
	Zones []Zone
}

// CompactPgdat implements spec.md 4.I's per-zone loop (__compact_pgdat in
// the original source): skip deferred zones, run CompactZone, then update
// the zone's deferral state from the outcome. Zone runs within one node
// execute concurrently via errgroup, since spec.md 5 states no ordering
// guarantee exists between runs on different zones.
func CompactPgdat(ctx context.Context, node Node, order pfn.Order, sync bool, tunables Tunables, engine migrate.Engine) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, z := range node.Zones {
		z := z
		g.Go(func() error {
			if z.SpannedPages() == 0 {
				return nil
			}
			if order != pfn.Greedy && z.CompactionDeferred(order) {
				log.WithFields(log.Fields{
					"node": node.Name,
					"zone": z.Name(),
				}).Debug("compact: zone deferred, skipping")
				return nil
			}

			c := NewControl(order, pfn.Movable, sync, tunables, z.Name())
			CompactZone(gctx, z, c, engine)

			if order > 0 {
				ok := z.WatermarkOK(order, 0)
				switch {
				case ok && order >= z.CompactOrderFailed():
					z.CompactionDeferReset(order)
				case !ok && sync:
					z.DeferCompaction(order)
				}
			}
			return nil
		})
	}

	return g.Wait()
}

// CompactNode implements spec.md 4.I's compact_node: greedy (order = -1)
// compaction of every zone in one node.
func CompactNode(ctx context.Context, node Node, sync bool, tunables Tunables, engine migrate.Engine) error {
	return CompactPgdat(ctx, node, pfn.Greedy, sync, tunables, engine)
}

// CompactNodes implements spec.md 4.I's cross-node variant and the control
// file trigger named in SPEC_FULL.md 5.4: drain every node's LRU caches
// once, then compact every node registered in nodes.
func CompactNodes(ctx context.Context, nodes *registry.Registry[string, Node], sync bool, tunables Tunables, engine migrate.Engine) error {
	nodes.Iter(func(_ string, n Node) bool {
		for _, z := range n.Zones {
			z.DrainLocal()
		}
		return false
	})

	g, gctx := errgroup.WithContext(ctx)
	nodes.Iter(func(_ string, n Node) bool {
		n := n
		g.Go(func() error {
			return CompactNode(gctx, n, sync, tunables, engine)
		})
		return false
	})
	return g.Wait()
}
