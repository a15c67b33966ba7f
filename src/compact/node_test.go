package compact

import (
	"context"
	"testing"

	"migrate"
	"pfn"
	"registry"

	"github.com/stretchr/testify/assert"
)

func TestCompactPgdatSkipsZeroSpanZone(t *testing.T) {
	z := newFakeZone("z", 0)
	node := Node{Name: "n0", Zones: []Zone{z}}

	err := CompactPgdat(context.Background(), node, 3, false, DefaultTunables(), &migrate.Simulator{})
	assert.NoError(t, err)
}

// TestCompactPgdatSkipsDeferredZone checks that a zone already marked
// deferred at the requested order is never handed to CompactZone: the
// seeded free chunk stays in place, and compact_order_failed stays at 3
// (a run would satisfy the order-3 watermark and reset it to 4).
func TestCompactPgdatSkipsDeferredZone(t *testing.T) {
	z := newFakeZone("z", 16)
	z.watermarkLow = 0
	z.seedFree(0, 4)
	z.DeferCompaction(3)
	assert.True(t, z.CompactionDeferred(3))

	node := Node{Name: "n0", Zones: []Zone{z}}
	err := CompactPgdat(context.Background(), node, 3, false, DefaultTunables(), &migrate.Simulator{})
	assert.NoError(t, err)
	assert.False(t, z.FreeListEmpty(4, pfn.Movable))
	assert.Equal(t, pfn.Order(3), z.compactOrderFailed)
}

// TestCompactNodeGreedyLeavesDeferralUntouched checks the order>0 guard in
// CompactPgdat's post-run branch: greedy runs (order == Greedy) never touch
// a zone's deferral state, matching spec.md 4.I (deferral applies only to
// concrete-order sync compaction).
func TestCompactNodeGreedyLeavesDeferralUntouched(t *testing.T) {
	z := newFakeZone("z", 24)
	for p := pfn.PFN(0); p < 8; p++ {
		z.seedLRU(p, pfn.Anon, true)
	}
	z.seedFree(16, 3)

	node := Node{Name: "n0", Zones: []Zone{z}}
	err := CompactNode(context.Background(), node, false, DefaultTunables(), &migrate.Simulator{})
	assert.NoError(t, err)

	assert.Equal(t, pfn.MaxOrder, z.compactOrderFailed)
	assert.Equal(t, uint(0), z.compactConsidered)
}

// TestCompactNodeGreedyCompactsEveryZoneConcurrently builds two independent
// zones on one node, each set up to reach COMPLETE, and checks both ran
// (their LRU populations both shrink by the migrated amount) under the
// errgroup fan-out.
func TestCompactNodeGreedyCompactsEveryZoneConcurrently(t *testing.T) {
	zoneA := newFakeZone("a", 24)
	zoneB := newFakeZone("b", 24)
	for _, z := range []*fakeZone{zoneA, zoneB} {
		for p := pfn.PFN(0); p < 8; p++ {
			z.seedLRU(p, pfn.Anon, true)
		}
		z.seedFree(16, 3)
	}

	node := Node{Name: "n0", Zones: []Zone{zoneA, zoneB}}
	err := CompactNode(context.Background(), node, false, DefaultTunables(), &migrate.Simulator{})
	assert.NoError(t, err)

	for _, z := range []*fakeZone{zoneA, zoneB} {
		active, inactive := z.ActiveInactiveCount()
		assert.Equal(t, int64(0), active+inactive)
	}
}

func TestCompactNodesDrainsAllNodesLRUAndCompacts(t *testing.T) {
	zoneA := newFakeZone("a", 24)
	for p := pfn.PFN(0); p < 8; p++ {
		zoneA.seedLRU(p, pfn.Anon, true)
	}
	zoneA.seedFree(16, 3)

	nodes := registry.New[string, Node](4)
	nodes.Set("n0", Node{Name: "n0", Zones: []Zone{zoneA}})

	err := CompactNodes(context.Background(), nodes, false, DefaultTunables(), &migrate.Simulator{})
	assert.NoError(t, err)

	active, inactive := zoneA.ActiveInactiveCount()
	assert.Equal(t, int64(0), active+inactive)
}
