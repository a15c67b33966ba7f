package main

import (
	"strconv"

	"compact"
	"pfn"
	"registry"
	"zone"
)

// fixtureConfig describes the synthetic node compactctl compacts when no
// real zone/node source is wired in, standing in for the zonelist/NUMA
// topology discovery spec.md §1 places out of scope.
type fixtureConfig struct {
	Zones int
	// Spanned is the PFN span of each synthetic zone, in whole pageblocks.
	Spanned pfn.PFN
}

func defaultFixtureConfig() fixtureConfig {
	return fixtureConfig{Zones: 1, Spanned: 64 * pfn.PageblockPages()}
}

// buildFixtureNode assembles one synthetic compact.Node: a handful of
// fragmented zones seeded with a mix of free chunks, LRU pages, and
// reserved holes, exercising the full algorithm without a real buddy
// allocator or page cache behind it (spec.md §1 non-goal).
func buildFixtureNode(name string, fc fixtureConfig) compact.Node {
	node := compact.Node{Name: name}
	for i := 0; i < fc.Zones; i++ {
		node.Zones = append(node.Zones, buildFixtureZone(name, i, fc.Spanned))
	}
	return node
}

func buildFixtureZone(nodeName string, idx int, spanned pfn.PFN) *zone.Zone {
	start := pfn.PFN(idx) * spanned
	z := zone.New(zone.Config{
		Name:          fixtureZoneName(nodeName, idx),
		StartPFN:      start,
		SpannedPages:  spanned,
		WatermarkLow:  spanned / 8,
		FragThreshold: 500,
		DeferShift:    6,
		DeferLimit:    64,
	})

	blocks := spanned / pfn.PageblockPages()
	for b := pfn.PFN(0); b < blocks; b++ {
		blockStart := start + b*pfn.PageblockPages()
		switch {
		case b%7 == 0:
			// Every seventh block is a single large free chunk: a
			// compaction target, not a source.
			z.SeedFreeChunk(blockStart, pfn.PageblockOrder)
		case b%3 == 0:
			// Scattered order-0 free pages among live ones: the
			// fragmentation compaction exists to repair.
			z.SeedFreeChunk(blockStart, 0)
			seedLiveRun(z, blockStart+1, pfn.PageblockPages()-1)
		default:
			seedLiveRun(z, blockStart, pfn.PageblockPages())
		}
	}
	return z
}

func seedLiveRun(z *zone.Zone, start, n pfn.PFN) {
	for i := pfn.PFN(0); i < n; i++ {
		backing := pfn.File
		if i%2 == 0 {
			backing = pfn.Anon
		}
		z.SeedLRU(start+i, backing, i%3 != 0)
	}
}

func fixtureZoneName(nodeName string, idx int) string {
	return nodeName + "-zone" + strconv.Itoa(idx)
}

// buildFixtureRegistry registers a single fixture node under name, the shape
// compact.CompactNodes expects (SPEC_FULL.md §4.I).
func buildFixtureRegistry(name string, fc fixtureConfig) *registry.Registry[string, compact.Node] {
	reg := registry.New[string, compact.Node](4)
	reg.Set(name, buildFixtureNode(name, fc))
	return reg
}
