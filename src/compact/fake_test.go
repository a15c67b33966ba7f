package compact

import (
	"pfn"
)

// fakePage is the per-PFN bookkeeping fakeZone needs to drive the compact
// package's algorithms without a real buddy allocator or LRU behind it.
type fakePage struct {
	reserved bool

	buddy      bool
	buddyOrder pfn.Order

	lru     bool
	active  bool
	backing pfn.BackingKind
}

// fakeZone is a minimal, in-package compact.Zone implementation used only by
// this package's own tests. It cannot live in the zone package: compact
// never imports zone (zone imports compact, for CoarseLock), so exercising
// compact's algorithms against a concrete zone needs a fake defined here.
type fakeZone struct {
	name         string
	startPFN     pfn.PFN
	spannedPages pfn.PFN

	pages      []fakePage
	blockTypes []pfn.MigrateType

	zoneLock *CoarseLock
	lruLock  *CoarseLock

	freeArea [][][]pfn.PFN // [order][mtype][]chunkStart

	watermarkLow  pfn.PFN
	fragThreshold int

	isolatedAnon, isolatedFile int64
	activeCount, inactiveCount int64

	compactOrderFailed pfn.Order
	compactConsidered  uint
	compactDeferShift  uint
	compactDeferLimit  uint
}

func newFakeZone(name string, spanned pfn.PFN) *fakeZone {
	nblocks := (spanned + pfn.PageblockPages() - 1) / pfn.PageblockPages()
	z := &fakeZone{
		name:               name,
		spannedPages:       spanned,
		pages:              make([]fakePage, spanned),
		blockTypes:         make([]pfn.MigrateType, nblocks),
		zoneLock:           NewCoarseLock(),
		lruLock:            NewCoarseLock(),
		freeArea:           make([][][]pfn.PFN, pfn.MaxOrder),
		watermarkLow:       4,
		fragThreshold:      500,
		compactDeferShift:  6,
		compactDeferLimit:  64,
		compactOrderFailed: pfn.MaxOrder,
	}
	for o := range z.freeArea {
		z.freeArea[o] = make([][]pfn.PFN, pfn.NumMigrateTypes+2)
	}
	for i := range z.pages {
		z.pages[i].reserved = true
	}
	return z
}

func (z *fakeZone) idx(p pfn.PFN) int      { return int(p - z.startPFN) }
func (z *fakeZone) blockIdx(p pfn.PFN) int { return int(pfn.BlockOf(p) - pfn.BlockOf(z.startPFN)) }

func (z *fakeZone) seedFree(start pfn.PFN, order pfn.Order) {
	n := pfn.PFN(1) << uint(order)
	for i := pfn.PFN(0); i < n; i++ {
		pg := &z.pages[z.idx(start+i)]
		pg.reserved = false
		pg.buddy = i == 0
		pg.buddyOrder = order
	}
	mt := z.blockTypes[z.blockIdx(start)]
	z.freeArea[order][mt] = append(z.freeArea[order][mt], start)
}

func (z *fakeZone) seedLRU(p pfn.PFN, backing pfn.BackingKind, active bool) {
	pg := &z.pages[z.idx(p)]
	pg.reserved = false
	pg.lru = true
	pg.active = active
	pg.backing = backing
	if active {
		z.activeCount++
	} else {
		z.inactiveCount++
	}
}

func (z *fakeZone) freePageCount() pfn.PFN {
	var total pfn.PFN
	for order, byType := range z.freeArea {
		for _, chunks := range byType {
			total += pfn.PFN(len(chunks)) * (pfn.PFN(1) << uint(order))
		}
	}
	return total
}

// --- Buddy ---

func (z *fakeZone) Name() string { return z.name }

func (z *fakeZone) PageValid(p pfn.PFN) bool {
	if p < z.startPFN || p >= z.startPFN+z.spannedPages {
		return false
	}
	return !z.pages[z.idx(p)].reserved
}

func (z *fakeZone) ZoneContains(p pfn.PFN) bool {
	return p >= z.startPFN && p < z.startPFN+z.spannedPages
}

func (z *fakeZone) IsBuddy(p pfn.PFN) bool {
	if !z.ZoneContains(p) {
		return false
	}
	return z.pages[z.idx(p)].buddy
}

func (z *fakeZone) BuddyOrder(p pfn.PFN) pfn.Order { return z.pages[z.idx(p)].buddyOrder }

func (z *fakeZone) PageblockMigrateType(p pfn.PFN) pfn.MigrateType {
	return z.blockTypes[z.blockIdx(p)]
}

func (z *fakeZone) SplitFreePage(p pfn.PFN) int {
	mt := z.PageblockMigrateType(p)
	for order := pfn.Order(0); order < pfn.MaxOrder; order++ {
		chunks := z.freeArea[order][mt]
		for i, start := range chunks {
			if start != p {
				continue
			}
			z.freeArea[order][mt] = append(chunks[:i], chunks[i+1:]...)
			n := 1 << uint(order)
			for j := 0; j < n; j++ {
				pg := &z.pages[z.idx(p)+j]
				pg.buddy = false
				pg.buddyOrder = 0
			}
			return n
		}
	}
	return 0
}

func (z *fakeZone) PrepareFreePages(pages []pfn.PFN) {}

func (z *fakeZone) ReleaseFreePages(pages []pfn.PFN) int {
	n := 0
	for _, p := range pages {
		pg := &z.pages[z.idx(p)]
		pg.reserved = false
		pg.buddy = true
		pg.buddyOrder = 0
		mt := z.PageblockMigrateType(p)
		z.freeArea[0][mt] = append(z.freeArea[0][mt], p)
		n++
	}
	return n
}

func (z *fakeZone) FreeListEmpty(order pfn.Order, mtype pfn.MigrateType) bool {
	return len(z.freeArea[order][mtype]) == 0
}

func (z *fakeZone) FreeAreaAnyFree(order pfn.Order) bool {
	for _, chunks := range z.freeArea[order] {
		if len(chunks) > 0 {
			return true
		}
	}
	return false
}

func (z *fakeZone) CapturePage(order pfn.Order, mtype pfn.MigrateType) (pfn.PFN, bool) {
	chunks := z.freeArea[order][mtype]
	if len(chunks) == 0 {
		return 0, false
	}
	p := chunks[0]
	z.freeArea[order][mtype] = chunks[1:]
	pg := &z.pages[z.idx(p)]
	pg.buddy = false
	pg.buddyOrder = 0
	return p, true
}

func (z *fakeZone) WatermarkOK(order pfn.Order, extra pfn.PFN) bool {
	return z.freePageCount() >= z.watermarkLow+extra
}

func (z *fakeZone) LowWatermarkPages() pfn.PFN { return z.watermarkLow }

func (z *fakeZone) FragmentationIndex(order pfn.Order) int {
	total, suitable := 0, 0
	for o := pfn.Order(0); o < pfn.MaxOrder; o++ {
		for _, chunks := range z.freeArea[o] {
			total += len(chunks)
			if o >= order {
				suitable += len(chunks)
			}
		}
	}
	if total == 0 || suitable > 0 {
		return -1000
	}
	return 1000 - (1000 * suitable / total)
}

func (z *fakeZone) StartPFN() pfn.PFN     { return z.startPFN }
func (z *fakeZone) SpannedPages() pfn.PFN { return z.spannedPages }
func (z *fakeZone) Lock() *CoarseLock     { return z.zoneLock }

// --- LRU ---

func (z *fakeZone) OnLRU(p pfn.PFN) bool {
	if !z.ZoneContains(p) {
		return false
	}
	return z.pages[z.idx(p)].lru
}

func (z *fakeZone) IsCompound(p pfn.PFN) bool        { return false }
func (z *fakeZone) IsTransparentHuge(p pfn.PFN) bool  { return false }
func (z *fakeZone) CompoundOrder(p pfn.PFN) pfn.Order { return 0 }
func (z *fakeZone) Backing(p pfn.PFN) pfn.BackingKind { return z.pages[z.idx(p)].backing }

func (z *fakeZone) TryIsolate(p pfn.PFN, async bool) bool {
	return z.pages[z.idx(p)].lru
}

func (z *fakeZone) DetachFromLRU(p pfn.PFN) {
	pg := &z.pages[z.idx(p)]
	pg.lru = false
	if pg.active {
		z.activeCount--
	} else {
		z.inactiveCount--
	}
}

func (z *fakeZone) Putback(pages []pfn.PFN) {
	for _, p := range pages {
		pg := &z.pages[z.idx(p)]
		pg.lru = true
		if pg.active {
			z.activeCount++
		} else {
			z.inactiveCount++
		}
	}
}

func (z *fakeZone) ActiveInactiveCount() (active, inactive int64) {
	return z.activeCount, z.inactiveCount
}

func (z *fakeZone) IsolatedCount() (anon, file int64) { return z.isolatedAnon, z.isolatedFile }

func (z *fakeZone) AcctIsolated(anon, file int64, locked bool) {
	z.isolatedAnon += anon
	z.isolatedFile += file
}

func (z *fakeZone) DrainLocal() {}

func (z *fakeZone) LRULock() *CoarseLock { return z.lruLock }

// --- Deferral ---

func (z *fakeZone) CompactionDeferred(order pfn.Order) bool {
	if order < z.compactOrderFailed {
		return false
	}

	limit := uint(1) << z.compactDeferShift
	z.compactConsidered++
	if z.compactConsidered > limit {
		z.compactConsidered = limit
	}

	return z.compactConsidered < limit
}

func (z *fakeZone) DeferCompaction(order pfn.Order) {
	z.compactConsidered = 0
	z.compactDeferShift++
	if z.compactDeferShift > z.compactDeferLimit {
		z.compactDeferShift = z.compactDeferLimit
	}
	if order < z.compactOrderFailed {
		z.compactOrderFailed = order
	}
}

func (z *fakeZone) CompactionDeferReset(order pfn.Order) {
	z.compactOrderFailed = order + 1
	z.compactConsidered = 0
	z.compactDeferShift = 0
}

func (z *fakeZone) CompactOrderFailed() pfn.Order { return z.compactOrderFailed }
