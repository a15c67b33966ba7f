// Package zone is the reference data model spec.md 3 names: a zone's
// per-order/per-migrate-type free areas, its LRU lists, its two coarse
// locks, its watermarks, and its deferral state. It is the closest thing
// this module has to the teacher kernel's Physmem_t
// (biscuit/src/mem/mem.go), generalized from a single per-order freelist
// array to the per-order/per-migrate-type matrix a real buddy zone needs,
// and split into two locks (buddy vs LRU) rather than Physmem_t's one.
//
// The buddy/LRU logic here is a minimal reference implementation, not the
// production allocator spec.md places out of scope: it exists so
// compact.Zone has a concrete, testable implementation to drive.
package zone

import (
	"sync"

	"compact"
	"pfn"
	"util"

	log "github.com/sirupsen/logrus"
)

// page is the per-PFN bookkeeping spec.md 3 names: buddy-membership,
// LRU-membership, compound/THP bits, order, backing kind.
type page struct {
	reserved bool

	buddy      bool
	buddyOrder pfn.Order

	lru      bool
	active   bool
	backing  pfn.BackingKind

	compound      bool
	transparent   bool
	compoundOrder pfn.Order
}

type freeChunk struct {
	start pfn.PFN
	order pfn.Order
}

// Zone is the concrete compact.Zone implementation.
type Zone struct {
	name         string
	startPFN     pfn.PFN
	spannedPages pfn.PFN

	pages      []page
	blockTypes []pfn.MigrateType

	zoneLock *compact.CoarseLock
	lruLock  *compact.CoarseLock

	// freeArea[order][mtype] holds every currently-free chunk of exactly
	// that order and migrate type, mirroring the real allocator's
	// free_area[order].free_list[mtype] without implementing its
	// splitting/coalescing (out of scope per spec.md 1).
	freeArea [][][]freeChunk

	watermarkLow pfn.PFN
	fragThreshold int

	isolatedAnon int64
	isolatedFile int64
	activeCount  int64
	inactiveCount int64

	deferMu           sync.Mutex
	compactOrderFailed pfn.Order
	compactConsidered  uint
	compactDeferShift  uint
	compactDeferLimit  uint

	log *log.Entry
}

// Config seeds a new Zone's static parameters.
type Config struct {
	Name          string
	StartPFN      pfn.PFN
	SpannedPages  pfn.PFN
	WatermarkLow  pfn.PFN
	FragThreshold int
	DeferShift    uint
	DeferLimit    uint
}

// New allocates a Zone with every page initially reserved (unusable) and
// every pageblock defaulted to MOVABLE. Callers populate free chunks and
// LRU membership via Seed* helpers before handing the zone to the
// compaction engine.
func New(cfg Config) *Zone {
	nblocks := (cfg.SpannedPages + pfn.PageblockPages() - 1) / pfn.PageblockPages()
	z := &Zone{
		name:               cfg.Name,
		startPFN:           cfg.StartPFN,
		spannedPages:       cfg.SpannedPages,
		pages:              make([]page, cfg.SpannedPages),
		blockTypes:         make([]pfn.MigrateType, nblocks),
		zoneLock:           compact.NewCoarseLock(),
		lruLock:            compact.NewCoarseLock(),
		watermarkLow:       cfg.WatermarkLow,
		fragThreshold:      cfg.FragThreshold,
		compactDeferShift:  cfg.DeferShift,
		compactDeferLimit:  cfg.DeferLimit,
		compactOrderFailed: pfn.MaxOrder,
		freeArea:           make([][][]freeChunk, pfn.MaxOrder),
		log:                log.WithField("zone", cfg.Name),
	}
	for o := range z.freeArea {
		z.freeArea[o] = make([][]freeChunk, pfn.NumMigrateTypes+2)
	}
	for i := range z.pages {
		z.pages[i].reserved = true
	}
	z.log.WithFields(log.Fields{
		"start":   uint64(cfg.StartPFN),
		"spanned": uint64(cfg.SpannedPages),
	}).Info("zone: initialized")
	return z
}

func (z *Zone) idx(p pfn.PFN) int { return int(p - z.startPFN) }

func (z *Zone) blockIdx(p pfn.PFN) int {
	return int(pfn.BlockOf(p) - pfn.BlockOf(z.startPFN))
}

// Name implements compact.Zone.
func (z *Zone) Name() string { return z.name }

// --- seeding helpers (test/CLI setup, not part of the compact.Zone contract) ---

// SeedBlockType sets the migrate type of the pageblock containing p.
func (z *Zone) SeedBlockType(p pfn.PFN, mt pfn.MigrateType) {
	z.blockTypes[z.blockIdx(p)] = mt
}

// SeedFreeChunk marks [start, start+1<<order) as a free buddy block of the
// given order, unreserving those pages.
func (z *Zone) SeedFreeChunk(start pfn.PFN, order pfn.Order) {
	n := pfn.PFN(1) << uint(order)
	for i := pfn.PFN(0); i < n; i++ {
		pg := &z.pages[z.idx(start+i)]
		pg.reserved = false
		pg.buddy = i == 0
		pg.buddyOrder = order
	}
	mt := z.blockTypes[z.blockIdx(start)]
	z.freeArea[order][mt] = append(z.freeArea[order][mt], freeChunk{start: start, order: order})
}

// SeedLRU marks p as in-use and tracked on the LRU, with the given backing
// kind and active/inactive placement.
func (z *Zone) SeedLRU(p pfn.PFN, backing pfn.BackingKind, active bool) {
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

// SeedCompound marks p as the head of a compound page of the given order;
// transparent marks it as a transparent-hugepage (movable) rather than a
// hugetlb page (which compaction must not touch).
func (z *Zone) SeedCompound(p pfn.PFN, order pfn.Order, transparent bool) {
	pg := &z.pages[z.idx(p)]
	pg.compound = true
	pg.compoundOrder = order
	pg.transparent = transparent
}

// FreePageCount sums every free chunk's page count across all orders and
// migrate types, used by WatermarkOK.
func (z *Zone) FreePageCount() pfn.PFN {
	var total pfn.PFN
	for order, byType := range z.freeArea {
		for _, chunks := range byType {
			total += pfn.PFN(len(chunks)) * (pfn.PFN(1) << uint(order))
		}
	}
	return total
}

// --- compact.Buddy ---

func (z *Zone) PageValid(p pfn.PFN) bool {
	if p < z.startPFN || p >= z.startPFN+z.spannedPages {
		return false
	}
	return !z.pages[z.idx(p)].reserved
}

func (z *Zone) ZoneContains(p pfn.PFN) bool {
	return p >= z.startPFN && p < z.startPFN+z.spannedPages
}

func (z *Zone) IsBuddy(p pfn.PFN) bool {
	if !z.ZoneContains(p) {
		return false
	}
	return z.pages[z.idx(p)].buddy
}

func (z *Zone) BuddyOrder(p pfn.PFN) pfn.Order {
	return z.pages[z.idx(p)].buddyOrder
}

func (z *Zone) PageblockMigrateType(p pfn.PFN) pfn.MigrateType {
	return z.blockTypes[z.blockIdx(p)]
}

func (z *Zone) SplitFreePage(p pfn.PFN) int {
	mt := z.PageblockMigrateType(p)
	for order := pfn.Order(0); order < pfn.MaxOrder; order++ {
		chunks := z.freeArea[order][mt]
		for i, c := range chunks {
			if c.start != p {
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

func (z *Zone) PrepareFreePages(pages []pfn.PFN) {
	z.log.WithField("count", len(pages)).Debug("zone: prepared free pages for migration")
}

func (z *Zone) ReleaseFreePages(pages []pfn.PFN) int {
	n := 0
	for _, p := range pages {
		pg := &z.pages[z.idx(p)]
		pg.reserved = false
		pg.buddy = true
		pg.buddyOrder = 0
		mt := z.PageblockMigrateType(p)
		z.freeArea[0][mt] = append(z.freeArea[0][mt], freeChunk{start: p, order: 0})
		n++
	}
	return n
}

func (z *Zone) FreeListEmpty(order pfn.Order, mtype pfn.MigrateType) bool {
	return len(z.freeArea[order][mtype]) == 0
}

func (z *Zone) FreeAreaAnyFree(order pfn.Order) bool {
	for _, chunks := range z.freeArea[order] {
		if len(chunks) > 0 {
			return true
		}
	}
	return false
}

func (z *Zone) CapturePage(order pfn.Order, mtype pfn.MigrateType) (pfn.PFN, bool) {
	chunks := z.freeArea[order][mtype]
	if len(chunks) == 0 {
		return 0, false
	}
	p := chunks[0].start
	z.freeArea[order][mtype] = chunks[1:]
	pg := &z.pages[z.idx(p)]
	pg.buddy = false
	pg.buddyOrder = 0
	return p, true
}

func (z *Zone) WatermarkOK(order pfn.Order, extra pfn.PFN) bool {
	need := z.watermarkLow + extra
	return z.FreePageCount() >= need
}

func (z *Zone) LowWatermarkPages() pfn.PFN { return z.watermarkLow }

// FragmentationIndex is a simplified stand-in for the production metric
// (out of scope per spec.md 1): it is -1000 ("no fragmentation problem")
// when the zone has no free block at all or a block of at least the
// requested order already exists, and 1000 otherwise (every free block is
// below the requested order). No intermediate values are produced.
func (z *Zone) FragmentationIndex(order pfn.Order) int {
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
	return 1000 - (1000 * suitable / util.Max(total, 1))
}

func (z *Zone) StartPFN() pfn.PFN      { return z.startPFN }
func (z *Zone) SpannedPages() pfn.PFN  { return z.spannedPages }
func (z *Zone) Lock() *compact.CoarseLock { return z.zoneLock }

// --- compact.LRU ---

func (z *Zone) OnLRU(p pfn.PFN) bool {
	if !z.ZoneContains(p) {
		return false
	}
	return z.pages[z.idx(p)].lru
}

func (z *Zone) IsCompound(p pfn.PFN) bool { return z.pages[z.idx(p)].compound }

func (z *Zone) IsTransparentHuge(p pfn.PFN) bool {
	pg := &z.pages[z.idx(p)]
	return pg.compound && pg.transparent
}

func (z *Zone) CompoundOrder(p pfn.PFN) pfn.Order { return z.pages[z.idx(p)].compoundOrder }

func (z *Zone) Backing(p pfn.PFN) pfn.BackingKind { return z.pages[z.idx(p)].backing }

func (z *Zone) TryIsolate(p pfn.PFN, async bool) bool {
	pg := &z.pages[z.idx(p)]
	return pg.lru
}

func (z *Zone) DetachFromLRU(p pfn.PFN) {
	pg := &z.pages[z.idx(p)]
	pg.lru = false
	if pg.active {
		z.activeCount--
	} else {
		z.inactiveCount--
	}
}

func (z *Zone) Putback(pages []pfn.PFN) {
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

func (z *Zone) ActiveInactiveCount() (active, inactive int64) {
	return z.activeCount, z.inactiveCount
}

func (z *Zone) IsolatedCount() (anon, file int64) {
	return z.isolatedAnon, z.isolatedFile
}

func (z *Zone) AcctIsolated(anon, file int64, locked bool) {
	z.isolatedAnon += anon
	z.isolatedFile += file
}

func (z *Zone) DrainLocal() {
	z.log.Debug("zone: drained local LRU cache")
}

// LRULock returns the lock guarding LRU lists, distinct from Lock (the
// buddy freelist lock), since compact.Zone embeds both compact.Buddy and
// compact.LRU on this one concrete type.
func (z *Zone) LRULock() *compact.CoarseLock { return z.lruLock }

// --- compact.Deferral ---

func (z *Zone) CompactionDeferred(order pfn.Order) bool {
	z.deferMu.Lock()
	defer z.deferMu.Unlock()
	if order < z.compactOrderFailed {
		return false
	}

	// Each check at or above the failed order nudges compact_considered
	// toward the current defer_shift threshold, capped there to avoid
	// overflow; once it catches up the zone is no longer deferred and gets
	// to retry, matching the original's decaying backoff rather than a
	// permanent latch.
	limit := uint(1) << z.compactDeferShift
	z.compactConsidered++
	if z.compactConsidered > limit {
		z.compactConsidered = limit
	}

	return z.compactConsidered < limit
}

func (z *Zone) DeferCompaction(order pfn.Order) {
	z.deferMu.Lock()
	defer z.deferMu.Unlock()
	z.compactConsidered = 0
	z.compactDeferShift++
	if z.compactDeferShift > z.compactDeferLimit {
		z.compactDeferShift = z.compactDeferLimit
	}
	if order < z.compactOrderFailed {
		z.compactOrderFailed = order
	}
}

func (z *Zone) CompactionDeferReset(order pfn.Order) {
	z.deferMu.Lock()
	defer z.deferMu.Unlock()
	z.compactOrderFailed = order + 1
	z.compactConsidered = 0
	z.compactDeferShift = 0
}

// CompactOrderFailed returns the zone's current compact_order_failed
// floor.
func (z *Zone) CompactOrderFailed() pfn.Order {
	z.deferMu.Lock()
	defer z.deferMu.Unlock()
	return z.compactOrderFailed
}
