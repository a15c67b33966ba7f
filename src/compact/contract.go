package compact

import "pfn"

// Buddy is the subset of the buddy allocator's contract this engine
// consumes (spec.md 6, "From the buddy allocator"). The production
// splitting/coalescing/watermark logic behind it is out of scope; only the
// shape of the contract is owned here.
type Buddy interface {
	// PageValid reports whether p names a real, non-reserved page inside
	// this zone.
	PageValid(p pfn.PFN) bool
	// ZoneContains reports whether p falls within this zone's PFN span.
	ZoneContains(p pfn.PFN) bool
	// IsBuddy reports whether p is currently the head of a free buddy
	// block.
	IsBuddy(p pfn.PFN) bool
	// BuddyOrder returns the order of the free block headed at p. Only
	// meaningful when IsBuddy(p) is true.
	BuddyOrder(p pfn.PFN) pfn.Order
	// PageblockMigrateType returns the migrate type of the pageblock
	// containing p.
	PageblockMigrateType(p pfn.PFN) pfn.MigrateType
	// SplitFreePage removes the free block headed at p from the buddy
	// freelists entirely and reports how many order-0 pages it produced (0
	// on failure, e.g. p is not actually a buddy head).
	SplitFreePage(p pfn.PFN) int
	// PrepareFreePages is the map_pages hook (SPEC_FULL.md 5.1): called
	// after a batch of pages is split to order 0, before they are handed to
	// the migration engine as destinations.
	PrepareFreePages(pages []pfn.PFN)
	// ReleaseFreePages returns previously split pages back to the buddy
	// freelists and reports how many were released.
	ReleaseFreePages(pages []pfn.PFN) int
	// FreeListEmpty reports whether the free area at the given order and
	// migrate type has no blocks (a lock-free speculative check).
	FreeListEmpty(order pfn.Order, mtype pfn.MigrateType) bool
	// FreeAreaAnyFree reports whether the free area at the given order has
	// any blocks of any migrate type.
	FreeAreaAnyFree(order pfn.Order) bool
	// CapturePage attempts to pull the head page out of the buddy
	// freelists at exactly order, searching mtype's free list. Must be
	// called with the zone lock held; re-checks non-emptiness itself.
	CapturePage(order pfn.Order, mtype pfn.MigrateType) (pfn.PFN, bool)
	// WatermarkOK reports zone_watermark_ok: whether the zone's free pages
	// reach its low watermark plus extra for the given order.
	WatermarkOK(order pfn.Order, extra pfn.PFN) bool
	// LowWatermarkPages returns low_wmark_pages(zone).
	LowWatermarkPages() pfn.PFN
	// FragmentationIndex returns fragmentation_index(zone, order).
	FragmentationIndex(order pfn.Order) int
	// StartPFN and SpannedPages describe the zone's PFN span.
	StartPFN() pfn.PFN
	SpannedPages() pfn.PFN
	// Lock returns the coarse lock guarding the buddy freelists.
	Lock() *CoarseLock
}

// LRU is the subset of the LRU bookkeeping contract this engine consumes
// (spec.md 6, "From LRU bookkeeping"). Reclamation policy itself is out of
// scope.
type LRU interface {
	// OnLRU reports whether p is currently tracked on a zone LRU list.
	OnLRU(p pfn.PFN) bool
	// IsCompound and CompoundOrder expose the compound/THP bits spec.md 3
	// names on the page frame.
	IsCompound(p pfn.PFN) bool
	IsTransparentHuge(p pfn.PFN) bool
	CompoundOrder(p pfn.PFN) pfn.Order
	// Backing reports the anonymous/file-cache classification of p, used
	// only for statistics.
	Backing(p pfn.PFN) pfn.BackingKind
	// TryIsolate is __isolate_lru_page: attempt to detach p from the LRU.
	// async, when true, requests the ISOLATE_ASYNC_MIGRATE mode.
	TryIsolate(p pfn.PFN, async bool) bool
	// DetachFromLRU is del_page_from_lru_list: record that p has left the
	// LRU onto a private list, after TryIsolate has already succeeded.
	DetachFromLRU(p pfn.PFN)
	// Putback is putback_lru_pages: return every page in pages to the LRU.
	Putback(pages []pfn.PFN)
	// ActiveInactiveCount returns the zone's live active+inactive LRU
	// population, used by the too-many-isolated backpressure check.
	ActiveInactiveCount() (active, inactive int64)
	// IsolatedCount returns the zone's current NR_ISOLATED_ANON/FILE
	// counters.
	IsolatedCount() (anon, file int64)
	// AcctIsolated applies anon/file deltas to the zone's isolated
	// counters (SPEC_FULL.md 5.2). locked records whether the LRU lock was
	// held by the caller, mirroring the original's interrupt-(un)safe
	// split, though this implementation applies the delta atomically
	// either way.
	AcctIsolated(anon, file int64, locked bool)
	// DrainLocal is lru_add_drain: flush any per-CPU LRU staging before a
	// scan begins.
	DrainLocal()
	// LRULock returns the coarse lock guarding the LRU lists. Named
	// distinctly from Buddy.Lock because compact.Zone embeds both
	// interfaces on one concrete type, which cannot satisfy two different
	// Lock() methods under the same name.
	LRULock() *CoarseLock
}

// Deferral is the per-zone sync-compaction backoff state named by spec.md
// 4.I and SPEC_FULL.md 5.3 (compaction_deferred/defer_compaction).
type Deferral interface {
	// CompactionDeferred reports whether a sync compaction attempt at order
	// should be skipped because this zone recently failed at or below it.
	CompactionDeferred(order pfn.Order) bool
	// DeferCompaction raises the zone's deferral counter after a failed
	// sync run.
	DeferCompaction(order pfn.Order)
	// CompactionDeferReset sets the zone's compact_order_failed floor to
	// order+1 and clears its deferral counters, after order's watermark is
	// satisfied.
	CompactionDeferReset(order pfn.Order)
	// CompactOrderFailed returns the zone's current compact_order_failed
	// floor, so callers can decide whether a reset would actually raise it.
	CompactOrderFailed() pfn.Order
}

// Zone bundles the three collaborator contracts a single zone compaction
// run needs. zone.Zone satisfies all three with one concrete type; they are
// kept as separate interfaces here because spec.md 6 names them as
// separate collaborators and callers in this package only ever need a
// narrow slice of the whole.
type Zone interface {
	Buddy
	LRU
	Deferral
	// Name identifies the zone for logging.
	Name() string
}
