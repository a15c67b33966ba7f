// Package pfn defines the page-frame-number arithmetic and migrate-type
// vocabulary of spec.md 3, adapted from the physical-address constants and
// rounding conventions of the teacher kernel's physical memory allocator
// (biscuit/src/mem/mem.go: PGSHIFT, Pa_t, and the use of util.Rounddown to
// align the direct map).
package pfn

import "util"

// PFN identifies a physical page frame by index (not by byte address,
// unlike the teacher's Pa_t, since spec.md's data model works in PFNs
// throughout).
type PFN uint64

// Order is a base-2 exponent: an order-k allocation spans 1<<k pages.
type Order int

// Greedy is the sentinel order meaning "compact everything", matching
// spec.md's cc->order == -1.
const Greedy Order = -1

// MaxOrder is one past the highest buddy order the reference zone model
// supports, matching the upstream kernel's MAX_ORDER convention (orders
// 0..MaxOrder-1 are valid).
const MaxOrder Order = 11

// PageblockOrder is the build-time pageblock size exponent; a pageblock
// spans 1<<PageblockOrder pages. Kept as a package variable rather than an
// untyped constant so tests can exercise small pageblocks without
// rebuilding, the way the teacher parameterises allocator behaviour through
// plain package vars (e.g. mem.Physmem).
var PageblockOrder Order = 3

// PageblockPages returns the number of pages in one pageblock.
func PageblockPages() PFN {
	return 1 << PageblockOrder
}

// AlignDown rounds pfn down to a pageblock boundary.
func AlignDown(p PFN) PFN {
	return util.Rounddown(p, PageblockPages())
}

// AlignUp rounds pfn up to a pageblock boundary.
func AlignUp(p PFN) PFN {
	return util.Roundup(p, PageblockPages())
}

// BlockOf returns the pageblock index containing pfn.
func BlockOf(p PFN) PFN {
	return p >> PFN(PageblockOrder)
}

// MigrateType tags a pageblock with the movability policy spec.md 3
// describes.
type MigrateType int

const (
	Movable MigrateType = iota
	Reclaimable
	Unmovable
	CMA
	Isolate
	Reserve
	numMigrateTypes
)

// NumMigrateTypes is the count of "regular" migrate types a MOVABLE
// allocation may steal free pages from during capture (spec.md 4.F);
// ISOLATE and RESERVE are deliberately excluded from that range, matching
// MIGRATE_PCPTYPES in the original source.
const NumMigrateTypes = int(CMA) + 1

func (m MigrateType) String() string {
	switch m {
	case Movable:
		return "movable"
	case Reclaimable:
		return "reclaimable"
	case Unmovable:
		return "unmovable"
	case CMA:
		return "cma"
	case Isolate:
		return "isolate"
	case Reserve:
		return "reserve"
	default:
		return "unknown"
	}
}

// AsyncSuitable reports whether a pageblock of this migrate type may be
// used as an async-mode source or destination (spec.md 3: "A block is an
// async-suitable source/target iff its type is MOVABLE or CMA").
func (m MigrateType) AsyncSuitable() bool {
	return m == Movable || m == CMA
}

// BackingKind distinguishes anonymous from file-backed pages for
// statistics only (spec.md 3).
type BackingKind int

const (
	Anon BackingKind = iota
	File
)
