// Package migrate names the page-migration subsystem contract spec.md 6
// places out of scope ("the act of copying a page and fixing up mappings")
// and supplies an in-memory reference implementation sufficient to
// exercise and test the compaction driver against it. No real copy ever
// happens here: migrating a page means marking its source PFN consumed and
// handing back whichever destination PFN the driver's free-list callback
// produced.
package migrate

import (
	"context"
	"errors"

	"pfn"
)

// Mode mirrors the MIGRATE_ASYNC / MIGRATE_SYNC_LIGHT distinction
// migrate_pages is called with (spec.md 4.G step 4.b).
type Mode int

const (
	Async Mode = iota
	SyncLight
)

// ErrNoMemory is returned when the free-list callback cannot produce a
// destination page for a pending source (spec.md 7, "out-of-memory inside
// migration").
var ErrNoMemory = errors.New("migrate: no destination page available")

// AllocFunc is the pull callback spec.md 6 describes: it returns a
// destination page, isolating one lazily if necessary, or ok=false if none
// is currently available.
type AllocFunc func() (pfn.PFN, bool)

// Result reports what a Migrate call accomplished, matching the
// COMPACTPAGES/COMPACTPAGEFAILED event counters named in spec.md 4.G.d.
type Result struct {
	Moved  int
	Failed int
}

// Engine is the collaborator contract consumed by compact.CompactZone: the
// migrate_pages(list, alloc_callback, callback_data, offlining, mode) → err
// signature of spec.md 6, reshaped into idiomatic Go.
//
// Migrate attempts to relocate every page in src. It returns the subset of
// src that could not be migrated (the caller must putback these to the
// LRU), a Result tally, and a non-nil error only for ErrNoMemory, at which
// point the caller must stop immediately (spec.md 7).
type Engine interface {
	Migrate(ctx context.Context, src []pfn.PFN, alloc AllocFunc, mode Mode) (remaining []pfn.PFN, result Result, err error)
}

// ShouldFail lets a test deterministically mark a source page as
// unmigratable, standing in for whatever real-world condition
// (unpinned-but-busy page, writeback in flight) would make one migration
// attempt fail while others in the same batch succeed.
type ShouldFail func(pfn.PFN) bool

// Simulator is the reference Engine. It never touches page contents; it
// only exercises the pull-callback and partial-failure contract so the
// compaction driver can be tested without a real migration subsystem.
type Simulator struct {
	// Fail, if set, marks individual source pages as unmigratable
	// (spec.md 7, "migration partial failure"). Nil means every page with
	// an available destination succeeds.
	Fail ShouldFail
}

// Migrate implements Engine.
func (s *Simulator) Migrate(ctx context.Context, src []pfn.PFN, alloc AllocFunc, mode Mode) ([]pfn.PFN, Result, error) {
	var remaining []pfn.PFN
	var res Result

	for i, p := range src {
		if ctx.Err() != nil {
			remaining = append(remaining, src[i:]...)
			break
		}

		if s.Fail != nil && s.Fail(p) {
			remaining = append(remaining, p)
			res.Failed++
			continue
		}

		dst, ok := alloc()
		if !ok {
			remaining = append(remaining, src[i:]...)
			return remaining, res, ErrNoMemory
		}
		_ = dst // the destination page is consumed; its identity does not
		// matter to this reference engine, only that one was available.

		res.Moved++
	}

	return remaining, res, nil
}
