package compact

import "pfn"

// isolateFreeBlock implements spec.md 4.B: scan [blockPFN, endPFN) under a
// zone lock already held by the caller, splitting buddy pages down to
// order 0 and appending them to dst. strict mode aborts (returns 0) on any
// invalid PFN or non-buddy page; lax mode just skips them.
//
// Returns the total count isolated and the (possibly extended) dst slice.
func isolateFreeBlock(z Buddy, blockPFN, endPFN pfn.PFN, dst []pfn.PFN, strict bool) (int, []pfn.PFN) {
	isolated := 0

	for p := blockPFN; p < endPFN; p++ {
		if !z.PageValid(p) {
			if strict {
				return 0, dst
			}
			continue
		}
		if !z.IsBuddy(p) {
			if strict {
				return 0, dst
			}
			continue
		}

		order := z.BuddyOrder(p)
		n := z.SplitFreePage(p)
		if n == 0 {
			if strict {
				return 0, dst
			}
			continue
		}

		for i := 0; i < n; i++ {
			dst = append(dst, p+pfn.PFN(i))
		}
		isolated += n

		// Advance past the pages just consumed; the loop's own p++ covers
		// the first of them, so skip n-1 more. Guard against a split that
		// somehow reports fewer pages than 1<<order by falling back to
		// order's stride, matching the original's isolated-1 adjustment.
		skip := n - 1
		if want := (1 << uint(order)) - 1; want > skip {
			skip = want
		}
		p += pfn.PFN(skip)
	}

	return isolated, dst
}

// isolateFreepagesRange is the strict-mode range entry point named
// alongside isolateFreeBlock in the original source
// (isolate_freepages_range): it walks the whole [startPFN, endPFN) in
// pageblock-sized slices, acquiring/releasing the zone lock itself via a
// Guard, used by tests exercising the round-trip law of spec.md 8 directly
// rather than through a full zone run.
func isolateFreepagesRange(z Buddy, startPFN, endPFN pfn.PFN) []pfn.PFN {
	g := NewGuard(z.Lock())
	g.Acquire()
	defer g.Release()

	var dst []pfn.PFN
	for p := startPFN; p < endPFN; {
		blockEnd := pfn.AlignUp(p + 1)
		if blockEnd > endPFN {
			blockEnd = endPFN
		}
		n, next := isolateFreeBlock(z, p, blockEnd, dst, true)
		if n == 0 {
			return nil
		}
		dst = next
		// A high-order free page may span pageblocks: resume past every
		// page just isolated, not at blockEnd.
		p += pfn.PFN(n)
	}
	return dst
}
