package sais

import "github.com/tokendisco/tokendiscovery/internal/memory"

// Candidate is a common substring and the number of distinct corpus
// entries it was found in.
type Candidate struct {
	Bytes   []byte
	Support int
}

type openGroup struct {
	level     int
	saStart   int
	positions []int // concat offsets (sa values) folded into this group so far
}

// FindCommonSubstrings concatenates corpus, builds its suffix and LCP
// arrays, and runs the stack-based LCP grouping scan described by the
// common-substring discovery algorithm: emitted candidates are maximal
// substrings shared by two or more distinct corpus entries. Support counts
// only occurrences that lie wholly inside one entry's span; an occurrence
// that crosses an entry boundary is discarded, not clipped to a shorter
// prefix.
//
// corpus entries are treated as opaque byte spans; no separator is
// inserted between them, so every emitted candidate is checked against
// the origin boundary rule before being kept.
func FindCommonSubstrings(corpus [][]byte, minLen, maxLen int) []Candidate {
	if len(corpus) == 0 || minLen < 1 || maxLen < minLen {
		return nil
	}

	concat, origin := concatenate(corpus)
	defer memory.PutBytes(concat)
	if len(concat) == 0 {
		return nil
	}
	if len(concat) == 1 {
		return nil
	}

	sa := buildSuffixArray(concat)
	lcp := buildLCPArray(concat, sa)

	var candidates []Candidate
	var stack []openGroup

	// emit validates every occurrence folded into the group, not just a
	// single representative: with no separator between concatenated
	// entries, a shared-prefix match can span the seam between two
	// entries (e.g. "foo"+"bar" concatenated reads "foobar", a false
	// match against a genuine "foobar" entry). Support only counts
	// entries where the occurrence's full candidate length stays inside
	// that entry's own span; occurrences that cross a boundary are
	// dropped entirely rather than shortened, since shortening one
	// occurrence would make it share a different substring than the
	// rest of the group.
	emit := func(g openGroup) {
		length := g.level
		if length > maxLen {
			length = maxLen
		}
		if length < minLen {
			return
		}

		seen := make(map[int]struct{})
		reprPos := -1
		for _, pos := range g.positions {
			if pos+length > len(concat) {
				continue
			}
			if !withinBoundary(origin, pos, length) {
				continue
			}
			owner := origin[pos]
			if _, ok := seen[owner]; !ok {
				seen[owner] = struct{}{}
				if reprPos == -1 {
					reprPos = pos
				}
			}
		}
		if len(seen) < 2 {
			return
		}
		candidates = append(candidates, Candidate{
			Bytes:   append([]byte(nil), concat[reprPos:reprPos+length]...),
			Support: len(seen),
		})
	}

	n := len(sa)
	for i := 1; i < n; i++ {
		l := lcp[i]

		// A popped group's occurrences also share every shorter prefix, so
		// they are carried down into the next group at a lower level.
		var carried []int
		for len(stack) > 0 && stack[len(stack)-1].level > l {
			top := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			top.positions = append(top.positions, carried...)
			emit(top)
			carried = top.positions
		}

		if l < minLen {
			continue
		}

		if len(stack) > 0 && stack[len(stack)-1].level == l {
			top := &stack[len(stack)-1]
			top.positions = append(top.positions, carried...)
			top.positions = append(top.positions, sa[i])
		} else {
			g := openGroup{
				level:     l,
				saStart:   i - 1,
				positions: append(carried, sa[i-1], sa[i]),
			}
			stack = append(stack, g)
		}
	}

	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		emit(top)
	}

	return candidates
}

// concatenate joins corpus entries into one byte slice and returns a
// parallel slice mapping each byte offset to its owning entry index.
// The returned slice is drawn from the shared byte pool (internal/memory)
// and must be released with memory.PutBytes by the caller once the scan
// that built on top of it has copied out whatever it needs to keep.
func concatenate(corpus [][]byte) ([]byte, []int) {
	total := 0
	for _, e := range corpus {
		total += len(e)
	}
	concat := memory.GetBytes(total)[:0]
	origin := make([]int, 0, total)
	for id, entry := range corpus {
		concat = append(concat, entry...)
		for range entry {
			origin = append(origin, id)
		}
	}
	return concat, origin
}

// clipToBoundary shortens length so that concat[pos:pos+length] stays
// within the single input entry owning byte pos, per the boundary rule:
// a candidate is valid only if origin[pos] == origin[pos+length-1].
func clipToBoundary(origin []int, pos, length int) int {
	if length <= 0 {
		return 0
	}
	owner := origin[pos]
	for length > 0 && origin[pos+length-1] != owner {
		length--
	}
	return length
}

// withinBoundary reports whether concat[pos:pos+length] stays entirely
// within the single input entry owning byte pos, i.e. clipToBoundary
// would not shorten it.
func withinBoundary(origin []int, pos, length int) bool {
	return clipToBoundary(origin, pos, length) == length
}
