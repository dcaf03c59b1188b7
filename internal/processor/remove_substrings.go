package processor

import (
	"bytes"
	"sort"
)

// RemoveSubstrings sorts tokens by descending length and drops any token
// that occurs as a contiguous substring of an already-kept longer token.
type RemoveSubstrings struct{}

func (r RemoveSubstrings) Name() string { return "remove_substrings" }

func (r RemoveSubstrings) Process(tokens [][]byte) ([][]byte, bool) {
	ordered := append([][]byte(nil), tokens...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i]) > len(ordered[j])
	})

	var kept [][]byte
	for _, cand := range ordered {
		subsumed := false
		for _, k := range kept {
			if len(cand) < len(k) && bytes.Contains(k, cand) {
				subsumed = true
				break
			}
		}
		if !subsumed {
			kept = append(kept, cand)
		}
	}

	if len(kept) == 0 {
		return nil, false
	}
	return kept, true
}
