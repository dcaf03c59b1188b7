package processor

import (
	"sort"

	"github.com/agnivade/levenshtein"
)

// KeepStrategy decides which length ordering RemoveSimilar sorts by
// before its greedy keep pass.
type KeepStrategy int

const (
	KeepLonger KeepStrategy = iota
	KeepShorter
)

// RemoveSimilar greedily keeps tokens, dropping any candidate whose
// normalized Levenshtein similarity to an already-kept token is at least
// Threshold. Candidates are visited longest-first (KeepLonger) or
// shortest-first (KeepShorter).
type RemoveSimilar struct {
	Threshold float64
	Keep      KeepStrategy
}

func (r RemoveSimilar) Name() string { return "remove_similar" }

func (r RemoveSimilar) Process(tokens [][]byte) ([][]byte, bool) {
	ordered := append([][]byte(nil), tokens...)
	sort.SliceStable(ordered, func(i, j int) bool {
		if r.Keep == KeepShorter {
			return len(ordered[i]) < len(ordered[j])
		}
		return len(ordered[i]) > len(ordered[j])
	})

	var kept [][]byte
	for _, cand := range ordered {
		similarToKept := false
		for _, k := range kept {
			if similarity(cand, k) >= r.Threshold {
				similarToKept = true
				break
			}
		}
		if !similarToKept {
			kept = append(kept, cand)
		}
	}

	if len(kept) == 0 {
		return nil, false
	}
	return kept, true
}

// similarity returns normalized Levenshtein similarity: 1 - d/max(|a|,|b|).
func similarity(a, b []byte) float64 {
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	if maxLen == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(string(a), string(b))
	return 1 - float64(d)/float64(maxLen)
}
