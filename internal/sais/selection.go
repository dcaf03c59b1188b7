package sais

import (
	"math"
	"sort"
)

// ThresholdFunction computes the minimum-support fraction required for
// a candidate token of the given length.
type ThresholdFunction interface {
	Compute(tokenLen, minLen, maxLen int) float64
}

// FixedThreshold always returns the same fraction regardless of length.
type FixedThreshold float64

func (f FixedThreshold) Compute(int, int, int) float64 { return float64(f) }

// InterpolatedThreshold linearly (or curve-warped) interpolates between
// MaxT at the shortest tokens and MinT at the longest, per spec:
// value(len) = MaxT - ((len-minLen)/(maxLen-minLen))^Curve * (MaxT-MinT).
type InterpolatedThreshold struct {
	MinT  float64
	MaxT  float64
	Curve float64
}

func (f InterpolatedThreshold) Compute(tokenLen, minLen, maxLen int) float64 {
	if maxLen <= minLen {
		return f.MaxT
	}
	frac := float64(tokenLen-minLen) / float64(maxLen-minLen)
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	curve := f.Curve
	if curve == 0 {
		curve = 1
	}
	return f.MaxT - math.Pow(frac, curve)*(f.MaxT-f.MinT)
}

// SelectionMode turns raw candidates into a deduplicated token set.
type SelectionMode interface {
	Select(candidates []Candidate, corpusSize int) [][]byte
}

// Threshold keeps candidates whose support meets ceil(t * corpusSize).
type Threshold struct {
	T float64
}

func (s Threshold) Select(candidates []Candidate, corpusSize int) [][]byte {
	minInputs := int(math.Ceil(float64(corpusSize) * s.T))
	seen := make(map[string]struct{})
	var out [][]byte
	for _, c := range candidates {
		if c.Support < minInputs {
			continue
		}
		addUnique(&out, seen, c.Bytes)
	}
	return out
}

// ThresholdSelector applies a per-length ThresholdFunction, flooring the
// minimum input count at 2 (a candidate with support 1 is never a shared
// substring by construction, but the floor matches the source contract
// explicitly).
type ThresholdSelector struct {
	Fn             ThresholdFunction
	MinLen, MaxLen int
}

func (s ThresholdSelector) Select(candidates []Candidate, corpusSize int) [][]byte {
	seen := make(map[string]struct{})
	var out [][]byte
	for _, c := range candidates {
		frac := s.Fn.Compute(len(c.Bytes), s.MinLen, s.MaxLen)
		minInputs := int(math.Ceil(float64(corpusSize) * frac))
		if minInputs < 2 {
			minInputs = 2
		}
		if c.Support < minInputs {
			continue
		}
		addUnique(&out, seen, c.Bytes)
	}
	return out
}

// MinTokenCount keeps the top-k candidates by support, expanding the cut
// to include ties at the boundary value, after deduplicating by bytes.
type MinTokenCount struct {
	K int
}

func (s MinTokenCount) Select(candidates []Candidate, corpusSize int) [][]byte {
	deduped := dedupeBySupport(candidates)
	if len(deduped) == 0 {
		return nil
	}
	sort.SliceStable(deduped, func(i, j int) bool {
		return deduped[i].Support > deduped[j].Support
	})
	if len(deduped) <= s.K {
		out := make([][]byte, 0, len(deduped))
		for _, c := range deduped {
			out = append(out, c.Bytes)
		}
		return out
	}
	k := s.K
	if k <= 0 {
		return nil
	}
	cutoff := deduped[k-1].Support
	var out [][]byte
	for _, c := range deduped {
		if c.Support >= cutoff {
			out = append(out, c.Bytes)
		}
	}
	return out
}

func addUnique(out *[][]byte, seen map[string]struct{}, b []byte) {
	key := string(b)
	if _, ok := seen[key]; ok {
		return
	}
	seen[key] = struct{}{}
	*out = append(*out, b)
}

// dedupeBySupport keeps one entry per distinct byte sequence, at the
// position of its first occurrence, carrying the highest support seen
// for that sequence.
func dedupeBySupport(candidates []Candidate) []Candidate {
	seen := make(map[string]int)
	var out []Candidate
	for _, c := range candidates {
		key := string(c.Bytes)
		if idx, ok := seen[key]; ok {
			if c.Support > out[idx].Support {
				out[idx].Support = c.Support
			}
			continue
		}
		seen[key] = len(out)
		out = append(out, c)
	}
	return out
}
