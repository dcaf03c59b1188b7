package sais

import (
	"fmt"
	"math"

	"github.com/tokendisco/tokendiscovery/internal/discoverylog"
)

// Config bundles the parameters one discovery call needs.
type Config struct {
	MinLen int
	MaxLen int
	Mode   SelectionMode
}

// Discover runs the full suffix-array common-substring scan over corpus
// and returns the selected token set. It returns nil if the corpus is
// empty, produced no candidates, or the selected set is empty — all of
// which are the normal "no tokens this cycle" outcome, not an error.
func Discover(corpus [][]byte, cfg Config) [][]byte {
	if len(corpus) == 0 {
		return nil
	}
	candidates := FindCommonSubstrings(corpus, cfg.MinLen, cfg.MaxLen)
	if len(candidates) == 0 {
		return nil
	}

	mode := cfg.Mode
	if ts, ok := mode.(ThresholdSelector); ok && ts.MaxLen == 0 && ts.MinLen == 0 {
		ts.MinLen, ts.MaxLen = cfg.MinLen, cfg.MaxLen
		mode = ts
	}

	tokens := mode.Select(candidates, len(corpus))
	if len(tokens) == 0 {
		return nil
	}

	if ts, ok := mode.(ThresholdSelector); ok {
		logThresholdCurve(len(corpus), cfg.MinLen, cfg.MaxLen, ts.Fn)
	}
	discoverylog.Stats("sais", "%d inputs pattern matched to %d tokens", len(corpus), len(tokens))
	return tokens
}

// logThresholdCurve prints the min-inputs cutoff at five evenly spaced
// lengths between MinLen and MaxLen, mirroring the debug curve preview
// the reference implementation prints before applying a ThresholdFn.
func logThresholdCurve(corpusSize, minLen, maxLen int, f ThresholdFunction) {
	points := [5]float64{0.0, 0.25, 0.5, 0.75, 1.0}
	msg := ""
	for i, p := range points {
		length := minLen + int(float64(maxLen-minLen)*p)
		thresh := f.Compute(length, minLen, maxLen)
		count := int(math.Ceil(float64(corpusSize) * thresh))
		if i > 0 {
			msg += " | "
		}
		msg += fmt.Sprintf("%d→%d", length, count)
	}
	discoverylog.Stats("sais", "threshold curve: %s (len→min_inputs)", msg)
}
