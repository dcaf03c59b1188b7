// Package discovery implements the token discovery stage: a gated
// control loop that, on the cadence configured for it, mines or
// extracts candidate tokens, runs them through the processor pipeline,
// and bulk-adds survivors into the dictionary. The stage owns no
// mutation of its own — it is strictly additive to token state.
package discovery

import (
	"github.com/tokendisco/tokendiscovery/internal/dictionary"
	"github.com/tokendisco/tokendiscovery/internal/discoverylog"
	"github.com/tokendisco/tokendiscovery/internal/extractor"
	"github.com/tokendisco/tokendiscovery/internal/processor"
)

// CorpusSizer reports the current corpus size, used purely for the
// stage's growth/cadence gate.
type CorpusSizer interface {
	Size() int
}

// Minimizer is implemented by corpora that support coverage-based
// minimization (internal/corpus.Corpus.Minimize). Wiring it here lets
// the stage periodically trim non-contributing entries and refresh the
// favored set the corpus extractor biases its pool toward.
type Minimizer interface {
	Minimize() int
}

// Config holds the stage's gating parameters.
type Config struct {
	MinCorpusSize  int
	SearchInterval int

	// MinimizeInterval is the call-count cadence Minimize runs on, when
	// Minimizer is set. Zero disables minimization entirely.
	MinimizeInterval int
}

// Stage is the discovery control loop described in §4.8. Its state
// (call_count, last_corpus_size) is owned entirely by the Stage value;
// callers invoke Tick once per fuzz-loop iteration.
type Stage struct {
	Corpus     CorpusSizer
	Minimizer  Minimizer
	Extractor  extractor.Extractor
	Pipeline   processor.Pipeline
	Dictionary *dictionary.Dictionary
	Config     Config

	callCount      int64
	lastCorpusSize int
	initialized    bool
}

// TickResult reports what happened on one Tick call, for logging and
// testing — a gated or empty-extraction tick is not an error.
type TickResult struct {
	Gated       bool
	Extracted   bool
	Vetoed      bool
	TokensAdded int
	Minimized   int
}

// Tick advances the stage's call counter and, if the gate passes, runs
// one extract → process → ingest cycle.
//
// The gate fires (the stage does nothing this call, beyond bookkeeping)
// when any of: the corpus hasn't grown since the last call, the call
// count isn't a multiple of SearchInterval, or the corpus is below
// MinCorpusSize. Minimization runs on its own cadence independent of
// the gate, since it trims the corpus rather than extracting from it.
func (s *Stage) Tick() TickResult {
	s.callCount++

	var minimized int
	if s.Minimizer != nil && s.Config.MinimizeInterval > 0 && s.callCount%int64(s.Config.MinimizeInterval) == 0 {
		if minimized = s.Minimizer.Minimize(); minimized > 0 {
			discoverylog.Stats("discovery", "minimize: dropped %d non-contributing entr(ies)", minimized)
		}
	}

	corpusSize := s.Corpus.Size()

	gate := s.gated(corpusSize)
	s.lastCorpusSize = corpusSize
	s.initialized = true

	if gate {
		return TickResult{Gated: true, Minimized: minimized}
	}

	candidates, ok := s.Extractor.Extract()
	if !ok {
		return TickResult{Extracted: false, Minimized: minimized}
	}

	processed, ok := s.Pipeline.Run(candidates)
	if !ok {
		discoverylog.Stats("discovery", "pipeline vetoed extraction from %s", s.Extractor.Name())
		return TickResult{Extracted: true, Vetoed: true, Minimized: minimized}
	}

	added := s.Dictionary.AddAll(processed)
	if added > 0 {
		discoverylog.Info("discovery: added %d token(s) from %s", added, s.Extractor.Name())
	}

	return TickResult{Extracted: true, TokensAdded: added, Minimized: minimized}
}

func (s *Stage) gated(corpusSize int) bool {
	interval := s.Config.SearchInterval
	if interval <= 0 {
		interval = 1
	}

	noGrowth := s.initialized && corpusSize == s.lastCorpusSize
	offCadence := s.callCount%int64(interval) != 0
	belowMinimum := corpusSize < s.Config.MinCorpusSize

	return noGrowth || offCadence || belowMinimum
}
