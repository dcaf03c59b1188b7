package discovery

import (
	"testing"

	"github.com/tokendisco/tokendiscovery/internal/dictionary"
	"github.com/tokendisco/tokendiscovery/internal/processor"
)

type fakeCorpus struct{ size int }

func (f *fakeCorpus) Size() int { return f.size }

type fakeExtractor struct {
	tokens [][]byte
	ok     bool
	calls  int
}

func (f *fakeExtractor) Name() string { return "fake" }
func (f *fakeExtractor) Extract() ([][]byte, bool) {
	f.calls++
	return f.tokens, f.ok
}

type fakeMinimizer struct {
	calls   int
	removed int
}

func (f *fakeMinimizer) Minimize() int {
	f.calls++
	return f.removed
}

func TestTickGatesBelowMinCorpusSize(t *testing.T) {
	ex := &fakeExtractor{tokens: [][]byte{[]byte("a")}, ok: true}
	s := &Stage{
		Corpus:     &fakeCorpus{size: 1},
		Extractor:  ex,
		Dictionary: dictionary.New(),
		Config:     Config{MinCorpusSize: 10, SearchInterval: 1},
	}

	res := s.Tick()
	if !res.Gated {
		t.Fatalf("expected the stage to gate when corpus is below MinCorpusSize")
	}
	if ex.calls != 0 {
		t.Fatalf("expected the extractor not to be invoked while gated")
	}
}

func TestTickGatesOffCadence(t *testing.T) {
	ex := &fakeExtractor{tokens: [][]byte{[]byte("a")}, ok: true}
	corpus := &fakeCorpus{size: 100}
	s := &Stage{
		Corpus:     corpus,
		Extractor:  ex,
		Dictionary: dictionary.New(),
		Config:     Config{MinCorpusSize: 1, SearchInterval: 3},
	}

	r1 := s.Tick() // call_count=1, 1%3!=0 -> gated
	r2 := s.Tick() // call_count=2, 2%3!=0 -> gated
	if !r1.Gated || !r2.Gated {
		t.Fatalf("expected ticks 1 and 2 to gate under SearchInterval=3")
	}
	// Grow the corpus so the no-growth gate doesn't also suppress tick 3.
	corpus.size = 101
	r3 := s.Tick() // call_count=3, 3%3==0 -> not gated on cadence
	if r3.Gated {
		t.Fatalf("expected tick 3 to pass the cadence gate")
	}
}

func TestTickGatesOnNoCorpusGrowth(t *testing.T) {
	ex := &fakeExtractor{tokens: [][]byte{[]byte("a")}, ok: true}
	corpus := &fakeCorpus{size: 50}
	s := &Stage{
		Corpus:     corpus,
		Extractor:  ex,
		Dictionary: dictionary.New(),
		Config:     Config{MinCorpusSize: 1, SearchInterval: 1},
	}

	r1 := s.Tick()
	if r1.Gated {
		t.Fatalf("expected the first tick to run (no prior corpus size to compare against)")
	}
	r2 := s.Tick() // same corpus size -> no growth -> gated
	if !r2.Gated {
		t.Fatalf("expected the second tick to gate: corpus size did not grow")
	}
}

func TestTickIngestsPipelineSurvivorsIntoDictionary(t *testing.T) {
	ex := &fakeExtractor{tokens: [][]byte{[]byte("alpha"), []byte("beta")}, ok: true}
	dict := dictionary.New()
	s := &Stage{
		Corpus:     &fakeCorpus{size: 10},
		Extractor:  ex,
		Pipeline:   processor.Pipeline{},
		Dictionary: dict,
		Config:     Config{MinCorpusSize: 1, SearchInterval: 1},
	}

	res := s.Tick()
	if res.Gated {
		t.Fatalf("expected an ungated tick")
	}
	if res.TokensAdded != 2 {
		t.Fatalf("expected 2 tokens added, got %d", res.TokensAdded)
	}
	if dict.Len() != 2 {
		t.Fatalf("expected dictionary length 2, got %d", dict.Len())
	}
}

func TestTickStopsAtExtractorEmptyResult(t *testing.T) {
	ex := &fakeExtractor{ok: false}
	dict := dictionary.New()
	s := &Stage{
		Corpus:     &fakeCorpus{size: 10},
		Extractor:  ex,
		Dictionary: dict,
		Config:     Config{MinCorpusSize: 1, SearchInterval: 1},
	}

	res := s.Tick()
	if res.Extracted {
		t.Fatalf("expected Extracted=false when the extractor returns ok=false")
	}
	if dict.Len() != 0 {
		t.Fatalf("expected no tokens added when extraction fails")
	}
}

func TestTickRunsMinimizeOnItsOwnCadence(t *testing.T) {
	ex := &fakeExtractor{ok: false}
	min := &fakeMinimizer{removed: 3}
	s := &Stage{
		Corpus:     &fakeCorpus{size: 10},
		Minimizer:  min,
		Extractor:  ex,
		Dictionary: dictionary.New(),
		Config:     Config{MinCorpusSize: 1, SearchInterval: 1, MinimizeInterval: 2},
	}

	r1 := s.Tick() // call_count=1, 1%2!=0 -> no minimize
	if min.calls != 0 || r1.Minimized != 0 {
		t.Fatalf("expected no minimize on tick 1, got calls=%d Minimized=%d", min.calls, r1.Minimized)
	}
	r2 := s.Tick() // call_count=2, 2%2==0 -> minimize runs
	if min.calls != 1 {
		t.Fatalf("expected Minimize to run once by tick 2, got %d calls", min.calls)
	}
	if r2.Minimized != 3 {
		t.Fatalf("TickResult.Minimized = %d, want 3", r2.Minimized)
	}
}

func TestTickSkipsMinimizeWhenIntervalUnset(t *testing.T) {
	min := &fakeMinimizer{removed: 1}
	s := &Stage{
		Corpus:     &fakeCorpus{size: 10},
		Minimizer:  min,
		Extractor:  &fakeExtractor{ok: false},
		Dictionary: dictionary.New(),
		Config:     Config{MinCorpusSize: 1, SearchInterval: 1},
	}

	s.Tick()
	if min.calls != 0 {
		t.Fatalf("expected Minimize never invoked when MinimizeInterval is 0, got %d calls", min.calls)
	}
}
