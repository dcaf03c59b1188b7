package extractor

// CorpusSource is the minimal corpus contract this extractor needs.
type CorpusSource interface {
	LastN(n int) [][]byte
}

// favoredSource is implemented by corpora that track minimization state
// (internal/corpus.Corpus.GetFavoredBytes). It's checked with a type
// assertion rather than folded into CorpusSource so a bare LastN-only
// source (as used in tests) still satisfies CorpusSource on its own.
type favoredSource interface {
	GetFavoredBytes() [][]byte
}

// Corpus returns the last SearchPoolSize corpus entries in newest-first
// order, with any favored entries (per Minimize) moved to the front of
// the pool. No mutation, no filtering beyond that bias — the rest is
// the pipeline's job.
type Corpus struct {
	Source         CorpusSource
	SearchPoolSize int
}

func (c Corpus) Name() string { return "corpus" }

func (c Corpus) Extract() ([][]byte, bool) {
	entries := c.Source.LastN(c.SearchPoolSize)
	if len(entries) == 0 {
		return nil, false
	}

	fav, ok := c.Source.(favoredSource)
	if !ok {
		return entries, true
	}

	favored := fav.GetFavoredBytes()
	if len(favored) == 0 {
		return entries, true
	}

	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		seen[string(e)] = struct{}{}
	}

	pool := make([][]byte, 0, c.SearchPoolSize)
	for _, f := range favored {
		if len(pool) >= c.SearchPoolSize {
			break
		}
		if _, dup := seen[string(f)]; dup {
			continue
		}
		seen[string(f)] = struct{}{}
		pool = append(pool, f)
	}
	pool = append(pool, entries...)
	if len(pool) > c.SearchPoolSize {
		pool = pool[:c.SearchPoolSize]
	}
	return pool, true
}
