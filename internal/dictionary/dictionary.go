// Package dictionary implements the bounded, success-weighted token
// dictionary: a capacity-limited set of byte tokens, each carrying usage
// and success counters that drive eviction once the dictionary is full.
package dictionary

import (
	"math"
	"sync"
)

// TokenStat tracks how often a token has been used by a mutator and how
// often that use survived into something worth keeping (a new corpus
// entry, new coverage — whatever the caller considers "success"). Both
// counters start at 1, giving every fresh token a 100% initial success
// rate so it isn't the first thing evicted.
type TokenStat struct {
	Uses      uint64
	Successes uint64
}

func newTokenStat() TokenStat {
	return TokenStat{Uses: 1, Successes: 1}
}

// DefaultMaxTokens bounds dictionary size when no explicit capacity is given.
const DefaultMaxTokens = 100

// Config holds dictionary configuration.
type Config struct {
	MaxTokens int
}

// DefaultConfig returns the default dictionary configuration.
func DefaultConfig() *Config {
	return &Config{MaxTokens: DefaultMaxTokens}
}

// Dictionary is a bounded, success-weighted token store. All methods are
// safe for concurrent use.
type Dictionary struct {
	mu sync.Mutex

	tokens       [][]byte
	index        map[string]int // token string -> position in tokens/stats
	stats        []TokenStat
	maxTokens    int
	protectedIdx int // -1 when nothing is protected
}

// New creates a Dictionary with the default capacity.
func New() *Dictionary {
	return NewWithConfig(DefaultConfig())
}

// NewWithConfig creates a Dictionary with custom capacity.
func NewWithConfig(cfg *Config) *Dictionary {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Dictionary{
		tokens:       make([][]byte, 0, maxTokens),
		index:        make(map[string]int, maxTokens),
		stats:        make([]TokenStat, 0, maxTokens),
		maxTokens:    maxTokens,
		protectedIdx: -1,
	}
}

// ProtectIndex marks idx as currently in use, exempting it from eviction
// until Unprotect is called. A mutator calls this the moment it decides
// to use a token and Unprotect once the resulting execution is scored.
func (d *Dictionary) ProtectIndex(idx int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.protectedIdx = idx
}

// Unprotect clears any protection, making every token eligible for
// eviction again.
func (d *Dictionary) Unprotect() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.protectedIdx = -1
}

// Add inserts token if it is not already present. If the dictionary is
// below capacity the token is appended; otherwise the worst-performing
// evictable token is replaced. Returns the index the token was stored at
// and true when it was newly added; a duplicate, or a token rejected
// because no index was evictable, returns 0 and false.
func (d *Dictionary) Add(token []byte) (int, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.addLocked(token)
}

func (d *Dictionary) addLocked(token []byte) (int, bool) {
	key := string(token)
	if _, exists := d.index[key]; exists {
		return 0, false
	}

	if len(d.tokens) < d.maxTokens {
		cp := append([]byte(nil), token...)
		idx := len(d.tokens)
		d.tokens = append(d.tokens, cp)
		d.stats = append(d.stats, newTokenStat())
		d.index[key] = idx
		return idx, true
	}

	idx, ok := d.findEvictionIndexLocked()
	if !ok {
		return 0, false
	}

	delete(d.index, string(d.tokens[idx]))
	cp := append([]byte(nil), token...)
	d.tokens[idx] = cp
	d.stats[idx] = newTokenStat()
	d.index[key] = idx
	return idx, true
}

// AddAll adds every token in tokens, in order, returning how many were
// actually added (new or evicting a replacement).
func (d *Dictionary) AddAll(tokens [][]byte) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	added := 0
	for _, tok := range tokens {
		if _, ok := d.addLocked(tok); ok {
			added++
		}
	}
	return added
}

// findEvictionIndexLocked picks the token with the lowest successes/uses
// ratio among tokens that have actually been used (uses > 0, which is
// every token since stats start at 1/1, so fresh tokens are candidates
// too). Ties keep the first (lowest index) candidate found. The protected
// index is skipped, so the worst unprotected token is chosen; eviction is
// refused only when no unprotected candidate exists.
func (d *Dictionary) findEvictionIndexLocked() (int, bool) {
	worstIdx := 0
	worstRate := math.MaxFloat64
	anyCandidate := false

	for i, stat := range d.stats {
		if i == d.protectedIdx {
			continue
		}
		if stat.Uses > 0 {
			rate := float64(stat.Successes) / float64(stat.Uses)
			if rate < worstRate {
				worstRate = rate
				worstIdx = i
				anyCandidate = true
			}
		}
	}

	if worstIdx == d.protectedIdx {
		return 0, false
	}
	if !anyCandidate || worstRate > 1.0 {
		// No unprotected candidate. Successes never exceed uses, so the
		// rate is at most 1.0 and a candidate is always evictable.
		return 0, false
	}

	return worstIdx, true
}

// UpdateStats records one use of the token at idx, and whether that use
// was a success.
func (d *Dictionary) UpdateStats(idx int, success bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if idx < 0 || idx >= len(d.stats) {
		return
	}
	d.stats[idx].Uses++
	if success {
		d.stats[idx].Successes++
	}
}

// Tokens returns a snapshot of the stored tokens in index order.
func (d *Dictionary) Tokens() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.tokens))
	for i, t := range d.tokens {
		out[i] = append([]byte(nil), t...)
	}
	return out
}

// Len reports how many tokens are currently stored.
func (d *Dictionary) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.tokens)
}

// At returns a copy of the token stored at idx, and whether idx was valid.
func (d *Dictionary) At(idx int) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if idx < 0 || idx >= len(d.tokens) {
		return nil, false
	}
	return append([]byte(nil), d.tokens[idx]...), true
}

// StatAt returns the stat record for idx, and whether idx was valid.
func (d *Dictionary) StatAt(idx int) (TokenStat, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if idx < 0 || idx >= len(d.stats) {
		return TokenStat{}, false
	}
	return d.stats[idx], true
}
