// Package corpus manages the set of interesting byte inputs the fuzzer
// has retained. It is an external collaborator the token-discovery core
// consumes through the corpus extractor (§4.4) and the discovery stage's
// corpus-size gate (§4.8); crash persistence is out of scope here.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/tokendisco/tokendiscovery/internal/coverage"
)

// Entry is a single retained input.
type Entry struct {
	Data           []byte                 `json:"-"`
	Hash           string                 `json:"hash"`
	Size           int                    `json:"size"`
	Coverage       coverage.CoverageStats `json:"coverage"`
	DiscoveredAt   time.Time              `json:"discovered_at"`
	ExecutionCount int64                  `json:"execution_count"`
	IsSeed         bool                   `json:"is_seed"`
	Favored        bool                   `json:"favored"`
}

// Corpus holds retained inputs in discovery order and persists them to
// disk under dir/queue.
type Corpus struct {
	entries    []*Entry
	entryIndex map[string]*Entry
	dir        string
	mu         sync.RWMutex
}

// New creates a Corpus rooted at dir, creating the queue directory if
// needed. An empty dir falls back to a temp directory.
func New(dir string) *Corpus {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "tokendiscovery_corpus")
	}
	os.MkdirAll(filepath.Join(dir, "queue"), 0755)

	return &Corpus{
		entries:    make([]*Entry, 0),
		entryIndex: make(map[string]*Entry),
		dir:        dir,
	}
}

// Add inserts entry, returning false if its hash is already present.
func (c *Corpus) Add(entry *Entry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entryIndex[entry.Hash]; exists {
		return false
	}

	entry.Size = len(entry.Data)
	c.entries = append(c.entries, entry)
	c.entryIndex[entry.Hash] = entry
	c.saveEntry(entry)

	return true
}

// AddBytes is a convenience wrapper around Add for callers that only
// have raw input bytes.
func (c *Corpus) AddBytes(data []byte) bool {
	return c.Add(&Entry{
		Data:         data,
		Hash:         HashBytes(data),
		DiscoveredAt: time.Now(),
	})
}

// AddWithCoverage is AddBytes plus the coverage snapshot the execution
// that produced data reported. Minimize sorts and filters on this, so
// callers driving a real executor should prefer it over AddBytes.
func (c *Corpus) AddWithCoverage(data []byte, stats coverage.CoverageStats) bool {
	return c.Add(&Entry{
		Data:         data,
		Hash:         HashBytes(data),
		Coverage:     stats,
		DiscoveredAt: time.Now(),
	})
}

// GetEntries returns a snapshot of all retained entries, oldest first.
func (c *Corpus) GetEntries() []*Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]*Entry, len(c.entries))
	copy(entries, c.entries)
	return entries
}

// LastN returns the last n entries in newest-first order. This backs
// the corpus extractor's §4.4 contract directly.
func (c *Corpus) LastN(n int) [][]byte {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if n > len(c.entries) {
		n = len(c.entries)
	}
	out := make([][]byte, 0, n)
	for i := len(c.entries) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, c.entries[i].Data)
	}
	return out
}

// Size returns the number of retained entries.
func (c *Corpus) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetFavored returns entries marked favored by Minimize.
func (c *Corpus) GetFavored() []*Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var favored []*Entry
	for _, e := range c.entries {
		if e.Favored {
			favored = append(favored, e)
		}
	}
	return favored
}

// GetFavoredBytes is GetFavored stripped to raw bytes, the shape the
// corpus extractor (internal/extractor.Corpus) consumes to bias its
// search pool toward entries Minimize has already vetted.
func (c *Corpus) GetFavoredBytes() [][]byte {
	favored := c.GetFavored()
	out := make([][]byte, len(favored))
	for i, e := range favored {
		out[i] = e.Data
	}
	return out
}

// Minimize performs a greedy coverage-based minimization pass: the
// highest-coverage entry is marked favored, and any entry contributing
// no coverage and not a seed is dropped. Returns the number removed.
func (c *Corpus) Minimize() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) <= 1 {
		return 0
	}

	sort.Slice(c.entries, func(i, j int) bool {
		return c.entries[i].Coverage.EdgesCovered > c.entries[j].Coverage.EdgesCovered
	})
	c.entries[0].Favored = true

	removed := 0
	var kept []*Entry
	for _, entry := range c.entries {
		contributes := entry.Coverage.EdgesCovered > 0
		if contributes || entry.IsSeed || entry.Favored {
			kept = append(kept, entry)
			continue
		}
		removed++
		delete(c.entryIndex, entry.Hash)
	}
	c.entries = kept

	return removed
}

// Load reads persisted entries back from disk.
func (c *Corpus) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	queueDir := filepath.Join(c.dir, "queue")
	files, err := os.ReadDir(queueDir)
	if err != nil {
		return err
	}

	for _, file := range files {
		if filepath.Ext(file.Name()) == ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(queueDir, file.Name()))
		if err != nil {
			continue
		}

		entry := &Entry{Data: data, Hash: file.Name(), Size: len(data)}
		if metaData, err := os.ReadFile(filepath.Join(queueDir, file.Name()+".json")); err == nil {
			json.Unmarshal(metaData, entry)
		}

		c.entries = append(c.entries, entry)
		c.entryIndex[entry.Hash] = entry
	}

	return nil
}

func (c *Corpus) saveEntry(entry *Entry) error {
	inputPath := filepath.Join(c.dir, "queue", entry.Hash)
	if err := os.WriteFile(inputPath, entry.Data, 0644); err != nil {
		return err
	}
	metaPath := filepath.Join(c.dir, "queue", entry.Hash+".json")
	meta, _ := json.Marshal(entry)
	return os.WriteFile(metaPath, meta, 0644)
}

// HashBytes returns a hex-encoded SHA256 hash, the canonical entry key.
func HashBytes(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
