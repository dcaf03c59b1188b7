// Package coverage provides coverage-guided fuzzing capabilities.
// It implements AFL-style instrumentation and feedback loops.
package coverage

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"sync/atomic"
)

// EdgeID represents a unique edge in the control flow graph
type EdgeID uint32

// CoverageMap stores coverage information (AFL-style bitmap)
type CoverageMap struct {
	bitmap   []byte
	size     int
	hitCount int64
	newEdges int64
	mu       sync.RWMutex
}

// NewCoverageMap creates a new coverage map
func NewCoverageMap(size int) *CoverageMap {
	if size <= 0 {
		size = 65536 // Default 64KB bitmap
	}
	return &CoverageMap{
		bitmap: make([]byte, size),
		size:   size,
	}
}

// RecordEdge records an edge hit
func (cm *CoverageMap) RecordEdge(from, to uint32) bool {
	// AFL-style edge ID: (from >> 1) ^ to
	edgeID := (from >> 1) ^ to
	index := int(edgeID) % cm.size

	cm.mu.Lock()
	defer cm.mu.Unlock()

	oldVal := cm.bitmap[index]
	newVal := oldVal + 1

	// Handle overflow with bucket counting (AFL-style)
	if newVal < oldVal {
		newVal = 255
	}

	cm.bitmap[index] = newVal
	atomic.AddInt64(&cm.hitCount, 1)

	// Return true if this is a new edge or new hit count bucket
	isNew := (oldVal == 0) || (hitCountBucket(oldVal) != hitCountBucket(newVal))
	if isNew && oldVal == 0 {
		atomic.AddInt64(&cm.newEdges, 1)
	}

	return isNew
}

// hitCountBucket classifies hit counts into buckets (AFL-style)
func hitCountBucket(count byte) byte {
	switch {
	case count == 0:
		return 0
	case count == 1:
		return 1
	case count == 2:
		return 2
	case count == 3:
		return 3
	case count <= 7:
		return 4
	case count <= 15:
		return 5
	case count <= 31:
		return 6
	case count <= 127:
		return 7
	default:
		return 8
	}
}

// Hash returns a hash of the coverage map
func (cm *CoverageMap) Hash() []byte {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	h := sha256.Sum256(cm.bitmap)
	return h[:]
}

// GetStats returns coverage statistics. The corpus package calls this
// to attach a per-entry coverage snapshot at AddWithCoverage time, which
// Minimize later sorts and filters on.
func (cm *CoverageMap) GetStats() CoverageStats {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	edgesCovered := 0
	for _, v := range cm.bitmap {
		if v > 0 {
			edgesCovered++
		}
	}

	return CoverageStats{
		EdgesCovered:    edgesCovered,
		TotalEdges:      cm.size,
		HitCount:        atomic.LoadInt64(&cm.hitCount),
		NewEdges:        atomic.LoadInt64(&cm.newEdges),
		CoveragePercent: float64(edgesCovered) / float64(cm.size) * 100,
	}
}

// Reset resets the coverage map
func (cm *CoverageMap) Reset() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for i := range cm.bitmap {
		cm.bitmap[i] = 0
	}
	atomic.StoreInt64(&cm.hitCount, 0)
	atomic.StoreInt64(&cm.newEdges, 0)
}

// CoverageStats holds coverage statistics
type CoverageStats struct {
	EdgesCovered    int     `json:"edges_covered"`
	TotalEdges      int     `json:"total_edges"`
	HitCount        int64   `json:"hit_count"`
	NewEdges        int64   `json:"new_edges"`
	CoveragePercent float64 `json:"coverage_percent"`
}

// EdgeHasher hashes edge transitions
type EdgeHasher struct {
	lastBlock uint32
}

// NewEdgeHasher creates a new edge hasher
func NewEdgeHasher() *EdgeHasher {
	return &EdgeHasher{}
}

// HashEdge computes the edge hash for a block transition
func (eh *EdgeHasher) HashEdge(currentBlock uint32) EdgeID {
	edge := EdgeID((eh.lastBlock >> 1) ^ currentBlock)
	eh.lastBlock = currentBlock
	return edge
}

// Reset resets the edge hasher
func (eh *EdgeHasher) Reset() {
	eh.lastBlock = 0
}

// BlockID generates a block ID from a location
func BlockID(file string, line int) uint32 {
	h := sha256.New()
	h.Write([]byte(file))
	binary.Write(h, binary.LittleEndian, int32(line))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint32(sum[:4])
}
