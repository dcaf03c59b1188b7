package extractor

import (
	"crypto/rand"

	"github.com/tokendisco/tokendiscovery/internal/coverage"
	"github.com/tokendisco/tokendiscovery/internal/memory"
)

// MutationDelta isolates the causative byte range between a parent
// input and a coverage-novel child by bisection: right-anchor scan,
// right extension, then left extension, each re-executing against Exec
// and comparing fingerprints.
type MutationDelta struct {
	Exec         coverage.Executor
	Parent       []byte
	Child        []byte
	MinTokenLen  int
	MaxTokenLen  int
}

func (m MutationDelta) Name() string { return "mutation_delta" }

// Extract runs the three-phase bisection and returns the isolated token
// as the sole element of a one-item list, or ok=false if parent and
// child produce the same fingerprint or no range at least MinTokenLen
// long could be isolated.
func (m MutationDelta) Extract() ([][]byte, bool) {
	parentFP := m.Exec.Run(m.Parent)
	childFP := m.Exec.Run(m.Child)
	if parentFP.Equal(childFP) {
		return nil, false
	}

	t := memory.GetBytes(len(m.Parent))
	copy(t, m.Parent)
	defer func() { memory.PutBytes(t) }()

	// 1. Right anchor: extend T with C's bytes until fingerprint == childFP.
	l, r := len(m.Child), len(m.Child)
	found := false
	for i := 0; i < len(m.Child); i++ {
		if i < len(t) {
			t[i] = m.Child[i]
		} else {
			t = append(t, m.Child[i])
		}
		fp := m.Exec.Run(t)
		if fp.Equal(childFP) {
			l, r = i, i+1
			found = true
			break
		}
	}
	if !found {
		return nil, false
	}

	// 2. Right extension: randomize bytes forward, stop where it no
	// longer matters (fingerprint still equals childFP).
	maxR := l + m.MaxTokenLen
	if maxR > len(m.Child) {
		maxR = len(m.Child)
	}
	for i := r; i < maxR; i++ {
		if i >= len(t) {
			break
		}
		orig := t[i]
		t[i] = randomByte()
		fp := m.Exec.Run(t)
		t[i] = orig
		if fp.Equal(childFP) {
			r = i
			break
		}
		r = i + 1
	}

	// 3. Left extension: scanning forward from the left of the anchored
	// range toward R, perturb bytes back toward (or away from) the
	// parent. Stop at the first index whose fingerprint reverts to the
	// parent's baseline — that index is the first bit of the causative
	// range.
	minL := r - m.MaxTokenLen
	if minL < 0 {
		minL = 0
	}
	l = minL
	for i := minL; i < r; i++ {
		orig := t[i]
		var perturbed byte
		if i < len(m.Parent) && orig == m.Parent[i] {
			perturbed = randomByte()
		} else if i < len(m.Parent) {
			perturbed = m.Parent[i]
		} else {
			perturbed = randomByte()
		}
		t[i] = perturbed
		fp := m.Exec.Run(t)
		t[i] = orig
		if fp.Equal(parentFP) {
			l = i
			break
		}
	}

	if r-l < m.MinTokenLen {
		return nil, false
	}
	if r > len(m.Child) {
		r = len(m.Child)
	}
	if l >= r {
		return nil, false
	}

	token := append([]byte(nil), m.Child[l:r]...)
	return [][]byte{token}, true
}

func randomByte() byte {
	var b [1]byte
	rand.Read(b[:])
	return b[0]
}
