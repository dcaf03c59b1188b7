package coverage

import "bytes"

// Fingerprint is a coverage observation taken from one execution. Two
// fingerprints are equal iff their underlying vectors match bitwise;
// that equality is the sole signal the mutation-delta extractor uses.
type Fingerprint struct {
	vector []byte
}

// Equal reports bitwise equality of two fingerprints.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return bytes.Equal(f.vector, other.vector)
}

// Observer exposes the coverage map an Executor populates during a run.
// Reset clears it; Fingerprint snapshots its current state.
type Observer interface {
	Reset()
	Fingerprint() Fingerprint
}

// mapObserver adapts a *CoverageMap to the Observer contract.
type mapObserver struct {
	m *CoverageMap
}

// NewMapObserver wraps a CoverageMap as an Observer.
func NewMapObserver(m *CoverageMap) Observer {
	return &mapObserver{m: m}
}

func (o *mapObserver) Reset() { o.m.Reset() }

func (o *mapObserver) Fingerprint() Fingerprint {
	return Fingerprint{vector: o.m.Hash()}
}

// Executor runs a byte input against a target and reports the resulting
// coverage fingerprint. Run MUST reset its observer before every
// execution — the mutation-delta extractor's bisection invariants rely
// on every fingerprint reflecting exactly one execution's coverage, not
// an accumulation across calls.
type Executor interface {
	Run(input []byte) Fingerprint
}

// ObserverExecutor is an Executor built from a target function and the
// Observer it populates as a side effect of running.
type ObserverExecutor struct {
	Observer Observer
	Target   func(input []byte)
}

// Run resets the observer, invokes Target, and returns the resulting
// fingerprint.
func (e ObserverExecutor) Run(input []byte) Fingerprint {
	e.Observer.Reset()
	e.Target(input)
	return e.Observer.Fingerprint()
}
