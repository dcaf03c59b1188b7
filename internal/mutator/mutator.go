// Package mutator provides byte-level mutation strategies: the
// AFL-style havoc mutators (afl.go), the token-dictionary-backed
// operators (token.go), and the registry/engine scaffolding used to
// assemble and drive them outside of the token-preserving scheduler.
//
// Mutators never classify or type-infer their input. Semantic token
// typing is explicitly out of scope (spec Non-goals) — every mutator
// here treats its argument as an opaque byte sequence.
package mutator

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/tokendisco/tokendiscovery/pkg/types"
)

// InputType is a vestigial classification slot threaded through
// MutateWithType for interface compatibility with mutators that might
// branch on it; none of the mutators in this package do.
type InputType int

// TypeUnknown is the only InputType value ever produced or consumed
// here.
const TypeUnknown InputType = 0

// Mutator defines the interface for all mutation implementations
type Mutator interface {
	// Name returns the human-readable name of the mutator
	Name() string

	// Description returns a brief description of what this mutator does
	Description() string

	// Mutate applies the mutation strategy to the input
	Mutate(input []byte) ([]byte, error)

	// MutateWithType applies mutation given an InputType. All mutators
	// in this package ignore it; it exists for interface uniformity.
	MutateWithType(input []byte, inputType InputType) ([]byte, error)

	// Type returns the MutationType constant for this mutator
	Type() types.MutationType
}

// MutationStrategy defines how mutations are selected and applied
type MutationStrategy interface {
	// SelectMutator chooses a mutator from the available pool
	SelectMutator(mutators []Mutator) Mutator

	// ShouldMutate decides whether to apply mutation
	ShouldMutate(probability float64) bool

	// Reset resets any internal state
	Reset()
}

// MutationResult wraps the result of a mutation operation
type MutationResult struct {
	Original    []byte
	Mutated     []byte
	MutatorName string
	Success     bool
	Error       error
}

// --- Registry: Manages available mutators ---

// Registry stores and manages available mutators
type Registry struct {
	mu       sync.RWMutex
	mutators map[string]Mutator
	order    []string // maintains insertion order
}

// NewRegistry creates a new mutator registry
func NewRegistry() *Registry {
	return &Registry{
		mutators: make(map[string]Mutator),
		order:    make([]string, 0),
	}
}

// Register adds a mutator to the registry
func (r *Registry) Register(m Mutator) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := m.Name()
	if _, exists := r.mutators[name]; !exists {
		r.order = append(r.order, name)
	}
	r.mutators[name] = m
}

// Get retrieves a mutator by name
func (r *Registry) Get(name string) (Mutator, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, exists := r.mutators[name]
	return m, exists
}

// GetByType retrieves mutators by MutationType
func (r *Registry) GetByType(t types.MutationType) []Mutator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []Mutator
	for _, name := range r.order {
		if m, exists := r.mutators[name]; exists && m.Type() == t {
			result = append(result, m)
		}
	}
	return result
}

// All returns all registered mutators in insertion order
func (r *Registry) All() []Mutator {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Mutator, 0, len(r.order))
	for _, name := range r.order {
		if m, exists := r.mutators[name]; exists {
			result = append(result, m)
		}
	}
	return result
}

// Names returns the names of all registered mutators
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]string, len(r.order))
	copy(result, r.order)
	return result
}

// Count returns the number of registered mutators
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.mutators)
}

// Remove removes a mutator from the registry
func (r *Registry) Remove(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.mutators[name]; !exists {
		return false
	}

	delete(r.mutators, name)

	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}

	return true
}

// --- RandomSelector: Random mutation selection strategy ---

// RandomSelector implements random mutator selection
type RandomSelector struct {
	mu sync.Mutex
}

// NewRandomSelector creates a new RandomSelector
func NewRandomSelector() *RandomSelector {
	return &RandomSelector{}
}

// SelectMutator randomly selects a mutator from the pool
func (s *RandomSelector) SelectMutator(mutators []Mutator) Mutator {
	if len(mutators) == 0 {
		return nil
	}

	idx := secureRandomInt(len(mutators))
	return mutators[idx]
}

// ShouldMutate decides whether to apply mutation based on probability
func (s *RandomSelector) ShouldMutate(probability float64) bool {
	if probability <= 0 {
		return false
	}
	if probability >= 1.0 {
		return true
	}

	randFloat := float64(secureRandomInt(10000)) / 10000.0
	return randFloat < probability
}

// Reset resets any internal state (no-op for RandomSelector)
func (s *RandomSelector) Reset() {
	// No internal state to reset
}

// --- WeightedSelector: Weighted random selection ---

// WeightedSelector implements weighted mutator selection
type WeightedSelector struct {
	mu      sync.Mutex
	weights map[string]float64
}

// NewWeightedSelector creates a new WeightedSelector
func NewWeightedSelector() *WeightedSelector {
	return &WeightedSelector{
		weights: make(map[string]float64),
	}
}

// SetWeight sets the selection weight for a mutator
func (s *WeightedSelector) SetWeight(name string, weight float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if weight > 0 {
		s.weights[name] = weight
	}
}

// SelectMutator selects a mutator based on weights
func (s *WeightedSelector) SelectMutator(mutators []Mutator) Mutator {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(mutators) == 0 {
		return nil
	}

	var totalWeight float64
	for _, m := range mutators {
		if w, exists := s.weights[m.Name()]; exists {
			totalWeight += w
		} else {
			totalWeight += 1.0
		}
	}

	if totalWeight <= 0 {
		return mutators[secureRandomInt(len(mutators))]
	}

	target := float64(secureRandomInt(10000)) / 10000.0 * totalWeight
	var cumulative float64

	for _, m := range mutators {
		weight := 1.0
		if w, exists := s.weights[m.Name()]; exists {
			weight = w
		}
		cumulative += weight
		if cumulative >= target {
			return m
		}
	}

	return mutators[len(mutators)-1]
}

// ShouldMutate decides whether to apply mutation based on probability
func (s *WeightedSelector) ShouldMutate(probability float64) bool {
	if probability <= 0 {
		return false
	}
	if probability >= 1.0 {
		return true
	}
	randFloat := float64(secureRandomInt(10000)) / 10000.0
	return randFloat < probability
}

// Reset resets internal state
func (s *WeightedSelector) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.weights = make(map[string]float64)
}

// --- MutatorEngine: Main mutation orchestrator ---

// MutatorEngine drives a single random (non-stacked, non-token-preserving)
// mutation per call, drawn from its registry. cmd/tokendiscovery does not
// use it: its non-scheduler presets pick a mutator from their pool
// directly.
type MutatorEngine struct {
	mu              sync.RWMutex
	registry        *Registry
	strategy        MutationStrategy
	probability     float64
	maxMutations    int
	defaultMutators []string
}

// MutatorEngineConfig holds configuration for MutatorEngine
type MutatorEngineConfig struct {
	Probability     float64          // Probability of mutation (0.0 - 1.0)
	MaxMutations    int              // Maximum mutations to apply in chain
	Strategy        MutationStrategy // Selection strategy
	DefaultMutators []string         // Names of default mutators to use
}

// DefaultEngineConfig returns default configuration
func DefaultEngineConfig() *MutatorEngineConfig {
	return &MutatorEngineConfig{
		Probability:     1.0,
		MaxMutations:    1,
		Strategy:        NewRandomSelector(),
		DefaultMutators: nil, // use all registered
	}
}

// NewMutatorEngine creates a new MutatorEngine with default configuration
func NewMutatorEngine() *MutatorEngine {
	return NewMutatorEngineWithConfig(DefaultEngineConfig())
}

// NewMutatorEngineWithConfig creates a new MutatorEngine with custom configuration
func NewMutatorEngineWithConfig(config *MutatorEngineConfig) *MutatorEngine {
	if config == nil {
		config = DefaultEngineConfig()
	}

	return &MutatorEngine{
		registry:        NewRegistry(),
		strategy:        config.Strategy,
		probability:     config.Probability,
		maxMutations:    config.MaxMutations,
		defaultMutators: config.DefaultMutators,
	}
}

// Register adds a mutator to the engine
func (e *MutatorEngine) Register(m Mutator) {
	e.registry.Register(m)
}

// SetStrategy sets the mutation selection strategy
func (e *MutatorEngine) SetStrategy(strategy MutationStrategy) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.strategy = strategy
}

// SetProbability sets the mutation probability
func (e *MutatorEngine) SetProbability(p float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	e.probability = p
}

// Mutate applies a single random mutation to the input
func (e *MutatorEngine) Mutate(input []byte) *MutationResult {
	e.mu.RLock()
	probability := e.probability
	strategy := e.strategy
	e.mu.RUnlock()

	result := &MutationResult{
		Original: input,
		Mutated:  input,
	}

	if !strategy.ShouldMutate(probability) {
		result.Success = true
		return result
	}

	mutators := e.getActiveMutators()
	if len(mutators) == 0 {
		result.Success = true
		return result
	}

	mutator := strategy.SelectMutator(mutators)
	if mutator == nil {
		result.Success = true
		return result
	}

	mutated, err := mutator.MutateWithType(input, TypeUnknown)
	if err != nil {
		result.Error = err
		result.Success = false
		return result
	}

	result.Mutated = mutated
	result.MutatorName = mutator.Name()
	result.Success = true

	return result
}

// MutateN applies N random mutations to the input
func (e *MutatorEngine) MutateN(input []byte, n int) *MutationResult {
	if n <= 0 {
		return &MutationResult{
			Original: input,
			Mutated:  input,
			Success:  true,
		}
	}

	current := input
	var lastMutator string

	for i := 0; i < n; i++ {
		result := e.Mutate(current)
		if result.Error != nil {
			return result
		}
		current = result.Mutated
		if result.MutatorName != "" {
			lastMutator = result.MutatorName
		}
	}

	return &MutationResult{
		Original:    input,
		Mutated:     current,
		MutatorName: lastMutator,
		Success:     true,
	}
}

// MutateChain applies a chain of mutations up to maxMutations
func (e *MutatorEngine) MutateChain(input []byte) *MutationResult {
	e.mu.RLock()
	maxMutations := e.maxMutations
	e.mu.RUnlock()

	if maxMutations <= 0 {
		maxMutations = 1
	}

	n := secureRandomInt(maxMutations) + 1
	return e.MutateN(input, n)
}

// getActiveMutators returns mutators to use based on configuration
func (e *MutatorEngine) getActiveMutators() []Mutator {
	if len(e.defaultMutators) == 0 {
		return e.registry.All()
	}

	var mutators []Mutator
	for _, name := range e.defaultMutators {
		if m, exists := e.registry.Get(name); exists {
			mutators = append(mutators, m)
		}
	}
	return mutators
}

// Registry returns the underlying registry
func (e *MutatorEngine) Registry() *Registry {
	return e.registry
}

// --- Helper functions ---

// secureRandomInt generates a cryptographically secure random number in [0, max)
func secureRandomInt(max int) int {
	if max <= 0 {
		return 0
	}

	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}

	n := binary.BigEndian.Uint64(b[:])
	return int(n % uint64(max))
}

// secureRandomBytes generates cryptographically secure random bytes
func secureRandomBytes(n int) []byte {
	b := make([]byte, n)
	rand.Read(b)
	return b
}
