// Package scheduler implements the token-preserving mutation scheduler:
// a stacked-mutation round that, a fraction of the time, reserves its
// final step for a token operator so havoc mutations applied earlier in
// the round can't clobber the token write.
package scheduler

import (
	"crypto/rand"
	"encoding/binary"
	"strings"

	"github.com/tokendisco/tokendiscovery/internal/mutator"
)

// DefaultMaxStackPow bounds the stacked-mutation iteration count: a
// round draws k = 2^(1+U[0,MaxStackPow]) base iterations.
const DefaultMaxStackPow = 4

// UseTokenProbability is the chance a round reserves its final mutation
// for the token set (§4.7).
const UseTokenProbability = 0.30

// Scheduler stacks mutations for one round, classifying the pool into a
// havoc set (operators whose Name does not contain "Token") and a token
// set (operators whose Name contains "Token").
type Scheduler struct {
	havoc       []mutator.Mutator
	token       []mutator.Mutator
	all         []mutator.Mutator
	maxStackPow int
}

// New classifies mutators into the token and havoc sets and returns a
// ready Scheduler. maxStackPow <= 0 falls back to DefaultMaxStackPow.
func New(mutators []mutator.Mutator, maxStackPow int) *Scheduler {
	if maxStackPow <= 0 {
		maxStackPow = DefaultMaxStackPow
	}
	s := &Scheduler{
		all:         append([]mutator.Mutator(nil), mutators...),
		maxStackPow: maxStackPow,
	}
	for _, m := range mutators {
		if strings.Contains(m.Name(), "Token") {
			s.token = append(s.token, m)
		} else {
			s.havoc = append(s.havoc, m)
		}
	}
	return s
}

// Result carries the mutated bytes from one stacked round, plus the
// token operator used for its final mutation (if the round reserved
// one) so the caller can forward the post-execution outcome to it.
type Result struct {
	Output    []byte
	TokenUsed mutator.TokenAware
	UsedToken bool
}

// MutateStacked runs one stacked-mutation round over input per §4.7:
// draw a base iteration count, decide whether to reserve a final token
// mutation, apply the body from the appropriate pool, then (if
// reserved) apply one token mutation last.
func (s *Scheduler) MutateStacked(input []byte) (Result, error) {
	k := 1 << uint(1+secureRandomIntN(s.maxStackPow+1))

	useToken := false
	if len(s.token) > 0 && secureRandomFloat() < UseTokenProbability {
		useToken = true
		k = k / 2
		if k < 1 {
			k = 1
		}
	}

	pool := s.all
	if useToken {
		pool = s.havoc
	}

	current := input
	if len(pool) > 0 {
		for i := 0; i < k; i++ {
			m := pool[secureRandomIntN(len(pool))]
			out, err := m.Mutate(current)
			if err != nil {
				return Result{}, err
			}
			current = out
		}
	}

	result := Result{Output: current}
	if useToken {
		tm := s.token[secureRandomIntN(len(s.token))]
		out, err := tm.Mutate(current)
		if err != nil {
			return Result{}, err
		}
		current = out
		result.Output = current
		if ta, ok := tm.(mutator.TokenAware); ok {
			result.TokenUsed = ta
			result.UsedToken = true
		}
	}

	return result, nil
}

// secureRandomIntN returns a cryptographically random int in [0, n).
// n <= 0 always returns 0.
func secureRandomIntN(n int) int {
	if n <= 0 {
		return 0
	}
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return 0
	}
	v := binary.BigEndian.Uint64(b[:])
	return int(v % uint64(n))
}

// secureRandomFloat returns a cryptographically random float in [0, 1).
func secureRandomFloat() float64 {
	return float64(secureRandomIntN(1_000_000)) / 1_000_000.0
}
