package scheduler

import (
	"testing"

	"github.com/tokendisco/tokendiscovery/internal/dictionary"
	"github.com/tokendisco/tokendiscovery/internal/mutator"
	"github.com/tokendisco/tokendiscovery/pkg/types"
)

// noopHavoc is a minimal havoc-set stand-in that always returns its
// input unchanged, so tests can focus on scheduling behavior rather
// than byte-level mutation effects.
type noopHavoc struct{ name string }

func (n noopHavoc) Name() string                                        { return n.name }
func (n noopHavoc) Description() string                                 { return "no-op" }
func (n noopHavoc) Mutate(input []byte) ([]byte, error)                  { return input, nil }
func (n noopHavoc) Type() types.MutationType                            { return types.BitFlip }
func (n noopHavoc) MutateWithType(input []byte, _ mutator.InputType) ([]byte, error) {
	return input, nil
}

func TestClassifiesTokenAndHavocSetsByName(t *testing.T) {
	d := dictionary.New()
	d.Add([]byte("MAGIC"))

	insert := &mutator.TokenInsert{Dict: d, MaxSize: 1024}
	havoc := noopHavoc{name: "bitflip/1"}

	s := New([]mutator.Mutator{insert, havoc}, DefaultMaxStackPow)
	if len(s.token) != 1 {
		t.Fatalf("expected exactly one token-set mutator, got %d", len(s.token))
	}
	if len(s.havoc) != 1 {
		t.Fatalf("expected exactly one havoc-set mutator, got %d", len(s.havoc))
	}
}

func TestMutateStackedNeverUsesTokenWhenTokenSetEmpty(t *testing.T) {
	havoc := noopHavoc{name: "bitflip/1"}
	s := New([]mutator.Mutator{havoc}, DefaultMaxStackPow)

	for i := 0; i < 50; i++ {
		res, err := s.MutateStacked([]byte("hello"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.UsedToken {
			t.Fatalf("expected UsedToken=false: no token mutator was registered")
		}
	}
}

func TestMutateStackedReportsTokenUseForPostExec(t *testing.T) {
	d := dictionary.New()
	d.Add([]byte("MAGIC"))
	insert := &mutator.TokenInsert{Dict: d, MaxSize: 1024}
	havoc := noopHavoc{name: "bitflip/1"}

	s := New([]mutator.Mutator{insert, havoc}, DefaultMaxStackPow)

	// Run enough rounds that, at a 30% per-round chance, at least one
	// round reserves a token mutation.
	sawToken := false
	for i := 0; i < 200 && !sawToken; i++ {
		res, err := s.MutateStacked([]byte("hello"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.UsedToken {
			sawToken = true
			if res.TokenUsed == nil {
				t.Fatalf("expected a non-nil TokenAware when UsedToken is true")
			}
			res.TokenUsed.PostExec(true)
		}
	}
	if !sawToken {
		t.Fatalf("expected at least one of 200 rounds to use the token set")
	}
}
