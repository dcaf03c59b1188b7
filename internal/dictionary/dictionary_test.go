package dictionary

import "testing"

func TestAddRejectsDuplicate(t *testing.T) {
	d := New()
	idx1, added1 := d.Add([]byte("alpha"))
	if !added1 {
		t.Fatalf("expected first add to succeed")
	}
	idx2, added2 := d.Add([]byte("alpha"))
	if added2 {
		t.Fatalf("expected duplicate add to be rejected")
	}
	if idx1 != idx2 {
		t.Fatalf("expected duplicate lookup to be a no-op, not a new index")
	}
	if d.Len() != 1 {
		t.Fatalf("expected dictionary length 1, got %d", d.Len())
	}
}

func TestAddFillsUpToCapacity(t *testing.T) {
	d := NewWithConfig(&Config{MaxTokens: 2})
	if _, ok := d.Add([]byte("a")); !ok {
		t.Fatalf("expected first add to succeed")
	}
	if _, ok := d.Add([]byte("b")); !ok {
		t.Fatalf("expected second add to succeed")
	}
	if d.Len() != 2 {
		t.Fatalf("expected dictionary length 2, got %d", d.Len())
	}
}

func TestEvictionPrefersLowestSuccessRate(t *testing.T) {
	d := NewWithConfig(&Config{MaxTokens: 2})
	idxA, _ := d.Add([]byte("a"))
	idxB, _ := d.Add([]byte("b"))

	// a: 11 uses, 2 successes (stats start at 1/1) -> rate ~0.18
	for i := 0; i < 9; i++ {
		d.UpdateStats(idxA, false)
	}
	d.UpdateStats(idxA, true)

	// b: 11 uses, 10 successes -> rate ~0.91
	for i := 0; i < 9; i++ {
		d.UpdateStats(idxB, true)
	}
	d.UpdateStats(idxB, false)

	if _, ok := d.Add([]byte("c")); !ok {
		t.Fatalf("expected eviction to admit a new token once the dictionary has real usage data")
	}

	tokens := d.Tokens()
	found := map[string]bool{}
	for _, tok := range tokens {
		found[string(tok)] = true
	}
	if found["a"] {
		t.Fatalf("expected the lowest-success-rate token to be evicted, but %q survived", "a")
	}
	if !found["b"] || !found["c"] {
		t.Fatalf("expected b and c to survive eviction, got %v", tokens)
	}
}

func TestProtectedIndexIsNeverEvicted(t *testing.T) {
	d := NewWithConfig(&Config{MaxTokens: 2})
	idxA, _ := d.Add([]byte("a"))
	_, _ = d.Add([]byte("b"))

	// Drive a's success rate to the worst in the dictionary.
	for i := 0; i < 10; i++ {
		d.UpdateStats(idxA, false)
	}

	// Protection skips a, so the worst unprotected token (b) is evicted
	// in its place.
	d.ProtectIndex(idxA)
	if _, ok := d.Add([]byte("c")); !ok {
		t.Fatalf("expected eviction to fall back to the worst unprotected token")
	}
	found := map[string]bool{}
	for _, tok := range d.Tokens() {
		found[string(tok)] = true
	}
	if !found["a"] || found["b"] || !found["c"] {
		t.Fatalf("expected protected a to survive and b to be evicted, got %v", d.Tokens())
	}
	d.Unprotect()

	if _, ok := d.Add([]byte("d")); !ok {
		t.Fatalf("expected eviction to succeed once the protection is lifted")
	}
}

func TestFreshTokensEvictLowestIndexFirst(t *testing.T) {
	d := NewWithConfig(&Config{MaxTokens: 2})
	_, _ = d.Add([]byte("a"))
	_, _ = d.Add([]byte("b"))

	// Neither token has been used past its initial 1/1 ratio: they tie,
	// so the lowest index (a) is the one evicted.
	idx, ok := d.Add([]byte("c"))
	if !ok {
		t.Fatalf("expected eviction to admit c when every token is still at its fresh success rate")
	}
	if idx != 0 {
		t.Fatalf("expected c to replace the token at index 0, got index %d", idx)
	}
}

func TestUpdateStatsIgnoresOutOfRangeIndex(t *testing.T) {
	d := New()
	d.UpdateStats(99, true) // must not panic
}
