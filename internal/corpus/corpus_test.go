package corpus

import (
	"testing"

	"github.com/tokendisco/tokendiscovery/internal/coverage"
)

func TestAddBytesRejectsDuplicateHash(t *testing.T) {
	c := New(t.TempDir())

	if !c.AddBytes([]byte("first")) {
		t.Fatal("expected first insert to succeed")
	}
	if c.AddBytes([]byte("first")) {
		t.Fatal("expected duplicate hash to be rejected")
	}
	if c.Size() != 1 {
		t.Fatalf("Size() = %d, want 1", c.Size())
	}
}

func TestLastNReturnsNewestFirst(t *testing.T) {
	c := New(t.TempDir())
	c.AddBytes([]byte("oldest"))
	c.AddBytes([]byte("middle"))
	c.AddBytes([]byte("newest"))

	got := c.LastN(2)
	if len(got) != 2 {
		t.Fatalf("LastN(2) returned %d entries, want 2", len(got))
	}
	if string(got[0]) != "newest" || string(got[1]) != "middle" {
		t.Fatalf("LastN(2) = %q, want [newest middle]", got)
	}
}

func TestMinimizeFavorsHighestCoverageAndDropsDeadWeight(t *testing.T) {
	c := New(t.TempDir())
	c.Add(&Entry{Hash: "seed", Data: []byte("seed"), IsSeed: true})
	c.Add(&Entry{Hash: "dead", Data: []byte("dead"), Coverage: coverage.CoverageStats{EdgesCovered: 0}})
	c.Add(&Entry{Hash: "best", Data: []byte("best"), Coverage: coverage.CoverageStats{EdgesCovered: 9}})

	removed := c.Minimize()
	if removed != 1 {
		t.Fatalf("Minimize() removed %d, want 1", removed)
	}
	if c.Size() != 2 {
		t.Fatalf("Size() after Minimize = %d, want 2 (seed kept despite no coverage)", c.Size())
	}

	favored := c.GetFavoredBytes()
	if len(favored) != 1 || string(favored[0]) != "best" {
		t.Fatalf("GetFavoredBytes() = %q, want [best]", favored)
	}
}

func TestAddWithCoveragePopulatesEntryForMinimize(t *testing.T) {
	c := New(t.TempDir())
	stats := coverage.CoverageStats{EdgesCovered: 3}
	if !c.AddWithCoverage([]byte("input"), stats) {
		t.Fatal("expected AddWithCoverage to accept a new entry")
	}

	entries := c.GetEntries()
	if len(entries) != 1 || entries[0].Coverage.EdgesCovered != 3 {
		t.Fatalf("entry coverage = %+v, want EdgesCovered=3", entries[0].Coverage)
	}
}
