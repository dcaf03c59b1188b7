package shmtoken

import (
	"bytes"
	"testing"
)

func TestWriteThenReadRoundTrip(t *testing.T) {
	name := NewName("tokendiscovery-test")
	ch, err := GetOrCreate(name, 16, 64)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	defer ch.Close()

	if !ch.IsOwner() {
		t.Fatalf("expected the creating call to become the owner")
	}

	tokens := [][]byte{[]byte("alpha"), []byte("beta"), []byte("MAGIC")}
	ch.WriteTokens(tokens)

	got, ok := ch.ReadTokens()
	if !ok {
		t.Fatalf("expected ReadTokens to succeed after a write")
	}
	if len(got) != len(tokens) {
		t.Fatalf("expected %d tokens, got %d", len(tokens), len(got))
	}
	for i, tok := range tokens {
		if !bytes.Equal(got[i], tok) {
			t.Fatalf("token %d: expected %q, got %q", i, tok, got[i])
		}
	}
}

func TestReadWithoutNewPublicationReturnsFalse(t *testing.T) {
	name := NewName("tokendiscovery-test")
	ch, err := GetOrCreate(name, 16, 64)
	if err != nil {
		t.Fatalf("GetOrCreate failed: %v", err)
	}
	defer ch.Close()

	ch.WriteTokens([][]byte{[]byte("alpha")})

	if _, ok := ch.ReadTokens(); !ok {
		t.Fatalf("expected the first read after a write to succeed")
	}
	if _, ok := ch.ReadTokens(); ok {
		t.Fatalf("expected a repeat read of the same publication to return ok=false")
	}
}

func TestSecondOpenerIsNotOwner(t *testing.T) {
	name := NewName("tokendiscovery-test")
	writer, err := GetOrCreate(name, 16, 64)
	if err != nil {
		t.Fatalf("GetOrCreate (writer) failed: %v", err)
	}
	defer writer.Close()

	reader, err := GetOrCreate(name, 16, 64)
	if err != nil {
		t.Fatalf("GetOrCreate (reader) failed: %v", err)
	}
	defer reader.Close()

	if reader.IsOwner() {
		t.Fatalf("expected the second opener of an existing region not to be the owner")
	}

	writer.WriteTokens([][]byte{[]byte("shared")})
	got, ok := reader.ReadTokens()
	if !ok || len(got) != 1 || string(got[0]) != "shared" {
		t.Fatalf("expected the reader to observe the writer's publication, got %v ok=%v", got, ok)
	}
}
