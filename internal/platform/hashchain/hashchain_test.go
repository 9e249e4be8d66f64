package hashchain

import "testing"

func TestHash_Deterministic(t *testing.T) {
	type payload struct {
		Sequence int    `json:"sequence"`
		Data     string `json:"data"`
	}

	h1, err := Hash(payload{Sequence: 1, Data: "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	h2, err := Hash(payload{Sequence: 1, Data: "a"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h1 != h2 {
		t.Errorf("expected identical hashes, got %s and %s", h1, h2)
	}
	if len(h1) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(h1))
	}
}

func TestHash_SensitiveToChanges(t *testing.T) {
	type payload struct {
		Sequence int `json:"sequence"`
	}

	h1, _ := Hash(payload{Sequence: 1})
	h2, _ := Hash(payload{Sequence: 2})
	if h1 == h2 {
		t.Error("expected different inputs to produce different hashes")
	}
}

func TestHashString_KnownVector(t *testing.T) {
	// SHA-256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := HashString("abc"); got != want {
		t.Errorf("HashString(abc) = %s, want %s", got, want)
	}
}

func TestSign_IsSecondPass(t *testing.T) {
	h := HashString("entry")
	if Sign(h) != HashString(h) {
		t.Error("signature must be the SHA-256 of the entry hash")
	}
}
