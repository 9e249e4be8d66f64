// Package hashchain provides the cryptographic primitives behind the
// tamper-evident fiscal ledgers: canonical JSON hashing and a signature
// derivation. The signature is a second SHA-256 pass over the entry hash,
// a stand-in for a real asymmetric signature. It provides tamper
// detection, not proof of origin; a production deployment would replace
// Sign with an Ed25519 key held in an HSM or KMS.
package hashchain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Genesis is the previous-hash sentinel carried by the first entry of a chain.
const Genesis = "GENESIS"

// Hash returns the hex-encoded SHA-256 of the canonical JSON encoding of v.
// Canonical here means encoding/json's deterministic output: struct fields
// in declaration order, map keys sorted. Callers hash fixed struct shapes so
// the same value always produces the same digest.
func Hash(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal for hashing: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// HashString returns the hex-encoded SHA-256 of the raw string s.
func HashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Sign derives an entry signature from its hash.
func Sign(currentHash string) string {
	return HashString(currentHash)
}
