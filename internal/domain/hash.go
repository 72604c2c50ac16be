package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash256 is a 32-byte ledger hash. It is used both for carrier transaction
// identifiers and for offer content hashes; the two are independent values
// that happen to share a representation.
type Hash256 [32]byte

// Hash256FromHex parses a 64-character hex string into a Hash256.
func Hash256FromHex(s string) (Hash256, error) {
	var h Hash256
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash256{}, fmt.Errorf("domain: parse hash %q: %w", s, err)
	}
	if len(b) != len(h) {
		return Hash256{}, fmt.Errorf("domain: hash %q: expected 32 bytes, got %d", s, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// DoubleSHA256 computes the ledger's content-addressing hash over data.
func DoubleSHA256(data []byte) Hash256 {
	first := sha256.Sum256(data)
	return sha256.Sum256(first[:])
}

// Hex returns the lowercase hex encoding of the hash.
func (h Hash256) Hex() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether the hash is all zero bytes.
func (h Hash256) IsZero() bool {
	return h == Hash256{}
}

func (h Hash256) String() string {
	return h.Hex()
}
