// Package hash computes blake2b-256 content hashes of byte strings. No
// persisted record in this module carries such a hash.
package hash

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// Size is the length in bytes of a Hash.
const Size = 32

// Hash is a blake2b-256 digest.
type Hash [Size]byte

// Of hashes the given bytes.
func Of(data []byte) Hash {
	return blake2b.Sum256(data)
}

// String returns the hex encoding of h.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == Hash{}
}
