// Package snapshot produces encrypted, portable exports of a pool.Pool's
// accounting state for off-host backup, using a deoxys-II AEAD to protect
// runtime state at rest.
package snapshot

import (
	"crypto/rand"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/oasisprotocol/deoxysii"

	"github.com/stakepool/liquidcore/pool"
)

// Envelope is the on-disk/on-wire encrypted snapshot format: a random
// nonce plus the deoxysii-sealed, cbor-encoded pool.Pool.
type Envelope struct {
	Nonce      [deoxysii.NonceSize]byte `cbor:"nonce"`
	Ciphertext []byte                   `cbor:"ciphertext"`
}

// payload is the serializable wrapper around a pool.Pool: ValidatorPool is
// excluded from Pool's own cbor tags (it's a B-tree, not a serializable
// value), so its contents travel alongside and get stitched back on Open —
// the same split storage/pooldb uses for its own on-disk snapshot.
type payload struct {
	Pool       *pool.Pool        `cbor:"pool"`
	Validators []*pool.Validator `cbor:"validators"`
}

// Seal encrypts p's current state under key, returning a portable
// Envelope. additionalData is authenticated but not encrypted, and Open
// must be given the same bytes; stakepoolctl's snapshot commands pass the
// data directory path.
func Seal(p *pool.Pool, key [deoxysii.KeySize]byte, additionalData []byte) (*Envelope, error) {
	vs, err := p.ValidatorPool.All()
	if err != nil {
		return nil, err
	}
	plaintext, err := cbor.Marshal(&payload{Pool: p, Validators: vs})
	if err != nil {
		return nil, err
	}

	aead, err := deoxysii.New(key[:])
	if err != nil {
		return nil, err
	}

	var nonce [deoxysii.NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}

	ciphertext := aead.Seal(nil, nonce[:], plaintext, additionalData)
	return &Envelope{Nonce: nonce, Ciphertext: ciphertext}, nil
}

// Open decrypts an Envelope produced by Seal, verifying additionalData
// matches what it was sealed with.
func Open(env *Envelope, key [deoxysii.KeySize]byte, additionalData []byte) (*pool.Pool, error) {
	aead, err := deoxysii.New(key[:])
	if err != nil {
		return nil, err
	}

	plaintext, err := aead.Open(nil, env.Nonce[:], env.Ciphertext, additionalData)
	if err != nil {
		return nil, fmt.Errorf("snapshot: open: %w", err)
	}

	var pl payload
	if err := cbor.Unmarshal(plaintext, &pl); err != nil {
		return nil, err
	}
	pl.Pool.ValidatorPool = pool.NewValidatorPoolFromSnapshot(pl.Validators)
	pl.Pool.EnsureBroker()
	return pl.Pool, nil
}
