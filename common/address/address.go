// Package address implements the human-readable account/validator id codec
// used throughout the engine. Internally an id is a fixed-size byte array
// (a public key or an opaque operator-assigned identifier) so it can be
// used directly as a map key; this package adds a stable, typo-resistant
// text encoding on top, via bech32.
package address

import (
	"errors"

	"github.com/btcsuite/btcutil/bech32"
)

// HRP is the human-readable part prefixed to every encoded address.
const HRP = "stake"

// Size is the length in bytes of an Address.
const Size = 20

// ErrMalformed is returned when a string fails to decode as a valid
// address.
var ErrMalformed = errors.New("address: malformed")

// Address is an opaque account or validator identifier, comparable and
// usable directly as a map key.
type Address [Size]byte

// FromBytes truncates/left-pads raw into an Address. Used when deriving an
// id from a public key hash.
func FromBytes(raw []byte) Address {
	if len(raw) > Size {
		raw = raw[len(raw)-Size:]
	}
	var a Address
	copy(a[Size-len(raw):], raw)
	return a
}

// Bytes returns a's raw byte representation.
func (a Address) Bytes() []byte {
	return a[:]
}

// Encode renders a to its bech32 text form.
func Encode(a Address) (string, error) {
	conv, err := bech32.ConvertBits(a.Bytes(), 8, 5, true)
	if err != nil {
		return "", err
	}
	return bech32.Encode(HRP, conv)
}

// Decode parses the bech32 text form produced by Encode.
func Decode(s string) (Address, error) {
	hrp, data, err := bech32.Decode(s)
	if err != nil {
		return Address{}, ErrMalformed
	}
	if hrp != HRP {
		return Address{}, ErrMalformed
	}
	raw, err := bech32.ConvertBits(data, 5, 8, false)
	if err != nil {
		return Address{}, ErrMalformed
	}
	if len(raw) != Size {
		return Address{}, ErrMalformed
	}
	return FromBytes(raw), nil
}

// String implements fmt.Stringer, ignoring encode errors by falling back to
// an empty string (callers that need the error should use Encode).
func (a Address) String() string {
	s, err := Encode(a)
	if err != nil {
		return ""
	}
	return s
}

// IsZero reports whether a is the zero address.
func (a Address) IsZero() bool {
	return a == Address{}
}
