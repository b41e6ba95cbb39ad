// Package quantity implements an arbitrary-precision non-negative integer
// suitable for base-token and share-token amounts. It never silently
// overflows or goes negative: every mutating method returns an error
// instead.
package quantity

import (
	"errors"
	"math/big"

	"github.com/remyoudompheng/bigfft"
)

// ErrInvalidAmount is returned when an operation would produce a negative
// quantity.
var ErrInvalidAmount = errors.New("quantity: invalid amount")

// bigMulThreshold is the operand bit-length above which multiplication is
// routed through bigfft's FFT-based multiplier instead of big.Int's
// schoolbook/Karatsuba implementation. Share-price arithmetic multiplies a
// share count by a base-token amount; both can be large enough that the
// product benefits from FFT multiplication well before it threatens to
// overflow any fixed-width register, which is the reason this type exists
// at all instead of a uint128.
const bigMulThreshold = 1 << 12

// Quantity is a non-negative arbitrary precision integer.
type Quantity struct {
	inner big.Int
}

// NewFromUint64 constructs a Quantity from a uint64.
func NewFromUint64(v uint64) *Quantity {
	q := &Quantity{}
	q.inner.SetUint64(v)
	return q
}

// NewFromBigInt constructs a Quantity from a big.Int, failing if it is
// negative.
func NewFromBigInt(v *big.Int) (*Quantity, error) {
	if v.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	q := &Quantity{}
	q.inner.Set(v)
	return q, nil
}

// Clone returns a copy of q.
func (q *Quantity) Clone() *Quantity {
	c := &Quantity{}
	c.inner.Set(&q.inner)
	return c
}

// IsZero returns true iff q is zero.
func (q *Quantity) IsZero() bool {
	return q.inner.Sign() == 0
}

// Sign returns -1, 0 or +1. Quantities are never negative in practice, but
// the sign check is kept for symmetry with big.Int and as a cheap assertion
// surface.
func (q *Quantity) Sign() int {
	return q.inner.Sign()
}

// Cmp compares q against other.
func (q *Quantity) Cmp(other *Quantity) int {
	return q.inner.Cmp(&other.inner)
}

// BigInt returns the underlying big.Int. The caller must not mutate it.
func (q *Quantity) BigInt() *big.Int {
	return &q.inner
}

// String implements fmt.Stringer.
func (q *Quantity) String() string {
	return q.inner.String()
}

// Add sets q = q + other.
func (q *Quantity) Add(other *Quantity) error {
	q.inner.Add(&q.inner, &other.inner)
	return nil
}

// Sub sets q = q - other. Fails if the result would be negative, leaving q
// untouched.
func (q *Quantity) Sub(other *Quantity) error {
	if q.inner.Cmp(&other.inner) < 0 {
		return ErrInvalidAmount
	}
	q.inner.Sub(&q.inner, &other.inner)
	return nil
}

// MulUint64 returns q * factor.
func (q *Quantity) MulUint64(factor uint64) *Quantity {
	result := new(big.Int).Mul(&q.inner, new(big.Int).SetUint64(factor))
	return &Quantity{inner: *result}
}

// mul multiplies two big.Int operands, routing through bigfft's FFT
// multiplier once either operand is large enough for it to pay off.
func mul(x, y *big.Int) *big.Int {
	if x.BitLen() > bigMulThreshold || y.BitLen() > bigMulThreshold {
		return bigfft.Mul(x, y)
	}
	return new(big.Int).Mul(x, y)
}

// MulFracFloor computes floor(q * num / den). den must be non-zero.
func MulFracFloor(q, num, den *Quantity) (*Quantity, error) {
	if den.IsZero() {
		return nil, ErrEmptyPool
	}
	prod := mul(&q.inner, &num.inner)
	result := new(big.Int).Quo(prod, &den.inner)
	return &Quantity{inner: *result}, nil
}

// MulFracCeil computes ceil(q * num / den). den must be non-zero.
func MulFracCeil(q, num, den *Quantity) (*Quantity, error) {
	if den.IsZero() {
		return nil, ErrEmptyPool
	}
	prod := mul(&q.inner, &num.inner)
	// ceil(a/b) == floor((a + b - 1) / b) for non-negative a, b.
	numerator := new(big.Int).Add(prod, new(big.Int).Sub(&den.inner, big.NewInt(1)))
	result := new(big.Int).Quo(numerator, &den.inner)
	return &Quantity{inner: *result}, nil
}

// ErrEmptyPool is returned by the Mul*Frac* helpers when the denominator is
// zero.
var ErrEmptyPool = errors.New("quantity: empty pool (zero denominator)")

// Min returns the smaller of a and b.
func Min(a, b *Quantity) *Quantity {
	if a.Cmp(b) <= 0 {
		return a.Clone()
	}
	return b.Clone()
}

// Max returns the larger of a and b.
func Max(a, b *Quantity) *Quantity {
	if a.Cmp(b) >= 0 {
		return a.Clone()
	}
	return b.Clone()
}
