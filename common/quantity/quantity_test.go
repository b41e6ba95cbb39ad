package quantity

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddSub(t *testing.T) {
	a := NewFromUint64(100)
	require.NoError(t, a.Add(NewFromUint64(50)), "Add")
	require.EqualValues(t, "150", a.String())

	require.NoError(t, a.Sub(NewFromUint64(150)), "Sub to zero")
	require.True(t, a.IsZero())

	require.Error(t, a.Sub(NewFromUint64(1)), "Sub below zero must fail")
}

func TestMulFracFloorCeil(t *testing.T) {
	q := NewFromUint64(10)
	num := NewFromUint64(3)
	den := NewFromUint64(7)

	floor, err := MulFracFloor(q, num, den)
	require.NoError(t, err, "MulFracFloor")
	require.EqualValues(t, "4", floor.String())

	ceil, err := MulFracCeil(q, num, den)
	require.NoError(t, err, "MulFracCeil")
	require.EqualValues(t, "5", ceil.String())
}

func TestMulFracZeroDenominator(t *testing.T) {
	q := NewFromUint64(10)
	_, err := MulFracFloor(q, NewFromUint64(1), NewFromUint64(0))
	require.ErrorIs(t, err, ErrEmptyPool)
}

func TestMulFracLargeOperands(t *testing.T) {
	// Large enough to route through bigfft rather than big.Int's native
	// multiplier; the result must still be exact.
	big1 := new(big.Int).Lsh(big.NewInt(1), bigMulThreshold+64)
	q, err := NewFromBigInt(big1)
	require.NoError(t, err)

	result, err := MulFracFloor(q, NewFromUint64(3), NewFromUint64(1))
	require.NoError(t, err)

	want := new(big.Int).Mul(big1, big.NewInt(3))
	require.Zero(t, result.BigInt().Cmp(want))
}

func TestMinMax(t *testing.T) {
	a, b := NewFromUint64(5), NewFromUint64(9)
	require.EqualValues(t, "5", Min(a, b).String())
	require.EqualValues(t, "9", Max(a, b).String())
}

func TestNewFromBigIntRejectsNegative(t *testing.T) {
	_, err := NewFromBigInt(big.NewInt(-1))
	require.Error(t, err)
}
