package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stakepool/liquidcore/common/quantity"
)

func TestValidatorPoolAddRemove(t *testing.T) {
	vp := NewValidatorPool()
	v1 := NewValidator(testAddr(1), 1)
	require.NoError(t, vp.Add(v1))
	require.ErrorIs(t, vp.Add(v1), ErrValidatorAlreadyExists)

	v1.StakedAmount = quantity.NewFromUint64(10)
	require.ErrorIs(t, vp.Remove(testAddr(1)), ErrValidatorInUse)
	v1.StakedAmount = quantity.NewFromUint64(0)
	v1.UnstakedAmount = quantity.NewFromUint64(0)
	require.NoError(t, vp.Remove(testAddr(1)))
	require.Equal(t, 0, vp.Len())
}

func TestValidatorPoolOrderedIteration(t *testing.T) {
	vp := NewValidatorPool()
	require.NoError(t, vp.Add(NewValidator(testAddr(3), 1)))
	require.NoError(t, vp.Add(NewValidator(testAddr(1), 1)))
	require.NoError(t, vp.Add(NewValidator(testAddr(2), 1)))

	all, err := vp.All()
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, testAddr(1), all[0].AccountID)
	require.Equal(t, testAddr(2), all[1].AccountID)
	require.Equal(t, testAddr(3), all[2].AccountID)
}

func TestValidatorPoolSelectStakeCandidateBasicRoundTrip(t *testing.T) {
	vp := NewValidatorPool()
	require.NoError(t, vp.Add(NewValidator(testAddr(1), 1)))
	require.NoError(t, vp.Add(NewValidator(testAddr(2), 1)))

	total := quantity.NewFromUint64(100) // target(v) = 50 each
	v, amount, err := vp.SelectStakeCandidate(quantity.NewFromUint64(100), total, 0)
	require.NoError(t, err)
	require.NotNil(t, v)
	require.EqualValues(t, "50", amount.String())
}

func TestValidatorPoolSelectStakeCandidateSkipsPendingRelease(t *testing.T) {
	vp := NewValidatorPool()
	v1 := NewValidator(testAddr(1), 1)
	v1.UnstakeFiredEpoch = 0
	require.NoError(t, vp.Add(v1))
	v2 := NewValidator(testAddr(2), 1)
	require.NoError(t, vp.Add(v2))

	total := quantity.NewFromUint64(100)
	candidate, _, err := vp.SelectStakeCandidate(quantity.NewFromUint64(100), total, 2)
	require.NoError(t, err)
	require.Equal(t, testAddr(2), candidate.AccountID)
}

func TestValidatorPoolSelectUnstakeCandidatePrefersSurplus(t *testing.T) {
	vp := NewValidatorPool()
	v1 := NewValidator(testAddr(1), 1)
	v1.StakedAmount = quantity.NewFromUint64(80)
	require.NoError(t, vp.Add(v1))
	v2 := NewValidator(testAddr(2), 1)
	v2.StakedAmount = quantity.NewFromUint64(20)
	require.NoError(t, vp.Add(v2))

	total := quantity.NewFromUint64(100) // target(v) = 50 each
	candidate, amount, err := vp.SelectUnstakeCandidate(quantity.NewFromUint64(100), total, 10)
	require.NoError(t, err)
	require.Equal(t, testAddr(1), candidate.AccountID)
	// surplus = 80-50=30, scaled by UNSTAKE_FACTOR=2 => 60, clamped by
	// staked_amount=80 and requested=100 => 60.
	require.EqualValues(t, "60", amount.String())
}

func TestValidatorPoolSelectUnstakeCandidateHonorsBaseStakeFloor(t *testing.T) {
	vp := NewValidatorPool()
	v1 := NewValidator(testAddr(1), 1)
	v1.StakedAmount = quantity.NewFromUint64(80)
	v1.BaseStakeAmount = quantity.NewFromUint64(80)
	require.NoError(t, vp.Add(v1))
	v2 := NewValidator(testAddr(2), 1)
	v2.StakedAmount = quantity.NewFromUint64(20)
	require.NoError(t, vp.Add(v2))

	// Without v1's floor the pro-rata target would be 50/50 and v1 (at 80)
	// would look surplus. With sumBase=80 the remainder above floors is
	// 100-80=20, split evenly => target(v1)=80+10=90, target(v2)=0+10=10.
	// v1 is under its target and v2 is over, so v2 must be the unstake
	// candidate despite holding less stake.
	total := quantity.NewFromUint64(100)
	candidate, amount, err := vp.SelectUnstakeCandidate(quantity.NewFromUint64(100), total, 10)
	require.NoError(t, err)
	require.Equal(t, testAddr(2), candidate.AccountID)
	// surplus = 20-10=10, scaled by UNSTAKE_FACTOR=2 => 20, clamped by
	// staked_amount=20 and requested=100 => 20.
	require.EqualValues(t, "20", amount.String())
}

func TestReleaseHorizonDoublesWhenUndersupplied(t *testing.T) {
	vp := NewValidatorPool()
	v1 := NewValidator(testAddr(1), 1)
	v1.StakedAmount = quantity.NewFromUint64(10)
	require.NoError(t, vp.Add(v1))

	require.EqualValues(t, NumEpochsToUnlock, vp.ReleaseHorizon(quantity.NewFromUint64(5), 0))
	require.EqualValues(t, NumEpochsToUnlock*2, vp.ReleaseHorizon(quantity.NewFromUint64(50), 0))
}

func TestReleaseHorizonTrivialWhenNothingStaked(t *testing.T) {
	vp := NewValidatorPool()
	require.EqualValues(t, NumEpochsToUnlock, vp.ReleaseHorizon(quantity.NewFromUint64(5), 0))
}
