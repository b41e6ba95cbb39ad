package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stakepool/liquidcore/common/quantity"
)

func fullBudget() Budget {
	return Budget{Local: 1_000_000, External: 1_000_000, Callback: 1_000_000}
}

// TestCleanupNetsOpposingRequests exercises the netting step of cleanup:
// a round with both pending stake and unstake requests cancels out the
// smaller against the larger rather than settling both independently.
func TestCleanupNetsOpposingRequests(t *testing.T) {
	p := newTestPool(t)
	require.NoError(t, p.AddValidator(p.Manager, testAddr(1), 1))

	p.EpochRequestedStakeAmount = quantity.NewFromUint64(100)
	p.EpochRequestedUnstakeAmount = quantity.NewFromUint64(70)

	require.NoError(t, p.cleanup(1))
	require.EqualValues(t, "30", p.StakeAmountToSettle.String())
	require.True(t, p.UnstakeAmountToSettle.IsZero())
	require.True(t, p.EpochRequestedStakeAmount.IsZero())
	require.True(t, p.EpochRequestedUnstakeAmount.IsZero())
}

func TestCleanupIsIdempotentPerEpoch(t *testing.T) {
	p := newTestPool(t)
	p.EpochRequestedStakeAmount = quantity.NewFromUint64(100)
	require.NoError(t, p.cleanup(5))
	require.EqualValues(t, "100", p.StakeAmountToSettle.String())

	// A second cleanup call at the same epoch must be a no-op even though
	// EpochRequestedStakeAmount has since changed.
	p.EpochRequestedStakeAmount = quantity.NewFromUint64(999)
	require.NoError(t, p.cleanup(5))
	require.EqualValues(t, "100", p.StakeAmountToSettle.String())
}

func TestEpochStakeAttemptConfirmCycle(t *testing.T) {
	p := newTestPool(t)
	require.NoError(t, p.AddValidator(p.Manager, testAddr(1), 1))
	// TotalStakedAmount reflects funds already committed elsewhere,
	// giving the fresh validator a deficit against its target share.
	p.TotalStakedAmount = quantity.NewFromUint64(500)
	p.EpochRequestedStakeAmount = quantity.NewFromUint64(500)

	a, err := p.BeginEpochStake(1, quantity.NewFromUint64(10_000), fullBudget())
	require.NoError(t, err)
	require.NotNil(t, a)
	require.Equal(t, ActionStake, a.Kind)
	require.EqualValues(t, "500", a.Amount.String())
	require.True(t, p.StakeAmountToSettle.IsZero())

	require.NoError(t, p.ConfirmEpochStake(a))
	v, ok := p.ValidatorPool.Get(testAddr(1))
	require.True(t, ok)
	require.EqualValues(t, "500", v.StakedAmount.String())
}

func TestEpochStakeFailureRollsBackStakeAmountToSettle(t *testing.T) {
	p := newTestPool(t)
	require.NoError(t, p.AddValidator(p.Manager, testAddr(1), 1))
	p.TotalStakedAmount = quantity.NewFromUint64(500)
	p.EpochRequestedStakeAmount = quantity.NewFromUint64(500)

	a, err := p.BeginEpochStake(1, quantity.NewFromUint64(10_000), fullBudget())
	require.NoError(t, err)
	require.NoError(t, p.FailEpochStake(a))

	require.EqualValues(t, "500", p.StakeAmountToSettle.String())
	v, ok := p.ValidatorPool.Get(testAddr(1))
	require.True(t, ok)
	require.True(t, v.StakedAmount.IsZero())
}

func TestEpochStakeRespectsReserve(t *testing.T) {
	p := newTestPool(t)
	require.NoError(t, p.AddValidator(p.Manager, testAddr(1), 1))
	p.TotalStakedAmount = quantity.NewFromUint64(500)
	p.EpochRequestedStakeAmount = quantity.NewFromUint64(500)

	// freeBalance too small to cover chosen + MinReserveBalance(10).
	a, err := p.BeginEpochStake(1, quantity.NewFromUint64(200), fullBudget())
	require.ErrorIs(t, err, ErrInsufficientContractReserve)
	require.Nil(t, a)
}

func TestEpochUnstakeFailureRevertsValidatorAndCounter(t *testing.T) {
	p := newTestPool(t)
	require.NoError(t, p.AddValidator(p.Manager, testAddr(1), 1))
	v, _ := p.ValidatorPool.Get(testAddr(1))
	require.NoError(t, v.OnStakeConfirm(quantity.NewFromUint64(1000)))
	// TotalStakedAmount sits below the validator's actual staked_amount,
	// giving it a surplus against its own target share and making it
	// eligible for unstake candidate selection.
	p.TotalStakedAmount = quantity.NewFromUint64(900)
	p.EpochRequestedUnstakeAmount = quantity.NewFromUint64(100)

	a, err := p.BeginEpochUnstake(1, fullBudget())
	require.NoError(t, err)
	require.NotNil(t, a)
	stakedAfterAttempt := v.StakedAmount.Clone()
	firedEpoch := v.UnstakeFiredEpoch

	require.NoError(t, p.FailEpochUnstake(a))
	require.EqualValues(t, "1000", v.StakedAmount.String())
	require.NotEqualValues(t, firedEpoch, v.UnstakeFiredEpoch)
	require.EqualValues(t, "100", p.UnstakeAmountToSettle.String())
	_ = stakedAfterAttempt
}

func TestEpochWithdrawAttemptConfirm(t *testing.T) {
	p := newTestPool(t)
	require.NoError(t, p.AddValidator(p.Manager, testAddr(1), 1))
	v, _ := p.ValidatorPool.Get(testAddr(1))
	require.NoError(t, v.OnStakeConfirm(quantity.NewFromUint64(100)))
	require.NoError(t, v.OnUnstakeAttempt(quantity.NewFromUint64(100), 1))
	require.NoError(t, v.OnUnstakeConfirm(quantity.NewFromUint64(100)))

	a, err := p.BeginEpochWithdraw(testAddr(1), 10, fullBudget())
	require.NoError(t, err)
	require.NotNil(t, a)
	require.EqualValues(t, "100", a.Amount.String())
	require.True(t, v.UnstakedAmount.IsZero())

	require.NoError(t, p.ConfirmEpochWithdraw(a))
}

func TestDrainUnstakeRequiresDecommissioned(t *testing.T) {
	p := newTestPool(t)
	require.NoError(t, p.AddValidator(p.Manager, testAddr(1), 1))

	_, err := p.BeginDrainUnstake(p.Manager, testAddr(1), 0, fullBudget())
	require.ErrorIs(t, err, ErrValidatorWeightNonZero)
}

func TestDrainWithdrawFeedsRecoveredAmountBackIntoStakeRequests(t *testing.T) {
	p := newTestPool(t)
	require.NoError(t, p.AddValidator(p.Manager, testAddr(1), 1))
	v, _ := p.ValidatorPool.Get(testAddr(1))
	require.NoError(t, v.OnStakeConfirm(quantity.NewFromUint64(200)))
	require.NoError(t, v.OnUnstakeAttempt(quantity.NewFromUint64(200), 1))
	require.NoError(t, v.OnUnstakeConfirm(quantity.NewFromUint64(200)))
	require.NoError(t, p.UpdateValidatorWeight(p.Manager, testAddr(1), 0))

	a, err := p.BeginDrainWithdraw(p.Manager, testAddr(1), 10, fullBudget())
	require.NoError(t, err)
	require.NotNil(t, a)
	require.NoError(t, p.ConfirmDrainWithdraw(a))

	require.EqualValues(t, "200", p.EpochRequestedStakeAmount.String())
	require.True(t, v.UnstakedAmount.IsZero())
}

// TestTwoValidatorEqualWeightSettlement is scenario-style: two validators
// of equal weight share a combined stake request down the middle once
// both have been topped up across two settlement rounds.
func TestTwoValidatorEqualWeightSettlement(t *testing.T) {
	p := newTestPool(t)
	require.NoError(t, p.AddValidator(p.Manager, testAddr(1), 1))
	require.NoError(t, p.AddValidator(p.Manager, testAddr(2), 1))

	user := testAddr(9)
	require.NoError(t, p.Deposit(user, quantity.NewFromUint64(160)))
	require.NoError(t, p.Stake(user, quantity.NewFromUint64(160)))

	a, err := p.BeginEpochStake(1, quantity.NewFromUint64(10_000), fullBudget())
	require.NoError(t, err)
	require.NotNil(t, a)
	require.NoError(t, p.ConfirmEpochStake(a))

	a2, err := p.BeginEpochStake(2, quantity.NewFromUint64(10_000), fullBudget())
	require.NoError(t, err)
	require.NotNil(t, a2)
	require.NoError(t, p.ConfirmEpochStake(a2))

	v1, _ := p.ValidatorPool.Get(testAddr(1))
	v2, _ := p.ValidatorPool.Get(testAddr(2))
	require.EqualValues(t, "80", v1.StakedAmount.String())
	require.EqualValues(t, "80", v2.StakedAmount.String())
}
