package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stakepool/liquidcore/common/quantity"
)

func TestValidatorPendingRelease(t *testing.T) {
	v := NewValidator(testAddr(1), 1)
	v.UnstakeFiredEpoch = 10
	require.False(t, v.PendingRelease(9))
	require.True(t, v.PendingRelease(10))
	require.True(t, v.PendingRelease(13))
	require.False(t, v.PendingRelease(14))
}

func TestValidatorUnstakeAttemptConfirmFail(t *testing.T) {
	v := NewValidator(testAddr(1), 1)
	require.NoError(t, v.OnStakeConfirm(quantity.NewFromUint64(100)))

	require.NoError(t, v.OnUnstakeAttempt(quantity.NewFromUint64(40), 5))
	require.EqualValues(t, "60", v.StakedAmount.String())
	require.EqualValues(t, 5, v.UnstakeFiredEpoch)

	// A second concurrent unstake attempt must be rejected while pending
	// release.
	require.ErrorIs(t, v.OnUnstakeAttempt(quantity.NewFromUint64(10), 5), ErrValidatorPendingRelease)

	require.NoError(t, v.OnUnstakeFail(quantity.NewFromUint64(40)))
	require.EqualValues(t, "100", v.StakedAmount.String())
	require.EqualValues(t, neverFired, v.UnstakeFiredEpoch)
	require.False(t, v.PendingRelease(5))
}

func TestValidatorUnstakeConfirm(t *testing.T) {
	v := NewValidator(testAddr(1), 1)
	require.NoError(t, v.OnStakeConfirm(quantity.NewFromUint64(100)))
	require.NoError(t, v.OnUnstakeAttempt(quantity.NewFromUint64(40), 5))
	require.NoError(t, v.OnUnstakeConfirm(quantity.NewFromUint64(40)))
	require.EqualValues(t, "40", v.UnstakedAmount.String())
	require.EqualValues(t, "60", v.StakedAmount.String())
}

func TestValidatorWithdrawAttemptFail(t *testing.T) {
	v := NewValidator(testAddr(1), 1)
	require.NoError(t, v.OnStakeConfirm(quantity.NewFromUint64(100)))
	require.NoError(t, v.OnUnstakeAttempt(quantity.NewFromUint64(40), 5))
	require.NoError(t, v.OnUnstakeConfirm(quantity.NewFromUint64(40)))

	// The unstake fired at epoch 5 stays pending release until 5+NumEpochsToUnlock.
	require.NoError(t, v.OnWithdrawAttempt(quantity.NewFromUint64(40), 5+NumEpochsToUnlock))
	require.True(t, v.UnstakedAmount.IsZero())

	require.NoError(t, v.OnWithdrawFail(quantity.NewFromUint64(40)))
	require.EqualValues(t, "40", v.UnstakedAmount.String())
}

func TestValidatorOnTotalBalanceAttributesReward(t *testing.T) {
	v := NewValidator(testAddr(1), 1)
	require.NoError(t, v.OnStakeConfirm(quantity.NewFromUint64(100)))

	rewards, err := v.OnTotalBalance(quantity.NewFromUint64(110))
	require.NoError(t, err)
	require.EqualValues(t, "10", rewards.String())
	require.EqualValues(t, "110", v.StakedAmount.String())

	// No growth -> no reward, clamped at zero rather than negative.
	rewards, err = v.OnTotalBalance(quantity.NewFromUint64(105))
	require.NoError(t, err)
	require.True(t, rewards.IsZero())
}

func TestValidatorOnSyncAccountAcceptsOffsettingDrift(t *testing.T) {
	// staked and unstaked shift in opposite directions by up to the
	// per-leg bound while their sum stays put: this is the rounding dust
	// the external staking system's own share price introduces.
	v := NewValidator(testAddr(1), 1)
	v.StakedAmount = quantity.NewFromUint64(1000)
	v.UnstakedAmount = quantity.NewFromUint64(50)

	require.NoError(t, v.OnSyncAccount(quantity.NewFromUint64(1030), quantity.NewFromUint64(20)))
	require.EqualValues(t, "1030", v.StakedAmount.String())
	require.EqualValues(t, "20", v.UnstakedAmount.String())
}

func TestValidatorOnSyncAccountRejectsLargeDrift(t *testing.T) {
	v := NewValidator(testAddr(2), 1)
	require.NoError(t, v.OnStakeConfirm(quantity.NewFromUint64(1000)))
	require.ErrorIs(t, v.OnSyncAccount(quantity.NewFromUint64(2000), quantity.NewFromUint64(0)), ErrSyncDriftTooLarge)
}
