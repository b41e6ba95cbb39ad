package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stakepool/liquidcore/common/quantity"
)

func TestSyncValidatorBalanceAcceptsSmallDrift(t *testing.T) {
	p := newTestPool(t)
	require.NoError(t, p.AddValidator(p.Manager, testAddr(1), 1))
	v, _ := p.ValidatorPool.Get(testAddr(1))
	v.StakedAmount = quantity.NewFromUint64(1000)
	v.UnstakedAmount = quantity.NewFromUint64(50)

	require.NoError(t, p.SyncValidatorBalance(testAddr(1), quantity.NewFromUint64(1030), quantity.NewFromUint64(20), 1, fullBudget()))
	require.EqualValues(t, "1030", v.StakedAmount.String())
	require.EqualValues(t, "20", v.UnstakedAmount.String())
}

func TestSyncValidatorBalanceRejectsLargeDrift(t *testing.T) {
	p := newTestPool(t)
	require.NoError(t, p.AddValidator(p.Manager, testAddr(1), 1))
	v, _ := p.ValidatorPool.Get(testAddr(1))
	v.StakedAmount = quantity.NewFromUint64(1000)

	err := p.SyncValidatorBalance(testAddr(1), quantity.NewFromUint64(2000), quantity.NewFromUint64(0), 1, fullBudget())
	require.ErrorIs(t, err, ErrSyncDriftTooLarge)
	// A rejected sync must not mutate the validator's recorded balances.
	require.EqualValues(t, "1000", v.StakedAmount.String())
}

func TestSyncValidatorBalanceUnknownValidator(t *testing.T) {
	p := newTestPool(t)
	err := p.SyncValidatorBalance(testAddr(1), quantity.NewFromUint64(1), quantity.NewFromUint64(1), 1, fullBudget())
	require.ErrorIs(t, err, ErrValidatorNotFound)
}
