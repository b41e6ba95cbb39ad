package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stakepool/liquidcore/common/quantity"
)

func TestUpdateRewardsRaisesSharePrice(t *testing.T) {
	p := newTestPool(t)
	require.NoError(t, p.AddValidator(p.Manager, testAddr(1), 1))

	user := testAddr(9)
	require.NoError(t, p.Deposit(user, quantity.NewFromUint64(100)))
	require.NoError(t, p.Stake(user, quantity.NewFromUint64(100)))
	a, err := p.BeginEpochStake(1, quantity.NewFromUint64(10_000), fullBudget())
	require.NoError(t, err)
	require.NoError(t, p.ConfirmEpochStake(a))

	require.NoError(t, p.UpdateRewards(testAddr(1), quantity.NewFromUint64(110), 2, fullBudget()))

	require.EqualValues(t, "110", p.TotalStakedAmount.String())
	require.EqualValues(t, "100", p.TotalShareAmount.String())
	num, den := p.SharePrice()
	require.True(t, num.Cmp(den) > 0, "price must have risen above 1")
}

func TestUpdateRewardsMintsBeneficiaryShares(t *testing.T) {
	p := newTestPool(t)
	require.NoError(t, p.AddValidator(p.Manager, testAddr(1), 1))

	user := testAddr(9)
	require.NoError(t, p.Deposit(user, quantity.NewFromUint64(1000)))
	require.NoError(t, p.Stake(user, quantity.NewFromUint64(1000)))
	a, err := p.BeginEpochStake(1, quantity.NewFromUint64(10_000), fullBudget())
	require.NoError(t, err)
	require.NoError(t, p.ConfirmEpochStake(a))

	beneficiary := testAddr(5)
	require.NoError(t, p.SetBeneficiary(p.Manager, beneficiary, 1000)) // 10%

	require.NoError(t, p.UpdateRewards(testAddr(1), quantity.NewFromUint64(1100), 2, fullBudget()))

	// rewards = 100; cut = 100*1000/10000 = 10; at the new price
	// (total_staked=1100, total_shares=1000 before minting) shares_from_amount_down(10)
	// = floor(1000*10/1100) = 9.
	ben := p.account(beneficiary)
	require.NotNil(t, ben)
	require.EqualValues(t, "9", ben.StakeShares.String())
	require.EqualValues(t, "1009", p.TotalShareAmount.String())
}

func TestUpdateRewardsNoGrowthEmitsZeroEvent(t *testing.T) {
	p := newTestPool(t)
	require.NoError(t, p.AddValidator(p.Manager, testAddr(1), 1))
	v, _ := p.ValidatorPool.Get(testAddr(1))
	require.NoError(t, v.OnStakeConfirm(quantity.NewFromUint64(100)))
	p.TotalStakedAmount = quantity.NewFromUint64(100)
	p.TotalShareAmount = quantity.NewFromUint64(100)

	ch, sub := p.WatchEvents()
	defer sub.Close()

	require.NoError(t, p.UpdateRewards(testAddr(1), quantity.NewFromUint64(100), 1, fullBudget()))
	require.EqualValues(t, "100", p.TotalStakedAmount.String())

	ev, ok := (<-ch).(Event)
	require.True(t, ok)
	require.Equal(t, EventEpochUpdateRewards, ev.Kind)
	require.True(t, ev.Amount.IsZero())
}

func TestUpdateRewardsUnknownValidator(t *testing.T) {
	p := newTestPool(t)
	require.ErrorIs(t, p.UpdateRewards(testAddr(1), quantity.NewFromUint64(100), 1, fullBudget()), ErrValidatorNotFound)
}
