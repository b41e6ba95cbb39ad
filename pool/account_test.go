package pool

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stakepool/liquidcore/common/address"
	"github.com/stakepool/liquidcore/common/quantity"
	"github.com/stakepool/liquidcore/epochtime"
)

func testAddr(b byte) address.Address {
	return address.FromBytes([]byte{b})
}

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	owner := testAddr(0xFE)
	manager := testAddr(0xFD)
	return NewPool(owner, manager, quantity.NewFromUint64(10))
}

func TestDepositWithdraw(t *testing.T) {
	p := newTestPool(t)
	user := testAddr(1)

	require.NoError(t, p.Deposit(user, quantity.NewFromUint64(100)))
	acct := p.account(user)
	require.EqualValues(t, "100", acct.Unstaked.String())

	err := p.Withdraw(user, quantity.NewFromUint64(50), 0, quantity.NewFromUint64(1000))
	require.NoError(t, err)
	require.EqualValues(t, "50", acct.Unstaked.String())
}

func TestDepositWhilePaused(t *testing.T) {
	p := newTestPool(t)
	p.Paused = true
	require.ErrorIs(t, p.Deposit(testAddr(1), quantity.NewFromUint64(1)), ErrPaused)
}

func TestWithdrawInsufficientReserve(t *testing.T) {
	p := newTestPool(t)
	user := testAddr(1)
	require.NoError(t, p.Deposit(user, quantity.NewFromUint64(100)))

	// Free balance after the transfer would dip below MinReserveBalance.
	err := p.Withdraw(user, quantity.NewFromUint64(95), 0, quantity.NewFromUint64(100))
	require.ErrorIs(t, err, ErrInsufficientContractReserve)
}

func TestStakeFirstDepositPriceOne(t *testing.T) {
	p := newTestPool(t)
	user := testAddr(1)
	require.NoError(t, p.Deposit(user, quantity.NewFromUint64(100)))
	require.NoError(t, p.Stake(user, quantity.NewFromUint64(100)))

	require.EqualValues(t, "100", p.TotalShareAmount.String())
	require.EqualValues(t, "100", p.TotalStakedAmount.String())
	require.EqualValues(t, "100", p.EpochRequestedStakeAmount.String())

	acct := p.account(user)
	require.EqualValues(t, "100", acct.StakeShares.String())
	require.True(t, acct.Unstaked.IsZero())
}

func TestStakeAppreciatedPriceRoundsAgainstUser(t *testing.T) {
	p := newTestPool(t)
	// Seed a price of 17/16 (> 1) directly, simulating prior reward ingestion.
	p.TotalShareAmount = quantity.NewFromUint64(160)
	p.TotalStakedAmount = quantity.NewFromUint64(170)

	user := testAddr(1)
	require.NoError(t, p.Deposit(user, quantity.NewFromUint64(100)))
	require.NoError(t, p.Stake(user, quantity.NewFromUint64(100)))

	acct := p.account(user)
	// shares_from_amount_down(100) = floor(160*100/170) = 94
	require.EqualValues(t, "94", acct.StakeShares.String())
	// charge = amount_from_shares_down(94) = floor(170*94/160) = 99
	require.EqualValues(t, "1", acct.Unstaked.String())
}

func TestUnstakeSetsReleaseBarrier(t *testing.T) {
	p := newTestPool(t)
	user := testAddr(1)
	require.NoError(t, p.Deposit(user, quantity.NewFromUint64(100)))
	require.NoError(t, p.Stake(user, quantity.NewFromUint64(100)))

	require.NoError(t, p.Unstake(user, quantity.NewFromUint64(40), 100))

	acct := p.account(user)
	require.EqualValues(t, epochtime.EpochTime(104), acct.UnstakedAvailableEpochHeight)

	require.ErrorIs(t, p.Withdraw(user, quantity.NewFromUint64(1), 103, quantity.NewFromUint64(1000)), ErrNotAvailableYet)
	require.NoError(t, p.Withdraw(user, quantity.NewFromUint64(1), 104, quantity.NewFromUint64(1000)))
}

func TestUnstakeExtendedWhenEpochAlreadySettled(t *testing.T) {
	p := newTestPool(t)
	user := testAddr(1)
	require.NoError(t, p.Deposit(user, quantity.NewFromUint64(100)))
	require.NoError(t, p.Stake(user, quantity.NewFromUint64(100)))

	p.LastSettlementEpoch = 100
	require.NoError(t, p.Unstake(user, quantity.NewFromUint64(40), 100))

	acct := p.account(user)
	require.EqualValues(t, epochtime.EpochTime(105), acct.UnstakedAvailableEpochHeight)
}

func TestAccountPrunedOnceEmpty(t *testing.T) {
	p := newTestPool(t)
	user := testAddr(1)
	require.NoError(t, p.Deposit(user, quantity.NewFromUint64(10)))
	require.NoError(t, p.Withdraw(user, quantity.NewFromUint64(10), 0, quantity.NewFromUint64(1000)))
	require.Nil(t, p.account(user))
}
