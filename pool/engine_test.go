package pool

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stakepool/liquidcore/common/address"
	"github.com/stakepool/liquidcore/common/quantity"
	"github.com/stakepool/liquidcore/delegation"
	"github.com/stakepool/liquidcore/epochtime"
)

// mockEndpoint is a scriptable delegation.Endpoint: each call either
// records the amount and succeeds, or returns failErr when set.
type mockEndpoint struct {
	failErr error

	lastDeposited *quantity.Quantity
	lastUnstaked  *quantity.Quantity
	lastWithdrawn *quantity.Quantity

	totalBalance *quantity.Quantity
	account      delegation.AccountView
}

func (m *mockEndpoint) DepositAndStake(_ context.Context, amount *quantity.Quantity) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.lastDeposited = amount
	return nil
}

func (m *mockEndpoint) Unstake(_ context.Context, amount *quantity.Quantity) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.lastUnstaked = amount
	return nil
}

func (m *mockEndpoint) Withdraw(_ context.Context, amount *quantity.Quantity) error {
	if m.failErr != nil {
		return m.failErr
	}
	m.lastWithdrawn = amount
	return nil
}

func (m *mockEndpoint) GetAccountTotalBalance(_ context.Context) (*quantity.Quantity, error) {
	if m.failErr != nil {
		return nil, m.failErr
	}
	return m.totalBalance, nil
}

func (m *mockEndpoint) GetAccount(_ context.Context) (delegation.AccountView, error) {
	if m.failErr != nil {
		return delegation.AccountView{}, m.failErr
	}
	return m.account, nil
}

type mapResolver map[address.Address]delegation.Endpoint

func (r mapResolver) Endpoint(id address.Address) (delegation.Endpoint, bool) {
	e, ok := r[id]
	return e, ok
}

func newTestEngine(t *testing.T, p *Pool, resolver delegation.Resolver, startEpoch epochtime.EpochTime) (*Engine, *epochtime.ManualBackend) {
	t.Helper()
	epoch := epochtime.NewManualBackend(startEpoch)
	return NewEngine(p, epoch, resolver, nil, nil), epoch
}

func TestEngineRunEpochStakeSuccess(t *testing.T) {
	p := newTestPool(t)
	v := testAddr(1)
	require.NoError(t, p.AddValidator(p.Manager, v, 1))
	p.TotalStakedAmount = quantity.NewFromUint64(500)
	p.EpochRequestedStakeAmount = quantity.NewFromUint64(500)

	ep := &mockEndpoint{}
	engine, _ := newTestEngine(t, p, mapResolver{v: ep}, 1)

	dispatched, err := engine.RunEpochStake(context.Background(), quantity.NewFromUint64(10_000), fullBudget())
	require.NoError(t, err)
	require.True(t, dispatched)
	require.NotNil(t, ep.lastDeposited)
	require.EqualValues(t, "500", ep.lastDeposited.String())

	validator, ok := p.ValidatorPool.Get(v)
	require.True(t, ok)
	require.EqualValues(t, "500", validator.StakedAmount.String())
	require.True(t, p.StakeAmountToSettle.IsZero())
}

func TestEngineRunEpochStakeEndpointFailureRollsBack(t *testing.T) {
	p := newTestPool(t)
	v := testAddr(1)
	require.NoError(t, p.AddValidator(p.Manager, v, 1))
	p.TotalStakedAmount = quantity.NewFromUint64(500)
	p.EpochRequestedStakeAmount = quantity.NewFromUint64(500)

	ep := &mockEndpoint{failErr: errors.New("delegation endpoint unreachable")}
	engine, _ := newTestEngine(t, p, mapResolver{v: ep}, 1)

	dispatched, err := engine.RunEpochStake(context.Background(), quantity.NewFromUint64(10_000), fullBudget())
	require.Error(t, err)
	require.False(t, dispatched)

	validator, ok := p.ValidatorPool.Get(v)
	require.True(t, ok)
	require.True(t, validator.StakedAmount.IsZero())
	require.EqualValues(t, "500", p.StakeAmountToSettle.String())
}

func TestEngineRunEpochStakeMissingEndpoint(t *testing.T) {
	p := newTestPool(t)
	v := testAddr(1)
	require.NoError(t, p.AddValidator(p.Manager, v, 1))
	p.TotalStakedAmount = quantity.NewFromUint64(500)
	p.EpochRequestedStakeAmount = quantity.NewFromUint64(500)

	engine, _ := newTestEngine(t, p, mapResolver{}, 1)

	dispatched, err := engine.RunEpochStake(context.Background(), quantity.NewFromUint64(10_000), fullBudget())
	require.Error(t, err)
	require.False(t, dispatched)

	validator, ok := p.ValidatorPool.Get(v)
	require.True(t, ok)
	require.True(t, validator.StakedAmount.IsZero())
	require.EqualValues(t, "500", p.StakeAmountToSettle.String())
}

func TestEngineRunEpochUnstakeSuccess(t *testing.T) {
	p := newTestPool(t)
	v := testAddr(1)
	require.NoError(t, p.AddValidator(p.Manager, v, 1))
	validator, _ := p.ValidatorPool.Get(v)
	validator.StakedAmount = quantity.NewFromUint64(1000)
	// Surplus against target: TotalStakedAmount below the validator's own
	// stake, same setup as the pool-level settlement tests.
	p.TotalStakedAmount = quantity.NewFromUint64(900)
	p.EpochRequestedUnstakeAmount = quantity.NewFromUint64(100)

	ep := &mockEndpoint{}
	engine, _ := newTestEngine(t, p, mapResolver{v: ep}, 1)

	dispatched, err := engine.RunEpochUnstake(context.Background(), fullBudget())
	require.NoError(t, err)
	require.True(t, dispatched)
	require.NotNil(t, ep.lastUnstaked)
	require.EqualValues(t, "900", validator.StakedAmount.String())
	require.EqualValues(t, "100", validator.UnstakedAmount.String())
}

func TestEngineRunEpochWithdrawSuccess(t *testing.T) {
	p := newTestPool(t)
	v := testAddr(1)
	require.NoError(t, p.AddValidator(p.Manager, v, 1))
	validator, _ := p.ValidatorPool.Get(v)
	validator.UnstakedAmount = quantity.NewFromUint64(200)
	validator.UnstakeFiredEpoch = 1
	validator.LastUnstakeFiredEpoch = 1

	ep := &mockEndpoint{}
	engine, epoch := newTestEngine(t, p, mapResolver{v: ep}, 1)
	epoch.SetEpoch(1 + NumEpochsToUnlock)

	dispatched, err := engine.RunEpochWithdraw(context.Background(), v, fullBudget())
	require.NoError(t, err)
	require.True(t, dispatched)
	require.NotNil(t, ep.lastWithdrawn)
	require.EqualValues(t, "200", ep.lastWithdrawn.String())
	require.True(t, validator.UnstakedAmount.IsZero())
}

func TestEngineRunUpdateRewards(t *testing.T) {
	p := newTestPool(t)
	v := testAddr(1)
	require.NoError(t, p.AddValidator(p.Manager, v, 1))
	validator, _ := p.ValidatorPool.Get(v)
	validator.StakedAmount = quantity.NewFromUint64(1000)
	validator.BaseStakeAmount = quantity.NewFromUint64(1000)
	p.TotalStakedAmount = quantity.NewFromUint64(1000)
	p.TotalShareAmount = quantity.NewFromUint64(1000)

	ep := &mockEndpoint{totalBalance: quantity.NewFromUint64(1100)}
	engine, _ := newTestEngine(t, p, mapResolver{v: ep}, 1)

	require.NoError(t, engine.RunUpdateRewards(context.Background(), v, fullBudget()))
	require.EqualValues(t, "1100", validator.StakedAmount.String())
	require.EqualValues(t, "1100", p.TotalStakedAmount.String())
}

func TestEngineRunSyncValidatorBalance(t *testing.T) {
	p := newTestPool(t)
	v := testAddr(1)
	require.NoError(t, p.AddValidator(p.Manager, v, 1))
	validator, _ := p.ValidatorPool.Get(v)
	validator.StakedAmount = quantity.NewFromUint64(1000)
	validator.UnstakedAmount = quantity.NewFromUint64(0)

	ep := &mockEndpoint{account: delegation.AccountView{
		StakedBalance:   quantity.NewFromUint64(1001),
		UnstakedBalance: quantity.NewFromUint64(0),
	}}
	engine, _ := newTestEngine(t, p, mapResolver{v: ep}, 1)

	require.NoError(t, engine.RunSyncValidatorBalance(context.Background(), v, fullBudget()))
	require.EqualValues(t, "1001", validator.StakedAmount.String())
}

func TestEngineRunDrainUnstakeAndWithdraw(t *testing.T) {
	p := newTestPool(t)
	v := testAddr(1)
	require.NoError(t, p.AddValidator(p.Manager, v, 1))
	validator, _ := p.ValidatorPool.Get(v)
	validator.StakedAmount = quantity.NewFromUint64(300)
	require.NoError(t, p.UpdateValidatorWeight(p.Manager, v, 0))

	ep := &mockEndpoint{}
	engine, epoch := newTestEngine(t, p, mapResolver{v: ep}, 1)

	dispatched, err := engine.RunDrainUnstake(context.Background(), p.Manager, v, fullBudget())
	require.NoError(t, err)
	require.True(t, dispatched)
	require.EqualValues(t, "300", ep.lastUnstaked.String())
	require.True(t, validator.StakedAmount.IsZero())
	require.EqualValues(t, "300", validator.UnstakedAmount.String())

	epoch.SetEpoch(1 + NumEpochsToUnlock)
	dispatched, err = engine.RunDrainWithdraw(context.Background(), p.Manager, v, fullBudget())
	require.NoError(t, err)
	require.True(t, dispatched)
	require.EqualValues(t, "300", ep.lastWithdrawn.String())
	require.True(t, validator.UnstakedAmount.IsZero())
	require.EqualValues(t, "300", p.EpochRequestedStakeAmount.String())
}
