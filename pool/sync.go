package pool

import (
	"github.com/stakepool/liquidcore/common/address"
	"github.com/stakepool/liquidcore/common/quantity"
	"github.com/stakepool/liquidcore/epochtime"
)

// SyncValidatorBalance reconciles small drift between the local view of a
// validator's staked/unstaked balances and the balances it actually
// reports, arising from the external staking system's own share-price
// rounding. Unlike UpdateRewards, a drift this fails to explain is never
// silently absorbed — it surfaces as ErrSyncDriftTooLarge for an operator
// to investigate.
func (p *Pool) SyncValidatorBalance(validatorID address.Address, stakedActual, unstakedActual *quantity.Quantity, currentEpoch epochtime.EpochTime, budget Budget) error {
	if err := requireBudget(budget, MinBudgetSyncBalance); err != nil {
		return err
	}
	v, ok := p.ValidatorPool.Get(validatorID)
	if !ok {
		return ErrValidatorNotFound
	}

	if err := v.OnSyncAccount(stakedActual, unstakedActual); err != nil {
		p.emit(Event{Kind: EventSyncValidatorBalanceFailed, Epoch: currentEpoch, Validator: validatorID})
		return err
	}

	p.emit(Event{Kind: EventSyncValidatorBalanceSuccess, Epoch: currentEpoch, Validator: validatorID})
	return nil
}
