package pool

import (
	"github.com/hashicorp/go-multierror"

	"github.com/stakepool/liquidcore/common/address"
	"github.com/stakepool/liquidcore/common/quantity"
	"github.com/stakepool/liquidcore/epochtime"
)

// UpdateRewards ingests a freshly polled total balance for validatorID,
// attributes any growth over its previously recorded total as reward,
// raises the pool's staked total by that reward (which alone lifts share
// price), and mints beneficiary shares against the post-reward price.
// A validator whose recorded balances are both zero is skipped (no reward
// is attributed and no event is emitted): there is nothing to poll for a
// validator that holds no funds.
func (p *Pool) UpdateRewards(validatorID address.Address, newTotal *quantity.Quantity, currentEpoch epochtime.EpochTime, budget Budget) error {
	if err := requireBudget(budget, MinBudgetUpdateRewards); err != nil {
		return err
	}
	v, ok := p.ValidatorPool.Get(validatorID)
	if !ok {
		return ErrValidatorNotFound
	}
	if v.IsEmpty() {
		return nil
	}

	rewards, err := v.OnTotalBalance(newTotal)
	if err != nil {
		return err
	}
	if rewards.IsZero() {
		p.emit(Event{Kind: EventEpochUpdateRewards, Epoch: currentEpoch, Validator: validatorID, Amount: quantity.NewFromUint64(0)})
		return nil
	}

	if err := p.TotalStakedAmount.Add(rewards); err != nil {
		return err
	}

	if err := p.mintBeneficiaryShares(rewards); err != nil {
		return err
	}

	p.emit(Event{Kind: EventEpochUpdateRewards, Epoch: currentEpoch, Validator: validatorID, Amount: rewards.Clone()})
	return nil
}

// mintBeneficiaryShares mints, for every registered beneficiary, shares
// equal to shares_from_amount_down(rewards * bps / FullBasisPoints) at the
// new (post-reward) price — the dilution this causes is the beneficiary's
// fee. Beneficiaries are independent of one another: a malformed cut for
// one must not block the others from being minted, so errors are
// accumulated and returned together rather than aborting the sweep.
func (p *Pool) mintBeneficiaryShares(rewards *quantity.Quantity) error {
	var result *multierror.Error
	for beneficiary, bps := range p.Beneficiaries {
		cut, err := quantity.MulFracFloor(rewards, quantity.NewFromUint64(bps), quantity.NewFromUint64(FullBasisPoints))
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if cut.IsZero() {
			continue
		}
		shares, err := SharesFromAmountDown(p.TotalShareAmount, p.TotalStakedAmount, cut)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if shares.IsZero() {
			continue
		}
		acct := p.accountOrCreate(beneficiary)
		if err := acct.StakeShares.Add(shares); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if err := p.TotalShareAmount.Add(shares); err != nil {
			result = multierror.Append(result, err)
			continue
		}
	}
	return result.ErrorOrNil()
}
