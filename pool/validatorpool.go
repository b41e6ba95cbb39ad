package pool

import (
	"github.com/cznic/b"

	"github.com/stakepool/liquidcore/common/address"
	"github.com/stakepool/liquidcore/common/quantity"
	"github.com/stakepool/liquidcore/epochtime"
)

func addressCmp(a, b interface{}) int {
	x, y := a.(address.Address), b.(address.Address)
	for i := range x {
		if x[i] != y[i] {
			if x[i] < y[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// ValidatorPool holds every registered Validator in address order, so that
// full-pool iteration (settlement, genesis export) is deterministic across
// runs and nodes. Deterministic order is the reason this is backed by a
// B-tree rather than a Go map.
type ValidatorPool struct {
	tree        *b.Tree
	totalWeight uint64
}

// NewValidatorPool returns an empty pool.
func NewValidatorPool() *ValidatorPool {
	return &ValidatorPool{tree: b.TreeNew(addressCmp)}
}

// NewValidatorPoolFromSnapshot rebuilds a ValidatorPool from a flat list
// of validators, e.g. one just restored from persistent storage (the
// B-tree itself is not directly serializable).
func NewValidatorPoolFromSnapshot(vs []*Validator) *ValidatorPool {
	vp := NewValidatorPool()
	for _, v := range vs {
		vp.tree.Set(v.AccountID, v)
		vp.totalWeight += uint64(v.Weight)
	}
	return vp
}

// Add registers a new validator. It is an error to register the same
// address twice.
func (vp *ValidatorPool) Add(v *Validator) error {
	if _, ok := vp.tree.Get(v.AccountID); ok {
		return ErrValidatorAlreadyExists
	}
	vp.tree.Set(v.AccountID, v)
	vp.totalWeight += uint64(v.Weight)
	return nil
}

// Get looks up a validator by address.
func (vp *ValidatorPool) Get(id address.Address) (*Validator, bool) {
	v, ok := vp.tree.Get(id)
	if !ok {
		return nil, false
	}
	return v.(*Validator), true
}

// Remove deletes a validator record. The caller must have already checked
// IsEmpty(); Remove itself enforces it.
func (vp *ValidatorPool) Remove(id address.Address) error {
	v, ok := vp.Get(id)
	if !ok {
		return ErrValidatorNotFound
	}
	if !v.IsEmpty() {
		return ErrValidatorInUse
	}
	vp.totalWeight -= uint64(v.Weight)
	vp.tree.Delete(id)
	return nil
}

// UpdateWeight changes a validator's target-allocation weight, including
// to zero (decommissioning it from future stake candidate selection
// without forcibly unwinding its current balance).
func (vp *ValidatorPool) UpdateWeight(id address.Address, weight uint16) error {
	v, ok := vp.Get(id)
	if !ok {
		return ErrValidatorNotFound
	}
	vp.totalWeight = vp.totalWeight - uint64(v.Weight) + uint64(weight)
	v.Weight = weight
	return nil
}

// UpdateBaseStake changes a validator's base_stake_amount floor.
func (vp *ValidatorPool) UpdateBaseStake(id address.Address, amount *quantity.Quantity) error {
	v, ok := vp.Get(id)
	if !ok {
		return ErrValidatorNotFound
	}
	v.BaseStakeAmount = amount.Clone()
	return nil
}

// Len reports the number of registered validators.
func (vp *ValidatorPool) Len() int {
	return vp.tree.Len()
}

// TotalWeight is the sum of every registered validator's weight.
func (vp *ValidatorPool) TotalWeight() uint64 {
	return vp.totalWeight
}

// All returns every validator in ascending address order.
func (vp *ValidatorPool) All() ([]*Validator, error) {
	out := make([]*Validator, 0, vp.tree.Len())
	en, err := vp.tree.SeekFirst()
	if err != nil {
		return out, nil
	}
	defer en.Close()
	for {
		_, v, err := en.Next()
		if err != nil {
			break
		}
		out = append(out, v.(*Validator))
	}
	return out, nil
}

// sumBaseStake totals the base_stake_amount floor committed across every
// validator in vs, the amount targetStaked must set aside before dividing
// the remainder by weight.
func sumBaseStake(vs []*Validator) (*quantity.Quantity, error) {
	total := quantity.NewFromUint64(0)
	for _, v := range vs {
		if err := total.Add(v.BaseStakeAmount); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// targetStaked returns the validator's target allocation: its own
// base_stake_amount floor, plus its pro-rata share (by weight) of
// whatever totalStaked remains once every validator's floor has been set
// aside. sumBase is sumBaseStake across the whole pool, passed in so a
// full-pool scan (SelectStakeCandidate, SelectUnstakeCandidate) computes
// it once rather than once per validator.
func (vp *ValidatorPool) targetStaked(v *Validator, totalStaked, sumBase *quantity.Quantity) (*quantity.Quantity, error) {
	if v.Weight == 0 {
		return quantity.NewFromUint64(0), nil
	}
	remainder := totalStaked.Clone()
	if remainder.Cmp(sumBase) <= 0 {
		remainder = quantity.NewFromUint64(0)
	} else if err := remainder.Sub(sumBase); err != nil {
		return nil, err
	}

	share := quantity.NewFromUint64(0)
	if vp.totalWeight != 0 {
		var err error
		share, err = quantity.MulFracFloor(remainder, quantity.NewFromUint64(uint64(v.Weight)), quantity.NewFromUint64(vp.totalWeight))
		if err != nil {
			return nil, err
		}
	}

	target := v.BaseStakeAmount.Clone()
	if err := target.Add(share); err != nil {
		return nil, err
	}
	return target, nil
}

// SelectStakeCandidate picks the eligible validator with the largest
// positive deficit (target(v) - v.staked_amount), clamps the amount to
// route to it at requested, and absorbs any leftover dust below
// StakeSmallChangeAmount into that same validator rather than leaving an
// unroutable remainder. Validators pending release are skipped; a
// decommissioned validator (weight 0) always has target 0 and therefore
// never shows a deficit.
func (vp *ValidatorPool) SelectStakeCandidate(requested, totalStaked *quantity.Quantity, currentEpoch epochtime.EpochTime) (*Validator, *quantity.Quantity, error) {
	all, _ := vp.All()
	sumBase, err := sumBaseStake(all)
	if err != nil {
		return nil, nil, err
	}
	var best *Validator
	var bestDeficit *quantity.Quantity

	for _, v := range all {
		if v.PendingRelease(currentEpoch) {
			continue
		}
		target, err := vp.targetStaked(v, totalStaked, sumBase)
		if err != nil {
			return nil, nil, err
		}
		if target.Cmp(v.StakedAmount) <= 0 {
			continue
		}
		deficit := target.Clone()
		if err := deficit.Sub(v.StakedAmount); err != nil {
			return nil, nil, err
		}
		if bestDeficit == nil || deficit.Cmp(bestDeficit) > 0 {
			best, bestDeficit = v, deficit
		}
	}
	if best == nil {
		return nil, nil, nil
	}

	chosen := quantity.Min(requested, bestDeficit)
	remaining := requested.Clone()
	if err := remaining.Sub(chosen); err != nil {
		return nil, nil, err
	}
	if remaining.Cmp(quantity.NewFromUint64(StakeSmallChangeAmount)) < 0 {
		chosen = requested.Clone()
	}
	return best, chosen, nil
}

// SelectUnstakeCandidate picks the eligible validator with the largest
// positive min(UNSTAKE_FACTOR * surplus, requested, v.staked_amount),
// where surplus = v.staked_amount - target(v). Over-reducing by
// UNSTAKE_FACTOR means a single action usually suffices rather than
// locking multiple validators for NUM_EPOCHS_TO_UNLOCK each.
func (vp *ValidatorPool) SelectUnstakeCandidate(requested, totalStaked *quantity.Quantity, currentEpoch epochtime.EpochTime) (*Validator, *quantity.Quantity, error) {
	all, _ := vp.All()
	sumBase, err := sumBaseStake(all)
	if err != nil {
		return nil, nil, err
	}
	var best *Validator
	var bestAmount *quantity.Quantity

	for _, v := range all {
		if v.PendingRelease(currentEpoch) || v.StakedAmount.IsZero() {
			continue
		}
		target, err := vp.targetStaked(v, totalStaked, sumBase)
		if err != nil {
			return nil, nil, err
		}
		var surplus *quantity.Quantity
		if v.StakedAmount.Cmp(target) <= 0 {
			surplus = quantity.NewFromUint64(0)
		} else {
			surplus = v.StakedAmount.Clone()
			if err := surplus.Sub(target); err != nil {
				return nil, nil, err
			}
		}
		scaled := surplus.MulUint64(UnstakeFactor)
		candidate := quantity.Min(scaled, requested)
		candidate = quantity.Min(candidate, v.StakedAmount)
		if candidate.IsZero() {
			continue
		}
		if bestAmount == nil || candidate.Cmp(bestAmount) > 0 {
			best, bestAmount = v, candidate
		}
	}
	if best == nil {
		return nil, nil, nil
	}

	remaining := requested.Clone()
	if err := remaining.Sub(quantity.Min(bestAmount, requested)); err != nil {
		return nil, nil, err
	}
	chosen := bestAmount
	if remaining.Cmp(quantity.NewFromUint64(StakeSmallChangeAmount)) < 0 {
		chosen = quantity.Min(requested, best.StakedAmount)
	}
	return best, chosen, nil
}

// ReleaseHorizon reports how many epochs out an unstake of amount from
// the pool will become available: NUM_EPOCHS_TO_UNLOCK if the
// non-pending-release validators collectively still hold at least that
// much stake (or nothing at all is staked, trivially available), else
// double that, since satisfying the request will require waiting out a
// second round of unstakes.
func (vp *ValidatorPool) ReleaseHorizon(amount *quantity.Quantity, currentEpoch epochtime.EpochTime) epochtime.EpochTime {
	all, _ := vp.All()
	available := quantity.NewFromUint64(0)
	for _, v := range all {
		if v.PendingRelease(currentEpoch) {
			continue
		}
		_ = available.Add(v.StakedAmount)
	}
	if available.IsZero() || available.Cmp(amount) >= 0 {
		return NumEpochsToUnlock
	}
	return NumEpochsToUnlock * 2
}
