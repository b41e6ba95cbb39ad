package pool

import (
	"github.com/stakepool/liquidcore/common/address"
	"github.com/stakepool/liquidcore/common/quantity"
	"github.com/stakepool/liquidcore/epochtime"
)

// Validator is the per-delegation-endpoint record. State transitions are
// purely reactive to attempt/confirm/fail callbacks; PendingRelease is a
// pure function of the current epoch.
type Validator struct {
	AccountID             address.Address     `cbor:"account_id"`
	Weight                uint16              `cbor:"weight"`
	StakedAmount          *quantity.Quantity  `cbor:"staked_amount"`
	UnstakedAmount        *quantity.Quantity  `cbor:"unstaked_amount"`
	UnstakeFiredEpoch     epochtime.EpochTime `cbor:"unstake_fired_epoch"`
	LastUnstakeFiredEpoch epochtime.EpochTime `cbor:"last_unstake_fired_epoch"`
	BaseStakeAmount       *quantity.Quantity  `cbor:"base_stake_amount"`
}

// neverFired is the UnstakeFiredEpoch sentinel for a validator that has
// never had an unstake fired against it, keeping it out of the lockup
// window at genesis (epoch 0) rather than colliding with a real epoch.
const neverFired = epochtime.EpochTime(^uint64(0))

// NewValidator constructs a freshly registered validator record.
func NewValidator(id address.Address, weight uint16) *Validator {
	return &Validator{
		AccountID:         id,
		Weight:            weight,
		StakedAmount:      quantity.NewFromUint64(0),
		UnstakedAmount:    quantity.NewFromUint64(0),
		BaseStakeAmount:   quantity.NewFromUint64(0),
		UnstakeFiredEpoch: neverFired,
		LastUnstakeFiredEpoch: neverFired,
	}
}

// PendingRelease reports whether v is within its NUM_EPOCHS_TO_UNLOCK
// lockup window and therefore cannot be chosen as a stake or unstake
// candidate.
func (v *Validator) PendingRelease(currentEpoch epochtime.EpochTime) bool {
	if v.UnstakeFiredEpoch == neverFired {
		return false
	}
	return v.UnstakeFiredEpoch <= currentEpoch && currentEpoch < v.UnstakeFiredEpoch+NumEpochsToUnlock
}

// Decommissioned reports whether the validator has been set to weight
// zero by the manager.
func (v *Validator) Decommissioned() bool {
	return v.Weight == 0
}

// IsEmpty reports whether the validator's recorded balances are zero,
// the precondition for removal.
func (v *Validator) IsEmpty() bool {
	return v.StakedAmount.IsZero() && v.UnstakedAmount.IsZero()
}

// OnStakeConfirm credits staked_amount on a successful deposit-and-stake
// callback. The caller guarantees at-most-once invocation per dispatched
// attempt.
func (v *Validator) OnStakeConfirm(amount *quantity.Quantity) error {
	return v.StakedAmount.Add(amount)
}

// OnUnstakeAttempt optimistically debits staked_amount and starts the
// lockup window ahead of the async unstake call.
func (v *Validator) OnUnstakeAttempt(amount *quantity.Quantity, currentEpoch epochtime.EpochTime) error {
	if amount.Cmp(v.StakedAmount) > 0 {
		return ErrInsufficientStaked
	}
	if v.PendingRelease(currentEpoch) {
		return ErrValidatorPendingRelease
	}
	if err := v.StakedAmount.Sub(amount); err != nil {
		return err
	}
	v.LastUnstakeFiredEpoch = v.UnstakeFiredEpoch
	v.UnstakeFiredEpoch = currentEpoch
	return nil
}

// OnUnstakeConfirm moves the optimistically-debited amount into
// unstaked_amount once the external unstake call succeeds.
func (v *Validator) OnUnstakeConfirm(amount *quantity.Quantity) error {
	return v.UnstakedAmount.Add(amount)
}

// OnUnstakeFail reverts the optimistic debit and the lockup window bump
// issued by OnUnstakeAttempt.
func (v *Validator) OnUnstakeFail(amount *quantity.Quantity) error {
	if err := v.StakedAmount.Add(amount); err != nil {
		return err
	}
	v.UnstakeFiredEpoch = v.LastUnstakeFiredEpoch
	return nil
}

// OnWithdrawAttempt optimistically debits unstaked_amount ahead of the
// async withdraw call.
func (v *Validator) OnWithdrawAttempt(amount *quantity.Quantity, currentEpoch epochtime.EpochTime) error {
	if v.UnstakedAmount.Cmp(amount) < 0 {
		return ErrInsufficientUnstaked
	}
	if v.PendingRelease(currentEpoch) {
		return ErrValidatorPendingRelease
	}
	return v.UnstakedAmount.Sub(amount)
}

// OnWithdrawConfirm is a no-op: the optimistic debit already reflects the
// post-withdraw state, and the released base tokens land in the contract's
// free balance outside this record.
func (v *Validator) OnWithdrawConfirm(_ *quantity.Quantity) error {
	return nil
}

// OnWithdrawFail restores the optimistic debit issued by OnWithdrawAttempt.
func (v *Validator) OnWithdrawFail(amount *quantity.Quantity) error {
	return v.UnstakedAmount.Add(amount)
}

// OnTotalBalance ingests a freshly polled external total balance,
// attributing any growth as reward. It is purely a Validator-local state
// transition; the caller decides how the reward amount gets distributed.
// Returns the reward amount (clamped at zero).
func (v *Validator) OnTotalBalance(newTotal *quantity.Quantity) (*quantity.Quantity, error) {
	oldTotal := v.StakedAmount.Clone()
	if err := oldTotal.Add(v.UnstakedAmount); err != nil {
		return nil, err
	}

	rewards := newTotal.Clone()
	if rewards.Cmp(oldTotal) <= 0 {
		rewards = quantity.NewFromUint64(0)
	} else if err := rewards.Sub(oldTotal); err != nil {
		return nil, err
	}

	newStaked := newTotal.Clone()
	if err := newStaked.Sub(v.UnstakedAmount); err != nil {
		return nil, err
	}
	v.StakedAmount = newStaked

	return rewards, nil
}

// OnSyncAccount reconciles a small drift between the local view and the
// validator's actual reported balances. It refuses to apply drifts larger
// than the configured bounds.
func (v *Validator) OnSyncAccount(stakedActual, unstakedActual *quantity.Quantity) error {
	oldTotal := v.StakedAmount.Clone()
	if err := oldTotal.Add(v.UnstakedAmount); err != nil {
		return err
	}
	newTotal := stakedActual.Clone()
	if err := newTotal.Add(unstakedActual); err != nil {
		return err
	}

	if absDiff(oldTotal, newTotal) > 1 {
		return ErrSyncDriftTooLarge
	}
	if absDiffQ(stakedActual, v.StakedAmount) > MaxSyncBalanceDiff {
		return ErrSyncDriftTooLarge
	}
	if absDiffQ(unstakedActual, v.UnstakedAmount) > MaxSyncBalanceDiff {
		return ErrSyncDriftTooLarge
	}

	v.StakedAmount = stakedActual.Clone()
	v.UnstakedAmount = unstakedActual.Clone()
	return nil
}

// absDiff returns |a - b| as a uint64 (drift bounds are always small
// relative to total pool size, so this never truncates in practice).
func absDiff(a, b *quantity.Quantity) uint64 {
	return absDiffQ(a, b)
}

func absDiffQ(a, b *quantity.Quantity) uint64 {
	var d quantity.Quantity
	if a.Cmp(b) >= 0 {
		d = *a.Clone()
		_ = d.Sub(b)
	} else {
		d = *b.Clone()
		_ = d.Sub(a)
	}
	return d.BigInt().Uint64()
}
