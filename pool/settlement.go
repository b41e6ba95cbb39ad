package pool

import (
	"github.com/stakepool/liquidcore/common/address"
	"github.com/stakepool/liquidcore/common/quantity"
	"github.com/stakepool/liquidcore/epochtime"
)

// ActionKind identifies which delegation call an Attempt is waiting on.
type ActionKind string

const (
	ActionStake    ActionKind = "stake"
	ActionUnstake  ActionKind = "unstake"
	ActionWithdraw ActionKind = "withdraw"
)

// Attempt is the explicit state record for an in-flight (validator, kind)
// action: Idle never appears here (no record exists while idle), and the
// record is discarded as soon as Confirm or Fail is applied, so at any
// moment there is at most one live Attempt per (validator, kind) pair.
type Attempt struct {
	Kind      ActionKind
	Validator address.Address
	Amount    *quantity.Quantity
	Epoch     epochtime.EpochTime
}

// cleanup folds epoch-requested counters into to-settle counters and nets
// opposing sides. It is idempotent within an epoch, guarded by
// LastSettlementEpoch, and is the first step of BeginEpochStake and
// BeginEpochUnstake.
func (p *Pool) cleanup(currentEpoch epochtime.EpochTime) error {
	if p.LastSettlementEpoch == currentEpoch {
		return nil
	}
	p.LastSettlementEpoch = currentEpoch

	if err := p.StakeAmountToSettle.Add(p.EpochRequestedStakeAmount); err != nil {
		return err
	}
	if err := p.UnstakeAmountToSettle.Add(p.EpochRequestedUnstakeAmount); err != nil {
		return err
	}
	p.EpochRequestedStakeAmount = quantity.NewFromUint64(0)
	p.EpochRequestedUnstakeAmount = quantity.NewFromUint64(0)

	net := quantity.Min(p.StakeAmountToSettle, p.UnstakeAmountToSettle)
	if err := p.StakeAmountToSettle.Sub(net); err != nil {
		return err
	}
	if err := p.UnstakeAmountToSettle.Sub(net); err != nil {
		return err
	}
	return nil
}

// BeginEpochStake runs cleanup, selects a stake candidate for the
// to-settle amount, and pre-debits StakeAmountToSettle before the caller
// dispatches the external deposit-and-stake call. Returns a nil Attempt
// (no error) when there is nothing to do this round: StakeAmountToSettle
// is zero, no eligible candidate exists, or the chosen amount is below
// MinAmountToPerformStakeUnstake.
func (p *Pool) BeginEpochStake(currentEpoch epochtime.EpochTime, freeBalance *quantity.Quantity, budget Budget) (*Attempt, error) {
	if err := requireBudget(budget, MinBudgetEpochStake); err != nil {
		return nil, err
	}
	if err := p.cleanup(currentEpoch); err != nil {
		return nil, err
	}
	if p.StakeAmountToSettle.IsZero() {
		return nil, nil
	}

	validator, chosen, err := p.ValidatorPool.SelectStakeCandidate(p.StakeAmountToSettle, p.TotalStakedAmount, currentEpoch)
	if err != nil {
		return nil, err
	}
	if validator == nil || chosen.Cmp(quantity.NewFromUint64(MinAmountToPerformStakeUnstake)) < 0 {
		return nil, nil
	}

	required := chosen.Clone()
	if err := required.Add(p.MinReserveBalance); err != nil {
		return nil, err
	}
	if freeBalance.Cmp(required) < 0 {
		return nil, ErrInsufficientContractReserve
	}

	if err := p.StakeAmountToSettle.Sub(chosen); err != nil {
		return nil, err
	}

	p.emit(Event{Kind: EventEpochStakeAttempt, Epoch: currentEpoch, Validator: validator.AccountID, Amount: chosen.Clone()})
	return &Attempt{Kind: ActionStake, Validator: validator.AccountID, Amount: chosen, Epoch: currentEpoch}, nil
}

// ConfirmEpochStake applies a successful deposit-and-stake callback.
func (p *Pool) ConfirmEpochStake(a *Attempt) error {
	v, ok := p.ValidatorPool.Get(a.Validator)
	if !ok {
		return ErrValidatorNotFound
	}
	if err := v.OnStakeConfirm(a.Amount); err != nil {
		return err
	}
	p.emit(Event{Kind: EventEpochStakeSuccess, Epoch: a.Epoch, Validator: a.Validator, Amount: a.Amount.Clone()})
	return nil
}

// FailEpochStake reverts a failed deposit-and-stake callback: the chosen
// amount returns to StakeAmountToSettle for a future round to retry.
func (p *Pool) FailEpochStake(a *Attempt) error {
	if err := p.StakeAmountToSettle.Add(a.Amount); err != nil {
		return err
	}
	p.emit(Event{Kind: EventEpochStakeFailed, Epoch: a.Epoch, Validator: a.Validator, Amount: a.Amount.Clone()})
	return nil
}

// BeginEpochUnstake is the symmetric counterpart of BeginEpochStake: it
// selects an unstake candidate, optimistically decrements its
// staked_amount and bumps its lockup window before the caller dispatches
// the external unstake call.
func (p *Pool) BeginEpochUnstake(currentEpoch epochtime.EpochTime, budget Budget) (*Attempt, error) {
	if err := requireBudget(budget, MinBudgetEpochUnstake); err != nil {
		return nil, err
	}
	if err := p.cleanup(currentEpoch); err != nil {
		return nil, err
	}
	if p.UnstakeAmountToSettle.IsZero() {
		return nil, nil
	}

	validator, chosen, err := p.ValidatorPool.SelectUnstakeCandidate(p.UnstakeAmountToSettle, p.TotalStakedAmount, currentEpoch)
	if err != nil {
		return nil, err
	}
	if validator == nil || chosen.Cmp(quantity.NewFromUint64(MinAmountToPerformStakeUnstake)) < 0 {
		return nil, nil
	}

	if err := validator.OnUnstakeAttempt(chosen, currentEpoch); err != nil {
		return nil, err
	}
	if err := p.UnstakeAmountToSettle.Sub(chosen); err != nil {
		return nil, err
	}

	p.emit(Event{Kind: EventEpochUnstakeAttempt, Epoch: currentEpoch, Validator: validator.AccountID, Amount: chosen.Clone()})
	return &Attempt{Kind: ActionUnstake, Validator: validator.AccountID, Amount: chosen, Epoch: currentEpoch}, nil
}

// ConfirmEpochUnstake applies a successful unstake callback.
func (p *Pool) ConfirmEpochUnstake(a *Attempt) error {
	v, ok := p.ValidatorPool.Get(a.Validator)
	if !ok {
		return ErrValidatorNotFound
	}
	if err := v.OnUnstakeConfirm(a.Amount); err != nil {
		return err
	}
	p.emit(Event{Kind: EventEpochUnstakeSuccess, Epoch: a.Epoch, Validator: a.Validator, Amount: a.Amount.Clone()})
	return nil
}

// FailEpochUnstake reverts a failed unstake callback and returns the
// chosen amount to UnstakeAmountToSettle.
func (p *Pool) FailEpochUnstake(a *Attempt) error {
	v, ok := p.ValidatorPool.Get(a.Validator)
	if !ok {
		return ErrValidatorNotFound
	}
	if err := v.OnUnstakeFail(a.Amount); err != nil {
		return err
	}
	if err := p.UnstakeAmountToSettle.Add(a.Amount); err != nil {
		return err
	}
	p.emit(Event{Kind: EventEpochUnstakeFailed, Epoch: a.Epoch, Validator: a.Validator, Amount: a.Amount.Clone()})
	return nil
}

// BeginEpochWithdraw unconditionally attempts to withdraw a validator's
// entire unstaked_amount back to the contract's treasury.
func (p *Pool) BeginEpochWithdraw(validatorID address.Address, currentEpoch epochtime.EpochTime, budget Budget) (*Attempt, error) {
	if err := requireBudget(budget, MinBudgetEpochWithdraw); err != nil {
		return nil, err
	}
	v, ok := p.ValidatorPool.Get(validatorID)
	if !ok {
		return nil, ErrValidatorNotFound
	}
	if v.UnstakedAmount.IsZero() {
		return nil, nil
	}
	amount := v.UnstakedAmount.Clone()
	if err := v.OnWithdrawAttempt(amount, currentEpoch); err != nil {
		return nil, err
	}
	p.emit(Event{Kind: EventEpochWithdrawAttempt, Epoch: currentEpoch, Validator: validatorID, Amount: amount.Clone()})
	return &Attempt{Kind: ActionWithdraw, Validator: validatorID, Amount: amount, Epoch: currentEpoch}, nil
}

// ConfirmEpochWithdraw applies a successful withdraw callback. The
// recovered base tokens land in the contract's free balance outside pool
// accounting; nothing further needs updating here.
func (p *Pool) ConfirmEpochWithdraw(a *Attempt) error {
	v, ok := p.ValidatorPool.Get(a.Validator)
	if !ok {
		return ErrValidatorNotFound
	}
	if err := v.OnWithdrawConfirm(a.Amount); err != nil {
		return err
	}
	p.emit(Event{Kind: EventEpochWithdrawSuccess, Epoch: a.Epoch, Validator: a.Validator, Amount: a.Amount.Clone()})
	return nil
}

// FailEpochWithdraw reverts a failed withdraw callback.
func (p *Pool) FailEpochWithdraw(a *Attempt) error {
	v, ok := p.ValidatorPool.Get(a.Validator)
	if !ok {
		return ErrValidatorNotFound
	}
	if err := v.OnWithdrawFail(a.Amount); err != nil {
		return err
	}
	p.emit(Event{Kind: EventEpochWithdrawFailed, Epoch: a.Epoch, Validator: a.Validator, Amount: a.Amount.Clone()})
	return nil
}

// BeginDrainUnstake starts evacuating a decommissioned validator's entire
// staked_amount. Requires weight == 0, !pending_release, and
// unstaked_amount == 0 — the last of which means an operator must
// drain_withdraw a previous unstake before a new one can be fired.
func (p *Pool) BeginDrainUnstake(caller, validatorID address.Address, currentEpoch epochtime.EpochTime, budget Budget) (*Attempt, error) {
	if err := p.RequireManager(caller); err != nil {
		return nil, err
	}
	if err := requireBudget(budget, MinBudgetDrain); err != nil {
		return nil, err
	}
	v, ok := p.ValidatorPool.Get(validatorID)
	if !ok {
		return nil, ErrValidatorNotFound
	}
	if !v.Decommissioned() {
		return nil, ErrValidatorWeightNonZero
	}
	if v.PendingRelease(currentEpoch) {
		return nil, ErrValidatorPendingRelease
	}
	if !v.UnstakedAmount.IsZero() {
		return nil, ErrValidatorInUse
	}
	if v.StakedAmount.IsZero() {
		return nil, nil
	}

	amount := v.StakedAmount.Clone()
	if err := v.OnUnstakeAttempt(amount, currentEpoch); err != nil {
		return nil, err
	}
	p.emit(Event{Kind: EventDrainUnstakeAttempt, Epoch: currentEpoch, Validator: validatorID, Amount: amount.Clone()})
	return &Attempt{Kind: ActionUnstake, Validator: validatorID, Amount: amount, Epoch: currentEpoch}, nil
}

// ConfirmDrainUnstake applies a successful drain-unstake callback.
func (p *Pool) ConfirmDrainUnstake(a *Attempt) error {
	v, ok := p.ValidatorPool.Get(a.Validator)
	if !ok {
		return ErrValidatorNotFound
	}
	if err := v.OnUnstakeConfirm(a.Amount); err != nil {
		return err
	}
	p.emit(Event{Kind: EventDrainUnstakeSuccess, Epoch: a.Epoch, Validator: a.Validator, Amount: a.Amount.Clone()})
	return nil
}

// FailDrainUnstake reverts a failed drain-unstake callback.
func (p *Pool) FailDrainUnstake(a *Attempt) error {
	v, ok := p.ValidatorPool.Get(a.Validator)
	if !ok {
		return ErrValidatorNotFound
	}
	if err := v.OnUnstakeFail(a.Amount); err != nil {
		return err
	}
	p.emit(Event{Kind: EventDrainUnstakeFailed, Epoch: a.Epoch, Validator: a.Validator, Amount: a.Amount.Clone()})
	return nil
}

// BeginDrainWithdraw starts evacuating a decommissioned validator's
// entire unstaked_amount.
func (p *Pool) BeginDrainWithdraw(caller, validatorID address.Address, currentEpoch epochtime.EpochTime, budget Budget) (*Attempt, error) {
	if err := p.RequireManager(caller); err != nil {
		return nil, err
	}
	if err := requireBudget(budget, MinBudgetDrain); err != nil {
		return nil, err
	}
	v, ok := p.ValidatorPool.Get(validatorID)
	if !ok {
		return nil, ErrValidatorNotFound
	}
	if !v.Decommissioned() {
		return nil, ErrValidatorWeightNonZero
	}
	if v.PendingRelease(currentEpoch) {
		return nil, ErrValidatorPendingRelease
	}
	if v.UnstakedAmount.IsZero() {
		return nil, nil
	}

	amount := v.UnstakedAmount.Clone()
	if err := v.OnWithdrawAttempt(amount, currentEpoch); err != nil {
		return nil, err
	}
	p.emit(Event{Kind: EventDrainWithdrawAttempt, Epoch: currentEpoch, Validator: validatorID, Amount: amount.Clone()})
	return &Attempt{Kind: ActionWithdraw, Validator: validatorID, Amount: amount, Epoch: currentEpoch}, nil
}

// ConfirmDrainWithdraw applies a successful drain-withdraw callback. The
// recovered amount is fed back into EpochRequestedStakeAmount so it gets
// rebalanced onto the remaining validators at the next cleanup, rather
// than sitting idle in the contract treasury.
func (p *Pool) ConfirmDrainWithdraw(a *Attempt) error {
	v, ok := p.ValidatorPool.Get(a.Validator)
	if !ok {
		return ErrValidatorNotFound
	}
	if err := v.OnWithdrawConfirm(a.Amount); err != nil {
		return err
	}
	if err := p.EpochRequestedStakeAmount.Add(a.Amount); err != nil {
		return err
	}
	p.emit(Event{Kind: EventDrainWithdrawSuccess, Epoch: a.Epoch, Validator: a.Validator, Amount: a.Amount.Clone()})
	return nil
}

// FailDrainWithdraw reverts a failed drain-withdraw callback.
func (p *Pool) FailDrainWithdraw(a *Attempt) error {
	v, ok := p.ValidatorPool.Get(a.Validator)
	if !ok {
		return ErrValidatorNotFound
	}
	if err := v.OnWithdrawFail(a.Amount); err != nil {
		return err
	}
	p.emit(Event{Kind: EventDrainWithdrawFailed, Epoch: a.Epoch, Validator: a.Validator, Amount: a.Amount.Clone()})
	return nil
}
