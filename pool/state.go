package pool

import (
	"github.com/stakepool/liquidcore/common/address"
	"github.com/stakepool/liquidcore/common/pubsub"
	"github.com/stakepool/liquidcore/common/quantity"
	"github.com/stakepool/liquidcore/epochtime"
)

// schemaVersion is bumped whenever Pool's persisted shape changes in a way
// that requires a migration step, see migration.go.
const schemaVersion uint32 = 1

// Pool is the full accounting state of a single liquid-staking contract
// instance. It is not safe for concurrent use by multiple goroutines; all
// mutation is expected to flow through Engine, which serializes access.
type Pool struct {
	SchemaVersion uint32 `cbor:"schema_version"`

	Owner   address.Address `cbor:"owner"`
	Manager address.Address `cbor:"manager"`
	Paused  bool            `cbor:"paused"`

	Accounts map[address.Address]*Account `cbor:"accounts"`

	TotalShareAmount *quantity.Quantity `cbor:"total_share_amount"`
	TotalStakedAmount *quantity.Quantity `cbor:"total_staked_amount"`

	EpochRequestedStakeAmount   *quantity.Quantity `cbor:"epoch_requested_stake_amount"`
	EpochRequestedUnstakeAmount *quantity.Quantity `cbor:"epoch_requested_unstake_amount"`
	StakeAmountToSettle         *quantity.Quantity `cbor:"stake_amount_to_settle"`
	UnstakeAmountToSettle       *quantity.Quantity `cbor:"unstake_amount_to_settle"`

	LastSettlementEpoch epochtime.EpochTime `cbor:"last_settlement_epoch"`

	MinReserveBalance *quantity.Quantity `cbor:"min_reserve_balance"`

	ValidatorPool *ValidatorPool `cbor:"-"`

	// Beneficiaries maps an address to its cut of ingested rewards, in
	// basis points. Entries sum to at most FullBasisPoints; the remainder
	// accrues to the share price.
	Beneficiaries map[address.Address]uint64 `cbor:"beneficiaries"`

	Broker *pubsub.Broker `cbor:"-"`
}

// NewPool constructs the genesis state of a fresh contract instance, owned
// and managed by the given addresses.
func NewPool(owner, manager address.Address, minReserveBalance *quantity.Quantity) *Pool {
	return &Pool{
		SchemaVersion:               schemaVersion,
		Owner:                       owner,
		Manager:                     manager,
		Accounts:                    make(map[address.Address]*Account),
		TotalShareAmount:            quantity.NewFromUint64(0),
		TotalStakedAmount:           quantity.NewFromUint64(0),
		EpochRequestedStakeAmount:   quantity.NewFromUint64(0),
		EpochRequestedUnstakeAmount: quantity.NewFromUint64(0),
		StakeAmountToSettle:         quantity.NewFromUint64(0),
		UnstakeAmountToSettle:       quantity.NewFromUint64(0),
		MinReserveBalance:           minReserveBalance.Clone(),
		ValidatorPool:               NewValidatorPool(),
		Beneficiaries:               make(map[address.Address]uint64),
		Broker:                      pubsub.NewBroker(256),
	}
}

// EnsureBroker lazily attaches an event broker, used after restoring a
// Pool from storage (Broker is excluded from persistence — a channel
// fanout has no meaningful serialized form).
func (p *Pool) EnsureBroker() {
	if p.Broker == nil {
		p.Broker = pubsub.NewBroker(256)
	}
}

// SharePrice reports the current base-token value of one share, expressed
// as the pair (numerator, denominator) = (TotalStakedAmount,
// TotalShareAmount) rather than a lossy float; callers needing a concrete
// amount should go through AmountFromSharesDown/Up.
func (p *Pool) SharePrice() (num, den *quantity.Quantity) {
	return p.TotalStakedAmount.Clone(), p.TotalShareAmount.Clone()
}

// RequireOwner returns ErrNotOwner unless caller is the contract owner.
func (p *Pool) RequireOwner(caller address.Address) error {
	if caller != p.Owner {
		return ErrNotOwner
	}
	return nil
}

// RequireManager returns ErrNotManager unless caller is the contract
// manager. The owner is always also accepted: admin actions are a
// superset of manager actions.
func (p *Pool) RequireManager(caller address.Address) error {
	if caller == p.Manager || caller == p.Owner {
		return nil
	}
	return ErrNotManager
}

// SetBeneficiary assigns or updates a beneficiary's basis-point cut of
// ingested validator rewards. A zero share removes the entry.
func (p *Pool) SetBeneficiary(caller, beneficiary address.Address, bps uint64) error {
	if err := p.RequireManager(caller); err != nil {
		return err
	}
	if bps == 0 {
		delete(p.Beneficiaries, beneficiary)
		return nil
	}
	if _, exists := p.Beneficiaries[beneficiary]; !exists && len(p.Beneficiaries) >= MaxBeneficiaries {
		return ErrTooManyBeneficiaries
	}
	var total uint64
	for addr, share := range p.Beneficiaries {
		if addr == beneficiary {
			continue
		}
		total += share
	}
	total += bps
	if total > FullBasisPoints {
		return ErrBeneficiaryShareExceeded
	}
	p.Beneficiaries[beneficiary] = bps
	return nil
}

// SetPaused toggles the pause flag gating Deposit/Stake/Unstake. Withdraw
// is deliberately left available while paused, since it only releases
// balances already committed to the unstaked leg.
func (p *Pool) SetPaused(caller address.Address, paused bool) error {
	if err := p.RequireManager(caller); err != nil {
		return err
	}
	p.Paused = paused
	return nil
}

// AddValidator registers a new delegation endpoint with the given target
// weight.
func (p *Pool) AddValidator(caller, id address.Address, weight uint16) error {
	if err := p.RequireManager(caller); err != nil {
		return err
	}
	if err := p.ValidatorPool.Add(NewValidator(id, weight)); err != nil {
		return err
	}
	p.emit(Event{Kind: EventValidatorAdded, Validator: id, Weight: weight})
	return nil
}

// UpdateValidatorBaseStake changes a registered validator's
// base_stake_amount floor.
func (p *Pool) UpdateValidatorBaseStake(caller, id address.Address, amount *quantity.Quantity) error {
	if err := p.RequireManager(caller); err != nil {
		return err
	}
	if err := p.ValidatorPool.UpdateBaseStake(id, amount); err != nil {
		return err
	}
	p.emit(Event{Kind: EventValidatorUpdatedBaseStake, Validator: id, Amount: amount})
	return nil
}

// RemoveValidator deregisters a validator once its balances have been
// fully drained.
func (p *Pool) RemoveValidator(caller, id address.Address) error {
	if err := p.RequireManager(caller); err != nil {
		return err
	}
	if err := p.ValidatorPool.Remove(id); err != nil {
		return err
	}
	p.emit(Event{Kind: EventValidatorRemoved, Validator: id})
	return nil
}

// UpdateValidatorWeight changes a registered validator's target-allocation
// weight.
func (p *Pool) UpdateValidatorWeight(caller, id address.Address, weight uint16) error {
	if err := p.RequireManager(caller); err != nil {
		return err
	}
	if err := p.ValidatorPool.UpdateWeight(id, weight); err != nil {
		return err
	}
	p.emit(Event{Kind: EventValidatorUpdatedWeights, Validator: id, Weight: weight})
	return nil
}
