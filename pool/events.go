package pool

import (
	"github.com/stakepool/liquidcore/common/address"
	"github.com/stakepool/liquidcore/common/pubsub"
	"github.com/stakepool/liquidcore/common/quantity"
	"github.com/stakepool/liquidcore/epochtime"
)

// EventKind identifies the observable action that produced an Event. Event
// emission is purely for off-chain reconstruction; nothing in the pool's
// correctness depends on a subscriber actually seeing these.
type EventKind string

const (
	EventDeposit EventKind = "deposit"
	EventWithdraw EventKind = "withdraw"
	EventStake   EventKind = "stake"
	EventUnstake EventKind = "unstake"

	EventEpochStakeAttempt EventKind = "epoch_stake_attempt"
	EventEpochStakeSuccess EventKind = "epoch_stake_success"
	EventEpochStakeFailed  EventKind = "epoch_stake_failed"

	EventEpochUnstakeAttempt EventKind = "epoch_unstake_attempt"
	EventEpochUnstakeSuccess EventKind = "epoch_unstake_success"
	EventEpochUnstakeFailed  EventKind = "epoch_unstake_failed"

	EventEpochWithdrawAttempt EventKind = "epoch_withdraw_attempt"
	EventEpochWithdrawSuccess EventKind = "epoch_withdraw_success"
	EventEpochWithdrawFailed  EventKind = "epoch_withdraw_failed"

	EventDrainUnstakeAttempt EventKind = "drain_unstake_attempt"
	EventDrainUnstakeSuccess EventKind = "drain_unstake_success"
	EventDrainUnstakeFailed  EventKind = "drain_unstake_failed"

	EventDrainWithdrawAttempt EventKind = "drain_withdraw_attempt"
	EventDrainWithdrawSuccess EventKind = "drain_withdraw_success"
	EventDrainWithdrawFailed  EventKind = "drain_withdraw_failed"

	EventEpochUpdateRewards EventKind = "epoch_update_rewards"

	EventSyncValidatorBalanceSuccess EventKind = "sync_validator_balance_success"
	EventSyncValidatorBalanceFailed  EventKind = "sync_validator_balance_failed"

	EventValidatorAdded            EventKind = "validator_added"
	EventValidatorRemoved          EventKind = "validator_removed"
	EventValidatorUpdatedWeights   EventKind = "validator_updated_weights"
	EventValidatorUpdatedBaseStake EventKind = "validator_updated_base_stake"
)

// Event is the single observable-action envelope emitted by every state
// transition in the pool. Fields are populated as relevant to Kind; zero
// values are left unset rather than defaulted to sentinel quantities, so
// subscribers should check Kind before reading optional fields.
type Event struct {
	Kind      EventKind
	Epoch     epochtime.EpochTime
	Account   address.Address
	Validator address.Address
	Amount    *quantity.Quantity
	Shares    *quantity.Quantity
	Weight    uint16
}

// emit hands ev to every subscriber registered on the pool's broker. It
// never blocks the caller: the broker buffers internally, so a slow
// subscriber cannot stall settlement.
func (p *Pool) emit(ev Event) {
	if p.Broker == nil {
		return
	}
	p.Broker.Publish(ev)
}

// WatchEvents subscribes to every event the pool emits.
func (p *Pool) WatchEvents() (<-chan interface{}, pubsub.ClosableSubscription) {
	return p.Broker.Subscribe()
}
