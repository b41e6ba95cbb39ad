// Package delegation defines the capability set a liquid-staking pool
// depends on to actually move funds: one delegation endpoint per
// validator. Implementations vary per target chain or runtime; the pool
// itself only ever depends on this interface.
package delegation

import (
	"context"

	"github.com/stakepool/liquidcore/common/address"
	"github.com/stakepool/liquidcore/common/quantity"
)

// AccountView is the validator-reported view of a single account,
// returned by Endpoint.GetAccount.
type AccountView struct {
	StakedBalance   *quantity.Quantity
	UnstakedBalance *quantity.Quantity
	CanWithdraw     bool
}

// Endpoint is the external delegation contract for a single validator.
// Its failure mode is assumed transactional: a returned error means none
// of the endpoint's observable state changed.
type Endpoint interface {
	// DepositAndStake attaches amount of base tokens and stakes them.
	DepositAndStake(ctx context.Context, amount *quantity.Quantity) error

	// Unstake begins releasing amount of previously staked tokens.
	Unstake(ctx context.Context, amount *quantity.Quantity) error

	// Withdraw releases amount of previously unstaked tokens back to the
	// caller.
	Withdraw(ctx context.Context, amount *quantity.Quantity) error

	// GetAccountTotalBalance returns the account's total (staked +
	// unstaked + any not-yet-attributed reward) balance.
	GetAccountTotalBalance(ctx context.Context) (*quantity.Quantity, error)

	// GetAccount returns the validator's own breakdown of the account.
	GetAccount(ctx context.Context) (AccountView, error)
}

// Resolver looks up the Endpoint registered for a validator address.
type Resolver interface {
	Endpoint(id address.Address) (Endpoint, bool)
}

// MapResolver is a static Resolver backed by a fixed address-to-endpoint
// table, suitable for operator tooling that dials every configured
// validator endpoint once at startup.
type MapResolver map[address.Address]Endpoint

// Endpoint implements Resolver.
func (m MapResolver) Endpoint(id address.Address) (Endpoint, bool) {
	e, ok := m[id]
	return e, ok
}
