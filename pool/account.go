package pool

import (
	"github.com/stakepool/liquidcore/common/address"
	"github.com/stakepool/liquidcore/common/quantity"
	"github.com/stakepool/liquidcore/epochtime"
)

// Account is the per-user ledger entry.
type Account struct {
	Unstaked                   *quantity.Quantity `cbor:"unstaked"`
	StakeShares                *quantity.Quantity `cbor:"stake_shares"`
	UnstakedAvailableEpochHeight epochtime.EpochTime `cbor:"unstaked_available_epoch_height"`
}

// NewAccount returns a freshly created, zero-balance account, lazily
// materialized on first interaction.
func NewAccount() *Account {
	return &Account{
		Unstaked:    quantity.NewFromUint64(0),
		StakeShares: quantity.NewFromUint64(0),
	}
}

// IsEmpty reports whether the account has no balances left and may be
// pruned from the accounts map.
func (a *Account) IsEmpty() bool {
	return a.Unstaked.IsZero() && a.StakeShares.IsZero()
}

func (p *Pool) account(id address.Address) *Account {
	if a, ok := p.Accounts[id]; ok {
		return a
	}
	return nil
}

func (p *Pool) accountOrCreate(id address.Address) *Account {
	if a, ok := p.Accounts[id]; ok {
		return a
	}
	a := NewAccount()
	p.Accounts[id] = a
	return a
}

// pruneIfEmpty removes the account entry once both its balances have
// gone back to zero, bounding the accounts map to active users only.
func (p *Pool) pruneIfEmpty(id address.Address) {
	if a, ok := p.Accounts[id]; ok && a.IsEmpty() {
		delete(p.Accounts, id)
	}
}

// Deposit credits unstaked base tokens to account.
func (p *Pool) Deposit(id address.Address, amount *quantity.Quantity) error {
	if p.Paused {
		return ErrPaused
	}
	if amount.IsZero() {
		return ErrNonPositiveAmount
	}
	acct := p.accountOrCreate(id)
	if err := acct.Unstaked.Add(amount); err != nil {
		return err
	}
	p.emit(Event{Kind: EventDeposit, Account: id, Amount: amount.Clone()})
	return nil
}

// Withdraw releases previously-unstaked base tokens back to the caller,
// gated by the release barrier and the contract reserve.
func (p *Pool) Withdraw(id address.Address, amount *quantity.Quantity, currentEpoch epochtime.EpochTime, freeBalance *quantity.Quantity) error {
	if amount.IsZero() {
		return ErrNonPositiveAmount
	}
	acct := p.account(id)
	if acct == nil || acct.Unstaked.Cmp(amount) < 0 {
		return ErrInsufficientUnstaked
	}
	if currentEpoch < acct.UnstakedAvailableEpochHeight {
		return ErrNotAvailableYet
	}
	remaining := freeBalance.Clone()
	if err := remaining.Sub(amount); err != nil || remaining.Cmp(p.MinReserveBalance) < 0 {
		return ErrInsufficientContractReserve
	}
	if err := acct.Unstaked.Sub(amount); err != nil {
		return err
	}
	p.pruneIfEmpty(id)
	p.emit(Event{Kind: EventWithdraw, Account: id, Amount: amount.Clone()})
	return nil
}

// Stake converts deposited base tokens into shares.
func (p *Pool) Stake(id address.Address, amount *quantity.Quantity) error {
	if p.Paused {
		return ErrPaused
	}
	if amount.IsZero() {
		return ErrNonPositiveAmount
	}
	acct := p.account(id)
	if acct == nil {
		return ErrInsufficientUnstaked
	}

	totalShares, totalStaked := p.TotalShareAmount, p.TotalStakedAmount
	if totalShares.IsZero() && totalStaked.IsZero() {
		// Genesis: the first stake is priced at one base unit per share.
		totalShares, totalStaked = quantity.NewFromUint64(1), quantity.NewFromUint64(1)
	}
	shares, err := SharesFromAmountDown(totalShares, totalStaked, amount)
	if err != nil {
		return err
	}
	if shares.IsZero() {
		return ErrNonPositiveAmount
	}
	charge, err := AmountFromSharesDown(totalShares, totalStaked, shares)
	if err != nil {
		return err
	}
	if charge.IsZero() {
		return ErrNonPositiveAmount
	}
	if acct.Unstaked.Cmp(charge) < 0 {
		return ErrInsufficientUnstaked
	}
	creditAmount, err := AmountFromSharesUp(totalShares, totalStaked, shares)
	if err != nil {
		return err
	}

	if err := acct.Unstaked.Sub(charge); err != nil {
		return err
	}
	if err := acct.StakeShares.Add(shares); err != nil {
		return err
	}
	if err := p.TotalStakedAmount.Add(creditAmount); err != nil {
		return err
	}
	if err := p.TotalShareAmount.Add(shares); err != nil {
		return err
	}
	if err := p.EpochRequestedStakeAmount.Add(creditAmount); err != nil {
		return err
	}

	p.emit(Event{Kind: EventStake, Account: id, Amount: amount.Clone(), Shares: shares.Clone()})
	return nil
}

// Unstake converts shares back into a pending unstaked base-token balance,
// subject to the validator-pool-derived release horizon.
func (p *Pool) Unstake(id address.Address, amount *quantity.Quantity, currentEpoch epochtime.EpochTime) error {
	if p.Paused {
		return ErrPaused
	}
	if p.TotalStakedAmount.IsZero() {
		return ErrEmptyPool
	}
	acct := p.account(id)
	if acct == nil {
		return ErrInsufficientStaked
	}

	shares, err := SharesFromAmountUp(p.TotalShareAmount, p.TotalStakedAmount, amount)
	if err != nil {
		return err
	}
	if acct.StakeShares.Cmp(shares) < 0 {
		return ErrInsufficientStaked
	}
	receive, err := AmountFromSharesUp(p.TotalShareAmount, p.TotalStakedAmount, shares)
	if err != nil {
		return err
	}
	if receive.IsZero() {
		return ErrNonPositiveAmount
	}
	debitAmount, err := AmountFromSharesDown(p.TotalShareAmount, p.TotalStakedAmount, shares)
	if err != nil {
		return err
	}

	if err := acct.StakeShares.Sub(shares); err != nil {
		return err
	}
	if err := acct.Unstaked.Add(receive); err != nil {
		return err
	}
	if err := p.TotalStakedAmount.Sub(debitAmount); err != nil {
		return err
	}
	if err := p.TotalShareAmount.Sub(shares); err != nil {
		return err
	}
	if err := p.EpochRequestedUnstakeAmount.Add(debitAmount); err != nil {
		return err
	}

	horizon := p.ValidatorPool.ReleaseHorizon(amount, currentEpoch)
	availableAt := currentEpoch + horizon
	if p.LastSettlementEpoch == currentEpoch {
		// The current epoch has already been cleaned up: this intent
		// lands after the cutoff and must wait one extra epoch.
		availableAt++
	}
	acct.UnstakedAvailableEpochHeight = availableAt

	p.emit(Event{Kind: EventUnstake, Account: id, Amount: amount.Clone(), Shares: shares.Clone()})
	return nil
}
