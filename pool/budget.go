package pool

// Budget is the prepaid compute allowance attached to an externally
// callable operation, split across the three phases a settlement action
// passes through: the local accounting work, the outbound call to the
// delegation endpoint, and the callback that applies its result. Every
// gated entry point fails fast when the total is short, rather than
// running partway and leaving state inconsistent.
type Budget struct {
	Local    uint64
	External uint64
	Callback uint64
}

// Total sums the three phases.
func (b Budget) Total() uint64 {
	return b.Local + b.External + b.Callback
}

// Per-operation minimum compute budgets. epoch_stake/unstake dispatch an
// external call and later apply a callback so they carry the largest
// minimums; balance sync and reward ingestion are read-only round trips
// and carry the smallest.
const (
	MinBudgetEpochStake    uint64 = 50_000
	MinBudgetEpochUnstake  uint64 = 50_000
	MinBudgetEpochWithdraw uint64 = 40_000
	MinBudgetDrain         uint64 = 45_000
	MinBudgetUpdateRewards uint64 = 20_000
	MinBudgetSyncBalance   uint64 = 20_000
)

// requireBudget fails fast with ErrInsufficientGas if b falls short of min.
func requireBudget(b Budget, min uint64) error {
	if b.Total() < min {
		return ErrInsufficientGas
	}
	return nil
}
