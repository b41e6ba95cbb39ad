package pool

import "github.com/stakepool/liquidcore/epochtime"

const (
	// NumEpochsToUnlock is the validator unstake lockup window: a validator
	// that fired an unstake cannot be chosen as a stake or unstake
	// candidate again until this many epochs have passed.
	NumEpochsToUnlock epochtime.EpochTime = 4

	// StakeSmallChangeAmount is the dust-absorption threshold used by the
	// validator pool's candidate selection.
	StakeSmallChangeAmount uint64 = 1

	// MinAmountToPerformStakeUnstake is the minimum chosen amount an epoch
	// settlement action will bother dispatching.
	MinAmountToPerformStakeUnstake uint64 = 1

	// MaxSyncBalanceDiff bounds the per-leg drift accepted when
	// reconciling a validator's actual reported balances against the
	// local view.
	MaxSyncBalanceDiff uint64 = 100

	// UnstakeFactor deliberately over-reduces a chosen unstake candidate so
	// a single action suffices rather than touching multiple validators.
	UnstakeFactor uint64 = 2

	// MaxBeneficiaries bounds the size of the beneficiaries map.
	MaxBeneficiaries = 10

	// FullBasisPoints is 100% in basis points.
	FullBasisPoints uint64 = 10000
)
