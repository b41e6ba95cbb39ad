package pool

import "github.com/stakepool/liquidcore/common/errors"

// ModuleName is the module tag every pool error is registered under.
const ModuleName = "pool"

// Error kinds. Declared together, in this one file, so the (module, code)
// pairs stay stable and reviewable across changes.
var (
	ErrPaused                     = errors.New(ModuleName, 1, "pool: paused")
	ErrNotOwner                   = errors.New(ModuleName, 2, "pool: not owner")
	ErrNotManager                 = errors.New(ModuleName, 3, "pool: not manager")
	ErrAlreadyInitialized         = errors.New(ModuleName, 4, "pool: already initialized")
	ErrInsufficientGas            = errors.New(ModuleName, 5, "pool: insufficient prepaid compute budget")
	ErrInsufficientContractReserve = errors.New(ModuleName, 6, "pool: insufficient contract reserve")
	ErrInsufficientUnstaked       = errors.New(ModuleName, 7, "pool: insufficient unstaked balance")
	ErrInsufficientStaked         = errors.New(ModuleName, 8, "pool: insufficient staked balance")
	ErrNotAvailableYet            = errors.New(ModuleName, 9, "pool: not available yet")
	ErrEmptyPool                  = errors.New(ModuleName, 10, "pool: empty pool")
	ErrNonPositiveAmount          = errors.New(ModuleName, 11, "pool: non-positive amount")
	ErrValidatorNotFound          = errors.New(ModuleName, 12, "pool: validator not found")
	ErrValidatorAlreadyExists     = errors.New(ModuleName, 13, "pool: validator already exists")
	ErrValidatorInUse             = errors.New(ModuleName, 14, "pool: validator in use")
	ErrValidatorPendingRelease    = errors.New(ModuleName, 15, "pool: validator pending release")
	ErrValidatorWeightNonZero     = errors.New(ModuleName, 16, "pool: validator weight non-zero")
	ErrSyncDriftTooLarge          = errors.New(ModuleName, 17, "pool: sync drift too large")
	ErrTooManyBeneficiaries       = errors.New(ModuleName, 18, "pool: too many beneficiaries")
	ErrBeneficiaryShareExceeded   = errors.New(ModuleName, 19, "pool: beneficiary basis points exceed 10000")
	ErrAccountNotFound            = errors.New(ModuleName, 20, "pool: account not found")
)
