package pool

import "github.com/stakepool/liquidcore/common/quantity"

// Share math.
//
// Every conversion rounds against the user and in favor of the pool: stake
// rounds shares down (and the base charge down, derived from the rounded
// share count), unstake rounds shares up (and the base amount returned up).
// This is what keeps total_staked_near_amount/total_share_amount monotone
// non-decreasing across any sequence of user operations.

// SharesFromAmountDown computes floor(S * x / N).
func SharesFromAmountDown(totalShares, totalStaked, amount *quantity.Quantity) (*quantity.Quantity, error) {
	return quantity.MulFracFloor(amount, totalShares, totalStaked)
}

// SharesFromAmountUp computes ceil(S * x / N).
func SharesFromAmountUp(totalShares, totalStaked, amount *quantity.Quantity) (*quantity.Quantity, error) {
	return quantity.MulFracCeil(amount, totalShares, totalStaked)
}

// AmountFromSharesDown computes floor(N * y / S).
func AmountFromSharesDown(totalShares, totalStaked, shares *quantity.Quantity) (*quantity.Quantity, error) {
	return quantity.MulFracFloor(shares, totalStaked, totalShares)
}

// AmountFromSharesUp computes ceil(N * y / S).
func AmountFromSharesUp(totalShares, totalStaked, shares *quantity.Quantity) (*quantity.Quantity, error) {
	return quantity.MulFracCeil(shares, totalStaked, totalShares)
}
