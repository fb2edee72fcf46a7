package port

import "context"

// ValueLedger moves native value between accounts. Purchases collect the
// buyer's payment into the market escrow account, then pay the seller and
// refund any excess from there.
type ValueLedger interface {
	// Transfer moves amount from -> to; fails on insufficient funds.
	Transfer(ctx context.Context, from, to string, amount uint64) error

	// BalanceOf returns the current balance of an account.
	BalanceOf(ctx context.Context, account string) (uint64, error)
}
