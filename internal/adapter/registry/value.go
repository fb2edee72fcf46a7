package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrInsufficientFunds = errors.New("insufficient funds")

// ValueAccounts is an in-memory native value ledger.
type ValueAccounts struct {
	mu       sync.Mutex
	balances map[string]uint64
}

func NewValueAccounts() *ValueAccounts {
	return &ValueAccounts{balances: make(map[string]uint64)}
}

// Credit adds amount to an account balance.
func (v *ValueAccounts) Credit(account string, amount uint64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.balances[account] += amount
}

func (v *ValueAccounts) Transfer(ctx context.Context, from, to string, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	held := v.balances[from]
	if held < amount {
		return fmt.Errorf("account %s: %w", from, ErrInsufficientFunds)
	}
	v.balances[from] = held - amount
	v.balances[to] += amount
	return nil
}

func (v *ValueAccounts) BalanceOf(ctx context.Context, account string) (uint64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.balances[account], nil
}
