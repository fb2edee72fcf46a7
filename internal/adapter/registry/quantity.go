package registry

import (
	"context"
	"fmt"
	"sync"
)

// QuantityAssets is an in-memory registry of assets with per-owner
// balances. Transfers require operator authorization for the whole
// account, matching the approval model the market checks at post time.
type QuantityAssets struct {
	mu        sync.Mutex
	balances  map[uint64]map[string]uint64 // assetID -> owner -> balance
	operators map[string]map[string]bool   // owner -> operator -> approved
	paused    bool
}

func NewQuantityAssets() *QuantityAssets {
	return &QuantityAssets{
		balances:  make(map[uint64]map[string]uint64),
		operators: make(map[string]map[string]bool),
	}
}

// Mint credits amount units of an asset to owner.
func (r *QuantityAssets) Mint(assetID uint64, owner string, amount uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.balances[assetID] == nil {
		r.balances[assetID] = make(map[string]uint64)
	}
	r.balances[assetID][owner] += amount
}

func (r *QuantityAssets) SetApprovalForAll(owner, operator string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.operators[owner] == nil {
		r.operators[owner] = make(map[string]bool)
	}
	r.operators[owner][operator] = ok
}

func (r *QuantityAssets) SetPaused(paused bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = paused
}

func (r *QuantityAssets) BalanceOf(ctx context.Context, owner string, assetID uint64) (uint64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[assetID][owner], nil
}

func (r *QuantityAssets) IsApprovedForAll(ctx context.Context, owner, operator string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.operators[owner][operator], nil
}

func (r *QuantityAssets) Transfer(ctx context.Context, operator, from, to string, assetID, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		return ErrRegistryPaused
	}
	if operator != from && !r.operators[from][operator] {
		return ErrTransferDenied
	}
	if r.balances[assetID] == nil {
		r.balances[assetID] = make(map[string]uint64)
	}
	held := r.balances[assetID][from]
	if held < amount {
		return fmt.Errorf("asset %d: %w", assetID, ErrInsufficientBalance)
	}
	r.balances[assetID][from] = held - amount
	r.balances[assetID][to] += amount
	return nil
}

func (r *QuantityAssets) Paused(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused, nil
}
