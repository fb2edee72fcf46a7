package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrUnknownAsset        = errors.New("unknown asset")
	ErrAssetExists         = errors.New("asset already exists")
	ErrNotAssetOwner       = errors.New("not asset owner")
	ErrTransferDenied      = errors.New("transfer not authorized")
	ErrRegistryPaused      = errors.New("registry paused")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// UniqueAssets is an in-memory single-owner asset registry. It stands in
// for the external registry collaborator in the server wiring, the load
// generator and tests, enforcing the same authorization rules the market
// relies on: a transfer succeeds only for the owner, a per-asset approved
// operator, or an operator approved for all of the owner's assets.
type UniqueAssets struct {
	mu        sync.Mutex
	owners    map[uint64]string
	approved  map[uint64]string          // assetID -> operator with per-asset approval
	operators map[string]map[string]bool // owner -> operator -> approved for all
	paused    bool
}

func NewUniqueAssets() *UniqueAssets {
	return &UniqueAssets{
		owners:    make(map[uint64]string),
		approved:  make(map[uint64]string),
		operators: make(map[string]map[string]bool),
	}
}

// Mint creates an asset owned by owner.
func (r *UniqueAssets) Mint(assetID uint64, owner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.owners[assetID]; ok {
		return fmt.Errorf("asset %d: %w", assetID, ErrAssetExists)
	}
	r.owners[assetID] = owner
	return nil
}

// Approve grants operator the right to transfer a single asset. Only the
// current owner may grant it; it is cleared on transfer.
func (r *UniqueAssets) Approve(caller, operator string, assetID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[assetID]
	if !ok {
		return fmt.Errorf("asset %d: %w", assetID, ErrUnknownAsset)
	}
	if owner != caller {
		return ErrNotAssetOwner
	}
	r.approved[assetID] = operator
	return nil
}

// SetApprovalForAll grants or revokes operator the right to transfer any
// of owner's assets.
func (r *UniqueAssets) SetApprovalForAll(owner, operator string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.operators[owner] == nil {
		r.operators[owner] = make(map[string]bool)
	}
	r.operators[owner][operator] = ok
}

func (r *UniqueAssets) SetPaused(paused bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paused = paused
}

func (r *UniqueAssets) OwnerOf(ctx context.Context, assetID uint64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[assetID]
	if !ok {
		return "", fmt.Errorf("asset %d: %w", assetID, ErrUnknownAsset)
	}
	return owner, nil
}

func (r *UniqueAssets) Approved(ctx context.Context, operator string, assetID uint64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	owner, ok := r.owners[assetID]
	if !ok {
		return false, fmt.Errorf("asset %d: %w", assetID, ErrUnknownAsset)
	}
	return r.approved[assetID] == operator || r.operators[owner][operator], nil
}

func (r *UniqueAssets) Transfer(ctx context.Context, operator, from, to string, assetID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.paused {
		return ErrRegistryPaused
	}
	owner, ok := r.owners[assetID]
	if !ok {
		return fmt.Errorf("asset %d: %w", assetID, ErrUnknownAsset)
	}
	if owner != from {
		return ErrNotAssetOwner
	}
	if operator != from && r.approved[assetID] != operator && !r.operators[from][operator] {
		return ErrTransferDenied
	}
	delete(r.approved, assetID)
	r.owners[assetID] = to
	return nil
}

func (r *UniqueAssets) Paused(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.paused, nil
}
