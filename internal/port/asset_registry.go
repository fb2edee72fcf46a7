package port

import "context"

// UniqueRegistry is the collaborator surface for single-owner assets. The
// market never holds custody; it transfers on behalf of the seller through
// a continuing authorization, re-checked at settlement time.
type UniqueRegistry interface {
	// OwnerOf returns the current owner of an asset id.
	OwnerOf(ctx context.Context, assetID uint64) (string, error)

	// Approved reports whether operator may currently transfer the asset.
	Approved(ctx context.Context, operator string, assetID uint64) (bool, error)

	// Transfer moves the asset from -> to; fails unless operator is the
	// owner or approved for the asset.
	Transfer(ctx context.Context, operator, from, to string, assetID uint64) error

	// Paused reports the registry's global pause flag.
	Paused(ctx context.Context) (bool, error)
}

// QuantityRegistry is the collaborator surface for assets with per-owner
// balances.
type QuantityRegistry interface {
	BalanceOf(ctx context.Context, owner string, assetID uint64) (uint64, error)

	// IsApprovedForAll reports whether owner has authorized operator to
	// transfer any of its balances.
	IsApprovedForAll(ctx context.Context, owner, operator string) (bool, error)

	// Transfer moves amount units of the asset from -> to; fails unless
	// operator is authorized and from holds at least amount.
	Transfer(ctx context.Context, operator, from, to string, assetID, amount uint64) error

	Paused(ctx context.Context) (bool, error)
}
