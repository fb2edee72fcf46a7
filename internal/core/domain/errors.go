package domain

import "errors"

var (
	// ErrSaleNotFound is returned when no sale exists for the given id.
	ErrSaleNotFound = errors.New("sale not found")

	// ErrSaleInactive is returned when the attempted operation requires a
	// purchasable (or still-open) sale.
	ErrSaleInactive = errors.New("sale inactive")

	// ErrNotApproved is returned when the seller does not own the asset or
	// has not authorized the market operator to transfer it.
	ErrNotApproved = errors.New("not approved")

	// ErrOnlySaleOwner is returned when a caller other than the seller
	// attempts to cancel a sale.
	ErrOnlySaleOwner = errors.New("only sale owner")

	// ErrOnlyOwner is returned when a caller other than the admin attempts
	// to toggle the pause gate.
	ErrOnlyOwner = errors.New("only owner")

	// ErrPaused is returned while the market (or the backing registry) has
	// its pause gate set.
	ErrPaused = errors.New("paused")

	ErrQuantityLow   = errors.New("quantity low")
	ErrQuantityHigh  = errors.New("quantity high")
	ErrPriceZero     = errors.New("price zero")
	ErrPaymentLow    = errors.New("payment low")
	ErrPriceOverflow = errors.New("price overflow")
)
