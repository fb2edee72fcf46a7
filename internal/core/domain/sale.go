package domain

import (
	"math/bits"
	"time"
)

type AssetKind string

const (
	AssetUnique   AssetKind = "unique"
	AssetQuantity AssetKind = "quantity"
)

// SaleOutcome is the persisted, one-way resolution of a sale. Open sales
// may still transition; complete and canceled are absorbing.
type SaleOutcome string

const (
	OutcomeOpen     SaleOutcome = "open"
	OutcomeComplete SaleOutcome = "complete"
	OutcomeCanceled SaleOutcome = "canceled"
)

// SaleStatus is the externally observable status, derived on demand from
// the outcome and the sale's time window. It is never stored.
type SaleStatus string

const (
	StatusPending  SaleStatus = "pending"
	StatusActive   SaleStatus = "active"
	StatusComplete SaleStatus = "complete"
	StatusCanceled SaleStatus = "canceled"
	StatusTimedOut SaleStatus = "timed_out"
)

// Sale is a listing of a quantity of one asset at a fixed unit price.
// Start/End are unix seconds; 0 means immediately active / never expires.
type Sale struct {
	ID        uint64
	Seller    string
	Kind      AssetKind
	AssetID   uint64
	UnitPrice uint64
	Total     uint64
	Remaining uint64
	Start     int64
	End       int64
	Outcome   SaleOutcome
	Version   int // optimistic locking
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Cost returns UnitPrice * quantity, failing with ErrPriceOverflow instead
// of wrapping.
func (s *Sale) Cost(quantity uint64) (uint64, error) {
	hi, lo := bits.Mul64(s.UnitPrice, quantity)
	if hi != 0 {
		return 0, ErrPriceOverflow
	}
	return lo, nil
}
