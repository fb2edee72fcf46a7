package port

import (
	"context"

	"github.com/rl1809/asset-market/internal/core/domain"
)

// SaleRepository is the durable copy of the sale ledger. The in-memory
// ledger stays authoritative; the repository hydrates it at startup and
// keeps an audit trail of every transition.
type SaleRepository interface {
	// SaveSale persists a newly posted sale.
	SaveSale(ctx context.Context, sale domain.Sale) error

	// UpdateSale persists a sale transition with version check for
	// optimistic locking.
	UpdateSale(ctx context.Context, sale domain.Sale) error

	// GetSale retrieves a sale by id, nil when absent.
	GetSale(ctx context.Context, id uint64) (*domain.Sale, error)

	// ListSales returns every persisted sale ordered by id.
	ListSales(ctx context.Context) ([]domain.Sale, error)
}
