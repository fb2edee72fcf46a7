package port

import (
	"context"

	"github.com/rl1809/asset-market/internal/core/domain"
)

// EventPublisher delivers sale lifecycle events to external indexers.
// Delivery is best-effort; a publish failure never unwinds a settled
// operation.
type EventPublisher interface {
	PublishSaleCreated(ctx context.Context, ev domain.SaleCreated) error
	PublishPurchase(ctx context.Context, ev domain.Purchase) error
}
