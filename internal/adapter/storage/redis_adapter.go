package storage

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/asset-market/internal/core/domain"
)

const (
	eventStream       = "market:events"
	idempotencyKeyTTL = 24 * time.Hour
)

// RedisAdapter publishes sale lifecycle events onto a Redis stream for
// external indexers and backs the purchase idempotency check.
type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	ok, err := r.client.SetNX(ctx, key, 1, idempotencyKeyTTL).Result()
	if err != nil {
		return false, err
	}
	return ok, nil
}

func (r *RedisAdapter) PublishSaleCreated(ctx context.Context, ev domain.SaleCreated) error {
	return r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: eventStream,
		Values: map[string]interface{}{
			"type":     "sale_created",
			"seller":   ev.Seller,
			"asset_id": ev.AssetID,
			"sale_id":  ev.SaleID,
			"registry": ev.Registry,
			"kind":     string(ev.Kind),
		},
	}).Err()
}

func (r *RedisAdapter) PublishPurchase(ctx context.Context, ev domain.Purchase) error {
	return r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: eventStream,
		Values: map[string]interface{}{
			"type":     "purchase",
			"buyer":    ev.Buyer,
			"asset_id": ev.AssetID,
			"sale_id":  ev.SaleID,
			"seller":   ev.Seller,
			"registry": ev.Registry,
			"kind":     string(ev.Kind),
		},
	}).Err()
}
