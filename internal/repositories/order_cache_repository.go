package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"printshop/internal/models"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// CachedOrderRepository caches single-order reads in Redis.
// Any write to an order drops its cache entry.
type CachedOrderRepository struct {
	next   OrderRepository
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedOrderRepository wraps next with a Redis read-through cache.
func NewCachedOrderRepository(next OrderRepository, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedOrderRepository {
	return &CachedOrderRepository{
		next:   next,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

func orderCacheKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

// Create passes through to the wrapped repository. New orders are not cached.
func (r *CachedOrderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.next.Create(ctx, order)
}

// GetAll always reads from the wrapped repository.
func (r *CachedOrderRepository) GetAll(ctx context.Context) ([]models.Order, error) {
	return r.next.GetAll(ctx)
}

// GetByID serves from the cache when possible and fills it on a miss.
func (r *CachedOrderRepository) GetByID(ctx context.Context, id int64) (*models.Order, error) {
	key := orderCacheKey(id)

	b, err := r.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var cached models.Order
		if err := json.Unmarshal(b, &cached); err == nil {
			return &cached, nil
		}
		r.logger.Warn("dropping undecodable cache entry", zap.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		r.logger.Warn("order cache read failed", zap.String("key", key), zap.Error(err))
	}

	order, err := r.next.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(order); err == nil {
		if err := r.rdb.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.Warn("order cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return order, nil
}

// UpdateStatus writes through and drops the cached order.
func (r *CachedOrderRepository) UpdateStatus(ctx context.Context, id int64, status models.OrderStatus, note string) error {
	if err := r.next.UpdateStatus(ctx, id, status, note); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

// SetNotifications writes through and drops the cached order.
func (r *CachedOrderRepository) SetNotifications(ctx context.Context, id int64, n models.NotificationStatus) error {
	if err := r.next.SetNotifications(ctx, id, n); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedOrderRepository) invalidate(ctx context.Context, id int64) {
	if err := r.rdb.Del(ctx, orderCacheKey(id)).Err(); err != nil {
		r.logger.Warn("order cache invalidation failed", zap.Int64("order_id", id), zap.Error(err))
	}
}
