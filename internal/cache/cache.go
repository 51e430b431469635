package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"dropship-api/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "cache").Logger()

// ProductCache is a read-through cache for single products. Failures are
// logged and treated as misses; the database stays authoritative.
type ProductCache interface {
	Get(ctx context.Context, id string) (*entity.Product, bool)
	Set(ctx context.Context, product *entity.Product)
	Delete(ctx context.Context, id string)
}

// IdempotencyStore remembers request keys so a retried order is not placed twice.
type IdempotencyStore interface {
	// Acquire returns false when the key was already used.
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string)
}

func productKey(id string) string {
	return fmt.Sprintf("product:%s", id)
}

func idempotencyKey(key string) string {
	return fmt.Sprintf("idempotent-key:%s", key)
}

type redisProductCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewProductCache returns a no-op cache when rdb is nil.
func NewProductCache(rdb *redis.Client, ttl time.Duration) ProductCache {
	if rdb == nil {
		return NopProductCache{}
	}
	return &redisProductCache{rdb: rdb, ttl: ttl}
}

func (c *redisProductCache) Get(ctx context.Context, id string) (*entity.Product, bool) {
	val, err := c.rdb.Get(ctx, productKey(id)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Error().Err(err).Msgf("Error getting product %s from cache", id)
		}
		return nil, false
	}

	var product entity.Product
	if err := json.Unmarshal([]byte(val), &product); err != nil {
		logger.Error().Err(err).Msgf("Error unmarshalling product %s", id)
		return nil, false
	}
	return &product, true
}

func (c *redisProductCache) Set(ctx context.Context, product *entity.Product) {
	data, err := json.Marshal(product)
	if err != nil {
		logger.Error().Err(err).Msgf("Error marshalling product %s", product.ID.Hex())
		return
	}
	if err := c.rdb.Set(ctx, productKey(product.ID.Hex()), data, c.ttl).Err(); err != nil {
		logger.Error().Err(err).Msgf("Error setting product %s in cache", product.ID.Hex())
	}
}

func (c *redisProductCache) Delete(ctx context.Context, id string) {
	if err := c.rdb.Del(ctx, productKey(id)).Err(); err != nil {
		logger.Error().Err(err).Msgf("Error deleting product %s from cache", id)
	}
}

type NopProductCache struct{}

func (NopProductCache) Get(context.Context, string) (*entity.Product, bool) { return nil, false }
func (NopProductCache) Set(context.Context, *entity.Product)                {}
func (NopProductCache) Delete(context.Context, string)                      {}

type redisIdempotencyStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewIdempotencyStore returns a store that accepts every key when rdb is nil.
func NewIdempotencyStore(rdb *redis.Client) IdempotencyStore {
	if rdb == nil {
		return NopIdempotencyStore{}
	}
	return &redisIdempotencyStore{rdb: rdb, ttl: 24 * time.Hour}
}

func (s *redisIdempotencyStore) Acquire(ctx context.Context, key string) (bool, error) {
	return s.rdb.SetNX(ctx, idempotencyKey(key), "exists", s.ttl).Result()
}

func (s *redisIdempotencyStore) Release(ctx context.Context, key string) {
	if err := s.rdb.Del(ctx, idempotencyKey(key)).Err(); err != nil {
		logger.Error().Err(err).Msgf("Error releasing idempotent key %s", key)
	}
}

type NopIdempotencyStore struct{}

func (NopIdempotencyStore) Acquire(context.Context, string) (bool, error) { return true, nil }
func (NopIdempotencyStore) Release(context.Context, string)               {}
