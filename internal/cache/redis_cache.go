package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mvocoding/testmateai/internal/utils"
	"github.com/redis/go-redis/v9"
)

// CacheService caches question sets and mock test listings so repeated
// practice loads don't hit the database.
type CacheService interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, pattern string) error
}

// ErrCacheMiss is returned by Get when the key is absent.
var ErrCacheMiss = redis.Nil

type redisCache struct {
	client *redis.Client
	logger utils.Logger
}

func NewRedisCache(client *redis.Client, logger utils.Logger) CacheService {
	return &redisCache{
		client: client,
		logger: logger,
	}
}

func (r *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	return nil
}

func (r *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("failed to unmarshal cache value for %s: %w", key, err)
	}
	return nil
}

func (r *redisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key %s: %w", key, err)
	}
	return nil
}

func (r *redisCache) DeletePattern(ctx context.Context, pattern string) error {
	iter := r.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			r.logger.Warn("Failed to delete cache key", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys for %s: %w", pattern, err)
	}
	return nil
}

// NoopCache is used when Redis is not configured.
type NoopCache struct{}

func (NoopCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return nil
}

func (NoopCache) Get(ctx context.Context, key string, dest interface{}) error {
	return ErrCacheMiss
}

func (NoopCache) Delete(ctx context.Context, key string) error            { return nil }
func (NoopCache) DeletePattern(ctx context.Context, pattern string) error { return nil }
