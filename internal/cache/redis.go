package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"thumbsmith/internal/domain"
)

const redisKeyPrefix = "thumbsmith:result:"

// RedisCache shares results between API and worker processes.
type RedisCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisCache(client redis.UniversalClient, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, fingerprint string) (*domain.Result, bool, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+fingerprint).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	res, err := decode(raw)
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}

func (r *RedisCache) Set(ctx context.Context, fingerprint string, res *domain.Result) error {
	raw, err := encode(res)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, redisKeyPrefix+fingerprint, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

var _ ResultCache = (*RedisCache)(nil)
