package cache

import (
	"context"
	"fmt"

	"thumbsmith/internal/infra"
)

// Open builds the cache selected by CACHE_BACKEND. The returned func releases
// any connection it opened.
func Open(ctx context.Context, cfg *infra.Config) (ResultCache, func(), error) {
	switch cfg.CacheBackend {
	case infra.CacheBackendRedis:
		client, err := infra.NewRedisClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return NewRedisCache(client, cfg.CacheTTL), func() { _ = client.Close() }, nil
	case infra.CacheBackendMemory:
		return NewMemoryCache(cfg.CacheTTL), func() {}, nil
	case infra.CacheBackendNone, "":
		return Nop{}, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported cache backend %q", cfg.CacheBackend)
	}
}
