package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"thumbsmith/internal/domain"
)

// MemoryCache keeps encoded results in process memory.
type MemoryCache struct {
	items *gocache.Cache
	ttl   time.Duration
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &MemoryCache{items: gocache.New(ttl, 2*ttl), ttl: ttl}
}

func (m *MemoryCache) Get(ctx context.Context, fingerprint string) (*domain.Result, bool, error) {
	v, ok := m.items.Get(fingerprint)
	if !ok {
		return nil, false, nil
	}
	raw, ok := v.([]byte)
	if !ok {
		m.items.Delete(fingerprint)
		return nil, false, nil
	}
	res, err := decode(raw)
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}

func (m *MemoryCache) Set(ctx context.Context, fingerprint string, res *domain.Result) error {
	raw, err := encode(res)
	if err != nil {
		return err
	}
	m.items.Set(fingerprint, raw, m.ttl)
	return nil
}

// Len reports the number of unexpired entries.
func (m *MemoryCache) Len() int {
	return m.items.ItemCount()
}

var _ ResultCache = (*MemoryCache)(nil)
