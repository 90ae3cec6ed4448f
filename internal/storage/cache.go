package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/shopcart/internal/cache"
	"github.com/fjod/go_cart/shopcart/internal/domain"
)

const DefaultCacheTTL = 5 * 24 * time.Hour

// CacheBackend keeps cart state in a shared expiring cache.
type CacheBackend struct {
	cache       cache.StateCache
	key         string
	ttl         time.Duration
	predecessor Backend
}

// NewCacheBackend stores state under "{keyPrefix}-{ownerID}", where ownerID is
// the account id for authenticated visitors and the session id otherwise.
func NewCacheBackend(c cache.StateCache, keyPrefix, ownerID string, ttl time.Duration) *CacheBackend {
	if ttl == 0 {
		ttl = DefaultCacheTTL
	}
	return &CacheBackend{
		cache: c,
		key:   CacheKey(keyPrefix, ownerID),
		ttl:   ttl,
	}
}

func CacheKey(keyPrefix, ownerID string) string {
	return fmt.Sprintf("%s-%s", keyPrefix, ownerID)
}

func (c *CacheBackend) Key() string { return c.key }

func (c *CacheBackend) Load(ctx context.Context) (domain.State, error) {
	state, err := c.cache.Get(ctx, c.key)
	if errors.Is(err, cache.ErrCacheMiss) {
		return domain.State{}, nil
	}
	if err != nil {
		return nil, err
	}
	if state == nil {
		state = domain.State{}
	}
	return state, nil
}

func (c *CacheBackend) Save(ctx context.Context, state domain.State) error {
	return c.cache.Set(ctx, c.key, state, c.ttl)
}

func (c *CacheBackend) Clear(ctx context.Context) error {
	return c.cache.Delete(ctx, c.key)
}

func (c *CacheBackend) Predecessor() Backend { return c.predecessor }
