package cache

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_cart/shopcart/internal/domain"
)

type StateCache interface {
	Get(ctx context.Context, key string) (domain.State, error)
	Set(ctx context.Context, key string, state domain.State, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

var ErrCacheMiss = errors.New("cache miss")
