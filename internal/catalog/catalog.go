package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/fjod/go_cart/shopcart/internal/domain"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

var ErrProductNotFound = errors.New("product not found")

// Product is anything a cart line can point at.
type Product interface {
	Ref() domain.ProductRef
	// Price returns the unit price for the given line, so it may depend on
	// the variant or the quantity.
	Price(item domain.ItemRecord) decimal.Decimal
}

type ResolveFunc func(ctx context.Context, pk string) (Product, error)

// Catalog resolves product references through resolvers registered per type tag.
type Catalog struct {
	mu        sync.RWMutex
	resolvers map[string]ResolveFunc
	sfg       singleflight.Group // collapses concurrent lookups of the same product
}

func New() *Catalog {
	return &Catalog{resolvers: make(map[string]ResolveFunc)}
}

func (c *Catalog) Register(typeTag string, fn ResolveFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resolvers[typeTag] = fn
}

func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	types := make([]string, 0, len(c.resolvers))
	for t := range c.resolvers {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}

func (c *Catalog) Resolve(ctx context.Context, ref domain.ProductRef) (Product, error) {
	c.mu.RLock()
	fn, ok := c.resolvers[ref.Type]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown product type %q", ErrProductNotFound, ref.Type)
	}

	// The shared lookup outlives any single caller; each caller waits on its own ctx.
	shared := context.WithoutCancel(ctx)
	ch := c.sfg.DoChan(ref.String(), func() (interface{}, error) {
		return fn(shared, ref.PK)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return nil, res.Err
	}
	p, ok := res.Val.(Product)
	if !ok || p == nil {
		return nil, fmt.Errorf("%w: %s", ErrProductNotFound, ref)
	}
	return p, nil
}
