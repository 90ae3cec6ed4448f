package catalog

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/go_cart/shopcart/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProduct struct {
	ref   domain.ProductRef
	price decimal.Decimal
}

func (p fakeProduct) Ref() domain.ProductRef                  { return p.ref }
func (p fakeProduct) Price(domain.ItemRecord) decimal.Decimal { return p.price }

func TestResolve_RegisteredType(t *testing.T) {
	c := New()
	c.Register("sku", func(_ context.Context, pk string) (Product, error) {
		return fakeProduct{ref: domain.ProductRef{Type: "sku", PK: pk}, price: decimal.NewFromInt(3)}, nil
	})

	p, err := c.Resolve(context.Background(), domain.ProductRef{Type: "sku", PK: "42"})
	require.NoError(t, err)
	assert.Equal(t, "42", p.Ref().PK)
	assert.True(t, decimal.NewFromInt(3).Equal(p.Price(domain.ItemRecord{})))
}

func TestResolve_UnknownType(t *testing.T) {
	c := New()

	p, err := c.Resolve(context.Background(), domain.ProductRef{Type: "ghost", PK: "1"})
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Nil(t, p)
}

func TestResolve_PropagatesResolverError(t *testing.T) {
	c := New()
	boom := errors.New("db down")
	c.Register("sku", func(context.Context, string) (Product, error) {
		return nil, boom
	})

	_, err := c.Resolve(context.Background(), domain.ProductRef{Type: "sku", PK: "1"})
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrProductNotFound)
}

func TestResolve_NilProductIsNotFound(t *testing.T) {
	c := New()
	c.Register("sku", func(context.Context, string) (Product, error) {
		return nil, nil
	})

	_, err := c.Resolve(context.Background(), domain.ProductRef{Type: "sku", PK: "1"})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestResolve_ConcurrentLookupsAreCollapsed(t *testing.T) {
	c := New()
	var calls atomic.Int32
	release := make(chan struct{})
	c.Register("sku", func(_ context.Context, pk string) (Product, error) {
		calls.Add(1)
		<-release
		return fakeProduct{ref: domain.ProductRef{Type: "sku", PK: pk}}, nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Resolve(context.Background(), domain.ProductRef{Type: "sku", PK: "1"})
			assert.NoError(t, err)
		}()
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(10))
	assert.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestResolve_CancelledCallerDoesNotFailOthers(t *testing.T) {
	c := New()
	started := make(chan struct{})
	var once sync.Once
	release := make(chan struct{})
	c.Register("sku", func(ctx context.Context, pk string) (Product, error) {
		once.Do(func() { close(started) })
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return fakeProduct{ref: domain.ProductRef{Type: "sku", PK: pk}}, nil
	})
	ref := domain.ProductRef{Type: "sku", PK: "1"}

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := c.Resolve(firstCtx, ref)
		firstErr <- err
	}()
	<-started

	second := make(chan error, 1)
	go func() {
		p, err := c.Resolve(context.Background(), ref)
		if err == nil {
			assert.Equal(t, ref, p.Ref())
		}
		second <- err
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	close(release)
	assert.NoError(t, <-second)
}

func TestTypes_Sorted(t *testing.T) {
	c := New()
	noop := func(context.Context, string) (Product, error) { return nil, nil }
	c.Register("sku", noop)
	c.Register("bundle", noop)

	assert.Equal(t, []string{"bundle", "sku"}, c.Types())
}
