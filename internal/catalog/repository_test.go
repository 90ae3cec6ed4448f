package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_cart/shopcart/internal/catalog"
	"github.com/fjod/go_cart/shopcart/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *catalog.Store {
	// Use in-memory database for tests
	store, err := catalog.NewStore(":memory:")
	require.NoError(t, err)

	require.NoError(t, store.RunMigrations())
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func TestListProducts_Returns5AfterMigrations(t *testing.T) {
	store := setupTestStore(t)

	products, err := store.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 5)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.RunMigrations())

	products, err := store.ListProducts(context.Background())
	require.NoError(t, err)
	assert.Len(t, products, 5)
}

func TestListProducts_CancelledContext(t *testing.T) {
	store := setupTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.ListProducts(ctx)
	assert.ErrorContains(t, err, "failed to query products")
}

func TestGetProduct_ReturnsProduct(t *testing.T) {
	store := setupTestStore(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	p, err := store.GetProduct(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "Espresso Beans 1kg", p.Name)
	assert.True(t, decimal.RequireFromString("24.90").Equal(p.UnitPrice))
	assert.Equal(t, domain.ProductRef{Type: catalog.ProductType, PK: "1"}, p.Ref())
}

func TestGetProduct_NotFound(t *testing.T) {
	store := setupTestStore(t)

	_, err := store.GetProduct(context.Background(), 999)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestResolve_ThroughCatalog(t *testing.T) {
	store := setupTestStore(t)
	c := catalog.New()
	c.Register(catalog.ProductType, store.Resolve)

	p, err := c.Resolve(context.Background(), domain.ProductRef{Type: catalog.ProductType, PK: "2"})
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("12.50").Equal(p.Price(domain.ItemRecord{Quantity: 3})))

	_, err = c.Resolve(context.Background(), domain.ProductRef{Type: catalog.ProductType, PK: "abc"})
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)

	_, err = c.Resolve(context.Background(), domain.ProductRef{Type: catalog.ProductType, PK: "404"})
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}
