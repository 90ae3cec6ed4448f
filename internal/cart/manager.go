package cart

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/fjod/go_cart/shopcart/internal/catalog"
	"github.com/fjod/go_cart/shopcart/internal/identity"
	"github.com/fjod/go_cart/shopcart/internal/storage"
)

// BackendSelector is satisfied by *storage.Selector.
type BackendSelector interface {
	Backend(ident identity.Context) (storage.Backend, error)
}

// Manager builds carts. It holds the process-wide pieces (storage selection,
// product resolution, modifiers) that every request shares.
type Manager struct {
	selector  BackendSelector
	resolver  Resolver
	modifiers Pool
	price     PriceFunc
	logger    *log.Logger
}

type Option func(*Manager)

// WithModifiers sets the ordered hooks every cart runs around add and remove.
func WithModifiers(modifiers ...Modifier) Option {
	return func(m *Manager) { m.modifiers = NewPool(modifiers...) }
}

func WithPriceFunc(fn PriceFunc) Option {
	return func(m *Manager) { m.price = fn }
}

func WithLogger(logger *log.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

func NewManager(selector BackendSelector, resolver Resolver, opts ...Option) *Manager {
	m := &Manager{
		selector: selector,
		resolver: resolver,
		price:    DefaultPrice,
		logger:   log.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.Default()
	}
	if m.price == nil {
		m.price = DefaultPrice
	}
	return m
}

// New loads the cart stored under prefix for ident. When the identity's
// backend supersedes an earlier one (an anonymous session that just logged
// in), the earlier state is migrated first. Items whose product no longer
// resolves are skipped.
func (m *Manager) New(ctx context.Context, ident identity.Context, prefix string) (*Cart, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}

	backend, err := m.selector.Backend(ident)
	if err != nil {
		return nil, fmt.Errorf("select cart storage: %w", err)
	}
	migrated, err := storage.MigrateFromPredecessor(ctx, backend)
	if err != nil {
		return nil, fmt.Errorf("migrate cart: %w", err)
	}
	if migrated {
		m.logger.Printf("migrated cart state for account %s", ident.AccountID())
	}

	state, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cart state: %w", err)
	}
	slot := state[prefix]

	c := &Cart{
		storage:   backend,
		resolver:  m.resolver,
		owner:     ident,
		prefix:    prefix,
		metadata:  slot.Metadata,
		modifiers: m.modifiers,
		price:     m.price,
		logger:    m.logger,
	}
	if c.metadata == nil {
		c.metadata = make(map[string]any)
	}

	for _, rec := range slot.Items {
		if rec.Quantity <= 0 {
			continue
		}
		product, err := m.resolver.Resolve(ctx, rec.Product)
		if errors.Is(err, catalog.ErrProductNotFound) {
			m.logger.Printf("cart %s: skipping item %s, product %s no longer resolves", prefix, rec.ID, rec.Product)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("resolve product %s: %w", rec.Product, err)
		}
		if existing := c.FindOne(ByProduct(rec.Product), ByVariant(rec.Variant)); existing != nil {
			existing.Quantity += rec.Quantity
			continue
		}
		c.items = append(c.items, itemFromRecord(rec, product, m.price))
	}
	return c, nil
}
