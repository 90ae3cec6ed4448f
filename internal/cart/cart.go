package cart

import (
	"context"
	"errors"
	"fmt"
	"log"
	"maps"
	"slices"

	"github.com/fjod/go_cart/shopcart/internal/catalog"
	"github.com/fjod/go_cart/shopcart/internal/domain"
	"github.com/fjod/go_cart/shopcart/internal/identity"
	"github.com/fjod/go_cart/shopcart/internal/storage"
	"github.com/shopspring/decimal"
)

const DefaultPrefix = "default"

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrInvalidProduct  = errors.New("product has no reference")
)

// Resolver turns a persisted product reference into a live product.
// It returns catalog.ErrProductNotFound for references that no longer resolve.
type Resolver interface {
	Resolve(ctx context.Context, ref domain.ProductRef) (catalog.Product, error)
}

// Cart is the item collection and metadata stored under one prefix for one
// identity. A Cart is request scoped and not safe for concurrent use; build it
// with Manager.New. Metadata returns the live bag, so changes made from
// modifier hooks are written by the next save.
type Cart struct {
	storage   storage.Backend
	resolver  Resolver
	owner     identity.Context
	prefix    string
	items     []*Item
	metadata  map[string]any
	modifiers Pool
	price     PriceFunc
	logger    *log.Logger
}

func (c *Cart) Prefix() string           { return c.prefix }
func (c *Cart) Owner() identity.Context  { return c.owner }
func (c *Cart) Items() []*Item           { return slices.Clone(c.items) }
func (c *Cart) Len() int                 { return c.UniqueCount() }
func (c *Cart) UniqueCount() int         { return len(c.items) }
func (c *Cart) IsEmpty() bool            { return len(c.items) == 0 }
func (c *Cart) Metadata() map[string]any { return c.metadata }

// Count is the sum of all item quantities.
func (c *Cart) Count() int {
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (c *Cart) Products() []catalog.Product {
	products := make([]catalog.Product, 0, len(c.items))
	for _, item := range c.items {
		if item.product != nil {
			products = append(products, item.product)
		}
	}
	return products
}

func (c *Cart) Find(criteria ...Criterion) []*Item {
	var found []*Item
	for _, item := range c.items {
		if matches(item, criteria) {
			found = append(found, item)
		}
	}
	return found
}

// FindOne returns the first match in insertion order, or nil.
func (c *Cart) FindOne(criteria ...Criterion) *Item {
	for _, item := range c.items {
		if matches(item, criteria) {
			return item
		}
	}
	return nil
}

// VariantsGroupedByProduct groups consecutive items that share a product.
// When a product reappears after another product, its later run replaces the
// earlier one.
func (c *Cart) VariantsGroupedByProduct() map[domain.ProductRef][]*Item {
	groups := make(map[domain.ProductRef][]*Item)
	var (
		current domain.ProductRef
		run     []*Item
	)
	for _, item := range c.items {
		if run != nil && item.Ref != current {
			groups[current] = run
			run = nil
		}
		current = item.Ref
		run = append(run, item)
	}
	if run != nil {
		groups[current] = run
	}
	return groups
}

type addOptions struct {
	variant  any
	metadata map[string]any
	override bool
}

type AddOption func(*addOptions)

// WithVariant distinguishes otherwise identical selections of a product.
// Accepted values are strings, integers, json.Number, maps and string sets.
func WithVariant(v any) AddOption {
	return func(o *addOptions) { o.variant = v }
}

// WithMetadata is merged key by key into the item's metadata.
func WithMetadata(m map[string]any) AddOption {
	return func(o *addOptions) { o.metadata = m }
}

// OverrideQuantity sets the item quantity instead of adding to it.
func OverrideQuantity() AddOption {
	return func(o *addOptions) { o.override = true }
}

// Add puts quantity units of product into the cart, merging with the item that
// has the same product and variant, and saves the cart.
func (c *Cart) Add(ctx context.Context, product catalog.Product, quantity int, opts ...AddOption) (*Item, error) {
	var o addOptions
	for _, opt := range opts {
		opt(&o)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}
	if product == nil || product.Ref().IsZero() {
		return nil, ErrInvalidProduct
	}
	variant, err := domain.VariantOf(o.variant)
	if err != nil {
		return nil, err
	}

	item := c.FindOne(ByProduct(product.Ref()), ByVariant(variant))
	if item == nil {
		item = newItem(product, variant, c.price)
		c.items = append(c.items, item)
	} else {
		item.product = product
	}
	maps.Copy(item.Metadata, o.metadata)

	c.modifiers.beforeAdd(ctx, c, item, quantity)
	if o.override {
		item.Quantity = quantity
	} else {
		item.Quantity += quantity
	}
	c.modifiers.afterAdd(ctx, c, item)

	if err := c.Save(ctx); err != nil {
		return nil, err
	}
	return item, nil
}

// Increase adds quantity to the item with the given id. It returns nil without
// side effects when no such item exists.
func (c *Cart) Increase(ctx context.Context, itemID string, quantity int) (*Item, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}
	item := c.FindOne(ByID(itemID))
	if item == nil {
		return nil, nil
	}

	c.modifiers.beforeAdd(ctx, c, item, quantity)
	item.Quantity += quantity
	c.modifiers.afterAdd(ctx, c, item)

	if err := c.Save(ctx); err != nil {
		return nil, err
	}
	return item, nil
}

// Remove takes quantity units off the item with the given id; a quantity of
// zero or less removes the whole line. Items that reach zero are detached and
// returned with their final quantity. Remove returns nil when no such item
// exists, without running hooks.
func (c *Cart) Remove(ctx context.Context, itemID string, quantity int) (*Item, error) {
	item := c.FindOne(ByID(itemID))
	if item == nil {
		return nil, nil
	}

	c.modifiers.beforeRemove(ctx, c, item, quantity)
	if quantity > 0 {
		item.Quantity -= quantity
	} else {
		item.Quantity = 0
	}
	if item.Quantity <= 0 {
		c.items = slices.DeleteFunc(c.items, func(i *Item) bool { return i == item })
	}
	c.modifiers.afterRemove(ctx, c, item)

	if err := c.Save(ctx); err != nil {
		return nil, err
	}
	return item, nil
}

// Empty removes every item under this prefix and persists right away.
func (c *Cart) Empty(ctx context.Context, clearMetadata bool) error {
	c.items = nil
	if clearMetadata {
		c.metadata = make(map[string]any)
	}
	return c.write(ctx, []domain.ItemRecord{})
}

// EmptyAll clears every prefix stored for the owner, not only this one.
func (c *Cart) EmptyAll(ctx context.Context) error {
	if err := c.storage.Clear(ctx); err != nil {
		return fmt.Errorf("clear cart storage: %w", err)
	}
	c.items = nil
	c.metadata = make(map[string]any)
	return nil
}

func (c *Cart) UpdateMetadata(ctx context.Context, patch map[string]any) error {
	maps.Copy(c.metadata, patch)
	return c.Save(ctx)
}

// ClearMetadata deletes the given keys, or all metadata when none are given.
func (c *Cart) ClearMetadata(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		clear(c.metadata)
	}
	for _, k := range keys {
		delete(c.metadata, k)
	}
	return c.Save(ctx)
}

// Save re-resolves every item, drops the ones whose product is gone and
// writes this prefix back, leaving other prefixes in storage untouched.
func (c *Cart) Save(ctx context.Context) error {
	kept := make([]*Item, 0, len(c.items))
	records := make([]domain.ItemRecord, 0, len(c.items))
	for _, item := range c.items {
		if item.Quantity <= 0 {
			continue
		}
		product, err := c.resolver.Resolve(ctx, item.Ref)
		if errors.Is(err, catalog.ErrProductNotFound) {
			c.logger.Printf("cart %s: dropping item %s, product %s no longer resolves", c.prefix, item.ID, item.Ref)
			continue
		}
		if err != nil {
			return fmt.Errorf("resolve product %s: %w", item.Ref, err)
		}
		item.product = product
		kept = append(kept, item)
		records = append(records, item.Record())
	}
	c.items = kept
	return c.write(ctx, records)
}

func (c *Cart) write(ctx context.Context, records []domain.ItemRecord) error {
	state, err := c.storage.Load(ctx)
	if err != nil {
		return fmt.Errorf("load cart state: %w", err)
	}
	if state == nil {
		state = domain.State{}
	}
	state[c.prefix] = domain.Slot{Items: records, Metadata: maps.Clone(c.metadata)}
	if err := c.storage.Save(ctx, state); err != nil {
		return fmt.Errorf("save cart state: %w", err)
	}
	return nil
}
