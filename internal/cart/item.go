package cart

import (
	"maps"

	"github.com/fjod/go_cart/shopcart/internal/catalog"
	"github.com/fjod/go_cart/shopcart/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceFunc returns the unit price of item. It is the configurable accessor
// carts use to read prices from resolved products.
type PriceFunc func(product catalog.Product, item *Item) decimal.Decimal

func DefaultPrice(product catalog.Product, item *Item) decimal.Decimal {
	return product.Price(item.Record())
}

// Item is one distinct (product, variant) line. ID is a stable handle; matching
// and merging use Ref and Variant.
type Item struct {
	ID       string
	Quantity int
	Variant  domain.Variant
	Ref      domain.ProductRef
	Metadata map[string]any

	product catalog.Product
	price   PriceFunc
}

func newItem(product catalog.Product, variant domain.Variant, price PriceFunc) *Item {
	return &Item{
		ID:       uuid.NewString(),
		Variant:  variant,
		Ref:      product.Ref(),
		Metadata: make(map[string]any),
		product:  product,
		price:    price,
	}
}

func itemFromRecord(rec domain.ItemRecord, product catalog.Product, price PriceFunc) *Item {
	item := &Item{
		ID:       rec.ID,
		Quantity: rec.Quantity,
		Variant:  rec.Variant,
		Ref:      rec.Product,
		Metadata: rec.Metadata,
		product:  product,
		price:    price,
	}
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Metadata == nil {
		item.Metadata = make(map[string]any)
	}
	return item
}

func (i *Item) Product() catalog.Product {
	return i.product
}

func (i *Item) Price() decimal.Decimal {
	if i.product == nil {
		return decimal.Zero
	}
	if i.price == nil {
		return DefaultPrice(i.product, i)
	}
	return i.price(i.product, i)
}

func (i *Item) Subtotal() decimal.Decimal {
	return i.Price().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i *Item) Record() domain.ItemRecord {
	metadata := maps.Clone(i.Metadata)
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return domain.ItemRecord{
		ID:       i.ID,
		Quantity: i.Quantity,
		Variant:  i.Variant,
		Product:  i.Ref,
		Metadata: metadata,
	}
}
