package cart

import "github.com/fjod/go_cart/shopcart/internal/domain"

// Criterion matches one attribute of an item. Attributes without a criterion
// are wildcards.
type Criterion func(item *Item) bool

func ByID(id string) Criterion {
	return func(item *Item) bool { return item.ID == id }
}

func ByProduct(ref domain.ProductRef) Criterion {
	return func(item *Item) bool { return item.Ref == ref }
}

func ByVariant(v domain.Variant) Criterion {
	return func(item *Item) bool { return item.Variant == v }
}

func ByQuantity(q int) Criterion {
	return func(item *Item) bool { return item.Quantity == q }
}

func matches(item *Item, criteria []Criterion) bool {
	for _, match := range criteria {
		if !match(item) {
			return false
		}
	}
	return true
}
