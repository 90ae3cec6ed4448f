package cart

import (
	"context"
	"log"
)

// Modifier observes add and remove operations. Hooks may change the item or
// the cart metadata but must not call Add, Increase or Remove themselves.
type Modifier interface {
	BeforeAdd(ctx context.Context, cart *Cart, item *Item, quantity int)
	AfterAdd(ctx context.Context, cart *Cart, item *Item)
	// BeforeRemove receives the requested quantity, 0 meaning the whole line.
	BeforeRemove(ctx context.Context, cart *Cart, item *Item, quantity int)
	AfterRemove(ctx context.Context, cart *Cart, item *Item)
}

// NopModifier implements every hook as a no-op; embed it to override a subset.
type NopModifier struct{}

func (NopModifier) BeforeAdd(context.Context, *Cart, *Item, int)    {}
func (NopModifier) AfterAdd(context.Context, *Cart, *Item)          {}
func (NopModifier) BeforeRemove(context.Context, *Cart, *Item, int) {}
func (NopModifier) AfterRemove(context.Context, *Cart, *Item)       {}

// Pool is the ordered list of modifiers a cart runs.
type Pool []Modifier

func NewPool(modifiers ...Modifier) Pool {
	pool := make(Pool, 0, len(modifiers))
	for _, m := range modifiers {
		if m != nil {
			pool = append(pool, m)
		}
	}
	return pool
}

func (p Pool) beforeAdd(ctx context.Context, c *Cart, item *Item, quantity int) {
	for _, m := range p {
		m.BeforeAdd(ctx, c, item, quantity)
	}
}

func (p Pool) afterAdd(ctx context.Context, c *Cart, item *Item) {
	for _, m := range p {
		m.AfterAdd(ctx, c, item)
	}
}

func (p Pool) beforeRemove(ctx context.Context, c *Cart, item *Item, quantity int) {
	for _, m := range p {
		m.BeforeRemove(ctx, c, item, quantity)
	}
}

func (p Pool) afterRemove(ctx context.Context, c *Cart, item *Item) {
	for _, m := range p {
		m.AfterRemove(ctx, c, item)
	}
}

type LoggingModifier struct {
	NopModifier
	logger *log.Logger
}

func NewLoggingModifier(logger *log.Logger) *LoggingModifier {
	if logger == nil {
		logger = log.Default()
	}
	return &LoggingModifier{logger: logger}
}

func (m *LoggingModifier) AfterAdd(_ context.Context, c *Cart, item *Item) {
	m.logger.Printf("cart %s: item %s (%s %q) now has quantity %d", c.Prefix(), item.ID, item.Ref, item.Variant, item.Quantity)
}

func (m *LoggingModifier) AfterRemove(_ context.Context, c *Cart, item *Item) {
	m.logger.Printf("cart %s: item %s (%s %q) reduced to quantity %d", c.Prefix(), item.ID, item.Ref, item.Variant, item.Quantity)
}
