package events

import (
	"context"
	"log"
	"time"

	"github.com/fjod/go_cart/shopcart/internal/cart"
)

// Modifier publishes an event after every add and remove.
type Modifier struct {
	cart.NopModifier
	publisher *Publisher
	now       func() time.Time
	logger    *log.Logger
}

func NewModifier(publisher *Publisher, logger *log.Logger) *Modifier {
	if logger == nil {
		logger = log.Default()
	}
	return &Modifier{publisher: publisher, now: time.Now, logger: logger}
}

func (m *Modifier) AfterAdd(ctx context.Context, c *cart.Cart, item *cart.Item) {
	m.publish(ctx, TypeItemAdded, c, item)
}

func (m *Modifier) AfterRemove(ctx context.Context, c *cart.Cart, item *cart.Item) {
	m.publish(ctx, TypeItemRemoved, c, item)
}

func (m *Modifier) publish(ctx context.Context, eventType string, c *cart.Cart, item *cart.Item) {
	e := Event{
		Type:       eventType,
		Prefix:     c.Prefix(),
		ItemID:     item.ID,
		Product:    item.Ref,
		Variant:    item.Variant,
		Quantity:   item.Quantity,
		OccurredAt: m.now().UTC(),
	}
	if owner := c.Owner(); owner != nil {
		e.AccountID = owner.AccountID()
		e.SessionID = owner.SessionID()
	}
	if err := m.publisher.Publish(ctx, e); err != nil {
		m.logger.Printf("failed to publish %s for item %s: %v", eventType, item.ID, err)
	}
}
