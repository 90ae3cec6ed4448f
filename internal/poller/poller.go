// Package poller empties carts once their checkout completes.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/fjod/go_cart/shopcart/internal/cart"
	"github.com/fjod/go_cart/shopcart/internal/identity"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic   = "checkout-outbox"
	DefaultGroupID = "cart-service-consumer"
)

// Reader is the subset of *kafka.Reader the poller uses.
type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Carts is satisfied by *cart.Manager.
type Carts interface {
	New(ctx context.Context, ident identity.Context, prefix string) (*cart.Cart, error)
}

type Poller struct {
	carts  Carts
	reader Reader
	logger *log.Logger
}

func NewReader(topic string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  DefaultGroupID,
		MaxBytes: 10e6, // 10MB
	})
}

func NewPoller(carts Carts, reader Reader, logger *log.Logger) *Poller {
	if logger == nil {
		logger = log.Default()
	}
	return &Poller{carts: carts, reader: reader, logger: logger}
}

// Run consumes checkout events until ctx is cancelled or the reader closes.
func (p *Poller) Run(ctx context.Context) {
	for {
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			p.logger.Printf("error reading message: %v", err)
			continue
		}
		if err := p.handle(ctx, m); err != nil {
			p.logger.Printf("checkout message at offset %d: %v", m.Offset, err)
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Printf("error closing reader: %v", err)
	}
}

type checkoutCompleted struct {
	CheckoutID string `json:"checkout_id"`
	UserID     string `json:"user_id"`
}

// handle empties every cart prefix of the account that checked out.
func (p *Poller) handle(ctx context.Context, m kafka.Message) error {
	var payload checkoutCompleted
	if err := json.Unmarshal(m.Value, &payload); err != nil {
		return fmt.Errorf("parse message: %w", err)
	}
	if payload.UserID == "" {
		return errors.New("missing user_id")
	}

	c, err := p.carts.New(ctx, identity.ForAccount(payload.UserID), "")
	if err != nil {
		return fmt.Errorf("load cart for %s: %w", payload.UserID, err)
	}
	if err := c.EmptyAll(ctx); err != nil {
		return fmt.Errorf("empty carts for %s: %w", payload.UserID, err)
	}
	p.logger.Printf("emptied carts for user %s after checkout %s", payload.UserID, payload.CheckoutID)
	return nil
}
