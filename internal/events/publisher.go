// Package events publishes cart activity to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/fjod/go_cart/shopcart/internal/domain"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"
)

const (
	TypeItemAdded   = "cart.item_added"
	TypeItemRemoved = "cart.item_removed"
)

type Event struct {
	Type       string            `json:"event_type"`
	AccountID  string            `json:"account_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
	Prefix     string            `json:"prefix"`
	ItemID     string            `json:"item_id"`
	Product    domain.ProductRef `json:"product"`
	Variant    domain.Variant    `json:"variant,omitempty"`
	Quantity   int               `json:"quantity"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// key orders events per owner on a partition.
func (e Event) key() string {
	if e.AccountID != "" {
		return e.AccountID
	}
	return e.SessionID
}

// Writer is the subset of *kafka.Writer the publisher uses.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func NewWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

type Publisher struct {
	writer  Writer
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  *log.Logger
}

func NewPublisher(writer Writer, logger *log.Logger) *Publisher {
	if logger == nil {
		logger = log.Default()
	}
	p := &Publisher{writer: writer, logger: logger}
	p.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:    "cart-events",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Printf("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return p
}

// Publish writes e to Kafka. It fails fast with gobreaker.ErrOpenState while
// the broker is considered down.
func (p *Publisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(e.key()),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
	}
	_, err = p.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, p.writer.WriteMessages(ctx, msg)
	})
	return err
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
