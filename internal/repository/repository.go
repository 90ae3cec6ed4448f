package repository

import (
	"context"
	"time"

	"github.com/fjod/go_cart/shopcart/internal/domain"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CartRecord is the durable document holding every cart of one account.
type CartRecord struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	AccountID string             `bson:"account_id"`
	Carts     domain.State       `bson:"carts"`
	CreatedAt time.Time          `bson:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at"`
}

// CartRepository defines the interface for durable cart storage.
// Records are unique per account.
type CartRepository interface {
	Get(ctx context.Context, accountID string) (*CartRecord, error)
	// GetOrCreate returns the account record, creating an empty one if absent.
	GetOrCreate(ctx context.Context, accountID string) (*CartRecord, error)
	Upsert(ctx context.Context, accountID string, state domain.State) error
	Delete(ctx context.Context, accountID string) error
}
