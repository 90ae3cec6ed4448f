package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/shopcart/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrCartNotFound = errors.New("cart not found")

type mongoRepository struct {
	collection *mongo.Collection
}

func (m mongoRepository) Get(ctx context.Context, accountID string) (*CartRecord, error) {
	var record CartRecord

	filter := bson.M{"account_id": accountID}
	err := m.collection.FindOne(ctx, filter).Decode(&record)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return normalize(&record), nil
}

func (m mongoRepository) GetOrCreate(ctx context.Context, accountID string) (*CartRecord, error) {
	now := time.Now()

	filter := bson.M{"account_id": accountID}
	update := bson.M{
		"$setOnInsert": bson.M{
			"carts":      domain.State{},
			"created_at": now,
			"updated_at": now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var record CartRecord
	err := m.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&record)
	if mongo.IsDuplicateKeyError(err) {
		// a concurrent request inserted the record first
		return m.Get(ctx, accountID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get or create cart: %w", err)
	}

	return normalize(&record), nil
}

func (m mongoRepository) Upsert(ctx context.Context, accountID string, state domain.State) error {
	if state == nil {
		state = domain.State{}
	}
	now := time.Now()

	filter := bson.M{"account_id": accountID}
	update := bson.M{
		"$set": bson.M{
			"carts":      state,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.Update().SetUpsert(true)

	_, err := m.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert cart: %w", err)
	}

	return nil
}

func (m mongoRepository) Delete(ctx context.Context, accountID string) error {
	filter := bson.M{"account_id": accountID}

	result, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (m *mongoRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "account_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func normalize(record *CartRecord) *CartRecord {
	if record.Carts == nil {
		record.Carts = domain.State{}
	}
	return record
}

// NewMongoRepository returns the repository and makes sure its indexes exist.
func NewMongoRepository(ctx context.Context, db *mongo.Database) (CartRepository, error) {
	repo := &mongoRepository{
		collection: db.Collection("carts"),
	}
	if err := repo.CreateIndexes(ctx); err != nil {
		return nil, err
	}
	return repo, nil
}
