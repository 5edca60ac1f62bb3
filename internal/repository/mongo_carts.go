package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fjod/go_cart/sync-service/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// liveCart mirrors the cart-service's document shape; the sync-service
// only ever reads the items and replaces them wholesale during recovery.
type liveCart struct {
	CartID    string                `bson:"cart_id"`
	Items     []domain.CartItemData `bson:"items"`
	UpdatedAt time.Time             `bson:"updated_at"`
}

type mongoCartStore struct {
	collection *mongo.Collection
}

func NewMongoCartStore(db *mongo.Database) CartStore {
	return &mongoCartStore{
		collection: db.Collection("carts"),
	}
}

func (m *mongoCartStore) GetItems(ctx context.Context, cartID string) ([]domain.CartItemData, error) {
	var cart liveCart

	filter := bson.M{"cart_id": cartID}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart items: %w", err)
	}

	return cart.Items, nil
}

func (m *mongoCartStore) ReplaceItems(ctx context.Context, cartID string, items []domain.CartItemData) error {
	filter := bson.M{"cart_id": cartID}
	update := bson.M{"$set": bson.M{
		"cart_id":    cartID,
		"items":      items,
		"updated_at": time.Now(),
	}}
	opts := options.Update().SetUpsert(true)

	_, err := m.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to replace cart items: %w", err)
	}

	return nil
}
