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

type mongoSnapshotRepository struct {
	collection *mongo.Collection
}

func NewMongoSnapshotRepository(db *mongo.Database) SnapshotRepository {
	return &mongoSnapshotRepository{
		collection: db.Collection("cart_snapshots"),
	}
}

func (m *mongoSnapshotRepository) Insert(ctx context.Context, snapshot *domain.CartSnapshot) error {
	_, err := m.collection.InsertOne(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

func (m *mongoSnapshotRepository) Get(ctx context.Context, id string) (*domain.CartSnapshot, error) {
	var snapshot domain.CartSnapshot

	filter := bson.M{"_id": id}
	err := m.collection.FindOne(ctx, filter).Decode(&snapshot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get snapshot: %w", err)
	}

	return &snapshot, nil
}

func (m *mongoSnapshotRepository) Latest(ctx context.Context, sessionID, cartID string) (*domain.CartSnapshot, error) {
	var snapshot domain.CartSnapshot

	// Version breaks created_at ties: BSON datetimes are millisecond
	// precision, so consecutive snapshots can share a timestamp.
	filter := bson.M{"session_id": sessionID, "cart_id": cartID}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "version", Value: -1}})
	err := m.collection.FindOne(ctx, filter, opts).Decode(&snapshot)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSnapshotNotFound
		}
		return nil, fmt.Errorf("failed to get latest snapshot: %w", err)
	}

	return &snapshot, nil
}

func (m *mongoSnapshotRepository) List(ctx context.Context, sessionID, cartID string, limit int64) ([]domain.CartSnapshot, error) {
	filter := bson.M{"session_id": sessionID}
	if cartID != "" {
		filter["cart_id"] = cartID
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "version", Value: -1}})
	if limit > 0 {
		opts = opts.SetLimit(limit)
	}

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	var snapshots []domain.CartSnapshot
	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to decode snapshots: %w", err)
	}

	return snapshots, nil
}

func (m *mongoSnapshotRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	filter := bson.M{"expires_at": bson.M{"$lt": now}}
	result, err := m.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired snapshots: %w", err)
	}
	return result.DeletedCount, nil
}

func (m *mongoSnapshotRepository) DeleteByCart(ctx context.Context, sessionID, cartID string) (int64, error) {
	filter := bson.M{"session_id": sessionID, "cart_id": cartID}
	result, err := m.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshots for cart: %w", err)
	}
	return result.DeletedCount, nil
}

func (m *mongoSnapshotRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "session_id", Value: 1},
				{Key: "cart_id", Value: 1},
				{Key: "created_at", Value: -1},
				{Key: "version", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "expires_at", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create snapshot indexes: %w", err)
	}

	return nil
}
