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

type mongoSyncRecordRepository struct {
	collection *mongo.Collection
}

func NewMongoSyncRecordRepository(db *mongo.Database) SyncRecordRepository {
	return &mongoSyncRecordRepository{
		collection: db.Collection("device_sync_records"),
	}
}

func (m *mongoSyncRecordRepository) Get(ctx context.Context, sessionID, deviceID string) (*domain.DeviceSyncRecord, error) {
	var record domain.DeviceSyncRecord

	filter := bson.M{"session_id": sessionID, "device_id": deviceID}
	err := m.collection.FindOne(ctx, filter).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrSyncRecordNotFound
		}
		return nil, fmt.Errorf("failed to get sync record: %w", err)
	}

	return &record, nil
}

func (m *mongoSyncRecordRepository) Upsert(ctx context.Context, record *domain.DeviceSyncRecord) error {
	filter := bson.M{"session_id": record.SessionID, "device_id": record.DeviceID}
	update := bson.M{"$set": record}
	opts := options.Update().SetUpsert(true)

	_, err := m.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to upsert sync record: %w", err)
	}

	return nil
}

func (m *mongoSyncRecordRepository) DeleteBySession(ctx context.Context, sessionID string) (int64, error) {
	filter := bson.M{"session_id": sessionID}
	result, err := m.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete sync records for session: %w", err)
	}
	return result.DeletedCount, nil
}

func (m *mongoSyncRecordRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{"last_sync_at": bson.M{"$lt": cutoff}}
	result, err := m.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale sync records: %w", err)
	}
	return result.DeletedCount, nil
}

func (m *mongoSyncRecordRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "session_id", Value: 1},
				{Key: "device_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "last_sync_at", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create sync record indexes: %w", err)
	}

	return nil
}
