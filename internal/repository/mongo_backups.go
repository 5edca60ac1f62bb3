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

type mongoBackupRepository struct {
	collection *mongo.Collection
}

func NewMongoBackupRepository(db *mongo.Database) BackupRepository {
	return &mongoBackupRepository{
		collection: db.Collection("cart_backups"),
	}
}

func (m *mongoBackupRepository) Insert(ctx context.Context, backup *domain.CartBackup) error {
	_, err := m.collection.InsertOne(ctx, backup)
	if err != nil {
		return fmt.Errorf("failed to insert backup: %w", err)
	}
	return nil
}

func (m *mongoBackupRepository) Get(ctx context.Context, id string) (*domain.CartBackup, error) {
	var backup domain.CartBackup

	filter := bson.M{"_id": id}
	err := m.collection.FindOne(ctx, filter).Decode(&backup)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrBackupNotFound
		}
		return nil, fmt.Errorf("failed to get backup: %w", err)
	}

	return &backup, nil
}

func (m *mongoBackupRepository) LatestAutomatic(ctx context.Context, sessionID, cartID string) (*domain.CartBackup, error) {
	var backup domain.CartBackup

	filter := bson.M{
		"session_id":  sessionID,
		"cart_id":     cartID,
		"backup_type": domain.BackupTypeAutomatic,
	}
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: -1}})
	err := m.collection.FindOne(ctx, filter, opts).Decode(&backup)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrBackupNotFound
		}
		return nil, fmt.Errorf("failed to get latest automatic backup: %w", err)
	}

	return &backup, nil
}

func (m *mongoBackupRepository) List(ctx context.Context, sessionID, cartID string) ([]domain.CartBackup, error) {
	filter := bson.M{"session_id": sessionID, "cart_id": cartID}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})

	cursor, err := m.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}
	defer cursor.Close(ctx)

	var backups []domain.CartBackup
	if err := cursor.All(ctx, &backups); err != nil {
		return nil, fmt.Errorf("failed to decode backups: %w", err)
	}

	return backups, nil
}

func (m *mongoBackupRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	filter := bson.M{"created_at": bson.M{"$lt": cutoff}}
	result, err := m.collection.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old backups: %w", err)
	}
	return result.DeletedCount, nil
}

func (m *mongoBackupRepository) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "session_id", Value: 1},
				{Key: "cart_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: 1}},
		},
	}

	_, err := m.collection.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return fmt.Errorf("failed to create backup indexes: %w", err)
	}

	return nil
}
