package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return client.Database(database), nil
}

type indexCreator interface {
	CreateIndexes(ctx context.Context) error
}

// EnsureIndexes creates the indexes for any repositories that define them.
func EnsureIndexes(ctx context.Context, repos ...interface{}) error {
	for _, repo := range repos {
		creator, ok := repo.(indexCreator)
		if !ok {
			continue
		}
		if err := creator.CreateIndexes(ctx); err != nil {
			return err
		}
	}
	return nil
}
