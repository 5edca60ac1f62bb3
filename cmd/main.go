package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	c "github.com/fjod/go_cart/sync-service/internal/cache"
	"github.com/fjod/go_cart/sync-service/internal/consumer"
	"github.com/fjod/go_cart/sync-service/internal/maintenance"
	"github.com/fjod/go_cart/sync-service/internal/repository"
	s "github.com/fjod/go_cart/sync-service/internal/service"
	"github.com/redis/go-redis/v9"
)

func main() {
	// Configuration
	mongoURI := getEnv("MONGO_URI", "mongodb://localhost:27017")
	mongoDBName := getEnv("MONGO_DB_NAME", "syncdb")
	kafkaBrokers := getEnv("KAFKA_BROKERS", "")

	// Set up MongoDB connection
	ctx := context.Background()
	mongoDB, err := repository.ConnectMongoDB(ctx, mongoURI, mongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	log.Printf("Connected to MongoDB at %s", mongoURI)

	snapshots := repository.NewMongoSnapshotRepository(mongoDB)
	backups := repository.NewMongoBackupRepository(mongoDB)
	records := repository.NewMongoSyncRecordRepository(mongoDB)
	carts := repository.NewMongoCartStore(mongoDB)

	if err := repository.EnsureIndexes(ctx, snapshots, backups, records); err != nil {
		log.Fatalf("Failed to create indexes: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed:", err)
	}
	log.Printf("Redis ping succeeded")

	cache := c.NewRedisCache(redisClient)
	service := s.NewSyncService(snapshots, backups, records, carts, cache, s.DefaultConfig())

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	poller := maintenance.NewPoller(service)
	go poller.Run(runCtx)
	log.Println("Maintenance poller started")

	if kafkaBrokers != "" {
		checkoutConsumer := consumer.NewConsumer(snapshots, records, cache, strings.Split(kafkaBrokers, ",")...)
		defer checkoutConsumer.Close()
		go checkoutConsumer.Run(runCtx)
		log.Printf("Checkout consumer started on %s", kafkaBrokers)
	}

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down sync service...")
	cancel()
	mongoDB.Client().Disconnect(ctx)
	log.Println("Sync service stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
