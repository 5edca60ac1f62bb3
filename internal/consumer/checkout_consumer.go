package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	c "github.com/fjod/go_cart/sync-service/internal/cache"
	r "github.com/fjod/go_cart/sync-service/internal/repository"
	"github.com/segmentio/kafka-go"
)

// CheckoutCompletedEvent mirrors the Kafka payload published by the
// checkout-service outbox. A completed checkout empties the cart, so its
// snapshots and sync records are dead weight; backups are kept on purpose
// so an accidental post-checkout clear can still be recovered.
type CheckoutCompletedEvent struct {
	CheckoutID string `json:"checkout_id"`
	SessionID  string `json:"session_id"`
	CartID     string `json:"cart_id"`
	UserID     string `json:"user_id"`
}

type Consumer struct {
	snapshots r.SnapshotRepository
	records   r.SyncRecordRepository
	cache     c.SnapshotCache
	reader    *kafka.Reader
}

func NewConsumer(snapshots r.SnapshotRepository, records r.SyncRecordRepository, cache c.SnapshotCache, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    "checkout-outbox",
		GroupID:  "sync-service",
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{snapshots, records, cache, reader}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	err := c.reader.Close()
	if err != nil {
		fmt.Printf("error closing kafka reader: %v\n", err)
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		fmt.Printf("error reading message: %v\n", err)
		return
	}

	c.handle(ctx, m.Value)
}

func (c *Consumer) handle(ctx context.Context, payload []byte) {
	var event CheckoutCompletedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		fmt.Printf("error parsing message: %v\n", err)
		return
	}

	if event.SessionID == "" || event.CartID == "" {
		fmt.Println("missing session_id or cart_id in checkout event")
		return
	}

	count, err := c.snapshots.DeleteByCart(ctx, event.SessionID, event.CartID)
	if err != nil {
		fmt.Printf("failed to delete snapshots for cart %s: %v\n", event.CartID, err)
	} else if count > 0 {
		fmt.Printf("dropped %d snapshots for checked-out cart %s\n", count, event.CartID)
	}

	if _, err := c.records.DeleteBySession(ctx, event.SessionID); err != nil {
		fmt.Printf("failed to delete sync records for session %s: %v\n", event.SessionID, err)
	}

	if err := c.cache.Delete(ctx, event.SessionID, event.CartID); err != nil {
		fmt.Printf("failed to invalidate snapshot cache: %v\n", err)
	}
}
