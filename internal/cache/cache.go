package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/sync-service/internal/domain"
)

// SnapshotCache holds the canonical (newest) snapshot per (session, cart)
// so a sync does not hit MongoDB for every conflict check.
type SnapshotCache interface {
	Get(ctx context.Context, sessionID, cartID string) (*domain.CartSnapshot, error)
	Set(ctx context.Context, sessionID, cartID string, snapshot *domain.CartSnapshot) error
	Delete(ctx context.Context, sessionID, cartID string) error
}

var ErrCacheMiss = errors.New("cache miss")
