package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/fjod/go_cart/sync-service/internal/cache"
	"github.com/fjod/go_cart/sync-service/internal/domain"
	"github.com/fjod/go_cart/sync-service/internal/repository"
	"github.com/google/uuid"
)

// latestSnapshot returns the newest snapshot for the cart regardless of
// expiry (an expired snapshot still anchors version numbering), or nil when
// the cart has never been snapshotted. Reads go through the cache with
// singleflight so concurrent syncs of a hot cart hit MongoDB once.
func (s *SyncService) latestSnapshot(ctx context.Context, sessionID, cartID string) (*domain.CartSnapshot, error) {
	key := sessionID + "/" + cartID
	v, err, _ := s.sfg.Do(key, func() (interface{}, error) {
		snapshot, err := s.cache.Get(ctx, sessionID, cartID)
		if err == nil {
			return snapshot, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("snapshot cache get error: %v \n", err) // log cache error but continue
		}

		snapshot, errGet := s.snapshots.Latest(ctx, sessionID, cartID)
		if errGet != nil {
			if errors.Is(errGet, repository.ErrSnapshotNotFound) {
				return (*domain.CartSnapshot)(nil), nil
			}
			return nil, errGet
		}

		if errSet := s.cache.Set(ctx, sessionID, cartID, snapshot); errSet != nil {
			log.Printf("snapshot cache set error: %v \n", errSet)
		}

		return snapshot, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.CartSnapshot), nil
}

// canonicalSnapshot is latestSnapshot filtered through the TTL: an expired
// snapshot is treated as absent but never deleted here, maintenance purges
// it later.
func (s *SyncService) canonicalSnapshot(ctx context.Context, sessionID, cartID string) (*domain.CartSnapshot, error) {
	snapshot, err := s.latestSnapshot(ctx, sessionID, cartID)
	if err != nil {
		return nil, err
	}
	if snapshot == nil || snapshot.Expired(s.clock.Now()) {
		return nil, nil
	}
	return snapshot, nil
}

// createSnapshot appends a new immutable snapshot with the next version
// number. Callers must hold the (session, cart) lock.
func (s *SyncService) createSnapshot(ctx context.Context, sessionID, cartID, userID string, data domain.CartData) (*domain.CartSnapshot, error) {
	previous, err := s.latestSnapshot(ctx, sessionID, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to read previous snapshot: %w", err)
	}

	var version int64 = 1
	if previous != nil {
		version = previous.Version + 1
	}

	now := s.clock.Now()
	snapshot := &domain.CartSnapshot{
		ID:        uuid.New().String(),
		SessionID: sessionID,
		CartID:    cartID,
		UserID:    userID,
		Version:   version,
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.SnapshotTTL),
	}

	if err := s.snapshots.Insert(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to persist snapshot: %w", err)
	}

	if errSet := s.cache.Set(ctx, sessionID, cartID, snapshot); errSet != nil {
		log.Printf("snapshot cache set error: %v \n", errSet)
		// The cache still holds the previous snapshot; evict it so the
		// next read falls through to MongoDB instead of a stale canonical.
		if errDel := s.cache.Delete(ctx, sessionID, cartID); errDel != nil {
			log.Printf("snapshot cache delete error: %v \n", errDel)
		}
	}

	return snapshot, nil
}

// ListSnapshots returns the session's snapshots, most recent first. An empty
// cartID lists across all of the session's carts.
func (s *SyncService) ListSnapshots(ctx context.Context, sessionID, cartID string, limit int64) ([]domain.CartSnapshot, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("%w: session_id is required", ErrValidation)
	}
	return s.snapshots.List(ctx, sessionID, cartID, limit)
}

// PurgeExpiredSnapshots removes snapshots past their TTL. Idempotent; an
// empty result is not an error.
func (s *SyncService) PurgeExpiredSnapshots(ctx context.Context) (int64, error) {
	return s.snapshots.DeleteExpired(ctx, s.clock.Now())
}
