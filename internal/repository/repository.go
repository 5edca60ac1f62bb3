package repository

import (
	"context"
	"errors"
	"time"

	"github.com/fjod/go_cart/sync-service/internal/domain"
)

var (
	ErrSnapshotNotFound   = errors.New("snapshot not found")
	ErrBackupNotFound     = errors.New("backup not found")
	ErrSyncRecordNotFound = errors.New("sync record not found")
	ErrCartNotFound       = errors.New("cart not found")
)

// SnapshotRepository persists immutable cart snapshots. Latest returns the
// newest snapshot by created_at regardless of expiry; TTL policy belongs to
// the service layer so an expired-but-present snapshot still anchors the
// version sequence.
type SnapshotRepository interface {
	Insert(ctx context.Context, snapshot *domain.CartSnapshot) error
	Get(ctx context.Context, id string) (*domain.CartSnapshot, error)
	Latest(ctx context.Context, sessionID, cartID string) (*domain.CartSnapshot, error)
	List(ctx context.Context, sessionID, cartID string, limit int64) ([]domain.CartSnapshot, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteByCart(ctx context.Context, sessionID, cartID string) (int64, error)
}

// BackupRepository persists longer-retention backups.
type BackupRepository interface {
	Insert(ctx context.Context, backup *domain.CartBackup) error
	Get(ctx context.Context, id string) (*domain.CartBackup, error)
	LatestAutomatic(ctx context.Context, sessionID, cartID string) (*domain.CartBackup, error)
	List(ctx context.Context, sessionID, cartID string) ([]domain.CartBackup, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SyncRecordRepository persists per-(session, device) sync records.
type SyncRecordRepository interface {
	Get(ctx context.Context, sessionID, deviceID string) (*domain.DeviceSyncRecord, error)
	Upsert(ctx context.Context, record *domain.DeviceSyncRecord) error
	DeleteBySession(ctx context.Context, sessionID string) (int64, error)
	DeleteStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// CartStore is the live, mutable cart. Only the recovery restore paths
// write through it, and always as a full item replace.
type CartStore interface {
	GetItems(ctx context.Context, cartID string) ([]domain.CartItemData, error)
	ReplaceItems(ctx context.Context, cartID string, items []domain.CartItemData) error
}
