package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/fjod/go_cart/sync-service/internal/domain"
	"github.com/fjod/go_cart/sync-service/internal/repository"
	"github.com/google/uuid"
)

// backupIfDue copies the snapshot into the backup collection unless an
// automatic backup younger than the backup interval already exists. Backups
// are best-effort: failures are logged, never propagated into the sync path.
func (s *SyncService) backupIfDue(ctx context.Context, snapshot *domain.CartSnapshot) {
	now := s.clock.Now()

	latest, err := s.backups.LatestAutomatic(ctx, snapshot.SessionID, snapshot.CartID)
	if err != nil && !errors.Is(err, repository.ErrBackupNotFound) {
		log.Printf("backup check failed for cart %s: %v \n", snapshot.CartID, err)
		return
	}
	if latest != nil && now.Sub(latest.CreatedAt) < s.cfg.BackupInterval {
		return
	}

	backup := &domain.CartBackup{
		ID:         uuid.New().String(),
		SessionID:  snapshot.SessionID,
		CartID:     snapshot.CartID,
		UserID:     snapshot.UserID,
		Data:       snapshot.Data,
		BackupType: domain.BackupTypeAutomatic,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.BackupRetention),
		Metadata:   map[string]interface{}{"snapshot_id": snapshot.ID},
	}

	if err := s.backups.Insert(ctx, backup); err != nil {
		log.Printf("backup insert failed for cart %s: %v \n", snapshot.CartID, err)
	}
}

// ListBackups returns the cart's backup history, most recent first.
func (s *SyncService) ListBackups(ctx context.Context, sessionID, cartID string) ([]domain.CartBackup, error) {
	if sessionID == "" || cartID == "" {
		return nil, fmt.Errorf("%w: session_id and cart_id are required", ErrValidation)
	}
	return s.backups.List(ctx, sessionID, cartID)
}

// backupData loads a backup's cart data. A backup belonging to another
// session is reported as not found rather than leaking its existence.
func (s *SyncService) backupData(ctx context.Context, sessionID, backupID string) (*domain.CartBackup, error) {
	backup, err := s.backups.Get(ctx, backupID)
	if err != nil {
		return nil, err
	}
	if backup.SessionID != sessionID {
		return nil, repository.ErrBackupNotFound
	}
	if backup.Expired(s.clock.Now()) {
		return nil, fmt.Errorf("%w: backup %s", ErrExpired, backupID)
	}
	return backup, nil
}

// PurgeOldBackups deletes backups older than the retention window.
func (s *SyncService) PurgeOldBackups(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.cfg.BackupRetention)
	return s.backups.DeleteOlderThan(ctx, cutoff)
}
