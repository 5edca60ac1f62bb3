package service

import (
	"context"
	"fmt"

	"github.com/fjod/go_cart/sync-service/internal/domain"
)

// Recover returns the canonical cart data for the cart, or nil when no
// valid snapshot exists. It never touches the live cart store; callers
// apply the returned data themselves.
func (s *SyncService) Recover(ctx context.Context, sessionID, cartID string) (*domain.CartData, error) {
	if sessionID == "" || cartID == "" {
		return nil, fmt.Errorf("%w: session_id and cart_id are required", ErrValidation)
	}

	canonical, err := s.canonicalSnapshot(ctx, sessionID, cartID)
	if err != nil {
		return nil, err
	}
	if canonical == nil {
		return nil, nil
	}

	data := copyCartData(canonical.Data)
	return &data, nil
}

// RestoreFromSnapshot replaces the live cart's items with a snapshot's
// items. Full replace, not a merge.
func (s *SyncService) RestoreFromSnapshot(ctx context.Context, sessionID, snapshotID string) error {
	snapshot, err := s.snapshots.Get(ctx, snapshotID)
	if err != nil {
		return err
	}
	if snapshot.SessionID != sessionID {
		return fmt.Errorf("%w: snapshot %s", ErrWrongSession, snapshotID)
	}
	if snapshot.Expired(s.clock.Now()) {
		return fmt.Errorf("%w: snapshot %s", ErrExpired, snapshotID)
	}

	if err := s.carts.ReplaceItems(ctx, snapshot.CartID, snapshot.Data.Items); err != nil {
		return fmt.Errorf("failed to restore cart %s from snapshot: %w", snapshot.CartID, err)
	}

	return nil
}

// RestoreFromBackup replaces the live cart's items with a backup's items.
func (s *SyncService) RestoreFromBackup(ctx context.Context, sessionID, backupID string) error {
	backup, err := s.backupData(ctx, sessionID, backupID)
	if err != nil {
		return err
	}

	if err := s.carts.ReplaceItems(ctx, backup.CartID, backup.Data.Items); err != nil {
		return fmt.Errorf("failed to restore cart %s from backup: %w", backup.CartID, err)
	}

	return nil
}

// RestoreBackupData returns a backup's cart data without touching the live
// cart, for callers that want to inspect before restoring.
func (s *SyncService) RestoreBackupData(ctx context.Context, sessionID, backupID string) (*domain.CartData, error) {
	backup, err := s.backupData(ctx, sessionID, backupID)
	if err != nil {
		return nil, err
	}

	data := copyCartData(backup.Data)
	return &data, nil
}
