package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"reflect"
	"time"

	"github.com/fjod/go_cart/sync-service/internal/domain"
	"github.com/fjod/go_cart/sync-service/internal/repository"
	"github.com/google/uuid"
)

// SyncCart reconciles one device's submitted cart state with the canonical
// snapshot. With no divergence the state is accepted and persisted as a new
// snapshot; with divergence the sync record turns CONFLICT and the change
// list comes back in the result, not as an error.
func (s *SyncService) SyncCart(ctx context.Context, req SyncRequest) (SyncResult, error) {
	if err := validateSyncRequest(req); err != nil {
		return SyncResult{Status: domain.SyncStatusError}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()

	unlock := s.locks.lock(req.SessionID, req.CartID)
	defer unlock()

	record, err := s.loadOrCreateRecord(ctx, req)
	if err != nil {
		return SyncResult{Status: domain.SyncStatusError}, err
	}

	canonical, err := s.canonicalSnapshot(ctx, req.SessionID, req.CartID)
	if err != nil {
		s.markError(record)
		return SyncResult{Status: domain.SyncStatusError}, fmt.Errorf("failed to load canonical snapshot: %w", err)
	}

	var existing *domain.CartData
	if canonical != nil {
		existing = &canonical.Data
	}

	changes := DetectConflicts(existing, req.Data)
	if len(changes) > 0 {
		record.Status = domain.SyncStatusConflict
		record.Conflicts = changes
		record.PendingData = &req.Data
		record.ConflictResolution = nil
		record.LastSyncAt = s.clock.Now()
		if err := s.records.Upsert(ctx, record); err != nil {
			return SyncResult{Status: domain.SyncStatusError}, fmt.Errorf("failed to persist conflict record: %w", err)
		}
		return SyncResult{Status: domain.SyncStatusConflict, Conflicts: changes}, nil
	}

	// An unchanged resubmission is a no-op: acknowledge it without
	// minting a new version.
	if existing != nil && cartDataUnchanged(*existing, req.Data) {
		record.Status = domain.SyncStatusSynced
		record.Conflicts = nil
		record.PendingData = nil
		record.LastSyncAt = s.clock.Now()
		if err := s.records.Upsert(ctx, record); err != nil {
			return SyncResult{Status: domain.SyncStatusError}, fmt.Errorf("failed to persist sync record: %w", err)
		}
		return SyncResult{
			Status:   domain.SyncStatusSynced,
			CartData: existing,
			Version:  canonical.Version,
		}, nil
	}

	snapshot, err := s.createSnapshot(ctx, req.SessionID, req.CartID, req.UserID, req.Data)
	if err != nil {
		s.markError(record)
		return SyncResult{Status: domain.SyncStatusError}, err
	}

	s.backupIfDue(ctx, snapshot)

	record.Status = domain.SyncStatusSynced
	record.Conflicts = nil
	record.PendingData = nil
	record.LastSyncAt = s.clock.Now()
	if err := s.records.Upsert(ctx, record); err != nil {
		return SyncResult{Status: domain.SyncStatusError}, fmt.Errorf("failed to persist sync record: %w", err)
	}

	return SyncResult{
		Status:   domain.SyncStatusSynced,
		CartData: &snapshot.Data,
		Version:  snapshot.Version,
	}, nil
}

// ResolveConflicts settles a previously reported conflict with the chosen
// strategy and persists the reconciled state as a new snapshot.
func (s *SyncService) ResolveConflicts(ctx context.Context, sessionID, deviceID string, strategy domain.Strategy, decisions []domain.ConflictChange) (SyncResult, error) {
	if sessionID == "" || deviceID == "" {
		return SyncResult{Status: domain.SyncStatusError}, fmt.Errorf("%w: session_id and device_id are required", ErrValidation)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.OpTimeout)
	defer cancel()

	record, err := s.records.Get(ctx, sessionID, deviceID)
	if err != nil {
		return SyncResult{Status: domain.SyncStatusError}, err
	}
	if record.Status != domain.SyncStatusConflict {
		return SyncResult{Status: record.Status}, fmt.Errorf("%w: record is %s", ErrInvalidState, record.Status)
	}

	unlock := s.locks.lock(sessionID, record.CartID)
	defer unlock()

	// Re-read under the lock: a concurrent resolve may have settled this
	// conflict between the check above and acquiring the lock.
	record, err = s.records.Get(ctx, sessionID, deviceID)
	if err != nil {
		return SyncResult{Status: domain.SyncStatusError}, err
	}
	if record.Status != domain.SyncStatusConflict {
		return SyncResult{Status: record.Status}, fmt.Errorf("%w: record is %s", ErrInvalidState, record.Status)
	}

	canonical, err := s.canonicalSnapshot(ctx, sessionID, record.CartID)
	if err != nil {
		s.markError(record)
		return SyncResult{Status: domain.SyncStatusError}, fmt.Errorf("failed to load canonical snapshot: %w", err)
	}

	var existing domain.CartData
	if canonical != nil {
		existing = canonical.Data
	}
	incoming := existing
	if record.PendingData != nil {
		incoming = *record.PendingData
	}

	resolved, err := Resolve(strategy, existing, incoming, decisions)
	if err != nil {
		return SyncResult{Status: domain.SyncStatusError}, err
	}

	snapshot, err := s.createSnapshot(ctx, sessionID, record.CartID, "", resolved.Data)
	if err != nil {
		s.markError(record)
		return SyncResult{Status: domain.SyncStatusError}, err
	}

	s.backupIfDue(ctx, snapshot)

	record.Status = domain.SyncStatusSynced
	record.Conflicts = nil
	record.PendingData = nil
	record.ConflictResolution = &domain.ConflictResolution{
		Strategy:   strategy,
		Changes:    resolved.Applied,
		ResolvedAt: s.clock.Now(),
	}
	record.LastSyncAt = s.clock.Now()
	if err := s.records.Upsert(ctx, record); err != nil {
		return SyncResult{Status: domain.SyncStatusError}, fmt.Errorf("failed to persist resolved record: %w", err)
	}

	return SyncResult{
		Status:   domain.SyncStatusSynced,
		CartData: &snapshot.Data,
		Version:  snapshot.Version,
	}, nil
}

// GetSyncStatus returns the device's sync record.
func (s *SyncService) GetSyncStatus(ctx context.Context, sessionID, deviceID string) (*domain.DeviceSyncRecord, error) {
	if sessionID == "" || deviceID == "" {
		return nil, fmt.Errorf("%w: session_id and device_id are required", ErrValidation)
	}
	return s.records.Get(ctx, sessionID, deviceID)
}

// PurgeStaleSyncRecords removes records idle longer than the retention
// window.
func (s *SyncService) PurgeStaleSyncRecords(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().Add(-s.cfg.SyncRecordRetention)
	return s.records.DeleteStale(ctx, cutoff)
}

// cartDataUnchanged compares everything but LastModified, which moves on
// every client touch even when nothing else did.
func cartDataUnchanged(existing, incoming domain.CartData) bool {
	return reflect.DeepEqual(existing.Items, incoming.Items) &&
		existing.Totals == incoming.Totals &&
		reflect.DeepEqual(existing.Metadata, incoming.Metadata)
}

func validateSyncRequest(req SyncRequest) error {
	if req.SessionID == "" || req.DeviceID == "" {
		return fmt.Errorf("%w: session_id and device_id are required", ErrValidation)
	}
	if req.CartID == "" {
		return fmt.Errorf("%w: cart_id is required", ErrValidation)
	}
	return nil
}

func (s *SyncService) loadOrCreateRecord(ctx context.Context, req SyncRequest) (*domain.DeviceSyncRecord, error) {
	record, err := s.records.Get(ctx, req.SessionID, req.DeviceID)
	if err == nil {
		record.CartID = req.CartID
		return record, nil
	}
	if !errors.Is(err, repository.ErrSyncRecordNotFound) {
		return nil, fmt.Errorf("failed to load sync record: %w", err)
	}

	return &domain.DeviceSyncRecord{
		ID:        uuid.New().String(),
		SessionID: req.SessionID,
		DeviceID:  req.DeviceID,
		CartID:    req.CartID,
		Status:    domain.SyncStatusPending,
	}, nil
}

// markError flags the record after a persistence failure so the device
// knows to resubmit. Best-effort on a fresh context: the failing call's
// context may already be dead.
func (s *SyncService) markError(record *domain.DeviceSyncRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	record.Status = domain.SyncStatusError
	record.LastSyncAt = s.clock.Now()
	if err := s.records.Upsert(ctx, record); err != nil {
		log.Printf("failed to mark sync record %s as errored: %v \n", record.ID, err)
	}
}
