package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fjod/go_cart/sync-service/internal/cache"
	"github.com/fjod/go_cart/sync-service/internal/domain"
	"github.com/fjod/go_cart/sync-service/internal/repository"
)

type fakeClock struct {
	m   sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.m.Lock()
	defer c.m.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.m.Lock()
	defer c.m.Unlock()
	c.now = c.now.Add(d)
}

type mockSnapshotRepo struct {
	m         sync.RWMutex
	snapshots []domain.CartSnapshot
	insertErr error
	latestErr error
}

func (r *mockSnapshotRepo) Insert(_ context.Context, snapshot *domain.CartSnapshot) error {
	r.m.Lock()
	defer r.m.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.snapshots = append(r.snapshots, *snapshot)
	return nil
}

func (r *mockSnapshotRepo) Get(_ context.Context, id string) (*domain.CartSnapshot, error) {
	r.m.RLock()
	defer r.m.RUnlock()
	for i := range r.snapshots {
		if r.snapshots[i].ID == id {
			snapshot := r.snapshots[i]
			return &snapshot, nil
		}
	}
	return nil, repository.ErrSnapshotNotFound
}

func (r *mockSnapshotRepo) Latest(_ context.Context, sessionID, cartID string) (*domain.CartSnapshot, error) {
	r.m.RLock()
	defer r.m.RUnlock()
	if r.latestErr != nil {
		return nil, r.latestErr
	}
	var latest *domain.CartSnapshot
	for i := range r.snapshots {
		s := r.snapshots[i]
		if s.SessionID != sessionID || s.CartID != cartID {
			continue
		}
		if latest == nil || s.CreatedAt.After(latest.CreatedAt) ||
			(s.CreatedAt.Equal(latest.CreatedAt) && s.Version > latest.Version) {
			copied := s
			latest = &copied
		}
	}
	if latest == nil {
		return nil, repository.ErrSnapshotNotFound
	}
	return latest, nil
}

func (r *mockSnapshotRepo) List(_ context.Context, sessionID, cartID string, limit int64) ([]domain.CartSnapshot, error) {
	r.m.RLock()
	defer r.m.RUnlock()
	var out []domain.CartSnapshot
	for i := len(r.snapshots) - 1; i >= 0; i-- {
		s := r.snapshots[i]
		if s.SessionID != sessionID {
			continue
		}
		if cartID != "" && s.CartID != cartID {
			continue
		}
		out = append(out, s)
		if limit > 0 && int64(len(out)) >= limit {
			break
		}
	}
	return out, nil
}

func (r *mockSnapshotRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.m.Lock()
	defer r.m.Unlock()
	var kept []domain.CartSnapshot
	var removed int64
	for _, s := range r.snapshots {
		if s.ExpiresAt.Before(now) {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	r.snapshots = kept
	return removed, nil
}

func (r *mockSnapshotRepo) DeleteByCart(_ context.Context, sessionID, cartID string) (int64, error) {
	r.m.Lock()
	defer r.m.Unlock()
	var kept []domain.CartSnapshot
	var removed int64
	for _, s := range r.snapshots {
		if s.SessionID == sessionID && s.CartID == cartID {
			removed++
			continue
		}
		kept = append(kept, s)
	}
	r.snapshots = kept
	return removed, nil
}

type mockBackupRepo struct {
	m         sync.RWMutex
	backups   []domain.CartBackup
	insertErr error
}

func (r *mockBackupRepo) Insert(_ context.Context, backup *domain.CartBackup) error {
	r.m.Lock()
	defer r.m.Unlock()
	if r.insertErr != nil {
		return r.insertErr
	}
	r.backups = append(r.backups, *backup)
	return nil
}

func (r *mockBackupRepo) Get(_ context.Context, id string) (*domain.CartBackup, error) {
	r.m.RLock()
	defer r.m.RUnlock()
	for i := range r.backups {
		if r.backups[i].ID == id {
			backup := r.backups[i]
			return &backup, nil
		}
	}
	return nil, repository.ErrBackupNotFound
}

func (r *mockBackupRepo) LatestAutomatic(_ context.Context, sessionID, cartID string) (*domain.CartBackup, error) {
	r.m.RLock()
	defer r.m.RUnlock()
	var latest *domain.CartBackup
	for i := range r.backups {
		b := r.backups[i]
		if b.SessionID != sessionID || b.CartID != cartID || b.BackupType != domain.BackupTypeAutomatic {
			continue
		}
		if latest == nil || b.CreatedAt.After(latest.CreatedAt) {
			copied := b
			latest = &copied
		}
	}
	if latest == nil {
		return nil, repository.ErrBackupNotFound
	}
	return latest, nil
}

func (r *mockBackupRepo) List(_ context.Context, sessionID, cartID string) ([]domain.CartBackup, error) {
	r.m.RLock()
	defer r.m.RUnlock()
	var out []domain.CartBackup
	for i := len(r.backups) - 1; i >= 0; i-- {
		b := r.backups[i]
		if b.SessionID == sessionID && b.CartID == cartID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *mockBackupRepo) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	r.m.Lock()
	defer r.m.Unlock()
	var kept []domain.CartBackup
	var removed int64
	for _, b := range r.backups {
		if b.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, b)
	}
	r.backups = kept
	return removed, nil
}

type mockRecordRepo struct {
	m         sync.RWMutex
	records   map[string]domain.DeviceSyncRecord
	upsertErr error
}

func newMockRecordRepo() *mockRecordRepo {
	return &mockRecordRepo{records: make(map[string]domain.DeviceSyncRecord)}
}

func recordKey(sessionID, deviceID string) string {
	return sessionID + "/" + deviceID
}

func (r *mockRecordRepo) Get(_ context.Context, sessionID, deviceID string) (*domain.DeviceSyncRecord, error) {
	r.m.RLock()
	defer r.m.RUnlock()
	record, ok := r.records[recordKey(sessionID, deviceID)]
	if !ok {
		return nil, repository.ErrSyncRecordNotFound
	}
	return &record, nil
}

func (r *mockRecordRepo) Upsert(_ context.Context, record *domain.DeviceSyncRecord) error {
	r.m.Lock()
	defer r.m.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.records[recordKey(record.SessionID, record.DeviceID)] = *record
	return nil
}

func (r *mockRecordRepo) DeleteBySession(_ context.Context, sessionID string) (int64, error) {
	r.m.Lock()
	defer r.m.Unlock()
	var removed int64
	for key, record := range r.records {
		if record.SessionID == sessionID {
			delete(r.records, key)
			removed++
		}
	}
	return removed, nil
}

func (r *mockRecordRepo) DeleteStale(_ context.Context, cutoff time.Time) (int64, error) {
	r.m.Lock()
	defer r.m.Unlock()
	var removed int64
	for key, record := range r.records {
		if record.LastSyncAt.Before(cutoff) {
			delete(r.records, key)
			removed++
		}
	}
	return removed, nil
}

type mockCartStore struct {
	m          sync.RWMutex
	items      map[string][]domain.CartItemData
	replaceErr error
}

func newMockCartStore() *mockCartStore {
	return &mockCartStore{items: make(map[string][]domain.CartItemData)}
}

func (s *mockCartStore) GetItems(_ context.Context, cartID string) ([]domain.CartItemData, error) {
	s.m.RLock()
	defer s.m.RUnlock()
	items, ok := s.items[cartID]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	return items, nil
}

func (s *mockCartStore) ReplaceItems(_ context.Context, cartID string, items []domain.CartItemData) error {
	s.m.Lock()
	defer s.m.Unlock()
	if s.replaceErr != nil {
		return s.replaceErr
	}
	s.items[cartID] = items
	return nil
}

// mockCache always misses so service tests exercise the repository path;
// Set/Delete are recorded for assertions.
type mockCache struct {
	m       sync.Mutex
	sets    int
	deletes int
}

func (c *mockCache) Get(context.Context, string, string) (*domain.CartSnapshot, error) {
	return nil, cache.ErrCacheMiss
}

func (c *mockCache) Set(context.Context, string, string, *domain.CartSnapshot) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.sets++
	return nil
}

func (c *mockCache) Delete(context.Context, string, string) error {
	c.m.Lock()
	defer c.m.Unlock()
	c.deletes++
	return nil
}

// storingCache behaves like the real cache (entries persist between calls)
// and can be told to fail the next N Set calls.
type storingCache struct {
	m        sync.Mutex
	entries  map[string]*domain.CartSnapshot
	failSets int
}

func newStoringCache() *storingCache {
	return &storingCache{entries: make(map[string]*domain.CartSnapshot)}
}

func (c *storingCache) Get(_ context.Context, sessionID, cartID string) (*domain.CartSnapshot, error) {
	c.m.Lock()
	defer c.m.Unlock()
	snapshot, ok := c.entries[sessionID+"/"+cartID]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	copied := *snapshot
	return &copied, nil
}

func (c *storingCache) Set(_ context.Context, sessionID, cartID string, snapshot *domain.CartSnapshot) error {
	c.m.Lock()
	defer c.m.Unlock()
	if c.failSets > 0 {
		c.failSets--
		return errors.New("redis set failed")
	}
	copied := *snapshot
	c.entries[sessionID+"/"+cartID] = &copied
	return nil
}

func (c *storingCache) Delete(_ context.Context, sessionID, cartID string) error {
	c.m.Lock()
	defer c.m.Unlock()
	delete(c.entries, sessionID+"/"+cartID)
	return nil
}

type testEnv struct {
	service   *SyncService
	snapshots *mockSnapshotRepo
	backups   *mockBackupRepo
	records   *mockRecordRepo
	carts     *mockCartStore
	cache     *mockCache
	clock     *fakeClock
}

func newTestEnv() *testEnv {
	snapshots := &mockSnapshotRepo{}
	backups := &mockBackupRepo{}
	records := newMockRecordRepo()
	carts := newMockCartStore()
	snapshotCache := &mockCache{}
	clock := newFakeClock()

	service := NewSyncService(snapshots, backups, records, carts, snapshotCache, DefaultConfig()).WithClock(clock)

	return &testEnv{
		service:   service,
		snapshots: snapshots,
		backups:   backups,
		records:   records,
		carts:     carts,
		cache:     snapshotCache,
		clock:     clock,
	}
}
