package service

import (
	"sync"
	"time"

	"github.com/fjod/go_cart/sync-service/internal/cache"
	"github.com/fjod/go_cart/sync-service/internal/domain"
	"github.com/fjod/go_cart/sync-service/internal/repository"
	"golang.org/x/sync/singleflight"
)

// Clock is injected so TTL logic is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Config struct {
	SnapshotTTL         time.Duration // how long a snapshot stays canonical
	BackupRetention     time.Duration // how long backups are kept
	BackupInterval      time.Duration // minimum gap between automatic backups
	SyncRecordRetention time.Duration // sync records idle longer than this are stale
	OpTimeout           time.Duration // bound on a single sync/resolve call
}

func DefaultConfig() Config {
	return Config{
		SnapshotTTL:         7 * 24 * time.Hour,
		BackupRetention:     30 * 24 * time.Hour,
		BackupInterval:      24 * time.Hour,
		SyncRecordRetention: 30 * 24 * time.Hour,
		OpTimeout:           5 * time.Second,
	}
}

// SyncRequest is one device's submission of its cart state.
type SyncRequest struct {
	SessionID string          `json:"session_id"`
	DeviceID  string          `json:"device_id"`
	CartID    string          `json:"cart_id"`
	UserID    string          `json:"user_id,omitempty"`
	Version   int64           `json:"version"` // snapshot version the device last saw
	Data      domain.CartData `json:"data"`
}

// SyncResult is the outcome of a sync or resolve call. Conflicts are a
// reported outcome, not an error: Status is CONFLICT and Conflicts is
// populated while the returned error stays nil.
type SyncResult struct {
	Status    domain.SyncStatus       `json:"status"`
	CartData  *domain.CartData        `json:"cart_data,omitempty"`
	Version   int64                   `json:"version,omitempty"`
	Conflicts []domain.ConflictChange `json:"conflicts,omitempty"`
}

type SyncService struct {
	snapshots repository.SnapshotRepository
	backups   repository.BackupRepository
	records   repository.SyncRecordRepository
	carts     repository.CartStore
	cache     cache.SnapshotCache
	clock     Clock
	cfg       Config
	sfg       singleflight.Group // Prevents cache stampede on canonical reads
	locks     cartLocks
}

func NewSyncService(
	snapshots repository.SnapshotRepository,
	backups repository.BackupRepository,
	records repository.SyncRecordRepository,
	carts repository.CartStore,
	snapshotCache cache.SnapshotCache,
	cfg Config,
) *SyncService {
	return &SyncService{
		snapshots: snapshots,
		backups:   backups,
		records:   records,
		carts:     carts,
		cache:     snapshotCache,
		clock:     systemClock{},
		cfg:       cfg,
	}
}

// WithClock replaces the time source, for tests.
func (s *SyncService) WithClock(clock Clock) *SyncService {
	s.clock = clock
	return s
}

// cartLocks serializes read-modify-write sequences per (session, cart).
// Two concurrent syncs of the same cart must not both read the same latest
// snapshot and each write a successor, or one device's write is lost.
type cartLocks struct {
	m sync.Map
}

func (l *cartLocks) lock(sessionID, cartID string) func() {
	key := sessionID + "/" + cartID
	v, _ := l.m.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
