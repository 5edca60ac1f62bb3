package maintenance

import (
	"context"
	"log"
	"time"

	s "github.com/fjod/go_cart/sync-service/internal/service"
)

// Poller runs the cleanup jobs on independent fixed intervals: expired
// snapshots, aged backups and stale sync records. Each job only touches
// rows past their TTL, so it cannot race an in-flight sync. Job failures
// are logged, never propagated to the scheduler.
type Poller struct {
	snapshotTick time.Duration
	backupTick   time.Duration
	recordTick   time.Duration
	service      *s.SyncService
}

func NewPoller(service *s.SyncService) *Poller {
	return &Poller{
		snapshotTick: time.Hour,
		backupTick:   6 * time.Hour,
		recordTick:   6 * time.Hour,
		service:      service,
	}
}

func (p *Poller) Run(ctx context.Context) {
	snapshotTicker := time.NewTicker(p.snapshotTick)
	backupTicker := time.NewTicker(p.backupTick)
	recordTicker := time.NewTicker(p.recordTick)
	defer snapshotTicker.Stop()
	defer backupTicker.Stop()
	defer recordTicker.Stop()
	for {
		select {
		case <-snapshotTicker.C:
			p.purgeSnapshots(ctx)
		case <-backupTicker.C:
			p.purgeBackups(ctx)
		case <-recordTicker.C:
			p.purgeSyncRecords(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *Poller) purgeSnapshots(ctx context.Context) {
	count, err := p.service.PurgeExpiredSnapshots(ctx)
	if err != nil {
		log.Printf("failed to purge expired snapshots: %v", err)
		return
	}
	if count > 0 {
		log.Printf("purged %d expired snapshots", count)
	}
}

func (p *Poller) purgeBackups(ctx context.Context) {
	count, err := p.service.PurgeOldBackups(ctx)
	if err != nil {
		log.Printf("failed to purge old backups: %v", err)
		return
	}
	if count > 0 {
		log.Printf("purged %d old backups", count)
	}
}

func (p *Poller) purgeSyncRecords(ctx context.Context) {
	count, err := p.service.PurgeStaleSyncRecords(ctx)
	if err != nil {
		log.Printf("failed to purge stale sync records: %v", err)
		return
	}
	if count > 0 {
		log.Printf("purged %d stale sync records", count)
	}
}
