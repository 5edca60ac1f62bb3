package domain

import "time"

type SyncStatus string

const (
	SyncStatusPending  SyncStatus = "PENDING"
	SyncStatusSynced   SyncStatus = "SYNCED"
	SyncStatusConflict SyncStatus = "CONFLICT"
	SyncStatusError    SyncStatus = "ERROR"
)

// String representation (for logging)
func (s SyncStatus) String() string {
	return string(s)
}

// ConflictResolution records how a conflicted sync was settled.
type ConflictResolution struct {
	Strategy   Strategy         `bson:"strategy" json:"strategy"`
	Changes    []ConflictChange `bson:"changes" json:"changes"`
	ResolvedAt time.Time        `bson:"resolved_at" json:"resolved_at"`
}

// DeviceSyncRecord tracks the sync state of one device within a session.
// A CONFLICT record only leaves that state through an explicit resolve call.
type DeviceSyncRecord struct {
	ID         string           `bson:"_id" json:"id"`
	SessionID  string           `bson:"session_id" json:"session_id"`
	DeviceID   string           `bson:"device_id" json:"device_id"`
	CartID     string           `bson:"cart_id" json:"cart_id"`
	Status     SyncStatus       `bson:"status" json:"status"`
	LastSyncAt time.Time        `bson:"last_sync_at" json:"last_sync_at"`
	Conflicts  []ConflictChange `bson:"conflicts,omitempty" json:"conflicts,omitempty"`
	// PendingData holds the device's submitted state while the record is
	// conflicted, so a later resolve call has both sides.
	PendingData        *CartData              `bson:"pending_data,omitempty" json:"pending_data,omitempty"`
	ConflictResolution *ConflictResolution    `bson:"conflict_resolution,omitempty" json:"conflict_resolution,omitempty"`
	Metadata           map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
}
