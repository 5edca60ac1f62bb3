package domain

import "time"

type BackupType string

const (
	BackupTypeAutomatic BackupType = "automatic"
	BackupTypeManual    BackupType = "manual"
)

// CartBackup is a longer-retention durable copy of a snapshot. At most one
// automatic backup is created per (session, cart) per 24h window.
type CartBackup struct {
	ID         string                 `bson:"_id" json:"id"`
	SessionID  string                 `bson:"session_id" json:"session_id"`
	CartID     string                 `bson:"cart_id" json:"cart_id"`
	UserID     string                 `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Data       CartData               `bson:"data" json:"data"`
	BackupType BackupType             `bson:"backup_type" json:"backup_type"`
	CreatedAt  time.Time              `bson:"created_at" json:"created_at"`
	ExpiresAt  time.Time              `bson:"expires_at" json:"expires_at"`
	Metadata   map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

func (b *CartBackup) Expired(now time.Time) bool {
	return now.After(b.ExpiresAt)
}
