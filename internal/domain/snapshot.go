package domain

import "time"

// CartSnapshot is an immutable, versioned copy of a cart's data.
// Version is monotonic per cart; the newest non-expired snapshot for a
// (session, cart) pair is the canonical state.
type CartSnapshot struct {
	ID        string                 `bson:"_id" json:"id"`
	SessionID string                 `bson:"session_id" json:"session_id"`
	CartID    string                 `bson:"cart_id" json:"cart_id"`
	UserID    string                 `bson:"user_id,omitempty" json:"user_id,omitempty"`
	Version   int64                  `bson:"version" json:"version"`
	Data      CartData               `bson:"data" json:"data"`
	CreatedAt time.Time              `bson:"created_at" json:"created_at"`
	ExpiresAt time.Time              `bson:"expires_at" json:"expires_at"`
	Metadata  map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

func (s *CartSnapshot) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
