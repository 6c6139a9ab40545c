package cache

import (
	"context"
	"time"
)

// SessionSnapshot is the serialized session mirror kept under
// session:{token}. It carries everything Verify needs to answer without
// touching the database.
type SessionSnapshot struct {
	ID             uint      `json:"id"`
	Token          string    `json:"token"`
	RestaurantID   uint      `json:"restaurant_id"`
	TableID        uint      `json:"table_id"`
	TableNumber    string    `json:"table_number"`
	TableName      string    `json:"table_name"`
	RestaurantName string    `json:"restaurant_name"`
	RestaurantSlug string    `json:"restaurant_slug"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// SessionCache is the fast, expiring mirror of active sessions. It is an
// optimization, never the source of truth: the durable row wins on any
// disagreement, and callers fall back to it on every miss or error.
type SessionCache interface {
	Get(ctx context.Context, token string) (*SessionSnapshot, error)
	Set(ctx context.Context, snap *SessionSnapshot, ttl time.Duration) error
	Delete(ctx context.Context, token string) error
}

func sessionKey(token string) string {
	return "session:" + token
}
