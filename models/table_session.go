package models

import "time"

// TableSession binds one customer device to a table after a verified QR scan.
// At most one row per table has IsActive=true at any instant; StartSession
// deactivates the previous one inside the same transaction that creates the
// replacement.
type TableSession struct {
	ID           uint     `gorm:"primaryKey" json:"id"`
	TableID      uint     `gorm:"not null;index" json:"table_id"`
	Table        Table    `gorm:"foreignKey:TableID" json:"-"`
	SessionToken string   `gorm:"type:varchar(64);unique;not null" json:"session_token"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	Accuracy     *float64 `json:"accuracy,omitempty"`
	DeviceInfo   string   `gorm:"type:varchar(255)" json:"device_info"`
	IsActive     bool     `gorm:"not null;default:true;index" json:"is_active"`
	// Expiry is lazy: nothing sweeps expired rows, the predicate
	// now > ExpiresAt is evaluated on the next read.
	ExpiresAt      time.Time `gorm:"not null" json:"expires_at"`
	LastActivityAt time.Time `gorm:"not null" json:"last_activity_at"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}

// Expired reports whether the session has timed out at the given instant.
func (s *TableSession) Expired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
