package models

import "time"

// Restaurant is the tenant root. Every table, menu item, order and session
// hangs off exactly one restaurant. Latitude/Longitude anchor the geofence.
type Restaurant struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"type:varchar(255);not null" json:"name"`
	Slug           string    `gorm:"type:varchar(255);unique;not null" json:"slug"`
	Latitude       float64   `gorm:"not null" json:"latitude"`
	Longitude      float64   `gorm:"not null" json:"longitude"`
	LocationRadius float64   `gorm:"not null;default:50" json:"location_radius"` // meters, 10-500
	SessionTimeout int       `gorm:"not null;default:30" json:"session_timeout"` // minutes, 5-120
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time `gorm:"not null" json:"updated_at"`
}
