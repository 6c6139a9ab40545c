package models

import "time"

type Table struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RestaurantID uint       `gorm:"not null;index" json:"restaurant_id"`
	Restaurant   Restaurant `gorm:"foreignKey:RestaurantID" json:"-"`
	TableNumber  string     `gorm:"type:varchar(50);not null" json:"table_number"`
	Name         string     `gorm:"type:varchar(100)" json:"name"`
	Capacity     int        `gorm:"not null;default:4" json:"capacity"`
	// QRCode is the opaque token embedded in the scannable URL. It identifies
	// the table only, never a session. Regenerating it kills active sessions.
	QRCode    string    `gorm:"type:varchar(64);unique;not null" json:"qr_code"`
	IsActive  bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}
