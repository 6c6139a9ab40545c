package models

import "time"

// Treat statuses. A treat is terminal once decided.
const (
	TreatStatusPending   = "PENDING"
	TreatStatusApproved  = "APPROVED"
	TreatStatusRejected  = "REJECTED"
	TreatStatusCancelled = "CANCELLED"
)

// Treat is a gift of a menu item from one table to another within the same
// restaurant. Staff approval materializes a zero-amount gift Order.
type Treat struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RestaurantID uint       `gorm:"not null;index" json:"restaurant_id"`
	Restaurant   Restaurant `gorm:"foreignKey:RestaurantID" json:"-"`
	FromTableID  uint       `gorm:"not null" json:"from_table_id"`
	FromTable    Table      `gorm:"foreignKey:FromTableID" json:"from_table"`
	ToTableID    uint       `gorm:"not null" json:"to_table_id"`
	ToTable      Table      `gorm:"foreignKey:ToTableID" json:"to_table"`
	MenuID       uint       `gorm:"not null" json:"menu_id"`
	Menu         Menu       `gorm:"foreignKey:MenuID" json:"menu"`
	Note         string     `gorm:"type:text" json:"note"`
	Status       string     `gorm:"type:varchar(20);not null;default:'PENDING'" json:"status"`
	// OrderID links the gift order synthesized on approval, doubling as the
	// idempotency guard against a second synthesis.
	OrderID   *uint     `json:"order_id,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

// Decided reports whether the treat has left PENDING.
func (t *Treat) Decided() bool {
	return t.Status != TreatStatusPending
}
