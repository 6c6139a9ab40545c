package models

import "time"

// Order status workflow. The usual path is
//
//	pending -> confirmed -> preparing -> ready -> completed
//
// but staff may skip steps; cancelled is reachable from any non-terminal
// state. completed and cancelled are terminal.
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusPreparing = "preparing"
	OrderStatusReady     = "ready"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

// Payment methods are recorded for the cashier, never settled here.
const (
	PaymentMethodCash        = "cash"
	PaymentMethodCardAtTable = "card_at_table"
)

type Order struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	RestaurantID uint       `gorm:"not null;index" json:"restaurant_id"`
	Restaurant   Restaurant `gorm:"foreignKey:RestaurantID" json:"-"`
	TableID      uint       `gorm:"not null;index" json:"table_id"`
	Table        Table      `gorm:"foreignKey:TableID" json:"table"`
	// SessionID is nil for staff-created and gift orders.
	SessionID *uint         `gorm:"index" json:"session_id,omitempty"`
	Session   *TableSession `gorm:"foreignKey:SessionID" json:"-"`
	// OrderNumber is the display identifier (ORD-YYYYMMDD-NNN). All internal
	// references use ID; the display number is not unique under concurrent
	// same-day creation.
	OrderNumber   string  `gorm:"type:varchar(32);not null;index" json:"order_number"`
	Status        string  `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	TotalAmount   float64 `gorm:"type:decimal(10,2);not null;default:0.00" json:"total_amount"`
	PaymentMethod string  `gorm:"type:varchar(20);not null" json:"payment_method"`
	CustomerNotes string  `gorm:"type:text" json:"customer_notes"`
	IsGift        bool    `gorm:"not null;default:false" json:"is_gift"`

	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`

	ConfirmedAt        *time.Time `json:"confirmed_at,omitempty"`
	PreparingAt        *time.Time `json:"preparing_at,omitempty"`
	ReadyAt            *time.Time `json:"ready_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `gorm:"type:text" json:"cancellation_reason,omitempty"`

	CreatedAt  time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt  time.Time   `gorm:"not null" json:"updated_at"`
	OrderItems []OrderItem `gorm:"foreignKey:OrderID" json:"order_items"`
}

// Terminal reports whether the order can accept no further transitions.
func (o *Order) Terminal() bool {
	return o.Status == OrderStatusCompleted || o.Status == OrderStatusCancelled
}
