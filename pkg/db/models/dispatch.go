package models

import (
	"time"

	"github.com/google/uuid"
)

// Dispatch records a shipment of finished goods against an order.
type Dispatch struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	Quantity       int       `gorm:"column:quantity;not null"`
	DispatchDate   time.Time `gorm:"column:dispatch_date;not null"`
	Courier        *string   `gorm:"column:courier"`
	TrackingNumber *string   `gorm:"column:tracking_number"`
	Notes          *string   `gorm:"column:notes"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName overrides GORM's pluralization (dispatches, not dispatchs).
func (Dispatch) TableName() string { return "dispatches" }
