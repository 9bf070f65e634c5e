package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabworks/fabtrack-backend/pkg/enums"
)

// Purchase is a purchase order against a vendor. Completing it increments
// inventory by each line's effective quantity.
type Purchase struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PurchaseNumber string               `gorm:"column:purchase_number;not null;uniqueIndex"`
	VendorID       uuid.UUID            `gorm:"column:vendor_id;type:uuid;not null;index"`
	Status         enums.PurchaseStatus `gorm:"column:status;type:text;not null;default:'draft'"`
	OrderDate      time.Time            `gorm:"column:order_date;not null"`
	ExpectedDate   *time.Time           `gorm:"column:expected_date"`
	CompletedAt    *time.Time           `gorm:"column:completed_at"`
	BaseAmount     decimal.Decimal      `gorm:"column:base_amount;type:numeric(14,2);not null;default:0"`
	GSTAmount      decimal.Decimal      `gorm:"column:gst_amount;type:numeric(14,2);not null;default:0"`
	TotalAmount    decimal.Decimal      `gorm:"column:total_amount;type:numeric(14,2);not null;default:0"`
	Notes          *string              `gorm:"column:notes"`
	Items          []PurchaseItem       `gorm:"foreignKey:PurchaseID;constraint:OnDelete:CASCADE"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
