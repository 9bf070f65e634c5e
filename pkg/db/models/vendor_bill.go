package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabworks/fabtrack-backend/pkg/enums"
)

// VendorBill is an invoice raised by a vendor, optionally tied to a purchase.
type VendorBill struct {
	ID          uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID    uuid.UUID        `gorm:"column:vendor_id;type:uuid;not null;index"`
	PurchaseID  *uuid.UUID       `gorm:"column:purchase_id;type:uuid;index"`
	BillNumber  string           `gorm:"column:bill_number;not null;uniqueIndex"`
	BaseAmount  decimal.Decimal  `gorm:"column:base_amount;type:numeric(14,2);not null"`
	GSTAmount   decimal.Decimal  `gorm:"column:gst_amount;type:numeric(14,2);not null;default:0"`
	TotalAmount decimal.Decimal  `gorm:"column:total_amount;type:numeric(14,2);not null"`
	Status      enums.BillStatus `gorm:"column:status;type:text;not null;default:'unpaid'"`
	BillDate    time.Time        `gorm:"column:bill_date;not null"`
	DueDate     *time.Time       `gorm:"column:due_date"`
	CreatedAt   time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
