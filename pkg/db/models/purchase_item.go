package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseItem is one line of a purchase order. ActualMeter, when positive,
// overrides Quantity for inventory transactions.
type PurchaseItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	PurchaseID  uuid.UUID       `gorm:"column:purchase_id;type:uuid;not null;index"`
	MaterialID  *uuid.UUID      `gorm:"column:material_id;type:uuid;index"`
	Quantity    decimal.Decimal `gorm:"column:quantity;type:numeric(14,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"column:unit_price;type:numeric(14,4);not null"`
	ActualMeter decimal.Decimal `gorm:"column:actual_meter;type:numeric(14,4);not null;default:0"`
	GSTRate     decimal.Decimal `gorm:"column:gst_rate;type:numeric(5,2);not null;default:0"`
	BaseAmount  decimal.Decimal `gorm:"column:base_amount;type:numeric(14,2);not null;default:0"`
	GSTAmount   decimal.Decimal `gorm:"column:gst_amount;type:numeric(14,2);not null;default:0"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:numeric(14,2);not null;default:0"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectiveQuantity returns the quantity used for inventory transactions:
// actual_meter when greater than zero, else the nominal quantity.
func (p PurchaseItem) EffectiveQuantity() decimal.Decimal {
	if p.ActualMeter.IsPositive() {
		return p.ActualMeter
	}
	return p.Quantity
}
