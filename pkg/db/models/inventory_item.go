package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabworks/fabtrack-backend/pkg/enums"
)

// InventoryItem is a stocked material with a mutable on-hand quantity.
// Quantity never goes negative; adjustments that force negative values must
// pass the explicit allow flag on the adjustment path.
type InventoryItem struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string             `gorm:"column:name;not null"`
	Unit         enums.MaterialUnit `gorm:"column:unit;type:text;not null;default:'meter'"`
	Color        *string            `gorm:"column:color"`
	GSM          *int               `gorm:"column:gsm"`
	Quantity     decimal.Decimal    `gorm:"column:quantity;type:numeric(14,4);not null;default:0"`
	CostPerUnit  decimal.Decimal    `gorm:"column:cost_per_unit;type:numeric(14,4);not null;default:0"`
	MinimumStock decimal.Decimal    `gorm:"column:minimum_stock;type:numeric(14,4);not null;default:0"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
