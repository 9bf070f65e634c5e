package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabworks/fabtrack-backend/pkg/enums"
)

// OrderComponent is a material requirement attached to an order. Consumption
// holds the order-level amount: manual components store base consumption
// already multiplied by order quantity (exactly once, at save time).
type OrderComponent struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID             uuid.UUID           `gorm:"column:order_id;type:uuid;not null;index"`
	MaterialID          *uuid.UUID          `gorm:"column:material_id;type:uuid;index"`
	ComponentType       enums.ComponentType `gorm:"column:component_type;type:text;not null"`
	Formula             string              `gorm:"column:formula;not null;default:''"`
	IsManualConsumption bool                `gorm:"column:is_manual_consumption;not null;default:false"`
	Consumption         decimal.Decimal     `gorm:"column:consumption;type:numeric(14,4);not null;default:0"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
