package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabworks/fabtrack-backend/pkg/enums"
)

// CuttingComponent is a material requirement attached to a job card. Several
// components of the same job card may reference the same material, so reversal
// lookups key on (material, component), never on material alone.
type CuttingComponent struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	JobCardID     uuid.UUID           `gorm:"column:job_card_id;type:uuid;not null;index"`
	MaterialID    *uuid.UUID          `gorm:"column:material_id;type:uuid;index"`
	ComponentType enums.ComponentType `gorm:"column:component_type;type:text;not null"`
	Consumption   decimal.Decimal     `gorm:"column:consumption;type:numeric(14,4);not null;default:0"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
