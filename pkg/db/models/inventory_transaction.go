package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabworks/fabtrack-backend/pkg/enums"
)

// TransactionMetadata is the free-form context stored alongside a transaction
// row. ComponentID/ComponentType disambiguate reversal lookups when several
// components of one reference share a material.
type TransactionMetadata struct {
	ComponentID   *uuid.UUID           `json:"component_id,omitempty"`
	ComponentType *enums.ComponentType `json:"component_type,omitempty"`
	OrderDate     *time.Time           `json:"order_date,omitempty"`
	Note          string               `json:"note,omitempty"`
}

// InventoryTransaction is an append-only record of a single quantity change.
// Rows are written in the same database transaction as the quantity mutation
// and are never updated.
type InventoryTransaction struct {
	ID               uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MaterialID       *uuid.UUID            `gorm:"column:material_id;type:uuid;index"`
	Quantity         decimal.Decimal       `gorm:"column:quantity;type:numeric(14,4);not null"`
	PreviousQuantity decimal.Decimal       `gorm:"column:previous_quantity;type:numeric(14,4);not null"`
	NewQuantity      decimal.Decimal       `gorm:"column:new_quantity;type:numeric(14,4);not null"`
	TransactionType  enums.TransactionType `gorm:"column:transaction_type;type:text;not null"`
	ReferenceType    *enums.ReferenceType  `gorm:"column:reference_type;type:text;index:idx_inventory_transactions_reference"`
	ReferenceID      *uuid.UUID            `gorm:"column:reference_id;type:uuid;index:idx_inventory_transactions_reference"`
	ReferenceNumber  *string               `gorm:"column:reference_number"`
	Metadata         *TransactionMetadata  `gorm:"column:metadata;type:jsonb;serializer:json"`
	CreatedAt        time.Time             `gorm:"column:created_at;autoCreateTime"`
}

// TableName keeps the historical table name used by the schema.
func (InventoryTransaction) TableName() string { return "inventory_transaction_log" }
