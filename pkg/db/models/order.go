package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/fabworks/fabtrack-backend/pkg/enums"
)

// Order is a manufacturing order for a single product.
type Order struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string            `gorm:"column:order_number;not null;uniqueIndex"`
	PartyName   string            `gorm:"column:party_name;not null"`
	ProductName string            `gorm:"column:product_name;not null"`
	Quantity    int               `gorm:"column:quantity;not null"`
	Sizes       pq.StringArray    `gorm:"column:sizes;type:text[]"`
	Rate        decimal.Decimal   `gorm:"column:rate;type:numeric(14,2);not null;default:0"`
	Status      enums.OrderStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	OrderDate   time.Time         `gorm:"column:order_date;not null"`
	DueDate     *time.Time        `gorm:"column:due_date"`
	Notes       *string           `gorm:"column:notes"`
	Components  []OrderComponent  `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	JobCards    []JobCard         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
