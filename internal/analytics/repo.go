package analytics

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabworks/fabtrack-backend/pkg/db/models"
	"github.com/fabworks/fabtrack-backend/pkg/enums"
)

// StatusCount is one bucket of a grouped status count.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// StageCount breaks production jobs down by stage and status.
type StageCount struct {
	Stage  string `json:"stage"`
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// VendorSpend is the completed purchase total for one vendor in a period.
type VendorSpend struct {
	VendorID   uuid.UUID       `json:"vendor_id"`
	VendorName string          `json:"vendor_name"`
	Purchases  int64           `json:"purchases"`
	Spend      decimal.Decimal `json:"spend"`
}

// MaterialConsumption is the consumed quantity for one material in a period.
type MaterialConsumption struct {
	MaterialID   uuid.UUID       `json:"material_id"`
	MaterialName string          `json:"material_name"`
	Consumed     decimal.Decimal `json:"consumed"`
}

// MonthlySpend is the completed purchase total for one calendar month.
type MonthlySpend struct {
	Month string          `json:"month"`
	Spend decimal.Decimal `json:"spend"`
}

// Repository runs the read-only aggregate queries behind the dashboard.
type Repository interface {
	OrdersByStatus(ctx context.Context) ([]StatusCount, error)
	InventoryValuation(ctx context.Context) (decimal.Decimal, error)
	LowStockCount(ctx context.Context) (int64, error)
	StageThroughput(ctx context.Context) ([]StageCount, error)
	SpendByVendor(ctx context.Context, from, to time.Time) ([]VendorSpend, error)
	MonthlySpend(ctx context.Context, from, to time.Time) ([]MonthlySpend, error)
	ConsumptionByMaterial(ctx context.Context, from, to time.Time) ([]MaterialConsumption, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an analytics repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) OrdersByStatus(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Order("status ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) InventoryValuation(ctx context.Context) (decimal.Decimal, error) {
	var row struct {
		Valuation decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Select("COALESCE(SUM(quantity * cost_per_unit), 0) AS valuation").
		Scan(&row).Error
	return row.Valuation, err
}

func (r *repository) LowStockCount(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("minimum_stock > 0 AND quantity <= minimum_stock").
		Count(&count).Error
	return count, err
}

func (r *repository) StageThroughput(ctx context.Context) ([]StageCount, error) {
	var rows []StageCount
	err := r.db.WithContext(ctx).Raw(`
SELECT stage, status, COUNT(*) AS count FROM (
    SELECT 'cutting' AS stage, status FROM cutting_jobs
    UNION ALL
    SELECT 'printing' AS stage, status FROM printing_jobs
    UNION ALL
    SELECT 'stitching' AS stage, status FROM stitching_jobs
) jobs
GROUP BY stage, status
ORDER BY stage ASC, status ASC`).
		Scan(&rows).Error
	return rows, err
}

func (r *repository) SpendByVendor(ctx context.Context, from, to time.Time) ([]VendorSpend, error) {
	var rows []VendorSpend
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Select("purchases.vendor_id, vendors.name AS vendor_name, COUNT(*) AS purchases, COALESCE(SUM(purchases.total_amount), 0) AS spend").
		Joins("JOIN vendors ON vendors.id = purchases.vendor_id").
		Where("purchases.status = ?", enums.PurchaseStatusCompleted).
		Where("purchases.order_date BETWEEN ? AND ?", from, to).
		Group("purchases.vendor_id, vendors.name").
		Order("spend DESC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) MonthlySpend(ctx context.Context, from, to time.Time) ([]MonthlySpend, error) {
	var rows []MonthlySpend
	err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Select("to_char(date_trunc('month', order_date), 'YYYY-MM') AS month, COALESCE(SUM(total_amount), 0) AS spend").
		Where("status = ?", enums.PurchaseStatusCompleted).
		Where("order_date BETWEEN ? AND ?", from, to).
		Group("month").
		Order("month ASC").
		Scan(&rows).Error
	return rows, err
}

func (r *repository) ConsumptionByMaterial(ctx context.Context, from, to time.Time) ([]MaterialConsumption, error) {
	var rows []MaterialConsumption
	err := r.db.WithContext(ctx).
		Model(&models.InventoryTransaction{}).
		Select("inventory_transaction_log.material_id, inventory_items.name AS material_name, COALESCE(SUM(ABS(inventory_transaction_log.quantity)), 0) AS consumed").
		Joins("JOIN inventory_items ON inventory_items.id = inventory_transaction_log.material_id").
		Where("inventory_transaction_log.transaction_type = ?", enums.TransactionTypeConsumption).
		Where("inventory_transaction_log.created_at BETWEEN ? AND ?", from, to).
		Group("inventory_transaction_log.material_id, inventory_items.name").
		Order("consumed DESC").
		Scan(&rows).Error
	return rows, err
}
