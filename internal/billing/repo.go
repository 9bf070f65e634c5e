package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabworks/fabtrack-backend/pkg/db/models"
	"github.com/fabworks/fabtrack-backend/pkg/enums"
	"github.com/fabworks/fabtrack-backend/pkg/pagination"
)

type listParams struct {
	VendorID *uuid.UUID
	Status   *enums.BillStatus
	Limit    int
	Cursor   *pagination.Cursor
}

// VendorOutstanding is one vendor's unpaid bill total.
type VendorOutstanding struct {
	VendorID    uuid.UUID       `json:"vendor_id"`
	VendorName  string          `json:"vendor_name"`
	BillCount   int64           `json:"bill_count"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// Repository manages persistence for vendor bills.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, bill *models.VendorBill) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.VendorBill, error)
	List(ctx context.Context, params listParams) ([]models.VendorBill, *pagination.Cursor, error)
	Update(ctx context.Context, bill *models.VendorBill) error
	Delete(ctx context.Context, id uuid.UUID) error

	VendorExists(ctx context.Context, vendorID uuid.UUID) (bool, error)
	PurchaseExists(ctx context.Context, purchaseID uuid.UUID) (bool, error)
	OutstandingByVendor(ctx context.Context) ([]VendorOutstanding, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a billing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, bill *models.VendorBill) error {
	return r.db.WithContext(ctx).Create(bill).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.VendorBill, error) {
	var bill models.VendorBill
	if err := r.db.WithContext(ctx).First(&bill, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &bill, nil
}

func (r *repository) List(ctx context.Context, params listParams) ([]models.VendorBill, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.VendorBill{})
	if params.VendorID != nil {
		query = query.Where("vendor_id = ?", *params.VendorID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var bills []models.VendorBill
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&bills).Error; err != nil {
		return nil, nil, err
	}

	if len(bills) > normalized {
		next := bills[normalized]
		bills = bills[:normalized]
		return bills, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return bills, nil, nil
}

func (r *repository) Update(ctx context.Context, bill *models.VendorBill) error {
	return r.db.WithContext(ctx).Save(bill).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.VendorBill{}, "id = ?", id).Error
}

func (r *repository) VendorExists(ctx context.Context, vendorID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Vendor{}).
		Where("id = ?", vendorID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) PurchaseExists(ctx context.Context, purchaseID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ?", purchaseID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) OutstandingByVendor(ctx context.Context) ([]VendorOutstanding, error) {
	var rows []VendorOutstanding
	err := r.db.WithContext(ctx).
		Table("vendor_bills").
		Select("vendor_bills.vendor_id, vendors.name AS vendor_name, COUNT(*) AS bill_count, SUM(vendor_bills.total_amount) AS outstanding").
		Joins("JOIN vendors ON vendors.id = vendor_bills.vendor_id").
		Where("vendor_bills.status IN ?", []enums.BillStatus{enums.BillStatusUnpaid, enums.BillStatusPartial}).
		Group("vendor_bills.vendor_id, vendors.name").
		Order("outstanding DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
