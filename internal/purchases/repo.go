package purchases

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fabworks/fabtrack-backend/pkg/db/models"
	"github.com/fabworks/fabtrack-backend/pkg/enums"
	"github.com/fabworks/fabtrack-backend/pkg/pagination"
)

type listParams struct {
	Status   *enums.PurchaseStatus
	VendorID *uuid.UUID
	Limit    int
	Cursor   *pagination.Cursor
}

// Repository manages persistence for purchases and their line items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, purchase *models.Purchase) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	List(ctx context.Context, params listParams) ([]models.Purchase, *pagination.Cursor, error)
	Update(ctx context.Context, purchase *models.Purchase) error
	ReplaceItems(ctx context.Context, purchaseID uuid.UUID, items []models.PurchaseItem) error
	Delete(ctx context.Context, id uuid.UUID) error

	VendorExists(ctx context.Context, vendorID uuid.UUID) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a purchases repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Create(purchase).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.db.WithContext(ctx).
		Preload("Items").
		First(&purchase, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

// FindByIDForUpdate locks the purchase row, then loads items separately so the
// lock clause never spreads onto the joined rows.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&purchase, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("purchase_id = ?", id).
		Order("created_at ASC").
		Find(&purchase.Items).Error; err != nil {
		return nil, err
	}
	return &purchase, nil
}

func (r *repository) List(ctx context.Context, params listParams) ([]models.Purchase, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Purchase{}).Preload("Items")
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.VendorID != nil {
		query = query.Where("vendor_id = ?", *params.VendorID)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var purchases []models.Purchase
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&purchases).Error; err != nil {
		return nil, nil, err
	}

	if len(purchases) > normalized {
		next := purchases[normalized]
		purchases = purchases[:normalized]
		return purchases, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return purchases, nil, nil
}

func (r *repository) Update(ctx context.Context, purchase *models.Purchase) error {
	return r.db.WithContext(ctx).Omit("Items").Save(purchase).Error
}

func (r *repository) ReplaceItems(ctx context.Context, purchaseID uuid.UUID, items []models.PurchaseItem) error {
	if err := r.db.WithContext(ctx).
		Where("purchase_id = ?", purchaseID).
		Delete(&models.PurchaseItem{}).Error; err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}
	for i := range items {
		items[i].PurchaseID = purchaseID
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Purchase{}, "id = ?", id).Error
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
