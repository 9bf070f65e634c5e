package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/fabworks/fabtrack-backend/pkg/db/models"
	"github.com/fabworks/fabtrack-backend/pkg/enums"
	"github.com/fabworks/fabtrack-backend/pkg/pagination"
)

// ItemFilter narrows inventory item listings.
type ItemFilter struct {
	Search       string
	LowStockOnly bool
}

type listItemsParams struct {
	Filter ItemFilter
	Limit  int
	Cursor *pagination.Cursor
}

type listTransactionsParams struct {
	MaterialID uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
}

// Repository manages persistence for inventory items and their transaction log.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateItem(ctx context.Context, item *models.InventoryItem) error
	FindItemByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	FindItemByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error)
	ListItems(ctx context.Context, params listItemsParams) ([]models.InventoryItem, *pagination.Cursor, error)
	ListItemsBelowMinimum(ctx context.Context) ([]models.InventoryItem, error)
	UpdateItem(ctx context.Context, item *models.InventoryItem) error
	SaveItemQuantity(ctx context.Context, item *models.InventoryItem) error
	DeleteItem(ctx context.Context, id uuid.UUID) error

	CreateTransaction(ctx context.Context, txn *models.InventoryTransaction) error
	ListTransactionsByMaterial(ctx context.Context, params listTransactionsParams) ([]models.InventoryTransaction, *pagination.Cursor, error)
	ListTransactionsByReference(ctx context.Context, refType enums.ReferenceType, refID uuid.UUID) ([]models.InventoryTransaction, error)

	CountTransactionsByMaterial(ctx context.Context, materialID uuid.UUID) (int64, error)
	CountPurchaseItemRefs(ctx context.Context, materialID uuid.UUID) (int64, error)
	CountOrderComponentRefs(ctx context.Context, materialID uuid.UUID) (int64, error)
	CountCuttingComponentRefs(ctx context.Context, materialID uuid.UUID) (int64, error)

	DetachTransactionsForMaterial(ctx context.Context, materialID uuid.UUID) (int64, error)
	NullifyPurchaseItemMaterial(ctx context.Context, materialID uuid.UUID) (int64, error)
	NullifyOrderComponentMaterial(ctx context.Context, materialID uuid.UUID) (int64, error)
	NullifyCuttingComponentMaterial(ctx context.Context, materialID uuid.UUID) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateItem(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) FindItemByID(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindItemByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	var item models.InventoryItem
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *repository) ListItems(ctx context.Context, params listItemsParams) ([]models.InventoryItem, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.InventoryItem{})
	if params.Filter.Search != "" {
		query = query.Where("name ILIKE ?", "%"+params.Filter.Search+"%")
	}
	if params.Filter.LowStockOnly {
		query = query.Where("quantity <= minimum_stock")
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var items []models.InventoryItem
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&items).Error; err != nil {
		return nil, nil, err
	}

	if len(items) > normalized {
		next := items[normalized]
		items = items[:normalized]
		return items, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return items, nil, nil
}

func (r *repository) ListItemsBelowMinimum(ctx context.Context) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	err := r.db.WithContext(ctx).
		Where("minimum_stock > 0 AND quantity <= minimum_stock").
		Order("name ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) UpdateItem(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).Save(item).Error
}

// SaveItemQuantity persists only the quantity column. Ledger writes use this
// so concurrent metadata edits cannot be clobbered by a stale struct.
func (r *repository) SaveItemQuantity(ctx context.Context, item *models.InventoryItem) error {
	return r.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("id = ?", item.ID).
		Update("quantity", item.Quantity).Error
}

func (r *repository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.InventoryItem{}, "id = ?", id).Error
}

func (r *repository) CreateTransaction(ctx context.Context, txn *models.InventoryTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

func (r *repository) ListTransactionsByMaterial(ctx context.Context, params listTransactionsParams) ([]models.InventoryTransaction, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).
		Model(&models.InventoryTransaction{}).
		Where("material_id = ?", params.MaterialID)
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var txns []models.InventoryTransaction
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&txns).Error; err != nil {
		return nil, nil, err
	}

	if len(txns) > normalized {
		next := txns[normalized]
		txns = txns[:normalized]
		return txns, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return txns, nil, nil
}

func (r *repository) ListTransactionsByReference(ctx context.Context, refType enums.ReferenceType, refID uuid.UUID) ([]models.InventoryTransaction, error) {
	var txns []models.InventoryTransaction
	if err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_id = ?", refType, refID).
		Order("created_at ASC").
		Find(&txns).Error; err != nil {
		return nil, err
	}
	return txns, nil
}

func (r *repository) CountTransactionsByMaterial(ctx context.Context, materialID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryTransaction{}).
		Where("material_id = ?", materialID).
		Count(&count).Error
	return count, err
}

func (r *repository) CountPurchaseItemRefs(ctx context.Context, materialID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.PurchaseItem{}).
		Where("material_id = ?", materialID).
		Count(&count).Error
	return count, err
}

func (r *repository) CountOrderComponentRefs(ctx context.Context, materialID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderComponent{}).
		Where("material_id = ?", materialID).
		Count(&count).Error
	return count, err
}

func (r *repository) CountCuttingComponentRefs(ctx context.Context, materialID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CuttingComponent{}).
		Where("material_id = ?", materialID).
		Count(&count).Error
	return count, err
}

func (r *repository) DetachTransactionsForMaterial(ctx context.Context, materialID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.InventoryTransaction{}).
		Where("material_id = ?", materialID).
		Update("material_id", nil)
	return result.RowsAffected, result.Error
}

func (r *repository) NullifyPurchaseItemMaterial(ctx context.Context, materialID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.PurchaseItem{}).
		Where("material_id = ?", materialID).
		Update("material_id", nil)
	return result.RowsAffected, result.Error
}

func (r *repository) NullifyOrderComponentMaterial(ctx context.Context, materialID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.OrderComponent{}).
		Where("material_id = ?", materialID).
		Update("material_id", nil)
	return result.RowsAffected, result.Error
}

func (r *repository) NullifyCuttingComponentMaterial(ctx context.Context, materialID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.CuttingComponent{}).
		Where("material_id = ?", materialID).
		Update("material_id", nil)
	return result.RowsAffected, result.Error
}
