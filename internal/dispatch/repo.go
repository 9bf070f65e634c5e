package dispatch

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
	OrderID *uuid.UUID
	Limit   int
	Cursor  *pagination.Cursor
}

// Repository manages persistence for dispatches.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, dispatch *models.Dispatch) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dispatch, error)
	List(ctx context.Context, params listParams) ([]models.Dispatch, *pagination.Cursor, error)
	Delete(ctx context.Context, id uuid.UUID) error

	FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	SumQuantityByOrder(ctx context.Context, orderID uuid.UUID) (int, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a dispatch repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, dispatch *models.Dispatch) error {
	return r.db.WithContext(ctx).Create(dispatch).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Dispatch, error) {
	var dispatch models.Dispatch
	if err := r.db.WithContext(ctx).First(&dispatch, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &dispatch, nil
}

func (r *repository) List(ctx context.Context, params listParams) ([]models.Dispatch, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Dispatch{})
	if params.OrderID != nil {
		query = query.Where("order_id = ?", *params.OrderID)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var dispatches []models.Dispatch
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&dispatches).Error; err != nil {
		return nil, nil, err
	}

	if len(dispatches) > normalized {
		next := dispatches[normalized]
		dispatches = dispatches[:normalized]
		return dispatches, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return dispatches, nil, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Dispatch{}, "id = ?", id).Error
}

func (r *repository) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&order, "id = ?", orderID).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) SumQuantityByOrder(ctx context.Context, orderID uuid.UUID) (int, error) {
	var total int
	if err := r.db.WithContext(ctx).
		Model(&models.Dispatch{}).
		Where("order_id = ?", orderID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (r *repository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Update("status", status).Error
}
