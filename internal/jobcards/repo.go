package jobcards

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
	Status  *enums.JobStatus
	Limit   int
	Cursor  *pagination.Cursor
}

// Repository manages persistence for job cards, their components, and the
// per-stage production jobs underneath them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, card *models.JobCard) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.JobCard, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.JobCard, error)
	List(ctx context.Context, params listParams) ([]models.JobCard, *pagination.Cursor, error)
	ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.JobCard, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.JobStatus) error
	Delete(ctx context.Context, id uuid.UUID) error

	OrderExists(ctx context.Context, orderID uuid.UUID) (bool, error)

	FindCuttingJob(ctx context.Context, jobCardID, jobID uuid.UUID) (*models.CuttingJob, error)
	FindPrintingJob(ctx context.Context, jobCardID, jobID uuid.UUID) (*models.PrintingJob, error)
	FindStitchingJob(ctx context.Context, jobCardID, jobID uuid.UUID) (*models.StitchingJob, error)
	SaveCuttingJob(ctx context.Context, job *models.CuttingJob) error
	SavePrintingJob(ctx context.Context, job *models.PrintingJob) error
	SaveStitchingJob(ctx context.Context, job *models.StitchingJob) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a job card repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, card *models.JobCard) error {
	return r.db.WithContext(ctx).Create(card).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.JobCard, error) {
	var card models.JobCard
	if err := r.db.WithContext(ctx).
		Preload("Components").
		Preload("CuttingJobs").
		Preload("PrintingJobs").
		Preload("StitchingJobs").
		First(&card, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

// FindByIDForUpdate locks the card row, then loads components separately so
// the lock clause never spreads onto the joined rows.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.JobCard, error) {
	var card models.JobCard
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		First(&card, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := r.db.WithContext(ctx).
		Where("job_card_id = ?", id).
		Order("created_at ASC").
		Find(&card.Components).Error; err != nil {
		return nil, err
	}
	return &card, nil
}

func (r *repository) List(ctx context.Context, params listParams) ([]models.JobCard, *pagination.Cursor, error) {
	limit := pagination.LimitWithBuffer(params.Limit)
	normalized := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.JobCard{}).Preload("Components")
	if params.OrderID != nil {
		query = query.Where("order_id = ?", *params.OrderID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var cards []models.JobCard
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&cards).Error; err != nil {
		return nil, nil, err
	}

	if len(cards) > normalized {
		next := cards[normalized]
		cards = cards[:normalized]
		return cards, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return cards, nil, nil
}

func (r *repository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.JobCard, error) {
	var cards []models.JobCard
	if err := r.db.WithContext(ctx).
		Preload("Components").
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&cards).Error; err != nil {
		return nil, err
	}
	return cards, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.JobStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.JobCard{}).
		Where("id = ?", id).
		Update("status", status).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.JobCard{}, "id = ?", id).Error
}

func (r *repository) OrderExists(ctx context.Context, orderID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) FindCuttingJob(ctx context.Context, jobCardID, jobID uuid.UUID) (*models.CuttingJob, error) {
	var job models.CuttingJob
	if err := r.db.WithContext(ctx).
		First(&job, "id = ? AND job_card_id = ?", jobID, jobCardID).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repository) FindPrintingJob(ctx context.Context, jobCardID, jobID uuid.UUID) (*models.PrintingJob, error) {
	var job models.PrintingJob
	if err := r.db.WithContext(ctx).
		First(&job, "id = ? AND job_card_id = ?", jobID, jobCardID).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repository) FindStitchingJob(ctx context.Context, jobCardID, jobID uuid.UUID) (*models.StitchingJob, error) {
	var job models.StitchingJob
	if err := r.db.WithContext(ctx).
		First(&job, "id = ? AND job_card_id = ?", jobID, jobCardID).Error; err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *repository) SaveCuttingJob(ctx context.Context, job *models.CuttingJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}

func (r *repository) SavePrintingJob(ctx context.Context, job *models.PrintingJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}

func (r *repository) SaveStitchingJob(ctx context.Context, job *models.StitchingJob) error {
	return r.db.WithContext(ctx).Save(job).Error
}
