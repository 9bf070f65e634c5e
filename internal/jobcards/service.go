package jobcards

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabworks/fabtrack-backend/internal/consumption"
	"github.com/fabworks/fabtrack-backend/internal/inventory"
	"github.com/fabworks/fabtrack-backend/pkg/db/models"
	"github.com/fabworks/fabtrack-backend/pkg/enums"
	pkgerrors "github.com/fabworks/fabtrack-backend/pkg/errors"
	"github.com/fabworks/fabtrack-backend/pkg/logger"
	"github.com/fabworks/fabtrack-backend/pkg/outbox"
	"github.com/fabworks/fabtrack-backend/pkg/outbox/payloads"
	"github.com/fabworks/fabtrack-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type stockLedger interface {
	ApplyDeltaTx(ctx context.Context, tx *gorm.DB, input inventory.DeltaInput) (*inventory.DeltaResult, error)
	TransactionsForReference(ctx context.Context, tx *gorm.DB, refType enums.ReferenceType, refID uuid.UUID) ([]models.InventoryTransaction, error)
}

// Service owns job cards. Issuing a card deducts its components' consumption
// from stock; deleting one credits the deducted amounts back, attributed per
// component from the transaction log.
type Service struct {
	repo   Repository
	tx     txRunner
	ledger stockLedger
	outbox outboxPublisher
	logg   *logger.Logger
}

// NewService wires the job card service.
func NewService(repo Repository, tx txRunner, ledger stockLedger, publisher outboxPublisher, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("jobcards: repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("jobcards: tx runner is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("jobcards: stock ledger is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("jobcards: outbox publisher is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("jobcards: logger is required")
	}
	return &Service{repo: repo, tx: tx, ledger: ledger, outbox: publisher, logg: logg}, nil
}

// ComponentInput is one material requirement on a new job card.
type ComponentInput struct {
	MaterialID    *uuid.UUID      `json:"material_id,omitempty"`
	ComponentType string          `json:"component_type" validate:"required"`
	Consumption   decimal.Decimal `json:"consumption"`
}

// StageJobInput is one worker assignment for a production stage.
type StageJobInput struct {
	WorkerName string `json:"worker_name" validate:"required,max=120"`
	Quantity   int    `json:"quantity" validate:"required,gt=0"`
}

// CreateInput carries the fields for a new job card.
type CreateInput struct {
	OrderID       uuid.UUID        `json:"order_id" validate:"required"`
	JobCardNumber string           `json:"job_card_number,omitempty" validate:"max=50"`
	Notes         *string          `json:"notes,omitempty"`
	Components    []ComponentInput `json:"components" validate:"required,min=1,dive"`
	CuttingJobs   []StageJobInput  `json:"cutting_jobs,omitempty" validate:"omitempty,dive"`
	PrintingJobs  []StageJobInput  `json:"printing_jobs,omitempty" validate:"omitempty,dive"`
	StitchingJobs []StageJobInput  `json:"stitching_jobs,omitempty" validate:"omitempty,dive"`
}

// ListInput narrows and paginates job card listings.
type ListInput struct {
	OrderID *uuid.UUID
	Status  string
	Limit   int
	Cursor  string
}

// Create issues a job card and deducts every component's consumption from
// stock in the same transaction. Insufficient stock aborts the whole card.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.JobCard, error) {
	card := &models.JobCard{
		OrderID:       input.OrderID,
		JobCardNumber: jobCardNumber(input.JobCardNumber),
		Status:        enums.JobStatusPending,
		Notes:         input.Notes,
	}
	for _, comp := range input.Components {
		componentType, err := enums.ParseComponentType(comp.ComponentType)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid component type")
		}
		if comp.Consumption.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "consumption cannot be negative")
		}
		card.Components = append(card.Components, models.CuttingComponent{
			MaterialID:    comp.MaterialID,
			ComponentType: componentType,
			Consumption:   comp.Consumption,
		})
	}
	card.CuttingJobs = buildCuttingJobs(input.CuttingJobs)
	card.PrintingJobs = buildPrintingJobs(input.PrintingJobs)
	card.StitchingJobs = buildStitchingJobs(input.StitchingJobs)

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		exists, err := repo.OrderExists(ctx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order")
		}
		if !exists {
			return pkgerrors.New(pkgerrors.CodeValidation, "order not found")
		}

		if err := repo.Create(ctx, card); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create job card")
		}

		refType := enums.ReferenceJobCard
		deltas := make([]payloads.MaterialDelta, 0, len(card.Components))
		for i := range card.Components {
			comp := &card.Components[i]
			if comp.MaterialID == nil || !comp.Consumption.IsPositive() {
				continue
			}
			componentType := comp.ComponentType
			result, applyErr := s.ledger.ApplyDeltaTx(ctx, tx, inventory.DeltaInput{
				MaterialID:      *comp.MaterialID,
				Delta:           comp.Consumption.Neg(),
				Type:            enums.TransactionTypeConsumption,
				ReferenceType:   &refType,
				ReferenceID:     &card.ID,
				ReferenceNumber: &card.JobCardNumber,
				Metadata: &models.TransactionMetadata{
					ComponentID:   &comp.ID,
					ComponentType: &componentType,
				},
			})
			if applyErr != nil {
				return applyErr
			}
			deltas = append(deltas, result.MaterialDelta())
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventJobCardCreated,
			AggregateType: enums.AggregateJobCard,
			AggregateID:   card.ID,
			Data: payloads.JobCardCreatedEvent{
				JobCardID:     card.ID,
				JobCardNumber: card.JobCardNumber,
				OrderID:       card.OrderID,
				Deltas:        deltas,
				CreatedAt:     time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"job_card_id":     card.ID.String(),
		"job_card_number": card.JobCardNumber,
		"order_id":        card.OrderID.String(),
	})
	s.logg.Info(logCtx, "jobcard.created")
	return card, nil
}

// Get fetches a job card with its components and stage jobs.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.JobCard, error) {
	card, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "job card not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find job card")
	}
	return card, nil
}

// List returns a page of job cards plus the cursor for the next page.
func (s *Service) List(ctx context.Context, input ListInput) ([]models.JobCard, string, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	params := listParams{OrderID: input.OrderID, Limit: input.Limit, Cursor: cursor}
	if input.Status != "" {
		status, parseErr := enums.ParseJobStatus(input.Status)
		if parseErr != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status")
		}
		params.Status = &status
	}

	cards, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list job cards")
	}

	nextCursor := ""
	if next != nil {
		nextCursor = pagination.EncodeCursor(*next)
	}
	return cards, nextCursor, nil
}

// Delete reverses the card's material consumption and removes it, all in one
// transaction. Reversal amounts come from the card's own log rows; components
// without a matching row fall back to their stored consumption.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		card, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "job card not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock job card")
		}

		deltas, err := s.reverseConsumptionTx(ctx, tx, card)
		if err != nil {
			return err
		}

		if err := repo.Delete(ctx, card.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete job card")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventJobCardDeleted,
			AggregateType: enums.AggregateJobCard,
			AggregateID:   card.ID,
			Data: payloads.JobCardDeletedEvent{
				JobCardID:     card.ID,
				JobCardNumber: card.JobCardNumber,
				OrderID:       card.OrderID,
				Deltas:        deltas,
				DeletedAt:     time.Now().UTC(),
			},
		})
	})
}

// ReverseAndDeleteTx reverses and removes one card inside the caller's
// transaction. Order deletion drives it for every card before the cascade.
func (s *Service) ReverseAndDeleteTx(ctx context.Context, tx *gorm.DB, card *models.JobCard) ([]payloads.MaterialDelta, error) {
	deltas, err := s.reverseConsumptionTx(ctx, tx, card)
	if err != nil {
		return nil, err
	}
	if err := s.repo.WithTx(tx).Delete(ctx, card.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete job card")
	}
	return deltas, nil
}

func (s *Service) reverseConsumptionTx(ctx context.Context, tx *gorm.DB, card *models.JobCard) ([]payloads.MaterialDelta, error) {
	txns, err := s.ledger.TransactionsForReference(ctx, tx, enums.ReferenceJobCard, card.ID)
	if err != nil {
		return nil, err
	}
	idx := consumption.BuildReversalIndex(txns)

	refType := enums.ReferenceJobCard
	deltas := make([]payloads.MaterialDelta, 0, len(card.Components))
	for i := range card.Components {
		comp := &card.Components[i]
		if comp.MaterialID == nil {
			continue
		}

		key := consumption.KeyFor(*comp.MaterialID, &comp.ID, comp.ComponentType)
		amount := idx.Resolve(key, comp.Consumption)
		if !amount.IsPositive() {
			continue
		}

		componentType := comp.ComponentType
		result, applyErr := s.ledger.ApplyDeltaTx(ctx, tx, inventory.DeltaInput{
			MaterialID:      *comp.MaterialID,
			Delta:           amount,
			Type:            enums.TransactionTypeReversal,
			ReferenceType:   &refType,
			ReferenceID:     &card.ID,
			ReferenceNumber: &card.JobCardNumber,
			Metadata: &models.TransactionMetadata{
				ComponentID:   &comp.ID,
				ComponentType: &componentType,
			},
		})
		if applyErr != nil {
			return nil, applyErr
		}
		deltas = append(deltas, result.MaterialDelta())
	}
	return deltas, nil
}

// Stage identifies one of the three production stages under a job card.
type Stage string

const (
	StageCutting   Stage = "cutting"
	StagePrinting  Stage = "printing"
	StageStitching Stage = "stitching"
)

// UpdateStageJobInput moves a stage job through its status transitions.
type UpdateStageJobInput struct {
	Status string `json:"status" validate:"required"`
}

// UpdateStageJob transitions one worker's stage job. Started and completed
// timestamps are stamped on the matching transitions.
func (s *Service) UpdateStageJob(ctx context.Context, jobCardID uuid.UUID, stage Stage, jobID uuid.UUID, input UpdateStageJobInput) error {
	status, err := enums.ParseJobStatus(input.Status)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	now := time.Now().UTC()

	switch stage {
	case StageCutting:
		job, findErr := s.repo.FindCuttingJob(ctx, jobCardID, jobID)
		if findErr != nil {
			return stageJobError(findErr)
		}
		applyStageTransition(&job.Status, &job.StartedAt, &job.CompletedAt, status, now)
		return s.repo.SaveCuttingJob(ctx, job)
	case StagePrinting:
		job, findErr := s.repo.FindPrintingJob(ctx, jobCardID, jobID)
		if findErr != nil {
			return stageJobError(findErr)
		}
		applyStageTransition(&job.Status, &job.StartedAt, &job.CompletedAt, status, now)
		return s.repo.SavePrintingJob(ctx, job)
	case StageStitching:
		job, findErr := s.repo.FindStitchingJob(ctx, jobCardID, jobID)
		if findErr != nil {
			return stageJobError(findErr)
		}
		applyStageTransition(&job.Status, &job.StartedAt, &job.CompletedAt, status, now)
		return s.repo.SaveStitchingJob(ctx, job)
	default:
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown stage %q", stage))
	}
}

func applyStageTransition(status *enums.JobStatus, startedAt, completedAt **time.Time, next enums.JobStatus, now time.Time) {
	*status = next
	switch next {
	case enums.JobStatusInProgress:
		if *startedAt == nil {
			*startedAt = &now
		}
	case enums.JobStatusCompleted:
		if *startedAt == nil {
			*startedAt = &now
		}
		*completedAt = &now
	}
}

func stageJobError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "stage job not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find stage job")
}

func buildCuttingJobs(inputs []StageJobInput) []models.CuttingJob {
	jobs := make([]models.CuttingJob, 0, len(inputs))
	for _, input := range inputs {
		jobs = append(jobs, models.CuttingJob{
			WorkerName: input.WorkerName,
			Quantity:   input.Quantity,
			Status:     enums.JobStatusPending,
		})
	}
	return jobs
}

func buildPrintingJobs(inputs []StageJobInput) []models.PrintingJob {
	jobs := make([]models.PrintingJob, 0, len(inputs))
	for _, input := range inputs {
		jobs = append(jobs, models.PrintingJob{
			WorkerName: input.WorkerName,
			Quantity:   input.Quantity,
			Status:     enums.JobStatusPending,
		})
	}
	return jobs
}

func buildStitchingJobs(inputs []StageJobInput) []models.StitchingJob {
	jobs := make([]models.StitchingJob, 0, len(inputs))
	for _, input := range inputs {
		jobs = append(jobs, models.StitchingJob{
			WorkerName: input.WorkerName,
			Quantity:   input.Quantity,
			Status:     enums.JobStatusPending,
		})
	}
	return jobs
}

func jobCardNumber(provided string) string {
	if trimmed := strings.TrimSpace(provided); trimmed != "" {
		return trimmed
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("JC-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}
