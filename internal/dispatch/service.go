package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabworks/fabtrack-backend/pkg/db/models"
	"github.com/fabworks/fabtrack-backend/pkg/enums"
	pkgerrors "github.com/fabworks/fabtrack-backend/pkg/errors"
	"github.com/fabworks/fabtrack-backend/pkg/logger"
	"github.com/fabworks/fabtrack-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service owns dispatches. Cumulative dispatched quantity is capped at the
// order quantity, and hitting the cap marks the order dispatched.
type Service struct {
	repo Repository
	tx   txRunner
	logg *logger.Logger
}

// NewService wires the dispatch service.
func NewService(repo Repository, tx txRunner, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("dispatch: repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("dispatch: tx runner is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("dispatch: logger is required")
	}
	return &Service{repo: repo, tx: tx, logg: logg}, nil
}

// CreateInput carries the fields for a new dispatch.
type CreateInput struct {
	OrderID        uuid.UUID  `json:"order_id" validate:"required"`
	Quantity       int        `json:"quantity" validate:"required,gt=0"`
	DispatchDate   time.Time  `json:"dispatch_date" validate:"required"`
	Courier        *string    `json:"courier,omitempty" validate:"omitempty,max=120"`
	TrackingNumber *string    `json:"tracking_number,omitempty" validate:"omitempty,max=120"`
	Notes          *string    `json:"notes,omitempty"`
}

// ListInput narrows and paginates dispatch listings.
type ListInput struct {
	OrderID *uuid.UUID
	Limit   int
	Cursor  string
}

// Create records a shipment against an order. The order row is locked so
// concurrent dispatches cannot overshoot the order quantity together.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Dispatch, error) {
	dispatch := &models.Dispatch{
		OrderID:        input.OrderID,
		Quantity:       input.Quantity,
		DispatchDate:   input.DispatchDate,
		Courier:        input.Courier,
		TrackingNumber: input.TrackingNumber,
		Notes:          input.Notes,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrderForUpdate(ctx, input.OrderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeValidation, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled order cannot be dispatched")
		}

		alreadyDispatched, err := repo.SumQuantityByOrder(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum dispatched quantity")
		}
		if alreadyDispatched+input.Quantity > order.Quantity {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("dispatch exceeds order quantity: %d of %d already dispatched", alreadyDispatched, order.Quantity))
		}

		if err := repo.Create(ctx, dispatch); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dispatch")
		}

		if alreadyDispatched+input.Quantity == order.Quantity {
			if err := repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusDispatched); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"dispatch_id": dispatch.ID.String(),
		"order_id":    dispatch.OrderID.String(),
		"quantity":    dispatch.Quantity,
	})
	s.logg.Info(logCtx, "dispatch.created")
	return dispatch, nil
}

// Get fetches a single dispatch.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Dispatch, error) {
	dispatch, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispatch not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find dispatch")
	}
	return dispatch, nil
}

// List returns a page of dispatches plus the cursor for the next page.
func (s *Service) List(ctx context.Context, input ListInput) ([]models.Dispatch, string, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	dispatches, next, err := s.repo.List(ctx, listParams{OrderID: input.OrderID, Limit: input.Limit, Cursor: cursor})
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dispatches")
	}

	nextCursor := ""
	if next != nil {
		nextCursor = pagination.EncodeCursor(*next)
	}
	return dispatches, nextCursor, nil
}

// Delete removes a dispatch record. The order drops back to in_production if
// it was fully dispatched before.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		dispatch, err := repo.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "dispatch not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find dispatch")
		}

		order, err := repo.FindOrderForUpdate(ctx, dispatch.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}

		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete dispatch")
		}

		if order.Status == enums.OrderStatusDispatched {
			if err := repo.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusInProduction); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
			}
		}
		return nil
	})
}
