package orders

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

// jobCardReverser reverses one card's consumption and removes the card inside
// the caller's transaction. The jobcards service implements it.
type jobCardReverser interface {
	ReverseAndDeleteTx(ctx context.Context, tx *gorm.DB, card *models.JobCard) ([]payloads.MaterialDelta, error)
}

// Service owns manufacturing orders. Saving an order deducts its components'
// consumption from stock; deletion reverses every job card and then the
// order's own components before the cascade removes the records.
type Service struct {
	repo     Repository
	tx       txRunner
	ledger   stockLedger
	reverser jobCardReverser
	outbox   outboxPublisher
	logg     *logger.Logger
}

// NewService wires the orders service.
func NewService(repo Repository, tx txRunner, ledger stockLedger, reverser jobCardReverser, publisher outboxPublisher, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders: repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("orders: tx runner is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("orders: stock ledger is required")
	}
	if reverser == nil {
		return nil, fmt.Errorf("orders: job card reverser is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("orders: outbox publisher is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("orders: logger is required")
	}
	return &Service{repo: repo, tx: tx, ledger: ledger, reverser: reverser, outbox: publisher, logg: logg}, nil
}

// ComponentInput is one material requirement as submitted by the client.
// Consumption is the base figure; manual components are scaled by order
// quantity at save time.
type ComponentInput struct {
	MaterialID          *uuid.UUID      `json:"material_id,omitempty"`
	ComponentType       string          `json:"component_type" validate:"required"`
	Formula             string          `json:"formula,omitempty" validate:"max=200"`
	IsManualConsumption bool            `json:"is_manual_consumption,omitempty"`
	Consumption         decimal.Decimal `json:"consumption"`
}

// CreateInput carries the fields for a new manufacturing order.
type CreateInput struct {
	OrderNumber string           `json:"order_number,omitempty" validate:"max=50"`
	PartyName   string           `json:"party_name" validate:"required,max=200"`
	ProductName string           `json:"product_name" validate:"required,max=200"`
	Quantity    int              `json:"quantity" validate:"required,gt=0"`
	Sizes       []string         `json:"sizes,omitempty"`
	Rate        decimal.Decimal  `json:"rate"`
	OrderDate   time.Time        `json:"order_date" validate:"required"`
	DueDate     *time.Time       `json:"due_date,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
	Components  []ComponentInput `json:"components,omitempty" validate:"omitempty,dive"`
}

// UpdateInput patches an order. When components are supplied they replace the
// existing set and their consumption is recomputed from the base figures.
type UpdateInput struct {
	PartyName   *string          `json:"party_name,omitempty" validate:"omitempty,max=200"`
	ProductName *string          `json:"product_name,omitempty" validate:"omitempty,max=200"`
	Quantity    *int             `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Sizes       []string         `json:"sizes,omitempty"`
	Rate        *decimal.Decimal `json:"rate,omitempty"`
	Status      *string          `json:"status,omitempty"`
	OrderDate   *time.Time       `json:"order_date,omitempty"`
	DueDate     *time.Time       `json:"due_date,omitempty"`
	Notes       *string          `json:"notes,omitempty"`
	Components  []ComponentInput `json:"components,omitempty" validate:"omitempty,dive"`
}

// ListInput narrows and paginates order listings.
type ListInput struct {
	Status string
	Search string
	Limit  int
	Cursor string
}

// Create registers an order. Manual components store base consumption times
// order quantity; the multiplication happens here and only here. Each
// material-bearing component's consumption is deducted from stock in the same
// transaction, one log row per component.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	components, err := buildComponents(input.Components, input.Quantity)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		OrderNumber: orderNumber(input.OrderNumber),
		PartyName:   input.PartyName,
		ProductName: input.ProductName,
		Quantity:    input.Quantity,
		Sizes:       input.Sizes,
		Rate:        input.Rate,
		Status:      enums.OrderStatusPending,
		OrderDate:   input.OrderDate,
		DueDate:     input.DueDate,
		Notes:       input.Notes,
		Components:  components,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}
		deltas, err := s.consumeComponentsTx(ctx, tx, order)
		if err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderCreatedEvent{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				PartyName:   order.PartyName,
				ProductName: order.ProductName,
				Quantity:    order.Quantity,
				Deltas:      deltas,
				CreatedAt:   time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
	})
	s.logg.Info(logCtx, "order.created")
	return order, nil
}

// Get fetches an order with its components and job cards.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find order")
	}
	return order, nil
}

// List returns a page of orders plus the cursor for the next page.
func (s *Service) List(ctx context.Context, input ListInput) ([]models.Order, string, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	params := listParams{Search: input.Search, Limit: input.Limit, Cursor: cursor}
	if input.Status != "" {
		status, parseErr := enums.ParseOrderStatus(input.Status)
		if parseErr != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status")
		}
		params.Status = &status
	}

	orders, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}

	nextCursor := ""
	if next != nil {
		nextCursor = pagination.EncodeCursor(*next)
	}
	return orders, nextCursor, nil
}

// Update patches an order. Supplied components replace the existing set with
// consumption recomputed from their base figures and the effective quantity,
// so stored values are never multiplied twice. Replacement reverses the old
// set's stock deductions and applies the new set's in the same transaction.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Order, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}

		if input.PartyName != nil {
			order.PartyName = *input.PartyName
		}
		if input.ProductName != nil {
			order.ProductName = *input.ProductName
		}
		if input.Quantity != nil {
			order.Quantity = *input.Quantity
		}
		if input.Sizes != nil {
			order.Sizes = input.Sizes
		}
		if input.Rate != nil {
			order.Rate = *input.Rate
		}
		if input.Status != nil {
			status, parseErr := enums.ParseOrderStatus(*input.Status)
			if parseErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status")
			}
			order.Status = status
		}
		if input.OrderDate != nil {
			order.OrderDate = *input.OrderDate
		}
		if input.DueDate != nil {
			order.DueDate = input.DueDate
		}
		if input.Notes != nil {
			order.Notes = input.Notes
		}

		if input.Components != nil {
			components, buildErr := buildComponents(input.Components, order.Quantity)
			if buildErr != nil {
				return buildErr
			}
			if _, err := s.reverseComponentsTx(ctx, tx, order); err != nil {
				return err
			}
			if err := repo.ReplaceComponents(ctx, order.ID, components); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace order components")
			}
			order.Components = components
			if _, err := s.consumeComponentsTx(ctx, tx, order); err != nil {
				return err
			}
		}

		if err := repo.Update(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteCompletely removes an order and everything under it. Every job card
// is reversed first so consumed material returns to stock, then the order's
// own components are reversed, then the cascade removes cards, stage jobs,
// dispatches, and the order itself. The order must be verifiably gone before
// the transaction commits; any failure along the way rolls the whole thing
// back and the order survives untouched.
func (s *Service) DeleteCompletely(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}

		cards, err := repo.JobCardsWithComponents(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load job cards")
		}

		var deltas []payloads.MaterialDelta
		for i := range cards {
			cardDeltas, reverseErr := s.reverser.ReverseAndDeleteTx(ctx, tx, &cards[i])
			if reverseErr != nil {
				return reverseErr
			}
			deltas = append(deltas, cardDeltas...)
		}

		componentDeltas, err := s.reverseComponentsTx(ctx, tx, order)
		if err != nil {
			return err
		}
		deltas = append(deltas, componentDeltas...)

		if err := repo.Delete(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete order")
		}

		exists, err := repo.Exists(ctx, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify order deletion")
		}
		if exists {
			return pkgerrors.New(pkgerrors.CodeInternal, "order still present after deletion")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderDeleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderDeletedEvent{
				OrderID:         order.ID,
				OrderNumber:     order.OrderNumber,
				JobCardsDeleted: len(cards),
				Deltas:          deltas,
				DeletedAt:       time.Now().UTC(),
			},
		})
	})
}

// BulkDeleteResult reports the outcome of a bulk deletion, order by order.
type BulkDeleteResult struct {
	Deleted []uuid.UUID         `json:"deleted"`
	Failed  []BulkDeleteFailure `json:"failed"`
}

// BulkDeleteFailure names one order that could not be deleted and why.
type BulkDeleteFailure struct {
	OrderID uuid.UUID `json:"order_id"`
	Reason  string    `json:"reason"`
}

// BulkDelete runs DeleteCompletely per order, each in its own transaction.
// One failure never blocks the rest.
func (s *Service) BulkDelete(ctx context.Context, ids []uuid.UUID) *BulkDeleteResult {
	result := &BulkDeleteResult{Deleted: []uuid.UUID{}, Failed: []BulkDeleteFailure{}}
	for _, id := range ids {
		if err := s.DeleteCompletely(ctx, id); err != nil {
			result.Failed = append(result.Failed, BulkDeleteFailure{OrderID: id, Reason: pkgerrors.As(err).Message()})
			logCtx := s.logg.WithFields(ctx, map[string]any{"order_id": id.String()})
			s.logg.Error(logCtx, "order.bulk_delete.failed", err)
			continue
		}
		result.Deleted = append(result.Deleted, id)
	}
	return result
}

func (s *Service) consumeComponentsTx(ctx context.Context, tx *gorm.DB, order *models.Order) ([]payloads.MaterialDelta, error) {
	refType := enums.ReferenceOrder
	orderDate := order.OrderDate
	deltas := make([]payloads.MaterialDelta, 0, len(order.Components))
	for i := range order.Components {
		comp := &order.Components[i]
		if comp.MaterialID == nil || !comp.Consumption.IsPositive() {
			continue
		}
		componentType := comp.ComponentType
		result, err := s.ledger.ApplyDeltaTx(ctx, tx, inventory.DeltaInput{
			MaterialID:      *comp.MaterialID,
			Delta:           comp.Consumption.Neg(),
			Type:            enums.TransactionTypeConsumption,
			ReferenceType:   &refType,
			ReferenceID:     &order.ID,
			ReferenceNumber: &order.OrderNumber,
			Metadata: &models.TransactionMetadata{
				ComponentID:   &comp.ID,
				ComponentType: &componentType,
				OrderDate:     &orderDate,
			},
		})
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, result.MaterialDelta())
	}
	return deltas, nil
}

// reverseComponentsTx credits back what the order's components consumed.
// Amounts come from the order's own log rows; components without a matching
// row fall back to their stored consumption.
func (s *Service) reverseComponentsTx(ctx context.Context, tx *gorm.DB, order *models.Order) ([]payloads.MaterialDelta, error) {
	txns, err := s.ledger.TransactionsForReference(ctx, tx, enums.ReferenceOrder, order.ID)
	if err != nil {
		return nil, err
	}
	idx := consumption.BuildReversalIndex(txns)

	refType := enums.ReferenceOrder
	deltas := make([]payloads.MaterialDelta, 0, len(order.Components))
	for i := range order.Components {
		comp := &order.Components[i]
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
			ReferenceID:     &order.ID,
			ReferenceNumber: &order.OrderNumber,
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

func buildComponents(inputs []ComponentInput, orderQuantity int) ([]models.OrderComponent, error) {
	components := make([]models.OrderComponent, 0, len(inputs))
	for i, input := range inputs {
		componentType, err := enums.ParseComponentType(input.ComponentType)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, fmt.Sprintf("component %d", i+1))
		}
		if input.Consumption.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("component %d: consumption cannot be negative", i+1))
		}
		components = append(components, models.OrderComponent{
			MaterialID:          input.MaterialID,
			ComponentType:       componentType,
			Formula:             input.Formula,
			IsManualConsumption: input.IsManualConsumption,
			Consumption:         consumption.OrderConsumption(input.Formula, input.IsManualConsumption, input.Consumption, orderQuantity),
		})
	}
	return components, nil
}

func orderNumber(provided string) string {
	if trimmed := strings.TrimSpace(provided); trimmed != "" {
		return trimmed
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}
