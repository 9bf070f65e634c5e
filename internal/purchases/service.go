package purchases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

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
}

// Service owns the purchase lifecycle: draft, ordered, completed, reversed.
// Completion is the only path that credits stock, and it is idempotent.
type Service struct {
	repo   Repository
	tx     txRunner
	ledger stockLedger
	outbox outboxPublisher
	logg   *logger.Logger
}

// NewService wires the purchases service.
func NewService(repo Repository, tx txRunner, ledger stockLedger, publisher outboxPublisher, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("purchases: repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("purchases: tx runner is required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("purchases: stock ledger is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("purchases: outbox publisher is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("purchases: logger is required")
	}
	return &Service{repo: repo, tx: tx, ledger: ledger, outbox: publisher, logg: logg}, nil
}

// ItemInput is one purchase line as submitted by the client.
type ItemInput struct {
	MaterialID  *uuid.UUID      `json:"material_id,omitempty"`
	Quantity    decimal.Decimal `json:"quantity" validate:"required"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ActualMeter decimal.Decimal `json:"actual_meter"`
	GSTRate     decimal.Decimal `json:"gst_rate"`
}

// CreateInput carries the fields for a new purchase order.
type CreateInput struct {
	VendorID       uuid.UUID   `json:"vendor_id" validate:"required"`
	PurchaseNumber string      `json:"purchase_number,omitempty" validate:"max=50"`
	OrderDate      time.Time   `json:"order_date" validate:"required"`
	ExpectedDate   *time.Time  `json:"expected_date,omitempty"`
	Notes          *string     `json:"notes,omitempty"`
	Items          []ItemInput `json:"items" validate:"required,min=1,dive"`
}

// UpdateInput patches a purchase that has not been completed.
type UpdateInput struct {
	Status       *string     `json:"status,omitempty"`
	OrderDate    *time.Time  `json:"order_date,omitempty"`
	ExpectedDate *time.Time  `json:"expected_date,omitempty"`
	Notes        *string     `json:"notes,omitempty"`
	Items        []ItemInput `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

// ListInput narrows and paginates purchase listings.
type ListInput struct {
	Status   string
	VendorID *uuid.UUID
	Limit    int
	Cursor   string
}

// Create registers a draft purchase with its lines and computed totals.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Purchase, error) {
	exists, err := s.repo.VendorExists(ctx, input.VendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check vendor")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor not found")
	}

	items, err := buildItems(input.Items)
	if err != nil {
		return nil, err
	}

	purchase := &models.Purchase{
		PurchaseNumber: purchaseNumber(input.PurchaseNumber),
		VendorID:       input.VendorID,
		Status:         enums.PurchaseStatusDraft,
		OrderDate:      input.OrderDate,
		ExpectedDate:   input.ExpectedDate,
		Notes:          input.Notes,
		Items:          items,
	}
	applyTotals(purchase)

	if err := s.repo.Create(ctx, purchase); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create purchase")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"purchase_id":     purchase.ID.String(),
		"purchase_number": purchase.PurchaseNumber,
	})
	s.logg.Info(logCtx, "purchase.created")
	return purchase, nil
}

// Get fetches a purchase with its lines.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	purchase, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find purchase")
	}
	return purchase, nil
}

// List returns a page of purchases plus the cursor for the next page.
func (s *Service) List(ctx context.Context, input ListInput) ([]models.Purchase, string, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	params := listParams{VendorID: input.VendorID, Limit: input.Limit, Cursor: cursor}
	if input.Status != "" {
		status, parseErr := enums.ParsePurchaseStatus(input.Status)
		if parseErr != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status")
		}
		params.Status = &status
	}

	purchases, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list purchases")
	}

	nextCursor := ""
	if next != nil {
		nextCursor = pagination.EncodeCursor(*next)
	}
	return purchases, nextCursor, nil
}

// Update patches a purchase that has not yet been completed. Status moves are
// limited to draft/ordered/cancelled; completion has its own path.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Purchase, error) {
	var updated *models.Purchase
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		purchase, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock purchase")
		}
		if purchase.Status == enums.PurchaseStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "completed purchase cannot be edited; reverse it first")
		}

		if input.Status != nil {
			status, parseErr := enums.ParsePurchaseStatus(*input.Status)
			if parseErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status")
			}
			if status == enums.PurchaseStatusCompleted {
				return pkgerrors.New(pkgerrors.CodeValidation, "use the completion endpoint to complete a purchase")
			}
			purchase.Status = status
		}
		if input.OrderDate != nil {
			purchase.OrderDate = *input.OrderDate
		}
		if input.ExpectedDate != nil {
			purchase.ExpectedDate = input.ExpectedDate
		}
		if input.Notes != nil {
			purchase.Notes = input.Notes
		}

		if input.Items != nil {
			items, buildErr := buildItems(input.Items)
			if buildErr != nil {
				return buildErr
			}
			if err := repo.ReplaceItems(ctx, purchase.ID, items); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "replace purchase items")
			}
			purchase.Items = items
		}

		applyTotals(purchase)
		if err := repo.Update(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase")
		}
		updated = purchase
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Complete credits every line's effective quantity to inventory, writes one
// log row per line, and marks the purchase completed. Everything happens in
// one transaction; calling it on an already-completed purchase is a no-op.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var completed *models.Purchase
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		purchase, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock purchase")
		}

		if purchase.Status == enums.PurchaseStatusCompleted {
			completed = purchase
			logCtx := s.logg.WithFields(ctx, map[string]any{"purchase_id": purchase.ID.String()})
			s.logg.Info(logCtx, "purchase.complete.noop")
			return nil
		}
		if purchase.Status == enums.PurchaseStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled purchase cannot be completed")
		}

		deltas, err := s.applyItemDeltas(ctx, tx, purchase, false)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		purchase.Status = enums.PurchaseStatusCompleted
		purchase.CompletedAt = &now
		if err := repo.Update(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase status")
		}

		completed = purchase
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseCompleted,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   purchase.ID,
			Data: payloads.PurchaseCompletedEvent{
				PurchaseID:     purchase.ID,
				PurchaseNumber: purchase.PurchaseNumber,
				VendorID:       purchase.VendorID,
				TotalAmount:    purchase.TotalAmount,
				Deltas:         deltas,
				CompletedAt:    now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}

// Reverse withdraws the inventory credited by completion, writing one
// compensating reversal row per line, and reverts the purchase to draft.
// Stock is allowed to go negative here: the books must reflect that the
// credited material was never actually received.
func (s *Service) Reverse(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var reversed *models.Purchase
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		purchase, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock purchase")
		}
		if purchase.Status != enums.PurchaseStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only completed purchases can be reversed")
		}

		deltas, err := s.applyItemDeltas(ctx, tx, purchase, true)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		purchase.Status = enums.PurchaseStatusDraft
		purchase.CompletedAt = nil
		if err := repo.Update(ctx, purchase); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase status")
		}

		reversed = purchase
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPurchaseReversed,
			AggregateType: enums.AggregatePurchase,
			AggregateID:   purchase.ID,
			Data: payloads.PurchaseReversedEvent{
				PurchaseID:     purchase.ID,
				PurchaseNumber: purchase.PurchaseNumber,
				Deltas:         deltas,
				ReversedAt:     now,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return reversed, nil
}

// Delete removes a purchase that has not been completed. Completed purchases
// must be reversed first so their inventory effect is withdrawn on the books.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		purchase, err := repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "purchase not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock purchase")
		}
		if purchase.Status == enums.PurchaseStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "reverse the purchase before deleting it")
		}
		if err := repo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete purchase")
		}
		return nil
	})
}

func (s *Service) applyItemDeltas(ctx context.Context, tx *gorm.DB, purchase *models.Purchase, reverse bool) ([]payloads.MaterialDelta, error) {
	refType := enums.ReferencePurchase
	txnType := enums.TransactionTypePurchase
	if reverse {
		txnType = enums.TransactionTypeReversal
	}

	deltas := make([]payloads.MaterialDelta, 0, len(purchase.Items))
	for _, item := range purchase.Items {
		if item.MaterialID == nil {
			continue
		}
		delta := item.EffectiveQuantity()
		if delta.IsZero() {
			continue
		}
		if reverse {
			delta = delta.Neg()
		}

		result, err := s.ledger.ApplyDeltaTx(ctx, tx, inventory.DeltaInput{
			MaterialID:      *item.MaterialID,
			Delta:           delta,
			Type:            txnType,
			ReferenceType:   &refType,
			ReferenceID:     &purchase.ID,
			ReferenceNumber: &purchase.PurchaseNumber,
			Metadata:        &models.TransactionMetadata{OrderDate: &purchase.OrderDate},
			AllowNegative:   reverse,
		})
		if err != nil {
			return nil, err
		}
		deltas = append(deltas, result.MaterialDelta())
	}
	return deltas, nil
}

func buildItems(inputs []ItemInput) ([]models.PurchaseItem, error) {
	items := make([]models.PurchaseItem, 0, len(inputs))
	for i, input := range inputs {
		if !input.Quantity.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: quantity must be positive", i+1))
		}
		if input.UnitPrice.IsNegative() || input.ActualMeter.IsNegative() || input.GSTRate.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d: amounts cannot be negative", i+1))
		}

		base := input.Quantity.Mul(input.UnitPrice).Round(2)
		gst := base.Mul(input.GSTRate).Div(decimal.NewFromInt(100)).Round(2)
		items = append(items, models.PurchaseItem{
			MaterialID:  input.MaterialID,
			Quantity:    input.Quantity,
			UnitPrice:   input.UnitPrice,
			ActualMeter: input.ActualMeter,
			GSTRate:     input.GSTRate,
			BaseAmount:  base,
			GSTAmount:   gst,
			LineTotal:   base.Add(gst),
		})
	}
	return items, nil
}

func applyTotals(purchase *models.Purchase) {
	base, gst := decimal.Zero, decimal.Zero
	for _, item := range purchase.Items {
		base = base.Add(item.BaseAmount)
		gst = gst.Add(item.GSTAmount)
	}
	purchase.BaseAmount = base
	purchase.GSTAmount = gst
	purchase.TotalAmount = base.Add(gst)
}

func purchaseNumber(provided string) string {
	if trimmed := strings.TrimSpace(provided); trimmed != "" {
		return trimmed
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("PO-%s-%s", time.Now().UTC().Format("20060102"), suffix)
}
