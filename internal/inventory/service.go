package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

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

// Service owns inventory items and the stock ledger. Every quantity change in
// the system, whatever its origin, funnels through ApplyDeltaTx.
type Service struct {
	repo   Repository
	tx     txRunner
	outbox outboxPublisher
	logg   *logger.Logger
}

// NewService wires the inventory service.
func NewService(repo Repository, tx txRunner, publisher outboxPublisher, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("inventory: repository is required")
	}
	if tx == nil {
		return nil, fmt.Errorf("inventory: tx runner is required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("inventory: outbox publisher is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("inventory: logger is required")
	}
	return &Service{repo: repo, tx: tx, outbox: publisher, logg: logg}, nil
}

// CreateItemInput carries the fields for a new inventory item.
type CreateItemInput struct {
	Name         string          `json:"name" validate:"required,max=200"`
	Unit         string          `json:"unit" validate:"required"`
	Color        *string         `json:"color,omitempty"`
	GSM          *int            `json:"gsm,omitempty" validate:"omitempty,gt=0"`
	Quantity     decimal.Decimal `json:"quantity"`
	CostPerUnit  decimal.Decimal `json:"cost_per_unit"`
	MinimumStock decimal.Decimal `json:"minimum_stock"`
}

// UpdateItemInput carries mutable item fields. Quantity is absent on purpose;
// stock only moves through the ledger.
type UpdateItemInput struct {
	Name         *string          `json:"name,omitempty" validate:"omitempty,max=200"`
	Unit         *string          `json:"unit,omitempty"`
	Color        *string          `json:"color,omitempty"`
	GSM          *int             `json:"gsm,omitempty" validate:"omitempty,gt=0"`
	CostPerUnit  *decimal.Decimal `json:"cost_per_unit,omitempty"`
	MinimumStock *decimal.Decimal `json:"minimum_stock,omitempty"`
}

// AdjustInput is a manual stock correction.
type AdjustInput struct {
	Quantity      decimal.Decimal `json:"quantity" validate:"required"`
	Reason        string          `json:"reason,omitempty" validate:"max=500"`
	AllowNegative bool            `json:"allow_negative,omitempty"`
}

// ListItemsInput narrows and paginates item listings.
type ListItemsInput struct {
	Search       string
	LowStockOnly bool
	Limit        int
	Cursor       string
}

// ListTransactionsInput paginates a material's ledger history.
type ListTransactionsInput struct {
	Limit  int
	Cursor string
}

// CreateItem registers a new material. A non-zero opening quantity writes an
// adjustment row so the ledger accounts for every unit on hand.
func (s *Service) CreateItem(ctx context.Context, input CreateItemInput) (*models.InventoryItem, error) {
	unit, err := enums.ParseMaterialUnit(input.Unit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit")
	}
	if input.Quantity.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "opening quantity cannot be negative")
	}

	item := &models.InventoryItem{
		Name:         input.Name,
		Unit:         unit,
		Color:        input.Color,
		GSM:          input.GSM,
		Quantity:     decimal.Zero,
		CostPerUnit:  input.CostPerUnit,
		MinimumStock: input.MinimumStock,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create inventory item")
		}
		if input.Quantity.IsPositive() {
			refType := enums.ReferenceAdjustment
			_, applyErr := s.ApplyDeltaTx(ctx, tx, DeltaInput{
				MaterialID:    item.ID,
				Delta:         input.Quantity,
				Type:          enums.TransactionTypeAdjustment,
				ReferenceType: &refType,
				Metadata:      &models.TransactionMetadata{Note: "opening stock"},
			})
			if applyErr != nil {
				return applyErr
			}
			item.Quantity = input.Quantity
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{"material_id": item.ID.String(), "name": item.Name})
	s.logg.Info(logCtx, "inventory.item.created")
	return item, nil
}

// GetItem fetches a single material.
func (s *Service) GetItem(ctx context.Context, id uuid.UUID) (*models.InventoryItem, error) {
	item, err := s.repo.FindItemByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find inventory item")
	}
	return item, nil
}

// ListItems returns a page of materials plus the cursor for the next page.
func (s *Service) ListItems(ctx context.Context, input ListItemsInput) ([]models.InventoryItem, string, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	items, next, err := s.repo.ListItems(ctx, listItemsParams{
		Filter: ItemFilter{Search: input.Search, LowStockOnly: input.LowStockOnly},
		Limit:  input.Limit,
		Cursor: cursor,
	})
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory items")
	}

	nextCursor := ""
	if next != nil {
		nextCursor = pagination.EncodeCursor(*next)
	}
	return items, nextCursor, nil
}

// UpdateItem patches item metadata. Quantity is immutable here.
func (s *Service) UpdateItem(ctx context.Context, id uuid.UUID, input UpdateItemInput) (*models.InventoryItem, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		item.Name = *input.Name
	}
	if input.Unit != nil {
		unit, parseErr := enums.ParseMaterialUnit(*input.Unit)
		if parseErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid unit")
		}
		item.Unit = unit
	}
	if input.Color != nil {
		item.Color = input.Color
	}
	if input.GSM != nil {
		item.GSM = input.GSM
	}
	if input.CostPerUnit != nil {
		item.CostPerUnit = *input.CostPerUnit
	}
	if input.MinimumStock != nil {
		item.MinimumStock = *input.MinimumStock
	}

	if err := s.repo.UpdateItem(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory item")
	}
	return item, nil
}

// Adjust applies a manual signed correction to a material's quantity.
func (s *Service) Adjust(ctx context.Context, id uuid.UUID, input AdjustInput, actorID *uuid.UUID) (*models.InventoryTransaction, error) {
	if input.Quantity.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "adjustment quantity cannot be zero")
	}

	var result *DeltaResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		refType := enums.ReferenceAdjustment
		var applyErr error
		result, applyErr = s.ApplyDeltaTx(ctx, tx, DeltaInput{
			MaterialID:    id,
			Delta:         input.Quantity,
			Type:          enums.TransactionTypeAdjustment,
			ReferenceType: &refType,
			Metadata:      &models.TransactionMetadata{Note: input.Reason},
			AllowNegative: input.AllowNegative,
		})
		if applyErr != nil {
			return applyErr
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInventoryAdjusted,
			AggregateType: enums.AggregateInventoryItem,
			AggregateID:   id,
			Data: payloads.InventoryAdjustedEvent{
				MaterialID: id,
				Delta:      result.MaterialDelta(),
				Reason:     input.Reason,
				AdjustedBy: actorID,
				Quantity:   input.Quantity,
				AdjustedAt: time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}
	return &result.Transaction, nil
}

// ListTransactions pages through a material's ledger, newest first.
func (s *Service) ListTransactions(ctx context.Context, materialID uuid.UUID, input ListTransactionsInput) ([]models.InventoryTransaction, string, error) {
	if _, err := s.GetItem(ctx, materialID); err != nil {
		return nil, "", err
	}

	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	txns, next, err := s.repo.ListTransactionsByMaterial(ctx, listTransactionsParams{
		MaterialID: materialID,
		Limit:      input.Limit,
		Cursor:     cursor,
	})
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list inventory transactions")
	}

	nextCursor := ""
	if next != nil {
		nextCursor = pagination.EncodeCursor(*next)
	}
	return txns, nextCursor, nil
}

// HardDeletePreview reports what a hard deletion would touch without touching it.
type HardDeletePreview struct {
	MaterialID        uuid.UUID       `json:"material_id"`
	MaterialName      string          `json:"material_name"`
	Quantity          decimal.Decimal `json:"quantity"`
	TransactionLogs   int64           `json:"transaction_logs"`
	PurchaseItems     int64           `json:"purchase_items"`
	OrderComponents   int64           `json:"order_components"`
	CuttingComponents int64           `json:"cutting_components"`
}

// PreviewHardDeletion is the dry run for HardDeleteWithConsumptionPreserve.
// It counts every row that would be detached and changes nothing.
func (s *Service) PreviewHardDeletion(ctx context.Context, id uuid.UUID) (*HardDeletePreview, error) {
	item, err := s.GetItem(ctx, id)
	if err != nil {
		return nil, err
	}

	preview := &HardDeletePreview{
		MaterialID:   item.ID,
		MaterialName: item.Name,
		Quantity:     item.Quantity,
	}

	if preview.TransactionLogs, err = s.repo.CountTransactionsByMaterial(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count transaction logs")
	}
	if preview.PurchaseItems, err = s.repo.CountPurchaseItemRefs(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count purchase items")
	}
	if preview.OrderComponents, err = s.repo.CountOrderComponentRefs(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count order components")
	}
	if preview.CuttingComponents, err = s.repo.CountCuttingComponentRefs(ctx, id); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count cutting components")
	}
	return preview, nil
}

// HardDeleteWithConsumptionPreserve removes a material while keeping its full
// consumption history: referencing rows keep their quantities and lose only
// the material pointer. The whole detach-and-delete runs in one transaction.
func (s *Service) HardDeleteWithConsumptionPreserve(ctx context.Context, id uuid.UUID) (*HardDeletePreview, error) {
	var summary *HardDeletePreview
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindItemByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inventory item")
		}

		summary = &HardDeletePreview{
			MaterialID:   item.ID,
			MaterialName: item.Name,
			Quantity:     item.Quantity,
		}

		if summary.PurchaseItems, err = repo.NullifyPurchaseItemMaterial(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach purchase items")
		}
		if summary.OrderComponents, err = repo.NullifyOrderComponentMaterial(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach order components")
		}
		if summary.CuttingComponents, err = repo.NullifyCuttingComponentMaterial(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach cutting components")
		}
		if summary.TransactionLogs, err = repo.DetachTransactionsForMaterial(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "detach transaction logs")
		}
		if err = repo.DeleteItem(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete inventory item")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInventoryItemDeleted,
			AggregateType: enums.AggregateInventoryItem,
			AggregateID:   id,
			Data: payloads.InventoryItemDeletedEvent{
				MaterialID:           id,
				MaterialName:         summary.MaterialName,
				TransactionsDetached: int(summary.TransactionLogs),
				DeletedAt:            time.Now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"material_id":           summary.MaterialID.String(),
		"transactions_detached": summary.TransactionLogs,
	})
	s.logg.Info(logCtx, "inventory.item.hard_deleted")
	return summary, nil
}
