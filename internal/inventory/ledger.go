package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabworks/fabtrack-backend/pkg/db/models"
	"github.com/fabworks/fabtrack-backend/pkg/enums"
	pkgerrors "github.com/fabworks/fabtrack-backend/pkg/errors"
	"github.com/fabworks/fabtrack-backend/pkg/outbox/payloads"
)

// DeltaInput describes one signed quantity movement against a material.
type DeltaInput struct {
	MaterialID      uuid.UUID
	Delta           decimal.Decimal
	Type            enums.TransactionType
	ReferenceType   *enums.ReferenceType
	ReferenceID     *uuid.UUID
	ReferenceNumber *string
	Metadata        *models.TransactionMetadata
	AllowNegative   bool
}

// DeltaResult pairs the written log row with the item state it produced.
type DeltaResult struct {
	Transaction models.InventoryTransaction
	Item        models.InventoryItem
}

// MaterialDelta renders the result in the shape domain events carry.
func (r DeltaResult) MaterialDelta() payloads.MaterialDelta {
	return payloads.MaterialDelta{
		MaterialID:       r.Item.ID,
		MaterialName:     r.Item.Name,
		Quantity:         r.Transaction.Quantity,
		PreviousQuantity: r.Transaction.PreviousQuantity,
		NewQuantity:      r.Transaction.NewQuantity,
	}
}

// ApplyDeltaTx mutates a material's quantity and appends the matching log row
// inside the caller's transaction. The item row is locked for the duration,
// so concurrent movements against the same material serialize here. Negative
// resulting stock is rejected unless the input explicitly allows it.
func (s *Service) ApplyDeltaTx(ctx context.Context, tx *gorm.DB, input DeltaInput) (*DeltaResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	if !input.Type.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid transaction type %q", input.Type))
	}
	if input.Delta.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delta cannot be zero")
	}

	repo := s.repo.WithTx(tx)

	item, err := repo.FindItemByIDForUpdate(ctx, input.MaterialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock inventory item")
	}

	previous := item.Quantity
	next := previous.Add(input.Delta)
	if next.IsNegative() && !input.AllowNegative {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("insufficient stock for %s: have %s, need %s", item.Name, previous, input.Delta.Abs()))
	}

	item.Quantity = next
	if err := repo.SaveItemQuantity(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update inventory quantity")
	}

	txn := models.InventoryTransaction{
		MaterialID:       &item.ID,
		Quantity:         input.Delta,
		PreviousQuantity: previous,
		NewQuantity:      next,
		TransactionType:  input.Type,
		ReferenceType:    input.ReferenceType,
		ReferenceID:      input.ReferenceID,
		ReferenceNumber:  input.ReferenceNumber,
		Metadata:         input.Metadata,
	}
	if err := repo.CreateTransaction(ctx, &txn); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "write transaction log")
	}

	return &DeltaResult{Transaction: txn, Item: *item}, nil
}

// TransactionsForReference returns every ledger row written on behalf of a
// reference record, oldest first, inside the caller's transaction.
func (s *Service) TransactionsForReference(ctx context.Context, tx *gorm.DB, refType enums.ReferenceType, refID uuid.UUID) ([]models.InventoryTransaction, error) {
	repo := s.repo.WithTx(tx)
	txns, err := repo.ListTransactionsByReference(ctx, refType, refID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list reference transactions")
	}
	return txns, nil
}
