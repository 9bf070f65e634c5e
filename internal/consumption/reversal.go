package consumption

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabworks/fabtrack-backend/pkg/db/models"
	"github.com/fabworks/fabtrack-backend/pkg/enums"
)

// ReversalKey pairs a material with the component that consumed it. Two
// components of one job card may share a material, so reversal amounts can
// never be keyed on material alone.
type ReversalKey struct {
	MaterialID uuid.UUID
	Component  string
}

// KeyFor builds the reversal key for a live component. The component id wins;
// the component type is the fallback discriminator for rows recorded before
// component ids were stamped into transaction metadata.
func KeyFor(materialID uuid.UUID, componentID *uuid.UUID, componentType enums.ComponentType) ReversalKey {
	if componentID != nil && *componentID != uuid.Nil {
		return ReversalKey{MaterialID: materialID, Component: componentID.String()}
	}
	return ReversalKey{MaterialID: materialID, Component: string(componentType)}
}

// KeyFromTransaction derives the reversal key recorded on a consumption log
// row. Returns false when the row carries no material reference.
func KeyFromTransaction(txn models.InventoryTransaction) (ReversalKey, bool) {
	if txn.MaterialID == nil || *txn.MaterialID == uuid.Nil {
		return ReversalKey{}, false
	}
	var (
		componentID   *uuid.UUID
		componentType enums.ComponentType
	)
	if txn.Metadata != nil {
		componentID = txn.Metadata.ComponentID
		if txn.Metadata.ComponentType != nil {
			componentType = *txn.Metadata.ComponentType
		}
	}
	return KeyFor(*txn.MaterialID, componentID, componentType), true
}

// ReversalIndex maps each consuming component to the absolute amount it took.
type ReversalIndex map[ReversalKey]decimal.Decimal

// BuildReversalIndex folds consumption log rows into per-component absolute
// amounts. Amounts are additive, so row order does not matter.
func BuildReversalIndex(txns []models.InventoryTransaction) ReversalIndex {
	idx := make(ReversalIndex, len(txns))
	for _, txn := range txns {
		if txn.TransactionType != enums.TransactionTypeConsumption {
			continue
		}
		key, ok := KeyFromTransaction(txn)
		if !ok {
			continue
		}
		idx[key] = idx[key].Add(txn.Quantity.Abs())
	}
	return idx
}

// Resolve returns the logged amount for the key, or the fallback when no log
// row matched (component added after the last consumption event, or logs
// pruned). The fallback is best-effort, not a correctness guarantee.
func (idx ReversalIndex) Resolve(key ReversalKey, fallback decimal.Decimal) decimal.Decimal {
	if amount, ok := idx[key]; ok {
		return amount
	}
	return fallback.Abs()
}
