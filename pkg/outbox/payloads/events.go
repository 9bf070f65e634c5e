// Package payloads defines the versioned event payload schemas published
// through the transactional outbox.
package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaterialDelta describes a single inventory movement inside an event.
type MaterialDelta struct {
	MaterialID       uuid.UUID       `json:"materialId"`
	MaterialName     string          `json:"materialName,omitempty"`
	Quantity         decimal.Decimal `json:"quantity"`
	PreviousQuantity decimal.Decimal `json:"previousQuantity"`
	NewQuantity      decimal.Decimal `json:"newQuantity"`
}

// PurchaseCompletedEvent is emitted when a purchase transitions to completed
// and its items are credited to inventory.
type PurchaseCompletedEvent struct {
	PurchaseID     uuid.UUID       `json:"purchaseId"`
	PurchaseNumber string          `json:"purchaseNumber"`
	VendorID       uuid.UUID       `json:"vendorId"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	Deltas         []MaterialDelta `json:"deltas"`
	CompletedAt    time.Time       `json:"completedAt"`
}

// PurchaseReversedEvent is emitted when a completed purchase is reverted to
// draft and its inventory credits are withdrawn.
type PurchaseReversedEvent struct {
	PurchaseID     uuid.UUID       `json:"purchaseId"`
	PurchaseNumber string          `json:"purchaseNumber"`
	Deltas         []MaterialDelta `json:"deltas"`
	ReversedAt     time.Time       `json:"reversedAt"`
}

// OrderCreatedEvent is emitted when a production order is created.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"orderId"`
	OrderNumber string          `json:"orderNumber"`
	PartyName   string          `json:"partyName"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Deltas      []MaterialDelta `json:"deltas,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// OrderDeletedEvent is emitted after a composite order deletion, including
// all inventory reversals performed along the way.
type OrderDeletedEvent struct {
	OrderID         uuid.UUID       `json:"orderId"`
	OrderNumber     string          `json:"orderNumber"`
	JobCardsDeleted int             `json:"jobCardsDeleted"`
	Deltas          []MaterialDelta `json:"deltas,omitempty"`
	DeletedAt       time.Time       `json:"deletedAt"`
}

// JobCardCreatedEvent is emitted when a job card is issued and its material
// consumption is deducted from inventory.
type JobCardCreatedEvent struct {
	JobCardID     uuid.UUID       `json:"jobCardId"`
	JobCardNumber string          `json:"jobCardNumber"`
	OrderID       uuid.UUID       `json:"orderId"`
	Deltas        []MaterialDelta `json:"deltas"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// JobCardDeletedEvent is emitted when a job card is deleted and its material
// consumption is credited back.
type JobCardDeletedEvent struct {
	JobCardID     uuid.UUID       `json:"jobCardId"`
	JobCardNumber string          `json:"jobCardNumber"`
	OrderID       uuid.UUID       `json:"orderId"`
	Deltas        []MaterialDelta `json:"deltas"`
	DeletedAt     time.Time       `json:"deletedAt"`
}

// InventoryAdjustedEvent is emitted for manual stock adjustments.
type InventoryAdjustedEvent struct {
	MaterialID uuid.UUID       `json:"materialId"`
	Delta      MaterialDelta   `json:"delta"`
	Reason     string          `json:"reason,omitempty"`
	AdjustedBy *uuid.UUID      `json:"adjustedBy,omitempty"`
	Quantity   decimal.Decimal `json:"quantity"`
	AdjustedAt time.Time       `json:"adjustedAt"`
}

// InventoryItemDeletedEvent is emitted when a material is hard-deleted while
// its consumption history is preserved.
type InventoryItemDeletedEvent struct {
	MaterialID           uuid.UUID `json:"materialId"`
	MaterialName         string    `json:"materialName"`
	TransactionsDetached int       `json:"transactionsDetached"`
	DeletedAt            time.Time `json:"deletedAt"`
}
