package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregatePurchase      OutboxAggregateType = "purchase"
	AggregateOrder         OutboxAggregateType = "order"
	AggregateJobCard       OutboxAggregateType = "job_card"
	AggregateInventoryItem OutboxAggregateType = "inventory_item"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregatePurchase,
	AggregateOrder,
	AggregateJobCard,
	AggregateInventoryItem,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventPurchaseCompleted    OutboxEventType = "purchase_completed"
	EventPurchaseReversed     OutboxEventType = "purchase_reversed"
	EventOrderCreated         OutboxEventType = "order_created"
	EventOrderDeleted         OutboxEventType = "order_deleted"
	EventJobCardCreated       OutboxEventType = "job_card_created"
	EventJobCardDeleted       OutboxEventType = "job_card_deleted"
	EventInventoryAdjusted    OutboxEventType = "inventory_adjusted"
	EventInventoryItemDeleted OutboxEventType = "inventory_item_deleted"
)

var validOutboxEventTypes = []OutboxEventType{
	EventPurchaseCompleted,
	EventPurchaseReversed,
	EventOrderCreated,
	EventOrderDeleted,
	EventJobCardCreated,
	EventJobCardDeleted,
	EventInventoryAdjusted,
	EventInventoryItemDeleted,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
