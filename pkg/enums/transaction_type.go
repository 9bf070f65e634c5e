package enums

import "fmt"

// TransactionType classifies a single inventory quantity change.
type TransactionType string

const (
	TransactionTypePurchase    TransactionType = "purchase"
	TransactionTypeConsumption TransactionType = "consumption"
	TransactionTypeReversal    TransactionType = "reversal"
	TransactionTypeAdjustment  TransactionType = "adjustment"
)

var validTransactionTypes = []TransactionType{
	TransactionTypePurchase,
	TransactionTypeConsumption,
	TransactionTypeReversal,
	TransactionTypeAdjustment,
}

// IsValid reports whether the value matches the canonical transaction_type enum.
func (t TransactionType) IsValid() bool {
	for _, candidate := range validTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTransactionType converts raw input into TransactionType.
func ParseTransactionType(value string) (TransactionType, error) {
	for _, candidate := range validTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid transaction type %q", value)
}
