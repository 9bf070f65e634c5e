package enums

import "fmt"

// ReferenceType links an inventory transaction back to the record that caused it.
type ReferenceType string

const (
	ReferencePurchase   ReferenceType = "purchase"
	ReferenceOrder      ReferenceType = "order"
	ReferenceJobCard    ReferenceType = "job_card"
	ReferenceAdjustment ReferenceType = "adjustment"
)

var validReferenceTypes = []ReferenceType{
	ReferencePurchase,
	ReferenceOrder,
	ReferenceJobCard,
	ReferenceAdjustment,
}

// IsValid reports whether the value matches the canonical reference_type enum.
func (r ReferenceType) IsValid() bool {
	for _, candidate := range validReferenceTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReferenceType converts raw input into ReferenceType.
func ParseReferenceType(value string) (ReferenceType, error) {
	for _, candidate := range validReferenceTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid reference type %q", value)
}
