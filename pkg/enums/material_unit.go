package enums

import "fmt"

// MaterialUnit is the stocking unit of an inventory item.
type MaterialUnit string

const (
	MaterialUnitMeter MaterialUnit = "meter"
	MaterialUnitKg    MaterialUnit = "kg"
	MaterialUnitPiece MaterialUnit = "piece"
	MaterialUnitYard  MaterialUnit = "yard"
)

var validMaterialUnits = []MaterialUnit{
	MaterialUnitMeter,
	MaterialUnitKg,
	MaterialUnitPiece,
	MaterialUnitYard,
}

// IsValid reports whether the value matches the canonical material_unit enum.
func (u MaterialUnit) IsValid() bool {
	for _, candidate := range validMaterialUnits {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseMaterialUnit converts raw input into MaterialUnit.
func ParseMaterialUnit(value string) (MaterialUnit, error) {
	for _, candidate := range validMaterialUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid material unit %q", value)
}
