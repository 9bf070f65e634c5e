package enums

import "fmt"

// ComponentType names the production stage a material component belongs to.
type ComponentType string

const (
	ComponentTypeCutting   ComponentType = "cutting"
	ComponentTypePrinting  ComponentType = "printing"
	ComponentTypeStitching ComponentType = "stitching"
	ComponentTypeAccessory ComponentType = "accessory"
)

var validComponentTypes = []ComponentType{
	ComponentTypeCutting,
	ComponentTypePrinting,
	ComponentTypeStitching,
	ComponentTypeAccessory,
}

// IsValid reports whether the value matches the canonical component_type enum.
func (c ComponentType) IsValid() bool {
	for _, candidate := range validComponentTypes {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseComponentType converts raw input into ComponentType.
func ParseComponentType(value string) (ComponentType, error) {
	for _, candidate := range validComponentTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid component type %q", value)
}
