// Package consumption centralizes the material-consumption rules shared by
// orders, job cards, and purchases: the manual-formula predicate, order-level
// scaling, and the composite key used to attribute reversals.
package consumption

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ManualFormula is the sentinel formula value marking a component as manual.
const ManualFormula = "manual"

// IsManual reports whether a component's consumption is a fixed figure to be
// multiplied by order quantity. Either signal suffices: the formula literal
// or the explicit flag (logical OR, not exclusive).
func IsManual(formula string, manualFlag bool) bool {
	if manualFlag {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(formula), ManualFormula)
}

// OrderConsumption resolves the order-level consumption stored on a component.
// Manual components multiply the base figure by order quantity exactly once,
// here and nowhere else. Calculated components keep their stored figure
// unchanged regardless of quantity.
func OrderConsumption(formula string, manualFlag bool, base decimal.Decimal, orderQuantity int) decimal.Decimal {
	if !IsManual(formula, manualFlag) {
		return base
	}
	return base.Mul(decimal.NewFromInt(int64(orderQuantity)))
}
