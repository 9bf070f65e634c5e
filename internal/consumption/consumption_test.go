package consumption

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabworks/fabtrack-backend/pkg/db/models"
	"github.com/fabworks/fabtrack-backend/pkg/enums"
)

func TestIsManual(t *testing.T) {
	cases := []struct {
		name    string
		formula string
		flag    bool
		want    bool
	}{
		{name: "neither", formula: "width*height/100", flag: false, want: false},
		{name: "formula only", formula: "manual", flag: false, want: true},
		{name: "flag only", formula: "width*height/100", flag: true, want: true},
		{name: "both", formula: "manual", flag: true, want: true},
		{name: "formula whitespace and case", formula: "  Manual ", flag: false, want: true},
		{name: "empty formula no flag", formula: "", flag: false, want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, IsManual(tc.formula, tc.flag))
		})
	}
}

func TestOrderConsumptionManualMultipliesOnce(t *testing.T) {
	base := decimal.NewFromInt(600)

	got := OrderConsumption("manual", false, base, 3)
	assert.True(t, decimal.NewFromInt(1800).Equal(got), "expected 1800, got %s", got)

	// Re-applying the rule to the already-scaled figure would double it; the
	// saved value is final and must be passed through untouched on reads.
	scaledAgain := OrderConsumption("", false, got, 3)
	assert.True(t, got.Equal(scaledAgain))
}

func TestOrderConsumptionCalculatedIgnoresQuantity(t *testing.T) {
	base := decimal.RequireFromString("12.5")

	got := OrderConsumption("width*2", false, base, 40)
	assert.True(t, base.Equal(got))
}

func TestBuildReversalIndexSplitsSharedMaterial(t *testing.T) {
	materialID := uuid.New()
	cutComponentID := uuid.New()
	printComponentID := uuid.New()

	cutType := enums.ComponentTypeCutting
	printType := enums.ComponentTypePrinting

	txns := []models.InventoryTransaction{
		consumptionRow(materialID, &cutComponentID, &cutType, "-15"),
		consumptionRow(materialID, &printComponentID, &printType, "-8"),
	}

	idx := BuildReversalIndex(txns)
	require.Len(t, idx, 2)

	cutKey := KeyFor(materialID, &cutComponentID, cutType)
	printKey := KeyFor(materialID, &printComponentID, printType)
	assert.True(t, decimal.NewFromInt(15).Equal(idx.Resolve(cutKey, decimal.Zero)))
	assert.True(t, decimal.NewFromInt(8).Equal(idx.Resolve(printKey, decimal.Zero)))
}

func TestBuildReversalIndexFallsBackToComponentType(t *testing.T) {
	materialID := uuid.New()
	cutType := enums.ComponentTypeCutting

	// Older rows carry no component id in metadata.
	txns := []models.InventoryTransaction{
		consumptionRow(materialID, nil, &cutType, "-23"),
	}

	idx := BuildReversalIndex(txns)

	liveComponentID := uuid.New()
	keyWithID := KeyFor(materialID, &liveComponentID, cutType)
	assert.True(t, decimal.Zero.Equal(idx.Resolve(keyWithID, decimal.Zero)))

	keyByType := KeyFor(materialID, nil, cutType)
	assert.True(t, decimal.NewFromInt(23).Equal(idx.Resolve(keyByType, decimal.Zero)))
}

func TestResolveUsesFallbackWhenNoLogMatches(t *testing.T) {
	idx := BuildReversalIndex(nil)
	key := KeyFor(uuid.New(), nil, enums.ComponentTypeCutting)
	assert.True(t, decimal.NewFromInt(7).Equal(idx.Resolve(key, decimal.NewFromInt(-7))))
}

func TestBuildReversalIndexSkipsNonConsumptionRows(t *testing.T) {
	materialID := uuid.New()
	cutType := enums.ComponentTypeCutting

	reversal := consumptionRow(materialID, nil, &cutType, "5")
	reversal.TransactionType = enums.TransactionTypeReversal

	idx := BuildReversalIndex([]models.InventoryTransaction{reversal})
	assert.Empty(t, idx)
}

func consumptionRow(materialID uuid.UUID, componentID *uuid.UUID, componentType *enums.ComponentType, qty string) models.InventoryTransaction {
	return models.InventoryTransaction{
		ID:              uuid.New(),
		MaterialID:      &materialID,
		Quantity:        decimal.RequireFromString(qty),
		TransactionType: enums.TransactionTypeConsumption,
		Metadata: &models.TransactionMetadata{
			ComponentID:   componentID,
			ComponentType: componentType,
		},
	}
}
