package cron

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fabworks/fabtrack-backend/pkg/db/models"
	"github.com/fabworks/fabtrack-backend/pkg/logger"
)

type fakeLowStockReader struct {
	items []models.InventoryItem
	err   error
	calls int
}

func (f *fakeLowStockReader) ListItemsBelowMinimum(ctx context.Context) ([]models.InventoryItem, error) {
	f.calls++
	return f.items, f.err
}

func TestLowStockJobScansInventory(t *testing.T) {
	reader := &fakeLowStockReader{
		items: []models.InventoryItem{
			{
				ID:           uuid.New(),
				Name:         "lining fabric",
				Quantity:     decimal.NewFromInt(3),
				MinimumStock: decimal.NewFromInt(10),
			},
		},
	}
	job := newLowStockJob(t, reader)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if reader.calls != 1 {
		t.Fatalf("expected one scan, got %d", reader.calls)
	}
}

func TestLowStockJobPropagatesError(t *testing.T) {
	reader := &fakeLowStockReader{err: errors.New("boom")}
	job := newLowStockJob(t, reader)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func newLowStockJob(t *testing.T, reader *fakeLowStockReader) Job {
	t.Helper()
	job, err := NewLowStockJob(LowStockJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "cron-test", Output: io.Discard}),
		Inventory: reader,
	})
	if err != nil {
		t.Fatalf("NewLowStockJob: %v", err)
	}
	return job
}
