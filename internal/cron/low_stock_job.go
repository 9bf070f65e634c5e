package cron

import (
	"context"
	"fmt"

	"github.com/fabworks/fabtrack-backend/pkg/db/models"
	"github.com/fabworks/fabtrack-backend/pkg/logger"
)

type lowStockReader interface {
	ListItemsBelowMinimum(ctx context.Context) ([]models.InventoryItem, error)
}

type LowStockJobParams struct {
	Logger    *logger.Logger
	Inventory lowStockReader
}

// NewLowStockJob reports materials at or under their minimum stock level once
// per cycle. The report lands in the logs; dashboards alert off it.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory reader required")
	}
	return &lowStockJob{
		logg:      params.Logger,
		inventory: params.Inventory,
	}, nil
}

type lowStockJob struct {
	logg      *logger.Logger
	inventory lowStockReader
}

func (j *lowStockJob) Name() string { return "low-stock-report" }

func (j *lowStockJob) Run(ctx context.Context) error {
	items, err := j.inventory.ListItemsBelowMinimum(ctx)
	if err != nil {
		return fmt.Errorf("low stock scan: %w", err)
	}
	if len(items) == 0 {
		j.logg.Info(ctx, "no materials below minimum stock")
		return nil
	}
	for _, item := range items {
		itemCtx := j.logg.WithFields(ctx, map[string]any{
			"material_id":   item.ID.String(),
			"material":      item.Name,
			"quantity":      item.Quantity.String(),
			"minimum_stock": item.MinimumStock.String(),
			"unit":          item.Unit,
		})
		j.logg.Warn(itemCtx, "material below minimum stock")
	}
	summaryCtx := j.logg.WithField(ctx, "low_stock_count", len(items))
	j.logg.Info(summaryCtx, "low stock report complete")
	return nil
}
