package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/fabworks/fabtrack-backend/pkg/errors"
	"github.com/fabworks/fabtrack-backend/pkg/logger"
)

const defaultPeriodDays = 30

// Period bounds the time-windowed aggregates. Zero values default to the
// trailing thirty days.
type Period struct {
	From time.Time
	To   time.Time
}

func (p Period) normalize(now time.Time) (time.Time, time.Time, error) {
	from, to := p.From, p.To
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -defaultPeriodDays)
	}
	if !from.Before(to) {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "period start must precede period end")
	}
	return from, to, nil
}

// Dashboard is the aggregate snapshot behind the landing page.
type Dashboard struct {
	OrdersByStatus     []StatusCount   `json:"orders_by_status"`
	InventoryValuation decimal.Decimal `json:"inventory_valuation"`
	LowStockCount      int64           `json:"low_stock_count"`
	StageThroughput    []StageCount    `json:"stage_throughput"`
	SpendByVendor      []VendorSpend   `json:"spend_by_vendor"`
	MonthlySpend       []MonthlySpend  `json:"monthly_spend"`
}

// Service serves read-only dashboard aggregates.
type Service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// NewService wires the analytics service.
func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("analytics: repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("analytics: logger is required")
	}
	return &Service{repo: repo, logg: logg, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Dashboard assembles the full aggregate snapshot for the given period.
func (s *Service) Dashboard(ctx context.Context, period Period) (*Dashboard, error) {
	from, to, err := period.normalize(s.now())
	if err != nil {
		return nil, err
	}

	orders, err := s.repo.OrdersByStatus(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "orders by status")
	}
	valuation, err := s.repo.InventoryValuation(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "inventory valuation")
	}
	lowStock, err := s.repo.LowStockCount(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "low stock count")
	}
	stages, err := s.repo.StageThroughput(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "stage throughput")
	}
	spend, err := s.repo.SpendByVendor(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "spend by vendor")
	}
	monthly, err := s.repo.MonthlySpend(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "monthly spend")
	}

	return &Dashboard{
		OrdersByStatus:     orders,
		InventoryValuation: valuation,
		LowStockCount:      lowStock,
		StageThroughput:    stages,
		SpendByVendor:      spend,
		MonthlySpend:       monthly,
	}, nil
}

// Consumption reports consumed quantity per material over the period.
func (s *Service) Consumption(ctx context.Context, period Period) ([]MaterialConsumption, error) {
	from, to, err := period.normalize(s.now())
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ConsumptionByMaterial(ctx, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consumption by material")
	}
	return rows, nil
}
