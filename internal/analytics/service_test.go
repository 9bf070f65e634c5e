package analytics

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/fabworks/fabtrack-backend/pkg/errors"
	"github.com/fabworks/fabtrack-backend/pkg/logger"
)

type fakeRepository struct {
	spendFrom       time.Time
	spendTo         time.Time
	consumptionFrom time.Time
	consumptionTo   time.Time
}

func (f *fakeRepository) OrdersByStatus(ctx context.Context) ([]StatusCount, error) {
	return []StatusCount{{Status: "pending", Count: 3}}, nil
}

func (f *fakeRepository) InventoryValuation(ctx context.Context) (decimal.Decimal, error) {
	return decimal.NewFromInt(12500), nil
}

func (f *fakeRepository) LowStockCount(ctx context.Context) (int64, error) {
	return 2, nil
}

func (f *fakeRepository) StageThroughput(ctx context.Context) ([]StageCount, error) {
	return []StageCount{{Stage: "cutting", Status: "completed", Count: 4}}, nil
}

func (f *fakeRepository) SpendByVendor(ctx context.Context, from, to time.Time) ([]VendorSpend, error) {
	f.spendFrom, f.spendTo = from, to
	return nil, nil
}

func (f *fakeRepository) MonthlySpend(ctx context.Context, from, to time.Time) ([]MonthlySpend, error) {
	return nil, nil
}

func (f *fakeRepository) ConsumptionByMaterial(ctx context.Context, from, to time.Time) ([]MaterialConsumption, error) {
	f.consumptionFrom, f.consumptionTo = from, to
	return nil, nil
}

func newTestService(t *testing.T, repo Repository, now time.Time) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(repo, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	svc.now = func() time.Time { return now }
	return svc
}

func TestDashboardDefaultsPeriodToTrailingThirtyDays(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	repo := &fakeRepository{}
	svc := newTestService(t, repo, now)

	dash, err := svc.Dashboard(context.Background(), Period{})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}

	if !repo.spendTo.Equal(now) {
		t.Fatalf("expected period end %s, got %s", now, repo.spendTo)
	}
	if want := now.AddDate(0, 0, -30); !repo.spendFrom.Equal(want) {
		t.Fatalf("expected period start %s, got %s", want, repo.spendFrom)
	}
	if dash.LowStockCount != 2 {
		t.Fatalf("expected low stock count 2, got %d", dash.LowStockCount)
	}
	if !dash.InventoryValuation.Equal(decimal.NewFromInt(12500)) {
		t.Fatalf("expected valuation 12500, got %s", dash.InventoryValuation)
	}
}

func TestConsumptionRejectsInvertedPeriod(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo, time.Now().UTC())

	_, err := svc.Consumption(context.Background(), Period{
		From: time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %s", code)
	}
}

func TestConsumptionUsesProvidedPeriod(t *testing.T) {
	repo := &fakeRepository{}
	svc := newTestService(t, repo, time.Now().UTC())

	from := time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.Consumption(context.Background(), Period{From: from, To: to}); err != nil {
		t.Fatalf("consumption: %v", err)
	}
	if !repo.consumptionFrom.Equal(from) || !repo.consumptionTo.Equal(to) {
		t.Fatalf("expected window [%s, %s], got [%s, %s]", from, to, repo.consumptionFrom, repo.consumptionTo)
	}
}
