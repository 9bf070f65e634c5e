package billing

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabworks/fabtrack-backend/pkg/db/models"
	"github.com/fabworks/fabtrack-backend/pkg/enums"
	pkgerrors "github.com/fabworks/fabtrack-backend/pkg/errors"
	"github.com/fabworks/fabtrack-backend/pkg/logger"
	"github.com/fabworks/fabtrack-backend/pkg/pagination"
)

type fakeRepository struct {
	bills          map[uuid.UUID]*models.VendorBill
	vendorExists   bool
	purchaseExists bool
	deleted        []uuid.UUID
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		bills:          make(map[uuid.UUID]*models.VendorBill),
		vendorExists:   true,
		purchaseExists: true,
	}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, bill *models.VendorBill) error {
	if bill.ID == uuid.Nil {
		bill.ID = uuid.New()
	}
	f.bills[bill.ID] = bill
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.VendorBill, error) {
	bill, ok := f.bills[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *bill
	return &copied, nil
}

func (f *fakeRepository) List(ctx context.Context, params listParams) ([]models.VendorBill, *pagination.Cursor, error) {
	var rows []models.VendorBill
	for _, bill := range f.bills {
		rows = append(rows, *bill)
	}
	return rows, nil, nil
}

func (f *fakeRepository) Update(ctx context.Context, bill *models.VendorBill) error {
	f.bills[bill.ID] = bill
	return nil
}

func (f *fakeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.bills, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRepository) VendorExists(ctx context.Context, vendorID uuid.UUID) (bool, error) {
	return f.vendorExists, nil
}

func (f *fakeRepository) PurchaseExists(ctx context.Context, purchaseID uuid.UUID) (bool, error) {
	return f.purchaseExists, nil
}

func (f *fakeRepository) OutstandingByVendor(ctx context.Context) ([]VendorOutstanding, error) {
	return nil, nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	svc, err := NewService(repo, logger.New(logger.Options{ServiceName: "billing-test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateComputesGSTAndTotal(t *testing.T) {
	svc := newTestService(t, newFakeRepository())

	bill, err := svc.Create(context.Background(), CreateInput{
		VendorID:   uuid.New(),
		BillNumber: "INV-042",
		BaseAmount: decimal.RequireFromString("1000.00"),
		GSTRate:    decimal.RequireFromString("18"),
		BillDate:   time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !bill.GSTAmount.Equal(decimal.RequireFromString("180.00")) {
		t.Fatalf("gst amount = %s", bill.GSTAmount)
	}
	if !bill.TotalAmount.Equal(decimal.RequireFromString("1180.00")) {
		t.Fatalf("total amount = %s", bill.TotalAmount)
	}
	if bill.Status != enums.BillStatusUnpaid {
		t.Fatalf("new bill status = %s", bill.Status)
	}
}

func TestCreateRejectsNonPositiveBase(t *testing.T) {
	svc := newTestService(t, newFakeRepository())

	_, err := svc.Create(context.Background(), CreateInput{
		VendorID:   uuid.New(),
		BillNumber: "INV-043",
		BaseAmount: decimal.Zero,
		BillDate:   time.Now(),
	})
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRejectsUnknownVendor(t *testing.T) {
	repo := newFakeRepository()
	repo.vendorExists = false
	svc := newTestService(t, repo)

	_, err := svc.Create(context.Background(), CreateInput{
		VendorID:   uuid.New(),
		BillNumber: "INV-044",
		BaseAmount: decimal.NewFromInt(500),
		BillDate:   time.Now(),
	})
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateParsesStatus(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)

	bill, err := svc.Create(context.Background(), CreateInput{
		VendorID:   uuid.New(),
		BillNumber: "INV-045",
		BaseAmount: decimal.NewFromInt(750),
		BillDate:   time.Now(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	status := string(enums.BillStatusPaid)
	updated, err := svc.Update(context.Background(), bill.ID, UpdateInput{Status: &status})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != enums.BillStatusPaid {
		t.Fatalf("status = %s", updated.Status)
	}

	bogus := "settled"
	if _, err := svc.Update(context.Background(), bill.ID, UpdateInput{Status: &bogus}); err == nil {
		t.Fatal("expected invalid status to fail")
	}
}

func TestDeleteOnlyRemovesUnpaidBills(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)

	bill, err := svc.Create(context.Background(), CreateInput{
		VendorID:   uuid.New(),
		BillNumber: "INV-046",
		BaseAmount: decimal.NewFromInt(900),
		BillDate:   time.Now(),
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	repo.bills[bill.ID].Status = enums.BillStatusPaid
	err = svc.Delete(context.Background(), bill.ID)
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	repo.bills[bill.ID].Status = enums.BillStatusUnpaid
	if err := svc.Delete(context.Background(), bill.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(repo.deleted) != 1 {
		t.Fatalf("expected one deletion, got %d", len(repo.deleted))
	}
}
