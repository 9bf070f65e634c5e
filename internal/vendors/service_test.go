package vendors

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabworks/fabtrack-backend/pkg/db/models"
	pkgerrors "github.com/fabworks/fabtrack-backend/pkg/errors"
	"github.com/fabworks/fabtrack-backend/pkg/logger"
	"github.com/fabworks/fabtrack-backend/pkg/pagination"
)

type fakeRepository struct {
	vendors      map[uuid.UUID]*models.Vendor
	hasPurchases bool
	hasBills     bool
	deleted      []uuid.UUID
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{vendors: make(map[uuid.UUID]*models.Vendor)}
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, vendor *models.Vendor) error {
	if vendor.ID == uuid.Nil {
		vendor.ID = uuid.New()
	}
	f.vendors[vendor.ID] = vendor
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	vendor, ok := f.vendors[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *vendor
	return &copied, nil
}

func (f *fakeRepository) List(ctx context.Context, params listParams) ([]models.Vendor, *pagination.Cursor, error) {
	var rows []models.Vendor
	for _, vendor := range f.vendors {
		rows = append(rows, *vendor)
	}
	return rows, nil, nil
}

func (f *fakeRepository) Update(ctx context.Context, vendor *models.Vendor) error {
	f.vendors[vendor.ID] = vendor
	return nil
}

func (f *fakeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	delete(f.vendors, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRepository) HasPurchases(ctx context.Context, vendorID uuid.UUID) (bool, error) {
	return f.hasPurchases, nil
}

func (f *fakeRepository) HasBills(ctx context.Context, vendorID uuid.UUID) (bool, error) {
	return f.hasBills, nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	svc, err := NewService(repo, logger.New(logger.Options{ServiceName: "vendors-test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestUpdatePatchesOnlyProvidedFields(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)

	gstin := "22AAAAA0000A1Z5"
	created, err := svc.Create(context.Background(), CreateInput{Name: "Shree Fabrics", GSTIN: &gstin})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	phone := "9876543210"
	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{Phone: &phone})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Shree Fabrics" {
		t.Fatalf("name overwritten: %q", updated.Name)
	}
	if updated.GSTIN == nil || *updated.GSTIN != gstin {
		t.Fatalf("gstin lost")
	}
	if updated.Phone == nil || *updated.Phone != phone {
		t.Fatalf("phone not applied")
	}
}

func TestDeleteBlocksVendorWithHistory(t *testing.T) {
	repo := newFakeRepository()
	repo.hasPurchases = true
	svc := newTestService(t, repo)

	created, err := svc.Create(context.Background(), CreateInput{Name: "Shree Fabrics"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	err = svc.Delete(context.Background(), created.ID)
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if len(repo.deleted) != 0 {
		t.Fatalf("vendor deleted despite purchase history")
	}
}

func TestDeleteRemovesUnreferencedVendor(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)

	created, err := svc.Create(context.Background(), CreateInput{Name: "Shree Fabrics"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := svc.Delete(context.Background(), created.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != created.ID {
		t.Fatalf("expected vendor removed")
	}
}

func TestGetUnknownVendorReturnsNotFound(t *testing.T) {
	svc := newTestService(t, newFakeRepository())

	_, err := svc.Get(context.Background(), uuid.New())
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
