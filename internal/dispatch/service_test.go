package dispatch

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabworks/fabtrack-backend/pkg/db/models"
	"github.com/fabworks/fabtrack-backend/pkg/enums"
	pkgerrors "github.com/fabworks/fabtrack-backend/pkg/errors"
	"github.com/fabworks/fabtrack-backend/pkg/logger"
	"github.com/fabworks/fabtrack-backend/pkg/pagination"
)

type fakeRepository struct {
	order          *models.Order
	dispatched     int
	created        []*models.Dispatch
	statusUpdates  []enums.OrderStatus
	findDispatchFn func(ctx context.Context, id uuid.UUID) (*models.Dispatch, error)
	deleted        []uuid.UUID
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, dispatch *models.Dispatch) error {
	dispatch.ID = uuid.New()
	f.created = append(f.created, dispatch)
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Dispatch, error) {
	if f.findDispatchFn != nil {
		return f.findDispatchFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) List(ctx context.Context, params listParams) ([]models.Dispatch, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (f *fakeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeRepository) FindOrderForUpdate(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	if f.order == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return f.order, nil
}

func (f *fakeRepository) SumQuantityByOrder(ctx context.Context, orderID uuid.UUID) (int, error) {
	return f.dispatched, nil
}

func (f *fakeRepository) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	f.statusUpdates = append(f.statusUpdates, status)
	return nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(repo, fakeTxRunner{}, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestCreateCapsAtOrderQuantity(t *testing.T) {
	repo := &fakeRepository{
		order:      &models.Order{ID: uuid.New(), Quantity: 100, Status: enums.OrderStatusInProduction},
		dispatched: 80,
	}
	svc := newTestService(t, repo)

	_, err := svc.Create(context.Background(), CreateInput{
		OrderID:      repo.order.ID,
		Quantity:     30,
		DispatchDate: time.Now().UTC(),
	})
	if err == nil {
		t.Fatal("expected state conflict")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %s", code)
	}
	if len(repo.created) != 0 {
		t.Fatal("expected no dispatch row")
	}
}

func TestCreateMarksOrderDispatchedAtCap(t *testing.T) {
	repo := &fakeRepository{
		order:      &models.Order{ID: uuid.New(), Quantity: 100, Status: enums.OrderStatusInProduction},
		dispatched: 80,
	}
	svc := newTestService(t, repo)

	dispatch, err := svc.Create(context.Background(), CreateInput{
		OrderID:      repo.order.ID,
		Quantity:     20,
		DispatchDate: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if dispatch.ID == uuid.Nil {
		t.Fatal("expected dispatch id")
	}
	if len(repo.statusUpdates) != 1 || repo.statusUpdates[0] != enums.OrderStatusDispatched {
		t.Fatalf("expected order marked dispatched, got %v", repo.statusUpdates)
	}
}

func TestCreatePartialLeavesStatusAlone(t *testing.T) {
	repo := &fakeRepository{
		order: &models.Order{ID: uuid.New(), Quantity: 100, Status: enums.OrderStatusInProduction},
	}
	svc := newTestService(t, repo)

	_, err := svc.Create(context.Background(), CreateInput{
		OrderID:      repo.order.ID,
		Quantity:     60,
		DispatchDate: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if len(repo.statusUpdates) != 0 {
		t.Fatalf("expected no status update, got %v", repo.statusUpdates)
	}
}

func TestCreateRejectsCancelledOrder(t *testing.T) {
	repo := &fakeRepository{
		order: &models.Order{ID: uuid.New(), Quantity: 10, Status: enums.OrderStatusCancelled},
	}
	svc := newTestService(t, repo)

	_, err := svc.Create(context.Background(), CreateInput{
		OrderID:      repo.order.ID,
		Quantity:     1,
		DispatchDate: time.Now().UTC(),
	})
	if err == nil {
		t.Fatal("expected state conflict")
	}
}

func TestDeleteRevertsDispatchedStatus(t *testing.T) {
	orderID := uuid.New()
	dispatchID := uuid.New()
	repo := &fakeRepository{
		order: &models.Order{ID: orderID, Quantity: 10, Status: enums.OrderStatusDispatched},
		findDispatchFn: func(ctx context.Context, id uuid.UUID) (*models.Dispatch, error) {
			return &models.Dispatch{ID: dispatchID, OrderID: orderID, Quantity: 10}, nil
		},
	}
	svc := newTestService(t, repo)

	if err := svc.Delete(context.Background(), dispatchID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if len(repo.deleted) != 1 || repo.deleted[0] != dispatchID {
		t.Fatalf("expected dispatch deleted, got %v", repo.deleted)
	}
	if len(repo.statusUpdates) != 1 || repo.statusUpdates[0] != enums.OrderStatusInProduction {
		t.Fatalf("expected order back to in_production, got %v", repo.statusUpdates)
	}
}
