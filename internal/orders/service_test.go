package orders

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabworks/fabtrack-backend/internal/inventory"
	"github.com/fabworks/fabtrack-backend/pkg/db/models"
	"github.com/fabworks/fabtrack-backend/pkg/enums"
	pkgerrors "github.com/fabworks/fabtrack-backend/pkg/errors"
	"github.com/fabworks/fabtrack-backend/pkg/logger"
	"github.com/fabworks/fabtrack-backend/pkg/outbox"
	"github.com/fabworks/fabtrack-backend/pkg/outbox/payloads"
	"github.com/fabworks/fabtrack-backend/pkg/pagination"
)

type fakeRepository struct {
	createFn        func(ctx context.Context, order *models.Order) error
	findForUpdateFn func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	jobCardsFn      func(ctx context.Context, orderID uuid.UUID) ([]models.JobCard, error)
	deleteFn        func(ctx context.Context, id uuid.UUID) error
	existsFn        func(ctx context.Context, id uuid.UUID) (bool, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, order *models.Order) error {
	if f.createFn != nil {
		return f.createFn(ctx, order)
	}
	order.ID = uuid.New()
	for i := range order.Components {
		order.Components[i].ID = uuid.New()
	}
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if f.findForUpdateFn != nil {
		return f.findForUpdateFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) List(ctx context.Context, params listParams) ([]models.Order, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (f *fakeRepository) Update(ctx context.Context, order *models.Order) error { return nil }

func (f *fakeRepository) ReplaceComponents(ctx context.Context, orderID uuid.UUID, components []models.OrderComponent) error {
	return nil
}

func (f *fakeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if f.existsFn != nil {
		return f.existsFn(ctx, id)
	}
	return false, nil
}

func (f *fakeRepository) JobCardsWithComponents(ctx context.Context, orderID uuid.UUID) ([]models.JobCard, error) {
	if f.jobCardsFn != nil {
		return f.jobCardsFn(ctx, orderID)
	}
	return nil, nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeLedger struct {
	applied  []inventory.DeltaInput
	history  []models.InventoryTransaction
	applyErr error
}

func (f *fakeLedger) ApplyDeltaTx(ctx context.Context, tx *gorm.DB, input inventory.DeltaInput) (*inventory.DeltaResult, error) {
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	f.applied = append(f.applied, input)
	return &inventory.DeltaResult{
		Transaction: models.InventoryTransaction{
			MaterialID:      &input.MaterialID,
			Quantity:        input.Delta,
			TransactionType: input.Type,
			Metadata:        input.Metadata,
		},
		Item: models.InventoryItem{ID: input.MaterialID},
	}, nil
}

func (f *fakeLedger) TransactionsForReference(ctx context.Context, tx *gorm.DB, refType enums.ReferenceType, refID uuid.UUID) ([]models.InventoryTransaction, error) {
	return f.history, nil
}

type fakeReverser struct {
	reversed []uuid.UUID
	err      error
}

func (f *fakeReverser) ReverseAndDeleteTx(ctx context.Context, tx *gorm.DB, card *models.JobCard) ([]payloads.MaterialDelta, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.reversed = append(f.reversed, card.ID)
	return []payloads.MaterialDelta{{MaterialID: uuid.New(), Quantity: decimal.NewFromInt(1)}}, nil
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func newTestService(t *testing.T, repo Repository, ledger *fakeLedger, reverser *fakeReverser) (*Service, *fakeOutbox) {
	t.Helper()
	publisher := &fakeOutbox{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(repo, fakeTxRunner{}, ledger, reverser, publisher, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, publisher
}

func TestCreateScalesManualComponentsOnce(t *testing.T) {
	svc, publisher := newTestService(t, &fakeRepository{}, &fakeLedger{}, &fakeReverser{})

	order, err := svc.Create(context.Background(), CreateInput{
		PartyName:   "Shree Textiles",
		ProductName: "polo tshirt",
		Quantity:    3,
		OrderDate:   time.Now().UTC(),
		Components: []ComponentInput{
			{ComponentType: "accessory", Formula: "manual", Consumption: decimal.NewFromInt(600)},
			{ComponentType: "cutting", IsManualConsumption: true, Consumption: decimal.NewFromInt(10)},
			{ComponentType: "printing", Formula: "width*height", Consumption: decimal.RequireFromString("4.5")},
		},
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	if !order.Components[0].Consumption.Equal(decimal.NewFromInt(1800)) {
		t.Fatalf("expected 600x3=1800, got %s", order.Components[0].Consumption)
	}
	if !order.Components[1].Consumption.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected flag-only component scaled to 30, got %s", order.Components[1].Consumption)
	}
	if !order.Components[2].Consumption.Equal(decimal.RequireFromString("4.5")) {
		t.Fatalf("expected calculated component untouched, got %s", order.Components[2].Consumption)
	}

	if len(publisher.events) != 1 || publisher.events[0].EventType != enums.EventOrderCreated {
		t.Fatalf("expected order_created event, got %+v", publisher.events)
	}
}

func TestCreateDeductsComponentConsumption(t *testing.T) {
	materialID := uuid.New()
	ledger := &fakeLedger{}
	svc, publisher := newTestService(t, &fakeRepository{}, ledger, &fakeReverser{})

	_, err := svc.Create(context.Background(), CreateInput{
		PartyName:   "Shree Textiles",
		ProductName: "polo tshirt",
		Quantity:    3,
		OrderDate:   time.Now().UTC(),
		Components: []ComponentInput{
			{MaterialID: &materialID, ComponentType: "cutting", Formula: "manual", Consumption: decimal.NewFromInt(600)},
			{ComponentType: "accessory", Consumption: decimal.NewFromInt(5)}, // no material, no deduction
		},
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	if len(ledger.applied) != 1 {
		t.Fatalf("expected 1 ledger write, got %d", len(ledger.applied))
	}
	applied := ledger.applied[0]
	if !applied.Delta.Equal(decimal.NewFromInt(-1800)) {
		t.Fatalf("expected scaled deduction -1800, got %s", applied.Delta)
	}
	if applied.Type != enums.TransactionTypeConsumption {
		t.Fatalf("expected consumption type, got %s", applied.Type)
	}
	if applied.ReferenceType == nil || *applied.ReferenceType != enums.ReferenceOrder {
		t.Fatalf("expected order reference, got %v", applied.ReferenceType)
	}
	if applied.Metadata == nil || applied.Metadata.ComponentID == nil || applied.Metadata.OrderDate == nil {
		t.Fatal("expected component id and order date in metadata")
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.events))
	}
	payload := publisher.events[0].Data.(payloads.OrderCreatedEvent)
	if len(payload.Deltas) != 1 {
		t.Fatalf("expected the deduction in the event payload, got %d deltas", len(payload.Deltas))
	}
}

func TestCreateAbortsOnInsufficientStock(t *testing.T) {
	materialID := uuid.New()
	ledger := &fakeLedger{applyErr: pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock")}
	svc, publisher := newTestService(t, &fakeRepository{}, ledger, &fakeReverser{})

	_, err := svc.Create(context.Background(), CreateInput{
		PartyName:   "Shree Textiles",
		ProductName: "polo tshirt",
		Quantity:    1,
		OrderDate:   time.Now().UTC(),
		Components: []ComponentInput{
			{MaterialID: &materialID, ComponentType: "cutting", Consumption: decimal.NewFromInt(999)},
		},
	})
	if err == nil {
		t.Fatal("expected state conflict")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %s", code)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("expected no events, got %d", len(publisher.events))
	}
}

func TestDeleteCompletelyReversesBeforeCascade(t *testing.T) {
	orderID := uuid.New()
	firstCard := uuid.New()
	secondCard := uuid.New()

	var sequence []string
	reverser := &fakeReverser{}

	repo := &fakeRepository{
		findForUpdateFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: orderID, OrderNumber: "ORD-1"}, nil
		},
		jobCardsFn: func(ctx context.Context, id uuid.UUID) ([]models.JobCard, error) {
			return []models.JobCard{{ID: firstCard}, {ID: secondCard}}, nil
		},
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			if len(reverser.reversed) != 2 {
				t.Fatal("order deleted before all job cards were reversed")
			}
			sequence = append(sequence, "delete")
			return nil
		},
		existsFn: func(ctx context.Context, id uuid.UUID) (bool, error) {
			sequence = append(sequence, "verify")
			return false, nil
		},
	}
	svc, publisher := newTestService(t, repo, &fakeLedger{}, reverser)

	if err := svc.DeleteCompletely(context.Background(), orderID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	if len(reverser.reversed) != 2 || reverser.reversed[0] != firstCard || reverser.reversed[1] != secondCard {
		t.Fatalf("expected both cards reversed in order, got %v", reverser.reversed)
	}
	if len(sequence) != 2 || sequence[0] != "delete" || sequence[1] != "verify" {
		t.Fatalf("expected delete then verify, got %v", sequence)
	}

	if len(publisher.events) != 1 {
		t.Fatalf("expected one event, got %d", len(publisher.events))
	}
	event := publisher.events[0]
	if event.EventType != enums.EventOrderDeleted {
		t.Fatalf("expected order_deleted event, got %s", event.EventType)
	}
	payload := event.Data.(payloads.OrderDeletedEvent)
	if payload.JobCardsDeleted != 2 {
		t.Fatalf("expected 2 job cards in payload, got %d", payload.JobCardsDeleted)
	}
	if len(payload.Deltas) != 2 {
		t.Fatalf("expected aggregated deltas, got %d", len(payload.Deltas))
	}
}

// Deleting an order must also credit back what its own components consumed
// at save time, attributed from the order's log rows.
func TestDeleteCompletelyReversesOrderComponents(t *testing.T) {
	orderID := uuid.New()
	materialID := uuid.New()
	componentID := uuid.New()
	componentType := enums.ComponentTypeCutting

	ledger := &fakeLedger{
		history: []models.InventoryTransaction{
			{
				MaterialID:      &materialID,
				Quantity:        decimal.NewFromInt(-1800),
				TransactionType: enums.TransactionTypeConsumption,
				Metadata:        &models.TransactionMetadata{ComponentID: &componentID, ComponentType: &componentType},
			},
		},
	}

	repo := &fakeRepository{
		findForUpdateFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{
				ID:          orderID,
				OrderNumber: "ORD-5",
				Components: []models.OrderComponent{
					{ID: componentID, MaterialID: &materialID, ComponentType: componentType, Consumption: decimal.NewFromInt(1800)},
				},
			}, nil
		},
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			if len(ledger.applied) != 1 {
				t.Fatal("order deleted before its components were reversed")
			}
			return nil
		},
	}
	svc, publisher := newTestService(t, repo, ledger, &fakeReverser{})

	if err := svc.DeleteCompletely(context.Background(), orderID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}

	if len(ledger.applied) != 1 {
		t.Fatalf("expected 1 reversal write, got %d", len(ledger.applied))
	}
	applied := ledger.applied[0]
	if !applied.Delta.Equal(decimal.NewFromInt(1800)) {
		t.Fatalf("expected +1800 restored, got %s", applied.Delta)
	}
	if applied.Type != enums.TransactionTypeReversal {
		t.Fatalf("expected reversal type, got %s", applied.Type)
	}
	if applied.ReferenceType == nil || *applied.ReferenceType != enums.ReferenceOrder {
		t.Fatalf("expected order reference, got %v", applied.ReferenceType)
	}

	payload := publisher.events[0].Data.(payloads.OrderDeletedEvent)
	if len(payload.Deltas) != 1 {
		t.Fatalf("expected the reversal in the event payload, got %d deltas", len(payload.Deltas))
	}
}

func TestDeleteCompletelyFailsWhenOrderSurvives(t *testing.T) {
	repo := &fakeRepository{
		findForUpdateFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: id, OrderNumber: "ORD-2"}, nil
		},
		existsFn: func(ctx context.Context, id uuid.UUID) (bool, error) {
			return true, nil
		},
	}
	svc, publisher := newTestService(t, repo, &fakeLedger{}, &fakeReverser{})

	err := svc.DeleteCompletely(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected error when order survives deletion")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeInternal {
		t.Fatalf("expected internal error, got %s", code)
	}
	if len(publisher.events) != 0 {
		t.Fatalf("expected no events, got %d", len(publisher.events))
	}
}

func TestDeleteCompletelyAbortsOnReversalFailure(t *testing.T) {
	deleted := false
	repo := &fakeRepository{
		findForUpdateFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			return &models.Order{ID: id, OrderNumber: "ORD-3"}, nil
		},
		jobCardsFn: func(ctx context.Context, id uuid.UUID) ([]models.JobCard, error) {
			return []models.JobCard{{ID: uuid.New()}}, nil
		},
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	reverser := &fakeReverser{err: pkgerrors.New(pkgerrors.CodeDependency, "reversal failed")}
	svc, _ := newTestService(t, repo, &fakeLedger{}, reverser)

	err := svc.DeleteCompletely(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected reversal failure to propagate")
	}
	if deleted {
		t.Fatal("order must not be deleted when reversal fails")
	}
}

func TestBulkDeleteContinuesOnFailure(t *testing.T) {
	good := uuid.New()
	bad := uuid.New()

	repo := &fakeRepository{
		findForUpdateFn: func(ctx context.Context, id uuid.UUID) (*models.Order, error) {
			if id == bad {
				return nil, gorm.ErrRecordNotFound
			}
			return &models.Order{ID: id, OrderNumber: "ORD-4"}, nil
		},
	}
	svc, _ := newTestService(t, repo, &fakeLedger{}, &fakeReverser{})

	result := svc.BulkDelete(context.Background(), []uuid.UUID{bad, good})
	if len(result.Deleted) != 1 || result.Deleted[0] != good {
		t.Fatalf("expected %s deleted, got %v", good, result.Deleted)
	}
	if len(result.Failed) != 1 || result.Failed[0].OrderID != bad {
		t.Fatalf("expected %s failed, got %v", bad, result.Failed)
	}
	if result.Failed[0].Reason == "" {
		t.Fatal("expected failure reason")
	}
}
