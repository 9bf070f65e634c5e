package jobcards

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/fabworks/fabtrack-backend/internal/inventory"
	"github.com/fabworks/fabtrack-backend/pkg/db/models"
	"github.com/fabworks/fabtrack-backend/pkg/enums"
	pkgerrors "github.com/fabworks/fabtrack-backend/pkg/errors"
	"github.com/fabworks/fabtrack-backend/pkg/logger"
	"github.com/fabworks/fabtrack-backend/pkg/outbox"
	"github.com/fabworks/fabtrack-backend/pkg/pagination"
)

type fakeRepository struct {
	createFn        func(ctx context.Context, card *models.JobCard) error
	findForUpdateFn func(ctx context.Context, id uuid.UUID) (*models.JobCard, error)
	deleteFn        func(ctx context.Context, id uuid.UUID) error
	orderExists     bool
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, card *models.JobCard) error {
	if f.createFn != nil {
		return f.createFn(ctx, card)
	}
	card.ID = uuid.New()
	for i := range card.Components {
		card.Components[i].ID = uuid.New()
	}
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.JobCard, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.JobCard, error) {
	if f.findForUpdateFn != nil {
		return f.findForUpdateFn(ctx, id)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) List(ctx context.Context, params listParams) ([]models.JobCard, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (f *fakeRepository) ListByOrder(ctx context.Context, orderID uuid.UUID) ([]models.JobCard, error) {
	return nil, nil
}

func (f *fakeRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.JobStatus) error {
	return nil
}

func (f *fakeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if f.deleteFn != nil {
		return f.deleteFn(ctx, id)
	}
	return nil
}

func (f *fakeRepository) OrderExists(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return f.orderExists, nil
}

func (f *fakeRepository) FindCuttingJob(ctx context.Context, jobCardID, jobID uuid.UUID) (*models.CuttingJob, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindPrintingJob(ctx context.Context, jobCardID, jobID uuid.UUID) (*models.PrintingJob, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindStitchingJob(ctx context.Context, jobCardID, jobID uuid.UUID) (*models.StitchingJob, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) SaveCuttingJob(ctx context.Context, job *models.CuttingJob) error   { return nil }
func (f *fakeRepository) SavePrintingJob(ctx context.Context, job *models.PrintingJob) error { return nil }
func (f *fakeRepository) SaveStitchingJob(ctx context.Context, job *models.StitchingJob) error {
	return nil
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

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func newTestService(t *testing.T, repo Repository, ledger *fakeLedger) (*Service, *fakeOutbox) {
	t.Helper()
	publisher := &fakeOutbox{}
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(repo, fakeTxRunner{}, ledger, publisher, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, publisher
}

func TestCreateConsumesComponents(t *testing.T) {
	materialID := uuid.New()
	repo := &fakeRepository{orderExists: true}
	ledger := &fakeLedger{}
	svc, publisher := newTestService(t, repo, ledger)

	card, err := svc.Create(context.Background(), CreateInput{
		OrderID: uuid.New(),
		Components: []ComponentInput{
			{MaterialID: &materialID, ComponentType: "cutting", Consumption: decimal.NewFromInt(12)},
			{ComponentType: "accessory", Consumption: decimal.NewFromInt(3)}, // no material, no deduction
		},
		CuttingJobs: []StageJobInput{{WorkerName: "Ravi", Quantity: 120}},
	})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if card.JobCardNumber == "" {
		t.Fatal("expected generated job card number")
	}

	if len(ledger.applied) != 1 {
		t.Fatalf("expected 1 ledger write, got %d", len(ledger.applied))
	}
	applied := ledger.applied[0]
	if !applied.Delta.Equal(decimal.NewFromInt(-12)) {
		t.Fatalf("expected -12, got %s", applied.Delta)
	}
	if applied.Type != enums.TransactionTypeConsumption {
		t.Fatalf("expected consumption type, got %s", applied.Type)
	}
	if applied.Metadata == nil || applied.Metadata.ComponentID == nil {
		t.Fatal("expected component id in metadata")
	}
	if applied.Metadata.ComponentType == nil || *applied.Metadata.ComponentType != enums.ComponentTypeCutting {
		t.Fatalf("expected cutting component type in metadata, got %v", applied.Metadata.ComponentType)
	}

	if len(publisher.events) != 1 || publisher.events[0].EventType != enums.EventJobCardCreated {
		t.Fatalf("expected job_card_created event, got %+v", publisher.events)
	}
}

func TestCreateAbortsOnInsufficientStock(t *testing.T) {
	materialID := uuid.New()
	repo := &fakeRepository{orderExists: true}
	ledger := &fakeLedger{applyErr: pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock")}
	svc, publisher := newTestService(t, repo, ledger)

	_, err := svc.Create(context.Background(), CreateInput{
		OrderID: uuid.New(),
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

// Two components of the same card share one material: 15 for cutting, 8 for
// printing. Deletion must restore 15 and 8 against the right components, not
// 23 against one of them.
func TestDeleteSplitsSharedMaterialPerComponent(t *testing.T) {
	materialID := uuid.New()
	cutComponentID := uuid.New()
	printComponentID := uuid.New()
	cutType := enums.ComponentTypeCutting
	printType := enums.ComponentTypePrinting

	card := &models.JobCard{
		ID:            uuid.New(),
		OrderID:       uuid.New(),
		JobCardNumber: "JC-20250901-TEST",
		Components: []models.CuttingComponent{
			{ID: cutComponentID, MaterialID: &materialID, ComponentType: cutType, Consumption: decimal.NewFromInt(15)},
			{ID: printComponentID, MaterialID: &materialID, ComponentType: printType, Consumption: decimal.NewFromInt(8)},
		},
	}

	ledger := &fakeLedger{
		history: []models.InventoryTransaction{
			{
				MaterialID:      &materialID,
				Quantity:        decimal.NewFromInt(-15),
				TransactionType: enums.TransactionTypeConsumption,
				Metadata:        &models.TransactionMetadata{ComponentID: &cutComponentID, ComponentType: &cutType},
			},
			{
				MaterialID:      &materialID,
				Quantity:        decimal.NewFromInt(-8),
				TransactionType: enums.TransactionTypeConsumption,
				Metadata:        &models.TransactionMetadata{ComponentID: &printComponentID, ComponentType: &printType},
			},
		},
	}

	deleted := false
	repo := &fakeRepository{
		findForUpdateFn: func(ctx context.Context, id uuid.UUID) (*models.JobCard, error) {
			return card, nil
		},
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			deleted = true
			return nil
		},
	}
	svc, publisher := newTestService(t, repo, ledger)

	if err := svc.Delete(context.Background(), card.ID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if !deleted {
		t.Fatal("expected card deletion")
	}

	if len(ledger.applied) != 2 {
		t.Fatalf("expected 2 reversal writes, got %d", len(ledger.applied))
	}
	byComponent := map[uuid.UUID]decimal.Decimal{}
	total := decimal.Zero
	for _, input := range ledger.applied {
		if input.Type != enums.TransactionTypeReversal {
			t.Fatalf("expected reversal type, got %s", input.Type)
		}
		byComponent[*input.Metadata.ComponentID] = input.Delta
		total = total.Add(input.Delta)
	}
	if !byComponent[cutComponentID].Equal(decimal.NewFromInt(15)) {
		t.Fatalf("expected +15 for cutting component, got %s", byComponent[cutComponentID])
	}
	if !byComponent[printComponentID].Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected +8 for printing component, got %s", byComponent[printComponentID])
	}
	if !total.Equal(decimal.NewFromInt(23)) {
		t.Fatalf("expected 23 restored in total, got %s", total)
	}

	if len(publisher.events) != 1 || publisher.events[0].EventType != enums.EventJobCardDeleted {
		t.Fatalf("expected job_card_deleted event, got %+v", publisher.events)
	}
}

// No log rows survive for the card, so reversal falls back to each
// component's stored consumption.
func TestDeleteFallsBackToStoredConsumption(t *testing.T) {
	materialID := uuid.New()
	componentID := uuid.New()

	card := &models.JobCard{
		ID:            uuid.New(),
		OrderID:       uuid.New(),
		JobCardNumber: "JC-20250901-FALL",
		Components: []models.CuttingComponent{
			{ID: componentID, MaterialID: &materialID, ComponentType: enums.ComponentTypeCutting, Consumption: decimal.NewFromInt(9)},
		},
	}

	ledger := &fakeLedger{}
	repo := &fakeRepository{
		findForUpdateFn: func(ctx context.Context, id uuid.UUID) (*models.JobCard, error) {
			return card, nil
		},
	}
	svc, _ := newTestService(t, repo, ledger)

	if err := svc.Delete(context.Background(), card.ID); err != nil {
		t.Fatalf("unexpected delete error: %v", err)
	}
	if len(ledger.applied) != 1 {
		t.Fatalf("expected 1 reversal write, got %d", len(ledger.applied))
	}
	if !ledger.applied[0].Delta.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("expected fallback +9, got %s", ledger.applied[0].Delta)
	}
}

func TestCreateRequiresKnownOrder(t *testing.T) {
	repo := &fakeRepository{orderExists: false}
	svc, _ := newTestService(t, repo, &fakeLedger{})

	_, err := svc.Create(context.Background(), CreateInput{
		OrderID:    uuid.New(),
		Components: []ComponentInput{{ComponentType: "cutting"}},
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %s", code)
	}
}
