package billing

import (
	"context"
	"errors"
	"fmt"
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

// Service owns vendor bills and their payment state.
type Service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the billing service.
func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("billing: repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("billing: logger is required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// CreateInput carries the fields for a new vendor bill. GST is computed from
// the base amount and rate; total is base plus GST.
type CreateInput struct {
	VendorID   uuid.UUID       `json:"vendor_id" validate:"required"`
	PurchaseID *uuid.UUID      `json:"purchase_id,omitempty"`
	BillNumber string          `json:"bill_number" validate:"required,max=50"`
	BaseAmount decimal.Decimal `json:"base_amount" validate:"required"`
	GSTRate    decimal.Decimal `json:"gst_rate"`
	BillDate   time.Time       `json:"bill_date" validate:"required"`
	DueDate    *time.Time      `json:"due_date,omitempty"`
}

// UpdateInput patches bill status and dates.
type UpdateInput struct {
	Status  *string    `json:"status,omitempty"`
	DueDate *time.Time `json:"due_date,omitempty"`
}

// ListInput narrows and paginates bill listings.
type ListInput struct {
	VendorID *uuid.UUID
	Status   string
	Limit    int
	Cursor   string
}

// Create registers a vendor bill.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.VendorBill, error) {
	if !input.BaseAmount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base amount must be positive")
	}
	if input.GSTRate.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gst rate cannot be negative")
	}

	exists, err := s.repo.VendorExists(ctx, input.VendorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check vendor")
	}
	if !exists {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor not found")
	}
	if input.PurchaseID != nil {
		purchaseExists, checkErr := s.repo.PurchaseExists(ctx, *input.PurchaseID)
		if checkErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, checkErr, "check purchase")
		}
		if !purchaseExists {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase not found")
		}
	}

	base := input.BaseAmount.Round(2)
	gst := base.Mul(input.GSTRate).Div(decimal.NewFromInt(100)).Round(2)
	bill := &models.VendorBill{
		VendorID:    input.VendorID,
		PurchaseID:  input.PurchaseID,
		BillNumber:  input.BillNumber,
		BaseAmount:  base,
		GSTAmount:   gst,
		TotalAmount: base.Add(gst),
		Status:      enums.BillStatusUnpaid,
		BillDate:    input.BillDate,
		DueDate:     input.DueDate,
	}

	if err := s.repo.Create(ctx, bill); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor bill")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"bill_id":     bill.ID.String(),
		"bill_number": bill.BillNumber,
	})
	s.logg.Info(logCtx, "bill.created")
	return bill, nil
}

// Get fetches a single bill.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.VendorBill, error) {
	bill, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor bill not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find vendor bill")
	}
	return bill, nil
}

// List returns a page of bills plus the cursor for the next page.
func (s *Service) List(ctx context.Context, input ListInput) ([]models.VendorBill, string, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	params := listParams{VendorID: input.VendorID, Limit: input.Limit, Cursor: cursor}
	if input.Status != "" {
		status, parseErr := enums.ParseBillStatus(input.Status)
		if parseErr != nil {
			return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status")
		}
		params.Status = &status
	}

	bills, next, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendor bills")
	}

	nextCursor := ""
	if next != nil {
		nextCursor = pagination.EncodeCursor(*next)
	}
	return bills, nextCursor, nil
}

// Update moves a bill through its payment states.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.VendorBill, error) {
	bill, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Status != nil {
		status, parseErr := enums.ParseBillStatus(*input.Status)
		if parseErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid status")
		}
		bill.Status = status
	}
	if input.DueDate != nil {
		bill.DueDate = input.DueDate
	}

	if err := s.repo.Update(ctx, bill); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor bill")
	}
	return bill, nil
}

// Delete removes an unpaid bill. Paid or partially paid bills stay on record.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	bill, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if bill.Status != enums.BillStatusUnpaid {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "only unpaid bills can be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete vendor bill")
	}
	return nil
}

// Outstanding reports unpaid and partially paid totals per vendor.
func (s *Service) Outstanding(ctx context.Context) ([]VendorOutstanding, error) {
	rows, err := s.repo.OutstandingByVendor(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate outstanding bills")
	}
	return rows, nil
}
