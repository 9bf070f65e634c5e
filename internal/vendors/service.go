package vendors

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabworks/fabtrack-backend/pkg/db/models"
	pkgerrors "github.com/fabworks/fabtrack-backend/pkg/errors"
	"github.com/fabworks/fabtrack-backend/pkg/logger"
	"github.com/fabworks/fabtrack-backend/pkg/pagination"
)

// Service owns supplier records.
type Service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the vendors service.
func NewService(repo Repository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("vendors: repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("vendors: logger is required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// CreateInput carries the fields for a new vendor.
type CreateInput struct {
	Name    string  `json:"name" validate:"required,max=200"`
	GSTIN   *string `json:"gstin,omitempty" validate:"omitempty,max=15"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

// UpdateInput patches vendor fields.
type UpdateInput struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,max=200"`
	GSTIN   *string `json:"gstin,omitempty" validate:"omitempty,max=15"`
	Phone   *string `json:"phone,omitempty" validate:"omitempty,max=20"`
	Address *string `json:"address,omitempty" validate:"omitempty,max=500"`
}

// ListInput narrows and paginates vendor listings.
type ListInput struct {
	Search string
	Limit  int
	Cursor string
}

// Create registers a vendor.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Vendor, error) {
	vendor := &models.Vendor{
		Name:    input.Name,
		GSTIN:   input.GSTIN,
		Phone:   input.Phone,
		Address: input.Address,
	}
	if err := s.repo.Create(ctx, vendor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create vendor")
	}
	return vendor, nil
}

// Get fetches a single vendor.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Vendor, error) {
	vendor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "vendor not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find vendor")
	}
	return vendor, nil
}

// List returns a page of vendors plus the cursor for the next page.
func (s *Service) List(ctx context.Context, input ListInput) ([]models.Vendor, string, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	vendors, next, err := s.repo.List(ctx, listParams{Search: input.Search, Limit: input.Limit, Cursor: cursor})
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list vendors")
	}

	nextCursor := ""
	if next != nil {
		nextCursor = pagination.EncodeCursor(*next)
	}
	return vendors, nextCursor, nil
}

// Update patches a vendor.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Vendor, error) {
	vendor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		vendor.Name = *input.Name
	}
	if input.GSTIN != nil {
		vendor.GSTIN = input.GSTIN
	}
	if input.Phone != nil {
		vendor.Phone = input.Phone
	}
	if input.Address != nil {
		vendor.Address = input.Address
	}

	if err := s.repo.Update(ctx, vendor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update vendor")
	}
	return vendor, nil
}

// Delete removes a vendor with no purchases or bills on record.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	hasPurchases, err := s.repo.HasPurchases(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check vendor purchases")
	}
	hasBills, err := s.repo.HasBills(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check vendor bills")
	}
	if hasPurchases || hasBills {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "vendor has purchases or bills on record")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete vendor")
	}
	return nil
}
