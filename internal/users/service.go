package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fabworks/fabtrack-backend/pkg/config"
	"github.com/fabworks/fabtrack-backend/pkg/db/models"
	"github.com/fabworks/fabtrack-backend/pkg/enums"
	pkgerrors "github.com/fabworks/fabtrack-backend/pkg/errors"
	"github.com/fabworks/fabtrack-backend/pkg/logger"
	"github.com/fabworks/fabtrack-backend/pkg/pagination"
	"github.com/fabworks/fabtrack-backend/pkg/security"
)

const tempPasswordLength = 12

// Service manages application accounts.
type Service struct {
	repo        Repository
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewService wires the users service.
func NewService(repo Repository, passwordCfg config.PasswordConfig, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users: repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("users: logger is required")
	}
	return &Service{repo: repo, passwordCfg: passwordCfg, logg: logg}, nil
}

// RegisterInput carries the fields for an admin-created account. When Password
// is empty a temporary one is generated and returned once in the result.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"omitempty,min=8"`
	FullName string `json:"full_name" validate:"required,max=200"`
	Role     string `json:"role" validate:"required"`
}

// RegisterResult returns the created account and, when generated, the
// temporary password to hand to the operator.
type RegisterResult struct {
	User         *UserDTO `json:"user"`
	TempPassword string   `json:"temp_password,omitempty"`
}

// ListInput narrows and paginates account listings.
type ListInput struct {
	Search string
	Limit  int
	Cursor string
}

// Register creates an account with a hashed credential.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	role, err := enums.ParseUserRole(input.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if existing, err := s.repo.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup email")
	}

	password := input.Password
	tempPassword := ""
	if password == "" {
		generated, err := security.GenerateTempPassword(tempPasswordLength)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate temp password")
		}
		password = generated
		tempPassword = generated
	}

	hash, err := security.HashPassword(password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(input.FullName),
		Role:         role,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id": user.ID.String(),
		"role":    string(role),
	})
	s.logg.Info(logCtx, "user.registered")

	return &RegisterResult{User: FromModel(user), TempPassword: tempPassword}, nil
}

// Get fetches a single account.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*UserDTO, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find user")
	}
	return FromModel(user), nil
}

// List returns a page of accounts plus the cursor for the next page.
func (s *Service) List(ctx context.Context, input ListInput) ([]UserDTO, string, error) {
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, next, err := s.repo.List(ctx, listParams{Search: input.Search, Limit: input.Limit, Cursor: cursor})
	if err != nil {
		return nil, "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}

	nextCursor := ""
	if next != nil {
		nextCursor = pagination.EncodeCursor(*next)
	}
	return FromModels(rows), nextCursor, nil
}

// UpdateRole changes an account's role. The route is admin-only; the last
// guard here keeps an admin from demoting themselves and locking everyone out.
func (s *Service) UpdateRole(ctx context.Context, actorID, id uuid.UUID, roleValue string) (*UserDTO, error) {
	role, err := enums.ParseUserRole(roleValue)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find user")
	}

	if actorID == id && user.Role == enums.UserRoleAdmin && role != enums.UserRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "admins cannot demote their own account")
	}

	if err := s.repo.UpdateRole(ctx, id, role); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update role")
	}
	user.Role = role

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id": id.String(),
		"role":    string(role),
	})
	s.logg.Info(logCtx, "user.role_updated")

	return FromModel(user), nil
}

// Deactivate disables an account without deleting its history.
func (s *Service) Deactivate(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "cannot deactivate your own account")
	}

	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find user")
	}

	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate user")
	}
	return nil
}
