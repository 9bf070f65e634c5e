package users

import (
	"context"
	"io"
	"testing"
	"time"

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

type fakeRepository struct {
	byEmail     map[string]*models.User
	byID        map[uuid.UUID]*models.User
	created     []*models.User
	roleUpdates map[uuid.UUID]enums.UserRole
	deactivated []uuid.UUID
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		byEmail:     map[string]*models.User{},
		byID:        map[uuid.UUID]*models.User{},
		roleUpdates: map[uuid.UUID]enums.UserRole{},
	}
}

func (f *fakeRepository) add(user *models.User) {
	f.byEmail[user.Email] = user
	f.byID[user.ID] = user
}

func (f *fakeRepository) Create(ctx context.Context, user *models.User) error {
	user.ID = uuid.New()
	f.created = append(f.created, user)
	f.add(user)
	return nil
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if user, ok := f.byID[id]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if user, ok := f.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) List(ctx context.Context, params listParams) ([]models.User, *pagination.Cursor, error) {
	return nil, nil, nil
}

func (f *fakeRepository) UpdateRole(ctx context.Context, id uuid.UUID, role enums.UserRole) error {
	f.roleUpdates[id] = role
	return nil
}

func (f *fakeRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return nil
}

func (f *fakeRepository) SetActive(ctx context.Context, id uuid.UUID, active bool) error {
	if !active {
		f.deactivated = append(f.deactivated, id)
	}
	return nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	svc, err := NewService(repo, config.PasswordConfig{}, logg)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func TestRegisterGeneratesTempPasswordWhenBlank(t *testing.T) {
	repo := newFakeRepository()
	svc := newTestService(t, repo)

	result, err := svc.Register(context.Background(), RegisterInput{
		Email:    "Operator@Example.com",
		FullName: "Line Operator",
		Role:     "operator",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if result.TempPassword == "" {
		t.Fatal("expected generated temp password")
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one created user, got %d", len(repo.created))
	}

	created := repo.created[0]
	if created.Email != "operator@example.com" {
		t.Fatalf("expected lowercased email, got %s", created.Email)
	}
	valid, err := security.VerifyPassword(result.TempPassword, created.PasswordHash)
	if err != nil || !valid {
		t.Fatalf("expected temp password to verify against stored hash, valid=%v err=%v", valid, err)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	repo := newFakeRepository()
	repo.add(&models.User{ID: uuid.New(), Email: "taken@example.com"})
	svc := newTestService(t, repo)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "taken@example.com",
		FullName: "Dup",
		Role:     "manager",
	})
	if err == nil {
		t.Fatal("expected conflict")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %s", code)
	}
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc := newTestService(t, newFakeRepository())

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "new@example.com",
		FullName: "New",
		Role:     "superuser",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %s", code)
	}
}

func TestUpdateRolePromotesOperator(t *testing.T) {
	repo := newFakeRepository()
	admin := &models.User{ID: uuid.New(), Email: "admin@example.com", Role: enums.UserRoleAdmin}
	operator := &models.User{ID: uuid.New(), Email: "op@example.com", Role: enums.UserRoleOperator}
	repo.add(admin)
	repo.add(operator)
	svc := newTestService(t, repo)

	dto, err := svc.UpdateRole(context.Background(), admin.ID, operator.ID, "manager")
	if err != nil {
		t.Fatalf("update role: %v", err)
	}
	if dto.Role != enums.UserRoleManager {
		t.Fatalf("expected manager, got %s", dto.Role)
	}
	if repo.roleUpdates[operator.ID] != enums.UserRoleManager {
		t.Fatalf("expected persisted role update, got %v", repo.roleUpdates)
	}
}

func TestUpdateRoleBlocksSelfDemotion(t *testing.T) {
	repo := newFakeRepository()
	admin := &models.User{ID: uuid.New(), Email: "admin@example.com", Role: enums.UserRoleAdmin}
	repo.add(admin)
	svc := newTestService(t, repo)

	_, err := svc.UpdateRole(context.Background(), admin.ID, admin.ID, "operator")
	if err == nil {
		t.Fatal("expected state conflict")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %s", code)
	}
	if len(repo.roleUpdates) != 0 {
		t.Fatal("expected no persisted role change")
	}
}

func TestDeactivateBlocksSelf(t *testing.T) {
	repo := newFakeRepository()
	admin := &models.User{ID: uuid.New(), Email: "admin@example.com", Role: enums.UserRoleAdmin}
	repo.add(admin)
	svc := newTestService(t, repo)

	if err := svc.Deactivate(context.Background(), admin.ID, admin.ID); err == nil {
		t.Fatal("expected state conflict")
	}

	other := &models.User{ID: uuid.New(), Email: "other@example.com", Role: enums.UserRoleOperator}
	repo.add(other)
	if err := svc.Deactivate(context.Background(), admin.ID, other.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if len(repo.deactivated) != 1 || repo.deactivated[0] != other.ID {
		t.Fatalf("expected other deactivated, got %v", repo.deactivated)
	}
}
