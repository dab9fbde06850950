package account

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service"
	"github.com/jwalitptl/clinic-api/internal/service/audit"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

const recentAccountsLimit = 10

type AccountServicer interface {
	CreateAccount(ctx context.Context, req *model.CreateAccountRequest) (*model.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error)
	UpdateAccount(ctx context.Context, id uuid.UUID, req *model.UpdateAccountRequest) (*model.Account, error)
	ToggleActive(ctx context.Context, id uuid.UUID) (*model.Account, error)
	DeleteAccount(ctx context.Context, id uuid.UUID) error
	ListAccounts(ctx context.Context, filters *model.AccountFilters) ([]*model.Account, error)
	CreateSpecialty(ctx context.Context, req *model.CreateSpecialtyRequest) (*model.Specialty, error)
	ListSpecialties(ctx context.Context) ([]*model.Specialty, error)
	DeleteSpecialty(ctx context.Context, id uuid.UUID) error
	DashboardStats(ctx context.Context) (*model.DashboardStats, error)
}

type Service struct {
	store   repository.Store
	hasher  security.PasswordHasher
	auditor audit.Auditor
}

func NewService(store repository.Store, hasher security.PasswordHasher, auditor audit.Auditor) *Service {
	return &Service{
		store:   store,
		hasher:  hasher,
		auditor: auditor,
	}
}

// NewAccount builds an active account with a hashed password. It does not persist anything.
func NewAccount(hasher security.PasswordHasher, req *model.CreateAccountRequest, role model.Role) (*model.Account, error) {
	hash, err := hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	return &model.Account{
		Username:     strings.TrimSpace(req.Username),
		Email:        strings.TrimSpace(req.Email),
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}, nil
}

// UsernameError maps a username unique violation to a Conflict.
func UsernameError(err error, username string) error {
	if repository.IsConstraint(err, repository.ConstraintAccountUsername) {
		return errors.NewConflict(fmt.Sprintf("username %q is already taken", username), err)
	}
	return service.RepoError(err, "create", "account")
}

// CreateAccount creates a staff account. Doctors are created with their
// profile and windows through the schedule service instead.
func (s *Service) CreateAccount(ctx context.Context, req *model.CreateAccountRequest) (*model.Account, error) {
	role := req.Role
	if role == "" {
		role = model.RoleUnassigned
	}
	if role == model.RoleDoctor {
		return nil, errors.NewValidation("role: doctor accounts are created through doctor registration")
	}

	account, err := NewAccount(s.hasher, req, role)
	if err != nil {
		return nil, err
	}
	if err := s.store.Accounts().Create(ctx, account); err != nil {
		return nil, UsernameError(err, account.Username)
	}

	s.auditor.Record(ctx, model.AuditActionCreate, model.AuditEntityAccount, account.ID, &audit.LogOptions{
		Metadata: map[string]interface{}{"username": account.Username, "role": account.Role},
	})
	return account, nil
}

func (s *Service) GetAccount(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	account, err := s.store.Accounts().Get(ctx, id)
	if err != nil {
		return nil, service.RepoError(err, "get", "account")
	}
	return account, nil
}

func (s *Service) UpdateAccount(ctx context.Context, id uuid.UUID, req *model.UpdateAccountRequest) (*model.Account, error) {
	account, err := s.store.Accounts().Get(ctx, id)
	if err != nil {
		return nil, service.RepoError(err, "get", "account")
	}

	changes := map[string]interface{}{}
	if req.Email != nil {
		account.Email = strings.TrimSpace(*req.Email)
		changes["email"] = account.Email
	}
	if req.FirstName != nil {
		account.FirstName = strings.TrimSpace(*req.FirstName)
		changes["first_name"] = account.FirstName
	}
	if req.LastName != nil {
		account.LastName = strings.TrimSpace(*req.LastName)
		changes["last_name"] = account.LastName
	}
	if req.Role != nil && *req.Role != account.Role {
		// a doctor role is tied to the doctor profile
		if *req.Role == model.RoleDoctor || account.Role == model.RoleDoctor {
			return nil, errors.NewValidation("role: the doctor role cannot be granted or revoked by update")
		}
		changes["role"] = map[string]model.Role{"old": account.Role, "new": *req.Role}
		account.Role = *req.Role
	}
	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			return nil, err
		}
		account.PasswordHash = hash
		changes["password"] = "changed"
	}

	if err := s.store.Accounts().Update(ctx, account); err != nil {
		return nil, service.RepoError(err, "update", "account")
	}

	s.auditor.Record(ctx, model.AuditActionUpdate, model.AuditEntityAccount, account.ID, &audit.LogOptions{
		Changes: changes,
	})
	return account, nil
}

// ToggleActive flips is_active. Inactive accounts cannot log in.
func (s *Service) ToggleActive(ctx context.Context, id uuid.UUID) (*model.Account, error) {
	account, err := s.store.Accounts().Get(ctx, id)
	if err != nil {
		return nil, service.RepoError(err, "get", "account")
	}

	account.IsActive = !account.IsActive
	if err := s.store.Accounts().Update(ctx, account); err != nil {
		return nil, service.RepoError(err, "update", "account")
	}

	s.auditor.Record(ctx, model.AuditActionToggle, model.AuditEntityAccount, account.ID, &audit.LogOptions{
		Changes: map[string]bool{"is_active": account.IsActive},
	})
	return account, nil
}

// DeleteAccount removes the account. A doctor's profile and windows go with it.
func (s *Service) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	account, err := s.store.Accounts().Get(ctx, id)
	if err != nil {
		return service.RepoError(err, "get", "account")
	}
	if actor, ok := model.ActorFromContext(ctx); ok && actor.AccountID == id {
		return errors.NewValidation("account: you cannot delete your own account")
	}

	if err := s.store.Accounts().Delete(ctx, id); err != nil {
		return service.RepoError(err, "delete", "account")
	}

	s.auditor.Record(ctx, model.AuditActionDelete, model.AuditEntityAccount, id, &audit.LogOptions{
		Metadata: map[string]interface{}{"username": account.Username, "role": account.Role},
	})
	return nil
}

func (s *Service) ListAccounts(ctx context.Context, filters *model.AccountFilters) ([]*model.Account, error) {
	accounts, err := s.store.Accounts().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (s *Service) CreateSpecialty(ctx context.Context, req *model.CreateSpecialtyRequest) (*model.Specialty, error) {
	specialty := &model.Specialty{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
	}
	if err := s.store.Specialties().Create(ctx, specialty); err != nil {
		if repository.IsConstraint(err, repository.ConstraintSpecialtyName) {
			return nil, errors.NewConflict(fmt.Sprintf("specialty %q already exists", specialty.Name), err)
		}
		return nil, service.RepoError(err, "create", "specialty")
	}

	s.auditor.Record(ctx, model.AuditActionCreate, model.AuditEntitySpecialty, specialty.ID, &audit.LogOptions{
		Metadata: map[string]string{"name": specialty.Name},
	})
	return specialty, nil
}

func (s *Service) ListSpecialties(ctx context.Context) ([]*model.Specialty, error) {
	specialties, err := s.store.Specialties().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list specialties: %w", err)
	}
	return specialties, nil
}

func (s *Service) DeleteSpecialty(ctx context.Context, id uuid.UUID) error {
	if err := s.store.Specialties().Delete(ctx, id); err != nil {
		return service.RepoError(err, "delete", "specialty")
	}
	s.auditor.Record(ctx, model.AuditActionDelete, model.AuditEntitySpecialty, id, nil)
	return nil
}

func (s *Service) DashboardStats(ctx context.Context) (*model.DashboardStats, error) {
	byRole, err := s.store.Accounts().CountByRole(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count accounts: %w", err)
	}
	patients, err := s.store.Patients().Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}
	recent, err := s.store.Accounts().ListRecent(ctx, recentAccountsLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent accounts: %w", err)
	}

	stats := &model.DashboardStats{
		AccountsByRole: map[model.Role]int{},
		RolePercentage: map[model.Role]float64{},
		TotalPatients:  patients,
		RecentAccounts: recent,
		GeneratedAt:    time.Now().UTC(),
	}
	for _, role := range []model.Role{model.RoleDoctor, model.RoleReception, model.RoleAdministrator, model.RoleUnassigned} {
		stats.AccountsByRole[role] = byRole[role]
		stats.TotalAccounts += byRole[role]
	}
	for role, n := range stats.AccountsByRole {
		if stats.TotalAccounts > 0 {
			stats.RolePercentage[role] = float64(n) * 100 / float64(stats.TotalAccounts)
		} else {
			stats.RolePercentage[role] = 0
		}
	}
	return stats, nil
}
