package auth

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/clinic-api/internal/model"
	"github.com/jwalitptl/clinic-api/internal/repository"
	"github.com/jwalitptl/clinic-api/internal/service/audit"
	"github.com/jwalitptl/clinic-api/pkg/auth"
	"github.com/jwalitptl/clinic-api/pkg/errors"
	"github.com/jwalitptl/clinic-api/pkg/security"
)

type AuthServicer interface {
	Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error)
	ValidateToken(ctx context.Context, token string) (*model.TokenClaims, error)
}

type Service struct {
	store   repository.Store
	jwtSvc  auth.JWTService
	hasher  security.PasswordHasher
	auditor audit.Auditor
}

func NewService(store repository.Store, jwtSvc auth.JWTService, hasher security.PasswordHasher, auditor audit.Auditor) *Service {
	return &Service{
		store:   store,
		jwtSvc:  jwtSvc,
		hasher:  hasher,
		auditor: auditor,
	}
}

// Login checks the credentials and issues an access token. Unknown
// usernames and wrong passwords are reported the same way.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest) (*model.TokenResponse, error) {
	account, err := s.store.Accounts().GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, errors.Unauthorized(model.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if err := s.hasher.Compare(account.PasswordHash, req.Password); err != nil {
		if stderrors.Is(err, security.ErrWrongPassword) {
			return nil, errors.Unauthorized(model.ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("failed to check password: %w", err)
	}
	if !account.IsActive {
		return nil, errors.Unauthorized(model.ErrAccountInactive)
	}

	var doctorID *uuid.UUID
	if account.Role == model.RoleDoctor {
		doctor, err := s.store.Doctors().GetByAccountID(ctx, account.ID)
		switch {
		case err == nil:
			doctorID = &doctor.ID
		case !stderrors.Is(err, repository.ErrNotFound):
			return nil, fmt.Errorf("failed to get doctor profile: %w", err)
		}
	}

	token, expiresAt, err := s.jwtSvc.GenerateAccessToken(account, doctorID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	ctx = model.ContextWithActor(ctx, model.Actor{AccountID: account.ID, Role: account.Role, DoctorID: doctorID})
	s.auditor.Record(ctx, model.AuditActionLogin, model.AuditEntityAccount, account.ID, &audit.LogOptions{
		Metadata: map[string]string{"username": account.Username},
	})

	return &model.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
		Account:     account,
	}, nil
}

func (s *Service) ValidateToken(ctx context.Context, token string) (*model.TokenClaims, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, errors.Unauthorized(err)
	}
	return claims, nil
}
