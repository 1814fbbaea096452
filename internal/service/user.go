package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avelichko/couriertrack/internal/auth"
	"github.com/avelichko/couriertrack/internal/model"
	"github.com/avelichko/couriertrack/internal/store"
)

// userStore is the slice of the user store this service needs.
type userStore interface {
	Create(ctx context.Context, u model.User) (model.User, error)
	GetByID(ctx context.Context, id int64) (model.User, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// UserService handles registration, login and account administration.
type UserService struct {
	users      userStore
	issuer     *auth.Issuer
	bcryptCost int
	log        *slog.Logger
}

// NewUserService creates a user service. A nil logger falls back to
// slog.Default().
func NewUserService(users *store.UserStore, issuer *auth.Issuer, bcryptCost int, logger *slog.Logger) *UserService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{users: users, issuer: issuer, bcryptCost: bcryptCost, log: logger}
}

// RegisterInput is the payload for account creation.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
	Role      model.Role
}

// Register creates an account. Admin accounts are provisioned out of band
// and cannot be self-registered.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (model.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	switch {
	case !strings.Contains(in.Email, "@"):
		return model.User{}, fmt.Errorf("%w: valid email required", ErrInvalidInput)
	case len(in.Password) < 8:
		return model.User{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	case strings.TrimSpace(in.FirstName) == "":
		return model.User{}, fmt.Errorf("%w: first name required", ErrInvalidInput)
	case !in.Role.Valid():
		return model.User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, in.Role)
	case in.Role == model.RoleAdmin:
		return model.User{}, ErrPermissionDenied
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return model.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.users.Create(ctx, model.User{
		Email:        in.Email,
		PasswordHash: hash,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Phone:        in.Phone,
		Role:         in.Role,
		IsActive:     true,
	})
	if err != nil {
		return model.User{}, err
	}

	s.log.Info("user registered", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Login verifies an email/password pair and mints a token pair for the
// account.
func (s *UserService) Login(ctx context.Context, email, password string) (model.User, model.TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.User{}, model.TokenPair{}, ErrInvalidCredentials
		}
		return model.User{}, model.TokenPair{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		s.log.Warn("login rejected", "user_id", u.ID)
		return model.User{}, model.TokenPair{}, ErrInvalidCredentials
	}
	if !u.IsActive {
		return model.User{}, model.TokenPair{}, ErrAccountDisabled
	}

	pair, err := s.issuer.IssuePair(u.ID, u.Role)
	if err != nil {
		return model.User{}, model.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	return u, pair, nil
}

// Refresh exchanges a refresh token for a fresh pair. The account is
// re-read so role changes and deactivation take effect on the next refresh.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (model.TokenPair, error) {
	id, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return model.TokenPair{}, ErrInvalidCredentials
	}

	u, err := s.users.GetByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return model.TokenPair{}, ErrInvalidCredentials
		}
		return model.TokenPair{}, err
	}
	if !u.IsActive {
		return model.TokenPair{}, ErrAccountDisabled
	}

	pair, err := s.issuer.IssuePair(u.ID, u.Role)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	return pair, nil
}

// ChangePassword replaces the caller's password after verifying the current
// one.
func (s *UserService) ChangePassword(ctx context.Context, actor model.Identity, current, next string) error {
	if len(next) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidInput)
	}

	u, err := s.users.GetByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, current) {
		return ErrInvalidCredentials
	}

	hash, err := auth.HashPassword(next, s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, u.ID, hash); err != nil {
		return err
	}

	s.log.Info("password changed", "user_id", u.ID)
	return nil
}

// Me returns the caller's own account.
func (s *UserService) Me(ctx context.Context, actor model.Identity) (model.User, error) {
	return s.users.GetByID(ctx, actor.UserID)
}

// List returns every account. Admin only.
func (s *UserService) List(ctx context.Context, actor model.Identity) ([]model.User, error) {
	if actor.Role != model.RoleAdmin {
		return nil, ErrPermissionDenied
	}
	return s.users.List(ctx)
}

// SetActive enables or disables an account. Admin only; admins cannot
// deactivate themselves.
func (s *UserService) SetActive(ctx context.Context, actor model.Identity, id int64, active bool) error {
	if actor.Role != model.RoleAdmin {
		return ErrPermissionDenied
	}
	if id == actor.UserID && !active {
		return fmt.Errorf("%w: cannot deactivate own account", ErrInvalidInput)
	}
	if err := s.users.SetActive(ctx, id, active); err != nil {
		return err
	}
	s.log.Info("account active flag changed", "user_id", id, "active", active)
	return nil
}
