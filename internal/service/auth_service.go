package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/auth"
	"github.com/spec-kit/ticket-workflow/internal/config"
	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/repository"
	apperrors "github.com/spec-kit/ticket-workflow/pkg/util/errorutil"
)

const minPasswordLength = 6

// AuthService coordinates registration and login flows.
type AuthService struct {
	users      repository.UserRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	UserRepo repository.UserRepository
	Logger   *zap.Logger
}

// SignUpInput is a self-service registration.
type SignUpInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// Session is an issued access token.
type Session struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:      deps.UserRepo,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
		logger:     defaultLogger(deps.Logger),
	}
}

// SignUp registers a REGULAR user and signs them in.
func (s *AuthService) SignUp(ctx context.Context, input SignUpInput) (*Session, error) {
	user, err := newAccount(input.Username, input.Email, input.Password, input.FirstName, input.LastName, domain.RoleRegular)
	if err != nil {
		return nil, err
	}
	if err := ensureAvailable(ctx, s.users, user.Username, user.Email); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = hash
	if err := s.users.Create(ctx, user); err != nil {
		return nil, notFoundOr(err, "user", nil)
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID), zap.String("username", user.Username))
	return s.issue(user)
}

// SignIn authenticates by username or email.
func (s *AuthService) SignIn(ctx context.Context, login, password string) (*Session, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, apperrors.NewValidationError("username and password are required", nil)
	}

	user, err := s.users.GetByUsername(ctx, login)
	if errors.Is(err, repository.ErrNotFound) {
		user, err = s.users.GetByEmail(ctx, login)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	if !user.Active {
		return nil, apperrors.NewUnauthorized("account is disabled")
	}
	s.upgradeHash(ctx, user, password)
	return s.issue(user)
}

// upgradeHash re-hashes the password when the configured cost changed. A
// failure is logged and the sign-in proceeds.
func (s *AuthService) upgradeHash(ctx context.Context, user *domain.User, password string) {
	if !auth.NeedsRehash(user.PasswordHash, s.bcryptCost) {
		return
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		s.logger.Warn("password rehash failed", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	user.PasswordHash = hash
	if err := s.users.Update(ctx, user); err != nil {
		s.logger.Warn("store rehashed password", zap.String("user_id", user.ID), zap.Error(err))
	}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) issue(user *domain.User) (*Session, error) {
	token, exp, err := s.tokenMgr.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &Session{User: user, Token: token, ExpiresAt: exp}, nil
}

// newAccount validates registration fields and builds an active user.
func newAccount(username, email, password, firstName, lastName string, role domain.Role) (*domain.User, error) {
	username, err := requireText("username", username)
	if err != nil {
		return nil, err
	}
	email, err = requireText("email", email)
	if err != nil {
		return nil, err
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, apperrors.NewValidationError("invalid email", map[string]any{"field": "email"})
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.NewValidationError("password must be at least 6 characters", map[string]any{"field": "password"})
	}
	if len(password) > auth.MaxPasswordBytes {
		return nil, apperrors.NewValidationError("password is too long", map[string]any{"field": "password"})
	}
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}
	return &domain.User{
		Username:  username,
		Email:     strings.ToLower(email),
		FirstName: strings.TrimSpace(firstName),
		LastName:  strings.TrimSpace(lastName),
		Role:      role,
		Active:    true,
	}, nil
}

func ensureAvailable(ctx context.Context, users repository.UserRepository, username, email string) error {
	if _, err := users.GetByUsername(ctx, username); err == nil {
		return apperrors.NewConflict("username is already taken", map[string]any{"field": "username"})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if _, err := users.GetByEmail(ctx, email); err == nil {
		return apperrors.NewConflict("email is already in use", map[string]any{"field": "email"})
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}
