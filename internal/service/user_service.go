package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-workflow/internal/auth"
	"github.com/spec-kit/ticket-workflow/internal/domain"
	"github.com/spec-kit/ticket-workflow/internal/repository"
	apperrors "github.com/spec-kit/ticket-workflow/pkg/util/errorutil"
)

// UserService implements administrative account management.
type UserService struct {
	users      repository.UserRepository
	ratings    repository.RatingRepository
	bcryptCost int
	logger     *zap.Logger
}

// UserDependencies bundles collaborators for the user service.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	RatingRepo repository.RatingRepository
	BcryptCost int
	Logger     *zap.Logger
}

// CreateUserInput is an account created by an administrator.
type CreateUserInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      domain.Role
}

// UserListFilter describes user listing parameters.
type UserListFilter struct {
	SearchTerm *string
	Role       *domain.Role
	Active     *bool
	repository.Sort
}

// UserPage is one page of a user listing.
type UserPage struct {
	Items []domain.User
	Total int64
	repository.Sort
}

// SupportAgent pairs an agent with the average rating of their tickets.
type SupportAgent struct {
	User          domain.User
	AverageRating *float64
}

// NewUserService constructs the service.
func NewUserService(deps UserDependencies) *UserService {
	return &UserService{
		users:      deps.UserRepo,
		ratings:    deps.RatingRepo,
		bcryptCost: deps.BcryptCost,
		logger:     defaultLogger(deps.Logger),
	}
}

// List returns users matching filter.
func (s *UserService) List(ctx context.Context, filter UserListFilter) (*UserPage, error) {
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": *filter.Role})
	}
	sort := filter.Sort.Normalize()
	items, total, err := s.users.ListWithFilter(ctx, repository.UserFilter{
		SearchTerm: filter.SearchTerm,
		Role:       filter.Role,
		Active:     filter.Active,
		Sort:       sort,
	})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []domain.User{}
	}
	return &UserPage{Items: items, Total: total, Sort: sort}, nil
}

// Get returns one user.
func (s *UserService) Get(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"user_id": userID})
	}
	return user, nil
}

// Create adds an account with any role.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	if input.Role == "" {
		input.Role = domain.RoleRegular
	}
	user, err := newAccount(input.Username, input.Email, input.Password, input.FirstName, input.LastName, input.Role)
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
	s.logger.Info("user created", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return user, nil
}

// ChangeRole sets the user's role.
func (s *UserService) ChangeRole(ctx context.Context, userID string, role domain.Role) (*domain.User, error) {
	if !role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": role})
	}
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Role = role
	if err := s.users.Update(ctx, user); err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"user_id": userID})
	}
	return user, nil
}

// ToggleActive flips the user's active flag. Disabled users cannot sign in.
func (s *UserService) ToggleActive(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Active = !user.Active
	if err := s.users.Update(ctx, user); err != nil {
		return nil, notFoundOr(err, "user", map[string]any{"user_id": userID})
	}
	return user, nil
}

// Delete removes a user that no ticket refers to.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	err := s.users.Delete(ctx, userID)
	switch {
	case err == nil:
		s.logger.Info("user deleted", zap.String("user_id", userID))
		return nil
	case errors.Is(err, repository.ErrConflict):
		return apperrors.NewConflict("user still owns or works tickets", map[string]any{"user_id": userID})
	}
	return notFoundOr(err, "user", map[string]any{"user_id": userID})
}

// SupportAgents lists active agents with their average rating.
func (s *UserService) SupportAgents(ctx context.Context) ([]SupportAgent, error) {
	role := domain.RoleAgent
	active := true
	var agents []SupportAgent
	for offset := 0; ; {
		users, total, err := s.users.ListWithFilter(ctx, repository.UserFilter{
			Role:   &role,
			Active: &active,
			Sort:   repository.Sort{SortBy: "username", Limit: 100, Offset: offset},
		})
		if err != nil {
			return nil, err
		}
		for _, user := range users {
			avg, err := s.ratings.AverageForAssignee(ctx, user.ID)
			if err != nil {
				return nil, err
			}
			agents = append(agents, SupportAgent{User: user, AverageRating: avg})
		}
		offset += len(users)
		if len(users) == 0 || int64(offset) >= total {
			break
		}
	}
	if agents == nil {
		agents = []SupportAgent{}
	}
	return agents, nil
}
