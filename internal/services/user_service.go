package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/saasforge/saasforge/internal/models"
	pkgauth "github.com/saasforge/saasforge/pkg/auth"
	pkglogger "github.com/saasforge/saasforge/pkg/logger"
)

const (
	DefaultPageLimit = 10
	MaxPageLimit     = 25
)

// UserRepository defines the persistence operations the services depend on
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByResetToken(ctx context.Context, token string) (*models.User, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	SearchByName(ctx context.Context, name string, limit, offset int) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id, token string) error
	SetTwoFactorSecret(ctx context.Context, id, secret string) error
	DisableTwoFactor(ctx context.Context, id string) error
	UpdateLastLogin(ctx context.Context, id string) error
	SetStripeCustomerID(ctx context.Context, id, customerID string) error
	UpdatePlan(ctx context.Context, stripeCustomerID, plan string) error
}

// UpdateProfileInput holds the optional profile fields of a PATCH request.
// Nil pointers leave the stored value untouched.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Bio       *string
	Country   *string
}

// UserService handles user profile business logic
type UserService struct {
	repo        UserRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewUserService creates a new UserService
func NewUserService(repo UserRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserService {
	return &UserService{
		repo:        repo,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// GetUser returns a single user profile
func (s *UserService) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return userModelToResponse(user), nil
}

// ListUsers returns a page of users ordered by creation time
func (s *UserService) ListUsers(ctx context.Context, page, limit int) ([]*UserResponse, error) {
	limit, offset := normalizePagination(page, limit)

	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return usersToResponses(users), nil
}

// SearchUsers finds users by first name, case-insensitively
func (s *UserService) SearchUsers(ctx context.Context, name string, page, limit int) ([]*UserResponse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.ErrBadRequest
	}

	limit, offset := normalizePagination(page, limit)

	users, err := s.repo.SearchByName(ctx, name, limit, offset)
	if err != nil {
		s.logger.Error("failed to search users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return usersToResponses(users), nil
}

// UpdateProfile applies a partial profile update
func (s *UserService) UpdateProfile(ctx context.Context, id string, input UpdateProfileInput) (*UserResponse, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Bio != nil {
		user.Bio = strings.TrimSpace(*input.Bio)
	}
	if input.Country != nil {
		user.Country = strings.TrimSpace(*input.Country)
	}

	updated, err := s.repo.UpdateProfile(ctx, id, user)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to update profile", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("profile updated", slog.String("user_id", id))
	return userModelToResponse(updated), nil
}

// ChangePassword replaces the password after verifying the current one
func (s *UserService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", id), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "password_change_failed",
			UserID:        user.ID,
			FailureReason: "invalid_current_password",
			Success:       false,
		})
		return models.ErrUnauthorized
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hashedPassword, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		s.logger.Error("failed to update password",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password changed", slog.String("user_id", user.ID))
	s.auditLogger.LogAccountAction("password_changed", user.ID, nil)
	return nil
}

// normalizePagination converts 1-based page/limit query values into a
// bounded limit and offset.
func normalizePagination(page, limit int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

func usersToResponses(users []*models.User) []*UserResponse {
	responses := make([]*UserResponse, 0, len(users))
	for _, user := range users {
		responses = append(responses, userModelToResponse(user))
	}
	return responses
}
