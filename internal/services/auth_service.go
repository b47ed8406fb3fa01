package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/saasforge/saasforge/internal/auth"
	"github.com/saasforge/saasforge/internal/models"
	pkgauth "github.com/saasforge/saasforge/pkg/auth"
	pkglogger "github.com/saasforge/saasforge/pkg/logger"
)

// AuthService handles registration, login, password reset and second-factor
// flows.
type AuthService struct {
	repo        UserRepository
	tm          *auth.TokenManager
	totp        *auth.TOTPManager
	email       EmailSender
	timing      *auth.TimingDelay
	resetTTL    time.Duration
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	repo UserRepository,
	tm *auth.TokenManager,
	totp *auth.TOTPManager,
	email EmailSender,
	timing *auth.TimingDelay,
	resetTTL time.Duration,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		repo:        repo,
		tm:          tm,
		totp:        totp,
		email:       email,
		timing:      timing,
		resetTTL:    resetTTL,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// UserResponse represents a user in HTTP responses
type UserResponse struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	AvatarURL        string `json:"avatar_url"`
	Bio              string `json:"bio,omitempty"`
	Country          string `json:"country,omitempty"`
	Role             string `json:"role"`
	Status           string `json:"status"`
	Plan             string `json:"plan"`
	TwoFactorEnabled bool   `json:"two_factor_enabled"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// RegisterResponse confirms account creation. Registration never returns a
// token; the client logs in separately.
type RegisterResponse struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

// AuthResponse represents the response from login and 2FA verification.
// When the account has 2FA enabled, login returns the interim two-factor
// token instead of an access token.
type AuthResponse struct {
	AccessToken       string        `json:"access_token,omitempty"`
	TwoFactorRequired bool          `json:"two_factor_required"`
	TwoFactorToken    string        `json:"two_factor_token,omitempty"`
	User              *UserResponse `json:"user,omitempty"`
}

// TwoFactorEnrollmentResponse carries the shared secret and its QR rendering
type TwoFactorEnrollmentResponse struct {
	Secret    string `json:"secret"`
	QRCodeURL string `json:"qr_code_url"`
}

// Register creates a new user account
func (s *AuthService) Register(ctx context.Context, email, password, firstName, lastName string) (*RegisterResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)

	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if firstName == "" || lastName == "" {
		return nil, fmt.Errorf("first and last name are required")
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	_, err := s.repo.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: email already registered")
		return nil, models.ErrConflict
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if user exists", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hashedPassword,
		FirstName:    firstName,
		LastName:     lastName,
		AvatarURL:    initialsAvatarURL(firstName, lastName),
	}

	createdUser, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// Best-effort: registration succeeds even when the welcome email fails
	if err := s.email.SendWelcomeEmail(ctx, createdUser.Email, createdUser.FirstName); err != nil {
		s.logger.Warn("failed to send welcome email",
			slog.String("user_id", createdUser.ID),
			slog.Any("error", err))
	}

	s.logger.Info("user registered", slog.String("user_id", createdUser.ID))
	s.auditLogger.LogAccountAction("user_registered", createdUser.ID, nil)

	return &RegisterResponse{
		Message: "Account created successfully",
		Email:   createdUser.Email,
	}, nil
}

// Login authenticates a user. Accounts with 2FA enabled receive an interim
// two-factor token; the access token is only issued by VerifyTwoFactor.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, models.ErrNotFound
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     "login_failed",
				FailureReason: "unknown_email",
				Success:       false,
			})
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := validateAccountState(user); err != nil {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			FailureReason: "account_blocked",
			Success:       false,
		})
		return nil, err
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "login_failed",
			UserID:        user.ID,
			FailureReason: "invalid_credentials",
			Success:       false,
		})
		return nil, models.ErrUnauthorized
	}

	// Best-effort telemetry
	if err := s.repo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}

	if user.TwoFactorEnabled {
		twoFactorToken, err := s.tm.GenerateTwoFactorToken(user.ID, user.Email)
		if err != nil {
			s.logger.Error("failed to generate two-factor token",
				slog.String("user_id", user.ID),
				slog.Any("error", err))
			return nil, models.ErrInternalServer
		}

		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType: "login_two_factor_pending",
			UserID:    user.ID,
			Success:   true,
		})

		return &AuthResponse{
			TwoFactorRequired: true,
			TwoFactorToken:    twoFactorToken,
		}, nil
	}

	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate access token",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		Success:   true,
	})

	return &AuthResponse{
		AccessToken: accessToken,
		User:        userModelToResponse(user),
	}, nil
}

// RequestPasswordReset starts the reset flow. The response is uniform
// whether or not the email is registered, and the timing delay keeps the
// two paths indistinguishable by latency.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	defer s.timing.Wait()

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("password reset requested for unknown email",
				slog.String("email", pkglogger.SanitizedEmail(email)))
			return nil
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if user == nil {
		return nil
	}

	token, err := pkgauth.GenerateResetToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.SetResetToken(ctx, user.ID, token); err != nil {
		s.logger.Error("failed to persist reset token",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	// Best-effort: the response stays uniform even when delivery fails
	if err := s.email.SendPasswordResetEmail(ctx, user.Email, user.FirstName, token); err != nil {
		s.logger.Error("failed to send password reset email",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
	}

	s.auditLogger.LogAccountAction("password_reset_requested", user.ID, nil)
	return nil
}

// VerifyResetToken checks that a reset token is known, in progress and not
// expired, without consuming it.
func (s *AuthService) VerifyResetToken(ctx context.Context, token string) error {
	if strings.TrimSpace(token) == "" {
		return models.ErrBadRequest
	}

	user, err := s.repo.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user by reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	return s.checkResetState(user)
}

// ResetPassword completes the reset flow and consumes the token.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if strings.TrimSpace(token) == "" {
		return models.ErrBadRequest
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.repo.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user by reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.checkResetState(user); err != nil {
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

	s.logger.Info("password reset completed", slog.String("user_id", user.ID))
	s.auditLogger.LogAccountAction("password_reset_completed", user.ID, nil)
	return nil
}

// checkResetState validates that a fetched user has an in-progress,
// unexpired reset request.
func (s *AuthService) checkResetState(user *models.User) error {
	if !user.IsResettingPassword {
		return models.ErrResetNotRequested
	}
	if user.ResetRequestedAt == nil || time.Since(*user.ResetRequestedAt) > s.resetTTL {
		return models.ErrResetTokenExpired
	}
	return nil
}

// EnableTwoFactor enrolls the user in TOTP-based 2FA and returns the secret
// alongside a scannable QR code.
func (s *AuthService) EnableTwoFactor(ctx context.Context, userID string) (*TwoFactorEnrollmentResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	enrollment, err := s.totp.Enroll(user.Email)
	if err != nil {
		s.logger.Error("failed to generate TOTP enrollment",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.repo.SetTwoFactorSecret(ctx, user.ID, enrollment.Secret); err != nil {
		s.logger.Error("failed to persist TOTP secret",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("two-factor enrolled", slog.String("user_id", user.ID))
	s.auditLogger.LogAccountAction("two_factor_enrolled", user.ID, nil)

	return &TwoFactorEnrollmentResponse{
		Secret:    enrollment.Secret,
		QRCodeURL: enrollment.QRCodeURL,
	}, nil
}

// VerifyTwoFactor checks a TOTP code and exchanges the interim two-factor
// token for a full access token.
func (s *AuthService) VerifyTwoFactor(ctx context.Context, userID, code string) (*AuthResponse, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !user.TwoFactorEnabled || user.TwoFactorSecret == nil {
		return nil, models.ErrTwoFactorNotEnrolled
	}

	valid, err := s.totp.VerifyCode(*user.TwoFactorSecret, code)
	if err != nil {
		s.logger.Error("failed to validate TOTP code",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if !valid {
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     "two_factor_failed",
			UserID:        user.ID,
			FailureReason: "invalid_code",
			Success:       false,
		})
		return nil, models.ErrTwoFactorInvalidCode
	}

	accessToken, err := s.tm.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		s.logger.Error("failed to generate access token",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("two-factor verified", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "two_factor_success",
		UserID:    user.ID,
		Success:   true,
	})

	return &AuthResponse{
		AccessToken: accessToken,
		User:        userModelToResponse(user),
	}, nil
}

// DisableTwoFactor removes the TOTP secret and backup codes from the account
func (s *AuthService) DisableTwoFactor(ctx context.Context, userID string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if !user.TwoFactorEnabled {
		return models.ErrTwoFactorNotEnrolled
	}

	if err := s.repo.DisableTwoFactor(ctx, user.ID); err != nil {
		s.logger.Error("failed to disable two-factor",
			slog.String("user_id", user.ID),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("two-factor disabled", slog.String("user_id", user.ID))
	s.auditLogger.LogAccountAction("two_factor_disabled", user.ID, nil)
	return nil
}

// validateAccountState checks if a user account may authenticate
func validateAccountState(user *models.User) error {
	switch user.Status {
	case models.StatusActive:
		return nil
	case models.StatusInactive:
		return models.ErrAccountInactive
	case models.StatusSuspended:
		return models.ErrAccountSuspended
	default:
		return fmt.Errorf("unknown account status: %s", user.Status)
	}
}

// initialsAvatarURL derives a default avatar from the user's name
func initialsAvatarURL(firstName, lastName string) string {
	seed := url.QueryEscape(firstName + " " + lastName)
	return "https://api.dicebear.com/9.x/initials/svg?seed=" + seed
}

// userModelToResponse converts a user model to its response DTO
func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:               user.ID,
		Email:            user.Email,
		FirstName:        user.FirstName,
		LastName:         user.LastName,
		AvatarURL:        user.AvatarURL,
		Bio:              user.Bio,
		Country:          user.Country,
		Role:             user.Role,
		Status:           user.Status,
		Plan:             user.Plan,
		TwoFactorEnabled: user.TwoFactorEnabled,
		CreatedAt:        user.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:        user.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}
