package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/saasforge/saasforge/internal/auth"
	"github.com/saasforge/saasforge/internal/models"
	"github.com/saasforge/saasforge/internal/services"
	pkgauth "github.com/saasforge/saasforge/pkg/auth"
	pkghttp "github.com/saasforge/saasforge/pkg/http"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Register(ctx context.Context, email, password, firstName, lastName string) (*services.RegisterResponse, error)
	Login(ctx context.Context, email, password string) (*services.AuthResponse, error)
	RequestPasswordReset(ctx context.Context, email string) error
	VerifyResetToken(ctx context.Context, token string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	EnableTwoFactor(ctx context.Context, userID string) (*services.TwoFactorEnrollmentResponse, error)
	VerifyTwoFactor(ctx context.Context, userID, code string) (*services.AuthResponse, error)
	DisableTwoFactor(ctx context.Context, userID string) error
}

// ProfileFetcher returns the authenticated user's profile
type ProfileFetcher interface {
	GetUser(ctx context.Context, id string) (*services.UserResponse, error)
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service      AuthServiceInterface
	profiles     ProfileFetcher
	cookieConfig auth.CookieConfig
	tokenExpiry  time.Duration
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, profiles ProfileFetcher, cookieConfig auth.CookieConfig, tokenExpiry time.Duration) *AuthHandler {
	return &AuthHandler{
		service:      service,
		profiles:     profiles,
		cookieConfig: cookieConfig,
		tokenExpiry:  tokenExpiry,
	}
}

// Request DTOs

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=8,max=32"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
	FirstName       string `json:"first_name" validate:"required,min=1,max=32"`
	LastName        string `json:"last_name" validate:"required,min=1,max=32"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RequestResetPasswordRequest represents the request body for starting a reset
type RequestResetPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the request body for completing a reset
type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	Password        string `json:"password" validate:"required,min=8,max=32"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// VerifyTwoFactorRequest represents the request body for code verification
type VerifyTwoFactorRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// MessageResponse is a generic acknowledgement body
type MessageResponse struct {
	Message string `json:"message"`
}

// Register handles account creation
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.Register(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		var validationErr *pkgauth.PasswordValidationError
		switch {
		case errors.As(err, &validationErr):
			pkghttp.WriteBadRequest(w, validationErr.Error())
		case errors.Is(err, models.ErrConflict):
			pkghttp.WriteConflict(w, "An account with this email already exists")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, resp)
}

// Login handles user login. On success without 2FA the access token is also
// mirrored into an HTTP-only session cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			pkghttp.WriteNotFound(w, "User not found")
		case errors.Is(err, models.ErrUnauthorized),
			errors.Is(err, models.ErrAccountInactive),
			errors.Is(err, models.ErrAccountSuspended):
			// Account state collapses into a generic message so that
			// suspended accounts cannot be probed
			pkghttp.WriteUnauthorized(w, "Authentication failed")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	if !resp.TwoFactorRequired {
		auth.SetSessionCookie(w, resp.AccessToken, h.tokenExpiry, h.cookieConfig)
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Logout clears the session cookie. Tokens are stateless, so the bearer
// token itself simply expires.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearSessionCookie(w, h.cookieConfig)
	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Logged out successfully"})
}

// GetAuthenticatedUser returns the profile of the token bearer
func (h *AuthHandler) GetAuthenticatedUser(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	user, err := h.profiles.GetUser(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, user)
}

// RequestPasswordReset starts the reset flow. The response body does not
// reveal whether the email is registered.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req RequestResetPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{
		Message: "If the email is registered, a reset link has been sent",
	})
}

// VerifyResetToken checks a reset token passed as a query parameter
func (h *AuthHandler) VerifyResetToken(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")

	if err := h.service.VerifyResetToken(r.Context(), token); err != nil {
		writeResetError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Token is valid"})
}

// ResetPassword completes the reset flow
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		var validationErr *pkgauth.PasswordValidationError
		if errors.As(err, &validationErr) {
			pkghttp.WriteBadRequest(w, validationErr.Error())
			return
		}
		writeResetError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password has been reset"})
}

func writeResetError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Reset token is required")
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Reset token not found")
	case errors.Is(err, models.ErrResetNotRequested):
		pkghttp.WriteBadRequest(w, "No password reset request is in progress")
	case errors.Is(err, models.ErrResetTokenExpired):
		pkghttp.WriteUnauthorized(w, "The reset token has expired")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

// EnableTwoFactor enrolls the authenticated user in TOTP 2FA
func (h *AuthHandler) EnableTwoFactor(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	resp, err := h.service.EnableTwoFactor(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "User not found")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// VerifyTwoFactor validates a TOTP code. It accepts the interim two-factor
// token and returns a full access token, also mirrored into the session
// cookie.
func (h *AuthHandler) VerifyTwoFactor(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	var req VerifyTwoFactorRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	resp, err := h.service.VerifyTwoFactor(r.Context(), claims.UserID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrTwoFactorNotEnrolled):
			pkghttp.WriteNotFound(w, "Two-factor authentication is not enabled")
		case errors.Is(err, models.ErrTwoFactorInvalidCode):
			pkghttp.WriteUnauthorized(w, "Invalid verification code")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	auth.SetSessionCookie(w, resp.AccessToken, h.tokenExpiry, h.cookieConfig)
	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// DisableTwoFactor removes 2FA from the authenticated account
func (h *AuthHandler) DisableTwoFactor(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Unauthorized")
		return
	}

	if err := h.service.DisableTwoFactor(r.Context(), claims.UserID); err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrTwoFactorNotEnrolled):
			pkghttp.WriteNotFound(w, "Two-factor authentication is not enabled")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Two-factor authentication disabled"})
}
