package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saasforge/saasforge/internal/auth"
	"github.com/saasforge/saasforge/internal/models"
	"github.com/saasforge/saasforge/internal/services"
)

func newTestAuthHandler(svc *MockAuthService, users *MockUserService) *AuthHandler {
	cookieConfig := auth.CookieConfig{SameSite: http.SameSiteLaxMode}
	return NewAuthHandler(svc, users, cookieConfig, 24*time.Hour)
}

func sessionCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == auth.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestAuthHandler_Register_Success(t *testing.T) {
	handler := newTestAuthHandler(&MockAuthService{}, &MockUserService{})

	body := `{"email":"jane@example.com","password":"Str0ng!Pass","password_confirm":"Str0ng!Pass","first_name":"Jane","last_name":"Doe"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "jane@example.com")
}

func TestAuthHandler_Register_PasswordMismatch(t *testing.T) {
	handler := newTestAuthHandler(&MockAuthService{}, &MockUserService{})

	body := `{"email":"jane@example.com","password":"Str0ng!Pass","password_confirm":"Different1!","first_name":"Jane","last_name":"Doe"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_Register_Conflict(t *testing.T) {
	svc := &MockAuthService{
		RegisterFunc: func(ctx context.Context, email, password, firstName, lastName string) (*services.RegisterResponse, error) {
			return nil, models.ErrConflict
		},
	}
	handler := newTestAuthHandler(svc, &MockUserService{})

	body := `{"email":"jane@example.com","password":"Str0ng!Pass","password_confirm":"Str0ng!Pass","first_name":"Jane","last_name":"Doe"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAuthHandler_Register_InvalidBody(t *testing.T) {
	handler := newTestAuthHandler(&MockAuthService{}, &MockUserService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_Login_SetsSessionCookie(t *testing.T) {
	svc := &MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*services.AuthResponse, error) {
			return &services.AuthResponse{
				AccessToken: "access-token",
				User:        &services.UserResponse{ID: "user_1", Email: email},
			}, nil
		},
	}
	handler := newTestAuthHandler(svc, &MockUserService{})

	body := `{"email":"jane@example.com","password":"Str0ng!Pass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, "access-token", cookie.Value)
	assert.True(t, cookie.HttpOnly)
}

func TestAuthHandler_Login_TwoFactorRequired_NoCookie(t *testing.T) {
	svc := &MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*services.AuthResponse, error) {
			return &services.AuthResponse{
				TwoFactorRequired: true,
				TwoFactorToken:    "interim-token",
			}, nil
		},
	}
	handler := newTestAuthHandler(svc, &MockUserService{})

	body := `{"email":"jane@example.com","password":"Str0ng!Pass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "two_factor_required")
	assert.Nil(t, sessionCookie(rec))
}

func TestAuthHandler_Login_UnknownEmail(t *testing.T) {
	svc := &MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*services.AuthResponse, error) {
			return nil, models.ErrNotFound
		},
	}
	handler := newTestAuthHandler(svc, &MockUserService{})

	body := `{"email":"nobody@example.com","password":"Str0ng!Pass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthHandler_Login_BlockedAccountIsGeneric(t *testing.T) {
	svc := &MockAuthService{
		LoginFunc: func(ctx context.Context, email, password string) (*services.AuthResponse, error) {
			return nil, models.ErrAccountSuspended
		},
	}
	handler := newTestAuthHandler(svc, &MockUserService{})

	body := `{"email":"jane@example.com","password":"Str0ng!Pass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Login(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotContains(t, rec.Body.String(), "suspended")
}

func TestAuthHandler_GetAuthenticatedUser(t *testing.T) {
	users := &MockUserService{
		GetUserFunc: func(ctx context.Context, id string) (*services.UserResponse, error) {
			return &services.UserResponse{ID: id, Email: "jane@example.com"}, nil
		},
	}
	handler := newTestAuthHandler(&MockAuthService{}, users)

	req := withClaims(httptest.NewRequest(http.MethodGet, "/auth", nil),
		"user_1", "jane@example.com", models.TokenTypeAccess)
	rec := httptest.NewRecorder()

	handler.GetAuthenticatedUser(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user_1")
}

func TestAuthHandler_RequestPasswordReset_AlwaysUniform(t *testing.T) {
	handler := newTestAuthHandler(&MockAuthService{}, &MockUserService{})

	body := `{"email":"nobody@example.com"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/request-reset-password", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.RequestPasswordReset(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "If the email is registered")
}

func TestAuthHandler_VerifyResetToken(t *testing.T) {
	tests := []struct {
		name       string
		serviceErr error
		wantStatus int
	}{
		{"valid", nil, http.StatusOK},
		{"unknown token", models.ErrNotFound, http.StatusNotFound},
		{"not requested", models.ErrResetNotRequested, http.StatusBadRequest},
		{"expired", models.ErrResetTokenExpired, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &MockAuthService{
				VerifyResetTokenFunc: func(ctx context.Context, token string) error {
					return tt.serviceErr
				},
			}
			handler := newTestAuthHandler(svc, &MockUserService{})

			req := httptest.NewRequest(http.MethodGet, "/auth/verify-reset-password-token?token=tok", nil)
			rec := httptest.NewRecorder()

			handler.VerifyResetToken(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAuthHandler_ResetPassword_Success(t *testing.T) {
	var gotToken, gotPassword string
	svc := &MockAuthService{
		ResetPasswordFunc: func(ctx context.Context, token, newPassword string) error {
			gotToken, gotPassword = token, newPassword
			return nil
		},
	}
	handler := newTestAuthHandler(svc, &MockUserService{})

	body := `{"token":"tok","password":"N3w!Passw0rd","password_confirm":"N3w!Passw0rd"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/reset-password", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ResetPassword(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok", gotToken)
	assert.Equal(t, "N3w!Passw0rd", gotPassword)
}

func TestAuthHandler_ResetPassword_ConfirmMismatch(t *testing.T) {
	handler := newTestAuthHandler(&MockAuthService{}, &MockUserService{})

	body := `{"token":"tok","password":"N3w!Passw0rd","password_confirm":"Other1!Pass"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/reset-password", strings.NewReader(body))
	rec := httptest.NewRecorder()

	handler.ResetPassword(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_EnableTwoFactor(t *testing.T) {
	handler := newTestAuthHandler(&MockAuthService{}, &MockUserService{})

	req := withClaims(httptest.NewRequest(http.MethodPost, "/auth/enable-2fa", nil),
		"user_1", "jane@example.com", models.TokenTypeAccess)
	rec := httptest.NewRecorder()

	handler.EnableTwoFactor(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "qr_code_url")
}

func TestAuthHandler_VerifyTwoFactor_Success(t *testing.T) {
	svc := &MockAuthService{
		VerifyTwoFactorFunc: func(ctx context.Context, userID, code string) (*services.AuthResponse, error) {
			return &services.AuthResponse{
				AccessToken: "full-access-token",
				User:        &services.UserResponse{ID: userID},
			}, nil
		},
	}
	handler := newTestAuthHandler(svc, &MockUserService{})

	req := withClaims(
		httptest.NewRequest(http.MethodPost, "/auth/verify-2fa", strings.NewReader(`{"code":"123456"}`)),
		"user_1", "jane@example.com", models.TokenTypeTwoFactor)
	rec := httptest.NewRecorder()

	handler.VerifyTwoFactor(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Equal(t, "full-access-token", cookie.Value)
}

func TestAuthHandler_VerifyTwoFactor_InvalidCode(t *testing.T) {
	handler := newTestAuthHandler(&MockAuthService{}, &MockUserService{})

	req := withClaims(
		httptest.NewRequest(http.MethodPost, "/auth/verify-2fa", strings.NewReader(`{"code":"123456"}`)),
		"user_1", "jane@example.com", models.TokenTypeTwoFactor)
	rec := httptest.NewRecorder()

	handler.VerifyTwoFactor(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthHandler_VerifyTwoFactor_RejectsNonNumericCode(t *testing.T) {
	handler := newTestAuthHandler(&MockAuthService{}, &MockUserService{})

	req := withClaims(
		httptest.NewRequest(http.MethodPost, "/auth/verify-2fa", strings.NewReader(`{"code":"abc123"}`)),
		"user_1", "jane@example.com", models.TokenTypeTwoFactor)
	rec := httptest.NewRecorder()

	handler.VerifyTwoFactor(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthHandler_DisableTwoFactor_NotEnrolled(t *testing.T) {
	svc := &MockAuthService{
		DisableTwoFactorFunc: func(ctx context.Context, userID string) error {
			return models.ErrTwoFactorNotEnrolled
		},
	}
	handler := newTestAuthHandler(svc, &MockUserService{})

	req := withClaims(httptest.NewRequest(http.MethodPost, "/auth/disable-2fa", nil),
		"user_1", "jane@example.com", models.TokenTypeAccess)
	rec := httptest.NewRecorder()

	handler.DisableTwoFactor(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthHandler_Logout_ClearsSessionCookie(t *testing.T) {
	handler := newTestAuthHandler(&MockAuthService{}, &MockUserService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec := httptest.NewRecorder()

	handler.Logout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	cookie := sessionCookie(rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Negative(t, cookie.MaxAge)
}
