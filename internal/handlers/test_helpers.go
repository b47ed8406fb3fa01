package handlers

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/saasforge/saasforge/internal/auth"
	"github.com/saasforge/saasforge/internal/models"
	"github.com/saasforge/saasforge/internal/services"
)

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc             func(ctx context.Context, email, password, firstName, lastName string) (*services.RegisterResponse, error)
	LoginFunc                func(ctx context.Context, email, password string) (*services.AuthResponse, error)
	RequestPasswordResetFunc func(ctx context.Context, email string) error
	VerifyResetTokenFunc     func(ctx context.Context, token string) error
	ResetPasswordFunc        func(ctx context.Context, token, newPassword string) error
	EnableTwoFactorFunc      func(ctx context.Context, userID string) (*services.TwoFactorEnrollmentResponse, error)
	VerifyTwoFactorFunc      func(ctx context.Context, userID, code string) (*services.AuthResponse, error)
	DisableTwoFactorFunc     func(ctx context.Context, userID string) error
}

func (m *MockAuthService) Register(ctx context.Context, email, password, firstName, lastName string) (*services.RegisterResponse, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, password, firstName, lastName)
	}
	return &services.RegisterResponse{Message: "Account created successfully", Email: email}, nil
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (*services.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password)
	}
	return nil, models.ErrUnauthorized
}

func (m *MockAuthService) RequestPasswordReset(ctx context.Context, email string) error {
	if m.RequestPasswordResetFunc != nil {
		return m.RequestPasswordResetFunc(ctx, email)
	}
	return nil
}

func (m *MockAuthService) VerifyResetToken(ctx context.Context, token string) error {
	if m.VerifyResetTokenFunc != nil {
		return m.VerifyResetTokenFunc(ctx, token)
	}
	return nil
}

func (m *MockAuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, token, newPassword)
	}
	return nil
}

func (m *MockAuthService) EnableTwoFactor(ctx context.Context, userID string) (*services.TwoFactorEnrollmentResponse, error) {
	if m.EnableTwoFactorFunc != nil {
		return m.EnableTwoFactorFunc(ctx, userID)
	}
	return &services.TwoFactorEnrollmentResponse{Secret: "SECRET", QRCodeURL: "data:image/png;base64,Zm9v"}, nil
}

func (m *MockAuthService) VerifyTwoFactor(ctx context.Context, userID, code string) (*services.AuthResponse, error) {
	if m.VerifyTwoFactorFunc != nil {
		return m.VerifyTwoFactorFunc(ctx, userID, code)
	}
	return nil, models.ErrTwoFactorInvalidCode
}

func (m *MockAuthService) DisableTwoFactor(ctx context.Context, userID string) error {
	if m.DisableTwoFactorFunc != nil {
		return m.DisableTwoFactorFunc(ctx, userID)
	}
	return nil
}

// MockUserService implements UserServiceInterface and ProfileFetcher for testing
type MockUserService struct {
	GetUserFunc        func(ctx context.Context, id string) (*services.UserResponse, error)
	ListUsersFunc      func(ctx context.Context, page, limit int) ([]*services.UserResponse, error)
	SearchUsersFunc    func(ctx context.Context, name string, page, limit int) ([]*services.UserResponse, error)
	UpdateProfileFunc  func(ctx context.Context, id string, input services.UpdateProfileInput) (*services.UserResponse, error)
	ChangePasswordFunc func(ctx context.Context, id, currentPassword, newPassword string) error
}

func (m *MockUserService) GetUser(ctx context.Context, id string) (*services.UserResponse, error) {
	if m.GetUserFunc != nil {
		return m.GetUserFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) ListUsers(ctx context.Context, page, limit int) ([]*services.UserResponse, error) {
	if m.ListUsersFunc != nil {
		return m.ListUsersFunc(ctx, page, limit)
	}
	return []*services.UserResponse{}, nil
}

func (m *MockUserService) SearchUsers(ctx context.Context, name string, page, limit int) ([]*services.UserResponse, error) {
	if m.SearchUsersFunc != nil {
		return m.SearchUsersFunc(ctx, name, page, limit)
	}
	return []*services.UserResponse{}, nil
}

func (m *MockUserService) UpdateProfile(ctx context.Context, id string, input services.UpdateProfileInput) (*services.UserResponse, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, input)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserService) ChangePassword(ctx context.Context, id, currentPassword, newPassword string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, id, currentPassword, newPassword)
	}
	return nil
}

// MockBillingService implements BillingServiceInterface for testing
type MockBillingService struct {
	CreateCheckoutSessionFunc      func(ctx context.Context, userID, plan string) (*services.CheckoutSessionResponse, error)
	CreateBillingPortalSessionFunc func(ctx context.Context, userID string) (*services.CheckoutSessionResponse, error)
	HandleWebhookFunc              func(ctx context.Context, payload []byte, signature string) error
}

func (m *MockBillingService) CreateCheckoutSession(ctx context.Context, userID, plan string) (*services.CheckoutSessionResponse, error) {
	if m.CreateCheckoutSessionFunc != nil {
		return m.CreateCheckoutSessionFunc(ctx, userID, plan)
	}
	return &services.CheckoutSessionResponse{URL: "https://checkout.example.com/session"}, nil
}

func (m *MockBillingService) CreateBillingPortalSession(ctx context.Context, userID string) (*services.CheckoutSessionResponse, error) {
	if m.CreateBillingPortalSessionFunc != nil {
		return m.CreateBillingPortalSessionFunc(ctx, userID)
	}
	return &services.CheckoutSessionResponse{URL: "https://portal.example.com/session"}, nil
}

func (m *MockBillingService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if m.HandleWebhookFunc != nil {
		return m.HandleWebhookFunc(ctx, payload, signature)
	}
	return nil
}

// withClaims injects token claims into the request context, standing in for
// the auth middleware.
func withClaims(r *http.Request, userID, email, tokenType string) *http.Request {
	claims := &models.TokenClaims{
		Type:             tokenType,
		UserID:           userID,
		Email:            email,
		RegisteredClaims: jwt.RegisteredClaims{Subject: userID},
	}
	ctx := context.WithValue(r.Context(), auth.UserContextKey, claims)
	return r.WithContext(ctx)
}
