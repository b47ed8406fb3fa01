package services

import (
	"context"
	"time"

	"github.com/saasforge/saasforge/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc               func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc            func(ctx context.Context, email string) (*models.User, error)
	GetByResetTokenFunc       func(ctx context.Context, token string) (*models.User, error)
	GetByStripeCustomerIDFunc func(ctx context.Context, customerID string) (*models.User, error)
	ListFunc                  func(ctx context.Context, limit, offset int) ([]*models.User, error)
	SearchByNameFunc          func(ctx context.Context, name string, limit, offset int) ([]*models.User, error)
	CreateFunc                func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateProfileFunc         func(ctx context.Context, id string, user *models.User) (*models.User, error)
	UpdatePasswordFunc        func(ctx context.Context, id, passwordHash string) error
	SetResetTokenFunc         func(ctx context.Context, id, token string) error
	SetTwoFactorSecretFunc    func(ctx context.Context, id, secret string) error
	DisableTwoFactorFunc      func(ctx context.Context, id string) error
	UpdateLastLoginFunc       func(ctx context.Context, id string) error
	SetStripeCustomerIDFunc   func(ctx context.Context, id, customerID string) error
	UpdatePlanFunc            func(ctx context.Context, stripeCustomerID, plan string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByResetToken(ctx context.Context, token string) (*models.User, error) {
	if m.GetByResetTokenFunc != nil {
		return m.GetByResetTokenFunc(ctx, token)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByStripeCustomerID(ctx context.Context, customerID string) (*models.User, error) {
	if m.GetByStripeCustomerIDFunc != nil {
		return m.GetByStripeCustomerIDFunc(ctx, customerID)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) SearchByName(ctx context.Context, name string, limit, offset int) ([]*models.User, error) {
	if m.SearchByNameFunc != nil {
		return m.SearchByNameFunc(ctx, name, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id string, user *models.User) (*models.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, id, passwordHash)
	}
	return nil
}

func (m *MockUserRepository) SetResetToken(ctx context.Context, id, token string) error {
	if m.SetResetTokenFunc != nil {
		return m.SetResetTokenFunc(ctx, id, token)
	}
	return nil
}

func (m *MockUserRepository) SetTwoFactorSecret(ctx context.Context, id, secret string) error {
	if m.SetTwoFactorSecretFunc != nil {
		return m.SetTwoFactorSecretFunc(ctx, id, secret)
	}
	return nil
}

func (m *MockUserRepository) DisableTwoFactor(ctx context.Context, id string) error {
	if m.DisableTwoFactorFunc != nil {
		return m.DisableTwoFactorFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) UpdateLastLogin(ctx context.Context, id string) error {
	if m.UpdateLastLoginFunc != nil {
		return m.UpdateLastLoginFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) SetStripeCustomerID(ctx context.Context, id, customerID string) error {
	if m.SetStripeCustomerIDFunc != nil {
		return m.SetStripeCustomerIDFunc(ctx, id, customerID)
	}
	return nil
}

func (m *MockUserRepository) UpdatePlan(ctx context.Context, stripeCustomerID, plan string) error {
	if m.UpdatePlanFunc != nil {
		return m.UpdatePlanFunc(ctx, stripeCustomerID, plan)
	}
	return nil
}

// MockEmailSender implements EmailSender for testing
type MockEmailSender struct {
	SendWelcomeEmailFunc       func(ctx context.Context, recipient, firstName string) error
	SendPasswordResetEmailFunc func(ctx context.Context, recipient, firstName, token string) error

	WelcomeRecipients []string
	ResetTokens       []string
}

func (m *MockEmailSender) SendWelcomeEmail(ctx context.Context, recipient, firstName string) error {
	if m.SendWelcomeEmailFunc != nil {
		return m.SendWelcomeEmailFunc(ctx, recipient, firstName)
	}
	m.WelcomeRecipients = append(m.WelcomeRecipients, recipient)
	return nil
}

func (m *MockEmailSender) SendPasswordResetEmail(ctx context.Context, recipient, firstName, token string) error {
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, recipient, firstName, token)
	}
	m.ResetTokens = append(m.ResetTokens, token)
	return nil
}

// NewTestUser constructs an active free-plan user
func NewTestUser(id, email, firstName, lastName string) *models.User {
	now := time.Now()
	return &models.User{
		ID:                   id,
		Email:                email,
		FirstName:            firstName,
		LastName:             lastName,
		Role:                 models.RoleUser,
		Status:               models.StatusActive,
		Plan:                 models.PlanFree,
		TwoFactorBackupCodes: []string{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

// NewTestUserWithPassword constructs a user with a preset password hash
func NewTestUserWithPassword(id, email, firstName, lastName, passwordHash string) *models.User {
	user := NewTestUser(id, email, firstName, lastName)
	user.PasswordHash = passwordHash
	return user
}

// NewTestUserWithStatus constructs a user with the given account status
func NewTestUserWithStatus(id, email, status string) *models.User {
	user := NewTestUser(id, email, "Test", "User")
	user.Status = status
	return user
}

// NewTestUserWithTwoFactor constructs a user enrolled in 2FA
func NewTestUserWithTwoFactor(id, email, secret string) *models.User {
	user := NewTestUser(id, email, "Test", "User")
	user.TwoFactorEnabled = true
	user.TwoFactorSecret = &secret
	return user
}

// NewTestUserWithResetRequest constructs a user with an in-progress reset
func NewTestUserWithResetRequest(id, email, token string, requestedAt time.Time) *models.User {
	user := NewTestUser(id, email, "Test", "User")
	user.IsResettingPassword = true
	user.ResetToken = &token
	user.ResetRequestedAt = &requestedAt
	return user
}
