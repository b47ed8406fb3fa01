package models

import (
	"time"
)

// Role values for users.role
const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Status values for users.status
const (
	StatusActive    = "ACTIVE"
	StatusInactive  = "INACTIVE"
	StatusSuspended = "SUSPENDED"
)

// Plan values for users.plan
const (
	PlanFree     = "FREE"
	PlanPro      = "PRO"
	PlanBusiness = "BUSINESS"
)

type User struct {
	ID                   string
	Email                string // unique, stored lowercase
	PasswordHash         string
	FirstName            string
	LastName             string
	AvatarURL            string
	Bio                  string
	Country              string
	Role                 string // "ADMIN", "USER"
	Status               string // "ACTIVE", "INACTIVE", "SUSPENDED"
	Plan                 string // "FREE", "PRO", "BUSINESS"
	IsResettingPassword  bool
	ResetToken           *string // unique when present
	ResetRequestedAt     *time.Time
	TwoFactorSecret      *string // base32, unique when present
	TwoFactorEnabled     bool
	TwoFactorBackupCodes []string // ordered, single-use
	StripeCustomerID     *string
	LastLoginAt          *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// FullName returns the display name used for the Stripe customer record.
func (u *User) FullName() string {
	return u.FirstName + " " + u.LastName
}
