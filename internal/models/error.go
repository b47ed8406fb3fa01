package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors
	ErrAccountInactive  = errors.New("account is inactive")
	ErrAccountSuspended = errors.New("account is suspended")

	// Password reset state errors
	ErrResetNotRequested = errors.New("no password reset request is in progress")
	ErrResetTokenExpired = errors.New("the reset token has expired")

	// Second factor errors
	ErrTwoFactorNotEnrolled = errors.New("2FA secret not found")
	ErrTwoFactorInvalidCode = errors.New("invalid 2FA code")
	ErrTwoFactorRequired    = errors.New("second factor verification required")
)
