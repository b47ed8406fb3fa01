package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in the "type" claim. A "twofactor" token is the
// interim credential issued after a correct password when the account has
// 2FA enabled; it is only accepted by the 2FA verification endpoint.
const (
	TokenTypeAccess    = "access"
	TokenTypeTwoFactor = "twofactor"
)

type TokenClaims struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
