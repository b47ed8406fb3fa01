package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/saasforge/saasforge/internal/models"
)

// TokenManager handles JWT token generation and validation. Tokens are
// stateless bearer credentials: validity is determined entirely by the
// signature and expiry, there is no server-side session store.
type TokenManager struct {
	secret          string
	accessExpiry    time.Duration
	twoFactorExpiry time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, accessExpiry, twoFactorExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:          secret,
		accessExpiry:    accessExpiry,
		twoFactorExpiry: twoFactorExpiry,
	}
}

// GenerateAccessToken creates a full session token bound to the user id
func (tm *TokenManager) GenerateAccessToken(userID, email string) (string, error) {
	return tm.generate(models.TokenTypeAccess, userID, email, tm.accessExpiry)
}

// GenerateTwoFactorToken creates the short-lived interim token issued after
// a correct password when the account has 2FA enabled. It is only accepted
// by the 2FA verification endpoint.
func (tm *TokenManager) GenerateTwoFactorToken(userID, email string) (string, error) {
	return tm.generate(models.TokenTypeTwoFactor, userID, email, tm.twoFactorExpiry)
}

func (tm *TokenManager) generate(tokenType, userID, email string, expiry time.Duration) (string, error) {
	claims := &models.TokenClaims{
		Type:   tokenType,
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}

	return tokenString, nil
}

// ValidateToken verifies a token and returns its claims
func (tm *TokenManager) ValidateToken(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type == "" {
		return nil, fmt.Errorf("invalid token: missing type")
	}

	return claims, nil
}
