package auth

import (
	"testing"
	"time"

	"github.com/saasforge/saasforge/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_AccessToken_RoundTrip(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-16ch", 15*time.Minute, 5*time.Minute)

	token, err := tm.GenerateAccessToken("user123", "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeAccess, claims.Type)
	assert.Equal(t, "user123", claims.UserID)
	assert.Equal(t, "user123", claims.Subject)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenManager_TwoFactorToken_Type(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-16ch", 15*time.Minute, 5*time.Minute)

	token, err := tm.GenerateTwoFactorToken("user123", "alice@example.com")
	require.NoError(t, err)

	claims, err := tm.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, models.TokenTypeTwoFactor, claims.Type)
}

func TestTokenManager_ValidateToken_WrongSecret(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-16ch", 15*time.Minute, 5*time.Minute)
	other := NewTokenManager("another-secret-entirely!!", 15*time.Minute, 5*time.Minute)

	token, err := tm.GenerateAccessToken("user123", "alice@example.com")
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenManager_ValidateToken_Expired(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-16ch", -1*time.Minute, 5*time.Minute)

	token, err := tm.GenerateAccessToken("user123", "alice@example.com")
	require.NoError(t, err)

	_, err = tm.ValidateToken(token)
	assert.Error(t, err)
}

func TestTokenManager_ValidateToken_Garbage(t *testing.T) {
	tm := NewTokenManager("test-secret-at-least-16ch", 15*time.Minute, 5*time.Minute)

	_, err := tm.ValidateToken("not.a.token")
	assert.Error(t, err)
}
