package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_RoundTrip(t *testing.T) {
	hash, err := HashPassword("Str0ng!Pass")
	require.NoError(t, err)
	assert.NotEqual(t, "Str0ng!Pass", hash)

	assert.NoError(t, ComparePassword(hash, "Str0ng!Pass"))
	assert.Error(t, ComparePassword(hash, "wrong"))
	assert.Error(t, ComparePassword(hash, "Str0ng!Pas"))
}

func TestHashPassword_Empty(t *testing.T) {
	_, err := HashPassword("")
	assert.Error(t, err)
}

func TestHashPassword_UniqueSalts(t *testing.T) {
	h1, err := HashPassword("Str0ng!Pass")
	require.NoError(t, err)
	h2, err := HashPassword("Str0ng!Pass")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
}

func TestValidatePassword_Valid(t *testing.T) {
	valid := []string{
		"Str0ng!Pass",
		"NewStr0ng!",
		"Aa1!aaaa",
		"Xy9#abcdefghijklmnopqrstuvwx1234", // exactly 32 chars
		"Pä1!ßwörtchen",                    // multibyte letters count as one
		"Aa1!êêêêêêêêêêêêêêêêêêêêêêêêêêêê", // 32 runes but more bytes
	}
	for _, p := range valid {
		assert.NoError(t, ValidatePassword(p), "password %q should be valid", p)
	}
}

func TestValidatePassword_Invalid(t *testing.T) {
	invalid := []string{
		"short",                              // too short
		"nouppercase1!",                      // no uppercase
		"NOLOWERCASE1!",                      // no lowercase
		"NoDigitsHere!",                      // no digit
		"NoSymbols123",                       // no symbol
		"Aa1!aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", // over 32 chars
	}
	for _, p := range invalid {
		assert.Error(t, ValidatePassword(p), "password %q should be invalid", p)
	}
}

func TestGenerateResetToken(t *testing.T) {
	token, err := GenerateResetToken()
	require.NoError(t, err)
	assert.Len(t, token, ResetTokenBytes*2) // hex-encoded

	other, err := GenerateResetToken()
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}
