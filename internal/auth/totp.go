package auth

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	qrcode "github.com/skip2/go-qrcode"
)

// TOTPManager handles second-factor enrollment and code verification
type TOTPManager struct {
	issuer string // Issuer name embedded in provisioning URIs
}

// NewTOTPManager creates a new TOTP manager
func NewTOTPManager(issuer string) *TOTPManager {
	return &TOTPManager{issuer: issuer}
}

// Enrollment holds the output of a 2FA enrollment: the raw base32 secret
// for manual entry and a scannable QR image of the provisioning URI.
type Enrollment struct {
	Secret       string
	QRCodeURL    string // data:image/png;base64 payload
	Provisioning string // otpauth:// URI
}

// Enroll generates a fresh shared secret labeled with the account email and
// renders its provisioning URI as a PNG data URL.
func (tm *TOTPManager) Enroll(accountEmail string) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      tm.issuer,
		AccountName: accountEmail,
		SecretSize:  32, // 256 bits
		Period:      30,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	qr, err := qrcode.New(key.URL(), qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to create QR code: %w", err)
	}

	qrImage, err := qr.PNG(200)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %w", err)
	}

	return &Enrollment{
		Secret:       key.Secret(),
		QRCodeURL:    "data:image/png;base64," + base64.StdEncoding.EncodeToString(qrImage),
		Provisioning: key.URL(),
	}, nil
}

// VerifyCode checks a 6-digit code against a base32 secret, allowing ±1
// time step (30s period) for clock drift.
func (tm *TOTPManager) VerifyCode(secret, code string) (bool, error) {
	valid, err := totp.ValidateCustom(code, secret, time.Now(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return false, fmt.Errorf("failed to validate TOTP: %w", err)
	}

	return valid, nil
}
