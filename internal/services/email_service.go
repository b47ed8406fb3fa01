package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	pkglogger "github.com/saasforge/saasforge/pkg/logger"
)

// EmailSender delivers transactional email. Sends are best-effort: callers
// log failures and never fail the request over them.
type EmailSender interface {
	SendWelcomeEmail(ctx context.Context, recipient, firstName string) error
	SendPasswordResetEmail(ctx context.Context, recipient, firstName, token string) error
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient    *ses.Client
	fromAddress  string
	resetURLBase string
	logger       *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress, resetURLBase string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(context.Background(), config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:    ses.NewFromConfig(cfg),
		fromAddress:  fromAddress,
		resetURLBase: resetURLBase,
		logger:       logger,
	}, nil
}

// SendWelcomeEmail greets a newly registered user
func (s *AWSSESEmailService) SendWelcomeEmail(ctx context.Context, recipient, firstName string) error {
	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1>Welcome aboard, %s!</h1>
        <p>Your account has been created. You can now sign in and start using the platform.</p>
        <p>If you did not create this account, please contact our support team.</p>
        <p style="color: #666; font-size: 12px;">This is an automated message. Please do not reply to this email.</p>
    </div>
</body>
</html>
`, firstName)

	textBody := fmt.Sprintf(`Welcome aboard, %s!

Your account has been created. You can now sign in and start using the platform.

If you did not create this account, please contact our support team.
`, firstName)

	return s.send(ctx, recipient, "Welcome to your new account", htmlBody, textBody)
}

// SendPasswordResetEmail delivers the reset link carrying the opaque token
func (s *AWSSESEmailService) SendPasswordResetEmail(ctx context.Context, recipient, firstName, token string) error {
	resetLink := fmt.Sprintf("%s?token=%s", s.resetURLBase, token)

	htmlBody := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
    <div style="max-width: 600px; margin: 0 auto; padding: 20px;">
        <h1>Password reset requested</h1>
        <p>Hi %s,</p>
        <p>We received a request to reset your password. Click the link below to choose a new one:</p>
        <p><a href="%s" style="display: inline-block; background-color: #0066cc; color: white; padding: 12px 24px; text-decoration: none; border-radius: 4px;">Reset password</a></p>
        <p>Or copy and paste this link in your browser:<br><code>%s</code></p>
        <p>This link expires in one hour. If you did not request a reset, you can ignore this email.</p>
        <p style="color: #666; font-size: 12px;">This is an automated message. Please do not reply to this email.</p>
    </div>
</body>
</html>
`, firstName, resetLink, resetLink)

	textBody := fmt.Sprintf(`Password reset requested

Hi %s,

We received a request to reset your password. Open the link below to choose a new one:

%s

This link expires in one hour. If you did not request a reset, you can ignore this email.
`, firstName, resetLink)

	return s.send(ctx, recipient, "Reset your password", htmlBody, textBody)
}

func (s *AWSSESEmailService) send(ctx context.Context, recipient, subject, htmlBody, textBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{recipient},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data: aws.String(htmlBody),
				},
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send email via SES",
			slog.String("email", pkglogger.SanitizedEmail(recipient)),
			slog.String("subject", subject),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		slog.String("email", pkglogger.SanitizedEmail(recipient)),
		slog.String("subject", subject),
		slog.String("message_id", aws.ToString(result.MessageId)))

	return nil
}
