// Package email delivers invitation messages through Amazon SES.
// Delivery is optional: with no from-address configured the server runs
// without a sender and invitations travel by code alone.
package email

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/sproutlingapp/sproutling-server/internal/config"
	"github.com/sproutlingapp/sproutling-server/internal/domain"
)

// Sender sends caregiver invitation emails via SES.
type Sender struct {
	client      *sesv2.Client
	fromAddress string
	fromName    string
	logger      *slog.Logger
}

// NewSender creates an SES-backed invitation sender. Credentials come from
// the default AWS chain (environment, shared config, instance role).
func NewSender(ctx context.Context, cfg config.EmailConfig, logger *slog.Logger) (*Sender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	logger.Info("Email delivery enabled",
		"region", cfg.AWSRegion,
		"from", cfg.FromAddress,
	)

	return &Sender{
		client:      sesv2.NewFromConfig(awsCfg),
		fromAddress: cfg.FromAddress,
		fromName:    cfg.FromName,
		logger:      logger,
	}, nil
}

// SendInvitation emails the invited caregiver their six digit code and a
// universal link that opens the app directly.
func (s *Sender) SendInvitation(ctx context.Context, to string, inv *domain.Invitation, universalLink string) error {
	subject := fmt.Sprintf("%s invited you to help care for %s", inv.InviterName, inv.ChildName)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: -apple-system, Helvetica, Arial, sans-serif; color: #2d3a2e; max-width: 600px; margin: 0 auto; padding: 24px;">
	<h2 style="color: #4a7c59;">You're invited to care for %s</h2>
	<p>%s uses Sproutling to keep track of %s's feedings, sleep, and more, and wants to share it with you.</p>
	<p>Open this link on your phone to accept:</p>
	<p><a href="%s" style="display: inline-block; padding: 12px 24px; background-color: #4a7c59; color: #ffffff; text-decoration: none; border-radius: 6px;">Accept invitation</a></p>
	<p>Or enter this code in the app:</p>
	<p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">%s</p>
	<p style="color: #6b7a6c; font-size: 13px;">This invitation expires on %s. If you weren't expecting it, you can ignore this email.</p>
</body>
</html>`,
		inv.ChildName,
		inv.InviterName,
		inv.ChildName,
		universalLink,
		inv.Code,
		inv.ExpiresAt.Format("January 2, 2006"),
	)

	textBody := fmt.Sprintf(`%s invited you to help care for %s on Sproutling.

Accept here: %s

Or enter this code in the app: %s

This invitation expires on %s. If you weren't expecting it, you can ignore this email.
`,
		inv.InviterName,
		inv.ChildName,
		universalLink,
		inv.Code,
		inv.ExpiresAt.Format("January 2, 2006"),
	)

	from := s.fromAddress
	if s.fromName != "" {
		from = fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("send invitation email to %s: %w", to, err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	s.logger.Info("Invitation email sent",
		"to", to,
		"invitation_id", inv.ID,
		"message_id", messageID,
	)

	return nil
}
