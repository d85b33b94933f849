package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/mkowalczyk/authguard/internal/guard"
)

// SESSink emails alerts to the security contact via AWS SES.
type SESSink struct {
	sesClient   *ses.Client
	fromAddress string
	toAddress   string
	logger      *slog.Logger
}

// NewSESSink creates a new SESSink
func NewSESSink(region, fromAddress, toAddress string, logger *slog.Logger) (*SESSink, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &SESSink{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		toAddress:   toAddress,
		logger:      logger,
	}, nil
}

// Notify emails one alert.
func (s *SESSink) Notify(ctx context.Context, a guard.Alert) error {
	subject := fmt.Sprintf("Security alert: %s", a.Type)
	textBody := fmt.Sprintf(`Security alert

Type:    %s
Address: %s
Time:    %s

%s
`, a.Type, a.Address, a.Time.UTC().Format(time.RFC3339), a.Details)

	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{s.toAddress},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}

	s.logger.Info("security alert emailed",
		slog.String("type", a.Type),
		slog.String("message_id", *result.MessageId))
	return nil
}
