package services

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/Abdilito4-real/np/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// EmailService notifies staff about storefront activity.
type EmailService interface {
	SendNewMessageNotification(ctx context.Context, msg *models.Message) error
}

// sesAPI is the part of the SES client the service uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	client      sesAPI
	fromAddress string
	recipients  []string
	logger      *slog.Logger
}

func NewAWSSESEmailService(ctx context.Context, region, fromAddress string, recipients []string, logger *slog.Logger) (*AWSSESEmailService, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		client:      ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		recipients:  recipients,
		logger:      logger,
	}, nil
}

func (s *AWSSESEmailService) SendNewMessageNotification(ctx context.Context, msg *models.Message) error {
	if len(s.recipients) == 0 {
		return nil
	}

	subject := "New enquiry: " + msg.Subject
	text := newMessageText(msg)
	htmlBody := "<pre>" + html.EscapeString(text) + "</pre>"

	input := &ses.SendEmailInput{
		Source:           aws.String(s.fromAddress),
		Destination:      &types.Destination{ToAddresses: s.recipients},
		ReplyToAddresses: []string{msg.Email},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject)},
			Body: &types.Body{
				Html: &types.Content{Data: aws.String(htmlBody)},
				Text: &types.Content{Data: aws.String(text)},
			},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send message notification via SES",
			slog.String("message_id", msg.ID),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("message notification sent",
		slog.String("message_id", msg.ID),
		slog.String("ses_message_id", aws.ToString(result.MessageId)))

	return nil
}

func newMessageText(msg *models.Message) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A new message was received from the website.\n\n")
	fmt.Fprintf(&b, "From:    %s <%s>\n", msg.Name, msg.Email)
	if msg.Phone != "" {
		fmt.Fprintf(&b, "Phone:   %s\n", msg.Phone)
	}
	fmt.Fprintf(&b, "Subject: %s\n\n%s\n", msg.Subject, msg.Message)
	return b.String()
}

// LogEmailService only logs; used when SES is disabled.
type LogEmailService struct {
	logger *slog.Logger
}

func NewLogEmailService(logger *slog.Logger) *LogEmailService {
	return &LogEmailService{logger: logger}
}

func (s *LogEmailService) SendNewMessageNotification(_ context.Context, msg *models.Message) error {
	s.logger.Info("email disabled, skipping message notification", slog.String("message_id", msg.ID))
	return nil
}
