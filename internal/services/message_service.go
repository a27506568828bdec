package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Abdilito4-real/np/internal/models"
	pkgauth "github.com/Abdilito4-real/np/pkg/auth"
)

const notifyTimeout = 15 * time.Second

type MessageService struct {
	repo      MessageRepository
	email     EmailService
	adminLogs *AdminLogService
	logger    *slog.Logger
}

func NewMessageService(repo MessageRepository, email EmailService, adminLogs *AdminLogService, logger *slog.Logger) *MessageService {
	return &MessageService{repo: repo, email: email, adminLogs: adminLogs, logger: logger}
}

// Submit stores a contact-form message and notifies staff in the background.
func (s *MessageService) Submit(ctx context.Context, m *models.Message) (*models.Message, error) {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Phone = strings.TrimSpace(m.Phone)
	m.Subject = strings.TrimSpace(m.Subject)
	m.Message = strings.TrimSpace(m.Message)

	var v ValidationError
	if m.Name == "" {
		v.add("name", "Please enter your name.")
	}
	if err := pkgauth.ValidateEmailShape(m.Email); err != nil {
		v.add("email", pkgauth.EmailShapeMessage)
	}
	if m.Subject == "" {
		v.add("subject", "Please enter a subject.")
	}
	if m.Message == "" {
		v.add("message", "Please enter a message.")
	}
	if err := v.orNil(); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	go func() {
		nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()
		if err := s.email.SendNewMessageNotification(nctx, created); err != nil {
			s.logger.Warn("message notification failed", slog.String("message_id", created.ID), slog.Any("error", err))
		}
	}()

	return created, nil
}

func (s *MessageService) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]*models.Message, error) {
	return s.repo.List(ctx, unreadOnly, clampLimit(limit), max(offset, 0))
}

func (s *MessageService) MarkRead(ctx context.Context, id string) (*models.Message, error) {
	return s.repo.MarkRead(ctx, id)
}

func (s *MessageService) Delete(ctx context.Context, adminID, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete message: %w", err)
	}
	s.adminLogs.Record(ctx, adminID, models.AdminActionMessageDeleted, models.LogDescription{"message_id": id})
	return nil
}
