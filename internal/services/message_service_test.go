package services

import (
	"context"
	"testing"
	"time"

	"github.com/Abdilito4-real/np/internal/models"
	pkgauth "github.com/Abdilito4-real/np/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageService_Submit(t *testing.T) {
	email := &MockEmailService{Sent: make(chan *models.Message, 1)}
	repo := &MockMessageRepository{
		CreateFunc: func(_ context.Context, m *models.Message) (*models.Message, error) {
			m.ID = "msg-1"
			return m, nil
		},
	}
	svc := NewMessageService(repo, email, NewAdminLogService(&MockAdminLogRepository{}, testLogger()), testLogger())

	created, err := svc.Submit(context.Background(), &models.Message{
		Name: " Jane ", Email: "jane@example.com", Subject: "Test drive", Message: "Is it available?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Jane", created.Name)

	select {
	case sent := <-email.Sent:
		assert.Equal(t, "msg-1", sent.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("notification was not sent")
	}
}

func TestMessageService_SubmitValidation(t *testing.T) {
	svc := NewMessageService(&MockMessageRepository{}, &MockEmailService{}, NewAdminLogService(&MockAdminLogRepository{}, testLogger()), testLogger())

	_, err := svc.Submit(context.Background(), &models.Message{Email: "nope"})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, pkgauth.EmailShapeMessage, verr.Fields["email"])
	assert.Contains(t, verr.Fields, "name")
	assert.Contains(t, verr.Fields, "subject")
	assert.Contains(t, verr.Fields, "message")
	assert.NotContains(t, verr.Fields, "phone")
}

func TestMessageService_DeleteWritesAdminLog(t *testing.T) {
	logs := &MockAdminLogRepository{}
	svc := NewMessageService(&MockMessageRepository{}, &MockEmailService{}, NewAdminLogService(logs, testLogger()), testLogger())

	require.NoError(t, svc.Delete(context.Background(), "admin-1", "msg-1"))
	assert.Equal(t, []string{models.AdminActionMessageDeleted}, logs.Actions())
	assert.Equal(t, "msg-1", logs.Entries[0].Description["message_id"])
}

func TestMessageService_DeleteMissing(t *testing.T) {
	logs := &MockAdminLogRepository{}
	repo := &MockMessageRepository{DeleteFunc: func(context.Context, string) error { return models.ErrNotFound }}
	svc := NewMessageService(repo, &MockEmailService{}, NewAdminLogService(logs, testLogger()), testLogger())

	assert.ErrorIs(t, svc.Delete(context.Background(), "admin-1", "msg-1"), models.ErrNotFound)
	assert.Empty(t, logs.Entries)
}
