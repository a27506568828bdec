package services

import (
	"context"
	"log/slog"

	"github.com/Abdilito4-real/np/internal/models"
)

// AdminLogService records admin activity to slog and to the admin_logs table.
type AdminLogService struct {
	repo   AdminLogRepository
	logger *slog.Logger
}

func NewAdminLogService(repo AdminLogRepository, logger *slog.Logger) *AdminLogService {
	return &AdminLogService{repo: repo, logger: logger}
}

// Record writes an entry. Persistence failures are logged and swallowed so
// the action being audited still succeeds.
func (s *AdminLogService) Record(ctx context.Context, adminID, action string, description models.LogDescription) {
	var actor *string
	if adminID != "" {
		actor = &adminID
	}

	s.logger.InfoContext(ctx, "admin activity",
		slog.String("action", action),
		slog.String("admin_id", adminID),
		slog.Any("description", map[string]interface{}(description)),
	)

	if _, err := s.repo.Create(ctx, &models.AdminLog{AdminID: actor, Action: action, Description: description}); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist admin log",
			slog.String("action", action),
			slog.Any("error", err),
		)
	}
}

func (s *AdminLogService) List(ctx context.Context, action string, limit, offset int) ([]*models.AdminLog, error) {
	return s.repo.List(ctx, action, clampLimit(limit), max(offset, 0))
}

// clampLimit keeps page sizes in [1, 200], defaulting to 50.
func clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return 50
	case limit > 200:
		return 200
	}
	return limit
}
