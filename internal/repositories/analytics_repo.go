package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/Abdilito4-real/np/internal/database"
	"github.com/Abdilito4-real/np/internal/models"
	"github.com/jackc/pgx/v5"
)

type AnalyticsRepository struct {
	db *database.DB
}

func NewAnalyticsRepository(db *database.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

const analyticsColumns = `id::text, car_id::text, event_type, COALESCE(client_event_id, ''),
	COALESCE(user_ip, ''), COALESCE(user_agent, ''), created_at`

func scanAnalyticsRow(scanner rowScanner) (*models.AnalyticsEvent, error) {
	var ev models.AnalyticsEvent
	err := scanner.Scan(&ev.ID, &ev.CarID, &ev.EventType, &ev.ClientEventID, &ev.UserIP, &ev.UserAgent, &ev.CreatedAt)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &ev, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// RecordEvent stores an event and bumps the car's lifetime counter in one
// transaction. The insert fires the table_changes notification.
func (r *AnalyticsRepository) RecordEvent(ctx context.Context, ev *models.AnalyticsEvent) (*models.AnalyticsEvent, error) {
	var counter string
	switch ev.EventType {
	case models.EventTypeView:
		counter = "details_clicks"
	case models.EventTypeContactClick:
		counter = "buy_clicks"
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownEventType, ev.EventType)
	}

	var stored *models.AnalyticsEvent
	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE cars SET `+counter+` = `+counter+` + 1 WHERE id = $1 AND is_deleted = FALSE`, ev.CarID)
		if err != nil {
			return database.MapPostgresError(err)
		}
		if tag.RowsAffected() == 0 {
			return models.ErrNotFound
		}

		query := `
			INSERT INTO analytics (car_id, event_type, client_event_id, user_ip, user_agent)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING ` + analyticsColumns
		stored, err = scanAnalyticsRow(tx.QueryRow(ctx, query,
			ev.CarID, ev.EventType, nullIfEmpty(ev.ClientEventID), nullIfEmpty(ev.UserIP), nullIfEmpty(ev.UserAgent),
		))
		return err
	})
	if err != nil {
		return nil, err
	}
	return stored, nil
}

// ListSince returns events recorded at or after since, oldest first.
func (r *AnalyticsRepository) ListSince(ctx context.Context, since time.Time) ([]*models.AnalyticsEvent, error) {
	query := `SELECT ` + analyticsColumns + ` FROM analytics WHERE created_at >= $1 ORDER BY created_at`

	rows, err := r.db.Pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query analytics: %w", database.MapPostgresError(err))
	}
	defer rows.Close()

	events := make([]*models.AnalyticsEvent, 0)
	for rows.Next() {
		ev, err := scanAnalyticsRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan analytics event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating analytics rows: %w", err)
	}
	return events, nil
}

// CountSince totals views and contact clicks recorded at or after since.
func (r *AnalyticsRepository) CountSince(ctx context.Context, since time.Time) (*models.ClickTotals, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE event_type = 'view'),
			COUNT(*) FILTER (WHERE event_type = 'contact_click')
		FROM analytics WHERE created_at >= $1
	`

	var t models.ClickTotals
	if err := r.db.Pool.QueryRow(ctx, query, since).Scan(&t.DetailsClicks, &t.BuyClicks); err != nil {
		return nil, database.MapPostgresError(err)
	}
	return &t, nil
}

// DailyClicks groups events per calendar day in the given IANA timezone.
func (r *AnalyticsRepository) DailyClicks(ctx context.Context, since time.Time, timezone string) ([]models.DailyClicks, error) {
	query := `
		SELECT
			date_trunc('day', created_at AT TIME ZONE $2) AS day,
			COUNT(*) FILTER (WHERE event_type = 'view'),
			COUNT(*) FILTER (WHERE event_type = 'contact_click')
		FROM analytics
		WHERE created_at >= $1
		GROUP BY day
		ORDER BY day
	`

	rows, err := r.db.Pool.Query(ctx, query, since, timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily clicks: %w", database.MapPostgresError(err))
	}
	defer rows.Close()

	points := make([]models.DailyClicks, 0)
	for rows.Next() {
		var p models.DailyClicks
		if err := rows.Scan(&p.Day, &p.Views, &p.ContactClicks); err != nil {
			return nil, fmt.Errorf("failed to scan daily clicks: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily clicks: %w", err)
	}
	return points, nil
}
