package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Abdilito4-real/np/internal/analytics"
	"github.com/Abdilito4-real/np/internal/metrics"
	"github.com/Abdilito4-real/np/internal/models"
)

// ChartRanges maps the dashboard range selector to a number of days.
var ChartRanges = map[string]int{
	"7d":  7,
	"30d": 30,
	"90d": 90,
	"1y":  365,
}

const DefaultChartRange = "7d"

// TrackInput describes one storefront interaction.
type TrackInput struct {
	CarID         string
	EventType     string
	ClientEventID string
	UserIP        string
	UserAgent     string
}

type AnalyticsService struct {
	cars     CarRepository
	events   AnalyticsRepository
	messages MessageRepository
	loc      *time.Location
	metrics  *metrics.Metrics
	logger   *slog.Logger
	now      func() time.Time
}

func NewAnalyticsService(cars CarRepository, events AnalyticsRepository, messages MessageRepository, loc *time.Location, m *metrics.Metrics, logger *slog.Logger) *AnalyticsService {
	if loc == nil {
		loc = time.Local
	}
	return &AnalyticsService{
		cars:     cars,
		events:   events,
		messages: messages,
		loc:      loc,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// StartOfDay is local midnight of t in the analytics timezone.
func (s *AnalyticsService) StartOfDay(t time.Time) time.Time {
	t = t.In(s.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, s.loc)
}

// Track persists a view or contact click and bumps the car's lifetime counter.
func (s *AnalyticsService) Track(ctx context.Context, in TrackInput, source string) (*models.AnalyticsEvent, error) {
	if !models.ValidEventType(in.EventType) {
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownEventType, in.EventType)
	}

	ev, err := s.events.RecordEvent(ctx, &models.AnalyticsEvent{
		CarID:         in.CarID,
		EventType:     in.EventType,
		ClientEventID: strings.TrimSpace(in.ClientEventID),
		UserIP:        in.UserIP,
		UserAgent:     in.UserAgent,
	})
	if err != nil {
		s.metrics.AnalyticsEvents.WithLabelValues(in.EventType, source, metrics.ResultFailed).Inc()
		return nil, fmt.Errorf("record %s event: %w", in.EventType, err)
	}

	s.metrics.AnalyticsEvents.WithLabelValues(in.EventType, source, metrics.ResultApplied).Inc()
	return ev, nil
}

// MirrorSeed loads what a console mirror is built from: lifetime counters of
// every listed car and the events recorded since local midnight.
func (s *AnalyticsService) MirrorSeed(ctx context.Context) ([]analytics.CarClicks, []analytics.Event, error) {
	cars, err := s.cars.List(ctx, models.CarFilter{})
	if err != nil {
		return nil, nil, fmt.Errorf("list cars: %w", err)
	}

	rows, err := s.events.ListSince(ctx, s.StartOfDay(s.now()))
	if err != nil {
		return nil, nil, fmt.Errorf("list today's events: %w", err)
	}

	clicks := make([]analytics.CarClicks, 0, len(cars))
	for _, c := range cars {
		clicks = append(clicks, analytics.CarClicks{CarID: c.ID, DetailsClicks: c.DetailsClicks, BuyClicks: c.BuyClicks})
	}

	events := make([]analytics.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, analytics.EventFromModel(r))
	}

	return clicks, events, nil
}

func (s *AnalyticsService) DashboardStats(ctx context.Context) (*models.DashboardStats, error) {
	inv, err := s.cars.InventoryStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("inventory stats: %w", err)
	}

	today, err := s.events.CountSince(ctx, s.StartOfDay(s.now()))
	if err != nil {
		return nil, fmt.Errorf("today's clicks: %w", err)
	}

	unread, err := s.messages.CountUnread(ctx)
	if err != nil {
		return nil, fmt.Errorf("unread messages: %w", err)
	}

	return &models.DashboardStats{
		InventoryStats:     *inv,
		TodayDetailsClicks: today.DetailsClicks,
		TodayBuyClicks:     today.BuyClicks,
		UnreadMessages:     unread,
	}, nil
}

// Chart returns one point per day of the range, oldest first, with days
// without events filled in as zero.
func (s *AnalyticsService) Chart(ctx context.Context, rangeKey string) ([]models.DailyClicks, error) {
	if rangeKey == "" {
		rangeKey = DefaultChartRange
	}
	days, ok := ChartRanges[rangeKey]
	if !ok {
		return nil, &ValidationError{Fields: map[string]string{"range": "Range must be one of 7d, 30d, 90d, 1y."}}
	}

	since := s.StartOfDay(s.now()).AddDate(0, 0, -(days - 1))
	points, err := s.events.DailyClicks(ctx, since, s.loc.String())
	if err != nil {
		return nil, fmt.Errorf("daily clicks: %w", err)
	}

	byDay := make(map[string]models.DailyClicks, len(points))
	for _, p := range points {
		byDay[p.Day.Format(time.DateOnly)] = p
	}

	out := make([]models.DailyClicks, 0, days)
	for i := 0; i < days; i++ {
		day := since.AddDate(0, 0, i)
		p := byDay[day.Format(time.DateOnly)]
		p.Day = day
		out = append(out, p)
	}
	return out, nil
}

// ExportRows joins a mirror snapshot with car titles, sorted by title.
// Entries for cars that no longer exist are exported with their ID only.
func (s *AnalyticsService) ExportRows(ctx context.Context, snapshot map[string]analytics.Entry) ([]analytics.ExportRow, error) {
	cars, err := s.cars.List(ctx, models.CarFilter{IncludeDeleted: true})
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}

	byID := make(map[string]*models.Car, len(cars))
	for _, c := range cars {
		byID[c.ID] = c
	}

	rows := make([]analytics.ExportRow, 0, len(snapshot))
	for id, entry := range snapshot {
		row := analytics.ExportRow{CarID: id, Entry: entry}
		if c, ok := byID[id]; ok {
			row.Title = c.Title()
			row.Year = c.Year
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Title != rows[j].Title {
			return rows[i].Title < rows[j].Title
		}
		return rows[i].CarID < rows[j].CarID
	})
	return rows, nil
}
