package models

import (
	"time"
)

// Event types recorded by the storefront.
const (
	EventTypeView         = "view"
	EventTypeContactClick = "contact_click"
)

// ValidEventType reports whether t is one of the known analytics event types.
func ValidEventType(t string) bool {
	return t == EventTypeView || t == EventTypeContactClick
}

// AnalyticsEvent is one row of the analytics table.
type AnalyticsEvent struct {
	ID            string    `json:"id"`
	CarID         string    `json:"car_id"`
	EventType     string    `json:"event_type"`
	ClientEventID string    `json:"client_event_id,omitempty"`
	UserIP        string    `json:"user_ip,omitempty"`
	UserAgent     string    `json:"user_agent,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// DailyClicks is one point of the dashboard click chart.
type DailyClicks struct {
	Day           time.Time `json:"day"`
	Views         int       `json:"views"`
	ContactClicks int       `json:"contact_clicks"`
}

// ClickTotals are today's totals shown on the dashboard.
type ClickTotals struct {
	DetailsClicks int `json:"details_clicks"`
	BuyClicks     int `json:"buy_clicks"`
}

// DashboardStats is the payload of the dashboard summary endpoint.
type DashboardStats struct {
	InventoryStats
	TodayDetailsClicks int `json:"today_details_clicks"`
	TodayBuyClicks     int `json:"today_buy_clicks"`
	UnreadMessages     int `json:"unread_messages"`
}
