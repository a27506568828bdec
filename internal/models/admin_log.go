package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Admin actions written to admin_logs.
const (
	AdminActionLogin           = "ADMIN_LOGIN"
	AdminActionLogout          = "ADMIN_LOGOUT"
	AdminActionLockout         = "ADMIN_LOCKOUT"
	AdminActionCarAdded        = "CAR_ADDED"
	AdminActionCarUpdated      = "CAR_UPDATED"
	AdminActionCarDeleted      = "CAR_DELETED"
	AdminActionCarsBulkDeleted = "CARS_BULK_DELETED"
	AdminActionCarsBulkStatus  = "CARS_BULK_STATUS"
	AdminActionMessageDeleted  = "MESSAGE_DELETED"
	AdminActionDailyReset      = "DAILY_STATS_RESET"
)

type AdminLog struct {
	ID          string         `json:"id"`
	AdminID     *string        `json:"admin_id,omitempty"`
	Action      string         `json:"action"`
	Description LogDescription `json:"description"`
	CreatedAt   time.Time      `json:"created_at"`
}

// LogDescription holds the free-form jsonb payload of an admin log entry
type LogDescription map[string]interface{}

// Scan implements sql.Scanner for JSONB
func (d *LogDescription) Scan(value interface{}) error {
	if value == nil {
		*d = make(LogDescription)
		return nil
	}

	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return ErrBadRequest
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	*d = LogDescription(m)
	return nil
}

// Value implements driver.Valuer for JSONB
func (d LogDescription) Value() (driver.Value, error) {
	if d == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(map[string]interface{}(d))
}

// NewLogoutDescription builds the ADMIN_LOGOUT payload.
func NewLogoutDescription(email, reason string, sessionDuration time.Duration) LogDescription {
	d := LogDescription{
		"email":            email,
		"session_duration": sessionDuration.Round(time.Second).String(),
	}
	if reason != "" {
		d["reason"] = reason
	}
	return d
}

// NewCarDescription builds the payload shared by the car management actions.
func NewCarDescription(car *Car) LogDescription {
	return LogDescription{
		"car_id": car.ID,
		"car":    car.Title(),
		"year":   car.Year,
		"price":  car.Price,
		"status": car.Status,
	}
}
