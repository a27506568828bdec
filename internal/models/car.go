package models

import (
	"time"
)

const (
	CarStatusAvailable = "available"
	CarStatusSold      = "sold"

	MinCarYear  = 1990
	MinCarSeats = 2
	MaxCarSeats = 9
)

// CarMeta holds the descriptive attributes stored as jsonb next to the car row.
type CarMeta struct {
	Category     string   `json:"category,omitempty"`
	FuelType     string   `json:"fuelType,omitempty"`
	Transmission string   `json:"transmission,omitempty"`
	Mileage      int      `json:"mileage"`
	Seats        int      `json:"seats"`
	Features     []string `json:"features,omitempty"`
	Description  string   `json:"description,omitempty"`
}

type Car struct {
	ID            string    `json:"id"`
	Make          string    `json:"make"`
	Model         string    `json:"model"`
	Year          int       `json:"year"`
	Price         float64   `json:"price"`
	Status        string    `json:"status"`
	Images        []string  `json:"images"`
	Meta          CarMeta   `json:"meta"`
	DetailsClicks int       `json:"details_clicks"`
	BuyClicks     int       `json:"buy_clicks"`
	IsDeleted     bool      `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Title is the human label used in admin logs and exports.
func (c *Car) Title() string {
	return c.Make + " " + c.Model
}

// CarFilter narrows car listings.
type CarFilter struct {
	Status         string
	IncludeDeleted bool
	Limit          int
	Offset         int
}

// InventoryStats is the dashboard summary of the car table.
type InventoryStats struct {
	TotalCars      int     `json:"total_cars"`
	AvailableCars  int     `json:"available_cars"`
	SoldCars       int     `json:"sold_cars"`
	InventoryValue float64 `json:"inventory_value"`
	AvgAgeDays     float64 `json:"avg_inventory_age_days"`
}
