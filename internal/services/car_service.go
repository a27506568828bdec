package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Abdilito4-real/np/internal/models"
)

type CarService struct {
	repo      CarRepository
	adminLogs *AdminLogService
	logger    *slog.Logger
	now       func() time.Time
}

func NewCarService(repo CarRepository, adminLogs *AdminLogService, logger *slog.Logger) *CarService {
	return &CarService{repo: repo, adminLogs: adminLogs, logger: logger, now: time.Now}
}

// ValidateCar applies the inventory form rules.
func ValidateCar(car *models.Car, now time.Time) error {
	var v ValidationError

	car.Make = strings.TrimSpace(car.Make)
	car.Model = strings.TrimSpace(car.Model)

	if car.Make == "" {
		v.add("make", "Please fill in all required fields.")
	}
	if car.Model == "" {
		v.add("model", "Please fill in all required fields.")
	}
	if car.Year < models.MinCarYear || car.Year > now.Year() {
		v.add("year", "Please enter a valid year.")
	}
	if car.Price <= 0 {
		v.add("price", "Please enter a valid price.")
	}
	if car.Meta.Mileage < 0 {
		v.add("mileage", "Please enter a valid mileage.")
	}
	if car.Meta.Seats < models.MinCarSeats || car.Meta.Seats > models.MaxCarSeats {
		v.add("seats", fmt.Sprintf("Please enter a valid number of seats (%d-%d).", models.MinCarSeats, models.MaxCarSeats))
	}
	if len(car.Images) == 0 {
		v.add("images", "Please upload at least one car image.")
	}
	switch car.Status {
	case "":
		car.Status = models.CarStatusAvailable
	case models.CarStatusAvailable, models.CarStatusSold:
	default:
		v.add("status", "Status must be available or sold.")
	}

	return v.orNil()
}

func (s *CarService) ListPublic(ctx context.Context, limit, offset int) ([]*models.Car, error) {
	return s.repo.ListPublic(ctx, clampLimit(limit), max(offset, 0))
}

func (s *CarService) List(ctx context.Context, filter models.CarFilter) ([]*models.Car, error) {
	if filter.Limit > 0 {
		filter.Limit = clampLimit(filter.Limit)
	}
	return s.repo.List(ctx, filter)
}

func (s *CarService) Get(ctx context.Context, id string) (*models.Car, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *CarService) Create(ctx context.Context, adminID string, car *models.Car) (*models.Car, error) {
	if err := ValidateCar(car, s.now()); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, car)
	if err != nil {
		return nil, fmt.Errorf("create car: %w", err)
	}

	s.adminLogs.Record(ctx, adminID, models.AdminActionCarAdded, models.NewCarDescription(created))
	return created, nil
}

func (s *CarService) Update(ctx context.Context, adminID, id string, car *models.Car) (*models.Car, error) {
	if err := ValidateCar(car, s.now()); err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, car)
	if err != nil {
		return nil, fmt.Errorf("update car: %w", err)
	}

	s.adminLogs.Record(ctx, adminID, models.AdminActionCarUpdated, models.NewCarDescription(updated))
	return updated, nil
}

func (s *CarService) Delete(ctx context.Context, adminID, id string) error {
	deleted, err := s.repo.SoftDelete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete car: %w", err)
	}

	s.adminLogs.Record(ctx, adminID, models.AdminActionCarDeleted, models.NewCarDescription(deleted))
	return nil
}

func (s *CarService) BulkDelete(ctx context.Context, adminID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, &ValidationError{Fields: map[string]string{"ids": "Select at least one car."}}
	}

	n, err := s.repo.BulkSoftDelete(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("bulk delete cars: %w", err)
	}

	s.adminLogs.Record(ctx, adminID, models.AdminActionCarsBulkDeleted, models.LogDescription{
		"car_ids": ids,
		"deleted": n,
	})
	return n, nil
}

func (s *CarService) BulkSetStatus(ctx context.Context, adminID string, ids []string, status string) (int64, error) {
	var v ValidationError
	if len(ids) == 0 {
		v.add("ids", "Select at least one car.")
	}
	if status != models.CarStatusAvailable && status != models.CarStatusSold {
		v.add("status", "Status must be available or sold.")
	}
	if err := v.orNil(); err != nil {
		return 0, err
	}

	n, err := s.repo.BulkSetStatus(ctx, ids, status)
	if err != nil {
		return 0, fmt.Errorf("bulk update car status: %w", err)
	}

	s.adminLogs.Record(ctx, adminID, models.AdminActionCarsBulkStatus, models.LogDescription{
		"car_ids": ids,
		"status":  status,
		"updated": n,
	})
	return n, nil
}
