package repository

import (
	"context"

	"dispatch/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create persists a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetAll retrieves all drivers.
	GetAll(ctx context.Context) ([]*domain.Driver, error)

	// UpdateStatus updates a driver's status.
	UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error

	// RecordOfferResult increments the driver's offer counters.
	RecordOfferResult(ctx context.Context, id string, accepted bool) error
}
