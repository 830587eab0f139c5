package repository

import (
	"context"

	"dispatch/internal/domain"
)

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetActiveByRiderID returns the rider's ride in a non-terminal status,
	// or nil if the rider has none.
	GetActiveByRiderID(ctx context.Context, riderID string) (*domain.Ride, error)

	// ListActive retrieves all rides in a non-terminal status.
	ListActive(ctx context.Context) ([]*domain.Ride, error)

	// Update persists the ride conditioned on ride.Version matching the
	// stored row. On success the stored version and ride.Version are
	// incremented; a lost race returns ErrVersionConflict.
	Update(ctx context.Context, ride *domain.Ride) error
}
