package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// NewRideRepository creates a new PostgreSQL ride repository.
func NewRideRepository(db *sql.DB) *RideRepository {
	return &RideRepository{q: db}
}

// NewRideRepositoryWithTx creates a ride repository using a transaction.
func NewRideRepositoryWithTx(tx *sql.Tx) *RideRepository {
	return &RideRepository{q: tx}
}

const rideColumns = `id, rider_id, driver_id, pickup_lat, pickup_lng, pickup_address,
	destination_lat, destination_lng, destination_address, status, version, fare,
	estimated_fare, estimated_duration_min, estimated_distance_km, surge_multiplier,
	route_deviation, sos_triggered, created_at, started_at, completed_at, cancelled_at, cancel_reason`

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (` + rideColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
	`

	_, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.RiderID,
		nullString(ride.DriverID),
		ride.PickupLat,
		ride.PickupLng,
		ride.PickupAddress,
		ride.DestinationLat,
		ride.DestinationLng,
		ride.DestinationAddress,
		ride.Status,
		ride.Version,
		nullInt64(ride.Fare),
		ride.EstimatedFare,
		ride.EstimatedDurationMin,
		ride.EstimatedDistanceKm,
		ride.SurgeMultiplier,
		ride.RouteDeviation,
		ride.SOSTriggered,
		ride.CreatedAt,
		nullTime(ride.StartedAt),
		nullTime(ride.CompletedAt),
		nullTime(ride.CancelledAt),
		nullString(ride.CancelReason),
	)

	return err
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return ride, nil
}

// GetActiveByRiderID returns the rider's non-terminal ride, or nil.
func (r *RideRepository) GetActiveByRiderID(ctx context.Context, riderID string) (*domain.Ride, error) {
	query := `
		SELECT ` + rideColumns + ` FROM rides
		WHERE rider_id = $1 AND status NOT IN ('COMPLETED', 'CANCELLED')
		LIMIT 1
	`

	ride, err := scanRide(r.q.QueryRowContext(ctx, query, riderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return ride, nil
}

// ListActive retrieves all rides in a non-terminal status.
func (r *RideRepository) ListActive(ctx context.Context) ([]*domain.Ride, error) {
	query := `
		SELECT ` + rideColumns + ` FROM rides
		WHERE status NOT IN ('COMPLETED', 'CANCELLED')
		ORDER BY created_at DESC
	`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

// Update persists the ride conditioned on the version the caller read.
// The losing side of a race gets ErrVersionConflict.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride) error {
	query := `
		UPDATE rides
		SET driver_id = $1, status = $2, version = version + 1, fare = $3,
		    route_deviation = $4, sos_triggered = $5,
		    started_at = $6, completed_at = $7, cancelled_at = $8, cancel_reason = $9
		WHERE id = $10 AND version = $11
	`

	result, err := r.q.ExecContext(ctx, query,
		nullString(ride.DriverID),
		ride.Status,
		nullInt64(ride.Fare),
		ride.RouteDeviation,
		ride.SOSTriggered,
		nullTime(ride.StartedAt),
		nullTime(ride.CompletedAt),
		nullTime(ride.CancelledAt),
		nullString(ride.CancelReason),
		ride.ID,
		ride.Version,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the ride is gone or someone updated it first.
		if _, err := r.GetByID(ctx, ride.ID); errors.Is(err, repository.ErrNotFound) {
			return repository.ErrNotFound
		}
		return repository.ErrVersionConflict
	}

	ride.Version++
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*domain.Ride, error) {
	var ride domain.Ride
	var driverID, cancelReason sql.NullString
	var fare sql.NullInt64
	var startedAt, completedAt, cancelledAt sql.NullTime

	err := row.Scan(
		&ride.ID,
		&ride.RiderID,
		&driverID,
		&ride.PickupLat,
		&ride.PickupLng,
		&ride.PickupAddress,
		&ride.DestinationLat,
		&ride.DestinationLng,
		&ride.DestinationAddress,
		&ride.Status,
		&ride.Version,
		&fare,
		&ride.EstimatedFare,
		&ride.EstimatedDurationMin,
		&ride.EstimatedDistanceKm,
		&ride.SurgeMultiplier,
		&ride.RouteDeviation,
		&ride.SOSTriggered,
		&ride.CreatedAt,
		&startedAt,
		&completedAt,
		&cancelledAt,
		&cancelReason,
	)
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		ride.DriverID = driverID.String
	}
	if fare.Valid {
		ride.Fare = fare.Int64
	}
	if startedAt.Valid {
		ride.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		ride.CompletedAt = completedAt.Time
	}
	if cancelledAt.Valid {
		ride.CancelledAt = cancelledAt.Time
	}
	if cancelReason.Valid {
		ride.CancelReason = cancelReason.String
	}

	return &ride, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullInt64(n int64) sql.NullInt64 {
	if n == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: n, Valid: true}
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}
