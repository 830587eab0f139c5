package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/pkg/logger"
)

// Dispatcher starts driver matching for a ride.
type Dispatcher interface {
	Dispatch(rideID string)
}

// CreateRideInput is the request to create a ride.
type CreateRideInput struct {
	PickupLat          float64
	PickupLng          float64
	PickupAddress      string
	DestinationLat     float64
	DestinationLng     float64
	DestinationAddress string
}

// RideService handles ride creation, retrieval and estimation.
type RideService struct {
	rides      repository.RideRepository
	estimator  *FareEstimator
	dispatcher Dispatcher
	log        *logger.Logger
}

// NewRideService creates a ride service.
func NewRideService(rides repository.RideRepository, estimator *FareEstimator, dispatcher Dispatcher, log *logger.Logger) *RideService {
	return &RideService{rides: rides, estimator: estimator, dispatcher: dispatcher, log: log}
}

// Estimate returns the fare estimate for a route without creating a ride.
func (s *RideService) Estimate(ctx context.Context, pickupLat, pickupLng, dropLat, dropLng float64) (Estimate, error) {
	return s.estimator.Estimate(ctx, pickupLat, pickupLng, dropLat, dropLng)
}

// CreateRide creates a ride for the rider and kicks off matching. A rider
// may have at most one ride in a non-terminal status at a time. The fare
// estimate and surge multiplier are locked in at creation.
func (s *RideService) CreateRide(ctx context.Context, caller domain.Identity, in CreateRideInput) (*domain.Ride, error) {
	if caller.Role != domain.RoleRider {
		return nil, E(KindNotAuthorized, "only riders may request rides")
	}

	active, err := s.rides.GetActiveByRiderID(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrActiveRideExists
	}

	est, err := s.estimator.Estimate(ctx, in.PickupLat, in.PickupLng, in.DestinationLat, in.DestinationLng)
	if err != nil {
		return nil, err
	}

	ride := &domain.Ride{
		ID:                   uuid.New().String(),
		RiderID:              caller.ID,
		PickupLat:            in.PickupLat,
		PickupLng:            in.PickupLng,
		PickupAddress:        in.PickupAddress,
		DestinationLat:       in.DestinationLat,
		DestinationLng:       in.DestinationLng,
		DestinationAddress:   in.DestinationAddress,
		Status:               domain.RideStatusRequested,
		EstimatedFare:        est.Fare,
		EstimatedDurationMin: est.DurationMinutes,
		EstimatedDistanceKm:  est.DistanceKm,
		SurgeMultiplier:      est.SurgeMultiplier,
		CreatedAt:            time.Now().UTC(),
	}

	if err := s.rides.Create(ctx, ride); err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"ride_id":  ride.ID,
		"rider_id": ride.RiderID,
		"estimate": est.Fare,
	}).Info("ride created")

	s.dispatcher.Dispatch(ride.ID)
	return ride, nil
}

// GetRide returns a ride to one of its parties or an admin.
func (s *RideService) GetRide(ctx context.Context, caller domain.Identity, rideID string) (*domain.Ride, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}
	if !caller.IsAdmin() && !ride.PartyTo(caller.ID) {
		return nil, ErrNotParty
	}
	return ride, nil
}
