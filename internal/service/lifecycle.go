package service

import (
	"context"
	"errors"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/pkg/logger"
)

// LifecycleService owns ride status transitions. Every mutation goes
// through the version-conditioned update, so exactly one of two racing
// writers wins and the loser surfaces a conflict.
type LifecycleService struct {
	rides    repository.RideRepository
	uow      repository.UnitOfWork
	cache    redis.CacheStoreInterface
	notifier Notifier
	log      *logger.Logger
}

// NewLifecycleService creates a lifecycle service.
func NewLifecycleService(rides repository.RideRepository, uow repository.UnitOfWork, cache redis.CacheStoreInterface, notifier Notifier, log *logger.Logger) *LifecycleService {
	return &LifecycleService{rides: rides, uow: uow, cache: cache, notifier: notifier, log: log}
}

// AssignDriver binds a driver to a REQUESTED ride and flips the driver to
// ON_TRIP, atomically. The ride version from discovery time rides along,
// so if anything changed the ride since, the assignment loses cleanly.
func (s *LifecycleService) AssignDriver(ctx context.Context, ride *domain.Ride, driverID string) error {
	if ride.Status != domain.RideStatusRequested {
		return E(KindInvalidState, "ride is no longer awaiting a driver")
	}

	err := s.uow.Run(ctx, func(r repository.Repos) error {
		ride.DriverID = driverID
		ride.Status = domain.RideStatusAccepted
		if err := r.Rides.Update(ctx, ride); err != nil {
			return err
		}
		return r.Drivers.UpdateStatus(ctx, driverID, domain.DriverStatusOnTrip)
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return ErrRideConflict
		}
		return err
	}

	if s.cache != nil {
		s.cache.InvalidateDriver(ctx, driverID)
	}
	s.notifier.RideAccepted(ctx, ride)
	return nil
}

// UpdateStatus advances a ride along the trip progression
// (ACCEPTED -> ARRIVED -> IN_PROGRESS -> COMPLETED). Any party to the
// ride or an admin may call it. Completion does not settle payment; that
// is a separate step.
func (s *LifecycleService) UpdateStatus(ctx context.Context, caller domain.Identity, rideID string, target domain.RideStatus) (*domain.Ride, error) {
	if target == domain.RideStatusCancelled {
		return nil, E(KindInvalidInput, "use the cancel operation to cancel a ride")
	}

	ride, err := s.getRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && !ride.PartyTo(caller.ID) {
		return nil, ErrNotParty
	}
	if ride.Status == target {
		// Idempotent re-send of the same progression step.
		return ride, nil
	}
	if !domain.CanTransition(ride.Status, target) {
		return nil, E(KindInvalidTransition, "cannot move ride from "+string(ride.Status)+" to "+string(target))
	}

	now := time.Now().UTC()
	ride.Status = target
	switch target {
	case domain.RideStatusInProgress:
		ride.StartedAt = now
	case domain.RideStatusCompleted:
		ride.CompletedAt = now
	}

	if target == domain.RideStatusCompleted {
		// Completion frees the driver in the same transaction.
		err = s.uow.Run(ctx, func(r repository.Repos) error {
			if err := r.Rides.Update(ctx, ride); err != nil {
				return err
			}
			return r.Drivers.UpdateStatus(ctx, ride.DriverID, domain.DriverStatusOnline)
		})
	} else {
		err = s.rides.Update(ctx, ride)
	}
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrRideConflict
		}
		return nil, err
	}

	if target == domain.RideStatusCompleted && s.cache != nil {
		s.cache.InvalidateDriver(ctx, ride.DriverID)
	}
	s.notifier.RideStatusChanged(ctx, ride)
	return ride, nil
}

// Cancel cancels a ride. Only the rider or an admin may cancel, and only
// from a non-terminal status. Cancelling frees the assigned driver.
func (s *LifecycleService) Cancel(ctx context.Context, caller domain.Identity, rideID, reason string) (*domain.Ride, error) {
	ride, err := s.getRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && caller.ID != ride.RiderID {
		return nil, E(KindNotAuthorized, "only the rider may cancel this ride")
	}
	if ride.Status == domain.RideStatusCancelled {
		return ride, nil
	}
	if !domain.CanTransition(ride.Status, domain.RideStatusCancelled) {
		return nil, E(KindInvalidTransition, "ride in status "+string(ride.Status)+" cannot be cancelled")
	}

	driverID := ride.DriverID
	ride.Status = domain.RideStatusCancelled
	ride.CancelledAt = time.Now().UTC()
	ride.CancelReason = reason

	if driverID != "" {
		err = s.uow.Run(ctx, func(r repository.Repos) error {
			if err := r.Rides.Update(ctx, ride); err != nil {
				return err
			}
			return r.Drivers.UpdateStatus(ctx, driverID, domain.DriverStatusOnline)
		})
	} else {
		err = s.rides.Update(ctx, ride)
	}
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrRideConflict
		}
		return nil, err
	}

	if driverID != "" && s.cache != nil {
		s.cache.InvalidateDriver(ctx, driverID)
	}
	s.notifier.RideCancelled(ctx, ride)
	return ride, nil
}

// TriggerSOS flags a ride as having an active SOS. The flag is monotonic
// and re-triggering is a no-op. Any party to the ride may trigger it.
func (s *LifecycleService) TriggerSOS(ctx context.Context, caller domain.Identity, rideID string) (*domain.Ride, error) {
	ride, err := s.getRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && !ride.PartyTo(caller.ID) {
		return nil, ErrNotParty
	}
	if ride.Status.IsTerminal() {
		return nil, E(KindInvalidState, "ride is already finished")
	}
	if ride.SOSTriggered {
		return ride, nil
	}

	ride.SOSTriggered = true
	if err := s.rides.Update(ctx, ride); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrRideConflict
		}
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"ride_id": ride.ID,
		"by":      caller.ID,
	}).Warn("SOS triggered")
	s.notifier.SOSTriggered(ctx, ride)
	return ride, nil
}

// FlagRouteDeviation marks a ride as having left its expected route.
// Flags raised outside ACCEPTED or IN_PROGRESS are ignored without error.
func (s *LifecycleService) FlagRouteDeviation(ctx context.Context, rideID string) (*domain.Ride, error) {
	ride, err := s.getRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusAccepted && ride.Status != domain.RideStatusInProgress {
		return ride, nil
	}
	if ride.RouteDeviation {
		return ride, nil
	}

	ride.RouteDeviation = true
	if err := s.rides.Update(ctx, ride); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrRideConflict
		}
		return nil, err
	}

	s.log.WithField("ride_id", ride.ID).Warn("route deviation flagged")
	return ride, nil
}

func (s *LifecycleService) getRide(ctx context.Context, rideID string) (*domain.Ride, error) {
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}
	return ride, nil
}
