package service

import (
	"context"
	"errors"

	"dispatch/internal/config"
	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/pkg/logger"
)

// MatchingEngine finds a driver for a requested ride by offering it to
// ranked nearby drivers one at a time.
type MatchingEngine struct {
	rides     repository.RideRepository
	drivers   repository.DriverRepository
	locations redis.LocationStoreInterface
	locks     redis.LockStoreInterface
	cache     redis.CacheStoreInterface
	lifecycle *LifecycleService
	offers    *OfferCoordinator
	scorer    Scorer
	notifier  Notifier
	cfg       config.MatchingConfig
	log       *logger.Logger
}

// NewMatchingEngine creates a matching engine.
func NewMatchingEngine(
	rides repository.RideRepository,
	drivers repository.DriverRepository,
	locations redis.LocationStoreInterface,
	locks redis.LockStoreInterface,
	cache redis.CacheStoreInterface,
	lifecycle *LifecycleService,
	offers *OfferCoordinator,
	scorer Scorer,
	notifier Notifier,
	cfg config.MatchingConfig,
	log *logger.Logger,
) *MatchingEngine {
	return &MatchingEngine{
		rides:     rides,
		drivers:   drivers,
		locations: locations,
		locks:     locks,
		cache:     cache,
		lifecycle: lifecycle,
		offers:    offers,
		scorer:    scorer,
		notifier:  notifier,
		cfg:       cfg,
		log:       log,
	}
}

// Dispatch starts matching for a ride in the background.
func (e *MatchingEngine) Dispatch(rideID string) {
	go func() {
		if err := e.Run(context.Background(), rideID); err != nil {
			e.log.WithError(err).WithField("ride_id", rideID).Error("matching run failed")
		}
	}()
}

// Run executes one matching pass for a ride: discover nearby online
// drivers, rank them, and offer the ride to each in turn until one
// accepts or the list is exhausted. The ride is re-read before every
// offer so a cancellation mid-matching stops the loop.
func (e *MatchingEngine) Run(ctx context.Context, rideID string) error {
	ride, err := e.rides.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrRideNotFound
		}
		return err
	}
	if ride.Status != domain.RideStatusRequested {
		return nil
	}

	candidates, err := e.discover(ctx, ride)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		e.notifier.RideUnmatched(ctx, ride)
		return nil
	}

	Rank(ctx, candidates, e.scorer, ride, e.cfg.RadiusKm)

	for _, c := range candidates {
		// Re-read so a ride cancelled or claimed elsewhere stops the loop.
		ride, err = e.rides.GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		if ride.Status != domain.RideStatusRequested {
			return nil
		}

		accepted, err := e.offerTo(ctx, ride, c.Driver.ID)
		if err != nil {
			e.log.WithError(err).WithFields(map[string]interface{}{
				"ride_id":   rideID,
				"driver_id": c.Driver.ID,
			}).Warn("offer attempt failed, moving to next driver")
			continue
		}
		if accepted {
			return nil
		}
	}

	e.notifier.RideUnmatched(ctx, ride)
	return nil
}

// discover finds ONLINE drivers within the search radius, nearest first.
// Driver profiles come from cache when fresh, the DB otherwise.
func (e *MatchingEngine) discover(ctx context.Context, ride *domain.Ride) ([]Candidate, error) {
	nearby, err := e.locations.FindNearbyDrivers(ctx, ride.PickupLat, ride.PickupLng, e.cfg.RadiusKm)
	if err != nil {
		return nil, err
	}

	candidates := make([]Candidate, 0, len(nearby))
	for _, loc := range nearby {
		driver, err := e.lookupDriver(ctx, loc.DriverID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				continue
			}
			return nil, err
		}
		if driver.Status != domain.DriverStatusOnline {
			continue
		}
		candidates = append(candidates, Candidate{
			Driver:     driver,
			DistanceKm: HaversineKm(ride.PickupLat, ride.PickupLng, loc.Lat, loc.Lng),
		})
	}
	return candidates, nil
}

func (e *MatchingEngine) lookupDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	if e.cache != nil {
		cached, err := e.cache.GetDriver(ctx, driverID)
		if err != nil {
			e.log.WithError(err).Debug("driver cache read failed")
		} else if cached != nil {
			d := &domain.Driver{
				ID:     cached.ID,
				Name:   cached.Name,
				Status: domain.DriverStatus(cached.Status),
				Rating: cached.Rating,
			}
			// Reconstruct counters so AcceptanceRate matches the cached rate.
			if cached.AcceptanceRate < 1.0 {
				d.OffersReceived = 100
				d.OffersAccepted = int(cached.AcceptanceRate * 100)
			}
			return d, nil
		}
	}

	driver, err := e.drivers.GetByID(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.SetDriver(ctx, &redis.CachedDriver{
			ID:             driver.ID,
			Name:           driver.Name,
			Status:         string(driver.Status),
			Rating:         driver.Rating,
			AcceptanceRate: driver.AcceptanceRate(),
		})
	}
	return driver, nil
}

// offerTo sends one offer and waits for the answer. The per-driver Redis
// lock guarantees at most one outstanding offer per driver across engine
// instances; the in-process coordinator enforces the same within one.
func (e *MatchingEngine) offerTo(ctx context.Context, ride *domain.Ride, driverID string) (bool, error) {
	locked, err := e.locks.AcquireOfferLock(ctx, driverID, e.cfg.OfferTimeout+e.cfg.OfferLockGrace)
	if err != nil {
		return false, err
	}
	if !locked {
		return false, nil
	}
	defer func() {
		if err := e.locks.ReleaseOfferLock(ctx, driverID); err != nil {
			e.log.WithError(err).WithField("driver_id", driverID).Warn("offer lock release failed")
		}
	}()

	if err := e.offers.Open(ride.ID, driverID); err != nil {
		return false, err
	}
	e.notifier.OfferSent(ctx, ride, driverID)

	resp := e.offers.Await(ctx, driverID, e.cfg.OfferTimeout)

	if err := e.drivers.RecordOfferResult(ctx, driverID, resp.Accepted); err != nil {
		e.log.WithError(err).WithField("driver_id", driverID).Warn("offer stats update failed")
	}
	if e.cache != nil {
		e.cache.InvalidateDriver(ctx, driverID)
	}

	if !resp.Accepted {
		return false, nil
	}

	if err := e.lifecycle.AssignDriver(ctx, ride, driverID); err != nil {
		if KindOf(err) == KindConflict || KindOf(err) == KindInvalidState {
			// The ride changed under us; the loop's re-read will stop it.
			return false, nil
		}
		return false, err
	}
	return true, nil
}
