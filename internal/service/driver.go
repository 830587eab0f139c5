package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/pkg/logger"
)

// RegisterDriverInput is the request to register a driver.
type RegisterDriverInput struct {
	Name   string
	Phone  string
	Rating float64
}

// DriverService manages driver presence and offer responses.
type DriverService struct {
	drivers   repository.DriverRepository
	locations redis.LocationStoreInterface
	cache     redis.CacheStoreInterface
	offers    *OfferCoordinator
	log       *logger.Logger
}

// NewDriverService creates a driver service.
func NewDriverService(drivers repository.DriverRepository, locations redis.LocationStoreInterface, cache redis.CacheStoreInterface, offers *OfferCoordinator, log *logger.Logger) *DriverService {
	return &DriverService{drivers: drivers, locations: locations, cache: cache, offers: offers, log: log}
}

// Register creates a new driver, initially offline.
func (s *DriverService) Register(ctx context.Context, in RegisterDriverInput) (*domain.Driver, error) {
	if in.Name == "" {
		return nil, E(KindInvalidInput, "driver name is required")
	}
	if in.Rating < 0 || in.Rating > 5 {
		return nil, E(KindInvalidInput, "rating must be between 0 and 5")
	}

	driver := &domain.Driver{
		ID:        uuid.New().String(),
		Name:      in.Name,
		Phone:     in.Phone,
		Status:    domain.DriverStatusOffline,
		Rating:    in.Rating,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.drivers.Create(ctx, driver); err != nil {
		return nil, err
	}

	s.log.WithField("driver_id", driver.ID).Info("driver registered")
	return driver, nil
}

// GetDriver retrieves a driver by ID.
func (s *DriverService) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	driver, err := s.drivers.GetByID(ctx, driverID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrDriverNotFound
		}
		return nil, err
	}
	return driver, nil
}

// UpdateLocation records a driver's position and brings an offline driver
// online. Drivers on a trip keep their ON_TRIP status.
func (s *DriverService) UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error {
	if err := validateCoords(lat, lng); err != nil {
		return err
	}

	driver, err := s.GetDriver(ctx, driverID)
	if err != nil {
		return err
	}

	if err := s.locations.UpdateLocation(ctx, driverID, lat, lng); err != nil {
		return err
	}

	if driver.Status == domain.DriverStatusOffline {
		if err := s.drivers.UpdateStatus(ctx, driverID, domain.DriverStatusOnline); err != nil {
			return err
		}
		if s.cache != nil {
			s.cache.InvalidateDriver(ctx, driverID)
		}
	}
	return nil
}

// GoOffline takes a driver out of the matching pool. A driver on a trip
// cannot go offline.
func (s *DriverService) GoOffline(ctx context.Context, driverID string) error {
	driver, err := s.GetDriver(ctx, driverID)
	if err != nil {
		return err
	}
	if driver.Status == domain.DriverStatusOnTrip {
		return E(KindInvalidState, "driver cannot go offline during a trip")
	}
	if driver.Status == domain.DriverStatusOffline {
		return nil
	}

	if err := s.drivers.UpdateStatus(ctx, driverID, domain.DriverStatusOffline); err != nil {
		return err
	}
	if err := s.locations.RemoveLocation(ctx, driverID); err != nil {
		s.log.WithError(err).WithField("driver_id", driverID).Warn("geo index cleanup failed")
	}
	if s.cache != nil {
		s.cache.InvalidateDriver(ctx, driverID)
	}
	return nil
}

// PendingOffer reports the ride currently offered to the driver, if any.
func (s *DriverService) PendingOffer(ctx context.Context, driverID string) (string, bool) {
	return s.offers.Pending(driverID)
}

// RespondToOffer delivers the driver's accept or decline for a ride offer.
func (s *DriverService) RespondToOffer(ctx context.Context, caller domain.Identity, rideID string, accepted bool) error {
	if caller.Role != domain.RoleDriver {
		return E(KindNotAuthorized, "only drivers may respond to offers")
	}
	return s.offers.RespondByDriver(caller.ID, rideID, accepted)
}
