package service

import (
	"context"
	"math/rand"

	"dispatch/internal/config"
	"dispatch/internal/redis"
	"dispatch/internal/repository"
	"dispatch/pkg/logger"
)

// SurgeService derives a surge multiplier from the ratio of active rides
// to available drivers near a pickup point. It implements DemandSignal.
type SurgeService struct {
	rides     repository.RideRepository
	locations redis.LocationStoreInterface
	cfg       config.FareConfig
	radiusKm  float64
	log       *logger.Logger
}

// NewSurgeService creates a surge service.
func NewSurgeService(rides repository.RideRepository, locations redis.LocationStoreInterface, cfg config.FareConfig, radiusKm float64, log *logger.Logger) *SurgeService {
	return &SurgeService{rides: rides, locations: locations, cfg: cfg, radiusKm: radiusKm, log: log}
}

// SurgeMultiplier returns the multiplier for a pickup area. Demand is the
// count of active rides, supply the count of nearby online drivers. Lookup
// failures fall back to the minimum multiplier rather than blocking an
// estimate.
func (s *SurgeService) SurgeMultiplier(ctx context.Context, lat, lng float64) float64 {
	active, err := s.rides.ListActive(ctx)
	if err != nil {
		s.log.WithError(err).Warn("surge: active ride lookup failed, using minimum")
		return s.cfg.SurgeMin
	}

	nearby, err := s.locations.FindNearbyDrivers(ctx, lat, lng, s.radiusKm)
	if err != nil {
		s.log.WithError(err).Warn("surge: driver lookup failed, using minimum")
		return s.cfg.SurgeMin
	}

	demand := len(active)
	supply := len(nearby)
	if supply == 0 {
		if demand == 0 {
			return s.cfg.SurgeMin
		}
		return s.cfg.SurgeMax
	}

	ratio := float64(demand) / float64(supply)
	switch {
	case ratio <= 1.0:
		return s.cfg.SurgeMin
	case ratio <= 2.0:
		return clamp(1.25, s.cfg.SurgeMin, s.cfg.SurgeMax)
	case ratio <= 3.0:
		return clamp(1.5, s.cfg.SurgeMin, s.cfg.SurgeMax)
	default:
		return s.cfg.SurgeMax
	}
}

// FixedTraffic is a TrafficModel that always reports the same factor.
type FixedTraffic struct {
	Factor float64
}

func (t FixedTraffic) TrafficFactor(ctx context.Context, pickupLat, pickupLng, dropLat, dropLng float64) float64 {
	return t.Factor
}

// SampledTraffic draws the factor uniformly from [Min, Max], standing in
// for a live traffic feed. Tests pin FixedTraffic instead.
type SampledTraffic struct {
	Min float64
	Max float64
}

func (t SampledTraffic) TrafficFactor(ctx context.Context, pickupLat, pickupLng, dropLat, dropLng float64) float64 {
	if t.Max <= t.Min {
		return t.Min
	}
	return t.Min + rand.Float64()*(t.Max-t.Min)
}

// FixedDemand is a DemandSignal that always reports the same multiplier.
type FixedDemand struct {
	Multiplier float64
}

func (d FixedDemand) SurgeMultiplier(ctx context.Context, lat, lng float64) float64 {
	return d.Multiplier
}
