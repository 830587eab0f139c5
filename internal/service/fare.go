package service

import (
	"context"
	"math"

	"dispatch/internal/config"
)

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance in kilometers between
// two coordinates.
func HaversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := (lat2 - lat1) * math.Pi / 180.0
	dLng := (lng2 - lng1) * math.Pi / 180.0

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180.0)*math.Cos(lat2*math.Pi/180.0)*
			math.Sin(dLng/2)*math.Sin(dLng/2)

	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// TrafficModel supplies a traffic multiplier for a route. Implementations
// must return a value within the configured traffic factor bounds.
type TrafficModel interface {
	TrafficFactor(ctx context.Context, pickupLat, pickupLng, dropLat, dropLng float64) float64
}

// DemandSignal supplies the current surge multiplier for a pickup area.
type DemandSignal interface {
	SurgeMultiplier(ctx context.Context, lat, lng float64) float64
}

// Estimate is the result of a fare estimation.
type Estimate struct {
	DistanceKm      float64
	DurationMinutes int
	SurgeMultiplier float64
	TrafficFactor   float64
	Fare            int64
}

// FareEstimator computes fare estimates from distance, traffic and demand.
type FareEstimator struct {
	cfg     config.FareConfig
	traffic TrafficModel
	demand  DemandSignal
}

// NewFareEstimator creates a fare estimator.
func NewFareEstimator(cfg config.FareConfig, traffic TrafficModel, demand DemandSignal) *FareEstimator {
	return &FareEstimator{cfg: cfg, traffic: traffic, demand: demand}
}

// Estimate computes the estimated fare, distance and duration for a route.
// Fares are whole currency units, rounded half up. Duration is ceil of
// distance times the per-km minute rate scaled by traffic, floored at the
// configured minimum.
func (f *FareEstimator) Estimate(ctx context.Context, pickupLat, pickupLng, dropLat, dropLng float64) (Estimate, error) {
	if err := validateCoords(pickupLat, pickupLng); err != nil {
		return Estimate{}, err
	}
	if err := validateCoords(dropLat, dropLng); err != nil {
		return Estimate{}, err
	}

	// Identical pickup and drop is allowed: distance 0, the base fare
	// and minimum duration apply.
	distance := HaversineKm(pickupLat, pickupLng, dropLat, dropLng)

	traffic := clamp(f.traffic.TrafficFactor(ctx, pickupLat, pickupLng, dropLat, dropLng),
		f.cfg.TrafficFactorMin, f.cfg.TrafficFactorMax)
	surge := clamp(f.demand.SurgeMultiplier(ctx, pickupLat, pickupLng),
		f.cfg.SurgeMin, f.cfg.SurgeMax)

	duration := int(math.Ceil(distance * f.cfg.PerKmMinutes * traffic))
	if duration < f.cfg.MinDurationMinutes {
		duration = f.cfg.MinDurationMinutes
	}

	// Surge scales the distance component only; the base fare is flat.
	raw := float64(f.cfg.BaseFare) + float64(f.cfg.RatePerKm)*distance*surge
	fare := int64(math.Round(raw))

	return Estimate{
		DistanceKm:      distance,
		DurationMinutes: duration,
		SurgeMultiplier: surge,
		TrafficFactor:   traffic,
		Fare:            fare,
	}, nil
}

func validateCoords(lat, lng float64) error {
	if lat < -90 || lat > 90 {
		return E(KindInvalidInput, "latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return E(KindInvalidInput, "longitude must be between -180 and 180")
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
