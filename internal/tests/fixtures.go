package tests

import (
	"time"

	"dispatch/internal/config"
	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/internal/service"
	"dispatch/pkg/gateway"
	"dispatch/pkg/logger"
)

// env bundles the mocks and services under test.
type env struct {
	Rides     *MockRideRepository
	Drivers   *MockDriverRepository
	Wallets   *MockWalletRepository
	Payments  *MockPaymentRepository
	Locations *MockLocationStore
	Locks     *MockLockStore
	Cache     *MockCacheStore
	UoW       *MockUnitOfWork
	Notifier  *CaptureNotifier
	Provider  *gateway.MemoryProvider
	Offers    *service.OfferCoordinator

	Estimator  *service.FareEstimator
	Lifecycle  *service.LifecycleService
	Matching   *service.MatchingEngine
	RideSvc    *service.RideService
	DriverSvc  *service.DriverService
	WalletSvc  *service.WalletService
	Settlement *service.SettlementService
}

// defaultFareConfig mirrors production defaults.
func defaultFareConfig() config.FareConfig {
	return config.FareConfig{
		BaseFare:           50,
		RatePerKm:          10,
		PerKmMinutes:       2.0,
		MinDurationMinutes: 5,
		TrafficFactorMin:   1.0,
		TrafficFactorMax:   1.5,
		SurgeMin:           1.0,
		SurgeMax:           2.0,
	}
}

// newEnv builds the full service graph over in-memory mocks. Surge and
// traffic are pinned to their minimums so fares are deterministic.
func newEnv() *env {
	log := logger.New(logger.Config{Level: "error", Format: "text"})

	e := &env{
		Rides:     NewMockRideRepository(),
		Drivers:   NewMockDriverRepository(),
		Wallets:   NewMockWalletRepository(),
		Payments:  NewMockPaymentRepository(),
		Locations: NewMockLocationStore(),
		Locks:     NewMockLockStore(),
		Cache:     NewMockCacheStore(),
		Notifier:  NewCaptureNotifier(),
		Provider:  gateway.NewMemoryProvider(),
	}
	e.UoW = NewMockUnitOfWork(repository.Repos{
		Rides:    e.Rides,
		Drivers:  e.Drivers,
		Wallets:  e.Wallets,
		Payments: e.Payments,
	})
	e.Offers = service.NewOfferCoordinator()

	fareCfg := defaultFareConfig()
	matchCfg := config.MatchingConfig{
		RadiusKm:       5.0,
		OfferTimeout:   200 * time.Millisecond,
		OfferLockGrace: 100 * time.Millisecond,
	}
	gatewayCfg := config.GatewayConfig{Provider: "memory", Timeout: time.Second}

	e.Estimator = service.NewFareEstimator(fareCfg, service.FixedTraffic{Factor: 1.0}, service.FixedDemand{Multiplier: 1.0})
	e.Lifecycle = service.NewLifecycleService(e.Rides, e.UoW, e.Cache, e.Notifier, log)
	e.Matching = service.NewMatchingEngine(
		e.Rides, e.Drivers, e.Locations, e.Locks, e.Cache,
		e.Lifecycle, e.Offers, service.NewWeightedScorer(), e.Notifier, matchCfg, log,
	)
	e.RideSvc = service.NewRideService(e.Rides, e.Estimator, e.Matching, log)
	e.DriverSvc = service.NewDriverService(e.Drivers, e.Locations, e.Cache, e.Offers, log)
	e.WalletSvc = service.NewWalletService(e.Wallets, e.UoW, log)
	e.Settlement = service.NewSettlementService(
		e.Rides, e.Payments, e.UoW, e.Provider,
		service.NewHeuristicRiskScorer(5000), gatewayCfg, log,
	)
	return e
}

// seedRide stores a ride and returns it.
func (e *env) seedRide(ride *domain.Ride) *domain.Ride {
	if ride.CreatedAt.IsZero() {
		ride.CreatedAt = time.Now().UTC()
	}
	e.Rides.AddRide(ride)
	return ride
}

// rider and driverIdent build caller identities.
func rider(id string) domain.Identity {
	return domain.Identity{ID: id, Role: domain.RoleRider}
}

func driverIdent(id string) domain.Identity {
	return domain.Identity{ID: id, Role: domain.RoleDriver}
}

func admin(id string) domain.Identity {
	return domain.Identity{ID: id, Role: domain.RoleAdmin}
}
