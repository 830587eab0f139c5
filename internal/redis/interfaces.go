package redis

import (
	"context"
	"time"
)

// LocationStoreInterface defines the interface for driver location operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, driverID string, lat, lng float64) error
	FindNearbyDrivers(ctx context.Context, lat, lng, radiusKm float64) ([]DriverLocation, error)
	RemoveLocation(ctx context.Context, driverID string) error
}

// CacheStoreInterface defines the interface for driver profile caching.
type CacheStoreInterface interface {
	GetDriver(ctx context.Context, driverID string) (*CachedDriver, error)
	SetDriver(ctx context.Context, driver *CachedDriver) error
	InvalidateDriver(ctx context.Context, driverID string) error
}

// LockStoreInterface defines the interface for distributed offer locking.
type LockStoreInterface interface {
	AcquireOfferLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error)
	ReleaseOfferLock(ctx context.Context, driverID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ CacheStoreInterface    = (*CacheStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
)
