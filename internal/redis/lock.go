package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockStore handles distributed locking in Redis. The matching engine
// uses per-driver offer locks to guarantee at most one outstanding offer
// per driver across all engine instances.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireOfferLock attempts to take the offer lock for the given driver.
// Returns true if the lock was acquired, false if already held.
func (s *LockStore) AcquireOfferLock(ctx context.Context, driverID string, ttl time.Duration) (bool, error) {
	key := fmt.Sprintf("lock:offer:%s", driverID)

	ok, err := s.client.SetNX(ctx, key, "1", ttl).Result()
	if err != nil {
		return false, err
	}

	return ok, nil
}

// ReleaseOfferLock releases the offer lock for the given driver.
func (s *LockStore) ReleaseOfferLock(ctx context.Context, driverID string) error {
	key := fmt.Sprintf("lock:offer:%s", driverID)

	return s.client.Del(ctx, key).Err()
}
