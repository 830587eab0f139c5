package service

import (
	"context"
	"sync"
	"time"
)

// OfferResponse is a driver's answer to a ride offer.
type OfferResponse struct {
	Accepted bool
}

type pendingOffer struct {
	rideID   string
	driverID string
	answered bool
	respond  chan OfferResponse
}

// OfferCoordinator tracks the single outstanding offer per driver and
// bridges the matching loop, which waits, with the driver API, which
// responds. All coordination is in-process; the per-driver Redis lock
// keeps other instances from offering to the same driver concurrently.
type OfferCoordinator struct {
	mu       sync.Mutex
	byDriver map[string]*pendingOffer
}

// NewOfferCoordinator creates an offer coordinator.
func NewOfferCoordinator() *OfferCoordinator {
	return &OfferCoordinator{byDriver: make(map[string]*pendingOffer)}
}

// Open registers an outstanding offer for a driver. It fails with a
// conflict when the driver already has one.
func (c *OfferCoordinator) Open(rideID, driverID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.byDriver[driverID]; exists {
		return E(KindConflict, "driver already has an outstanding offer")
	}
	c.byDriver[driverID] = &pendingOffer{
		rideID:   rideID,
		driverID: driverID,
		respond:  make(chan OfferResponse, 1),
	}
	return nil
}

// Pending reports the ride the driver currently has an offer for.
func (c *OfferCoordinator) Pending(driverID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	offer, ok := c.byDriver[driverID]
	if !ok {
		return "", false
	}
	return offer.rideID, true
}

// RespondByDriver delivers a driver's answer to their outstanding offer.
// The response is rejected when no offer is outstanding, which includes
// one that just timed out, or when it names a different ride. The answer
// is buffered under the lock, so a nil return means the waiting side
// will observe it: either directly or by the expiry drain.
func (c *OfferCoordinator) RespondByDriver(driverID, rideID string, accepted bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	offer, ok := c.byDriver[driverID]
	if !ok {
		return E(KindNotFound, "no outstanding offer for driver")
	}
	if offer.rideID != rideID {
		return E(KindConflict, "offer is for a different ride")
	}
	if offer.answered {
		return E(KindConflict, "offer already answered")
	}
	offer.answered = true
	offer.respond <- OfferResponse{Accepted: accepted}
	return nil
}

// Await blocks until the driver answers, the timeout elapses, or the
// context is cancelled. Timeout and cancellation count as declines. The
// offer is always cleared before returning; an answer that was accepted
// by RespondByDriver just as the timer fired is drained under the lock
// and honored instead of being dropped.
func (c *OfferCoordinator) Await(ctx context.Context, driverID string, timeout time.Duration) OfferResponse {
	c.mu.Lock()
	offer, ok := c.byDriver[driverID]
	c.mu.Unlock()
	if !ok {
		return OfferResponse{}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case resp := <-offer.respond:
		c.clear(driverID)
		return resp
	case <-timer.C:
		return c.expire(driverID)
	case <-ctx.Done():
		return c.expire(driverID)
	}
}

func (c *OfferCoordinator) clear(driverID string) {
	c.mu.Lock()
	delete(c.byDriver, driverID)
	c.mu.Unlock()
}

// expire removes the offer and drains a response delivered in the window
// between the timer firing and the removal. After expire, a respond call
// fails with NotFound rather than landing in an abandoned channel.
func (c *OfferCoordinator) expire(driverID string) OfferResponse {
	c.mu.Lock()
	defer c.mu.Unlock()

	offer, ok := c.byDriver[driverID]
	if !ok {
		return OfferResponse{}
	}
	delete(c.byDriver, driverID)
	select {
	case resp := <-offer.respond:
		return resp
	default:
		return OfferResponse{}
	}
}
