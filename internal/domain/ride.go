package domain

import "time"

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusRequested  RideStatus = "REQUESTED"
	RideStatusAccepted   RideStatus = "ACCEPTED"
	RideStatusArrived    RideStatus = "ARRIVED"
	RideStatusInProgress RideStatus = "IN_PROGRESS"
	RideStatusCompleted  RideStatus = "COMPLETED"
	RideStatusCancelled  RideStatus = "CANCELLED"
)

// rideTransitions encodes the ride state flow. COMPLETED and CANCELLED are
// terminal and have no outgoing edges.
var rideTransitions = map[RideStatus][]RideStatus{
	RideStatusRequested:  {RideStatusAccepted, RideStatusCancelled},
	RideStatusAccepted:   {RideStatusArrived, RideStatusCancelled},
	RideStatusArrived:    {RideStatusInProgress, RideStatusCancelled},
	RideStatusInProgress: {RideStatusCompleted, RideStatusCancelled},
}

// CanTransition reports whether a ride may move from one status to another.
func CanTransition(from, to RideStatus) bool {
	for _, next := range rideTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status is final.
func (s RideStatus) IsTerminal() bool {
	return s == RideStatusCompleted || s == RideStatusCancelled
}

// ValidRideStatus reports whether the string names a known status.
func ValidRideStatus(s string) bool {
	switch RideStatus(s) {
	case RideStatusRequested, RideStatusAccepted, RideStatusArrived,
		RideStatusInProgress, RideStatusCompleted, RideStatusCancelled:
		return true
	}
	return false
}

// Ride represents a transportation request from pickup to destination.
// All money amounts are whole INR units.
type Ride struct {
	ID       string
	RiderID  string
	DriverID string // empty until matched; immutable once set

	PickupLat          float64
	PickupLng          float64
	PickupAddress      string
	DestinationLat     float64
	DestinationLng     float64
	DestinationAddress string

	Status  RideStatus
	Version int // optimistic concurrency token, bumped on every update

	// Final fare, set once at settlement. Zero means not yet settled.
	Fare int64

	// Estimates are locked in at creation and never re-written.
	EstimatedFare        int64
	EstimatedDurationMin int
	EstimatedDistanceKm  float64
	SurgeMultiplier      float64

	// Safety flags, monotonic false -> true.
	RouteDeviation bool
	SOSTriggered   bool

	CreatedAt    time.Time
	StartedAt    time.Time
	CompletedAt  time.Time
	CancelledAt  time.Time
	CancelReason string
}

// PartyTo reports whether the given user is the ride's rider or driver.
func (r *Ride) PartyTo(userID string) bool {
	return userID != "" && (userID == r.RiderID || userID == r.DriverID)
}
