package domain

import "time"

// DriverStatus represents the current status of a driver.
type DriverStatus string

const (
	DriverStatusOnline  DriverStatus = "ONLINE"
	DriverStatusOffline DriverStatus = "OFFLINE"
	DriverStatusOnTrip  DriverStatus = "ON_TRIP"
)

// Driver represents a driver in the system.
type Driver struct {
	ID     string
	Name   string
	Phone  string
	Status DriverStatus

	// Rating is the historical average on a 0-5 scale.
	Rating float64

	// Offer statistics, maintained by the matching engine.
	OffersReceived int
	OffersAccepted int

	CreatedAt time.Time
}

// AcceptanceRate returns the fraction of offers this driver accepted,
// in [0, 1]. Drivers with no offer history count as fully accepting.
func (d *Driver) AcceptanceRate() float64 {
	if d.OffersReceived == 0 {
		return 1.0
	}
	return float64(d.OffersAccepted) / float64(d.OffersReceived)
}
