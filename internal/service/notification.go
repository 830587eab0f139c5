package service

import (
	"context"

	"dispatch/internal/domain"
	"dispatch/pkg/logger"
)

// Notifier publishes ride events to interested parties. The log-backed
// implementation stands in for push or SMS delivery.
type Notifier interface {
	OfferSent(ctx context.Context, ride *domain.Ride, driverID string)
	RideAccepted(ctx context.Context, ride *domain.Ride)
	RideStatusChanged(ctx context.Context, ride *domain.Ride)
	RideCancelled(ctx context.Context, ride *domain.Ride)
	RideUnmatched(ctx context.Context, ride *domain.Ride)
	SOSTriggered(ctx context.Context, ride *domain.Ride)
}

// LogNotifier writes every notification to the structured log.
type LogNotifier struct {
	log *logger.Logger
}

// NewLogNotifier creates a log-backed notifier.
func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) OfferSent(ctx context.Context, ride *domain.Ride, driverID string) {
	n.log.WithFields(map[string]interface{}{
		"ride_id":   ride.ID,
		"driver_id": driverID,
	}).Info("ride offer sent")
}

func (n *LogNotifier) RideAccepted(ctx context.Context, ride *domain.Ride) {
	n.log.WithFields(map[string]interface{}{
		"ride_id":   ride.ID,
		"rider_id":  ride.RiderID,
		"driver_id": ride.DriverID,
	}).Info("ride accepted")
}

func (n *LogNotifier) RideStatusChanged(ctx context.Context, ride *domain.Ride) {
	n.log.WithFields(map[string]interface{}{
		"ride_id": ride.ID,
		"status":  string(ride.Status),
	}).Info("ride status changed")
}

func (n *LogNotifier) RideCancelled(ctx context.Context, ride *domain.Ride) {
	n.log.WithFields(map[string]interface{}{
		"ride_id": ride.ID,
		"reason":  ride.CancelReason,
	}).Info("ride cancelled")
}

func (n *LogNotifier) RideUnmatched(ctx context.Context, ride *domain.Ride) {
	n.log.WithField("ride_id", ride.ID).Warn("no driver accepted the ride")
}

func (n *LogNotifier) SOSTriggered(ctx context.Context, ride *domain.Ride) {
	n.log.WithFields(map[string]interface{}{
		"ride_id":  ride.ID,
		"rider_id": ride.RiderID,
	}).Warn("SOS alert dispatched")
}
