package tests

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

// TestDispatchEndToEnd walks a ride through its whole life: request,
// match, drive, complete, settle from the wallet.
func TestDispatchEndToEnd(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	// A driver comes online near the equator test route.
	driver, err := e.DriverSvc.Register(ctx, service.RegisterDriverInput{Name: "Asha", Rating: 4.9})
	if err != nil {
		t.Fatalf("driver registration failed: %v", err)
	}
	if err := e.DriverSvc.UpdateLocation(ctx, driver.ID, 0.001, 0.001); err != nil {
		t.Fatalf("location update failed: %v", err)
	}
	if got, _ := e.Drivers.GetByID(ctx, driver.ID); got.Status != domain.DriverStatusOnline {
		t.Fatalf("expected driver ONLINE after location update, got %s", got.Status)
	}

	// The rider funds their wallet.
	if _, err := e.WalletSvc.TopUp(ctx, "rider-1", 2000, domain.PaymentMethodUPI); err != nil {
		t.Fatalf("top-up failed: %v", err)
	}

	// The driver will accept the incoming offer.
	go func() {
		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			if rideID, ok := e.DriverSvc.PendingOffer(ctx, driver.ID); ok {
				_ = e.DriverSvc.RespondToOffer(ctx, driverIdent(driver.ID), rideID, true)
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
	}()

	// Request a ride covering one degree of longitude, about 111 km.
	ride, err := e.RideSvc.CreateRide(ctx, rider("rider-1"), service.CreateRideInput{
		PickupLat:      0,
		PickupLng:      0,
		DestinationLat: 0,
		DestinationLng: 1,
	})
	if err != nil {
		t.Fatalf("ride creation failed: %v", err)
	}

	wantFare := int64(math.Round(50 + 10*ride.EstimatedDistanceKm))
	if ride.EstimatedFare != wantFare {
		t.Errorf("expected estimate %d, got %d", wantFare, ride.EstimatedFare)
	}

	// Matching runs in the background; wait for acceptance.
	waitForStatus(t, e, ride.ID, domain.RideStatusAccepted)

	// A second request while the first is active is rejected.
	_, err = e.RideSvc.CreateRide(ctx, rider("rider-1"), service.CreateRideInput{
		PickupLat:      0,
		PickupLng:      0,
		DestinationLat: 0.5,
		DestinationLng: 0.5,
	})
	if !errors.Is(err, service.ErrActiveRideExists) {
		t.Fatalf("expected ErrActiveRideExists, got %v", err)
	}

	// The driver runs the trip to completion.
	caller := driverIdent(driver.ID)
	for _, next := range []domain.RideStatus{
		domain.RideStatusArrived,
		domain.RideStatusInProgress,
		domain.RideStatusCompleted,
	} {
		if _, err := e.Lifecycle.UpdateStatus(ctx, caller, ride.ID, next); err != nil {
			t.Fatalf("transition to %s failed: %v", next, err)
		}
	}

	// Settlement from the funded wallet.
	payment, err := e.Settlement.ChargeRide(ctx, rider("rider-1"), ride.ID, domain.PaymentMethodWallet, ride.EstimatedFare)
	if err != nil {
		t.Fatalf("settlement failed: %v", err)
	}
	if payment.Status != domain.PaymentStatusCompleted {
		t.Fatalf("expected COMPLETED payment, got %s", payment.Status)
	}
	if payment.Amount != wantFare {
		t.Errorf("expected charge %d, got %d", wantFare, payment.Amount)
	}

	wallet := e.Wallets.GetWallet("rider-1")
	if wallet.Balance != 2000-wantFare {
		t.Errorf("expected balance %d, got %d", 2000-wantFare, wallet.Balance)
	}
	sum, _ := e.Wallets.SumTransactions(ctx, wallet.ID)
	if sum != wallet.Balance {
		t.Errorf("ledger sum %d does not match balance %d", sum, wallet.Balance)
	}

	final := e.Rides.GetRide(ride.ID)
	if final.Fare != wantFare {
		t.Errorf("expected final fare %d, got %d", wantFare, final.Fare)
	}
	if got, _ := e.Drivers.GetByID(ctx, driver.ID); got.Status != domain.DriverStatusOnline {
		t.Errorf("expected driver ONLINE after trip, got %s", got.Status)
	}

	// With the first ride settled, the rider can request again.
	if _, err := e.RideSvc.CreateRide(ctx, rider("rider-1"), service.CreateRideInput{
		PickupLat:      0,
		PickupLng:      0,
		DestinationLat: 0.2,
		DestinationLng: 0.2,
	}); err != nil {
		t.Fatalf("second ride creation failed: %v", err)
	}
}

// waitForStatus polls the ride until it reaches the wanted status or a
// second passes.
func waitForStatus(t *testing.T, e *env, rideID string, want domain.RideStatus) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if ride := e.Rides.GetRide(rideID); ride != nil && ride.Status == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("ride %s never reached %s", rideID, want)
}

// TestDispatchEndToEnd_DriverCannotGoOfflineMidTrip covers the presence
// guard while a trip is running.
func TestDispatchEndToEnd_DriverCannotGoOfflineMidTrip(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	e.Drivers.AddDriver(&domain.Driver{ID: "driver-1", Status: domain.DriverStatusOnTrip})

	err := e.DriverSvc.GoOffline(ctx, "driver-1")
	if err == nil {
		t.Fatal("expected offline during trip to be rejected")
	}
	if service.KindOf(err) != service.KindInvalidState {
		t.Errorf("expected INVALID_STATE, got %s", service.KindOf(err))
	}
}

// TestDispatchEndToEnd_OfflineRemovesFromPool checks that an offline
// driver stops being discoverable.
func TestDispatchEndToEnd_OfflineRemovesFromPool(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	driver, err := e.DriverSvc.Register(ctx, service.RegisterDriverInput{Name: "Ravi", Rating: 4.2})
	if err != nil {
		t.Fatalf("registration failed: %v", err)
	}
	if err := e.DriverSvc.UpdateLocation(ctx, driver.ID, 12.001, 77.001); err != nil {
		t.Fatalf("location update failed: %v", err)
	}
	if err := e.DriverSvc.GoOffline(ctx, driver.ID); err != nil {
		t.Fatalf("go offline failed: %v", err)
	}

	nearby, err := e.Locations.FindNearbyDrivers(ctx, 12.0, 77.0, 5.0)
	if err != nil {
		t.Fatalf("nearby lookup failed: %v", err)
	}
	if len(nearby) != 0 {
		t.Errorf("expected empty pool after going offline, got %d", len(nearby))
	}
}
