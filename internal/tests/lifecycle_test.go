package tests

import (
	"context"
	"errors"
	"sync"
	"testing"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

func TestLifecycle_HappyPath(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	e.Drivers.AddDriver(&domain.Driver{ID: "driver-1", Status: domain.DriverStatusOnline})
	ride := e.seedRide(&domain.Ride{
		ID:      "ride-1",
		RiderID: "rider-1",
		Status:  domain.RideStatusRequested,
	})

	if err := e.Lifecycle.AssignDriver(ctx, ride, "driver-1"); err != nil {
		t.Fatalf("assign failed: %v", err)
	}
	if got := e.Rides.GetRide("ride-1"); got.Status != domain.RideStatusAccepted || got.DriverID != "driver-1" {
		t.Fatalf("unexpected ride after assign: status=%s driver=%s", got.Status, got.DriverID)
	}
	if got := e.Drivers.GetDriver("driver-1"); got.Status != domain.DriverStatusOnTrip {
		t.Errorf("expected driver ON_TRIP, got %s", got.Status)
	}

	caller := driverIdent("driver-1")
	for _, next := range []domain.RideStatus{
		domain.RideStatusArrived,
		domain.RideStatusInProgress,
		domain.RideStatusCompleted,
	} {
		if _, err := e.Lifecycle.UpdateStatus(ctx, caller, "ride-1", next); err != nil {
			t.Fatalf("transition to %s failed: %v", next, err)
		}
	}

	final := e.Rides.GetRide("ride-1")
	if final.Status != domain.RideStatusCompleted {
		t.Errorf("expected COMPLETED, got %s", final.Status)
	}
	if final.StartedAt.IsZero() || final.CompletedAt.IsZero() {
		t.Error("expected started and completed timestamps to be set")
	}
	if got := e.Drivers.GetDriver("driver-1"); got.Status != domain.DriverStatusOnline {
		t.Errorf("expected driver back ONLINE after completion, got %s", got.Status)
	}
}

func TestLifecycle_RejectsSkippedStates(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	e.seedRide(&domain.Ride{
		ID:       "ride-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.RideStatusAccepted,
	})

	// ACCEPTED cannot jump straight to COMPLETED.
	_, err := e.Lifecycle.UpdateStatus(ctx, driverIdent("driver-1"), "ride-1", domain.RideStatusCompleted)
	if err == nil {
		t.Fatal("expected transition error")
	}
	if service.KindOf(err) != service.KindInvalidTransition {
		t.Errorf("expected INVALID_TRANSITION, got %s", service.KindOf(err))
	}
}

func TestLifecycle_OnlyPartiesProgressTheRide(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	e.seedRide(&domain.Ride{
		ID:       "ride-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.RideStatusAccepted,
	})

	// An unrelated driver is rejected.
	_, err := e.Lifecycle.UpdateStatus(ctx, driverIdent("driver-2"), "ride-1", domain.RideStatusArrived)
	if err == nil {
		t.Fatal("expected authorization error")
	}
	if service.KindOf(err) != service.KindNotAuthorized {
		t.Errorf("expected NOT_AUTHORIZED, got %s", service.KindOf(err))
	}

	// The rider is a party to the ride and may drive the progression.
	ride, err := e.Lifecycle.UpdateStatus(ctx, rider("rider-1"), "ride-1", domain.RideStatusArrived)
	if err != nil {
		t.Fatalf("rider progression failed: %v", err)
	}
	if ride.Status != domain.RideStatusArrived {
		t.Errorf("expected ARRIVED, got %s", ride.Status)
	}
}

func TestLifecycle_IdempotentStatusResend(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	e.seedRide(&domain.Ride{
		ID:       "ride-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.RideStatusArrived,
	})

	// Re-sending the current status succeeds without mutating the ride.
	before := e.Rides.GetRide("ride-1").Version
	ride, err := e.Lifecycle.UpdateStatus(ctx, driverIdent("driver-1"), "ride-1", domain.RideStatusArrived)
	if err != nil {
		t.Fatalf("idempotent resend failed: %v", err)
	}
	if ride.Status != domain.RideStatusArrived {
		t.Errorf("expected ARRIVED, got %s", ride.Status)
	}
	if after := e.Rides.GetRide("ride-1").Version; after != before {
		t.Errorf("expected version unchanged, got %d -> %d", before, after)
	}
}

func TestLifecycle_CancelAuthorization(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	e.Drivers.AddDriver(&domain.Driver{ID: "driver-1", Status: domain.DriverStatusOnTrip})
	e.seedRide(&domain.Ride{
		ID:       "ride-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.RideStatusAccepted,
	})

	// The driver cannot cancel.
	if _, err := e.Lifecycle.Cancel(ctx, driverIdent("driver-1"), "ride-1", "changed my mind"); err == nil {
		t.Fatal("expected driver cancel to be rejected")
	}

	// The rider can.
	ride, err := e.Lifecycle.Cancel(ctx, rider("rider-1"), "ride-1", "waited too long")
	if err != nil {
		t.Fatalf("rider cancel failed: %v", err)
	}
	if ride.Status != domain.RideStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", ride.Status)
	}
	if ride.CancelReason != "waited too long" {
		t.Errorf("unexpected cancel reason: %q", ride.CancelReason)
	}
	if got := e.Drivers.GetDriver("driver-1"); got.Status != domain.DriverStatusOnline {
		t.Errorf("expected driver freed after cancel, got %s", got.Status)
	}
}

func TestLifecycle_CancelIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	e.seedRide(&domain.Ride{
		ID:      "ride-1",
		RiderID: "rider-1",
		Status:  domain.RideStatusCancelled,
	})

	ride, err := e.Lifecycle.Cancel(ctx, rider("rider-1"), "ride-1", "again")
	if err != nil {
		t.Fatalf("repeat cancel failed: %v", err)
	}
	if ride.Status != domain.RideStatusCancelled {
		t.Errorf("expected CANCELLED, got %s", ride.Status)
	}
}

func TestLifecycle_CannotCancelCompletedRide(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	e.seedRide(&domain.Ride{
		ID:      "ride-1",
		RiderID: "rider-1",
		Status:  domain.RideStatusCompleted,
	})

	_, err := e.Lifecycle.Cancel(ctx, rider("rider-1"), "ride-1", "")
	if err == nil {
		t.Fatal("expected cancel of completed ride to fail")
	}
	if service.KindOf(err) != service.KindInvalidTransition {
		t.Errorf("expected INVALID_TRANSITION, got %s", service.KindOf(err))
	}
}

func TestLifecycle_ConcurrentWritersExactlyOneWins(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	e.Drivers.AddDriver(&domain.Driver{ID: "driver-1", Status: domain.DriverStatusOnline})
	e.Drivers.AddDriver(&domain.Driver{ID: "driver-2", Status: domain.DriverStatusOnline})
	e.seedRide(&domain.Ride{
		ID:      "ride-1",
		RiderID: "rider-1",
		Status:  domain.RideStatusRequested,
	})

	// Two assignments race on the same version snapshot. The conditioned
	// write lets exactly one through.
	stored := e.Rides.GetRide("ride-1")

	var wg sync.WaitGroup
	results := make([]error, 2)

	for i, driverID := range []string{"driver-1", "driver-2"} {
		wg.Add(1)
		go func(i int, driverID string) {
			defer wg.Done()
			snapshot := *stored
			results[i] = e.Lifecycle.AssignDriver(ctx, &snapshot, driverID)
		}(i, driverID)
	}
	wg.Wait()

	failures := 0
	for _, err := range results {
		if err != nil {
			if !errors.Is(err, service.ErrRideConflict) {
				t.Errorf("unexpected race error: %v", err)
			}
			failures++
		}
	}
	if failures != 1 {
		t.Errorf("expected exactly one loser, got %d failures", failures)
	}

	final := e.Rides.GetRide("ride-1")
	if final.Status != domain.RideStatusAccepted || final.DriverID == "" {
		t.Errorf("expected exactly one driver bound, got status=%s driver=%q", final.Status, final.DriverID)
	}
}

func TestLifecycle_SOSMonotonicAndPartyOnly(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	e.seedRide(&domain.Ride{
		ID:       "ride-1",
		RiderID:  "rider-1",
		DriverID: "driver-1",
		Status:   domain.RideStatusInProgress,
	})

	if _, err := e.Lifecycle.TriggerSOS(ctx, rider("stranger"), "ride-1"); err == nil {
		t.Fatal("expected SOS by a non-party to be rejected")
	}

	ride, err := e.Lifecycle.TriggerSOS(ctx, rider("rider-1"), "ride-1")
	if err != nil {
		t.Fatalf("SOS failed: %v", err)
	}
	if !ride.SOSTriggered {
		t.Fatal("expected SOS flag set")
	}

	// Re-trigger is a no-op, not an error.
	version := e.Rides.GetRide("ride-1").Version
	if _, err := e.Lifecycle.TriggerSOS(ctx, driverIdent("driver-1"), "ride-1"); err != nil {
		t.Fatalf("repeat SOS failed: %v", err)
	}
	if after := e.Rides.GetRide("ride-1").Version; after != version {
		t.Errorf("expected no write on repeat SOS, version %d -> %d", version, after)
	}
}

func TestLifecycle_DeviationIgnoredOutsideActivePhases(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	e.seedRide(&domain.Ride{
		ID:      "ride-1",
		RiderID: "rider-1",
		Status:  domain.RideStatusRequested,
	})

	ride, err := e.Lifecycle.FlagRouteDeviation(ctx, "ride-1")
	if err != nil {
		t.Fatalf("deviation flag failed: %v", err)
	}
	if ride.RouteDeviation {
		t.Error("expected deviation ignored while REQUESTED")
	}

	e.seedRide(&domain.Ride{
		ID:       "ride-2",
		RiderID:  "rider-2",
		DriverID: "driver-1",
		Status:   domain.RideStatusInProgress,
	})
	ride, err = e.Lifecycle.FlagRouteDeviation(ctx, "ride-2")
	if err != nil {
		t.Fatalf("deviation flag failed: %v", err)
	}
	if !ride.RouteDeviation {
		t.Error("expected deviation recorded while IN_PROGRESS")
	}
}
