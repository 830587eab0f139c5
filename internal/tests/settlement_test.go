package tests

import (
	"context"
	"errors"
	"sync"
	"testing"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

func seedCompletedRide(e *env, rideID, riderID string, fare int64) *domain.Ride {
	return e.seedRide(&domain.Ride{
		ID:            rideID,
		RiderID:       riderID,
		DriverID:      "driver-1",
		Status:        domain.RideStatusCompleted,
		EstimatedFare: fare,
	})
}

func TestSettlement_WalletChargeDebitsAndStampsFare(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	seedCompletedRide(e, "ride-1", "rider-1", 300)
	if _, err := e.WalletSvc.TopUp(ctx, "rider-1", 1000, domain.PaymentMethodUPI); err != nil {
		t.Fatalf("top-up failed: %v", err)
	}

	payment, err := e.Settlement.ChargeRide(ctx, rider("rider-1"), "ride-1", domain.PaymentMethodWallet, 300)
	if err != nil {
		t.Fatalf("charge failed: %v", err)
	}
	if payment.Status != domain.PaymentStatusCompleted {
		t.Fatalf("expected COMPLETED payment, got %s", payment.Status)
	}
	if payment.Amount != 300 {
		t.Errorf("expected amount 300, got %d", payment.Amount)
	}

	wallet := e.Wallets.GetWallet("rider-1")
	if wallet.Balance != 700 {
		t.Errorf("expected balance 700, got %d", wallet.Balance)
	}

	// The ledger gained a negative debit entry and still sums to balance.
	sum, _ := e.Wallets.SumTransactions(ctx, wallet.ID)
	if sum != wallet.Balance {
		t.Errorf("ledger sum %d does not match balance %d", sum, wallet.Balance)
	}

	if got := e.Rides.GetRide("ride-1"); got.Fare != 300 {
		t.Errorf("expected final fare stamped as 300, got %d", got.Fare)
	}
}

func TestSettlement_InsufficientFundsLeavesLedgerUntouched(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	seedCompletedRide(e, "ride-1", "rider-1", 900)
	if _, err := e.WalletSvc.TopUp(ctx, "rider-1", 100, domain.PaymentMethodUPI); err != nil {
		t.Fatalf("top-up failed: %v", err)
	}
	wallet := e.Wallets.GetWallet("rider-1")
	entriesBefore := e.Wallets.TransactionCount(wallet.ID)

	_, err := e.Settlement.ChargeRide(ctx, rider("rider-1"), "ride-1", domain.PaymentMethodWallet, 900)
	if err == nil {
		t.Fatal("expected insufficient funds error")
	}
	if !errors.Is(err, service.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	if got := e.Wallets.GetWallet("rider-1"); got.Balance != 100 {
		t.Errorf("expected balance untouched at 100, got %d", got.Balance)
	}
	if after := e.Wallets.TransactionCount(wallet.ID); after != entriesBefore {
		t.Errorf("expected no new ledger entries, got %d -> %d", entriesBefore, after)
	}

	// The payment attempt is recorded as FAILED.
	payments, _ := e.Payments.GetByRideID(ctx, "ride-1")
	if len(payments) != 1 || payments[0].Status != domain.PaymentStatusFailed {
		t.Fatalf("expected one FAILED payment, got %v", payments)
	}

	// The rider can retry after topping up.
	if _, err := e.WalletSvc.TopUp(ctx, "rider-1", 1000, domain.PaymentMethodUPI); err != nil {
		t.Fatalf("top-up failed: %v", err)
	}
	payment, err := e.Settlement.ChargeRide(ctx, rider("rider-1"), "ride-1", domain.PaymentMethodWallet, 900)
	if err != nil {
		t.Fatalf("retry charge failed: %v", err)
	}
	if payment.Status != domain.PaymentStatusCompleted {
		t.Errorf("expected retry to complete, got %s", payment.Status)
	}
}

func TestSettlement_ChargeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	seedCompletedRide(e, "ride-1", "rider-1", 200)
	if _, err := e.WalletSvc.TopUp(ctx, "rider-1", 500, domain.PaymentMethodUPI); err != nil {
		t.Fatalf("top-up failed: %v", err)
	}

	first, err := e.Settlement.ChargeRide(ctx, rider("rider-1"), "ride-1", domain.PaymentMethodWallet, 200)
	if err != nil {
		t.Fatalf("first charge failed: %v", err)
	}
	second, err := e.Settlement.ChargeRide(ctx, rider("rider-1"), "ride-1", domain.PaymentMethodWallet, 200)
	if err != nil {
		t.Fatalf("second charge failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("expected the original payment back, got %s and %s", first.ID, second.ID)
	}

	// Exactly one debit.
	if got := e.Wallets.GetWallet("rider-1"); got.Balance != 300 {
		t.Errorf("expected single debit leaving 300, got %d", got.Balance)
	}
}

func TestSettlement_ConcurrentChargesDebitOnce(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	seedCompletedRide(e, "ride-1", "rider-1", 200)
	if _, err := e.WalletSvc.TopUp(ctx, "rider-1", 1000, domain.PaymentMethodUPI); err != nil {
		t.Fatalf("top-up failed: %v", err)
	}

	// Two racing settlements: whatever the interleaving, the rider is
	// debited exactly once. A loser either gets the settled payment back
	// or observes a Conflict it can retry.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.Settlement.ChargeRide(ctx, rider("rider-1"), "ride-1", domain.PaymentMethodWallet, 200)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil && service.KindOf(err) != service.KindConflict {
			t.Fatalf("call %d: expected success or CONFLICT, got %v", i, err)
		}
	}

	if got := e.Wallets.GetWallet("rider-1"); got.Balance != 800 {
		t.Errorf("expected exactly one debit leaving 800, got %d", got.Balance)
	}
	payments, _ := e.Payments.GetByRideID(ctx, "ride-1")
	completed := 0
	for _, p := range payments {
		if p.Status == domain.PaymentStatusCompleted {
			completed++
		}
	}
	if completed != 1 {
		t.Errorf("expected exactly one COMPLETED payment, got %d (%d total)", completed, len(payments))
	}
}

func TestSettlement_RejectsMismatchedAmount(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	seedCompletedRide(e, "ride-1", "rider-1", 300)

	if _, err := e.Settlement.ChargeRide(ctx, rider("rider-1"), "ride-1", domain.PaymentMethodWallet, 0); err == nil {
		t.Fatal("expected non-positive amount to be rejected")
	}
	_, err := e.Settlement.ChargeRide(ctx, rider("rider-1"), "ride-1", domain.PaymentMethodWallet, 250)
	if err == nil {
		t.Fatal("expected mismatched amount to be rejected")
	}
	if service.KindOf(err) != service.KindInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", service.KindOf(err))
	}
}

func TestSettlement_RequiresCompletedRide(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	e.seedRide(&domain.Ride{
		ID:            "ride-1",
		RiderID:       "rider-1",
		Status:        domain.RideStatusInProgress,
		EstimatedFare: 200,
	})

	_, err := e.Settlement.ChargeRide(ctx, rider("rider-1"), "ride-1", domain.PaymentMethodWallet, 200)
	if err == nil {
		t.Fatal("expected invalid state error")
	}
	if service.KindOf(err) != service.KindInvalidState {
		t.Errorf("expected INVALID_STATE, got %s", service.KindOf(err))
	}
}

func TestSettlement_OnlyRiderOrAdminPays(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	seedCompletedRide(e, "ride-1", "rider-1", 200)

	_, err := e.Settlement.ChargeRide(ctx, rider("rider-2"), "ride-1", domain.PaymentMethodWallet, 200)
	if err == nil {
		t.Fatal("expected authorization error")
	}
	if service.KindOf(err) != service.KindNotAuthorized {
		t.Errorf("expected NOT_AUTHORIZED, got %s", service.KindOf(err))
	}
}

func TestSettlement_ExternalGatewayCharge(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	seedCompletedRide(e, "ride-1", "rider-1", 450)

	payment, err := e.Settlement.ChargeRide(ctx, rider("rider-1"), "ride-1", domain.PaymentMethodUPI, 450)
	if err != nil {
		t.Fatalf("external charge failed: %v", err)
	}
	if payment.Status != domain.PaymentStatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", payment.Status)
	}
	if payment.TransactionID == "" {
		t.Error("expected gateway transaction id")
	}
	if len(e.Provider.Charges) != 1 || e.Provider.Charges[0].Amount != 450 {
		t.Errorf("expected one gateway charge of 450, got %v", e.Provider.Charges)
	}
}

func TestSettlement_GatewayFailureMarksPaymentFailed(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	seedCompletedRide(e, "ride-1", "rider-1", 450)
	e.Provider.FailNext = true

	_, err := e.Settlement.ChargeRide(ctx, rider("rider-1"), "ride-1", domain.PaymentMethodCreditCard, 450)
	if err == nil {
		t.Fatal("expected upstream failure")
	}
	if service.KindOf(err) != service.KindUpstreamFailure {
		t.Errorf("expected UPSTREAM_FAILURE, got %s", service.KindOf(err))
	}

	payments, _ := e.Payments.GetByRideID(ctx, "ride-1")
	if len(payments) != 1 || payments[0].Status != domain.PaymentStatusFailed {
		t.Fatalf("expected one FAILED payment, got %v", payments)
	}

	// A retry against the recovered gateway completes.
	payment, err := e.Settlement.ChargeRide(ctx, rider("rider-1"), "ride-1", domain.PaymentMethodCreditCard, 450)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if payment.Status != domain.PaymentStatusCompleted {
		t.Errorf("expected retry to complete, got %s", payment.Status)
	}
}

func TestSettlement_RefundWalletPayment(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	seedCompletedRide(e, "ride-1", "rider-1", 300)
	if _, err := e.WalletSvc.TopUp(ctx, "rider-1", 500, domain.PaymentMethodUPI); err != nil {
		t.Fatalf("top-up failed: %v", err)
	}
	payment, err := e.Settlement.ChargeRide(ctx, rider("rider-1"), "ride-1", domain.PaymentMethodWallet, 300)
	if err != nil {
		t.Fatalf("charge failed: %v", err)
	}

	// Riders cannot refund their own payments.
	if _, err := e.Settlement.Refund(ctx, rider("rider-1"), payment.ID, "sorry"); err == nil {
		t.Fatal("expected rider refund to be rejected")
	}

	refunded, err := e.Settlement.Refund(ctx, admin("ops-1"), payment.ID, "service issue")
	if err != nil {
		t.Fatalf("refund failed: %v", err)
	}
	if refunded.Status != domain.PaymentStatusRefunded {
		t.Fatalf("expected REFUNDED, got %s", refunded.Status)
	}

	wallet := e.Wallets.GetWallet("rider-1")
	if wallet.Balance != 500 {
		t.Errorf("expected balance restored to 500, got %d", wallet.Balance)
	}
	sum, _ := e.Wallets.SumTransactions(ctx, wallet.ID)
	if sum != wallet.Balance {
		t.Errorf("ledger sum %d does not match balance %d", sum, wallet.Balance)
	}

	// Repeat refund is an idempotent success with no second credit.
	if _, err := e.Settlement.Refund(ctx, admin("ops-1"), payment.ID, "again"); err != nil {
		t.Fatalf("repeat refund failed: %v", err)
	}
	if got := e.Wallets.GetWallet("rider-1"); got.Balance != 500 {
		t.Errorf("expected balance unchanged at 500, got %d", got.Balance)
	}
}
