package tests

import (
	"context"
	"testing"
	"time"

	"dispatch/internal/domain"
	"dispatch/internal/service"
)

func TestWallet_LazyCreation(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	wallet, err := e.WalletSvc.GetOrCreate(ctx, "rider-1")
	if err != nil {
		t.Fatalf("get-or-create failed: %v", err)
	}
	if wallet.Balance != 0 {
		t.Errorf("expected zero opening balance, got %d", wallet.Balance)
	}
	if wallet.Currency != domain.DefaultCurrency {
		t.Errorf("expected %s, got %s", domain.DefaultCurrency, wallet.Currency)
	}

	// The second call returns the same wallet.
	again, err := e.WalletSvc.GetOrCreate(ctx, "rider-1")
	if err != nil {
		t.Fatalf("second get-or-create failed: %v", err)
	}
	if again.ID != wallet.ID {
		t.Errorf("expected same wallet, got %s and %s", wallet.ID, again.ID)
	}
}

func TestWallet_TopUpAppendsLedger(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	wallet, err := e.WalletSvc.TopUp(ctx, "rider-1", 500, domain.PaymentMethodUPI)
	if err != nil {
		t.Fatalf("top-up failed: %v", err)
	}
	if wallet.Balance != 500 {
		t.Errorf("expected balance 500, got %d", wallet.Balance)
	}

	wallet, err = e.WalletSvc.TopUp(ctx, "rider-1", 250, domain.PaymentMethodUPI)
	if err != nil {
		t.Fatalf("second top-up failed: %v", err)
	}
	if wallet.Balance != 750 {
		t.Errorf("expected balance 750, got %d", wallet.Balance)
	}

	// The ledger's signed sum matches the cached balance.
	sum, err := e.Wallets.SumTransactions(ctx, wallet.ID)
	if err != nil {
		t.Fatalf("ledger sum failed: %v", err)
	}
	if sum != wallet.Balance {
		t.Errorf("ledger sum %d does not match balance %d", sum, wallet.Balance)
	}
	if e.Wallets.TransactionCount(wallet.ID) != 2 {
		t.Errorf("expected 2 ledger entries, got %d", e.Wallets.TransactionCount(wallet.ID))
	}
}

func TestWallet_TopUpRecordsDepositPayment(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	wallet, err := e.WalletSvc.TopUp(ctx, "rider-1", 500, domain.PaymentMethodNetbanking)
	if err != nil {
		t.Fatalf("top-up failed: %v", err)
	}

	// The deposit shows up as a completed payment linked from the ledger.
	page, err := e.WalletSvc.Transactions(ctx, "rider-1", 0, 1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page) != 1 || page[0].PaymentID == "" {
		t.Fatalf("expected ledger entry referencing a deposit payment, got %v", page)
	}
	deposit := e.Payments.GetPayment(page[0].PaymentID)
	if deposit == nil {
		t.Fatal("expected deposit payment record")
	}
	if deposit.Status != domain.PaymentStatusCompleted || deposit.Amount != 500 {
		t.Errorf("unexpected deposit payment: status=%s amount=%d", deposit.Status, deposit.Amount)
	}
	if deposit.RideID != "" {
		t.Errorf("expected deposit without ride reference, got %q", deposit.RideID)
	}
	_ = wallet
}

func TestWallet_TopUpRejectsWalletMethod(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	_, err := e.WalletSvc.TopUp(ctx, "rider-1", 500, domain.PaymentMethodWallet)
	if err == nil {
		t.Fatal("expected wallet-to-wallet top-up to be rejected")
	}
	if service.KindOf(err) != service.KindInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", service.KindOf(err))
	}
}

func TestWallet_TopUpRejectsNonPositiveAmount(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	for _, amount := range []int64{0, -100} {
		_, err := e.WalletSvc.TopUp(ctx, "rider-1", amount, domain.PaymentMethodUPI)
		if err == nil {
			t.Fatalf("expected error for amount %d", amount)
		}
		if service.KindOf(err) != service.KindInvalidInput {
			t.Errorf("expected INVALID_INPUT for amount %d, got %s", amount, service.KindOf(err))
		}
	}
}

func TestWallet_TransactionsNewestFirstPaginated(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	wallet, err := e.WalletSvc.GetOrCreate(ctx, "rider-1")
	if err != nil {
		t.Fatalf("get-or-create failed: %v", err)
	}

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		err := e.Wallets.AppendTransaction(ctx, &domain.WalletTransaction{
			ID:        string(rune('a' + i)),
			WalletID:  wallet.ID,
			Amount:    int64(100 * (i + 1)),
			Type:      domain.TransactionCredit,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("seed transaction failed: %v", err)
		}
	}

	page, err := e.WalletSvc.Transactions(ctx, "rider-1", 0, 2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(page))
	}
	if page[0].Amount != 500 || page[1].Amount != 400 {
		t.Errorf("expected newest first (500, 400), got (%d, %d)", page[0].Amount, page[1].Amount)
	}

	// A later page continues the ordering.
	page, err = e.WalletSvc.Transactions(ctx, "rider-1", 4, 2)
	if err != nil {
		t.Fatalf("offset list failed: %v", err)
	}
	if len(page) != 1 || page[0].Amount != 100 {
		t.Errorf("expected final page with the oldest entry, got %v", page)
	}
}

func TestWallet_TransactionsForUnknownUserIsEmpty(t *testing.T) {
	ctx := context.Background()
	e := newEnv()

	page, err := e.WalletSvc.Transactions(ctx, "nobody", 0, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(page) != 0 {
		t.Errorf("expected empty ledger, got %d entries", len(page))
	}
}
