package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/pkg/logger"
)

// WalletService manages wallet balances and the transaction ledger.
type WalletService struct {
	wallets repository.WalletRepository
	uow     repository.UnitOfWork
	log     *logger.Logger
}

// NewWalletService creates a wallet service.
func NewWalletService(wallets repository.WalletRepository, uow repository.UnitOfWork, log *logger.Logger) *WalletService {
	return &WalletService{wallets: wallets, uow: uow, log: log}
}

// GetOrCreate returns the user's wallet, creating an empty one on first
// access.
func (s *WalletService) GetOrCreate(ctx context.Context, userID string) (*domain.Wallet, error) {
	return getOrCreateWallet(ctx, s.wallets, userID)
}

func getOrCreateWallet(ctx context.Context, wallets repository.WalletRepository, userID string) (*domain.Wallet, error) {
	wallet, err := wallets.GetByUserID(ctx, userID)
	if err == nil {
		return wallet, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	wallet = &domain.Wallet{
		ID:        uuid.New().String(),
		UserID:    userID,
		Balance:   0,
		Currency:  domain.DefaultCurrency,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := wallets.Create(ctx, wallet); err != nil {
		return nil, err
	}
	return wallet, nil
}

// TopUp credits the user's wallet from an external payment method. The
// deposit payment record, the balance update and the ledger append commit
// together.
func (s *WalletService) TopUp(ctx context.Context, userID string, amount int64, method domain.PaymentMethod) (*domain.Wallet, error) {
	if amount <= 0 {
		return nil, E(KindInvalidInput, "top-up amount must be positive")
	}
	if !method.External() {
		return nil, E(KindInvalidInput, "wallet cannot be topped up from itself")
	}

	var wallet *domain.Wallet
	err := s.uow.Run(ctx, func(r repository.Repos) error {
		w, err := getOrCreateWallet(ctx, r.Wallets, userID)
		if err != nil {
			return err
		}
		w, err = r.Wallets.GetByUserIDForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		deposit := &domain.Payment{
			ID:        uuid.New().String(),
			UserID:    userID,
			Amount:    amount,
			Currency:  w.Currency,
			Status:    domain.PaymentStatusCompleted,
			Method:    method,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := r.Payments.Create(ctx, deposit); err != nil {
			return err
		}

		w.Balance += amount
		if err := r.Wallets.UpdateBalance(ctx, w.ID, w.Balance); err != nil {
			return err
		}
		if err := r.Wallets.AppendTransaction(ctx, &domain.WalletTransaction{
			ID:          uuid.New().String(),
			WalletID:    w.ID,
			PaymentID:   deposit.ID,
			Amount:      amount,
			Type:        domain.TransactionCredit,
			Description: "wallet top-up",
			CreatedAt:   now,
		}); err != nil {
			return err
		}
		wallet = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(map[string]interface{}{
		"user_id": userID,
		"amount":  amount,
		"method":  string(method),
	}).Info("wallet topped up")
	return wallet, nil
}

// Transactions returns a page of the user's ledger, newest first.
func (s *WalletService) Transactions(ctx context.Context, userID string, offset, limit int) ([]*domain.WalletTransaction, error) {
	if offset < 0 {
		return nil, E(KindInvalidInput, "offset must not be negative")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	wallet, err := s.wallets.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []*domain.WalletTransaction{}, nil
		}
		return nil, err
	}
	return s.wallets.ListTransactions(ctx, wallet.ID, offset, limit)
}
