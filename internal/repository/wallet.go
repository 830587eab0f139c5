package repository

import (
	"context"

	"dispatch/internal/domain"
)

// WalletRepository defines the persistence operations for wallets and
// their append-only transaction ledger.
type WalletRepository interface {
	// Create persists a new wallet.
	Create(ctx context.Context, wallet *domain.Wallet) error

	// GetByUserID retrieves a user's wallet.
	GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error)

	// GetByUserIDForUpdate retrieves a user's wallet with a row lock so
	// that concurrent balance mutations on the same wallet serialize.
	// Only meaningful inside a unit of work.
	GetByUserIDForUpdate(ctx context.Context, userID string) (*domain.Wallet, error)

	// UpdateBalance sets the wallet's cached balance.
	UpdateBalance(ctx context.Context, walletID string, balance int64) error

	// AppendTransaction appends a ledger entry. Entries are never updated
	// or deleted.
	AppendTransaction(ctx context.Context, tx *domain.WalletTransaction) error

	// ListTransactions returns ledger entries newest-first.
	ListTransactions(ctx context.Context, walletID string, offset, limit int) ([]*domain.WalletTransaction, error)

	// SumTransactions returns the signed sum of all ledger entries for the
	// wallet. This is the authoritative balance.
	SumTransactions(ctx context.Context, walletID string) (int64, error)
}
