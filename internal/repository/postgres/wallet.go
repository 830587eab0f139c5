package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// WalletRepository is a PostgreSQL implementation of repository.WalletRepository.
type WalletRepository struct {
	q Querier
}

// NewWalletRepository creates a new PostgreSQL wallet repository.
func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{q: db}
}

// NewWalletRepositoryWithTx creates a wallet repository using a transaction.
func NewWalletRepositoryWithTx(tx *sql.Tx) *WalletRepository {
	return &WalletRepository{q: tx}
}

// Create persists a new wallet.
func (r *WalletRepository) Create(ctx context.Context, wallet *domain.Wallet) error {
	query := `
		INSERT INTO wallets (id, user_id, balance, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query,
		wallet.ID,
		wallet.UserID,
		wallet.Balance,
		wallet.Currency,
		wallet.CreatedAt,
		wallet.UpdatedAt,
	)
	return err
}

// GetByUserID retrieves a user's wallet.
func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*domain.Wallet, error) {
	return r.getByUserID(ctx, userID, false)
}

// GetByUserIDForUpdate retrieves a user's wallet holding a row lock for
// the duration of the enclosing transaction. Concurrent debits and
// credits on the same wallet serialize on this lock.
func (r *WalletRepository) GetByUserIDForUpdate(ctx context.Context, userID string) (*domain.Wallet, error) {
	return r.getByUserID(ctx, userID, true)
}

func (r *WalletRepository) getByUserID(ctx context.Context, userID string, forUpdate bool) (*domain.Wallet, error) {
	query := `
		SELECT id, user_id, balance, currency, created_at, updated_at
		FROM wallets WHERE user_id = $1
	`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var wallet domain.Wallet
	err := r.q.QueryRowContext(ctx, query, userID).Scan(
		&wallet.ID,
		&wallet.UserID,
		&wallet.Balance,
		&wallet.Currency,
		&wallet.CreatedAt,
		&wallet.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &wallet, nil
}

// UpdateBalance sets the wallet's cached balance.
func (r *WalletRepository) UpdateBalance(ctx context.Context, walletID string, balance int64) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE wallets SET balance = $1, updated_at = NOW() WHERE id = $2`,
		balance, walletID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// AppendTransaction appends a ledger entry.
func (r *WalletRepository) AppendTransaction(ctx context.Context, tx *domain.WalletTransaction) error {
	query := `
		INSERT INTO wallet_transactions (id, wallet_id, payment_id, amount, type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.q.ExecContext(ctx, query,
		tx.ID,
		tx.WalletID,
		nullString(tx.PaymentID),
		tx.Amount,
		tx.Type,
		tx.Description,
		tx.CreatedAt,
	)
	return err
}

// ListTransactions returns ledger entries newest-first.
func (r *WalletRepository) ListTransactions(ctx context.Context, walletID string, offset, limit int) ([]*domain.WalletTransaction, error) {
	query := `
		SELECT id, wallet_id, payment_id, amount, type, description, created_at
		FROM wallet_transactions
		WHERE wallet_id = $1
		ORDER BY created_at DESC, id DESC
		OFFSET $2 LIMIT $3
	`

	rows, err := r.q.QueryContext(ctx, query, walletID, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txs []*domain.WalletTransaction
	for rows.Next() {
		var tx domain.WalletTransaction
		var paymentID sql.NullString
		if err := rows.Scan(
			&tx.ID,
			&tx.WalletID,
			&paymentID,
			&tx.Amount,
			&tx.Type,
			&tx.Description,
			&tx.CreatedAt,
		); err != nil {
			return nil, err
		}
		if paymentID.Valid {
			tx.PaymentID = paymentID.String
		}
		txs = append(txs, &tx)
	}
	return txs, rows.Err()
}

// SumTransactions returns the signed sum of the wallet's ledger.
func (r *WalletRepository) SumTransactions(ctx context.Context, walletID string) (int64, error) {
	var sum int64
	err := r.q.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM wallet_transactions WHERE wallet_id = $1`,
		walletID).Scan(&sum)
	return sum, err
}
