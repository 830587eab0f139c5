package postgres

import (
	"context"
	"database/sql"
	"errors"

	"dispatch/internal/domain"
	"dispatch/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

const paymentColumns = `id, ride_id, user_id, amount, currency, status, method,
	transaction_id, gateway_response, created_at, updated_at`

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		nullString(payment.RideID),
		payment.UserID,
		payment.Amount,
		payment.Currency,
		payment.Status,
		payment.Method,
		nullString(payment.TransactionID),
		nullString(payment.GatewayResponse),
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	return err
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

	payment, err := scanPayment(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return payment, nil
}

// GetByRideID retrieves all payments for a ride, newest first.
func (r *PaymentRepository) GetByRideID(ctx context.Context, rideID string) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE ride_id = $1 ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

// UpdateStatus updates a payment's status.
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE payments SET status = $1, updated_at = NOW() WHERE id = $2`,
		status, id)
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

// UpdateResult updates status together with the gateway outcome.
func (r *PaymentRepository) UpdateResult(ctx context.Context, id string, status domain.PaymentStatus, transactionID, gatewayResponse string) error {
	result, err := r.q.ExecContext(ctx, `
		UPDATE payments
		SET status = $1, transaction_id = $2, gateway_response = $3, updated_at = NOW()
		WHERE id = $4
	`, status, nullString(transactionID), nullString(gatewayResponse), id)
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

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var payment domain.Payment
	var rideID, transactionID, gatewayResponse sql.NullString

	err := row.Scan(
		&payment.ID,
		&rideID,
		&payment.UserID,
		&payment.Amount,
		&payment.Currency,
		&payment.Status,
		&payment.Method,
		&transactionID,
		&gatewayResponse,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rideID.Valid {
		payment.RideID = rideID.String
	}
	if transactionID.Valid {
		payment.TransactionID = transactionID.String
	}
	if gatewayResponse.Valid {
		payment.GatewayResponse = gatewayResponse.String
	}

	return &payment, nil
}
