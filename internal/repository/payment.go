package repository

import (
	"context"

	"dispatch/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByRideID retrieves all payments for a ride, newest first.
	GetByRideID(ctx context.Context, rideID string) ([]*domain.Payment, error)

	// UpdateStatus updates a payment's status.
	UpdateStatus(ctx context.Context, id string, status domain.PaymentStatus) error

	// UpdateResult updates status together with the gateway outcome.
	UpdateResult(ctx context.Context, id string, status domain.PaymentStatus, transactionID, gatewayResponse string) error
}
