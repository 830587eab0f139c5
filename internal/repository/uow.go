package repository

import "context"

// Repos bundles transaction-scoped repositories handed to a unit of work.
type Repos struct {
	Rides    RideRepository
	Drivers  DriverRepository
	Wallets  WalletRepository
	Payments PaymentRepository
}

// UnitOfWork runs a function against transaction-scoped repositories.
// The function's effects commit together or not at all: settlement uses
// this to keep the balance decrement and the ledger append a single
// atomic unit, and matching to bind a driver and flip their status
// together.
type UnitOfWork interface {
	Run(ctx context.Context, fn func(Repos) error) error
}
