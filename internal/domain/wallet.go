package domain

import "time"

// DefaultCurrency is the single settlement currency.
const DefaultCurrency = "INR"

// Wallet holds a user's balance. One wallet per user, created lazily on
// first access. Balance is a cached projection of the transaction ledger
// and must always equal the ledger's signed sum.
type Wallet struct {
	ID        string
	UserID    string
	Balance   int64 // whole INR units, never negative
	Currency  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionCredit TransactionType = "credit"
	TransactionDebit  TransactionType = "debit"
	TransactionRefund TransactionType = "refund"
)

// WalletTransaction is an append-only ledger entry. Amounts are signed:
// debits are negative, credits and refunds positive, so the running sum
// of a wallet's entries is its balance. Entries are never mutated or
// deleted; the ledger is the audit trail.
type WalletTransaction struct {
	ID          string
	WalletID    string
	PaymentID   string // optional reference to the payment that caused it
	Amount      int64
	Type        TransactionType
	Description string
	CreatedAt   time.Time
}
