package domain

import "time"

// PaymentStatus represents the current status of a payment.
// COMPLETED, FAILED and REFUNDED are terminal.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// PaymentMethod represents how a charge is collected.
type PaymentMethod string

const (
	PaymentMethodWallet     PaymentMethod = "WALLET"
	PaymentMethodCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentMethodDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentMethodUPI        PaymentMethod = "UPI"
	PaymentMethodNetbanking PaymentMethod = "NETBANKING"
)

// ValidPaymentMethod reports whether the string names a known method.
func ValidPaymentMethod(m string) bool {
	switch PaymentMethod(m) {
	case PaymentMethodWallet, PaymentMethodCreditCard, PaymentMethodDebitCard,
		PaymentMethodUPI, PaymentMethodNetbanking:
		return true
	}
	return false
}

// External reports whether the method settles through an external gateway
// rather than the in-house wallet ledger.
func (m PaymentMethod) External() bool {
	return m != PaymentMethodWallet
}

// Payment represents one charge attempt for a ride, or a wallet deposit.
// Status transitions are owned exclusively by the settlement service.
type Payment struct {
	ID       string
	RideID   string // empty for wallet top-ups
	UserID   string
	Amount   int64
	Currency string
	Status   PaymentStatus
	Method   PaymentMethod

	// Set for external-gateway payments.
	TransactionID   string
	GatewayResponse string

	CreatedAt time.Time
	UpdatedAt time.Time
}
