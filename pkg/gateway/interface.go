package gateway

import "context"

// ChargeRequest describes one charge to collect through a gateway.
// Amount is in whole currency units.
type ChargeRequest struct {
	Method      string
	Amount      int64
	Currency    string
	Description string
	Reference   string // ride or deposit reference, forwarded to the gateway
}

// ChargeResult is the gateway's answer to a successful charge.
type ChargeResult struct {
	TransactionID string
	Response      string // raw gateway payload, stored on the payment
}

// Provider is an external payment gateway. Implementations must respect
// ctx cancellation so a stuck gateway cannot wedge settlement.
type Provider interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}
