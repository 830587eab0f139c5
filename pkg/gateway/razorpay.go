package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/razorpay/razorpay-go"
)

// RazorpayProvider charges through Razorpay orders.
type RazorpayProvider struct {
	client *razorpay.Client
}

// NewRazorpayProvider creates a Razorpay-backed provider.
func NewRazorpayProvider(keyID, keySecret string) *RazorpayProvider {
	return &RazorpayProvider{client: razorpay.NewClient(keyID, keySecret)}
}

// Charge creates a Razorpay order for the amount. Capture happens on the
// client side; the order id is the transaction reference.
func (r *RazorpayProvider) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	orderData := map[string]interface{}{
		"amount":   req.Amount * 100, // paise
		"currency": req.Currency,
		"receipt":  req.Reference,
		"notes": map[string]interface{}{
			"description": req.Description,
			"method":      req.Method,
		},
	}

	order, err := r.client.Order.Create(orderData, nil)
	if err != nil {
		return nil, fmt.Errorf("razorpay order: %w", err)
	}

	id, ok := order["id"].(string)
	if !ok {
		return nil, fmt.Errorf("razorpay order: missing id in response")
	}

	response, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}

	return &ChargeResult{
		TransactionID: id,
		Response:      string(response),
	}, nil
}

var _ Provider = (*RazorpayProvider)(nil)
