package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// StripeProvider charges through Stripe payment intents.
type StripeProvider struct {
	client *client.API
}

// NewStripeProvider creates a Stripe-backed provider.
func NewStripeProvider(secretKey string) *StripeProvider {
	sc := &client.API{}
	sc.Init(secretKey, nil)

	return &StripeProvider{client: sc}
}

// Charge creates and confirms a payment intent.
func (s *StripeProvider) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Amount:      stripe.Int64(req.Amount * 100), // minor units
		Currency:    stripe.String(req.Currency),
		Description: stripe.String(req.Description),
		Confirm:     stripe.Bool(true),
	}
	params.AddMetadata("reference", req.Reference)
	params.AddMetadata("method", req.Method)

	pi, err := s.client.PaymentIntents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe payment intent: %w", err)
	}

	response, err := json.Marshal(map[string]any{
		"id":       pi.ID,
		"status":   string(pi.Status),
		"amount":   pi.Amount,
		"currency": string(pi.Currency),
		"created":  pi.Created,
	})
	if err != nil {
		return nil, err
	}

	return &ChargeResult{
		TransactionID: pi.ID,
		Response:      string(response),
	}, nil
}

var _ Provider = (*StripeProvider)(nil)
