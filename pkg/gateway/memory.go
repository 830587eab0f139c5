package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrGatewayUnavailable is returned by the in-memory provider when
// configured to fail.
var ErrGatewayUnavailable = errors.New("gateway unavailable")

// MemoryProvider is an in-process gateway used in development and tests.
type MemoryProvider struct {
	mu sync.Mutex

	// FailNext makes the next Charge call fail once.
	FailNext bool

	// Charges records every successful charge.
	Charges []ChargeRequest
}

// NewMemoryProvider creates an in-memory provider.
func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{}
}

// Charge records the request and returns a synthetic transaction id.
func (m *MemoryProvider) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext {
		m.FailNext = false
		return nil, ErrGatewayUnavailable
	}

	m.Charges = append(m.Charges, req)

	response, _ := json.Marshal(map[string]any{
		"status": "captured",
		"amount": req.Amount,
	})

	return &ChargeResult{
		TransactionID: "mem_" + uuid.New().String(),
		Response:      string(response),
	}, nil
}

var _ Provider = (*MemoryProvider)(nil)
