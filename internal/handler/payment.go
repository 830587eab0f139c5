package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"dispatch/internal/domain"
	"dispatch/internal/middleware"
	"dispatch/internal/service"
)

// PaymentHandler handles HTTP requests for payments and wallets.
type PaymentHandler struct {
	settlement *service.SettlementService
	wallets    *service.WalletService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(settlement *service.SettlementService, wallets *service.WalletService) *PaymentHandler {
	return &PaymentHandler{settlement: settlement, wallets: wallets}
}

// ChargeRideRequest is the HTTP request body for settling a ride. The
// amount must equal the fare quoted when the ride was created.
type ChargeRideRequest struct {
	Method string `json:"method"`
	Amount int64  `json:"amount"`
}

// RefundRequest is the HTTP request body for refunding a payment.
type RefundRequest struct {
	Reason string `json:"reason,omitempty"`
}

// TopUpRequest is the HTTP request body for a wallet top-up.
type TopUpRequest struct {
	Amount int64  `json:"amount"`
	Method string `json:"method"`
}

// PaymentResponse is the HTTP representation of a payment.
type PaymentResponse struct {
	ID            string `json:"id"`
	RideID        string `json:"ride_id,omitempty"`
	UserID        string `json:"user_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	Method        string `json:"method"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// WalletResponse is the HTTP representation of a wallet.
type WalletResponse struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Balance  int64  `json:"balance"`
	Currency string `json:"currency"`
}

// TransactionResponse is the HTTP representation of a ledger entry.
type TransactionResponse struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            p.ID,
		RideID:        p.RideID,
		UserID:        p.UserID,
		Amount:        p.Amount,
		Currency:      p.Currency,
		Status:        string(p.Status),
		Method:        string(p.Method),
		TransactionID: p.TransactionID,
	}
}

// ChargeRide handles POST /v1/rides/:id/pay
func (h *PaymentHandler) ChargeRide(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing identity"})
		return
	}

	var req ChargeRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if !domain.ValidPaymentMethod(req.Method) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown payment method"})
		return
	}

	payment, err := h.settlement.ChargeRide(c.Request.Context(), caller, c.Param("id"), domain.PaymentMethod(req.Method), req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// Refund handles POST /v1/payments/:id/refund
func (h *PaymentHandler) Refund(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing identity"})
		return
	}

	var req RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	payment, err := h.settlement.Refund(c.Request.Context(), caller, c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// GetWallet handles GET /v1/wallet
func (h *PaymentHandler) GetWallet(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing identity"})
		return
	}

	wallet, err := h.wallets.GetOrCreate(c.Request.Context(), caller.ID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, WalletResponse{
		ID:       wallet.ID,
		UserID:   wallet.UserID,
		Balance:  wallet.Balance,
		Currency: wallet.Currency,
	})
}

// TopUp handles POST /v1/wallet/topup
func (h *PaymentHandler) TopUp(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing identity"})
		return
	}

	var req TopUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	if req.Method == "" {
		req.Method = string(domain.PaymentMethodUPI)
	}
	if !domain.ValidPaymentMethod(req.Method) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unknown payment method"})
		return
	}

	wallet, err := h.wallets.TopUp(c.Request.Context(), caller.ID, req.Amount, domain.PaymentMethod(req.Method))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, WalletResponse{
		ID:       wallet.ID,
		UserID:   wallet.UserID,
		Balance:  wallet.Balance,
		Currency: wallet.Currency,
	})
}

// ListTransactions handles GET /v1/wallet/transactions
func (h *PaymentHandler) ListTransactions(c *gin.Context) {
	caller, ok := middleware.CallerFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "missing identity"})
		return
	}

	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	txs, err := h.wallets.Transactions(c.Request.Context(), caller.ID, offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]TransactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, TransactionResponse{
			ID:          tx.ID,
			Amount:      tx.Amount,
			Type:        string(tx.Type),
			Description: tx.Description,
			CreatedAt:   formatTime(tx.CreatedAt),
		})
	}

	respondJSON(c, http.StatusOK, out)
}
