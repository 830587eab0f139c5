package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"dispatch/internal/config"
	"dispatch/internal/domain"
	"dispatch/internal/repository"
	"dispatch/pkg/gateway"
	"dispatch/pkg/logger"
)

// riskReviewThreshold flags settlements for manual review.
const riskReviewThreshold = 0.7

// SettlementService charges completed rides and processes refunds.
type SettlementService struct {
	rides    repository.RideRepository
	payments repository.PaymentRepository
	uow      repository.UnitOfWork
	provider gateway.Provider
	risk     RiskScorer
	cfg      config.GatewayConfig
	log      *logger.Logger
}

// NewSettlementService creates a settlement service.
func NewSettlementService(
	rides repository.RideRepository,
	payments repository.PaymentRepository,
	uow repository.UnitOfWork,
	provider gateway.Provider,
	risk RiskScorer,
	cfg config.GatewayConfig,
	log *logger.Logger,
) *SettlementService {
	return &SettlementService{
		rides:    rides,
		payments: payments,
		uow:      uow,
		provider: provider,
		risk:     risk,
		cfg:      cfg,
		log:      log,
	}
}

// errWalletShort aborts the debit transaction without touching the ledger.
var errWalletShort = errors.New("wallet balance short")

// ChargeRide settles a completed ride. The amount must match the
// estimate locked in at creation; it is written to the ride as the final
// fare on success. A ride settles at most once: a prior COMPLETED payment
// makes the call an idempotent success. Concurrent settlements are
// serialized on the ride version, so the duplicate check and the payment
// creation commit as one unit and a racing caller observes a Conflict.
func (s *SettlementService) ChargeRide(ctx context.Context, caller domain.Identity, rideID string, method domain.PaymentMethod, amount int64) (*domain.Payment, error) {
	if amount <= 0 {
		return nil, E(KindInvalidInput, "amount must be positive")
	}
	ride, err := s.rides.GetByID(ctx, rideID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRideNotFound
		}
		return nil, err
	}
	if !caller.IsAdmin() && caller.ID != ride.RiderID {
		return nil, E(KindNotAuthorized, "only the rider may pay for this ride")
	}
	if ride.Status != domain.RideStatusCompleted {
		return nil, E(KindInvalidState, "ride must be completed before payment")
	}
	if amount != ride.EstimatedFare {
		return nil, E(KindInvalidInput, "amount does not match the fare due for this ride")
	}

	if score := s.risk.Score(ctx, ride, amount); score >= riskReviewThreshold {
		s.log.WithFields(map[string]interface{}{
			"ride_id": rideID,
			"score":   score,
		}).Warn("high risk settlement flagged for review")
	}

	var payment, settled *domain.Payment
	err = s.uow.Run(ctx, func(r repository.Repos) error {
		// The version-conditioned write serializes racing settlements:
		// the loser rolls back before a payment row exists.
		fresh, err := r.Rides.GetByID(ctx, rideID)
		if err != nil {
			return err
		}
		if err := r.Rides.Update(ctx, fresh); err != nil {
			return err
		}
		*ride = *fresh

		existing, err := r.Payments.GetByRideID(ctx, rideID)
		if err != nil {
			return err
		}
		for _, p := range existing {
			if p.Status == domain.PaymentStatusCompleted {
				settled = p
				return nil
			}
			if p.Status == domain.PaymentStatusPending {
				return E(KindConflict, "a payment for this ride is already in flight")
			}
		}

		now := time.Now().UTC()
		payment = &domain.Payment{
			ID:        uuid.New().String(),
			RideID:    rideID,
			UserID:    ride.RiderID,
			Amount:    amount,
			Currency:  domain.DefaultCurrency,
			Status:    domain.PaymentStatusPending,
			Method:    method,
			CreatedAt: now,
			UpdatedAt: now,
		}
		return r.Payments.Create(ctx, payment)
	})
	if err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, ErrRideConflict
		}
		return nil, err
	}
	if settled != nil {
		return settled, nil
	}

	if method.External() {
		err = s.chargeExternal(ctx, payment)
	} else {
		err = s.chargeWallet(ctx, payment)
	}
	if err != nil {
		return nil, err
	}

	ride.Fare = amount
	if err := s.rides.Update(ctx, ride); err != nil {
		// The payment stands; the fare stamp can be retried.
		s.log.WithError(err).WithField("ride_id", rideID).Error("final fare write failed")
	}

	s.log.WithFields(map[string]interface{}{
		"ride_id":    rideID,
		"payment_id": payment.ID,
		"amount":     amount,
		"method":     string(method),
	}).Info("ride settled")
	return payment, nil
}

// chargeWallet debits the rider's wallet. The balance check, decrement
// and ledger append are one transaction; an insufficient balance rolls
// everything back and the payment is marked FAILED outside it.
func (s *SettlementService) chargeWallet(ctx context.Context, payment *domain.Payment) error {
	err := s.uow.Run(ctx, func(r repository.Repos) error {
		if _, err := getOrCreateWallet(ctx, r.Wallets, payment.UserID); err != nil {
			return err
		}
		wallet, err := r.Wallets.GetByUserIDForUpdate(ctx, payment.UserID)
		if err != nil {
			return err
		}
		if wallet.Balance < payment.Amount {
			return errWalletShort
		}

		wallet.Balance -= payment.Amount
		if err := r.Wallets.UpdateBalance(ctx, wallet.ID, wallet.Balance); err != nil {
			return err
		}
		if err := r.Wallets.AppendTransaction(ctx, &domain.WalletTransaction{
			ID:          uuid.New().String(),
			WalletID:    wallet.ID,
			PaymentID:   payment.ID,
			Amount:      -payment.Amount,
			Type:        domain.TransactionDebit,
			Description: "ride fare",
			CreatedAt:   time.Now().UTC(),
		}); err != nil {
			return err
		}
		return r.Payments.UpdateStatus(ctx, payment.ID, domain.PaymentStatusCompleted)
	})
	if err != nil {
		if errors.Is(err, errWalletShort) {
			if uerr := s.payments.UpdateStatus(ctx, payment.ID, domain.PaymentStatusFailed); uerr != nil {
				s.log.WithError(uerr).WithField("payment_id", payment.ID).Error("failed payment status write")
			}
			payment.Status = domain.PaymentStatusFailed
			return ErrInsufficientFunds
		}
		return err
	}
	payment.Status = domain.PaymentStatusCompleted
	return nil
}

// chargeExternal collects through the configured payment gateway.
func (s *SettlementService) chargeExternal(ctx context.Context, payment *domain.Payment) error {
	gctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	result, err := s.provider.Charge(gctx, gateway.ChargeRequest{
		Method:      string(payment.Method),
		Amount:      payment.Amount,
		Currency:    payment.Currency,
		Description: "ride fare",
		Reference:   payment.RideID,
	})
	if err != nil {
		if uerr := s.payments.UpdateStatus(ctx, payment.ID, domain.PaymentStatusFailed); uerr != nil {
			s.log.WithError(uerr).WithField("payment_id", payment.ID).Error("failed payment status write")
		}
		payment.Status = domain.PaymentStatusFailed
		return Wrap(KindUpstreamFailure, "payment gateway charge failed", err)
	}

	if err := s.payments.UpdateResult(ctx, payment.ID, domain.PaymentStatusCompleted, result.TransactionID, result.Response); err != nil {
		return err
	}
	payment.Status = domain.PaymentStatusCompleted
	payment.TransactionID = result.TransactionID
	payment.GatewayResponse = result.Response
	return nil
}

// Refund reverses a completed payment. Admin only. Wallet payments
// credit the ledger back; external payments are recorded as refunded and
// reconciled with the gateway out of band.
func (s *SettlementService) Refund(ctx context.Context, caller domain.Identity, paymentID, reason string) (*domain.Payment, error) {
	if !caller.IsAdmin() {
		return nil, E(KindNotAuthorized, "only admins may refund payments")
	}

	payment, err := s.payments.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	if payment.Status == domain.PaymentStatusRefunded {
		return payment, nil
	}
	if payment.Status != domain.PaymentStatusCompleted {
		return nil, E(KindInvalidState, "only completed payments can be refunded")
	}

	desc := "refund"
	if reason != "" {
		desc = "refund: " + reason
	}

	err = s.uow.Run(ctx, func(r repository.Repos) error {
		if payment.Method == domain.PaymentMethodWallet {
			wallet, err := r.Wallets.GetByUserIDForUpdate(ctx, payment.UserID)
			if err != nil {
				return err
			}
			wallet.Balance += payment.Amount
			if err := r.Wallets.UpdateBalance(ctx, wallet.ID, wallet.Balance); err != nil {
				return err
			}
			if err := r.Wallets.AppendTransaction(ctx, &domain.WalletTransaction{
				ID:          uuid.New().String(),
				WalletID:    wallet.ID,
				PaymentID:   payment.ID,
				Amount:      payment.Amount,
				Type:        domain.TransactionRefund,
				Description: desc,
				CreatedAt:   time.Now().UTC(),
			}); err != nil {
				return err
			}
		}
		return r.Payments.UpdateStatus(ctx, payment.ID, domain.PaymentStatusRefunded)
	})
	if err != nil {
		return nil, err
	}

	payment.Status = domain.PaymentStatusRefunded
	s.log.WithFields(map[string]interface{}{
		"payment_id": payment.ID,
		"amount":     payment.Amount,
		"reason":     reason,
	}).Info("payment refunded")
	return payment, nil
}
