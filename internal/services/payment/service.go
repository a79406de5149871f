// Package payment holds the money-touching operations: order creation
// against the gateway, callback verification, and payment history.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"arcpay/internal/domain/identity"
	"arcpay/internal/domain/payment"
	"arcpay/internal/gateway"
	"arcpay/internal/store/repositories"
)

// Currency is fixed by the gateway account; orders are always created
// in it and amounts on the wire are its minor units.
const Currency = "INR"

type Service struct {
	ledger  repositories.Ledger
	gateway gateway.Client
}

func NewService(ledger repositories.Ledger, gw gateway.Client) *Service {
	return &Service{ledger: ledger, gateway: gw}
}

type CreateOrderRequest struct {
	Amount      float64
	Type        payment.Type
	ReferenceID int64
}

type CreateOrderResponse struct {
	OrderID          string
	Amount           float64
	GatewayPublicKey string
}

// CreateOrder validates the request, creates the remote order and
// records a CREATED payment. The remote order is money-adjacent: once it
// exists, any local failure is logged as a reconciliation case rather
// than silently dropped.
func (s *Service) CreateOrder(ctx context.Context, ident identity.Identity, req CreateOrderRequest) (*CreateOrderResponse, error) {
	if !ident.CanPay() {
		return nil, payment.E(payment.KindUnauthorized, "only donors are allowed to make payments", nil)
	}
	if req.Amount <= 0 {
		return nil, payment.E(payment.KindInvalidRequest, "amount must be greater than zero", nil)
	}
	if !req.Type.Valid() {
		return nil, payment.E(payment.KindInvalidRequest, "payment type is required", nil)
	}
	if req.ReferenceID <= 0 {
		return nil, payment.E(payment.KindInvalidRequest, "reference id is required", nil)
	}

	amount := payment.FromDecimal(req.Amount)
	receipt := "rcpt_" + uuid.NewString()

	order, err := s.gateway.CreateOrder(ctx, int64(amount), Currency, receipt)
	if err != nil {
		return nil, payment.E(payment.KindGateway, "gateway order creation failed", err)
	}

	p, err := payment.New(ident.DonorID, req.ReferenceID, req.Type, amount, order.ID)
	if err != nil {
		return nil, payment.E(payment.KindInvalidRequest, "invalid payment", err)
	}
	if _, err := s.ledger.Insert(ctx, p); err != nil {
		// The remote order exists but no local record does. Operators
		// reconcile from this log line; the order id is the join key.
		log.Error().Err(err).
			Str("transaction_id", order.ID).
			Int64("donor_id", ident.DonorID).
			Int64("reference_id", req.ReferenceID).
			Int64("amount_minor", int64(amount)).
			Msg("payment persist failed after gateway order was created, needs reconciliation")
		return nil, payment.E(payment.KindInternal, "failed to record payment", err)
	}

	return &CreateOrderResponse{
		OrderID:          order.ID,
		Amount:           amount.Decimal(),
		GatewayPublicKey: s.gateway.KeyID(),
	}, nil
}

type VerifyRequest struct {
	OrderID   string
	PaymentID string
	Signature string
}

type VerifyResult struct {
	SignatureValid bool
	Status         payment.Status
}

// Verify checks the gateway signature and settles the matching payment:
// CREATED moves to SUCCESS on a valid signature, FAILED otherwise. The
// transition is a compare-and-set; if the record is already terminal the
// settled status is returned as-is, because gateways redeliver callbacks
// and a retry must not flip or error a settled payment.
func (s *Service) Verify(ctx context.Context, ident identity.Identity, req VerifyRequest) (*VerifyResult, error) {
	if !ident.CanPay() {
		return nil, payment.E(payment.KindUnauthorized, "only donors are allowed to verify payments", nil)
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		return nil, payment.E(payment.KindInvalidRequest, "orderId, paymentId and signature are required", nil)
	}

	// A failure here means the check could not run, which is not the
	// same as an invalid signature.
	valid, err := s.gateway.VerifySignature(ctx, req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		return nil, payment.E(payment.KindGateway, "signature verification unavailable", err)
	}

	p, err := s.ledger.FindByTransactionID(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, payment.E(payment.KindNotFound, "payment not found", err)
		}
		return nil, fmt.Errorf("lookup payment %s: %w", req.OrderID, err)
	}

	next := payment.StatusFailed
	if valid {
		next = payment.StatusSuccess
	}

	won, err := s.ledger.CompareAndSetStatus(ctx, p.TransactionID, payment.StatusCreated, next)
	if err != nil {
		return nil, fmt.Errorf("settle payment %s: %w", p.TransactionID, err)
	}
	if !won {
		settled, err := s.ledger.FindByTransactionID(ctx, p.TransactionID)
		if err != nil {
			return nil, fmt.Errorf("reread settled payment %s: %w", p.TransactionID, err)
		}
		return &VerifyResult{SignatureValid: valid, Status: settled.Status}, nil
	}

	if !valid {
		log.Warn().
			Str("transaction_id", p.TransactionID).
			Str("gateway_payment_id", req.PaymentID).
			Msg("payment signature invalid, marked failed")
	}
	return &VerifyResult{SignatureValid: valid, Status: next}, nil
}

// History returns the caller's own payments.
func (s *Service) History(ctx context.Context, ident identity.Identity) ([]*payment.Payment, error) {
	if !ident.CanPay() {
		return nil, payment.E(payment.KindUnauthorized, "only donors have a payment history", nil)
	}
	return s.ledger.FindByDonorID(ctx, ident.DonorID)
}

// ListAll returns every payment; administrative callers only.
func (s *Service) ListAll(ctx context.Context, ident identity.Identity) ([]*payment.Payment, error) {
	if !ident.IsAdmin() {
		return nil, payment.E(payment.KindUnauthorized, "admin access required", nil)
	}
	return s.ledger.ListAll(ctx)
}
