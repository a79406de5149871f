package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"arcpay/internal/domain/payment"
	middlewarex "arcpay/internal/http/middleware"
	paymentsvc "arcpay/internal/services/payment"
)

type createOrderReq struct {
	Amount      float64 `json:"amount"`
	PaymentType string  `json:"paymentType"`
	ReferenceID int64   `json:"referenceId"`
}

type createOrderResp struct {
	OrderID          string  `json:"orderId"`
	Amount           float64 `json:"amount"`
	GatewayPublicKey string  `json:"gatewayPublicKey"`
}

func CreateOrder(svc *paymentsvc.Service, gatewayTimeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := middlewarex.IdentityFrom(r.Context())
		if !ok {
			http.Error(w, "not authenticated", http.StatusUnauthorized)
			return
		}

		var in createOrderReq
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		// Bound the gateway round trip; on timeout the remote order
		// state is ambiguous and the caller sees a gateway error.
		ctx, cancel := context.WithTimeout(r.Context(), gatewayTimeout)
		defer cancel()

		out, err := svc.CreateOrder(ctx, ident, paymentsvc.CreateOrderRequest{
			Amount:      in.Amount,
			Type:        payment.Type(in.PaymentType),
			ReferenceID: in.ReferenceID,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, createOrderResp{
			OrderID:          out.OrderID,
			Amount:           out.Amount,
			GatewayPublicKey: out.GatewayPublicKey,
		})
	}
}

type verifyReq struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
}

type verifyResp struct {
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Verify settles the payment and acknowledges the verification request.
// The 200/"SUCCESS" body describes the request, not the signature: an
// invalid signature still gets this acknowledgment while the stored
// payment is marked FAILED. Long-standing client-facing behavior; do not
// "fix" without a migration plan for callers that retry on non-200.
func Verify(svc *paymentsvc.Service, gatewayTimeout time.Duration) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := middlewarex.IdentityFrom(r.Context())
		if !ok {
			http.Error(w, "not authenticated", http.StatusUnauthorized)
			return
		}

		var in verifyReq
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), gatewayTimeout)
		defer cancel()

		if _, err := svc.Verify(ctx, ident, paymentsvc.VerifyRequest{
			OrderID:   in.OrderID,
			PaymentID: in.PaymentID,
			Signature: in.Signature,
		}); err != nil {
			writeServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, verifyResp{
			Message: "Payment verified successfully",
			Status:  "SUCCESS",
		})
	}
}

type paymentDTO struct {
	ID            int64     `json:"id"`
	ReferenceID   int64     `json:"referenceId"`
	PaymentType   string    `json:"paymentType"`
	Amount        float64   `json:"amount"`
	Status        string    `json:"status"`
	TransactionID string    `json:"transactionId"`
	PaymentDate   time.Time `json:"paymentDate"`
}

func MyPayments(svc *paymentsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := middlewarex.IdentityFrom(r.Context())
		if !ok {
			http.Error(w, "not authenticated", http.StatusUnauthorized)
			return
		}
		items, err := svc.History(r.Context(), ident)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDTOs(items))
	}
}

func ListPayments(svc *paymentsvc.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ident, ok := middlewarex.IdentityFrom(r.Context())
		if !ok {
			http.Error(w, "not authenticated", http.StatusUnauthorized)
			return
		}
		items, err := svc.ListAll(r.Context(), ident)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toDTOs(items))
	}
}

func toDTOs(items []*payment.Payment) []paymentDTO {
	out := make([]paymentDTO, 0, len(items))
	for _, p := range items {
		out = append(out, paymentDTO{
			ID:            p.ID,
			ReferenceID:   p.ReferenceID,
			PaymentType:   string(p.Type),
			Amount:        p.Amount.Decimal(),
			Status:        string(p.Status),
			TransactionID: p.TransactionID,
			PaymentDate:   p.PaymentDate,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
// Internal detail stays in the server log; callers get a stable message.
func writeServiceError(w http.ResponseWriter, err error) {
	var pe *payment.Error
	msg := "internal error"
	status := http.StatusInternalServerError

	if errors.As(err, &pe) {
		switch pe.Kind {
		case payment.KindInvalidRequest:
			status, msg = http.StatusBadRequest, pe.Message
		case payment.KindUnauthorized:
			status, msg = http.StatusForbidden, pe.Message
		case payment.KindNotFound:
			status, msg = http.StatusNotFound, pe.Message
		case payment.KindGateway:
			status, msg = http.StatusBadGateway, pe.Message
		}
	}
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg("payment request failed")
	}
	writeError(w, status, msg)
}
