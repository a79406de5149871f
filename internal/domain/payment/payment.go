package payment

import (
	"fmt"
	"time"
)

// Payment is a local record of a gateway order and its settlement outcome.
// Rows are never deleted; they are the audit trail for reconciliation.
type Payment struct {
	ID            int64
	DonorID       int64
	ReferenceID   int64
	Type          Type
	Amount        Money
	Status        Status
	TransactionID string
	PaymentDate   time.Time
}

// Money is a monetary amount in the gateway's minor unit (paise).
type Money int64

// FromDecimal converts a decimal amount (e.g. 500.00) to minor units.
func FromDecimal(amount float64) Money {
	return Money(amount*100 + 0.5)
}

// Decimal renders the amount back in major units for API responses.
func (m Money) Decimal() float64 {
	return float64(m) / 100
}

// Type says what the payment settles.
type Type string

const (
	TypeDonation Type = "DONATION"
	TypeAdoption Type = "ADOPTION"
)

// Valid reports whether t is one of the known payment types.
func (t Type) Valid() bool {
	return t == TypeDonation || t == TypeAdoption
}

// Status is the payment state. CREATED is the only non-terminal state;
// the allowed transitions are CREATED->SUCCESS and CREATED->FAILED.
type Status string

const (
	StatusCreated Status = "CREATED"
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Terminal reports whether the status admits no further transition.
func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// New builds a CREATED payment for a freshly created gateway order.
func New(donorID, referenceID int64, typ Type, amount Money, transactionID string) (*Payment, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("amount must be positive: %d", amount)
	}
	if !typ.Valid() {
		return nil, fmt.Errorf("unknown payment type: %q", typ)
	}
	if referenceID <= 0 {
		return nil, fmt.Errorf("invalid reference id: %d", referenceID)
	}
	if transactionID == "" {
		return nil, fmt.Errorf("transaction id is required")
	}
	return &Payment{
		DonorID:       donorID,
		ReferenceID:   referenceID,
		Type:          typ,
		Amount:        amount,
		Status:        StatusCreated,
		TransactionID: transactionID,
		PaymentDate:   time.Now(),
	}, nil
}

// CanTransition reports whether the status may move to next.
func (p *Payment) CanTransition(next Status) bool {
	return p.Status == StatusCreated && next.Terminal()
}
