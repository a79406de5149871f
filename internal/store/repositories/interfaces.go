package repositories

import (
	"context"
	"errors"
	"time"

	"arcpay/internal/domain/payment"
)

// ErrNotFound is returned by lookups that match no payment.
var ErrNotFound = errors.New("payment not found")

// ErrDuplicateTransaction is returned when an insert would violate
// transaction id uniqueness.
var ErrDuplicateTransaction = errors.New("duplicate transaction id")

// Ledger is the durable store of Payment records. CompareAndSetStatus is
// the only mutation path after insert and the concurrency boundary for
// the whole subsystem: concurrent attempts on one transaction id must
// resolve to exactly one winning transition.
type Ledger interface {
	Insert(ctx context.Context, p *payment.Payment) (int64, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*payment.Payment, error)
	FindByReferenceID(ctx context.Context, referenceID int64) ([]*payment.Payment, error)
	FindByDonorID(ctx context.Context, donorID int64) ([]*payment.Payment, error)
	ListAll(ctx context.Context) ([]*payment.Payment, error)

	// CompareAndSetStatus transitions transactionID from expected to
	// next and reports whether this call won the transition.
	CompareAndSetStatus(ctx context.Context, transactionID string, expected, next payment.Status) (bool, error)

	// ListStale returns CREATED payments older than the cutoff; they
	// indicate a gateway interaction that never completed.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*payment.Payment, error)
}
