package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"arcpay/internal/domain/payment"
	"arcpay/internal/store/repositories"
)

const uniqueViolation = "23505"

// Ledger implements repositories.Ledger on a pgx pool.
type Ledger struct {
	db *pgxpool.Pool
}

func NewLedger(db *pgxpool.Pool) *Ledger { return &Ledger{db: db} }

const paymentCols = `id, donor_id, reference_id, payment_type, amount, status, transaction_id, payment_date`

func (l *Ledger) Insert(ctx context.Context, p *payment.Payment) (int64, error) {
	err := l.db.QueryRow(ctx, `
		INSERT INTO payments (donor_id, reference_id, payment_type, amount, status, transaction_id, payment_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		p.DonorID, p.ReferenceID, string(p.Type), int64(p.Amount), string(p.Status), p.TransactionID, p.PaymentDate,
	).Scan(&p.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, repositories.ErrDuplicateTransaction
		}
		return 0, err
	}
	return p.ID, nil
}

func (l *Ledger) FindByTransactionID(ctx context.Context, transactionID string) (*payment.Payment, error) {
	row := l.db.QueryRow(ctx, `
		SELECT `+paymentCols+`
		  FROM payments
		 WHERE transaction_id = $1`, transactionID)
	return scanPayment(row)
}

func (l *Ledger) FindByReferenceID(ctx context.Context, referenceID int64) ([]*payment.Payment, error) {
	return l.query(ctx, `
		SELECT `+paymentCols+`
		  FROM payments
		 WHERE reference_id = $1
		 ORDER BY payment_date DESC`, referenceID)
}

func (l *Ledger) FindByDonorID(ctx context.Context, donorID int64) ([]*payment.Payment, error) {
	return l.query(ctx, `
		SELECT `+paymentCols+`
		  FROM payments
		 WHERE donor_id = $1
		 ORDER BY payment_date DESC`, donorID)
}

func (l *Ledger) ListAll(ctx context.Context) ([]*payment.Payment, error) {
	return l.query(ctx, `
		SELECT `+paymentCols+`
		  FROM payments
		 ORDER BY payment_date DESC`)
}

// CompareAndSetStatus is a single conditional UPDATE; the row count is
// the test-and-set verdict. Concurrent callers on one transaction id
// serialize on the row lock, so at most one observes RowsAffected()==1.
func (l *Ledger) CompareAndSetStatus(ctx context.Context, transactionID string, expected, next payment.Status) (bool, error) {
	tag, err := l.db.Exec(ctx, `
		UPDATE payments
		   SET status = $3
		 WHERE transaction_id = $1 AND status = $2`,
		transactionID, string(expected), string(next))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (l *Ledger) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*payment.Payment, error) {
	return l.query(ctx, `
		SELECT `+paymentCols+`
		  FROM payments
		 WHERE status = $1 AND payment_date < $2
		 ORDER BY payment_date ASC
		 LIMIT $3`, string(payment.StatusCreated), cutoff, limit)
}

func (l *Ledger) query(ctx context.Context, sql string, args ...any) ([]*payment.Payment, error) {
	rows, err := l.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*payment.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanPayment(row pgx.Row) (*payment.Payment, error) {
	var p payment.Payment
	var typ, status string
	var amount int64
	err := row.Scan(&p.ID, &p.DonorID, &p.ReferenceID, &typ, &amount, &status, &p.TransactionID, &p.PaymentDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repositories.ErrNotFound
		}
		return nil, err
	}
	p.Type = payment.Type(typ)
	p.Amount = payment.Money(amount)
	p.Status = payment.Status(status)
	return &p, nil
}
