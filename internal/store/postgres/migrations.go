package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Statements run one at a time; pgx's extended protocol rejects
// multi-statement strings.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS payments (
		id             BIGSERIAL PRIMARY KEY,
		donor_id       BIGINT       NOT NULL,
		reference_id   BIGINT       NOT NULL,
		payment_type   VARCHAR(20)  NOT NULL,
		amount         BIGINT       NOT NULL CHECK (amount > 0),
		status         VARCHAR(20)  NOT NULL,
		transaction_id VARCHAR(100) NOT NULL UNIQUE,
		payment_date   TIMESTAMPTZ  NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_donor     ON payments (donor_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_reference ON payments (reference_id)`,
	`CREATE INDEX IF NOT EXISTS idx_payments_status    ON payments (status, payment_date)`,
}

// Migrate applies the payments schema. Idempotent, runs at startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
