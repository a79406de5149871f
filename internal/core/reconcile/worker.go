// Package reconcile watches for payments stuck in CREATED. A record
// that never leaves CREATED within the configured window means the
// gateway interaction ended ambiguously (timeout, lost callback, local
// write after remote create). Those are surfaced for operators; nothing
// here retries or mutates payment state.
package reconcile

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"

	"arcpay/internal/domain/payment"
	"arcpay/internal/store/repositories"
)

type Worker struct {
	ledger     repositories.Ledger
	staleAfter time.Duration
	pollEvery  time.Duration
	batch      int

	// flagged remembers what was already reported so each stuck payment
	// is logged once per process lifetime, not once per tick.
	flagged map[string]struct{}
}

func NewWorker(ledger repositories.Ledger, staleAfter, pollEvery time.Duration) *Worker {
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	if pollEvery <= 0 {
		pollEvery = time.Minute
	}
	return &Worker{
		ledger:     ledger,
		staleAfter: staleAfter,
		pollEvery:  pollEvery,
		batch:      100,
		flagged:    make(map[string]struct{}),
	}
}

func (w *Worker) Run(ctx context.Context) {
	log.Info().Dur("stale_after", w.staleAfter).Msg("reconcile worker: started")
	t := time.NewTicker(w.pollEvery)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reconcile worker: stopping")
			return
		case <-t.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)

	// Transient store errors are retried briefly; a tick that still
	// fails is dropped and the next tick covers the same window.
	var stale []*payment.Payment
	op := func() error {
		var err error
		stale, err = w.ledger.ListStale(ctx, cutoff, w.batch)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(op, policy); err != nil {
		log.Error().Err(err).Msg("reconcile worker: stale scan failed")
		return
	}

	for _, p := range stale {
		if _, seen := w.flagged[p.TransactionID]; seen {
			continue
		}
		w.flagged[p.TransactionID] = struct{}{}
		log.Warn().
			Str("transaction_id", p.TransactionID).
			Int64("donor_id", p.DonorID).
			Int64("reference_id", p.ReferenceID).
			Int64("amount_minor", int64(p.Amount)).
			Time("payment_date", p.PaymentDate).
			Msg("payment stuck in CREATED, gateway outcome unknown, needs manual reconciliation")
	}
}
