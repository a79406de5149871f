// Package memory holds an in-process Ledger used by tests. Semantics
// mirror the postgres ledger, including the compare-and-set guarantee.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"arcpay/internal/domain/payment"
	"arcpay/internal/store/repositories"
)

type Ledger struct {
	mu     sync.Mutex
	nextID int64
	byTx   map[string]*payment.Payment
}

func NewLedger() *Ledger {
	return &Ledger{nextID: 1, byTx: make(map[string]*payment.Payment)}
}

func (l *Ledger) Insert(_ context.Context, p *payment.Payment) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.byTx[p.TransactionID]; ok {
		return 0, repositories.ErrDuplicateTransaction
	}
	p.ID = l.nextID
	l.nextID++
	cp := *p
	l.byTx[p.TransactionID] = &cp
	return p.ID, nil
}

func (l *Ledger) FindByTransactionID(_ context.Context, transactionID string) (*payment.Payment, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.byTx[transactionID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (l *Ledger) FindByReferenceID(_ context.Context, referenceID int64) ([]*payment.Payment, error) {
	return l.filter(func(p *payment.Payment) bool { return p.ReferenceID == referenceID }), nil
}

func (l *Ledger) FindByDonorID(_ context.Context, donorID int64) ([]*payment.Payment, error) {
	return l.filter(func(p *payment.Payment) bool { return p.DonorID == donorID }), nil
}

func (l *Ledger) ListAll(_ context.Context) ([]*payment.Payment, error) {
	return l.filter(func(*payment.Payment) bool { return true }), nil
}

func (l *Ledger) CompareAndSetStatus(_ context.Context, transactionID string, expected, next payment.Status) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.byTx[transactionID]
	if !ok {
		return false, nil
	}
	if p.Status != expected {
		return false, nil
	}
	p.Status = next
	return true, nil
}

func (l *Ledger) ListStale(_ context.Context, cutoff time.Time, limit int) ([]*payment.Payment, error) {
	stale := l.filter(func(p *payment.Payment) bool {
		return p.Status == payment.StatusCreated && p.PaymentDate.Before(cutoff)
	})
	if len(stale) > limit {
		stale = stale[:limit]
	}
	return stale, nil
}

func (l *Ledger) filter(keep func(*payment.Payment) bool) []*payment.Payment {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []*payment.Payment
	for _, p := range l.byTx {
		if keep(p) {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
