package uow

import (
	"context"
	"errors"
	"sync"

	"resortops/internal/domain/billing"
	"resortops/internal/domain/reservations"
	"resortops/internal/domain/rooms"
	"resortops/internal/domain/settings"
)

var (
	ErrUnitOfWorkMissing = errors.New("uow: unit of work missing from context")
	// ErrConcurrentUpdate is returned by repositories when a versioned save lost a race.
	ErrConcurrentUpdate = errors.New("uow: concurrent update detected")
)

// UnitOfWork groups the repositories touched by one operation inside a
// single transaction boundary.
type UnitOfWork interface {
	Rooms() rooms.Repository
	Reservations() reservations.Repository
	Ledger() reservations.NightLedger
	Invoices() billing.InvoiceRepository
	Transactions() billing.TransactionRepository
	Receipts() billing.ReceiptRepository
	Rates() billing.RateCard
	Settings() settings.Repository

	// AfterCommit queues fn to run once the unit commits. Nothing runs on rollback.
	AfterCommit(fn func(ctx context.Context))
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

type TxOptions struct {
	ReadOnly bool
}

// Hooks collects post-commit callbacks for unit implementations.
type Hooks struct {
	mu  sync.Mutex
	fns []func(ctx context.Context)
}

func (h *Hooks) Add(fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	h.mu.Lock()
	h.fns = append(h.fns, fn)
	h.mu.Unlock()
}

// Run executes queued callbacks in order and forgets them.
func (h *Hooks) Run(ctx context.Context) {
	h.mu.Lock()
	fns := h.fns
	h.fns = nil
	h.mu.Unlock()
	for _, fn := range fns {
		fn(ctx)
	}
}

// Discard forgets queued callbacks.
func (h *Hooks) Discard() {
	h.mu.Lock()
	h.fns = nil
	h.mu.Unlock()
}
