package memory

import (
	"context"
	"errors"
	"sync"

	"resortops/internal/app/uow"
	"resortops/internal/domain/billing"
	"resortops/internal/domain/reservations"
	"resortops/internal/domain/rooms"
	"resortops/internal/domain/settings"
)

// Factory wires the in-memory store into a unit-of-work boundary.
type Factory struct {
	Store *Store
}

// ErrFactoryMisconfigured indicates a missing store.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

var errUnitClosed = errors.New("memory: unit of work already finished")

// Begin starts a unit. Write units hold the store's write lock until they
// commit or roll back; read-only units never block.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	if !opts.ReadOnly {
		f.Store.writeMu.Lock()
	}
	return &Unit{store: f.Store, readOnly: opts.ReadOnly}, nil
}

// Unit is a uow.UnitOfWork over a Store with an undo journal.
type Unit struct {
	store    *Store
	readOnly bool

	mu      sync.Mutex
	undo    []func()
	pending []pendingEvent
	done    bool
	hooks   uow.Hooks
}

func (u *Unit) Rooms() rooms.Repository                     { return roomRepo{u: u} }
func (u *Unit) Reservations() reservations.Repository       { return reservationRepo{u: u} }
func (u *Unit) Ledger() reservations.NightLedger            { return ledger{u: u} }
func (u *Unit) Invoices() billing.InvoiceRepository         { return invoiceRepo{u: u} }
func (u *Unit) Transactions() billing.TransactionRepository { return transactionRepo{u: u} }
func (u *Unit) Receipts() billing.ReceiptRepository         { return receiptRepo{u: u} }
func (u *Unit) Rates() billing.RateCard                     { return rateCard{store: u.store} }
func (u *Unit) Settings() settings.Repository               { return settingsRepo{store: u.store, unit: u} }

func (u *Unit) AfterCommit(fn func(ctx context.Context)) {
	u.hooks.Add(fn)
}

func (u *Unit) Commit(ctx context.Context) error {
	pending, err := u.finish()
	if err != nil {
		return err
	}
	for _, p := range pending {
		p.box.append(p.record)
	}
	u.hooks.Run(ctx)
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	u.mu.Lock()
	undo := u.undo
	u.undo = nil
	u.mu.Unlock()
	if len(undo) > 0 {
		u.store.mu.Lock()
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
		u.store.mu.Unlock()
	}
	u.hooks.Discard()
	_, err := u.finish()
	return err
}

func (u *Unit) finish() ([]pendingEvent, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return nil, errUnitClosed
	}
	u.done = true
	u.undo = nil
	pending := u.pending
	u.pending = nil
	if !u.readOnly {
		u.store.writeMu.Unlock()
	}
	return pending, nil
}

// write applies fn under the store lock and journals the undo it returns.
func (u *Unit) write(fn func(s *Store) func()) error {
	if u.readOnly {
		return ErrReadOnly
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done {
		return errUnitClosed
	}
	u.store.mu.Lock()
	undo := fn(u.store)
	u.store.mu.Unlock()
	if undo != nil {
		u.undo = append(u.undo, undo)
	}
	return nil
}

// writeErr is write for mutations that may be refused.
func (u *Unit) writeErr(fn func(s *Store) (func(), error)) error {
	var err error
	werr := u.write(func(s *Store) func() {
		var undo func()
		undo, err = fn(s)
		return undo
	})
	if werr != nil {
		return werr
	}
	return err
}

func (u *Unit) read(fn func(s *Store)) {
	u.store.mu.RLock()
	defer u.store.mu.RUnlock()
	fn(u.store)
}

var _ uow.UoWFactory = Factory{}
var _ uow.UnitOfWork = (*Unit)(nil)
