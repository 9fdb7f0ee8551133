package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"resortops/internal/app/uow"
	"resortops/internal/domain/billing"
	"resortops/internal/domain/reservations"
	"resortops/internal/domain/rooms"
	"resortops/internal/domain/settings"
)

// Repositories are shared by every unit; the session travels in the context.
type Repositories struct {
	Rooms        *RoomRepository
	Reservations *ReservationRepository
	Ledger       *NightLedger
	Invoices     *InvoiceRepository
	Transactions *TransactionRepository
	Receipts     *ReceiptRepository
	Rates        *RateCard
	Settings     *SettingsRepository
}

// NewRepositories builds every repository and ensures its indexes.
func NewRepositories(db *mongo.Database) Repositories {
	return Repositories{
		Rooms:        NewRoomRepository(db),
		Reservations: NewReservationRepository(db),
		Ledger:       NewNightLedger(db),
		Invoices:     NewInvoiceRepository(db),
		Transactions: NewTransactionRepository(db),
		Receipts:     NewReceiptRepository(db),
		Rates:        NewRateCard(db),
		Settings:     NewSettingsRepository(db),
	}
}

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB    *mongo.Database
	Repos Repositories
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// Begin starts a MongoDB session/transaction.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if opts.ReadOnly {
		txnOpts = txnOpts.SetReadConcern(readconcern.Majority())
	}
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return &Unit{session: session, repos: f.Repos}, nil
}

type Unit struct {
	session mongo.Session
	repos   Repositories
	hooks   uow.Hooks
}

func (u *Unit) Rooms() rooms.Repository                     { return u.repos.Rooms }
func (u *Unit) Reservations() reservations.Repository       { return u.repos.Reservations }
func (u *Unit) Ledger() reservations.NightLedger            { return u.repos.Ledger }
func (u *Unit) Invoices() billing.InvoiceRepository         { return u.repos.Invoices }
func (u *Unit) Transactions() billing.TransactionRepository { return u.repos.Transactions }
func (u *Unit) Receipts() billing.ReceiptRepository         { return u.repos.Receipts }
func (u *Unit) Rates() billing.RateCard                     { return u.repos.Rates }
func (u *Unit) Settings() settings.Repository               { return u.repos.Settings }

func (u *Unit) AfterCommit(fn func(ctx context.Context)) {
	u.hooks.Add(fn)
}

func (u *Unit) Commit(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	if err := u.session.CommitTransaction(ctx); err != nil {
		u.hooks.Discard()
		if mongo.IsDuplicateKeyError(err) {
			return uow.ErrConcurrentUpdate
		}
		return err
	}
	u.hooks.Run(ctx)
	return nil
}

func (u *Unit) Rollback(ctx context.Context) error {
	defer u.session.EndSession(ctx)
	u.hooks.Discard()
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var _ uow.UoWFactory = Factory{}
