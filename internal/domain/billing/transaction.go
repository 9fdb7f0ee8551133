package billing

import (
	"context"
	"errors"
	"time"

	"resortops/internal/domain/reservations"
	"resortops/internal/domain/shared/money"
)

var ErrTransactionNotFound = errors.New("billing: transaction not found")

type TransactionID string

type TransactionKind string

const (
	KindBillPayment        TransactionKind = "bill payment"
	KindRefund             TransactionKind = "refund"
	KindReservationPayment TransactionKind = "reservation payment"
)

type TransactionStatus string

const (
	TransactionSuccess TransactionStatus = "success"
	TransactionFailed  TransactionStatus = "failed"
)

type Method string

const (
	MethodOnline Method = "online"
	MethodCash   Method = "cash"
	MethodCard   Method = "card"
)

func (m Method) Valid() bool {
	switch m {
	case MethodOnline, MethodCash, MethodCard:
		return true
	}
	return false
}

const (
	ReasonDeposit      = "reservation deposit"
	ReasonCancellation = "reservation cancellation"
	ReasonBillPayment  = "invoice payment"
)

// Transaction is an immutable record of money moving in or out.
type Transaction struct {
	ID          TransactionID
	Kind        TransactionKind
	Status      TransactionStatus
	Method      Method
	Amount      money.Money
	Reason      string
	Reservation reservations.ID
	Invoice     InvoiceID
	Guest       string
	ProviderRef string
	CreatedAt   time.Time
}

// Match identifies a payment for replay detection.
type Match struct {
	Kind        TransactionKind
	Reason      string
	Amount      money.Money
	Reservation reservations.ID
}

func (t *Transaction) Matches(m Match) bool {
	return t.Status == TransactionSuccess &&
		t.Kind == m.Kind &&
		t.Reason == m.Reason &&
		t.Amount.Amount == m.Amount.Amount &&
		t.Reservation == m.Reservation
}

type TransactionRepository interface {
	Save(ctx context.Context, tx *Transaction) error
	HasSuccessful(ctx context.Context, match Match) (bool, error)
	ListByReservation(ctx context.Context, id reservations.ID) ([]*Transaction, error)
	Delete(ctx context.Context, id TransactionID) error
}
