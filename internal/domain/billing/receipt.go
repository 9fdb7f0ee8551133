package billing

import (
	"context"
	"time"

	"resortops/internal/domain/reservations"
	"resortops/internal/domain/shared/money"
)

type ReceiptID string

// Receipt is the guest-facing proof of a transaction.
type Receipt struct {
	ID          ReceiptID
	Transaction TransactionID
	Reservation reservations.ID
	Kind        TransactionKind
	Method      Method
	Reason      string
	Status      TransactionStatus
	Amount      money.Money
	IssuedAt    time.Time
	ArchiveURL  string
}

// NewReceipt derives the receipt for tx.
func NewReceipt(id ReceiptID, tx *Transaction) *Receipt {
	return &Receipt{
		ID:          id,
		Transaction: tx.ID,
		Reservation: tx.Reservation,
		Kind:        tx.Kind,
		Method:      tx.Method,
		Reason:      tx.Reason,
		Status:      tx.Status,
		Amount:      tx.Amount,
		IssuedAt:    tx.CreatedAt,
	}
}

type ReceiptRepository interface {
	Save(ctx context.Context, receipt *Receipt) error
	ListByReservation(ctx context.Context, id reservations.ID) ([]*Receipt, error)
	Delete(ctx context.Context, id ReceiptID) error
}
