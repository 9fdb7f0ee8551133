package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resortops/internal/domain/reservations"
	"resortops/internal/domain/shared/money"
)

var (
	ErrInvoiceNotFound = errors.New("billing: invoice not found")
	ErrMissingDueDate  = errors.New("billing: invoice due date is required")
	ErrInvalidAmount   = errors.New("billing: amount must be a positive number")
	ErrAlreadyPaid     = errors.New("billing: invoice is already paid")
	ErrRefundTooLarge  = errors.New("billing: refund exceeds amount paid")
	ErrDepositTooLarge = errors.New("billing: deposit exceeds grand total")
)

type InvoiceID string

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

type Invoice struct {
	ID            InvoiceID
	Reservation   reservations.ID
	Breakdown     Breakdown
	AmountPaid    money.Money
	AmountDue     money.Money
	PaymentStatus PaymentStatus
	PaymentLink   string
	PaymentLinkID string
	DueDate       time.Time
	IsRoomUpdate  bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Version       int64
}

type InvoiceRepository interface {
	ByID(ctx context.Context, id InvoiceID) (*Invoice, error)
	ByReservation(ctx context.Context, id reservations.ID) (*Invoice, error)
	Save(ctx context.Context, invoice *Invoice) error
	Delete(ctx context.Context, id InvoiceID) error
}

type InvoiceParams struct {
	ID          InvoiceID
	Reservation reservations.ID
	Breakdown   Breakdown
	DueDate     time.Time
	CreatedAt   time.Time
}

// NewInvoice opens an unpaid invoice for the full grand total.
func NewInvoice(params InvoiceParams) (*Invoice, error) {
	if params.DueDate.IsZero() {
		return nil, ErrMissingDueDate
	}
	now := params.CreatedAt.UTC()
	inv := &Invoice{
		ID:          params.ID,
		Reservation: params.Reservation,
		Breakdown:   params.Breakdown.Copy(),
		AmountPaid:  params.Breakdown.GrandTotal.Zero(),
		DueDate:     params.DueDate.UTC(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	inv.settle()
	return inv, nil
}

func (i *Invoice) NetAmount() money.Money  { return i.Breakdown.Net }
func (i *Invoice) TaxAmount() money.Money  { return i.Breakdown.Tax }
func (i *Invoice) GrandTotal() money.Money { return i.Breakdown.GrandTotal }

func (i *Invoice) AttachPaymentLink(link, linkID string, now time.Time) {
	i.PaymentLink = link
	i.PaymentLinkID = linkID
	i.UpdatedAt = now.UTC()
}

// ApplyPayment adds amount to what has been paid. A payment that overshoots
// the balance settles the invoice; the due amount never goes below zero.
func (i *Invoice) ApplyPayment(amount money.Money, now time.Time) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if i.PaymentStatus == PaymentPaid {
		return ErrAlreadyPaid
	}
	paid, err := i.AmountPaid.Add(amount)
	if err != nil {
		return err
	}
	i.AmountPaid = paid
	i.UpdatedAt = now.UTC()
	i.settle()
	return nil
}

// ApplyRefund takes a refunded amount back off the paid balance.
func (i *Invoice) ApplyRefund(amount money.Money, now time.Time) error {
	if amount.IsNegative() {
		return ErrInvalidAmount
	}
	if amount.Amount > i.AmountPaid.Amount {
		return fmt.Errorf("%w: refund %d, paid %d", ErrRefundTooLarge, amount.Amount, i.AmountPaid.Amount)
	}
	paid, err := i.AmountPaid.Sub(amount)
	if err != nil {
		return err
	}
	i.AmountPaid = paid
	i.UpdatedAt = now.UTC()
	i.settle()
	return nil
}

// Reprice replaces the breakdown after a room reassignment and flags the
// invoice so the guest is sent the updated version.
func (i *Invoice) Reprice(b Breakdown, now time.Time) {
	i.Breakdown = b.Copy()
	i.IsRoomUpdate = true
	i.UpdatedAt = now.UTC()
	i.settle()
}

func (i *Invoice) Clone() *Invoice {
	if i == nil {
		return nil
	}
	clone := *i
	clone.Breakdown = i.Breakdown.Copy()
	return &clone
}

func (i *Invoice) settle() {
	grand := i.Breakdown.GrandTotal
	due := grand.Amount - i.AmountPaid.Amount
	if due < 0 {
		due = 0
	}
	i.AmountDue = money.Money{Amount: due, Currency: grand.Zero().Currency}
	switch {
	case i.AmountPaid.Amount >= grand.Amount:
		i.PaymentStatus = PaymentPaid
	case i.AmountPaid.Amount > 0:
		i.PaymentStatus = PaymentPartial
	default:
		i.PaymentStatus = PaymentUnpaid
	}
}
