package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"resortops/internal/app/apperr"
	"resortops/internal/app/notify"
	"resortops/internal/app/policies"
	"resortops/internal/app/uow"
	domainbilling "resortops/internal/domain/billing"
	"resortops/internal/domain/shared/money"
)

// Reconciler applies money movements to invoices and issues the matching
// transaction and receipt.
type Reconciler struct {
	Archive policies.ReceiptArchive
	Mailer  notify.Mailer
	Logger  *slog.Logger
	NewID   func() string
	Now     func() time.Time
}

type PaymentInput struct {
	Invoice domainbilling.InvoiceID
	Amount  money.Money
	Method  domainbilling.Method
	Kind    domainbilling.TransactionKind
	Reason  string
	Guest   string
	MailTo  string
	Ref     string
}

type PaymentOutcome struct {
	Invoice     *domainbilling.Invoice
	Transaction *domainbilling.Transaction
	Receipt     *domainbilling.Receipt
}

// ApplyPayment adds in.Amount to the invoice and records the payment.
func (r Reconciler) ApplyPayment(ctx context.Context, unit uow.UnitOfWork, in PaymentInput) (PaymentOutcome, error) {
	if !in.Amount.IsPositive() {
		return PaymentOutcome{}, apperr.Validation(domainbilling.ErrInvalidAmount, "amount must be a positive number")
	}
	inv, err := unit.Invoices().ByID(ctx, in.Invoice)
	if err != nil {
		if errors.Is(err, domainbilling.ErrInvoiceNotFound) {
			return PaymentOutcome{}, apperr.NotFound(err, "invoice %s not found", in.Invoice)
		}
		return PaymentOutcome{}, err
	}
	if err := inv.ApplyPayment(in.Amount, r.now()); err != nil {
		if errors.Is(err, domainbilling.ErrAlreadyPaid) {
			return PaymentOutcome{}, apperr.Conflicting(err, "invoice %s is already paid", inv.ID)
		}
		return PaymentOutcome{}, apperr.Validation(err, "payment rejected")
	}
	if err := unit.Invoices().Save(ctx, inv); err != nil {
		return PaymentOutcome{}, err
	}
	kind := in.Kind
	if kind == "" {
		kind = domainbilling.KindBillPayment
	}
	reason := in.Reason
	if reason == "" {
		reason = domainbilling.ReasonBillPayment
	}
	tx, receipt, err := r.Record(ctx, unit, &domainbilling.Transaction{
		Kind:        kind,
		Status:      domainbilling.TransactionSuccess,
		Method:      in.Method,
		Amount:      in.Amount,
		Reason:      reason,
		Reservation: inv.Reservation,
		Invoice:     inv.ID,
		Guest:       in.Guest,
		ProviderRef: in.Ref,
	}, in.MailTo)
	if err != nil {
		return PaymentOutcome{}, err
	}
	return PaymentOutcome{Invoice: inv, Transaction: tx, Receipt: receipt}, nil
}

// ApplyRefund takes amount back off the invoice and records the refund.
func (r Reconciler) ApplyRefund(ctx context.Context, unit uow.UnitOfWork, inv *domainbilling.Invoice, in PaymentInput) (PaymentOutcome, error) {
	if err := inv.ApplyRefund(in.Amount, r.now()); err != nil {
		return PaymentOutcome{}, apperr.Validation(err, "refund rejected")
	}
	if err := unit.Invoices().Save(ctx, inv); err != nil {
		return PaymentOutcome{}, err
	}
	reason := in.Reason
	if reason == "" {
		reason = domainbilling.ReasonCancellation
	}
	tx, receipt, err := r.Record(ctx, unit, &domainbilling.Transaction{
		Kind:        domainbilling.KindRefund,
		Status:      domainbilling.TransactionSuccess,
		Method:      in.Method,
		Amount:      in.Amount,
		Reason:      reason,
		Reservation: inv.Reservation,
		Invoice:     inv.ID,
		Guest:       in.Guest,
		ProviderRef: in.Ref,
	}, in.MailTo)
	if err != nil {
		return PaymentOutcome{}, err
	}
	return PaymentOutcome{Invoice: inv, Transaction: tx, Receipt: receipt}, nil
}

// Record saves tx and its receipt, archives the rendered receipt and queues
// the receipt mail for after commit.
func (r Reconciler) Record(ctx context.Context, unit uow.UnitOfWork, tx *domainbilling.Transaction, mailTo string) (*domainbilling.Transaction, *domainbilling.Receipt, error) {
	if tx.ID == "" {
		tx.ID = domainbilling.TransactionID(r.newID())
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = r.now()
	}
	if err := unit.Transactions().Save(ctx, tx); err != nil {
		return nil, nil, err
	}
	receipt := domainbilling.NewReceipt(domainbilling.ReceiptID(r.newID()), tx)
	msg := notify.Receipt(receipt, mailTo)
	if r.Archive != nil {
		location, err := r.Archive.Store(ctx, string(receipt.ID), []byte(msg.HTML))
		if err != nil {
			r.logger().WarnContext(ctx, "receipt archive failed", "receipt_id", receipt.ID, "error", err)
		} else {
			receipt.ArchiveURL = location
		}
	}
	if err := unit.Receipts().Save(ctx, receipt); err != nil {
		return nil, nil, err
	}
	if mailTo != "" {
		mailer := r.Mailer
		unit.AfterCommit(func(ctx context.Context) { mailer.Send(ctx, msg) })
	}
	return tx, receipt, nil
}

func (r Reconciler) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r Reconciler) newID() string {
	if r.NewID != nil {
		return r.NewID()
	}
	return uuid.NewString()
}

func (r Reconciler) now() time.Time {
	if r.Now != nil {
		return r.Now().UTC()
	}
	return time.Now().UTC()
}
