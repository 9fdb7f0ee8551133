package billing

import (
	"context"
	"errors"
	"log/slog"

	"resortops/internal/app/apperr"
	appbilling "resortops/internal/app/billing"
	"resortops/internal/app/commands"
	"resortops/internal/app/dto"
	"resortops/internal/app/queries"
	"resortops/internal/app/support"
	"resortops/internal/app/uow"
	domainbilling "resortops/internal/domain/billing"
	"resortops/internal/domain/reservations"
	"resortops/internal/domain/shared/money"
)

const (
	applyPaymentKey = "billing.apply_payment"
	getInvoiceKey   = "billing.get_invoice"
	listReceiptsKey = "billing.list_receipts"
)

// ApplyPaymentCommand records a payment taken at the desk against an invoice.
type ApplyPaymentCommand struct {
	InvoiceID string `validate:"required"`
	Amount    int64  `validate:"gt=0"`
	Method    string `validate:"required,oneof=online cash card"`
	ActorID   string
	IdemKey   string
}

func (ApplyPaymentCommand) Key() string { return applyPaymentKey }

func (c ApplyPaymentCommand) IdempotencyKey() string { return c.IdemKey }

func (ApplyPaymentCommand) ResultPrototype() any { return &dto.Payment{} }

type ApplyPaymentHandler struct {
	UoWFactory uow.UoWFactory
	Reconciler appbilling.Reconciler
	Logger     *slog.Logger
}

func (h ApplyPaymentHandler) Handle(ctx context.Context, cmd ApplyPaymentCommand) (*dto.Payment, error) {
	method := domainbilling.Method(cmd.Method)
	if !method.Valid() {
		return nil, apperr.Validation(nil, "unknown payment method %q", cmd.Method)
	}
	var result *dto.Payment
	err := support.Within(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		inv, err := unit.Invoices().ByID(ctx, domainbilling.InvoiceID(cmd.InvoiceID))
		if err != nil {
			if errors.Is(err, domainbilling.ErrInvoiceNotFound) {
				return apperr.NotFound(err, "invoice %s not found", cmd.InvoiceID)
			}
			return err
		}
		mailTo := ""
		guest := ""
		if r, err := unit.Reservations().ByID(ctx, inv.Reservation); err == nil {
			mailTo = r.Contact.MailTo()
			guest = r.Contact.GuestID
		} else if !errors.Is(err, reservations.ErrNotFound) {
			return err
		}
		outcome, err := h.Reconciler.ApplyPayment(ctx, unit, appbilling.PaymentInput{
			Invoice: inv.ID,
			Amount:  money.Francs(cmd.Amount),
			Method:  method,
			Kind:    domainbilling.KindBillPayment,
			Reason:  domainbilling.ReasonBillPayment,
			Guest:   guest,
			MailTo:  mailTo,
		})
		if err != nil {
			return err
		}
		h.logger().InfoContext(ctx, "invoice payment applied",
			"invoice_id", inv.ID, "amount", cmd.Amount, "method", method,
			"payment_status", outcome.Invoice.PaymentStatus, "actor", cmd.ActorID)
		result = &dto.Payment{Invoice: dto.MapInvoice(outcome.Invoice), Receipt: dto.MapReceipt(outcome.Receipt)}
		return nil
	})
	if err != nil {
		if errors.Is(err, uow.ErrConcurrentUpdate) {
			return nil, apperr.Conflicting(err, "the invoice was modified concurrently, retry")
		}
		return nil, err
	}
	return result, nil
}

func (h ApplyPaymentHandler) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

// GetInvoiceQuery looks an invoice up by its id, or by its reservation when
// InvoiceID is empty.
type GetInvoiceQuery struct {
	InvoiceID     string
	ReservationID string `validate:"required_without=InvoiceID"`
}

func (GetInvoiceQuery) Key() string { return getInvoiceKey }

type GetInvoiceHandler struct {
	UoWFactory uow.UoWFactory
}

func (h GetInvoiceHandler) Handle(ctx context.Context, q GetInvoiceQuery) (*dto.Invoice, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	var inv *domainbilling.Invoice
	if q.InvoiceID != "" {
		inv, err = unit.Invoices().ByID(execCtx, domainbilling.InvoiceID(q.InvoiceID))
	} else {
		inv, err = unit.Invoices().ByReservation(execCtx, reservations.ID(q.ReservationID))
	}
	if err != nil {
		if errors.Is(err, domainbilling.ErrInvoiceNotFound) {
			return nil, apperr.NotFound(err, "invoice not found")
		}
		return nil, err
	}
	return dto.MapInvoice(inv), nil
}

type ListReceiptsQuery struct {
	ReservationID string `validate:"required"`
}

func (ListReceiptsQuery) Key() string { return listReceiptsKey }

type ListReceiptsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h ListReceiptsHandler) Handle(ctx context.Context, q ListReceiptsQuery) (*dto.ReceiptCollection, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	list, err := unit.Receipts().ListByReservation(execCtx, reservations.ID(q.ReservationID))
	if err != nil {
		return nil, err
	}
	out := &dto.ReceiptCollection{Items: make([]dto.Receipt, 0, len(list))}
	for _, r := range list {
		out.Items = append(out.Items, *dto.MapReceipt(r))
	}
	return out, nil
}

var (
	_ commands.Handler[ApplyPaymentCommand, *dto.Payment]        = ApplyPaymentHandler{}
	_ queries.Handler[GetInvoiceQuery, *dto.Invoice]             = GetInvoiceHandler{}
	_ queries.Handler[ListReceiptsQuery, *dto.ReceiptCollection] = ListReceiptsHandler{}
)
