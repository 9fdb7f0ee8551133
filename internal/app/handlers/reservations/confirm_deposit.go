package reservations

import (
	"context"

	"resortops/internal/app/apperr"
	appbilling "resortops/internal/app/billing"
	"resortops/internal/app/dto"
	"resortops/internal/app/uow"
	"resortops/internal/domain/billing"
	domain "resortops/internal/domain/reservations"
	"resortops/internal/domain/shared/money"
)

const confirmDepositKey = "reservations.confirm_deposit"

// ConfirmDepositCommand is raised by the payment provider redirect once the
// guest has paid the deposit.
type ConfirmDepositCommand struct {
	ReservationID string `validate:"required"`
	Amount        int64  `validate:"gt=0"`
	ProviderRef   string
}

func (ConfirmDepositCommand) Key() string { return confirmDepositKey }

type ConfirmDepositHandler struct {
	*Service
}

// Handle records the deposit on the invoice, confirms the reservation and
// pins its rooms. A deposit that was already recorded is rejected so a
// replayed redirect never pays twice, and the provider reference must name
// the payment link issued with the invoice.
func (h ConfirmDepositHandler) Handle(ctx context.Context, cmd ConfirmDepositCommand) (*dto.Reservation, error) {
	var result *dto.Reservation
	err := withinUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		r, err := h.load(ctx, unit, cmd.ReservationID)
		if err != nil {
			return err
		}
		amount := money.Francs(cmd.Amount)
		replayed, err := unit.Transactions().HasSuccessful(ctx, billing.Match{
			Kind:        billing.KindReservationPayment,
			Reason:      billing.ReasonDeposit,
			Amount:      amount,
			Reservation: r.ID,
		})
		if err != nil {
			return err
		}
		if replayed {
			return apperr.Conflicting(nil, "deposit for reservation %s was already recorded", r.ID)
		}
		if r.Status != domain.StatusPending {
			return apperr.Conflicting(domain.ErrInvalidState, "reservation %s is %s, only pending reservations take a deposit", r.ID, r.Status)
		}
		if amount.Amount != r.Deposit.Amount {
			return apperr.Validation(nil, "deposit amount %d does not match the expected %d", amount.Amount, r.Deposit.Amount)
		}
		inv, err := h.invoiceOf(ctx, unit, r.ID)
		if err != nil {
			return err
		}
		if cmd.ProviderRef == "" || cmd.ProviderRef != inv.PaymentLinkID {
			return apperr.Validation(nil, "payment reference %q does not match the payment link of reservation %s", cmd.ProviderRef, r.ID)
		}
		outcome, err := h.Reconciler.ApplyPayment(ctx, unit, appbilling.PaymentInput{
			Invoice: inv.ID,
			Amount:  amount,
			Method:  billing.MethodOnline,
			Kind:    billing.KindReservationPayment,
			Reason:  billing.ReasonDeposit,
			Guest:   r.Contact.GuestID,
			MailTo:  r.Contact.MailTo(),
			Ref:     cmd.ProviderRef,
		})
		if err != nil {
			return err
		}
		now := h.now()
		if err := r.Confirm(now); err != nil {
			return domainError(err)
		}
		if err := unit.Reservations().Save(ctx, r); err != nil {
			return domainError(err)
		}
		if err := h.reserveRooms(ctx, unit, r, r.RoomIDs(), now); err != nil {
			return err
		}
		if err := h.record(ctx, r); err != nil {
			return err
		}
		h.logger().InfoContext(ctx, "reservation deposit confirmed",
			"reservation_id", r.ID, "amount", amount.Amount, "transaction_id", outcome.Transaction.ID)
		out := dto.MapReservation(r)
		out.Invoice = dto.MapInvoice(outcome.Invoice)
		result = &out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
