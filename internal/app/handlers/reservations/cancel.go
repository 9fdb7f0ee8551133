package reservations

import (
	"context"
	"errors"
	"strings"

	"resortops/internal/app/apperr"
	appbilling "resortops/internal/app/billing"
	"resortops/internal/app/dto"
	"resortops/internal/app/policies"
	"resortops/internal/app/uow"
	"resortops/internal/domain/billing"
	domain "resortops/internal/domain/reservations"
	"resortops/internal/domain/shared/money"
)

const cancelReservationKey = "reservations.cancel"

type CancelReservationCommand struct {
	ReservationID string `validate:"required"`
	Reason        string
	// RefundOnline pays the refund out through the payment provider to Phone;
	// otherwise the refund is handed over in cash at the desk.
	RefundOnline bool
	Phone        string `validate:"required_if=RefundOnline true"`
	ActorID      string
	IdemKey      string
}

func (CancelReservationCommand) Key() string { return cancelReservationKey }

func (c CancelReservationCommand) IdempotencyKey() string { return c.IdemKey }

func (CancelReservationCommand) ResultPrototype() any { return &dto.Cancellation{} }

type CancelHandler struct {
	*Service
}

// Handle cancels a confirmed reservation and refunds what the cancellation
// policy allows. An online refund is paid out before anything is written, so
// a rejected payout leaves the reservation untouched.
func (h CancelHandler) Handle(ctx context.Context, cmd CancelReservationCommand) (*dto.Cancellation, error) {
	var result *dto.Cancellation
	err := withinUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		r, err := h.load(ctx, unit, cmd.ReservationID)
		if err != nil {
			return err
		}
		if r.Status != domain.StatusConfirmed {
			return apperr.Conflicting(domain.ErrInvalidState, "reservation %s is %s, only confirmed reservations can be canceled", r.ID, r.Status)
		}
		inv, err := h.invoiceOf(ctx, unit, r.ID)
		if err != nil {
			return err
		}
		current, err := h.CurrentSettings(ctx)
		if err != nil {
			return err
		}
		now := h.now()
		refund, err := current.Reservations.CancellationPolicy.Refund(inv.AmountPaid, r.CreatedAt, now)
		if err != nil {
			return domainError(err)
		}

		method := billing.MethodCash
		providerRef := ""
		if refund.IsPositive() && cmd.RefundOnline {
			method = billing.MethodOnline
			ref, err := h.payout(ctx, refund, cmd.Phone)
			if err != nil {
				return err
			}
			providerRef = ref
		}

		if err := r.Cancel(strings.TrimSpace(cmd.Reason), refund, now); err != nil {
			return domainError(err)
		}
		if err := unit.Reservations().Save(ctx, r); err != nil {
			return domainError(err)
		}
		if err := h.releaseRooms(ctx, unit, r, r.RoomIDs(), now); err != nil {
			return err
		}
		if err := unit.Ledger().Release(ctx, r.ID); err != nil {
			return err
		}
		out := &dto.Cancellation{Refund: dto.MapMoney(refund)}
		if refund.IsPositive() {
			outcome, err := h.Reconciler.ApplyRefund(ctx, unit, inv, appbilling.PaymentInput{
				Amount: refund,
				Method: method,
				Reason: billing.ReasonCancellation,
				Guest:  r.Contact.GuestID,
				MailTo: r.Contact.MailTo(),
				Ref:    providerRef,
			})
			if err != nil {
				return err
			}
			out.Receipt = dto.MapReceipt(outcome.Receipt)
		}
		if err := h.record(ctx, r); err != nil {
			return err
		}
		h.logger().InfoContext(ctx, "reservation canceled",
			"reservation_id", r.ID, "refund", refund.Amount, "method", method, "actor", cmd.ActorID)
		out.Reservation = dto.MapReservation(r)
		result = out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h CancelHandler) payout(ctx context.Context, amount money.Money, phone string) (string, error) {
	if h.Payments == nil {
		return "", apperr.Unavailable(nil, "payment provider is not configured")
	}
	if strings.TrimSpace(phone) == "" {
		return "", apperr.Validation(nil, "a phone number is required for an online refund")
	}
	res, err := h.Payments.Payout(ctx, policies.PayoutRequest{Amount: amount, Phone: phone})
	if err != nil {
		if errors.Is(err, policies.ErrPayoutRejected) {
			return "", apperr.Unavailable(err, "the payment provider rejected the refund payout")
		}
		return "", apperr.Unavailable(err, "the refund payout could not be completed")
	}
	if strings.HasPrefix(res.StatusCode, "4") {
		return "", apperr.Unavailable(policies.ErrPayoutRejected, "the payment provider rejected the refund payout with status %s", res.StatusCode)
	}
	return res.Reference, nil
}
