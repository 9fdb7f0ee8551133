package reservations

import (
	"context"
	"errors"

	"resortops/internal/app/apperr"
	"resortops/internal/app/commands"
	"resortops/internal/app/dto"
	"resortops/internal/app/middleware"
	"resortops/internal/app/notify"
	"resortops/internal/app/saga"
	"resortops/internal/app/uow"
	"resortops/internal/domain/billing"
	domain "resortops/internal/domain/reservations"
	"resortops/internal/domain/shared/money"
)

const createReservationKey = "reservations.create"

type ContactInput struct {
	GuestID string `json:"guestId"`
	Name    string `json:"name"`
	Email   string `json:"email" validate:"omitempty,email"`
	Phone   string `json:"phone"`
}

type CreateReservationCommand struct {
	Contact      ContactInput `validate:"required"`
	Items        []ItemInput  `validate:"required,min=1,dive"`
	DepositInCFA int64        `validate:"gte=0"`
	Onsite       bool
	ActorID      string
	Notes        string
	IdemKey      string
}

func (CreateReservationCommand) Key() string { return createReservationKey }

func (c CreateReservationCommand) IdempotencyKey() string { return c.IdemKey }

func (CreateReservationCommand) ResultPrototype() any { return &dto.Reservation{} }

func (c CreateReservationCommand) contact() domain.Contact {
	if c.Contact.GuestID != "" {
		return domain.Registered(c.Contact.GuestID, c.Contact.Name, c.Contact.Email)
	}
	return domain.WalkIn(c.Contact.Name, c.Contact.Email, c.Contact.Phone)
}

type CreateHandler struct {
	*Service
}

// Handle validates availability, then claims the room nights, persists the
// reservation, holds its rooms and issues the invoice. A failing step undoes
// the ones before it. The invoice mail goes out after commit.
func (h CreateHandler) Handle(ctx context.Context, cmd CreateReservationCommand) (*dto.Reservation, error) {
	if cmd.Onsite && cmd.ActorID == "" {
		return nil, apperr.Validation(nil, "onsite reservations require an acting staff member")
	}
	var result *dto.Reservation
	err := withinUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		res, err := h.create(ctx, unit, cmd)
		result = res
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (h CreateHandler) create(ctx context.Context, unit uow.UnitOfWork, cmd CreateReservationCommand) (*dto.Reservation, error) {
	items := toItems(cmd.Items)
	if err := h.Availability.Validate(ctx, unit, domain.StaysOf(items), ""); err != nil {
		return nil, err
	}
	reference, err := domain.AllocateReference(ctx, unit.Reservations(), h.References)
	if err != nil {
		if errors.Is(err, domain.ErrReferenceExhausted) {
			return nil, apperr.Internal(err, "could not allocate a booking reference")
		}
		return nil, err
	}
	now := h.now()
	createdBy := ""
	if cmd.Onsite {
		createdBy = cmd.ActorID
	}
	r, err := domain.New(domain.CreateParams{
		ID:        domain.ID(h.newID()),
		Reference: reference,
		Contact:   cmd.contact(),
		Items:     items,
		Deposit:   money.Francs(cmd.DepositInCFA),
		Onsite:    cmd.Onsite,
		CreatedBy: createdBy,
		Notes:     cmd.Notes,
		CreatedAt: now,
	})
	if err != nil {
		return nil, domainError(err)
	}
	current, err := h.CurrentSettings(ctx)
	if err != nil {
		return nil, err
	}
	ttl := h.lockTTL(current)

	var invoice *billing.Invoice
	held := make([]string, 0)
	runner := saga.Runner{Name: "reservation.create", Logger: h.logger()}
	err = runner.Run(ctx,
		saga.Step{
			Name:       "claim room nights",
			Execute:    func(ctx context.Context) error { return unit.Ledger().Claim(ctx, r.ID, r.Stays()) },
			Compensate: func(ctx context.Context) error { return unit.Ledger().Release(ctx, r.ID) },
		},
		saga.Step{
			Name:       "persist reservation",
			Execute:    func(ctx context.Context) error { return unit.Reservations().Save(ctx, r) },
			Compensate: func(ctx context.Context) error { return unit.Reservations().Delete(ctx, r.ID) },
		},
		saga.Step{
			Name: "hold rooms",
			Execute: func(ctx context.Context) error {
				for _, id := range r.RoomIDs() {
					room, err := unit.Rooms().ByID(ctx, id)
					if err != nil {
						return err
					}
					if r.Status == domain.StatusPending {
						err = room.Acquire(string(r.ID), ttl, now)
					} else {
						err = room.Reserve(string(r.ID), now)
					}
					if err != nil {
						return apperr.Conflicting(err, "room %s could not be held", id)
					}
					if err := unit.Rooms().Save(ctx, room); err != nil {
						return err
					}
					held = append(held, string(id))
				}
				return nil
			},
			Compensate: func(ctx context.Context) error {
				return h.releaseRooms(ctx, unit, r, r.RoomIDs(), now)
			},
		},
		saga.Step{
			Name: "issue invoice",
			Execute: func(ctx context.Context) error {
				inv, err := h.Issuer.Issue(ctx, unit, r)
				invoice = inv
				return err
			},
			Compensate: func(ctx context.Context) error {
				if invoice == nil {
					return nil
				}
				if invoice.PaymentLinkID != "" {
					if err := h.expireLink(ctx, invoice.PaymentLinkID); err != nil {
						h.logger().Warn("payment link left open after rollback", "reservation_id", r.ID, "trans_id", invoice.PaymentLinkID, "error", err)
					}
				}
				return unit.Invoices().Delete(ctx, invoice.ID)
			},
		},
		saga.Step{
			Name:    "record events",
			Execute: func(ctx context.Context) error { return h.record(ctx, r) },
		},
	)
	if err != nil {
		return nil, domainError(err)
	}

	h.logger().InfoContext(ctx, "reservation created",
		"reservation_id", r.ID, "reference", r.Reference, "status", r.Status, "rooms", held)
	msg := notify.Invoice(r, invoice)
	mailer := h.Mailer
	unit.AfterCommit(func(ctx context.Context) { mailer.Send(ctx, msg) })

	out := dto.MapReservation(r)
	out.Invoice = dto.MapInvoice(invoice)
	return &out, nil
}

var _ commands.Handler[CreateReservationCommand, *dto.Reservation] = CreateHandler{}
var _ middleware.IdempotentCommand = CreateReservationCommand{}
