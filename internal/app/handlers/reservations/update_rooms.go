package reservations

import (
	"context"

	"resortops/internal/app/apperr"
	"resortops/internal/app/dto"
	"resortops/internal/app/notify"
	"resortops/internal/app/saga"
	"resortops/internal/app/uow"
	domain "resortops/internal/domain/reservations"
	"resortops/internal/domain/rooms"
)

const updateRoomsKey = "reservations.update_rooms"

type UpdateRoomsCommand struct {
	ReservationID string      `validate:"required"`
	Items         []ItemInput `validate:"required,min=1,dive"`
	ActorID       string
}

func (UpdateRoomsCommand) Key() string { return updateRoomsKey }

type UpdateRoomsHandler struct {
	*Service
}

// Handle reassigns the rooms of a confirmed reservation inside its own stay
// window and reprices the invoice. Every write is undone if a later one fails.
func (h UpdateRoomsHandler) Handle(ctx context.Context, cmd UpdateRoomsCommand) (*dto.Reservation, error) {
	var result *dto.Reservation
	err := withinUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		r, err := h.load(ctx, unit, cmd.ReservationID)
		if err != nil {
			return err
		}
		if r.Status != domain.StatusConfirmed {
			return apperr.Conflicting(domain.ErrInvalidState, "reservation %s is %s, only confirmed reservations can change rooms", r.ID, r.Status)
		}
		items := toItems(cmd.Items)
		if err := r.ValidateWindow(items); err != nil {
			return apperr.Validation(err, "every room must stay within the reservation's check-in and check-out dates")
		}
		newStays := domain.StaysOf(items)
		if err := h.Availability.Validate(ctx, unit, newStays, r.ID); err != nil {
			return err
		}
		inv, err := h.invoiceOf(ctx, unit, r.ID)
		if err != nil {
			return err
		}
		breakdown, err := h.Issuer.Quote(ctx, unit, items)
		if err != nil {
			return err
		}

		now := h.now()
		oldStays := r.Stays()
		oldRooms := r.RoomIDs()
		added, removed := diffRooms(oldRooms, domain.DistinctRooms(items))
		var previous []domain.Item
		prevInvoice := inv.Clone()

		runner := saga.Runner{Name: "reservation.update_rooms", Logger: h.logger()}
		err = runner.Run(ctx,
			saga.Step{
				Name: "swap items",
				Execute: func(ctx context.Context) error {
					prev, err := r.ReplaceItems(items, now)
					previous = prev
					return err
				},
				Compensate: func(ctx context.Context) error {
					r.RestoreItems(previous, now)
					return nil
				},
			},
			saga.Step{
				Name:       "claim new room nights",
				Execute:    func(ctx context.Context) error { return unit.Ledger().Claim(ctx, r.ID, newStays) },
				Compensate: func(ctx context.Context) error { return unit.Ledger().Retain(ctx, r.ID, oldStays) },
			},
			saga.Step{
				Name:    "persist reservation",
				Execute: func(ctx context.Context) error { return unit.Reservations().Save(ctx, r) },
				Compensate: func(ctx context.Context) error {
					r.RestoreItems(previous, now)
					return unit.Reservations().Save(ctx, r)
				},
			},
			saga.Step{
				Name:       "drop stale room nights",
				Execute:    func(ctx context.Context) error { return unit.Ledger().Retain(ctx, r.ID, newStays) },
				Compensate: func(ctx context.Context) error { return unit.Ledger().Claim(ctx, r.ID, oldStays) },
			},
			saga.Step{
				Name: "move room status",
				Execute: func(ctx context.Context) error {
					if err := h.reserveRooms(ctx, unit, r, added, now); err != nil {
						return err
					}
					return h.releaseRooms(ctx, unit, r, removed, now)
				},
				Compensate: func(ctx context.Context) error {
					if err := h.releaseRooms(ctx, unit, r, added, now); err != nil {
						return err
					}
					return h.reserveRooms(ctx, unit, r, removed, now)
				},
			},
			saga.Step{
				Name: "reprice invoice",
				Execute: func(ctx context.Context) error {
					inv.Reprice(breakdown, now)
					return unit.Invoices().Save(ctx, inv)
				},
				Compensate: func(ctx context.Context) error {
					restored := prevInvoice.Clone()
					restored.Version = inv.Version
					return unit.Invoices().Save(ctx, restored)
				},
			},
			saga.Step{
				Name:    "record events",
				Execute: func(ctx context.Context) error { return h.record(ctx, r) },
			},
		)
		if err != nil {
			return domainError(err)
		}

		h.logger().InfoContext(ctx, "reservation rooms updated",
			"reservation_id", r.ID, "added", added, "removed", removed, "actor", cmd.ActorID)
		msg := notify.Invoice(r, inv)
		mailer := h.Mailer
		unit.AfterCommit(func(ctx context.Context) { mailer.Send(ctx, msg) })

		out := dto.MapReservation(r)
		out.Invoice = dto.MapInvoice(inv)
		result = &out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// diffRooms reports the rooms only in next and the rooms only in prev.
func diffRooms(prev, next []rooms.RoomID) (added, removed []rooms.RoomID) {
	in := func(list []rooms.RoomID, id rooms.RoomID) bool {
		for _, v := range list {
			if v == id {
				return true
			}
		}
		return false
	}
	for _, id := range next {
		if !in(prev, id) {
			added = append(added, id)
		}
	}
	for _, id := range prev {
		if !in(next, id) {
			removed = append(removed, id)
		}
	}
	return added, removed
}
