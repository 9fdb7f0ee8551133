package reservations

import (
	"context"
	"errors"
	"time"

	"resortops/internal/app/apperr"
	"resortops/internal/app/dto"
	"resortops/internal/app/uow"
	"resortops/internal/domain/billing"
	domain "resortops/internal/domain/reservations"
	"resortops/internal/domain/shared/daterange"
)

const (
	checkInKey  = "reservations.check_in"
	checkOutKey = "reservations.check_out"
)

type CheckInCommand struct {
	ReservationID string `validate:"required"`
	ActorID       string
}

func (CheckInCommand) Key() string { return checkInKey }

type CheckOutCommand struct {
	ReservationID string `validate:"required"`
	ActorID       string
}

func (CheckOutCommand) Key() string { return checkOutKey }

type CheckInHandler struct {
	*Service
}

// Handle checks a confirmed guest in from the check-in day onward and marks
// every room occupied.
func (h CheckInHandler) Handle(ctx context.Context, cmd CheckInCommand) (*dto.Reservation, error) {
	var result *dto.Reservation
	err := withinUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		r, err := h.load(ctx, unit, cmd.ReservationID)
		if err != nil {
			return err
		}
		now := h.now()
		if now.Before(daterange.Midnight(r.Range.CheckIn)) {
			return apperr.Conflicting(domain.ErrInvalidState, "reservation %s cannot be checked in before %s",
				r.ID, r.Range.CheckIn.Format("2006-01-02"))
		}
		if err := r.CheckIn(now); err != nil {
			return domainError(err)
		}
		if err := unit.Reservations().Save(ctx, r); err != nil {
			return domainError(err)
		}
		for _, id := range r.RoomIDs() {
			room, err := unit.Rooms().ByID(ctx, id)
			if err != nil {
				return err
			}
			if err := room.Occupy(now); err != nil {
				return apperr.Conflicting(err, "room %s cannot be occupied while %s", id, room.Status)
			}
			if err := unit.Rooms().Save(ctx, room); err != nil {
				return err
			}
		}
		if err := h.record(ctx, r); err != nil {
			return err
		}
		h.logger().InfoContext(ctx, "reservation checked in", "reservation_id", r.ID, "actor", cmd.ActorID)
		out := dto.MapReservation(r)
		result = &out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

type CheckOutHandler struct {
	*Service
}

// Handle checks a guest out, frees every room and drops the night claims.
func (h CheckOutHandler) Handle(ctx context.Context, cmd CheckOutCommand) (*dto.Reservation, error) {
	var result *dto.Reservation
	err := withinUnit(ctx, h.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		r, err := h.load(ctx, unit, cmd.ReservationID)
		if err != nil {
			return err
		}
		now := h.now()
		if err := h.Complete(ctx, unit, r, now); err != nil {
			return err
		}
		h.logger().InfoContext(ctx, "reservation checked out", "reservation_id", r.ID, "actor", cmd.ActorID)
		out := dto.MapReservation(r)
		result = &out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Complete checks r out and vacates its rooms. The completion sweep shares it
// with the front desk.
func (s *Service) Complete(ctx context.Context, unit uow.UnitOfWork, r *domain.Reservation, now time.Time) error {
	if err := r.CheckOut(now); err != nil {
		return domainError(err)
	}
	if err := unit.Reservations().Save(ctx, r); err != nil {
		return domainError(err)
	}
	for _, id := range r.RoomIDs() {
		room, err := unit.Rooms().ByID(ctx, id)
		if err != nil {
			return err
		}
		if room.Lock != nil && !room.HeldBy(string(r.ID)) && !room.IsLockExpired(now) {
			continue
		}
		if !room.Vacate(now) {
			continue
		}
		if err := unit.Rooms().Save(ctx, room); err != nil {
			return err
		}
	}
	if err := unit.Ledger().Release(ctx, r.ID); err != nil {
		return err
	}
	return s.record(ctx, r)
}

// RecordNoShow marks a confirmed reservation as a no-show and frees its rooms.
func (s *Service) RecordNoShow(ctx context.Context, unit uow.UnitOfWork, r *domain.Reservation, now time.Time) error {
	if err := r.MarkNoShow(now); err != nil {
		return domainError(err)
	}
	if err := unit.Reservations().Save(ctx, r); err != nil {
		return domainError(err)
	}
	if err := s.releaseRooms(ctx, unit, r, r.RoomIDs(), now); err != nil {
		return err
	}
	if err := unit.Ledger().Release(ctx, r.ID); err != nil {
		return err
	}
	return s.record(ctx, r)
}

// ExpireHold ends a pending reservation whose lock lapsed and drops its
// payment link and night claims. Rooms are left to the caller. A link the
// provider refuses to expire is logged and the hold still ends; a late
// deposit on it is refused because the reservation is no longer pending.
func (s *Service) ExpireHold(ctx context.Context, unit uow.UnitOfWork, r *domain.Reservation, now time.Time) error {
	inv, err := unit.Invoices().ByReservation(ctx, r.ID)
	switch {
	case err == nil && inv.PaymentLinkID != "":
		if err := s.expireLink(ctx, inv.PaymentLinkID); err != nil {
			s.logger().WarnContext(ctx, "payment link left open on expired hold",
				"reservation_id", r.ID, "trans_id", inv.PaymentLinkID, "error", err)
		}
	case err != nil && !errors.Is(err, billing.ErrInvoiceNotFound):
		return err
	}
	if err := r.Expire(now); err != nil {
		return domainError(err)
	}
	if err := unit.Reservations().Save(ctx, r); err != nil {
		return domainError(err)
	}
	if err := unit.Ledger().Release(ctx, r.ID); err != nil {
		return err
	}
	return s.record(ctx, r)
}

func (s *Service) expireLink(ctx context.Context, transID string) error {
	if s.Payments == nil {
		return apperr.Unavailable(nil, "payment provider is not configured")
	}
	if err := s.Payments.ExpirePay(ctx, transID); err != nil {
		return apperr.Unavailable(err, "payment link %s could not be expired", transID)
	}
	return nil
}
