package reservations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"resortops/internal/app/apperr"
	"resortops/internal/app/availability"
	appbilling "resortops/internal/app/billing"
	"resortops/internal/app/notify"
	"resortops/internal/app/outbox"
	"resortops/internal/app/policies"
	"resortops/internal/app/uow"
	"resortops/internal/domain/billing"
	domain "resortops/internal/domain/reservations"
	"resortops/internal/domain/rooms"
	"resortops/internal/domain/settings"
	"resortops/internal/domain/shared/daterange"
)

// DefaultLockTTL applies when the settings document does not set expireAfter.
const DefaultLockTTL = 30 * time.Minute

// Service holds what every reservation command and query needs.
type Service struct {
	UoWFactory   uow.UoWFactory
	Availability availability.Validator
	Issuer       appbilling.Issuer
	Reconciler   appbilling.Reconciler
	Payments     policies.PaymentGateway
	Settings     settings.Provider
	Mailer       notify.Mailer
	Outbox       outbox.Outbox
	Encoder      outbox.EventEncoder
	References   domain.ReferenceSource
	LockTTL      time.Duration
	Logger       *slog.Logger
	NewID        func() string
	Now          func() time.Time
}

type RoomStayInput struct {
	Room     string    `json:"room" validate:"required"`
	CheckIn  time.Time `json:"checkIn" validate:"required"`
	CheckOut time.Time `json:"checkOut" validate:"required"`
}

type ItemInput struct {
	RoomType string          `json:"roomType" validate:"required"`
	Rate     string          `json:"rate" validate:"required"`
	Rooms    []RoomStayInput `json:"rooms" validate:"required,min=1,dive"`
}

func toItems(in []ItemInput) []domain.Item {
	out := make([]domain.Item, 0, len(in))
	for _, item := range in {
		stays := make([]domain.RoomStay, 0, len(item.Rooms))
		for _, r := range item.Rooms {
			stays = append(stays, domain.RoomStay{
				Room:  rooms.RoomID(r.Room),
				Range: daterange.DateRange{CheckIn: r.CheckIn.UTC(), CheckOut: r.CheckOut.UTC()},
			})
		}
		out = append(out, domain.Item{RoomType: item.RoomType, Rate: item.Rate, Rooms: stays})
	}
	return out
}

func (s *Service) load(ctx context.Context, unit uow.UnitOfWork, id string) (*domain.Reservation, error) {
	r, err := unit.Reservations().ByID(ctx, domain.ID(id))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, apperr.NotFound(err, "reservation %s not found", id)
		}
		return nil, err
	}
	return r, nil
}

func (s *Service) invoiceOf(ctx context.Context, unit uow.UnitOfWork, id domain.ID) (*billing.Invoice, error) {
	inv, err := unit.Invoices().ByReservation(ctx, id)
	if err != nil {
		if errors.Is(err, billing.ErrInvoiceNotFound) {
			return nil, apperr.NotFound(err, "invoice for reservation %s not found", id)
		}
		return nil, err
	}
	return inv, nil
}

// reserveRooms pins every room of r as reserved for a confirmed stay.
func (s *Service) reserveRooms(ctx context.Context, unit uow.UnitOfWork, r *domain.Reservation, ids []rooms.RoomID, now time.Time) error {
	for _, id := range ids {
		room, err := unit.Rooms().ByID(ctx, id)
		if err != nil {
			return err
		}
		if err := room.Reserve(string(r.ID), now); err != nil {
			return apperr.Conflicting(err, "room %s cannot be reserved", id)
		}
		if err := unit.Rooms().Save(ctx, room); err != nil {
			return err
		}
	}
	return nil
}

// releaseRooms frees the rooms of r, leaving alone any room another
// reservation currently holds a live lock on.
func (s *Service) releaseRooms(ctx context.Context, unit uow.UnitOfWork, r *domain.Reservation, ids []rooms.RoomID, now time.Time) error {
	for _, id := range ids {
		room, err := unit.Rooms().ByID(ctx, id)
		if err != nil {
			if errors.Is(err, rooms.ErrNotFound) {
				continue
			}
			return err
		}
		if room.Lock != nil && !room.HeldBy(string(r.ID)) && !room.IsLockExpired(now) {
			continue
		}
		if !room.Release(now) {
			continue
		}
		if err := unit.Rooms().Save(ctx, room); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) record(ctx context.Context, aggregates ...outbox.Recorder) error {
	encoder := s.Encoder
	if encoder == nil {
		encoder = outbox.JSONEventEncoder{}
	}
	return outbox.Record(ctx, s.Outbox, encoder, aggregates...)
}

// CurrentSettings returns the admin settings, or the defaults when no provider is set.
func (s *Service) CurrentSettings(ctx context.Context) (settings.Settings, error) {
	if s.Settings == nil {
		return settings.Defaults(), nil
	}
	current, err := s.Settings.Current(ctx)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("load settings: %w", err)
	}
	return current, nil
}

func (s *Service) lockTTL(current settings.Settings) time.Duration {
	fallback := s.LockTTL
	if fallback <= 0 {
		fallback = DefaultLockTTL
	}
	return current.LockTTL(fallback)
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func (s *Service) newID() string {
	if s.NewID != nil {
		return s.NewID()
	}
	return uuid.NewString()
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// domainError maps domain sentinels to client-facing kinds.
func domainError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	var taken *domain.TakenError
	switch {
	case errors.As(err, &taken):
		return apperr.Conflicting(err, "%s", taken.Error())
	case errors.Is(err, domain.ErrInvalidState):
		return apperr.Conflicting(err, "reservation is not in a state that allows this action")
	case errors.Is(err, domain.ErrNotRefundable), errors.Is(err, domain.ErrRefundWindowClosed):
		return apperr.Policy(err, "cancellation is not allowed by the cancellation policy")
	case errors.Is(err, domain.ErrNightTaken), errors.Is(err, domain.ErrReferenceTaken):
		return apperr.Conflicting(err, "reservation conflicts with a concurrent booking")
	case errors.Is(err, uow.ErrConcurrentUpdate):
		return apperr.Conflicting(err, "the reservation was modified concurrently, retry")
	case errors.Is(err, domain.ErrNoItems),
		errors.Is(err, domain.ErrMissingRoomType),
		errors.Is(err, domain.ErrMissingRoomInput),
		errors.Is(err, domain.ErrDuplicateRoom),
		errors.Is(err, domain.ErrStayOutsideStay),
		errors.Is(err, domain.ErrInvalidDeposit),
		errors.Is(err, domain.ErrContactRequired),
		errors.Is(err, domain.ErrInvalidEmail),
		errors.Is(err, daterange.ErrInvalidRange):
		return apperr.Validation(err, "%s", err.Error())
	}
	return err
}
