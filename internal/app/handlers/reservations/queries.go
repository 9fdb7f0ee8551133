package reservations

import (
	"context"
	"time"

	"resortops/internal/app/apperr"
	"resortops/internal/app/dto"
	"resortops/internal/app/queries"
	"resortops/internal/app/support"
	domainavailability "resortops/internal/domain/availability"
	domain "resortops/internal/domain/reservations"
	"resortops/internal/domain/shared/daterange"
)

const (
	getReservationKey   = "reservations.get"
	listReservationsKey = "reservations.list"
	calendarKey         = "reservations.calendar"

	defaultListLimit = 100
	maxCalendarDays  = 92
)

type GetReservationQuery struct {
	ReservationID string `validate:"required"`
}

func (GetReservationQuery) Key() string { return getReservationKey }

type GetReservationHandler struct {
	*Service
}

func (h GetReservationHandler) Handle(ctx context.Context, q GetReservationQuery) (*dto.Reservation, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	r, err := h.load(execCtx, unit, q.ReservationID)
	if err != nil {
		return nil, err
	}
	out := dto.MapReservation(r)
	if inv, err := unit.Invoices().ByReservation(execCtx, r.ID); err == nil {
		out.Invoice = dto.MapInvoice(inv)
	}
	return &out, nil
}

type ListReservationsQuery struct {
	Statuses []string
	From     time.Time
	To       time.Time
	Limit    int `validate:"gte=0,lte=500"`
}

func (ListReservationsQuery) Key() string { return listReservationsKey }

type ListReservationsHandler struct {
	*Service
}

func (h ListReservationsHandler) Handle(ctx context.Context, q ListReservationsQuery) (*dto.ReservationCollection, error) {
	filter := domain.Filter{From: q.From.UTC(), To: q.To.UTC(), Limit: q.Limit}
	if filter.Limit == 0 {
		filter.Limit = defaultListLimit
	}
	for _, raw := range q.Statuses {
		status := domain.Status(raw)
		if !status.Valid() {
			return nil, apperr.Validation(nil, "unknown reservation status %q", raw)
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	list, err := unit.Reservations().List(execCtx, filter)
	if err != nil {
		return nil, err
	}
	out := &dto.ReservationCollection{Items: make([]dto.Reservation, 0, len(list))}
	for _, r := range list {
		out.Items = append(out.Items, dto.MapReservation(r))
	}
	return out, nil
}

// CalendarQuery asks for the room occupancy grid of [From, To).
type CalendarQuery struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required"`
}

func (CalendarQuery) Key() string { return calendarKey }

type CalendarHandler struct {
	*Service
}

func (h CalendarHandler) Handle(ctx context.Context, q CalendarQuery) (*dto.Calendar, error) {
	window, err := daterange.New(daterange.Midnight(q.From), daterange.Midnight(q.To))
	if err != nil {
		return nil, apperr.Validation(err, "calendar window must end after it starts")
	}
	if window.Nights() > maxCalendarDays {
		return nil, apperr.Validation(nil, "calendar window cannot exceed %d days", maxCalendarDays)
	}
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	roomList, err := unit.Rooms().List(execCtx)
	if err != nil {
		return nil, err
	}
	existing, err := unit.Reservations().List(execCtx, domain.Filter{
		Statuses: domain.HoldingStatuses,
		From:     window.CheckIn,
		To:       window.CheckOut,
	})
	if err != nil {
		return nil, err
	}
	cal := dto.MapCalendar(domainavailability.BuildCalendar(window, roomList, existing))
	return &cal, nil
}

var (
	_ queries.Handler[GetReservationQuery, *dto.Reservation]             = GetReservationHandler{}
	_ queries.Handler[ListReservationsQuery, *dto.ReservationCollection] = ListReservationsHandler{}
	_ queries.Handler[CalendarQuery, *dto.Calendar]                      = CalendarHandler{}
)
