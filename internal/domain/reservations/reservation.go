package reservations

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"resortops/internal/domain/rooms"
	"resortops/internal/domain/shared/daterange"
	"resortops/internal/domain/shared/events"
	"resortops/internal/domain/shared/money"
)

var (
	ErrNotFound         = errors.New("reservations: not found")
	ErrInvalidState     = errors.New("reservations: invalid state transition")
	ErrNoItems          = errors.New("reservations: at least one room is required")
	ErrInvalidDeposit   = errors.New("reservations: deposit cannot be negative")
	ErrStayOutsideStay  = errors.New("reservations: room dates must fall within the reservation window")
	ErrDuplicateRoom    = errors.New("reservations: room requested twice for overlapping dates")
	ErrReferenceTaken   = errors.New("reservations: booking reference already in use")
	ErrMissingRoomType  = errors.New("reservations: item room type and rate are required")
	ErrMissingRoomInput = errors.New("reservations: room id is required")
)

type ID string

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCheckedIn  Status = "checked in"
	StatusCheckedOut Status = "checked out"
	StatusNoShowed   Status = "no showed"
	StatusCanceled   Status = "canceled"
	StatusExpired    Status = "expired"
)

// HoldingStatuses are the states in which a reservation keeps its rooms.
var HoldingStatuses = []Status{StatusPending, StatusConfirmed, StatusCheckedIn}

func (s Status) Terminal() bool {
	switch s {
	case StatusCheckedOut, StatusNoShowed, StatusCanceled, StatusExpired:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedIn, StatusCheckedOut, StatusNoShowed, StatusCanceled, StatusExpired:
		return true
	}
	return false
}

// RoomStay books one physical room for a half-open date range.
type RoomStay struct {
	Room  rooms.RoomID
	Range daterange.DateRange
}

// Item groups the rooms booked under one room type and rate.
type Item struct {
	RoomType string
	Rate     string
	Rooms    []RoomStay
}

type Reservation struct {
	ID        ID
	Reference string
	Status    Status
	Range     daterange.DateRange
	Contact   Contact
	Items     []Item
	Deposit   money.Money
	Onsite    bool
	CreatedBy string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
	Version   int64
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*Reservation, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	Save(ctx context.Context, r *Reservation) error
	Delete(ctx context.Context, id ID) error
	// HoldingRooms returns reservations in one of statuses with at least one stay on any of roomIDs.
	HoldingRooms(ctx context.Context, roomIDs []rooms.RoomID, statuses []Status) ([]*Reservation, error)
	// DueForCompletion returns checked-in or confirmed reservations whose check-in is at or before now.
	DueForCompletion(ctx context.Context, now time.Time) ([]*Reservation, error)
	List(ctx context.Context, filter Filter) ([]*Reservation, error)
}

// Filter narrows List results. Zero fields are ignored; From/To select
// reservations whose window overlaps [From, To).
type Filter struct {
	Statuses []Status
	From     time.Time
	To       time.Time
	Limit    int
}

type CreateParams struct {
	ID        ID
	Reference string
	Range     daterange.DateRange
	Contact   Contact
	Items     []Item
	Deposit   money.Money
	Onsite    bool
	CreatedBy string
	Notes     string
	CreatedAt time.Time
}

// New builds a reservation. Online bookings start pending; onsite bookings made
// by staff start confirmed. An empty range is derived from the stays.
func New(params CreateParams) (*Reservation, error) {
	if err := params.Contact.Validate(); err != nil {
		return nil, err
	}
	if err := validateItems(params.Items); err != nil {
		return nil, err
	}
	if params.Deposit.IsNegative() {
		return nil, ErrInvalidDeposit
	}
	dr := params.Range
	if dr.IsZero() {
		dr = daterange.Span(rangesOf(params.Items)...)
	}
	if err := dr.Validate(); err != nil {
		return nil, err
	}
	now := params.CreatedAt.UTC()
	status := StatusPending
	if params.Onsite {
		status = StatusConfirmed
	}
	r := &Reservation{
		ID:        params.ID,
		Reference: params.Reference,
		Status:    status,
		Range:     dr,
		Contact:   params.Contact,
		Items:     cloneItems(params.Items),
		Deposit:   params.Deposit,
		Onsite:    params.Onsite,
		CreatedBy: params.CreatedBy,
		Notes:     strings.TrimSpace(params.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.Record(Created{ReservationID: r.ID, Reference: r.Reference, Status: r.Status, Range: r.Range, Rooms: r.RoomIDs(), At: now})
	return r, nil
}

// Stays flattens every room stay across items, in item order.
func (r *Reservation) Stays() []RoomStay {
	return staysOf(r.Items)
}

// RoomIDs lists the distinct rooms referenced by the reservation.
func (r *Reservation) RoomIDs() []rooms.RoomID {
	return distinctRooms(r.Items)
}

func (r *Reservation) HasRoom(id rooms.RoomID) bool {
	for _, stay := range r.Stays() {
		if stay.Room == id {
			return true
		}
	}
	return false
}

// Confirm promotes a pending reservation once its deposit has been paid.
func (r *Reservation) Confirm(now time.Time) error {
	if r.Status != StatusPending {
		return fmt.Errorf("%w: cannot confirm %s reservation", ErrInvalidState, r.Status)
	}
	return r.transition(StatusConfirmed, now, Confirmed{ReservationID: r.ID, At: now.UTC()})
}

// Cancel terminates a confirmed reservation; refund is what the guest gets back.
func (r *Reservation) Cancel(reason string, refund money.Money, now time.Time) error {
	if r.Status != StatusConfirmed {
		return fmt.Errorf("%w: cannot cancel %s reservation", ErrInvalidState, r.Status)
	}
	return r.transition(StatusCanceled, now, Canceled{ReservationID: r.ID, Reason: reason, Refund: refund, At: now.UTC()})
}

func (r *Reservation) CheckIn(now time.Time) error {
	if r.Status != StatusConfirmed {
		return fmt.Errorf("%w: cannot check in %s reservation", ErrInvalidState, r.Status)
	}
	return r.transition(StatusCheckedIn, now, CheckedIn{ReservationID: r.ID, At: now.UTC()})
}

func (r *Reservation) CheckOut(now time.Time) error {
	if r.Status != StatusCheckedIn {
		return fmt.Errorf("%w: cannot check out %s reservation", ErrInvalidState, r.Status)
	}
	return r.transition(StatusCheckedOut, now, CheckedOut{ReservationID: r.ID, At: now.UTC()})
}

func (r *Reservation) MarkNoShow(now time.Time) error {
	if r.Status != StatusConfirmed {
		return fmt.Errorf("%w: cannot mark %s reservation as no-show", ErrInvalidState, r.Status)
	}
	return r.transition(StatusNoShowed, now, NoShowRecorded{ReservationID: r.ID, At: now.UTC()})
}

// Expire ends a pending reservation whose room hold lapsed before payment.
func (r *Reservation) Expire(now time.Time) error {
	if r.Status != StatusPending {
		return fmt.Errorf("%w: cannot expire %s reservation", ErrInvalidState, r.Status)
	}
	return r.transition(StatusExpired, now, Expired{ReservationID: r.ID, At: now.UTC()})
}

// NoShowDeadline is the instant after which a confirmed guest who never arrived is a no-show.
func (r *Reservation) NoShowDeadline(grace time.Duration) time.Time {
	return r.Range.CheckIn.Add(grace)
}

// ValidateWindow checks that every stay lies inside the reservation's own window.
func (r *Reservation) ValidateWindow(items []Item) error {
	for _, stay := range staysOf(items) {
		if !r.Range.Contains(stay.Range) {
			return fmt.Errorf("%w: room %s %s..%s", ErrStayOutsideStay, stay.Room,
				stay.Range.CheckIn.Format(time.RFC3339), stay.Range.CheckOut.Format(time.RFC3339))
		}
	}
	return nil
}

// ReplaceItems swaps the booked rooms of a confirmed reservation and returns the
// previous items so a failed follow-up step can restore them.
func (r *Reservation) ReplaceItems(items []Item, now time.Time) ([]Item, error) {
	if r.Status != StatusConfirmed {
		return nil, fmt.Errorf("%w: rooms can only be changed on confirmed reservations", ErrInvalidState)
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}
	if err := r.ValidateWindow(items); err != nil {
		return nil, err
	}
	previous := r.Items
	r.Items = cloneItems(items)
	r.UpdatedAt = now.UTC()
	r.Record(RoomsUpdated{ReservationID: r.ID, Rooms: r.RoomIDs(), At: r.UpdatedAt})
	return previous, nil
}

// RestoreItems undoes ReplaceItems.
func (r *Reservation) RestoreItems(items []Item, now time.Time) {
	r.Items = cloneItems(items)
	r.UpdatedAt = now.UTC()
}

func (r *Reservation) Clone() *Reservation {
	if r == nil {
		return nil
	}
	clone := &Reservation{
		ID:        r.ID,
		Reference: r.Reference,
		Status:    r.Status,
		Range:     r.Range,
		Contact:   r.Contact,
		Items:     cloneItems(r.Items),
		Deposit:   r.Deposit,
		Onsite:    r.Onsite,
		CreatedBy: r.CreatedBy,
		Notes:     r.Notes,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Version:   r.Version,
	}
	return clone
}

func (r *Reservation) transition(to Status, now time.Time, ev events.DomainEvent) error {
	r.Status = to
	r.UpdatedAt = now.UTC()
	r.Record(ev)
	return nil
}

func validateItems(items []Item) error {
	if len(items) == 0 {
		return ErrNoItems
	}
	for _, item := range items {
		if strings.TrimSpace(item.RoomType) == "" || strings.TrimSpace(item.Rate) == "" {
			return ErrMissingRoomType
		}
		if len(item.Rooms) == 0 {
			return ErrNoItems
		}
		for _, stay := range item.Rooms {
			if strings.TrimSpace(string(stay.Room)) == "" {
				return ErrMissingRoomInput
			}
			if err := stay.Range.Validate(); err != nil {
				return fmt.Errorf("room %s: %w", stay.Room, err)
			}
		}
	}
	stays := staysOf(items)
	for i := range stays {
		for j := i + 1; j < len(stays); j++ {
			if stays[i].Room == stays[j].Room && stays[i].Range.Overlaps(stays[j].Range) {
				return fmt.Errorf("%w: %s", ErrDuplicateRoom, stays[i].Room)
			}
		}
	}
	return nil
}

func staysOf(items []Item) []RoomStay {
	var out []RoomStay
	for _, item := range items {
		out = append(out, item.Rooms...)
	}
	return out
}

func rangesOf(items []Item) []daterange.DateRange {
	stays := staysOf(items)
	out := make([]daterange.DateRange, 0, len(stays))
	for _, s := range stays {
		out = append(out, s.Range)
	}
	return out
}

func distinctRooms(items []Item) []rooms.RoomID {
	seen := make(map[rooms.RoomID]struct{})
	var out []rooms.RoomID
	for _, stay := range staysOf(items) {
		if _, ok := seen[stay.Room]; ok {
			continue
		}
		seen[stay.Room] = struct{}{}
		out = append(out, stay.Room)
	}
	return out
}

func cloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = Item{RoomType: item.RoomType, Rate: item.Rate, Rooms: append([]RoomStay(nil), item.Rooms...)}
	}
	return out
}

// DistinctRooms lists the distinct rooms referenced by items.
func DistinctRooms(items []Item) []rooms.RoomID {
	return distinctRooms(items)
}

// StaysOf flattens the stays of items.
func StaysOf(items []Item) []RoomStay {
	return staysOf(items)
}
