package reservations

import (
	"time"

	"resortops/internal/domain/rooms"
	"resortops/internal/domain/shared/daterange"
	"resortops/internal/domain/shared/money"
)

type Created struct {
	ReservationID ID
	Reference     string
	Status        Status
	Range         daterange.DateRange
	Rooms         []rooms.RoomID
	At            time.Time
}

func (e Created) EventName() string     { return "reservation.created" }
func (e Created) AggregateID() string   { return string(e.ReservationID) }
func (e Created) OccurredAt() time.Time { return e.At }

type Confirmed struct {
	ReservationID ID
	At            time.Time
}

func (e Confirmed) EventName() string     { return "reservation.confirmed" }
func (e Confirmed) AggregateID() string   { return string(e.ReservationID) }
func (e Confirmed) OccurredAt() time.Time { return e.At }

type Canceled struct {
	ReservationID ID
	Reason        string
	Refund        money.Money
	At            time.Time
}

func (e Canceled) EventName() string     { return "reservation.canceled" }
func (e Canceled) AggregateID() string   { return string(e.ReservationID) }
func (e Canceled) OccurredAt() time.Time { return e.At }

type Expired struct {
	ReservationID ID
	At            time.Time
}

func (e Expired) EventName() string     { return "reservation.expired" }
func (e Expired) AggregateID() string   { return string(e.ReservationID) }
func (e Expired) OccurredAt() time.Time { return e.At }

type NoShowRecorded struct {
	ReservationID ID
	At            time.Time
}

func (e NoShowRecorded) EventName() string     { return "reservation.no_show" }
func (e NoShowRecorded) AggregateID() string   { return string(e.ReservationID) }
func (e NoShowRecorded) OccurredAt() time.Time { return e.At }

type CheckedIn struct {
	ReservationID ID
	At            time.Time
}

func (e CheckedIn) EventName() string     { return "reservation.checked_in" }
func (e CheckedIn) AggregateID() string   { return string(e.ReservationID) }
func (e CheckedIn) OccurredAt() time.Time { return e.At }

type CheckedOut struct {
	ReservationID ID
	At            time.Time
}

func (e CheckedOut) EventName() string     { return "reservation.checked_out" }
func (e CheckedOut) AggregateID() string   { return string(e.ReservationID) }
func (e CheckedOut) OccurredAt() time.Time { return e.At }

type RoomsUpdated struct {
	ReservationID ID
	Rooms         []rooms.RoomID
	At            time.Time
}

func (e RoomsUpdated) EventName() string     { return "reservation.rooms_updated" }
func (e RoomsUpdated) AggregateID() string   { return string(e.ReservationID) }
func (e RoomsUpdated) OccurredAt() time.Time { return e.At }
