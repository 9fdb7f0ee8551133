package dto

import (
	"time"

	"resortops/internal/domain/reservations"
	"resortops/internal/domain/shared/money"
)

type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func MapMoney(value money.Money) Money {
	currency := value.Currency
	if currency == "" {
		currency = money.CFA
	}
	return Money{Amount: value.Amount, Currency: currency}
}

type Contact struct {
	Kind    string `json:"kind"`
	GuestID string `json:"guestId,omitempty"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
}

type RoomStay struct {
	Room     string    `json:"room"`
	CheckIn  time.Time `json:"checkIn"`
	CheckOut time.Time `json:"checkOut"`
}

type Item struct {
	RoomType string     `json:"roomType"`
	Rate     string     `json:"rate"`
	Rooms    []RoomStay `json:"rooms"`
}

type Reservation struct {
	ID           string    `json:"id"`
	Reference    string    `json:"reference"`
	Status       string    `json:"status"`
	CheckInDate  time.Time `json:"checkInDate"`
	CheckOutDate time.Time `json:"checkOutDate"`
	Contact      Contact   `json:"contact"`
	Items        []Item    `json:"items"`
	DepositInCFA int64     `json:"depositInCFA"`
	Onsite       bool      `json:"onsite"`
	CreatedBy    string    `json:"createdBy,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Invoice      *Invoice  `json:"invoice,omitempty"`
}

type ReservationCollection struct {
	Items []Reservation `json:"items"`
}

func MapReservation(r *reservations.Reservation) Reservation {
	items := make([]Item, 0, len(r.Items))
	for _, item := range r.Items {
		stays := make([]RoomStay, 0, len(item.Rooms))
		for _, stay := range item.Rooms {
			stays = append(stays, RoomStay{Room: string(stay.Room), CheckIn: stay.Range.CheckIn, CheckOut: stay.Range.CheckOut})
		}
		items = append(items, Item{RoomType: item.RoomType, Rate: item.Rate, Rooms: stays})
	}
	return Reservation{
		ID:           string(r.ID),
		Reference:    r.Reference,
		Status:       string(r.Status),
		CheckInDate:  r.Range.CheckIn,
		CheckOutDate: r.Range.CheckOut,
		Contact: Contact{
			Kind:    string(r.Contact.Kind),
			GuestID: r.Contact.GuestID,
			Name:    r.Contact.Name,
			Email:   r.Contact.Email,
			Phone:   r.Contact.Phone,
		},
		Items:        items,
		DepositInCFA: r.Deposit.Amount,
		Onsite:       r.Onsite,
		CreatedBy:    r.CreatedBy,
		Notes:        r.Notes,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

type Cancellation struct {
	Reservation Reservation `json:"reservation"`
	Refund      Money       `json:"refund"`
	Receipt     *Receipt    `json:"receipt,omitempty"`
}
