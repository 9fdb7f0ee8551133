package reservations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"resortops/internal/domain/rooms"
)

var ErrNightTaken = errors.New("reservations: room night already held by another reservation")

// NightLedger records one claim per (room, night) so two holding reservations
// can never share a room night, whatever the interleaving of requests.
type NightLedger interface {
	// Claim takes every night of stays for reservation. Nights already held by
	// the same reservation are accepted. On conflict nothing new is kept.
	Claim(ctx context.Context, reservation ID, stays []RoomStay) error
	// Retain drops the reservation's claims that are not covered by stays.
	Retain(ctx context.Context, reservation ID, stays []RoomStay) error
	// Release drops every claim held by reservation.
	Release(ctx context.Context, reservation ID) error
}

// Night is one claimable (room, date) slot.
type Night struct {
	Room rooms.RoomID
	Date time.Time
}

func (n Night) Key() string {
	return fmt.Sprintf("%s:%s", n.Room, n.Date.Format("2006-01-02"))
}

// NightsOf expands stays into their distinct room nights.
func NightsOf(stays []RoomStay) []Night {
	seen := make(map[string]struct{})
	var out []Night
	for _, stay := range stays {
		for _, date := range stay.Range.NightDates() {
			n := Night{Room: stay.Room, Date: date}
			if _, ok := seen[n.Key()]; ok {
				continue
			}
			seen[n.Key()] = struct{}{}
			out = append(out, n)
		}
	}
	return out
}

// TakenError names the night that could not be claimed.
type TakenError struct {
	Night  Night
	Holder ID
}

func (e *TakenError) Error() string {
	return fmt.Sprintf("room %s is already held on %s", e.Night.Room, e.Night.Date.Format("2006-01-02"))
}

func (e *TakenError) Unwrap() error { return ErrNightTaken }
