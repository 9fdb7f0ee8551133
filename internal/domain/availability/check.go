package availability

import (
	"fmt"

	"resortops/internal/domain/reservations"
	"resortops/internal/domain/rooms"
	"resortops/internal/domain/shared/daterange"
)

type Reason string

const (
	ReasonMalformedDates Reason = "malformed dates"
	ReasonRoomNotFound   Reason = "room not found"
	ReasonRoomNotFree    Reason = "room not free"
	ReasonAlreadyBooked  Reason = "room already booked"
)

// Conflict names one requested room that cannot be booked and why.
type Conflict struct {
	Room        rooms.RoomID
	Reason      Reason
	Range       daterange.DateRange
	Reservation reservations.ID
	Detail      string
}

func (c Conflict) String() string {
	switch c.Reason {
	case ReasonAlreadyBooked:
		return fmt.Sprintf("room %s is already booked by %s for an overlapping window", c.Room, c.Reservation)
	case ReasonRoomNotFree:
		return fmt.Sprintf("room %s is not free (%s)", c.Room, c.Detail)
	case ReasonMalformedDates:
		if c.Detail != "" {
			return fmt.Sprintf("room %s has malformed dates: %s", c.Room, c.Detail)
		}
		return fmt.Sprintf("room %s has malformed dates", c.Room)
	default:
		return fmt.Sprintf("room %s: %s", c.Room, c.Reason)
	}
}

// Snapshot is the state a check runs against: the referenced rooms and every
// holding reservation touching them.
type Snapshot struct {
	Rooms    map[rooms.RoomID]*rooms.Room
	Existing []*reservations.Reservation
}

// Check evaluates requested stays against the snapshot. Exclude is the
// reservation being updated; its own rooms and nights never conflict.
func Check(stays []reservations.RoomStay, snap Snapshot, exclude reservations.ID) []Conflict {
	var conflicts []Conflict
	valid := make([]reservations.RoomStay, 0, len(stays))
	for _, stay := range stays {
		if err := stay.Range.Validate(); err != nil {
			conflicts = append(conflicts, Conflict{Room: stay.Room, Reason: ReasonMalformedDates, Range: stay.Range})
			continue
		}
		valid = append(valid, stay)
	}

	for i, stay := range valid {
		for _, other := range valid[:i] {
			if other.Room == stay.Room && other.Range.Overlaps(stay.Range) {
				conflicts = append(conflicts, Conflict{Room: stay.Room, Reason: ReasonAlreadyBooked, Range: stay.Range, Detail: "requested twice"})
			}
		}
	}

	var owned map[rooms.RoomID]bool
	if exclude != "" {
		owned = make(map[rooms.RoomID]bool)
		for _, r := range snap.Existing {
			if r.ID == exclude {
				for _, id := range r.RoomIDs() {
					owned[id] = true
				}
			}
		}
	}

	checked := make(map[rooms.RoomID]bool)
	for _, stay := range valid {
		if checked[stay.Room] {
			continue
		}
		checked[stay.Room] = true
		room, ok := snap.Rooms[stay.Room]
		if !ok || room == nil {
			conflicts = append(conflicts, Conflict{Room: stay.Room, Reason: ReasonRoomNotFound, Range: stay.Range})
			continue
		}
		if room.Status != rooms.StatusFree && !owned[stay.Room] && !heldByExcluded(room, exclude) {
			conflicts = append(conflicts, Conflict{Room: stay.Room, Reason: ReasonRoomNotFree, Range: stay.Range, Detail: string(room.Status)})
		}
	}

	for _, stay := range valid {
		if _, ok := snap.Rooms[stay.Room]; !ok {
			continue
		}
		for _, existing := range snap.Existing {
			if existing.ID == exclude || !holds(existing.Status) {
				continue
			}
			for _, held := range existing.Stays() {
				if held.Room == stay.Room && held.Range.Overlaps(stay.Range) {
					conflicts = append(conflicts, Conflict{Room: stay.Room, Reason: ReasonAlreadyBooked, Range: stay.Range, Reservation: existing.ID})
				}
			}
		}
	}
	return conflicts
}

func heldByExcluded(room *rooms.Room, exclude reservations.ID) bool {
	return exclude != "" && room.HeldBy(string(exclude))
}

func holds(status reservations.Status) bool {
	for _, s := range reservations.HoldingStatuses {
		if s == status {
			return true
		}
	}
	return false
}
