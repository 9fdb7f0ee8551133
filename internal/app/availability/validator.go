package availability

import (
	"context"
	"time"

	"resortops/internal/app/apperr"
	"resortops/internal/app/uow"
	domainavailability "resortops/internal/domain/availability"
	"resortops/internal/domain/reservations"
	"resortops/internal/domain/rooms"
)

// Validator gates reservation writes: every requested room must exist, be
// free (or already belong to the reservation being updated) and not overlap
// a holding reservation.
type Validator struct{}

// Validate returns nil or an apperr validation error listing every conflict.
func (Validator) Validate(ctx context.Context, unit uow.UnitOfWork, stays []reservations.RoomStay, exclude reservations.ID) error {
	if len(stays) == 0 {
		return apperr.Validation(reservations.ErrNoItems, "at least one room is required")
	}
	snap, err := Load(ctx, unit, reservations.DistinctRooms([]reservations.Item{{Rooms: stays}}))
	if err != nil {
		return err
	}
	conflicts := domainavailability.Check(stays, snap, exclude)
	if len(conflicts) == 0 {
		return nil
	}
	return apperr.Unavailability(MapConflicts(conflicts))
}

// Load reads the rooms and the holding reservations that touch them.
func Load(ctx context.Context, unit uow.UnitOfWork, ids []rooms.RoomID) (domainavailability.Snapshot, error) {
	found, err := unit.Rooms().ByIDs(ctx, ids)
	if err != nil {
		return domainavailability.Snapshot{}, err
	}
	byID := make(map[rooms.RoomID]*rooms.Room, len(found))
	for _, room := range found {
		byID[room.ID] = room
	}
	existing, err := unit.Reservations().HoldingRooms(ctx, ids, reservations.HoldingStatuses)
	if err != nil {
		return domainavailability.Snapshot{}, err
	}
	return domainavailability.Snapshot{Rooms: byID, Existing: existing}, nil
}

func MapConflicts(in []domainavailability.Conflict) []apperr.Conflict {
	out := make([]apperr.Conflict, 0, len(in))
	for _, c := range in {
		conflict := apperr.Conflict{
			Room:        string(c.Room),
			Reason:      string(c.Reason),
			Reservation: string(c.Reservation),
			Message:     c.String(),
		}
		if !c.Range.CheckIn.IsZero() {
			conflict.CheckIn = c.Range.CheckIn.Format(time.RFC3339)
		}
		if !c.Range.CheckOut.IsZero() {
			conflict.CheckOut = c.Range.CheckOut.Format(time.RFC3339)
		}
		out = append(out, conflict)
	}
	return out
}
