package rooms

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound       = errors.New("rooms: not found")
	ErrNotFree        = errors.New("rooms: room is not free")
	ErrLockedByOther  = errors.New("rooms: room is held by another reservation")
	ErrInvalidLockTTL = errors.New("rooms: lock ttl must be positive")
	ErrNotOccupiable  = errors.New("rooms: room cannot be occupied in its current status")
)

type RoomID string

type Status string

const (
	StatusOccupied    Status = "occupied"
	StatusFree        Status = "free"
	StatusReserved    Status = "reserved"
	StatusUnavailable Status = "unavailable"
	StatusMaintenance Status = "in maintenance"
	StatusRenovation  Status = "renovation"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOccupied, StatusFree, StatusReserved, StatusUnavailable, StatusMaintenance, StatusRenovation:
		return true
	}
	return false
}

// Lock is a temporary hold tying a room to a pending reservation until a deadline.
type Lock struct {
	Until       time.Time
	Reservation string
}

type Room struct {
	ID        RoomID
	Number    string
	RoomType  string
	Status    Status
	Lock      *Lock
	UpdatedAt time.Time
	Version   int64
}

type Repository interface {
	ByID(ctx context.Context, id RoomID) (*Room, error)
	ByIDs(ctx context.Context, ids []RoomID) ([]*Room, error)
	List(ctx context.Context) ([]*Room, error)
	// ExpiredLocks returns rooms whose lock deadline is at or before now.
	ExpiredLocks(ctx context.Context, now time.Time) ([]*Room, error)
	Save(ctx context.Context, room *Room) error
}

// HeldBy reports whether the room's current lock belongs to the reservation.
func (r *Room) HeldBy(reservation string) bool {
	return r.Lock != nil && r.Lock.Reservation == reservation
}

// IsLockExpired reports whether the room carries a lock whose deadline has passed.
func (r *Room) IsLockExpired(now time.Time) bool {
	return r.Lock != nil && !r.Lock.Until.After(now)
}

// Acquire holds a free room for a pending reservation until now+ttl. Re-acquiring
// a lock the reservation already owns extends it.
func (r *Room) Acquire(reservation string, ttl time.Duration, now time.Time) error {
	if ttl <= 0 {
		return ErrInvalidLockTTL
	}
	switch {
	case r.HeldBy(reservation):
	case r.Status == StatusFree:
	case r.Status == StatusReserved && r.IsLockExpired(now):
	case r.Lock != nil:
		return ErrLockedByOther
	default:
		return ErrNotFree
	}
	r.Status = StatusReserved
	r.Lock = &Lock{Until: now.UTC().Add(ttl), Reservation: reservation}
	r.UpdatedAt = now.UTC()
	return nil
}

// Reserve marks the room reserved for a confirmed stay without any expiring lock.
// A lock owned by the same reservation is converted; any other lock is refused.
func (r *Room) Reserve(reservation string, now time.Time) error {
	switch {
	case r.HeldBy(reservation):
	case r.Lock != nil && !r.IsLockExpired(now):
		return ErrLockedByOther
	case r.Status == StatusFree, r.Status == StatusReserved:
	default:
		return ErrNotFree
	}
	r.Status = StatusReserved
	r.Lock = nil
	r.UpdatedAt = now.UTC()
	return nil
}

// Release clears the lock and frees the room. Occupied rooms are left alone; they
// are only freed by Vacate at checkout. The return value reports whether anything changed.
func (r *Room) Release(now time.Time) bool {
	if r.Status == StatusOccupied {
		return false
	}
	if r.Status != StatusReserved && r.Lock == nil {
		return false
	}
	r.Lock = nil
	if r.Status == StatusReserved {
		r.Status = StatusFree
	}
	r.UpdatedAt = now.UTC()
	return true
}

// Occupy marks the room as in use by a checked-in guest.
func (r *Room) Occupy(now time.Time) error {
	switch r.Status {
	case StatusReserved, StatusFree, StatusOccupied:
	default:
		return ErrNotOccupiable
	}
	r.Status = StatusOccupied
	r.Lock = nil
	r.UpdatedAt = now.UTC()
	return nil
}

// Vacate frees an occupied or reserved room at checkout.
func (r *Room) Vacate(now time.Time) bool {
	if r.Status != StatusOccupied && r.Status != StatusReserved && r.Lock == nil {
		return false
	}
	if r.Status == StatusOccupied || r.Status == StatusReserved {
		r.Status = StatusFree
	}
	r.Lock = nil
	r.UpdatedAt = now.UTC()
	return true
}

func (r *Room) Clone() *Room {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Lock != nil {
		lock := *r.Lock
		clone.Lock = &lock
	}
	return &clone
}
