// Package sweep reconciles stale room locks and finished stays. Each item is
// re-read in its own unit right before it is changed, so a sweep never acts on
// a snapshot taken at the start of the tick.
package sweep

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"resortops/internal/app/handlers/reservations"
	"resortops/internal/app/support"
	"resortops/internal/app/uow"
	domain "resortops/internal/domain/reservations"
	"resortops/internal/domain/rooms"
)

// Result counts what one sweep tick did.
type Result struct {
	Scanned  int
	Changed  int
	Failures int
}

// LockExpiry frees rooms whose hold deadline has passed and expires the
// pending reservation that held them.
type LockExpiry struct {
	Reservations *reservations.Service
	Logger       *slog.Logger
}

func (s LockExpiry) Run(ctx context.Context, now time.Time) (Result, error) {
	now = now.UTC()
	var res Result
	expired, err := s.candidates(ctx, now)
	if err != nil {
		return res, err
	}
	res.Scanned = len(expired)
	for _, id := range expired {
		changed, err := s.releaseRoom(ctx, id, now)
		if err != nil {
			res.Failures++
			s.logger().ErrorContext(ctx, "lock expiry failed", "room_id", id, "error", err)
			continue
		}
		if changed {
			res.Changed++
		}
	}
	if res.Changed > 0 || res.Failures > 0 {
		s.logger().InfoContext(ctx, "lock expiry sweep finished", "scanned", res.Scanned, "released", res.Changed, "failed", res.Failures)
	}
	return res, nil
}

func (s LockExpiry) candidates(ctx context.Context, now time.Time) ([]rooms.RoomID, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, s.Reservations.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	list, err := unit.Rooms().ExpiredLocks(execCtx, now)
	if err != nil {
		return nil, err
	}
	ids := make([]rooms.RoomID, 0, len(list))
	for _, room := range list {
		ids = append(ids, room.ID)
	}
	return ids, nil
}

func (s LockExpiry) releaseRoom(ctx context.Context, id rooms.RoomID, now time.Time) (bool, error) {
	changed := false
	err := support.Within(ctx, s.Reservations.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		room, err := unit.Rooms().ByID(ctx, id)
		if err != nil {
			return err
		}
		if !room.IsLockExpired(now) {
			return nil
		}
		if holder := room.Lock.Reservation; holder != "" {
			r, err := unit.Reservations().ByID(ctx, domain.ID(holder))
			switch {
			case errors.Is(err, domain.ErrNotFound):
			case err != nil:
				return err
			case r.Status == domain.StatusPending:
				if err := s.Reservations.ExpireHold(ctx, unit, r, now); err != nil {
					return err
				}
			}
		}
		room.Release(now)
		if err := unit.Rooms().Save(ctx, room); err != nil {
			return err
		}
		changed = true
		return nil
	})
	return changed, err
}

func (s LockExpiry) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// Completion checks out finished stays and records no-shows once the grace
// period after check-in has passed.
type Completion struct {
	Reservations *reservations.Service
	Logger       *slog.Logger
}

func (s Completion) Run(ctx context.Context, now time.Time) (Result, error) {
	now = now.UTC()
	var res Result
	due, err := s.candidates(ctx, now)
	if err != nil {
		return res, err
	}
	res.Scanned = len(due)
	for _, id := range due {
		changed, err := s.complete(ctx, id, now)
		if err != nil {
			res.Failures++
			s.logger().ErrorContext(ctx, "reservation completion failed", "reservation_id", id, "error", err)
			continue
		}
		if changed {
			res.Changed++
		}
	}
	if res.Changed > 0 || res.Failures > 0 {
		s.logger().InfoContext(ctx, "completion sweep finished", "scanned", res.Scanned, "completed", res.Changed, "failed", res.Failures)
	}
	return res, nil
}

func (s Completion) candidates(ctx context.Context, now time.Time) ([]domain.ID, error) {
	unit, execCtx, cleanup, err := support.BeginReadOnlyUnit(ctx, s.Reservations.UoWFactory)
	if err != nil {
		return nil, err
	}
	if cleanup != nil {
		defer cleanup()
	}
	list, err := unit.Reservations().DueForCompletion(execCtx, now)
	if err != nil {
		return nil, err
	}
	ids := make([]domain.ID, 0, len(list))
	for _, r := range list {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

func (s Completion) complete(ctx context.Context, id domain.ID, now time.Time) (bool, error) {
	current, err := s.Reservations.CurrentSettings(ctx)
	if err != nil {
		return false, err
	}
	grace := current.NoShowGrace()
	changed := false
	err = support.Within(ctx, s.Reservations.UoWFactory, func(ctx context.Context, unit uow.UnitOfWork) error {
		r, err := unit.Reservations().ByID(ctx, id)
		if err != nil {
			return err
		}
		switch {
		case r.Status == domain.StatusCheckedIn && !r.Range.CheckOut.After(now):
			changed = true
			return s.Reservations.Complete(ctx, unit, r, now)
		case r.Status == domain.StatusConfirmed && now.After(r.NoShowDeadline(grace)):
			changed = true
			return s.Reservations.RecordNoShow(ctx, unit, r, now)
		}
		return nil
	})
	return changed, err
}

func (s Completion) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}
