package middleware

import (
	"context"

	"resortops/internal/app/commands"
)

// Waker is told that new outbox records may be waiting.
type Waker interface {
	Wake()
}

// OutboxNotify wakes the relay after each successful command so recorded
// events leave without waiting for the next poll. Place it outside
// Transaction: the records are only visible once the unit has committed.
func OutboxNotify(w Waker) CommandMiddleware {
	return func(next commands.Bus) commands.Bus {
		if w == nil {
			return next
		}
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err == nil {
				w.Wake()
			}
			return res, err
		})
	}
}
