package middleware

import (
	"context"
	"log/slog"
	"time"

	"resortops/internal/app/apperr"
	"resortops/internal/app/commands"
)

// Logging records the outcome and duration of every command.
func Logging(logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			attrs := []any{"command", cmd.Key(), "duration", time.Since(start)}
			switch {
			case err == nil:
				logger.DebugContext(ctx, "command handled", attrs...)
			case apperr.KindOf(err) == apperr.KindInternal || apperr.KindOf(err) == apperr.KindUnavailable:
				logger.ErrorContext(ctx, "command failed", append(attrs, "error", detail(err))...)
			default:
				logger.InfoContext(ctx, "command rejected", append(attrs, "error", detail(err))...)
			}
			return res, err
		})
	}
}

func detail(err error) string {
	if e, ok := apperr.As(err); ok {
		return e.Detail()
	}
	return err.Error()
}
