package notify

import (
	"context"
	"log/slog"
	"time"

	"resortops/internal/app/policies"
)

// Mailer sends guest mail without letting delivery failures reach the caller.
type Mailer struct {
	Notifier policies.Notifier
	Timeout  time.Duration
	Logger   *slog.Logger
}

// Send delivers msg and logs any failure. Messages without a recipient are skipped.
func (m Mailer) Send(ctx context.Context, msg policies.Email) {
	if m.Notifier == nil || msg.To == "" {
		return
	}
	timeout := m.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()
	if err := m.Notifier.SendEmail(sendCtx, msg); err != nil {
		m.logger().WarnContext(ctx, "email delivery failed", "to", msg.To, "subject", msg.Subject, "error", err)
	}
}

func (m Mailer) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}
