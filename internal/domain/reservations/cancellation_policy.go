package reservations

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"resortops/internal/domain/shared/money"
)

var (
	ErrNotRefundable      = errors.New("reservations: cancellation policy does not allow refunds")
	ErrRefundWindowClosed = errors.New("reservations: refund window has closed")
)

// CancellationPolicy is the admin-configured refund rule applied when a
// confirmed reservation is canceled.
type CancellationPolicy struct {
	IsRefundable           bool
	RefundableUntilInHours int
	RefundablePercentage   int
}

// Deadline is the last instant a reservation created at createdAt may be refunded.
func (p CancellationPolicy) Deadline(createdAt time.Time) time.Time {
	return createdAt.Add(time.Duration(p.RefundableUntilInHours) * time.Hour)
}

// Refund computes the amount returned on cancellation at now.
func (p CancellationPolicy) Refund(paid money.Money, createdAt, now time.Time) (money.Money, error) {
	if !p.IsRefundable {
		return money.Money{}, ErrNotRefundable
	}
	if now.After(p.Deadline(createdAt)) {
		return money.Money{}, ErrRefundWindowClosed
	}
	return paid.Percent(decimal.NewFromInt(int64(clampPercent(p.RefundablePercentage)))), nil
}

func clampPercent(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
