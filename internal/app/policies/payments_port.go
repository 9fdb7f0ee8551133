package policies

import (
	"context"
	"errors"

	"resortops/internal/domain/shared/money"
)

// MinimumPayment is the smallest amount the payment provider accepts, in CFA francs.
const MinimumPayment int64 = 100

var (
	ErrBelowMinimum   = errors.New("payments: amount below provider minimum")
	ErrPayoutRejected = errors.New("payments: payout rejected by provider")
)

type PayRequest struct {
	Amount      money.Money
	RedirectURL string
	UserID      string
	Message     string
}

type PayLink struct {
	Link    string
	TransID string
}

type PayoutRequest struct {
	Amount money.Money
	Phone  string
}

type PayoutResult struct {
	StatusCode string
	Reference  string
}

// PaymentGateway is the external provider that collects deposits and pays refunds.
type PaymentGateway interface {
	InitiatePay(ctx context.Context, req PayRequest) (PayLink, error)
	ExpirePay(ctx context.Context, transID string) error
	Payout(ctx context.Context, req PayoutRequest) (PayoutResult, error)
}
