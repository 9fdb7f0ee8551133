package payments

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"resortops/internal/app/policies"
)

// Sandbox stands in for the provider when none is configured. Its links
// point straight at the redirect URL so a deposit can be simulated by
// following them.
type Sandbox struct {
	Logger *slog.Logger
}

func (s Sandbox) InitiatePay(ctx context.Context, req policies.PayRequest) (policies.PayLink, error) {
	if req.Amount.Amount < policies.MinimumPayment {
		return policies.PayLink{}, fmt.Errorf("%w: %d", policies.ErrBelowMinimum, req.Amount.Amount)
	}
	transID := "sbx_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	link := req.RedirectURL
	if u, err := url.Parse(req.RedirectURL); err == nil {
		q := u.Query()
		q.Set("transId", transID)
		u.RawQuery = q.Encode()
		link = u.String()
	}
	s.logger().InfoContext(ctx, "sandbox payment link issued", "trans_id", transID, "amount", req.Amount.Amount)
	return policies.PayLink{Link: link, TransID: transID}, nil
}

func (s Sandbox) ExpirePay(ctx context.Context, transID string) error {
	s.logger().InfoContext(ctx, "sandbox payment link expired", "trans_id", transID)
	return nil
}

func (s Sandbox) Payout(ctx context.Context, req policies.PayoutRequest) (policies.PayoutResult, error) {
	if req.Amount.Amount < policies.MinimumPayment {
		return policies.PayoutResult{}, fmt.Errorf("%w: %d", policies.ErrBelowMinimum, req.Amount.Amount)
	}
	ref := "sbx_" + uuid.NewString()
	s.logger().InfoContext(ctx, "sandbox payout sent", "reference", ref, "amount", req.Amount.Amount)
	return policies.PayoutResult{StatusCode: "200", Reference: ref}, nil
}

func (s Sandbox) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

var _ policies.PaymentGateway = Sandbox{}
