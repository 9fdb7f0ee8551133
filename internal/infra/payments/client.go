// Package payments talks to the mobile-money provider that collects deposits
// and pays out refunds.
package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	"resortops/internal/app/policies"
)

var (
	ErrInvalidResponse = errors.New("payments: invalid provider response")
	ErrNotConfigured   = errors.New("payments: provider base url is required")
)

// ProviderError is returned when the provider answers with a non-2xx status.
type ProviderError struct {
	Path       string
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("payments: %s returned %d: %s", e.Path, e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// NewClient builds a provider client. Five consecutive failures open the
// breaker for 30 seconds.
func NewClient(baseURL, apiKey string, timeout time.Duration, logger *slog.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, ErrNotConfigured
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		baseURL: base,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "payments",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var perr *ProviderError
			// A 4xx is the provider refusing the request, not the provider being down.
			return err == nil || (errors.As(err, &perr) && perr.StatusCode < 500)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("payment provider breaker state changed", "from", from.String(), "to", to.String())
		},
	})
	return c, nil
}

func (c *Client) InitiatePay(ctx context.Context, req policies.PayRequest) (policies.PayLink, error) {
	if req.Amount.Amount < policies.MinimumPayment {
		return policies.PayLink{}, fmt.Errorf("%w: %d", policies.ErrBelowMinimum, req.Amount.Amount)
	}
	body, err := c.call(ctx, "/pay", map[string]any{
		"amount":      req.Amount.Amount,
		"redirectUrl": req.RedirectURL,
		"userId":      req.UserID,
		"message":     req.Message,
	})
	if err != nil {
		return policies.PayLink{}, err
	}
	link := gjson.GetBytes(body, "link").String()
	transID := gjson.GetBytes(body, "transId").String()
	if link == "" || transID == "" {
		return policies.PayLink{}, fmt.Errorf("%w: missing link or transId", ErrInvalidResponse)
	}
	return policies.PayLink{Link: link, TransID: transID}, nil
}

func (c *Client) ExpirePay(ctx context.Context, transID string) error {
	body, err := c.call(ctx, "/pay/expire", map[string]any{"transId": transID})
	if err != nil {
		return err
	}
	if status := gjson.GetBytes(body, "status"); status.Exists() && status.Type == gjson.Number && status.Int() >= 400 {
		return &ProviderError{Path: "/pay/expire", StatusCode: int(status.Int()), Message: gjson.GetBytes(body, "message").String()}
	}
	return nil
}

// Payout sends a refund to a mobile-money number. A provider status code
// starting with "4" is reported as ErrPayoutRejected.
func (c *Client) Payout(ctx context.Context, req policies.PayoutRequest) (policies.PayoutResult, error) {
	if req.Amount.Amount < policies.MinimumPayment {
		return policies.PayoutResult{}, fmt.Errorf("%w: %d", policies.ErrBelowMinimum, req.Amount.Amount)
	}
	body, err := c.call(ctx, "/payout", map[string]any{
		"amount": req.Amount.Amount,
		"phone":  req.Phone,
	})
	if err != nil {
		var perr *ProviderError
		if errors.As(err, &perr) && perr.StatusCode < 500 {
			return policies.PayoutResult{StatusCode: fmt.Sprint(perr.StatusCode)}, fmt.Errorf("%w: %s", policies.ErrPayoutRejected, perr.Message)
		}
		return policies.PayoutResult{}, err
	}
	result := policies.PayoutResult{
		StatusCode: gjson.GetBytes(body, "statusCode").String(),
		Reference:  gjson.GetBytes(body, "reference").String(),
	}
	if strings.HasPrefix(result.StatusCode, "4") {
		return result, fmt.Errorf("%w: status %s", policies.ErrPayoutRejected, result.StatusCode)
	}
	return result, nil
}

func (c *Client) call(ctx context.Context, path string, payload any) ([]byte, error) {
	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.post(ctx, path, payload)
	})
	if err != nil {
		c.logger.WarnContext(ctx, "payment provider call failed", "path", path, "error", err)
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Client) post(ctx context.Context, path string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("payments: %s: %w", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("payments: read %s: %w", path, err)
	}
	if resp.StatusCode >= 300 {
		msg := gjson.GetBytes(body, "message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &ProviderError{Path: path, StatusCode: resp.StatusCode, Message: msg}
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: %s", ErrInvalidResponse, path)
	}
	return body, nil
}

var _ policies.PaymentGateway = (*Client)(nil)
