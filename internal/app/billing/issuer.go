package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"resortops/internal/app/apperr"
	"resortops/internal/app/policies"
	"resortops/internal/app/uow"
	domainbilling "resortops/internal/domain/billing"
	"resortops/internal/domain/reservations"
	"resortops/internal/domain/settings"
	"resortops/internal/domain/shared/money"
)

const depositRedirectPath = "/api/v1/reservations/deposit-redirect"

// DepositPayload is what the provider sends back on the deposit redirect.
type DepositPayload struct {
	Amount        int64  `json:"amount"`
	ReservationID string `json:"reservationId"`
}

// Issuer prices a reservation, opens its invoice and requests the deposit
// payment link.
type Issuer struct {
	Payments      policies.PaymentGateway
	Settings      settings.Provider
	PublicBaseURL string
	NewID         func() string
	Now           func() time.Time
}

// Quote prices items with the configured taxes.
func (i Issuer) Quote(ctx context.Context, unit uow.UnitOfWork, items []reservations.Item) (domainbilling.Breakdown, error) {
	current := settings.Defaults()
	if i.Settings != nil {
		loaded, err := i.Settings.Current(ctx)
		if err != nil {
			return domainbilling.Breakdown{}, err
		}
		current = loaded
	}
	breakdown, err := domainbilling.Quote(ctx, unit.Rates(), items, current.TaxRates())
	if errors.Is(err, domainbilling.ErrRateNotFound) {
		return domainbilling.Breakdown{}, apperr.Validation(err, "no rate configured for a requested room type")
	}
	return breakdown, err
}

// Issue creates and saves the invoice for r. A payment link is requested for
// any positive deposit; failing to get one fails the whole issue.
func (i Issuer) Issue(ctx context.Context, unit uow.UnitOfWork, r *reservations.Reservation) (*domainbilling.Invoice, error) {
	breakdown, err := i.Quote(ctx, unit, r.Items)
	if err != nil {
		return nil, err
	}
	if r.Deposit.Amount > breakdown.GrandTotal.Amount {
		return nil, apperr.Validation(domainbilling.ErrDepositTooLarge, "deposit of %d exceeds grand total of %d", r.Deposit.Amount, breakdown.GrandTotal.Amount)
	}
	now := i.now()
	inv, err := domainbilling.NewInvoice(domainbilling.InvoiceParams{
		ID:          domainbilling.InvoiceID(i.newID()),
		Reservation: r.ID,
		Breakdown:   breakdown,
		DueDate:     r.Range.CheckOut,
		CreatedAt:   now,
	})
	if err != nil {
		return nil, apperr.Validation(err, "cannot open invoice")
	}

	if r.Deposit.IsPositive() && r.Status == reservations.StatusPending {
		link, err := i.requestDeposit(ctx, r)
		if err != nil {
			return nil, err
		}
		inv.AttachPaymentLink(link.Link, link.TransID, now)
	}
	if err := unit.Invoices().Save(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

func (i Issuer) requestDeposit(ctx context.Context, r *reservations.Reservation) (policies.PayLink, error) {
	if r.Deposit.Amount < policies.MinimumPayment {
		return policies.PayLink{}, apperr.Validation(policies.ErrBelowMinimum, "deposit must be at least %d CFA", policies.MinimumPayment)
	}
	if i.Payments == nil {
		return policies.PayLink{}, apperr.Unavailable(nil, "payment provider is not configured")
	}
	redirect, err := i.DepositRedirectURL(r.Deposit, r.ID)
	if err != nil {
		return policies.PayLink{}, err
	}
	link, err := i.Payments.InitiatePay(ctx, policies.PayRequest{
		Amount:      r.Deposit,
		RedirectURL: redirect,
		UserID:      r.Contact.GuestID,
		Message:     fmt.Sprintf("Deposit for reservation %s", r.Reference),
	})
	if err != nil {
		return policies.PayLink{}, apperr.Unavailable(err, "payment provider could not create a payment link")
	}
	return link, nil
}

// DepositRedirectURL is where the provider sends the guest after paying.
func (i Issuer) DepositRedirectURL(amount money.Money, id reservations.ID) (string, error) {
	data, err := json.Marshal(DepositPayload{Amount: amount.Amount, ReservationID: string(id)})
	if err != nil {
		return "", err
	}
	base := strings.TrimRight(i.PublicBaseURL, "/")
	return base + depositRedirectPath + "?data=" + url.QueryEscape(string(data)), nil
}

func (i Issuer) newID() string {
	if i.NewID != nil {
		return i.NewID()
	}
	return uuid.NewString()
}

func (i Issuer) now() time.Time {
	if i.Now != nil {
		return i.Now().UTC()
	}
	return time.Now().UTC()
}
