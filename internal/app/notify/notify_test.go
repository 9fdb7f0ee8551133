package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"resortops/internal/app/policies"
	"resortops/internal/domain/billing"
	"resortops/internal/domain/shared/money"
)

func TestReceiptFillsEveryPlaceholder(t *testing.T) {
	receipt := &billing.Receipt{
		ID:          "rcp-1",
		Transaction: "tx-1",
		Reservation: "res-1",
		Kind:        billing.KindReservationPayment,
		Method:      billing.MethodOnline,
		Reason:      "<deposit>",
		Status:      billing.TransactionSuccess,
		Amount:      money.Francs(168700),
		IssuedAt:    time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC),
	}
	msg := Receipt(receipt, "awa@example.com")

	assert.Equal(t, "awa@example.com", msg.To)
	assert.NotContains(t, msg.HTML, "{{")
	assert.Contains(t, msg.HTML, "168 700 FCFA")
	assert.Contains(t, msg.HTML, "2025-06-01 09:30 UTC")
	assert.Contains(t, msg.HTML, "&lt;deposit&gt;")
	assert.Contains(t, msg.HTML, "reservation payment")
}

func TestFrancs(t *testing.T) {
	assert.Equal(t, "0 FCFA", Francs(0))
	assert.Equal(t, "100 FCFA", Francs(100))
	assert.Equal(t, "1 000 FCFA", Francs(1000))
	assert.Equal(t, "-80 000 FCFA", Francs(-80000))
	assert.Equal(t, "1 234 567 FCFA", Francs(1234567))
}

type failingNotifier struct{ calls int }

func (n *failingNotifier) SendEmail(context.Context, policies.Email) error {
	n.calls++
	return errors.New("smtp down")
}

func TestMailerSwallowsFailures(t *testing.T) {
	n := &failingNotifier{}
	m := Mailer{Notifier: n}
	m.Send(context.Background(), policies.Email{To: "a@example.com"})
	m.Send(context.Background(), policies.Email{})
	assert.Equal(t, 1, n.calls)
}
