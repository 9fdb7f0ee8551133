package payments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resortops/internal/app/policies"
	"resortops/internal/domain/shared/money"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, "secret", time.Second, nil)
	require.NoError(t, err)
	return c
}

func TestInitiatePaySendsRequestAndDecodesLink(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/pay", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"link":"https://pay.example/abc","transId":"T-1"}`))
	})

	link, err := c.InitiatePay(context.Background(), policies.PayRequest{
		Amount:      money.Francs(5000),
		RedirectURL: "https://resort.example/reservations/deposit-redirect?data=x",
		UserID:      "guest-1",
		Message:     "deposit",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/abc", link.Link)
	assert.Equal(t, "T-1", link.TransID)
	assert.EqualValues(t, 5000, got["amount"])
	assert.Equal(t, "guest-1", got["userId"])
}

func TestInitiatePayRejectsAmountsBelowMinimum(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("provider must not be called")
	})
	_, err := c.InitiatePay(context.Background(), policies.PayRequest{Amount: money.Francs(99)})
	assert.ErrorIs(t, err, policies.ErrBelowMinimum)
}

func TestInitiatePayMissingFieldsIsInvalid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"link":""}`))
	})
	_, err := c.InitiatePay(context.Background(), policies.PayRequest{Amount: money.Francs(1000)})
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestPayoutStatusCodeStartingWithFourIsRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/payout", r.URL.Path)
		_, _ = w.Write([]byte(`{"statusCode":"402","message":"insufficient balance"}`))
	})
	res, err := c.Payout(context.Background(), policies.PayoutRequest{Amount: money.Francs(4000), Phone: "+22670000000"})
	assert.ErrorIs(t, err, policies.ErrPayoutRejected)
	assert.Equal(t, "402", res.StatusCode)
}

func TestPayoutHTTPClientErrorIsRejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"bad phone"}`))
	})
	_, err := c.Payout(context.Background(), policies.PayoutRequest{Amount: money.Francs(4000), Phone: "x"})
	assert.ErrorIs(t, err, policies.ErrPayoutRejected)
}

func TestPayoutSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"statusCode":"200","reference":"P-9"}`))
	})
	res, err := c.Payout(context.Background(), policies.PayoutRequest{Amount: money.Francs(4000), Phone: "+22670000000"})
	require.NoError(t, err)
	assert.Equal(t, "P-9", res.Reference)
}

func TestServerErrorsOpenTheBreaker(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadGateway)
	})
	for i := 0; i < 7; i++ {
		err := c.ExpirePay(context.Background(), "T-1")
		require.Error(t, err)
	}
	assert.Equal(t, 5, calls)
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	_, err := NewClient(" ", "", 0, nil)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestSandboxLinkCarriesTransID(t *testing.T) {
	link, err := Sandbox{}.InitiatePay(context.Background(), policies.PayRequest{
		Amount:      money.Francs(1000),
		RedirectURL: "http://localhost:8080/reservations/deposit-redirect?data=abc",
	})
	require.NoError(t, err)
	assert.Contains(t, link.Link, "transId="+link.TransID)
	assert.Contains(t, link.Link, "data=abc")
}
