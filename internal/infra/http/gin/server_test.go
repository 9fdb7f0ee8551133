package ginserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resortops/internal/app/apperr"
	"resortops/internal/app/commands"
	"resortops/internal/app/dto"
	reservationapp "resortops/internal/app/handlers/reservations"
	"resortops/internal/app/queries"
	"resortops/internal/app/uow"
	"resortops/internal/infra/config"
	"resortops/internal/infra/obs"
)

var secret = []byte("test-secret")

type commandBus struct {
	last   commands.Command
	result any
	err    error
}

func (b *commandBus) Dispatch(_ context.Context, cmd commands.Command) (any, error) {
	b.last = cmd
	return b.result, b.err
}

type queryBus struct {
	last   queries.Query
	result any
	err    error
}

func (b *queryBus) Ask(_ context.Context, q queries.Query) (any, error) {
	b.last = q
	return b.result, b.err
}

type response struct {
	OK        bool              `json:"ok"`
	Status    string            `json:"status"`
	Data      json.RawMessage   `json:"data"`
	Message   string            `json:"message"`
	Conflicts []apperr.Conflict `json:"conflicts"`
	Detail    string            `json:"detail"`
}

func newTestRouter(cmds *commandBus, qs *queryBus, respond Responder) http.Handler {
	reservations := ReservationHandler{Commands: cmds, Queries: qs, Respond: respond}
	return NewRouter(config.Config{Env: "test"}, obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Reservations:   reservations,
		AuthMiddleware: AuthMiddleware{Secret: secret}.Handle,
	})
}

func do(t *testing.T, h http.Handler, method, target, body, token string) (*httptest.ResponseRecorder, response) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out response
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func staffToken(t *testing.T, perms ...string) string {
	t.Helper()
	token, err := IssueToken(secret, "staff-7", "Front Desk", perms, time.Hour)
	require.NoError(t, err)
	return token
}

func TestDepositRedirectDispatchesConfirmation(t *testing.T) {
	cmds := &commandBus{result: &dto.Reservation{ID: "res-1", Status: "confirmed"}}
	router := newTestRouter(cmds, &queryBus{}, Responder{})

	data := url.QueryEscape(`{"amount":10000,"reservationId":"res-1"}`)
	rec, body := do(t, router, http.MethodGet, "/api/v1/reservations/deposit-redirect?data="+data+"&transId=trans-9", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.OK)
	assert.Equal(t, "success", body.Status)
	cmd, ok := cmds.last.(reservationapp.ConfirmDepositCommand)
	require.True(t, ok)
	assert.Equal(t, "res-1", cmd.ReservationID)
	assert.Equal(t, int64(10000), cmd.Amount)
	assert.Equal(t, "trans-9", cmd.ProviderRef)

	var res dto.Reservation
	require.NoError(t, json.Unmarshal(body.Data, &res))
	assert.Equal(t, "confirmed", res.Status)
}

func TestDepositRedirectRejectsMalformedData(t *testing.T) {
	cmds := &commandBus{}
	router := newTestRouter(cmds, &queryBus{}, Responder{})

	for _, data := range []string{"", "not-json", url.QueryEscape(`{"amount":10000}`)} {
		rec, body := do(t, router, http.MethodGet, "/api/v1/reservations/deposit-redirect?data="+data, "", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, data)
		assert.False(t, body.OK)
		assert.Equal(t, "fail", body.Status)
	}
	assert.Nil(t, cmds.last)
}

func TestErrorKindsMapToStatus(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperr.Validation(nil, "bad"), http.StatusBadRequest},
		{apperr.NotFound(nil, "missing"), http.StatusNotFound},
		{apperr.Conflicting(nil, "taken"), http.StatusConflict},
		{apperr.Policy(nil, "too late"), http.StatusNotAcceptable},
		{apperr.Unavailable(nil, "provider down"), http.StatusServiceUnavailable},
		{uow.ErrConcurrentUpdate, http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.status, StatusFor(tc.err), tc.err.Error())
	}
}

func TestFailCarriesConflicts(t *testing.T) {
	cmds := &commandBus{err: apperr.Unavailability([]apperr.Conflict{{Room: "R101", Reason: "already_booked", Message: "R101 is booked"}})}
	router := newTestRouter(cmds, &queryBus{}, Responder{})

	payload := `{"contact":{"name":"Ama","email":"ama@example.com"},"items":[{"roomType":"standard","rate":"rack","rooms":[{"room":"R101","checkIn":"2025-06-15","checkOut":"2025-06-20"}]}],"depositInCFA":10000}`
	rec, body := do(t, router, http.MethodPost, "/api/v1/reservations", payload, "")

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "fail", body.Status)
	require.Len(t, body.Conflicts, 1)
	assert.Equal(t, "R101", body.Conflicts[0].Room)

	cmd, ok := cmds.last.(reservationapp.CreateReservationCommand)
	require.True(t, ok)
	require.Len(t, cmd.Items, 1)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), cmd.Items[0].Rooms[0].CheckIn)
	assert.Empty(t, cmd.ActorID)
}

func TestProductionHidesServerErrors(t *testing.T) {
	cmds := &commandBus{err: errors.New("mongo: connection reset")}
	router := newTestRouter(cmds, &queryBus{}, Responder{Production: true})

	data := url.QueryEscape(`{"amount":10000,"reservationId":"res-1"}`)
	rec, body := do(t, router, http.MethodGet, "/api/v1/reservations/deposit-redirect?data="+data, "", "")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "error", body.Status)
	assert.Equal(t, genericServerError, body.Message)
	assert.Empty(t, body.Detail)
}

func TestDebugExposesDetail(t *testing.T) {
	cmds := &commandBus{err: apperr.Unavailable(errors.New("dial tcp: refused"), "payment provider unavailable")}
	router := newTestRouter(cmds, &queryBus{}, Responder{Debug: true})

	data := url.QueryEscape(`{"amount":10000,"reservationId":"res-1"}`)
	rec, body := do(t, router, http.MethodGet, "/api/v1/reservations/deposit-redirect?data="+data, "", "")

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "payment provider unavailable", body.Message)
	assert.Equal(t, "payment provider unavailable: dial tcp: refused", body.Detail)
}

func TestReadRoutesRequireToken(t *testing.T) {
	qs := &queryBus{result: &dto.Reservation{ID: "res-1"}}
	router := newTestRouter(&commandBus{}, qs, Responder{})

	rec, _ := do(t, router, http.MethodGet, "/api/v1/reservations/res-1", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, _ = do(t, router, http.MethodGet, "/api/v1/reservations/res-1", "", staffToken(t, PermManageBilling))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := do(t, router, http.MethodGet, "/api/v1/reservations/res-1", "", staffToken(t, PermReadReservations))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, body.OK)
	q, ok := qs.last.(reservationapp.GetReservationQuery)
	require.True(t, ok)
	assert.Equal(t, "res-1", q.ReservationID)
}

func TestExpiredTokenIsAnonymous(t *testing.T) {
	router := newTestRouter(&commandBus{}, &queryBus{}, Responder{})
	token, err := IssueToken(secret, "staff-7", "Front Desk", []string{PermReadReservations}, -time.Minute)
	require.NoError(t, err)

	rec, _ := do(t, router, http.MethodGet, "/api/v1/reservations/res-1", "", token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOnsiteBookingRecordsActingStaff(t *testing.T) {
	cmds := &commandBus{result: &dto.Reservation{ID: "res-2", Status: "confirmed"}}
	router := newTestRouter(cmds, &queryBus{}, Responder{})
	payload := `{"contact":{"name":"Walk In","phone":"+237650000002"},"items":[{"roomType":"standard","rate":"rack","rooms":[{"room":"R102","checkIn":"2025-06-15","checkOut":"2025-06-17"}]}],"onsite":true}`

	rec, _ := do(t, router, http.MethodPost, "/api/v1/reservations", payload, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, cmds.last)

	rec, body := do(t, router, http.MethodPost, "/api/v1/reservations", payload, staffToken(t, PermManageReservations))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, body.OK)
	cmd, ok := cmds.last.(reservationapp.CreateReservationCommand)
	require.True(t, ok)
	assert.True(t, cmd.Onsite)
	assert.Equal(t, "staff-7", cmd.ActorID)
}

func TestCancelBindsRefundRequest(t *testing.T) {
	cmds := &commandBus{result: &dto.Cancellation{Refund: dto.Money{Amount: 8000, Currency: "XAF"}}}
	router := newTestRouter(cmds, &queryBus{}, Responder{})

	rec, _ := do(t, router, http.MethodPatch, "/api/v1/reservations/cancel/res-1",
		`{"reason":"plans changed","refundOnline":true,"phone":"+237650000000"}`, staffToken(t, PermManageReservations))

	require.Equal(t, http.StatusOK, rec.Code)
	cmd, ok := cmds.last.(reservationapp.CancelReservationCommand)
	require.True(t, ok)
	assert.Equal(t, "res-1", cmd.ReservationID)
	assert.True(t, cmd.RefundOnline)
	assert.Equal(t, "+237650000000", cmd.Phone)
	assert.Equal(t, "staff-7", cmd.ActorID)
}

func TestInvalidDateIsRejected(t *testing.T) {
	cmds := &commandBus{}
	router := newTestRouter(cmds, &queryBus{}, Responder{})
	payload := `{"contact":{"name":"Ama"},"items":[{"roomType":"standard","rate":"rack","rooms":[{"room":"R101","checkIn":"15/06/2025","checkOut":"2025-06-20"}]}]}`

	rec, body := do(t, router, http.MethodPost, "/api/v1/reservations", payload, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, body.Message, "checkIn")
	assert.Nil(t, cmds.last)
}
