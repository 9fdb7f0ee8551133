package ginserver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"

	"resortops/internal/app/apperr"
	"resortops/internal/app/commands"
	"resortops/internal/app/dto"
	reservationapp "resortops/internal/app/handlers/reservations"
	"resortops/internal/app/queries"
)

type ReservationHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Respond  Responder
}

type stayRequest struct {
	Room     string `json:"room"`
	CheckIn  string `json:"checkIn"`
	CheckOut string `json:"checkOut"`
}

type itemRequest struct {
	RoomType string        `json:"roomType"`
	Rate     string        `json:"rate"`
	Rooms    []stayRequest `json:"rooms"`
}

type createReservationRequest struct {
	Contact      reservationapp.ContactInput `json:"contact"`
	Items        []itemRequest               `json:"items"`
	DepositInCFA int64                       `json:"depositInCFA"`
	Onsite       bool                        `json:"onsite"`
	Notes        string                      `json:"notes"`
}

type cancelReservationRequest struct {
	Reason       string `json:"reason"`
	RefundOnline bool   `json:"refundOnline"`
	Phone        string `json:"phone"`
}

type updateRoomsRequest struct {
	Items []itemRequest `json:"items"`
}

func (h ReservationHandler) Create(c *gin.Context) {
	var req createReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Respond.BadRequest(c, err)
		return
	}
	items, err := toItemInputs(req.Items)
	if err != nil {
		h.Respond.Fail(c, err)
		return
	}
	cmd := reservationapp.CreateReservationCommand{
		Contact:      req.Contact,
		Items:        items,
		DepositInCFA: req.DepositInCFA,
		Onsite:       req.Onsite,
		Notes:        req.Notes,
		IdemKey:      c.GetHeader("Idempotency-Key"),
	}
	if req.Onsite {
		p, ok := requirePermission(c, PermManageReservations)
		if !ok {
			return
		}
		cmd.ActorID = p.ID
	}
	result, err := commands.Dispatch[reservationapp.CreateReservationCommand, *dto.Reservation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.Respond.Fail(c, err)
		return
	}
	h.Respond.Success(c, http.StatusCreated, result)
}

func (h ReservationHandler) Get(c *gin.Context) {
	if _, ok := requirePermission(c, PermReadReservations); !ok {
		return
	}
	query := reservationapp.GetReservationQuery{ReservationID: c.Param("id")}
	result, err := queries.Ask[reservationapp.GetReservationQuery, *dto.Reservation](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.Respond.Fail(c, err)
		return
	}
	h.Respond.Success(c, http.StatusOK, result)
}

func (h ReservationHandler) List(c *gin.Context) {
	if _, ok := requirePermission(c, PermReadReservations); !ok {
		return
	}
	query := reservationapp.ListReservationsQuery{}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				query.Statuses = append(query.Statuses, s)
			}
		}
	}
	var err error
	if query.From, err = parseDateParam(c.Query("from")); err != nil {
		h.Respond.Fail(c, apperr.Validation(err, "from: %v", err))
		return
	}
	if query.To, err = parseDateParam(c.Query("to")); err != nil {
		h.Respond.Fail(c, apperr.Validation(err, "to: %v", err))
		return
	}
	if raw := c.Query("limit"); raw != "" {
		limit, convErr := strconv.Atoi(raw)
		if convErr != nil {
			h.Respond.Fail(c, apperr.Validation(convErr, "limit must be a number"))
			return
		}
		query.Limit = limit
	}
	result, err := queries.Ask[reservationapp.ListReservationsQuery, *dto.ReservationCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.Respond.Fail(c, err)
		return
	}
	h.Respond.Success(c, http.StatusOK, result)
}

func (h ReservationHandler) Calendar(c *gin.Context) {
	if _, ok := requirePermission(c, PermReadReservations); !ok {
		return
	}
	from, err := parseDateParam(c.Query("from"))
	if err != nil {
		h.Respond.Fail(c, apperr.Validation(err, "from: %v", err))
		return
	}
	to, err := parseDateParam(c.Query("to"))
	if err != nil {
		h.Respond.Fail(c, apperr.Validation(err, "to: %v", err))
		return
	}
	query := reservationapp.CalendarQuery{From: from, To: to}
	result, err := queries.Ask[reservationapp.CalendarQuery, *dto.Calendar](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.Respond.Fail(c, err)
		return
	}
	h.Respond.Success(c, http.StatusOK, result)
}

// DepositRedirect is where the payment provider sends the guest after paying.
// data is the URL-encoded JSON {amount, reservationId} fixed when the link was issued.
func (h ReservationHandler) DepositRedirect(c *gin.Context) {
	data := c.Query("data")
	if data == "" || !gjson.Valid(data) {
		h.Respond.Fail(c, apperr.Validation(nil, "data must be a JSON object with amount and reservationId"))
		return
	}
	amount := gjson.Get(data, "amount")
	reservationID := gjson.Get(data, "reservationId").String()
	if !amount.Exists() || reservationID == "" {
		h.Respond.Fail(c, apperr.Validation(nil, "data must carry amount and reservationId"))
		return
	}
	cmd := reservationapp.ConfirmDepositCommand{
		ReservationID: reservationID,
		Amount:        amount.Int(),
		ProviderRef:   c.Query("transId"),
	}
	result, err := commands.Dispatch[reservationapp.ConfirmDepositCommand, *dto.Reservation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.Respond.Fail(c, err)
		return
	}
	h.Respond.Success(c, http.StatusOK, result)
}

func (h ReservationHandler) Cancel(c *gin.Context) {
	p, ok := requirePermission(c, PermManageReservations)
	if !ok {
		return
	}
	var req cancelReservationRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.Respond.BadRequest(c, err)
			return
		}
	}
	cmd := reservationapp.CancelReservationCommand{
		ReservationID: c.Param("id"),
		Reason:        req.Reason,
		RefundOnline:  req.RefundOnline,
		Phone:         req.Phone,
		ActorID:       p.ID,
		IdemKey:       c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[reservationapp.CancelReservationCommand, *dto.Cancellation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.Respond.Fail(c, err)
		return
	}
	h.Respond.Success(c, http.StatusOK, result)
}

func (h ReservationHandler) UpdateRooms(c *gin.Context) {
	p, ok := requirePermission(c, PermManageReservations)
	if !ok {
		return
	}
	var req updateRoomsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Respond.BadRequest(c, err)
		return
	}
	items, err := toItemInputs(req.Items)
	if err != nil {
		h.Respond.Fail(c, err)
		return
	}
	cmd := reservationapp.UpdateRoomsCommand{ReservationID: c.Param("id"), Items: items, ActorID: p.ID}
	result, err := commands.Dispatch[reservationapp.UpdateRoomsCommand, *dto.Reservation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.Respond.Fail(c, err)
		return
	}
	h.Respond.Success(c, http.StatusOK, result)
}

func (h ReservationHandler) CheckIn(c *gin.Context) {
	p, ok := requirePermission(c, PermManageReservations)
	if !ok {
		return
	}
	cmd := reservationapp.CheckInCommand{ReservationID: c.Param("id"), ActorID: p.ID}
	result, err := commands.Dispatch[reservationapp.CheckInCommand, *dto.Reservation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.Respond.Fail(c, err)
		return
	}
	h.Respond.Success(c, http.StatusOK, result)
}

func (h ReservationHandler) CheckOut(c *gin.Context) {
	p, ok := requirePermission(c, PermManageReservations)
	if !ok {
		return
	}
	cmd := reservationapp.CheckOutCommand{ReservationID: c.Param("id"), ActorID: p.ID}
	result, err := commands.Dispatch[reservationapp.CheckOutCommand, *dto.Reservation](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.Respond.Fail(c, err)
		return
	}
	h.Respond.Success(c, http.StatusOK, result)
}

func toItemInputs(in []itemRequest) ([]reservationapp.ItemInput, error) {
	out := make([]reservationapp.ItemInput, 0, len(in))
	for i, item := range in {
		stays := make([]reservationapp.RoomStayInput, 0, len(item.Rooms))
		for j, stay := range item.Rooms {
			checkIn, err := parseDateParam(stay.CheckIn)
			if err != nil {
				return nil, apperr.Validation(err, "items[%d].rooms[%d].checkIn: %v", i, j, err)
			}
			checkOut, err := parseDateParam(stay.CheckOut)
			if err != nil {
				return nil, apperr.Validation(err, "items[%d].rooms[%d].checkOut: %v", i, j, err)
			}
			stays = append(stays, reservationapp.RoomStayInput{Room: stay.Room, CheckIn: checkIn, CheckOut: checkOut})
		}
		out = append(out, reservationapp.ItemInput{RoomType: item.RoomType, Rate: item.Rate, Rooms: stays})
	}
	return out, nil
}

// parseDateParam accepts a calendar date or an RFC 3339 timestamp. Empty
// input yields the zero time.
func parseDateParam(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is not a date", raw)
	}
	return t.UTC(), nil
}
