package ginserver

import (
	"net/http"

	gin "github.com/gin-gonic/gin"

	"resortops/internal/app/commands"
	"resortops/internal/app/dto"
	billingapp "resortops/internal/app/handlers/billing"
	"resortops/internal/app/queries"
)

type BillingHandler struct {
	Commands commands.Bus
	Queries  queries.Bus
	Respond  Responder
}

type paymentRequest struct {
	Amount int64  `json:"amount"`
	Method string `json:"method"`
}

func (h BillingHandler) Invoice(c *gin.Context) {
	if _, ok := requirePermission(c, PermReadReservations); !ok {
		return
	}
	h.invoice(c, billingapp.GetInvoiceQuery{InvoiceID: c.Param("id")})
}

func (h BillingHandler) ReservationInvoice(c *gin.Context) {
	if _, ok := requirePermission(c, PermReadReservations); !ok {
		return
	}
	h.invoice(c, billingapp.GetInvoiceQuery{ReservationID: c.Param("id")})
}

func (h BillingHandler) invoice(c *gin.Context, query billingapp.GetInvoiceQuery) {
	result, err := queries.Ask[billingapp.GetInvoiceQuery, *dto.Invoice](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.Respond.Fail(c, err)
		return
	}
	h.Respond.Success(c, http.StatusOK, result)
}

func (h BillingHandler) Receipts(c *gin.Context) {
	if _, ok := requirePermission(c, PermReadReservations); !ok {
		return
	}
	query := billingapp.ListReceiptsQuery{ReservationID: c.Param("id")}
	result, err := queries.Ask[billingapp.ListReceiptsQuery, *dto.ReceiptCollection](c.Request.Context(), h.Queries, query)
	if err != nil {
		h.Respond.Fail(c, err)
		return
	}
	h.Respond.Success(c, http.StatusOK, result)
}

func (h BillingHandler) ApplyPayment(c *gin.Context) {
	p, ok := requirePermission(c, PermManageBilling)
	if !ok {
		return
	}
	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.Respond.BadRequest(c, err)
		return
	}
	cmd := billingapp.ApplyPaymentCommand{
		InvoiceID: c.Param("id"),
		Amount:    req.Amount,
		Method:    req.Method,
		ActorID:   p.ID,
		IdemKey:   c.GetHeader("Idempotency-Key"),
	}
	result, err := commands.Dispatch[billingapp.ApplyPaymentCommand, *dto.Payment](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		h.Respond.Fail(c, err)
		return
	}
	h.Respond.Success(c, http.StatusCreated, result)
}
