package dto

import (
	"time"

	"resortops/internal/domain/billing"
)

type InvoiceLine struct {
	Room     string `json:"room"`
	RoomType string `json:"roomType"`
	Rate     string `json:"rate"`
	Nights   int    `json:"nights"`
	Nightly  Money  `json:"nightly"`
	Amount   Money  `json:"amount"`
}

type TaxLine struct {
	Name    string `json:"name"`
	Percent string `json:"percent"`
	Amount  Money  `json:"amount"`
}

type Invoice struct {
	ID            string        `json:"id"`
	Reservation   string        `json:"reservation"`
	Lines         []InvoiceLine `json:"lines"`
	Taxes         []TaxLine     `json:"taxes"`
	NetAmount     int64         `json:"netAmount"`
	TaxAmount     int64         `json:"taxAmount"`
	GrandTotal    int64         `json:"grandTotal"`
	AmountPaid    int64         `json:"amountPaid"`
	AmountDue     int64         `json:"amountDue"`
	Currency      string        `json:"currency"`
	PaymentStatus string        `json:"paymentStatus"`
	PaymentLink   string        `json:"paymentLink,omitempty"`
	PaymentLinkID string        `json:"paymentLinkId,omitempty"`
	DueDate       time.Time     `json:"dueDate"`
	IsRoomUpdate  bool          `json:"isRoomUpdate"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

func MapInvoice(inv *billing.Invoice) *Invoice {
	if inv == nil {
		return nil
	}
	lines := make([]InvoiceLine, 0, len(inv.Breakdown.Lines))
	for _, l := range inv.Breakdown.Lines {
		lines = append(lines, InvoiceLine{
			Room:     string(l.Room),
			RoomType: l.RoomType,
			Rate:     l.Rate,
			Nights:   l.Nights,
			Nightly:  MapMoney(l.Nightly),
			Amount:   MapMoney(l.Amount),
		})
	}
	taxes := make([]TaxLine, 0, len(inv.Breakdown.Taxes))
	for _, t := range inv.Breakdown.Taxes {
		taxes = append(taxes, TaxLine{Name: t.Name, Percent: t.Percent.String(), Amount: MapMoney(t.Amount)})
	}
	return &Invoice{
		ID:            string(inv.ID),
		Reservation:   string(inv.Reservation),
		Lines:         lines,
		Taxes:         taxes,
		NetAmount:     inv.NetAmount().Amount,
		TaxAmount:     inv.TaxAmount().Amount,
		GrandTotal:    inv.GrandTotal().Amount,
		AmountPaid:    inv.AmountPaid.Amount,
		AmountDue:     inv.AmountDue.Amount,
		Currency:      MapMoney(inv.GrandTotal()).Currency,
		PaymentStatus: string(inv.PaymentStatus),
		PaymentLink:   inv.PaymentLink,
		PaymentLinkID: inv.PaymentLinkID,
		DueDate:       inv.DueDate,
		IsRoomUpdate:  inv.IsRoomUpdate,
		UpdatedAt:     inv.UpdatedAt,
	}
}

type Receipt struct {
	ID          string    `json:"id"`
	Transaction string    `json:"transaction"`
	Reservation string    `json:"reservation"`
	Type        string    `json:"type"`
	Method      string    `json:"method"`
	Reason      string    `json:"reason"`
	Status      string    `json:"status"`
	Amount      int64     `json:"amount"`
	IssuedAt    time.Time `json:"issuedAt"`
	ArchiveURL  string    `json:"archiveUrl,omitempty"`
}

type ReceiptCollection struct {
	Items []Receipt `json:"items"`
}

func MapReceipt(r *billing.Receipt) *Receipt {
	if r == nil {
		return nil
	}
	return &Receipt{
		ID:          string(r.ID),
		Transaction: string(r.Transaction),
		Reservation: string(r.Reservation),
		Type:        string(r.Kind),
		Method:      string(r.Method),
		Reason:      r.Reason,
		Status:      string(r.Status),
		Amount:      r.Amount.Amount,
		IssuedAt:    r.IssuedAt,
		ArchiveURL:  r.ArchiveURL,
	}
}

type Payment struct {
	Invoice *Invoice `json:"invoice"`
	Receipt *Receipt `json:"receipt"`
}
