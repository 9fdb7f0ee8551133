package notify

import (
	"fmt"
	"html"
	"strings"
	"time"

	"resortops/internal/app/policies"
	"resortops/internal/domain/billing"
	"resortops/internal/domain/reservations"
)

const receiptTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Receipt {{receiptId}}</title></head>
<body style="font-family:Arial,sans-serif;color:#222">
<h2>Payment receipt</h2>
<table cellpadding="6">
<tr><td>Receipt</td><td>{{receiptId}}</td></tr>
<tr><td>Date</td><td>{{date}}</td></tr>
<tr><td>Method</td><td>{{method}}</td></tr>
<tr><td>Transaction</td><td>{{transactionId}}</td></tr>
<tr><td>Type</td><td>{{transactionType}}</td></tr>
<tr><td>Reason</td><td>{{reason}}</td></tr>
<tr><td>Reservation</td><td>{{reservationId}}</td></tr>
<tr><td>Status</td><td>{{status}}</td></tr>
<tr><td>Amount</td><td>{{amount}}</td></tr>
</table>
</body>
</html>
`

const invoiceTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Invoice {{reference}}</title></head>
<body style="font-family:Arial,sans-serif;color:#222">
<h2>{{heading}}</h2>
<p>Dear {{guest}},</p>
<p>Reservation <strong>{{reference}}</strong> from {{checkIn}} to {{checkOut}}.</p>
<table cellpadding="6">
{{lines}}
<tr><td>Net</td><td>{{net}}</td></tr>
<tr><td>Tax</td><td>{{tax}}</td></tr>
<tr><td><strong>Grand total</strong></td><td><strong>{{grandTotal}}</strong></td></tr>
<tr><td>Paid</td><td>{{paid}}</td></tr>
<tr><td>Due</td><td>{{due}}</td></tr>
</table>
{{payment}}
</body>
</html>
`

// Receipt renders the receipt mail for tx. Placeholders are replaced
// literally after HTML escaping.
func Receipt(receipt *billing.Receipt, to string) policies.Email {
	values := map[string]string{
		"receiptId":       string(receipt.ID),
		"date":            receipt.IssuedAt.UTC().Format("2006-01-02 15:04 MST"),
		"method":          string(receipt.Method),
		"transactionId":   string(receipt.Transaction),
		"transactionType": string(receipt.Kind),
		"reason":          receipt.Reason,
		"reservationId":   string(receipt.Reservation),
		"status":          string(receipt.Status),
		"amount":          Francs(receipt.Amount.Amount),
	}
	body := fill(receiptTemplate, values)
	text := fmt.Sprintf("Receipt %s: %s %s for reservation %s (%s).",
		receipt.ID, receipt.Kind, Francs(receipt.Amount.Amount), receipt.Reservation, receipt.Status)
	return policies.Email{To: to, Subject: "Your receipt " + string(receipt.ID), Text: text, HTML: body}
}

// Invoice renders the invoice mail sent after booking or a room change.
func Invoice(r *reservations.Reservation, inv *billing.Invoice) policies.Email {
	heading, subject := "Your invoice", "Invoice for reservation "+r.Reference
	if inv.IsRoomUpdate {
		heading, subject = "Your updated invoice", "Updated invoice for reservation "+r.Reference
	}
	var lines strings.Builder
	for _, line := range inv.Breakdown.Lines {
		fmt.Fprintf(&lines, "<tr><td>%s (%s) x %d nights</td><td>%s</td></tr>\n",
			html.EscapeString(string(line.Room)), html.EscapeString(line.RoomType), line.Nights, Francs(line.Amount.Amount))
	}
	payment := ""
	if inv.PaymentLink != "" {
		payment = fmt.Sprintf(`<p><a href="%s">Pay your deposit of %s</a> before the room hold expires.</p>`,
			html.EscapeString(inv.PaymentLink), Francs(r.Deposit.Amount))
	}
	values := map[string]string{
		"heading":    heading,
		"guest":      r.Contact.Name,
		"reference":  r.Reference,
		"checkIn":    r.Range.CheckIn.Format(time.DateOnly),
		"checkOut":   r.Range.CheckOut.Format(time.DateOnly),
		"net":        Francs(inv.NetAmount().Amount),
		"tax":        Francs(inv.TaxAmount().Amount),
		"grandTotal": Francs(inv.GrandTotal().Amount),
		"paid":       Francs(inv.AmountPaid.Amount),
		"due":        Francs(inv.AmountDue.Amount),
	}
	body := fill(invoiceTemplate, values)
	body = strings.NewReplacer("{{lines}}", lines.String(), "{{payment}}", payment).Replace(body)
	text := fmt.Sprintf("Reservation %s: grand total %s, due %s.", r.Reference, Francs(inv.GrandTotal().Amount), Francs(inv.AmountDue.Amount))
	if inv.PaymentLink != "" {
		text += " Pay your deposit at " + inv.PaymentLink
	}
	return policies.Email{To: r.Contact.MailTo(), Subject: subject, Text: text, HTML: body}
}

func fill(tmpl string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for key, value := range values {
		pairs = append(pairs, "{{"+key+"}}", html.EscapeString(value))
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}

// Francs formats an amount with thousands separators, e.g. "168 700 FCFA".
func Francs(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := fmt.Sprintf("%d", amount)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(d)
	}
	return sign + b.String() + " FCFA"
}
