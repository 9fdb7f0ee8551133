package policies

import "context"

type Email struct {
	To      string
	Subject string
	Text    string
	HTML    string
}

// Notifier delivers mail to guests. Delivery is best-effort.
type Notifier interface {
	SendEmail(ctx context.Context, msg Email) error
}

// ReceiptArchive stores rendered receipts and returns where they can be fetched.
type ReceiptArchive interface {
	Store(ctx context.Context, receiptID string, html []byte) (string, error)
}
