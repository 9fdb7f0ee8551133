package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"resortops/internal/domain/billing"
	"resortops/internal/domain/reservations"
	"resortops/internal/domain/rooms"
	"resortops/internal/domain/shared/money"
)

type InvoiceRepository struct {
	col *mongo.Collection
}

func NewInvoiceRepository(db *mongo.Database) *InvoiceRepository {
	col := db.Collection("invoices")
	ensureIndexes(col,
		mongo.IndexModel{Keys: bson.D{{Key: "reservation", Value: 1}}, Options: options.Index().SetUnique(true)},
	)
	return &InvoiceRepository{col: col}
}

func (r *InvoiceRepository) ByID(ctx context.Context, id billing.InvoiceID) (*billing.Invoice, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *InvoiceRepository) ByReservation(ctx context.Context, id reservations.ID) (*billing.Invoice, error) {
	return r.findOne(ctx, bson.M{"reservation": string(id)})
}

func (r *InvoiceRepository) Save(ctx context.Context, inv *billing.Invoice) error {
	doc := newInvoiceDocument(inv)
	doc.Version = inv.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, inv.Version, doc); err != nil {
		return err
	}
	inv.Version = doc.Version
	return nil
}

func (r *InvoiceRepository) Delete(ctx context.Context, id billing.InvoiceID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	return err
}

func (r *InvoiceRepository) findOne(ctx context.Context, filter bson.M) (*billing.Invoice, error) {
	var doc invoiceDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, billing.ErrInvoiceNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

type invoiceDocument struct {
	ID            string            `bson:"_id"`
	Reservation   string            `bson:"reservation"`
	Lines         []lineDocument    `bson:"lines"`
	Taxes         []taxLineDocument `bson:"taxes"`
	NetAmount     int64             `bson:"net_amount"`
	TaxAmount     int64             `bson:"tax_amount"`
	GrandTotal    int64             `bson:"grand_total"`
	AmountPaid    int64             `bson:"amount_paid"`
	AmountDue     int64             `bson:"amount_due"`
	Currency      string            `bson:"currency"`
	PaymentStatus string            `bson:"payment_status"`
	PaymentLink   string            `bson:"payment_link,omitempty"`
	PaymentLinkID string            `bson:"payment_link_id,omitempty"`
	DueDate       time.Time         `bson:"due_date"`
	IsRoomUpdate  bool              `bson:"is_room_update"`
	CreatedAt     time.Time         `bson:"created_at"`
	UpdatedAt     time.Time         `bson:"updated_at"`
	Version       int64             `bson:"version"`
}

type lineDocument struct {
	Room     string `bson:"room"`
	RoomType string `bson:"room_type"`
	Rate     string `bson:"rate"`
	Nights   int    `bson:"nights"`
	Nightly  int64  `bson:"nightly"`
	Amount   int64  `bson:"amount"`
}

type taxLineDocument struct {
	Name    string `bson:"name"`
	Percent string `bson:"percent"`
	Amount  int64  `bson:"amount"`
}

func newInvoiceDocument(inv *billing.Invoice) invoiceDocument {
	b := inv.Breakdown
	lines := make([]lineDocument, 0, len(b.Lines))
	for _, l := range b.Lines {
		lines = append(lines, lineDocument{Room: string(l.Room), RoomType: l.RoomType, Rate: l.Rate, Nights: l.Nights, Nightly: l.Nightly.Amount, Amount: l.Amount.Amount})
	}
	taxes := make([]taxLineDocument, 0, len(b.Taxes))
	for _, t := range b.Taxes {
		taxes = append(taxes, taxLineDocument{Name: t.Name, Percent: t.Percent.String(), Amount: t.Amount.Amount})
	}
	return invoiceDocument{
		ID:            string(inv.ID),
		Reservation:   string(inv.Reservation),
		Lines:         lines,
		Taxes:         taxes,
		NetAmount:     b.Net.Amount,
		TaxAmount:     b.Tax.Amount,
		GrandTotal:    b.GrandTotal.Amount,
		AmountPaid:    inv.AmountPaid.Amount,
		AmountDue:     inv.AmountDue.Amount,
		Currency:      b.GrandTotal.Zero().Currency,
		PaymentStatus: string(inv.PaymentStatus),
		PaymentLink:   inv.PaymentLink,
		PaymentLinkID: inv.PaymentLinkID,
		DueDate:       inv.DueDate.UTC(),
		IsRoomUpdate:  inv.IsRoomUpdate,
		CreatedAt:     inv.CreatedAt.UTC(),
		UpdatedAt:     inv.UpdatedAt.UTC(),
		Version:       inv.Version,
	}
}

func (d invoiceDocument) toAggregate() *billing.Invoice {
	cfa := func(v int64) money.Money { return money.Money{Amount: v, Currency: d.Currency} }
	lines := make([]billing.Line, 0, len(d.Lines))
	for _, l := range d.Lines {
		lines = append(lines, billing.Line{Room: rooms.RoomID(l.Room), RoomType: l.RoomType, Rate: l.Rate, Nights: l.Nights, Nightly: cfa(l.Nightly), Amount: cfa(l.Amount)})
	}
	taxes := make([]billing.TaxLine, 0, len(d.Taxes))
	for _, t := range d.Taxes {
		pct, _ := decimal.NewFromString(t.Percent)
		taxes = append(taxes, billing.TaxLine{Name: t.Name, Percent: pct, Amount: cfa(t.Amount)})
	}
	return &billing.Invoice{
		ID:          billing.InvoiceID(d.ID),
		Reservation: reservations.ID(d.Reservation),
		Breakdown: billing.Breakdown{
			Lines:      lines,
			Net:        cfa(d.NetAmount),
			Taxes:      taxes,
			Tax:        cfa(d.TaxAmount),
			GrandTotal: cfa(d.GrandTotal),
		},
		AmountPaid:    cfa(d.AmountPaid),
		AmountDue:     cfa(d.AmountDue),
		PaymentStatus: billing.PaymentStatus(d.PaymentStatus),
		PaymentLink:   d.PaymentLink,
		PaymentLinkID: d.PaymentLinkID,
		DueDate:       d.DueDate.UTC(),
		IsRoomUpdate:  d.IsRoomUpdate,
		CreatedAt:     d.CreatedAt.UTC(),
		UpdatedAt:     d.UpdatedAt.UTC(),
		Version:       d.Version,
	}
}

type TransactionRepository struct {
	col *mongo.Collection
}

func NewTransactionRepository(db *mongo.Database) *TransactionRepository {
	col := db.Collection("transactions")
	ensureIndexes(col,
		mongo.IndexModel{Keys: bson.D{
			{Key: "reservation", Value: 1},
			{Key: "kind", Value: 1},
			{Key: "reason", Value: 1},
			{Key: "status", Value: 1},
		}},
	)
	return &TransactionRepository{col: col}
}

func (r *TransactionRepository) Save(ctx context.Context, tx *billing.Transaction) error {
	_, err := r.col.InsertOne(ctx, newTransactionDocument(tx))
	return err
}

func (r *TransactionRepository) HasSuccessful(ctx context.Context, m billing.Match) (bool, error) {
	filter := bson.M{
		"reservation": string(m.Reservation),
		"kind":        string(m.Kind),
		"reason":      m.Reason,
		"amount":      m.Amount.Amount,
		"status":      string(billing.TransactionSuccess),
	}
	n, err := r.col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *TransactionRepository) ListByReservation(ctx context.Context, id reservations.ID) ([]*billing.Transaction, error) {
	cur, err := r.col.Find(ctx, bson.M{"reservation": string(id)}, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []transactionDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*billing.Transaction, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

func (r *TransactionRepository) Delete(ctx context.Context, id billing.TransactionID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	return err
}

type transactionDocument struct {
	ID          string    `bson:"_id"`
	Kind        string    `bson:"kind"`
	Status      string    `bson:"status"`
	Method      string    `bson:"method"`
	Amount      int64     `bson:"amount"`
	Currency    string    `bson:"currency"`
	Reason      string    `bson:"reason"`
	Reservation string    `bson:"reservation"`
	Invoice     string    `bson:"invoice"`
	Guest       string    `bson:"guest,omitempty"`
	ProviderRef string    `bson:"provider_ref,omitempty"`
	CreatedAt   time.Time `bson:"created_at"`
}

func newTransactionDocument(tx *billing.Transaction) transactionDocument {
	return transactionDocument{
		ID:          string(tx.ID),
		Kind:        string(tx.Kind),
		Status:      string(tx.Status),
		Method:      string(tx.Method),
		Amount:      tx.Amount.Amount,
		Currency:    tx.Amount.Zero().Currency,
		Reason:      tx.Reason,
		Reservation: string(tx.Reservation),
		Invoice:     string(tx.Invoice),
		Guest:       tx.Guest,
		ProviderRef: tx.ProviderRef,
		CreatedAt:   tx.CreatedAt.UTC(),
	}
}

func (d transactionDocument) toAggregate() *billing.Transaction {
	return &billing.Transaction{
		ID:          billing.TransactionID(d.ID),
		Kind:        billing.TransactionKind(d.Kind),
		Status:      billing.TransactionStatus(d.Status),
		Method:      billing.Method(d.Method),
		Amount:      money.Money{Amount: d.Amount, Currency: d.Currency},
		Reason:      d.Reason,
		Reservation: reservations.ID(d.Reservation),
		Invoice:     billing.InvoiceID(d.Invoice),
		Guest:       d.Guest,
		ProviderRef: d.ProviderRef,
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

type ReceiptRepository struct {
	col *mongo.Collection
}

func NewReceiptRepository(db *mongo.Database) *ReceiptRepository {
	col := db.Collection("receipts")
	ensureIndexes(col, mongo.IndexModel{Keys: bson.D{{Key: "reservation", Value: 1}, {Key: "issued_at", Value: 1}}})
	return &ReceiptRepository{col: col}
}

func (r *ReceiptRepository) Save(ctx context.Context, receipt *billing.Receipt) error {
	doc := receiptDocument{
		ID:          string(receipt.ID),
		Transaction: string(receipt.Transaction),
		Reservation: string(receipt.Reservation),
		Kind:        string(receipt.Kind),
		Method:      string(receipt.Method),
		Reason:      receipt.Reason,
		Status:      string(receipt.Status),
		Amount:      receipt.Amount.Amount,
		Currency:    receipt.Amount.Zero().Currency,
		IssuedAt:    receipt.IssuedAt.UTC(),
		ArchiveURL:  receipt.ArchiveURL,
	}
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

func (r *ReceiptRepository) ListByReservation(ctx context.Context, id reservations.ID) ([]*billing.Receipt, error) {
	cur, err := r.col.Find(ctx, bson.M{"reservation": string(id)}, options.Find().SetSort(bson.D{{Key: "issued_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []receiptDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*billing.Receipt, 0, len(docs))
	for _, d := range docs {
		out = append(out, &billing.Receipt{
			ID:          billing.ReceiptID(d.ID),
			Transaction: billing.TransactionID(d.Transaction),
			Reservation: reservations.ID(d.Reservation),
			Kind:        billing.TransactionKind(d.Kind),
			Method:      billing.Method(d.Method),
			Reason:      d.Reason,
			Status:      billing.TransactionStatus(d.Status),
			Amount:      money.Money{Amount: d.Amount, Currency: d.Currency},
			IssuedAt:    d.IssuedAt.UTC(),
			ArchiveURL:  d.ArchiveURL,
		})
	}
	return out, nil
}

func (r *ReceiptRepository) Delete(ctx context.Context, id billing.ReceiptID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	return err
}

type receiptDocument struct {
	ID          string    `bson:"_id"`
	Transaction string    `bson:"transaction"`
	Reservation string    `bson:"reservation"`
	Kind        string    `bson:"kind"`
	Method      string    `bson:"method"`
	Reason      string    `bson:"reason"`
	Status      string    `bson:"status"`
	Amount      int64     `bson:"amount"`
	Currency    string    `bson:"currency"`
	IssuedAt    time.Time `bson:"issued_at"`
	ArchiveURL  string    `bson:"archive_url,omitempty"`
}

// RateCard reads nightly prices from the room_rates collection.
type RateCard struct {
	col *mongo.Collection
}

func NewRateCard(db *mongo.Database) *RateCard {
	col := db.Collection("room_rates")
	ensureIndexes(col, mongo.IndexModel{Keys: bson.D{{Key: "room_type", Value: 1}, {Key: "rate", Value: 1}}, Options: options.Index().SetUnique(true)})
	return &RateCard{col: col}
}

type rateDocument struct {
	ID       string `bson:"_id"`
	RoomType string `bson:"room_type"`
	Rate     string `bson:"rate"`
	Nightly  int64  `bson:"nightly"`
	Currency string `bson:"currency"`
}

func (c *RateCard) NightlyRate(ctx context.Context, roomType, rate string) (money.Money, error) {
	var doc rateDocument
	if err := c.col.FindOne(ctx, bson.M{"room_type": roomType, "rate": rate}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return money.Money{}, billing.ErrRateNotFound
		}
		return money.Money{}, err
	}
	return money.Money{Amount: doc.Nightly, Currency: doc.Currency}, nil
}

// Put upserts a nightly price, used when seeding fixtures.
func (c *RateCard) Put(ctx context.Context, roomType, rate string, nightly money.Money) error {
	doc := rateDocument{ID: roomType + "/" + rate, RoomType: roomType, Rate: rate, Nightly: nightly.Amount, Currency: nightly.Zero().Currency}
	_, err := c.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}
