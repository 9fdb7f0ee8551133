package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"resortops/internal/app/uow"
	"resortops/internal/domain/reservations"
	"resortops/internal/domain/rooms"
	"resortops/internal/domain/shared/daterange"
	"resortops/internal/domain/shared/money"
)

type ReservationRepository struct {
	col *mongo.Collection
}

func NewReservationRepository(db *mongo.Database) *ReservationRepository {
	col := db.Collection("reservations")
	ensureIndexes(col,
		mongo.IndexModel{Keys: bson.D{{Key: "reference", Value: 1}}, Options: options.Index().SetUnique(true)},
		mongo.IndexModel{Keys: bson.D{{Key: "room_ids", Value: 1}, {Key: "status", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}, {Key: "check_in", Value: 1}}},
	)
	return &ReservationRepository{col: col}
}

func (r *ReservationRepository) ByID(ctx context.Context, id reservations.ID) (*reservations.Reservation, error) {
	var doc reservationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, reservations.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ReservationRepository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	n, err := r.col.CountDocuments(ctx, bson.M{"reference": reference}, options.Count().SetLimit(1))
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *ReservationRepository) Save(ctx context.Context, res *reservations.Reservation) error {
	doc := newReservationDocument(res)
	doc.Version = res.Version + 1
	err := saveVersioned(ctx, r.col, doc.ID, res.Version, doc)
	if errors.Is(err, uow.ErrConcurrentUpdate) && res.Version == 0 {
		if taken, _ := r.ReferenceExists(ctx, res.Reference); taken {
			return reservations.ErrReferenceTaken
		}
	}
	if err != nil {
		return err
	}
	res.Version = doc.Version
	return nil
}

func (r *ReservationRepository) Delete(ctx context.Context, id reservations.ID) error {
	_, err := r.col.DeleteOne(ctx, bson.M{"_id": string(id)})
	return err
}

func (r *ReservationRepository) HoldingRooms(ctx context.Context, roomIDs []rooms.RoomID, statuses []reservations.Status) ([]*reservations.Reservation, error) {
	raw := make([]string, 0, len(roomIDs))
	for _, id := range roomIDs {
		raw = append(raw, string(id))
	}
	filter := bson.M{"room_ids": bson.M{"$in": raw}, "status": bson.M{"$in": statusStrings(statuses)}}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}}))
}

func (r *ReservationRepository) DueForCompletion(ctx context.Context, now time.Time) ([]*reservations.Reservation, error) {
	filter := bson.M{
		"status":   bson.M{"$in": []string{string(reservations.StatusConfirmed), string(reservations.StatusCheckedIn)}},
		"check_in": bson.M{"$lte": now.UTC()},
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}}))
}

func (r *ReservationRepository) List(ctx context.Context, filter reservations.Filter) ([]*reservations.Reservation, error) {
	q := bson.M{}
	if len(filter.Statuses) > 0 {
		q["status"] = bson.M{"$in": statusStrings(filter.Statuses)}
	}
	if !filter.To.IsZero() {
		q["check_in"] = bson.M{"$lt": filter.To.UTC()}
	}
	if !filter.From.IsZero() {
		q["check_out"] = bson.M{"$gt": filter.From.UTC()}
	}
	opts := options.Find().SetSort(bson.D{{Key: "check_in", Value: 1}, {Key: "_id", Value: 1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	return r.find(ctx, q, opts)
}

func (r *ReservationRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*reservations.Reservation, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []reservationDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*reservations.Reservation, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

func statusStrings(statuses []reservations.Status) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}

type reservationDocument struct {
	ID        string          `bson:"_id"`
	Reference string          `bson:"reference"`
	Status    string          `bson:"status"`
	CheckIn   time.Time       `bson:"check_in"`
	CheckOut  time.Time       `bson:"check_out"`
	RoomIDs   []string        `bson:"room_ids"`
	Contact   contactDocument `bson:"contact"`
	Items     []itemDocument  `bson:"items"`
	Deposit   int64           `bson:"deposit"`
	Currency  string          `bson:"currency"`
	Onsite    bool            `bson:"onsite"`
	CreatedBy string          `bson:"created_by,omitempty"`
	Notes     string          `bson:"notes,omitempty"`
	CreatedAt time.Time       `bson:"created_at"`
	UpdatedAt time.Time       `bson:"updated_at"`
	Version   int64           `bson:"version"`
}

type contactDocument struct {
	Kind    string `bson:"kind"`
	GuestID string `bson:"guest_id,omitempty"`
	Name    string `bson:"name,omitempty"`
	Email   string `bson:"email,omitempty"`
	Phone   string `bson:"phone,omitempty"`
}

type itemDocument struct {
	RoomType string         `bson:"room_type"`
	Rate     string         `bson:"rate"`
	Rooms    []stayDocument `bson:"rooms"`
}

type stayDocument struct {
	Room     string    `bson:"room"`
	CheckIn  time.Time `bson:"check_in"`
	CheckOut time.Time `bson:"check_out"`
}

func newReservationDocument(res *reservations.Reservation) reservationDocument {
	items := make([]itemDocument, 0, len(res.Items))
	for _, item := range res.Items {
		stays := make([]stayDocument, 0, len(item.Rooms))
		for _, s := range item.Rooms {
			stays = append(stays, stayDocument{Room: string(s.Room), CheckIn: s.Range.CheckIn.UTC(), CheckOut: s.Range.CheckOut.UTC()})
		}
		items = append(items, itemDocument{RoomType: item.RoomType, Rate: item.Rate, Rooms: stays})
	}
	roomIDs := make([]string, 0)
	for _, id := range res.RoomIDs() {
		roomIDs = append(roomIDs, string(id))
	}
	return reservationDocument{
		ID:        string(res.ID),
		Reference: res.Reference,
		Status:    string(res.Status),
		CheckIn:   res.Range.CheckIn.UTC(),
		CheckOut:  res.Range.CheckOut.UTC(),
		RoomIDs:   roomIDs,
		Contact: contactDocument{
			Kind:    string(res.Contact.Kind),
			GuestID: res.Contact.GuestID,
			Name:    res.Contact.Name,
			Email:   res.Contact.Email,
			Phone:   res.Contact.Phone,
		},
		Items:     items,
		Deposit:   res.Deposit.Amount,
		Currency:  strings.ToUpper(res.Deposit.Zero().Currency),
		Onsite:    res.Onsite,
		CreatedBy: res.CreatedBy,
		Notes:     res.Notes,
		CreatedAt: res.CreatedAt.UTC(),
		UpdatedAt: res.UpdatedAt.UTC(),
		Version:   res.Version,
	}
}

func (d reservationDocument) toAggregate() *reservations.Reservation {
	items := make([]reservations.Item, 0, len(d.Items))
	for _, item := range d.Items {
		stays := make([]reservations.RoomStay, 0, len(item.Rooms))
		for _, s := range item.Rooms {
			stays = append(stays, reservations.RoomStay{
				Room:  rooms.RoomID(s.Room),
				Range: daterange.DateRange{CheckIn: s.CheckIn.UTC(), CheckOut: s.CheckOut.UTC()},
			})
		}
		items = append(items, reservations.Item{RoomType: item.RoomType, Rate: item.Rate, Rooms: stays})
	}
	return &reservations.Reservation{
		ID:        reservations.ID(d.ID),
		Reference: d.Reference,
		Status:    reservations.Status(d.Status),
		Range:     daterange.DateRange{CheckIn: d.CheckIn.UTC(), CheckOut: d.CheckOut.UTC()},
		Contact: reservations.Contact{
			Kind:    reservations.ContactKind(d.Contact.Kind),
			GuestID: d.Contact.GuestID,
			Name:    d.Contact.Name,
			Email:   d.Contact.Email,
			Phone:   d.Contact.Phone,
		},
		Items:     items,
		Deposit:   money.Money{Amount: d.Deposit, Currency: d.Currency},
		Onsite:    d.Onsite,
		CreatedBy: d.CreatedBy,
		Notes:     d.Notes,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
		Version:   d.Version,
	}
}
