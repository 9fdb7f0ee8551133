package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"resortops/internal/domain/rooms"
)

type RoomRepository struct {
	col *mongo.Collection
}

func NewRoomRepository(db *mongo.Database) *RoomRepository {
	col := db.Collection("rooms")
	ensureIndexes(col,
		mongo.IndexModel{Keys: bson.D{{Key: "number", Value: 1}}, Options: options.Index().SetUnique(true)},
		mongo.IndexModel{Keys: bson.D{{Key: "lock.until", Value: 1}}},
	)
	return &RoomRepository{col: col}
}

func (r *RoomRepository) ByID(ctx context.Context, id rooms.RoomID) (*rooms.Room, error) {
	var doc roomDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, rooms.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *RoomRepository) ByIDs(ctx context.Context, ids []rooms.RoomID) ([]*rooms.Room, error) {
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, string(id))
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": raw}}, nil)
}

func (r *RoomRepository) List(ctx context.Context) ([]*rooms.Room, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "number", Value: 1}}))
}

func (r *RoomRepository) ExpiredLocks(ctx context.Context, now time.Time) ([]*rooms.Room, error) {
	return r.find(ctx, bson.M{"lock.until": bson.M{"$lte": now.UTC()}}, nil)
}

func (r *RoomRepository) Save(ctx context.Context, room *rooms.Room) error {
	doc := newRoomDocument(room)
	doc.Version = room.Version + 1
	if err := saveVersioned(ctx, r.col, doc.ID, room.Version, doc); err != nil {
		return err
	}
	room.Version = doc.Version
	return nil
}

func (r *RoomRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*rooms.Room, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []roomDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]*rooms.Room, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAggregate())
	}
	return out, nil
}

type roomDocument struct {
	ID        string        `bson:"_id"`
	Number    string        `bson:"number"`
	RoomType  string        `bson:"room_type"`
	Status    string        `bson:"status"`
	Lock      *lockDocument `bson:"lock"`
	UpdatedAt time.Time     `bson:"updated_at"`
	Version   int64         `bson:"version"`
}

type lockDocument struct {
	Until       time.Time `bson:"until"`
	Reservation string    `bson:"reservation"`
}

func newRoomDocument(room *rooms.Room) roomDocument {
	doc := roomDocument{
		ID:        string(room.ID),
		Number:    room.Number,
		RoomType:  room.RoomType,
		Status:    string(room.Status),
		UpdatedAt: room.UpdatedAt.UTC(),
		Version:   room.Version,
	}
	if room.Lock != nil {
		doc.Lock = &lockDocument{Until: room.Lock.Until.UTC(), Reservation: room.Lock.Reservation}
	}
	return doc
}

func (d roomDocument) toAggregate() *rooms.Room {
	room := &rooms.Room{
		ID:        rooms.RoomID(d.ID),
		Number:    d.Number,
		RoomType:  d.RoomType,
		Status:    rooms.Status(d.Status),
		UpdatedAt: d.UpdatedAt.UTC(),
		Version:   d.Version,
	}
	if d.Lock != nil {
		room.Lock = &rooms.Lock{Until: d.Lock.Until.UTC(), Reservation: d.Lock.Reservation}
	}
	return room
}
