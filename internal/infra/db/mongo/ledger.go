package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"resortops/internal/domain/reservations"
)

// NightLedger stores one document per claimed (room, night), keyed by
// "room:yyyy-mm-dd" so the primary key rejects a second holder.
type NightLedger struct {
	col *mongo.Collection
}

func NewNightLedger(db *mongo.Database) *NightLedger {
	col := db.Collection("room_nights")
	ensureIndexes(col,
		mongo.IndexModel{Keys: bson.D{{Key: "reservation", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "night", Value: 1}}, Options: options.Index().SetUnique(true)},
	)
	return &NightLedger{col: col}
}

type nightDocument struct {
	ID          string    `bson:"_id"`
	RoomID      string    `bson:"room_id"`
	Night       time.Time `bson:"night"`
	Reservation string    `bson:"reservation"`
	ClaimedAt   time.Time `bson:"claimed_at"`
}

func (l *NightLedger) Claim(ctx context.Context, id reservations.ID, stays []reservations.RoomStay) error {
	nights := reservations.NightsOf(stays)
	if len(nights) == 0 {
		return nil
	}
	keys := make([]string, 0, len(nights))
	for _, n := range nights {
		keys = append(keys, n.Key())
	}
	held, err := l.holders(ctx, keys)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	docs := make([]any, 0, len(nights))
	for _, n := range nights {
		holder, ok := held[n.Key()]
		if ok && holder != id {
			return &reservations.TakenError{Night: n, Holder: holder}
		}
		if ok {
			continue
		}
		docs = append(docs, nightDocument{ID: n.Key(), RoomID: string(n.Room), Night: n.Date, Reservation: string(id), ClaimedAt: now})
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := l.col.InsertMany(ctx, docs); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return reservations.ErrNightTaken
		}
		return err
	}
	return nil
}

func (l *NightLedger) Retain(ctx context.Context, id reservations.ID, stays []reservations.RoomStay) error {
	keep := make([]string, 0)
	for _, n := range reservations.NightsOf(stays) {
		keep = append(keep, n.Key())
	}
	_, err := l.col.DeleteMany(ctx, bson.M{"reservation": string(id), "_id": bson.M{"$nin": keep}})
	return err
}

func (l *NightLedger) Release(ctx context.Context, id reservations.ID) error {
	_, err := l.col.DeleteMany(ctx, bson.M{"reservation": string(id)})
	return err
}

func (l *NightLedger) holders(ctx context.Context, keys []string) (map[string]reservations.ID, error) {
	cur, err := l.col.Find(ctx, bson.M{"_id": bson.M{"$in": keys}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var docs []nightDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make(map[string]reservations.ID, len(docs))
	for _, d := range docs {
		out[d.ID] = reservations.ID(d.Reservation)
	}
	return out, nil
}

var _ reservations.NightLedger = (*NightLedger)(nil)
