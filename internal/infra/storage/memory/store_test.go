package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resortops/internal/app/middleware"
	appoutbox "resortops/internal/app/outbox"
	"resortops/internal/app/uow"
	"resortops/internal/domain/reservations"
	"resortops/internal/domain/rooms"
	"resortops/internal/domain/shared/daterange"
)

func stay(room string, in, out int) []reservations.RoomStay {
	return []reservations.RoomStay{{
		Room: rooms.RoomID(room),
		Range: daterange.DateRange{
			CheckIn:  time.Date(2025, 6, in, 0, 0, 0, 0, time.UTC),
			CheckOut: time.Date(2025, 6, out, 0, 0, 0, 0, time.UTC),
		},
	}}
}

func begin(t *testing.T, store *Store, readOnly bool) *Unit {
	t.Helper()
	unit, err := Factory{Store: store}.Begin(context.Background(), uow.TxOptions{ReadOnly: readOnly})
	require.NoError(t, err)
	return unit.(*Unit)
}

func TestRollbackRestoresRoomsAndNights(t *testing.T) {
	store := NewStore()
	store.PutRoom(&rooms.Room{ID: "R101", Status: rooms.StatusFree})
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	unit := begin(t, store, false)
	room, err := unit.Rooms().ByID(ctx, "R101")
	require.NoError(t, err)
	require.NoError(t, room.Acquire("res-1", 30*time.Minute, now))
	require.NoError(t, unit.Rooms().Save(ctx, room))
	require.NoError(t, unit.Ledger().Claim(ctx, "res-1", stay("R101", 15, 20)))
	require.NoError(t, unit.Rollback(ctx))

	restored, ok := store.Room("R101")
	require.True(t, ok)
	assert.Equal(t, rooms.StatusFree, restored.Status)
	assert.Nil(t, restored.Lock)
	assert.Empty(t, store.nights)

	again := begin(t, store, false)
	require.NoError(t, again.Ledger().Claim(ctx, "res-2", stay("R101", 15, 20)))
	require.NoError(t, again.Commit(ctx))
	assert.Len(t, store.nights, 5)
}

func TestLedgerRefusesTakenNight(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	unit := begin(t, store, false)
	require.NoError(t, unit.Ledger().Claim(ctx, "res-1", stay("R101", 15, 20)))
	require.NoError(t, unit.Ledger().Claim(ctx, "res-1", stay("R101", 18, 22)), "a reservation may extend its own claim")

	err := unit.Ledger().Claim(ctx, "res-2", stay("R101", 21, 23))
	var taken *reservations.TakenError
	require.ErrorAs(t, err, &taken)
	assert.Equal(t, reservations.ID("res-1"), taken.Holder)
	assert.ErrorIs(t, err, reservations.ErrNightTaken)

	require.NoError(t, unit.Ledger().Retain(ctx, "res-1", stay("R101", 18, 22)))
	require.NoError(t, unit.Ledger().Claim(ctx, "res-2", stay("R101", 15, 18)))
	require.NoError(t, unit.Commit(ctx))
}

func TestSaveDetectsStaleVersion(t *testing.T) {
	store := NewStore()
	store.PutRoom(&rooms.Room{ID: "R101", Status: rooms.StatusFree})
	ctx := context.Background()

	reader := begin(t, store, true)
	stale, err := reader.Rooms().ByID(ctx, "R101")
	require.NoError(t, err)
	require.NoError(t, reader.Rollback(ctx))

	writer := begin(t, store, false)
	fresh, err := writer.Rooms().ByID(ctx, "R101")
	require.NoError(t, err)
	fresh.Status = rooms.StatusMaintenance
	require.NoError(t, writer.Rooms().Save(ctx, fresh))
	require.NoError(t, writer.Commit(ctx))

	late := begin(t, store, false)
	stale.Status = rooms.StatusReserved
	assert.ErrorIs(t, late.Rooms().Save(ctx, stale), uow.ErrConcurrentUpdate)
	require.NoError(t, late.Rollback(ctx))
}

func TestReadOnlyUnitRefusesWrites(t *testing.T) {
	store := NewStore()
	unit := begin(t, store, true)
	err := unit.Ledger().Claim(context.Background(), "res-1", stay("R101", 15, 16))
	assert.True(t, errors.Is(err, ErrReadOnly))
	require.NoError(t, unit.Rollback(context.Background()))
}

func TestOutboxAndHooksFollowCommit(t *testing.T) {
	store := NewStore()
	box := NewOutbox()
	record := appoutbox.EventRecord{ID: "evt-1", Name: "reservation.created", Payload: []byte(`{}`), Aggregate: "res-1"}

	unit := begin(t, store, false)
	ctx := uow.Bind(context.Background(), unit)
	hooked := 0
	unit.AfterCommit(func(context.Context) { hooked++ })
	require.NoError(t, box.Add(ctx, record))
	assert.Empty(t, box.Records())
	require.NoError(t, unit.Rollback(ctx))
	assert.Empty(t, box.Records())
	assert.Zero(t, hooked)

	unit = begin(t, store, false)
	ctx = uow.Bind(context.Background(), unit)
	unit.AfterCommit(func(context.Context) { hooked++ })
	require.NoError(t, box.Add(ctx, record))
	require.NoError(t, unit.Commit(ctx))
	require.Len(t, box.Records(), 1)
	assert.Equal(t, "evt-1", box.Records()[0].ID)
	assert.Equal(t, 1, hooked)
}

func TestIdempotencyRecordsExpire(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	store := NewIdempotencyStore(time.Hour)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{Key: "k1", Payload: []byte(`{"id":"res-1"}`)}))
	require.NoError(t, store.Save(ctx, middleware.IdempotencyRecord{Key: "k1", Payload: []byte(`{"id":"res-2"}`)}))

	rec, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"res-1"}`, string(rec.Payload))

	now = now.Add(61 * time.Minute)
	_, ok, err = store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}
