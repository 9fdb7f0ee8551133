package outbox

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resortops/internal/domain/reservations"
	"resortops/internal/domain/shared/events"
)

type captureBox struct{ records []EventRecord }

func (b *captureBox) Add(_ context.Context, rec EventRecord) error {
	b.records = append(b.records, rec)
	return nil
}

type aggregate struct{ events.EventRecorder }

func TestRecordDrainsAggregates(t *testing.T) {
	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	agg := &aggregate{}
	agg.Record(reservations.Confirmed{ReservationID: "res-1", At: at})
	agg.Record(reservations.Expired{ReservationID: "res-2", At: at})

	box := &captureBox{}
	enc := JSONEventEncoder{IDGenerator: func() string { return "evt" }}
	require.NoError(t, Record(context.Background(), box, enc, agg))

	require.Len(t, box.records, 2)
	assert.Equal(t, "reservation.confirmed", box.records[0].Name)
	assert.Equal(t, "res-1", box.records[0].Aggregate)
	assert.JSONEq(t, `{"ReservationID":"res-1","At":"2025-06-01T00:00:00Z"}`, string(box.records[0].Payload))
	assert.Empty(t, agg.PendingEvents())

	agg.Record(reservations.Confirmed{ReservationID: "res-3", At: at})
	require.NoError(t, Record(context.Background(), nil, nil, agg))
	assert.Empty(t, agg.PendingEvents())
}
