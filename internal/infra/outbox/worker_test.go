package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	docs   []*EventDocument
	sent   []string
	failed []string
}

func (s *fakeSource) Claim(context.Context, string) (*EventDocument, error) {
	for _, d := range s.docs {
		if d.State == StateNew {
			d.State = StateClaimed
			return d, nil
		}
	}
	return nil, nil
}

func (s *fakeSource) MarkSent(_ context.Context, id string) error {
	s.sent = append(s.sent, id)
	return nil
}

func (s *fakeSource) MarkFailed(_ context.Context, id string, _ time.Time, _ string) error {
	s.failed = append(s.failed, id)
	return nil
}

type captured struct {
	topic   string
	key     string
	payload []byte
}

type fakeProducer struct {
	err  error
	msgs []captured
}

func (p *fakeProducer) Publish(_ context.Context, topic, key string, payload []byte, _ map[string]string) error {
	if p.err != nil {
		return p.err
	}
	p.msgs = append(p.msgs, captured{topic: topic, key: key, payload: payload})
	return nil
}

func newDoc(id, name string) *EventDocument {
	return &EventDocument{ID: id, Name: name, Aggregate: "res-1", Payload: []byte(`{"reservation_id":"res-1"}`), State: StateNew}
}

func TestDrainPublishesCloudEvents(t *testing.T) {
	src := &fakeSource{docs: []*EventDocument{newDoc("e1", "reservation.created"), newDoc("e2", "reservation.confirmed")}}
	prod := &fakeProducer{}
	w := &Worker{Store: src, Producer: prod, TopicPrefix: "hotel."}

	require.NoError(t, w.drain(context.Background()))

	require.Len(t, prod.msgs, 2)
	assert.Equal(t, "hotel.reservation.events.v1", prod.msgs[0].topic)
	assert.Equal(t, "res-1", prod.msgs[0].key)
	var evt map[string]any
	require.NoError(t, json.Unmarshal(prod.msgs[1].payload, &evt))
	assert.Equal(t, "reservation.confirmed.v1", evt["type"])
	assert.Equal(t, "e2", evt["id"])
	assert.Equal(t, []string{"e1", "e2"}, src.sent)
}

func TestPublishFailureSchedulesRetry(t *testing.T) {
	src := &fakeSource{docs: []*EventDocument{newDoc("e1", "reservation.created")}}
	w := &Worker{Store: src, Producer: &fakeProducer{err: errors.New("broker down")}}

	require.NoError(t, w.drain(context.Background()))

	assert.Empty(t, src.sent)
	assert.Equal(t, []string{"e1"}, src.failed)
}

func TestNextRetryUsesLastBackoffStep(t *testing.T) {
	w := &Worker{Backoff: []time.Duration{time.Second, time.Minute}}
	next := w.nextRetry(5)
	assert.WithinDuration(t, time.Now().Add(time.Minute), next, time.Second)
}

func TestInvalidPayloadIsRescheduled(t *testing.T) {
	doc := newDoc("e1", "reservation.created")
	doc.Payload = []byte("not json")
	src := &fakeSource{docs: []*EventDocument{doc}}
	prod := &fakeProducer{}
	w := &Worker{Store: src, Producer: prod}

	require.NoError(t, w.drain(context.Background()))

	assert.Empty(t, prod.msgs)
	assert.Equal(t, []string{"e1"}, src.failed)
}

func TestWakeDrainsBeforeNextTick(t *testing.T) {
	src := &lockedSource{fakeSource: fakeSource{docs: []*EventDocument{newDoc("e1", "room.released")}}}
	w := &Worker{Store: src, Producer: &fakeProducer{}, Interval: time.Hour}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	w.Wake()
	w.Wake()
	assert.Eventually(t, func() bool { return src.sentCount() == 1 }, time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

type lockedSource struct {
	mu sync.Mutex
	fakeSource
}

func (s *lockedSource) Claim(ctx context.Context, worker string) (*EventDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fakeSource.Claim(ctx, worker)
}

func (s *lockedSource) MarkSent(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fakeSource.MarkSent(ctx, id)
}

func (s *lockedSource) sentCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sent)
}
