package memory

import (
	"context"
	"sync"
	"time"

	appoutbox "resortops/internal/app/outbox"
	"resortops/internal/app/uow"
	outboxworker "resortops/internal/infra/outbox"
)

// Outbox keeps event records in memory. Records added inside a write unit only
// become visible once the unit commits.
type Outbox struct {
	mu      sync.Mutex
	records []*outboxworker.EventDocument
}

func NewOutbox() *Outbox {
	return &Outbox{}
}

type pendingEvent struct {
	box    *Outbox
	record appoutbox.EventRecord
}

func (o *Outbox) Add(ctx context.Context, record appoutbox.EventRecord) error {
	if unit, ok := uow.FromContext(ctx); ok {
		if mu, ok := unit.(*Unit); ok && mu.stage(o, record) {
			return nil
		}
	}
	o.append(record)
	return nil
}

func (o *Outbox) append(record appoutbox.EventRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	o.records = append(o.records, &outboxworker.EventDocument{
		ID:          record.ID,
		Name:        record.Name,
		Payload:     record.Payload,
		OccurredAt:  record.OccurredAt,
		Aggregate:   record.Aggregate,
		Headers:     record.Headers,
		State:       outboxworker.StateNew,
		NextAttempt: now,
	})
}

// Records returns a snapshot of every record with its delivery state.
func (o *Outbox) Records() []outboxworker.EventDocument {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]outboxworker.EventDocument, 0, len(o.records))
	for _, doc := range o.records {
		out = append(out, *doc)
	}
	return out
}

func (o *Outbox) Claim(_ context.Context, workerID string) (*outboxworker.EventDocument, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	now := time.Now().UTC()
	for _, doc := range o.records {
		if doc.State != outboxworker.StateNew && doc.State != outboxworker.StateFailed {
			continue
		}
		if doc.NextAttempt.After(now) {
			continue
		}
		doc.State = outboxworker.StateClaimed
		doc.ClaimedBy = workerID
		doc.ClaimedAt = now
		copied := *doc
		return &copied, nil
	}
	return nil, nil
}

func (o *Outbox) MarkSent(_ context.Context, id string) error {
	o.update(id, func(doc *outboxworker.EventDocument) {
		doc.State = outboxworker.StateSent
		doc.SentAt = time.Now().UTC()
	})
	return nil
}

func (o *Outbox) MarkFailed(_ context.Context, id string, next time.Time, errMsg string) error {
	o.update(id, func(doc *outboxworker.EventDocument) {
		doc.State = outboxworker.StateFailed
		doc.NextAttempt = next
		doc.LastError = errMsg
		doc.Attempts++
	})
	return nil
}

func (o *Outbox) update(id string, fn func(doc *outboxworker.EventDocument)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, doc := range o.records {
		if doc.ID == id {
			fn(doc)
			return
		}
	}
}

func (u *Unit) stage(box *Outbox, record appoutbox.EventRecord) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.done || u.readOnly {
		return false
	}
	u.pending = append(u.pending, pendingEvent{box: box, record: record})
	return true
}

var (
	_ appoutbox.Outbox    = (*Outbox)(nil)
	_ outboxworker.Source = (*Outbox)(nil)
)
