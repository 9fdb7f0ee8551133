package memory

import (
	"context"
	"sync"
	"time"

	"resortops/internal/app/middleware"
)

// IdempotencyStore keeps command results for replay until they are older
// than the TTL. Expired entries are swept on write.
type IdempotencyStore struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	records map[string]middleware.IdempotencyRecord
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{ttl: ttl, now: time.Now, records: make(map[string]middleware.IdempotencyRecord)}
}

func (s *IdempotencyStore) Get(_ context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	if !ok || s.expired(rec) {
		return middleware.IdempotencyRecord{}, false, nil
	}
	rec.Payload = append([]byte(nil), rec.Payload...)
	return rec, true, nil
}

// Save stores rec unless a live record already holds the key; the first
// outcome recorded for a key is the one replayed.
func (s *IdempotencyStore) Save(_ context.Context, rec middleware.IdempotencyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, existing := range s.records {
		if s.expired(existing) {
			delete(s.records, key)
		}
	}
	if _, live := s.records[rec.Key]; live {
		return nil
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = s.now().UTC()
	}
	rec.Payload = append([]byte(nil), rec.Payload...)
	s.records[rec.Key] = rec
	return nil
}

func (s *IdempotencyStore) expired(rec middleware.IdempotencyRecord) bool {
	return s.ttl > 0 && s.now().Sub(rec.OccurredAt) > s.ttl
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
