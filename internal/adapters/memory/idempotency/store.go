package idempotency

import (
	"context"
	"sync"
	"time"

	"github.com/the-holiday/member-portal-api/internal/ports/out/clock"
	"github.com/the-holiday/member-portal-api/internal/ports/out/idempotency"
)

// DefaultRetention is how long a replayable response is kept.
const DefaultRetention = 24 * time.Hour

// Store is an in-memory implementation of idempotency.Store.
// It is safe for concurrent use.
type Store struct {
	clk       clock.Clock
	retention time.Duration

	mu sync.RWMutex
	m  map[idempotency.Fingerprint]idempotency.Record
}

// NewStore creates a store whose records expire after retention (DefaultRetention when <= 0).
func NewStore(clk clock.Clock, retention time.Duration) *Store {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Store{
		clk:       clk,
		retention: retention,
		m:         make(map[idempotency.Fingerprint]idempotency.Record),
	}
}

func (s *Store) Get(ctx context.Context, fp idempotency.Fingerprint) (idempotency.Record, bool, error) {
	_ = ctx
	s.mu.RLock()
	rec, ok := s.m[fp]
	s.mu.RUnlock()
	if !ok {
		return idempotency.Record{}, false, nil
	}
	if s.expired(rec) {
		s.mu.Lock()
		if cur, ok := s.m[fp]; ok && s.expired(cur) {
			delete(s.m, fp)
		}
		s.mu.Unlock()
		return idempotency.Record{}, false, nil
	}
	rec.Body = append([]byte(nil), rec.Body...)
	return rec, true, nil
}

func (s *Store) Put(ctx context.Context, fp idempotency.Fingerprint, rec idempotency.Record) error {
	_ = ctx
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.clk.Now().UTC()
	}
	rec.Body = append([]byte(nil), rec.Body...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[fp] = rec
	return nil
}

func (s *Store) expired(rec idempotency.Record) bool {
	return !s.clk.Now().Before(rec.CreatedAt.Add(s.retention))
}
