package revocation

import (
	"context"
	"sync"
	"time"

	"github.com/happy-observatory/observatory/internal/shared/biztime"
)

// MemoryStore keeps revoked JTIs in process memory. Records are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]time.Time
	now     func() time.Time
}

type MemoryOption func(*MemoryStore)

func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]time.Time),
		now:     biztime.NowUTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Revoke(_ context.Context, jti string, expiresAt time.Time) error {
	if jti == "" {
		return ErrEmptyJTI
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	// Already expired: there is nothing left to reject.
	if !expiresAt.After(s.now()) {
		delete(s.records, jti)
		return nil
	}
	s.records[jti] = expiresAt
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	s.mu.RLock()
	expiresAt, ok := s.records[jti]
	s.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return !(Record{JTI: jti, ExpiresAt: expiresAt}).expired(s.now()), nil
}

func (s *MemoryStore) Stats(_ context.Context) (*Stats, error) {
	now := s.now()

	s.mu.RLock()
	records := make([]Record, 0, len(s.records))
	for jti, expiresAt := range s.records {
		records = append(records, Record{JTI: jti, ExpiresAt: expiresAt})
	}
	s.mu.RUnlock()

	return buildStats(records, now), nil
}

func (s *MemoryStore) Sweep(_ context.Context) (int, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for jti, expiresAt := range s.records {
		if (Record{JTI: jti, ExpiresAt: expiresAt}).expired(now) {
			delete(s.records, jti)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
