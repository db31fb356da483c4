package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/simplelru"

	"github.com/happy-observatory/observatory/internal/shared/biztime"
)

// MemoryRateLimiter keeps fixed-window counters in process memory.
//
// Entries live in an LRU list that is only reordered when a key starts a new
// window, so list order is always window-start order. That makes the size
// bound evict the entry with the oldest window start, and lets Sweep stop at
// the first live entry.
type MemoryRateLimiter struct {
	mu        sync.Mutex
	policy    Policy
	entries   *simplelru.LRU[string, *Entry]
	now       func() time.Time
	evictions uint64
}

type MemoryOption func(*MemoryRateLimiter)

// WithClock replaces the wall clock; tests use it to advance time.
func WithClock(now func() time.Time) MemoryOption {
	return func(l *MemoryRateLimiter) {
		l.now = now
	}
}

func NewMemoryRateLimiter(policy Policy, opts ...MemoryOption) (*MemoryRateLimiter, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	// Capacity is enforced by CheckLimit before insertion; the LRU bound is a backstop.
	entries, err := simplelru.NewLRU[string, *Entry](policy.MaxSize, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit store: %w", err)
	}

	l := &MemoryRateLimiter{
		policy:  policy,
		entries: entries,
		now:     biztime.NowUTC,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func (l *MemoryRateLimiter) Policy() Policy {
	return l.policy
}

func (l *MemoryRateLimiter) CheckLimit(_ context.Context, key string) (Result, error) {
	now := l.now()
	limit := l.policy.MaxRequests

	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries.Peek(key)
	if !ok || entry.expired(now) {
		if !ok && l.entries.Len() >= l.policy.MaxSize {
			l.entries.RemoveOldest()
			l.evictions++
		}
		entry = &Entry{
			Key:         key,
			Count:       1,
			WindowStart: now,
			ResetTime:   now.Add(l.policy.Window),
		}
		l.entries.Add(key, entry)
		return Result{Allowed: true, Limit: limit, Remaining: limit - 1, ResetTime: entry.ResetTime}, nil
	}

	entry.Count++
	if entry.Count <= limit {
		return Result{Allowed: true, Limit: limit, Remaining: limit - entry.Count, ResetTime: entry.ResetTime}, nil
	}
	return Result{Allowed: false, Limit: limit, Remaining: 0, ResetTime: entry.ResetTime}, nil
}

func (l *MemoryRateLimiter) Reset(_ context.Context, key string) error {
	l.mu.Lock()
	l.entries.Remove(key)
	l.mu.Unlock()
	return nil
}

func (l *MemoryRateLimiter) Sweep(_ context.Context) (int, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for {
		_, oldest, ok := l.entries.GetOldest()
		if !ok || !oldest.expired(now) {
			break
		}
		l.entries.RemoveOldest()
		removed++
	}
	return removed, nil
}

func (l *MemoryRateLimiter) Stats(_ context.Context) (*Stats, error) {
	l.mu.Lock()
	values := l.entries.Values()
	entries := make([]Entry, len(values))
	for i, e := range values {
		entries[i] = *e
	}
	evictions := l.evictions
	l.mu.Unlock()

	stats := buildStats(l.policy, entries)
	stats.MaxSize = l.policy.MaxSize
	stats.Evictions = evictions
	return stats, nil
}

// Len returns the number of tracked keys, including expired ones not yet swept.
func (l *MemoryRateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.entries.Len()
}
