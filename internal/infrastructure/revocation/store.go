// Package revocation tracks JWT IDs that must be rejected before their natural expiry.
package revocation

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"
)

var ErrEmptyJTI = errors.New("revocation: empty jti")

// entryOverheadBytes approximates one record in the backing map.
const entryOverheadBytes = 64

// Store is implemented by MemoryStore and RedisStore.
type Store interface {
	// Revoke marks jti as revoked until expiresAt. Revoking again overwrites the expiry.
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	// IsRevoked reports whether jti is revoked and its record has not expired.
	IsRevoked(ctx context.Context, jti string) (bool, error)
	Stats(ctx context.Context) (*Stats, error)
	// Sweep deletes expired records and returns how many were removed.
	Sweep(ctx context.Context) (int, error)
}

type Record struct {
	JTI       string
	ExpiresAt time.Time
}

func (r Record) expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

type EntryStats struct {
	JTI             string    `json:"jti"`
	ExpiresAt       time.Time `json:"expires_at"`
	TimeUntilExpiry int64     `json:"time_until_expiry_seconds"`
}

type Stats struct {
	Count       int          `json:"count"`
	MemoryUsage int64        `json:"memory_usage_bytes"`
	Entries     []EntryStats `json:"entries"`
}

func buildStats(records []Record, now time.Time) *Stats {
	stats := &Stats{
		Count:   len(records),
		Entries: make([]EntryStats, 0, len(records)),
	}
	for _, r := range records {
		stats.MemoryUsage += int64(len(r.JTI)) + entryOverheadBytes
		stats.Entries = append(stats.Entries, EntryStats{
			JTI:             r.JTI,
			ExpiresAt:       r.ExpiresAt,
			TimeUntilExpiry: max(int64(r.ExpiresAt.Sub(now)/time.Second), 0),
		})
	}
	slices.SortFunc(stats.Entries, func(a, b EntryStats) int {
		if c := a.ExpiresAt.Compare(b.ExpiresAt); c != 0 {
			return c
		}
		return cmp.Compare(a.JTI, b.JTI)
	})
	return stats
}
