package ratelimit

import (
	"cmp"
	"slices"
	"time"
)

const (
	topKeysLimit = 10
	// entryOverheadBytes approximates one tracked key: the Entry struct plus
	// map bucket and list element bookkeeping.
	entryOverheadBytes = 128
)

type KeyCount struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

type Stats struct {
	Policy       string     `json:"policy"`
	StoreSize    int        `json:"store_size"`
	MaxSize      int        `json:"max_size"`
	MemoryUsage  int64      `json:"memory_usage_bytes"`
	Evictions    uint64     `json:"evictions"`
	OldestExpiry *time.Time `json:"oldest_expiry,omitempty"`
	NewestExpiry *time.Time `json:"newest_expiry,omitempty"`
	TopKeys      []KeyCount `json:"top_keys"`
}

func buildStats(policy Policy, entries []Entry) *Stats {
	stats := &Stats{
		Policy:    policy.Name,
		StoreSize: len(entries),
		TopKeys:   make([]KeyCount, 0, min(len(entries), topKeysLimit)),
	}

	counts := make([]KeyCount, 0, len(entries))
	for i := range entries {
		e := &entries[i]
		stats.MemoryUsage += int64(len(e.Key)) + entryOverheadBytes
		counts = append(counts, KeyCount{Key: e.Key, Count: e.Count})

		reset := e.ResetTime
		if stats.OldestExpiry == nil || reset.Before(*stats.OldestExpiry) {
			stats.OldestExpiry = &reset
		}
		if stats.NewestExpiry == nil || reset.After(*stats.NewestExpiry) {
			stats.NewestExpiry = &reset
		}
	}

	slices.SortFunc(counts, func(a, b KeyCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	stats.TopKeys = append(stats.TopKeys, counts[:min(len(counts), topKeysLimit)]...)

	return stats
}
