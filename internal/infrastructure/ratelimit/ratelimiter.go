package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrInvalidPolicy = errors.New("invalid rate limit policy")

// Policy is a fixed-window limit: at most MaxRequests per key in each Window.
// MaxSize caps how many keys a memory limiter tracks at once.
type Policy struct {
	Name        string
	Window      time.Duration
	MaxRequests int
	MaxSize     int
}

func (p Policy) Validate() error {
	switch {
	case p.Window <= 0:
		return fmt.Errorf("%w: window must be positive, got %s", ErrInvalidPolicy, p.Window)
	case p.MaxRequests <= 0:
		return fmt.Errorf("%w: max requests must be positive, got %d", ErrInvalidPolicy, p.MaxRequests)
	case p.MaxSize <= 0:
		return fmt.Errorf("%w: max size must be positive, got %d", ErrInvalidPolicy, p.MaxSize)
	}
	return nil
}

// Result is the outcome of a single CheckLimit call.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	// ResetTime is when the current window ends and the caller may retry.
	ResetTime time.Time
}

// Entry is the per-key counter of the current window.
// The window is the half-open interval [WindowStart, ResetTime).
type Entry struct {
	Key         string
	Count       int
	WindowStart time.Time
	ResetTime   time.Time
}

func (e *Entry) expired(now time.Time) bool {
	return !now.Before(e.ResetTime)
}

type RateLimiter interface {
	// CheckLimit counts one request for key and decides whether it is admitted.
	CheckLimit(ctx context.Context, key string) (Result, error)
	Reset(ctx context.Context, key string) error
	Stats(ctx context.Context) (*Stats, error)
	// Sweep removes expired entries and returns how many were removed.
	Sweep(ctx context.Context) (int, error)
	Policy() Policy
}
