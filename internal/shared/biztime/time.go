// Package biztime centralises wall-clock access. All timestamps are UTC;
// the configured location only affects scheduler cron expressions.
package biztime

import (
	"fmt"
	"sync"
	"time"
)

const DefaultTimezone = "UTC"

var (
	location     *time.Location
	locationOnce sync.Once
	initErr      error
)

// Init sets the scheduler timezone. Only the first call has an effect.
func Init(tz string) error {
	locationOnce.Do(func() {
		if tz == "" {
			tz = DefaultTimezone
		}
		location, initErr = time.LoadLocation(tz)
	})
	return initErr
}

func Location() *time.Location {
	if err := Init(""); err != nil {
		panic(fmt.Sprintf("biztime: failed to load timezone: %v", err))
	}
	return location
}

// NowUTC is the default clock for stores and token issuance.
func NowUTC() time.Time {
	return time.Now().UTC()
}
