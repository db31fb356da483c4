// Package goroutine provides helpers that keep a panicking task from taking the process down.
package goroutine

import (
	"fmt"
	"runtime/debug"

	"github.com/happy-observatory/observatory/internal/shared/logger"
)

// SafeRun calls fn and converts a panic into an error-level log line.
// It reports whether fn returned normally.
func SafeRun(log logger.Interface, name string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorw("task panicked",
				"task", name,
				"panic", fmt.Sprintf("%v", r),
				"stack", string(debug.Stack()),
			)
			ok = false
		}
	}()
	fn()
	return true
}
