package utils

import (
	"time"

	"github.com/rs/zerolog"
)

// OperationTimer provides a defer-friendly way to measure operation duration.
// The returned func logs at debug level, or at warn level once the duration
// exceeds slowAfter (zero disables the warning), and returns the duration.
//
// Usage:
//
//	stop := utils.OperationTimer("sarima_fit", 5*time.Second, log)
//	defer stop()
func OperationTimer(operation string, slowAfter time.Duration, log zerolog.Logger) func() time.Duration {
	start := time.Now()

	return func() time.Duration {
		duration := time.Since(start)

		event := log.Debug()
		msg := "Operation completed"
		if slowAfter > 0 && duration > slowAfter {
			event = log.Warn()
			msg = "Slow operation detected"
		}

		event.
			Str("operation", operation).
			Dur("duration_ms", duration).
			Msg(msg)

		return duration
	}
}
