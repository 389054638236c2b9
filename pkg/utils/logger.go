package utils

import (
	"log"
	"sync/atomic"
)

var verbose atomic.Bool

// SetVerbose toggles debug logging.
func SetVerbose(enabled bool) {
	verbose.Store(enabled)
}

// Verbose reports whether debug logging is on.
func Verbose() bool {
	return verbose.Load()
}

// Debugf logs only when verbose logging is enabled.
func Debugf(format string, args ...any) {
	if verbose.Load() {
		log.Printf("[DEBUG] "+format, args...)
	}
}
