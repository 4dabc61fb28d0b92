package services

import (
	"log"
	"os"
	"strings"
)

var engineDebugEnabled = false

func init() {
	// Enable debug logging if ENGINE_DEBUG=1 or ENGINE_DEBUG=true
	if v := os.Getenv("ENGINE_DEBUG"); v != "" {
		v = strings.ToLower(v)
		engineDebugEnabled = v == "1" || v == "true" || v == "yes"
		if engineDebugEnabled {
			log.Println("[ENGINE] Debug logging: ENABLED")
		}
	}
}

// debugLog logs only when ENGINE_DEBUG is enabled.
// Use this for verbose per-request details, raw model output, cache hits/misses, etc.
func debugLog(format string, args ...interface{}) {
	if engineDebugEnabled {
		log.Printf("[ENGINE DEBUG] "+format, args...)
	}
}

// infoLog always logs important engine events.
// Use this for fallback escalations, API errors, retry exhaustion, etc.
func infoLog(format string, args ...interface{}) {
	log.Printf("[ENGINE] "+format, args...)
}
