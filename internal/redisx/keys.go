package redisx

import "time"

const (
	// Cache snapshot order (immutable, aman di-cache): order:%s -> JSON order
	KeyOrderSnapshot = "order:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLOrderCache = 15 * time.Minute
	TTLDedup      = 48 * time.Hour
)
