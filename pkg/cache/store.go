package cache

import (
	"context"
	"time"

	"github.com/contactdeck/contacts-client/pkg/client"
)

const (
	// DefaultTTL is the fallback lifetime for entries stored without an
	// explicit TTL.
	DefaultTTL = 5 * time.Minute

	// DefaultMaxSize is the default entry-count bound.
	DefaultMaxSize = 100
)

// Store is a bounded key→page cache. Implementations must be safe for
// concurrent use and must never propagate internal faults: a failed lookup
// behaves as a miss, a failed insert is dropped silently (logged only).
type Store interface {
	// Get returns the cached page for key, or ok=false on a miss.
	// An entry past its expiry is removed and counted as a miss.
	Get(ctx context.Context, key string) (page *client.Page, ok bool)

	// Set inserts or replaces the page under key with the default TTL.
	Set(ctx context.Context, key string, page *client.Page)

	// SetWithTTL inserts or replaces the page under key with an explicit
	// TTL. A non-positive ttl drops the insert.
	SetWithTTL(ctx context.Context, key string, page *client.Page, ttl time.Duration)

	// Contains reports whether key holds an unexpired entry without
	// counting a hit or a miss. Used by prefetch warm checks so that
	// speculative probes do not distort diagnostics.
	Contains(ctx context.Context, key string) bool

	// Invalidate removes every entry whose key satisfies pred and returns
	// the number removed. Callers invoke it explicitly after mutations
	// elsewhere could have staled cached pages; the store has no
	// subscription to write-path events.
	Invalidate(ctx context.Context, pred func(key string) bool) int

	// Clear empties the store and resets hit/miss counters.
	Clear(ctx context.Context)

	// Stats returns current diagnostics. Diagnostics only: callers must
	// not use them for control flow.
	Stats() Stats
}

// Stats is a snapshot of store diagnostics.
type Stats struct {
	Size    int
	MaxSize int
	Hits    uint64
	Misses  uint64
}

// HitRate returns hits / (hits + misses), or 0 when nothing was looked up.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}
