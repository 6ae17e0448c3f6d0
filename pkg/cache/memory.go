package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/contactdeck/contacts-client/pkg/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds MemoryStore configuration. Zero values fall back to the
// package defaults.
type Config struct {
	// MaxSize is the entry-count bound. Inserting beyond it evicts the
	// oldest-inserted entry first.
	MaxSize int

	// TTL applied by Set. SetWithTTL overrides it per entry.
	TTL time.Duration
}

// DefaultConfig returns the default MemoryStore configuration.
func DefaultConfig() Config {
	return Config{
		MaxSize: DefaultMaxSize,
		TTL:     DefaultTTL,
	}
}

// entry is one cached page with its lifetime bounds.
type entry struct {
	key       string
	page      *client.Page
	createdAt time.Time
	expiresAt time.Time
}

// MemoryStore is an in-process Store bounded by entry count, with lazy TTL
// expiry on read and oldest-inserted-first eviction at capacity.
//
// Each owning consumer tree should create its own instance via NewMemoryStore
// rather than sharing one ambient cache; sharing is possible but then
// invalidation scopes must be chosen deliberately.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // insertion order, oldest at back
	config  Config
	hits    uint64
	misses  uint64
	logger  zerolog.Logger

	// now is the time source; replaceable in tests.
	now func() time.Time
}

// NewMemoryStore creates a new in-memory page cache.
func NewMemoryStore(cfg Config) *MemoryStore {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	return &MemoryStore{
		entries: make(map[string]*list.Element),
		order:   list.New(),
		config:  cfg,
		logger:  log.With().Str("component", "contacts-cache").Logger(),
		now:     time.Now,
	}
}

// Get returns the cached page for key. An expired entry is removed and
// counted as a miss.
func (s *MemoryStore) Get(_ context.Context, key string) (*client.Page, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		s.misses++
		CacheMisses.WithLabelValues("memory").Inc()
		return nil, false
	}

	ent := el.Value.(*entry)
	if s.now().After(ent.expiresAt) {
		s.removeLocked(el)
		s.misses++
		CacheMisses.WithLabelValues("memory").Inc()
		CacheEvictions.WithLabelValues("ttl").Inc()
		s.logger.Debug().Str("key", key).Msg("Cache entry expired")
		return nil, false
	}

	s.hits++
	CacheHits.WithLabelValues("memory").Inc()
	return ent.page, true
}

// Set inserts or replaces the page under key with the default TTL.
func (s *MemoryStore) Set(ctx context.Context, key string, page *client.Page) {
	s.SetWithTTL(ctx, key, page, s.config.TTL)
}

// SetWithTTL inserts or replaces the page under key. At capacity the
// oldest-inserted entry is evicted first. A nil page or non-positive ttl is
// dropped: the store must stay fail-safe rather than hold unloadable state.
func (s *MemoryStore) SetWithTTL(_ context.Context, key string, page *client.Page, ttl time.Duration) {
	if page == nil || ttl <= 0 {
		CacheErrors.WithLabelValues("set").Inc()
		s.logger.Warn().Str("key", key).Dur("ttl", ttl).Msg("Dropping invalid cache insert")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	ent := &entry{
		key:       key,
		page:      page,
		createdAt: now,
		expiresAt: now.Add(ttl),
	}

	if el, ok := s.entries[key]; ok {
		// Replace wholesale; keeps the key's original insertion slot.
		el.Value = ent
		return
	}

	if s.order.Len() >= s.config.MaxSize {
		if oldest := s.order.Back(); oldest != nil {
			evicted := oldest.Value.(*entry)
			s.removeLocked(oldest)
			CacheEvictions.WithLabelValues("capacity").Inc()
			s.logger.Debug().Str("key", evicted.key).Msg("Evicted oldest cache entry")
		}
	}

	s.entries[key] = s.order.PushFront(ent)
	CacheEntries.WithLabelValues("memory").Set(float64(s.order.Len()))
}

// Contains reports whether key holds an unexpired entry without touching the
// hit/miss counters.
func (s *MemoryStore) Contains(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return false
	}
	return !s.now().After(el.Value.(*entry).expiresAt)
}

// Invalidate removes every entry whose key satisfies pred.
func (s *MemoryStore) Invalidate(_ context.Context, pred func(key string) bool) int {
	if pred == nil {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, el := range s.entries {
		if pred(key) {
			s.removeLocked(el)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Debug().Int("removed", removed).Msg("Invalidated cache entries")
	}
	return removed
}

// Clear empties the store and resets hit/miss counters.
func (s *MemoryStore) Clear(_ context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*list.Element)
	s.order.Init()
	s.hits = 0
	s.misses = 0
	CacheEntries.WithLabelValues("memory").Set(0)
}

// Stats returns current diagnostics.
func (s *MemoryStore) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Size:    s.order.Len(),
		MaxSize: s.config.MaxSize,
		Hits:    s.hits,
		Misses:  s.misses,
	}
}

// removeLocked unlinks el from both indexes. Caller holds s.mu.
func (s *MemoryStore) removeLocked(el *list.Element) {
	ent := el.Value.(*entry)
	delete(s.entries, ent.key)
	s.order.Remove(el)
	CacheEntries.WithLabelValues("memory").Set(float64(s.order.Len()))
}
