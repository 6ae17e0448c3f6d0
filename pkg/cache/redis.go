package cache

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/contactdeck/contacts-client/pkg/client"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// keyPattern matches every key this package writes. Keys are produced by
// query.Params.Key and always carry the "contacts:" prefix.
const keyPattern = "contacts:*"

// redisEntry is the stored representation of a cached page.
type redisEntry struct {
	Page      *client.Page `json:"page"`
	CreatedAt time.Time    `json:"created_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// RedisStore implements Store over a shared Redis backend, for deployments
// where several processes should warm one cache. Redis owns entry expiry via
// key TTLs; size bounding is delegated to the server's maxmemory policy.
//
// All operations are fail-safe: any Redis error is logged and reported as a
// miss, so the data path keeps working when Redis is down.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	hits   atomic.Uint64
	misses atomic.Uint64
	logger zerolog.Logger
}

// NewRedisStore creates a Store backed by the given Redis client.
func NewRedisStore(redisClient *redis.Client, ttl time.Duration) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{
		redis:  redisClient,
		ttl:    ttl,
		logger: log.With().Str("component", "contacts-cache-redis").Logger(),
	}
}

// Get returns the cached page for key, or a miss on absence, expiry, or any
// Redis/decoding error.
func (s *RedisStore) Get(ctx context.Context, key string) (*client.Page, bool) {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			CacheErrors.WithLabelValues("get").Inc()
			s.logger.Warn().Err(err).Str("key", key).Msg("Redis get failed, treating as miss")
		}
		s.misses.Add(1)
		CacheMisses.WithLabelValues("redis").Inc()
		return nil, false
	}

	var ent redisEntry
	if err := json.Unmarshal(data, &ent); err != nil {
		CacheErrors.WithLabelValues("get").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Corrupt cache entry, treating as miss")
		_ = s.redis.Del(ctx, key).Err()
		s.misses.Add(1)
		CacheMisses.WithLabelValues("redis").Inc()
		return nil, false
	}

	// Redis expires keys on its own; the lazy check covers clock drift and
	// entries written with a longer TTL than intended.
	if time.Now().After(ent.ExpiresAt) {
		_ = s.redis.Del(ctx, key).Err()
		s.misses.Add(1)
		CacheMisses.WithLabelValues("redis").Inc()
		return nil, false
	}

	s.hits.Add(1)
	CacheHits.WithLabelValues("redis").Inc()
	return ent.Page, true
}

// Set inserts or replaces the page under key with the store's default TTL.
func (s *RedisStore) Set(ctx context.Context, key string, page *client.Page) {
	s.SetWithTTL(ctx, key, page, s.ttl)
}

// SetWithTTL inserts or replaces the page under key with an explicit TTL.
func (s *RedisStore) SetWithTTL(ctx context.Context, key string, page *client.Page, ttl time.Duration) {
	if page == nil || ttl <= 0 {
		CacheErrors.WithLabelValues("set").Inc()
		return
	}

	now := time.Now()
	data, err := json.Marshal(redisEntry{
		Page:      page,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	})
	if err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Marshal cache entry failed")
		return
	}

	if err := s.redis.Set(ctx, key, data, ttl).Err(); err != nil {
		CacheErrors.WithLabelValues("set").Inc()
		s.logger.Warn().Err(err).Str("key", key).Msg("Redis set failed, dropping entry")
	}
}

// Contains reports whether key exists without touching hit/miss counters.
func (s *RedisStore) Contains(ctx context.Context, key string) bool {
	n, err := s.redis.Exists(ctx, key).Result()
	if err != nil {
		return false
	}
	return n > 0
}

// Invalidate scans this store's keys and removes those satisfying pred.
func (s *RedisStore) Invalidate(ctx context.Context, pred func(key string) bool) int {
	if pred == nil {
		return 0
	}

	removed := 0
	iter := s.redis.Scan(ctx, 0, keyPattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if !pred(key) {
			continue
		}
		if err := s.redis.Del(ctx, key).Err(); err != nil {
			CacheErrors.WithLabelValues("invalidate").Inc()
			s.logger.Warn().Err(err).Str("key", key).Msg("Redis del failed")
			continue
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		CacheErrors.WithLabelValues("invalidate").Inc()
		s.logger.Warn().Err(err).Msg("Redis scan failed during invalidation")
	}
	return removed
}

// Clear removes all of this store's keys and resets hit/miss counters.
func (s *RedisStore) Clear(ctx context.Context) {
	s.Invalidate(ctx, func(string) bool { return true })
	s.hits.Store(0)
	s.misses.Store(0)
}

// Stats returns current diagnostics. Size is counted with a key scan and is
// approximate under concurrent writers.
func (s *RedisStore) Stats() Stats {
	ctx := context.Background()

	size := 0
	iter := s.redis.Scan(ctx, 0, keyPattern, 0).Iterator()
	for iter.Next(ctx) {
		size++
	}

	return Stats{
		Size:   size,
		Hits:   s.hits.Load(),
		Misses: s.misses.Load(),
	}
}
