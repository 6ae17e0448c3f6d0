// Package cache provides the bounded response cache for contacts pages.
//
// Two Store implementations are available: MemoryStore, an in-process map
// with TTL expiry and oldest-first eviction, and RedisStore, which keeps the
// same interface over a shared Redis backend for multi-process deployments.
//
// Stores are created via explicit factories and passed to their consumers;
// there is no package-level instance. Every operation is fail-safe: an
// internal fault is logged and reported as a miss, so data loading works
// unchanged with the cache effectively disabled.
package cache
