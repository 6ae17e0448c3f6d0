package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by backend (memory, redis)
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contacts_cache_hits_total",
			Help: "Total number of contacts cache hits",
		},
		[]string{"backend"},
	)

	// CacheMisses tracks cache misses by backend
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contacts_cache_misses_total",
			Help: "Total number of contacts cache misses",
		},
		[]string{"backend"},
	)

	// CacheEvictions tracks evictions by reason (capacity, ttl)
	CacheEvictions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contacts_cache_evictions_total",
			Help: "Total number of contacts cache evictions",
		},
		[]string{"reason"},
	)

	// CacheEntries tracks the current number of resident entries
	CacheEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "contacts_cache_entries",
			Help: "Current number of resident contacts cache entries",
		},
		[]string{"backend"},
	)

	// CacheErrors tracks cache operation faults
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "contacts_cache_errors_total",
			Help: "Total number of cache operation faults",
		},
		[]string{"operation"}, // "get", "set", "invalidate"
	)
)
