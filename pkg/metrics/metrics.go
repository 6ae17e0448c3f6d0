// Package metrics provides the central Prometheus registry reference for the
// contacts data-access layer. Metrics themselves are defined in their owning
// packages (client, cache) via promauto to keep registration next to use.
//
// This package documents the available series.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registerer used by all packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - contacts_cache_hits_total{backend} (Counter): cache hits by backend (memory, redis)
//   - contacts_cache_misses_total{backend} (Counter): cache misses by backend
//   - contacts_cache_evictions_total{reason} (Counter): evictions by reason (capacity, ttl)
//   - contacts_cache_entries{backend} (Gauge): resident entries
//   - contacts_cache_errors_total{operation} (Counter): cache operation faults
//
// Request Metrics (pkg/client):
//   - contacts_requests_total{status} (Counter): API requests by HTTP status
//   - contacts_request_duration_seconds (Histogram): request latency
//   - contacts_errors_total{class} (Counter): errors by class (transport, api)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(contacts_cache_hits_total[5m])) /
//   (sum(rate(contacts_cache_hits_total[5m])) + sum(rate(contacts_cache_misses_total[5m])))
//
//   # Request Error Rate
//   rate(contacts_errors_total[5m])
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(contacts_request_duration_seconds_bucket[5m]))
