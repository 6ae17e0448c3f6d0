// contacts-proxy is a read-through caching proxy in front of the upstream
// contacts API: listing requests are answered from the shared page cache and
// only misses reach upstream.
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/contactdeck/contacts-client/pkg/cache"
	"github.com/contactdeck/contacts-client/pkg/client"
	"github.com/contactdeck/contacts-client/pkg/fetch"
	"github.com/contactdeck/contacts-client/pkg/logging"
	"github.com/contactdeck/contacts-client/pkg/query"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	// Configuration from environment
	upstreamURL := getEnv("UPSTREAM_URL", "")
	port := getEnv("PORT", "8080")
	backend := getEnv("CACHE_BACKEND", "memory")
	redisURL := getEnv("REDIS_URL", "localhost:6379")
	cacheTTL := getDurationEnv("CACHE_TTL", cache.DefaultTTL)
	logLevel := getEnv("LOG_LEVEL", "info")

	logger := logging.Setup(logging.Config{
		Level:  logging.LogLevel(logLevel),
		Pretty: getEnv("LOG_PRETTY", "") == "true",
		Output: os.Stderr,
	})

	if upstreamURL == "" {
		logger.Fatal().Msg("UPSTREAM_URL is required")
	}

	store, err := buildStore(backend, redisURL, cacheTTL, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build cache store")
	}

	contactsClient, err := client.New(client.DefaultConfig(upstreamURL))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create contacts client")
	}

	coordinator := fetch.New(store)

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/contacts", listHandler(coordinator, contactsClient))
	http.HandleFunc("/stats", statsHandler(store))
	http.Handle("/metrics", promhttp.Handler())

	addr := ":" + port
	logger.Info().
		Str("addr", addr).
		Str("upstream", upstreamURL).
		Str("cache_backend", backend).
		Msg("Starting contacts proxy")

	if err := http.ListenAndServe(addr, nil); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

// buildStore selects the cache backend.
func buildStore(backend, redisURL string, ttl time.Duration, logger zerolog.Logger) (cache.Store, error) {
	switch backend {
	case "redis":
		redisClient := redis.NewClient(&redis.Options{Addr: redisURL})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			return nil, err
		}
		logger.Info().Str("addr", redisURL).Msg("Connected to Redis")
		return cache.NewRedisStore(redisClient, ttl), nil
	default:
		return cache.NewMemoryStore(cache.Config{
			MaxSize: getIntEnv("CACHE_MAX_SIZE", cache.DefaultMaxSize),
			TTL:     ttl,
		}), nil
	}
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// listHandler serves listing requests through the cache.
func listHandler(coordinator *fetch.Coordinator, contactsClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := paramsFromRequest(r)

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		page, err := coordinator.Load(ctx, params.Key(), func(ctx context.Context) (*client.Page, error) {
			return contactsClient.FetchPage(ctx, params)
		})
		if err != nil {
			writeError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data":    page.Contacts,
			"total":   page.Total,
			"pagination": map[string]interface{}{
				"hasNext":     page.HasNext,
				"hasPrevious": page.HasPrev,
				"currentPage": page.Number,
				"totalPages":  page.TotalPages,
			},
		})
	}
}

// statsHandler exposes cache diagnostics.
func statsHandler(store cache.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		stats := store.Stats()
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"size":    stats.Size,
			"maxSize": stats.MaxSize,
			"hits":    stats.Hits,
			"misses":  stats.Misses,
			"hitRate": stats.HitRate(),
		})
	}
}

// paramsFromRequest maps listing query parameters onto query.Params.
func paramsFromRequest(r *http.Request) query.Params {
	q := r.URL.Query()

	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	group, _ := strconv.Atoi(q.Get("group"))

	return query.Params{
		Search:    q.Get("search"),
		SortField: q.Get("sort"),
		SortDir:   query.SortDirection(q.Get("direction")),
		Page:      page,
		PageSize:  limit,
		Group:     group,
	}.Normalize()
}

// writeError maps layer errors onto proxy responses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	if client.IsAPI(err) {
		status = http.StatusOK // surface the upstream envelope verbatim
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   err.Error(),
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
