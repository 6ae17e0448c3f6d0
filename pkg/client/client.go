// Package client provides the HTTP client for the remote contacts API:
// request encoding, envelope decoding, and typed error handling.
//
// The client performs no caching and no retries. Caching belongs to
// pkg/cache and pkg/fetch; retry affordances belong to the consumer.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/contactdeck/contacts-client/pkg/query"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Prometheus metrics for contacts API operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contacts_requests_total",
		Help: "Total contacts API requests by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "contacts_request_duration_seconds",
		Help:    "Contacts API request duration in seconds",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "contacts_errors_total",
		Help: "Total contacts API errors by class",
	}, []string{"class"})
)

// Config holds the client configuration.
type Config struct {
	// BaseURL of the contacts API (e.g., "https://api.example.com").
	BaseURL string

	// UserAgent header sent with every request.
	UserAgent string

	// Timeout per request; the transport owns timeouts, the data-access
	// layer above never manages its own.
	Timeout time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:   baseURL,
		UserAgent: "contacts-client/0.1.0",
		Timeout:   30 * time.Second,
	}
}

// Client is the contacts API client.
type Client struct {
	httpClient *http.Client
	config     Config
	logger     zerolog.Logger
}

// New creates a new contacts client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger := log.With().Str("component", "contacts-client").Logger()

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		config: cfg,
		logger: logger,
	}, nil
}

// FetchPage retrieves one page of contacts for the given query.
// A transport failure returns a *TransportError; a non-2xx status or a
// success:false envelope returns an *APIError. Both leave any caller-side
// cache untouched by contract.
func (c *Client) FetchPage(ctx context.Context, params query.Params) (*Page, error) {
	params = params.Normalize()

	reqURL := c.buildURL(params)

	startTime := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(startTime).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, &TransportError{URL: reqURL, Err: err}
	}
	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug().
		Str("url", reqURL).
		Int("page", params.Page).
		Msg("Fetching contacts page")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		errorsTotal.WithLabelValues("transport").Inc()
		requestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Str("url", reqURL).Msg("HTTP request failed")
		return nil, &TransportError{URL: reqURL, Err: err}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		// Non-2xx bodies are not guaranteed to be JSON.
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			errorsTotal.WithLabelValues("api").Inc()
			return nil, &APIError{StatusCode: resp.StatusCode, Message: resp.Status}
		}
		errorsTotal.WithLabelValues("transport").Inc()
		return nil, &TransportError{URL: reqURL, Err: fmt.Errorf("decode response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		errorsTotal.WithLabelValues("api").Inc()
		msg := env.Error
		if msg == "" {
			msg = resp.Status
		}
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("message", msg).
			Msg("Contacts API reported failure")
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	page := &Page{
		Contacts:   env.Data,
		Total:      env.Total,
		Number:     env.Pagination.CurrentPage,
		TotalPages: env.Pagination.TotalPages,
		HasNext:    env.Pagination.HasNext,
		HasPrev:    env.Pagination.HasPrevious,
	}
	if page.Number == 0 {
		page.Number = params.Page
	}

	c.logger.Debug().
		Int("page", page.Number).
		Int("records", len(page.Contacts)).
		Int("total", page.Total).
		Msg("Fetched contacts page")

	return page, nil
}

// buildURL encodes the query parameters into the listing endpoint URL.
// Fields at their defaults that the server treats as optional (search, group)
// are omitted.
func (c *Client) buildURL(params query.Params) string {
	values := url.Values{}
	values.Set("page", strconv.Itoa(params.Page))
	values.Set("limit", strconv.Itoa(params.PageSize))
	values.Set("sort", params.SortField)
	values.Set("direction", string(params.SortDir))
	if params.Search != "" {
		values.Set("search", params.Search)
	}
	if params.Group != 0 {
		values.Set("group", strconv.Itoa(params.Group))
	}
	return c.config.BaseURL + "/contacts?" + values.Encode()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
