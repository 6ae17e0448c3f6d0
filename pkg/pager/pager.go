// Package pager implements page-indexed navigation over the contacts
// collection: absolute page numbers, bounded next/previous movement, and
// cache-through loading with neighbor-page prefetch.
//
// Superseded navigations are soft-cancelled: every state-changing operation
// bumps a generation counter, and a completion whose generation is stale is
// discarded instead of overwriting newer state. The underlying request runs
// to completion; there is no transport-level abort.
package pager

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/contactdeck/contacts-client/pkg/cache"
	"github.com/contactdeck/contacts-client/pkg/client"
	"github.com/contactdeck/contacts-client/pkg/fetch"
	"github.com/contactdeck/contacts-client/pkg/prefetch"
	"github.com/contactdeck/contacts-client/pkg/query"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State is the controller's lifecycle state.
type State string

const (
	// StateIdle means no load has been issued yet.
	StateIdle State = "idle"

	// StateLoading means a load is in flight.
	StateLoading State = "loading"

	// StateLoaded means the current page resolved successfully.
	StateLoaded State = "loaded"

	// StateError means the last load failed; records from the previous
	// successful load are retained.
	StateError State = "error"
)

// Fetcher fetches one page of contacts. *client.Client implements it.
type Fetcher interface {
	FetchPage(ctx context.Context, params query.Params) (*client.Page, error)
}

// Config holds controller configuration.
type Config struct {
	// Query is the initial search/sort/filter state (page fields are
	// normalized; navigation starts at page 1).
	Query query.Params

	// PrefetchDelay is the debounce window for neighbor-page prefetch.
	// Zero uses prefetch.DefaultDelay; negative disables prefetching.
	PrefetchDelay time.Duration
}

// Controller is the page-indexed pagination state machine. All methods are
// safe for concurrent use.
type Controller struct {
	mu      sync.Mutex
	fetcher Fetcher
	coord   *fetch.Coordinator
	params  query.Params
	state   State
	records []client.Contact
	total   int
	err     error

	// generation increases on every state-changing operation; completions
	// carrying an older generation are discarded.
	generation uint64

	sched  *prefetch.Scheduler
	logger zerolog.Logger
}

// Snapshot is the consumer-facing view of the controller.
type Snapshot struct {
	Records         []client.Contact
	State           State
	Loading         bool
	Err             error
	Total           int
	CurrentPage     int
	PageSize        int
	TotalPages      int
	HasNextPage     bool
	HasPreviousPage bool
}

// New creates a controller over the given fetcher and coordinator.
func New(fetcher Fetcher, coord *fetch.Coordinator, cfg Config) *Controller {
	if fetcher == nil {
		panic("fetcher cannot be nil")
	}
	if coord == nil {
		panic("fetch coordinator cannot be nil")
	}

	c := &Controller{
		fetcher: fetcher,
		coord:   coord,
		params:  cfg.Query.Normalize().WithPage(1),
		state:   StateIdle,
		logger:  log.With().Str("component", "contacts-pager").Logger(),
	}

	if cfg.PrefetchDelay >= 0 {
		c.sched = prefetch.New(c.warmPage, cfg.PrefetchDelay)
	}

	return c
}

// Close stops background prefetching.
func (c *Controller) Close() {
	if c.sched != nil {
		c.sched.Stop()
	}
}

// Load resolves the current page. Call once after construction and after any
// state reset; navigation methods call it internally.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	params, gen := c.beginLoadLocked()
	c.mu.Unlock()

	return c.resolve(ctx, params, gen)
}

// GoToPage navigates to page n. Out-of-range targets and the current page
// are no-ops. The current page is set optimistically before the data
// resolves, so consumers can render the new position immediately.
func (c *Controller) GoToPage(ctx context.Context, n int) error {
	c.mu.Lock()
	if n < 1 || n > c.totalPagesLocked() || n == c.params.Page {
		c.mu.Unlock()
		return nil
	}
	c.params = c.params.WithPage(n)
	params, gen := c.beginLoadLocked()
	c.mu.Unlock()

	return c.resolve(ctx, params, gen)
}

// GoToNextPage moves forward one page if one exists.
func (c *Controller) GoToNextPage(ctx context.Context) error {
	c.mu.Lock()
	target := c.params.Page + 1
	c.mu.Unlock()
	return c.GoToPage(ctx, target)
}

// GoToPreviousPage moves back one page if one exists.
func (c *Controller) GoToPreviousPage(ctx context.Context) error {
	c.mu.Lock()
	target := c.params.Page - 1
	c.mu.Unlock()
	return c.GoToPage(ctx, target)
}

// GoToFirstPage navigates to page 1.
func (c *Controller) GoToFirstPage(ctx context.Context) error {
	return c.GoToPage(ctx, 1)
}

// GoToLastPage navigates to the last known page.
func (c *Controller) GoToLastPage(ctx context.Context) error {
	c.mu.Lock()
	target := c.totalPagesLocked()
	c.mu.Unlock()
	return c.GoToPage(ctx, target)
}

// SetPageSize changes the page size and resets to page 1: a size change
// invalidates the positional meaning of every page number.
func (c *Controller) SetPageSize(ctx context.Context, size int) error {
	c.mu.Lock()
	if size < 1 || size == c.params.PageSize {
		c.mu.Unlock()
		return nil
	}
	c.params.PageSize = size
	c.params = c.params.WithPage(1)
	params, gen := c.beginLoadLocked()
	c.mu.Unlock()

	return c.resolve(ctx, params, gen)
}

// SetQuery replaces search/sort/filter state and fully resets navigation to
// page 1. Stale-query records never mix with new-query results.
func (c *Controller) SetQuery(ctx context.Context, search, sortField string, dir query.SortDirection, group int) error {
	c.mu.Lock()
	c.params = query.Params{
		Search:    search,
		SortField: sortField,
		SortDir:   dir,
		PageSize:  c.params.PageSize,
		Group:     group,
	}.Normalize().WithPage(1)
	c.records = nil
	c.total = 0
	params, gen := c.beginLoadLocked()
	c.mu.Unlock()

	return c.resolve(ctx, params, gen)
}

// Refresh drops every cached page of the current query scope and refetches
// the current page unconditionally.
func (c *Controller) Refresh(ctx context.Context) error {
	c.mu.Lock()
	scope := c.params.ScopePrefix()
	params, gen := c.beginLoadLocked()
	c.mu.Unlock()

	c.coord.Store().Invalidate(ctx, func(key string) bool {
		return strings.HasPrefix(key, scope)
	})

	return c.resolve(ctx, params, gen)
}

// Snapshot returns the current consumer-facing view. Derived fields are
// recomputed on every call.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	totalPages := c.totalPagesLocked()
	return Snapshot{
		Records:         c.records,
		State:           c.state,
		Loading:         c.state == StateLoading,
		Err:             c.err,
		Total:           c.total,
		CurrentPage:     c.params.Page,
		PageSize:        c.params.PageSize,
		TotalPages:      totalPages,
		HasNextPage:     c.params.Page < totalPages,
		HasPreviousPage: c.params.Page > 1,
	}
}

// CacheStats returns diagnostics from the underlying store.
func (c *Controller) CacheStats() cache.Stats {
	return c.coord.Store().Stats()
}

// beginLoadLocked marks a new load generation and returns the parameters to
// resolve. Caller holds c.mu.
func (c *Controller) beginLoadLocked() (query.Params, uint64) {
	c.state = StateLoading
	c.err = nil
	c.generation++
	return c.params, c.generation
}

// resolve loads params through the coordinator and applies the result unless
// a newer operation superseded this one in the meantime.
func (c *Controller) resolve(ctx context.Context, params query.Params, gen uint64) error {
	page, err := c.coord.Load(ctx, params.Key(), func(ctx context.Context) (*client.Page, error) {
		return c.fetcher.FetchPage(ctx, params)
	})

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.logger.Debug().
			Int("page", params.Page).
			Msg("Discarding superseded page load")
		return nil
	}

	if err != nil {
		c.state = StateError
		c.err = err
		c.mu.Unlock()
		return err
	}

	c.records = page.Contacts
	c.total = page.Total
	c.state = StateLoaded
	current := params.Page
	totalPages := c.totalPagesLocked()
	c.mu.Unlock()

	c.schedulePrefetch(current, totalPages)
	return nil
}

// schedulePrefetch queues the neighbors of page for background warm-up.
func (c *Controller) schedulePrefetch(page, totalPages int) {
	if c.sched == nil {
		return
	}

	neighbors := make([]int, 0, 2)
	if page-1 >= 1 {
		neighbors = append(neighbors, page-1)
	}
	if page+1 <= totalPages {
		neighbors = append(neighbors, page+1)
	}
	if len(neighbors) > 0 {
		c.sched.Schedule(neighbors)
	}
}

// warmPage is the prefetch callback: fetch-and-cache one neighbor page of
// the current query, skipping warm pages and swallowing failures.
func (c *Controller) warmPage(ctx context.Context, page int) {
	c.mu.Lock()
	params := c.params.WithPage(page)
	c.mu.Unlock()

	c.coord.Warm(ctx, params.Key(), func(ctx context.Context) (*client.Page, error) {
		return c.fetcher.FetchPage(ctx, params)
	})
}

// totalPagesLocked derives the page count: ceil(total/pageSize), 0 when the
// collection is empty. Caller holds c.mu.
func (c *Controller) totalPagesLocked() int {
	if c.total == 0 || c.params.PageSize == 0 {
		return 0
	}
	return (c.total + c.params.PageSize - 1) / c.params.PageSize
}
