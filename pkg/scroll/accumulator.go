// Package scroll implements the cursor-accumulating consumption model:
// successive pages of one query are appended into a single growing list for
// infinite-scroll rendering. The accumulator shares the page cache with the
// page-indexed controller but owns divergent state rules: a query change
// always hard-resets the list, and exhaustion derives strictly from the
// server's has-next verdict.
package scroll

import (
	"context"
	"sync"

	"github.com/contactdeck/contacts-client/pkg/client"
	"github.com/contactdeck/contacts-client/pkg/fetch"
	"github.com/contactdeck/contacts-client/pkg/query"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// State is the accumulator's lifecycle state.
type State string

const (
	// StateIdleInitial means nothing was loaded yet.
	StateIdleInitial State = "idle-initial"

	// StateLoadingInitial means the first page of the query is in flight.
	StateLoadingInitial State = "loading-initial"

	// StateIdleWithMore means records are loaded and the server reports
	// more pages.
	StateIdleWithMore State = "idle-with-more"

	// StateLoadingMore means a LoadMore fetch is in flight.
	StateLoadingMore State = "loading-more"

	// StateIdleExhausted means the last page has been reached (or a load
	// failure exhausted the accumulator under the default policy).
	StateIdleExhausted State = "idle-exhausted"
)

// Fetcher fetches one page of contacts. *client.Client implements it.
type Fetcher interface {
	FetchPage(ctx context.Context, params query.Params) (*client.Page, error)
}

// Config holds accumulator configuration.
type Config struct {
	// Query is the initial search/sort/filter state.
	Query query.Params

	// RetryableErrors leaves HasMore true after a failed LoadMore so the
	// consumer can retry. The default (false) treats a failed LoadMore as
	// permanent exhaustion; either way accumulated records are preserved
	// and only the new page's error surfaces.
	RetryableErrors bool
}

// Accumulator is the cursor-based infinite-scroll state machine. All methods
// are safe for concurrent use.
type Accumulator struct {
	mu       sync.Mutex
	fetcher  Fetcher
	coord    *fetch.Coordinator
	params   query.Params
	state    State
	records  []client.Contact
	seen     map[int64]bool
	total    int
	cursor   int // last successfully loaded page, 0 before the first
	hasMore  bool
	err      error
	inFlight bool

	// generation discards completions of superseded Refresh/SetQuery calls.
	generation uint64

	retryable bool
	logger    zerolog.Logger
}

// Snapshot is the consumer-facing view of the accumulator.
type Snapshot struct {
	Records []client.Contact
	State   State
	Loading bool
	Err     error
	HasMore bool
	Total   int
}

// New creates an accumulator over the given fetcher and coordinator.
func New(fetcher Fetcher, coord *fetch.Coordinator, cfg Config) *Accumulator {
	if fetcher == nil {
		panic("fetcher cannot be nil")
	}
	if coord == nil {
		panic("fetch coordinator cannot be nil")
	}
	return &Accumulator{
		fetcher:   fetcher,
		coord:     coord,
		params:    cfg.Query.Normalize().WithPage(1),
		state:     StateIdleInitial,
		seen:      map[int64]bool{},
		retryable: cfg.RetryableErrors,
		logger:    log.With().Str("component", "contacts-scroll").Logger(),
	}
}

// Refresh resets the accumulated list and loads page 1 of the current query,
// replacing (never appending to) previous records on success.
func (a *Accumulator) Refresh(ctx context.Context) error {
	a.mu.Lock()
	a.resetLocked()
	a.state = StateLoadingInitial
	a.inFlight = true
	a.generation++
	gen := a.generation
	params := a.params.WithPage(1)
	a.mu.Unlock()

	return a.resolveInitial(ctx, params, gen)
}

// SetQuery replaces search/sort/filter state and hard-resets the list before
// loading the new query's first page. Records accumulated under the stale
// query never mix with new-query records.
func (a *Accumulator) SetQuery(ctx context.Context, search, sortField string, dir query.SortDirection, group int) error {
	a.mu.Lock()
	a.params = query.Params{
		Search:    search,
		SortField: sortField,
		SortDir:   dir,
		PageSize:  a.params.PageSize,
		Group:     group,
	}.Normalize().WithPage(1)
	a.resetLocked()
	a.state = StateLoadingInitial
	a.inFlight = true
	a.generation++
	gen := a.generation
	params := a.params.WithPage(1)
	a.mu.Unlock()

	return a.resolveInitial(ctx, params, gen)
}

// LoadMore fetches the page after the cursor and appends it to the tail.
// No-op while a fetch is in flight or when the server reported no next page.
func (a *Accumulator) LoadMore(ctx context.Context) error {
	a.mu.Lock()
	if a.inFlight || !a.hasMore || a.cursor == 0 {
		a.mu.Unlock()
		return nil
	}
	a.inFlight = true
	a.state = StateLoadingMore
	a.err = nil
	gen := a.generation
	params := a.params.WithPage(a.cursor + 1)
	a.mu.Unlock()

	page, err := a.load(ctx, params)

	a.mu.Lock()
	defer a.mu.Unlock()

	if gen != a.generation {
		// A Refresh/SetQuery superseded this fetch; its result belongs to
		// a discarded epoch.
		a.logger.Debug().Int("page", params.Page).Msg("Discarding superseded loadMore")
		return nil
	}
	a.inFlight = false

	if err != nil {
		// Accumulated records are preserved; only the new page's error
		// surfaces.
		a.err = err
		if a.retryable {
			a.state = StateIdleWithMore
		} else {
			a.hasMore = false
			a.state = StateIdleExhausted
		}
		return err
	}

	a.appendLocked(page)
	a.cursor = params.Page
	a.total = page.Total
	a.hasMore = page.HasNext
	if a.hasMore {
		a.state = StateIdleWithMore
	} else {
		a.state = StateIdleExhausted
	}
	return nil
}

// Snapshot returns the current consumer-facing view.
func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	return Snapshot{
		Records: a.records,
		State:   a.state,
		Loading: a.inFlight,
		Err:     a.err,
		HasMore: a.hasMore,
		Total:   a.total,
	}
}

// resolveInitial completes a Refresh/SetQuery: on success the first page
// replaces the list wholesale.
func (a *Accumulator) resolveInitial(ctx context.Context, params query.Params, gen uint64) error {
	page, err := a.load(ctx, params)

	a.mu.Lock()
	defer a.mu.Unlock()

	if gen != a.generation {
		a.logger.Debug().Msg("Discarding superseded initial load")
		return nil
	}
	a.inFlight = false

	if err != nil {
		a.err = err
		a.state = StateIdleInitial
		return err
	}

	a.records = nil
	a.seen = map[int64]bool{}
	a.appendLocked(page)
	a.cursor = 1
	a.total = page.Total
	a.hasMore = page.HasNext
	if a.hasMore {
		a.state = StateIdleWithMore
	} else {
		a.state = StateIdleExhausted
	}
	return nil
}

// load runs one page fetch through the shared cache.
func (a *Accumulator) load(ctx context.Context, params query.Params) (*client.Page, error) {
	return a.coord.Load(ctx, params.Key(), func(ctx context.Context) (*client.Page, error) {
		return a.fetcher.FetchPage(ctx, params)
	})
}

// appendLocked appends a page's records, dropping ids already present so the
// list never holds duplicates while preserving server order. Caller holds a.mu.
func (a *Accumulator) appendLocked(page *client.Page) {
	for _, contact := range page.Contacts {
		if a.seen[contact.ID] {
			continue
		}
		a.seen[contact.ID] = true
		a.records = append(a.records, contact)
	}
}

// resetLocked clears accumulated state for a new epoch. Caller holds a.mu.
func (a *Accumulator) resetLocked() {
	a.records = nil
	a.seen = map[int64]bool{}
	a.total = 0
	a.cursor = 0
	a.hasMore = false
	a.err = nil
	a.inFlight = false
}
