package pager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/contactdeck/contacts-client/pkg/cache"
	"github.com/contactdeck/contacts-client/pkg/client"
	"github.com/contactdeck/contacts-client/pkg/fetch"
	"github.com/contactdeck/contacts-client/pkg/query"
)

// fakeFetcher serves pages out of a synthetic dataset of `total` records and
// tracks per-page call counts. Individual pages can be gated (to hold a fetch
// in flight) or failed.
type fakeFetcher struct {
	mu    sync.Mutex
	total int
	calls map[int]int
	fail  map[int]error
	gates map[int]chan struct{}
}

func newFakeFetcher(total int) *fakeFetcher {
	return &fakeFetcher{
		total: total,
		calls: map[int]int{},
		fail:  map[int]error{},
		gates: map[int]chan struct{}{},
	}
}

func (f *fakeFetcher) FetchPage(_ context.Context, params query.Params) (*client.Page, error) {
	f.mu.Lock()
	f.calls[params.Page]++
	gate := f.gates[params.Page]
	failErr := f.fail[params.Page]
	total := f.total
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if failErr != nil {
		return nil, failErr
	}

	start := (params.Page - 1) * params.PageSize
	if start >= total {
		return &client.Page{Total: total, Number: params.Page}, nil
	}
	end := start + params.PageSize
	if end > total {
		end = total
	}

	contacts := make([]client.Contact, 0, end-start)
	for i := start; i < end; i++ {
		contacts = append(contacts, client.Contact{
			ID:       int64(i + 1),
			LastName: fmt.Sprintf("contact-%d", i+1),
		})
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	return &client.Page{
		Contacts:   contacts,
		Total:      total,
		Number:     params.Page,
		TotalPages: totalPages,
		HasNext:    params.Page < totalPages,
		HasPrev:    params.Page > 1,
	}, nil
}

func (f *fakeFetcher) callCount(page int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[page]
}

func newTestController(t *testing.T, fetcher Fetcher, cfg Config) (*Controller, *fetch.Coordinator) {
	t.Helper()
	coord := fetch.New(cache.NewMemoryStore(cache.DefaultConfig()))
	c := New(fetcher, coord, cfg)
	t.Cleanup(c.Close)
	return c, coord
}

func TestController_InitialLoad(t *testing.T) {
	fetcher := newFakeFetcher(120)
	c, _ := newTestController(t, fetcher, Config{
		Query:         query.Params{PageSize: 25},
		PrefetchDelay: -1,
	})
	ctx := context.Background()

	if got := c.Snapshot().State; got != StateIdle {
		t.Errorf("initial State = %v, want %v", got, StateIdle)
	}

	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	snap := c.Snapshot()
	if snap.State != StateLoaded {
		t.Errorf("State = %v, want %v", snap.State, StateLoaded)
	}
	if len(snap.Records) != 25 {
		t.Errorf("len(Records) = %d, want 25", len(snap.Records))
	}
	if snap.Total != 120 || snap.TotalPages != 5 {
		t.Errorf("Total/TotalPages = %d/%d, want 120/5", snap.Total, snap.TotalPages)
	}
	if snap.CurrentPage != 1 || snap.HasPreviousPage || !snap.HasNextPage {
		t.Errorf("page derivations wrong: %+v", snap)
	}
}

func TestController_GoToPageBounds(t *testing.T) {
	fetcher := newFakeFetcher(120)
	c, _ := newTestController(t, fetcher, Config{
		Query:         query.Params{PageSize: 25},
		PrefetchDelay: -1,
	})
	ctx := context.Background()

	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	// Out-of-range targets and the current page leave state untouched.
	for _, n := range []int{0, -3, 6, 1} {
		if err := c.GoToPage(ctx, n); err != nil {
			t.Fatalf("GoToPage(%d): %v", n, err)
		}
		if got := c.Snapshot().CurrentPage; got != 1 {
			t.Errorf("GoToPage(%d) moved CurrentPage to %d, want 1", n, got)
		}
	}

	if got := fetcher.callCount(1); got != 1 {
		t.Errorf("page 1 fetched %d times, want 1 (no-ops must not refetch)", got)
	}
}

func TestController_Navigation(t *testing.T) {
	fetcher := newFakeFetcher(120)
	c, _ := newTestController(t, fetcher, Config{
		Query:         query.Params{PageSize: 25},
		PrefetchDelay: -1,
	})
	ctx := context.Background()

	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := c.GoToNextPage(ctx); err != nil {
		t.Fatalf("GoToNextPage: %v", err)
	}
	snap := c.Snapshot()
	if snap.CurrentPage != 2 || snap.Records[0].ID != 26 {
		t.Errorf("after next: page %d first id %d, want 2/26", snap.CurrentPage, snap.Records[0].ID)
	}

	if err := c.GoToLastPage(ctx); err != nil {
		t.Fatalf("GoToLastPage: %v", err)
	}
	snap = c.Snapshot()
	if snap.CurrentPage != 5 || snap.HasNextPage {
		t.Errorf("after last: page %d HasNextPage %v, want 5/false", snap.CurrentPage, snap.HasNextPage)
	}
	if len(snap.Records) != 20 {
		t.Errorf("last page has %d records, want 20", len(snap.Records))
	}

	if err := c.GoToFirstPage(ctx); err != nil {
		t.Fatalf("GoToFirstPage: %v", err)
	}
	if got := c.Snapshot().CurrentPage; got != 1 {
		t.Errorf("after first: page %d, want 1", got)
	}

	if err := c.GoToPreviousPage(ctx); err != nil {
		t.Fatalf("GoToPreviousPage: %v", err)
	}
	if got := c.Snapshot().CurrentPage; got != 1 {
		t.Errorf("previous from page 1 moved to %d, want 1", got)
	}
}

// TestController_PrefetchNeighbor verifies the §4-style scenario: on page 5
// of 120/25, next is a no-op and moving back to a prefetched page 4 resolves
// from cache without a network call.
func TestController_PrefetchNeighbor(t *testing.T) {
	fetcher := newFakeFetcher(120)
	coord := fetch.New(cache.NewMemoryStore(cache.DefaultConfig()))
	c := New(fetcher, coord, Config{
		Query:         query.Params{PageSize: 25},
		PrefetchDelay: 5 * time.Millisecond,
	})
	defer c.Close()
	ctx := context.Background()

	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.GoToPage(ctx, 5); err != nil {
		t.Fatalf("GoToPage(5): %v", err)
	}

	// Wait for the neighbor prefetch of page 4 to land in the cache.
	page4Key := (query.Params{PageSize: 25}).WithPage(4).Key()
	deadline := time.Now().Add(2 * time.Second)
	for !coord.Store().Contains(ctx, page4Key) {
		if time.Now().After(deadline) {
			t.Fatal("page 4 was never prefetched")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := c.GoToNextPage(ctx); err != nil {
		t.Fatalf("GoToNextPage: %v", err)
	}
	if got := c.Snapshot().CurrentPage; got != 5 {
		t.Errorf("next from last page moved to %d, want 5", got)
	}

	hitsBefore := c.CacheStats().Hits
	if err := c.GoToPreviousPage(ctx); err != nil {
		t.Fatalf("GoToPreviousPage: %v", err)
	}

	snap := c.Snapshot()
	if snap.CurrentPage != 4 || snap.Records[0].ID != 76 {
		t.Errorf("after previous: page %d first id %d, want 4/76", snap.CurrentPage, snap.Records[0].ID)
	}
	if got := fetcher.callCount(4); got != 1 {
		t.Errorf("page 4 fetched %d times, want 1 (prefetch only)", got)
	}
	if hits := c.CacheStats().Hits; hits != hitsBefore+1 {
		t.Errorf("cache hits = %d, want %d (move must resolve from cache)", hits, hitsBefore+1)
	}
}

func TestController_SetPageSizeResetsToFirstPage(t *testing.T) {
	fetcher := newFakeFetcher(120)
	c, _ := newTestController(t, fetcher, Config{
		Query:         query.Params{PageSize: 25},
		PrefetchDelay: -1,
	})
	ctx := context.Background()

	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.GoToPage(ctx, 3); err != nil {
		t.Fatalf("GoToPage(3): %v", err)
	}

	if err := c.SetPageSize(ctx, 50); err != nil {
		t.Fatalf("SetPageSize: %v", err)
	}

	snap := c.Snapshot()
	if snap.CurrentPage != 1 {
		t.Errorf("CurrentPage = %d after page size change, want 1", snap.CurrentPage)
	}
	if snap.PageSize != 50 || len(snap.Records) != 50 || snap.TotalPages != 3 {
		t.Errorf("after resize: size %d records %d totalPages %d, want 50/50/3",
			snap.PageSize, len(snap.Records), snap.TotalPages)
	}
}

func TestController_Refresh(t *testing.T) {
	fetcher := newFakeFetcher(120)
	c, _ := newTestController(t, fetcher, Config{
		Query:         query.Params{PageSize: 25},
		PrefetchDelay: -1,
	})
	ctx := context.Background()

	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := fetcher.callCount(1); got != 1 {
		t.Fatalf("page 1 fetched %d times, want 1", got)
	}

	// Refresh bypasses the warm cache and refetches unconditionally.
	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if got := fetcher.callCount(1); got != 2 {
		t.Errorf("page 1 fetched %d times after refresh, want 2", got)
	}
	if got := c.Snapshot().State; got != StateLoaded {
		t.Errorf("State = %v after refresh, want %v", got, StateLoaded)
	}
}

func TestController_ErrorState(t *testing.T) {
	fetcher := newFakeFetcher(120)
	c, _ := newTestController(t, fetcher, Config{
		Query:         query.Params{PageSize: 25},
		PrefetchDelay: -1,
	})
	ctx := context.Background()

	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	wantErr := errors.New("upstream down")
	fetcher.mu.Lock()
	fetcher.fail[2] = wantErr
	fetcher.mu.Unlock()

	if err := c.GoToPage(ctx, 2); !errors.Is(err, wantErr) {
		t.Fatalf("GoToPage error = %v, want %v", err, wantErr)
	}

	snap := c.Snapshot()
	if snap.State != StateError || !errors.Is(snap.Err, wantErr) {
		t.Errorf("State/Err = %v/%v, want error state", snap.State, snap.Err)
	}
	// Records from the last successful load are retained.
	if len(snap.Records) != 25 || snap.Records[0].ID != 1 {
		t.Errorf("error state dropped previous records: %+v", snap.Records[:1])
	}

	// Retry: clearing the failure and refreshing recovers.
	fetcher.mu.Lock()
	delete(fetcher.fail, 2)
	fetcher.mu.Unlock()

	if err := c.Refresh(ctx); err != nil {
		t.Fatalf("Refresh after error: %v", err)
	}
	snap = c.Snapshot()
	if snap.State != StateLoaded || snap.CurrentPage != 2 {
		t.Errorf("after retry: state %v page %d, want loaded/2", snap.State, snap.CurrentPage)
	}
}

// TestController_StaleCompletionDiscarded pins the soft-cancel contract: a
// navigation superseded before resolving must not overwrite newer state.
func TestController_StaleCompletionDiscarded(t *testing.T) {
	fetcher := newFakeFetcher(120)
	c, _ := newTestController(t, fetcher, Config{
		Query:         query.Params{PageSize: 25},
		PrefetchDelay: -1,
	})
	ctx := context.Background()

	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}

	gate := make(chan struct{})
	fetcher.mu.Lock()
	fetcher.gates[2] = gate
	fetcher.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- c.GoToPage(ctx, 2)
	}()

	// Wait until the page-2 fetch is held in flight.
	deadline := time.Now().Add(2 * time.Second)
	for fetcher.callCount(2) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("page 2 fetch never started")
		}
		time.Sleep(time.Millisecond)
	}

	// Supersede it with a navigation to page 3, then release page 2.
	if err := c.GoToPage(ctx, 3); err != nil {
		t.Fatalf("GoToPage(3): %v", err)
	}
	close(gate)
	if err := <-done; err != nil {
		t.Fatalf("superseded GoToPage returned error: %v", err)
	}

	snap := c.Snapshot()
	if snap.CurrentPage != 3 {
		t.Errorf("CurrentPage = %d, want 3 (stale completion must not win)", snap.CurrentPage)
	}
	if snap.Records[0].ID != 51 {
		t.Errorf("first record id = %d, want 51 (page 3 data)", snap.Records[0].ID)
	}
	if snap.State != StateLoaded {
		t.Errorf("State = %v, want %v", snap.State, StateLoaded)
	}
}

func TestController_SetQueryResets(t *testing.T) {
	fetcher := newFakeFetcher(120)
	c, _ := newTestController(t, fetcher, Config{
		Query:         query.Params{PageSize: 25},
		PrefetchDelay: -1,
	})
	ctx := context.Background()

	if err := c.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.GoToPage(ctx, 4); err != nil {
		t.Fatalf("GoToPage(4): %v", err)
	}

	if err := c.SetQuery(ctx, "smith", "email", query.SortDesc, 2); err != nil {
		t.Fatalf("SetQuery: %v", err)
	}

	snap := c.Snapshot()
	if snap.CurrentPage != 1 {
		t.Errorf("CurrentPage = %d after query change, want 1", snap.CurrentPage)
	}
	if snap.PageSize != 25 {
		t.Errorf("PageSize = %d, want preserved 25", snap.PageSize)
	}
	if len(snap.Records) != 25 {
		t.Errorf("len(Records) = %d, want 25 (fresh first page)", len(snap.Records))
	}
}
