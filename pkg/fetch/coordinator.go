// Package fetch provides cache-through request execution: consumers ask for
// a cache key and supply a fetch function; the coordinator serves hits from
// the store, coalesces concurrent misses for the same key into one network
// call, and populates the store on success. Failures propagate untouched and
// never mutate the cache.
package fetch

import (
	"context"
	"fmt"

	"github.com/contactdeck/contacts-client/pkg/cache"
	"github.com/contactdeck/contacts-client/pkg/client"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// FetchFunc performs the actual network call for one page.
type FetchFunc func(ctx context.Context) (*client.Page, error)

// Coordinator executes page loads through a Store.
type Coordinator struct {
	store  cache.Store
	group  singleflight.Group
	logger zerolog.Logger
}

// New creates a coordinator over the given store.
func New(store cache.Store) *Coordinator {
	if store == nil {
		panic("cache store cannot be nil")
	}
	return &Coordinator{
		store:  store,
		logger: log.With().Str("component", "contacts-fetch").Logger(),
	}
}

// Store returns the underlying cache store.
func (c *Coordinator) Store() cache.Store {
	return c.store
}

// Load returns the page for key, from cache when warm. On a miss the fetch
// runs inside a singleflight group keyed by the cache key, so concurrent
// loads for the exact same key share one underlying call. A successful fetch
// is cached before returning; a failed fetch propagates its error and leaves
// the cache untouched.
func (c *Coordinator) Load(ctx context.Context, key string, fn FetchFunc) (*client.Page, error) {
	if page, ok := c.store.Get(ctx, key); ok {
		c.logger.Debug().Str("key", key).Msg("Cache hit")
		return page, nil
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		page, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if page == nil {
			return nil, fmt.Errorf("fetch returned nil page for key %s", key)
		}
		c.store.Set(ctx, key, page)
		return page, nil
	})
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("Page fetch failed")
		return nil, err
	}

	if shared {
		c.logger.Debug().Str("key", key).Msg("Coalesced duplicate in-flight fetch")
	}

	return v.(*client.Page), nil
}

// Warm populates key in the background cache-through style: already-warm keys
// are skipped and fetch failures are swallowed after logging. Used by the
// prefetch scheduler, which must never surface errors to consumers.
func (c *Coordinator) Warm(ctx context.Context, key string, fn FetchFunc) {
	if c.store.Contains(ctx, key) {
		return
	}
	if _, err := c.Load(ctx, key, fn); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("Prefetch failed, ignoring")
	}
}
