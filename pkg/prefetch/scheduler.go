// Package prefetch schedules best-effort background warm-up of neighboring
// pages. Scheduling is debounced: a new request cancels and replaces the
// pending batch, so rapid navigation settles into one prefetch for the pages
// the user actually landed next to. Prefetch failures are logged and never
// surfaced.
package prefetch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultDelay is the debounce window before a scheduled batch fires.
const DefaultDelay = 100 * time.Millisecond

// WarmFunc fetches and caches one page in the background. Implementations
// must skip already-warm pages and swallow errors (see fetch.Coordinator.Warm).
type WarmFunc func(ctx context.Context, page int)

// Scheduler debounces prefetch batches for one controller instance. At most
// one batch is pending at a time; Schedule replaces any pending batch.
type Scheduler struct {
	mu     sync.Mutex
	warm   WarmFunc
	delay  time.Duration
	timer  *time.Timer
	closed bool
	wg     sync.WaitGroup
	logger zerolog.Logger
}

// New creates a scheduler that warms pages through warm after delay.
// A non-positive delay falls back to DefaultDelay.
func New(warm WarmFunc, delay time.Duration) *Scheduler {
	if warm == nil {
		panic("warm func cannot be nil")
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Scheduler{
		warm:   warm,
		delay:  delay,
		logger: log.With().Str("component", "contacts-prefetch").Logger(),
	}
}

// Schedule queues pages for background warm-up after the debounce delay,
// cancelling any batch still pending. Page numbers below 1 are dropped.
func (s *Scheduler) Schedule(pages []int) {
	valid := pages[:0:0]
	for _, p := range pages {
		if p >= 1 {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}

	batch := valid
	s.timer = time.AfterFunc(s.delay, func() {
		s.run(batch)
	})
}

// run executes one batch. Warm-up uses a background context: prefetching
// outlives the navigation event that triggered it.
func (s *Scheduler) run(pages []int) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ctx := context.Background()
	for _, page := range pages {
		s.warm(ctx, page)
	}
	s.logger.Debug().Ints("pages", pages).Msg("Prefetch batch complete")
}

// Stop cancels any pending batch and waits for a running one to finish.
// The scheduler accepts no further batches afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.mu.Unlock()

	s.wg.Wait()
}
