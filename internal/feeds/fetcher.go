// Package feeds ingests the registered RSS/Atom sources into an in-memory
// item cache, bounding concurrency globally and per host, and tracking
// per-source health so broken feeds back off instead of burning the refresh
// budget.
package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/shanchoynoor/choynews-bot/internal/core/domain"
	coreerrors "github.com/shanchoynoor/choynews-bot/internal/core/errors"
	"github.com/shanchoynoor/choynews-bot/internal/platform/observability"
)

const (
	defaultUserAgent = "ChoyNewsBot/1.0 (+https://github.com/shanchoynoor/choynews-bot)"

	defaultRetryDelay = 2 * time.Second
	initialBackoff    = 2 * time.Minute
	maxBackoff        = time.Hour

	// maxCacheTTL caps how long a successful parse may be reused, whatever the
	// configured TTL says.
	maxCacheTTL = 10 * time.Minute

	// outageCycles is how many consecutive all-fail refresh cycles a category
	// tolerates before it is considered in outage.
	outageCycles = 2

	statusOK    = "ok"
	statusError = "error"
)

// Options bounds the fetcher's concurrency and timeouts.
type Options struct {
	Parallelism        int
	PerHostParallelism int
	Timeout            time.Duration
	RetryDelay         time.Duration
	CacheTTL           time.Duration
	UserAgent          string
}

type sourceState struct {
	backoff       time.Duration
	disabledUntil time.Time
}

// Fetcher refreshes the source catalogue into the item cache.
type Fetcher struct {
	sources []domain.Source
	opts    Options
	client  *http.Client
	cache   *cache
	logger  *zerolog.Logger

	globalSem chan struct{}

	mu        sync.Mutex
	states    map[string]*sourceState
	hostSems  map[string]chan struct{}
	inflight  map[domain.Category]chan struct{}
	allFailed map[domain.Category]int
}

func NewFetcher(sources []domain.Source, opts Options, logger *zerolog.Logger) *Fetcher {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 16
	}

	if opts.PerHostParallelism <= 0 {
		opts.PerHostParallelism = 2
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	if opts.RetryDelay <= 0 {
		opts.RetryDelay = defaultRetryDelay
	}

	if opts.CacheTTL <= 0 || opts.CacheTTL > maxCacheTTL {
		opts.CacheTTL = maxCacheTTL
	}

	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}

	return &Fetcher{
		sources:   sources,
		opts:      opts,
		client:    &http.Client{Timeout: opts.Timeout},
		cache:     newCache(),
		logger:    logger,
		globalSem: make(chan struct{}, opts.Parallelism),
		states:    make(map[string]*sourceState),
		hostSems:  make(map[string]chan struct{}),
		inflight:  make(map[domain.Category]chan struct{}),
		allFailed: make(map[domain.Category]int),
	}
}

// Sources returns the full catalogue.
func (f *Fetcher) Sources() []domain.Source {
	return f.sources
}

// Recent returns cached items of a category published after since.
func (f *Fetcher) Recent(category domain.Category, since time.Time) []domain.Item {
	return f.cache.recent(f.sources, category, since)
}

// Outage reports whether a category has had consecutive refresh cycles where
// every source failed.
func (f *Fetcher) Outage(category domain.Category) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.allFailed[category] >= outageCycles
}

// RefreshAll refreshes every category. Per-category failures are absorbed;
// the returned error only reflects context cancellation.
func (f *Fetcher) RefreshAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	for _, category := range domain.Categories {
		g.Go(func() error {
			return f.Refresh(ctx, category)
		})
	}

	return g.Wait()
}

// Refresh fetches every eligible source of a category. Concurrent calls for
// the same category coalesce: late callers wait for the in-flight refresh
// instead of starting another.
func (f *Fetcher) Refresh(ctx context.Context, category domain.Category) error {
	f.mu.Lock()

	if done, ok := f.inflight[category]; ok {
		f.mu.Unlock()

		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("refresh %s: %w", category, ctx.Err())
		}
	}

	done := make(chan struct{})
	f.inflight[category] = done
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.inflight, category)
		f.mu.Unlock()
		close(done)
	}()

	return f.refreshCategory(ctx, category)
}

func (f *Fetcher) refreshCategory(ctx context.Context, category domain.Category) error {
	var (
		attempted, succeeded int
		mu                   sync.Mutex
	)

	g, ctx := errgroup.WithContext(ctx)

	for _, src := range f.sources {
		if src.Category != category || !src.Enabled || !f.eligible(src.ID) {
			continue
		}

		// a source fetched within the TTL serves from cache
		if f.cache.fresh(src.ID, f.opts.CacheTTL) {
			continue
		}

		attempted++

		g.Go(func() error {
			if err := f.fetchSource(ctx, src); err != nil {
				if coreerrors.Is(err, context.Canceled) {
					return err
				}

				f.logger.Warn().Err(err).Str("source", src.ID).Msg("feed fetch failed")

				return nil
			}

			mu.Lock()
			succeeded++
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("refresh %s: %w", category, err)
	}

	f.mu.Lock()
	if attempted > 0 && succeeded == 0 {
		f.allFailed[category]++
		if f.allFailed[category] == outageCycles {
			observability.CategoryOutages.WithLabelValues(string(category)).Inc()
		}
	} else if succeeded > 0 {
		f.allFailed[category] = 0
	}
	f.mu.Unlock()

	return nil
}

// fetchSource fetches and parses one feed, retrying once on failure. Success
// resets the source's backoff; failure doubles it up to an hour.
func (f *Fetcher) fetchSource(ctx context.Context, src domain.Source) error {
	start := time.Now()

	items, err := f.fetchOnce(ctx, src)
	if err != nil && ctx.Err() == nil {
		select {
		case <-ctx.Done():
			return fmt.Errorf("fetch %s: %w", src.ID, ctx.Err())
		case <-time.After(f.opts.RetryDelay):
		}

		items, err = f.fetchOnce(ctx, src)
	}

	observability.FeedFetchDuration.WithLabelValues(string(src.Category)).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.FeedFetches.WithLabelValues(src.ID, statusError).Inc()
		f.recordFailure(src.ID)

		return err
	}

	observability.FeedFetches.WithLabelValues(src.ID, statusOK).Inc()
	observability.FeedItemsIngested.WithLabelValues(string(src.Category)).Add(float64(len(items)))
	f.recordSuccess(src.ID)
	f.cache.put(src.ID, items)

	return nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, src domain.Source) ([]domain.Item, error) {
	select {
	case f.globalSem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch %s: %w", src.ID, ctx.Err())
	}
	defer func() { <-f.globalSem }()

	hostSem := f.hostSemaphore(src.URL)
	select {
	case hostSem <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch %s: %w", src.ID, ctx.Err())
	}
	defer func() { <-hostSem }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request for %s: %w", src.ID, err)
	}

	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.ID, coreerrors.ErrUpstreamTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		kind := coreerrors.ErrUpstreamTransient
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			kind = coreerrors.ErrUpstreamUnavailable
		}

		return nil, fmt.Errorf("fetch %s: status %d: %w", src.ID, resp.StatusCode, kind)
	}

	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.ID, coreerrors.ErrUpstreamUnavailable)
	}

	return normalizeItems(src, feed, time.Now()), nil
}

// eligible reports whether a source's backoff window has elapsed.
func (f *Fetcher) eligible(sourceID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.states[sourceID]
	if !ok {
		return true
	}

	return !time.Now().Before(state.disabledUntil)
}

func (f *Fetcher) recordSuccess(sourceID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.states[sourceID]; ok {
		delete(f.states, sourceID)
		observability.FeedSourcesDisabled.Set(float64(f.disabledCountLocked()))
	}
}

func (f *Fetcher) recordFailure(sourceID string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	state, ok := f.states[sourceID]
	if !ok {
		state = &sourceState{backoff: initialBackoff / 2}
		f.states[sourceID] = state
	}

	state.backoff *= 2
	if state.backoff > maxBackoff {
		state.backoff = maxBackoff
	}

	state.disabledUntil = time.Now().Add(state.backoff)
	observability.FeedSourcesDisabled.Set(float64(f.disabledCountLocked()))
}

func (f *Fetcher) disabledCountLocked() int {
	now := time.Now()

	var n int

	for _, state := range f.states {
		if now.Before(state.disabledUntil) {
			n++
		}
	}

	return n
}

// hostSemaphore returns the per-host concurrency gate for a feed URL.
func (f *Fetcher) hostSemaphore(rawURL string) chan struct{} {
	host := rawURL
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	sem, ok := f.hostSems[host]
	if !ok {
		sem = make(chan struct{}, f.opts.PerHostParallelism)
		f.hostSems[host] = sem
	}

	return sem
}
