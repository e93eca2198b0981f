package feeds

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanchoynoor/choynews-bot/internal/core/domain"
)

const rssDoc = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>t</title>
<item><title>First story</title><link>https://example.com/1</link><pubDate>Mon, 02 Mar 2026 10:00:00 GMT</pubDate></item>
<item><title>Second story</title><link>https://example.com/2</link><pubDate>Mon, 02 Mar 2026 09:00:00 GMT</pubDate></item>
</channel></rss>`

func testLogger() *zerolog.Logger {
	nop := zerolog.Nop()

	return &nop
}

func newTestFetcher(t *testing.T, handler http.Handler, n int) (*Fetcher, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	sources := make([]domain.Source, 0, n)
	for i := 0; i < n; i++ {
		sources = append(sources, domain.Source{
			ID:                fmt.Sprintf("src-%d", i),
			Name:              fmt.Sprintf("Source %d", i),
			Category:          domain.CategoryGlobal,
			URL:               fmt.Sprintf("%s/feed/%d", srv.URL, i),
			ReliabilityWeight: 1.0,
			Enabled:           true,
		})
	}

	return NewFetcher(sources, Options{Timeout: 2 * time.Second, RetryDelay: 10 * time.Millisecond}, testLogger()), srv
}

func TestRefresh_PopulatesCache(t *testing.T) {
	f, _ := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(rssDoc))
	}), 1)

	require.NoError(t, f.Refresh(context.Background(), domain.CategoryGlobal))

	items := f.Recent(domain.CategoryGlobal, time.Time{})
	require.Len(t, items, 2)
	assert.Equal(t, "First story", items[0].Title)
	assert.False(t, f.Outage(domain.CategoryGlobal))
}

func TestRefresh_Idempotent(t *testing.T) {
	f, _ := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(rssDoc))
	}), 1)

	require.NoError(t, f.Refresh(context.Background(), domain.CategoryGlobal))
	require.NoError(t, f.Refresh(context.Background(), domain.CategoryGlobal))

	assert.Len(t, f.Recent(domain.CategoryGlobal, time.Time{}), 2)
}

func TestRefresh_RecentFiltersBySince(t *testing.T) {
	f, _ := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(rssDoc))
	}), 1)

	require.NoError(t, f.Refresh(context.Background(), domain.CategoryGlobal))

	since := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	items := f.Recent(domain.CategoryGlobal, since)
	require.Len(t, items, 1)
	assert.Equal(t, "First story", items[0].Title)
}

func TestRefresh_SkipsFreshCache(t *testing.T) {
	var calls atomic.Int32

	f, _ := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(rssDoc))
	}), 3)

	require.NoError(t, f.Refresh(context.Background(), domain.CategoryGlobal))
	require.Equal(t, int32(3), calls.Load())

	// all sources are within the TTL, the second refresh fetches nothing
	require.NoError(t, f.Refresh(context.Background(), domain.CategoryGlobal))
	assert.Equal(t, int32(3), calls.Load())
	assert.Len(t, f.Recent(domain.CategoryGlobal, time.Time{}), 6)
}

func TestRefresh_ExpiredCacheRefetches(t *testing.T) {
	var calls atomic.Int32

	f, _ := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(rssDoc))
	}), 1)
	f.opts.CacheTTL = time.Millisecond

	require.NoError(t, f.Refresh(context.Background(), domain.CategoryGlobal))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, f.Refresh(context.Background(), domain.CategoryGlobal))

	assert.Equal(t, int32(2), calls.Load())
}

func TestNewFetcher_CapsCacheTTL(t *testing.T) {
	f := NewFetcher(nil, Options{CacheTTL: time.Hour}, testLogger())
	assert.Equal(t, maxCacheTTL, f.opts.CacheTTL)
}

func TestRefresh_FailureBacksOffSource(t *testing.T) {
	var calls atomic.Int32

	f, _ := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}), 1)

	require.NoError(t, f.Refresh(context.Background(), domain.CategoryGlobal))

	// initial attempt plus one retry
	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, f.eligible("src-0"))

	// a second refresh must skip the backed-off source entirely
	require.NoError(t, f.Refresh(context.Background(), domain.CategoryGlobal))
	assert.Equal(t, int32(2), calls.Load())
}

func TestRefresh_OutageAfterConsecutiveAllFailCycles(t *testing.T) {
	f, _ := newTestFetcher(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}), 2)

	require.NoError(t, f.Refresh(context.Background(), domain.CategoryGlobal))
	assert.False(t, f.Outage(domain.CategoryGlobal))

	// clear backoff so the second cycle attempts the sources again
	f.mu.Lock()
	for _, state := range f.states {
		state.disabledUntil = time.Time{}
	}
	f.mu.Unlock()

	require.NoError(t, f.Refresh(context.Background(), domain.CategoryGlobal))
	assert.True(t, f.Outage(domain.CategoryGlobal))
}
