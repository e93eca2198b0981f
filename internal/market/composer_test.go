package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanchoynoor/choynews-bot/internal/core/domain"
	coreerrors "github.com/shanchoynoor/choynews-bot/internal/core/errors"
)

func nopLogger() *zerolog.Logger {
	nop := zerolog.Nop()

	return &nop
}

type stubAI struct {
	text  string
	err   error
	calls atomic.Int32
}

func (s *stubAI) Commentary(context.Context, string) (string, error) {
	s.calls.Add(1)

	return s.text, s.err
}

func newTestComposer(provider *Provider, aiClient *stubAI) *Composer {
	return NewComposer(provider, nil, aiClient,
		ComposerOptions{CacheTTL: time.Minute, SharedCommentary: true}, nopLogger())
}

func marketsJSON() string {
	rows := []string{
		`{"id":"bitcoin","symbol":"btc","name":"Bitcoin","current_price":65000,"market_cap":1.2e12,"total_volume":3.5e10,"price_change_percentage_24h":2.5,"price_change_percentage_1h_in_currency":0.2,"price_change_percentage_7d_in_currency":5.0,"price_change_percentage_30d_in_currency":12.0}`,
		`{"id":"ethereum","symbol":"eth","name":"Ethereum","current_price":3400,"market_cap":4.1e11,"total_volume":1.8e10,"price_change_percentage_24h":8.0}`,
		`{"id":"runner","symbol":"run","name":"Runner","current_price":1.5,"market_cap":1e9,"total_volume":5e8,"price_change_percentage_24h":22.0}`,
		`{"id":"dust","symbol":"dst","name":"Dust","current_price":0.001,"market_cap":1e6,"total_volume":1e5,"price_change_percentage_24h":90.0}`,
		`{"id":"sinker","symbol":"snk","name":"Sinker","current_price":0.8,"market_cap":2e9,"total_volume":6e8,"price_change_percentage_24h":-15.0}`,
	}

	return "[" + strings.Join(rows, ",") + "]"
}

func newTestProvider(t *testing.T) *Provider {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/global", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":{"total_market_cap":{"usd":2.5e12},"total_volume":{"usd":9.0e10},"market_cap_change_percentage_24h_usd":1.8}}`)
	})
	mux.HandleFunc("/coins/markets", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, marketsJSON())
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"coins":[{"id":"bitcoin","symbol":"btc","name":"Bitcoin"}]}`)
	})
	mux.HandleFunc("/coins/bitcoin/market_chart", func(w http.ResponseWriter, _ *http.Request) {
		var points []string
		for i := 0; i < 31; i++ {
			points = append(points, fmt.Sprintf("[%d,%d]", i, 60000+i*100))
		}

		fmt.Fprint(w, `{"prices":[`+strings.Join(points, ",")+`]}`)
	})
	mux.HandleFunc("/fng", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"data":[{"value":"62"}]}`)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return NewProvider(ProviderOptions{
		BaseURL:     srv.URL,
		FngURL:      srv.URL + "/fng",
		MinInterval: time.Millisecond,
	})
}

func TestSnapshot_BuildsAndCaches(t *testing.T) {
	provider := newTestProvider(t)
	composer := newTestComposer(provider, &stubAI{text: "fine"})

	snap, err := composer.Snapshot(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2.5e12, snap.TotalCapUSD)
	assert.Equal(t, 1.8, snap.CapChangePct)
	assert.Equal(t, 62, snap.FearGreedIndex)

	require.NotEmpty(t, snap.Gainers)
	assert.Equal(t, "RUN", snap.Gainers[0].Symbol)

	require.NotEmpty(t, snap.Losers)
	assert.Equal(t, "SNK", snap.Losers[0].Symbol)

	// dead-volume coin never appears despite its 90% move
	for _, q := range append(snap.Gainers, snap.Losers...) {
		assert.NotEqual(t, "DST", q.Symbol)
	}

	require.NotEmpty(t, snap.BigCaps)
	assert.Equal(t, "BTC", snap.BigCaps[0].Symbol)

	// second call is served from cache
	again, err := composer.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, snap.TakenAt, again.TakenAt)
}

func TestCommentary_FallbackOnAIFailure(t *testing.T) {
	provider := newTestProvider(t)
	failing := &stubAI{err: errors.New("provider down")}
	composer := newTestComposer(provider, failing)

	snap := domain.MarketSnapshot{
		CapChangePct:   -2.4,
		TotalVolumeUSD: 9.0e10,
		FearGreedIndex: 30,
		Gainers:        []domain.CoinQuote{{Symbol: "RUN", PctChange24h: 22}},
		Losers:         []domain.CoinQuote{{Symbol: "SNK", PctChange24h: -15}},
	}

	text := composer.Commentary(context.Background(), snap)
	assert.Contains(t, text, "Markets down 2.40%")
	assert.Contains(t, text, "RUN")
	assert.Contains(t, text, "Fear/Greed at 30/100")
}

func TestCommentary_SharedWithinWindow(t *testing.T) {
	provider := newTestProvider(t)
	stub := &stubAI{text: "steady as she goes"}
	composer := newTestComposer(provider, stub)

	snap := domain.MarketSnapshot{CapChangePct: 1}

	first := composer.Commentary(context.Background(), snap)
	second := composer.Commentary(context.Background(), snap)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestCoinDetail(t *testing.T) {
	provider := newTestProvider(t)
	composer := newTestComposer(provider, &stubAI{text: "x"})

	stats, err := composer.CoinDetail(context.Background(), "btc")
	require.NoError(t, err)

	assert.Equal(t, "BTC", stats.Symbol)
	assert.Equal(t, "Bitcoin", stats.Name)
	assert.Equal(t, float64(65000), stats.Price)
	assert.Equal(t, 2.5, stats.PctChange24h)
	assert.Equal(t, float64(100), stats.RSI14)
	assert.True(t, stats.AboveMA30)
	assert.Greater(t, stats.Resistance, stats.Support)
	assert.NotEmpty(t, stats.Signal)
}

func TestResolveCoin_NotFound(t *testing.T) {
	provider := newTestProvider(t)

	_, err := provider.ResolveCoin(context.Background(), "nosuchcoin")
	require.Error(t, err)
	assert.ErrorIs(t, err, coreerrors.ErrCoinNotFound)
}

func TestCommentary_PerRecipientGeneratesFresh(t *testing.T) {
	provider := newTestProvider(t)
	stub := &stubAI{text: "fresh take"}
	composer := NewComposer(provider, nil, stub,
		ComposerOptions{CacheTTL: time.Minute}, nopLogger())

	snap := domain.MarketSnapshot{CapChangePct: 1}

	composer.Commentary(context.Background(), snap)
	composer.Commentary(context.Background(), snap)

	assert.Equal(t, int32(2), stub.calls.Load())
}

func TestIndexProvider_Quotes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{
			"SPX500":{"name":"S&P 500","close":"5123.45","percent_change":"+0.32"},
			"NIFTY":{"name":"NIFTY","close":"24500.10","percent_change":"-0.85"},
			"DSEX":{"name":"DSEX","close":"5300.00","percent_change":"0.10"},
			"USDX":{"name":"US Dollar Index","close":"broken","percent_change":"+0.05"}
		}`)
	}))
	t.Cleanup(srv.Close)

	indices := NewIndexProvider(IndexProviderOptions{APIKey: "k", BaseURL: srv.URL})
	require.True(t, indices.Enabled())

	quotes, err := indices.Quotes(context.Background())
	require.NoError(t, err)

	// the unparseable USDX close is skipped, order follows the fixed row
	require.Len(t, quotes, 3)
	assert.Equal(t, "SPX500", quotes[0].Symbol)
	assert.Equal(t, "USA", quotes[0].Region)
	assert.Equal(t, 5123.45, quotes[0].Value)
	assert.Equal(t, 0.32, quotes[0].PctChange)
	assert.Equal(t, -0.85, quotes[1].PctChange)
}

func TestIndexProvider_DisabledWithoutKey(t *testing.T) {
	assert.False(t, NewIndexProvider(IndexProviderOptions{}).Enabled())

	var nilProvider *IndexProvider
	assert.False(t, nilProvider.Enabled())
}

func TestSnapshot_IncludesIndexRow(t *testing.T) {
	provider := newTestProvider(t)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"SPX500":{"name":"S&P 500","close":"5123.45","percent_change":"+0.32"}}`)
	}))
	t.Cleanup(srv.Close)

	indices := NewIndexProvider(IndexProviderOptions{APIKey: "k", BaseURL: srv.URL})
	composer := NewComposer(provider, indices, &stubAI{text: "x"},
		ComposerOptions{CacheTTL: time.Minute, SharedCommentary: true}, nopLogger())

	snap, err := composer.Snapshot(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Indexes, 1)
	assert.Equal(t, "SPX500", snap.Indexes[0].Symbol)
	assert.Equal(t, 5123.45, snap.Indexes[0].Value)
}
