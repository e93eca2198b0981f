// Package market builds the crypto block of a digest: global snapshot, top
// movers, big-cap prices, AI commentary and per-coin technical detail.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	coreerrors "github.com/shanchoynoor/choynews-bot/internal/core/errors"
	"github.com/shanchoynoor/choynews-bot/internal/platform/observability"
)

const (
	defaultBaseURL = "https://api.coingecko.com/api/v3"
	defaultFngURL  = "https://api.alternative.me/fng/?limit=1"

	requestTimeout = 10 * time.Second

	// minRequestInterval keeps us under the provider's free-tier budget.
	minRequestInterval = 2 * time.Second

	breakerFailureThreshold = 5
	breakerOpenTimeout      = time.Minute

	statusOK    = "ok"
	statusError = "error"
)

// ProviderOptions configures the market data client.
type ProviderOptions struct {
	BaseURL string
	FngURL  string

	// MinInterval overrides the request spacing; zero keeps the default.
	MinInterval time.Duration
}

// Provider is the CoinGecko-backed market data client. All calls share one
// rate limiter and one circuit breaker.
type Provider struct {
	baseURL string
	fngURL  string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

func NewProvider(opts ProviderOptions) *Provider {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}

	if opts.FngURL == "" {
		opts.FngURL = defaultFngURL
	}

	if opts.MinInterval <= 0 {
		opts.MinInterval = minRequestInterval
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "coingecko",
		Timeout: breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureThreshold
		},
		OnStateChange: func(_ string, _, to gobreaker.State) {
			if to == gobreaker.StateOpen {
				observability.MarketBreakerOpens.Inc()
			}
		},
	})

	return &Provider{
		baseURL: opts.BaseURL,
		fngURL:  opts.FngURL,
		client:  &http.Client{Timeout: requestTimeout},
		limiter: rate.NewLimiter(rate.Every(opts.MinInterval), 1),
		breaker: breaker,
	}
}

// GlobalData is the aggregate market overview.
type GlobalData struct {
	TotalCapUSD    float64
	TotalVolumeUSD float64
	CapChangePct   float64
}

type globalResponse struct {
	Data struct {
		TotalMarketCap     map[string]float64 `json:"total_market_cap"`
		TotalVolume        map[string]float64 `json:"total_volume"`
		MarketCapChangePct float64            `json:"market_cap_change_percentage_24h_usd"`
	} `json:"data"`
}

// Global fetches aggregate cap, volume and 24h cap change.
func (p *Provider) Global(ctx context.Context) (GlobalData, error) {
	var resp globalResponse
	if err := p.getJSON(ctx, "global", p.baseURL+"/global", &resp); err != nil {
		return GlobalData{}, err
	}

	return GlobalData{
		TotalCapUSD:    resp.Data.TotalMarketCap["usd"],
		TotalVolumeUSD: resp.Data.TotalVolume["usd"],
		CapChangePct:   resp.Data.MarketCapChangePct,
	}, nil
}

// MarketRow is one /coins/markets entry.
type MarketRow struct {
	ID           string   `json:"id"`
	Symbol       string   `json:"symbol"`
	Name         string   `json:"name"`
	CurrentPrice float64  `json:"current_price"`
	MarketCap    float64  `json:"market_cap"`
	TotalVolume  float64  `json:"total_volume"`
	PctChange1h  *float64 `json:"price_change_percentage_1h_in_currency"`
	PctChange24h *float64 `json:"price_change_percentage_24h"`
	PctChange7d  *float64 `json:"price_change_percentage_7d_in_currency"`
	PctChange30d *float64 `json:"price_change_percentage_30d_in_currency"`
}

// TopMarkets fetches the top coins by market cap with percent changes.
func (p *Provider) TopMarkets(ctx context.Context, perPage int) ([]MarketRow, error) {
	q := url.Values{
		"vs_currency":             {"usd"},
		"order":                   {"market_cap_desc"},
		"per_page":                {strconv.Itoa(perPage)},
		"page":                    {"1"},
		"price_change_percentage": {"1h,24h,7d,30d"},
	}

	var rows []MarketRow
	if err := p.getJSON(ctx, "markets", p.baseURL+"/coins/markets?"+q.Encode(), &rows); err != nil {
		return nil, err
	}

	return rows, nil
}

// MarketsByIDs fetches specific coins by CoinGecko id.
func (p *Provider) MarketsByIDs(ctx context.Context, ids []string) ([]MarketRow, error) {
	q := url.Values{
		"vs_currency":             {"usd"},
		"ids":                     {strings.Join(ids, ",")},
		"price_change_percentage": {"1h,24h,7d,30d"},
	}

	var rows []MarketRow
	if err := p.getJSON(ctx, "markets", p.baseURL+"/coins/markets?"+q.Encode(), &rows); err != nil {
		return nil, err
	}

	return rows, nil
}

type searchResponse struct {
	Coins []struct {
		ID     string `json:"id"`
		Symbol string `json:"symbol"`
		Name   string `json:"name"`
	} `json:"coins"`
}

// ResolveCoin maps a user-typed symbol, id or name to a CoinGecko id.
func (p *Provider) ResolveCoin(ctx context.Context, query string) (string, error) {
	var resp searchResponse
	if err := p.getJSON(ctx, "search", p.baseURL+"/search?query="+url.QueryEscape(query), &resp); err != nil {
		return "", err
	}

	lowered := strings.ToLower(query)

	for _, coin := range resp.Coins {
		if strings.ToLower(coin.Symbol) == lowered ||
			strings.ToLower(coin.ID) == lowered ||
			strings.ToLower(coin.Name) == lowered {
			return coin.ID, nil
		}
	}

	return "", fmt.Errorf("resolve %q: %w", query, coreerrors.ErrCoinNotFound)
}

type chartResponse struct {
	Prices [][2]float64 `json:"prices"`
}

// DailyPrices fetches the daily close series for the last n days.
func (p *Provider) DailyPrices(ctx context.Context, coinID string, days int) ([]float64, error) {
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%d&interval=daily",
		p.baseURL, url.PathEscape(coinID), days)

	var resp chartResponse
	if err := p.getJSON(ctx, "chart", endpoint, &resp); err != nil {
		return nil, err
	}

	prices := make([]float64, 0, len(resp.Prices))
	for _, point := range resp.Prices {
		prices = append(prices, point[1])
	}

	return prices, nil
}

type fngResponse struct {
	Data []struct {
		Value string `json:"value"`
	} `json:"data"`
}

// FearGreed fetches the alternative.me fear/greed index, returning -1 when
// the value is unavailable.
func (p *Provider) FearGreed(ctx context.Context) int {
	var resp fngResponse
	if err := p.getJSON(ctx, "fng", p.fngURL, &resp); err != nil || len(resp.Data) == 0 {
		return -1
	}

	value, err := strconv.Atoi(resp.Data[0].Value)
	if err != nil {
		return -1
	}

	return value
}

func (p *Provider) getJSON(ctx context.Context, endpoint, rawURL string, out any) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	_, err := p.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", endpoint, coreerrors.ErrUpstreamTransient)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("%s: status %d: %w", endpoint, resp.StatusCode, coreerrors.ErrUpstreamUnavailable)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return nil, fmt.Errorf("decode %s: %w", endpoint, err)
		}

		return nil, nil
	})

	if err != nil {
		observability.MarketRequests.WithLabelValues(endpoint, statusError).Inc()

		if coreerrors.Is(err, gobreaker.ErrOpenState) || coreerrors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%s: %w", endpoint, coreerrors.ErrUpstreamUnavailable)
		}

		return err
	}

	observability.MarketRequests.WithLabelValues(endpoint, statusOK).Inc()

	return nil
}
