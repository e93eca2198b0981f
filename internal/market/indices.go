package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shanchoynoor/choynews-bot/internal/core/domain"
	coreerrors "github.com/shanchoynoor/choynews-bot/internal/core/errors"
	"github.com/shanchoynoor/choynews-bot/internal/platform/observability"
)

const defaultIndicesBaseURL = "https://api.twelvedata.com"

// indexSymbols is the fixed global market index row, in display order.
var indexSymbols = []struct {
	Symbol string
	Region string
}{
	{"SPX500", "USA"},
	{"NIFTY", "India"},
	{"DSEX", "Dhaka"},
	{"USDX", "Forex"},
}

// IndexProviderOptions configures the Twelve Data quote client.
type IndexProviderOptions struct {
	APIKey  string
	BaseURL string
}

// IndexProvider fetches traditional market index quotes from Twelve Data.
// Without an API key it reports disabled and the snapshot omits the row.
type IndexProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewIndexProvider(opts IndexProviderOptions) *IndexProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultIndicesBaseURL
	}

	return &IndexProvider{
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

func (p *IndexProvider) Enabled() bool {
	return p != nil && p.apiKey != ""
}

type indexQuoteResponse struct {
	Name          string `json:"name"`
	Close         string `json:"close"`
	PercentChange string `json:"percent_change"`
}

// Quotes fetches the fixed index row in one batched request. Symbols the
// provider omits or cannot price are skipped.
func (p *IndexProvider) Quotes(ctx context.Context) ([]domain.IndexQuote, error) {
	symbols := make([]string, 0, len(indexSymbols))
	for _, s := range indexSymbols {
		symbols = append(symbols, s.Symbol)
	}

	endpoint := fmt.Sprintf("%s/quote?symbol=%s&apikey=%s", p.baseURL, strings.Join(symbols, ","), p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		observability.MarketRequests.WithLabelValues("indices", statusError).Inc()

		return nil, fmt.Errorf("index quotes: %w", coreerrors.ErrUpstreamTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		observability.MarketRequests.WithLabelValues("indices", statusError).Inc()

		return nil, fmt.Errorf("index quotes: status %d: %w", resp.StatusCode, coreerrors.ErrUpstreamUnavailable)
	}

	var body map[string]indexQuoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode index quotes: %w", err)
	}

	observability.MarketRequests.WithLabelValues("indices", statusOK).Inc()

	quotes := make([]domain.IndexQuote, 0, len(indexSymbols))

	for _, s := range indexSymbols {
		raw, ok := body[s.Symbol]
		if !ok {
			continue
		}

		value, err := strconv.ParseFloat(raw.Close, 64)
		if err != nil {
			continue
		}

		pct, err := strconv.ParseFloat(strings.TrimPrefix(raw.PercentChange, "+"), 64)
		if err != nil {
			pct = 0
		}

		quotes = append(quotes, domain.IndexQuote{
			Symbol:    s.Symbol,
			Region:    s.Region,
			Value:     value,
			PctChange: pct,
		})
	}

	return quotes, nil
}
