// Package holidays looks up today's public holidays via Calendarific. Results
// are cached per calendar day; an unset API key disables the block entirely.
package holidays

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	coreerrors "github.com/shanchoynoor/choynews-bot/internal/core/errors"
)

const (
	defaultBaseURL = "https://calendarific.com/api/v2"
	requestTimeout = 10 * time.Second
)

// Client fetches holiday names for one country.
type Client struct {
	apiKey  string
	baseURL string
	country string
	client  *http.Client

	mu        sync.Mutex
	cachedDay string
	cached    []string
}

// Options configures the holiday client. BaseURL is overridable for tests.
type Options struct {
	APIKey  string
	Country string
	BaseURL string
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}

	if opts.Country == "" {
		opts.Country = "BD"
	}

	return &Client{
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		country: opts.Country,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type holidaysResponse struct {
	Response struct {
		Holidays []struct {
			Name string `json:"name"`
		} `json:"holidays"`
	} `json:"response"`
}

// Today returns the holiday names for the given date, at most one upstream
// call per day.
func (c *Client) Today(ctx context.Context, day time.Time) ([]string, error) {
	if !c.Enabled() {
		return nil, nil
	}

	dayKey := day.Format("2006-01-02")

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cachedDay == dayKey {
		return c.cached, nil
	}

	names, err := c.fetch(ctx, day)
	if err != nil {
		return nil, err
	}

	c.cachedDay = dayKey
	c.cached = names

	return names, nil
}

func (c *Client) fetch(ctx context.Context, day time.Time) ([]string, error) {
	q := url.Values{
		"api_key": {c.apiKey},
		"country": {c.country},
		"year":    {strconv.Itoa(day.Year())},
		"month":   {strconv.Itoa(int(day.Month()))},
		"day":     {strconv.Itoa(day.Day())},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/holidays?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create holidays request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch holidays: %w", coreerrors.ErrUpstreamTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch holidays: status %d: %w", resp.StatusCode, coreerrors.ErrUpstreamUnavailable)
	}

	var payload holidaysResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode holidays: %w", err)
	}

	names := make([]string, 0, len(payload.Response.Holidays))
	for _, h := range payload.Response.Holidays {
		names = append(names, h.Name)
	}

	return names, nil
}
