// Package weather fetches current conditions from weatherapi.com for the
// digest's weather block. Reports are cached so four slot deliveries within
// half an hour cost one upstream call.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	coreerrors "github.com/shanchoynoor/choynews-bot/internal/core/errors"
)

const (
	defaultBaseURL = "http://api.weatherapi.com/v1"
	requestTimeout = 10 * time.Second
	cacheTTL       = 30 * time.Minute
)

// Report is the current-conditions summary rendered in a digest.
type Report struct {
	City         string
	TempC        float64
	FeelsLikeC   float64
	Condition    string
	Humidity     int
	WindKPH      float64
	WindDir      string
	VisibilityKM float64
	UVIndex      float64

	// AQIIndex is the US EPA band, 1 (good) through 6 (hazardous); 0 when
	// the provider omitted air quality.
	AQIIndex int
}

// UVBand names the UV index band.
func (r Report) UVBand() string {
	switch uv := r.UVIndex; {
	case uv == 0:
		return "Minimal"
	case uv <= 2:
		return "Low"
	case uv <= 5:
		return "Moderate"
	case uv <= 7:
		return "High"
	case uv <= 10:
		return "Very High"
	default:
		return "Extreme"
	}
}

// AQIBand names the US EPA air quality band.
func (r Report) AQIBand() string {
	switch r.AQIIndex {
	case 1:
		return "Good"
	case 2:
		return "Moderate"
	case 3, 4:
		return "Unhealthy"
	case 5:
		return "Very Unhealthy"
	case 6:
		return "Hazardous"
	default:
		return "N/A"
	}
}

// Client fetches and caches weather reports for one city.
type Client struct {
	apiKey  string
	baseURL string
	city    string
	client  *http.Client

	mu        sync.Mutex
	cached    *Report
	fetchedAt time.Time
}

// Options configures the weather client. BaseURL is overridable for tests.
type Options struct {
	APIKey  string
	City    string
	BaseURL string
}

func New(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}

	if opts.City == "" {
		opts.City = "Dhaka"
	}

	return &Client{
		apiKey:  opts.APIKey,
		baseURL: opts.BaseURL,
		city:    opts.City,
		client:  &http.Client{Timeout: requestTimeout},
	}
}

// Enabled reports whether an API key is configured.
func (c *Client) Enabled() bool {
	return c.apiKey != ""
}

type currentResponse struct {
	Location struct {
		Name string `json:"name"`
	} `json:"location"`
	Current struct {
		TempC     float64 `json:"temp_c"`
		FeelsLike float64 `json:"feelslike_c"`
		Condition struct {
			Text string `json:"text"`
		} `json:"condition"`
		Humidity   int     `json:"humidity"`
		WindKPH    float64 `json:"wind_kph"`
		WindDir    string  `json:"wind_dir"`
		VisKM      float64 `json:"vis_km"`
		UV         float64 `json:"uv"`
		AirQuality struct {
			USEPAIndex int `json:"us-epa-index"`
		} `json:"air_quality"`
	} `json:"current"`
}

// Current returns the cached report, refreshing when stale.
func (c *Client) Current(ctx context.Context) (Report, error) {
	if !c.Enabled() {
		return Report{}, fmt.Errorf("weather: no API key: %w", coreerrors.ErrUpstreamUnavailable)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil && time.Since(c.fetchedAt) < cacheTTL {
		return *c.cached, nil
	}

	report, err := c.fetch(ctx)
	if err != nil {
		if c.cached != nil {
			return *c.cached, nil
		}

		return Report{}, err
	}

	c.cached = &report
	c.fetchedAt = time.Now()

	return report, nil
}

func (c *Client) fetch(ctx context.Context) (Report, error) {
	q := url.Values{"key": {c.apiKey}, "q": {c.city}, "aqi": {"yes"}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/current.json?"+q.Encode(), nil)
	if err != nil {
		return Report{}, fmt.Errorf("create weather request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Report{}, fmt.Errorf("fetch weather: %w", coreerrors.ErrUpstreamTransient)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Report{}, fmt.Errorf("fetch weather: status %d: %w", resp.StatusCode, coreerrors.ErrUpstreamUnavailable)
	}

	var payload currentResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Report{}, fmt.Errorf("decode weather: %w", err)
	}

	return Report{
		City:         payload.Location.Name,
		TempC:        payload.Current.TempC,
		FeelsLikeC:   payload.Current.FeelsLike,
		Condition:    payload.Current.Condition.Text,
		Humidity:     payload.Current.Humidity,
		WindKPH:      payload.Current.WindKPH,
		WindDir:      payload.Current.WindDir,
		VisibilityKM: payload.Current.VisKM,
		UVIndex:      payload.Current.UV,
		AQIIndex:     payload.Current.AirQuality.USEPAIndex,
	}, nil
}
