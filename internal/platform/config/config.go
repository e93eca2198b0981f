// Package config loads and validates application configuration from the
// environment. A single Config value is constructed once at startup and
// passed explicitly; nothing reads the environment lazily after Load.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const aiAPIKeyMock = "mock"

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	DataDir     string `env:"DATA_DIR" envDefault:"./data"`
	HealthPort  int    `env:"HEALTH_PORT" envDefault:"8080"`
	PostgresDSN string `env:"POSTGRES_DSN,required,notEmpty"`

	// Transport
	TelegramToken string `env:"TELEGRAM_TOKEN,required,notEmpty"`

	// AI commentary provider (OpenAI-compatible endpoint)
	AIAPIKey  string `env:"AI_API_KEY,required,notEmpty"`
	AIBaseURL string `env:"AI_BASE_URL" envDefault:"https://api.deepseek.com/v1"`
	AIModel   string `env:"AI_MODEL" envDefault:"deepseek-chat"`

	// Optional ambient providers
	WeatherAPIKey    string `env:"WEATHER_API_KEY"`
	HolidayAPIKey    string `env:"HOLIDAY_API_KEY"`
	TwelveDataAPIKey string `env:"TWELVEDATA_API_KEY"`
	WeatherCity      string `env:"WEATHER_CITY" envDefault:"Dhaka"`
	HolidayCountry   string `env:"HOLIDAY_COUNTRY" envDefault:"BD"`

	// DefaultTimezone is assigned to new subscribers until they set their own.
	DefaultTimezone string `env:"DEFAULT_TIMEZONE" envDefault:"Asia/Dhaka"`

	// Scheduler. The tick interval is plain seconds, not a duration string.
	TickIntervalSeconds int           `env:"TICK_INTERVAL_SECONDS" envDefault:"60"`
	DeliveryParallelism int           `env:"DELIVERY_PARALLELISM" envDefault:"8"`
	JobDeadline         time.Duration `env:"JOB_DEADLINE" envDefault:"45s"`
	DedupRetentionDays  int           `env:"DEDUP_RETENTION_DAYS" envDefault:"7"`

	// Feed fetcher
	FeedParallelism    int           `env:"FEED_PARALLELISM" envDefault:"16"`
	PerHostParallelism int           `env:"PER_HOST_PARALLELISM" envDefault:"2"`
	FeedTimeout        time.Duration `env:"FEED_TIMEOUT" envDefault:"10s"`
	FeedCacheTTL       time.Duration `env:"FEED_CACHE_TTL" envDefault:"10m"`

	// Crypto market composer
	MarketCacheTTL  time.Duration `env:"MARKET_CACHE_TTL" envDefault:"3m"`
	CommentaryScope string        `env:"COMMENTARY_SCOPE" envDefault:"global"`

	// Database pool
	DBMaxConnections int32         `env:"DB_MAX_CONNECTIONS" envDefault:"10"`
	DBMinConnections int32         `env:"DB_MIN_CONNECTIONS" envDefault:"1"`
	DBMaxConnIdle    time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	DBMaxConnLife    time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
}

// Load reads the environment (and an optional .env file) into a validated
// Config. Missing required options fail with a message naming the variable.
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.CommentaryScope) {
	case "global", "per-recipient":
	default:
		return fmt.Errorf("COMMENTARY_SCOPE must be global or per-recipient, got %q", c.CommentaryScope)
	}

	if c.TickIntervalSeconds < 1 {
		return fmt.Errorf("TICK_INTERVAL_SECONDS must be positive, got %d", c.TickIntervalSeconds)
	}

	if c.DeliveryParallelism < 1 {
		return fmt.Errorf("DELIVERY_PARALLELISM must be positive, got %d", c.DeliveryParallelism)
	}

	if c.FeedParallelism < 1 {
		return fmt.Errorf("FEED_PARALLELISM must be positive, got %d", c.FeedParallelism)
	}

	if c.DedupRetentionDays < 1 {
		return fmt.Errorf("DEDUP_RETENTION_DAYS must be positive, got %d", c.DedupRetentionDays)
	}

	return nil
}

// TickInterval converts the configured scheduler tick seconds to a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

// AIMocked reports whether the commentary provider should be replaced by the
// deterministic mock client.
func (c *Config) AIMocked() bool {
	return c.AIAPIKey == "" || c.AIAPIKey == aiAPIKeyMock
}

// CommentaryGlobal reports whether AI commentary is cached once per slot for
// all recipients rather than regenerated per recipient.
func (c *Config) CommentaryGlobal() bool {
	return strings.ToLower(c.CommentaryScope) != "per-recipient"
}
