// Package app wires the application together and exposes its run modes:
//
//   - Bot mode: interactive Telegram bot handling user commands
//   - Digest mode: per-subscriber slot scheduler delivering digests
//   - All mode: both in one process
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/shanchoynoor/choynews-bot/internal/ai"
	"github.com/shanchoynoor/choynews-bot/internal/digest"
	"github.com/shanchoynoor/choynews-bot/internal/feeds"
	"github.com/shanchoynoor/choynews-bot/internal/holidays"
	"github.com/shanchoynoor/choynews-bot/internal/market"
	"github.com/shanchoynoor/choynews-bot/internal/platform/config"
	"github.com/shanchoynoor/choynews-bot/internal/platform/observability"
	"github.com/shanchoynoor/choynews-bot/internal/selection"
	db "github.com/shanchoynoor/choynews-bot/internal/storage"
	"github.com/shanchoynoor/choynews-bot/internal/telegrambot"
	"github.com/shanchoynoor/choynews-bot/internal/weather"
)

const errBotInit = "bot initialization failed: %w"

// App holds the shared dependencies and provides methods to run each mode.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger

	assembler *digest.Assembler
	composer  *market.Composer
}

// New builds the shared component graph: feed fetcher, selection engine,
// market composer and the digest assembler on top of them.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	sources := feeds.Catalog()

	fetcher := feeds.NewFetcher(sources, feeds.Options{
		Parallelism:        cfg.FeedParallelism,
		PerHostParallelism: cfg.PerHostParallelism,
		Timeout:            cfg.FeedTimeout,
		CacheTTL:           cfg.FeedCacheTTL,
	}, logger)

	engine := selection.NewEngine(fetcher, database, sources)

	aiClient := ai.New(ai.Options{
		APIKey:  cfg.AIAPIKey,
		BaseURL: cfg.AIBaseURL,
		Model:   cfg.AIModel,
	}, logger)

	indices := market.NewIndexProvider(market.IndexProviderOptions{APIKey: cfg.TwelveDataAPIKey})

	composer := market.NewComposer(market.NewProvider(market.ProviderOptions{}), indices, aiClient, market.ComposerOptions{
		CacheTTL:         cfg.MarketCacheTTL,
		SharedCommentary: cfg.CommentaryGlobal(),
	}, logger)

	weatherClient := weather.New(weather.Options{APIKey: cfg.WeatherAPIKey, City: cfg.WeatherCity})
	holidayClient := holidays.New(holidays.Options{APIKey: cfg.HolidayAPIKey, Country: cfg.HolidayCountry})

	assembler := digest.NewAssembler(fetcher, engine, composer, weatherClient, holidayClient, logger)

	return &App{
		cfg:       cfg,
		database:  database,
		logger:    logger,
		assembler: assembler,
		composer:  composer,
	}
}

// StartHealthServer starts the health check and metrics server.
func (a *App) StartHealthServer(ctx context.Context) error {
	if err := observability.NewServer(a.database, a.cfg.HealthPort, a.logger).Start(ctx); err != nil {
		return fmt.Errorf("health server start: %w", err)
	}

	return nil
}

// RunBot runs the interactive Telegram bot until the context is canceled.
func (a *App) RunBot(ctx context.Context) error {
	bot, err := a.newBot()
	if err != nil {
		return err
	}

	return bot.Run(ctx)
}

// RunDigest runs the slot scheduler. With once set it delivers every due
// subscriber a single time and exits, for cron-style deployments.
func (a *App) RunDigest(ctx context.Context, once bool) error {
	bot, err := a.newBot()
	if err != nil {
		return err
	}

	scheduler := a.newScheduler(bot)

	if once {
		scheduler.TickOnce(ctx)

		return nil
	}

	return scheduler.Run(ctx)
}

// RunAll runs the bot and the scheduler in one process.
func (a *App) RunAll(ctx context.Context) error {
	bot, err := a.newBot()
	if err != nil {
		return err
	}

	scheduler := a.newScheduler(bot)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return bot.Run(ctx) })
	g.Go(func() error { return scheduler.Run(ctx) })

	return g.Wait()
}

func (a *App) newBot() (*telegrambot.Bot, error) {
	bot, err := telegrambot.New(a.cfg.TelegramToken, a.database, a.assembler, a.composer, a.cfg.DefaultTimezone, a.logger)
	if err != nil {
		return nil, fmt.Errorf(errBotInit, err)
	}

	return bot, nil
}

func (a *App) newScheduler(transport digest.Transport) *digest.Scheduler {
	return digest.NewScheduler(a.assembler, a.database, a.database, transport, digest.SchedulerOptions{
		TickInterval: a.cfg.TickInterval(),
		Parallelism:  a.cfg.DeliveryParallelism,
		JobDeadline:  a.cfg.JobDeadline,
		Retention:    time.Duration(a.cfg.DedupRetentionDays) * 24 * time.Hour,
	}, a.logger)
}
