// Package digest assembles and schedules the news digest: five ranked
// category blocks framed by weather, holiday and crypto market sections,
// split into Telegram-sized parts.
package digest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/shanchoynoor/choynews-bot/internal/core/domain"
	"github.com/shanchoynoor/choynews-bot/internal/market"
	"github.com/shanchoynoor/choynews-bot/internal/platform/markdown"
	"github.com/shanchoynoor/choynews-bot/internal/platform/observability"
	"github.com/shanchoynoor/choynews-bot/internal/selection"
	"github.com/shanchoynoor/choynews-bot/internal/weather"
)

// Refresher triggers a feed refresh before items are selected and reports
// categories whose sources have all been failing.
type Refresher interface {
	RefreshAll(ctx context.Context) error
	Refresh(ctx context.Context, category domain.Category) error
	Outage(category domain.Category) bool
}

// Selector picks the five items of one category for one chat.
type Selector interface {
	Select(ctx context.Context, chatID int64, category domain.Category, now time.Time) ([]domain.Item, error)
}

// MarketSource provides the crypto block data.
type MarketSource interface {
	Snapshot(ctx context.Context) (domain.MarketSnapshot, error)
	Commentary(ctx context.Context, snap domain.MarketSnapshot) string
}

// WeatherSource provides the weather block data.
type WeatherSource interface {
	Enabled() bool
	Current(ctx context.Context) (weather.Report, error)
}

// HolidaySource provides today's holiday names, if any.
type HolidaySource interface {
	Enabled() bool
	Today(ctx context.Context, day time.Time) ([]string, error)
}

// Digest is one fully composed delivery for a single chat.
type Digest struct {
	// Parts are the messages to send, in order, each within the transport
	// size limit.
	Parts []string

	// Records identify the real items included and their categories, to be
	// recorded in the delivery log only after the transport acknowledges the
	// send.
	Records []domain.DeliveryRecord

	// Placeholders counts synthetic filler lines across all categories.
	Placeholders int
}

// Assembler composes digests from the feed cache, selection engine and the
// auxiliary weather, holiday and market providers.
type Assembler struct {
	feeds    Refresher
	selector Selector
	market   MarketSource
	weather  WeatherSource
	holidays HolidaySource
	logger   *zerolog.Logger
}

func NewAssembler(
	feeds Refresher,
	selector Selector,
	marketSource MarketSource,
	weatherSource WeatherSource,
	holidaySource HolidaySource,
	logger *zerolog.Logger,
) *Assembler {
	return &Assembler{
		feeds:    feeds,
		selector: selector,
		market:   marketSource,
		weather:  weatherSource,
		holidays: holidaySource,
		logger:   logger,
	}
}

// Compose builds the full digest for one subscriber and slot. Auxiliary
// blocks degrade to omission or a placeholder text; only a selection failure
// aborts the digest.
func (a *Assembler) Compose(ctx context.Context, sub domain.Subscriber, slot domain.Slot, now time.Time) (Digest, error) {
	return a.compose(ctx, sub, renderHeader(now.In(sub.Location()), slot), now)
}

// ComposeOnDemand builds a full digest outside the slot schedule, for the
// /news command.
func (a *Assembler) ComposeOnDemand(ctx context.Context, sub domain.Subscriber, now time.Time) (Digest, error) {
	return a.compose(ctx, sub, renderOnDemandHeader(now.In(sub.Location())), now)
}

func (a *Assembler) compose(ctx context.Context, sub domain.Subscriber, header string, now time.Time) (Digest, error) {
	local := now.In(sub.Location())

	if err := a.feeds.RefreshAll(ctx); err != nil {
		return Digest{}, fmt.Errorf("refresh feeds: %w", err)
	}

	blocks := []string{header}

	if holiday := a.holidayBlock(ctx, local); holiday != "" {
		blocks = append(blocks, holiday)
	}

	if weatherBlock := a.weatherBlock(ctx); weatherBlock != "" {
		blocks = append(blocks, weatherBlock)
	}

	var digest Digest

	for _, category := range domain.Categories {
		items, err := a.categoryItems(ctx, sub.ChatID, category, now)
		if err != nil {
			return Digest{}, err
		}

		for _, item := range items {
			if item.Placeholder {
				digest.Placeholders++
				observability.DigestPlaceholders.WithLabelValues(string(category)).Inc()

				continue
			}

			digest.Records = append(digest.Records, domain.DeliveryRecord{
				Fingerprint: item.Fingerprint,
				Category:    category,
			})
		}

		blocks = append(blocks, renderCategory(category, items, now))
	}

	blocks = append(blocks, a.marketBlock(ctx), footerText)
	digest.Parts = markdown.SplitBlocks(blocks, markdown.MessageLimit)

	return digest, nil
}

// categoryItems selects the category's items, substituting a full placeholder
// block when every source of the category has been failing.
func (a *Assembler) categoryItems(ctx context.Context, chatID int64, category domain.Category, now time.Time) ([]domain.Item, error) {
	if a.feeds.Outage(category) {
		a.logger.Warn().Str("category", string(category)).Msg("category in outage, rendering placeholders")

		return outageItems(category), nil
	}

	items, err := a.selector.Select(ctx, chatID, category, now)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", category, err)
	}

	return items, nil
}

// outageItems fills a category with placeholder lines; none carry a
// fingerprint, so nothing enters the delivery log.
func outageItems(category domain.Category) []domain.Item {
	items := make([]domain.Item, selection.ItemsPerCategory)
	for i := range items {
		items[i] = domain.Item{
			Category:    category,
			Title:       "No fresh updates right now",
			Placeholder: true,
		}
	}

	return items
}

// ComposeCategory builds a single on-demand category block for commands like
// /tech, refreshing only that category's sources.
func (a *Assembler) ComposeCategory(ctx context.Context, sub domain.Subscriber, category domain.Category, now time.Time) (Digest, error) {
	if err := a.feeds.Refresh(ctx, category); err != nil {
		return Digest{}, fmt.Errorf("refresh %s: %w", category, err)
	}

	items, err := a.categoryItems(ctx, sub.ChatID, category, now)
	if err != nil {
		return Digest{}, err
	}

	var digest Digest

	for _, item := range items {
		if item.Placeholder {
			digest.Placeholders++

			continue
		}

		digest.Records = append(digest.Records, domain.DeliveryRecord{
			Fingerprint: item.Fingerprint,
			Category:    category,
		})
	}

	blocks := []string{
		renderOnDemandHeader(now.In(sub.Location())),
		renderCategory(category, items, now),
		footerText,
	}
	digest.Parts = markdown.SplitBlocks(blocks, markdown.MessageLimit)

	return digest, nil
}

// MarketBlock renders the standalone /cryptostats reply.
func (a *Assembler) MarketBlock(ctx context.Context) string {
	return a.marketBlock(ctx)
}

// WeatherBlock renders the standalone /weather reply; empty when the weather
// provider is not configured.
func (a *Assembler) WeatherBlock(ctx context.Context) string {
	return a.weatherBlock(ctx)
}

func (a *Assembler) holidayBlock(ctx context.Context, local time.Time) string {
	if a.holidays == nil || !a.holidays.Enabled() {
		return ""
	}

	names, err := a.holidays.Today(ctx, local)
	if err != nil {
		a.logger.Warn().Err(err).Msg("holiday lookup failed")

		return ""
	}

	return renderHoliday(names)
}

func (a *Assembler) weatherBlock(ctx context.Context) string {
	if a.weather == nil || !a.weather.Enabled() {
		return ""
	}

	report, err := a.weather.Current(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("weather lookup failed")

		return ""
	}

	return renderWeather(report)
}

func (a *Assembler) marketBlock(ctx context.Context) string {
	snap, err := a.market.Snapshot(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("market snapshot failed")

		return marketUnavailableText
	}

	return renderMarket(snap, a.market.Commentary(ctx, snap))
}

var (
	_ MarketSource = (*market.Composer)(nil)
	_ Selector     = (*selection.Engine)(nil)
)
