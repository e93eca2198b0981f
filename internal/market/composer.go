package market

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/shanchoynoor/choynews-bot/internal/ai"
	"github.com/shanchoynoor/choynews-bot/internal/core/domain"
	"github.com/shanchoynoor/choynews-bot/internal/platform/observability"
)

const (
	topMarketsPage = 200
	moversPerSide  = 5

	// deadVolumeFloor filters illiquid coins out of the movers lists.
	deadVolumeFloor = 1e7

	commentaryTimeout     = 3 * time.Second
	commentaryShareWindow = 30 * time.Second

	chartDays = 30
)

// bigCapIDs is the fixed large-cap price row, in display order.
var bigCapIDs = []string{"bitcoin", "ethereum", "ripple", "binancecoin", "solana", "tron", "dogecoin", "cardano"}

// ComposerOptions tunes snapshot caching and commentary sharing.
type ComposerOptions struct {
	CacheTTL time.Duration

	// SharedCommentary reuses one AI commentary across recipients within the
	// sharing window; when false every call generates its own.
	SharedCommentary bool
}

// Composer caches a market snapshot and produces the digest's market block
// inputs: snapshot, commentary and per-coin detail.
type Composer struct {
	provider *Provider
	indices  *IndexProvider
	ai       ai.Client
	logger   *zerolog.Logger
	cacheTTL time.Duration
	shared   bool

	snapMu     sync.Mutex
	snapshot   *domain.MarketSnapshot
	snapshotAt time.Time

	comMu        sync.Mutex
	commentary   string
	commentaryAt time.Time
}

func NewComposer(provider *Provider, indices *IndexProvider, aiClient ai.Client, opts ComposerOptions, logger *zerolog.Logger) *Composer {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 3 * time.Minute
	}

	return &Composer{
		provider: provider,
		indices:  indices,
		ai:       aiClient,
		logger:   logger,
		cacheTTL: opts.CacheTTL,
		shared:   opts.SharedCommentary,
	}
}

// Snapshot returns the cached market snapshot, refreshing it when stale.
// Concurrent callers during a refresh serialize on the cache lock.
func (c *Composer) Snapshot(ctx context.Context) (domain.MarketSnapshot, error) {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()

	if c.snapshot != nil && time.Since(c.snapshotAt) < c.cacheTTL {
		observability.MarketSnapshotAge.Set(time.Since(c.snapshotAt).Seconds())

		return *c.snapshot, nil
	}

	snap, err := c.buildSnapshot(ctx)
	if err != nil {
		// keep serving the stale snapshot through short provider hiccups
		if c.snapshot != nil {
			c.logger.Warn().Err(err).Msg("market snapshot refresh failed, serving stale")

			return *c.snapshot, nil
		}

		return domain.MarketSnapshot{}, err
	}

	c.snapshot = &snap
	c.snapshotAt = time.Now()
	observability.MarketSnapshotAge.Set(0)

	return snap, nil
}

func (c *Composer) buildSnapshot(ctx context.Context) (domain.MarketSnapshot, error) {
	global, err := c.provider.Global(ctx)
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("global market data: %w", err)
	}

	rows, err := c.provider.TopMarkets(ctx, topMarketsPage)
	if err != nil {
		return domain.MarketSnapshot{}, fmt.Errorf("top markets: %w", err)
	}

	gainers, losers := movers(rows)

	snap := domain.MarketSnapshot{
		TakenAt:        time.Now(),
		TotalCapUSD:    global.TotalCapUSD,
		CapChangePct:   global.CapChangePct,
		TotalVolumeUSD: global.TotalVolumeUSD,
		FearGreedIndex: c.provider.FearGreed(ctx),
		Gainers:        gainers,
		Losers:         losers,
	}

	bigCaps, err := c.provider.MarketsByIDs(ctx, bigCapIDs)
	if err != nil {
		c.logger.Warn().Err(err).Msg("big cap prices unavailable")
	} else {
		snap.BigCaps = quotes(orderByIDs(bigCaps, bigCapIDs))
	}

	if c.indices.Enabled() {
		indexes, err := c.indices.Quotes(ctx)
		if err != nil {
			c.logger.Warn().Err(err).Msg("index quotes unavailable")
		} else {
			snap.Indexes = indexes
		}
	}

	return snap, nil
}

// movers splits the market rows into the top gainers and losers by 24h
// change, skipping coins under the dead-volume floor.
func movers(rows []MarketRow) (gainers, losers []domain.CoinQuote) {
	liquid := make([]MarketRow, 0, len(rows))

	for _, row := range rows {
		if row.TotalVolume >= deadVolumeFloor && row.PctChange24h != nil {
			liquid = append(liquid, row)
		}
	}

	sort.SliceStable(liquid, func(i, j int) bool {
		return *liquid[i].PctChange24h > *liquid[j].PctChange24h
	})

	top := liquid
	if len(top) > moversPerSide {
		top = top[:moversPerSide]
	}

	gainers = quotes(top)

	bottom := liquid
	if len(bottom) > moversPerSide {
		bottom = bottom[len(bottom)-moversPerSide:]
	}

	losers = quotes(bottom)

	// losers most negative first
	for i, j := 0, len(losers)-1; i < j; i, j = i+1, j-1 {
		losers[i], losers[j] = losers[j], losers[i]
	}

	return gainers, losers
}

func quotes(rows []MarketRow) []domain.CoinQuote {
	out := make([]domain.CoinQuote, 0, len(rows))

	for _, row := range rows {
		quote := domain.CoinQuote{
			Symbol:    strings.ToUpper(row.Symbol),
			Name:      row.Name,
			Price:     row.CurrentPrice,
			Volume24h: row.TotalVolume,
		}

		if row.PctChange24h != nil {
			quote.PctChange24h = *row.PctChange24h
		}

		out = append(out, quote)
	}

	return out
}

func orderByIDs(rows []MarketRow, ids []string) []MarketRow {
	byID := make(map[string]MarketRow, len(rows))
	for _, row := range rows {
		byID[row.ID] = row
	}

	out := make([]MarketRow, 0, len(ids))

	for _, id := range ids {
		if row, ok := byID[id]; ok {
			out = append(out, row)
		}
	}

	return out
}

// Commentary returns the AI read on a snapshot. In shared mode calls within
// the sharing window reuse the previous result; per-recipient mode generates
// fresh text every call. Provider failures or the 3s deadline fall back to a
// deterministic template either way.
func (c *Composer) Commentary(ctx context.Context, snap domain.MarketSnapshot) string {
	if !c.shared {
		return c.generateCommentary(ctx, snap)
	}

	c.comMu.Lock()
	defer c.comMu.Unlock()

	if c.commentary != "" && time.Since(c.commentaryAt) < commentaryShareWindow {
		return c.commentary
	}

	c.commentary = c.generateCommentary(ctx, snap)
	c.commentaryAt = time.Now()

	return c.commentary
}

func (c *Composer) generateCommentary(ctx context.Context, snap domain.MarketSnapshot) string {
	aiCtx, cancel := context.WithTimeout(ctx, commentaryTimeout)
	defer cancel()

	text, err := c.ai.Commentary(aiCtx, commentaryPrompt(snap))
	if err != nil || text == "" {
		if err != nil {
			c.logger.Warn().Err(err).Msg("ai commentary failed, using template")
		}

		return FallbackCommentary(snap)
	}

	return text
}

func commentaryPrompt(snap domain.MarketSnapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Crypto market: total cap $%.0fB (%+.2f%% 24h), volume $%.0fB.",
		snap.TotalCapUSD/1e9, snap.CapChangePct, snap.TotalVolumeUSD/1e9)

	if snap.FearGreedIndex >= 0 {
		fmt.Fprintf(&b, " Fear/Greed %d/100.", snap.FearGreedIndex)
	}

	if len(snap.Gainers) > 0 {
		fmt.Fprintf(&b, " Top gainer %s %+.1f%%.", snap.Gainers[0].Symbol, snap.Gainers[0].PctChange24h)
	}

	if len(snap.Losers) > 0 {
		fmt.Fprintf(&b, " Top loser %s %+.1f%%.", snap.Losers[0].Symbol, snap.Losers[0].PctChange24h)
	}

	b.WriteString(" Give a sentiment read and a 24h directional bias.")

	return b.String()
}

// FallbackCommentary renders the deterministic template used when the AI
// provider is unavailable.
func FallbackCommentary(snap domain.MarketSnapshot) string {
	direction := "down"
	if snap.CapChangePct >= 0 {
		direction = "up"
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Markets %s %.2f%% over 24h with $%.0fB traded.",
		direction, abs(snap.CapChangePct), snap.TotalVolumeUSD/1e9)

	if len(snap.Gainers) > 0 {
		fmt.Fprintf(&b, " Gainers led by %s (%+.1f%%).", snap.Gainers[0].Symbol, snap.Gainers[0].PctChange24h)
	}

	if len(snap.Losers) > 0 {
		fmt.Fprintf(&b, " Heaviest loser %s (%+.1f%%).", snap.Losers[0].Symbol, snap.Losers[0].PctChange24h)
	}

	if snap.FearGreedIndex >= 0 {
		fmt.Fprintf(&b, " Fear/Greed at %d/100.", snap.FearGreedIndex)
	}

	return b.String()
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}

	return f
}

// CoinDetail resolves a symbol and assembles the on-demand technical view.
func (c *Composer) CoinDetail(ctx context.Context, symbol string) (domain.CoinStats, error) {
	coinID, err := c.provider.ResolveCoin(ctx, symbol)
	if err != nil {
		return domain.CoinStats{}, err
	}

	rows, err := c.provider.MarketsByIDs(ctx, []string{coinID})
	if err != nil {
		return domain.CoinStats{}, fmt.Errorf("coin markets: %w", err)
	}

	if len(rows) == 0 {
		return domain.CoinStats{}, fmt.Errorf("coin %q: no market data", symbol)
	}

	row := rows[0]

	prices, err := c.provider.DailyPrices(ctx, coinID, chartDays)
	if err != nil || len(prices) == 0 {
		c.logger.Warn().Err(err).Str("coin", coinID).Msg("price history unavailable, indicators degraded")

		prices = []float64{row.CurrentPrice}
	}

	stats := domain.CoinStats{
		Symbol:       strings.ToUpper(row.Symbol),
		Name:         row.Name,
		Price:        row.CurrentPrice,
		MarketCapUSD: row.MarketCap,
		Volume24hUSD: row.TotalVolume,
		RSI14:        RSI(prices, rsiPeriod),
		AboveMA30:    AboveMA(prices, row.CurrentPrice, maWindow),
	}

	stats.Support, stats.Resistance = SupportResistance(prices)

	if row.PctChange1h != nil {
		stats.PctChange1h = *row.PctChange1h
	}

	if row.PctChange24h != nil {
		stats.PctChange24h = *row.PctChange24h
	}

	if row.PctChange7d != nil {
		stats.PctChange7d = *row.PctChange7d
	}

	if row.PctChange30d != nil {
		stats.PctChange30d = *row.PctChange30d
	}

	stats.Signal = ComputeSignal(stats.PctChange24h, stats.Volume24hUSD, stats.RSI14, stats.AboveMA30)

	return stats, nil
}
