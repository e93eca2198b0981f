// Package domain defines the core types shared across the news pipeline:
// categories, delivery slots, ingested items, sources, subscribers and the
// crypto market snapshot.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Category is one of the five fixed news categories of a digest.
type Category string

const (
	CategoryLocal         Category = "local"
	CategoryGlobal        Category = "global"
	CategoryTech          Category = "tech"
	CategorySports        Category = "sports"
	CategoryFinanceCrypto Category = "finance_crypto"
)

// Categories lists all categories in digest display order.
var Categories = []Category{
	CategoryLocal,
	CategoryGlobal,
	CategoryTech,
	CategorySports,
	CategoryFinanceCrypto,
}

// Title returns the section heading used when rendering the category block.
func (c Category) Title() string {
	switch c {
	case CategoryLocal:
		return "🇧🇩 LOCAL NEWS"
	case CategoryGlobal:
		return "🌍 GLOBAL NEWS"
	case CategoryTech:
		return "🚀 TECH NEWS"
	case CategorySports:
		return "🏆 SPORTS NEWS"
	case CategoryFinanceCrypto:
		return "🪙 FINANCE & CRYPTO NEWS"
	default:
		return strings.ToUpper(string(c))
	}
}

// Valid reports whether c is one of the five known categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}

	return false
}

// Slot is one of the four daily delivery times in subscriber-local time.
type Slot string

const (
	SlotMorning Slot = "morning"
	SlotNoon    Slot = "noon"
	SlotEvening Slot = "evening"
	SlotNight   Slot = "night"
)

// Slots lists all slots in chronological order.
var Slots = []Slot{SlotMorning, SlotNoon, SlotEvening, SlotNight}

// Hour returns the local wall-clock hour at which the slot fires.
func (s Slot) Hour() int {
	switch s {
	case SlotMorning:
		return 8
	case SlotNoon:
		return 13
	case SlotEvening:
		return 19
	case SlotNight:
		return 23
	default:
		return -1
	}
}

// Label returns the human-readable slot name used in the digest header.
func (s Slot) Label() string {
	switch s {
	case SlotMorning:
		return "Morning"
	case SlotNoon:
		return "Noon"
	case SlotEvening:
		return "Evening"
	case SlotNight:
		return "Night"
	default:
		return string(s)
	}
}

// SlotAt returns the slot whose wall-clock hour matches the given local time,
// or false when the time is outside the first minute of any slot hour.
func SlotAt(local time.Time) (Slot, bool) {
	for _, s := range Slots {
		if local.Hour() == s.Hour() && local.Minute() == 0 {
			return s, true
		}
	}

	return "", false
}

// Item is a single ingested news entry, normalized from an RSS/Atom feed.
type Item struct {
	SourceID      string
	SourceName    string
	Category      Category
	Title         string
	URL           string
	PublishedAt   time.Time
	FetchedAt     time.Time
	TimeEstimated bool
	Fingerprint   string

	// Placeholder marks a synthetic filler entry emitted when a category is
	// starved. Placeholders have no URL and no fingerprint and must never be
	// recorded in the delivery log.
	Placeholder bool
}

// Age returns how old the item is at the given instant.
func (i Item) Age(now time.Time) time.Duration {
	return now.Sub(i.PublishedAt)
}

// Source describes one registered RSS/Atom feed.
type Source struct {
	ID                string
	Name              string
	Category          Category
	URL               string
	ReliabilityWeight float64
	Enabled           bool
}

// Subscriber is a chat registered for scheduled digests.
type Subscriber struct {
	ChatID    int64
	Username  string
	FirstName string
	Timezone  string
	Active    bool
	CreatedAt time.Time

	// LastSlotSent holds the local date (YYYY-MM-DD in the subscriber's
	// timezone) of the last successful send per slot.
	LastSlotSent map[Slot]string
}

// Location resolves the subscriber timezone, defaulting to UTC.
func (s Subscriber) Location() *time.Location {
	if s.Timezone == "" {
		return time.UTC
	}

	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}

	return loc
}

// DeliveryRecord ties a delivered fingerprint to the category it shipped
// under, for the delivery log.
type DeliveryRecord struct {
	Fingerprint string
	Category    Category
}

// CoinQuote is one entry of the snapshot's gainer/loser lists.
type CoinQuote struct {
	Symbol       string
	Name         string
	Price        float64
	PctChange24h float64
	Volume24h    float64
}

// IndexQuote is one traditional-market index entry of the snapshot.
type IndexQuote struct {
	Symbol    string
	Region    string
	Value     float64
	PctChange float64
}

// MarketSnapshot is a point-in-time summary of the crypto market.
type MarketSnapshot struct {
	TakenAt        time.Time
	TotalCapUSD    float64
	CapChangePct   float64
	TotalVolumeUSD float64
	FearGreedIndex int
	Gainers        []CoinQuote
	Losers         []CoinQuote

	// BigCaps is the fixed large-cap price row (BTC, ETH, …) rendered under
	// the movers.
	BigCaps []CoinQuote

	// Indexes is the global market index row (SPX500, NIFTY, DSEX, USDX);
	// empty when the index provider is not configured.
	Indexes []IndexQuote
}

// CoinStats is the on-demand per-coin detail used by /<symbol>stats commands.
type CoinStats struct {
	Symbol       string
	Name         string
	Price        float64
	PctChange1h  float64
	PctChange24h float64
	PctChange7d  float64
	PctChange30d float64
	MarketCapUSD float64
	Volume24hUSD float64
	RSI14        float64
	Support      float64
	Resistance   float64
	AboveMA30    bool
	Signal       Signal
}

// Signal is the trading bias derived from CoinStats indicators.
type Signal string

const (
	SignalBuy   Signal = "BUY"
	SignalHold  Signal = "HOLD"
	SignalWatch Signal = "WATCH"
	SignalSell  Signal = "SELL"
)

// Fingerprint derives the stable identity of a (title, source) pair used for
// cross-slot deduplication. Two feeds carrying the same event produce
// different fingerprints on purpose: dedup is per source.
func Fingerprint(title, sourceID string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(title), " "))
	sum := sha256.Sum256([]byte(normalized + "|" + sourceID))

	return hex.EncodeToString(sum[:])
}
