package digest

import (
	"fmt"
	"strings"
	"time"

	"github.com/shanchoynoor/choynews-bot/internal/core/domain"
	"github.com/shanchoynoor/choynews-bot/internal/platform/markdown"
	"github.com/shanchoynoor/choynews-bot/internal/weather"
)

const (
	separatorLine = "━━━━━━━━━━━━━━━━━━━━━"

	footerText = separatorLine + "\n🤖 Developed by [Shanchoy Noor](https://github.com/shanchoynoor)"

	marketUnavailableText = "*💰 CRYPTO MARKET:*\nMarket data temporarily unavailable."

	headerTimeFormat = "Mon, 02 Jan 2006 03:04 PM"
)

// renderHeader builds the digest header: localized date, slot label and UTC
// offset of the subscriber timezone.
func renderHeader(local time.Time, slot domain.Slot) string {
	return fmt.Sprintf("📢 *TOP NEWS HEADLINES*\n%s (UTC%s) • %s Digest",
		local.Format(headerTimeFormat), local.Format("-07:00"), slot.Label())
}

func renderOnDemandHeader(local time.Time) string {
	return fmt.Sprintf("📢 *TOP NEWS HEADLINES*\n%s (UTC%s)",
		local.Format(headerTimeFormat), local.Format("-07:00"))
}

// renderHoliday builds the holiday line; empty when there is none.
func renderHoliday(names []string) string {
	if len(names) == 0 {
		return ""
	}

	return "🎉 Today's Holiday: " + markdown.Escape(strings.Join(names, ", "))
}

// renderWeather builds the weather block.
func renderWeather(report weather.Report) string {
	var b strings.Builder

	b.WriteString("*☀️ WEATHER NOW:*\n")
	fmt.Fprintf(&b, "🌡️ Temperature: %.0f°C (feels like %.0f°C)\n", report.TempC, report.FeelsLikeC)
	fmt.Fprintf(&b, "☁️ Condition: %s\n", markdown.Escape(report.Condition))
	fmt.Fprintf(&b, "💧 Humidity: %d%%\n", report.Humidity)
	fmt.Fprintf(&b, "💨 Wind: %.0f km/h %s\n", report.WindKPH, report.WindDir)

	if report.AQIIndex > 0 {
		fmt.Fprintf(&b, "🌬️ Air Quality: %s (%d)\n", report.AQIBand(), report.AQIIndex)
	} else {
		b.WriteString("🌬️ Air Quality: N/A\n")
	}

	fmt.Fprintf(&b, "☀️ UV Index: %s (%.0f)", report.UVBand(), report.UVIndex)

	return b.String()
}

// renderCategory builds one numbered five-line category block.
func renderCategory(category domain.Category, items []domain.Item, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "*%s:*\n", category.Title())

	for i, item := range items {
		if item.Placeholder {
			fmt.Fprintf(&b, "%d. _%s_", i+1, markdown.Escape(item.Title))
		} else {
			fmt.Fprintf(&b, "%d. %s — %s (%s)", i+1,
				markdown.Link(item.Title, item.URL),
				markdown.Escape(item.SourceName),
				RelativeAge(now.Sub(item.PublishedAt)))
		}

		if i < len(items)-1 {
			b.WriteByte('\n')
		}
	}

	return b.String()
}

// renderMarket builds the crypto market block from a snapshot and its
// commentary.
func renderMarket(snap domain.MarketSnapshot, commentary string) string {
	var b strings.Builder

	b.WriteString("*💰 CRYPTO MARKET:*\n")
	fmt.Fprintf(&b, "Market Cap: %s (%+.2f%%)\n", humanUSD(snap.TotalCapUSD), snap.CapChangePct)
	fmt.Fprintf(&b, "24h Volume: %s\n", humanUSD(snap.TotalVolumeUSD))

	if snap.FearGreedIndex >= 0 {
		fmt.Fprintf(&b, "Fear/Greed Index: %d/100\n", snap.FearGreedIndex)
	}

	if len(snap.Indexes) > 0 {
		b.WriteString("\n*🌐 Global Market Index:*\n")

		for _, idx := range snap.Indexes {
			fmt.Fprintf(&b, "%s (%s): %.2f (%+.2f%%) %s\n",
				idx.Symbol, idx.Region, idx.Value, idx.PctChange, trendArrow(idx.PctChange))
		}
	}

	if len(snap.BigCaps) > 0 {
		b.WriteString("\n*💎 Big Cap Crypto:*\n")

		for _, quote := range snap.BigCaps {
			fmt.Fprintf(&b, "%s: %s (%+.2f%%)\n", quote.Symbol, formatPrice(quote.Price), quote.PctChange24h)
		}
	}

	if len(snap.Gainers) > 0 {
		b.WriteString("\n*📈 Top Gainers:*\n")
		writeMovers(&b, snap.Gainers)
	}

	if len(snap.Losers) > 0 {
		b.WriteString("\n*📉 Top Losers:*\n")
		writeMovers(&b, snap.Losers)
	}

	if commentary != "" {
		b.WriteString("\n*🤖 AI Market Read:*\n")
		b.WriteString(markdown.Escape(commentary))
	}

	return strings.TrimRight(b.String(), "\n")
}

func trendArrow(pct float64) string {
	switch {
	case pct > 0:
		return "▲"
	case pct < 0:
		return "▼"
	default:
		return "→"
	}
}

func writeMovers(b *strings.Builder, quotes []domain.CoinQuote) {
	for i, quote := range quotes {
		fmt.Fprintf(b, "%d. %s %s (%+.2f%%)\n", i+1,
			markdown.Escape(quote.Name), formatPrice(quote.Price), quote.PctChange24h)
	}
}

// RenderCoinStats builds the on-demand /<symbol>stats reply.
func RenderCoinStats(stats domain.CoinStats) string {
	var b strings.Builder

	direction := "→"
	if stats.PctChange24h > 0 {
		direction = "▲"
	} else if stats.PctChange24h < 0 {
		direction = "▼"
	}

	fmt.Fprintf(&b, "*%s (%s)* %s (%+.2f%%) %s\n\n",
		markdown.Escape(stats.Name), stats.Symbol, formatPrice(stats.Price), stats.PctChange24h, direction)

	b.WriteString("*Changes:*\n")
	fmt.Fprintf(&b, "1h: %+.2f%% | 24h: %+.2f%% | 7d: %+.2f%% | 30d: %+.2f%%\n\n",
		stats.PctChange1h, stats.PctChange24h, stats.PctChange7d, stats.PctChange30d)

	b.WriteString("*Technicals:*\n")
	fmt.Fprintf(&b, "- RSI(14): %.1f (%s)\n", stats.RSI14, rsiText(stats.RSI14))
	fmt.Fprintf(&b, "- Support: %s\n", formatPrice(stats.Support))
	fmt.Fprintf(&b, "- Resistance: %s\n", formatPrice(stats.Resistance))
	fmt.Fprintf(&b, "- MA(30): %s\n", maText(stats.AboveMA30))
	fmt.Fprintf(&b, "- Volume: %s (%s)\n", humanUSD(stats.Volume24hUSD), volumeText(stats.Volume24hUSD))
	fmt.Fprintf(&b, "- Market Cap: %s\n\n", humanUSD(stats.MarketCapUSD))

	fmt.Fprintf(&b, "*Signal: %s*", signalBadge(stats.Signal))

	return b.String()
}

func rsiText(rsi float64) string {
	switch {
	case rsi >= 70:
		return "overbought, caution advised"
	case rsi <= 30:
		return "oversold, potential buying opportunity"
	case rsi >= 50:
		return "bullish momentum"
	default:
		return "bearish momentum"
	}
}

func maText(above bool) string {
	if above {
		return "price above MA, bullish signal"
	}

	return "price below MA, bearish signal"
}

func volumeText(volume float64) string {
	switch {
	case volume > 1e9:
		return "high, strong liquidity"
	case volume > 1e8:
		return "moderate, decent liquidity"
	case volume > 1e7:
		return "low, limited liquidity"
	default:
		return "very low, poor liquidity"
	}
}

func signalBadge(signal domain.Signal) string {
	switch signal {
	case domain.SignalBuy:
		return "🟢 BUY"
	case domain.SignalHold:
		return "🟠 HOLD"
	case domain.SignalWatch:
		return "🟡 WATCH"
	case domain.SignalSell:
		return "🔴 SELL"
	default:
		return string(signal)
	}
}

// RelativeAge renders a duration the way headlines show it: 5m ago, 3h ago.
func RelativeAge(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 30*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dmo ago", int(d.Hours()/(24*30)))
	}
}

// formatPrice picks decimals by magnitude so sub-cent coins stay readable.
func formatPrice(price float64) string {
	switch {
	case price >= 1:
		return fmt.Sprintf("$%.2f", price)
	case price >= 0.01:
		return fmt.Sprintf("$%.4f", price)
	case price >= 0.000001:
		return fmt.Sprintf("$%.6f", price)
	default:
		return fmt.Sprintf("$%.8f", price)
	}
}

// humanUSD renders large dollar amounts with T/B/M/K suffixes.
func humanUSD(v float64) string {
	switch {
	case v >= 1e12:
		return fmt.Sprintf("$%.2fT", v/1e12)
	case v >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case v >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	case v >= 1e3:
		return fmt.Sprintf("$%.2fK", v/1e3)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}
