package telegrambot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/shanchoynoor/choynews-bot/internal/core/domain"
	coreerrors "github.com/shanchoynoor/choynews-bot/internal/core/errors"
	"github.com/shanchoynoor/choynews-bot/internal/digest"
	"github.com/shanchoynoor/choynews-bot/internal/platform/markdown"
)

const helpText = `*ChoyNews Bot*

/news - full digest right now
/subscribe - digests at 8am, 1pm, 7pm and 11pm your time
/unsubscribe - stop scheduled digests
/timezone <IANA zone> - e.g. /timezone Asia/Dhaka
/local /global /tech /sports /finance - one category
/weather - current conditions
/cryptostats - crypto market overview
/btcstats - detail for any coin, e.g. /ethstats
/status - your subscription`

const coinStatsSuffix = "stats"

var categoryCommands = map[string]domain.Category{
	"local":   domain.CategoryLocal,
	"global":  domain.CategoryGlobal,
	"tech":    domain.CategoryTech,
	"sports":  domain.CategorySports,
	"finance": domain.CategoryFinanceCrypto,
}

func (b *Bot) dispatch(ctx context.Context, msg *tgbotapi.Message, command string) {
	if category, ok := categoryCommands[command]; ok {
		b.handleCategory(ctx, msg, category)

		return
	}

	switch command {
	case "start":
		b.handleStart(ctx, msg)
	case "help":
		b.reply(msg.Chat.ID, helpText)
	case "news":
		b.handleNews(ctx, msg)
	case "subscribe":
		b.handleSubscribe(ctx, msg)
	case "unsubscribe":
		b.handleUnsubscribe(ctx, msg)
	case "timezone":
		b.handleTimezone(ctx, msg)
	case "weather":
		b.handleWeather(ctx, msg)
	case "cryptostats":
		b.handleMarket(ctx, msg)
	case "status":
		b.handleStatus(ctx, msg)
	default:
		if symbol, ok := strings.CutSuffix(command, coinStatsSuffix); ok && symbol != "" {
			b.handleCoinStats(ctx, msg, symbol)

			return
		}

		b.reply(msg.Chat.ID, "Unknown command. Try /help.")
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	if err := b.store.UpsertSubscriber(ctx, b.subscriberFromMessage(msg)); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("upsert subscriber failed")
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")

		return
	}

	b.reply(msg.Chat.ID, "Welcome! You now get news digests at 8am, 1pm, 7pm and 11pm.\n\n"+helpText)
}

func (b *Bot) handleSubscribe(ctx context.Context, msg *tgbotapi.Message) {
	if err := b.store.UpsertSubscriber(ctx, b.subscriberFromMessage(msg)); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("upsert subscriber failed")
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")

		return
	}

	b.reply(msg.Chat.ID, "Subscribed. Digests arrive at 8am, 1pm, 7pm and 11pm your time. Set your zone with /timezone.")
}

func (b *Bot) handleUnsubscribe(ctx context.Context, msg *tgbotapi.Message) {
	if err := b.store.SetSubscriberActive(ctx, msg.Chat.ID, false); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("deactivate failed")
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")

		return
	}

	b.reply(msg.Chat.ID, "Unsubscribed. Send /subscribe any time to resume.")
}

func (b *Bot) handleTimezone(ctx context.Context, msg *tgbotapi.Message) {
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		b.reply(msg.Chat.ID, "Usage: /timezone Asia/Dhaka")

		return
	}

	if _, err := time.LoadLocation(arg); err != nil {
		b.reply(msg.Chat.ID, fmt.Sprintf("Unknown timezone %q. Use an IANA name like Europe/London.", arg))

		return
	}

	if err := b.store.SetSubscriberTimezone(ctx, msg.Chat.ID, arg); err != nil {
		if coreerrors.Is(err, coreerrors.ErrNotFound) {
			b.reply(msg.Chat.ID, "Subscribe first with /subscribe.")

			return
		}

		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("set timezone failed")
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")

		return
	}

	b.reply(msg.Chat.ID, "Timezone set to "+markdown.Escape(arg)+".")
}

func (b *Bot) handleNews(ctx context.Context, msg *tgbotapi.Message) {
	sub := b.resolveSubscriber(ctx, msg)

	composed, err := b.assembler.ComposeOnDemand(ctx, sub, time.Now().UTC())
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("on-demand digest failed")
		b.reply(msg.Chat.ID, "Could not build the digest right now, please try again shortly.")

		return
	}

	b.deliver(ctx, msg.Chat.ID, composed)
}

func (b *Bot) handleCategory(ctx context.Context, msg *tgbotapi.Message, category domain.Category) {
	sub := b.resolveSubscriber(ctx, msg)

	composed, err := b.assembler.ComposeCategory(ctx, sub, category, time.Now().UTC())
	if err != nil {
		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Str("category", string(category)).Msg("category digest failed")
		b.reply(msg.Chat.ID, "Could not build that section right now, please try again shortly.")

		return
	}

	b.deliver(ctx, msg.Chat.ID, composed)
}

// deliver sends a composed digest and records its delivery records only
// after every part went through.
func (b *Bot) deliver(ctx context.Context, chatID int64, composed digest.Digest) {
	if err := b.replyParts(ctx, chatID, composed.Parts); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("digest send failed")

		return
	}

	if len(composed.Records) == 0 {
		return
	}

	if err := b.store.MarkSent(ctx, chatID, composed.Records, time.Now().UTC()); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("mark sent failed")
	}
}

func (b *Bot) handleWeather(ctx context.Context, msg *tgbotapi.Message) {
	block := b.assembler.WeatherBlock(ctx)
	if block == "" {
		b.reply(msg.Chat.ID, "Weather is not available right now.")

		return
	}

	b.reply(msg.Chat.ID, block)
}

func (b *Bot) handleMarket(ctx context.Context, msg *tgbotapi.Message) {
	b.reply(msg.Chat.ID, b.assembler.MarketBlock(ctx))
}

func (b *Bot) handleCoinStats(ctx context.Context, msg *tgbotapi.Message, symbol string) {
	stats, err := b.coins.CoinDetail(ctx, symbol)
	if err != nil {
		if coreerrors.Is(err, coreerrors.ErrCoinNotFound) {
			b.reply(msg.Chat.ID, fmt.Sprintf("No coin found for %q.", symbol))

			return
		}

		b.logger.Error().Err(err).Str("symbol", symbol).Msg("coin detail failed")
		b.reply(msg.Chat.ID, "Market data is unavailable right now, please try again shortly.")

		return
	}

	b.reply(msg.Chat.ID, digest.RenderCoinStats(stats))
}

func (b *Bot) handleStatus(ctx context.Context, msg *tgbotapi.Message) {
	sub, err := b.store.GetSubscriber(ctx, msg.Chat.ID)
	if err != nil {
		if coreerrors.Is(err, coreerrors.ErrNotFound) {
			b.reply(msg.Chat.ID, "You are not subscribed. Send /subscribe to get scheduled digests.")

			return
		}

		b.logger.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("get subscriber failed")
		b.reply(msg.Chat.ID, "Something went wrong, please try again.")

		return
	}

	state := "inactive"
	if sub.Active {
		state = "active"
	}

	var lines []string
	lines = append(lines,
		"*Subscription:* "+state,
		"*Timezone:* "+markdown.Escape(sub.Timezone))

	for _, slot := range domain.Slots {
		if date, ok := sub.LastSlotSent[slot]; ok && date != "" {
			lines = append(lines, fmt.Sprintf("*Last %s digest:* %s", strings.ToLower(slot.Label()), date))
		}
	}

	b.reply(msg.Chat.ID, strings.Join(lines, "\n"))
}

// resolveSubscriber loads the stored subscriber, falling back to an ephemeral
// one built from the message so on-demand commands work without /subscribe.
func (b *Bot) resolveSubscriber(ctx context.Context, msg *tgbotapi.Message) domain.Subscriber {
	sub, err := b.store.GetSubscriber(ctx, msg.Chat.ID)
	if err == nil {
		return sub
	}

	if !coreerrors.Is(err, coreerrors.ErrNotFound) {
		b.logger.Warn().Err(err).Int64("chat_id", msg.Chat.ID).Msg("get subscriber failed")
	}

	return b.subscriberFromMessage(msg)
}

func (b *Bot) subscriberFromMessage(msg *tgbotapi.Message) domain.Subscriber {
	return domain.Subscriber{
		ChatID:    msg.Chat.ID,
		Username:  userName(msg),
		FirstName: firstName(msg),
		Timezone:  b.defaultTimezone,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
}
