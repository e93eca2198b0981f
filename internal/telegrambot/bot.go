// Package telegrambot runs the interactive bot: long polling, command
// handling and the digest transport used by the scheduler.
package telegrambot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/shanchoynoor/choynews-bot/internal/core/domain"
	"github.com/shanchoynoor/choynews-bot/internal/digest"
	"github.com/shanchoynoor/choynews-bot/internal/platform/observability"
)

const (
	pollTimeout = 60

	// partDelay spaces multi-part sends to stay under Telegram flood limits.
	partDelay = 500 * time.Millisecond
)

// api is the slice of tgbotapi.BotAPI the bot uses, split out so handlers
// are testable without the network.
type api interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Store is the subscriber and delivery bookkeeping the bot needs.
type Store interface {
	UpsertSubscriber(ctx context.Context, sub domain.Subscriber) error
	SetSubscriberActive(ctx context.Context, chatID int64, active bool) error
	SetSubscriberTimezone(ctx context.Context, chatID int64, timezone string) error
	GetSubscriber(ctx context.Context, chatID int64) (domain.Subscriber, error)
	MarkSent(ctx context.Context, chatID int64, records []domain.DeliveryRecord, sentAt time.Time) error
	AppendUserLog(ctx context.Context, chatID int64, username, firstName, command, messageType, location string) error
}

// CoinDetailer resolves a coin symbol into technical stats.
type CoinDetailer interface {
	CoinDetail(ctx context.Context, symbol string) (domain.CoinStats, error)
}

type Bot struct {
	api       api
	store     Store
	assembler *digest.Assembler
	coins     CoinDetailer
	logger    *zerolog.Logger

	defaultTimezone string
}

func New(token string, store Store, assembler *digest.Assembler, coins CoinDetailer, defaultTimezone string, logger *zerolog.Logger) (*Bot, error) {
	botAPI, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram auth: %w", err)
	}

	logger.Info().Str("username", botAPI.Self.UserName).Msg("telegram bot authorized")

	return &Bot{
		api:             botAPI,
		store:           store,
		assembler:       assembler,
		coins:           coins,
		logger:          logger,
		defaultTimezone: defaultTimezone,
	}, nil
}

// Run consumes updates until the context is canceled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout

	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()

			return ctx.Err()
		case update := <-updates:
			if update.Message == nil {
				continue
			}

			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		return
	}

	command := msg.Command()

	b.logger.Info().
		Str("command", command).
		Int64("chat_id", msg.Chat.ID).
		Msg("handling command")

	observability.CommandsHandled.WithLabelValues(command).Inc()

	if err := b.store.AppendUserLog(ctx, msg.Chat.ID, userName(msg), firstName(msg), command, "command", messageLocation(msg)); err != nil {
		b.logger.Warn().Err(err).Msg("user log append failed")
	}

	b.dispatch(ctx, msg, command)
}

// SendDigest delivers all parts of a composed digest to one chat, in order.
// The error of the first failed part is returned mapped to the transport
// error taxonomy.
func (b *Bot) SendDigest(ctx context.Context, chatID int64, parts []string) error {
	for i, part := range parts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("send digest: %w", err)
		}

		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeMarkdown
		msg.DisableWebPagePreview = true

		if _, err := b.api.Send(msg); err != nil {
			return fmt.Errorf("send part %d to chat %d: %w", i+1, chatID, mapSendError(err))
		}

		if len(parts) > 1 && i < len(parts)-1 {
			time.Sleep(partDelay)
		}
	}

	return nil
}

// reply sends a single Markdown message, logging instead of propagating
// failures.
func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.DisableWebPagePreview = true

	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("reply failed")
	}
}

func (b *Bot) replyParts(ctx context.Context, chatID int64, parts []string) error {
	return b.SendDigest(ctx, chatID, parts)
}

func userName(msg *tgbotapi.Message) string {
	if msg.From == nil {
		return ""
	}

	return msg.From.UserName
}

func firstName(msg *tgbotapi.Message) string {
	if msg.From == nil {
		return ""
	}

	return msg.From.FirstName
}

// messageLocation renders an attached location as "lat,lon" for the audit
// log; most command messages carry none.
func messageLocation(msg *tgbotapi.Message) string {
	if msg.Location == nil {
		return ""
	}

	return fmt.Sprintf("%.5f,%.5f", msg.Location.Latitude, msg.Location.Longitude)
}

var _ digest.Transport = (*Bot)(nil)
