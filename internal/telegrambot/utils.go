package telegrambot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	coreerrors "github.com/shanchoynoor/choynews-bot/internal/core/errors"
	"github.com/shanchoynoor/choynews-bot/internal/platform/observability"
)

// mapSendError classifies a Telegram send failure: flood control is
// retryable after the pause Telegram names, blocked or missing chats are
// permanent, anything else is transient.
func mapSendError(err error) error {
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%v: %w", err, coreerrors.ErrUpstreamTransient)
	}

	switch {
	case apiErr.RetryAfter > 0 || apiErr.Code == 429:
		observability.TransportRateLimited.Inc()

		return fmt.Errorf("%s: %w", apiErr.Message, &coreerrors.RateLimitError{
			RetryAfter: time.Duration(apiErr.RetryAfter) * time.Second,
		})
	case apiErr.Code == 403:
		return fmt.Errorf("%s: %w", apiErr.Message, coreerrors.ErrTransportPermanent)
	case apiErr.Code == 400 && isPermanentBadRequest(apiErr.Message):
		return fmt.Errorf("%s: %w", apiErr.Message, coreerrors.ErrTransportPermanent)
	default:
		return fmt.Errorf("%s: %w", apiErr.Message, coreerrors.ErrUpstreamTransient)
	}
}

func isPermanentBadRequest(message string) bool {
	lowered := strings.ToLower(message)

	return strings.Contains(lowered, "chat not found") ||
		strings.Contains(lowered, "user is deactivated") ||
		strings.Contains(lowered, "bot was kicked")
}
