package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/shanchoynoor/choynews-bot/internal/core/domain"
	coreerrors "github.com/shanchoynoor/choynews-bot/internal/core/errors"
)

const subscriberColumns = `chat_id, username, first_name, timezone, active, created_at,
	last_sent_morning, last_sent_noon, last_sent_evening, last_sent_night`

// UpsertSubscriber registers a chat or reactivates an existing registration.
// Identity fields are refreshed on every call; slot bookkeeping is preserved.
func (db *DB) UpsertSubscriber(ctx context.Context, sub domain.Subscriber) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO subscribers (chat_id, username, first_name, timezone, active)
		 VALUES ($1, $2, $3, $4, TRUE)
		 ON CONFLICT (chat_id) DO UPDATE SET
		   username = EXCLUDED.username,
		   first_name = EXCLUDED.first_name,
		   active = TRUE`,
		sub.ChatID, sub.Username, sub.FirstName, sub.Timezone)
	if err != nil {
		return fmt.Errorf("upsert subscriber: %w", err)
	}

	return nil
}

// SetSubscriberActive flips the active flag without touching anything else.
func (db *DB) SetSubscriberActive(ctx context.Context, chatID int64, active bool) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE subscribers SET active = $2 WHERE chat_id = $1`, chatID, active)
	if err != nil {
		return fmt.Errorf("set subscriber active: %w", err)
	}

	return nil
}

// SetSubscriberTimezone stores a validated IANA timezone name for the chat.
func (db *DB) SetSubscriberTimezone(ctx context.Context, chatID int64, timezone string) error {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE subscribers SET timezone = $2 WHERE chat_id = $1`, chatID, timezone)
	if err != nil {
		return fmt.Errorf("set subscriber timezone: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set subscriber timezone: chat %d: %w", chatID, coreerrors.ErrNotFound)
	}

	return nil
}

// GetSubscriber fetches one subscriber by chat id.
func (db *DB) GetSubscriber(ctx context.Context, chatID int64) (domain.Subscriber, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE chat_id = $1`, chatID)

	sub, err := scanSubscriber(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Subscriber{}, coreerrors.ErrNotFound
		}

		return domain.Subscriber{}, fmt.Errorf("get subscriber: %w", err)
	}

	return sub, nil
}

// ListActiveSubscribers returns all active registrations, used by the
// scheduler tick to compute due deliveries.
func (db *DB) ListActiveSubscribers(ctx context.Context) ([]domain.Subscriber, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+subscriberColumns+` FROM subscribers WHERE active ORDER BY chat_id`)
	if err != nil {
		return nil, fmt.Errorf("list active subscribers: %w", err)
	}
	defer rows.Close()

	var subs []domain.Subscriber

	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}

		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subscribers: %w", err)
	}

	return subs, nil
}

// MarkSlotSent records the local date of a successful slot delivery. Runs
// after the transport acknowledged the send, never before.
func (db *DB) MarkSlotSent(ctx context.Context, chatID int64, slot domain.Slot, localDate string) error {
	column, err := slotColumn(slot)
	if err != nil {
		return err
	}

	_, err = db.Pool.Exec(ctx,
		`UPDATE subscribers SET `+column+` = $2 WHERE chat_id = $1`,
		chatID, localDate)
	if err != nil {
		return fmt.Errorf("mark slot sent: %w", err)
	}

	return nil
}

// slotColumn maps a slot to its bookkeeping column. The column name is taken
// from a fixed set, never from input.
func slotColumn(slot domain.Slot) (string, error) {
	switch slot {
	case domain.SlotMorning:
		return "last_sent_morning", nil
	case domain.SlotNoon:
		return "last_sent_noon", nil
	case domain.SlotEvening:
		return "last_sent_evening", nil
	case domain.SlotNight:
		return "last_sent_night", nil
	default:
		return "", fmt.Errorf("unknown slot %q", slot)
	}
}

func scanSubscriber(row pgx.Row) (domain.Subscriber, error) {
	var (
		sub       domain.Subscriber
		createdAt time.Time
		lastSent  [4]*time.Time
	)

	err := row.Scan(&sub.ChatID, &sub.Username, &sub.FirstName, &sub.Timezone,
		&sub.Active, &createdAt,
		&lastSent[0], &lastSent[1], &lastSent[2], &lastSent[3])
	if err != nil {
		return domain.Subscriber{}, err
	}

	sub.CreatedAt = createdAt
	sub.LastSlotSent = make(map[domain.Slot]string, len(domain.Slots))

	for i, slot := range domain.Slots {
		if lastSent[i] != nil {
			sub.LastSlotSent[slot] = lastSent[i].Format("2006-01-02")
		}
	}

	return sub, nil
}
