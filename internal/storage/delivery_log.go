package db

import (
	"context"
	"fmt"
	"time"

	"github.com/shanchoynoor/choynews-bot/internal/core/domain"
)

// SeenFingerprints returns the subset of fingerprints already delivered to the
// chat. Used by the selection engine to drop repeats before ranking.
func (db *DB) SeenFingerprints(ctx context.Context, chatID int64, fingerprints []string) (map[string]struct{}, error) {
	seen := make(map[string]struct{}, len(fingerprints))

	if len(fingerprints) == 0 {
		return seen, nil
	}

	rows, err := db.Pool.Query(ctx,
		`SELECT fingerprint FROM delivery_log WHERE chat_id = $1 AND fingerprint = ANY($2)`,
		chatID, fingerprints)
	if err != nil {
		return nil, fmt.Errorf("query seen fingerprints: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, fmt.Errorf("scan fingerprint: %w", err)
		}

		seen[fp] = struct{}{}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate fingerprints: %w", err)
	}

	return seen, nil
}

// HasSeen reports whether a single fingerprint was already delivered to the chat.
func (db *DB) HasSeen(ctx context.Context, chatID int64, fingerprint string) (bool, error) {
	var exists bool

	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM delivery_log WHERE chat_id = $1 AND fingerprint = $2)`,
		chatID, fingerprint).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check delivery log: %w", err)
	}

	return exists, nil
}

// MarkSent records delivered items for a chat, with the category each one
// appeared under. The insert is idempotent: re-recording an already seen
// fingerprint is a no-op, so a retry after a partial failure cannot fail on
// conflicts.
func (db *DB) MarkSent(ctx context.Context, chatID int64, records []domain.DeliveryRecord, sentAt time.Time) error {
	if len(records) == 0 {
		return nil
	}

	fingerprints := make([]string, 0, len(records))
	categories := make([]string, 0, len(records))

	for _, record := range records {
		fingerprints = append(fingerprints, record.Fingerprint)
		categories = append(categories, string(record.Category))
	}

	_, err := db.Pool.Exec(ctx,
		`INSERT INTO delivery_log (chat_id, fingerprint, category, sent_at)
		 SELECT $1, t.fp, t.cat, $4 FROM unnest($2::text[], $3::text[]) AS t(fp, cat)
		 ON CONFLICT (chat_id, fingerprint) DO NOTHING`,
		chatID, fingerprints, categories, sentAt)
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}

	return nil
}

// PurgeDeliveryLogOlderThan removes delivery log rows older than the cutoff
// and returns the number of rows removed.
func (db *DB) PurgeDeliveryLogOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM delivery_log WHERE sent_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge delivery log: %w", err)
	}

	return tag.RowsAffected(), nil
}
