package db

import (
	"context"
	"fmt"
)

// AppendUserLog records one bot interaction in the append-only audit log.
// Failures are reported but callers treat them as non-fatal.
func (db *DB) AppendUserLog(ctx context.Context, chatID int64, username, firstName, command, messageType, location string) error {
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO user_logs (chat_id, username, first_name, command, message_type, location)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		chatID, username, firstName, command, messageType, location)
	if err != nil {
		return fmt.Errorf("append user log: %w", err)
	}

	return nil
}
