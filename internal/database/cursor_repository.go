package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/newswire/aggregator/internal/domain"
)

// CursorRepository persists per-(source, channel) positions. Timestamp
// cursors are guarded at the SQL level: an upsert that would move the cursor
// backwards or sideways is a no-op, so a stale worker racing on the same
// channel can reprocess a recent window but never regress already-advanced
// state.
type CursorRepository struct {
	db *sqlx.DB
}

// NewCursorRepository creates a new cursor repository.
func NewCursorRepository(db *sqlx.DB) *CursorRepository {
	return &CursorRepository{db: db}
}

// Get returns the stored cursor for a channel. A channel that has never been
// advanced yields a zero cursor, not an error.
func (r *CursorRepository) Get(ctx context.Context, source, channel string) (domain.Cursor, error) {
	cursor := domain.Cursor{Source: source, Channel: channel}

	var (
		ts        sql.NullTime
		messageID sql.NullString
	)
	query := `SELECT ts, message_id FROM source_cursors WHERE source = $1 AND channel = $2`

	err := r.db.QueryRowContext(ctx, query, source, channel).Scan(&ts, &messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return cursor, nil
	}
	if err != nil {
		return cursor, fmt.Errorf("failed to load cursor: %w", err)
	}

	if ts.Valid {
		cursor.Timestamp = ts.Time
	}
	cursor.MessageID = messageID.String
	return cursor, nil
}

// Advance moves the timestamp cursor forward. The WHERE clause on the upsert
// enforces monotonicity: a timestamp not strictly greater than the stored one
// leaves the row untouched.
func (r *CursorRepository) Advance(ctx context.Context, source, channel string, ts time.Time) error {
	query := `
		INSERT INTO source_cursors (source, channel, ts, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (source, channel) DO UPDATE
		SET ts = EXCLUDED.ts, updated_at = NOW()
		WHERE source_cursors.ts IS NULL OR EXCLUDED.ts > source_cursors.ts
	`

	if _, err := r.db.ExecContext(ctx, query, source, channel, ts); err != nil {
		return fmt.Errorf("failed to advance cursor: %w", err)
	}
	return nil
}

// AdvanceMessageID moves the legacy message-id cursor forward. The upsert is
// guarded like the timestamp path: when both the stored and the incoming id
// are numeric, only a strictly greater value wins, so a stale worker racing
// on the same channel can never regress already-advanced state. Non-numeric
// ids cannot be ordered in SQL and overwrite unconditionally; the channel
// tracker's in-memory check still filters repeats within a process.
func (r *CursorRepository) AdvanceMessageID(ctx context.Context, source, channel, messageID string) error {
	query := `
		INSERT INTO source_cursors (source, channel, message_id, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (source, channel) DO UPDATE
		SET message_id = EXCLUDED.message_id, updated_at = NOW()
		WHERE source_cursors.message_id IS NULL
		   OR source_cursors.message_id !~ '^[0-9]+$'
		   OR EXCLUDED.message_id !~ '^[0-9]+$'
		   OR EXCLUDED.message_id::bigint > source_cursors.message_id::bigint
	`

	if _, err := r.db.ExecContext(ctx, query, source, channel, messageID); err != nil {
		return fmt.Errorf("failed to advance message-id cursor: %w", err)
	}
	return nil
}
