package database

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReturnsZeroCursorWhenUnset(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCursorRepository(db)

	mock.ExpectQuery(`SELECT ts, message_id FROM source_cursors`).
		WithArgs("telegram", "citynews").
		WillReturnRows(sqlmock.NewRows([]string{"ts", "message_id"}))

	cursor, err := repo.Get(context.Background(), "telegram", "citynews")
	require.NoError(t, err)
	assert.Equal(t, "telegram", cursor.Source)
	assert.True(t, cursor.Timestamp.IsZero())
	assert.Empty(t, cursor.MessageID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetReturnsStoredPosition(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCursorRepository(db)

	ts := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT ts, message_id FROM source_cursors`).
		WithArgs("twitter", "newsdesk").
		WillReturnRows(sqlmock.NewRows([]string{"ts", "message_id"}).AddRow(ts, "105"))

	cursor, err := repo.Get(context.Background(), "twitter", "newsdesk")
	require.NoError(t, err)
	assert.Equal(t, ts, cursor.Timestamp)
	assert.Equal(t, "105", cursor.MessageID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceUsesGuardedUpsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCursorRepository(db)

	ts := time.Date(2025, 3, 1, 11, 0, 0, 0, time.UTC)
	mock.ExpectExec(`(?s)ON CONFLICT \(source, channel\) DO UPDATE.*WHERE source_cursors.ts IS NULL OR EXCLUDED.ts > source_cursors.ts`).
		WithArgs("telegram", "citynews", ts).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Advance(context.Background(), "telegram", "citynews", ts))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdvanceMessageIDUsesGuardedUpsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewCursorRepository(db)

	// The guard must compare numeric ids in SQL so a stale worker process
	// cannot write an older id over an already-advanced one.
	mock.ExpectExec(`(?s)ON CONFLICT \(source, channel\) DO UPDATE.*SET message_id = EXCLUDED.message_id.*WHERE source_cursors.message_id IS NULL.*EXCLUDED.message_id::bigint > source_cursors.message_id::bigint`).
		WithArgs("twitter", "newsdesk", "205").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AdvanceMessageID(context.Background(), "twitter", "newsdesk", "205"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
