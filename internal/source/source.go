// Package source defines the adapter contract for polled platforms and the
// shared cursor tracking used by every adapter.
package source

import (
	"context"
	"time"

	"github.com/newswire/aggregator/internal/domain"
)

// Source is one polled platform. Collect returns messages strictly newer than
// the stored cursor, in ascending temporal order, bounded by the adapter's
// per-cycle fetch cap. Adapters advance their cursors only for messages they
// actually return.
type Source interface {
	Name() string
	Collect(ctx context.Context) ([]domain.RawMessage, error)
}

// CursorStore persists per-(source, channel) positions. Implemented by
// database.CursorRepository.
type CursorStore interface {
	Get(ctx context.Context, source, channel string) (domain.Cursor, error)
	Advance(ctx context.Context, source, channel string, ts time.Time) error
	AdvanceMessageID(ctx context.Context, source, channel, messageID string) error
}
