package source

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/newswire/aggregator/internal/domain"
)

// ChannelTracker is the per-channel cursor state machine every adapter
// shares: load once at startup, advance in memory only on strictly greater
// positions, persist write-through after each advance. A crash therefore
// loses at most the last unpersisted advance, and a second worker racing on
// the same channel can reprocess a recent window but never move a cursor
// backwards.
type ChannelTracker struct {
	source  string
	channel string
	store   CursorStore

	loaded bool
	cursor domain.Cursor
}

// NewChannelTracker creates a tracker for one (source, channel) pair.
func NewChannelTracker(src, channel string, store CursorStore) *ChannelTracker {
	return &ChannelTracker{source: src, channel: channel, store: store}
}

// Load reads the stored cursor. Timestamp is preferred; a legacy message-id
// position is kept for adapters that paginate by id. Absent rows default to
// the zero cursor. Load is idempotent.
func (t *ChannelTracker) Load(ctx context.Context) error {
	if t.loaded {
		return nil
	}
	cursor, err := t.store.Get(ctx, t.source, t.channel)
	if err != nil {
		return fmt.Errorf("load cursor for %s/%s: %w", t.source, t.channel, err)
	}
	t.cursor = cursor
	t.loaded = true
	return nil
}

// Since returns the timestamp lower bound for the next fetch.
func (t *ChannelTracker) Since() time.Time { return t.cursor.Timestamp }

// LastMessageID returns the legacy id position, empty when unset.
func (t *ChannelTracker) LastMessageID() string { return t.cursor.MessageID }

// Newer reports whether ts is strictly past the current position.
func (t *ChannelTracker) Newer(ts time.Time) bool {
	return ts.After(t.cursor.Timestamp)
}

// Advance moves the timestamp position forward and persists it. A position
// not strictly greater than the current one is a no-op, guarding against
// out-of-order adapter batches.
func (t *ChannelTracker) Advance(ctx context.Context, ts time.Time) error {
	if !t.Newer(ts) {
		return nil
	}
	t.cursor.Timestamp = ts
	if err := t.store.Advance(ctx, t.source, t.channel, ts); err != nil {
		return fmt.Errorf("persist cursor for %s/%s: %w", t.source, t.channel, err)
	}
	return nil
}

// AdvanceMessageID moves the legacy id position forward and persists it. Ids
// compare numerically when both sides parse as integers, falling back to
// string inequality for opaque ids.
func (t *ChannelTracker) AdvanceMessageID(ctx context.Context, messageID string) error {
	if !messageIDNewer(t.cursor.MessageID, messageID) {
		return nil
	}
	t.cursor.MessageID = messageID
	if err := t.store.AdvanceMessageID(ctx, t.source, t.channel, messageID); err != nil {
		return fmt.Errorf("persist cursor for %s/%s: %w", t.source, t.channel, err)
	}
	return nil
}

func messageIDNewer(current, candidate string) bool {
	if candidate == "" {
		return false
	}
	if current == "" {
		return true
	}
	cur, err1 := strconv.ParseInt(current, 10, 64)
	cand, err2 := strconv.ParseInt(candidate, 10, 64)
	if err1 == nil && err2 == nil {
		return cand > cur
	}
	return candidate != current
}
