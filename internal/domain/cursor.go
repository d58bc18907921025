package domain

import "time"

// Cursor marks the last-seen position for one (source, channel) pair.
// Timestamp is the preferred position; MessageID is the legacy form kept for
// adapters whose upstream API paginates by opaque ids. Positions are
// monotonically non-decreasing per channel: a write that does not move the
// cursor strictly forward is a no-op.
type Cursor struct {
	Source    string
	Channel   string
	Timestamp time.Time // zero when unset
	MessageID string    // legacy, empty when unset
}

// HasTimestamp reports whether the cursor carries a timestamp position.
func (c Cursor) HasTimestamp() bool { return !c.Timestamp.IsZero() }
