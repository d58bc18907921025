package domain

import "time"

// Source name constants for the supported platforms.
const (
	SourceTelegram = "telegram"
	SourceTwitter  = "twitter"
	SourceFacebook = "facebook"
)

// RawMessage is one polled item from a source adapter before any processing.
// Adapters construct it once; the extraction engine consumes it exactly once.
// It is never persisted directly.
type RawMessage struct {
	Source    string         `json:"source"`
	SourceID  string         `json:"source_id"`
	Content   string         `json:"content"`
	Author    string         `json:"author,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Metadata keys adapters use for the original post URL. The engine lifts the
// first one present into NewsItem.SourceURL.
const (
	MetaTweetURL  = "tweet_url"
	MetaPermalink = "permalink"
	MetaPostURL   = "post_url"
)
