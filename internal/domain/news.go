package domain

import "time"

// DefaultCountry is used when the extractor does not identify a country.
const DefaultCountry = "Other"

// DefaultTitle is used when the extractor does not produce a title.
const DefaultTitle = "Untitled"

// Similarity score bounds. The score is an integer on a 0-10 scale: 0 means
// no comparable prior item (or no dedup signal available), 10 means a
// near-duplicate of something already stored. The score is advisory metadata
// for downstream consumers; it never blocks storage.
const (
	SimilarityMin = 0
	SimilarityMax = 10
)

// NewsItem is the persisted unit produced by the extraction engine from one
// RawMessage and one extraction result. (Source, SourceID) is the natural key:
// the store holds at most one row per pair and a second insert is a no-op.
// Items are never mutated after persistence except the ID backfill on insert.
type NewsItem struct {
	ID              int64          `json:"id,omitempty"`
	Title           string         `json:"title"`
	Content         string         `json:"content"`
	Source          string         `json:"source"`
	SourceID        string         `json:"source_id"`
	SourceURL       string         `json:"source_url,omitempty"`
	Author          string         `json:"author,omitempty"`
	Country         string         `json:"country,omitempty"`
	City            string         `json:"city,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
	CreatedAt       time.Time      `json:"created_at"`
	IsValidNews     bool           `json:"is_valid_news"`
	SimilarityScore int            `json:"similarity_score"`
	Embedding       []float64      `json:"embedding,omitempty"`
	Categories      []string       `json:"categories"`
	PersonNames     []string       `json:"person_names"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// StoredEmbedding is a lightweight reference to a persisted item's embedding,
// used by the dedup scorer for nearest-neighbor comparison.
type StoredEmbedding struct {
	ID        int64
	Title     string
	Embedding []float64
}
