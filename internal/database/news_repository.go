package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/newswire/aggregator/internal/domain"
)

// NewsRepository handles persistence of news items. The news_items table
// carries a unique index on (source, source_id); Insert relies on it for
// idempotency, so concurrent workers storing the same message cannot produce
// duplicate rows.
type NewsRepository struct {
	db *sqlx.DB
}

// NewNewsRepository creates a new news repository.
func NewNewsRepository(db *sqlx.DB) *NewsRepository {
	return &NewsRepository{db: db}
}

// Exists reports whether an item with the given natural key is already stored.
func (r *NewsRepository) Exists(ctx context.Context, source, sourceID string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM news_items WHERE source = $1 AND source_id = $2)`

	if err := r.db.QueryRowContext(ctx, query, source, sourceID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check news item existence: %w", err)
	}
	return exists, nil
}

// Insert stores a news item and backfills item.ID. Inserting an already
// stored (source, source_id) pair is a no-op, not an error; item.ID is left
// zero in that case.
func (r *NewsRepository) Insert(ctx context.Context, item *domain.NewsItem) error {
	metadata, err := json.Marshal(item.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	var embedding any
	if len(item.Embedding) > 0 {
		embedding = pq.Array(item.Embedding)
	}

	query := `
		INSERT INTO news_items (
			title, content, source, source_id, source_url, author,
			country, city, timestamp, created_at, is_valid_news,
			similarity_score, embedding, categories, person_names, metadata
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (source, source_id) DO NOTHING
		RETURNING id
	`

	err = r.db.QueryRowContext(
		ctx,
		query,
		item.Title,
		item.Content,
		item.Source,
		item.SourceID,
		nullString(item.SourceURL),
		nullString(item.Author),
		item.Country,
		nullString(item.City),
		item.Timestamp,
		item.CreatedAt,
		item.IsValidNews,
		item.SimilarityScore,
		embedding,
		pq.Array(item.Categories),
		pq.Array(item.PersonNames),
		metadata,
	).Scan(&item.ID)

	if errors.Is(err, sql.ErrNoRows) {
		// Conflict path: the row is already there.
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to insert news item: %w", err)
	}
	return nil
}

// RecentEmbeddings returns the embeddings of items created after since, newest
// first, capped at limit. Items stored without an embedding are skipped.
func (r *NewsRepository) RecentEmbeddings(ctx context.Context, since time.Time, limit int) ([]domain.StoredEmbedding, error) {
	query := `
		SELECT id, title, embedding
		FROM news_items
		WHERE embedding IS NOT NULL AND created_at > $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, since, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent embeddings: %w", err)
	}
	defer rows.Close()

	var out []domain.StoredEmbedding
	for rows.Next() {
		var ref domain.StoredEmbedding
		if err := rows.Scan(&ref.ID, &ref.Title, pq.Array(&ref.Embedding)); err != nil {
			return nil, fmt.Errorf("failed to scan embedding row: %w", err)
		}
		out = append(out, ref)
	}
	return out, rows.Err()
}

// Query returns up to limit stored items, newest first by created_at.
func (r *NewsRepository) Query(ctx context.Context, limit int) ([]domain.NewsItem, error) {
	query := `
		SELECT id, title, content, source, source_id, source_url, author,
		       country, city, timestamp, created_at, is_valid_news,
		       similarity_score, categories, person_names, metadata
		FROM news_items
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query news items: %w", err)
	}
	defer rows.Close()

	var items []domain.NewsItem
	for rows.Next() {
		var (
			item      domain.NewsItem
			sourceURL sql.NullString
			author    sql.NullString
			city      sql.NullString
			metadata  []byte
		)
		if err := rows.Scan(
			&item.ID,
			&item.Title,
			&item.Content,
			&item.Source,
			&item.SourceID,
			&sourceURL,
			&author,
			&item.Country,
			&city,
			&item.Timestamp,
			&item.CreatedAt,
			&item.IsValidNews,
			&item.SimilarityScore,
			pq.Array(&item.Categories),
			pq.Array(&item.PersonNames),
			&metadata,
		); err != nil {
			return nil, fmt.Errorf("failed to scan news item: %w", err)
		}

		item.SourceURL = sourceURL.String
		item.Author = author.String
		item.City = city.String
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &item.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
