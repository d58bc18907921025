// Package engine implements the extraction engine: one raw message in, one
// news item or nothing out. All per-message failure handling lives here or in
// the batch layer above; a malformed message never aborts a batch.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/newswire/aggregator/internal/domain"
	"github.com/newswire/aggregator/internal/extractor"
	"github.com/newswire/aggregator/internal/logger"
)

// Embedder computes a fixed-length vector for raw text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Scorer computes the 0-10 similarity of an embedding against recently
// stored items.
type Scorer interface {
	Score(ctx context.Context, embedding []float64) (int, *domain.StoredEmbedding, error)
}

// Prefilter optionally skips content before the extractor call.
type Prefilter interface {
	Match(content string) bool
}

// Engine turns raw messages into news items: extract, validate, embed, score.
// It never writes to the store; persistence is the orchestrator's job.
type Engine struct {
	extractor extractor.Extractor
	embedder  Embedder
	scorer    Scorer
	prefilter Prefilter
	logger    logger.Logger
}

// Deps holds engine dependencies. Embedder, Scorer and Prefilter are
// optional; a nil Embedder disables the dedup signal entirely.
type Deps struct {
	Extractor extractor.Extractor
	Embedder  Embedder
	Scorer    Scorer
	Prefilter Prefilter
	Logger    logger.Logger
}

// New creates an extraction engine.
func New(deps Deps) *Engine {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		extractor: deps.Extractor,
		embedder:  deps.Embedder,
		scorer:    deps.Scorer,
		prefilter: deps.Prefilter,
		logger:    log,
	}
}

// Process runs one message through the pipeline. It returns (nil, nil) for
// messages that are not news (including schema-invalid extractor output) and
// an error only for faults the batch layer should record, such as extractor
// transport failures. Embedding or scoring failures degrade to an item with
// no dedup signal.
func (e *Engine) Process(ctx context.Context, msg domain.RawMessage) (*domain.NewsItem, error) {
	content := norm.NFC.String(msg.Content)

	if e.prefilter != nil && e.prefilter.Match(content) {
		e.logger.Debug("message skipped by prefilter",
			logger.String("source", msg.Source),
			logger.String("source_id", msg.SourceID),
		)
		return nil, nil
	}

	result, err := e.extractor.Extract(ctx, extractor.Request{
		Source:    msg.Source,
		Timestamp: msg.Timestamp,
		Content:   content,
	})
	if err != nil {
		if errors.Is(err, extractor.ErrInvalidResponse) {
			e.logger.Warn("extractor output rejected, treating as non-news",
				logger.String("source", msg.Source),
				logger.String("source_id", msg.SourceID),
				logger.Error(err),
			)
			return nil, nil
		}
		return nil, fmt.Errorf("extract message %s/%s: %w", msg.Source, msg.SourceID, err)
	}

	if !result.IsValidNews {
		e.logger.Debug("message is not valid news",
			logger.String("source", msg.Source),
			logger.String("source_id", msg.SourceID),
		)
		return nil, nil
	}

	embedding, score := e.embedAndScore(ctx, msg, content)

	item := e.buildItem(msg, result, content, embedding, score)
	e.logger.Info("extracted news item",
		logger.String("title", item.Title),
		logger.String("source", item.Source),
		logger.Int("similarity_score", item.SimilarityScore),
	)
	return item, nil
}

// embedAndScore computes the dedup signal. Any failure here is absorbed: an
// embedding or index outage degrades to "no dedup signal", not lost news.
func (e *Engine) embedAndScore(ctx context.Context, msg domain.RawMessage, content string) ([]float64, int) {
	if e.embedder == nil {
		return nil, domain.SimilarityMin
	}

	embedding, err := e.embedder.Embed(ctx, content)
	if err != nil {
		e.logger.Warn("embedding failed, storing without dedup signal",
			logger.String("source", msg.Source),
			logger.String("source_id", msg.SourceID),
			logger.Error(err),
		)
		return nil, domain.SimilarityMin
	}

	if e.scorer == nil {
		return embedding, domain.SimilarityMin
	}

	score, nearest, err := e.scorer.Score(ctx, embedding)
	if err != nil {
		e.logger.Warn("similarity scoring failed, storing with default score",
			logger.String("source", msg.Source),
			logger.String("source_id", msg.SourceID),
			logger.Error(err),
		)
		return embedding, domain.SimilarityMin
	}
	if nearest != nil {
		e.logger.Debug("nearest stored item",
			logger.Int64("nearest_id", nearest.ID),
			logger.String("nearest_title", nearest.Title),
			logger.Int("score", score),
		)
	}
	return embedding, score
}

// buildItem assembles the news item from the message and extraction result,
// applying defaults. The content fallback is the normalized raw content, the
// same string the extractor and embedder saw. An item whose content is still
// empty after fallbacks proceeds with an empty string; that matches
// long-standing behavior and is accepted.
func (e *Engine) buildItem(msg domain.RawMessage, result *domain.ExtractionResult, rawContent string, embedding []float64, score int) *domain.NewsItem {
	title := result.Title
	if title == "" {
		title = domain.DefaultTitle
	}
	content := result.Content
	if content == "" {
		content = rawContent
	}
	country := result.Country
	if country == "" {
		country = domain.DefaultCountry
	}

	categories := result.Categories
	if categories == nil {
		categories = []string{}
	}
	personNames := result.PersonNames
	if personNames == nil {
		personNames = []string{}
	}

	return &domain.NewsItem{
		Title:           title,
		Content:         content,
		Source:          msg.Source,
		SourceID:        msg.SourceID,
		SourceURL:       sourceURLFromMetadata(msg.Metadata),
		Author:          msg.Author,
		Country:         country,
		City:            result.City,
		Timestamp:       msg.Timestamp,
		CreatedAt:       time.Now().UTC(),
		IsValidNews:     true,
		SimilarityScore: score,
		Embedding:       embedding,
		Categories:      categories,
		PersonNames:     personNames,
		Metadata:        msg.Metadata,
	}
}

// sourceURLFromMetadata lifts the original post URL out of adapter metadata.
func sourceURLFromMetadata(metadata map[string]any) string {
	for _, key := range []string{domain.MetaTweetURL, domain.MetaPermalink, domain.MetaPostURL} {
		if v, ok := metadata[key]; ok {
			if url, ok := v.(string); ok && url != "" {
				return url
			}
		}
	}
	return ""
}
