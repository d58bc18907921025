// Package dedup scores new content against recently stored items by cosine
// similarity over embeddings. The score is advisory metadata on a 0-10
// integer scale; it never gates storage.
package dedup

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/newswire/aggregator/internal/domain"
	"github.com/newswire/aggregator/internal/logger"
)

// Index supplies the embeddings of recently stored items. Implemented by
// database.NewsRepository.
type Index interface {
	RecentEmbeddings(ctx context.Context, since time.Time, limit int) ([]domain.StoredEmbedding, error)
}

// Scorer computes similarity scores against a recency-windowed slice of the
// stored corpus. Windowing bounds the per-message cost; an unbounded
// full-corpus comparison is deliberately not attempted.
type Scorer struct {
	index  Index
	window time.Duration
	limit  int
	logger logger.Logger
}

// NewScorer creates a scorer over the given index.
func NewScorer(index Index, window time.Duration, limit int, log logger.Logger) *Scorer {
	return &Scorer{index: index, window: window, limit: limit, logger: log}
}

// Score returns the 0-10 similarity of embedding against the windowed corpus
// and a reference to the nearest stored item. An empty window or empty input
// yields (0, nil, nil).
func (s *Scorer) Score(ctx context.Context, embedding []float64) (int, *domain.StoredEmbedding, error) {
	if len(embedding) == 0 {
		return domain.SimilarityMin, nil, nil
	}

	since := time.Now().Add(-s.window)
	stored, err := s.index.RecentEmbeddings(ctx, since, s.limit)
	if err != nil {
		return domain.SimilarityMin, nil, fmt.Errorf("load recent embeddings: %w", err)
	}
	if len(stored) == 0 {
		return domain.SimilarityMin, nil, nil
	}

	best := -1.0
	var nearest *domain.StoredEmbedding
	for i := range stored {
		sim := cosineSimilarity(embedding, stored[i].Embedding)
		if sim > best {
			best = sim
			nearest = &stored[i]
		}
	}

	score := scaleSimilarity(best)
	s.logger.Debug("similarity scored",
		logger.Int("score", score),
		logger.Int("compared", len(stored)),
	)
	return score, nearest, nil
}

// cosineSimilarity returns the cosine of the angle between a and b, or 0 for
// mismatched lengths or zero vectors.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// scaleSimilarity maps cosine similarity to the persisted 0-10 integer scale.
// Negative similarity clamps to 0.
func scaleSimilarity(sim float64) int {
	if sim <= 0 {
		return domain.SimilarityMin
	}
	score := int(math.Round(sim * float64(domain.SimilarityMax)))
	if score > domain.SimilarityMax {
		score = domain.SimilarityMax
	}
	return score
}
