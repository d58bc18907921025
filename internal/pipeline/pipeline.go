// Package pipeline wires sources, the processing engine, and storage into
// the worker's endless collect-process-store cycle.
package pipeline

import (
	"context"
	"time"

	"github.com/newswire/aggregator/internal/domain"
	"github.com/newswire/aggregator/internal/logger"
	"github.com/newswire/aggregator/internal/metrics"
	"github.com/newswire/aggregator/internal/source"
)

// Store persists news items. Implemented by database.NewsRepository.
type Store interface {
	Exists(ctx context.Context, source, sourceID string) (bool, error)
	Insert(ctx context.Context, item *domain.NewsItem) error
}

// Pipeline runs the aggregation cycle.
type Pipeline struct {
	sources     []source.Source
	processor   Processor
	store       Store
	metrics     *metrics.Metrics
	logger      logger.Logger
	concurrency int
	interval    time.Duration
}

// Config holds pipeline construction parameters.
type Config struct {
	Sources     []source.Source
	Processor   Processor
	Store       Store
	Metrics     *metrics.Metrics
	Logger      logger.Logger
	Concurrency int
	Interval    time.Duration
}

// New creates the pipeline.
func New(cfg Config) *Pipeline {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		sources:     cfg.Sources,
		processor:   cfg.Processor,
		store:       cfg.Store,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		concurrency: concurrency,
		interval:    cfg.Interval,
	}
}

// CycleStats summarizes one cycle for logging.
type CycleStats struct {
	Collected int
	Stored    int
	Skipped   int
	Failed    int
	Duplicate int
}

// Run executes cycles on the polling interval until ctx is cancelled. A
// failed cycle is logged and the loop keeps going.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started",
		logger.Int("sources", len(p.sources)),
		logger.Duration("interval", p.interval),
	)

	for {
		start := time.Now()
		stats := p.RunCycle(ctx)
		p.metrics.CycleDuration.Observe(time.Since(start).Seconds())

		p.logger.Info("cycle complete",
			logger.Int("collected", stats.Collected),
			logger.Int("stored", stats.Stored),
			logger.Int("skipped", stats.Skipped),
			logger.Int("failed", stats.Failed),
			logger.Int("duplicate", stats.Duplicate),
			logger.Duration("took", time.Since(start)),
		)

		select {
		case <-ctx.Done():
			p.logger.Info("pipeline stopped")
			return ctx.Err()
		case <-time.After(p.interval):
		}
	}
}

// RunCycle performs one collect-process-store pass.
func (p *Pipeline) RunCycle(ctx context.Context) CycleStats {
	var stats CycleStats

	messages := p.collect(ctx)
	stats.Collected = len(messages)

	items, skipped, failed := p.processBatch(ctx, messages)
	stats.Skipped = skipped
	stats.Failed = failed

	for _, item := range items {
		stored, err := p.storeItem(ctx, item)
		switch {
		case err != nil:
			stats.Failed++
		case stored:
			stats.Stored++
		default:
			stats.Duplicate++
		}
	}
	return stats
}

// collect polls every source. One broken adapter is logged and skipped so
// the others still deliver.
func (p *Pipeline) collect(ctx context.Context) []domain.RawMessage {
	var messages []domain.RawMessage
	for _, src := range p.sources {
		collected, err := src.Collect(ctx)
		if err != nil {
			p.logger.Error("source collection failed",
				logger.String("source", src.Name()),
				logger.Error(err),
			)
			p.metrics.AdapterFailures.WithLabelValues(src.Name()).Inc()
			continue
		}
		p.metrics.MessagesCollected.WithLabelValues(src.Name()).Add(float64(len(collected)))
		messages = append(messages, collected...)
	}
	return messages
}

// storeItem persists one item idempotently. The exists check catches most
// repeats cheaply; the insert itself is conflict-safe for the rest.
func (p *Pipeline) storeItem(ctx context.Context, item *domain.NewsItem) (bool, error) {
	exists, err := p.store.Exists(ctx, item.Source, item.SourceID)
	if err != nil {
		p.logger.Error("failed to check for existing item",
			logger.String("source", item.Source),
			logger.String("source_id", item.SourceID),
			logger.Error(err),
		)
		p.metrics.StoreFailures.Inc()
		return false, err
	}
	if exists {
		return false, nil
	}

	if err := p.store.Insert(ctx, item); err != nil {
		p.logger.Error("failed to store item",
			logger.String("source", item.Source),
			logger.String("source_id", item.SourceID),
			logger.Error(err),
		)
		p.metrics.StoreFailures.Inc()
		return false, err
	}

	p.metrics.ItemsStored.Inc()
	p.logger.Info("stored news item",
		logger.String("source", item.Source),
		logger.String("source_id", item.SourceID),
		logger.String("title", item.Title),
		logger.Int("similarity_score", item.SimilarityScore),
	)
	return true, nil
}
