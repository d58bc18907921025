package pipeline

import (
	"context"
	"sync"

	"github.com/newswire/aggregator/internal/domain"
	"github.com/newswire/aggregator/internal/logger"
)

// Processor turns one raw message into a news item. A nil item with nil
// error means the message was judged not news and is dropped.
type Processor interface {
	Process(ctx context.Context, msg domain.RawMessage) (*domain.NewsItem, error)
}

type batchResult struct {
	item    *domain.NewsItem
	skipped bool
	failed  bool
}

// processBatch fans messages out to a bounded worker pool. A failing message
// is counted and dropped without affecting its batch mates.
func (p *Pipeline) processBatch(ctx context.Context, messages []domain.RawMessage) ([]*domain.NewsItem, int, int) {
	if len(messages) == 0 {
		return nil, 0, 0
	}

	jobs := make(chan domain.RawMessage)
	results := make(chan batchResult, len(messages))

	var wg sync.WaitGroup
	for range p.concurrency {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range jobs {
				results <- p.processOne(ctx, msg)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, msg := range messages {
			select {
			case jobs <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var items []*domain.NewsItem
	var skipped, failed int
	for res := range results {
		switch {
		case res.failed:
			failed++
		case res.skipped:
			skipped++
		default:
			items = append(items, res.item)
		}
	}
	return items, skipped, failed
}

func (p *Pipeline) processOne(ctx context.Context, msg domain.RawMessage) batchResult {
	item, err := p.processor.Process(ctx, msg)
	if err != nil {
		p.logger.Error("failed to process message",
			logger.String("source", msg.Source),
			logger.String("source_id", msg.SourceID),
			logger.Error(err),
		)
		p.metrics.ExtractionFailures.Inc()
		return batchResult{failed: true}
	}
	if item == nil {
		p.metrics.ItemsSkipped.Inc()
		return batchResult{skipped: true}
	}
	return batchResult{item: item}
}
