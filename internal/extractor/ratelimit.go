package extractor

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/newswire/aggregator/internal/domain"
)

// RateLimited wraps an extractor with a client-side request budget so bursts
// of collected messages do not trip upstream throttling.
func RateLimited(inner Extractor, rps float64, burst int) Extractor {
	if rps <= 0 {
		return inner
	}
	if burst < 1 {
		burst = 1
	}
	return &limited{inner: inner, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

type limited struct {
	inner   Extractor
	limiter *rate.Limiter
}

func (l *limited) Extract(ctx context.Context, req Request) (*domain.ExtractionResult, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.inner.Extract(ctx, req)
}
