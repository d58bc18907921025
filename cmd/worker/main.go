// Command worker runs the news aggregation worker: it polls the configured
// social platforms, extracts structured news through the LLM, scores
// near-duplicates, and persists items to PostgreSQL until stopped.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/newswire/aggregator/internal/config"
	"github.com/newswire/aggregator/internal/database"
	"github.com/newswire/aggregator/internal/dedup"
	"github.com/newswire/aggregator/internal/embedding"
	"github.com/newswire/aggregator/internal/engine"
	"github.com/newswire/aggregator/internal/extractor"
	"github.com/newswire/aggregator/internal/logger"
	"github.com/newswire/aggregator/internal/metrics"
	"github.com/newswire/aggregator/internal/ops"
	"github.com/newswire/aggregator/internal/pipeline"
	"github.com/newswire/aggregator/internal/prefilter"
	"github.com/newswire/aggregator/internal/source"
	"github.com/newswire/aggregator/internal/source/facebook"
	"github.com/newswire/aggregator/internal/source/telegram"
	"github.com/newswire/aggregator/internal/source/twitter"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Must(logger.Config{Level: cfg.Logging.Level})
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil && err != context.Canceled {
		log.Error("worker exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting aggregation worker",
		logger.String("worker_id", cfg.Worker.ID),
		logger.Strings("sources", cfg.Worker.Sources),
	)

	db, err := database.NewPostgresConnection(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Database,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	newsRepo := database.NewNewsRepository(db)
	cursorRepo := database.NewCursorRepository(db)

	llm, err := extractor.NewClient(cfg.OpenRouter.APIKey, cfg.OpenRouter.Model, log)
	if err != nil {
		return fmt.Errorf("create extractor: %w", err)
	}
	extract := extractor.RateLimited(llm, float64(cfg.Worker.ExtractorRPS), cfg.Worker.Concurrency)

	deps := engine.Deps{
		Extractor: extract,
		Logger:    log,
	}

	var embedder *embedding.Client
	if cfg.Embedding.URL != "" {
		embedder = embedding.NewClient(cfg.Embedding.URL, cfg.Embedding.Dimension, cfg.Embedding.Timeout)
		deps.Embedder = embedder
		deps.Scorer = dedup.NewScorer(newsRepo, cfg.Dedup.Window, cfg.Dedup.Limit, log)
	} else {
		log.Warn("embedding service not configured, similarity scoring disabled")
	}

	if cfg.Prefilter.Enabled && len(cfg.Prefilter.Patterns) > 0 {
		deps.Prefilter = prefilter.New(cfg.Prefilter.Patterns)
		log.Info("spam prefilter enabled", logger.Int("patterns", len(cfg.Prefilter.Patterns)))
	}

	p := pipeline.New(pipeline.Config{
		Sources:     buildSources(cfg, cursorRepo, log),
		Processor:   engine.New(deps),
		Store:       newsRepo,
		Metrics:     metrics.New(),
		Logger:      log,
		Concurrency: cfg.Worker.Concurrency,
		Interval:    cfg.Worker.PollingInterval,
	})

	var opsHealth ops.HealthChecker
	if embedder != nil {
		opsHealth = embedder
	}
	opsServer := ops.NewServer(cfg.Ops.Port, cfg.Worker.ID, opsHealth, newsRepo, log)
	go func() {
		if err := opsServer.Run(ctx); err != nil {
			log.Error("ops server failed", logger.Error(err))
		}
	}()

	return p.Run(ctx)
}

// buildSources constructs the enabled adapters. One adapter failing to
// initialize is logged and left out so the others still run.
func buildSources(cfg *config.Config, cursors source.CursorStore, log logger.Logger) []source.Source {
	var sources []source.Source
	for _, name := range cfg.Worker.Sources {
		src, err := buildSource(name, cfg, cursors, log)
		if err != nil {
			log.Error("failed to initialize source adapter",
				logger.String("source", name),
				logger.Error(err),
			)
			continue
		}
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		log.Warn("no source adapters initialized, cycles will be empty")
	}
	return sources
}

func buildSource(name string, cfg *config.Config, cursors source.CursorStore, log logger.Logger) (source.Source, error) {
	switch name {
	case "telegram":
		return telegram.New(telegram.Config{
			BotToken: cfg.Telegram.BotToken,
			Channels: cfg.Telegram.Channels,
			FetchCap: cfg.Worker.FetchCap,
		}, cursors, log)
	case "twitter":
		return twitter.New(twitter.Config{
			BearerToken: cfg.Twitter.BearerToken,
			Accounts:    cfg.Twitter.Accounts,
			FetchCap:    cfg.Worker.FetchCap,
		}, cursors, log)
	case "facebook":
		return facebook.New(facebook.Config{
			AccessToken: cfg.Facebook.AccessToken,
			Pages:       cfg.Facebook.Pages,
			FetchCap:    cfg.Worker.FetchCap,
			BaseURL:     "https://graph.facebook.com/" + cfg.Facebook.APIVersion,
		}, cursors, log)
	default:
		return nil, fmt.Errorf("unknown source %q", name)
	}
}
