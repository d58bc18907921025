// Package config loads worker configuration from an optional YAML file with
// .env and environment variable overrides.
package config

import (
	"time"

	"github.com/google/uuid"
)

// Default configuration values.
const (
	defaultPollingInterval  = 300 * time.Second
	defaultConcurrency      = 4
	defaultFetchCap         = 100
	defaultExtractorRPS     = 2
	defaultModel            = "openai/gpt-4o-mini"
	defaultEmbeddingDim     = 1536
	defaultDedupWindow      = 72 * time.Hour
	defaultDedupLimit       = 500
	defaultDBHost           = "localhost"
	defaultDBPort           = 5432
	defaultDBUser           = "postgres"
	defaultDBName           = "newswire"
	defaultDBSSLMode        = "disable"
	defaultOpsPort          = 8090
	defaultLogLevel         = "info"
	defaultGraphAPIVersion  = "v19.0"
	defaultEmbeddingTimeout = 10 * time.Second
)

// Config holds all configuration for the aggregation worker.
type Config struct {
	Worker     WorkerConfig     `yaml:"worker"`
	OpenRouter OpenRouterConfig `yaml:"openrouter"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Dedup      DedupConfig      `yaml:"dedup"`
	Database   DatabaseConfig   `yaml:"database"`
	Telegram   TelegramConfig   `yaml:"telegram"`
	Twitter    TwitterConfig    `yaml:"twitter"`
	Facebook   FacebookConfig   `yaml:"facebook"`
	Prefilter  PrefilterConfig  `yaml:"prefilter"`
	Ops        OpsConfig        `yaml:"ops"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// WorkerConfig holds worker identity and cycle settings.
type WorkerConfig struct {
	ID              string        `env:"WORKER_ID"          yaml:"id"`
	Sources         []string      `env:"WORKER_SOURCES"     yaml:"sources"`
	PollingInterval time.Duration `env:"POLLING_INTERVAL"   yaml:"polling_interval"`
	Concurrency     int           `env:"WORKER_CONCURRENCY" yaml:"concurrency"`
	FetchCap        int           `yaml:"fetch_cap"`
	ExtractorRPS    int           `yaml:"extractor_rps"`
}

// OpenRouterConfig holds the LLM extractor settings.
type OpenRouterConfig struct {
	APIKey string `env:"OPENROUTER_API_KEY" yaml:"api_key"`
	Model  string `env:"OPENROUTER_MODEL"   yaml:"model"`
}

// EmbeddingConfig holds the embedding service settings.
type EmbeddingConfig struct {
	URL       string        `env:"EMBEDDING_SERVICE_URL" yaml:"url"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DedupConfig bounds the similarity comparison window.
type DedupConfig struct {
	Window time.Duration `yaml:"window"`
	Limit  int           `yaml:"limit"`
}

// DatabaseConfig holds PostgreSQL settings.
type DatabaseConfig struct {
	Host     string `env:"POSTGRES_HOST"     yaml:"host"`
	Port     int    `env:"POSTGRES_PORT"     yaml:"port"`
	User     string `env:"POSTGRES_USER"     yaml:"user"`
	Password string `env:"POSTGRES_PASSWORD" yaml:"password"`
	Database string `env:"POSTGRES_DB"       yaml:"database"`
	SSLMode  string `env:"POSTGRES_SSLMODE"  yaml:"sslmode"`
}

// TelegramConfig holds the Telegram adapter settings.
type TelegramConfig struct {
	BotToken string   `env:"TELEGRAM_BOT_TOKEN" yaml:"bot_token"`
	Channels []string `env:"TELEGRAM_CHANNELS"  yaml:"channels"`
}

// TwitterConfig holds the Twitter/X adapter settings.
type TwitterConfig struct {
	BearerToken string   `env:"TWITTER_BEARER_TOKEN" yaml:"bearer_token"`
	Accounts    []string `env:"TWITTER_ACCOUNTS"     yaml:"accounts"`
}

// FacebookConfig holds the Facebook adapter settings.
type FacebookConfig struct {
	AccessToken string   `env:"FACEBOOK_ACCESS_TOKEN" yaml:"access_token"`
	Pages       []string `env:"FACEBOOK_PAGES"        yaml:"pages"`
	APIVersion  string   `yaml:"api_version"`
}

// PrefilterConfig holds the optional keyword spam gate. When disabled every
// collected message reaches the extractor.
type PrefilterConfig struct {
	Enabled  bool     `env:"PREFILTER_ENABLED" yaml:"enabled"`
	Patterns []string `yaml:"patterns"`
}

// OpsConfig holds the operational HTTP endpoint settings.
type OpsConfig struct {
	Port int `env:"OPS_PORT" yaml:"port"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `env:"LOG_LEVEL" yaml:"level"`
}

// Load reads the YAML file at path (a missing file is fine), loads .env
// files, applies defaults, then applies environment overrides. Env always
// wins.
func Load(path string) (*Config, error) {
	if err := loadEnvFiles(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := loadFile(path, &cfg); err != nil {
		return nil, err
	}

	setDefaults(&cfg)
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func setDefaults(cfg *Config) {
	w := &cfg.Worker
	if w.ID == "" {
		w.ID = "worker-" + uuid.NewString()[:8]
	}
	if len(w.Sources) == 0 {
		w.Sources = []string{"telegram", "twitter", "facebook"}
	}
	if w.PollingInterval <= 0 {
		w.PollingInterval = defaultPollingInterval
	}
	if w.Concurrency <= 0 {
		w.Concurrency = defaultConcurrency
	}
	if w.FetchCap <= 0 {
		w.FetchCap = defaultFetchCap
	}
	if w.ExtractorRPS <= 0 {
		w.ExtractorRPS = defaultExtractorRPS
	}

	if cfg.OpenRouter.Model == "" {
		cfg.OpenRouter.Model = defaultModel
	}
	if cfg.Embedding.Dimension <= 0 {
		cfg.Embedding.Dimension = defaultEmbeddingDim
	}
	if cfg.Embedding.Timeout <= 0 {
		cfg.Embedding.Timeout = defaultEmbeddingTimeout
	}
	if cfg.Dedup.Window <= 0 {
		cfg.Dedup.Window = defaultDedupWindow
	}
	if cfg.Dedup.Limit <= 0 {
		cfg.Dedup.Limit = defaultDedupLimit
	}

	db := &cfg.Database
	if db.Host == "" {
		db.Host = defaultDBHost
	}
	if db.Port == 0 {
		db.Port = defaultDBPort
	}
	if db.User == "" {
		db.User = defaultDBUser
	}
	if db.Database == "" {
		db.Database = defaultDBName
	}
	if db.SSLMode == "" {
		db.SSLMode = defaultDBSSLMode
	}

	if cfg.Facebook.APIVersion == "" {
		cfg.Facebook.APIVersion = defaultGraphAPIVersion
	}
	if cfg.Ops.Port == 0 {
		cfg.Ops.Port = defaultOpsPort
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaultLogLevel
	}
}
