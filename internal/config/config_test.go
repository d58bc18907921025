package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)

	assert.NotEmpty(t, cfg.Worker.ID)
	assert.Equal(t, []string{"telegram", "twitter", "facebook"}, cfg.Worker.Sources)
	assert.Equal(t, 300*time.Second, cfg.Worker.PollingInterval)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Equal(t, 100, cfg.Worker.FetchCap)
	assert.Equal(t, "openai/gpt-4o-mini", cfg.OpenRouter.Model)
	assert.Equal(t, 1536, cfg.Embedding.Dimension)
	assert.Equal(t, 72*time.Hour, cfg.Dedup.Window)
	assert.Equal(t, 500, cfg.Dedup.Limit)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, 8090, cfg.Ops.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	content := `
worker:
  id: worker-test
  sources: [telegram]
  polling_interval: 60s
database:
  host: db.internal
  port: 6432
telegram:
  channels: [citynews, regionwatch]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "worker-test", cfg.Worker.ID)
	assert.Equal(t, []string{"telegram"}, cfg.Worker.Sources)
	assert.Equal(t, time.Minute, cfg.Worker.PollingInterval)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 6432, cfg.Database.Port)
	assert.Equal(t, []string{"citynews", "regionwatch"}, cfg.Telegram.Channels)
}

func TestEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  host: from-file\n"), 0o600))

	t.Setenv("POSTGRES_HOST", "from-env")
	t.Setenv("WORKER_SOURCES", "telegram, twitter")
	t.Setenv("POLLING_INTERVAL", "120")
	t.Setenv("PREFILTER_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Database.Host)
	assert.Equal(t, []string{"telegram", "twitter"}, cfg.Worker.Sources)
	// Bare integers are seconds, matching the legacy convention.
	assert.Equal(t, 120*time.Second, cfg.Worker.PollingInterval)
	assert.True(t, cfg.Prefilter.Enabled)
}

func TestEnvDurationAcceptsGoSyntax(t *testing.T) {
	t.Setenv("POLLING_INTERVAL", "2m30s")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, 150*time.Second, cfg.Worker.PollingInterval)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList("a, b ,c"))
	assert.Equal(t, []string{"solo"}, splitList("solo"))
	assert.Empty(t, splitList(" , ,"))
}
