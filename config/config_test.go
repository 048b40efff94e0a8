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
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Checkpoint.Backend)
	assert.Equal(t, "localhost:6379", cfg.Checkpoint.RedisAddr)
	assert.Equal(t, 24*time.Hour, cfg.Checkpoint.TTL)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, "mock", cfg.Model.Provider)
	assert.Empty(t, cfg.Retrieval.Endpoint)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CONVOGRAPH_STORAGE_DRIVER", "sqlite")
	t.Setenv("CONVOGRAPH_STORAGE_DSN", "chat.db")
	t.Setenv("CONVOGRAPH_MODEL_PROVIDER", "openai")
	t.Setenv("CONVOGRAPH_CHECKPOINT_TTL", "1h")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Storage.Driver)
	assert.Equal(t, "chat.db", cfg.Storage.DSN)
	assert.Equal(t, "openai", cfg.Model.Provider)
	assert.Equal(t, time.Hour, cfg.Checkpoint.TTL)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
checkpoint:
  backend: redis
  redis_addr: redis:6379
model:
  provider: anthropic
  name: claude-sonnet-4-20250514
  lite_name: claude-3-5-haiku-latest
retrieval:
  endpoint: http://localhost:8081
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Checkpoint.Backend)
	assert.Equal(t, "redis:6379", cfg.Checkpoint.RedisAddr)
	assert.Equal(t, "anthropic", cfg.Model.Provider)
	assert.Equal(t, "claude-sonnet-4-20250514", cfg.Model.Name)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.Model.LiteName)
	assert.Equal(t, "http://localhost:8081", cfg.Retrieval.Endpoint)

	// Keys the file omits keep their defaults.
	assert.Equal(t, "memory", cfg.Storage.Driver)
}

func TestLoadEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  driver: sqlite\n"), 0o644))
	t.Setenv("CONVOGRAPH_STORAGE_DRIVER", "mysql")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "mysql", cfg.Storage.Driver)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
