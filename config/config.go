// Package config loads runtime configuration from a file and environment
// variables via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the runtime configuration for the assistant.
type Config struct {
	Checkpoint CheckpointConfig `mapstructure:"checkpoint"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Model      ModelConfig      `mapstructure:"model"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
}

// CheckpointConfig selects the checkpoint backend.
type CheckpointConfig struct {
	// Backend is "memory" or "redis".
	Backend   string        `mapstructure:"backend"`
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// StorageConfig selects the session/turn/summary store.
type StorageConfig struct {
	// Driver is "memory", "sqlite", or "mysql".
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

// ModelConfig selects the completion providers.
type ModelConfig struct {
	// Provider is "openai", "anthropic", "google", or "mock".
	Provider string `mapstructure:"provider"`
	APIKey   string `mapstructure:"api_key"`
	Name     string `mapstructure:"name"`
	// LiteName is the model used for titles and summaries; empty reuses
	// the primary model name.
	LiteName string `mapstructure:"lite_name"`
}

// RetrievalConfig locates the retrieval and web-search providers.
type RetrievalConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	TavilyKey string `mapstructure:"tavily_key"`
}

// Load reads configuration from the given file (optional; "" skips the
// file) and from CONVOGRAPH_* environment variables, with sensible
// defaults for a local, volatile deployment.
//
// Environment keys replace dots with underscores:
// CONVOGRAPH_STORAGE_DRIVER overrides storage.driver.
func Load(path string) (Config, error) {
	v := viper.New()

	v.SetDefault("checkpoint.backend", "memory")
	v.SetDefault("checkpoint.redis_addr", "localhost:6379")
	v.SetDefault("checkpoint.ttl", 24*time.Hour)
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("storage.dsn", "")
	v.SetDefault("model.provider", "mock")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.name", "")
	v.SetDefault("model.lite_name", "")
	v.SetDefault("retrieval.endpoint", "")
	v.SetDefault("retrieval.tavily_key", "")

	v.SetEnvPrefix("CONVOGRAPH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
