// Package config provides environment-driven configuration for the search
// subsystem.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Secret wraps a sensitive string to prevent accidental logging or marshalling.
type Secret string

// String implements fmt.Stringer, returning a redacted placeholder.
func (s Secret) String() string { return "[REDACTED]" }

// GoString implements fmt.GoStringer, returning a redacted placeholder.
func (s Secret) GoString() string { return "[REDACTED]" }

// MarshalText implements encoding.TextMarshaler, returning a redacted placeholder.
func (s Secret) MarshalText() ([]byte, error) { return []byte("[REDACTED]"), nil }

// Value returns the underlying secret string.
func (s Secret) Value() string { return string(s) }

// Embedding provider names.
const (
	ProviderHosted = "hosted"
	ProviderLocal  = "local"
)

// Config holds all application configuration values. EmbeddingDimensions is
// the canonical vector length for the whole system, fixed at deploy time and
// never mutated at runtime.
type Config struct {
	DatabaseURL Secret
	Port        string
	ListenHost  string
	CORSOrigins []string
	LogLevel    string

	EmbeddingProvider   string // "hosted" or "local"; the other acts as fallback
	EmbeddingDimensions int
	EmbeddingModel      string
	OpenAIAPIKey        Secret
	OpenAIBaseURL       string
	OllamaURL           string

	BackfillBatchSize int
	BackfillInterval  time.Duration
	EmbedItemTimeout  time.Duration
	SearchTimeout     time.Duration

	HNSWM              int
	HNSWEfConstruction int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:       Secret(envOrDefault("DATABASE_URL", "")),
		Port:              envOrDefault("PORT", "3040"),
		ListenHost:        envOrDefault("LISTEN_HOST", "127.0.0.1"),
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		EmbeddingProvider: envOrDefault("EMBEDDING_PROVIDER", ProviderLocal),
		EmbeddingModel:    envOrDefault("EMBEDDING_MODEL", "nomic-embed-text"),
		OpenAIAPIKey:      Secret(envOrDefault("OPENAI_API_KEY", "")),
		OpenAIBaseURL:     envOrDefault("OPENAI_BASE_URL", ""),
		OllamaURL:         envOrDefault("OLLAMA_URL", "http://localhost:11434"),
	}

	var err error

	if cfg.EmbeddingDimensions, err = envInt("EMBEDDING_DIMENSIONS", 768, 1, 4096); err != nil {
		return nil, err
	}

	if cfg.BackfillBatchSize, err = envInt("BACKFILL_BATCH_SIZE", 50, 1, 1000); err != nil {
		return nil, err
	}

	if cfg.HNSWM, err = envInt("HNSW_M", 16, 2, 100); err != nil {
		return nil, err
	}

	if cfg.HNSWEfConstruction, err = envInt("HNSW_EF_CONSTRUCTION", 64, 4, 1000); err != nil {
		return nil, err
	}

	if cfg.BackfillInterval, err = envDuration("BACKFILL_INTERVAL", 5*time.Minute); err != nil {
		return nil, err
	}

	if cfg.EmbedItemTimeout, err = envDuration("EMBED_ITEM_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	if cfg.SearchTimeout, err = envDuration("SEARCH_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}

	origins := envOrDefault("CORS_ORIGINS", "http://localhost:3000")
	cfg.CORSOrigins = strings.Split(origins, ",")

	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// Addr returns the listen address in host:port format.
func (c *Config) Addr() string {
	return c.ListenHost + ":" + c.Port
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func envInt(key string, fallback, min, max int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return 0, fmt.Errorf("%s must be an integer between %d and %d", key, min, max)
	}

	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}

	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration (e.g. 30s, 5m)", key)
	}

	return v, nil
}
