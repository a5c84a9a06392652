// ABOUTME: Centralized configuration for the profile search system
// ABOUTME: Loads from environment variables with validation and defaults
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// IndexDriver selects the vector index backend.
type IndexDriver string

const (
	DriverSQLite   IndexDriver = "sqlite"
	DriverPostgres IndexDriver = "postgres"
)

// Config holds all configuration for the search system.
type Config struct {
	// Vector index settings
	IndexDriver IndexDriver
	IndexPath   string // SQLite database path
	PostgresDSN string // used when IndexDriver is postgres
	Collection  string
	VectorDim   int

	// Embedding service settings
	EmbedServiceURL string
	EmbedTimeout    time.Duration

	// LLM settings
	OpenAIKey  string
	ChatModel  string
	MaxRetries int
	RetryDelay time.Duration
	LLMTimeout time.Duration

	// Rate limiting for LLM calls
	RequestsPerMinute int
	RequestsPerDay    int

	// Search settings
	DefaultLimit   int
	ScoreThreshold float64

	// Ingestion settings
	BatchSize    int
	IngestWorker int

	// HTTP server settings
	ListenAddr string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		IndexDriver:       IndexDriver(getEnv("HYPELENS_INDEX_DRIVER", string(DriverSQLite))),
		IndexPath:         getEnv("HYPELENS_INDEX_PATH", ""),
		PostgresDSN:       os.Getenv("HYPELENS_POSTGRES_DSN"),
		Collection:        getEnv("HYPELENS_COLLECTION", "profiles"),
		VectorDim:         getEnvInt("HYPELENS_VECTOR_DIM", 128),
		EmbedServiceURL:   getEnv("EMBED_SERVICE_URL", "http://localhost:8480"),
		EmbedTimeout:      getEnvDuration("EMBED_TIMEOUT", 30*time.Second),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		ChatModel:         getEnv("HYPELENS_CHAT_MODEL", "gpt-4o-mini"),
		MaxRetries:        getEnvInt("HYPELENS_MAX_RETRIES", 3),
		RetryDelay:        getEnvDuration("HYPELENS_RETRY_DELAY", 2*time.Second),
		LLMTimeout:        getEnvDuration("HYPELENS_LLM_TIMEOUT", 30*time.Second),
		RequestsPerMinute: getEnvInt("HYPELENS_LLM_RPM", 10),
		RequestsPerDay:    getEnvInt("HYPELENS_LLM_RPD", 1000),
		DefaultLimit:      getEnvInt("HYPELENS_SEARCH_LIMIT", 20),
		ScoreThreshold:    getEnvFloat("HYPELENS_SCORE_THRESHOLD", 0.0),
		BatchSize:         getEnvInt("HYPELENS_BATCH_SIZE", 32),
		IngestWorker:      getEnvInt("HYPELENS_INGEST_WORKERS", 1),
		ListenAddr:        getEnv("HYPELENS_LISTEN_ADDR", ":8082"),
	}

	return cfg, cfg.Validate()
}

// Validate rejects configurations that would fail mid-request.
// Missing credentials are a startup error, not something to discover
// on the first LLM call.
func (c *Config) Validate() error {
	switch c.IndexDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("HYPELENS_POSTGRES_DSN is required when HYPELENS_INDEX_DRIVER is postgres")
		}
	default:
		return fmt.Errorf("HYPELENS_INDEX_DRIVER must be sqlite or postgres, got %q", c.IndexDriver)
	}
	if c.VectorDim <= 0 {
		return fmt.Errorf("HYPELENS_VECTOR_DIM must be positive, got %d", c.VectorDim)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("HYPELENS_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.RequestsPerMinute <= 0 {
		return fmt.Errorf("HYPELENS_LLM_RPM must be positive, got %d", c.RequestsPerMinute)
	}
	if c.RequestsPerDay <= 0 {
		return fmt.Errorf("HYPELENS_LLM_RPD must be positive, got %d", c.RequestsPerDay)
	}
	if c.ScoreThreshold < 0 || c.ScoreThreshold > 1 {
		return fmt.Errorf("HYPELENS_SCORE_THRESHOLD must be 0-1, got %f", c.ScoreThreshold)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("HYPELENS_BATCH_SIZE must be positive, got %d", c.BatchSize)
	}
	if c.IngestWorker < 1 {
		return fmt.Errorf("HYPELENS_INGEST_WORKERS must be at least 1, got %d", c.IngestWorker)
	}
	return nil
}

// HasLLM reports whether an LLM endpoint is configured. Weight
// analysis and classification degrade to keyword methods without one.
func (c *Config) HasLLM() bool {
	return c.OpenAIKey != ""
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
