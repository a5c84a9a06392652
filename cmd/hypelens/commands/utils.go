// ABOUTME: Shared wiring and formatting helpers for CLI commands
// ABOUTME: appContext builds the full service graph from environment configuration
package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/hypelens/hypelens/internal/config"
	"github.com/hypelens/hypelens/internal/embed"
	"github.com/hypelens/hypelens/internal/imageproc"
	"github.com/hypelens/hypelens/internal/intent"
	"github.com/hypelens/hypelens/internal/llm"
	"github.com/hypelens/hypelens/internal/metadata"
	"github.com/hypelens/hypelens/internal/pipeline"
	"github.com/hypelens/hypelens/internal/ratelimit"
	"github.com/hypelens/hypelens/internal/search"
	"github.com/hypelens/hypelens/internal/vectorindex"
	"github.com/hypelens/hypelens/internal/weights"
)

// appContext holds the wired service graph for one command run.
type appContext struct {
	cfg       *config.Config
	index     vectorindex.Index
	store     *metadata.Store
	embedder  *embed.Client
	images    *imageproc.Processor
	generator llm.Generator // nil without an API key
	engine    *search.Engine
	pipe      *pipeline.Pipeline
	parser    *intent.Parser
}

// newAppContext loads configuration and wires every service the CLI
// commands use. Call Close when done.
func newAppContext() (*appContext, error) {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}

	index, err := openIndex(cfg)
	if err != nil {
		return nil, err
	}
	store, err := metadata.NewStore(metadataPath(cfg))
	if err != nil {
		index.Close()
		return nil, fmt.Errorf("opening metadata store: %w", err)
	}

	embedder, err := embed.NewClient(&embed.ClientConfig{
		BaseURL:    cfg.EmbedServiceURL,
		Dimensions: cfg.VectorDim,
		Timeout:    cfg.EmbedTimeout,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
	})
	if err != nil {
		index.Close()
		store.Close()
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}

	// The batch paths (ingestion, classification) retry transient LLM
	// and embed failures; the interactive query path fails after one
	// attempt so a search surfaces service trouble immediately.
	var generator llm.Generator
	var queryGenerator llm.Generator
	if cfg.HasLLM() {
		client, err := llm.NewClient(&llm.ClientConfig{
			APIKey:     cfg.OpenAIKey,
			ChatModel:  cfg.ChatModel,
			MaxRetries: cfg.MaxRetries,
			RetryDelay: cfg.RetryDelay,
			Timeout:    cfg.LLMTimeout,
			Limiter:    ratelimit.New(cfg.RequestsPerMinute, cfg.RequestsPerDay),
		})
		if err != nil {
			index.Close()
			store.Close()
			return nil, fmt.Errorf("creating LLM client: %w", err)
		}
		generator = client
		queryGenerator = client.WithoutRetries()
	}

	images := imageproc.NewProcessor(embedder)
	queryEmbedder := embedder.WithoutRetries()
	queryImages := imageproc.NewProcessor(queryEmbedder)
	analyzer := weights.NewAnalyzer(weights.DefaultVocab(), queryGenerator)

	return &appContext{
		cfg:       cfg,
		index:     index,
		store:     store,
		embedder:  embedder,
		images:    images,
		generator: generator,
		engine:    search.NewEngine(index, queryEmbedder, analyzer, queryImages, cfg.DefaultLimit, cfg.ScoreThreshold),
		pipe:      pipeline.New(index, store, embedder, images),
		parser:    intent.NewParser(queryGenerator),
	}, nil
}

// Close releases the index and store connections.
func (a *appContext) Close() {
	a.store.Close()
	a.index.Close()
}

func openIndex(cfg *config.Config) (vectorindex.Index, error) {
	if cfg.IndexDriver == config.DriverPostgres {
		index, err := vectorindex.NewPostgresIndex(cfg.PostgresDSN, cfg.Collection, cfg.VectorDim)
		if err != nil {
			return nil, fmt.Errorf("opening postgres index: %w", err)
		}
		return index, nil
	}
	path := cfg.IndexPath
	if path == "" {
		dir, err := dataDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "index.db")
	}
	index, err := vectorindex.NewSQLiteIndex(path, cfg.Collection, cfg.VectorDim)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite index: %w", err)
	}
	return index, nil
}

// metadataPath puts the metadata database next to the SQLite index,
// or in the data dir when the index lives in Postgres.
func metadataPath(cfg *config.Config) string {
	if cfg.IndexPath != "" && cfg.IndexDriver == config.DriverSQLite {
		return filepath.Join(filepath.Dir(cfg.IndexPath), "metadata.db")
	}
	dir, err := dataDir()
	if err != nil {
		return "metadata.db"
	}
	return filepath.Join(dir, "metadata.db")
}

// dataDir returns the XDG data directory for hypelens, creating it if
// needed.
func dataDir() (string, error) {
	base := os.Getenv("XDG_DATA_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("finding home directory: %w", err)
		}
		base = filepath.Join(home, ".local", "share")
	}
	dir := filepath.Join(base, "hypelens")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return dir, nil
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return string(runes[:maxLen-3]) + "..."
}

// formatCount renders a follower count the way platforms display it.
func formatCount(n int64) string {
	switch {
	case n >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", float64(n)/1e9)
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1e6)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1e3)
	case n <= 0:
		return "-"
	default:
		return fmt.Sprintf("%d", n)
	}
}

// formatTime formats a time for display.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	diff := time.Since(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	}
	return t.Format("2006-01-02")
}

// validatePositiveInt returns an error if n is not positive.
func validatePositiveInt(n int, name string) error {
	if n <= 0 {
		return fmt.Errorf("%s must be positive, got %d", name, n)
	}
	return nil
}
